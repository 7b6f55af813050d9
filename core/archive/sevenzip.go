package archive

import (
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bodgit/sevenzip"

	"github.com/FocuswithJustin/acbf/core/errors"
	"github.com/FocuswithJustin/acbf/internal/logging"
	"github.com/FocuswithJustin/acbf/internal/validation"
)

// sevenZipArchive is a 7Z container extracted into a private temporary
// directory. Edits go to the directory; saving repacks it with the 7z
// executable.
type sevenZipArchive struct {
	path     string
	readOnly bool
	opts     Options
	dir      string
	dirty    bool
	closed   bool
}

func newSevenZip(path string, opts Options) (*sevenZipArchive, error) {
	if _, err := sevenZipBinary(opts); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(opts.TempDir, "acbf-7z-*")
	if err != nil {
		return nil, errors.NewIO("create temp dir in", opts.TempDir, err)
	}
	logging.ArchiveEvent(opts.Logger, "create", path, "7z", "dir", dir)
	return &sevenZipArchive{path: path, opts: opts, dir: dir, dirty: true}, nil
}

func openSevenZip(path string, readOnly bool, opts Options) (*sevenZipArchive, error) {
	dir, err := os.MkdirTemp(opts.TempDir, "acbf-7z-*")
	if err != nil {
		return nil, errors.NewIO("create temp dir in", opts.TempDir, err)
	}
	a := &sevenZipArchive{path: path, readOnly: readOnly, opts: opts, dir: dir}
	if err := a.extract(); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	logging.ArchiveEvent(opts.Logger, "open", path, "7z", "dir", dir, "read_only", readOnly)
	return a, nil
}

func (a *sevenZipArchive) extract() error {
	rc, err := sevenzip.OpenReader(a.path)
	if err != nil {
		return errors.NewIO("open 7z", a.path, err)
	}
	defer rc.Close()

	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		target, err := validation.SanitizePath(a.dir, f.Name)
		if err != nil {
			a.opts.Logger.Warn("skipping unsafe archive entry", "path", a.path, "entry", f.Name)
			continue
		}
		r, err := f.Open()
		if err != nil {
			return errors.NewIO("open entry", f.Name, err)
		}
		data, err := readLimited(r, f.Name)
		r.Close()
		if err != nil {
			return err
		}
		if err := writeFile(target, data); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.NewIO("create directory", filepath.Dir(target), err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return errors.NewIO("write", target, err)
	}
	return nil
}

func (a *sevenZipArchive) Type() Type     { return Type7Z }
func (a *sevenZipArchive) Path() string   { return a.path }
func (a *sevenZipArchive) ReadOnly() bool { return a.readOnly }

func (a *sevenZipArchive) List() ([]string, error) {
	var names []string
	err := filepath.WalkDir(a.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(a.dir, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.NewIO("list", a.dir, err)
	}
	sort.Strings(names)
	return names, nil
}

func (a *sevenZipArchive) target(name string) (string, string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", "", err
	}
	target, err := validation.SanitizePath(a.dir, name)
	if err != nil {
		return "", "", &errors.NotFoundError{Resource: "archive entry", ID: name, Err: err}
	}
	return name, target, nil
}

func (a *sevenZipArchive) Read(name string) ([]byte, error) {
	name, target, err := a.target(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("archive entry", name)
		}
		return nil, errors.NewIO("read entry", name, err)
	}
	defer f.Close()
	return readLimited(f, name)
}

func (a *sevenZipArchive) Write(name string, data []byte) error {
	if a.readOnly {
		return readOnlyError("write", name)
	}
	_, target, err := a.target(name)
	if err != nil {
		return err
	}
	if err := writeFile(target, data); err != nil {
		return err
	}
	a.dirty = true
	return nil
}

func (a *sevenZipArchive) Delete(name string) error {
	if a.readOnly {
		return readOnlyError("delete", name)
	}
	name, target, err := a.target(name)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFound("archive entry", name)
		}
		return errors.NewIO("delete entry", name, err)
	}
	a.dirty = true
	return nil
}

func (a *sevenZipArchive) LocateACBF() (string, error) {
	return locateACBF(a)
}

func (a *sevenZipArchive) Save() error {
	if a.readOnly {
		return readOnlyError("save", a.path)
	}
	if !a.dirty {
		return nil
	}
	if err := a.repack(a.path); err != nil {
		return err
	}
	a.dirty = false
	return nil
}

func (a *sevenZipArchive) SaveAs(path string) error {
	return a.repack(path)
}

// repack compresses the extraction directory into a fresh 7Z file and
// moves it over path.
func (a *sevenZipArchive) repack(path string) error {
	bin, err := sevenZipBinary(a.opts)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return errors.NewIO("read", a.dir, err)
	}
	if len(entries) == 0 {
		return errors.NewValue("7z archive", "cannot write an empty container")
	}

	out, err := filepath.Abs(path)
	if err != nil {
		return errors.NewIO("resolve", path, err)
	}
	tmpDir, err := os.MkdirTemp(filepath.Dir(out), ".acbf-7z-*")
	if err != nil {
		return errors.NewIO("create temp dir in", filepath.Dir(out), err)
	}
	defer os.RemoveAll(tmpDir)
	tmp := filepath.Join(tmpDir, "out.7z")

	args := []string{"a", "-t7z", "-y", tmp}
	for _, e := range entries {
		args = append(args, e.Name())
	}
	cmd := exec.Command(bin, args...)
	cmd.Dir = a.dir
	if output, err := cmd.CombinedOutput(); err != nil {
		return errors.NewIO("repack 7z", path, errors.Wrapf(err, "%s", strings.TrimSpace(string(output))))
	}
	if err := os.Rename(tmp, out); err != nil {
		return errors.NewIO("replace", path, err)
	}
	logging.ArchiveEvent(a.opts.Logger, "repack", path, "7z", "binary", bin, "entries", len(entries))
	return nil
}

func (a *sevenZipArchive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	if !a.readOnly && a.dirty {
		if err := a.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := os.RemoveAll(a.dir); err != nil {
		errs = append(errs, errors.NewIO("remove", a.dir, err))
	}
	logging.ArchiveEvent(a.opts.Logger, "close", a.path, "7z")
	return errors.Join(errs...)
}

func (a *sevenZipArchive) Discard() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var err error
	if rmErr := os.RemoveAll(a.dir); rmErr != nil {
		err = errors.NewIO("remove", a.dir, rmErr)
	}
	logging.ArchiveEvent(a.opts.Logger, "discard", a.path, "7z")
	return err
}

// sevenZipBinary finds the executable used to write 7Z containers.
func sevenZipBinary(opts Options) (string, error) {
	if opts.SevenZipPath != "" {
		if _, err := os.Stat(opts.SevenZipPath); err != nil {
			return "", errors.NewUnsupported("7z writing", "executable "+opts.SevenZipPath+" not found")
		}
		return opts.SevenZipPath, nil
	}
	for _, name := range []string{"7z", "7zz", "7za"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", errors.NewUnsupported("7z writing", "no 7z executable on PATH")
}
