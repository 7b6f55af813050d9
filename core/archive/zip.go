package archive

import (
	"archive/zip"
	"io"
	"time"

	"github.com/FocuswithJustin/acbf/core/errors"
	"github.com/FocuswithJustin/acbf/internal/logging"
)

type zipArchive struct {
	path     string
	readOnly bool
	opts     Options
	created  bool
	closed   bool

	rc    *zip.ReadCloser
	files map[string]*zip.File
	order []string
	stage *stage
}

func newZip(path string, opts Options) *zipArchive {
	logging.ArchiveEvent(opts.Logger, "create", path, "zip")
	return &zipArchive{
		path:    path,
		opts:    opts,
		created: true,
		files:   make(map[string]*zip.File),
		stage:   newStage(),
	}
}

func openZip(path string, readOnly bool, opts Options) (*zipArchive, error) {
	a := &zipArchive{path: path, readOnly: readOnly, opts: opts, stage: newStage()}
	if err := a.load(); err != nil {
		return nil, err
	}
	logging.ArchiveEvent(opts.Logger, "open", path, "zip", "entries", len(a.order), "read_only", readOnly)
	return a, nil
}

func (a *zipArchive) load() error {
	rc, err := zip.OpenReader(a.path)
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && rc != nil) {
		return errors.NewIO("open zip", a.path, err)
	}
	a.rc = rc
	a.files = make(map[string]*zip.File, len(rc.File))
	a.order = a.order[:0]
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name, err := cleanName(f.Name)
		if err != nil {
			a.opts.Logger.Warn("skipping unsafe archive entry", "path", a.path, "entry", f.Name)
			continue
		}
		if _, dup := a.files[name]; dup {
			continue
		}
		a.files[name] = f
		a.order = append(a.order, name)
	}
	return nil
}

func (a *zipArchive) Type() Type     { return TypeZIP }
func (a *zipArchive) Path() string   { return a.path }
func (a *zipArchive) ReadOnly() bool { return a.readOnly }

func (a *zipArchive) has(name string) bool {
	_, ok := a.files[name]
	return ok
}

func (a *zipArchive) List() ([]string, error) {
	return a.stage.merge(a.order, a.has), nil
}

func (a *zipArchive) Read(name string) ([]byte, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	if data, ok := a.stage.get(name); ok {
		return data, nil
	}
	f, ok := a.files[name]
	if !ok || a.stage.isDeleted(name) {
		return nil, errors.NewNotFound("archive entry", name)
	}
	r, err := f.Open()
	if err != nil {
		return nil, errors.NewIO("open entry", name, err)
	}
	defer r.Close()
	return readLimited(r, name)
}

func (a *zipArchive) Write(name string, data []byte) error {
	if a.readOnly {
		return readOnlyError("write", name)
	}
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	a.stage.put(name, data)
	return nil
}

func (a *zipArchive) Delete(name string) error {
	if a.readOnly {
		return readOnlyError("delete", name)
	}
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if _, staged := a.stage.files[name]; !staged && (!a.has(name) || a.stage.isDeleted(name)) {
		return errors.NewNotFound("archive entry", name)
	}
	a.stage.remove(name)
	return nil
}

func (a *zipArchive) LocateACBF() (string, error) {
	return locateACBF(a)
}

func (a *zipArchive) Save() error {
	if a.readOnly {
		return readOnlyError("save", a.path)
	}
	if !a.created && !a.stage.dirty() {
		return nil
	}
	if err := writeAtomically(a.path, a.writeTo); err != nil {
		return err
	}
	logging.ArchiveEvent(a.opts.Logger, "flush", a.path, "zip", "staged", len(a.stage.files), "deleted", len(a.stage.deleted))

	if a.rc != nil {
		a.rc.Close()
	}
	a.created = false
	a.stage = newStage()
	return a.load()
}

func (a *zipArchive) SaveAs(path string) error {
	return writeAtomically(path, a.writeTo)
}

func (a *zipArchive) writeTo(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, name := range a.order {
		if a.stage.isDeleted(name) {
			continue
		}
		if data, ok := a.stage.get(name); ok {
			if err := writeZipEntry(zw, name, data); err != nil {
				return err
			}
			continue
		}
		if err := zw.Copy(a.files[name]); err != nil {
			return errors.NewIO("copy entry", name, err)
		}
	}
	for _, name := range a.stage.added(a.has) {
		data, _ := a.stage.get(name)
		if err := writeZipEntry(zw, name, data); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return errors.NewIO("finish zip", a.path, err)
	}
	return nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return errors.NewIO("add entry", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return errors.NewIO("write entry", name, err)
	}
	return nil
}

func (a *zipArchive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	if !a.readOnly {
		if err := a.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.rc != nil {
		if err := a.rc.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	logging.ArchiveEvent(a.opts.Logger, "close", a.path, "zip")
	return errors.Join(errs...)
}

func (a *zipArchive) Discard() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.stage = newStage()

	var err error
	if a.rc != nil {
		err = a.rc.Close()
	}
	logging.ArchiveEvent(a.opts.Logger, "discard", a.path, "zip")
	return err
}
