package archive

import (
	"io"

	"github.com/nwaples/rardecode/v2"

	"github.com/FocuswithJustin/acbf/core/errors"
	"github.com/FocuswithJustin/acbf/internal/logging"
)

// rarArchive is a read-only RAR container. Reads stream the archive from
// the start until the entry is found.
type rarArchive struct {
	path    string
	opts    Options
	entries map[string]bool
	order   []string
}

func openRar(path string, opts Options) (*rarArchive, error) {
	a := &rarArchive{path: path, opts: opts, entries: make(map[string]bool)}
	err := a.iterate(func(name string, _ io.Reader) (bool, error) {
		if !a.entries[name] {
			a.entries[name] = true
			a.order = append(a.order, name)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	logging.ArchiveEvent(opts.Logger, "open", path, "rar", "entries", len(a.order), "read_only", true)
	return a, nil
}

func (a *rarArchive) iterate(fn func(name string, r io.Reader) (bool, error)) error {
	rc, err := rardecode.OpenReader(a.path)
	if err != nil {
		return errors.NewIO("open rar", a.path, err)
	}
	defer rc.Close()

	for {
		h, err := rc.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.NewIO("read rar", a.path, err)
		}
		if h.IsDir {
			continue
		}
		name, err := cleanName(h.Name)
		if err != nil {
			a.opts.Logger.Warn("skipping unsafe archive entry", "path", a.path, "entry", h.Name)
			continue
		}
		stop, err := fn(name, rc)
		if err != nil || stop {
			return err
		}
	}
}

func (a *rarArchive) Type() Type     { return TypeRAR }
func (a *rarArchive) Path() string   { return a.path }
func (a *rarArchive) ReadOnly() bool { return true }

func (a *rarArchive) List() ([]string, error) {
	return append([]string(nil), a.order...), nil
}

func (a *rarArchive) Read(name string) ([]byte, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	if !a.entries[name] {
		return nil, errors.NewNotFound("archive entry", name)
	}
	var data []byte
	err = a.iterate(func(n string, r io.Reader) (bool, error) {
		if n != name {
			return false, nil
		}
		var err error
		data, err = readLimited(r, name)
		return true, err
	})
	return data, err
}

func (a *rarArchive) Write(name string, _ []byte) error {
	return errors.NewReadOnly("write "+name, "RAR archives are read-only")
}

func (a *rarArchive) Delete(name string) error {
	return errors.NewReadOnly("delete "+name, "RAR archives are read-only")
}

func (a *rarArchive) LocateACBF() (string, error) {
	return locateACBF(a)
}

func (a *rarArchive) Save() error {
	return errors.NewReadOnly("save "+a.path, "RAR archives are read-only")
}

func (a *rarArchive) SaveAs(path string) error {
	return errors.NewReadOnly("save "+path, "RAR archives are read-only")
}

func (a *rarArchive) Close() error {
	logging.ArchiveEvent(a.opts.Logger, "close", a.path, "rar")
	return nil
}

func (a *rarArchive) Discard() error {
	return a.Close()
}
