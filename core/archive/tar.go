package archive

import (
	"archive/tar"
	"io"
	"time"

	"github.com/FocuswithJustin/acbf/core/errors"
	"github.com/FocuswithJustin/acbf/internal/logging"
)

// tarArchive is a TAR container. Entries are streamed from the file on
// every read; saving rewrites the whole container with its compression.
type tarArchive struct {
	path        string
	compression Compression
	readOnly    bool
	opts        Options
	created     bool
	closed      bool

	entries map[string]bool
	order   []string
	stage   *stage
}

func newTar(path string, c Compression, opts Options) *tarArchive {
	logging.ArchiveEvent(opts.Logger, "create", path, "tar", "compression", c.String())
	return &tarArchive{
		path:        path,
		compression: c,
		opts:        opts,
		created:     true,
		entries:     make(map[string]bool),
		stage:       newStage(),
	}
}

func openTar(path string, c Compression, readOnly bool, opts Options) (*tarArchive, error) {
	a := &tarArchive{path: path, compression: c, readOnly: readOnly, opts: opts, stage: newStage()}
	if err := a.load(); err != nil {
		return nil, err
	}
	logging.ArchiveEvent(opts.Logger, "open", path, "tar", "compression", c.String(), "entries", len(a.order), "read_only", readOnly)
	return a, nil
}

func (a *tarArchive) load() error {
	a.entries = make(map[string]bool)
	a.order = nil
	err := IterateTar(a.path, a.compression, func(h *tar.Header, _ io.Reader) (bool, error) {
		if h.Typeflag != tar.TypeReg {
			return false, nil
		}
		name, err := cleanName(h.Name)
		if err != nil {
			a.opts.Logger.Warn("skipping unsafe archive entry", "path", a.path, "entry", h.Name)
			return false, nil
		}
		if !a.entries[name] {
			a.entries[name] = true
			a.order = append(a.order, name)
		}
		return false, nil
	})
	if err != nil {
		return errors.NewIO("open tar", a.path, err)
	}
	return nil
}

func (a *tarArchive) Type() Type     { return TypeTAR }
func (a *tarArchive) Path() string   { return a.path }
func (a *tarArchive) ReadOnly() bool { return a.readOnly }

func (a *tarArchive) has(name string) bool { return a.entries[name] }

func (a *tarArchive) List() ([]string, error) {
	return a.stage.merge(a.order, a.has), nil
}

func (a *tarArchive) Read(name string) ([]byte, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	if data, ok := a.stage.get(name); ok {
		return data, nil
	}
	if !a.entries[name] || a.stage.isDeleted(name) {
		return nil, errors.NewNotFound("archive entry", name)
	}

	var data []byte
	found := false
	err = IterateTar(a.path, a.compression, func(h *tar.Header, r io.Reader) (bool, error) {
		if h.Typeflag != tar.TypeReg {
			return false, nil
		}
		if clean, err := cleanName(h.Name); err != nil || clean != name {
			return false, nil
		}
		data, err = readLimited(r, name)
		found = true
		return true, err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.NewNotFound("archive entry", name)
	}
	return data, nil
}

func (a *tarArchive) Write(name string, data []byte) error {
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

func (a *tarArchive) Delete(name string) error {
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

func (a *tarArchive) LocateACBF() (string, error) {
	return locateACBF(a)
}

func (a *tarArchive) Save() error {
	if a.readOnly {
		return readOnlyError("save", a.path)
	}
	if !a.created && !a.stage.dirty() {
		return nil
	}
	if err := writeAtomically(a.path, func(w io.Writer) error {
		return a.writeTo(w, a.compression)
	}); err != nil {
		return err
	}
	logging.ArchiveEvent(a.opts.Logger, "flush", a.path, "tar", "staged", len(a.stage.files), "deleted", len(a.stage.deleted))

	a.created = false
	a.stage = newStage()
	return a.load()
}

func (a *tarArchive) SaveAs(path string) error {
	return writeAtomically(path, func(w io.Writer) error {
		return a.writeTo(w, CompressionForExtension(path))
	})
}

func (a *tarArchive) writeTo(w io.Writer, c Compression) error {
	tw, err := NewTarWriter(w, c)
	if err != nil {
		return errors.NewIO("create tar", a.path, err)
	}
	now := time.Now()

	if !a.created {
		written := make(map[string]bool)
		err := IterateTar(a.path, a.compression, func(h *tar.Header, r io.Reader) (bool, error) {
			if h.Typeflag != tar.TypeReg {
				return false, nil
			}
			name, err := cleanName(h.Name)
			if err != nil || written[name] || a.stage.isDeleted(name) {
				return false, nil
			}
			written[name] = true
			if data, ok := a.stage.get(name); ok {
				return false, tw.WriteFile(name, data, now)
			}
			data, err := readLimited(r, name)
			if err != nil {
				return false, err
			}
			return false, tw.WriteFile(name, data, h.ModTime)
		})
		if err != nil {
			return err
		}
	}
	for _, name := range a.stage.added(a.has) {
		data, _ := a.stage.get(name)
		if err := tw.WriteFile(name, data, now); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return errors.NewIO("finish tar", a.path, err)
	}
	return nil
}

func (a *tarArchive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var err error
	if !a.readOnly {
		err = a.Save()
	}
	logging.ArchiveEvent(a.opts.Logger, "close", a.path, "tar")
	return err
}

func (a *tarArchive) Discard() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.stage = newStage()
	logging.ArchiveEvent(a.opts.Logger, "discard", a.path, "tar")
	return nil
}
