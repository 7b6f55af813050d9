package acbf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/FocuswithJustin/acbf/core/archive"
	"github.com/FocuswithJustin/acbf/core/errors"
	"github.com/FocuswithJustin/acbf/core/imageref"
)

// resolveImage fetches the bytes behind an image reference.
func (b *Book) resolveImage(ref string) (*BookData, error) {
	r, err := imageref.Parse(ref, b.Archived())
	if err != nil {
		return nil, errors.NewImageRef(ref, r.Type.String(), err)
	}

	var raw []byte
	switch r.Type {
	case imageref.Embedded:
		bd, err := b.data.Get(r.ID)
		if err != nil {
			return nil, errors.NewImageRef(ref, r.Type.String(), err)
		}
		b.logger.Debug("image resolved", "ref", ref, "type", r.Type.String(), "bytes", bd.Len())
		return bd, nil
	case imageref.Archived:
		raw, err = b.cached(b.localPath(r.Archive)+"!"+r.Path, func() ([]byte, error) { return b.readArchived(r) })
	case imageref.URL:
		raw, err = b.cached(r.Path, func() ([]byte, error) { return b.fetch(r.Path) })
	case imageref.Local:
		raw, err = os.ReadFile(b.localPath(r.Path))
	case imageref.SelfArchived:
		if b.arc == nil {
			err = errors.ErrClosed
		} else {
			raw, err = b.arc.Read(r.Path)
		}
	default:
		err = fmt.Errorf("unsupported reference type")
	}
	if err != nil {
		return nil, errors.NewImageRef(ref, r.Type.String(), err)
	}

	name := r.Filename()
	b.logger.Debug("image resolved", "ref", ref, "type", r.Type.String(), "bytes", len(raw))
	return &BookData{ID: name, ContentType: contentType(name, raw), Data: raw}, nil
}

// cached returns the bytes under key in the image cache, loading and
// storing them on a miss.
func (b *Book) cached(key string, load func() ([]byte, error)) ([]byte, error) {
	c := b.opts.ImageCache
	if c == nil {
		return load()
	}
	if raw, ok := c.Get(key); ok {
		b.logger.Debug("image cache hit", "key", key)
		return raw, nil
	}
	raw, err := load()
	if err != nil {
		return nil, err
	}
	c.Put(key, raw)
	return raw, nil
}

func (b *Book) localPath(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.dir(), p)
}

// readArchived reads an entry of another container, located relative to
// the book's directory.
func (b *Book) readArchived(r imageref.Ref) ([]byte, error) {
	arc, err := archive.Open(b.localPath(r.Archive), true, b.opts.archiveOptions())
	if err != nil {
		return nil, err
	}
	defer arc.Close()
	return arc.Read(r.Path)
}

// fetch downloads url. Any non-2xx status is an error; nothing is retried.
func (b *Book) fetch(url string) ([]byte, error) {
	resp, err := b.opts.HTTPClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, archive.MaxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > archive.MaxEntrySize {
		return nil, fmt.Errorf("GET %s: response exceeds %d bytes", url, archive.MaxEntrySize)
	}
	return raw, nil
}
