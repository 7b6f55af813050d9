package acbf

import (
	"encoding/base64"
	"encoding/hex"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/gabriel-vasile/mimetype"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/acbf/core/errors"
)

// BookData is a resolved binary: an embedded <binary>, an archive entry or
// a fetched image.
type BookData struct {
	ID          string
	ContentType string
	Data        []byte
	Embedded    bool
}

// Checksum returns the hex BLAKE3 digest of the data.
func (d *BookData) Checksum() string {
	sum := blake3.Sum256(d.Data)
	return hex.EncodeToString(sum[:])
}

// Len returns the size of the data in bytes.
func (d *BookData) Len() int { return len(d.Data) }

// contentType sniffs data, falling back to the extension of name.
func contentType(name string, data []byte) string {
	m := mimetype.Detect(data)
	if !m.Is("application/octet-stream") && !m.Is("text/plain") {
		ct, _, _ := strings.Cut(m.String(), ";")
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		ct, _, _ = strings.Cut(ct, ";")
		return ct
	}
	ct, _, _ := strings.Cut(m.String(), ";")
	return ct
}

// Data is the store of <binary> elements. Values are decoded on first
// access and cached.
type Data struct {
	book  *Book
	cache map[string]*BookData
}

func (d *Data) el() *etree.Element {
	return d.book.lookup("data")
}

func (d *Data) binary(id string) *etree.Element {
	for _, e := range d.book.all(d.el(), "binary") {
		if attrOf(e, "id") == id {
			return e
		}
	}
	return nil
}

// List returns the binary ids in document order.
func (d *Data) List() []string {
	var ids []string
	for _, e := range d.book.all(d.el(), "binary") {
		ids = append(ids, attrOf(e, "id"))
	}
	return ids
}

// Len returns the number of binaries.
func (d *Data) Len() int {
	return len(d.book.all(d.el(), "binary"))
}

// Get returns the binary with the given id.
func (d *Data) Get(id string) (*BookData, error) {
	if bd, ok := d.cache[id]; ok {
		return bd, nil
	}
	el := d.binary(id)
	if el == nil {
		return nil, errors.NewNotFound("binary", id)
	}
	raw, err := base64.StdEncoding.DecodeString(stripSpace(el.Text()))
	if err != nil {
		return nil, errors.NewValuef("binary "+id, "invalid base64: %v", err)
	}
	bd := &BookData{ID: id, ContentType: attrOf(el, "content-type"), Data: raw, Embedded: true}
	if bd.ContentType == "" {
		bd.ContentType = contentType(id, raw)
	}
	d.cache[id] = bd
	return bd, nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}

// Add reads the file at path and stores it under id, or under the file's
// base name when id is empty. With embed, or when the book is standalone,
// the file becomes a <binary>; otherwise it is written into the archive.
func (d *Data) Add(path, id string, embed bool) (*BookData, error) {
	if err := d.book.checkWritable("add data"); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound(path)
		}
		return nil, errors.NewIO("read", path, err)
	}
	if id == "" {
		id = filepath.Base(path)
	}
	return d.AddBytes(id, raw, embed)
}

// AddBytes stores raw under id, following the same rules as Add.
func (d *Data) AddBytes(id string, raw []byte, embed bool) (*BookData, error) {
	if err := d.book.checkWritable("add data"); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errors.NewValue("data id", "must not be empty")
	}
	bd := &BookData{ID: id, ContentType: contentType(id, raw), Data: raw}

	if embed || d.book.arc == nil {
		el := d.binary(id)
		if el == nil {
			el = d.book.newElement("binary")
			el.CreateAttr("id", id)
			d.book.appendSibling(d.book.ensurePath("data"), pathData, el)
		}
		el.CreateAttr("content-type", bd.ContentType)
		setText(el, base64.StdEncoding.EncodeToString(raw))
		bd.Embedded = true
		d.cache[id] = bd
	} else if err := d.book.arc.Write(id, raw); err != nil {
		return nil, err
	}
	d.book.logger.Debug("data added", "id", id, "content_type", bd.ContentType, "embedded", bd.Embedded, "bytes", len(raw))
	return bd, nil
}

// Remove deletes the binary id when embed is set or the book is
// standalone, and the archive entry id otherwise.
func (d *Data) Remove(id string, embed bool) error {
	if err := d.book.checkWritable("remove data"); err != nil {
		return err
	}
	if !embed && d.book.arc != nil {
		return d.book.arc.Delete(id)
	}
	el := d.binary(id)
	if el == nil {
		return errors.NewNotFound("binary", id)
	}
	parent := el.Parent()
	parent.RemoveChild(el)
	removeIfEmpty(parent)
	delete(d.cache, id)
	return nil
}
