// Package acbf reads, edits and writes comic books in the Advanced Comic
// Book Format.
//
// A Book wraps the parsed ACBF document and, for archived books, the
// container holding it. The document tree is the single source of truth:
// every entity returned by a Book (pages, text layers, authors, ...) is a
// view over its XML element, so reads always reflect the tree and every
// mutator updates the tree directly.
//
//	book, err := acbf.Open("comic.cbz", acbf.ModeAppend)
//	if err != nil {
//		return err
//	}
//	defer book.Close()
//
//	if err := book.BookInfo().SetTitle("My Comic", acbf.NoLang); err != nil {
//		return err
//	}
//
// A Book is not safe for concurrent use.
package acbf

import (
	"bytes"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/FocuswithJustin/acbf/core/archive"
	"github.com/FocuswithJustin/acbf/core/errors"
	acbfxml "github.com/FocuswithJustin/acbf/core/xml"
	"github.com/FocuswithJustin/acbf/internal/logging"
)

// Mode selects how a book is opened.
type Mode string

// Open modes.
const (
	// ModeRead opens an existing book read-only.
	ModeRead Mode = "r"
	// ModeWrite creates a book, replacing any existing file.
	ModeWrite Mode = "w"
	// ModeAppend opens an existing book for editing.
	ModeAppend Mode = "a"
	// ModeCreate creates a book; the file must not exist.
	ModeCreate Mode = "x"
)

// ParseMode converts a mode letter.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeRead, ModeWrite, ModeAppend, ModeCreate:
		return m, nil
	}
	return "", errors.NewValuef("mode", "unknown mode %q, want r, w, a or x", s)
}

// Book is an open ACBF comic book.
type Book struct {
	path    string
	mode    Mode
	opts    Options
	logger  *slog.Logger
	doc     *etree.Document
	root    *etree.Element
	ns      string
	prefix  string
	version acbfxml.Version
	schema  *acbfxml.Schema

	arc     archive.Archive
	entry   string // name of the ACBF entry inside arc
	created bool
	closed  bool
	saved   []byte // serialized document as last read or written

	authors map[*etree.Element]*Author
	pages   map[*etree.Element]*Page
	cover   *CoverPage
	data    *Data
}

// Open opens the book at path. Standalone books are plain XML files;
// anything else must be a ZIP, 7Z, TAR or RAR container holding a single
// top-level .acbf entry.
func Open(path string, mode Mode, opts ...Option) (*Book, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = logging.GetLogger()
	}
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	b := &Book{path: path, mode: mode, opts: o, logger: o.Logger}

	var err error
	switch mode {
	case ModeRead, ModeAppend:
		err = b.load()
	case ModeWrite:
		err = b.create()
	case ModeCreate:
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, errors.FileExists(path)
		}
		err = b.create()
	default:
		_, err = ParseMode(string(mode))
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Book) load() error {
	if _, err := os.Stat(b.path); err != nil {
		if os.IsNotExist(err) {
			return errors.FileNotFound(b.path)
		}
		return errors.NewIO("stat", b.path, err)
	}

	data, err := b.readSource()
	if err != nil {
		return err
	}
	if err := b.bind(data); err != nil {
		b.release()
		return err
	}
	if b.version == acbfxml.Version10 && b.mode == ModeAppend {
		b.release()
		return errors.NewReadOnly("open "+b.path+" for editing", "ACBF 1.0 documents are read-only; upgrade the namespace to "+acbfxml.NamespaceACBF11)
	}
	return nil
}

// readSource returns the ACBF XML, opening the container when the file is
// not a standalone document.
func (b *Book) readSource() ([]byte, error) {
	t, err := archive.Detect(b.path)
	if err != nil {
		if !errors.Is(err, errors.ErrUnsupportedArchive) {
			return nil, err
		}
		data, readErr := os.ReadFile(b.path)
		if readErr != nil {
			return nil, errors.NewIO("read", b.path, readErr)
		}
		if !looksLikeXML(data) {
			return nil, err
		}
		return data, nil
	}

	arc, err := archive.Open(b.path, b.mode == ModeRead, b.opts.archiveOptions())
	if err != nil {
		return nil, err
	}
	entry, err := arc.LocateACBF()
	if err != nil {
		arc.Close()
		return nil, errors.NewInvalidBook(b.path, "no top-level .acbf entry in "+t.String()+" archive")
	}
	data, err := arc.Read(entry)
	if err != nil {
		arc.Close()
		return nil, err
	}
	b.arc, b.entry = arc, entry
	return data, nil
}

func looksLikeXML(data []byte) bool {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte("<"))
}

// bind parses and validates data and makes it the book's document.
func (b *Book) bind(data []byte) error {
	doc, err := acbfxml.Parse(data)
	if err != nil {
		return errors.NewInvalidBook(b.path, err.Error())
	}
	ns, version := acbfxml.DocumentVersion(doc)
	if version == acbfxml.VersionUnknown {
		return errors.NewInvalidBook(b.path, "unknown ACBF namespace "+strconv.Quote(ns))
	}
	schema, err := acbfxml.SchemaFor(version)
	if err != nil {
		return err
	}

	result := acbfxml.Validate(data, schema)
	if !result.Valid {
		if version == acbfxml.Version11 {
			return errors.NewInvalidBook(b.path, "schema validation failed", result.Messages()...)
		}
		for _, msg := range result.Messages() {
			logging.SchemaWarning(b.logger, b.path, string(version), msg)
		}
	}
	if version == acbfxml.Version10 {
		b.logger.Warn("ACBF 1.0 document opened read-only",
			"path", b.path,
			"hint", "upgrade the namespace to "+acbfxml.NamespaceACBF11)
	}

	b.doc = doc
	b.root = doc.Root()
	b.ns = ns
	b.prefix = b.root.Space
	b.version = version
	b.schema = schema
	b.authors = make(map[*etree.Element]*Author)
	b.pages = make(map[*etree.Element]*Page)
	b.cover = nil
	b.data = &Data{book: b, cache: make(map[string]*BookData)}
	b.saved = acbfxml.Serialize(doc, acbfxml.FormatOptions{})
	return nil
}

func (b *Book) create() error {
	t := b.opts.ArchiveType
	if t == archive.TypeUnknown {
		t = archive.TypeForExtension(b.path)
	}
	if t != archive.TypeUnknown {
		arc, err := archive.Create(b.path, t, b.opts.archiveOptions())
		if err != nil {
			return err
		}
		b.arc = arc
		b.entry = strings.TrimSuffix(filepath.Base(b.path), filepath.Ext(b.path)) + ".acbf"
	}
	if err := b.bind(newBookXML(time.Now())); err != nil {
		b.release()
		return err
	}
	b.created = true
	return nil
}

// Path returns the book's file path.
func (b *Book) Path() string { return b.path }

// Mode returns the mode the book was opened with.
func (b *Book) Mode() Mode { return b.mode }

// Namespace returns the ACBF namespace URI of the document.
func (b *Book) Namespace() string { return b.ns }

// Version returns the ACBF schema version of the document.
func (b *Book) Version() acbfxml.Version { return b.version }

// Archive returns the container of an archived book, or nil.
func (b *Book) Archive() archive.Archive { return b.arc }

// Archived reports whether the book lives inside a container.
func (b *Book) Archived() bool { return b.arc != nil }

// ReadOnly reports whether mutations are rejected.
func (b *Book) ReadOnly() bool {
	return b.writeBlocker() != ""
}

func (b *Book) writeBlocker() string {
	switch {
	case b.mode == ModeRead:
		return "book is opened in mode r"
	case b.arc != nil && b.arc.ReadOnly():
		return b.arc.Type().String() + " archives are read-only"
	case b.version == acbfxml.Version10:
		return "ACBF 1.0 documents are read-only"
	}
	return ""
}

// checkWritable guards every mutation.
func (b *Book) checkWritable(op string) error {
	if b.closed {
		return errors.ErrClosed
	}
	if reason := b.writeBlocker(); reason != "" {
		return errors.NewReadOnly(op, reason)
	}
	return nil
}

// modified reports whether the document differs from what was last read or
// saved. Rejected edits leave the document untouched and so do not count.
func (b *Book) modified() bool {
	return !bytes.Equal(acbfxml.Serialize(b.doc, acbfxml.FormatOptions{}), b.saved)
}

// dir is the directory relative references resolve against.
func (b *Book) dir() string {
	return filepath.Dir(b.path)
}

// XML returns the serialized document.
func (b *Book) XML() string {
	return string(acbfxml.Serialize(b.doc, acbfxml.FormatOptions{}))
}

// Validate checks the current document against its schema.
func (b *Book) Validate() acbfxml.ValidationResult {
	return acbfxml.Validate(acbfxml.Serialize(b.doc, acbfxml.FormatOptions{}), b.schema)
}

// serialize returns the document, failing when it does not validate.
func (b *Book) serialize() ([]byte, error) {
	data := acbfxml.Serialize(b.doc, acbfxml.FormatOptions{})
	if result := acbfxml.Validate(data, b.schema); !result.Valid {
		return nil, errors.NewInvalidBook(b.path, "document does not validate", result.Messages()...)
	}
	return data, nil
}

// Save validates the document and writes it back to the book's file.
func (b *Book) Save() error {
	if err := b.checkWritable("save " + b.path); err != nil {
		return err
	}
	data, err := b.serialize()
	if err != nil {
		return err
	}
	if b.arc != nil {
		if err := b.arc.Write(b.entry, data); err != nil {
			return err
		}
		if err := b.arc.Save(); err != nil {
			return err
		}
	} else if err := writeFileAtomic(b.path, data); err != nil {
		return err
	}
	b.created = false
	b.saved = data
	b.logger.Debug("book saved", "path", b.path, "bytes", len(data))
	return nil
}

// SaveAs writes the book to path, which must not exist unless overwrite is
// set. The book itself stays bound to its original file.
func (b *Book) SaveAs(path string, overwrite bool) error {
	if err := b.checkWritable("save " + path); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !overwrite {
		return errors.FileExists(path)
	}
	data, err := b.serialize()
	if err != nil {
		return err
	}
	if b.arc == nil {
		return writeFileAtomic(path, data)
	}
	if err := b.arc.Write(b.entry, data); err != nil {
		return err
	}
	return b.arc.SaveAs(path)
}

// Close saves a book opened for writing when it was created or modified,
// then releases the container. Later calls do nothing.
func (b *Book) Close() error {
	if b.closed {
		return nil
	}

	var errs []error
	if b.mode != ModeRead && b.writeBlocker() == "" && (b.created || b.modified()) {
		if err := b.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closed = true
	// A failed save must not flush staged entries without the document.
	if len(errs) > 0 {
		if err := b.discard(); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}
	if err := b.release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (b *Book) release() error {
	if b.arc == nil {
		return nil
	}
	arc := b.arc
	b.arc = nil
	return arc.Close()
}

// discard releases the container without writing staged changes.
func (b *Book) discard() error {
	if b.arc == nil {
		return nil
	}
	arc := b.arc
	b.arc = nil
	return arc.Discard()
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return errors.NewIO("create temp file in", dir, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.NewIO("write", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewIO("write", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.NewIO("chmod", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.NewIO("replace", path, err)
	}
	return nil
}

// BookInfo returns the book-info metadata.
func (b *Book) BookInfo() *BookInfo { return &BookInfo{book: b} }

// PublishInfo returns the publish-info metadata.
func (b *Book) PublishInfo() *PublishInfo { return &PublishInfo{book: b} }

// DocumentInfo returns the document-info metadata.
func (b *Book) DocumentInfo() *DocumentInfo { return &DocumentInfo{book: b} }

// Body returns the page sequence.
func (b *Book) Body() *Body { return &Body{book: b} }

// Data returns the store of embedded binaries.
func (b *Book) Data() *Data { return b.data }

// Styles returns the stylesheet store.
func (b *Book) Styles() *Styles { return &Styles{book: b} }

// References returns the footnote references.
func (b *Book) References() *References { return &References{book: b} }
