// Package archive provides uniform read/write access to comic book
// containers: ZIP (.cbz), 7Z (.cb7), TAR (.cbt, optionally gzip or xz
// compressed) and RAR (.cbr, read-only).
//
// Containers are recognized by magic bytes, never by extension. Writes are
// staged and only reach the file on Save (or Close), which rewrites the
// container atomically.
package archive

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/acbf/core/errors"
	"github.com/FocuswithJustin/acbf/internal/logging"
	"github.com/FocuswithJustin/acbf/internal/validation"
)

// Type is a container format.
type Type int

// Container formats.
const (
	TypeUnknown Type = iota
	TypeZIP
	Type7Z
	TypeTAR
	TypeRAR
)

func (t Type) String() string {
	switch t {
	case TypeZIP:
		return "zip"
	case Type7Z:
		return "7z"
	case TypeTAR:
		return "tar"
	case TypeRAR:
		return "rar"
	}
	return "unknown"
}

// Compression is the stream compression wrapped around a TAR container.
type Compression int

// TAR compressions.
const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionXZ
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionXZ:
		return "xz"
	}
	return "none"
}

// MaxEntrySize bounds the bytes read from a single entry.
const MaxEntrySize = validation.MaxEntrySize

// Archive is an open container.
type Archive interface {
	// Type returns the container format.
	Type() Type
	// Path returns the container's file path.
	Path() string
	// ReadOnly reports whether writes are rejected.
	ReadOnly() bool
	// List returns the regular file entries in listing order.
	List() ([]string, error)
	// Read returns the bytes of an entry.
	Read(name string) ([]byte, error)
	// Write adds or replaces an entry.
	Write(name string, data []byte) error
	// Delete removes an entry.
	Delete(name string) error
	// LocateACBF returns the top-level .acbf entry.
	LocateACBF() (string, error)
	// Save flushes staged changes to Path.
	Save() error
	// SaveAs writes the container, including staged changes, to path.
	SaveAs(path string) error
	// Close flushes pending writes of a writable archive and releases it.
	Close() error
	// Discard drops pending writes and releases the archive. A container
	// that was created and never saved is not written at all.
	Discard() error
}

// Options configures archive handling.
type Options struct {
	Logger       *slog.Logger
	TempDir      string // parent of 7Z extraction directories
	SevenZipPath string // 7z executable used to repack; looked up on PATH when empty
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logging.GetLogger()
	}
	return o
}

var (
	magicZIP      = []byte("PK\x03\x04")
	magicZIPEmpty = []byte("PK\x05\x06")
	magic7Z       = []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}
	magicRAR      = []byte("Rar!\x1A\x07")
	magicGzip     = []byte{0x1F, 0x8B}
	magicXZ       = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
	magicUstar    = []byte("ustar")
)

const ustarOffset = 257

// sniffLen is the number of leading bytes needed to recognize every format.
const sniffLen = 512

// DetectBytes recognizes the container format from leading bytes.
func DetectBytes(header []byte) Type {
	t, _ := sniff(header)
	return t
}

func sniff(b []byte) (Type, Compression) {
	switch {
	case hasPrefix(b, magicZIP), hasPrefix(b, magicZIPEmpty):
		return TypeZIP, CompressionNone
	case hasPrefix(b, magic7Z):
		return Type7Z, CompressionNone
	case hasPrefix(b, magicRAR):
		return TypeRAR, CompressionNone
	case hasPrefix(b, magicGzip):
		return TypeTAR, CompressionGzip
	case hasPrefix(b, magicXZ):
		return TypeTAR, CompressionXZ
	case len(b) >= ustarOffset+len(magicUstar) && hasPrefix(b[ustarOffset:], magicUstar):
		return TypeTAR, CompressionNone
	}
	return TypeUnknown, CompressionNone
}

func hasPrefix(b, prefix []byte) bool {
	return len(b) >= len(prefix) && string(b[:len(prefix)]) == string(prefix)
}

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound(path)
		}
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errors.NewIO("read", path, err)
	}
	return buf[:n], nil
}

// Detect recognizes the container format of the file at path.
func Detect(path string) (Type, error) {
	header, err := readHeader(path)
	if err != nil {
		return TypeUnknown, err
	}
	t, _ := sniff(header)
	if t == TypeUnknown {
		return TypeUnknown, errors.NewUnsupportedArchive(path)
	}
	return t, nil
}

// Open opens the container at path. RAR containers are always read-only.
func Open(path string, readOnly bool, opts Options) (Archive, error) {
	header, err := readHeader(path)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	t, c := sniff(header)
	switch t {
	case TypeZIP:
		return openZip(path, readOnly, opts)
	case TypeTAR:
		return openTar(path, c, readOnly, opts)
	case Type7Z:
		return openSevenZip(path, readOnly, opts)
	case TypeRAR:
		return openRar(path, opts)
	}
	return nil, errors.NewUnsupportedArchive(path)
}

// Create starts a new, empty container of type t. Nothing is written to
// path until Save or Close.
func Create(path string, t Type, opts Options) (Archive, error) {
	opts = opts.withDefaults()
	switch t {
	case TypeZIP:
		return newZip(path, opts), nil
	case TypeTAR:
		return newTar(path, CompressionForExtension(path), opts), nil
	case Type7Z:
		return newSevenZip(path, opts)
	case TypeRAR:
		return nil, errors.NewReadOnly("create "+path, "RAR archives cannot be written")
	}
	return nil, errors.NewUnsupported("archive type "+t.String(), "cannot create "+path)
}

// TypeForExtension maps a file extension to the container format it
// conventionally holds. Standalone books map to TypeUnknown.
func TypeForExtension(path string) Type {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbz", ".zip":
		return TypeZIP
	case ".cb7", ".7z":
		return Type7Z
	case ".cbt", ".tar", ".gz", ".tgz", ".xz", ".txz":
		return TypeTAR
	case ".cbr", ".rar":
		return TypeRAR
	}
	return TypeUnknown
}

// CompressionForExtension returns the TAR compression implied by path.
func CompressionForExtension(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".tgz":
		return CompressionGzip
	case ".xz", ".txz":
		return CompressionXZ
	}
	return CompressionNone
}

// locateACBF returns the first top-level entry with the .acbf suffix.
func locateACBF(a Archive) (string, error) {
	names, err := a.List()
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if validation.IsTopLevel(name) && strings.HasSuffix(name, ".acbf") {
			return name, nil
		}
	}
	return "", errors.NewNotFound("ACBF entry", a.Path())
}

// cleanName sanitizes an entry name or reports it as not found.
func cleanName(name string) (string, error) {
	clean, err := validation.CleanEntryName(name)
	if err != nil {
		return "", &errors.NotFoundError{Resource: "archive entry", ID: name, Err: err}
	}
	return clean, nil
}

// readLimited reads r, failing when the entry exceeds MaxEntrySize.
func readLimited(r io.Reader, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxEntrySize+1))
	if err != nil {
		return nil, errors.NewIO("read entry", name, err)
	}
	if int64(len(data)) > MaxEntrySize {
		return nil, errors.NewValuef("entry size", "%s exceeds %d bytes", name, int64(MaxEntrySize))
	}
	return data, nil
}

// writeAtomically writes a sibling temp file with fn and renames it over path.
func writeAtomically(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return errors.NewIO("create temp file in", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := fn(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.NewIO("write", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return errors.NewIO("chmod", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.NewIO("replace", path, err)
	}
	return nil
}

func readOnlyError(op, path string) error {
	return errors.NewReadOnly(op+" "+path, "archive is opened read-only")
}
