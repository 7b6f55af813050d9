package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"time"

	"github.com/ulikunitz/xz"
)

// TarWriter wraps a tar.Writer with the compression layer of the container.
type TarWriter struct {
	*tar.Writer
	compressor io.Closer
}

// NewTarWriter writes a TAR container with compression c to w.
func NewTarWriter(w io.Writer, c Compression) (*TarWriter, error) {
	var out io.Writer = w
	var compressor io.Closer

	switch c {
	case CompressionXZ:
		xzw, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("xz writer: %w", err)
		}
		out, compressor = xzw, xzw
	case CompressionGzip:
		gzw := gzip.NewWriter(w)
		out, compressor = gzw, gzw
	}
	return &TarWriter{Writer: tar.NewWriter(out), compressor: compressor}, nil
}

// WriteFile adds a regular file entry.
func (w *TarWriter) WriteFile(name string, data []byte, modTime time.Time) error {
	header := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(data)),
		ModTime:  modTime,
		Typeflag: tar.TypeReg,
	}
	if err := w.WriteHeader(header); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Close finishes the tar stream and the compression layer.
func (w *TarWriter) Close() error {
	if err := w.Writer.Close(); err != nil {
		return err
	}
	if w.compressor != nil {
		return w.compressor.Close()
	}
	return nil
}
