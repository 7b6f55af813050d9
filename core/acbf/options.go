package acbf

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/FocuswithJustin/acbf/core/archive"
	"github.com/FocuswithJustin/acbf/core/cache"
	"github.com/FocuswithJustin/acbf/internal/logging"
)

// Options configures how a book is opened and how its references resolve.
type Options struct {
	Logger       *slog.Logger
	HTTPClient   *http.Client      // used for URL image references
	ArchiveType  archive.Type      // container for new books; derived from the extension when unknown
	TempDir      string            // parent of 7Z extraction directories
	SevenZipPath string            // 7z executable used to repack 7Z books
	ImageCache   *cache.ImageCache // shared cache of URL and Archived image bytes; nil disables
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Logger:     logging.GetLogger(),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithLogger sets the logger for warnings and archive events.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithHTTPClient sets the client used to fetch URL image references.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.HTTPClient = c }
}

// WithArchiveType forces the container type of a book created with mode w or x.
func WithArchiveType(t archive.Type) Option {
	return func(o *Options) { o.ArchiveType = t }
}

// WithTempDir sets the directory 7Z books are extracted under.
func WithTempDir(dir string) Option {
	return func(o *Options) { o.TempDir = dir }
}

// WithImageCache shares c between books for URL and Archived references.
func WithImageCache(c *cache.ImageCache) Option {
	return func(o *Options) { o.ImageCache = c }
}

// WithSevenZipPath sets the 7z executable used to write 7Z books.
func WithSevenZipPath(path string) Option {
	return func(o *Options) { o.SevenZipPath = path }
}

func (o Options) archiveOptions() archive.Options {
	return archive.Options{
		Logger:       o.Logger,
		TempDir:      o.TempDir,
		SevenZipPath: o.SevenZipPath,
	}
}
