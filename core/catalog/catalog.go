// Package catalog keeps a SQLite index of comic book metadata so a library
// of books can be searched without opening every file.
package catalog

import (
	"context"
	"database/sql"
	"encoding/hex"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/acbf/core/acbf"
	"github.com/FocuswithJustin/acbf/core/errors"
	"github.com/FocuswithJustin/acbf/core/sqlite"
	"github.com/FocuswithJustin/acbf/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS books (
	path        TEXT PRIMARY KEY,
	document_id TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	authors     TEXT NOT NULL DEFAULT '',
	genres      TEXT NOT NULL DEFAULT '',
	publisher   TEXT NOT NULL DEFAULT '',
	languages   TEXT NOT NULL DEFAULT '',
	pages       INTEGER NOT NULL DEFAULT 0,
	size        INTEGER NOT NULL DEFAULT 0,
	mod_time    INTEGER NOT NULL DEFAULT 0,
	checksum    TEXT NOT NULL DEFAULT '',
	indexed_at  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS books_title ON books (title);
`

const columns = `path, document_id, title, authors, genres, publisher, languages, pages, size, mod_time, checksum, indexed_at`

// listSep joins multi-valued columns.
const listSep = "; "

// Extensions are the file suffixes IndexDir picks up.
var Extensions = []string{".acbf", ".cbz", ".cb7", ".cbt", ".cbr"}

// Entry is the indexed metadata of one book.
type Entry struct {
	Path       string
	DocumentID string
	Title      string
	Authors    []string
	Genres     []string
	Publisher  string
	Languages  []string
	Pages      int
	Size       int64
	ModTime    time.Time
	Checksum   string // hex BLAKE3 of the file
	IndexedAt  time.Time
}

// Report summarizes an IndexDir run.
type Report struct {
	Indexed []string
	Skipped []string // unchanged since the last run
	Removed []string // rows whose files no longer exist
	Failed  map[string]error
}

// Catalog is an open catalog database.
type Catalog struct {
	db       *sql.DB
	logger   *slog.Logger
	bookOpts []acbf.Option
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger for indexing events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// WithBookOptions sets the options books are opened with while indexing.
func WithBookOptions(opts ...acbf.Option) Option {
	return func(c *Catalog) { c.bookOpts = opts }
}

// Open opens or creates the catalog database at path.
func Open(path string, opts ...Option) (*Catalog, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "catalog: create schema in %s", path)
	}
	c := &Catalog{db: db, logger: logging.GetLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Index opens the book at path read-only and records its metadata,
// replacing any previous row for the same file.
func (c *Catalog) Index(ctx context.Context, path string) (*Entry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewIO("resolve", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound(abs)
		}
		return nil, errors.NewIO("stat", abs, err)
	}

	e, err := c.read(abs)
	if err != nil {
		return nil, err
	}
	e.Size = info.Size()
	e.ModTime = info.ModTime().UTC()
	if e.Checksum, err = fileChecksum(abs); err != nil {
		return nil, err
	}
	e.IndexedAt = time.Now().UTC().Truncate(time.Second)

	if err := c.put(ctx, e); err != nil {
		return nil, err
	}
	c.logger.Debug("book indexed", "path", abs, "title", e.Title, "pages", e.Pages)
	return e, nil
}

func (c *Catalog) read(path string) (*Entry, error) {
	b, err := acbf.Open(path, acbf.ModeRead, c.bookOpts...)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	bi := b.BookInfo()
	e := &Entry{
		Path:       path,
		DocumentID: b.DocumentInfo().ID(),
		Title:      bi.Title(acbf.NoLang),
		Publisher:  b.PublishInfo().Publisher(),
		Pages:      b.Body().Len(),
	}
	for _, a := range bi.Authors() {
		e.Authors = append(e.Authors, a.String())
	}
	for name := range bi.Genres() {
		e.Genres = append(e.Genres, name)
	}
	slices.Sort(e.Genres)
	for _, l := range bi.Languages() {
		e.Languages = append(e.Languages, l.Lang)
	}
	return e, nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.NewIO("open", path, err)
	}
	defer f.Close()
	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.NewIO("read", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (c *Catalog) put(ctx context.Context, e *Entry) error {
	_, err := c.db.ExecContext(ctx, `
INSERT INTO books (`+columns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (path) DO UPDATE SET
	document_id = excluded.document_id,
	title       = excluded.title,
	authors     = excluded.authors,
	genres      = excluded.genres,
	publisher   = excluded.publisher,
	languages   = excluded.languages,
	pages       = excluded.pages,
	size        = excluded.size,
	mod_time    = excluded.mod_time,
	checksum    = excluded.checksum,
	indexed_at  = excluded.indexed_at`,
		e.Path, e.DocumentID, e.Title,
		strings.Join(e.Authors, listSep), strings.Join(e.Genres, listSep),
		e.Publisher, strings.Join(e.Languages, listSep),
		e.Pages, e.Size, e.ModTime.UnixNano(), e.Checksum,
		e.IndexedAt.Format(time.RFC3339),
	)
	return errors.Wrapf(err, "catalog: store %s", e.Path)
}

// IndexDir indexes every book below dir. Files whose size and
// modification time match their row are skipped, and rows of vanished
// files below dir are dropped. Per-file failures are collected in the
// report; only database errors abort the walk.
func (c *Catalog) IndexDir(ctx context.Context, dir string) (*Report, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.NewIO("resolve", dir, err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, errors.FileNotFound(root)
	}
	r := &Report{Failed: make(map[string]error)}
	seen := make(map[string]bool)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			r.Failed[path] = err
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !slices.Contains(Extensions, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		seen[path] = true

		unchanged, err := c.unchanged(ctx, path, d)
		if err != nil {
			return err
		}
		if unchanged {
			r.Skipped = append(r.Skipped, path)
			return nil
		}
		if _, err := c.Index(ctx, path); err != nil {
			c.logger.Warn("index failed", "path", path, "error", err)
			r.Failed[path] = err
			return nil
		}
		r.Indexed = append(r.Indexed, path)
		return nil
	})
	if err != nil {
		return r, err
	}

	stale, err := c.pathsUnder(ctx, root)
	if err != nil {
		return r, err
	}
	for _, path := range stale {
		if seen[path] {
			continue
		}
		if err := c.Remove(ctx, path); err != nil {
			return r, err
		}
		r.Removed = append(r.Removed, path)
	}
	c.logger.Info("directory indexed", "dir", root,
		"indexed", len(r.Indexed), "skipped", len(r.Skipped), "removed", len(r.Removed), "failed", len(r.Failed))
	return r, nil
}

func (c *Catalog) unchanged(ctx context.Context, path string, d fs.DirEntry) (bool, error) {
	info, err := d.Info()
	if err != nil {
		return false, nil
	}
	var size, mod int64
	err = c.db.QueryRowContext(ctx, `SELECT size, mod_time FROM books WHERE path = ?`, path).Scan(&size, &mod)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "catalog: look up %s", path)
	}
	return size == info.Size() && mod == info.ModTime().UTC().UnixNano(), nil
}

func (c *Catalog) pathsUnder(ctx context.Context, root string) ([]string, error) {
	prefix := strings.TrimSuffix(root, string(filepath.Separator)) + string(filepath.Separator)
	rows, err := c.db.QueryContext(ctx, `SELECT path FROM books WHERE substr(path, 1, ?) = ?`, len(prefix), prefix)
	if err != nil {
		return nil, errors.Wrap(err, "catalog: list paths")
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, errors.Wrap(err, "catalog: list paths")
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Get returns the row of the book at path.
func (c *Catalog) Get(ctx context.Context, path string) (*Entry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewIO("resolve", path, err)
	}
	row := c.db.QueryRowContext(ctx, `SELECT `+columns+` FROM books WHERE path = ?`, abs)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("catalog entry", abs)
	}
	return e, err
}

// Remove drops the row of the book at path.
func (c *Catalog) Remove(ctx context.Context, path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return errors.NewIO("resolve", path, err)
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM books WHERE path = ?`, path)
	if err != nil {
		return errors.Wrapf(err, "catalog: remove %s", path)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFound("catalog entry", path)
	}
	return nil
}

// Search returns the books whose title, authors or genres contain term,
// ignoring case, ordered by title. An empty term matches every book.
func (c *Catalog) Search(ctx context.Context, term string) ([]*Entry, error) {
	like := "%" + escapeLike(strings.TrimSpace(term)) + "%"
	rows, err := c.db.QueryContext(ctx, `
SELECT `+columns+` FROM books
WHERE title LIKE ?1 ESCAPE '\' OR authors LIKE ?1 ESCAPE '\' OR genres LIKE ?1 ESCAPE '\'
ORDER BY title, path`, like)
	if err != nil {
		return nil, errors.Wrap(err, "catalog: search")
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e                          Entry
		authors, genres, languages string
		mod                        int64
		indexed                    string
	)
	err := s.Scan(&e.Path, &e.DocumentID, &e.Title, &authors, &genres, &e.Publisher,
		&languages, &e.Pages, &e.Size, &mod, &e.Checksum, &indexed)
	if err != nil {
		return nil, err
	}
	e.Authors = splitList(authors)
	e.Genres = splitList(genres)
	e.Languages = splitList(languages)
	e.ModTime = time.Unix(0, mod).UTC()
	e.IndexedAt, _ = time.Parse(time.RFC3339, indexed)
	return &e, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSep)
}
