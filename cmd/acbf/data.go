package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/FocuswithJustin/acbf/core/acbf"
	"github.com/FocuswithJustin/acbf/core/errors"
	"github.com/FocuswithJustin/acbf/internal/validation"
)

// DataListCmd lists embedded binaries and archive entries.
type DataListCmd struct {
	Book string `arg:"" help:"Path to book" type:"existingfile"`
}

func (c *DataListCmd) Run(g *Globals) error {
	b, err := openBook(c.Book, acbf.ModeRead)
	if err != nil {
		return err
	}
	defer b.Close()

	for _, id := range b.Data().List() {
		d, err := b.Data().Get(id)
		if err != nil {
			g.printf("embedded  %-30s error: %v\n", id, err)
			continue
		}
		g.printf("embedded  %-30s %-12s %8d  %s\n", id, d.ContentType, d.Len(), d.Checksum()[:16])
	}
	arc := b.Archive()
	if arc == nil {
		return nil
	}
	names, err := arc.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		data, err := arc.Read(name)
		if err != nil {
			return err
		}
		d := acbf.BookData{ID: name, Data: data}
		g.printf("archived  %-30s %8d  %s\n", name, d.Len(), d.Checksum()[:16])
	}
	return nil
}

// readData returns an embedded binary, or an archive entry of the same name.
func readData(b *acbf.Book, id string) ([]byte, error) {
	d, err := b.Data().Get(id)
	if err == nil {
		return d.Data, nil
	}
	if arc := b.Archive(); arc != nil && errors.Is(err, errors.ErrEntryNotFound) {
		return arc.Read(id)
	}
	return nil, err
}

// DataExtractCmd writes one binary to a file.
type DataExtractCmd struct {
	Book string `arg:"" help:"Path to book" type:"existingfile"`
	ID   string `arg:"" help:"Binary id or archive entry name"`
	Out  string `help:"Output path (default: the id's base name)" type:"path"`
}

func (c *DataExtractCmd) Run(g *Globals) error {
	b, err := openBook(c.Book, acbf.ModeRead)
	if err != nil {
		return err
	}
	defer b.Close()

	data, err := readData(b, c.ID)
	if err != nil {
		return err
	}
	out := c.Out
	if out == "" {
		out = filepath.Base(c.ID)
	}
	if err := validation.ValidatePath(out); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	g.printf("Extracted %s (%d bytes) to %s\n", c.ID, len(data), out)
	return nil
}

// DataAddCmd adds a file to a book.
type DataAddCmd struct {
	Book  string `arg:"" help:"Path to book" type:"existingfile"`
	File  string `arg:"" help:"File to add" type:"existingfile"`
	ID    string `help:"Binary id (default: the file's base name)"`
	Embed bool   `help:"Embed as a <binary> even when the book is archived"`
}

func (c *DataAddCmd) Run(g *Globals) error {
	b, err := openBook(c.Book, acbf.ModeAppend)
	if err != nil {
		return err
	}
	d, err := b.Data().Add(c.File, c.ID, c.Embed)
	if err != nil {
		b.Close()
		return err
	}
	if err := b.Close(); err != nil {
		return err
	}
	where := "archive"
	if d.Embedded {
		where = "binary"
	}
	g.printf("Added %s as %s %s (%s, %d bytes)\n", c.File, where, d.ID, d.ContentType, d.Len())
	return nil
}

// StylesListCmd lists stylesheets.
type StylesListCmd struct {
	Book string `arg:"" help:"Path to book" type:"existingfile"`
}

func (c *StylesListCmd) Run(g *Globals) error {
	b, err := openBook(c.Book, acbf.ModeRead)
	if err != nil {
		return err
	}
	defer b.Close()

	for _, name := range b.Styles().List() {
		css, err := b.Styles().Get(name)
		if err != nil {
			g.printf("%-30s error: %v\n", name, err)
			continue
		}
		if name == acbf.InlineStyle {
			name = "(inline)"
		}
		g.printf("%-30s %6d bytes\n", name, len(css))
	}
	return nil
}

// CoverCmd exports the cover image, optionally scaled to a width.
type CoverCmd struct {
	Book  string `arg:"" help:"Path to book" type:"existingfile"`
	Out   string `required:"" help:"Output image path; the extension selects the format when scaling" type:"path"`
	Width int    `help:"Scale to this width, keeping the aspect ratio"`
}

func (c *CoverCmd) Run(g *Globals) error {
	if c.Width < 0 {
		return errors.NewValue("width", "must not be negative")
	}
	b, err := openBook(c.Book, acbf.ModeRead)
	if err != nil {
		return err
	}
	defer b.Close()

	img, err := b.BookInfo().CoverPage().Image()
	if err != nil {
		return err
	}
	if c.Width == 0 {
		if err := os.WriteFile(c.Out, img.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", c.Out, err)
		}
		g.printf("Cover %s written to %s\n", img.ID, c.Out)
		return nil
	}

	src, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode cover %s: %w", img.ID, err)
	}
	thumb := imaging.Resize(src, c.Width, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, c.Out); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.Out, err)
	}
	g.printf("Cover %s scaled to %dx%d and written to %s\n", img.ID, thumb.Bounds().Dx(), thumb.Bounds().Dy(), c.Out)
	return nil
}
