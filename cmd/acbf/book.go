package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/FocuswithJustin/acbf/core/acbf"
	"github.com/FocuswithJustin/acbf/core/errors"
	"github.com/FocuswithJustin/acbf/internal/validation"
)

func openBook(path string, mode acbf.Mode) (*acbf.Book, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("invalid book path: %w", err)
	}
	return acbf.Open(path, mode)
}

// bookSummary is the info printed for a book.
type bookSummary struct {
	Path       string            `json:"path"`
	Version    string            `json:"version"`
	Container  string            `json:"container"`
	Titles     map[string]string `json:"titles"`
	Authors    []string          `json:"authors"`
	Genres     []string          `json:"genres"`
	Languages  []string          `json:"languages"`
	Publisher  string            `json:"publisher,omitempty"`
	Published  string            `json:"published,omitempty"`
	DocumentID string            `json:"document_id"`
	Pages      int               `json:"pages"`
	Binaries   int               `json:"binaries"`
	Styles     []string          `json:"styles"`
}

func summarize(b *acbf.Book) bookSummary {
	bi := b.BookInfo()
	s := bookSummary{
		Path:       b.Path(),
		Version:    string(b.Version()),
		Container:  "standalone",
		Titles:     bi.Titles(),
		Publisher:  b.PublishInfo().Publisher(),
		Published:  b.PublishInfo().PublishDate().String(),
		DocumentID: b.DocumentInfo().ID(),
		Pages:      b.Body().Len(),
		Binaries:   b.Data().Len(),
		Styles:     b.Styles().List(),
	}
	if arc := b.Archive(); arc != nil {
		s.Container = arc.Type().String()
	}
	for _, a := range bi.Authors() {
		name := a.String()
		if act := a.Activity(); act != "" {
			name += " [" + string(act) + "]"
		}
		s.Authors = append(s.Authors, name)
	}
	for name := range bi.Genres() {
		s.Genres = append(s.Genres, name)
	}
	slices.Sort(s.Genres)
	for _, l := range bi.Languages() {
		s.Languages = append(s.Languages, l.Lang)
	}
	return s
}

// InfoCmd shows book metadata.
type InfoCmd struct {
	Book string `arg:"" help:"Path to book" type:"existingfile"`
	JSON bool   `help:"Print JSON"`
}

func (c *InfoCmd) Run(g *Globals) error {
	b, err := openBook(c.Book, acbf.ModeRead)
	if err != nil {
		return err
	}
	defer b.Close()

	s := summarize(b)
	if c.JSON {
		enc := json.NewEncoder(g.Out())
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	g.printf("Path:        %s\n", s.Path)
	g.printf("Version:     ACBF %s (%s)\n", s.Version, s.Container)
	langs := make([]string, 0, len(s.Titles))
	for lang := range s.Titles {
		langs = append(langs, lang)
	}
	slices.Sort(langs)
	for _, lang := range langs {
		g.printf("Title [%s]:  %s\n", lang, s.Titles[lang])
	}
	g.printf("Authors:     %s\n", strings.Join(s.Authors, ", "))
	g.printf("Genres:      %s\n", strings.Join(s.Genres, ", "))
	g.printf("Languages:   %s\n", strings.Join(s.Languages, ", "))
	if s.Publisher != "" {
		g.printf("Publisher:   %s\n", s.Publisher)
	}
	if s.Published != "" {
		g.printf("Published:   %s\n", s.Published)
	}
	g.printf("Document ID: %s\n", s.DocumentID)
	g.printf("Pages:       %d\n", s.Pages)
	g.printf("Binaries:    %d\n", s.Binaries)
	g.printf("Styles:      %s\n", strings.Join(s.Styles, ", "))
	return nil
}

// ValidateCmd checks a book against its schema.
type ValidateCmd struct {
	Book string `arg:"" help:"Path to book" type:"existingfile"`
}

func (c *ValidateCmd) Run(g *Globals) error {
	b, err := openBook(c.Book, acbf.ModeRead)
	if err != nil {
		var invalid *errors.InvalidBookError
		if errors.As(err, &invalid) {
			for _, p := range invalid.Problems {
				g.printf("  %s\n", p)
			}
		}
		return err
	}
	defer b.Close()

	result := b.Validate()
	if !result.Valid {
		for _, msg := range result.Messages() {
			g.printf("  %s\n", msg)
		}
		g.printf("%s: ACBF %s, %d problems (read-only)\n", c.Book, b.Version(), len(result.Errors))
		return nil
	}
	g.printf("%s: valid ACBF %s\n", c.Book, b.Version())
	return nil
}

// PagesCmd lists pages.
type PagesCmd struct {
	Book string `arg:"" help:"Path to book" type:"existingfile"`
}

func (c *PagesCmd) Run(g *Globals) error {
	b, err := openBook(c.Book, acbf.ModeRead)
	if err != nil {
		return err
	}
	defer b.Close()

	cover := b.BookInfo().CoverPage()
	g.printf("cover  %-30s %-12s\n", cover.ImageRef(), cover.RefType())
	for i, p := range b.Body().Pages() {
		var layers []string
		for _, l := range p.TextLayers() {
			layers = append(layers, fmt.Sprintf("%s:%d", l.Lang(), len(l.TextAreas())))
		}
		g.printf("%5d  %-30s %-12s frames=%d jumps=%d layers=%s",
			i, p.ImageRef(), p.RefType(), len(p.Frames()), len(p.Jumps()), strings.Join(layers, ","))
		if title := p.Titles()[acbf.NoLang]; title != "" {
			g.printf(" title=%q", title)
		}
		g.printf("\n")
	}
	return nil
}

// CreateCmd creates a new book.
type CreateCmd struct {
	Book    string   `arg:"" help:"Path of the new book; the extension selects the container" type:"path"`
	Title   string   `required:"" help:"Book title"`
	Lang    string   `help:"Language of the title and text layers"`
	Authors []string `name:"author" help:"Author as 'First Last' or a nickname (repeatable)"`
	Genres  []string `name:"genre" help:"Genre name (repeatable)"`
}

func (c *CreateCmd) Run(g *Globals) error {
	b, err := openBook(c.Book, acbf.ModeCreate)
	if err != nil {
		return err
	}
	if err := c.fill(b); err != nil {
		b.Close()
		return err
	}
	if err := b.Close(); err != nil {
		return err
	}
	g.printf("Created: %s\n", c.Book)
	return nil
}

func (c *CreateCmd) fill(b *acbf.Book) error {
	bi := b.BookInfo()
	if err := bi.SetTitle(c.Title, c.Lang); err != nil {
		return err
	}
	if c.Lang != "" {
		if err := bi.AddLanguage(c.Lang, true); err != nil {
			return err
		}
	}
	for _, name := range c.Authors {
		a, err := parseAuthor(name)
		if err != nil {
			return err
		}
		if err := bi.AddAuthor(a); err != nil {
			return err
		}
	}
	for _, genre := range c.Genres {
		if err := bi.SetGenre(acbf.Genre{Name: genre, Match: acbf.NoMatch}); err != nil {
			return err
		}
	}
	return nil
}

// parseAuthor splits "First [Middle] Last"; a single word is a nickname.
func parseAuthor(name string) (*acbf.Author, error) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return nil, errors.NewValue("author", "must not be empty")
	case 1:
		return acbf.NewAuthorNickname(fields[0])
	}
	a, err := acbf.NewAuthor(fields[0], fields[len(fields)-1])
	if err != nil {
		return nil, err
	}
	if len(fields) > 2 {
		if err := a.SetMiddleName(strings.Join(fields[1:len(fields)-1], " ")); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// SetTitleCmd sets a title.
type SetTitleCmd struct {
	Book  string `arg:"" help:"Path to book" type:"existingfile"`
	Title string `arg:"" help:"New title"`
	Lang  string `help:"Title language; untagged when empty"`
}

func (c *SetTitleCmd) Run(g *Globals) error {
	b, err := openBook(c.Book, acbf.ModeAppend)
	if err != nil {
		return err
	}
	if err := b.BookInfo().SetTitle(c.Title, c.Lang); err != nil {
		b.Close()
		return err
	}
	return b.Close()
}
