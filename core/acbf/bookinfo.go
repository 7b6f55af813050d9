package acbf

import (
	"slices"
	"strings"

	"github.com/beevik/etree"

	"github.com/FocuswithJustin/acbf/core/errors"
)

// BookInfo is the book-info metadata: authors, titles, genres,
// annotations, cover page and the optional catalog fields.
type BookInfo struct {
	book *Book
}

func (bi *BookInfo) el() *etree.Element {
	return bi.book.lookup("meta-data", "book-info")
}

func (bi *BookInfo) ensure() *etree.Element {
	return bi.book.ensurePath("meta-data", "book-info")
}

func (bi *BookInfo) authorList() authorList {
	return authorList{book: bi.book, path: pathBookInfo}
}

// Authors returns the book's authors in document order.
func (bi *BookInfo) Authors() []*Author { return bi.authorList().list() }

// AddAuthor appends an unbound author and binds it to the book.
func (bi *BookInfo) AddAuthor(a *Author) error {
	return bi.authorList().insert(len(bi.Authors()), a)
}

// InsertAuthor inserts an unbound author at index i.
func (bi *BookInfo) InsertAuthor(i int, a *Author) error { return bi.authorList().insert(i, a) }

// RemoveAuthor removes the author at index i. The removed Author keeps its
// fields and becomes unbound.
func (bi *BookInfo) RemoveAuthor(i int) error { return bi.authorList().remove(i) }

// Titles returns the book titles by language key.
func (bi *BookInfo) Titles() map[string]string {
	return bi.book.langTexts(bi.el(), "book-title")
}

// Title returns the title for lang, falling back to the untagged title.
func (bi *BookInfo) Title(lang string) string {
	titles := bi.Titles()
	if key, err := CanonicalLang(lang); err == nil {
		if t, ok := titles[key]; ok {
			return t
		}
	}
	if t, ok := titles[NoLang]; ok {
		return t
	}
	for _, e := range bi.book.all(bi.el(), "book-title") {
		return textOf(e)
	}
	return ""
}

// SetTitle sets the title for lang (NoLang for untagged).
func (bi *BookInfo) SetTitle(title, lang string) error {
	if err := bi.book.checkWritable("set title"); err != nil {
		return err
	}
	return bi.book.setLangText(bi.ensure(), pathBookInfo, "book-title", lang, title)
}

// RemoveTitle removes the title for lang. The last title cannot be removed.
func (bi *BookInfo) RemoveTitle(lang string) error {
	if err := bi.book.checkWritable("remove title"); err != nil {
		return err
	}
	key, err := CanonicalLang(lang)
	if err != nil {
		return err
	}
	el := bi.book.findByLang(bi.el(), "book-title", key)
	if el == nil {
		return errors.NewNotFound("book title", key)
	}
	if len(bi.book.all(bi.el(), "book-title")) == 1 {
		return errors.NewValue("book title", "a book needs at least one title")
	}
	el.Parent().RemoveChild(el)
	return nil
}

// Genres returns the book's genres by name.
func (bi *BookInfo) Genres() map[string]Genre {
	out := make(map[string]Genre)
	for _, e := range bi.book.all(bi.el(), "genre") {
		g := Genre{Name: textOf(e), Match: NoMatch}
		if m, ok := parseInt(attrOf(e, "match")); ok {
			g.Match = m
		}
		out[g.Name] = g
	}
	return out
}

// SetGenre adds the genre or updates its match.
func (bi *BookInfo) SetGenre(g Genre) error {
	if err := bi.book.checkWritable("set genre"); err != nil {
		return err
	}
	if err := g.validate(); err != nil {
		return err
	}
	parent := bi.ensure()
	el := bi.genreElement(g.Name)
	if el == nil {
		el = bi.book.newElement("genre")
		el.SetText(g.Name)
		bi.book.appendSibling(parent, pathBookInfo, el)
	}
	match := ""
	if g.Match != NoMatch {
		match = formatInt(g.Match)
	}
	setAttr(el, "match", match)
	return nil
}

// RemoveGenre removes the genre.
func (bi *BookInfo) RemoveGenre(name string) error {
	if err := bi.book.checkWritable("remove genre"); err != nil {
		return err
	}
	el := bi.genreElement(name)
	if el == nil {
		return errors.NewNotFound("genre", name)
	}
	el.Parent().RemoveChild(el)
	return nil
}

func (bi *BookInfo) genreElement(name string) *etree.Element {
	for _, e := range bi.book.all(bi.el(), "genre") {
		if textOf(e) == name {
			return e
		}
	}
	return nil
}

// Annotations returns the annotations by language key. Paragraphs are
// separated by newlines.
func (bi *BookInfo) Annotations() map[string]string {
	out := make(map[string]string)
	for _, e := range bi.book.all(bi.el(), "annotation") {
		out[langKey(attrOf(e, "lang"))] = bi.book.paragraphs(e)
	}
	return out
}

// SetAnnotation sets the annotation for lang; each line becomes a paragraph.
func (bi *BookInfo) SetAnnotation(text, lang string) error {
	if err := bi.book.checkWritable("set annotation"); err != nil {
		return err
	}
	key, err := CanonicalLang(lang)
	if err != nil {
		return err
	}
	parent := bi.ensure()
	el := bi.book.findByLang(parent, "annotation", key)
	if el == nil {
		el = bi.book.newElement("annotation")
		setAttr(el, "lang", langAttr(key))
		bi.book.appendSibling(parent, pathBookInfo, el)
	}
	bi.book.setParagraphs(el, childPath(pathBookInfo, "annotation"), text)
	return nil
}

// RemoveAnnotation removes the annotation for lang.
func (bi *BookInfo) RemoveAnnotation(lang string) error {
	return bi.book.removeLangElement(bi.el(), "annotation", lang, "remove annotation")
}

// CoverPage returns the cover page.
func (bi *BookInfo) CoverPage() *CoverPage {
	el := bi.book.lookup("meta-data", "book-info", "coverpage")
	if bi.book.cover == nil || bi.book.cover.el != el {
		bi.book.cover = &CoverPage{pageBase{book: bi.book, el: el, path: pathCoverPage}}
	}
	return bi.book.cover
}

// Languages returns the declared text layer languages.
func (bi *BookInfo) Languages() []LanguageLayer {
	var out []LanguageLayer
	for _, e := range bi.book.all(bi.book.first(bi.el(), "languages"), "text-layer") {
		show, _ := parseBool(attrOf(e, "show"))
		out = append(out, LanguageLayer{Lang: langKey(attrOf(e, "lang")), Show: show})
	}
	return out
}

// SetLanguage declares a text layer language, updating show when the
// language is already declared.
func (bi *BookInfo) SetLanguage(l LanguageLayer) error {
	if err := bi.book.checkWritable("set language"); err != nil {
		return err
	}
	key, err := CanonicalLang(l.Lang)
	if err != nil {
		return err
	}
	if key == NoLang {
		return errors.NewValue("language", "a text layer language is required")
	}
	langs := bi.book.ensure(bi.ensure(), pathBookInfo, "languages")
	el := bi.book.findByLang(langs, "text-layer", key)
	if el == nil {
		el = bi.book.newElement("text-layer")
		el.CreateAttr("lang", key)
		langs.AddChild(el)
	}
	el.CreateAttr("show", formatBool(l.Show))
	return nil
}

// AddLanguage is SetLanguage for a new declaration.
func (bi *BookInfo) AddLanguage(lang string, show bool) error {
	return bi.SetLanguage(LanguageLayer{Lang: lang, Show: show})
}

// RemoveLanguage removes a text layer language declaration.
func (bi *BookInfo) RemoveLanguage(lang string) error {
	if err := bi.book.checkWritable("remove language"); err != nil {
		return err
	}
	key, err := CanonicalLang(lang)
	if err != nil {
		return err
	}
	langs := bi.book.first(bi.el(), "languages")
	el := bi.book.findByLang(langs, "text-layer", key)
	if el == nil {
		return errors.NewNotFound("language", key)
	}
	langs.RemoveChild(el)
	removeIfEmpty(langs)
	return nil
}

// Characters returns the character names in document order.
func (bi *BookInfo) Characters() []string {
	var out []string
	for _, e := range bi.book.all(bi.book.first(bi.el(), "characters"), "name") {
		out = append(out, textOf(e))
	}
	return out
}

// AddCharacter appends a character name. Names already present are kept once.
func (bi *BookInfo) AddCharacter(name string) error {
	if err := bi.book.checkWritable("add character"); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.NewValue("character", "name is required")
	}
	if slices.Contains(bi.Characters(), name) {
		return nil
	}
	chars := bi.book.ensure(bi.ensure(), pathBookInfo, "characters")
	el := bi.book.newElement("name")
	el.SetText(name)
	chars.AddChild(el)
	return nil
}

// RemoveCharacter removes a character name.
func (bi *BookInfo) RemoveCharacter(name string) error {
	if err := bi.book.checkWritable("remove character"); err != nil {
		return err
	}
	chars := bi.book.first(bi.el(), "characters")
	for _, e := range bi.book.all(chars, "name") {
		if textOf(e) == name {
			chars.RemoveChild(e)
			removeIfEmpty(chars)
			return nil
		}
	}
	return errors.NewNotFound("character", name)
}

// Keywords returns the lowercased keyword sets by language key, sorted.
func (bi *BookInfo) Keywords() map[string][]string {
	out := make(map[string][]string)
	for _, e := range bi.book.all(bi.el(), "keywords") {
		key := langKey(attrOf(e, "lang"))
		out[key] = mergeKeywords(out[key], splitKeywords(textOf(e)))
	}
	return out
}

// AddKeywords adds keywords for lang.
func (bi *BookInfo) AddKeywords(lang string, keywords ...string) error {
	if err := bi.book.checkWritable("add keywords"); err != nil {
		return err
	}
	key, err := CanonicalLang(lang)
	if err != nil {
		return err
	}
	merged := mergeKeywords(bi.Keywords()[key], keywords)
	return bi.writeKeywords(key, merged)
}

// RemoveKeywords removes keywords for lang; with no keywords given, all of
// them are removed.
func (bi *BookInfo) RemoveKeywords(lang string, keywords ...string) error {
	if err := bi.book.checkWritable("remove keywords"); err != nil {
		return err
	}
	key, err := CanonicalLang(lang)
	if err != nil {
		return err
	}
	current, ok := bi.Keywords()[key]
	if !ok {
		return errors.NewNotFound("keywords", key)
	}
	var kept []string
	if len(keywords) > 0 {
		drop := mergeKeywords(nil, keywords)
		for _, k := range current {
			if !slices.Contains(drop, k) {
				kept = append(kept, k)
			}
		}
	}
	return bi.writeKeywords(key, kept)
}

// writeKeywords replaces every keywords element of key with one element,
// or none when the set is empty.
func (bi *BookInfo) writeKeywords(key string, keywords []string) error {
	parent := bi.ensure()
	var first *etree.Element
	for _, e := range bi.book.all(parent, "keywords") {
		if langKey(attrOf(e, "lang")) != key {
			continue
		}
		if first == nil {
			first = e
			continue
		}
		parent.RemoveChild(e)
	}
	if len(keywords) == 0 {
		if first != nil {
			parent.RemoveChild(first)
		}
		return nil
	}
	if first == nil {
		first = bi.book.newElement("keywords")
		setAttr(first, "lang", langAttr(key))
		bi.book.appendSibling(parent, pathBookInfo, first)
	}
	setText(first, strings.Join(keywords, ", "))
	return nil
}

func splitKeywords(s string) []string {
	return strings.Split(s, ",")
}

// mergeKeywords returns the sorted union of lowercased, trimmed keywords.
func mergeKeywords(set []string, add []string) []string {
	out := slices.Clone(set)
	for _, k := range add {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// Series returns the series the book belongs to, by title.
func (bi *BookInfo) Series() map[string]Series {
	out := make(map[string]Series)
	for _, e := range bi.book.all(bi.el(), "sequence") {
		s := Series{Title: attrOf(e, "title")}
		s.Sequence, _ = parseInt(textOf(e))
		s.Volume, _ = parseInt(attrOf(e, "volume"))
		out[s.Title] = s
	}
	return out
}

// SetSeries adds the book to a series or updates its position.
func (bi *BookInfo) SetSeries(s Series) error {
	if err := bi.book.checkWritable("set series"); err != nil {
		return err
	}
	if err := s.validate(); err != nil {
		return err
	}
	parent := bi.ensure()
	el := bi.seriesElement(s.Title)
	if el == nil {
		el = bi.book.newElement("sequence")
		el.CreateAttr("title", s.Title)
		bi.book.appendSibling(parent, pathBookInfo, el)
	}
	setText(el, formatInt(s.Sequence))
	volume := ""
	if s.Volume > 0 {
		volume = formatInt(s.Volume)
	}
	setAttr(el, "volume", volume)
	return nil
}

// RemoveSeries removes the book from a series.
func (bi *BookInfo) RemoveSeries(title string) error {
	if err := bi.book.checkWritable("remove series"); err != nil {
		return err
	}
	el := bi.seriesElement(title)
	if el == nil {
		return errors.NewNotFound("series", title)
	}
	el.Parent().RemoveChild(el)
	return nil
}

func (bi *BookInfo) seriesElement(title string) *etree.Element {
	for _, e := range bi.book.all(bi.el(), "sequence") {
		if attrOf(e, "title") == title {
			return e
		}
	}
	return nil
}

// ContentRatings returns ratings by rating system. Ratings without a
// system use the NoLang key.
func (bi *BookInfo) ContentRatings() map[string]string {
	out := make(map[string]string)
	for _, e := range bi.book.all(bi.el(), "content-rating") {
		system := attrOf(e, "type")
		if system == "" {
			system = NoLang
		}
		out[system] = textOf(e)
	}
	return out
}

// SetContentRating sets the rating of a rating system.
func (bi *BookInfo) SetContentRating(system, rating string) error {
	if err := bi.book.checkWritable("set content rating"); err != nil {
		return err
	}
	if strings.TrimSpace(rating) == "" {
		return errors.NewValue("content rating", "rating is required")
	}
	parent := bi.ensure()
	el := bi.ratingElement(system)
	if el == nil {
		el = bi.book.newElement("content-rating")
		if system != NoLang {
			setAttr(el, "type", system)
		}
		bi.book.appendSibling(parent, pathBookInfo, el)
	}
	setText(el, rating)
	return nil
}

// RemoveContentRating removes the rating of a rating system.
func (bi *BookInfo) RemoveContentRating(system string) error {
	if err := bi.book.checkWritable("remove content rating"); err != nil {
		return err
	}
	el := bi.ratingElement(system)
	if el == nil {
		return errors.NewNotFound("content rating", system)
	}
	el.Parent().RemoveChild(el)
	return nil
}

func (bi *BookInfo) ratingElement(system string) *etree.Element {
	if system == NoLang {
		system = ""
	}
	for _, e := range bi.book.all(bi.el(), "content-rating") {
		if attrOf(e, "type") == system {
			return e
		}
	}
	return nil
}

// DatabaseRefs returns the database references in document order.
func (bi *BookInfo) DatabaseRefs() []DBRef {
	var out []DBRef
	for _, e := range bi.book.all(bi.el(), "databaseref") {
		out = append(out, DBRef{DBName: attrOf(e, "dbname"), Type: attrOf(e, "type"), Ref: textOf(e)})
	}
	return out
}

// AddDatabaseRef appends a database reference.
func (bi *BookInfo) AddDatabaseRef(r DBRef) error {
	if err := bi.book.checkWritable("add database reference"); err != nil {
		return err
	}
	if err := r.validate(); err != nil {
		return err
	}
	el := bi.book.newElement("databaseref")
	writeDBRef(el, r)
	bi.book.appendSibling(bi.ensure(), pathBookInfo, el)
	return nil
}

// SetDatabaseRef replaces the database reference at index i.
func (bi *BookInfo) SetDatabaseRef(i int, r DBRef) error {
	if err := bi.book.checkWritable("set database reference"); err != nil {
		return err
	}
	if err := r.validate(); err != nil {
		return err
	}
	refs := bi.book.all(bi.el(), "databaseref")
	j, err := normIndex("databaseref", i, len(refs), false)
	if err != nil {
		return err
	}
	writeDBRef(refs[j], r)
	return nil
}

// RemoveDatabaseRef removes the database reference at index i.
func (bi *BookInfo) RemoveDatabaseRef(i int) error {
	if err := bi.book.checkWritable("remove database reference"); err != nil {
		return err
	}
	_, err := bi.book.removeSibling(bi.el(), "databaseref", i)
	return err
}

func writeDBRef(el *etree.Element, r DBRef) {
	el.CreateAttr("dbname", r.DBName)
	setAttr(el, "type", r.Type)
	setText(el, r.Ref)
}
