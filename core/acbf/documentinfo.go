package acbf

import (
	"slices"
	"strings"

	"github.com/beevik/etree"

	"github.com/FocuswithJustin/acbf/core/errors"
)

// DocumentInfo is the document-info metadata describing the ACBF file
// itself rather than the comic.
type DocumentInfo struct {
	book *Book
}

func (di *DocumentInfo) el() *etree.Element {
	return di.book.lookup("meta-data", "document-info")
}

func (di *DocumentInfo) authorList() authorList {
	return authorList{book: di.book, path: pathDocumentInfo}
}

// Authors returns the document authors.
func (di *DocumentInfo) Authors() []*Author { return di.authorList().list() }

// AddAuthor appends an unbound author and binds it to the book.
func (di *DocumentInfo) AddAuthor(a *Author) error {
	return di.authorList().insert(len(di.Authors()), a)
}

// InsertAuthor inserts an unbound author at index i.
func (di *DocumentInfo) InsertAuthor(i int, a *Author) error { return di.authorList().insert(i, a) }

// RemoveAuthor removes the author at index i.
func (di *DocumentInfo) RemoveAuthor(i int) error { return di.authorList().remove(i) }

// CreationDate returns the document creation date.
func (di *DocumentInfo) CreationDate() Date {
	return readDate(di.book.first(di.el(), "creation-date"))
}

// SetCreationDate sets the creation date; see PublishInfo.SetPublishDate.
func (di *DocumentInfo) SetCreationDate(d Date, includeDate bool) error {
	if err := di.book.checkWritable("set creation date"); err != nil {
		return err
	}
	return di.book.setDate(pathDocumentInfo, "creation-date", d, includeDate)
}

// Source returns the source description, one paragraph per line.
func (di *DocumentInfo) Source() string {
	return di.book.paragraphs(di.book.first(di.el(), "source"))
}

// SetSource sets the source description; "" removes it.
func (di *DocumentInfo) SetSource(text string) error {
	if err := di.book.checkWritable("set source"); err != nil {
		return err
	}
	parent := di.book.ensurePath("meta-data", "document-info")
	if strings.TrimSpace(text) == "" {
		if el := di.book.first(parent, "source"); el != nil {
			parent.RemoveChild(el)
		}
		return nil
	}
	el := di.book.ensure(parent, pathDocumentInfo, "source")
	di.book.setParagraphs(el, childPath(pathDocumentInfo, "source"), text)
	return nil
}

// ID returns the document id.
func (di *DocumentInfo) ID() string { return textOf(di.book.first(di.el(), "id")) }

// SetID sets the document id; "" removes it.
func (di *DocumentInfo) SetID(id string) error {
	if err := di.book.checkWritable("set document id"); err != nil {
		return err
	}
	return di.book.setOptionalText(pathDocumentInfo, "id", id)
}

// Version returns the document version.
func (di *DocumentInfo) Version() string { return textOf(di.book.first(di.el(), "version")) }

// SetVersion sets the document version; "" removes it.
func (di *DocumentInfo) SetVersion(v string) error {
	if err := di.book.checkWritable("set document version"); err != nil {
		return err
	}
	return di.book.setOptionalText(pathDocumentInfo, "version", v)
}

func (di *DocumentInfo) historyPath() []string {
	return childPath(pathDocumentInfo, "history")
}

// History returns the history entries in order.
func (di *DocumentInfo) History() []string {
	var out []string
	for _, p := range di.book.all(di.book.first(di.el(), "history"), "p") {
		out = append(out, innerMarkup(p))
	}
	return out
}

// AddHistory appends a history entry.
func (di *DocumentInfo) AddHistory(entry string) error {
	return di.InsertHistory(len(di.History()), entry)
}

// InsertHistory inserts a history entry at index i.
func (di *DocumentInfo) InsertHistory(i int, entry string) error {
	if err := di.book.checkWritable("add history"); err != nil {
		return err
	}
	if err := validateHistory(entry); err != nil {
		return err
	}
	if _, err := normIndex("history", i, len(di.History()), true); err != nil {
		return err
	}
	history := di.book.ensure(di.book.ensurePath("meta-data", "document-info"), pathDocumentInfo, "history")
	p := di.book.newElement("p")
	di.book.parseInline(p, entry)
	return di.book.insertSibling(history, di.historyPath(), i, p)
}

// SetHistory replaces the history entry at index i.
func (di *DocumentInfo) SetHistory(i int, entry string) error {
	if err := di.book.checkWritable("set history"); err != nil {
		return err
	}
	if err := validateHistory(entry); err != nil {
		return err
	}
	ps := di.book.all(di.book.first(di.el(), "history"), "p")
	j, err := normIndex("history", i, len(ps), false)
	if err != nil {
		return err
	}
	for _, t := range slices.Clone(ps[j].Child) {
		ps[j].RemoveChild(t)
	}
	di.book.parseInline(ps[j], entry)
	return nil
}

// RemoveHistory removes the history entry at index i.
func (di *DocumentInfo) RemoveHistory(i int) error {
	if err := di.book.checkWritable("remove history"); err != nil {
		return err
	}
	history := di.book.first(di.el(), "history")
	if _, err := di.book.removeSibling(history, "p", i); err != nil {
		return err
	}
	removeIfEmpty(history)
	return nil
}

func validateHistory(entry string) error {
	if strings.ContainsAny(entry, "\r\n") {
		return errors.NewValue("history", "an entry is a single line")
	}
	return nil
}
