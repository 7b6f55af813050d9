package acbf

import (
	"github.com/beevik/etree"

	"github.com/FocuswithJustin/acbf/core/errors"
)

var pathReference = childPath(pathReferences, "reference")

// Reference is a footnote target.
type Reference struct {
	ID        string
	Paragraph string
}

// References maps reference ids to their paragraphs.
type References struct {
	book *Book
}

func (r *References) el() *etree.Element {
	return r.book.lookup("references")
}

func (r *References) find(id string) *etree.Element {
	for _, e := range r.book.all(r.el(), "reference") {
		if attrOf(e, "id") == id {
			return e
		}
	}
	return nil
}

// IDs returns the reference ids in document order.
func (r *References) IDs() []string {
	var ids []string
	for _, e := range r.book.all(r.el(), "reference") {
		ids = append(ids, attrOf(e, "id"))
	}
	return ids
}

// Get returns the reference with the given id.
func (r *References) Get(id string) (Reference, bool) {
	el := r.find(id)
	if el == nil {
		return Reference{}, false
	}
	return Reference{ID: id, Paragraph: r.book.paragraphs(el)}, true
}

// All returns every reference in document order.
func (r *References) All() []Reference {
	var out []Reference
	for _, e := range r.book.all(r.el(), "reference") {
		out = append(out, Reference{ID: attrOf(e, "id"), Paragraph: r.book.paragraphs(e)})
	}
	return out
}

// Set creates or replaces the reference id. Each line of paragraph becomes
// a <p>.
func (r *References) Set(id, paragraph string) error {
	if err := r.book.checkWritable("set reference"); err != nil {
		return err
	}
	if id == "" {
		return errors.NewValue("reference id", "must not be empty")
	}
	el := r.find(id)
	if el == nil {
		el = r.book.newElement("reference")
		el.CreateAttr("id", id)
		r.book.appendSibling(r.book.ensurePath("references"), pathReferences, el)
	}
	r.book.setParagraphs(el, pathReference, paragraph)
	return nil
}

// Remove deletes the reference id.
func (r *References) Remove(id string) error {
	if err := r.book.checkWritable("remove reference"); err != nil {
		return err
	}
	el := r.find(id)
	if el == nil {
		return errors.NewNotFound("reference", id)
	}
	parent := el.Parent()
	parent.RemoveChild(el)
	removeIfEmpty(parent)
	return nil
}
