package acbf

import (
	"github.com/beevik/etree"
)

// Body is the ordered page sequence.
type Body struct {
	book *Book
}

func (bd *Body) el() *etree.Element {
	return bd.book.lookup("body")
}

func (bd *Body) view(el *etree.Element) *Page {
	if p, ok := bd.book.pages[el]; ok {
		return p
	}
	p := &Page{pageBase{book: bd.book, el: el, path: pathPage}}
	bd.book.pages[el] = p
	return p
}

// Pages returns the pages in reading order. Each element always maps to
// the same *Page, so memoized images survive repeated calls.
func (bd *Body) Pages() []*Page {
	els := bd.book.all(bd.el(), "page")
	out := make([]*Page, len(els))
	for i, el := range els {
		out[i] = bd.view(el)
	}
	return out
}

// Len returns the number of pages.
func (bd *Body) Len() int {
	return len(bd.book.all(bd.el(), "page"))
}

// Page returns the page at index i; negative indices count from the end.
func (bd *Body) Page(i int) (*Page, error) {
	pages := bd.Pages()
	j, err := normIndex("pages", i, len(pages), false)
	if err != nil {
		return nil, err
	}
	return pages[j], nil
}

// InsertPage inserts a page showing imageRef at index i.
func (bd *Body) InsertPage(i int, imageRef string) (*Page, error) {
	if err := bd.book.checkWritable("insert page"); err != nil {
		return nil, err
	}
	el := bd.book.newElement("page")
	img := bd.book.newElement("image")
	img.CreateAttr("href", imageRef)
	el.AddChild(img)

	if err := bd.book.insertSibling(bd.book.ensurePath("body"), pathBody, i, el); err != nil {
		return nil, err
	}
	return bd.view(el), nil
}

// AppendPage adds a page showing imageRef after the last page.
func (bd *Body) AppendPage(imageRef string) (*Page, error) {
	return bd.InsertPage(bd.Len(), imageRef)
}

// RemovePage removes the page at index i.
func (bd *Body) RemovePage(i int) error {
	if err := bd.book.checkWritable("remove page"); err != nil {
		return err
	}
	el, err := bd.book.removeSibling(bd.el(), "page", i)
	if err != nil {
		return err
	}
	delete(bd.book.pages, el)
	return nil
}

// MovePage moves the page at from so that it ends up before the page now at
// to, or last when to equals the number of pages.
func (bd *Body) MovePage(from, to int) error {
	if err := bd.book.checkWritable("move page"); err != nil {
		return err
	}
	return bd.book.moveSibling(bd.el(), "page", from, to)
}

// BgColor returns the default page background color.
func (bd *Body) BgColor() string { return attrOf(bd.el(), "bgcolor") }

// SetBgColor sets the default page background color; "" removes it.
func (bd *Body) SetBgColor(color string) error {
	if err := bd.book.checkWritable("set body bgcolor"); err != nil {
		return err
	}
	setAttr(bd.book.ensurePath("body"), "bgcolor", color)
	return nil
}

// ImageRefs returns the image reference of the cover followed by every page.
func (bd *Body) ImageRefs() []string {
	refs := []string{bd.book.BookInfo().CoverPage().ImageRef()}
	for _, p := range bd.Pages() {
		refs = append(refs, p.ImageRef())
	}
	return refs
}
