package acbf

import (
	"github.com/beevik/etree"

	"github.com/FocuswithJustin/acbf/core/errors"
)

// TextLayer holds the text areas of one language on a page.
type TextLayer struct {
	book *Book
	el   *etree.Element
	path []string
}

// Lang returns the layer language.
func (l *TextLayer) Lang() string { return attrOf(l.el, "lang") }

// BgColor returns the default background color of the layer's text areas.
func (l *TextLayer) BgColor() string { return attrOf(l.el, "bgcolor") }

// SetBgColor sets the layer background color; "" removes it.
func (l *TextLayer) SetBgColor(color string) error {
	if err := l.book.checkWritable("set text layer bgcolor"); err != nil {
		return err
	}
	setAttr(l.el, "bgcolor", color)
	return nil
}

func (l *TextLayer) areaView(el *etree.Element) *TextArea {
	return &TextArea{
		polygon: polygon{book: l.book, el: el, kind: "text area"},
		path:    childPath(l.path, "text-area"),
	}
}

// TextAreas returns the text areas in document order.
func (l *TextLayer) TextAreas() []*TextArea {
	var out []*TextArea
	for _, el := range l.book.all(l.el, "text-area") {
		out = append(out, l.areaView(el))
	}
	return out
}

// InsertTextArea inserts a text area at index i.
func (l *TextLayer) InsertTextArea(i int, pts []Point, paragraph string) (*TextArea, error) {
	if err := l.book.checkWritable("insert text area"); err != nil {
		return nil, err
	}
	if len(pts) == 0 {
		return nil, errors.NewValue("points", "at least one point is required")
	}
	el := l.book.newElement("text-area")
	el.CreateAttr("points", FormatPoints(pts))
	a := l.areaView(el)
	l.book.setParagraphs(el, a.path, paragraph)
	if err := l.book.insertSibling(l.el, l.path, i, el); err != nil {
		return nil, err
	}
	return a, nil
}

// AppendTextArea adds a text area after the last one.
func (l *TextLayer) AppendTextArea(pts []Point, paragraph string) (*TextArea, error) {
	return l.InsertTextArea(len(l.book.all(l.el, "text-area")), pts, paragraph)
}

// RemoveTextArea removes the text area at index i.
func (l *TextLayer) RemoveTextArea(i int) error {
	if err := l.book.checkWritable("remove text area"); err != nil {
		return err
	}
	_, err := l.book.removeSibling(l.el, "text-area", i)
	return err
}

// ReorderTextArea moves the text area at src before the one now at dst.
func (l *TextLayer) ReorderTextArea(src, dst int) error {
	if err := l.book.checkWritable("reorder text area"); err != nil {
		return err
	}
	return l.book.moveSibling(l.el, "text-area", src, dst)
}
