package acbf

import (
	"github.com/beevik/etree"

	"github.com/FocuswithJustin/acbf/core/errors"
	"github.com/FocuswithJustin/acbf/core/imageref"
)

// pageBase holds the operations shared by content pages and the cover.
type pageBase struct {
	book  *Book
	el    *etree.Element
	path  []string
	image *BookData
}

func (p *pageBase) imageEl() *etree.Element {
	return p.book.first(p.el, "image")
}

// ImageRef returns the href of the page image.
func (p *pageBase) ImageRef() string {
	return attrOf(p.imageEl(), "href")
}

// RefType classifies the image reference.
func (p *pageBase) RefType() imageref.Type {
	return imageref.Classify(p.ImageRef(), p.book.Archived())
}

// SetImageRef points the page at another image and drops the resolved one.
// Setting the current value leaves the document untouched.
func (p *pageBase) SetImageRef(ref string) error {
	if err := p.book.checkWritable("set image ref"); err != nil {
		return err
	}
	if ref == "" {
		return errors.NewValue("image ref", "must not be empty")
	}
	if ref == p.ImageRef() {
		return nil
	}
	img := p.book.ensure(p.el, p.path, "image")
	img.CreateAttr("href", ref)
	p.image = nil
	return nil
}

// Image resolves the page image. The result is kept until the reference
// changes.
func (p *pageBase) Image() (*BookData, error) {
	if p.image != nil {
		return p.image, nil
	}
	d, err := p.book.resolveImage(p.ImageRef())
	if err != nil {
		return nil, err
	}
	p.image = d
	return d, nil
}

func (p *pageBase) layerPath() []string { return childPath(p.path, "text-layer") }

func (p *pageBase) layerView(el *etree.Element) *TextLayer {
	return &TextLayer{book: p.book, el: el, path: p.layerPath()}
}

// TextLayers returns the text layers in document order.
func (p *pageBase) TextLayers() []*TextLayer {
	var out []*TextLayer
	for _, el := range p.book.all(p.el, "text-layer") {
		out = append(out, p.layerView(el))
	}
	return out
}

// TextLayer returns the layer for lang.
func (p *pageBase) TextLayer(lang string) (*TextLayer, bool) {
	key, err := CanonicalLang(lang)
	if err != nil {
		return nil, false
	}
	el := p.book.findByLang(p.el, "text-layer", key)
	if el == nil {
		return nil, false
	}
	return p.layerView(el), true
}

// AddTextLayer returns the layer for lang, creating it when missing.
func (p *pageBase) AddTextLayer(lang string) (*TextLayer, error) {
	if err := p.book.checkWritable("add text layer"); err != nil {
		return nil, err
	}
	key, err := CanonicalLang(lang)
	if err != nil {
		return nil, err
	}
	if key == NoLang {
		return nil, errors.NewValue("text-layer lang", "a language is required")
	}
	if el := p.book.findByLang(p.el, "text-layer", key); el != nil {
		return p.layerView(el), nil
	}
	el := p.book.newElement("text-layer")
	el.CreateAttr("lang", key)
	p.book.appendSibling(p.el, p.path, el)
	return p.layerView(el), nil
}

// RemoveTextLayer removes the layer for lang with its text areas.
func (p *pageBase) RemoveTextLayer(lang string) error {
	return p.book.removeLangElement(p.el, "text-layer", lang, "remove text layer")
}

// ChangeTextLayerLang moves the layer for src to dst. dst must not have a
// layer yet.
func (p *pageBase) ChangeTextLayerLang(src, dst string) error {
	if err := p.book.checkWritable("change text layer lang"); err != nil {
		return err
	}
	from, err := CanonicalLang(src)
	if err != nil {
		return err
	}
	to, err := CanonicalLang(dst)
	if err != nil {
		return err
	}
	if to == NoLang {
		return errors.NewValue("text-layer lang", "a language is required")
	}
	el := p.book.findByLang(p.el, "text-layer", from)
	if el == nil {
		return errors.NewNotFound("text-layer", from)
	}
	if from == to {
		return nil
	}
	if p.book.findByLang(p.el, "text-layer", to) != nil {
		return errors.NewValuef("text-layer lang", "page already has a %s layer", to)
	}
	el.CreateAttr("lang", to)
	return nil
}

// Frames returns the frames in reading order.
func (p *pageBase) Frames() []*Frame {
	var out []*Frame
	for _, el := range p.book.all(p.el, "frame") {
		out = append(out, &Frame{polygon{book: p.book, el: el, kind: "frame"}})
	}
	return out
}

// InsertFrame inserts a frame at index i.
func (p *pageBase) InsertFrame(i int, pts []Point) (*Frame, error) {
	el, err := p.insertPolygon("insert frame", "frame", i, pts)
	if err != nil {
		return nil, err
	}
	return &Frame{polygon{book: p.book, el: el, kind: "frame"}}, nil
}

// AppendFrame adds a frame after the last one.
func (p *pageBase) AppendFrame(pts []Point) (*Frame, error) {
	return p.InsertFrame(len(p.book.all(p.el, "frame")), pts)
}

// RemoveFrame removes the frame at index i.
func (p *pageBase) RemoveFrame(i int) error {
	if err := p.book.checkWritable("remove frame"); err != nil {
		return err
	}
	_, err := p.book.removeSibling(p.el, "frame", i)
	return err
}

// ReorderFrame moves the frame at src before the frame now at dst.
func (p *pageBase) ReorderFrame(src, dst int) error {
	if err := p.book.checkWritable("reorder frame"); err != nil {
		return err
	}
	return p.book.moveSibling(p.el, "frame", src, dst)
}

// Jumps returns the jumps in document order.
func (p *pageBase) Jumps() []*Jump {
	var out []*Jump
	for _, el := range p.book.all(p.el, "jump") {
		out = append(out, &Jump{polygon{book: p.book, el: el, kind: "jump"}})
	}
	return out
}

// InsertJump inserts a jump to page at index i.
func (p *pageBase) InsertJump(i int, pts []Point, page int) (*Jump, error) {
	if page < 0 {
		return nil, errors.NewValuef("jump page", "%d must not be negative", page)
	}
	el, err := p.insertPolygon("insert jump", "jump", i, pts)
	if err != nil {
		return nil, err
	}
	el.CreateAttr("page", formatInt(page))
	return &Jump{polygon{book: p.book, el: el, kind: "jump"}}, nil
}

// AppendJump adds a jump after the last one.
func (p *pageBase) AppendJump(pts []Point, page int) (*Jump, error) {
	return p.InsertJump(len(p.book.all(p.el, "jump")), pts, page)
}

// RemoveJump removes the jump at index i.
func (p *pageBase) RemoveJump(i int) error {
	if err := p.book.checkWritable("remove jump"); err != nil {
		return err
	}
	_, err := p.book.removeSibling(p.el, "jump", i)
	return err
}

// ReorderJump moves the jump at src before the jump now at dst.
func (p *pageBase) ReorderJump(src, dst int) error {
	if err := p.book.checkWritable("reorder jump"); err != nil {
		return err
	}
	return p.book.moveSibling(p.el, "jump", src, dst)
}

func (p *pageBase) insertPolygon(op, tag string, i int, pts []Point) (*etree.Element, error) {
	if err := p.book.checkWritable(op); err != nil {
		return nil, err
	}
	if len(pts) == 0 {
		return nil, errors.NewValue("points", "at least one point is required")
	}
	el := p.book.newElement(tag)
	el.CreateAttr("points", FormatPoints(pts))
	if err := p.book.insertSibling(p.el, p.path, i, el); err != nil {
		return nil, err
	}
	return el, nil
}

// Page is a content page of the body.
type Page struct {
	pageBase
}

// BgColor returns the page background color.
func (p *Page) BgColor() string { return attrOf(p.el, "bgcolor") }

// SetBgColor sets the page background color; "" removes it.
func (p *Page) SetBgColor(color string) error {
	if err := p.book.checkWritable("set page bgcolor"); err != nil {
		return err
	}
	setAttr(p.el, "bgcolor", color)
	return nil
}

// Transition returns the page transition, or "" when unset.
func (p *Page) Transition() Transition {
	t, err := ParseTransition(attrOf(p.el, "transition"))
	if err != nil {
		return ""
	}
	return t
}

// SetTransition sets the page transition; "" removes it.
func (p *Page) SetTransition(t Transition) error {
	if err := p.book.checkWritable("set transition"); err != nil {
		return err
	}
	if t != "" {
		var err error
		if t, err = ParseTransition(string(t)); err != nil {
			return err
		}
	}
	setAttr(p.el, "transition", string(t))
	return nil
}

// Titles maps lang keys to page titles.
func (p *Page) Titles() map[string]string {
	return p.book.langTexts(p.el, "title")
}

// SetTitle sets the page title for lang.
func (p *Page) SetTitle(title, lang string) error {
	if err := p.book.checkWritable("set page title"); err != nil {
		return err
	}
	return p.book.setLangText(p.el, p.path, "title", lang, title)
}

// RemoveTitle removes the page title for lang.
func (p *Page) RemoveTitle(lang string) error {
	return p.book.removeLangElement(p.el, "title", lang, "remove page title")
}

// CoverPage is the cover image with its overlays. It has no background
// color, transition or title.
type CoverPage struct {
	pageBase
}
