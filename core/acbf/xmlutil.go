package acbf

import (
	"slices"
	"strings"

	"github.com/beevik/etree"

	"github.com/FocuswithJustin/acbf/core/errors"
)

// Element paths from the document root, used to look up schema child order.
var (
	pathRoot         = []string{"ACBF"}
	pathMetaData     = []string{"ACBF", "meta-data"}
	pathBookInfo     = []string{"ACBF", "meta-data", "book-info"}
	pathPublishInfo  = []string{"ACBF", "meta-data", "publish-info"}
	pathDocumentInfo = []string{"ACBF", "meta-data", "document-info"}
	pathBody         = []string{"ACBF", "body"}
	pathPage         = []string{"ACBF", "body", "page"}
	pathCoverPage    = []string{"ACBF", "meta-data", "book-info", "coverpage"}
	pathReferences   = []string{"ACBF", "references"}
	pathData         = []string{"ACBF", "data"}
)

func childPath(path []string, tag string) []string {
	return append(slices.Clone(path), tag)
}

// is reports whether e is an ACBF element named tag.
func (b *Book) is(e *etree.Element, tag string) bool {
	return e.Tag == tag && e.NamespaceURI() == b.ns
}

// first returns the first child of parent named tag, or nil.
func (b *Book) first(parent *etree.Element, tag string) *etree.Element {
	if parent == nil {
		return nil
	}
	for _, e := range parent.ChildElements() {
		if b.is(e, tag) {
			return e
		}
	}
	return nil
}

// all returns the children of parent named tag in document order.
func (b *Book) all(parent *etree.Element, tag string) []*etree.Element {
	if parent == nil {
		return nil
	}
	var out []*etree.Element
	for _, e := range parent.ChildElements() {
		if b.is(e, tag) {
			out = append(out, e)
		}
	}
	return out
}

// lookup walks from the root element along tags. It returns nil when an
// element on the way is missing.
func (b *Book) lookup(tags ...string) *etree.Element {
	e := b.root
	for _, tag := range tags {
		e = b.first(e, tag)
		if e == nil {
			return nil
		}
	}
	return e
}

func (b *Book) newElement(tag string) *etree.Element {
	e := etree.NewElement(tag)
	e.Space = b.prefix
	return e
}

// insertOrdered inserts child into parent at the position the schema gives
// its tag: after the last sibling whose tag sorts at or before it.
func (b *Book) insertOrdered(parent *etree.Element, path []string, child *etree.Element) {
	order := b.schema.ChildOrder(path...)
	rank := slices.Index(order, child.Tag)
	if rank < 0 {
		parent.AddChild(child)
		return
	}

	var after, before *etree.Element
	for _, e := range parent.ChildElements() {
		r := slices.Index(order, e.Tag)
		if r >= 0 && r <= rank {
			after = e
		} else if before == nil && r > rank {
			before = e
		}
	}
	switch {
	case after != nil:
		parent.InsertChildAt(after.Index()+1, child)
	case before != nil:
		parent.InsertChildAt(before.Index(), child)
	default:
		parent.AddChild(child)
	}
}

// ensure returns the first child of parent named tag, creating it at its
// schema position when missing. path is the element path of parent.
func (b *Book) ensure(parent *etree.Element, path []string, tag string) *etree.Element {
	if e := b.first(parent, tag); e != nil {
		return e
	}
	e := b.newElement(tag)
	b.insertOrdered(parent, path, e)
	return e
}

// ensurePath finds or creates the element at tags below the root.
func (b *Book) ensurePath(tags ...string) *etree.Element {
	e := b.root
	path := []string{b.root.Tag}
	for _, tag := range tags {
		e = b.ensure(e, path, tag)
		path = append(path, tag)
	}
	return e
}

// removeIfEmpty drops e from its parent when it has no element children and
// no text.
func removeIfEmpty(e *etree.Element) {
	if e == nil || e.Parent() == nil {
		return
	}
	if len(e.ChildElements()) == 0 && strings.TrimSpace(e.Text()) == "" && len(e.Attr) == 0 {
		e.Parent().RemoveChild(e)
	}
}

// normIndex resolves a possibly negative index against n items. With
// allowEnd, n itself is a valid position.
func normIndex(collection string, i, n int, allowEnd bool) (int, error) {
	j := i
	if j < 0 {
		j += n
	}
	limit := n
	if allowEnd {
		limit = n + 1
	}
	if j < 0 || j >= limit {
		return 0, errors.NewIndex(collection, i, n)
	}
	return j, nil
}

// insertSibling inserts el among the children of parent named el.Tag so it
// becomes the i-th of them. Inserting at the end places el right after the
// last sibling of the same tag, or at its schema position when none exists.
func (b *Book) insertSibling(parent *etree.Element, path []string, i int, el *etree.Element) error {
	siblings := b.all(parent, el.Tag)
	j, err := normIndex(el.Tag, i, len(siblings), true)
	if err != nil {
		return err
	}
	switch {
	case j < len(siblings):
		parent.InsertChildAt(siblings[j].Index(), el)
	case len(siblings) > 0:
		parent.InsertChildAt(siblings[len(siblings)-1].Index()+1, el)
	default:
		b.insertOrdered(parent, path, el)
	}
	return nil
}

// removeSibling removes the i-th child of parent named tag.
func (b *Book) removeSibling(parent *etree.Element, tag string, i int) (*etree.Element, error) {
	siblings := b.all(parent, tag)
	j, err := normIndex(tag, i, len(siblings), false)
	if err != nil {
		return nil, err
	}
	parent.RemoveChild(siblings[j])
	return siblings[j], nil
}

// moveSibling removes the src-th child named tag and reinserts it before the
// element then at dst, or after the last one when dst is past the end.
func (b *Book) moveSibling(parent *etree.Element, tag string, src, dst int) error {
	siblings := b.all(parent, tag)
	n := len(siblings)
	s, err := normIndex(tag, src, n, false)
	if err != nil {
		return err
	}
	d, err := normIndex(tag, dst, n, true)
	if err != nil {
		return err
	}
	el := siblings[s]
	parent.RemoveChild(el)
	rest := slices.Delete(slices.Clone(siblings), s, s+1)
	if d < len(rest) {
		parent.InsertChildAt(rest[d].Index(), el)
	} else if len(rest) > 0 {
		parent.InsertChildAt(rest[len(rest)-1].Index()+1, el)
	} else {
		parent.AddChild(el)
	}
	return nil
}

func textOf(e *etree.Element) string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.Text())
}

func attrOf(e *etree.Element, key string) string {
	if e == nil {
		return ""
	}
	return e.SelectAttrValue(key, "")
}

// setAttr sets an attribute, removing it when value is empty.
func setAttr(e *etree.Element, key, value string) {
	if value == "" {
		e.RemoveAttr(key)
		return
	}
	e.CreateAttr(key, value)
}

// setText replaces the text content of a simple-content element.
func setText(e *etree.Element, text string) {
	for _, t := range slices.Clone(e.Child) {
		if _, ok := t.(*etree.CharData); ok {
			e.RemoveChild(t)
		}
	}
	if text != "" {
		e.InsertChildAt(0, etree.NewText(text))
	}
}

// findByLang returns the first child named tag whose lang key is key.
func (b *Book) findByLang(parent *etree.Element, tag, key string) *etree.Element {
	for _, e := range b.all(parent, tag) {
		if langKey(attrOf(e, "lang")) == key {
			return e
		}
	}
	return nil
}

// appendSibling places el after the last child of parent with the same tag.
func (b *Book) appendSibling(parent *etree.Element, path []string, el *etree.Element) {
	// Appending is always in range.
	_ = b.insertSibling(parent, path, len(b.all(parent, el.Tag)), el)
}

// langTexts maps the lang key of each child named tag to its text.
func (b *Book) langTexts(parent *etree.Element, tag string) map[string]string {
	out := make(map[string]string)
	for _, e := range b.all(parent, tag) {
		out[langKey(attrOf(e, "lang"))] = textOf(e)
	}
	return out
}

// setLangText sets the text of the child named tag for lang, creating it
// after its last sibling when missing.
func (b *Book) setLangText(parent *etree.Element, path []string, tag, lang, text string) error {
	key, err := CanonicalLang(lang)
	if err != nil {
		return err
	}
	el := b.findByLang(parent, tag, key)
	if el == nil {
		el = b.newElement(tag)
		setAttr(el, "lang", langAttr(key))
		b.appendSibling(parent, path, el)
	}
	setText(el, text)
	return nil
}

// removeLangElement removes the child named tag for lang.
func (b *Book) removeLangElement(parent *etree.Element, tag, lang, op string) error {
	if err := b.checkWritable(op); err != nil {
		return err
	}
	key, err := CanonicalLang(lang)
	if err != nil {
		return err
	}
	el := b.findByLang(parent, tag, key)
	if el == nil {
		return errors.NewNotFound(tag, key)
	}
	parent.RemoveChild(el)
	return nil
}
