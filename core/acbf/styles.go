package acbf

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/beevik/etree"

	"github.com/FocuswithJustin/acbf/core/errors"
)

// InlineStyle is the name of the stylesheet held in the <style> element.
const InlineStyle = NoLang

const styleSheetTarget = "xml-stylesheet"

var hrefPattern = regexp.MustCompile(`href\s*=\s*["']([^"']*)["']`)

// Styles indexes the book's stylesheets: files referenced by
// xml-stylesheet processing instructions, plus the inline <style> element.
type Styles struct {
	book *Book
}

// styleSheetPIs returns the xml-stylesheet instructions before the root.
func (s *Styles) styleSheetPIs() []*etree.ProcInst {
	var out []*etree.ProcInst
	for _, t := range s.book.doc.Child {
		if pi, ok := t.(*etree.ProcInst); ok && pi.Target == styleSheetTarget {
			out = append(out, pi)
		}
	}
	return out
}

func piHref(pi *etree.ProcInst) string {
	m := hrefPattern.FindStringSubmatch(pi.Inst)
	if m == nil {
		return ""
	}
	return m[1]
}

func (s *Styles) findPI(name string) *etree.ProcInst {
	for _, pi := range s.styleSheetPIs() {
		if piHref(pi) == name {
			return pi
		}
	}
	return nil
}

func (s *Styles) inline() *etree.Element {
	return s.book.lookup("style")
}

// List returns the stylesheet names; InlineStyle stands for <style>.
func (s *Styles) List() []string {
	var names []string
	for _, pi := range s.styleSheetPIs() {
		if href := piHref(pi); href != "" {
			names = append(names, href)
		}
	}
	if s.inline() != nil {
		names = append(names, InlineStyle)
	}
	return names
}

// Get returns the content of the stylesheet name.
func (s *Styles) Get(name string) ([]byte, error) {
	if name == InlineStyle {
		el := s.inline()
		if el == nil {
			return nil, errors.NewNotFound("style", name)
		}
		return []byte(el.Text()), nil
	}
	if s.findPI(name) == nil {
		return nil, errors.NewNotFound("style", name)
	}
	if s.book.arc != nil {
		return s.book.arc.Read(name)
	}
	path := filepath.Join(s.book.dir(), filepath.FromSlash(name))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read stylesheet", path, err)
	}
	return data, nil
}

// Edit stores the stylesheet file at path. name defaults to the file's
// base name and typ to text/css.
func (s *Styles) Edit(path, name, typ string, embed bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileNotFound(path)
		}
		return errors.NewIO("read", path, err)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	return s.EditBytes(data, name, typ, embed)
}

// EditBytes stores a stylesheet. With embed, or for standalone books, data
// becomes the inline <style>; otherwise it is written into the archive at
// name and referenced by an xml-stylesheet instruction.
func (s *Styles) EditBytes(data []byte, name, typ string, embed bool) error {
	if err := s.book.checkWritable("edit style"); err != nil {
		return err
	}
	if typ == "" {
		typ = "text/css"
	}
	if embed || s.book.arc == nil {
		el := s.book.ensurePath("style")
		el.CreateAttr("type", typ)
		setText(el, string(data))
		return nil
	}

	if name == "" || name == InlineStyle {
		return errors.NewValue("style name", "an archive entry name is required")
	}
	if err := s.book.arc.Write(name, data); err != nil {
		return err
	}
	if s.findPI(name) == nil {
		pi := etree.NewProcInst(styleSheetTarget, fmt.Sprintf(`type=%q href=%q`, typ, name))
		s.book.doc.InsertChildAt(s.book.root.Index(), pi)
	}
	return nil
}

// Remove deletes the stylesheet name. With embedded, or for InlineStyle,
// the <style> element is removed; otherwise the processing instruction and
// its archive entry.
func (s *Styles) Remove(name string, embedded bool) error {
	if err := s.book.checkWritable("remove style"); err != nil {
		return err
	}
	if embedded || name == InlineStyle {
		el := s.inline()
		if el == nil {
			return errors.NewNotFound("style", InlineStyle)
		}
		s.book.root.RemoveChild(el)
		return nil
	}

	pi := s.findPI(name)
	if pi == nil {
		return errors.NewNotFound("style", name)
	}
	s.book.doc.RemoveChild(pi)
	if s.book.arc != nil {
		if err := s.book.arc.Delete(name); err != nil && !errors.Is(err, errors.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}
