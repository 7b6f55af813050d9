package acbf

import (
	"github.com/FocuswithJustin/acbf/core/errors"
)

// TextArea is a polygon of a text layer holding one or more paragraphs.
type TextArea struct {
	polygon
	path []string
}

// Paragraph returns the paragraphs joined by newlines, with inline markup.
func (a *TextArea) Paragraph() string { return a.book.paragraphs(a.el) }

// Text returns the paragraphs without markup.
func (a *TextArea) Text() string { return a.book.plainParagraphs(a.el) }

// SetParagraph replaces the paragraphs, one per line of text.
func (a *TextArea) SetParagraph(text string) error {
	if err := a.book.checkWritable("set paragraph"); err != nil {
		return err
	}
	a.book.setParagraphs(a.el, a.path, text)
	return nil
}

// BgColor returns the text area background color.
func (a *TextArea) BgColor() string { return attrOf(a.el, "bgcolor") }

// SetBgColor sets the background color; "" removes it.
func (a *TextArea) SetBgColor(color string) error {
	if err := a.book.checkWritable("set text area bgcolor"); err != nil {
		return err
	}
	setAttr(a.el, "bgcolor", color)
	return nil
}

// Rotation returns the text rotation in degrees and whether it is set.
func (a *TextArea) Rotation() (int, bool) {
	return parseInt(attrOf(a.el, "text-rotation"))
}

// SetRotation sets the text rotation, between 0 and 360 degrees.
func (a *TextArea) SetRotation(deg int) error {
	if err := a.book.checkWritable("set rotation"); err != nil {
		return err
	}
	if deg < 0 || deg > 360 {
		return errors.NewValuef("rotation", "%d must be between 0 and 360", deg)
	}
	a.el.CreateAttr("text-rotation", formatInt(deg))
	return nil
}

// ClearRotation removes the text rotation.
func (a *TextArea) ClearRotation() error {
	if err := a.book.checkWritable("clear rotation"); err != nil {
		return err
	}
	a.el.RemoveAttr("text-rotation")
	return nil
}

// Type returns the text area type, or "" when unset.
func (a *TextArea) Type() TextAreaType {
	t, err := ParseTextAreaType(attrOf(a.el, "type"))
	if err != nil {
		return ""
	}
	return t
}

// SetType sets the text area type; "" removes it.
func (a *TextArea) SetType(t TextAreaType) error {
	if err := a.book.checkWritable("set text area type"); err != nil {
		return err
	}
	if t != "" {
		var err error
		if t, err = ParseTextAreaType(string(t)); err != nil {
			return err
		}
	}
	setAttr(a.el, "type", string(t))
	return nil
}

// Inverted reports whether colors are inverted and whether the flag is set.
func (a *TextArea) Inverted() (bool, bool) { return parseBool(attrOf(a.el, "inverted")) }

// SetInverted sets the inverted flag.
func (a *TextArea) SetInverted(v bool) error { return a.setFlag("inverted", v) }

// ClearInverted removes the inverted flag.
func (a *TextArea) ClearInverted() error { return a.clearFlag("inverted") }

// Transparent reports whether the background is transparent and whether the
// flag is set.
func (a *TextArea) Transparent() (bool, bool) { return parseBool(attrOf(a.el, "transparent")) }

// SetTransparent sets the transparent flag.
func (a *TextArea) SetTransparent(v bool) error { return a.setFlag("transparent", v) }

// ClearTransparent removes the transparent flag.
func (a *TextArea) ClearTransparent() error { return a.clearFlag("transparent") }

func (a *TextArea) setFlag(name string, v bool) error {
	if err := a.book.checkWritable("set " + name); err != nil {
		return err
	}
	a.el.CreateAttr(name, formatBool(v))
	return nil
}

func (a *TextArea) clearFlag(name string) error {
	if err := a.book.checkWritable("clear " + name); err != nil {
		return err
	}
	a.el.RemoveAttr(name)
	return nil
}
