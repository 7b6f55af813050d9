package acbf

import (
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/FocuswithJustin/acbf/core/errors"
)

// PublishInfo is the publish-info metadata.
type PublishInfo struct {
	book *Book
}

func (pi *PublishInfo) el() *etree.Element {
	return pi.book.lookup("meta-data", "publish-info")
}

func (pi *PublishInfo) child(tag string) *etree.Element {
	return pi.book.first(pi.el(), tag)
}

// Publisher returns the publisher name.
func (pi *PublishInfo) Publisher() string { return textOf(pi.child("publisher")) }

// SetPublisher sets the publisher name, which is required.
func (pi *PublishInfo) SetPublisher(name string) error {
	if err := pi.book.checkWritable("set publisher"); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return errors.NewValue("publisher", "publisher name is required")
	}
	return pi.book.setOptionalText(pathPublishInfo, "publisher", name)
}

// PublishDate returns the publish date.
func (pi *PublishInfo) PublishDate() Date { return readDate(pi.child("publish-date")) }

// SetPublishDate sets the publish date. With includeDate the value
// attribute carries the ISO date; otherwise it is removed.
func (pi *PublishInfo) SetPublishDate(d Date, includeDate bool) error {
	if err := pi.book.checkWritable("set publish date"); err != nil {
		return err
	}
	return pi.book.setDate(pathPublishInfo, "publish-date", d, includeDate)
}

// City returns the city of publication.
func (pi *PublishInfo) City() string { return textOf(pi.child("city")) }

// SetCity sets the city of publication; "" removes it.
func (pi *PublishInfo) SetCity(city string) error {
	if err := pi.book.checkWritable("set city"); err != nil {
		return err
	}
	return pi.book.setOptionalText(pathPublishInfo, "city", city)
}

// ISBN returns the ISBN.
func (pi *PublishInfo) ISBN() string { return textOf(pi.child("isbn")) }

// SetISBN sets the ISBN; "" removes it.
func (pi *PublishInfo) SetISBN(isbn string) error {
	if err := pi.book.checkWritable("set isbn"); err != nil {
		return err
	}
	return pi.book.setOptionalText(pathPublishInfo, "isbn", isbn)
}

// License returns the license text.
func (pi *PublishInfo) License() string { return textOf(pi.child("license")) }

// SetLicense sets the license text; "" removes it.
func (pi *PublishInfo) SetLicense(license string) error {
	if err := pi.book.checkWritable("set license"); err != nil {
		return err
	}
	return pi.book.setOptionalText(pathPublishInfo, "license", license)
}

// setOptionalText finds or creates the child tag of the element at path
// and sets its text; empty text removes the child.
func (b *Book) setOptionalText(path []string, tag, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		parent := b.lookup(path[1:]...)
		if el := b.first(parent, tag); el != nil {
			parent.RemoveChild(el)
		}
		return nil
	}
	parent := b.ensurePath(path[1:]...)
	setText(b.ensure(parent, path, tag), text)
	return nil
}

func readDate(el *etree.Element) Date {
	d := Date{Text: textOf(el)}
	if v := attrOf(el, "value"); v != "" {
		if t, err := time.Parse(isoDate, strings.TrimSpace(v)); err == nil {
			d.Value = t
		}
	}
	return d
}

func (b *Book) setDate(path []string, tag string, d Date, includeDate bool) error {
	text, value, err := d.resolve(includeDate)
	if err != nil {
		return err
	}
	parent := b.ensurePath(path[1:]...)
	el := b.ensure(parent, path, tag)
	setText(el, text)
	setAttr(el, "value", value)
	return nil
}
