package acbf

import (
	"slices"
	"strings"

	"github.com/beevik/etree"

	"github.com/FocuswithJustin/acbf/core/errors"
)

// authorFields is the content of an <author> element.
type authorFields struct {
	FirstName  string
	MiddleName string
	LastName   string
	Nickname   string
	Activity   Activity
	Lang       string
	HomePages  []string
	Emails     []string
}

func (f authorFields) clone() authorFields {
	f.HomePages = slices.Clone(f.HomePages)
	f.Emails = slices.Clone(f.Emails)
	return f
}

func (f authorFields) validate() error {
	hasName := strings.TrimSpace(f.FirstName) != "" && strings.TrimSpace(f.LastName) != ""
	if !hasName && strings.TrimSpace(f.Nickname) == "" {
		return errors.NewValue("author", "first and last name, or a nickname, are required")
	}
	return nil
}

// Author is a person credited in book-info or document-info. An Author
// returned by a book is bound to its <author> element and every setter
// writes through to it; a new or copied Author is unbound.
type Author struct {
	f    authorFields
	book *Book
	el   *etree.Element
	path []string
}

// NewAuthor creates an unbound author from a first and last name.
func NewAuthor(firstName, lastName string) (*Author, error) {
	f := authorFields{FirstName: firstName, LastName: lastName}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &Author{f: f}, nil
}

// NewAuthorNickname creates an unbound author known by a nickname.
func NewAuthorNickname(nickname string) (*Author, error) {
	f := authorFields{Nickname: nickname}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &Author{f: f}, nil
}

func (a *Author) current() authorFields {
	if a.el != nil {
		return a.book.readAuthor(a.el)
	}
	return a.f
}

// FirstName returns the first name.
func (a *Author) FirstName() string { return a.current().FirstName }

// MiddleName returns the middle name.
func (a *Author) MiddleName() string { return a.current().MiddleName }

// LastName returns the last name.
func (a *Author) LastName() string { return a.current().LastName }

// Nickname returns the nickname.
func (a *Author) Nickname() string { return a.current().Nickname }

// Activity returns the author's role, or "".
func (a *Author) Activity() Activity { return a.current().Activity }

// Lang returns the language the author worked in, or "".
func (a *Author) Lang() string { return a.current().Lang }

// HomePages returns the author's home pages.
func (a *Author) HomePages() []string { return slices.Clone(a.current().HomePages) }

// Emails returns the author's email addresses.
func (a *Author) Emails() []string { return slices.Clone(a.current().Emails) }

// Bound reports whether the author is attached to a book.
func (a *Author) Bound() bool { return a.book != nil }

// String returns the display name.
func (a *Author) String() string {
	f := a.current()
	name := strings.Join(strings.Fields(f.FirstName+" "+f.MiddleName+" "+f.LastName), " ")
	switch {
	case name == "":
		return f.Nickname
	case f.Nickname != "":
		return name + " (" + f.Nickname + ")"
	}
	return name
}

// Copy returns an unbound author with the same fields.
func (a *Author) Copy() *Author {
	return &Author{f: a.current().clone()}
}

// Equal reports whether both authors have the same fields.
func (a *Author) Equal(o *Author) bool {
	x, y := a.current(), o.current()
	return x.FirstName == y.FirstName && x.MiddleName == y.MiddleName &&
		x.LastName == y.LastName && x.Nickname == y.Nickname &&
		x.Activity == y.Activity && x.Lang == y.Lang &&
		slices.Equal(x.HomePages, y.HomePages) && slices.Equal(x.Emails, y.Emails)
}

// update validates the edited fields before applying them to the author and
// its element.
func (a *Author) update(op string, fn func(*authorFields) error) error {
	if a.book != nil {
		if err := a.book.checkWritable(op); err != nil {
			return err
		}
	}
	f := a.current().clone()
	if err := fn(&f); err != nil {
		return err
	}
	if err := f.validate(); err != nil {
		return err
	}
	if a.el != nil {
		a.book.writeAuthor(a.el, a.path, f)
	}
	a.f = f
	return nil
}

// SetFirstName sets the first name; "" clears it.
func (a *Author) SetFirstName(s string) error {
	return a.update("set author first name", func(f *authorFields) error {
		f.FirstName = strings.TrimSpace(s)
		return nil
	})
}

// SetMiddleName sets the middle name; "" clears it.
func (a *Author) SetMiddleName(s string) error {
	return a.update("set author middle name", func(f *authorFields) error {
		f.MiddleName = strings.TrimSpace(s)
		return nil
	})
}

// SetLastName sets the last name; "" clears it.
func (a *Author) SetLastName(s string) error {
	return a.update("set author last name", func(f *authorFields) error {
		f.LastName = strings.TrimSpace(s)
		return nil
	})
}

// SetNickname sets the nickname; "" clears it.
func (a *Author) SetNickname(s string) error {
	return a.update("set author nickname", func(f *authorFields) error {
		f.Nickname = strings.TrimSpace(s)
		return nil
	})
}

// SetActivity sets the author's role; "" clears it.
func (a *Author) SetActivity(act Activity) error {
	return a.update("set author activity", func(f *authorFields) error {
		if act != "" && !slices.Contains(activities, act) {
			return errors.NewValuef("activity", "unknown activity %q", act)
		}
		f.Activity = act
		return nil
	})
}

// SetLang sets the author's language; "" clears it.
func (a *Author) SetLang(lang string) error {
	return a.update("set author lang", func(f *authorFields) error {
		if strings.TrimSpace(lang) == "" {
			f.Lang = ""
			return nil
		}
		key, err := CanonicalLang(lang)
		if err != nil {
			return err
		}
		f.Lang = langAttr(key)
		return nil
	})
}

// SetHomePages replaces the author's home pages.
func (a *Author) SetHomePages(pages ...string) error {
	return a.update("set author home pages", func(f *authorFields) error {
		f.HomePages = nonEmpty(pages)
		return nil
	})
}

// SetEmails replaces the author's email addresses.
func (a *Author) SetEmails(emails ...string) error {
	return a.update("set author emails", func(f *authorFields) error {
		f.Emails = nonEmpty(emails)
		return nil
	})
}

// Set edits a field by its element or attribute name.
func (a *Author) Set(field, value string) error {
	switch field {
	case "first-name":
		return a.SetFirstName(value)
	case "middle-name":
		return a.SetMiddleName(value)
	case "last-name":
		return a.SetLastName(value)
	case "nickname":
		return a.SetNickname(value)
	case "home-page":
		return a.SetHomePages(value)
	case "email":
		return a.SetEmails(value)
	case "activity":
		if value == "" {
			return a.SetActivity("")
		}
		act, err := ParseActivity(value)
		if err != nil {
			return err
		}
		return a.SetActivity(act)
	case "lang":
		return a.SetLang(value)
	}
	return errors.NewAttribute("Author", field)
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (b *Book) readAuthor(el *etree.Element) authorFields {
	f := authorFields{
		FirstName:  textOf(b.first(el, "first-name")),
		MiddleName: textOf(b.first(el, "middle-name")),
		LastName:   textOf(b.first(el, "last-name")),
		Nickname:   textOf(b.first(el, "nickname")),
		Activity:   Activity(attrOf(el, "activity")),
		Lang:       attrOf(el, "lang"),
	}
	for _, e := range b.all(el, "home-page") {
		f.HomePages = append(f.HomePages, textOf(e))
	}
	for _, e := range b.all(el, "email") {
		f.Emails = append(f.Emails, textOf(e))
	}
	return f
}

// writeAuthor rewrites the content of an <author> element from f.
func (b *Book) writeAuthor(el *etree.Element, path []string, f authorFields) {
	for _, child := range el.ChildElements() {
		el.RemoveChild(child)
	}
	setAttr(el, "activity", string(f.Activity))
	setAttr(el, "lang", f.Lang)

	add := func(tag, text string) {
		if text == "" {
			return
		}
		e := b.newElement(tag)
		e.SetText(text)
		b.insertOrdered(el, path, e)
	}
	add("first-name", f.FirstName)
	add("middle-name", f.MiddleName)
	add("last-name", f.LastName)
	add("nickname", f.Nickname)
	for _, p := range f.HomePages {
		add("home-page", p)
	}
	for _, m := range f.Emails {
		add("email", m)
	}
}

// authorList manages the <author> children of book-info or document-info.
type authorList struct {
	book *Book
	path []string // element path of the parent
}

func (l authorList) parent() *etree.Element {
	return l.book.lookup(l.path[1:]...)
}

func (l authorList) authorPath() []string {
	return childPath(l.path, "author")
}

// view returns the cached bound author of el.
func (l authorList) view(el *etree.Element) *Author {
	if a, ok := l.book.authors[el]; ok {
		return a
	}
	a := &Author{book: l.book, el: el, path: l.authorPath()}
	l.book.authors[el] = a
	return a
}

func (l authorList) list() []*Author {
	els := l.book.all(l.parent(), "author")
	out := make([]*Author, len(els))
	for i, el := range els {
		out[i] = l.view(el)
	}
	return out
}

func (l authorList) insert(i int, a *Author) error {
	if err := l.book.checkWritable("add author"); err != nil {
		return err
	}
	if a.book != nil {
		return errors.NewValue("author", "already bound to a book; attach a Copy instead")
	}
	f := a.current().clone()
	if err := f.validate(); err != nil {
		return err
	}
	if _, err := normIndex("author", i, len(l.book.all(l.parent(), "author")), true); err != nil {
		return err
	}
	parent := l.book.ensurePath(l.path[1:]...)
	el := l.book.newElement("author")
	if err := l.book.insertSibling(parent, l.path, i, el); err != nil {
		return err
	}
	l.book.writeAuthor(el, l.authorPath(), f)

	a.book, a.el, a.path, a.f = l.book, el, l.authorPath(), f
	l.book.authors[el] = a
	return nil
}

func (l authorList) remove(i int) error {
	if err := l.book.checkWritable("remove author"); err != nil {
		return err
	}
	parent := l.parent()
	els := l.book.all(parent, "author")
	j, err := normIndex("author", i, len(els), false)
	if err != nil {
		return err
	}
	el := els[j]
	// Fields resolve through the document namespace, so read them while
	// el is still attached.
	if a, ok := l.book.authors[el]; ok {
		a.f = l.book.readAuthor(el)
		a.book, a.el, a.path = nil, nil, nil
		delete(l.book.authors, el)
	}
	parent.RemoveChild(el)
	return nil
}
