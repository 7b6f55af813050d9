package acbf

import (
	"slices"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html"

	"github.com/FocuswithJustin/acbf/core/encoding"
)

// inlineTags are the formatting elements kept inside paragraphs.
var inlineTags = []string{"strong", "emphasis", "strikethrough", "sub", "sup", "a"}

// paragraphs returns the <p> children of e joined by newlines. Inline
// elements are kept as markup; text is XML-escaped so that the result can
// be passed back to setParagraphs unchanged.
func (b *Book) paragraphs(e *etree.Element) string {
	ps := b.all(e, "p")
	lines := make([]string, len(ps))
	for i, p := range ps {
		lines[i] = innerMarkup(p)
	}
	return strings.Join(lines, "\n")
}

// plainParagraphs returns the paragraph text without markup.
func (b *Book) plainParagraphs(e *etree.Element) string {
	ps := b.all(e, "p")
	lines := make([]string, len(ps))
	for i, p := range ps {
		var sb strings.Builder
		plainText(&sb, p)
		lines[i] = sb.String()
	}
	return strings.Join(lines, "\n")
}

func innerMarkup(e *etree.Element) string {
	var sb strings.Builder
	for _, t := range e.Child {
		switch t := t.(type) {
		case *etree.CharData:
			sb.WriteString(encoding.EscapeXMLText(t.Data))
		case *etree.Element:
			sb.WriteString("<")
			sb.WriteString(t.Tag)
			if t.Tag == "a" {
				sb.WriteString(` href="`)
				sb.WriteString(encoding.EscapeXMLAttr(attrOf(t, "href")))
				sb.WriteString(`"`)
			}
			sb.WriteString(">")
			sb.WriteString(innerMarkup(t))
			sb.WriteString("</")
			sb.WriteString(t.Tag)
			sb.WriteString(">")
		}
	}
	return sb.String()
}

func plainText(sb *strings.Builder, e *etree.Element) {
	for _, t := range e.Child {
		switch t := t.(type) {
		case *etree.CharData:
			sb.WriteString(t.Data)
		case *etree.Element:
			plainText(sb, t)
		}
	}
}

// setParagraphs replaces the <p> children of e with one paragraph per line
// of text. path is the element path of e.
func (b *Book) setParagraphs(e *etree.Element, path []string, text string) {
	for _, p := range b.all(e, "p") {
		e.RemoveChild(p)
	}
	for _, line := range strings.Split(text, "\n") {
		p := b.newElement("p")
		b.parseInline(p, strings.TrimSuffix(line, "\r"))
		b.insertOrdered(e, path, p)
	}
}

// parseInline tokenizes paragraph markup into p. Only the inline formatting
// tags survive; other tags are dropped and their text kept.
func (b *Book) parseInline(p *etree.Element, markup string) {
	z := html.NewTokenizer(strings.NewReader(markup))
	stack := []*etree.Element{p}
	top := func() *etree.Element { return stack[len(stack)-1] }

	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.TextToken:
			if text := string(z.Text()); text != "" {
				top().AddChild(etree.NewText(text))
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			z.NextIsNotRawText()
			tok := z.Token()
			if !slices.Contains(inlineTags, tok.Data) {
				continue
			}
			el := b.newElement(tok.Data)
			if tok.Data == "a" {
				href := ""
				for _, a := range tok.Attr {
					if a.Key == "href" {
						href = a.Val
					}
				}
				el.CreateAttr("href", href)
			}
			top().AddChild(el)
			if tok.Type == html.StartTagToken {
				stack = append(stack, el)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].Tag == string(name) {
					stack = stack[:i]
					break
				}
			}
		}
	}
}
