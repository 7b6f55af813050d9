package xml

import (
	"bytes"
	"strings"

	"github.com/FocuswithJustin/acbf/core/encoding"
	"github.com/beevik/etree"
)

// Declaration is the XML declaration written at the top of every document.
const Declaration = `<?xml version="1.0" encoding="UTF-8"?>`

// FormatOptions controls XML formatting behavior.
type FormatOptions struct {
	Indent string // Indentation string (e.g., "  " or "\t")
}

// inlineTags are written verbatim; whitespace inside them is content.
var inlineTags = map[string]bool{
	"p":             true,
	"strong":        true,
	"emphasis":      true,
	"strikethrough": true,
	"sub":           true,
	"sup":           true,
	"a":             true,
}

// Serialize pretty-prints the document as UTF-8. Processing instructions
// and comments outside the root element are preserved; paragraph and mixed
// content is written without added whitespace.
func Serialize(doc *etree.Document, opts FormatOptions) []byte {
	if opts.Indent == "" {
		opts.Indent = "  "
	}

	var buf bytes.Buffer
	buf.WriteString(Declaration)
	buf.WriteString("\n")
	for _, t := range doc.Child {
		switch t := t.(type) {
		case *etree.ProcInst:
			if t.Target == "xml" {
				continue
			}
			writeProcInst(&buf, t)
			buf.WriteString("\n")
		case *etree.Comment:
			buf.WriteString("<!--")
			buf.WriteString(t.Data)
			buf.WriteString("-->\n")
		case *etree.Directive:
			buf.WriteString("<!")
			buf.WriteString(t.Data)
			buf.WriteString(">\n")
		case *etree.Element:
			formatElement(&buf, t, 0, opts.Indent)
		}
	}
	return buf.Bytes()
}

// Format formats/pretty-prints XML data.
func Format(data []byte, opts FormatOptions) ([]byte, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Serialize(doc, opts), nil
}

// formatElement recursively formats an element on its own line.
func formatElement(w *bytes.Buffer, e *etree.Element, depth int, indent string) {
	writeIndent(w, depth, indent)
	writeStartTag(w, e)

	if len(e.Child) == 0 {
		w.WriteString("/>\n")
		return
	}

	hasElementChildren := false
	hasText := false
	hasNewline := false
	for _, t := range e.Child {
		switch t := t.(type) {
		case *etree.Element:
			hasElementChildren = true
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				hasText = true
			}
			if strings.Contains(t.Data, "\n") {
				hasNewline = true
			}
		}
	}

	// Leftover indentation of removed children.
	if !hasElementChildren && !hasText && hasNewline {
		w.WriteString("/>\n")
		return
	}

	// Text-only, mixed and paragraph content is content-significant.
	if !hasElementChildren || hasText || inlineTags[e.Tag] {
		w.WriteString(">")
		writeInline(w, e.Child)
		writeEndTag(w, e)
		w.WriteString("\n")
		return
	}

	w.WriteString(">\n")
	for _, t := range e.Child {
		switch t := t.(type) {
		case *etree.Element:
			formatElement(w, t, depth+1, indent)
		case *etree.Comment:
			writeIndent(w, depth+1, indent)
			w.WriteString("<!--")
			w.WriteString(t.Data)
			w.WriteString("-->\n")
		case *etree.ProcInst:
			writeIndent(w, depth+1, indent)
			writeProcInst(w, t)
			w.WriteString("\n")
		}
	}
	writeIndent(w, depth, indent)
	writeEndTag(w, e)
	w.WriteString("\n")
}

// writeInline writes tokens exactly as they are, without indentation.
func writeInline(w *bytes.Buffer, tokens []etree.Token) {
	for _, t := range tokens {
		switch t := t.(type) {
		case *etree.CharData:
			if t.IsCData() {
				w.WriteString("<![CDATA[")
				w.WriteString(t.Data)
				w.WriteString("]]>")
			} else {
				w.WriteString(encoding.EscapeXMLText(t.Data))
			}
		case *etree.Element:
			writeStartTag(w, t)
			if len(t.Child) == 0 {
				w.WriteString("/>")
				continue
			}
			w.WriteString(">")
			writeInline(w, t.Child)
			writeEndTag(w, t)
		case *etree.Comment:
			w.WriteString("<!--")
			w.WriteString(t.Data)
			w.WriteString("-->")
		case *etree.ProcInst:
			writeProcInst(w, t)
		}
	}
}

func writeStartTag(w *bytes.Buffer, e *etree.Element) {
	w.WriteString("<")
	w.WriteString(e.FullTag())
	for _, a := range e.Attr {
		w.WriteString(" ")
		w.WriteString(a.FullKey())
		w.WriteString(`="`)
		w.WriteString(encoding.EscapeXMLAttr(a.Value))
		w.WriteString(`"`)
	}
}

func writeEndTag(w *bytes.Buffer, e *etree.Element) {
	w.WriteString("</")
	w.WriteString(e.FullTag())
	w.WriteString(">")
}

func writeProcInst(w *bytes.Buffer, p *etree.ProcInst) {
	w.WriteString("<?")
	w.WriteString(p.Target)
	if p.Inst != "" {
		w.WriteString(" ")
		w.WriteString(p.Inst)
	}
	w.WriteString("?>")
}

func writeIndent(w *bytes.Buffer, depth int, indent string) {
	for i := 0; i < depth; i++ {
		w.WriteString(indent)
	}
}
