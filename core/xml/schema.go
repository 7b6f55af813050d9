package xml

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// XSDNamespace is the namespace of W3C XML Schema documents.
const XSDNamespace = "http://www.w3.org/2001/XMLSchema"

var (
	schemaRootExpr     = mustCompileNS("/xs:schema")
	globalElementExpr  = mustCompileNS("/xs:schema/xs:element[@name]")
	globalComplexExpr  = mustCompileNS("/xs:schema/xs:complexType[@name]")
	globalSimpleExpr   = mustCompileNS("/xs:schema/xs:simpleType[@name]")
	unsupportedXSDExpr = mustCompileNS("//xs:group | //xs:attributeGroup | //xs:import | //xs:include | //xs:complexContent")
)

func mustCompileNS(expr string) *xpath.Expr {
	e, err := xpath.CompileWithNS(expr, map[string]string{"xs": XSDNamespace})
	if err != nil {
		panic(fmt.Sprintf("xml: bad schema query %q: %v", expr, err))
	}
	return e
}

// Schema is a compiled XML Schema. Only the subset of XSD used by the ACBF
// schemas is understood: global and local element declarations, named and
// anonymous complex and simple types, sequence/choice/all compositors with
// occurrence bounds, mixed content, simpleContent extensions, attributes and
// restrictions by enumeration, pattern and inclusive bounds.
type Schema struct {
	TargetNamespace string

	elements     map[string]*elementDecl
	complexTypes map[string]*complexType
	simpleTypes  map[string]*simpleType
}

type elementDecl struct {
	name    string
	complex *complexType
	simple  *simpleType
}

type complexType struct {
	name    string
	mixed   bool
	content *particle
	attrs   []*attrDecl
	text    *simpleType // simpleContent
}

type particleKind int

const (
	particleElement particleKind = iota
	particleSequence
	particleChoice
	particleAll
)

type particle struct {
	kind     particleKind
	elem     *elementDecl
	children []*particle
	min, max int // max < 0 means unbounded
}

type attrDecl struct {
	name     string
	required bool
	typ      *simpleType
}

type simpleType struct {
	name      string
	builtin   string
	base      *simpleType
	enums     []string
	patterns  []*regexp.Regexp
	minIncl   *float64
	maxIncl   *float64
	hasFacets bool
}

type compiler struct {
	s        *Schema
	prefixes map[string]string
}

// CompileSchema compiles an XSD document.
func CompileSchema(data []byte) (*Schema, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	root := xmlquery.QuerySelector(doc, schemaRootExpr)
	if root == nil {
		return nil, fmt.Errorf("not an XML schema: missing xs:schema root")
	}
	if n := xmlquery.QuerySelector(doc, unsupportedXSDExpr); n != nil {
		return nil, fmt.Errorf("unsupported schema construct xs:%s", n.Data)
	}

	c := &compiler{
		s: &Schema{
			TargetNamespace: root.SelectAttr("targetNamespace"),
			elements:        make(map[string]*elementDecl),
			complexTypes:    make(map[string]*complexType),
			simpleTypes:     make(map[string]*simpleType),
		},
		prefixes: make(map[string]string),
	}
	for _, a := range root.Attr {
		switch {
		case a.Name.Space == "xmlns":
			c.prefixes[a.Name.Local] = a.Value
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			c.prefixes[""] = a.Value
		}
	}

	// Register named components first so references resolve regardless of
	// declaration order.
	simples := xmlquery.QuerySelectorAll(doc, globalSimpleExpr)
	for _, n := range simples {
		name := n.SelectAttr("name")
		c.s.simpleTypes[name] = &simpleType{name: name}
	}
	complexes := xmlquery.QuerySelectorAll(doc, globalComplexExpr)
	for _, n := range complexes {
		name := n.SelectAttr("name")
		c.s.complexTypes[name] = &complexType{name: name}
	}
	elements := xmlquery.QuerySelectorAll(doc, globalElementExpr)
	for _, n := range elements {
		name := n.SelectAttr("name")
		c.s.elements[name] = &elementDecl{name: name}
	}

	for _, n := range simples {
		if err := c.fillSimpleType(c.s.simpleTypes[n.SelectAttr("name")], n); err != nil {
			return nil, err
		}
	}
	for _, n := range complexes {
		if err := c.fillComplexType(c.s.complexTypes[n.SelectAttr("name")], n); err != nil {
			return nil, err
		}
	}
	for _, n := range elements {
		if err := c.fillElement(c.s.elements[n.SelectAttr("name")], n); err != nil {
			return nil, err
		}
	}
	return c.s, nil
}

// xsChildren returns the XSD element children of n.
func xsChildren(n *xmlquery.Node) []*xmlquery.Node {
	var out []*xmlquery.Node
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type == xmlquery.ElementNode && ch.NamespaceURI == XSDNamespace {
			if ch.Data == "annotation" {
				continue
			}
			out = append(out, ch)
		}
	}
	return out
}

// splitQName resolves a QName attribute value into (namespace, local).
func (c *compiler) splitQName(qname string) (string, string) {
	prefix, local := "", qname
	if i := strings.IndexByte(qname, ':'); i >= 0 {
		prefix, local = qname[:i], qname[i+1:]
	}
	return c.prefixes[prefix], local
}

func (c *compiler) lookupSimple(qname string) (*simpleType, error) {
	ns, local := c.splitQName(qname)
	if ns == XSDNamespace {
		if !isBuiltin(local) {
			return nil, fmt.Errorf("unsupported builtin type xs:%s", local)
		}
		return &simpleType{name: local, builtin: local}, nil
	}
	if st, ok := c.s.simpleTypes[local]; ok {
		return st, nil
	}
	return nil, fmt.Errorf("unknown simple type %q", qname)
}

func (c *compiler) fillElement(decl *elementDecl, n *xmlquery.Node) error {
	if typ := n.SelectAttr("type"); typ != "" {
		ns, local := c.splitQName(typ)
		if ns != XSDNamespace {
			if ct, ok := c.s.complexTypes[local]; ok {
				decl.complex = ct
				return nil
			}
		}
		st, err := c.lookupSimple(typ)
		if err != nil {
			return fmt.Errorf("element %s: %w", decl.name, err)
		}
		decl.simple = st
		return nil
	}
	for _, ch := range xsChildren(n) {
		switch ch.Data {
		case "complexType":
			ct := &complexType{}
			if err := c.fillComplexType(ct, ch); err != nil {
				return fmt.Errorf("element %s: %w", decl.name, err)
			}
			decl.complex = ct
			return nil
		case "simpleType":
			st := &simpleType{}
			if err := c.fillSimpleType(st, ch); err != nil {
				return fmt.Errorf("element %s: %w", decl.name, err)
			}
			decl.simple = st
			return nil
		}
	}
	// No type at all: xs:anyType would apply; treat as string content.
	decl.simple = &simpleType{name: "string", builtin: "string"}
	return nil
}

func (c *compiler) fillSimpleType(st *simpleType, n *xmlquery.Node) error {
	for _, ch := range xsChildren(n) {
		if ch.Data != "restriction" {
			return fmt.Errorf("simple type %s: unsupported xs:%s", st.name, ch.Data)
		}
		if base := ch.SelectAttr("base"); base != "" {
			bt, err := c.lookupSimple(base)
			if err != nil {
				return fmt.Errorf("simple type %s: %w", st.name, err)
			}
			st.base = bt
		}
		for _, facet := range xsChildren(ch) {
			value := facet.SelectAttr("value")
			switch facet.Data {
			case "simpleType":
				bt := &simpleType{}
				if err := c.fillSimpleType(bt, facet); err != nil {
					return err
				}
				st.base = bt
				continue
			case "enumeration":
				st.enums = append(st.enums, value)
			case "pattern":
				re, err := regexp.Compile("^(?:" + value + ")$")
				if err != nil {
					return fmt.Errorf("simple type %s: bad pattern %q: %w", st.name, value, err)
				}
				st.patterns = append(st.patterns, re)
			case "minInclusive", "maxInclusive":
				f, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return fmt.Errorf("simple type %s: bad %s %q", st.name, facet.Data, value)
				}
				if facet.Data == "minInclusive" {
					st.minIncl = &f
				} else {
					st.maxIncl = &f
				}
			case "whiteSpace", "minLength", "maxLength":
				// accepted, not enforced
			default:
				return fmt.Errorf("simple type %s: unsupported facet xs:%s", st.name, facet.Data)
			}
			st.hasFacets = true
		}
	}
	if st.base == nil && st.builtin == "" {
		st.builtin = "string"
	}
	return nil
}

func (c *compiler) fillComplexType(ct *complexType, n *xmlquery.Node) error {
	ct.mixed = n.SelectAttr("mixed") == "true"
	for _, ch := range xsChildren(n) {
		switch ch.Data {
		case "sequence", "choice", "all":
			p, err := c.compileParticle(ch)
			if err != nil {
				return fmt.Errorf("complex type %s: %w", ct.name, err)
			}
			ct.content = p
		case "attribute":
			a, err := c.compileAttr(ch)
			if err != nil {
				return fmt.Errorf("complex type %s: %w", ct.name, err)
			}
			ct.attrs = append(ct.attrs, a)
		case "simpleContent":
			if err := c.fillSimpleContent(ct, ch); err != nil {
				return fmt.Errorf("complex type %s: %w", ct.name, err)
			}
		default:
			return fmt.Errorf("complex type %s: unsupported xs:%s", ct.name, ch.Data)
		}
	}
	return nil
}

func (c *compiler) fillSimpleContent(ct *complexType, n *xmlquery.Node) error {
	for _, ext := range xsChildren(n) {
		if ext.Data != "extension" {
			return fmt.Errorf("unsupported simpleContent xs:%s", ext.Data)
		}
		st, err := c.lookupSimple(ext.SelectAttr("base"))
		if err != nil {
			return err
		}
		ct.text = st
		for _, ch := range xsChildren(ext) {
			if ch.Data != "attribute" {
				return fmt.Errorf("unsupported extension child xs:%s", ch.Data)
			}
			a, err := c.compileAttr(ch)
			if err != nil {
				return err
			}
			ct.attrs = append(ct.attrs, a)
		}
	}
	return nil
}

func (c *compiler) compileAttr(n *xmlquery.Node) (*attrDecl, error) {
	a := &attrDecl{
		name:     n.SelectAttr("name"),
		required: n.SelectAttr("use") == "required",
	}
	if typ := n.SelectAttr("type"); typ != "" {
		st, err := c.lookupSimple(typ)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.name, err)
		}
		a.typ = st
		return a, nil
	}
	for _, ch := range xsChildren(n) {
		if ch.Data == "simpleType" {
			st := &simpleType{}
			if err := c.fillSimpleType(st, ch); err != nil {
				return nil, fmt.Errorf("attribute %s: %w", a.name, err)
			}
			a.typ = st
		}
	}
	if a.typ == nil {
		a.typ = &simpleType{name: "string", builtin: "string"}
	}
	return a, nil
}

func (c *compiler) compileParticle(n *xmlquery.Node) (*particle, error) {
	p := &particle{min: 1, max: 1}
	if v := n.SelectAttr("minOccurs"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 0 {
			return nil, fmt.Errorf("bad minOccurs %q", v)
		}
		p.min = m
	}
	if v := n.SelectAttr("maxOccurs"); v != "" {
		if v == "unbounded" {
			p.max = -1
		} else {
			m, err := strconv.Atoi(v)
			if err != nil || m < 0 {
				return nil, fmt.Errorf("bad maxOccurs %q", v)
			}
			p.max = m
		}
	}

	switch n.Data {
	case "element":
		p.kind = particleElement
		if ref := n.SelectAttr("ref"); ref != "" {
			_, local := c.splitQName(ref)
			decl, ok := c.s.elements[local]
			if !ok {
				return nil, fmt.Errorf("unknown element ref %q", ref)
			}
			p.elem = decl
			return p, nil
		}
		decl := &elementDecl{name: n.SelectAttr("name")}
		if err := c.fillElement(decl, n); err != nil {
			return nil, err
		}
		p.elem = decl
		return p, nil
	case "sequence":
		p.kind = particleSequence
	case "choice":
		p.kind = particleChoice
	case "all":
		p.kind = particleAll
	default:
		return nil, fmt.Errorf("unsupported particle xs:%s", n.Data)
	}
	for _, ch := range xsChildren(n) {
		cp, err := c.compileParticle(ch)
		if err != nil {
			return nil, err
		}
		p.children = append(p.children, cp)
	}
	return p, nil
}

// ChildOrder returns the element names allowed as children of the element
// at path (root first), in schema order. It returns nil when the path does
// not resolve to an element with element content.
func (s *Schema) ChildOrder(path ...string) []string {
	if s == nil || len(path) == 0 {
		return nil
	}
	decl := s.elements[path[0]]
	for _, name := range path[1:] {
		if decl == nil || decl.complex == nil {
			return nil
		}
		decl = decl.complex.childDecl(name)
	}
	if decl == nil || decl.complex == nil || decl.complex.content == nil {
		return nil
	}
	var names []string
	decl.complex.content.walk(func(d *elementDecl) {
		if !slices.Contains(names, d.name) {
			names = append(names, d.name)
		}
	})
	return names
}

// RootElements returns the names of the global element declarations.
func (s *Schema) RootElements() []string {
	names := make([]string, 0, len(s.elements))
	for name := range s.elements {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (p *particle) walk(fn func(*elementDecl)) {
	if p.kind == particleElement {
		fn(p.elem)
		return
	}
	for _, ch := range p.children {
		ch.walk(fn)
	}
}

func (ct *complexType) childDecl(name string) *elementDecl {
	if ct.content == nil {
		return nil
	}
	var found *elementDecl
	ct.content.walk(func(d *elementDecl) {
		if found == nil && d.name == name {
			found = d
		}
	})
	return found
}

func (ct *complexType) attr(name string) *attrDecl {
	for _, a := range ct.attrs {
		if a.name == name {
			return a
		}
	}
	return nil
}

// match returns the sorted set of positions in names reachable after
// matching p (with its occurrence bounds) starting at pos.
func (p *particle) match(names []string, pos int) []int {
	limit := p.max
	if limit < 0 || limit > len(names)-pos+p.min+1 {
		limit = len(names) - pos + p.min + 1
	}

	var result []int
	if p.min == 0 {
		result = append(result, pos)
	}
	cur := []int{pos}
	for i := 1; i <= limit && len(cur) > 0; i++ {
		var next []int
		for _, at := range cur {
			next = union(next, p.matchOnce(names, at))
		}
		if i >= p.min {
			result = union(result, next)
		}
		if slices.Equal(next, cur) {
			break
		}
		cur = next
	}
	return result
}

func (p *particle) matchOnce(names []string, pos int) []int {
	switch p.kind {
	case particleElement:
		if pos < len(names) && names[pos] == p.elem.name {
			return []int{pos + 1}
		}
		return nil
	case particleSequence:
		cur := []int{pos}
		for _, ch := range p.children {
			var next []int
			for _, at := range cur {
				next = union(next, ch.match(names, at))
			}
			if len(next) == 0 {
				return nil
			}
			cur = next
		}
		return cur
	case particleChoice:
		var out []int
		for _, ch := range p.children {
			for _, at := range ch.match(names, pos) {
				out = union(out, []int{at})
			}
		}
		return out
	case particleAll:
		seen := make(map[string]int)
		end := pos
		for end < len(names) {
			ch := p.allChild(names[end])
			if ch == nil {
				break
			}
			if ch.max >= 0 && seen[names[end]] >= ch.max {
				break
			}
			seen[names[end]]++
			end++
		}
		for _, ch := range p.children {
			if ch.kind == particleElement && seen[ch.elem.name] < ch.min {
				return nil
			}
		}
		return []int{end}
	}
	return nil
}

func (p *particle) allChild(name string) *particle {
	for _, ch := range p.children {
		if ch.kind == particleElement && ch.elem.name == name {
			return ch
		}
	}
	return nil
}

func union(a, b []int) []int {
	for _, v := range b {
		i, found := slices.BinarySearch(a, v)
		if !found {
			a = slices.Insert(a, i, v)
		}
	}
	return a
}

// String renders the content model in DTD-like notation.
func (p *particle) String() string {
	var s string
	switch p.kind {
	case particleElement:
		s = p.elem.name
	default:
		sep := ", "
		switch p.kind {
		case particleChoice:
			sep = " | "
		case particleAll:
			sep = " & "
		}
		parts := make([]string, len(p.children))
		for i, ch := range p.children {
			parts[i] = ch.String()
		}
		s = "(" + strings.Join(parts, sep) + ")"
	}
	switch {
	case p.min == 0 && p.max == 1:
		s += "?"
	case p.min == 0 && p.max < 0:
		s += "*"
	case p.min == 1 && p.max < 0:
		s += "+"
	case p.min != 1 || p.max != 1:
		s += fmt.Sprintf("{%d,%d}", p.min, p.max)
	}
	return s
}

var (
	languagePattern = regexp.MustCompile(`^[a-zA-Z]{1,8}(-[a-zA-Z0-9]{1,8})*$`)
	ncNamePattern   = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}._\-]*$`)
)

func isBuiltin(name string) bool {
	switch name {
	case "string", "normalizedString", "token", "language", "anyURI", "ID", "IDREF", "NCName",
		"integer", "int", "nonNegativeInteger", "positiveInteger", "decimal", "float", "double",
		"boolean", "date", "base64Binary":
		return true
	}
	return false
}

// check validates value against the simple type and its base chain.
func (st *simpleType) check(value string) error {
	if st.base != nil {
		if err := st.base.check(value); err != nil {
			return err
		}
	} else if err := checkBuiltin(st.builtin, value); err != nil {
		return err
	}
	if !st.hasFacets {
		return nil
	}

	v := value
	if st.collapses() {
		v = strings.TrimSpace(value)
	}
	if len(st.enums) > 0 && !slices.Contains(st.enums, v) {
		return fmt.Errorf("value %q is not one of [%s]", v, strings.Join(st.enums, ", "))
	}
	if len(st.patterns) > 0 {
		ok := false
		for _, re := range st.patterns {
			if re.MatchString(v) {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("value %q does not match the required pattern", v)
		}
	}
	if st.minIncl != nil || st.maxIncl != nil {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("value %q is not a number", v)
		}
		if st.minIncl != nil && f < *st.minIncl {
			return fmt.Errorf("value %s is less than %s", v, formatBound(*st.minIncl))
		}
		if st.maxIncl != nil && f > *st.maxIncl {
			return fmt.Errorf("value %s is greater than %s", v, formatBound(*st.maxIncl))
		}
	}
	return nil
}

// collapses reports whether the type's whitespace facet is "collapse".
func (st *simpleType) collapses() bool {
	for t := st; t != nil; t = t.base {
		if t.builtin != "" {
			return t.builtin != "string" && t.builtin != "normalizedString"
		}
	}
	return false
}

func formatBound(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func checkBuiltin(name, value string) error {
	v := strings.TrimSpace(value)
	switch name {
	case "", "string", "normalizedString", "token", "anyURI":
		return nil
	case "language":
		if !languagePattern.MatchString(v) {
			return fmt.Errorf("value %q is not a language tag", v)
		}
	case "ID", "IDREF", "NCName":
		if !ncNamePattern.MatchString(v) {
			return fmt.Errorf("value %q is not a valid name", v)
		}
	case "integer", "int":
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("value %q is not an integer", v)
		}
	case "nonNegativeInteger":
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("value %q is not a non-negative integer", v)
		}
	case "positiveInteger":
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return fmt.Errorf("value %q is not a positive integer", v)
		}
	case "decimal", "float", "double":
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("value %q is not a number", v)
		}
	case "boolean":
		switch strings.ToLower(v) {
		case "true", "false", "1", "0":
		default:
			return fmt.Errorf("value %q is not a boolean", v)
		}
	case "date":
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return fmt.Errorf("value %q is not a date (YYYY-MM-DD)", v)
		}
	case "base64Binary":
		clean := strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, v)
		if _, err := base64.StdEncoding.DecodeString(clean); err != nil {
			return fmt.Errorf("invalid base64 content: %v", err)
		}
	}
	return nil
}
