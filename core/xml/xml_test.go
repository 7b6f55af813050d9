package xml

import (
	"strings"
	"testing"
)

const sampleACBF = `<?xml version="1.0" encoding="UTF-8"?>
<?xml-stylesheet type="text/css" href="style.css"?>
<ACBF xmlns="http://www.acbf.info/xml/acbf/1.1">
  <meta-data>
    <book-info>
      <author activity="Writer"><first-name>Hugh</first-name><last-name>Mann</last-name></author>
      <book-title>Test</book-title>
      <genre match="80">adventure</genre>
      <coverpage><image href="#cover.png"/></coverpage>
    </book-info>
    <publish-info>
      <publisher>ACME</publisher>
      <publish-date value="2024-01-31">January 2024</publish-date>
    </publish-info>
    <document-info>
      <creation-date value="2024-01-31">2024-01-31</creation-date>
    </document-info>
  </meta-data>
  <body>
    <page transition="fade">
      <image href="p1.png"/>
      <text-layer lang="en">
        <text-area points="0,0 10,0 10,10" text-rotation="45" type="speech"><p>Hello <strong>world</strong></p></text-area>
      </text-layer>
      <frame points="0,0 5,5"/>
      <jump points="1,1 2,2" page="0"/>
    </page>
  </body>
  <data>
    <binary id="cover.png" content-type="image/png">iVBORw0KGgo=</binary>
  </data>
</ACBF>
`

// TestParseValidXML verifies parsing of well-formed XML.
func TestParseValidXML(t *testing.T) {
	doc, err := Parse([]byte(sampleACBF))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.Root().Tag != RootElement {
		t.Errorf("root = %q, want %q", doc.Root().Tag, RootElement)
	}
}

// TestParseStripsBOM verifies a UTF-8 byte order mark is ignored.
func TestParseStripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`<root/>`)...)
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.Root().Tag != "root" {
		t.Errorf("root = %q", doc.Root().Tag)
	}
}

// TestParseInvalidXML verifies error handling for malformed XML.
func TestParseInvalidXML(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"unclosed tag", "<root><element></root>"},
		{"mismatched tags", "<root></other>"},
		{"invalid chars", "<root>\x00</root>"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.xml)); err == nil {
				t.Error("Parse should fail for invalid XML")
			}
		})
	}
}

func TestVersionForNamespace(t *testing.T) {
	tests := []struct {
		ns   string
		want Version
	}{
		{NamespaceACBF10, Version10},
		{NamespaceACBF11, Version11},
		{" " + NamespaceACBF11 + " ", Version11},
		{"http://example.com/other", VersionUnknown},
		{"", VersionUnknown},
	}
	for _, tt := range tests {
		if got := VersionForNamespace(tt.ns); got != tt.want {
			t.Errorf("VersionForNamespace(%q) = %q, want %q", tt.ns, got, tt.want)
		}
	}
	if Version11.Namespace() != NamespaceACBF11 || Version10.Namespace() != NamespaceACBF10 {
		t.Error("Namespace() does not invert VersionForNamespace")
	}
}

func TestDocumentVersion(t *testing.T) {
	doc, err := Parse([]byte(sampleACBF))
	if err != nil {
		t.Fatal(err)
	}
	ns, v := DocumentVersion(doc)
	if ns != NamespaceACBF11 || v != Version11 {
		t.Errorf("DocumentVersion = (%q, %q)", ns, v)
	}
}

// TestValidateWellFormed verifies well-formedness validation.
func TestValidateWellFormed(t *testing.T) {
	if result := Validate([]byte(`<?xml version="1.0"?><root><child/></root>`), nil); !result.Valid {
		t.Errorf("Valid XML should pass: %v", result.Errors)
	}
	result := Validate([]byte("<root>\n<child>\n</root>"), nil)
	if result.Valid {
		t.Fatal("malformed XML should fail")
	}
	if result.Errors[0].Line < 1 {
		t.Errorf("error should carry a line number: %+v", result.Errors[0])
	}
}

func TestBundledSchemasCompile(t *testing.T) {
	for _, v := range []Version{Version10, Version11} {
		s, err := SchemaFor(v)
		if err != nil {
			t.Fatalf("SchemaFor(%s): %v", v, err)
		}
		if s.TargetNamespace != v.Namespace() {
			t.Errorf("schema %s targets %q", v, s.TargetNamespace)
		}
	}
	if _, err := SchemaFor(VersionUnknown); err == nil {
		t.Error("SchemaFor(unknown) should fail")
	}
}

func TestValidateACBF(t *testing.T) {
	schema, err := SchemaFor(Version11)
	if err != nil {
		t.Fatal(err)
	}
	if result := Validate([]byte(sampleACBF), schema); !result.Valid {
		t.Fatalf("sample should validate: %v", result.Messages())
	}

	tests := []struct {
		name    string
		old     string
		new     string
		wantErr string
	}{
		{
			name:    "rotation out of range",
			old:     `text-rotation="45"`,
			new:     `text-rotation="400"`,
			wantErr: "greater than 360",
		},
		{
			name:    "unknown transition",
			old:     `transition="fade"`,
			new:     `transition="wipe"`,
			wantErr: "is not one of",
		},
		{
			name:    "unknown text area type",
			old:     `type="speech"`,
			new:     `type="shout"`,
			wantErr: "is not one of",
		},
		{
			name:    "genre match out of range",
			old:     `match="80"`,
			new:     `match="101"`,
			wantErr: "greater than 100",
		},
		{
			name:    "unknown genre",
			old:     `>adventure<`,
			new:     `>cooking<`,
			wantErr: "is not one of",
		},
		{
			name:    "missing points",
			old:     `<frame points="0,0 5,5"/>`,
			new:     `<frame/>`,
			wantErr: `missing required attribute "points"`,
		},
		{
			name:    "malformed points",
			old:     `points="0,0 5,5"`,
			new:     `points="0;0"`,
			wantErr: "pattern",
		},
		{
			name:    "negative jump target",
			old:     `page="0"`,
			new:     `page="-1"`,
			wantErr: "non-negative",
		},
		{
			name:    "unknown element",
			old:     `<book-title>Test</book-title>`,
			new:     `<book-title>Test</book-title><colour/>`,
			wantErr: "unexpected element <colour>",
		},
		{
			name:    "elements out of order",
			old:     `<frame points="0,0 5,5"/>`,
			new:     `<frame points="0,0 5,5"/><title>late</title>`,
			wantErr: "invalid content",
		},
		{
			name:    "unknown attribute",
			old:     `<page transition="fade">`,
			new:     `<page transition="fade" zoom="2">`,
			wantErr: `attribute "zoom" is not allowed`,
		},
		{
			name:    "text in element-only content",
			old:     `<body>`,
			new:     `<body>stray`,
			wantErr: "text content is not allowed",
		},
		{
			name:    "bad date value",
			old:     `<publish-date value="2024-01-31">`,
			new:     `<publish-date value="31/01/2024">`,
			wantErr: "not a date",
		},
		{
			name:    "bad base64",
			old:     `iVBORw0KGgo=`,
			new:     `not*base64`,
			wantErr: "base64",
		},
		{
			name:    "disallowed inline tag",
			old:     `<strong>world</strong>`,
			new:     `<blink>world</blink>`,
			wantErr: "unexpected element <blink>",
		},
		{
			name:    "wrong namespace",
			old:     NamespaceACBF11,
			new:     NamespaceACBF10,
			wantErr: "does not match schema namespace",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(sampleACBF, tt.old) {
				t.Fatalf("fixture does not contain %q", tt.old)
			}
			data := strings.Replace(sampleACBF, tt.old, tt.new, 1)
			result := Validate([]byte(data), schema)
			if result.Valid {
				t.Fatal("expected validation failure")
			}
			joined := strings.Join(result.Messages(), "\n")
			if !strings.Contains(joined, tt.wantErr) {
				t.Errorf("errors %q do not mention %q", joined, tt.wantErr)
			}
		})
	}
}

func TestValidationErrorPath(t *testing.T) {
	schema, err := SchemaFor(Version11)
	if err != nil {
		t.Fatal(err)
	}
	data := strings.Replace(sampleACBF, `text-rotation="45"`, `text-rotation="-1"`, 1)
	result := Validate([]byte(data), schema)
	if result.Valid {
		t.Fatal("expected failure")
	}
	want := "/ACBF/body/page/text-layer/text-area"
	if result.Errors[0].Path != want {
		t.Errorf("Path = %q, want %q", result.Errors[0].Path, want)
	}
	if result.Errors[0].Line < 20 {
		t.Errorf("Line = %d, want the text-area line", result.Errors[0].Line)
	}
}

func TestChildOrder(t *testing.T) {
	schema, err := SchemaFor(Version11)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path []string
		want []string
	}{
		{[]string{"ACBF"}, []string{"meta-data", "style", "body", "references", "data"}},
		{[]string{"ACBF", "body", "page"}, []string{"title", "image", "text-layer", "frame", "jump"}},
		{[]string{"ACBF", "meta-data", "book-info", "coverpage"}, []string{"image", "text-layer", "frame", "jump"}},
		{[]string{"ACBF", "body", "page", "text-layer"}, []string{"text-area"}},
		{[]string{"ACBF", "meta-data"}, []string{"book-info", "publish-info", "document-info"}},
		{[]string{"ACBF", "meta-data", "book-info"}, []string{"author", "book-title", "genre", "characters", "annotation", "keywords", "coverpage", "languages", "sequence", "databaseref", "content-rating"}},
		{[]string{"ACBF", "meta-data", "publish-info"}, []string{"publisher", "publish-date", "city", "isbn", "license"}},
		{[]string{"ACBF", "meta-data", "document-info"}, []string{"author", "creation-date", "source", "id", "version", "history"}},
		{[]string{"ACBF", "meta-data", "book-info", "languages", "text-layer"}, nil},
		{[]string{"ACBF", "nope"}, nil},
		{nil, nil},
	}
	for _, tt := range tests {
		got := schema.ChildOrder(tt.path...)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("ChildOrder(%v) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestVersion10SchemaIsStricter(t *testing.T) {
	schema, err := SchemaFor(Version10)
	if err != nil {
		t.Fatal(err)
	}
	data := strings.Replace(sampleACBF, NamespaceACBF11, NamespaceACBF10, 1)
	result := Validate([]byte(data), schema)
	if result.Valid {
		t.Fatal("1.0 schema should reject the 1.1 text-area type attribute")
	}
	if !strings.Contains(strings.Join(result.Messages(), "\n"), `"type"`) {
		t.Errorf("unexpected errors: %v", result.Messages())
	}
}
