package acbf

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	acbfxml "github.com/FocuswithJustin/acbf/core/xml"
)

// testPNG returns a small PNG whose pixels depend on seed.
func testPNG(t *testing.T, seed uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: seed, G: uint8(x * 40), B: uint8(y * 60), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func writeTestFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func createTestZip(t *testing.T, path string, entries map[string][]byte, order ...string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := w.Write(entries[name]); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}

// sampleXML is a complete 1.1 document whose second page and second binary
// are embedded.
func sampleXML(t *testing.T) string {
	t.Helper()
	p2 := base64.StdEncoding.EncodeToString(testPNG(t, 2))
	return acbfxml.Declaration + `
<?xml-stylesheet type="text/css" href="styles/comic.css"?>
<ACBF xmlns="` + acbfxml.NamespaceACBF11 + `">
  <meta-data>
    <book-info>
      <author activity="Writer" lang="en">
        <first-name>Ada</first-name>
        <last-name>Lovelace</last-name>
        <email>ada@example.com</email>
      </author>
      <author>
        <nickname>Inky</nickname>
      </author>
      <book-title>Sample Comic</book-title>
      <book-title lang="de">Beispiel</book-title>
      <genre match="80">science_fiction</genre>
      <genre>humor</genre>
      <characters>
        <name>Ada</name>
        <name>Babbage</name>
      </characters>
      <annotation lang="en">
        <p>First <strong>bold</strong> line</p>
        <p>Second line</p>
      </annotation>
      <keywords>Steam, engines,computing</keywords>
      <coverpage>
        <image href="cover.png"/>
        <text-layer lang="en">
          <text-area points="10,10 50,10 50,30 10,30">
            <p>Cover text</p>
          </text-area>
        </text-layer>
      </coverpage>
      <languages>
        <text-layer lang="en" show="true"/>
      </languages>
      <sequence title="Engines" volume="2">3</sequence>
      <databaseref dbname="ComicVine" type="IssueID">4000-1</databaseref>
      <content-rating type="Age">12+</content-rating>
    </book-info>
    <publish-info>
      <publisher>Analytical Press</publisher>
      <publish-date value="2020-05-17">17 May 2020</publish-date>
      <city>London</city>
      <isbn>978-3-16-148410-0</isbn>
    </publish-info>
    <document-info>
      <author>
        <first-name>Charles</first-name>
        <last-name>Babbage</last-name>
      </author>
      <creation-date value="2021-01-02">2021-01-02</creation-date>
      <source>
        <p>Scanned from print</p>
      </source>
      <id>sample-0001</id>
      <version>1.2</version>
      <history>
        <p>1.0 initial release</p>
        <p>1.2 fixed typos</p>
      </history>
    </document-info>
  </meta-data>
  <style type="text/css">text-area { color: black; }</style>
  <body bgcolor="#000000">
    <page bgcolor="#ffffff" transition="fade">
      <title lang="en">Opening</title>
      <image href="pages/p1.png"/>
      <text-layer lang="en">
        <text-area points="0,0 100,0 100,50 0,50" type="speech">
          <p>Hello <emphasis>world</emphasis></p>
        </text-area>
      </text-layer>
      <frame points="0,0 200,0 200,100 0,100"/>
      <jump points="0,0 10,10" page="2"/>
    </page>
    <page>
      <image href="#p2.png"/>
    </page>
  </body>
  <references>
    <reference id="note1">
      <p>A footnote</p>
    </reference>
  </references>
  <data>
    <binary id="p2.png" content-type="image/png">` + p2 + `</binary>
  </data>
</ACBF>
`
}

// createSampleCBZ writes sample.cbz with the sample document, its cover,
// first page and stylesheet.
func createSampleCBZ(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "sample.cbz")
	entries := map[string][]byte{
		"sample.acbf":      []byte(sampleXML(t)),
		"cover.png":        testPNG(t, 0),
		"pages/p1.png":     testPNG(t, 1),
		"styles/comic.css": []byte("p { margin: 0; }"),
	}
	createTestZip(t, path, entries, "sample.acbf", "cover.png", "pages/p1.png", "styles/comic.css")
	return path
}

// newTestBook creates a writable book in a temporary directory. It is
// closed when the test ends.
func newTestBook(t *testing.T, name string, opts ...Option) *Book {
	t.Helper()
	b, err := Open(filepath.Join(t.TempDir(), name), ModeWrite, opts...)
	if err != nil {
		t.Fatalf("Open(%s, w) error = %v", name, err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

// reopen closes b and opens its file again in mode.
func reopen(t *testing.T, b *Book, mode Mode) *Book {
	t.Helper()
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	nb, err := Open(b.Path(), mode)
	if err != nil {
		t.Fatalf("Open(%s, %s) error = %v", b.Path(), mode, err)
	}
	t.Cleanup(func() { nb.Close() })
	return nb
}

func mustPage(t *testing.T, b *Book, i int) *Page {
	t.Helper()
	p, err := b.Body().Page(i)
	if err != nil {
		t.Fatalf("Page(%d) error = %v", i, err)
	}
	return p
}

var square = []Point{{0, 0}, {0, 1}, {1, 1}, {1, 0}}
