package acbf

import (
	"strings"
	"testing"

	"github.com/FocuswithJustin/acbf/core/errors"
	"github.com/FocuswithJustin/acbf/core/imageref"
)

func pageRefs(b *Book) []string {
	var refs []string
	for _, p := range b.Body().Pages() {
		refs = append(refs, p.ImageRef())
	}
	return refs
}

func TestBodyPageOperations(t *testing.T) {
	b := newTestBook(t, "pages.acbf")
	body := b.Body()
	for _, ref := range []string{"a.png", "b.png", "c.png"} {
		if _, err := body.AppendPage(ref); err != nil {
			t.Fatalf("AppendPage(%s) error = %v", ref, err)
		}
	}

	steps := []struct {
		name string
		op   func() error
		want []string
	}{
		{"insert front", func() error { _, err := body.InsertPage(0, "z.png"); return err }, []string{"z.png", "a.png", "b.png", "c.png"}},
		{"insert negative", func() error { _, err := body.InsertPage(-1, "y.png"); return err }, []string{"z.png", "a.png", "b.png", "y.png", "c.png"}},
		{"remove last", func() error { return body.RemovePage(-1) }, []string{"z.png", "a.png", "b.png", "y.png"}},
		{"move to end", func() error { return body.MovePage(0, 3) }, []string{"a.png", "b.png", "y.png", "z.png"}},
		{"move to front", func() error { return body.MovePage(2, 0) }, []string{"y.png", "a.png", "b.png", "z.png"}},
		{"move past end", func() error { return body.MovePage(1, 4) }, []string{"y.png", "b.png", "z.png", "a.png"}},
	}
	for _, s := range steps {
		if err := s.op(); err != nil {
			t.Fatalf("%s: error = %v", s.name, err)
		}
		if got := pageRefs(b); !equalStrings(got, s.want) {
			t.Fatalf("%s: pages = %v, want %v", s.name, got, s.want)
		}
	}

	if _, err := body.Page(4); !errors.Is(err, errors.ErrIndex) {
		t.Errorf("Page(4) error = %v, want ErrIndex", err)
	}
	if err := body.RemovePage(-5); !errors.Is(err, errors.ErrIndex) {
		t.Errorf("RemovePage(-5) error = %v, want ErrIndex", err)
	}
	if _, err := body.InsertPage(6, "x.png"); !errors.Is(err, errors.ErrIndex) {
		t.Errorf("InsertPage(6) error = %v, want ErrIndex", err)
	}

	r := reopen(t, b, ModeRead)
	if got := pageRefs(r); !equalStrings(got, []string{"y.png", "b.png", "z.png", "a.png"}) {
		t.Errorf("after reload pages = %v", got)
	}
}

func TestPageViewsAreStable(t *testing.T) {
	b := newTestBook(t, "stable.acbf")
	p, err := b.Body().AppendPage("a.png")
	if err != nil {
		t.Fatal(err)
	}
	if mustPage(t, b, 0) != p {
		t.Error("Page(0) returned a different view than AppendPage")
	}
	if b.BookInfo().CoverPage() != b.BookInfo().CoverPage() {
		t.Error("CoverPage() is not stable")
	}
}

func TestReorderFrames(t *testing.T) {
	b := newTestBook(t, "frames.cbz")
	page, err := b.Body().AppendPage("p1.png")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		pts := []Point{{i, i}, {i, i + 1}, {i + 1, i + 1}, {i + 1, i}}
		if _, err := page.AppendFrame(pts); err != nil {
			t.Fatalf("AppendFrame() error = %v", err)
		}
	}
	if err := page.ReorderFrame(2, 0); err != nil {
		t.Fatalf("ReorderFrame() error = %v", err)
	}

	want := []Point{{2, 2}, {0, 0}, {1, 1}}
	r := reopen(t, b, ModeRead)
	frames := mustPage(t, r, 0).Frames()
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	for i, f := range frames {
		if got := f.Points()[0]; got != want[i] {
			t.Errorf("frame %d starts at %v, want %v", i, got, want[i])
		}
	}
	xml := r.XML()
	if strings.Index(xml, `points="2,2`) > strings.Index(xml, `points="0,0`) {
		t.Error("XML frame order does not match the reordered list")
	}
}

func TestReorderFrameToEnd(t *testing.T) {
	b := newTestBook(t, "frames.acbf")
	page, _ := b.Body().AppendPage("p1.png")
	for i := 0; i < 3; i++ {
		if _, err := page.AppendFrame([]Point{{i, 0}}); err != nil {
			t.Fatal(err)
		}
	}
	if err := page.ReorderFrame(0, 3); err != nil {
		t.Fatalf("ReorderFrame(0, 3) error = %v", err)
	}
	var got []int
	for _, f := range page.Frames() {
		got = append(got, f.Points()[0].X)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 0 {
		t.Errorf("frame order = %v, want [1 2 0]", got)
	}
}

func TestFramesKeepSchemaOrderAmongSiblings(t *testing.T) {
	b := newTestBook(t, "order.acbf")
	page, _ := b.Body().AppendPage("p1.png")
	if _, err := page.AppendJump(square, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := page.AppendFrame(square); err != nil {
		t.Fatal(err)
	}
	if _, err := page.AddTextLayer("en"); err != nil {
		t.Fatal(err)
	}
	if err := page.SetTitle("Intro", NoLang); err != nil {
		t.Fatal(err)
	}

	var tags []string
	for _, e := range page.el.ChildElements() {
		tags = append(tags, e.Tag)
	}
	want := []string{"title", "image", "text-layer", "frame", "jump"}
	if !equalStrings(tags, want) {
		t.Errorf("page children = %v, want %v", tags, want)
	}
	if r := b.Validate(); !r.Valid {
		t.Errorf("document invalid: %v", r.Messages())
	}
}

func TestPointOperations(t *testing.T) {
	b := newTestBook(t, "points.acbf")
	page, _ := b.Body().AppendPage("p1.png")
	f, err := page.AppendFrame([]Point{{0, 0}})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.InsertPoint(1, Point{5, 5}); err != nil {
		t.Fatalf("InsertPoint(end) error = %v", err)
	}
	if err := f.InsertPoint(0, Point{-1, 2}); err != nil {
		t.Fatalf("InsertPoint(0) error = %v", err)
	}
	if err := f.SetPoint(-1, Point{6, 7}); err != nil {
		t.Fatalf("SetPoint(-1) error = %v", err)
	}
	if got := attrOf(f.el, "points"); got != "-1,2 0,0 6,7" {
		t.Errorf("points attribute = %q", got)
	}
	if err := f.RemovePoint(0); err != nil {
		t.Fatal(err)
	}
	if err := f.RemovePoint(0); err != nil {
		t.Fatal(err)
	}
	if err := f.RemovePoint(0); !errors.Is(err, errors.ErrValue) {
		t.Errorf("removing the last point error = %v, want ErrValue", err)
	}
	if got := f.Points(); len(got) != 1 || got[0] != (Point{6, 7}) {
		t.Errorf("points after failed removal = %v", got)
	}
	if err := f.SetPoints(nil); !errors.Is(err, errors.ErrValue) {
		t.Errorf("SetPoints(nil) error = %v, want ErrValue", err)
	}
	if err := f.SetPoint(3, Point{}); !errors.Is(err, errors.ErrIndex) {
		t.Errorf("SetPoint(3) error = %v, want ErrIndex", err)
	}
}

func TestRemoveLastPointFailsEverywhere(t *testing.T) {
	b := newTestBook(t, "last.acbf")
	page, _ := b.Body().AppendPage("p1.png")
	layer, _ := page.AddTextLayer("en")
	f, _ := page.AppendFrame([]Point{{1, 1}})
	j, _ := page.AppendJump([]Point{{2, 2}}, 0)
	a, _ := layer.AppendTextArea([]Point{{3, 3}}, "hi")

	for name, p := range map[string]polygon{"frame": f.polygon, "jump": j.polygon, "text area": a.polygon} {
		if err := p.RemovePoint(0); !errors.Is(err, errors.ErrValue) {
			t.Errorf("%s: RemovePoint error = %v, want ErrValue", name, err)
		}
		if len(p.Points()) != 1 {
			t.Errorf("%s: points changed to %v", name, p.Points())
		}
	}
}

func TestJumps(t *testing.T) {
	b := newTestBook(t, "jumps.acbf")
	page, _ := b.Body().AppendPage("p1.png")
	if _, err := page.AppendJump(square, -1); !errors.Is(err, errors.ErrValue) {
		t.Errorf("AppendJump(page -1) error = %v, want ErrValue", err)
	}
	j, err := page.AppendJump(square, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := page.InsertJump(0, []Point{{9, 9}}, 0); err != nil {
		t.Fatal(err)
	}
	if err := j.SetPage(5); err != nil {
		t.Fatal(err)
	}
	jumps := page.Jumps()
	if len(jumps) != 2 || jumps[0].Page() != 0 || jumps[1].Page() != 5 {
		t.Fatalf("jumps = %d, pages %d/%d", len(jumps), jumps[0].Page(), jumps[1].Page())
	}
	if err := page.ReorderJump(1, 0); err != nil {
		t.Fatal(err)
	}
	if page.Jumps()[0].Page() != 5 {
		t.Error("ReorderJump did not move the jump")
	}
	if err := page.RemoveJump(0); err != nil {
		t.Fatal(err)
	}
	if len(page.Jumps()) != 1 {
		t.Errorf("jumps after removal = %d", len(page.Jumps()))
	}
}

func TestTextAreaRotation(t *testing.T) {
	b := newTestBook(t, "rotation.acbf")
	page, _ := b.Body().AppendPage("p1.png")
	layer, _ := page.AddTextLayer("en")
	area, err := layer.AppendTextArea(square, "Hi")
	if err != nil {
		t.Fatal(err)
	}

	if err := area.SetRotation(-1); !errors.Is(err, errors.ErrValue) {
		t.Errorf("SetRotation(-1) error = %v, want ErrValue", err)
	}
	if err := area.SetRotation(361); !errors.Is(err, errors.ErrValue) {
		t.Errorf("SetRotation(361) error = %v, want ErrValue", err)
	}
	if err := area.SetRotation(45); err != nil {
		t.Fatalf("SetRotation(45) error = %v", err)
	}
	if deg, ok := area.Rotation(); !ok || deg != 45 {
		t.Errorf("Rotation() = %d, %v", deg, ok)
	}
	if err := area.ClearRotation(); err != nil {
		t.Fatal(err)
	}
	if _, ok := area.Rotation(); ok {
		t.Error("rotation still set after ClearRotation")
	}
	if area.el.SelectAttr("text-rotation") != nil {
		t.Error("text-rotation attribute not removed")
	}
}

func TestTextAreaAttributes(t *testing.T) {
	b := newTestBook(t, "attrs.acbf")
	page, _ := b.Body().AppendPage("p1.png")
	layer, _ := page.AddTextLayer("en")
	area, _ := layer.AppendTextArea(square, "Hi")

	if err := area.SetType("Thought"); err != nil {
		t.Fatalf("SetType() error = %v", err)
	}
	if area.Type() != TextAreaThought {
		t.Errorf("Type() = %q", area.Type())
	}
	if err := area.SetType("shout"); !errors.Is(err, errors.ErrValue) {
		t.Errorf("SetType(shout) error = %v, want ErrValue", err)
	}
	if err := area.SetType(""); err != nil || area.Type() != "" {
		t.Errorf("clearing type: %v, %q", err, area.Type())
	}

	if err := area.SetInverted(true); err != nil {
		t.Fatal(err)
	}
	if v, ok := area.Inverted(); !v || !ok {
		t.Errorf("Inverted() = %v, %v", v, ok)
	}
	if err := area.SetTransparent(false); err != nil {
		t.Fatal(err)
	}
	if v, ok := area.Transparent(); v || !ok {
		t.Errorf("Transparent() = %v, %v", v, ok)
	}
	if err := area.ClearInverted(); err != nil {
		t.Fatal(err)
	}
	if _, ok := area.Inverted(); ok {
		t.Error("inverted still set")
	}
	if err := area.SetBgColor("#ff0000"); err != nil || area.BgColor() != "#ff0000" {
		t.Errorf("BgColor = %q, %v", area.BgColor(), err)
	}
	if err := area.ClearTransparent(); err != nil {
		t.Fatal(err)
	}
	if r := b.Validate(); !r.Valid {
		t.Errorf("document invalid: %v", r.Messages())
	}
}

func TestParagraphMarkup(t *testing.T) {
	b := newTestBook(t, "markup.acbf")
	page, _ := b.Body().AppendPage("p1.png")
	layer, _ := page.AddTextLayer("en")

	tests := []struct {
		name      string
		in        string
		paragraph string
		text      string
	}{
		{"plain", "Hello", "Hello", "Hello"},
		{"lines", "Line A\nLine B", "Line A\nLine B", "Line A\nLine B"},
		{"inline", "A <strong>bold</strong> <emphasis>move</emphasis>", "A <strong>bold</strong> <emphasis>move</emphasis>", "A bold move"},
		{"nested", "<strong>x<sup>2</sup></strong>", "<strong>x<sup>2</sup></strong>", "x2"},
		{"link", `see <a href="#note1">note</a>`, `see <a href="#note1">note</a>`, "see note"},
		{"unknown tags dropped", "<b>bold</b> <span>text</span>", "bold text", "bold text"},
		{"escaped", "a &amp; b &lt;c&gt;", "a &amp; b &lt;c&gt;", "a & b <c>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			area, err := layer.AppendTextArea(square, tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got := area.Paragraph(); got != tt.paragraph {
				t.Errorf("Paragraph() = %q, want %q", got, tt.paragraph)
			}
			if got := area.Text(); got != tt.text {
				t.Errorf("Text() = %q, want %q", got, tt.text)
			}
			if err := area.SetParagraph(area.Paragraph()); err != nil {
				t.Fatal(err)
			}
			if got := area.Paragraph(); got != tt.paragraph {
				t.Errorf("Paragraph() after round trip = %q", got)
			}
		})
	}
	if r := b.Validate(); !r.Valid {
		t.Errorf("document invalid: %v", r.Messages())
	}
}

func TestTextAreaOrdering(t *testing.T) {
	b := newTestBook(t, "areas.acbf")
	page, _ := b.Body().AppendPage("p1.png")
	layer, _ := page.AddTextLayer("en")
	for _, s := range []string{"one", "two", "three"} {
		if _, err := layer.AppendTextArea(square, s); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := layer.InsertTextArea(1, square, "inserted"); err != nil {
		t.Fatal(err)
	}
	if err := layer.ReorderTextArea(-1, 0); err != nil {
		t.Fatal(err)
	}
	if err := layer.RemoveTextArea(1); err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, a := range layer.TextAreas() {
		got = append(got, a.Text())
	}
	if want := []string{"three", "inserted", "two"}; !equalStrings(got, want) {
		t.Errorf("text areas = %v, want %v", got, want)
	}
	if _, err := layer.AppendTextArea(nil, "x"); !errors.Is(err, errors.ErrValue) {
		t.Errorf("AppendTextArea(no points) error = %v, want ErrValue", err)
	}
}

func TestTextLayers(t *testing.T) {
	b := newTestBook(t, "layers.acbf")
	page, _ := b.Body().AppendPage("p1.png")

	en, err := page.AddTextLayer("EN")
	if err != nil {
		t.Fatal(err)
	}
	if en.Lang() != "en" {
		t.Errorf("Lang() = %q, want canonical en", en.Lang())
	}
	again, err := page.AddTextLayer("en")
	if err != nil || again.el != en.el {
		t.Errorf("AddTextLayer is not idempotent: %v", err)
	}
	if _, err := page.AddTextLayer(NoLang); !errors.Is(err, errors.ErrValue) {
		t.Errorf("AddTextLayer(_) error = %v, want ErrValue", err)
	}
	if _, err := page.AddTextLayer("not a tag!"); !errors.Is(err, errors.ErrValue) {
		t.Errorf("AddTextLayer(invalid) error = %v, want ErrValue", err)
	}
	if _, err := page.AddTextLayer("de"); err != nil {
		t.Fatal(err)
	}

	if err := page.ChangeTextLayerLang("en", "de"); !errors.Is(err, errors.ErrValue) {
		t.Errorf("changing to an existing lang error = %v, want ErrValue", err)
	}
	if err := page.ChangeTextLayerLang("en", "fr"); err != nil {
		t.Fatalf("ChangeTextLayerLang() error = %v", err)
	}
	if _, ok := page.TextLayer("fr"); !ok {
		t.Error("no fr layer after change")
	}
	if _, ok := page.TextLayer("en"); ok {
		t.Error("en layer still present")
	}
	if err := page.RemoveTextLayer("de"); err != nil {
		t.Fatal(err)
	}
	if err := page.RemoveTextLayer("de"); !errors.Is(err, errors.ErrEntryNotFound) {
		t.Errorf("removing a missing layer error = %v, want ErrEntryNotFound", err)
	}
	if n := len(page.TextLayers()); n != 1 {
		t.Errorf("layers = %d, want 1", n)
	}
	layer, _ := page.TextLayer("fr")
	if err := layer.SetBgColor("#eeeeee"); err != nil || layer.BgColor() != "#eeeeee" {
		t.Errorf("layer bgcolor = %q, %v", layer.BgColor(), err)
	}
}

func TestPageAttributes(t *testing.T) {
	b := newTestBook(t, "attrs.acbf")
	page, _ := b.Body().AppendPage("p1.png")

	if err := page.SetTransition(TransitionScrollDown); err != nil {
		t.Fatal(err)
	}
	if page.Transition() != TransitionScrollDown {
		t.Errorf("Transition() = %q", page.Transition())
	}
	if err := page.SetTransition("spin"); !errors.Is(err, errors.ErrValue) {
		t.Errorf("SetTransition(spin) error = %v, want ErrValue", err)
	}
	if err := page.SetTransition(""); err != nil || page.Transition() != "" {
		t.Errorf("clearing transition: %v, %q", err, page.Transition())
	}
	if err := page.SetBgColor("#123456"); err != nil || page.BgColor() != "#123456" {
		t.Errorf("BgColor = %q, %v", page.BgColor(), err)
	}
	if err := page.SetTitle("Chapter 1", "en"); err != nil {
		t.Fatal(err)
	}
	if err := page.SetTitle("Kapitel 1", "de"); err != nil {
		t.Fatal(err)
	}
	if titles := page.Titles(); titles["en"] != "Chapter 1" || titles["de"] != "Kapitel 1" {
		t.Errorf("Titles() = %v", titles)
	}
	if err := page.RemoveTitle("de"); err != nil {
		t.Fatal(err)
	}
	if _, ok := page.Titles()["de"]; ok {
		t.Error("de title still present")
	}
	if err := b.Body().SetBgColor("#000000"); err != nil || b.Body().BgColor() != "#000000" {
		t.Errorf("body bgcolor = %q, %v", b.Body().BgColor(), err)
	}
}

func TestImageRefs(t *testing.T) {
	b := newTestBook(t, "refs.cbz")
	page, _ := b.Body().AppendPage("p1.png")

	if page.RefType() != imageref.SelfArchived {
		t.Errorf("RefType() = %v, want SelfArchived", page.RefType())
	}
	before := b.XML()
	if err := page.SetImageRef(page.ImageRef()); err != nil {
		t.Fatal(err)
	}
	if b.XML() != before {
		t.Error("setting the same image ref changed the document")
	}
	if err := page.SetImageRef("#p1.png"); err != nil {
		t.Fatal(err)
	}
	if page.RefType() != imageref.Embedded {
		t.Errorf("RefType() = %v, want Embedded", page.RefType())
	}
	if err := page.SetImageRef(""); !errors.Is(err, errors.ErrValue) {
		t.Errorf("SetImageRef(\"\") error = %v, want ErrValue", err)
	}

	cover := b.BookInfo().CoverPage()
	if err := cover.SetImageRef("https://example.com/c.png"); err != nil {
		t.Fatal(err)
	}
	if cover.RefType() != imageref.URL {
		t.Errorf("cover RefType() = %v, want URL", cover.RefType())
	}
	if got := b.Body().ImageRefs(); !equalStrings(got, []string{"https://example.com/c.png", "#p1.png"}) {
		t.Errorf("ImageRefs() = %v", got)
	}
}

func TestCoverPageOverlays(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "sample.acbf", []byte(sampleXML(t)))
	b, err := Open(path, ModeAppend)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	cover := b.BookInfo().CoverPage()
	layer, ok := cover.TextLayer("en")
	if !ok {
		t.Fatal("cover has no en layer")
	}
	if areas := layer.TextAreas(); len(areas) != 1 || areas[0].Text() != "Cover text" {
		t.Fatalf("cover text areas = %d", len(areas))
	}
	if _, err := cover.AppendFrame(square); err != nil {
		t.Fatal(err)
	}
	if len(cover.Frames()) != 1 {
		t.Error("cover frame not added")
	}

	page := mustPage(t, b, 0)
	if page.BgColor() != "#ffffff" || page.Transition() != TransitionFade {
		t.Errorf("page attrs = %q %q", page.BgColor(), page.Transition())
	}
	if page.Titles()["en"] != "Opening" {
		t.Errorf("page titles = %v", page.Titles())
	}
	areas := page.TextLayers()[0].TextAreas()
	if areas[0].Type() != TextAreaSpeech || areas[0].Paragraph() != "Hello <emphasis>world</emphasis>" {
		t.Errorf("text area = %q %q", areas[0].Type(), areas[0].Paragraph())
	}
	if j := page.Jumps(); len(j) != 1 || j[0].Page() != 2 {
		t.Errorf("jumps = %v", j)
	}
	if b.Body().BgColor() != "#000000" {
		t.Errorf("body bgcolor = %q", b.Body().BgColor())
	}
}
