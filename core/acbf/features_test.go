package acbf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/FocuswithJustin/acbf/core/errors"
)

func TestFeatures(t *testing.T) {
	fixtures := t.TempDir()
	createSampleCBZ(t, fixtures)
	for i, name := range []string{"cover.png", "p1.png", "p2.png"} {
		writeTestFile(t, fixtures, name, testPNG(t, uint8(20+i)))
	}
	scratch := t.TempDir()

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			initializeScenario(ctx, fixtures, scratch)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{filepath.Join("testdata", "features")},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Error("feature scenarios failed")
	}
}

// scenarioState holds the book under test for one scenario.
type scenarioState struct {
	fixtures string
	dir      string
	path     string
	book     *Book
	area     *TextArea
	lastErr  error
}

func initializeScenario(ctx *godog.ScenarioContext, fixtures, scratch string) {
	s := &scenarioState{fixtures: fixtures}
	var err error
	if s.dir, err = os.MkdirTemp(scratch, "scenario-*"); err != nil {
		panic(err)
	}
	ctx.After(func(c context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		if s.book != nil {
			s.book.Close()
		}
		return c, nil
	})

	ctx.Step(`^the sample comic "([^"]*)"$`, s.sampleComic)
	ctx.Step(`^a new book "([^"]*)"$`, s.newBook)
	ctx.Step(`^I open the book in mode "([^"]*)"$`, s.openBook)
	ctx.Step(`^I reopen the book$`, s.reopenBook)

	ctx.Step(`^I set the title to "([^"]*)"$`, s.setTitle)
	ctx.Step(`^the title is "([^"]*)"$`, s.titleIs)
	ctx.Step(`^I add the author "([^"]*)" "([^"]*)"$`, s.addAuthor)
	ctx.Step(`^author (\d+) is "([^"]*)" "([^"]*)" without a nickname$`, s.authorIs)

	ctx.Step(`^the data store lists "([^"]*)"$`, s.dataLists)
	ctx.Step(`^I store "([^"]*)" in the archive$`, s.storeInArchive)
	ctx.Step(`^I embed "([^"]*)"$`, s.embed)
	ctx.Step(`^I set the cover image to "([^"]*)"$`, s.setCover)
	ctx.Step(`^I append a page showing "([^"]*)"$`, s.appendPage)
	ctx.Step(`^page (\d+) resolves to image "([^"]*)"$`, s.pageResolvesTo)
	ctx.Step(`^page (\d+) resolves as "([^"]*)" with the size of "([^"]*)"$`, s.pageResolvesAs)

	ctx.Step(`^I add (\d+) frames with points "([^"]*)" to page (\d+)$`, s.addFrames)
	ctx.Step(`^I move frame (\d+) of page (\d+) to position (\d+)$`, s.moveFrame)
	ctx.Step(`^page (\d+) has (\d+) frames$`, s.frameCount)
	ctx.Step(`^frame (\d+) of page (\d+) starts at "([^"]*)"$`, s.frameStartsAt)

	ctx.Step(`^page (\d+) has an "([^"]*)" text area saying "([^"]*)"$`, s.addTextArea)
	ctx.Step(`^I set the rotation to (-?\d+)$`, s.setRotation)
	ctx.Step(`^I clear the rotation$`, s.clearRotation)
	ctx.Step(`^the rotation is (\d+)$`, s.rotationIs)
	ctx.Step(`^the text area has no "([^"]*)" attribute$`, s.noAttribute)
	ctx.Step(`^the last operation failed with a value error$`, s.failedWithValueError)

	ctx.Step(`^I set reference "([^"]*)" to "([^"]*)"$`, s.setReference)
	ctx.Step(`^reference "([^"]*)" reads "([^"]*)"$`, s.referenceReads)
}

func unescape(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

func (s *scenarioState) sampleComic(name string) error {
	data, err := os.ReadFile(filepath.Join(s.fixtures, "sample.cbz"))
	if err != nil {
		return err
	}
	s.path = filepath.Join(s.dir, name)
	return os.WriteFile(s.path, data, 0o644)
}

func (s *scenarioState) newBook(name string) error {
	s.path = filepath.Join(s.dir, name)
	return s.openBook(string(ModeWrite))
}

func (s *scenarioState) openBook(mode string) error {
	m, err := ParseMode(mode)
	if err != nil {
		return err
	}
	s.book, err = Open(s.path, m)
	return err
}

func (s *scenarioState) reopenBook() error {
	if err := s.book.Close(); err != nil {
		return err
	}
	var err error
	s.book, err = Open(s.path, ModeAppend)
	return err
}

func (s *scenarioState) setTitle(title string) error {
	return s.book.BookInfo().SetTitle(title, NoLang)
}

func (s *scenarioState) titleIs(want string) error {
	if got := s.book.BookInfo().Title(NoLang); got != want {
		return fmt.Errorf("title is %q, want %q", got, want)
	}
	return nil
}

func (s *scenarioState) addAuthor(first, last string) error {
	a, err := NewAuthor(first, last)
	if err != nil {
		return err
	}
	return s.book.BookInfo().AddAuthor(a)
}

func (s *scenarioState) authorIs(i int, first, last string) error {
	authors := s.book.BookInfo().Authors()
	if i >= len(authors) {
		return fmt.Errorf("book has %d authors", len(authors))
	}
	a := authors[i]
	if a.FirstName() != first || a.LastName() != last || a.Nickname() != "" {
		return fmt.Errorf("author %d is %q %q (nickname %q)", i, a.FirstName(), a.LastName(), a.Nickname())
	}
	return nil
}

func (s *scenarioState) dataLists(id string) error {
	for _, got := range s.book.Data().List() {
		if got == id {
			return nil
		}
	}
	return fmt.Errorf("data store lists %v, want %q", s.book.Data().List(), id)
}

func (s *scenarioState) storeInArchive(name string) error {
	_, err := s.book.Data().Add(filepath.Join(s.fixtures, name), "", false)
	return err
}

func (s *scenarioState) embed(name string) error {
	_, err := s.book.Data().Add(filepath.Join(s.fixtures, name), "", true)
	return err
}

func (s *scenarioState) setCover(ref string) error {
	return s.book.BookInfo().CoverPage().SetImageRef(ref)
}

func (s *scenarioState) appendPage(ref string) error {
	_, err := s.book.Body().AppendPage(ref)
	return err
}

func (s *scenarioState) pageResolvesTo(i int, id string) error {
	page, err := s.book.Body().Page(i)
	if err != nil {
		return err
	}
	img, err := page.Image()
	if err != nil {
		return err
	}
	if img.ID != id {
		return fmt.Errorf("page %d image id is %q, want %q", i, img.ID, id)
	}
	return nil
}

func (s *scenarioState) pageResolvesAs(i int, refType, source string) error {
	page, err := s.book.Body().Page(i)
	if err != nil {
		return err
	}
	if got := page.RefType().String(); got != refType {
		return fmt.Errorf("page %d reference type is %s, want %s", i, got, refType)
	}
	img, err := page.Image()
	if err != nil {
		return err
	}
	info, err := os.Stat(filepath.Join(s.fixtures, source))
	if err != nil {
		return err
	}
	if int64(img.Len()) != info.Size() {
		return fmt.Errorf("page %d image is %d bytes, want %d", i, img.Len(), info.Size())
	}
	return nil
}

func (s *scenarioState) addFrames(n int, points string, i int) error {
	pts, err := ParsePoints(points)
	if err != nil {
		return err
	}
	page, err := s.book.Body().Page(i)
	if err != nil {
		return err
	}
	for range n {
		if _, err := page.AppendFrame(pts); err != nil {
			return err
		}
	}
	return nil
}

func (s *scenarioState) moveFrame(src, i, dst int) error {
	page, err := s.book.Body().Page(i)
	if err != nil {
		return err
	}
	return page.ReorderFrame(src, dst)
}

func (s *scenarioState) frameCount(i, want int) error {
	page, err := s.book.Body().Page(i)
	if err != nil {
		return err
	}
	if got := len(page.Frames()); got != want {
		return fmt.Errorf("page %d has %d frames, want %d", i, got, want)
	}
	return nil
}

func (s *scenarioState) frameStartsAt(f, i int, point string) error {
	page, err := s.book.Body().Page(i)
	if err != nil {
		return err
	}
	frames := page.Frames()
	if f >= len(frames) {
		return fmt.Errorf("page %d has %d frames", i, len(frames))
	}
	pts := frames[f].Points()
	if len(pts) == 0 || pts[0].String() != point {
		return fmt.Errorf("frame %d starts at %v, want %s", f, pts, point)
	}
	return nil
}

func (s *scenarioState) addTextArea(i int, lang, text string) error {
	page, err := s.book.Body().Page(i)
	if err != nil {
		return err
	}
	layer, err := page.AddTextLayer(lang)
	if err != nil {
		return err
	}
	s.area, err = layer.AppendTextArea(square, text)
	return err
}

func (s *scenarioState) setRotation(deg int) error {
	s.lastErr = s.area.SetRotation(deg)
	return nil
}

func (s *scenarioState) clearRotation() error {
	return s.area.ClearRotation()
}

func (s *scenarioState) rotationIs(want int) error {
	if s.lastErr != nil {
		return s.lastErr
	}
	if got, ok := s.area.Rotation(); !ok || got != want {
		return fmt.Errorf("rotation is %d (set %v), want %d", got, ok, want)
	}
	return nil
}

func (s *scenarioState) noAttribute(name string) error {
	if a := s.area.el.SelectAttr(name); a != nil {
		return fmt.Errorf("text area still has %s=%q", name, a.Value)
	}
	return nil
}

func (s *scenarioState) failedWithValueError() error {
	if !errors.Is(s.lastErr, errors.ErrValue) {
		return fmt.Errorf("last error is %v, want a value error", s.lastErr)
	}
	return nil
}

func (s *scenarioState) setReference(id, text string) error {
	return s.book.References().Set(id, unescape(text))
}

func (s *scenarioState) referenceReads(id, want string) error {
	ref, ok := s.book.References().Get(id)
	if !ok {
		return fmt.Errorf("reference %q not found", id)
	}
	if ref.Paragraph != unescape(want) {
		return fmt.Errorf("reference %q reads %q, want %q", id, ref.Paragraph, unescape(want))
	}
	return nil
}
