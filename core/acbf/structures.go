package acbf

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/araddon/dateparse"

	"github.com/FocuswithJustin/acbf/core/errors"
)

// Point is a vertex of a frame, jump or text-area polygon.
type Point struct {
	X, Y int
}

func (p Point) String() string {
	return strconv.Itoa(p.X) + "," + strconv.Itoa(p.Y)
}

// pointsGrammar parses the points attribute: "x1,y1 x2,y2 ...".
//
//nolint:govet // participle grammar tags are not standard struct tags
type pointsGrammar struct {
	Points []*pointGrammar `parser:"@@+"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type pointGrammar struct {
	X int `parser:"@Int \",\""`
	Y int `parser:"@Int"`
}

var pointsLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `-?[0-9]+`},
	{Name: "Punct", Pattern: `,`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var pointsParser = participle.MustBuild[pointsGrammar](
	participle.Lexer(pointsLexer),
	participle.Elide("Whitespace"),
)

// ParsePoints parses a points attribute value.
func ParsePoints(s string) ([]Point, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.NewValue("points", "at least one point is required")
	}
	parsed, err := pointsParser.ParseString("", s)
	if err != nil {
		return nil, errors.NewValuef("points", "%q: %v", s, err)
	}
	pts := make([]Point, len(parsed.Points))
	for i, p := range parsed.Points {
		pts[i] = Point{X: p.X, Y: p.Y}
	}
	return pts, nil
}

// FormatPoints renders points as a points attribute value.
func FormatPoints(pts []Point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}

// Transition is the animation used when a page is shown.
type Transition string

// Page transitions.
const (
	TransitionNone        Transition = "none"
	TransitionFade        Transition = "fade"
	TransitionBlend       Transition = "blend"
	TransitionScrollRight Transition = "scroll_right"
	TransitionScrollDown  Transition = "scroll_down"
)

var transitions = []Transition{TransitionNone, TransitionFade, TransitionBlend, TransitionScrollRight, TransitionScrollDown}

// ParseTransition converts a transition name.
func ParseTransition(s string) (Transition, error) {
	t := Transition(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(transitions, t) {
		return "", errors.NewValuef("transition", "unknown transition %q", s)
	}
	return t, nil
}

// TextAreaType is the kind of text held by a text area.
type TextAreaType string

// Text area types.
const (
	TextAreaSpeech     TextAreaType = "speech"
	TextAreaCommentary TextAreaType = "commentary"
	TextAreaFormal     TextAreaType = "formal"
	TextAreaLetter     TextAreaType = "letter"
	TextAreaCode       TextAreaType = "code"
	TextAreaHeading    TextAreaType = "heading"
	TextAreaAudio      TextAreaType = "audio"
	TextAreaThought    TextAreaType = "thought"
	TextAreaSign       TextAreaType = "sign"
)

var textAreaTypes = []TextAreaType{
	TextAreaSpeech, TextAreaCommentary, TextAreaFormal, TextAreaLetter, TextAreaCode,
	TextAreaHeading, TextAreaAudio, TextAreaThought, TextAreaSign,
}

// ParseTextAreaType converts a text area type name.
func ParseTextAreaType(s string) (TextAreaType, error) {
	t := TextAreaType(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(textAreaTypes, t) {
		return "", errors.NewValuef("text-area type", "unknown type %q", s)
	}
	return t, nil
}

// Activity is an author's role.
type Activity string

// Author activities.
const (
	ActivityWriter          Activity = "Writer"
	ActivityAdapter         Activity = "Adapter"
	ActivityArtist          Activity = "Artist"
	ActivityPenciller       Activity = "Penciller"
	ActivityInker           Activity = "Inker"
	ActivityColorist        Activity = "Colorist"
	ActivityLetterer        Activity = "Letterer"
	ActivityCoverArtist     Activity = "CoverArtist"
	ActivityPhotographer    Activity = "Photographer"
	ActivityEditor          Activity = "Editor"
	ActivityAssistantEditor Activity = "Assistant Editor"
	ActivityTranslator      Activity = "Translator"
	ActivityOther           Activity = "Other"
)

var activities = []Activity{
	ActivityWriter, ActivityAdapter, ActivityArtist, ActivityPenciller, ActivityInker,
	ActivityColorist, ActivityLetterer, ActivityCoverArtist, ActivityPhotographer,
	ActivityEditor, ActivityAssistantEditor, ActivityTranslator, ActivityOther,
}

// ParseActivity converts an activity name, ignoring case.
func ParseActivity(s string) (Activity, error) {
	s = strings.TrimSpace(s)
	for _, a := range activities {
		if strings.EqualFold(string(a), s) {
			return a, nil
		}
	}
	return "", errors.NewValuef("activity", "unknown activity %q", s)
}

// Genres lists the genre names a book may be tagged with.
var Genres = []string{
	"adult", "adventure", "alternative", "artbook", "biography", "caricature",
	"children", "computer", "crime", "education", "fantasy", "history", "horror",
	"humor", "manga", "military", "mystery", "non-fiction", "politics",
	"real_life", "religion", "romance", "science_fiction", "sports", "superhero",
	"western", "other",
}

// NoMatch marks a genre without a match percentage.
const NoMatch = -1

// Genre tags the book with a genre and an optional match percentage.
type Genre struct {
	Name  string
	Match int // 0..100, or NoMatch
}

func (g Genre) validate() error {
	if !slices.Contains(Genres, g.Name) {
		return errors.NewValuef("genre", "unknown genre %q", g.Name)
	}
	if g.Match != NoMatch && (g.Match < 0 || g.Match > 100) {
		return errors.NewValuef("genre match", "%d is not between 0 and 100", g.Match)
	}
	return nil
}

// Series places the book in a sequence.
type Series struct {
	Title    string
	Sequence int // position in the series, >= 1
	Volume   int // 0 when unspecified
}

func (s Series) validate() error {
	switch {
	case strings.TrimSpace(s.Title) == "":
		return errors.NewValue("series", "title is required")
	case s.Sequence < 1:
		return errors.NewValuef("series", "sequence %d must be positive", s.Sequence)
	case s.Volume < 0:
		return errors.NewValuef("series", "volume %d must not be negative", s.Volume)
	}
	return nil
}

// DBRef links the book to a record in an external database.
type DBRef struct {
	DBName string
	Type   string // optional reference type, e.g. "URL" or "IssueID"
	Ref    string
}

func (r DBRef) validate() error {
	if strings.TrimSpace(r.DBName) == "" {
		return errors.NewValue("database reference", "dbname is required")
	}
	return nil
}

// LanguageLayer declares a text layer language of the book.
type LanguageLayer struct {
	Lang string
	Show bool
}

// Date is a human readable date with an optional machine readable value.
type Date struct {
	Text  string
	Value time.Time // zero when the element has no value attribute
}

// DateFromString keeps s as the display text and parses it when possible.
func DateFromString(s string) Date {
	d := Date{Text: strings.TrimSpace(s)}
	if t, err := parseDate(d.Text); err == nil {
		d.Value = t
	}
	return d
}

// DateFromTime uses the ISO form of t as both text and value.
func DateFromTime(t time.Time) Date {
	t = truncateDay(t)
	return Date{Text: t.Format(isoDate), Value: t}
}

// HasValue reports whether the date carries a parsed value.
func (d Date) HasValue() bool {
	return !d.Value.IsZero()
}

// ISO returns the value as YYYY-MM-DD, or "" without a value.
func (d Date) ISO() string {
	if d.Value.IsZero() {
		return ""
	}
	return d.Value.Format(isoDate)
}

func (d Date) String() string {
	return d.Text
}

const isoDate = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(isoDate, s); err == nil {
		return t, nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, errors.NewValuef("date", "cannot parse %q", s)
	}
	return truncateDay(t), nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// resolve returns the text and value to write. With includeDate the value
// is taken from d.Value or parsed from d.Text.
func (d Date) resolve(includeDate bool) (string, string, error) {
	text := strings.TrimSpace(d.Text)
	if !includeDate {
		if text == "" {
			return "", "", errors.NewValue("date", "text is required")
		}
		return text, "", nil
	}
	value := d.Value
	if value.IsZero() {
		t, err := parseDate(text)
		if err != nil {
			return "", "", err
		}
		value = t
	}
	if text == "" {
		text = value.Format(isoDate)
	}
	return text, value.Format(isoDate), nil
}

func formatInt(n int) string {
	return strconv.Itoa(n)
}

func parseInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return n, err == nil
}

func formatBool(b bool) string {
	return fmt.Sprint(b)
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}
