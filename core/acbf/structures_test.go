package acbf

import (
	"testing"

	"github.com/FocuswithJustin/acbf/core/errors"
)

func TestParsePoints(t *testing.T) {
	tests := []struct {
		in      string
		want    []Point
		wantErr bool
	}{
		{"0,0", []Point{{0, 0}}, false},
		{"1,2 3,4", []Point{{1, 2}, {3, 4}}, false},
		{"  -5,10\t7,-8\n", []Point{{-5, 10}, {7, -8}}, false},
		{"", nil, true},
		{"   ", nil, true},
		{"1,2,3", nil, true},
		{"1 2", nil, true},
		{"a,b", nil, true},
	}
	for _, tt := range tests {
		got, err := ParsePoints(tt.in)
		if tt.wantErr {
			if !errors.Is(err, errors.ErrValue) {
				t.Errorf("ParsePoints(%q) error = %v, want ErrValue", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePoints(%q) error = %v", tt.in, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ParsePoints(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParsePoints(%q)[%d] = %v, want %v", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestPointsRoundTrip(t *testing.T) {
	lists := [][]Point{
		{{0, 0}},
		square,
		{{-100, 250}, {3, -7}, {65535, 0}},
	}
	for _, pts := range lists {
		s := FormatPoints(pts)
		got, err := ParsePoints(s)
		if err != nil {
			t.Fatalf("ParsePoints(%q) error = %v", s, err)
		}
		if FormatPoints(got) != s {
			t.Errorf("round trip of %q gave %q", s, FormatPoints(got))
		}
	}
	if got := FormatPoints(square); got != "0,0 0,1 1,1 1,0" {
		t.Errorf("FormatPoints(square) = %q", got)
	}
}

func TestEnumParsing(t *testing.T) {
	if tr, err := ParseTransition("Scroll_Right"); err != nil || tr != TransitionScrollRight {
		t.Errorf("ParseTransition = %q, %v", tr, err)
	}
	if _, err := ParseTransition("wipe"); !errors.Is(err, errors.ErrValue) {
		t.Errorf("ParseTransition(wipe) error = %v", err)
	}
	if typ, err := ParseTextAreaType("SIGN"); err != nil || typ != TextAreaSign {
		t.Errorf("ParseTextAreaType = %q, %v", typ, err)
	}
	if act, err := ParseActivity("coverartist"); err != nil || act != ActivityCoverArtist {
		t.Errorf("ParseActivity = %q, %v", act, err)
	}
	if _, err := ParseActivity("Chef"); !errors.Is(err, errors.ErrValue) {
		t.Errorf("ParseActivity(Chef) error = %v", err)
	}
}

func TestCanonicalLang(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"", NoLang, false},
		{NoLang, NoLang, false},
		{"EN", "en", false},
		{"pt-br", "pt-BR", false},
		{"zh-hant-tw", "zh-Hant-TW", false},
		{"not a tag", "", true},
	}
	for _, tt := range tests {
		got, err := CanonicalLang(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("CanonicalLang(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestNewAuthorValidation(t *testing.T) {
	if _, err := NewAuthor("Only", ""); !errors.Is(err, errors.ErrValue) {
		t.Errorf("NewAuthor without last name error = %v", err)
	}
	if _, err := NewAuthorNickname(" "); !errors.Is(err, errors.ErrValue) {
		t.Errorf("NewAuthorNickname(blank) error = %v", err)
	}
	a, err := NewAuthor("Jean", "Giraud")
	if err != nil {
		t.Fatal(err)
	}
	if a.String() == "" || a.Bound() {
		t.Errorf("author = %q, bound %v", a.String(), a.Bound())
	}
}
