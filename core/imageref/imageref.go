// Package imageref classifies ACBF image references.
//
// An image reference is the href of a page or cover image:
//
//	#<data-id>                  Embedded: a <binary> in the document
//	zip:<archive>!<inner>       Archived: an entry of another archive
//	http://, https://, ftp://   URL
//	/abs/path                   Local
//	rel/path                    SelfArchived when the book is archived, else Local
//
// Classification is pure: the same reference and archived flag always give
// the same result.
package imageref

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Type is the kind of an image reference.
type Type int

// Reference types.
const (
	Unknown Type = iota
	Embedded
	Archived
	URL
	Local
	SelfArchived
)

var typeNames = map[Type]string{
	Unknown:      "Unknown",
	Embedded:     "Embedded",
	Archived:     "Archived",
	URL:          "URL",
	Local:        "Local",
	SelfArchived: "SelfArchived",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

const archivedPrefix = "zip:"

var (
	urlPattern   = regexp.MustCompile(`(?i)^(https?|ftp)://`)
	drivePattern = regexp.MustCompile(`^[A-Za-z]:[\\/]`)
)

// Ref is a parsed image reference.
type Ref struct {
	Raw     string
	Type    Type
	ID      string // data id (Embedded)
	Archive string // archive path (Archived)
	Path    string // inner entry (Archived), file path (Local, SelfArchived) or URL
}

// Classify returns the reference type of ref.
func Classify(ref string, archived bool) Type {
	switch {
	case ref == "":
		return Unknown
	case strings.HasPrefix(ref, "#"):
		return Embedded
	case strings.HasPrefix(ref, archivedPrefix):
		return Archived
	case urlPattern.MatchString(ref):
		return URL
	case isAbsolute(ref):
		return Local
	case archived:
		return SelfArchived
	default:
		return Local
	}
}

// Parse classifies ref and splits it into its components.
func Parse(ref string, archived bool) (Ref, error) {
	r := Ref{Raw: ref, Type: Classify(ref, archived)}
	switch r.Type {
	case Unknown:
		return r, fmt.Errorf("empty image reference")
	case Embedded:
		r.ID = strings.TrimPrefix(ref, "#")
		if r.ID == "" {
			return r, fmt.Errorf("image reference %q has no data id", ref)
		}
	case Archived:
		rest := strings.TrimPrefix(ref, archivedPrefix)
		i := strings.LastIndex(rest, "!")
		if i <= 0 || i == len(rest)-1 {
			return r, fmt.Errorf("image reference %q is not of the form zip:<archive>!<entry>", ref)
		}
		r.Archive, r.Path = rest[:i], strings.TrimPrefix(rest[i+1:], "/")
	default:
		r.Path = ref
	}
	return r, nil
}

// Filename returns the tail file name the reference points at.
func (r Ref) Filename() string {
	switch r.Type {
	case Embedded:
		return r.ID
	case URL:
		if u, err := url.Parse(r.Path); err == nil && u.Path != "" {
			return path.Base(u.Path)
		}
		return path.Base(r.Path)
	case Archived, Local, SelfArchived:
		return path.Base(filepath.ToSlash(r.Path))
	}
	return ""
}

func isAbsolute(ref string) bool {
	return strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, `\`) ||
		filepath.IsAbs(ref) || drivePattern.MatchString(ref)
}
