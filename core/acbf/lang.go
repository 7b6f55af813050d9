package acbf

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/FocuswithJustin/acbf/core/errors"
)

// NoLang is the map key of entries without a lang attribute.
const NoLang = "_"

// CanonicalLang returns the canonical form of a BCP 47 language tag.
// The empty string and NoLang both map to NoLang.
func CanonicalLang(lang string) (string, error) {
	lang = strings.TrimSpace(lang)
	if lang == "" || lang == NoLang {
		return NoLang, nil
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "", errors.NewValuef("language", "%q is not a valid language tag", lang)
	}
	return tag.String(), nil
}

// langKey derives the map key of an element's lang attribute. Tags that do
// not parse are kept verbatim so they can still be addressed.
func langKey(lang string) string {
	if key, err := CanonicalLang(lang); err == nil {
		return key
	}
	return strings.TrimSpace(lang)
}

// langAttr is the attribute value written for a canonical key.
func langAttr(key string) string {
	if key == NoLang {
		return ""
	}
	return key
}
