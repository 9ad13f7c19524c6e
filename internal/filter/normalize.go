package filter

import (
	"regexp"
	"strings"
)

// Canonical type names as they appear in workshop tags.
var typeCanonToTag = map[string]string{
	"video":       "Video",
	"scene":       "Scene",
	"web":         "Web",
	"application": "Application",
	"wallpaper":   "Wallpaper",
	"preset":      "Preset",
}

// Accepted aliases per canonical type.
var typeAliases = map[string][]string{
	"video":       {"movie", "mp4", "webm"},
	"scene":       {"scenery"},
	"web":         {"webpage", "html"},
	"application": {"app"},
}

// Age rating shorthand to workshop tag.
var ageCanonToTag = map[string]string{
	"G":    "Everyone",
	"PG13": "Questionable",
	"R":    "Mature",
}

// Tags that are structural rather than genres.
var builtinTags = map[string]struct{}{
	"everyone": {}, "questionable": {}, "mature": {},
	"video": {}, "scene": {}, "web": {}, "application": {},
	"wallpaper": {}, "preset": {},
}

var resolutionPat = regexp.MustCompile(`^(\d+)\s*x\s*(\d+)$`)

// Fold normalizes a tag for comparison: lowercase, unicode/star multiply
// signs folded to "x", spaces stripped.
func Fold(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("×", "x", "*", "x", " ", "").Replace(s)
	return strings.TrimSpace(s)
}

// CanonicalType maps a user-supplied type name (or alias) to the workshop
// tag spelling. Unknown names are title-cased and passed through.
func CanonicalType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if tag, ok := typeCanonToTag[t]; ok {
		return tag
	}
	for canon, aliases := range typeAliases {
		for _, a := range aliases {
			if t == a {
				return typeCanonToTag[canon]
			}
		}
	}
	return titleCase(t)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// CanonicalAge maps an age shorthand (G, PG13, R) to the workshop tag.
// Returns "" for unknown values.
func CanonicalAge(a string) string {
	return ageCanonToTag[strings.ToUpper(strings.TrimSpace(a))]
}

// ResolutionVariants expands a resolution string into the display spellings
// used on the workshop ("W x H", "WxH", "W × H"). Non-resolution strings
// are returned as-is in a single-element slice; empty input yields nil.
func ResolutionVariants(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	folded := strings.NewReplacer("×", "x", "X", "x", "*", "x").Replace(s)
	m := resolutionPat.FindStringSubmatch(strings.TrimSpace(folded))
	if m == nil {
		return []string{s}
	}
	w, h := m[1], m[2]
	return []string{w + " x " + h, w + "x" + h, w + " × " + h}
}

// IsResolutionTag reports whether a tag looks like a "WxH" resolution.
func IsResolutionTag(s string) bool {
	folded := strings.NewReplacer("×", "x", "X", "x", "*", "x").Replace(s)
	return resolutionPat.MatchString(strings.TrimSpace(folded))
}

var creatorIDPat = regexp.MustCompile(`^\d{17}$`)
var profileURLPat = regexp.MustCompile(`/profiles/(\d{17})`)

// NormalizeCreator accepts either a bare 17-digit steam id or a profile URL
// containing one, returning the bare id.
func NormalizeCreator(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if creatorIDPat.MatchString(s) {
		return s, true
	}
	if m := profileURLPat.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	return "", false
}
