// Package filter implements the dimension filter over catalog items:
// values within one dimension are alternatives (OR), dimensions combine
// conjunctively (AND), and exclusion rules subtract from the result.
// All functions are pure; the engine performs no I/O.
package filter

import (
	"sort"
	"strings"

	"github.com/wallpick/wallpick/internal/catalog"
)

// Config is the raw, user-spelled filter input.
type Config struct {
	ShowOnly        []string
	Tags            []string
	Types           []string
	Ages            []string
	Resolutions     []string
	ExcludeTags     []string
	ExcludeTitles   []string
	ExcludeCreators []string
	MinCandidates   int
}

// Spec is a compiled filter: every set holds folded values.
type Spec struct {
	Genres      map[string]struct{}
	Types       map[string]struct{}
	Ages        map[string]struct{}
	Resolutions []map[string]struct{} // one folded variant-set per configured resolution

	ExcludeTags     map[string]struct{}
	ExcludeTitles   []string // lowercase substrings
	ExcludeCreators map[string]struct{}

	MinCandidates int
}

// Compile builds a Spec from raw config values. Creator entries that are
// neither 17-digit ids nor profile URLs are dropped.
func Compile(cfg Config) *Spec {
	s := &Spec{
		Genres:          foldSet(append(append([]string{}, cfg.ShowOnly...), cfg.Tags...)),
		Types:           make(map[string]struct{}),
		Ages:            make(map[string]struct{}),
		ExcludeTags:     foldSet(cfg.ExcludeTags),
		ExcludeCreators: make(map[string]struct{}),
		MinCandidates:   cfg.MinCandidates,
	}
	for _, t := range cfg.Types {
		if tag := CanonicalType(t); tag != "" {
			s.Types[Fold(tag)] = struct{}{}
		}
	}
	for _, a := range cfg.Ages {
		if tag := CanonicalAge(a); tag != "" {
			s.Ages[Fold(tag)] = struct{}{}
		}
	}
	for _, r := range cfg.Resolutions {
		variants := ResolutionVariants(r)
		if len(variants) == 0 {
			continue
		}
		s.Resolutions = append(s.Resolutions, foldSet(variants))
	}
	for _, t := range cfg.ExcludeTitles {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			s.ExcludeTitles = append(s.ExcludeTitles, t)
		}
	}
	for _, c := range cfg.ExcludeCreators {
		if id, ok := NormalizeCreator(c); ok {
			s.ExcludeCreators[id] = struct{}{}
		}
	}
	return s
}

// RequiredQueryTags returns the user-spelled include tags to be sent as
// server-side required tags, one query per tag: show_only + tags, canonical
// type tags, age tags, and the first display variant of each resolution.
func (s *Spec) RequiredQueryTags(cfg Config) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	for _, t := range cfg.ShowOnly {
		add(t)
	}
	for _, t := range cfg.Tags {
		add(t)
	}
	for _, t := range cfg.Types {
		add(CanonicalType(t))
	}
	for _, a := range cfg.Ages {
		add(CanonicalAge(a))
	}
	for _, r := range cfg.Resolutions {
		if variants := ResolutionVariants(r); len(variants) > 0 {
			add(variants[0])
		}
	}
	return out
}

// Admissible reports whether the item passes every non-empty dimension and
// no exclusion rule. An empty dimension is vacuously satisfied.
func (s *Spec) Admissible(it catalog.Item) bool {
	tags := make(map[string]struct{}, len(it.Tags))
	for _, t := range it.Tags {
		tags[Fold(t)] = struct{}{}
	}

	if intersects(s.ExcludeTags, tags) {
		return false
	}
	if len(s.ExcludeTitles) > 0 {
		title := strings.ToLower(it.Title)
		for _, sub := range s.ExcludeTitles {
			if strings.Contains(title, sub) {
				return false
			}
		}
	}
	if len(s.ExcludeCreators) > 0 {
		if id, ok := NormalizeCreator(it.CreatorID); ok {
			if _, excluded := s.ExcludeCreators[id]; excluded {
				return false
			}
		}
	}

	if len(s.Types) > 0 && !intersects(s.Types, tags) {
		return false
	}
	if len(s.Ages) > 0 && !intersects(s.Ages, tags) {
		return false
	}
	if len(s.Genres) > 0 && !intersects(s.Genres, tags) {
		return false
	}
	if len(s.Resolutions) > 0 && !s.matchesResolution(it, tags) {
		return false
	}
	return true
}

// matchesResolution checks resolution variant sets against both plain tags
// and the "resolution" kv tag.
func (s *Spec) matchesResolution(it catalog.Item, tags map[string]struct{}) bool {
	for _, variants := range s.Resolutions {
		if intersects(variants, tags) {
			return true
		}
	}
	kvVal := strings.TrimSpace(it.KVTags["resolution"])
	if kvVal == "" {
		return false
	}
	kvSet := foldSet(ResolutionVariants(kvVal))
	for _, variants := range s.Resolutions {
		if intersects(variants, kvSet) {
			return true
		}
	}
	return false
}

// Select returns the admissible subset of items, order preserved.
func (s *Spec) Select(items []catalog.Item) []catalog.Item {
	var out []catalog.Item
	for _, it := range items {
		if s.Admissible(it) {
			out = append(out, it)
		}
	}
	return out
}

// Rank filters items through the spec and stable-sorts the admissible
// subset by the sort method's metric descending, ties broken by ascending
// id so results are reproducible.
func Rank(items []catalog.Item, spec *Spec, sortMethod string) []catalog.Item {
	out := spec.Select(items)
	metric := metricFor(sortMethod)
	sort.SliceStable(out, func(i, j int) bool {
		mi, mj := metric(out[i]), metric(out[j])
		if mi != mj {
			return mi > mj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func metricFor(sortMethod string) func(catalog.Item) int64 {
	s := strings.ToLower(strings.TrimSpace(sortMethod))
	switch {
	case s == "most recent":
		return func(it catalog.Item) int64 { return it.TimeCreated }
	case s == "last updated" || s == "recently updated" || s == "updated":
		return func(it catalog.Item) int64 { return it.TimeUpdated }
	case s == "top rated" || s == "most up votes":
		return func(it catalog.Item) int64 { return it.Favorited }
	case s == "most subscriptions" || s == "most subscribed":
		return func(it catalog.Item) int64 { return it.Subscriptions }
	default: // most popular variants
		return func(it catalog.Item) int64 { return it.Views }
	}
}

// Genres extracts up to eight non-structural tags for display, preserving
// the item's tag order.
func Genres(it catalog.Item) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range it.Tags {
		f := Fold(t)
		if _, builtin := builtinTags[f]; builtin {
			continue
		}
		if IsResolutionTag(t) {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, t)
		if len(out) == 8 {
			break
		}
	}
	return out
}

func foldSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		if f := Fold(v); f != "" {
			out[f] = struct{}{}
		}
	}
	return out
}

func intersects(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}
