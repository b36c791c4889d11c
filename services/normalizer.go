package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Pre-compiled regular expressions for attribute normalization.
var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	trailingTagRe = regexp.MustCompile(`(?i)\s*-\s*\w+$`)
)

// AttributeNormalizer canonicalizes raw attribute values so that grouping
// comparisons and emitted values never diverge. It is pure and idempotent:
// normalizing an already-normalized mapping is a no-op.
type AttributeNormalizer struct {
	synonyms map[string]string
}

// NewAttributeNormalizer builds a normalizer with an optional synonym
// dictionary. Synonym keys are matched against already-canonicalized values.
func NewAttributeNormalizer(synonyms map[string]string) *AttributeNormalizer {
	canon := make(map[string]string, len(synonyms))
	for k, v := range synonyms {
		canon[canonicalize(k)] = canonicalize(v)
	}
	return &AttributeNormalizer{synonyms: canon}
}

// NormalizeValue canonicalizes a single attribute value.
func (n *AttributeNormalizer) NormalizeValue(key, value string) string {
	s := canonicalize(value)
	if mapped, ok := n.synonyms[s]; ok {
		s = mapped
	}
	// Size-like values round to the nearest whole number so "19.88" and
	// "20" compare and emit identically.
	if strings.Contains(strings.ToLower(key), "size") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			s = strconv.Itoa(int(math.Round(f)))
		}
	}
	return s
}

// NormalizeAll canonicalizes every value of an attribute mapping. Keys are
// trimmed and lowercased; values go through NormalizeValue.
func (n *AttributeNormalizer) NormalizeAll(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		key := strings.ToLower(strings.TrimSpace(k))
		out[key] = n.NormalizeValue(key, v)
	}
	return out
}

// canonicalize applies NFKC normalization, casefolding, whitespace collapse
// and hyphen/underscore folding.
func canonicalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// GeneralizeTitle strips a trailing "- Word" variant marker so a child
// title can serve as the family parent title.
func GeneralizeTitle(title string) string {
	return strings.TrimSpace(trailingTagRe.ReplaceAllString(title, ""))
}
