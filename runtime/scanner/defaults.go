package scanner

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/net/html/atom"
)

// IsVoidElement reports whether name is an HTML void element. Void elements
// are open-tag-only: the scanner closes them as soon as their open tag ends.
func IsVoidElement(name string) bool {
	switch atom.Lookup([]byte(name)) {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Keygen, atom.Link, atom.Meta, atom.Param, atom.Source,
		atom.Track, atom.Wbr:
		return true
	}
	return false
}

// RequiresClosingTag reports whether an element left open must be closed
// explicitly. HTML elements with optional end tags may be closed implicitly
// by an ancestor's close or by the end of input.
func RequiresClosingTag(name string) bool {
	switch atom.Lookup([]byte(name)) {
	case atom.Li, atom.Dt, atom.Dd, atom.P, atom.Rb, atom.Rt, atom.Rtc, atom.Rp,
		atom.Optgroup, atom.Option, atom.Thead, atom.Tbody, atom.Tfoot, atom.Tr,
		atom.Td, atom.Th, atom.Colgroup, atom.Caption:
		return false
	}
	return true
}

// StandardBodyMode is a body-mode predicate for plain HTML hosts.
func StandardBodyMode(name string) BodyMode {
	switch atom.Lookup([]byte(name)) {
	case atom.Script:
		return BodyScript
	case atom.Style, atom.Textarea, atom.Title:
		return BodyParsedText
	case atom.Xmp, atom.Plaintext:
		return BodyStaticText
	}
	return BodyHTML
}

// ClosestMatch returns the candidate most similar to target, or "" when
// nothing is close. Candidates containing target as a case-insensitive
// subsequence rank first; otherwise the smallest edit distance of at most
// two wins.
func ClosestMatch(target string, candidates []string) string {
	if target == "" || len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", 3
	lower := strings.ToLower(target)
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(lower, strings.ToLower(c)); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
