package editor

import (
	"regexp"
	"sort"
	"strings"
)

// maxCandidates caps every candidate list attached to a failure.
const maxCandidates = 5

var tokenRegex = regexp.MustCompile(`\w+`)

// tokenize extracts lowercase word tokens, dropping one- and
// two-character noise.
func tokenize(s string) []string {
	words := tokenRegex.FindAllString(strings.ToLower(s), -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// jaccard returns the Jaccard similarity of two token slices.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}
	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// rankCandidates orders pool by similarity to input, best first, keeping
// original order among ties. When nothing in the pool shares a token with
// the input, the pool's head is returned as-is: a miss should still show
// the caller what exists.
func rankCandidates(input string, pool []string) []string {
	if len(pool) == 0 {
		return nil
	}

	want := tokenize(input)
	type scored struct {
		value string
		score float64
		order int
	}
	ranked := make([]scored, 0, len(pool))
	any := false
	for i, p := range pool {
		sc := jaccard(want, tokenize(p))
		if sc > 0 {
			any = true
		}
		ranked = append(ranked, scored{value: p, score: sc, order: i})
	}

	if !any {
		out := make([]string, 0, maxCandidates)
		for _, p := range pool {
			out = append(out, p)
			if len(out) == maxCandidates {
				break
			}
		}
		return out
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].order < ranked[j].order
	})

	out := make([]string, 0, maxCandidates)
	for _, r := range ranked {
		if r.score == 0 {
			break
		}
		out = append(out, r.value)
		if len(out) == maxCandidates {
			break
		}
	}
	return out
}
