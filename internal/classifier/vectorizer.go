package classifier

import (
	"sort"
)

// Vocabulary maps terms to feature indices. It is fit once and then frozen.
type Vocabulary struct {
	terms []string
	index map[string]int
}

// featureCount is one non-zero entry of a sparse count vector.
type featureCount struct {
	Feature int
	Count   int
}

// FitVocabulary builds a vocabulary from tokenized documents. Terms are
// indexed in lexical order so that the same corpus always yields the same
// feature layout.
func FitVocabulary(docs [][]string) Vocabulary {
	seen := make(map[string]struct{})
	for _, doc := range docs {
		for _, term := range doc {
			seen[term] = struct{}{}
		}
	}
	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return newVocabulary(terms)
}

func newVocabulary(terms []string) Vocabulary {
	index := make(map[string]int, len(terms))
	for i, term := range terms {
		index[term] = i
	}
	return Vocabulary{terms: terms, index: index}
}

// Size returns the number of features.
func (v Vocabulary) Size() int {
	return len(v.terms)
}

// Terms returns a copy of the terms in feature order.
func (v Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// Lookup returns the feature index of term.
func (v Vocabulary) Lookup(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Counts converts tokens into a sparse count vector ordered by feature.
// Out-of-vocabulary tokens are ignored.
func (v Vocabulary) Counts(tokens []string) []featureCount {
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[int]int)
	for _, tok := range tokens {
		if i, ok := v.index[tok]; ok {
			counts[i]++
		}
	}
	out := make([]featureCount, 0, len(counts))
	for feature, n := range counts {
		out = append(out, featureCount{Feature: feature, Count: n})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Feature < out[b].Feature })
	return out
}
