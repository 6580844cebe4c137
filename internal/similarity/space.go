// Package similarity maps short texts into a TF-IDF vector space and finds
// the nearest fitted pattern by cosine similarity.
package similarity

import (
	"errors"
	"math"
	"sort"
	"strings"
	"unicode"
)

// ErrNoSpace is returned by BestMatch when the space was fitted on an empty
// corpus or on patterns that yield no vocabulary.
var ErrNoSpace = errors.New("no vector space available")

// vector is a sparse, L2-normalised term-weight vector keyed by term index.
type vector map[int]float64

// Space is an immutable TF-IDF model plus the vector of every fitted
// pattern. Refit by building a new Space; never mutate a published one.
type Space struct {
	vocab   map[string]int
	idf     []float64
	vectors []vector
}

// Fit builds a new space over patterns. Vector i corresponds to patterns[i].
// Weighting follows the common defaults: raw term counts, smoothed idf
// ln((1+n)/(1+df))+1 and L2 normalisation.
func Fit(patterns []string) *Space {
	s := &Space{vocab: make(map[string]int)}

	docs := make([][]string, len(patterns))
	for i, p := range patterns {
		docs[i] = Terms(p)
	}

	terms := make(map[string]struct{})
	for _, d := range docs {
		for _, t := range d {
			terms[t] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(terms))
	for t := range terms {
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)
	for i, t := range sorted {
		s.vocab[t] = i
	}

	df := make([]int, len(sorted))
	for _, d := range docs {
		seen := make(map[int]bool)
		for _, t := range d {
			idx := s.vocab[t]
			if !seen[idx] {
				seen[idx] = true
				df[idx]++
			}
		}
	}

	n := float64(len(docs))
	s.idf = make([]float64, len(sorted))
	for i := range s.idf {
		s.idf[i] = math.Log((1+n)/(1+float64(df[i]))) + 1
	}

	s.vectors = make([]vector, len(docs))
	for i, d := range docs {
		s.vectors[i] = s.weigh(d)
	}

	return s
}

// Len returns the number of fitted patterns.
func (s *Space) Len() int {
	if s == nil {
		return 0
	}
	return len(s.vectors)
}

// BestMatch projects text into the space and returns the index of the most
// similar pattern with its cosine similarity in [0, 1]. The first index with
// the maximal score wins.
func (s *Space) BestMatch(text string) (int, float64, error) {
	if s == nil || len(s.vectors) == 0 || len(s.vocab) == 0 {
		return -1, 0, ErrNoSpace
	}

	q := s.weigh(Terms(text))

	bestIdx, bestScore := 0, -1.0
	for i, v := range s.vectors {
		score := dot(q, v)
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}

	return bestIdx, clamp(bestScore), nil
}

// weigh turns a term list into a normalised tf-idf vector; terms outside the
// vocabulary are ignored.
func (s *Space) weigh(terms []string) vector {
	v := make(vector)
	for _, t := range terms {
		if idx, ok := s.vocab[t]; ok {
			v[idx]++
		}
	}
	var sumSq float64
	for idx, tf := range v {
		w := tf * s.idf[idx]
		v[idx] = w
		sumSq += w * w
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	for idx := range v {
		v[idx] /= norm
	}
	return v
}

func dot(a, b vector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var sum float64
	for idx, w := range a {
		sum += w * b[idx]
	}
	return sum
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Terms lower-cases text and returns its word terms of two or more
// characters, in order.
func Terms(text string) []string {
	var terms []string
	var cur strings.Builder
	flush := func() {
		if len([]rune(cur.String())) >= 2 {
			terms = append(terms, cur.String())
		}
		cur.Reset()
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return terms
}
