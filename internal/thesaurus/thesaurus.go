// Package thesaurus looks up lexical synonyms and grows pattern sets with
// single-word substitutions.
package thesaurus

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed thesaurus.yaml
var builtin []byte

// Thesaurus maps a word to its senses; each sense lists its member lemmas.
type Thesaurus struct {
	senses map[string][][]string
}

// Default returns the embedded thesaurus. If it cannot be parsed the result
// is empty and every lookup yields no synonyms.
func Default() *Thesaurus {
	t, err := Parse(builtin)
	if err != nil {
		slog.Warn("built-in thesaurus unavailable, synonym expansion disabled", "error", err)
		return Empty()
	}
	return t
}

// Empty returns a thesaurus that knows no words.
func Empty() *Thesaurus {
	return &Thesaurus{senses: map[string][][]string{}}
}

// Load reads a YAML thesaurus from path. An empty path selects the
// embedded resource; an unreadable file degrades to an empty thesaurus.
func Load(path string) *Thesaurus {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("thesaurus file unavailable, synonym expansion disabled", "path", path, "error", err)
		return Empty()
	}
	t, err := Parse(data)
	if err != nil {
		slog.Warn("thesaurus file malformed, synonym expansion disabled", "path", path, "error", err)
		return Empty()
	}
	return t
}

// Parse decodes a YAML document of the form `word: [[lemma, ...], ...]`.
func Parse(data []byte) (*Thesaurus, error) {
	raw := make(map[string][][]string)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing thesaurus: %w", err)
	}
	t := &Thesaurus{senses: make(map[string][][]string, len(raw))}
	for word, senses := range raw {
		t.senses[strings.ToLower(word)] = senses
	}
	return t, nil
}

// Len returns the number of known head words.
func (t *Thesaurus) Len() int {
	return len(t.senses)
}

// SynonymsOf flattens the lemmas of every sense of word, lower-cased and
// deduplicated in first-seen order. Unknown words yield nil.
func (t *Thesaurus) SynonymsOf(word string) []string {
	senses, ok := t.senses[strings.ToLower(strings.TrimSpace(word))]
	if !ok {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, sense := range senses {
		for _, lemma := range sense {
			l := strings.ToLower(strings.ReplaceAll(lemma, "_", " "))
			if l == "" || seen[l] {
				continue
			}
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

// ExpandPatterns returns every input pattern plus, for each token of each
// pattern and each synonym of that token, the pattern with exactly that one
// token replaced. The result is deduplicated; originals come first.
func (t *Thesaurus) ExpandPatterns(patterns []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range patterns {
		add(p)
	}
	for _, p := range patterns {
		tokens := strings.Fields(p)
		for i, tok := range tokens {
			for _, syn := range t.SynonymsOf(tok) {
				variant := make([]string, len(tokens))
				copy(variant, tokens)
				variant[i] = syn
				add(strings.Join(variant, " "))
			}
		}
	}
	return out
}
