// Package nlp turns an utterance into a command decision: command type,
// entities and context slots, using the language patterns and command
// synonyms corpora.
package nlp

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/elliotchance/pie/v2"

	"github.com/kalambet/sage/internal/corpus"
	"github.com/kalambet/sage/internal/fuzzy"
)

const (
	// CommandThreshold is the ratio a command type must exceed to be reported.
	CommandThreshold = 60
	// NormalizeThreshold is the ratio a token must exceed to be replaced by a
	// canonical command keyword.
	NormalizeThreshold = 80
)

// Patterns gives the analyzer read access to the corpora it consults.
// corpus.Store satisfies it.
type Patterns interface {
	Language() *corpus.LanguagePatterns
	Synonyms() *corpus.Synonyms
}

// Entities groups the tokens of an utterance by part of speech.
type Entities struct {
	Numbers []float64 `json:"numbers"`
	Names   []string  `json:"names"`
	Other   []string  `json:"other"`
}

// Context holds the context slots found in an utterance; "" means absent.
// Context types beyond the built-in three are reported in Extra.
type Context struct {
	Time     string            `json:"time,omitempty"`
	Location string            `json:"location,omitempty"`
	Quantity string            `json:"quantity,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Analysis is the full analyzer output for one utterance.
type Analysis struct {
	CommandType string   `json:"command_type,omitempty"`
	Confidence  int      `json:"confidence"`
	Entities    Entities `json:"entities"`
	Context     Context  `json:"context"`
	Tokens      []string `json:"tokens"`
}

// Analyzer detects commands in utterances. Callers must not mutate the
// corpora behind Patterns while a call is in progress.
type Analyzer struct {
	tagger   Tagger
	patterns Patterns
}

// NewAnalyzer returns an analyzer over patterns. A nil tagger means no
// part-of-speech tagging.
func NewAnalyzer(tagger Tagger, patterns Patterns) *Analyzer {
	if tagger == nil {
		tagger = UnknownTagger{}
	}
	return &Analyzer{tagger: tagger, patterns: patterns}
}

// Analyze runs command detection, entity extraction and context extraction.
func (a *Analyzer) Analyze(text string) Analysis {
	lower := strings.ToLower(text)
	words := tokenTexts(a.tag(lower))

	cmdType, confidence := a.detect(lower, words)
	return Analysis{
		CommandType: cmdType,
		Confidence:  confidence,
		Entities:    a.ExtractEntities(text),
		Context:     a.context(words),
		Tokens:      words,
	}
}

// DetectCommand returns the best matching command type and its ratio, or
// "" when no type scores above CommandThreshold.
func (a *Analyzer) DetectCommand(text string) (string, int) {
	lower := strings.ToLower(text)
	return a.detect(lower, tokenTexts(a.tag(lower)))
}

func (a *Analyzer) detect(lower string, words []string) (string, int) {
	best, bestType := 0, ""
	consider := func(cmdType, hit string) {
		if r := fuzzy.Ratio(lower, hit); r > best {
			best, bestType = r, cmdType
		}
	}

	for p := a.patterns.Language().CommandPatterns.Oldest(); p != nil; p = p.Next() {
		cp := p.Value
		if cp == nil {
			continue
		}
		for _, v := range cp.Verbs {
			if pie.Contains(words, v) {
				consider(p.Key, v)
			}
		}
		for _, n := range cp.Nouns {
			if pie.Contains(words, n) {
				consider(p.Key, n)
			}
		}
		for _, ph := range cp.Phrases {
			if ph != "" && strings.Contains(lower, ph) {
				consider(p.Key, ph)
			}
		}

		// All verb and noun hits of this type, in utterance order, as one hit.
		var joint []string
		for _, w := range words {
			if (pie.Contains(cp.Verbs, w) || pie.Contains(cp.Nouns, w)) && !pie.Contains(joint, w) {
				joint = append(joint, w)
			}
		}
		if len(joint) > 1 {
			consider(p.Key, strings.Join(joint, " "))
		}
	}

	if best > CommandThreshold {
		return bestType, best
	}
	return "", best
}

// ExtractEntities classifies each token of text (case preserved): numbers
// are CD-tagged or numeric tokens that parse as finite floats, names are
// noun-tagged tokens, everything else is other.
func (a *Analyzer) ExtractEntities(text string) Entities {
	ents := Entities{Numbers: []float64{}, Names: []string{}, Other: []string{}}
	for _, tok := range a.tag(text) {
		switch {
		case strings.HasPrefix(tok.Tag, "CD") || isNumeric(tok.Text):
			if f, err := strconv.ParseFloat(tok.Text, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
				ents.Numbers = append(ents.Numbers, f)
			} else {
				ents.Other = append(ents.Other, tok.Text)
			}
		case strings.HasPrefix(tok.Tag, "NN"):
			ents.Names = append(ents.Names, tok.Text)
		default:
			ents.Other = append(ents.Other, tok.Text)
		}
	}
	return ents
}

// ExtractContext fills each context slot with the first keyword of its type
// that appears as a token of text. Tokens come from the tagger, as in
// Analyze.
func (a *Analyzer) ExtractContext(text string) Context {
	return a.context(tokenTexts(a.tag(strings.ToLower(text))))
}

func (a *Analyzer) context(words []string) Context {
	var ctx Context
	for p := a.patterns.Language().ContextPatterns.Oldest(); p != nil; p = p.Next() {
		kw := pie.First(pie.Filter(p.Value, func(k string) bool { return pie.Contains(words, k) }))
		if kw == "" {
			continue
		}
		switch p.Key {
		case "time":
			ctx.Time = kw
		case "location":
			ctx.Location = kw
		case "quantity":
			ctx.Quantity = kw
		default:
			if ctx.Extra == nil {
				ctx.Extra = make(map[string]string)
			}
			ctx.Extra[p.Key] = kw
		}
	}
	return ctx
}

// NormalizeCommand maps a command onto its canonical keyword. If any
// synonym group's key or variant occurs in the command, the first such
// group's key is returned. Otherwise each token is replaced by the canonical
// key of its closest key or variant when that scores above
// NormalizeThreshold.
func (a *Analyzer) NormalizeCommand(command string) string {
	lower := strings.ToLower(command)
	syns := a.patterns.Synonyms()

	for p := syns.Oldest(); p != nil; p = p.Next() {
		if strings.Contains(lower, p.Key) {
			return p.Key
		}
		for _, v := range p.Value {
			if v != "" && strings.Contains(lower, v) {
				return p.Key
			}
		}
	}

	words := Tokenize(lower)
	for i, w := range words {
		best, match := 0, ""
		for p := syns.Oldest(); p != nil; p = p.Next() {
			for _, cand := range append([]string{p.Key}, p.Value...) {
				if r := fuzzy.Ratio(w, cand); r > NormalizeThreshold && r > best {
					best, match = r, p.Key
				}
			}
		}
		if match != "" {
			words[i] = match
		}
	}
	return strings.Join(words, " ")
}

func (a *Analyzer) tag(text string) []TaggedToken {
	toks, err := a.tagger.Tag(text)
	if err != nil {
		slog.Warn("pos tagger unavailable, tagging tokens UNKNOWN", "error", err)
		return unknownTags(text)
	}
	return toks
}

func tokenTexts(toks []TaggedToken) []string {
	out := make([]string, len(toks))
	for i, tok := range toks {
		out[i] = strings.ToLower(tok.Text)
	}
	return out
}

// isNumeric reports whether s is all digits after removing at most one '.'.
func isNumeric(s string) bool {
	s = strings.Replace(s, ".", "", 1)
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
