package corpus

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Document names under which the corpora are persisted.
const (
	IntentsDoc  = "intents"
	SynonymsDoc = "command_synonyms"
	LanguageDoc = "language_patterns"
)

// Intent is a named cluster of example phrasings sharing candidate responses.
type Intent struct {
	Tag       string   `json:"tag"`
	Patterns  []string `json:"patterns"`
	Responses []string `json:"responses"`
}

// Intents is the persisted intents document. Declaration order matters: the
// similarity space is built over the patterns in this order.
type Intents struct {
	Intents []Intent `json:"intents"`
}

// Synonyms maps a canonical command keyword to its surface variants, in
// corpus order.
type Synonyms = orderedmap.OrderedMap[string, []string]

// CommandPattern lists the vocabulary that identifies one command type.
type CommandPattern struct {
	Verbs   []string `json:"verbs"`
	Nouns   []string `json:"nouns"`
	Phrases []string `json:"phrases"`
}

// LanguagePatterns is the persisted language-patterns document.
type LanguagePatterns struct {
	CommandPatterns *orderedmap.OrderedMap[string, *CommandPattern] `json:"command_patterns"`
	ContextPatterns *orderedmap.OrderedMap[string, []string]        `json:"context_patterns"`
}

// NewSynonyms returns an empty synonym corpus.
func NewSynonyms() *Synonyms {
	return orderedmap.New[string, []string]()
}

// NewLanguagePatterns returns an empty language-patterns corpus.
func NewLanguagePatterns() *LanguagePatterns {
	return &LanguagePatterns{
		CommandPatterns: orderedmap.New[string, *CommandPattern](),
		ContextPatterns: orderedmap.New[string, []string](),
	}
}

func (lp *LanguagePatterns) normalize() {
	if lp.CommandPatterns == nil {
		lp.CommandPatterns = orderedmap.New[string, *CommandPattern]()
	}
	if lp.ContextPatterns == nil {
		lp.ContextPatterns = orderedmap.New[string, []string]()
	}
	for p := lp.CommandPatterns.Oldest(); p != nil; p = p.Next() {
		if p.Value == nil {
			p.Value = &CommandPattern{Verbs: []string{}, Nouns: []string{}, Phrases: []string{}}
		}
	}
}

// PatternCounts returns the number of patterns of each intent, in
// declaration order.
func (d *Intents) PatternCounts() []int {
	counts := make([]int, len(d.Intents))
	for i, in := range d.Intents {
		counts[i] = len(in.Patterns)
	}
	return counts
}

// AllPatterns flattens the patterns of every intent in declaration order.
func (d *Intents) AllPatterns() []string {
	var all []string
	for _, in := range d.Intents {
		all = append(all, in.Patterns...)
	}
	return all
}

// Find returns the position of the intent tagged tag, or -1.
func (d *Intents) Find(tag string) int {
	for i, in := range d.Intents {
		if in.Tag == tag {
			return i
		}
	}
	return -1
}
