// Package dialogue decides whether an utterance is a command or chat, keeps
// the conversation log and applies vocabulary growth to the corpora.
package dialogue

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/sage/internal/corpus"
	"github.com/kalambet/sage/internal/fuzzy"
	"github.com/kalambet/sage/internal/nlp"
	"github.com/kalambet/sage/internal/similarity"
	"github.com/kalambet/sage/internal/thesaurus"
)

const (
	// SimilarityThreshold is the minimum cosine similarity for an intent match.
	SimilarityThreshold = 0.3
	// FuzzyThreshold is the ratio the fuzzy intent fallback must exceed.
	FuzzyThreshold = 70

	// ChatType is the command type of every conversational result.
	ChatType = "chat"

	CommandUnderstood = "Command understood."
	NotUnderstood     = "I'm not sure I understand. Could you please rephrase that?"
	NoResponse        = "I'm not sure how to respond to that."
)

// Result is the engine's decision about one utterance.
type Result struct {
	CommandType string `json:"command_type"`
	Response    string `json:"response"`
}

// Turn is one remembered exchange.
type Turn struct {
	ID            int       `json:"id"`
	Session       string    `json:"session"`
	Input         string    `json:"input"`
	Response      string    `json:"response"`
	Understanding Result    `json:"understanding"`
	At            time.Time `json:"at"`
}

// Matcher finds the pattern closest to a preprocessed utterance.
// *similarity.Space satisfies it.
type Matcher interface {
	BestMatch(text string) (int, float64, error)
}

// SpaceBuilder fits a Matcher over the flattened intent patterns.
type SpaceBuilder func(patterns []string) Matcher

// Stats summarises the loaded corpora.
type Stats struct {
	Intents       int `json:"intents"`
	Patterns      int `json:"patterns"`
	SynonymGroups int `json:"synonym_groups"`
	CommandTypes  int `json:"command_types"`
	ContextTypes  int `json:"context_types"`
	Turns         int `json:"turns"`
}

// index is an immutable view of the intents used for matching; it is
// replaced wholesale whenever intents change.
type index struct {
	space  Matcher
	counts []int
}

// intentAt maps a flattened pattern position to its intent position.
func (ix *index) intentAt(pos int) int {
	start := 0
	for i, n := range ix.counts {
		if pos < start+n {
			return i
		}
		start += n
	}
	return -1
}

// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	store    *corpus.Store
	analyzer *nlp.Analyzer
	thes     *thesaurus.Thesaurus
	build    SpaceBuilder
	idx      atomic.Pointer[index]

	rngMu sync.Mutex
	rng   *rand.Rand

	histMu  sync.Mutex
	history []Turn
	session string
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the source used to pick responses.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithTagger sets the part-of-speech tagger used by command analysis.
func WithTagger(t nlp.Tagger) Option {
	return func(e *Engine) { e.analyzer = nlp.NewAnalyzer(t, e.store) }
}

// WithThesaurus sets the thesaurus used to expand new intent patterns.
func WithThesaurus(t *thesaurus.Thesaurus) Option {
	return func(e *Engine) { e.thes = t }
}

// WithSpaceBuilder replaces the TF-IDF space used for intent matching.
func WithSpaceBuilder(b SpaceBuilder) Option {
	return func(e *Engine) { e.build = b }
}

// New returns an engine over store and fits the intent space.
func New(store *corpus.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		analyzer: nlp.NewAnalyzer(nlp.UnknownTagger{}, store),
		build:    func(patterns []string) Matcher { return similarity.Fit(patterns) },
		session:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.thes == nil {
		e.thes = thesaurus.Default()
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	e.rebuild()
	return e
}

// SessionID identifies this engine's conversation.
func (e *Engine) SessionID() string {
	return e.session
}

// rebuild fits a new space over the current intents and publishes it.
// Callers hold e.mu for writing (or have exclusive access).
func (e *Engine) rebuild() {
	intents := e.store.Intents()
	e.idx.Store(&index{
		space:  e.build(intents.AllPatterns()),
		counts: intents.PatternCounts(),
	})
}

// Understand classifies text as a command or matches it to an intent.
func (e *Engine) Understand(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{CommandType: ChatType, Response: NotUnderstood}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.understand(text)
}

func (e *Engine) understand(text string) Result {
	if cmdType, _ := e.analyzer.DetectCommand(text); cmdType != "" {
		return Result{CommandType: cmdType, Response: CommandUnderstood}
	}

	intents := e.store.Intents().Intents
	ix := e.idx.Load()

	pos, score, err := ix.space.BestMatch(nlp.Preprocess(text))
	switch {
	case err != nil && !errors.Is(err, similarity.ErrNoSpace):
		slog.Warn("similarity lookup failed", "error", err)
	case err == nil && score >= SimilarityThreshold:
		if i := ix.intentAt(pos); i >= 0 {
			if resp, ok := e.pick(intents[i].Responses); ok {
				return Result{CommandType: ChatType, Response: resp}
			}
		}
	}

	var patterns []string
	var owners []int
	for i, in := range intents {
		for _, p := range in.Patterns {
			patterns = append(patterns, p)
			owners = append(owners, i)
		}
	}
	if _, best, ratio := fuzzy.BestOf(strings.ToLower(text), patterns); best >= 0 && ratio > FuzzyThreshold {
		if resp, ok := e.pick(intents[owners[best]].Responses); ok {
			return Result{CommandType: ChatType, Response: resp}
		}
	}

	return Result{CommandType: ChatType, Response: NotUnderstood}
}

// Respond returns a random response of the intent tagged tag.
func (e *Engine) Respond(tag string) string {
	if tag == "" {
		return NoResponse
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	intents := e.store.Intents()
	i := intents.Find(tag)
	if i < 0 {
		return NoResponse
	}
	if resp, ok := e.pick(intents.Intents[i].Responses); ok {
		return resp
	}
	return NoResponse
}

func (e *Engine) pick(responses []string) (string, bool) {
	if len(responses) == 0 {
		return "", false
	}
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return responses[e.rng.IntN(len(responses))], true
}

// Remember logs an exchange; the understanding is recomputed from input.
func (e *Engine) Remember(input, response string) Turn {
	return e.RememberWith(input, response, e.Understand(input))
}

// RememberWith logs an exchange with the understanding the caller acted on.
func (e *Engine) RememberWith(input, response string, understanding Result) Turn {
	e.histMu.Lock()
	defer e.histMu.Unlock()

	turn := Turn{
		ID:            len(e.history),
		Session:       e.session,
		Input:         input,
		Response:      response,
		Understanding: understanding,
		At:            time.Now().UTC(),
	}
	e.history = append(e.history, turn)
	return turn
}

// History returns a copy of the conversation log, oldest first.
func (e *Engine) History() []Turn {
	e.histMu.Lock()
	defer e.histMu.Unlock()

	out := make([]Turn, len(e.history))
	copy(out, e.history)
	return out
}

// AddIntent expands patterns through the thesaurus and adds them, with
// responses, to the intent tagged tag (created on first use). The intent
// space is rebuilt even when persisting fails.
func (e *Engine) AddIntent(tag string, patterns, responses []string) error {
	expanded := e.thes.ExpandPatterns(patterns)

	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.store.AddIntent(tag, expanded, responses)
	e.rebuild()
	if err != nil {
		return fmt.Errorf("adding intent %q: %w", tag, err)
	}
	slog.Debug("intent added", "tag", tag, "patterns", len(expanded))
	return nil
}

// AddCommandSynonym merges variants into the synonym group of canonical.
func (e *Engine) AddCommandSynonym(canonical string, variants []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.AddSynonyms(canonical, variants); err != nil {
		return fmt.Errorf("adding synonyms for %q: %w", canonical, err)
	}
	return nil
}

// AddCommandPattern unions verbs, nouns and phrases into commandType.
func (e *Engine) AddCommandPattern(commandType string, verbs, nouns, phrases []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.AddCommandPattern(commandType, verbs, nouns, phrases); err != nil {
		return fmt.Errorf("adding command pattern %q: %w", commandType, err)
	}
	return nil
}

// AddContextPattern appends keywords to contextType.
func (e *Engine) AddContextPattern(contextType string, keywords []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.AddContextPattern(contextType, keywords); err != nil {
		return fmt.Errorf("adding context pattern %q: %w", contextType, err)
	}
	return nil
}

// Reload re-reads every corpus from storage and rebuilds the intent space.
func (e *Engine) Reload() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.Reload()
	e.rebuild()
	slog.Info("corpora reloaded", "intents", len(e.store.Intents().Intents))
}

// Analyze runs the full command analysis on text.
func (e *Engine) Analyze(text string) nlp.Analysis {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.analyzer.Analyze(text)
}

// Entities extracts entities from text.
func (e *Engine) Entities(text string) nlp.Entities {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.analyzer.ExtractEntities(text)
}

// Context extracts context slots from text.
func (e *Engine) Context(text string) nlp.Context {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.analyzer.ExtractContext(text)
}

// Normalize rewrites a command onto canonical command keywords.
func (e *Engine) Normalize(text string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.analyzer.NormalizeCommand(text)
}

// Stats reports corpus sizes and the number of remembered turns.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	intents := e.store.Intents()
	lang := e.store.Language()
	s := Stats{
		Intents:       len(intents.Intents),
		Patterns:      len(intents.AllPatterns()),
		SynonymGroups: e.store.Synonyms().Len(),
		CommandTypes:  lang.CommandPatterns.Len(),
		ContextTypes:  lang.ContextPatterns.Len(),
	}
	e.mu.RUnlock()

	e.histMu.Lock()
	s.Turns = len(e.history)
	e.histMu.Unlock()
	return s
}
