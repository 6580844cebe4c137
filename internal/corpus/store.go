// Package corpus owns the three persisted pattern corpora: intents, command
// synonyms and language (command/context) patterns.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/oops"

	"github.com/kalambet/sage/internal/storage"
)

// ErrStorage marks a corpus that could not be written (or read) through the
// storage backend. The in-memory corpus keeps the change regardless.
var ErrStorage = errors.New("corpus storage unavailable")

// Store holds the in-memory corpora and writes each one back to its own
// document after every mutation. Store is not safe for concurrent use; the
// caller serialises access.
type Store struct {
	backend storage.Backend

	intents  *Intents
	synonyms *Synonyms
	language *LanguagePatterns
	loaded   bool
}

// Open loads every corpus from backend. Missing documents are seeded with the
// built-in defaults; unreadable or malformed documents fall back to the
// defaults in memory. Open never fails: storage problems are logged.
func Open(backend storage.Backend) *Store {
	s := &Store{backend: backend}
	s.Reload()
	return s
}

// Reload re-reads all three documents from the backend. Once the store has
// loaded, a malformed document keeps the corpus currently in memory.
func (s *Store) Reload() {
	s.intents = load(s, IntentsDoc, s.intents, func() *Intents { return &Intents{} }, DefaultIntents)
	s.synonyms = load(s, SynonymsDoc, s.synonyms, NewSynonyms, DefaultSynonyms)
	s.language = load(s, LanguageDoc, s.language, NewLanguagePatterns, DefaultLanguagePatterns)
	s.loaded = true
}

// normalizer is implemented by documents that must repair fields a hand edit
// may have nulled out.
type normalizer interface {
	normalize()
}

func load[T any](s *Store, name string, current T, fresh, defaults func() T) T {
	data, err := s.backend.Read(name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		def := defaults()
		if err := s.persist(name, def); err != nil {
			slog.Warn("could not seed default corpus", "corpus", name, "error", err)
		}
		return def
	case err != nil:
		slog.Warn("corpus unreadable, using defaults", "corpus", name, "error", err)
		def := defaults()
		if err := s.persist(name, def); err != nil {
			slog.Warn("could not rewrite default corpus", "corpus", name, "error", err)
		}
		return def
	}

	v := fresh()
	if err := json.Unmarshal(data, v); err != nil {
		// Leave the document alone so a hand edit can be repaired.
		if s.loaded {
			slog.Warn("corpus malformed, keeping current corpus", "corpus", name, "error", err)
			return current
		}
		slog.Warn("corpus malformed, using defaults in memory", "corpus", name, "error", err)
		return defaults()
	}
	if n, ok := any(v).(normalizer); ok {
		n.normalize()
	}
	return v
}

// Intents returns the live intents corpus. Callers must not modify it.
func (s *Store) Intents() *Intents {
	return s.intents
}

// Synonyms returns the live command synonym corpus. Callers must not modify it.
func (s *Store) Synonyms() *Synonyms {
	return s.synonyms
}

// Language returns the live language-patterns corpus. Callers must not modify it.
func (s *Store) Language() *LanguagePatterns {
	return s.language
}

// AddIntent appends a new intent, or extends the patterns and responses of
// an existing intent with the same tag, then persists the intents corpus.
func (s *Store) AddIntent(tag string, patterns, responses []string) error {
	tag = strings.TrimSpace(tag)
	if i := s.intents.Find(tag); i >= 0 {
		in := &s.intents.Intents[i]
		in.Patterns = union(in.Patterns, patterns, false)
		in.Responses = union(in.Responses, responses, false)
	} else {
		s.intents.Intents = append(s.intents.Intents, Intent{
			Tag:       tag,
			Patterns:  union(nil, patterns, false),
			Responses: union(nil, responses, false),
		})
	}
	return s.PersistIntents()
}

// AddSynonyms merges variants into the group keyed by canonical, creating the
// group on first use. Variants are lower-cased and duplicates collapsed.
func (s *Store) AddSynonyms(canonical string, variants []string) error {
	canonical = strings.ToLower(strings.TrimSpace(canonical))
	existing, _ := s.synonyms.Get(canonical)
	s.synonyms.Set(canonical, union(existing, variants, true))
	return s.PersistSynonyms()
}

// AddCommandPattern unions verbs, nouns and phrases into the command type,
// creating it on first use.
func (s *Store) AddCommandPattern(commandType string, verbs, nouns, phrases []string) error {
	commandType = strings.TrimSpace(commandType)
	cp, ok := s.language.CommandPatterns.Get(commandType)
	if !ok || cp == nil {
		cp = &CommandPattern{Verbs: []string{}, Nouns: []string{}, Phrases: []string{}}
		s.language.CommandPatterns.Set(commandType, cp)
	}
	cp.Verbs = union(cp.Verbs, verbs, true)
	cp.Nouns = union(cp.Nouns, nouns, true)
	cp.Phrases = union(cp.Phrases, phrases, true)
	return s.PersistLanguage()
}

// AddContextPattern appends keywords to the context type, creating it on
// first use.
func (s *Store) AddContextPattern(contextType string, keywords []string) error {
	contextType = strings.TrimSpace(contextType)
	existing, _ := s.language.ContextPatterns.Get(contextType)
	s.language.ContextPatterns.Set(contextType, union(existing, keywords, true))
	return s.PersistLanguage()
}

// PersistIntents rewrites the intents document.
func (s *Store) PersistIntents() error {
	return s.persist(IntentsDoc, s.intents)
}

// PersistSynonyms rewrites the command synonyms document.
func (s *Store) PersistSynonyms() error {
	return s.persist(SynonymsDoc, s.synonyms)
}

// PersistLanguage rewrites the language patterns document.
func (s *Store) PersistLanguage() error {
	return s.persist(LanguageDoc, s.language)
}

func (s *Store) persist(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return oops.In("corpus").Code("encode_error").With("corpus", name).Wrapf(err, "encoding %s", name)
	}
	if err := s.backend.Write(name, data); err != nil {
		return oops.In("corpus").Code("storage_error").With("corpus", name).
			Wrapf(fmt.Errorf("%w: %w", ErrStorage, err), "persisting %s", name)
	}
	return nil
}

// union appends the trimmed, non-empty items that dst does not hold yet.
func union(dst, items []string, lower bool) []string {
	if dst == nil {
		dst = []string{}
	}
	for _, item := range items {
		item = strings.TrimSpace(item)
		if lower {
			item = strings.ToLower(item)
		}
		if item == "" || pie.Contains(dst, item) {
			continue
		}
		dst = append(dst, item)
	}
	return dst
}
