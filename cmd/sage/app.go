package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/samber/do"

	"github.com/kalambet/sage/internal/config"
	"github.com/kalambet/sage/internal/corpus"
	"github.com/kalambet/sage/internal/dialogue"
	"github.com/kalambet/sage/internal/nlp"
	"github.com/kalambet/sage/internal/storage"
	"github.com/kalambet/sage/internal/thesaurus"
)

// backendService closes the storage backend when the injector shuts down.
type backendService struct {
	storage.Backend
}

var _ do.Shutdownable = (*backendService)(nil)

func (b *backendService) Shutdown() error {
	return b.Close()
}

// watchDir returns the directory holding the corpus files, if the backend
// keeps them as plain files.
func (b *backendService) watchDir() (string, bool) {
	fb, ok := b.Backend.(*storage.FileBackend)
	if !ok {
		return "", false
	}
	return fb.Dir(), true
}

// newInjector wires the engine and its dependencies for cfg. Services are
// built lazily on first invoke.
func newInjector(cfg config.Config) *do.Injector {
	di := do.New()
	do.ProvideValue(di, cfg)
	do.Provide(di, newBackend)
	do.Provide(di, newCorpusStore)
	do.Provide(di, newEngine)
	return di
}

func newBackend(di *do.Injector) (*backendService, error) {
	cfg := do.MustInvoke[config.Config](di)

	b, err := storage.Open(cfg.Storage.Backend, cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	return &backendService{Backend: b}, nil
}

func newCorpusStore(di *do.Injector) (*corpus.Store, error) {
	b, err := do.Invoke[*backendService](di)
	if err != nil {
		return nil, err
	}
	return corpus.Open(b), nil
}

func newEngine(di *do.Injector) (*dialogue.Engine, error) {
	cfg := do.MustInvoke[config.Config](di)
	store, err := do.Invoke[*corpus.Store](di)
	if err != nil {
		return nil, err
	}

	tagger, err := nlp.NewTagger(cfg.NLP.Tagger)
	if err != nil {
		return nil, err
	}

	opts := []dialogue.Option{
		dialogue.WithTagger(tagger),
		dialogue.WithThesaurus(thesaurus.Load(cfg.NLP.ThesaurusPath)),
	}
	if cfg.Engine.Seed != 0 {
		seed := uint64(cfg.Engine.Seed)
		opts = append(opts, dialogue.WithRand(rand.New(rand.NewPCG(seed, seed))))
	}
	return dialogue.New(store, opts...), nil
}
