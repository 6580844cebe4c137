package nlp

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kalambet/sage/internal/corpus"
)

// stubTagger tags tokens from a fixed table; unlisted tokens get "DT".
type stubTagger map[string]string

func (s stubTagger) Tag(text string) ([]TaggedToken, error) {
	var out []TaggedToken
	for _, tok := range Tokenize(text) {
		tag, ok := s[tok]
		if !ok {
			tag = "DT"
		}
		out = append(out, TaggedToken{Text: tok, Tag: tag})
	}
	return out, nil
}

type failingTagger struct{}

func (failingTagger) Tag(string) ([]TaggedToken, error) {
	return nil, errors.New("model missing")
}

type fakePatterns struct {
	language *corpus.LanguagePatterns
	synonyms *corpus.Synonyms
}

func (f fakePatterns) Language() *corpus.LanguagePatterns { return f.language }
func (f fakePatterns) Synonyms() *corpus.Synonyms         { return f.synonyms }

func defaultPatterns() fakePatterns {
	return fakePatterns{language: corpus.DefaultLanguagePatterns(), synonyms: corpus.DefaultSynonyms()}
}

func newTestAnalyzer(tagger Tagger) *Analyzer {
	return NewAnalyzer(tagger, defaultPatterns())
}

func TestDetectCommand(t *testing.T) {
	a := newTestAnalyzer(UnknownTagger{})

	tests := []struct {
		text     string
		wantType string
		wantConf int
	}{
		{"play music now", "music", 83},
		{"Play Music Now", "music", 83},
		{"what time is it", "time", 75},
		{"hello there", "", 0},
		{"", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			gotType, gotConf := a.DetectCommand(tt.text)
			if gotType != tt.wantType || gotConf != tt.wantConf {
				t.Errorf("DetectCommand(%q) = (%q, %d), want (%q, %d)", tt.text, gotType, gotConf, tt.wantType, tt.wantConf)
			}
		})
	}
}

func TestDetectCommand_BelowThreshold(t *testing.T) {
	a := newTestAnalyzer(UnknownTagger{})

	// A lone verb in a long sentence scores far below the threshold.
	cmdType, conf := a.DetectCommand("could you please open the door for me")
	if cmdType != "" {
		t.Errorf("DetectCommand = %q (%d), want no command", cmdType, conf)
	}
	if conf == 0 {
		t.Error("expected a non-zero best ratio for the verb hit")
	}
}

func TestDetectCommand_JointVerbNounHit(t *testing.T) {
	a := newTestAnalyzer(UnknownTagger{})

	// "tell" and "weather" alone stay under the threshold; together they
	// are scored as the single hit "tell weather".
	cmdType, conf := a.DetectCommand("tell me the weather")
	if cmdType != "weather" || conf != 77 {
		t.Errorf("DetectCommand = (%q, %d), want (weather, 77)", cmdType, conf)
	}
}

func TestDetectCommand_CorpusOrderBreaksTies(t *testing.T) {
	lp := corpus.NewLanguagePatterns()
	lp.CommandPatterns.Set("first", &corpus.CommandPattern{Verbs: []string{"go"}})
	lp.CommandPatterns.Set("second", &corpus.CommandPattern{Verbs: []string{"go"}})
	a := NewAnalyzer(UnknownTagger{}, fakePatterns{language: lp, synonyms: corpus.NewSynonyms()})

	if got, _ := a.DetectCommand("go"); got != "first" {
		t.Errorf("DetectCommand = %q, want first", got)
	}
}

func TestExtractEntities(t *testing.T) {
	a := newTestAnalyzer(stubTagger{"3": "CD", "items": "NNS", "list": "NN", "three": "CD"})

	tests := []struct {
		text string
		want Entities
	}{
		{
			text: "add 3 items to list",
			want: Entities{Numbers: []float64{3}, Names: []string{"items", "list"}, Other: []string{"add", "to"}},
		},
		{
			text: "add three items",
			want: Entities{Numbers: []float64{}, Names: []string{"items"}, Other: []string{"add", "three"}},
		},
		{
			text: "",
			want: Entities{Numbers: []float64{}, Names: []string{}, Other: []string{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, a.ExtractEntities(tt.text)); diff != "" {
				t.Errorf("ExtractEntities(%q) (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestExtractEntities_UntaggedNumbers(t *testing.T) {
	a := newTestAnalyzer(UnknownTagger{})

	got := a.ExtractEntities("set volume to 7.5 or three")
	if diff := cmp.Diff([]float64{7.5}, got.Numbers); diff != "" {
		t.Errorf("numbers (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"set", "volume", "to", "or", "three"}, got.Other); diff != "" {
		t.Errorf("other (-want +got):\n%s", diff)
	}
}

func TestExtractEntities_NonFiniteIsOther(t *testing.T) {
	a := newTestAnalyzer(stubTagger{"inf": "CD", "nan": "CD"})

	got := a.ExtractEntities("inf nan")
	if len(got.Numbers) != 0 {
		t.Errorf("numbers = %v, want none", got.Numbers)
	}
	if diff := cmp.Diff([]string{"inf", "nan"}, got.Other); diff != "" {
		t.Errorf("other (-want +got):\n%s", diff)
	}
}

func TestTaggerFailureFallsBackToUnknown(t *testing.T) {
	a := newTestAnalyzer(failingTagger{})

	got := a.Analyze("play music now")
	if got.CommandType != "music" {
		t.Errorf("CommandType = %q, want music", got.CommandType)
	}
	if diff := cmp.Diff([]string{"play", "music", "now"}, got.Tokens); diff != "" {
		t.Errorf("tokens (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"play", "music", "now"}, got.Entities.Other); diff != "" {
		t.Errorf("other (-want +got):\n%s", diff)
	}
}

func TestExtractContext(t *testing.T) {
	a := newTestAnalyzer(UnknownTagger{})

	tests := []struct {
		text string
		want Context
	}{
		{"play some music here now", Context{Time: "now", Location: "here", Quantity: "some"}},
		{"nothing to see", Context{}},
		// First listed keyword wins, not first in the utterance.
		{"tonight or now", Context{Time: "now"}},
		{"nowhere", Context{}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, a.ExtractContext(tt.text)); diff != "" {
				t.Errorf("ExtractContext(%q) (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestExtractContext_CustomType(t *testing.T) {
	p := defaultPatterns()
	p.language.ContextPatterns.Set("mood", []string{"happy", "sad"})
	a := NewAnalyzer(UnknownTagger{}, p)

	got := a.ExtractContext("play something sad today")
	want := Context{Time: "today", Quantity: "", Extra: map[string]string{"mood": "sad"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExtractContext (-want +got):\n%s", diff)
	}
}

func TestNormalizeCommand(t *testing.T) {
	a := newTestAnalyzer(UnknownTagger{})

	tests := []struct {
		in, want string
	}{
		{"launch the browser", "open"},
		{"please look up cats", "search"},
		{"screnshot", "screenshot"},
		{"xyzzy plugh", "xyzzy plugh"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := a.NormalizeCommand(tt.in); got != tt.want {
				t.Errorf("NormalizeCommand(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeCommand_IdempotentOnKeys(t *testing.T) {
	a := newTestAnalyzer(UnknownTagger{})

	for _, key := range []string{"time", "open", "close", "play", "volume", "screenshot", "search", "help"} {
		once := a.NormalizeCommand(key)
		if once != key {
			t.Errorf("NormalizeCommand(%q) = %q", key, once)
		}
		if twice := a.NormalizeCommand(once); twice != once {
			t.Errorf("NormalizeCommand not idempotent for %q: %q -> %q", key, once, twice)
		}
	}
}

func TestAnalyze(t *testing.T) {
	a := newTestAnalyzer(stubTagger{"music": "NN"})

	got := a.Analyze("play music now")
	want := Analysis{
		CommandType: "music",
		Confidence:  83,
		Entities:    Entities{Numbers: []float64{}, Names: []string{"music"}, Other: []string{"play", "now"}},
		Context:     Context{Time: "now"},
		Tokens:      []string{"play", "music", "now"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Analyze (-want +got):\n%s", diff)
	}
}
