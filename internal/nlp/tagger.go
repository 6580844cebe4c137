package nlp

import (
	"fmt"

	"github.com/jdkato/prose/v2"
)

// UnknownTag is assigned to every token when no part-of-speech tagger is
// available.
const UnknownTag = "UNKNOWN"

// TaggedToken is a token with its Penn Treebank part-of-speech tag.
type TaggedToken struct {
	Text string `json:"text"`
	Tag  string `json:"tag"`
}

// Tagger assigns part-of-speech tags to the tokens of a text.
type Tagger interface {
	Tag(text string) ([]TaggedToken, error)
}

// ProseTagger tags with the averaged perceptron model bundled in prose.
type ProseTagger struct{}

func (ProseTagger) Tag(text string) ([]TaggedToken, error) {
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("tagging text: %w", err)
	}
	toks := doc.Tokens()
	out := make([]TaggedToken, len(toks))
	for i, tok := range toks {
		out[i] = TaggedToken{Text: tok.Text, Tag: tok.Tag}
	}
	return out, nil
}

// UnknownTagger tokenises without tagging; every token gets UnknownTag.
type UnknownTagger struct{}

func (UnknownTagger) Tag(text string) ([]TaggedToken, error) {
	return unknownTags(text), nil
}

func unknownTags(text string) []TaggedToken {
	toks := Tokenize(text)
	out := make([]TaggedToken, len(toks))
	for i, tok := range toks {
		out[i] = TaggedToken{Text: tok, Tag: UnknownTag}
	}
	return out
}

// NewTagger returns the tagger named by kind: "prose" (the default) or
// "none".
func NewTagger(kind string) (Tagger, error) {
	switch kind {
	case "", "prose":
		return ProseTagger{}, nil
	case "none":
		return UnknownTagger{}, nil
	default:
		return nil, fmt.Errorf("unknown tagger %q", kind)
	}
}
