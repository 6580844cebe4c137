package nlp

import (
	"strings"
	"unicode"
)

// Tokenize splits text into word and punctuation tokens. Contractions are
// split Treebank-style ("what's" -> "what", "'s"; "don't" -> "do", "n't").
// Decimal numbers ("3.5") and hyphenated words stay whole. Case is preserved.
func Tokenize(text string) []string {
	var out []string
	for _, field := range strings.Fields(text) {
		out = appendTokens(out, []rune(field))
	}
	return out
}

func appendTokens(out []string, rs []rune) []string {
	var word []rune
	flush := func() {
		if len(word) > 0 {
			out = append(out, string(word))
			word = word[:0]
		}
	}

	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case isWordRune(r):
			word = append(word, r)
		case (r == '.' || r == ',') && between(rs, i, unicode.IsDigit):
			word = append(word, r)
		case r == '-' && between(rs, i, isWordRune):
			word = append(word, r)
		case (r == '\'' || r == '’') && len(word) > 0 && i+1 < len(rs) && unicode.IsLetter(rs[i+1]):
			j := i + 1
			for j < len(rs) && unicode.IsLetter(rs[j]) {
				j++
			}
			suffix := "'" + string(rs[i+1:j])
			if strings.EqualFold(suffix, "'t") && len(word) > 1 && unicode.ToLower(word[len(word)-1]) == 'n' {
				suffix = string(word[len(word)-1]) + suffix
				word = word[:len(word)-1]
			}
			flush()
			out = append(out, suffix)
			i = j - 1
		default:
			flush()
			out = append(out, string(r))
		}
	}
	flush()
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func between(rs []rune, i int, ok func(rune) bool) bool {
	return i > 0 && i+1 < len(rs) && ok(rs[i-1]) && ok(rs[i+1])
}

// Preprocess lower-cases text and keeps only purely alphabetic tokens,
// joined by single spaces. "What's your name?" becomes "what your name".
func Preprocess(text string) string {
	var kept []string
	for _, tok := range Tokenize(strings.ToLower(text)) {
		if isAlpha(tok) {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
