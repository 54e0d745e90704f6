package tokenizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Tokenizer splits plain text into lowercase candidate words. It does not
// filter function words; that is the morphology's job.
type Tokenizer struct {
	minLength int
	maxLength int
}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{
		minLength: 2,
		maxLength: 50,
	}
}

func (t *Tokenizer) Tokenize(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)

	tokens := make([]string, 0, len(words))
	for _, word := range words {
		n := utf8.RuneCountInString(word)
		if n < t.minLength || n > t.maxLength {
			continue
		}

		if !t.IsValidToken(word) {
			continue
		}

		tokens = append(tokens, word)
	}
	return tokens
}

func (t *Tokenizer) TokenizeToFrequency(text string) map[string]int {
	result := make(map[string]int)
	for _, token := range t.Tokenize(text) {
		result[token]++
	}
	return result
}

// IsValidToken rejects numbers and tokens that are mostly digits.
func (t *Tokenizer) IsValidToken(word string) bool {
	alphaCount := 0
	digitCount := 0

	for _, r := range word {
		if unicode.IsLetter(r) {
			alphaCount++
		} else if unicode.IsDigit(r) {
			digitCount++
		}
	}
	if alphaCount == 0 {
		return false
	}
	if digitCount > alphaCount {
		return false
	}
	return true
}
