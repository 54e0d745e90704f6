// Package morphology maps words to their base forms and grammatical tags.
//
// MorphInfo entries have the form "base|TAG". Function words carry one of
// the tags CONJ, PREP, PART or INTJ; every other word is tagged W and its
// base is the snowball stem.
package morphology

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kljensen/snowball"
)

const (
	TagConjunction  = "CONJ"
	TagPreposition  = "PREP"
	TagParticle     = "PART"
	TagInterjection = "INTJ"
	TagWord         = "W"
)

var ErrUnsupportedLanguage = errors.New("unsupported morphology language")

// Analyzer is safe for concurrent use.
type Analyzer interface {
	MorphInfo(word string) []string
	NormalForms(word string) []string
}

// Snowball is an Analyzer backed by the snowball stemmers.
type Snowball struct {
	language      string
	functionWords map[string]string
}

func New(language string) (*Snowball, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if _, err := snowball.Stem("probe", language, true); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	return &Snowball{
		language:      language,
		functionWords: functionWordTable(language),
	}, nil
}

func (s *Snowball) Language() string {
	return s.language
}

func (s *Snowball) MorphInfo(word string) []string {
	word = strings.ToLower(word)
	if tag, ok := s.functionWords[word]; ok {
		return []string{word + "|" + tag}
	}
	return []string{s.stem(word) + "|" + TagWord}
}

func (s *Snowball) NormalForms(word string) []string {
	word = strings.ToLower(word)
	if _, ok := s.functionWords[word]; ok {
		return []string{word}
	}
	return []string{s.stem(word)}
}

func (s *Snowball) stem(word string) string {
	stemmed, err := snowball.Stem(word, s.language, true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

// Split separates a MorphInfo entry into base form and tag.
func Split(info string) (base, tag string) {
	base, tag, _ = strings.Cut(info, "|")
	return base, tag
}

// IsFunctionTag reports whether tag marks a word that carries no meaning on
// its own.
func IsFunctionTag(tag string) bool {
	switch tag {
	case TagConjunction, TagPreposition, TagParticle, TagInterjection:
		return true
	}
	return false
}
