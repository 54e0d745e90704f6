package lemma

import (
	"github.com/deidaraiorek/lemmasearch/internal/morphology"
	"github.com/deidaraiorek/lemmasearch/internal/parser"
	"github.com/deidaraiorek/lemmasearch/internal/storage"
	"github.com/deidaraiorek/lemmasearch/internal/tokenizer"
)

// Extractor turns a raw HTML page into lemma -> rank, where rank is the sum
// of the weights of the fields each occurrence was found in.
type Extractor struct {
	analyzer  morphology.Analyzer
	tokenizer *tokenizer.Tokenizer
}

func NewExtractor(analyzer morphology.Analyzer) *Extractor {
	return &Extractor{
		analyzer:  analyzer,
		tokenizer: tokenizer.NewTokenizer(),
	}
}

// Extract returns only lemmas with a positive rank. Unparseable content
// yields an empty map.
func (e *Extractor) Extract(content string, fields []storage.Field) map[string]float64 {
	ranks := make(map[string]float64)
	if content == "" || len(fields) == 0 {
		return ranks
	}

	doc, err := parser.Parse(content)
	if err != nil {
		return ranks
	}

	for _, field := range fields {
		if field.Weight <= 0 || field.Selector == "" {
			continue
		}

		text := parser.FieldText(doc, field.Selector)
		for word, count := range e.tokenizer.TokenizeToFrequency(text) {
			for _, lemma := range e.Lemmas(word) {
				ranks[lemma] += field.Weight * float64(count)
			}
		}
	}

	return ranks
}

// Lemmas returns the base forms of word, skipping function words.
func (e *Extractor) Lemmas(word string) []string {
	var lemmas []string
	for _, info := range e.analyzer.MorphInfo(word) {
		base, tag := morphology.Split(info)
		if morphology.IsFunctionTag(tag) || base == "" {
			continue
		}
		lemmas = append(lemmas, base)
	}
	return lemmas
}
