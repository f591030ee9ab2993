package main

import (
	"strings"

	"github.com/calebwray/spindle/internal/inference"
	"github.com/calebwray/spindle/internal/tokenizer"
	"github.com/calebwray/spindle/internal/toy"
)

// wordVocab is the fixed vocabulary of the word-level toy model.
const wordVocab = "the a an and or of to in on for is was be not it this that " +
	"one two three four five six seven eight nine ten " +
	"count from up down left right first next last time day year " +
	"model token text word line list value number result answer"

// buildRegistry assembles the built-in models and tokenizers served by both
// the CLI and the HTTP API. Weights are seeded deterministically so the same
// binary always serves the same models.
func buildRegistry() (*inference.Registry, *tokenizer.Catalog) {
	byteTok := tokenizer.NewByteTokenizer()
	wordTok := tokenizer.NewWordTokenizer(strings.Fields(wordVocab))

	reg := inference.NewRegistry()
	reg.Register("toy-byte", toy.NewLM(byteTok.VocabSize(), 64, 42), byteTok)
	reg.Register("toy-word", toy.NewLM(wordTok.VocabSize(), 32, 7), wordTok)

	catalog := tokenizer.NewCatalog()
	catalog.Register(tokenizer.Info{
		ID:   "byte",
		Name: "Byte-level",
	}, byteTok)
	catalog.Register(tokenizer.Info{
		ID:   "word",
		Name: "Word-level",
	}, wordTok)

	return reg, catalog
}
