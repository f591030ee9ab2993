package tokenizer

import (
	"fmt"
	"strings"
)

// WordTokenizer splits on whitespace and looks each word up in a fixed
// vocabulary. Id 0 is reserved for unknown words and the last id is the
// end-of-sequence token. Decoding joins words with single spaces, so encode
// followed by decode normalizes whitespace rather than round-tripping it.
type WordTokenizer struct {
	words []string
	index map[string]int
	eos   int
}

// NewWordTokenizer builds a tokenizer over vocab. The effective vocabulary is
// <unk> + vocab + <eos>.
func NewWordTokenizer(vocab []string) *WordTokenizer {
	words := make([]string, 0, len(vocab)+2)
	words = append(words, "<unk>")
	words = append(words, vocab...)
	words = append(words, "<eos>")

	index := make(map[string]int, len(words))
	for i, w := range words {
		if _, ok := index[w]; !ok {
			index[w] = i
		}
	}
	return &WordTokenizer{
		words: words,
		index: index,
		eos:   len(words) - 1,
	}
}

func (t *WordTokenizer) Encode(text string) ([]int, error) {
	fields := strings.Fields(text)
	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		id, ok := t.index[f]
		if !ok {
			id = 0
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (t *WordTokenizer) Decode(ids []int) (string, error) {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == t.eos {
			continue
		}
		if id < 0 || id >= len(t.words) {
			return "", fmt.Errorf("word tokenizer: id %d out of range", id)
		}
		parts = append(parts, t.words[id])
	}
	return strings.Join(parts, " "), nil
}

func (t *WordTokenizer) EOSID() int     { return t.eos }
func (t *WordTokenizer) VocabSize() int { return len(t.words) }
