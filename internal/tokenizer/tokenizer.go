package tokenizer

// Tokenizer converts text to token ids and back, and defines the model's
// end-of-sequence id. Implementations must be safe for concurrent use: the
// engine encodes and decodes from multiple in-flight generations at once.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
	EOSID() int
	VocabSize() int
}
