package tokenizer

import "fmt"

// byteEOS sits just past the 256 raw byte ids.
const byteEOS = 256

// ByteTokenizer maps every byte of the input to its own id. It needs no
// vocabulary file, round-trips any string exactly, and is the default
// tokenizer for the built-in demo model.
type ByteTokenizer struct{}

func NewByteTokenizer() ByteTokenizer { return ByteTokenizer{} }

func (ByteTokenizer) Encode(text string) ([]int, error) {
	ids := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		ids[i] = int(text[i])
	}
	return ids, nil
}

func (ByteTokenizer) Decode(ids []int) (string, error) {
	out := make([]byte, 0, len(ids))
	for _, id := range ids {
		if id == byteEOS {
			continue
		}
		if id < 0 || id > 255 {
			return "", fmt.Errorf("byte tokenizer: id %d out of range", id)
		}
		out = append(out, byte(id))
	}
	return string(out), nil
}

func (ByteTokenizer) EOSID() int     { return byteEOS }
func (ByteTokenizer) VocabSize() int { return byteEOS + 1 }
