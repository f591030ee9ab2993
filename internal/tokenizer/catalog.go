package tokenizer

import (
	"fmt"
	"sync"
)

// Info describes a registered tokenizer for the catalog listing.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	VocabSize   int    `json:"vocab_size"`
}

// Catalog holds the tokenizers available to the service, keyed by id, and
// preserves registration order for stable listings.
type Catalog struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]catalogEntry
}

type catalogEntry struct {
	info Info
	tok  Tokenizer
}

func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]catalogEntry)}
}

// Register adds tok under info.ID, replacing any previous registration with
// the same id. An empty description is filled in from the vocabulary size.
func (c *Catalog) Register(info Info, tok Tokenizer) {
	if info.VocabSize == 0 {
		info.VocabSize = tok.VocabSize()
	}
	if info.Description == "" {
		info.Description = fmt.Sprintf("Tokenizer: %s (%d vocab)", info.ID, info.VocabSize)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[info.ID]; !ok {
		c.order = append(c.order, info.ID)
	}
	c.entries[info.ID] = catalogEntry{info: info, tok: tok}
}

// Get returns the tokenizer registered under id.
func (c *Catalog) Get(id string) (Tokenizer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	return e.tok, true
}

// List returns metadata for every registered tokenizer in registration order.
func (c *Catalog) List() []Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Info, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id].info)
	}
	return out
}
