package summarizer

import (
	"fmt"
	"sync"
)

// KeyPool rotates between API keys to spread quota usage and route around
// keys that started erroring. Safe for concurrent use.
type KeyPool struct {
	mu   sync.Mutex
	keys []keyState
}

type keyState struct {
	key    string
	uses   int
	errors int
}

// NewKeyPool creates a pool from the configured keys.
func NewKeyPool(keys []string) (*KeyPool, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("key pool needs at least one key")
	}
	p := &KeyPool{keys: make([]keyState, 0, len(keys))}
	for _, k := range keys {
		if k == "" {
			continue
		}
		p.keys = append(p.keys, keyState{key: k})
	}
	if len(p.keys) == 0 {
		return nil, fmt.Errorf("key pool needs at least one non-empty key")
	}
	return p, nil
}

// Pick returns the healthiest key: fewest recorded errors, then least used.
// The pick counts as a use.
func (p *KeyPool) Pick() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	best := 0
	for i := 1; i < len(p.keys); i++ {
		if p.keys[i].errors < p.keys[best].errors ||
			(p.keys[i].errors == p.keys[best].errors && p.keys[i].uses < p.keys[best].uses) {
			best = i
		}
	}
	p.keys[best].uses++
	return p.keys[best].key
}

// ReportError records a failure against a key, demoting it in future picks.
func (p *KeyPool) ReportError(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.keys {
		if p.keys[i].key == key {
			p.keys[i].errors++
			return
		}
	}
}

// Len returns the number of usable keys.
func (p *KeyPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}
