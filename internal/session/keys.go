package session

import (
	"sync"

	"optionx/pkg/crypto"
)

// maskedKey holds AES key material XOR-masked against a random mask while
// it is resident in the store, per original_source AESCrypt's intent of
// never leaving the raw key sitting in plain memory longer than needed
// (see DESIGN.md, pkg/crypto.ApplyMask).
type maskedKey struct {
	mu     sync.RWMutex
	masked []byte
	mask   []byte
}

func newMaskedKey(key []byte) (*maskedKey, error) {
	mask, err := crypto.NewMask(len(key))
	if err != nil {
		return nil, err
	}
	mk := &maskedKey{
		masked: crypto.ApplyMask(key, mask),
		mask:   mask,
	}
	return mk, nil
}

// reveal returns the raw key for the duration of a single operation. The
// caller must not retain the returned slice.
func (k *maskedKey) reveal() []byte {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return crypto.ApplyMask(k.masked, k.mask)
}

// rotate replaces the held key with a fresh one under a fresh mask.
func (k *maskedKey) rotate(key []byte) error {
	mask, err := crypto.NewMask(len(key))
	if err != nil {
		return err
	}
	masked := crypto.ApplyMask(key, mask)
	k.mu.Lock()
	k.masked = masked
	k.mask = mask
	k.mu.Unlock()
	return nil
}

// clear zeroes the held key material.
func (k *maskedKey) clear() {
	k.mu.Lock()
	for i := range k.masked {
		k.masked[i] = 0
	}
	for i := range k.mask {
		k.mask[i] = 0
	}
	k.mu.Unlock()
}
