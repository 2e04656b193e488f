package token

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MinKeyLength is the minimum HMAC key size accepted in production.
const MinKeyLength = 32

// KeySet holds the HMAC signing keys by id. New tokens are signed with the
// current key; validation looks keys up by the token's kid header, so a key
// rotation is only a configuration change.
type KeySet struct {
	current string
	keys    map[string][]byte
}

// NewKeySet creates a key set. currentID must name one of keys.
func NewKeySet(currentID string, keys map[string][]byte) (*KeySet, error) {
	if len(keys) == 0 {
		return nil, errors.New("at least one signing key is required")
	}
	copied := make(map[string][]byte, len(keys))
	for id, key := range keys {
		if id == "" {
			return nil, errors.New("signing key id must not be empty")
		}
		if len(key) == 0 {
			return nil, fmt.Errorf("signing key %q is empty", id)
		}
		copied[id] = append([]byte(nil), key...)
	}
	if _, ok := copied[currentID]; !ok {
		return nil, fmt.Errorf("current signing key %q not found", currentID)
	}
	return &KeySet{current: currentID, keys: copied}, nil
}

// ParseKeySet parses "kid:secret,kid2:secret2". An empty currentID selects
// the first key in the list.
func ParseKeySet(spec, currentID string) (*KeySet, error) {
	keys := make(map[string][]byte)
	first := ""
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, secret, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("signing key entry %q must be kid:secret", part)
		}
		id = strings.TrimSpace(id)
		if _, dup := keys[id]; dup {
			return nil, fmt.Errorf("duplicate signing key id %q", id)
		}
		keys[id] = []byte(secret)
		if first == "" {
			first = id
		}
	}
	if currentID == "" {
		currentID = first
	}
	return NewKeySet(currentID, keys)
}

// Current returns the id and material of the signing key.
func (k *KeySet) Current() (string, []byte) {
	return k.current, k.keys[k.current]
}

// Lookup returns the key registered under id.
func (k *KeySet) Lookup(id string) ([]byte, bool) {
	key, ok := k.keys[id]
	return key, ok
}

// IDs returns the registered key ids in sorted order.
func (k *KeySet) IDs() []string {
	ids := make([]string, 0, len(k.keys))
	for id := range k.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ShortestKey returns the length of the weakest registered key.
func (k *KeySet) ShortestKey() int {
	shortest := -1
	for _, key := range k.keys {
		if shortest < 0 || len(key) < shortest {
			shortest = len(key)
		}
	}
	return shortest
}
