package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"compliance-assistant-be/pkg/kv"
)

// KVPersister stores canvas state as JSON under one key.
type KVPersister struct {
	store kv.Store
	key   string
}

// NewKVPersister keys state by StoreName, suffixed with userID when set.
func NewKVPersister(store kv.Store, userID string) *KVPersister {
	key := StoreName
	if userID != "" {
		key += ":" + userID
	}
	return &KVPersister{store: store, key: key}
}

func (p *KVPersister) Load(ctx context.Context) (*State, error) {
	raw, err := p.store.Get(ctx, p.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode canvas state: %w", err)
	}
	return &st, nil
}

func (p *KVPersister) Save(ctx context.Context, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode canvas state: %w", err)
	}
	return p.store.Set(ctx, p.key, raw)
}
