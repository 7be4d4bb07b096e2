package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/timshannon/badgerhold/v4"
)

type record struct {
	Key   string
	Value []byte
}

// BadgerStore persists values in an embedded badger database through badgerhold.
type BadgerStore struct {
	store *badgerhold.Store
}

func NewBadgerStore(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerStore{store: store}, nil
}

func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var r record
	err := s.store.Get(key, &r)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", key, err)
	}
	return r.Value, nil
}

func (s *BadgerStore) Set(_ context.Context, key string, value []byte) error {
	if err := s.store.Upsert(key, &record{Key: key, Value: value}); err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Delete(_ context.Context, key string) error {
	err := s.store.Delete(key, &record{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("badger delete %s: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) DeletePrefix(_ context.Context, prefix string) error {
	re := regexp.MustCompile("^" + regexp.QuoteMeta(prefix))
	return s.store.DeleteMatching(&record{}, badgerhold.Where("Key").RegExp(re))
}

func (s *BadgerStore) Close() error {
	return s.store.Close()
}
