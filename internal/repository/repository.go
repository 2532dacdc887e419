package repository

import (
	"context"
	"errors"
)

//go:generate mockgen -destination=mocks/store.go -package=mocks github.com/GooferByte/wellness-rewards/internal/repository Store

var (
	// ErrEmptyKey is returned by adapters when asked for a blank key.
	ErrEmptyKey = errors.New("store key is required")
)

// Store is the minimal durable key-value contract the ledger persists through.
// Writes to different keys are independent; callers needing atomicity must
// keep everything that changes together under one key.
type Store interface {
	// Get returns the value stored under key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key, value string) error
}
