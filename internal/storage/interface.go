package storage

import "context"

// StorageInterface defines the contract for archive storage
type StorageInterface interface {
	Store(ctx context.Context, name string, data []byte) error
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}
