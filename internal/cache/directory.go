package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/launchwatch/launchcoin-feed/internal/models"
)

// DefaultDirectoryLimit bounds the number of remembered authors
const DefaultDirectoryLimit = 10000

// AuthorDirectory remembers the last seen profile of each accepted author.
// The least recently upserted author is dropped once the limit is reached.
type AuthorDirectory struct {
	entries *lru.Cache[string, models.Author]
}

// NewAuthorDirectory creates a directory holding at most limit authors
func NewAuthorDirectory(limit int) *AuthorDirectory {
	if limit <= 0 {
		limit = DefaultDirectoryLimit
	}
	// lru.New only fails on a non-positive size
	entries, _ := lru.New[string, models.Author](limit)
	return &AuthorDirectory{entries: entries}
}

// Upsert replaces any previous entry for the author
func (d *AuthorDirectory) Upsert(id string, author models.Author) {
	d.entries.Add(id, author)
}

// Get returns the last seen profile for an author.
// Lookups do not affect eviction order.
func (d *AuthorDirectory) Get(id string) (models.Author, bool) {
	return d.entries.Peek(id)
}

// Len returns the number of remembered authors
func (d *AuthorDirectory) Len() int {
	return d.entries.Len()
}
