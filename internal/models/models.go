package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultDescription is used when an author has no bio
const DefaultDescription = "No bio available"

// isoTimestamp matches the ISO-8601 layout existing consumers of /api/tweets parse
const isoTimestamp = "2006-01-02T15:04:05-07:00"

// Author is a snapshot of the account that posted a launch
type Author struct {
	ID              string `json:"-"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url"`
	FollowersCount  int    `json:"followers_count"`
	Description     string `json:"description"`
	Verified        bool   `json:"verified"`
}

// Record represents a validated launch extracted from a single tweet
type Record struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
	URL            string    `json:"url"`
	User           Author    `json:"user"`
	Symbol         string    `json:"symbol"`
	AdditionalText string    `json:"additional_text"`
}

// MarshalJSON writes created_at as an ISO-8601 timestamp with an explicit UTC offset
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	return json.Marshal(struct {
		plain
		CreatedAt string `json:"created_at"`
	}{
		plain:     plain(r),
		CreatedAt: r.CreatedAt.UTC().Format(isoTimestamp),
	})
}

// Permalink builds the public URL of a tweet
func Permalink(username, id string) string {
	return fmt.Sprintf("https://twitter.com/%s/status/%s", username, id)
}

// Item is a raw search result before extraction
type Item struct {
	ID        string
	Text      string
	CreatedAt time.Time
	AuthorID  string
}

// SearchResult is one page returned by the search provider.
// ResultCount counts every returned tweet, including ones dropped as malformed.
type SearchResult struct {
	Items       []Item
	Authors     map[string]Author
	NewestID    string
	ResultCount int
}

// Digest represents a periodic summary of cached launches
type Digest struct {
	GeneratedAt   time.Time      `json:"generated_at"`
	TotalLaunches int            `json:"total_launches"`
	Launches      []Record       `json:"launches"`
	Symbols       map[string]int `json:"symbols"`
	TopSymbols    []string       `json:"top_symbols"`
}
