package extract

import (
	"errors"
	"time"

	"github.com/launchwatch/launchcoin-feed/internal/models"
)

// DefaultMaxAge is the oldest tweet that is still turned into a launch record
const DefaultMaxAge = 48 * time.Hour

// Rejection reasons returned by Extract
var (
	ErrTooOld          = errors.New("tweet is too old")
	ErrNoLaunchPattern = errors.New("no trigger $ticker +name pattern")
	ErrUnknownAuthor   = errors.New("no user data for author")
)

// Extractor turns raw search items into launch records
type Extractor struct {
	trigger string
	maxAge  time.Duration
	now     func() time.Time
}

// NewExtractor creates an extractor for the given trigger phrase
func NewExtractor(trigger string, maxAge time.Duration) *Extractor {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Extractor{
		trigger: trigger,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// WithClock replaces the wall clock, mainly for tests
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Extract validates a single item against the batch's authors.
// Checks run in order: recency, launch pattern, author resolution.
func (e *Extractor) Extract(item models.Item, authors map[string]models.Author) (models.Record, models.Author, error) {
	if e.now().Sub(item.CreatedAt) > e.maxAge {
		return models.Record{}, models.Author{}, ErrTooOld
	}

	launch, ok := ParseLaunch(e.trigger, item.Text)
	if !ok {
		return models.Record{}, models.Author{}, ErrNoLaunchPattern
	}

	author, ok := authors[item.AuthorID]
	if !ok {
		return models.Record{}, models.Author{}, ErrUnknownAuthor
	}
	if author.Description == "" {
		author.Description = models.DefaultDescription
	}
	if author.FollowersCount < 0 {
		author.FollowersCount = 0
	}

	record := models.Record{
		ID:             item.ID,
		Text:           item.Text,
		CreatedAt:      item.CreatedAt,
		URL:            models.Permalink(author.Username, item.ID),
		User:           author,
		Symbol:         launch.Symbol,
		AdditionalText: launch.AdditionalText,
	}
	return record, author, nil
}
