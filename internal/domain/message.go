package domain

import (
	"context"
	"time"
)

// Outcome classifies one webhook ingestion attempt.
type Outcome string

const (
	OutcomeCreated          Outcome = "created"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeInvalidSignature Outcome = "invalid_signature"
	OutcomeValidationError  Outcome = "validation_error"
)

// Message is one inbound message as persisted by the store. Rows are
// immutable after insert; MessageID is the uniqueness key.
type Message struct {
	MessageID string
	From      string
	To        string
	TS        time.Time
	Text      *string // nil when the webhook carried no text
	CreatedAt time.Time
}

// Filter narrows a List call. Zero values mean "no constraint".
type Filter struct {
	From   string     // exact sender match
	Since  *time.Time // ts >= Since
	Q      string     // substring match on text
	Limit  int
	Offset int
}

// SenderCount is one entry of the per-sender leaderboard.
type SenderCount struct {
	From  string
	Count int64
}

// Stats aggregates the whole store.
type Stats struct {
	TotalMessages int64
	SendersCount  int64
	FirstTS       *time.Time // nil when the store is empty
	LastTS        *time.Time
	PerSender     []SenderCount // top 10, count desc, sender asc on ties
}

// MessageStore is the persistence contract for inbound messages.
//
// Insert must be atomic with respect to concurrent inserts of the same
// MessageID: exactly one caller observes OutcomeCreated, the rest observe
// OutcomeDuplicate. A duplicate is not an error.
type MessageStore interface {
	Insert(ctx context.Context, msg Message) (Outcome, error)
	List(ctx context.Context, f Filter) ([]Message, int64, error)
	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
	Close() error
}
