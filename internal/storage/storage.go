package storage

import "time"

// Event is a single answered question. Events are appended in chronological order.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	UserID        int64     `json:"user_id"`
	Question      string    `json:"question"`
	Answer        string    `json:"answer"`
	SearchResults int       `json:"search_results"`
	Model         string    `json:"model,omitempty"`
	TotalTokens   int       `json:"total_tokens,omitempty"`
}

// Recorder abstracts persistence of interaction events.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}
