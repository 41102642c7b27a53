package core

import "time"

// RecordKind identifies what a stored record contains.
type RecordKind string

const (
	KindChat    RecordKind = "chat"
	KindSummary RecordKind = "summary"
	KindPlan    RecordKind = "plan"
	KindBoard   RecordKind = "board"
	KindCard    RecordKind = "card"
)

// ValidKind reports whether kind is one of the known record kinds.
func ValidKind(kind RecordKind) bool {
	switch kind {
	case KindChat, KindSummary, KindPlan, KindBoard, KindCard:
		return true
	default:
		return false
	}
}

// Record is one persisted study artifact: a chat exchange, a summary, a
// study plan, a board, or a flashcard. Payload holds the JSON body as
// produced by its handler.
type Record struct {
	ID        string     `json:"id"`
	Owner     string     `json:"owner"`
	Kind      RecordKind `json:"kind"`
	Payload   string     `json:"payload"`
	CreatedAt time.Time  `json:"created_at"`
}

// Vote is a reaction on a shared record.
type Vote struct {
	RecordID  string    `json:"record_id"`
	Voter     string    `json:"voter"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteCounts aggregates up and down votes for a record.
type VoteCounts struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}
