package transcript

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entry is one persona contribution. Entries are immutable once created.
type Entry struct {
	ID           string        `json:"id"`
	MeetingID    string        `json:"meeting_id"`
	PersonaID    string        `json:"persona_id"`
	PersonaName  string        `json:"persona_name"`
	Phase        string        `json:"phase"`
	Round        int           `json:"round"`
	PersonaIndex int           `json:"persona_index"`
	Question     string        `json:"question"`
	Response     string        `json:"response"`
	Timestamp    time.Time     `json:"timestamp"`
	Duration     time.Duration `json:"duration"`
	Attempts     int           `json:"attempts"`
	Cached       bool          `json:"cached,omitempty"`
	Failed       bool          `json:"failed,omitempty"`
}

// NewID returns a short random entry identifier
func NewID() string {
	id, err := gonanoid.New(12)
	if err != nil {
		return time.Now().Format("20060102150405.000000000")
	}
	return id
}
