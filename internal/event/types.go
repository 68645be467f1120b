package event

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Observation is a participant-submitted record of a detected security
// event. IsVerified is tri-state: nil until an admin decides, then true
// (verified) or false (rejected).
type Observation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	EventHeading string    `json:"event_heading"`
	EventSummary string    `json:"event_summary"`
	TimeNoted    string    `json:"time_noted"`
	SubmittedAt  time.Time `json:"submitted_at"`
	IsVerified   *bool     `json:"is_verified"`
	Score        int       `json:"score"`
	AdminNotes   string    `json:"admin_notes,omitempty"`
}

// Status names the verification state of an observation.
type Status string

const (
	StatusAny        Status = ""
	StatusUnverified Status = "unverified"
	StatusVerified   Status = "verified"
	StatusRejected   Status = "rejected"
)

// ParseStatus validates a status filter value. Empty means no filter.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.TrimSpace(strings.ToLower(raw))) {
	case StatusAny:
		return StatusAny, nil
	case StatusUnverified:
		return StatusUnverified, nil
	case StatusVerified:
		return StatusVerified, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("unsupported status %q", raw)
	}
}

// State reports the observation's verification status.
func (o Observation) State() Status {
	switch {
	case o.IsVerified == nil:
		return StatusUnverified
	case *o.IsVerified:
		return StatusVerified
	default:
		return StatusRejected
	}
}

// OwnerSummary is the slice of user identity the review and report views
// attach to an observation.
type OwnerSummary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	TeamName string `json:"team_name,omitempty"`
}

// ReviewItem pairs an observation with its owner for the admin listing.
// Owner is nil when the owning-user reference cannot be resolved.
type ReviewItem struct {
	Observation
	Owner *OwnerSummary `json:"owner,omitempty"`
}

// ReviewFilter narrows the admin listing. Zero value means no narrowing.
type ReviewFilter struct {
	Category Category
	Status   Status
	From     time.Time
	To       time.Time
}

// LeaderboardEntry is one ranked row of the public leaderboard.
type LeaderboardEntry struct {
	UserID           string    `json:"user_id"`
	Name             string    `json:"name"`
	TotalScore       int       `json:"total_score"`
	ObservationCount int       `json:"observation_count"`
	LastSubmission   time.Time `json:"last_submission"`
}

// UserEventsGroup is one user's verified observations with their score sum.
type UserEventsGroup struct {
	UserID     string        `json:"user_id"`
	Email      string        `json:"email"`
	Name       string        `json:"name,omitempty"`
	TeamName   string        `json:"team_name,omitempty"`
	Events     []Observation `json:"events"`
	TotalScore int           `json:"total_score"`
}

var (
	ErrNotFound = errors.New("observation not found")

	// ErrAlreadyDecided is returned when a verification decision would
	// overwrite a different, already settled decision.
	ErrAlreadyDecided = errors.New("observation already has a conflicting decision")
)

// ValidationError carries field-scoped messages for rejected input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("invalid input:")
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(e.Fields[k])
		b.WriteString(";")
	}
	return strings.TrimSuffix(b.String(), ";")
}
