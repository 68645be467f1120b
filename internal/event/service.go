package event

import (
	"context"
	"sort"
	"strings"
	"time"

	"watchpost.org/internal/ids"
	"watchpost.org/internal/obs"
)

const (
	summaryMinLen = 10
	summaryMaxLen = 280
)

// Store describes persistence operations required by the observation
// workflow. Aggregation inputs are returned as joined rows; grouping and
// ranking happen in the service so both backends share one code path.
type Store interface {
	Insert(ctx context.Context, o *Observation) error
	Find(ctx context.Context, id string) (*Observation, error)
	ListByUser(ctx context.Context, userID string) ([]Observation, error)
	ListForReview(ctx context.Context, f ReviewFilter) ([]ReviewItem, error)

	// ApplyDecision transitions the observation's verification state.
	// Only the unverified -> decided transition and a repeat of the same
	// decision are permitted; a conflicting decision fails with
	// ErrAlreadyDecided so exactly one decision sticks under concurrent
	// admin actions.
	ApplyDecision(ctx context.Context, id string, decision bool, score int, notes string) (*Observation, error)

	// VerifiedWithOwners returns all verified observations joined with
	// their owner, submission order ascending. Owner is nil for dangling
	// references.
	VerifiedWithOwners(ctx context.Context) ([]ReviewItem, error)

	Count(ctx context.Context) (int64, error)
}

// SubmitInput is the participant-facing submission payload. Any score a
// client sends alongside these fields is ignored; scoring happens at
// verification time only.
type SubmitInput struct {
	EventHeading string
	EventSummary string
	TimeNoted    string
}

// Service implements the scoring and verification workflow.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs a Service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock overrides the time source. Only intended for test use.
func (s *Service) WithClock(fn func() time.Time) *Service {
	if fn != nil {
		s.now = fn
	}
	return s
}

// Submit validates and persists a new observation for userID. The record
// starts unverified with score 0.
func (s *Service) Submit(ctx context.Context, userID string, in SubmitInput) (Observation, error) {
	fields := map[string]string{}

	heading := strings.TrimSpace(in.EventHeading)
	if heading == "" {
		fields["event_heading"] = "event heading is required"
	} else if !KnownHeading(heading) {
		fields["event_heading"] = "unknown event heading"
	}

	summary := strings.TrimSpace(in.EventSummary)
	if n := len([]rune(summary)); n < summaryMinLen || n > summaryMaxLen {
		fields["event_summary"] = "event summary must be between 10 and 280 characters"
	}

	timeNoted := strings.TrimSpace(in.TimeNoted)
	if timeNoted == "" {
		fields["time_noted"] = "time noted is required"
	}

	if len(fields) > 0 {
		return Observation{}, &ValidationError{Fields: fields}
	}

	o := Observation{
		ID:           ids.New(),
		UserID:       userID,
		EventHeading: heading,
		EventSummary: summary,
		TimeNoted:    timeNoted,
		SubmittedAt:  s.now().UTC(),
		IsVerified:   nil,
		Score:        0,
	}
	if err := s.store.Insert(ctx, &o); err != nil {
		return Observation{}, err
	}
	return o, nil
}

// ListByUser returns the caller's own observations, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Observation, error) {
	return s.store.ListByUser(ctx, userID)
}

// ListForReview returns observations with owner summaries for the admin
// review queue. The zero filter applies no narrowing.
func (s *Service) ListForReview(ctx context.Context, f ReviewFilter) ([]ReviewItem, error) {
	return s.store.ListForReview(ctx, f)
}

// Verify applies an admin decision to the observation. The resulting score
// is a pure function of (category, decision): the category score when
// verified, zero when rejected. Re-applying the identical decision is
// idempotent in state and score; notes follow last write wins.
func (s *Service) Verify(ctx context.Context, id string, decision bool, notes string) (Observation, error) {
	o, err := s.store.Find(ctx, id)
	if err != nil {
		return Observation{}, err
	}
	score := DecisionScore(o.EventHeading, decision)
	updated, err := s.store.ApplyDecision(ctx, id, decision, score, strings.TrimSpace(notes))
	if err != nil {
		return Observation{}, err
	}
	return *updated, nil
}

// Leaderboard derives the public ranking from verified observations:
// total score desc, observation count desc, most recent submission desc.
// Users without verified observations do not appear.
func (s *Service) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	rows, err := s.store.VerifiedWithOwners(ctx)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]*LeaderboardEntry)
	order := make([]string, 0)
	for _, row := range rows {
		e, ok := byUser[row.UserID]
		if !ok {
			e = &LeaderboardEntry{UserID: row.UserID}
			if row.Owner != nil {
				e.Name = row.Owner.Name
			}
			byUser[row.UserID] = e
			order = append(order, row.UserID)
		}
		e.TotalScore += row.Score
		e.ObservationCount++
		if row.SubmittedAt.After(e.LastSubmission) {
			e.LastSubmission = row.SubmittedAt
		}
	}

	out := make([]LeaderboardEntry, 0, len(order))
	for _, id := range order {
		e := *byUser[id]
		if e.TotalScore < 0 {
			e.TotalScore = 0
		}
		if e.Name == "" {
			e.Name = fallbackName(e.UserID)
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		if out[i].ObservationCount != out[j].ObservationCount {
			return out[i].ObservationCount > out[j].ObservationCount
		}
		return out[i].LastSubmission.After(out[j].LastSubmission)
	})
	return out, nil
}

// SuccessfulByUser groups verified observations per user for the admin
// report, ordered by total score descending. Observations whose owner
// cannot be resolved are skipped and logged, never fatal.
func (s *Service) SuccessfulByUser(ctx context.Context) ([]UserEventsGroup, error) {
	rows, err := s.store.VerifiedWithOwners(ctx)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]*UserEventsGroup)
	order := make([]string, 0)
	for _, row := range rows {
		if row.Owner == nil {
			obs.LogRequest(map[string]any{
				"ts":             time.Now().UTC().Format(time.RFC3339Nano),
				"level":          "warn",
				"msg":            "skipping observation with unresolved owner",
				"observation_id": row.ID,
				"user_id":        row.UserID,
			})
			continue
		}
		g, ok := byUser[row.UserID]
		if !ok {
			g = &UserEventsGroup{
				UserID:   row.UserID,
				Email:    row.Owner.Email,
				Name:     row.Owner.Name,
				TeamName: row.Owner.TeamName,
			}
			byUser[row.UserID] = g
			order = append(order, row.UserID)
		}
		g.Events = append(g.Events, row.Observation)
		g.TotalScore += row.Score
	}

	out := make([]UserEventsGroup, 0, len(order))
	for _, id := range order {
		out = append(out, *byUser[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalScore > out[j].TotalScore
	})
	return out, nil
}

// Count returns the total number of observations across all states.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

func fallbackName(userID string) string {
	id := userID
	if len(id) > 5 {
		id = id[:5]
	}
	return "Observer " + id
}
