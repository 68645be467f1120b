package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"watchpost.org/internal/event"
)

// Store persists observations and users in PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ event.Store = (*Store)(nil)

// Open connects to Postgres via the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle. Used by tests with sqlmock.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

const observationColumns = `id, user_id, event_heading, event_summary, time_noted, submitted_at, is_verified, score, coalesce(admin_notes,'')`

func (s *Store) Insert(ctx context.Context, o *event.Observation) error {
	_, err := s.db.ExecContext(ctx, `
		insert into observations(id, user_id, event_heading, event_summary, time_noted, submitted_at, is_verified, score, admin_notes)
		values ($1,$2,$3,$4,$5,$6,$7,$8,nullif($9,''))
	`, o.ID, o.UserID, o.EventHeading, o.EventSummary, o.TimeNoted, o.SubmittedAt, o.IsVerified, o.Score, o.AdminNotes)
	return err
}

func (s *Store) Find(ctx context.Context, id string) (*event.Observation, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+observationColumns+` from observations where id=$1`, id)
	o, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, event.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]event.Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+observationColumns+` from observations where user_id=$1 order by submitted_at desc`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []event.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *o)
	}
	return res, rows.Err()
}

func (s *Store) ListForReview(ctx context.Context, f event.ReviewFilter) ([]event.ReviewItem, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Category != "" {
		conds = append(conds, "split_part(o.event_heading, '_', 1) = "+arg(categoryPrefix(f.Category)))
	}
	switch f.Status {
	case event.StatusUnverified:
		conds = append(conds, "o.is_verified is null")
	case event.StatusVerified:
		conds = append(conds, "o.is_verified = true")
	case event.StatusRejected:
		conds = append(conds, "o.is_verified = false")
	}
	if !f.From.IsZero() {
		conds = append(conds, "o.submitted_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "o.submitted_at <= "+arg(f.To))
	}
	where := ""
	if len(conds) > 0 {
		where = "where " + strings.Join(conds, " and ")
	}

	rows, err := s.db.QueryContext(ctx, `
		select o.id, o.user_id, o.event_heading, o.event_summary, o.time_noted, o.submitted_at, o.is_verified, o.score, coalesce(o.admin_notes,''),
		       u.id, u.email, coalesce(u.name,''), coalesce(u.team_name,'')
		from observations o
		left join users u on u.id = o.user_id
		`+where+`
		order by o.submitted_at desc
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReviewItems(rows)
}

func (s *Store) ApplyDecision(ctx context.Context, id string, decision bool, score int, notes string) (*event.Observation, error) {
	// Conditional transition: only an undecided record or a repeat of the
	// same decision may be written, so concurrent conflicting decisions are
	// serialized by the database rather than silently overwriting.
	row := s.db.QueryRowContext(ctx, `
		update observations
		set is_verified=$2, score=$3, admin_notes=nullif($4,'')
		where id=$1 and (is_verified is null or is_verified=$2)
		returning `+observationColumns+`
	`, id, decision, score, notes)
	o, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`select exists(select 1 from observations where id=$1)`, id).Scan(&exists); err != nil {
			return nil, err
		}
		if exists {
			return nil, event.ErrAlreadyDecided
		}
		return nil, event.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) VerifiedWithOwners(ctx context.Context) ([]event.ReviewItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		select o.id, o.user_id, o.event_heading, o.event_summary, o.time_noted, o.submitted_at, o.is_verified, o.score, coalesce(o.admin_notes,''),
		       u.id, u.email, coalesce(u.name,''), coalesce(u.team_name,'')
		from observations o
		left join users u on u.id = o.user_id
		where o.is_verified = true
		order by o.submitted_at asc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReviewItems(rows)
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `select count(*) from observations`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObservation(row rowScanner) (*event.Observation, error) {
	var (
		o        event.Observation
		verified sql.NullBool
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.EventHeading, &o.EventSummary, &o.TimeNoted,
		&o.SubmittedAt, &verified, &o.Score, &o.AdminNotes); err != nil {
		return nil, err
	}
	if verified.Valid {
		v := verified.Bool
		o.IsVerified = &v
	}
	return &o, nil
}

func scanReviewItems(rows *sql.Rows) ([]event.ReviewItem, error) {
	var res []event.ReviewItem
	for rows.Next() {
		var (
			o        event.Observation
			verified sql.NullBool
			ownerID  sql.NullString
			email    sql.NullString
			name     sql.NullString
			team     sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.EventHeading, &o.EventSummary, &o.TimeNoted,
			&o.SubmittedAt, &verified, &o.Score, &o.AdminNotes,
			&ownerID, &email, &name, &team); err != nil {
			return nil, err
		}
		if verified.Valid {
			v := verified.Bool
			o.IsVerified = &v
		}
		item := event.ReviewItem{Observation: o}
		if ownerID.Valid {
			item.Owner = &event.OwnerSummary{
				ID:       ownerID.String,
				Email:    email.String,
				Name:     name.String,
				TeamName: team.String,
			}
		}
		res = append(res, item)
	}
	return res, rows.Err()
}

func categoryPrefix(c event.Category) string {
	if c == event.CategoryWindows {
		return "win"
	}
	return string(c)
}
