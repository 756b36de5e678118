// Package store persists synchronized tickets, sprints and job state in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"streamline/internal/flow"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// timeLayout is fixed-width so stored instants sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages all SQLite operations with WAL mode for concurrent access.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

// Open opens (or creates) the SQLite database and initializes the schema.
// Instants are returned in loc; a nil loc means UTC.
func Open(path string, loc *time.Location) (*Store, error) {
	if loc == nil {
		loc = time.UTC
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, loc: loc}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tickets (
		team         TEXT NOT NULL,
		ticket_key   TEXT NOT NULL,
		issue_type   TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT '',
		summary      TEXT NOT NULL DEFAULT '',
		story_points INTEGER,
		created_at   TEXT NOT NULL,
		started_at   TEXT NOT NULL,
		resolved_at  TEXT NOT NULL,
		synced_at    TEXT NOT NULL,
		PRIMARY KEY (team, ticket_key)
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_team_resolved ON tickets(team, resolved_at);

	CREATE TABLE IF NOT EXISTS sprints (
		team      TEXT NOT NULL,
		id        INTEGER NOT NULL,
		name      TEXT NOT NULL,
		goal      TEXT NOT NULL DEFAULT '',
		opened_at TEXT NOT NULL,
		closed_at TEXT NOT NULL,
		synced_at TEXT NOT NULL,
		PRIMARY KEY (team, id)
	);
	CREATE INDEX IF NOT EXISTS idx_sprints_team_closed ON sprints(team, closed_at);

	CREATE TABLE IF NOT EXISTS sprint_tickets (
		team       TEXT NOT NULL,
		sprint_id  INTEGER NOT NULL,
		position   INTEGER NOT NULL,
		ticket_key TEXT NOT NULL,
		PRIMARY KEY (team, sprint_id, ticket_key),
		FOREIGN KEY (team, sprint_id) REFERENCES sprints(team, id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_sprint_tickets_key ON sprint_tickets(team, ticket_key);

	CREATE TABLE IF NOT EXISTS jobs (
		name        TEXT NOT NULL,
		team        TEXT NOT NULL,
		run_id      TEXT NOT NULL DEFAULT '',
		metadata    TEXT NOT NULL DEFAULT '{}',
		executed_at TEXT NOT NULL,
		PRIMARY KEY (name, team)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ---------------------------------------------------------------------------
// Tickets
// ---------------------------------------------------------------------------

// SaveTicket inserts or replaces a ticket, keyed by team and key.
func (s *Store) SaveTicket(ctx context.Context, t flow.Ticket) error {
	var points sql.NullInt64
	if t.StoryPoints != nil {
		points = sql.NullInt64{Int64: int64(*t.StoryPoints), Valid: true}
	}
	now := formatTime(time.Now())

	return retryOnContention(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO tickets (team, ticket_key, issue_type, status, summary, story_points, created_at, started_at, resolved_at, synced_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(team, ticket_key) DO UPDATE SET
			   issue_type = excluded.issue_type,
			   status = excluded.status,
			   summary = excluded.summary,
			   story_points = excluded.story_points,
			   created_at = excluded.created_at,
			   started_at = excluded.started_at,
			   resolved_at = excluded.resolved_at,
			   synced_at = excluded.synced_at`,
			t.Team, t.ID, t.IssueType, t.Status, t.Summary, points,
			formatTime(t.CreatedAt), formatTime(t.StartedAt), formatTime(t.ResolvedAt), now,
		)
		return err
	})
}

// FindTicketsByTeam returns the team's tickets ordered by resolution.
func (s *Store) FindTicketsByTeam(ctx context.Context, team string) ([]flow.Ticket, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT team, ticket_key, issue_type, status, summary, story_points, created_at, started_at, resolved_at
		 FROM tickets WHERE team = ? ORDER BY resolved_at, ticket_key`, team,
	)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	tickets := []flow.Ticket{}
	for rows.Next() {
		var (
			t                          flow.Ticket
			points                     sql.NullInt64
			created, started, resolved string
		)
		if err := rows.Scan(&t.Team, &t.ID, &t.IssueType, &t.Status, &t.Summary, &points, &created, &started, &resolved); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		t.StoryPoints = intPtr(points)
		if t.CreatedAt, err = s.parseTime(created); err != nil {
			return nil, err
		}
		if t.StartedAt, err = s.parseTime(started); err != nil {
			return nil, err
		}
		if t.ResolvedAt, err = s.parseTime(resolved); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// ---------------------------------------------------------------------------
// Sprints
// ---------------------------------------------------------------------------

// SaveSprint inserts or replaces a sprint and the ordered keys of its tickets.
// Only the tickets' IDs are stored; their data comes from the tickets table.
func (s *Store) SaveSprint(ctx context.Context, sprint flow.Sprint) error {
	now := formatTime(time.Now())

	return retryOnContention(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sprints (team, id, name, goal, opened_at, closed_at, synced_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(team, id) DO UPDATE SET
			   name = excluded.name,
			   goal = excluded.goal,
			   opened_at = excluded.opened_at,
			   closed_at = excluded.closed_at,
			   synced_at = excluded.synced_at`,
			sprint.Team, sprint.ID, sprint.Name, sprint.Goal,
			formatTime(sprint.OpenedAt), formatTime(sprint.ClosedAt), now,
		); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM sprint_tickets WHERE team = ? AND sprint_id = ?`, sprint.Team, sprint.ID,
		); err != nil {
			return err
		}
		for i, t := range sprint.Tickets {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO sprint_tickets (team, sprint_id, position, ticket_key) VALUES (?, ?, ?, ?)`,
				sprint.Team, sprint.ID, i, t.ID,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// FindSprintsByTeam returns the team's sprints ordered by close date. Each sprint's tickets
// keep their Jira order; tickets not synchronized (not resolved yet) carry only their key.
func (s *Store) FindSprintsByTeam(ctx context.Context, team string) ([]flow.Sprint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, goal, opened_at, closed_at FROM sprints WHERE team = ? ORDER BY closed_at, id`, team,
	)
	if err != nil {
		return nil, fmt.Errorf("query sprints: %w", err)
	}

	sprints := []flow.Sprint{}
	index := make(map[int]int)
	for rows.Next() {
		var (
			sp             flow.Sprint
			opened, closed string
		)
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.Goal, &opened, &closed); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sprint: %w", err)
		}
		sp.Team = team
		if sp.OpenedAt, err = s.parseTime(opened); err != nil {
			rows.Close()
			return nil, err
		}
		if sp.ClosedAt, err = s.parseTime(closed); err != nil {
			rows.Close()
			return nil, err
		}
		index[sp.ID] = len(sprints)
		sprints = append(sprints, sp)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ticketRows, err := s.db.QueryContext(ctx,
		`SELECT st.sprint_id, st.ticket_key, t.issue_type, t.status, t.summary, t.story_points,
		        t.created_at, t.started_at, t.resolved_at
		 FROM sprint_tickets st
		 LEFT JOIN tickets t ON t.team = st.team AND t.ticket_key = st.ticket_key
		 WHERE st.team = ?
		 ORDER BY st.sprint_id, st.position`, team,
	)
	if err != nil {
		return nil, fmt.Errorf("query sprint tickets: %w", err)
	}
	defer ticketRows.Close()

	for ticketRows.Next() {
		var (
			sprintID                   int
			t                          flow.Ticket
			issueType, status, summary sql.NullString
			points                     sql.NullInt64
			created, started, resolved sql.NullString
		)
		if err := ticketRows.Scan(&sprintID, &t.ID, &issueType, &status, &summary, &points, &created, &started, &resolved); err != nil {
			return nil, fmt.Errorf("scan sprint ticket: %w", err)
		}
		i, ok := index[sprintID]
		if !ok {
			continue
		}
		t.Team = team
		if resolved.Valid {
			t.IssueType, t.Status, t.Summary = issueType.String, status.String, summary.String
			t.StoryPoints = intPtr(points)
			if t.CreatedAt, err = s.parseTime(created.String); err != nil {
				return nil, err
			}
			if t.StartedAt, err = s.parseTime(started.String); err != nil {
				return nil, err
			}
			if t.ResolvedAt, err = s.parseTime(resolved.String); err != nil {
				return nil, err
			}
		}
		sprints[i].Tickets = append(sprints[i].Tickets, t)
	}
	return sprints, ticketRows.Err()
}

// ---------------------------------------------------------------------------
// Jobs
// ---------------------------------------------------------------------------

// JobMetadata is the resumable state of a synchronization job.
type JobMetadata struct {
	SprintOffset  *int       `json:"sprint_offset,omitempty"`
	TicketsDoneAt *time.Time `json:"tickets_done_at,omitempty"`
}

// Job records the last run of a synchronization job for a team.
type Job struct {
	Name       string
	Team       string
	RunID      string
	Metadata   JobMetadata
	ExecutedAt time.Time
}

// FindJob returns the job record, or ErrNotFound when the job never ran for the team.
func (s *Store) FindJob(ctx context.Context, name, team string) (Job, error) {
	var (
		job      = Job{Name: name, Team: team}
		metadata string
		executed string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, metadata, executed_at FROM jobs WHERE name = ? AND team = ?`, name, team,
	).Scan(&job.RunID, &metadata, &executed)
	if errors.Is(err, sql.ErrNoRows) {
		return job, fmt.Errorf("job %s for team %s: %w", name, team, ErrNotFound)
	}
	if err != nil {
		return job, fmt.Errorf("query job: %w", err)
	}

	if err := json.Unmarshal([]byte(metadata), &job.Metadata); err != nil {
		return job, fmt.Errorf("decode job metadata: %w", err)
	}
	if job.ExecutedAt, err = s.parseTime(executed); err != nil {
		return job, err
	}
	return job, nil
}

// SaveJob inserts or replaces a job record.
func (s *Store) SaveJob(ctx context.Context, job Job) error {
	metadata, err := json.Marshal(job.Metadata)
	if err != nil {
		return fmt.Errorf("encode job metadata: %w", err)
	}
	return retryOnContention(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO jobs (name, team, run_id, metadata, executed_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(name, team) DO UPDATE SET
			   run_id = excluded.run_id,
			   metadata = excluded.metadata,
			   executed_at = excluded.executed_at`,
			job.Name, job.Team, job.RunID, string(metadata), formatTime(job.ExecutedAt),
		)
		return err
	})
}

// ---------------------------------------------------------------------------
// Maintenance
// ---------------------------------------------------------------------------

// ClearStats counts the rows removed by ClearTeam.
type ClearStats struct {
	Tickets int64
	Sprints int64
	Jobs    int64
}

// ClearTeam removes every ticket, sprint and job record of the team.
func (s *Store) ClearTeam(ctx context.Context, team string) (ClearStats, error) {
	var stats ClearStats
	err := retryOnContention(ctx, func() error {
		stats = ClearStats{}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		targets := []struct {
			query string
			count *int64
		}{
			{`DELETE FROM sprint_tickets WHERE team = ?`, nil},
			{`DELETE FROM sprints WHERE team = ?`, &stats.Sprints},
			{`DELETE FROM tickets WHERE team = ?`, &stats.Tickets},
			{`DELETE FROM jobs WHERE team = ?`, &stats.Jobs},
		}
		for _, target := range targets {
			res, err := tx.ExecContext(ctx, target.query, team)
			if err != nil {
				return err
			}
			if target.count != nil {
				if *target.count, err = res.RowsAffected(); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	})
	return stats, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func (s *Store) parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", v, err)
	}
	return t.In(s.loc), nil
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
