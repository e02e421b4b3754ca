// Package datamodel defines the persistable entities of the agentdeck
// backend: teams of agents, user sessions bound to a team, and runs executed
// inside a session. Each entity carries its own column binding so the
// database layer never needs reflection to move values in or out of rows.
package datamodel

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Scanner is the subset of sql.Row / sql.Rows needed to hydrate an entity.
type Scanner interface {
	Scan(dest ...any) error
}

// Team is an agent team owned by a user. The component payload is stored as
// flattened JSON; deduplication on import compares payloads structurally,
// not by identifier.
type Team struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id"`
	Component *ComponentConfig `json:"component"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (t *Team) Table() string { return "teams" }
func (t *Team) Kind() string { return "Team" }

func (t *Team) Columns() []string {
	return []string{"user_id", "component", "created_at", "updated_at"}
}

func (t *Team) Values() ([]any, error) {
	component, err := t.Component.MarshalDB()
	if err != nil {
		return nil, err
	}
	return []any{t.UserID, component, t.CreatedAt, t.UpdatedAt}, nil
}

func (t *Team) ScanRow(sc Scanner) error {
	var component []byte
	if err := sc.Scan(&t.ID, &t.UserID, &component, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return err
	}
	cfg, err := UnmarshalDB(component)
	if err != nil {
		return err
	}
	t.Component = cfg
	return nil
}

func (t *Team) RecordID() int64 { return t.ID }
func (t *Team) SetRecordID(id int64) { t.ID = id }
func (t *Team) CreatedTime() time.Time { return t.CreatedAt }
func (t *Team) SetCreatedTime(ts time.Time) { t.CreatedAt = ts }
func (t *Team) SetUpdatedTime(ts time.Time) { t.UpdatedAt = ts }

// Session is a user-facing conversation bound to at most one team.
type Session struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	TeamID    *int64    `json:"team_id,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) Table() string { return "sessions" }
func (s *Session) Kind() string { return "Session" }

func (s *Session) Columns() []string {
	return []string{"user_id", "team_id", "name", "created_at", "updated_at"}
}

func (s *Session) Values() ([]any, error) {
	var teamID any
	if s.TeamID != nil {
		teamID = *s.TeamID
	}
	return []any{s.UserID, teamID, s.Name, s.CreatedAt, s.UpdatedAt}, nil
}

func (s *Session) ScanRow(sc Scanner) error {
	var teamID sql.NullInt64
	if err := sc.Scan(&s.ID, &s.UserID, &teamID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return err
	}
	if teamID.Valid {
		s.TeamID = &teamID.Int64
	} else {
		s.TeamID = nil
	}
	return nil
}

func (s *Session) RecordID() int64 { return s.ID }
func (s *Session) SetRecordID(id int64) { s.ID = id }
func (s *Session) CreatedTime() time.Time { return s.CreatedAt }
func (s *Session) SetCreatedTime(ts time.Time) { s.CreatedAt = ts }
func (s *Session) SetUpdatedTime(ts time.Time) { s.UpdatedAt = ts }

// Run statuses persisted for session execution tracking.
const (
	RunStatusCreated  = "created"
	RunStatusActive   = "active"
	RunStatusComplete = "complete"
	RunStatusError    = "error"
)

// Run is a single task execution inside a session. Runs carry an external
// UUID so clients can reference them without leaking row identifiers.
type Run struct {
	ID        int64     `json:"id"`
	RunUID    uuid.UUID `json:"run_uid"`
	SessionID int64     `json:"session_id"`
	Status    string    `json:"status"`
	Task      string    `json:"task,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRun creates a run in the created state with a fresh external UUID.
func NewRun(sessionID int64, task string) *Run {
	return &Run{
		RunUID:    uuid.New(),
		SessionID: sessionID,
		Status:    RunStatusCreated,
		Task:      task,
	}
}

func (r *Run) Table() string { return "runs" }
func (r *Run) Kind() string { return "Run" }

func (r *Run) Columns() []string {
	return []string{"run_uid", "session_id", "status", "task", "created_at", "updated_at"}
}

func (r *Run) Values() ([]any, error) {
	return []any{r.RunUID.String(), r.SessionID, r.Status, r.Task, r.CreatedAt, r.UpdatedAt}, nil
}

func (r *Run) ScanRow(sc Scanner) error {
	var runUID string
	if err := sc.Scan(&r.ID, &runUID, &r.SessionID, &r.Status, &r.Task, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return err
	}
	parsed, err := uuid.Parse(runUID)
	if err != nil {
		return fmt.Errorf("invalid run uid %q: %w", runUID, err)
	}
	r.RunUID = parsed
	return nil
}

func (r *Run) RecordID() int64 { return r.ID }
func (r *Run) SetRecordID(id int64) { r.ID = id }
func (r *Run) CreatedTime() time.Time { return r.CreatedAt }
func (r *Run) SetCreatedTime(ts time.Time) { r.CreatedAt = ts }
func (r *Run) SetUpdatedTime(ts time.Time) { r.UpdatedAt = ts }
