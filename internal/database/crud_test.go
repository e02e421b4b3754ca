package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdeck/agentdeck/internal/datamodel"
)

func testTeam(userID string) *datamodel.Team {
	return &datamodel.Team{
		UserID: userID,
		Component: &datamodel.ComponentConfig{
			Provider: "roundrobin",
			Label:    "test team",
			Config:   map[string]any{"max_turns": float64(5)},
		},
	}
}

func TestUpsert_RoundTrip(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	team := testTeam("user-1")
	res := Upsert(ctx, m, team, false)
	require.True(t, res.Status, res.Message)
	assert.Equal(t, "Team created successfully", res.Message)
	require.NotZero(t, team.ID)

	got := Get[datamodel.Team](ctx, m, map[string]any{"id": team.ID}, OrderAsc)
	require.True(t, got.Status, got.Message)
	teams := got.Data.([]*datamodel.Team)
	require.Len(t, teams, 1)
	assert.Equal(t, team.ID, teams[0].ID)
	assert.Equal(t, "user-1", teams[0].UserID)
	assert.True(t, team.Component.Equal(teams[0].Component))
}

func TestUpsert_UpdateOverwritesFieldsAndKeepsIdentity(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	team := testTeam("user-1")
	require.True(t, Upsert(ctx, m, team, false).Status)
	created := team.CreatedAt

	time.Sleep(20 * time.Millisecond)

	updated := &datamodel.Team{
		ID:        team.ID,
		UserID:    "user-2",
		Component: &datamodel.ComponentConfig{Provider: "selector"},
	}
	res := Upsert(ctx, m, updated, false)
	require.True(t, res.Status, res.Message)
	assert.Equal(t, "Team updated successfully", res.Message)

	got := Get[datamodel.Team](ctx, m, nil, OrderAsc)
	require.True(t, got.Status, got.Message)
	teams := got.Data.([]*datamodel.Team)
	require.Len(t, teams, 1, "update must not create a duplicate row")

	assert.Equal(t, team.ID, teams[0].ID)
	assert.Equal(t, "user-2", teams[0].UserID)
	assert.Equal(t, "selector", teams[0].Component.Provider)
	assert.WithinDuration(t, created, teams[0].CreatedAt, time.Second,
		"creation timestamp must survive updates")
	assert.True(t, teams[0].UpdatedAt.After(teams[0].CreatedAt))
}

func TestUpsert_ExplicitIdentifierInsert(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	team := testTeam("user-1")
	team.ID = 42
	require.True(t, Upsert(ctx, m, team, false).Status)

	got := Get[datamodel.Team](ctx, m, map[string]any{"id": int64(42)}, OrderAsc)
	require.True(t, got.Status, got.Message)
	require.Len(t, got.Data.([]*datamodel.Team), 1)
}

func TestUpsert_ReturnJSON(t *testing.T) {
	m := newTestManager(t)

	team := testTeam("user-1")
	res := Upsert(context.Background(), m, team, true)
	require.True(t, res.Status, res.Message)

	data, ok := res.Data.(map[string]any)
	require.True(t, ok, "payload must be a JSON map")
	assert.EqualValues(t, team.ID, data["id"])
	assert.Equal(t, "user-1", data["user_id"])
}

// noteRecord persists normally but cannot serialize to JSON.
type noteRecord struct {
	ID        int64
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (n *noteRecord) Table() string { return "notes" }
func (n *noteRecord) Kind() string { return "Note" }
func (n *noteRecord) Columns() []string { return []string{"note", "created_at", "updated_at"} }
func (n *noteRecord) Values() ([]any, error) { return []any{n.Note, n.CreatedAt, n.UpdatedAt}, nil }
func (n *noteRecord) ScanRow(sc datamodel.Scanner) error {
	return sc.Scan(&n.ID, &n.Note, &n.CreatedAt, &n.UpdatedAt)
}
func (n *noteRecord) RecordID() int64 { return n.ID }
func (n *noteRecord) SetRecordID(id int64) { n.ID = id }
func (n *noteRecord) CreatedTime() time.Time { return n.CreatedAt }
func (n *noteRecord) SetCreatedTime(ts time.Time) { n.CreatedAt = ts }
func (n *noteRecord) SetUpdatedTime(ts time.Time) { n.UpdatedAt = ts }

func (n *noteRecord) MarshalJSON() ([]byte, error) {
	return nil, errors.New("not serializable")
}

func TestUpsert_SerializationFailureRollsBack(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.handle().ExecContext(ctx, `CREATE TABLE notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		note TEXT,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	)`)
	require.NoError(t, err)

	res := Upsert(ctx, m, &noteRecord{Note: "hello"}, true)
	require.False(t, res.Status)
	assert.Nil(t, res.Data)

	// A failed response must not leave a persisted row behind.
	var count int
	require.NoError(t, m.handle().QueryRowContext(ctx, "SELECT count(*) FROM notes").Scan(&count))
	assert.Zero(t, count)
}

func TestUpsert_RunUUIDRoundTrip(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	session := &datamodel.Session{UserID: "user-1", Name: "chat"}
	require.True(t, Upsert(ctx, m, session, false).Status)

	run := datamodel.NewRun(session.ID, "summarize the repo")
	require.True(t, Upsert(ctx, m, run, false).Status)

	got := Get[datamodel.Run](ctx, m, map[string]any{"session_id": session.ID}, OrderAsc)
	require.True(t, got.Status, got.Message)
	runs := got.Data.([]*datamodel.Run)
	require.Len(t, runs, 1)
	assert.Equal(t, run.RunUID, runs[0].RunUID)
	assert.Equal(t, datamodel.RunStatusCreated, runs[0].Status)
}

func TestGet_EmptyResultIsSuccess(t *testing.T) {
	m := newTestManager(t)

	res := Get[datamodel.Team](context.Background(), m, map[string]any{"user_id": "nobody"}, OrderDesc)
	require.True(t, res.Status, res.Message)
	assert.Empty(t, res.Data)
}

func TestGet_UnknownFilterColumnFails(t *testing.T) {
	m := newTestManager(t)

	res := Get[datamodel.Team](context.Background(), m, map[string]any{"nope": 1}, OrderAsc)
	assert.False(t, res.Status)
	assert.Contains(t, res.Message, "unknown filter column")
	assert.Nil(t, res.Data)
}

func TestGet_OrderByCreation(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	older := testTeam("user-1")
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.True(t, Upsert(ctx, m, older, false).Status)

	newer := testTeam("user-1")
	require.True(t, Upsert(ctx, m, newer, false).Status)

	asc := Get[datamodel.Team](ctx, m, nil, OrderAsc)
	require.True(t, asc.Status, asc.Message)
	teams := asc.Data.([]*datamodel.Team)
	require.Len(t, teams, 2)
	assert.Equal(t, older.ID, teams[0].ID)

	desc := Get[datamodel.Team](ctx, m, nil, OrderDesc)
	require.True(t, desc.Status, desc.Message)
	teams = desc.Data.([]*datamodel.Team)
	require.Len(t, teams, 2)
	assert.Equal(t, newer.ID, teams[0].ID)
}

func TestDelete_ZeroRowsIsSuccess(t *testing.T) {
	m := newTestManager(t)

	res := Delete[datamodel.Team](context.Background(), m, map[string]any{"user_id": "nobody"})
	require.True(t, res.Status, res.Message)
	assert.Equal(t, "no matching rows found", res.Message)
}

func TestDelete_ReferencedRowReportsIntegrityError(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	team := testTeam("user-1")
	require.True(t, Upsert(ctx, m, team, false).Status)

	session := &datamodel.Session{UserID: "user-1", TeamID: &team.ID, Name: "chat"}
	require.True(t, Upsert(ctx, m, session, false).Status)

	res := Delete[datamodel.Team](ctx, m, map[string]any{"id": team.ID})
	assert.False(t, res.Status)
	assert.Contains(t, res.Message, "integrity error")
	assert.Nil(t, res.Data)

	// The referenced row must survive the failed delete.
	got := Get[datamodel.Team](ctx, m, map[string]any{"id": team.ID}, OrderAsc)
	require.True(t, got.Status, got.Message)
	assert.Len(t, got.Data.([]*datamodel.Team), 1)
}

func TestDelete_MatchingRows(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	team := testTeam("user-1")
	require.True(t, Upsert(ctx, m, team, false).Status)

	res := Delete[datamodel.Team](ctx, m, map[string]any{"user_id": "user-1"})
	require.True(t, res.Status, res.Message)
	assert.Equal(t, "Team deleted successfully", res.Message)

	got := Get[datamodel.Team](ctx, m, nil, OrderAsc)
	require.True(t, got.Status, got.Message)
	assert.Empty(t, got.Data)
}
