package database

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentdeck/agentdeck/internal/datamodel"
	"github.com/agentdeck/agentdeck/internal/teamloader"
)

// importConcurrency bounds how many directory entries import at once. The
// embedded backend serializes writes anyway; the bound matters for the
// client/server backend and for config loading.
const importConcurrency = 4

// ImportResult is the per-item outcome of a directory import.
type ImportResult struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	ID      *int64 `json:"id,omitempty"`
}

// ImportTeam stores one team configuration for a user. source is either a
// file path (resolved by the loader) or an already-loaded configuration.
// With checkExists, a structurally identical configuration already owned by
// the user short-circuits with the existing identifier and no write.
func (m *Manager) ImportTeam(ctx context.Context, source any, userID string, checkExists bool) Response {
	cfg, err := resolveTeamSource(source)
	if err != nil {
		m.logger.Error("failed to import team", "error", err)
		return failResponse(fmt.Sprintf("failed to import team: %v", err))
	}

	if checkExists {
		existing, err := m.findIdenticalTeam(ctx, cfg, userID)
		if err != nil {
			m.logger.Error("failed to import team", "error", err)
			return failResponse(fmt.Sprintf("failed to import team: %v", err))
		}
		if existing != nil {
			return okResponse("identical team configuration already exists",
				map[string]any{"id": existing.ID})
		}
	}

	team := &datamodel.Team{
		UserID:    userID,
		Component: cfg,
		CreatedAt: time.Now(),
	}
	res := Upsert(ctx, m, team, false)
	if !res.Status {
		return res
	}
	return okResponse(res.Message, map[string]any{"id": team.ID})
}

// ImportTeamsFromDirectory imports every team configuration found under a
// directory. Failures are isolated per item: one malformed file yields one
// failed entry in the result list and never aborts the rest. The aggregate
// Response is always successful once the directory itself could be read;
// per-item status lives in Data.
func (m *Manager) ImportTeamsFromDirectory(ctx context.Context, dir string, userID string, checkExists bool) Response {
	files, err := teamloader.LoadAllFromDirectory(dir)
	if err != nil {
		m.logger.Error("failed to import directory", "dir", dir, "error", err)
		return failResponse(fmt.Sprintf("failed to import directory: %v", err))
	}

	results := make([]ImportResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	// Dedup is a check-then-insert: identical items racing through it would
	// each miss the scan and insert. With checkExists the batch runs
	// sequentially so at most one copy per owner survives.
	limit := importConcurrency
	if checkExists {
		limit = 1
	}
	g.SetLimit(limit)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if file.Err != nil {
				m.logger.Error("failed to import team config", "path", file.Path, "error", file.Err)
				results[i] = ImportResult{Status: false, Message: file.Err.Error()}
				return nil
			}
			res := m.ImportTeam(gctx, file.Config, userID, checkExists)
			item := ImportResult{Status: res.Status, Message: res.Message}
			if data, ok := res.Data.(map[string]any); ok {
				if id, ok := data["id"].(int64); ok {
					item.ID = &id
				}
			}
			results[i] = item
			return nil
		})
	}
	// Item errors are captured in the result list, never returned.
	_ = g.Wait()

	return okResponse("directory import complete", results)
}

// resolveTeamSource normalizes the accepted source forms into a loaded
// configuration.
func resolveTeamSource(source any) (*datamodel.ComponentConfig, error) {
	switch src := source.(type) {
	case string:
		return teamloader.LoadOne(src)
	case *datamodel.ComponentConfig:
		if err := src.Validate(); err != nil {
			return nil, err
		}
		return src, nil
	case datamodel.ComponentConfig:
		if err := src.Validate(); err != nil {
			return nil, err
		}
		return &src, nil
	default:
		return nil, fmt.Errorf("unsupported team source type %T", source)
	}
}

// findIdenticalTeam scans the user's teams for a deep structural match of
// the configuration payload. Identity plays no part in this comparison.
func (m *Manager) findIdenticalTeam(ctx context.Context, cfg *datamodel.ComponentConfig, userID string) (*datamodel.Team, error) {
	res := Get[datamodel.Team](ctx, m, map[string]any{"user_id": userID}, OrderDesc)
	if !res.Status {
		return nil, fmt.Errorf("fetching existing teams: %s", res.Message)
	}
	teams, ok := res.Data.([]*datamodel.Team)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T", res.Data)
	}
	for _, team := range teams {
		if cfg.Equal(team.Component) {
			return team, nil
		}
	}
	return nil, nil
}
