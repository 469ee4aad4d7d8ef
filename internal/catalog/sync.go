package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/progress"
)

// Source fetches catalog metadata from the platform.
type Source interface {
	SolutionEntities(ctx context.Context, solution string) ([]EntityInfo, error)
	GetAttributes(ctx context.Context, table string) ([]ColumnDescriptor, error)
}

// SyncResult summarizes a field sync.
type SyncResult struct {
	Saved  []string
	Failed map[string]error
}

// SyncEntities fetches the tables of solution and rewrites both
// solution_entities.json and entity_map.json.
func (s *Store) SyncEntities(ctx context.Context, src Source, solution string) ([]EntityInfo, error) {
	if solution == "" {
		return nil, fmt.Errorf("solution unique name is required")
	}
	entities, err := src.SolutionEntities(ctx, solution)
	if err != nil {
		return nil, fmt.Errorf("fetching entities for solution %s: %w", solution, err)
	}
	if err := s.SaveSolutionEntities(entities); err != nil {
		return nil, err
	}
	if err := s.SaveEntityMap(EntityMapFrom(entities)); err != nil {
		return nil, err
	}
	s.logger.Info("entity map saved",
		zap.String("solution", solution),
		zap.Int("entities", len(entities)),
	)
	return entities, nil
}

// SyncFields refetches the column metadata of each table and replaces its
// field file. With no tables given, the cached solution listing is used. A
// failing table is recorded and the sync moves on to the next one.
func (s *Store) SyncFields(ctx context.Context, src Source, tables []string, rep progress.Reporter) (*SyncResult, error) {
	if len(tables) == 0 {
		entities, err := s.LoadSolutionEntities()
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			tables = append(tables, e.LogicalName)
		}
	}
	if rep == nil {
		rep = progress.Nop{}
	}

	res := &SyncResult{Failed: make(map[string]error)}
	rep.Start(len(tables))
	defer rep.Finish()

	for i, table := range tables {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rep.Update(i+1, table)

		cols, err := src.GetAttributes(ctx, table)
		if err != nil {
			s.logger.Warn("fetching columns failed", zap.String("table", table), zap.Error(err))
			res.Failed[table] = err
			continue
		}
		if err := s.SaveFieldFile(table, cols); err != nil {
			return res, err
		}
		s.logger.Info("field file saved", zap.String("table", table), zap.Int("columns", len(cols)))
		res.Saved = append(res.Saved, table)
	}
	return res, nil
}
