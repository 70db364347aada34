package indexer

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	types "github.com/yungbote/datakit-backend/internal/domain"
	"github.com/yungbote/datakit-backend/internal/pkg/apperr"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
)

// Stats aggregates one SyncAll run for observability.
type Stats struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
}

// RemovalResult reports per-column outcomes of a RemoveColumns batch.
type RemovalResult struct {
	Success []string          `json:"success"`
	Failed  map[string]string `json:"failed"`
}

// Service keeps the physical generated columns and their secondary indexes in
// sync with the union of schema field definitions.
type Service interface {
	Sync(ctx context.Context, fields []types.FieldDefinition, existing map[string]bool) error
	SyncAll(ctx context.Context) (Stats, error)
	ListAllGeneratedColumns(ctx context.Context) ([]string, error)
	FindOrphanedColumns(ctx context.Context) ([]string, error)
	RemoveColumns(ctx context.Context, names []string) (RemovalResult, error)
}

type service struct {
	db      *gorm.DB
	catalog Catalog
	log     *logger.Logger
}

func NewService(db *gorm.DB, catalog Catalog, baseLog *logger.Logger) Service {
	return &service{
		db:      db,
		catalog: catalog,
		log:     baseLog.With("service", "IndexerService"),
	}
}

// Sync ensures a generated column plus secondary index exists for every
// indexable field. The optional existing set doubles as a cross-call cache:
// when non-nil it suppresses the physical probe and is updated in place with
// newly created columns. All DDL uses IF NOT EXISTS, so concurrent syncs are
// safe to race.
func (s *service) Sync(ctx context.Context, fields []types.FieldDefinition, existing map[string]bool) error {
	if existing == nil {
		physical, err := s.ListAllGeneratedColumns(ctx)
		if err != nil {
			return fmt.Errorf("probe generated columns: %w", err)
		}
		existing = map[string]bool{}
		for _, name := range physical {
			existing[name] = true
		}
	}

	missing := missingColumns(fields, existing)
	if len(missing) == 0 {
		return nil
	}

	clauses := make([]string, 0, len(missing))
	for _, f := range missing {
		clauses = append(clauses, columnClause(f))
	}
	ddl := fmt.Sprintf("ALTER TABLE %s %s", generatedTable, strings.Join(clauses, ", "))
	if err := s.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return fmt.Errorf("create generated columns: %w", err)
	}

	for _, f := range missing {
		column := f.ColumnName()
		idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", indexName(column), generatedTable, column)
		if err := s.db.WithContext(ctx).Exec(idx).Error; err != nil {
			return fmt.Errorf("create index for %s: %w", column, err)
		}
		existing[column] = true
	}

	s.log.Info("Generated columns synced", "created", len(missing))
	return nil
}

// SyncAll walks every active model with a single catalog read and a single
// physical-existence probe shared across the run.
func (s *service) SyncAll(ctx context.Context) (Stats, error) {
	var stats Stats

	physical, err := s.ListAllGeneratedColumns(ctx)
	if err != nil {
		return stats, fmt.Errorf("probe generated columns: %w", err)
	}
	existing := map[string]bool{}
	for _, name := range physical {
		existing[name] = true
	}

	modelFields, err := s.catalog.ActiveModelFields(ctx)
	if err != nil {
		return stats, fmt.Errorf("read schema catalog: %w", err)
	}

	for modelID, fields := range modelFields {
		missing := missingColumns(fields, existing)
		if err := s.Sync(ctx, fields, existing); err != nil {
			// One broken schema must not abort the rest of the run.
			s.log.Error("Index sync failed for model", "model_id", modelID, "error", err)
			stats.Skipped += len(fields)
			continue
		}
		stats.Processed++
		stats.Created += len(missing)
		stats.Skipped += len(fields) - len(missing)
	}

	s.log.Info("Index sync complete",
		"processed", stats.Processed,
		"created", stats.Created,
		"skipped", stats.Skipped,
	)
	return stats, nil
}

// ListAllGeneratedColumns introspects the physical table, filtered to the
// v_* naming convention.
func (s *service) ListAllGeneratedColumns(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.WithContext(ctx).
		Raw(`
      SELECT column_name
      FROM information_schema.columns
      WHERE table_name = ?
        AND column_name LIKE 'v\_%'
      ORDER BY column_name
    `, generatedTable).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	// The LIKE filter is a coarse first pass; keep only names that actually
	// parse under the convention.
	filtered := out[:0]
	for _, name := range out {
		if types.ValidGeneratedColumnName(name) {
			filtered = append(filtered, name)
		}
	}
	return filtered, nil
}

// FindOrphanedColumns diffs the physical column set against the union of
// field definitions across every model version, soft-deleted versions
// included. A field referenced only by a soft-deleted schema still keeps its
// column alive.
func (s *service) FindOrphanedColumns(ctx context.Context) ([]string, error) {
	physical, err := s.ListAllGeneratedColumns(ctx)
	if err != nil {
		return nil, err
	}
	fields, err := s.catalog.AllVersionFields(ctx)
	if err != nil {
		return nil, err
	}
	return diffOrphans(physical, expectedColumns(fields)), nil
}

// RemoveColumns drops the named generated columns and their indexes. Every
// name must match the strict naming pattern before anything touches the
// database; a non-conforming name is recorded as failed and skipped. Valid
// names are dropped inside one transaction, each in its own savepoint so one
// bad column does not abort its siblings.
func (s *service) RemoveColumns(ctx context.Context, names []string) (RemovalResult, error) {
	result := RemovalResult{
		Success: []string{},
		Failed:  map[string]string{},
	}

	valid := make([]string, 0, len(names))
	for _, name := range names {
		if !types.ValidGeneratedColumnName(name) {
			result.Failed[name] = apperr.ErrInvalidColumnName.Error()
			continue
		}
		valid = append(valid, name)
	}
	if len(valid) == 0 {
		return result, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range valid {
			column := name
			dropErr := tx.Transaction(func(inner *gorm.DB) error {
				if err := inner.Exec(fmt.Sprintf("DROP INDEX IF EXISTS %s", indexName(column))).Error; err != nil {
					return err
				}
				return inner.Exec(fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s", generatedTable, column)).Error
			})
			if dropErr != nil {
				s.log.Warn("Failed to drop generated column", "column", column, "error", dropErr)
				result.Failed[column] = dropErr.Error()
				continue
			}
			result.Success = append(result.Success, column)
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}
