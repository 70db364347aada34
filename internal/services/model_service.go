package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/datakit-backend/internal/data/repos"
	types "github.com/yungbote/datakit-backend/internal/domain"
	"github.com/yungbote/datakit-backend/internal/indexer"
	"github.com/yungbote/datakit-backend/internal/pkg/apperr"
	"github.com/yungbote/datakit-backend/internal/pkg/dbctx"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
)

// ModelRecord is a Model joined with its current version's document.
type ModelRecord struct {
	Model    *types.Model   `json:"model"`
	Document map[string]any `json:"document"`
}

// ModelService owns the schema-entity lifecycle: versioned writes with
// optimistic concurrency, cascade soft delete and restore over child entries,
// and the purge path. Every Model write that changes the field list also
// triggers an index sync; sync failures are logged, never surfaced, so a slow
// index never fails a document write.
type ModelService interface {
	Create(dbc dbctx.Context, document map[string]any, actorID *uuid.UUID) (uuid.UUID, error)
	Update(dbc dbctx.Context, id uuid.UUID, partial map[string]any, actorID *uuid.UUID, expectedVersionID *uuid.UUID) error
	Find(dbc dbctx.Context, id uuid.UUID) (*ModelRecord, error)
	FindMany(dbc dbctx.Context, ids []uuid.UUID) ([]*ModelRecord, error)
	FindDeleted(dbc dbctx.Context, id uuid.UUID) (*ModelRecord, error)
	FindManyDeleted(dbc dbctx.Context, ids []uuid.UUID) ([]*ModelRecord, error)
	Paginate(dbc dbctx.Context, page, pageSize int, criteria Criteria) ([]*ModelRecord, int64, error)
	DeleteMany(dbc dbctx.Context, ids []uuid.UUID, actorID *uuid.UUID) error
	Restore(dbc dbctx.Context, ids []uuid.UUID) error
	Purge(dbc dbctx.Context, limit int) (int, error)
	CountPurgeable(dbc dbctx.Context) (int64, error)
}

type modelService struct {
	db            *gorm.DB
	log           *logger.Logger
	models        repos.ModelRepo
	modelVersions repos.ModelVersionRepo
	entries       repos.EntryRepo
	entryVersions repos.EntryVersionRepo
	indexer       indexer.Service
}

func NewModelService(
	db *gorm.DB,
	baseLog *logger.Logger,
	models repos.ModelRepo,
	modelVersions repos.ModelVersionRepo,
	entries repos.EntryRepo,
	entryVersions repos.EntryVersionRepo,
	idx indexer.Service,
) ModelService {
	return &modelService{
		db:            db,
		log:           baseLog.With("service", "ModelService"),
		models:        models,
		modelVersions: modelVersions,
		entries:       entries,
		entryVersions: entryVersions,
		indexer:       idx,
	}
}

func (s *modelService) withTx(dbc dbctx.Context, fn func(dbc dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(dbc.WithTx(tx))
	})
}

func (s *modelService) Create(dbc dbctx.Context, document map[string]any, actorID *uuid.UUID) (uuid.UUID, error) {
	fields, err := types.FieldsFromDocument(document)
	if err != nil {
		return uuid.Nil, err
	}
	raw, err := EncodeDocument(document)
	if err != nil {
		return uuid.Nil, err
	}

	model := &types.Model{ID: uuid.New(), CreatorID: actorID}
	err = s.withTx(dbc, func(dbc dbctx.Context) error {
		if _, err := s.models.Create(dbc, []*types.Model{model}); err != nil {
			return err
		}
		version := &types.ModelVersion{
			ID:        uuid.New(),
			ModelID:   model.ID,
			Document:  raw,
			CreatorID: actorID,
		}
		if _, err := s.modelVersions.Create(dbc, []*types.ModelVersion{version}); err != nil {
			return err
		}
		return s.models.SetCurrentVersion(dbc, model.ID, version.ID)
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.syncIndexes(dbc, fields)
	return model.ID, nil
}

func (s *modelService) Update(dbc dbctx.Context, id uuid.UUID, partial map[string]any, actorID *uuid.UUID, expectedVersionID *uuid.UUID) error {
	model, err := s.getActive(dbc, id)
	if err != nil {
		return err
	}

	if expectedVersionID != nil {
		if model.CurrentVersionID == nil || *model.CurrentVersionID != *expectedVersionID {
			return &apperr.ConflictError{
				EntityID: id,
				Expected: *expectedVersionID,
				Actual:   model.CurrentVersionID,
			}
		}
	}

	current := map[string]any{}
	if model.CurrentVersionID != nil {
		versions, err := s.modelVersions.GetByIDs(dbc, []uuid.UUID{*model.CurrentVersionID})
		if err != nil {
			return err
		}
		if len(versions) == 1 {
			current, err = DecodeDocument(versions[0].Document)
			if err != nil {
				return err
			}
		}
	}

	merged := MergeDocuments(current, partial)
	fields, err := types.FieldsFromDocument(merged)
	if err != nil {
		return err
	}
	raw, err := EncodeDocument(merged)
	if err != nil {
		return err
	}

	err = s.withTx(dbc, func(dbc dbctx.Context) error {
		version := &types.ModelVersion{
			ID:        uuid.New(),
			ModelID:   model.ID,
			Document:  raw,
			CreatorID: actorID,
		}
		if _, err := s.modelVersions.Create(dbc, []*types.ModelVersion{version}); err != nil {
			return err
		}
		if expectedVersionID == nil {
			return s.models.SetCurrentVersion(dbc, model.ID, version.ID)
		}
		// The pre-check above ran outside this transaction; a concurrent
		// update may have advanced the pointer since. The conditional
		// advance re-verifies under the row write and rolls the new
		// version back on a miss.
		advanced, err := s.models.AdvanceCurrentVersion(dbc, model.ID, version.ID, *expectedVersionID)
		if err != nil {
			return err
		}
		if !advanced {
			var actual *uuid.UUID
			if fresh, err := s.models.GetByIDs(dbc, []uuid.UUID{model.ID}); err == nil && len(fresh) == 1 {
				actual = fresh[0].CurrentVersionID
			}
			return &apperr.ConflictError{
				EntityID: model.ID,
				Expected: *expectedVersionID,
				Actual:   actual,
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.syncIndexes(dbc, fields)
	return nil
}

func (s *modelService) Find(dbc dbctx.Context, id uuid.UUID) (*ModelRecord, error) {
	records, err := s.FindMany(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("model %s: %w", id, apperr.ErrNotFound)
	}
	return records[0], nil
}

func (s *modelService) FindMany(dbc dbctx.Context, ids []uuid.UUID) ([]*ModelRecord, error) {
	models, err := s.models.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	return s.toRecords(dbc, models)
}

func (s *modelService) FindDeleted(dbc dbctx.Context, id uuid.UUID) (*ModelRecord, error) {
	records, err := s.FindManyDeleted(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("deleted model %s: %w", id, apperr.ErrNotFound)
	}
	return records[0], nil
}

func (s *modelService) FindManyDeleted(dbc dbctx.Context, ids []uuid.UUID) ([]*ModelRecord, error) {
	models, err := s.models.GetDeletedByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	return s.toRecords(dbc, models)
}

func (s *modelService) Paginate(dbc dbctx.Context, page, pageSize int, criteria Criteria) ([]*ModelRecord, int64, error) {
	resolved, err := s.resolveCriteria(dbc, criteria)
	if err != nil {
		return nil, 0, err
	}
	models, total, err := s.models.Paginate(dbc, resolved, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	records, err := s.toRecords(dbc, models)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// DeleteMany soft-deletes the models and cascades over their full subtree:
// model versions, child entries, entry versions, in that order, inside one
// transaction.
func (s *modelService) DeleteMany(dbc dbctx.Context, ids []uuid.UUID, actorID *uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(dbc, func(dbc dbctx.Context) error {
		entryIDs, err := s.entries.ListIDsByModelIDs(dbc, ids)
		if err != nil {
			return err
		}
		return runCascade(dbc, []cascadeStep{
			{"soft_delete_models", func(dbc dbctx.Context) error {
				return s.models.SoftDeleteByIDs(dbc, ids, actorID)
			}},
			{"soft_delete_model_versions", func(dbc dbctx.Context) error {
				return s.modelVersions.SoftDeleteByModelIDs(dbc, ids, actorID)
			}},
			{"soft_delete_entries", func(dbc dbctx.Context) error {
				return s.entries.SoftDeleteByIDs(dbc, entryIDs, actorID)
			}},
			{"soft_delete_entry_versions", func(dbc dbctx.Context) error {
				return s.entryVersions.SoftDeleteByEntryIDs(dbc, entryIDs, actorID)
			}},
		})
	})
}

// Restore reverses the delete cascade symmetrically.
func (s *modelService) Restore(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(dbc, func(dbc dbctx.Context) error {
		entryIDs, err := s.entries.ListDeletedIDsByModelIDs(dbc, ids)
		if err != nil {
			return err
		}
		return runCascade(dbc, []cascadeStep{
			{"restore_models", func(dbc dbctx.Context) error {
				return s.models.RestoreByIDs(dbc, ids)
			}},
			{"restore_model_versions", func(dbc dbctx.Context) error {
				return s.modelVersions.RestoreByModelIDs(dbc, ids)
			}},
			{"restore_entries", func(dbc dbctx.Context) error {
				return s.entries.RestoreByIDs(dbc, entryIDs)
			}},
			{"restore_entry_versions", func(dbc dbctx.Context) error {
				return s.entryVersions.RestoreByEntryIDs(dbc, entryIDs)
			}},
		})
	})
}

// Purge permanently removes up to limit soft-deleted models. A model with any
// referencing entry, active or soft-deleted, is skipped: a blocked delete is
// not an error, just a purge that has to wait for the entry purge to run.
func (s *modelService) Purge(dbc dbctx.Context, limit int) (int, error) {
	purged := 0
	err := s.withTx(dbc, func(dbc dbctx.Context) error {
		candidates, err := s.models.ListPurgeable(dbc, limit)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}
		unblocked := make([]uuid.UUID, 0, len(candidates))
		for _, m := range candidates {
			unblocked = append(unblocked, m.ID)
		}
		if err := s.modelVersions.HardDeleteByModelIDs(dbc, unblocked); err != nil {
			return err
		}
		if err := s.models.HardDeleteByIDs(dbc, unblocked); err != nil {
			return err
		}
		purged = len(unblocked)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

func (s *modelService) CountPurgeable(dbc dbctx.Context) (int64, error) {
	return s.models.CountPurgeable(dbc)
}

func (s *modelService) getActive(dbc dbctx.Context, id uuid.UUID) (*types.Model, error) {
	models, err := s.models.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("model %s: %w", id, apperr.ErrNotFound)
	}
	return models[0], nil
}

func (s *modelService) toRecords(dbc dbctx.Context, models []*types.Model) ([]*ModelRecord, error) {
	versionIDs := make([]uuid.UUID, 0, len(models))
	for _, m := range models {
		if m.CurrentVersionID != nil {
			versionIDs = append(versionIDs, *m.CurrentVersionID)
		}
	}
	versions, err := s.modelVersions.GetByIDs(dbc, versionIDs)
	if err != nil {
		return nil, err
	}
	docs := make(map[uuid.UUID]map[string]any, len(versions))
	for _, v := range versions {
		doc, err := DecodeDocument(v.Document)
		if err != nil {
			return nil, err
		}
		docs[v.ID] = doc
	}
	out := make([]*ModelRecord, 0, len(models))
	for _, m := range models {
		record := &ModelRecord{Model: m, Document: map[string]any{}}
		if m.CurrentVersionID != nil {
			if doc, ok := docs[*m.CurrentVersionID]; ok {
				record.Document = doc
			}
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *modelService) resolveCriteria(dbc dbctx.Context, criteria Criteria) (repos.ListCriteria, error) {
	var available []string
	if len(criteria.Filters) > 0 && s.indexer != nil {
		var err error
		available, err = s.indexer.ListAllGeneratedColumns(dbc.Ctx)
		if err != nil {
			return repos.ListCriteria{}, err
		}
	}
	return resolveCriteria(criteria, available)
}

// syncIndexes runs after a committed schema write. Index sync failures are
// logged and dropped so indexing can lag but never fail the write that
// triggered it.
func (s *modelService) syncIndexes(dbc dbctx.Context, fields []types.FieldDefinition) {
	if s.indexer == nil || len(fields) == 0 {
		return
	}
	if err := s.indexer.Sync(dbc.Ctx, fields, nil); err != nil {
		s.log.Error("Index sync failed after model write", "error", err)
	}
}
