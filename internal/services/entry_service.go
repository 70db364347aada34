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

// EntryRecord is an Entry joined with its current version's document.
type EntryRecord struct {
	Entry    *types.Entry   `json:"entry"`
	Document map[string]any `json:"document"`
}

// EntryService owns the data-entity lifecycle. Entry updates intentionally
// take no expected-version parameter: version checks apply to schema writes
// only, mirroring the asymmetry the store has always had.
type EntryService interface {
	Create(dbc dbctx.Context, modelID uuid.UUID, document map[string]any, actorID *uuid.UUID) (uuid.UUID, error)
	Update(dbc dbctx.Context, id uuid.UUID, partial map[string]any, actorID *uuid.UUID) error
	Find(dbc dbctx.Context, id uuid.UUID) (*EntryRecord, error)
	FindMany(dbc dbctx.Context, ids []uuid.UUID) ([]*EntryRecord, error)
	FindDeleted(dbc dbctx.Context, id uuid.UUID) (*EntryRecord, error)
	FindManyDeleted(dbc dbctx.Context, ids []uuid.UUID) ([]*EntryRecord, error)
	Paginate(dbc dbctx.Context, modelID *uuid.UUID, page, pageSize int, criteria Criteria) ([]*EntryRecord, int64, error)
	DeleteMany(dbc dbctx.Context, ids []uuid.UUID, actorID *uuid.UUID) error
	Restore(dbc dbctx.Context, ids []uuid.UUID) error
	Purge(dbc dbctx.Context, limit int) (int, error)
	CountPurgeable(dbc dbctx.Context) (int64, error)
}

type entryService struct {
	db            *gorm.DB
	log           *logger.Logger
	models        repos.ModelRepo
	entries       repos.EntryRepo
	entryVersions repos.EntryVersionRepo
	indexer       indexer.Service
}

func NewEntryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	models repos.ModelRepo,
	entries repos.EntryRepo,
	entryVersions repos.EntryVersionRepo,
	idx indexer.Service,
) EntryService {
	return &entryService{
		db:            db,
		log:           baseLog.With("service", "EntryService"),
		models:        models,
		entries:       entries,
		entryVersions: entryVersions,
		indexer:       idx,
	}
}

func (s *entryService) withTx(dbc dbctx.Context, fn func(dbc dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(dbc.WithTx(tx))
	})
}

func (s *entryService) Create(dbc dbctx.Context, modelID uuid.UUID, document map[string]any, actorID *uuid.UUID) (uuid.UUID, error) {
	models, err := s.models.GetByIDs(dbc, []uuid.UUID{modelID})
	if err != nil {
		return uuid.Nil, err
	}
	if len(models) == 0 {
		return uuid.Nil, fmt.Errorf("model %s: %w", modelID, apperr.ErrNotFound)
	}
	raw, err := EncodeDocument(document)
	if err != nil {
		return uuid.Nil, err
	}

	entry := &types.Entry{ID: uuid.New(), ModelID: modelID, CreatorID: actorID}
	err = s.withTx(dbc, func(dbc dbctx.Context) error {
		if _, err := s.entries.Create(dbc, []*types.Entry{entry}); err != nil {
			return err
		}
		version := &types.EntryVersion{
			ID:        uuid.New(),
			EntryID:   entry.ID,
			Document:  raw,
			CreatorID: actorID,
		}
		if _, err := s.entryVersions.Create(dbc, []*types.EntryVersion{version}); err != nil {
			return err
		}
		return s.entries.SetCurrentVersion(dbc, entry.ID, version.ID)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return entry.ID, nil
}

func (s *entryService) Update(dbc dbctx.Context, id uuid.UUID, partial map[string]any, actorID *uuid.UUID) error {
	entries, err := s.entries.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("entry %s: %w", id, apperr.ErrNotFound)
	}
	entry := entries[0]

	current := map[string]any{}
	if entry.CurrentVersionID != nil {
		versions, err := s.entryVersions.GetByIDs(dbc, []uuid.UUID{*entry.CurrentVersionID})
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
	raw, err := EncodeDocument(merged)
	if err != nil {
		return err
	}

	return s.withTx(dbc, func(dbc dbctx.Context) error {
		version := &types.EntryVersion{
			ID:        uuid.New(),
			EntryID:   entry.ID,
			Document:  raw,
			CreatorID: actorID,
		}
		if _, err := s.entryVersions.Create(dbc, []*types.EntryVersion{version}); err != nil {
			return err
		}
		return s.entries.SetCurrentVersion(dbc, entry.ID, version.ID)
	})
}

func (s *entryService) Find(dbc dbctx.Context, id uuid.UUID) (*EntryRecord, error) {
	records, err := s.FindMany(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("entry %s: %w", id, apperr.ErrNotFound)
	}
	return records[0], nil
}

func (s *entryService) FindMany(dbc dbctx.Context, ids []uuid.UUID) ([]*EntryRecord, error) {
	entries, err := s.entries.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	return s.toRecords(dbc, entries)
}

func (s *entryService) FindDeleted(dbc dbctx.Context, id uuid.UUID) (*EntryRecord, error) {
	records, err := s.FindManyDeleted(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("deleted entry %s: %w", id, apperr.ErrNotFound)
	}
	return records[0], nil
}

func (s *entryService) FindManyDeleted(dbc dbctx.Context, ids []uuid.UUID) ([]*EntryRecord, error) {
	entries, err := s.entries.GetDeletedByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	return s.toRecords(dbc, entries)
}

func (s *entryService) Paginate(dbc dbctx.Context, modelID *uuid.UUID, page, pageSize int, criteria Criteria) ([]*EntryRecord, int64, error) {
	var available []string
	if len(criteria.Filters) > 0 && s.indexer != nil {
		var err error
		available, err = s.indexer.ListAllGeneratedColumns(dbc.Ctx)
		if err != nil {
			return nil, 0, err
		}
	}
	resolved, err := resolveCriteria(criteria, available)
	if err != nil {
		return nil, 0, err
	}
	entries, total, err := s.entries.Paginate(dbc, modelID, resolved, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	records, err := s.toRecords(dbc, entries)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (s *entryService) DeleteMany(dbc dbctx.Context, ids []uuid.UUID, actorID *uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(dbc, func(dbc dbctx.Context) error {
		return runCascade(dbc, []cascadeStep{
			{"soft_delete_entries", func(dbc dbctx.Context) error {
				return s.entries.SoftDeleteByIDs(dbc, ids, actorID)
			}},
			{"soft_delete_entry_versions", func(dbc dbctx.Context) error {
				return s.entryVersions.SoftDeleteByEntryIDs(dbc, ids, actorID)
			}},
		})
	})
}

func (s *entryService) Restore(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(dbc, func(dbc dbctx.Context) error {
		return runCascade(dbc, []cascadeStep{
			{"restore_entries", func(dbc dbctx.Context) error {
				return s.entries.RestoreByIDs(dbc, ids)
			}},
			{"restore_entry_versions", func(dbc dbctx.Context) error {
				return s.entryVersions.RestoreByEntryIDs(dbc, ids)
			}},
		})
	})
}

func (s *entryService) Purge(dbc dbctx.Context, limit int) (int, error) {
	purged := 0
	err := s.withTx(dbc, func(dbc dbctx.Context) error {
		candidates, err := s.entries.ListSoftDeleted(dbc, limit)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(candidates))
		for _, e := range candidates {
			ids = append(ids, e.ID)
		}
		if err := s.entryVersions.HardDeleteByEntryIDs(dbc, ids); err != nil {
			return err
		}
		if err := s.entries.HardDeleteByIDs(dbc, ids); err != nil {
			return err
		}
		purged = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

func (s *entryService) CountPurgeable(dbc dbctx.Context) (int64, error) {
	return s.entries.CountSoftDeleted(dbc)
}

func (s *entryService) toRecords(dbc dbctx.Context, entries []*types.Entry) ([]*EntryRecord, error) {
	versionIDs := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		if e.CurrentVersionID != nil {
			versionIDs = append(versionIDs, *e.CurrentVersionID)
		}
	}
	versions, err := s.entryVersions.GetByIDs(dbc, versionIDs)
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
	out := make([]*EntryRecord, 0, len(entries))
	for _, e := range entries {
		record := &EntryRecord{Entry: e, Document: map[string]any{}}
		if e.CurrentVersionID != nil {
			if doc, ok := docs[*e.CurrentVersionID]; ok {
				record.Document = doc
			}
		}
		out = append(out, record)
	}
	return out, nil
}
