package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/datakit-backend/internal/data/repos"
	"github.com/yungbote/datakit-backend/internal/data/repos/testutil"
	types "github.com/yungbote/datakit-backend/internal/domain"
	"github.com/yungbote/datakit-backend/internal/indexer"
	"github.com/yungbote/datakit-backend/internal/pkg/apperr"
	"github.com/yungbote/datakit-backend/internal/pkg/dbctx"
)

// fakeIndexer records sync calls so service tests never issue DDL against the
// shared test database.
type fakeIndexer struct {
	synced  [][]types.FieldDefinition
	columns []string
}

func (f *fakeIndexer) Sync(_ context.Context, fields []types.FieldDefinition, _ map[string]bool) error {
	f.synced = append(f.synced, fields)
	return nil
}

func (f *fakeIndexer) SyncAll(context.Context) (indexer.Stats, error) {
	return indexer.Stats{}, nil
}

func (f *fakeIndexer) ListAllGeneratedColumns(context.Context) ([]string, error) {
	return f.columns, nil
}

func (f *fakeIndexer) FindOrphanedColumns(context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeIndexer) RemoveColumns(context.Context, []string) (indexer.RemovalResult, error) {
	return indexer.RemovalResult{}, nil
}

type serviceEnv struct {
	dbc           dbctx.Context
	tx            *gorm.DB
	idx           *fakeIndexer
	models        repos.ModelRepo
	modelVersions repos.ModelVersionRepo
	entries       repos.EntryRepo
	entryVersions repos.EntryVersionRepo
	modelService  ModelService
	entryService  EntryService
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)

	env := &serviceEnv{
		tx:            tx,
		dbc:           dbctx.Context{Ctx: context.Background(), Tx: tx},
		idx:           &fakeIndexer{},
		models:        repos.NewModelRepo(db, log),
		modelVersions: repos.NewModelVersionRepo(db, log),
		entries:       repos.NewEntryRepo(db, log),
		entryVersions: repos.NewEntryVersionRepo(db, log),
	}
	env.modelService = NewModelService(db, log, env.models, env.modelVersions, env.entries, env.entryVersions, env.idx)
	env.entryService = NewEntryService(db, log, env.models, env.entries, env.entryVersions, env.idx)
	return env
}

func fieldsDoc(fields ...map[string]any) map[string]any {
	list := make([]any, 0, len(fields))
	for _, f := range fields {
		list = append(list, f)
	}
	return map[string]any{"name": "test schema", types.DocumentFieldsKey: list}
}

func TestModelServiceCreateAndFind(t *testing.T) {
	env := newServiceEnv(t)

	doc := fieldsDoc(map[string]any{"id": "title", "type": "string"})
	id, err := env.modelService.Create(env.dbc, doc, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	record, err := env.modelService.Find(env.dbc, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if record.Model.CurrentVersionID == nil {
		t.Fatalf("current version not set")
	}
	if record.Document["name"] != "test schema" {
		t.Fatalf("document not returned: %v", record.Document)
	}

	if len(env.idx.synced) != 1 || env.idx.synced[0][0].ID != "title" {
		t.Fatalf("index sync not triggered with fields: %+v", env.idx.synced)
	}
}

func TestModelServiceCreateRejectsBadDefinition(t *testing.T) {
	env := newServiceEnv(t)

	_, err := env.modelService.Create(env.dbc, fieldsDoc(map[string]any{"id": "No Good", "type": "string"}), nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, apperr.ErrInvalidDefinition) {
		t.Fatalf("error %v should unwrap to ErrInvalidDefinition", err)
	}
	if len(env.idx.synced) != 0 {
		t.Fatalf("rejected write must not trigger a sync")
	}
}

func TestModelServiceUpdateAppendsVersion(t *testing.T) {
	env := newServiceEnv(t)

	id, err := env.modelService.Create(env.dbc, fieldsDoc(map[string]any{"id": "title", "type": "string"}), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before, err := env.modelService.Find(env.dbc, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	firstVersion := *before.Model.CurrentVersionID

	err = env.modelService.Update(env.dbc, id, map[string]any{"description": "added"}, nil, &firstVersion)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	after, err := env.modelService.Find(env.dbc, id)
	if err != nil {
		t.Fatalf("find after update: %v", err)
	}
	if *after.Model.CurrentVersionID == firstVersion {
		t.Fatalf("pointer did not advance")
	}
	if after.Document["description"] != "added" {
		t.Fatalf("merge lost new key: %v", after.Document)
	}
	if after.Document["name"] != "test schema" {
		t.Fatalf("merge lost base key: %v", after.Document)
	}

	// The prior version stays readable; updates append, never rewrite.
	old, err := env.modelVersions.GetByIDs(env.dbc, []uuid.UUID{firstVersion})
	if err != nil {
		t.Fatalf("get old version: %v", err)
	}
	if len(old) != 1 {
		t.Fatalf("old version gone")
	}
	versions, err := env.modelVersions.ListByModelIDs(env.dbc, []uuid.UUID{id}, true)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("version count = %d, want 2", len(versions))
	}
}

func TestModelServiceUpdateConflict(t *testing.T) {
	env := newServiceEnv(t)

	id, err := env.modelService.Create(env.dbc, fieldsDoc(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	record, err := env.modelService.Find(env.dbc, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	currentVersion := *record.Model.CurrentVersionID
	stale := uuid.New()

	err = env.modelService.Update(env.dbc, id, map[string]any{"x": 1}, nil, &stale)
	if err == nil {
		t.Fatalf("expected conflict")
	}
	if !errors.Is(err, apperr.ErrConcurrencyConflict) {
		t.Fatalf("error %v should unwrap to ErrConcurrencyConflict", err)
	}
	var conflict *apperr.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error %v should be a ConflictError", err)
	}
	if conflict.Actual == nil || *conflict.Actual != currentVersion {
		t.Fatalf("conflict should report the actual version")
	}

	// A conflicting update must write nothing.
	after, err := env.modelService.Find(env.dbc, id)
	if err != nil {
		t.Fatalf("find after conflict: %v", err)
	}
	if *after.Model.CurrentVersionID != currentVersion {
		t.Fatalf("pointer moved on conflict")
	}
	versions, err := env.modelVersions.ListByModelIDs(env.dbc, []uuid.UUID{id}, true)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("conflict wrote a version: %d", len(versions))
	}
}

func TestModelServiceDeleteCascadeAndRestore(t *testing.T) {
	env := newServiceEnv(t)

	id, err := env.modelService.Create(env.dbc, fieldsDoc(map[string]any{"id": "title", "type": "string"}), nil)
	if err != nil {
		t.Fatalf("create model: %v", err)
	}
	entryID, err := env.entryService.Create(env.dbc, id, map[string]any{"title": "child"}, nil)
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	if err := env.modelService.DeleteMany(env.dbc, []uuid.UUID{id}, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := env.modelService.Find(env.dbc, id); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("deleted model should be gone from active reads, got %v", err)
	}
	if _, err := env.entryService.Find(env.dbc, entryID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("cascade should soft-delete entries, got %v", err)
	}
	if _, err := env.modelService.FindDeleted(env.dbc, id); err != nil {
		t.Fatalf("deleted read should find the model: %v", err)
	}
	if _, err := env.entryService.FindDeleted(env.dbc, entryID); err != nil {
		t.Fatalf("deleted read should find the entry: %v", err)
	}

	if err := env.modelService.Restore(env.dbc, []uuid.UUID{id}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := env.modelService.Find(env.dbc, id); err != nil {
		t.Fatalf("restored model unreadable: %v", err)
	}
	record, err := env.entryService.Find(env.dbc, entryID)
	if err != nil {
		t.Fatalf("restored entry unreadable: %v", err)
	}
	if record.Document["title"] != "child" {
		t.Fatalf("restored entry lost document: %v", record.Document)
	}
}

func TestModelServicePurgeSkipsBlocked(t *testing.T) {
	env := newServiceEnv(t)

	blockedID, err := env.modelService.Create(env.dbc, fieldsDoc(), nil)
	if err != nil {
		t.Fatalf("create blocked: %v", err)
	}
	freeID, err := env.modelService.Create(env.dbc, fieldsDoc(), nil)
	if err != nil {
		t.Fatalf("create free: %v", err)
	}
	if _, err := env.entryService.Create(env.dbc, blockedID, map[string]any{"x": 1}, nil); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	if err := env.modelService.DeleteMany(env.dbc, []uuid.UUID{blockedID, freeID}, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}

	purged, err := env.modelService.Purge(env.dbc, 10)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d, want 1 (blocked model must be skipped)", purged)
	}

	// The blocked model is still there, soft-deleted; the free one is gone
	// even from deleted reads.
	if _, err := env.modelService.FindDeleted(env.dbc, blockedID); err != nil {
		t.Fatalf("blocked model should survive purge: %v", err)
	}
	if _, err := env.modelService.FindDeleted(env.dbc, freeID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("purged model should be gone, got %v", err)
	}

	count, err := env.modelService.CountPurgeable(env.dbc)
	if err != nil {
		t.Fatalf("count purgeable: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0 (blocked model is not purgeable)", count)
	}
}

func TestModelServicePurgeBlockedDoesNotConsumeBatch(t *testing.T) {
	env := newServiceEnv(t)

	// The blocked model is deleted first, so a naive oldest-first batch of
	// size 1 would pick it up and report zero progress while an unblocked
	// candidate is waiting behind it.
	blockedID, err := env.modelService.Create(env.dbc, fieldsDoc(), nil)
	if err != nil {
		t.Fatalf("create blocked: %v", err)
	}
	if _, err := env.entryService.Create(env.dbc, blockedID, map[string]any{"x": 1}, nil); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if err := env.modelService.DeleteMany(env.dbc, []uuid.UUID{blockedID}, nil); err != nil {
		t.Fatalf("delete blocked: %v", err)
	}

	freeID, err := env.modelService.Create(env.dbc, fieldsDoc(), nil)
	if err != nil {
		t.Fatalf("create free: %v", err)
	}
	if err := env.modelService.DeleteMany(env.dbc, []uuid.UUID{freeID}, nil); err != nil {
		t.Fatalf("delete free: %v", err)
	}

	purged, err := env.modelService.Purge(env.dbc, 1)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d, want 1 (blocked model must not occupy the batch slot)", purged)
	}
	if _, err := env.modelService.FindDeleted(env.dbc, freeID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("free model should have been purged, got %v", err)
	}
}
