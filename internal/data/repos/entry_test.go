package repos_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/datakit-backend/internal/data/repos"
	"github.com/yungbote/datakit-backend/internal/data/repos/testutil"
	"github.com/yungbote/datakit-backend/internal/pkg/dbctx"
)

func TestEntrySoftDeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := repos.NewEntryRepo(testutil.DB(t), testutil.Logger(t))

	m := testutil.SeedModel(t, ctx, tx, nil)
	e := testutil.SeedEntry(t, ctx, tx, m.ID, map[string]any{"title": "first"})

	ids, err := repo.ListIDsByModelIDs(dbc, []uuid.UUID{m.ID})
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != e.ID {
		t.Fatalf("unexpected ids: %v", ids)
	}

	if err := repo.SoftDeleteByIDs(dbc, []uuid.UUID{e.ID}, nil); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	ids, err = repo.ListIDsByModelIDs(dbc, []uuid.UUID{m.ID})
	if err != nil {
		t.Fatalf("list ids after delete: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("soft-deleted entry still listed active: %v", ids)
	}

	deletedIDs, err := repo.ListDeletedIDsByModelIDs(dbc, []uuid.UUID{m.ID})
	if err != nil {
		t.Fatalf("list deleted ids: %v", err)
	}
	if len(deletedIDs) != 1 || deletedIDs[0] != e.ID {
		t.Fatalf("unexpected deleted ids: %v", deletedIDs)
	}

	if err := repo.RestoreByIDs(dbc, []uuid.UUID{e.ID}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, err := repo.GetByIDs(dbc, []uuid.UUID{e.ID})
	if err != nil {
		t.Fatalf("get after restore: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("restored entry not visible")
	}
}

func TestEntryPaginateScopedToModel(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := repos.NewEntryRepo(testutil.DB(t), testutil.Logger(t))

	m1 := testutil.SeedModel(t, ctx, tx, nil)
	m2 := testutil.SeedModel(t, ctx, tx, nil)
	e1 := testutil.SeedEntry(t, ctx, tx, m1.ID, map[string]any{"title": "mine"})
	testutil.SeedEntry(t, ctx, tx, m2.ID, map[string]any{"title": "other"})

	got, total, err := repo.Paginate(dbc, &m1.ID, repos.ListCriteria{}, 1, 10)
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].ID != e1.ID {
		t.Fatalf("scope leak: total=%d got=%+v", total, got)
	}
}

func TestEntryPaginateColumnFilter(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := repos.NewEntryRepo(testutil.DB(t), testutil.Logger(t))

	// The generated column is created inside the test transaction so the
	// schema change rolls back with everything else.
	if err := tx.Exec(`ALTER TABLE entry_version ADD COLUMN IF NOT EXISTS v_flt_price_num numeric(24,6) GENERATED ALWAYS AS ((nullif(document->>'flt_price',''))::numeric(24,6)) STORED`).Error; err != nil {
		t.Fatalf("add column: %v", err)
	}
	m := testutil.SeedModel(t, ctx, tx, nil)
	cheap := testutil.SeedEntry(t, ctx, tx, m.ID, map[string]any{"flt_price": "5"})
	testutil.SeedEntry(t, ctx, tx, m.ID, map[string]any{"flt_price": "50"})

	got, total, err := repo.Paginate(dbc, &m.ID, repos.ListCriteria{
		ColumnFilters: map[string]any{"v_flt_price_num": 5},
	}, 1, 10)
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].ID != cheap.ID {
		t.Fatalf("filter miss: total=%d got=%+v", total, got)
	}
}

func TestEntryListSoftDeletedOldestFirst(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := repos.NewEntryRepo(testutil.DB(t), testutil.Logger(t))

	m := testutil.SeedModel(t, ctx, tx, nil)
	first := testutil.SeedEntry(t, ctx, tx, m.ID, map[string]any{"n": 1.0})
	second := testutil.SeedEntry(t, ctx, tx, m.ID, map[string]any{"n": 2.0})

	if err := repo.SoftDeleteByIDs(dbc, []uuid.UUID{first.ID}, nil); err != nil {
		t.Fatalf("soft delete first: %v", err)
	}
	if err := repo.SoftDeleteByIDs(dbc, []uuid.UUID{second.ID}, nil); err != nil {
		t.Fatalf("soft delete second: %v", err)
	}

	got, err := repo.ListSoftDeleted(dbc, 1)
	if err != nil {
		t.Fatalf("list soft deleted: %v", err)
	}
	if len(got) != 1 || got[0].ID != first.ID {
		t.Fatalf("oldest deletion should come first, got %+v", got)
	}

	count, err := repo.CountSoftDeleted(dbc)
	if err != nil {
		t.Fatalf("count soft deleted: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}
