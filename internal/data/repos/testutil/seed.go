package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/datakit-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SeedModel creates a model with one current version holding the given field
// definitions.
func SeedModel(tb testing.TB, ctx context.Context, tx *gorm.DB, fields []types.FieldDefinition) *types.Model {
	tb.Helper()
	m := &types.Model{ID: uuid.New()}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed model: %v", err)
	}
	v := SeedModelVersion(tb, ctx, tx, m.ID, fields)
	if err := tx.WithContext(ctx).Model(&types.Model{}).Where("id = ?", m.ID).
		Update("current_version_id", v.ID).Error; err != nil {
		tb.Fatalf("seed model pointer: %v", err)
	}
	m.CurrentVersionID = &v.ID
	return m
}

func SeedModelVersion(tb testing.TB, ctx context.Context, tx *gorm.DB, modelID uuid.UUID, fields []types.FieldDefinition) *types.ModelVersion {
	tb.Helper()
	doc := map[string]any{types.DocumentFieldsKey: fields}
	raw, err := json.Marshal(doc)
	if err != nil {
		tb.Fatalf("seed model version marshal: %v", err)
	}
	v := &types.ModelVersion{
		ID:       uuid.New(),
		ModelID:  modelID,
		Document: datatypes.JSON(raw),
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed model version: %v", err)
	}
	return v
}

// SeedEntry creates an entry with one current version holding the given
// document values.
func SeedEntry(tb testing.TB, ctx context.Context, tx *gorm.DB, modelID uuid.UUID, document map[string]any) *types.Entry {
	tb.Helper()
	e := &types.Entry{ID: uuid.New(), ModelID: modelID}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed entry: %v", err)
	}
	raw, err := json.Marshal(document)
	if err != nil {
		tb.Fatalf("seed entry version marshal: %v", err)
	}
	v := &types.EntryVersion{
		ID:       uuid.New(),
		EntryID:  e.ID,
		Document: datatypes.JSON(raw),
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed entry version: %v", err)
	}
	if err := tx.WithContext(ctx).Model(&types.Entry{}).Where("id = ?", e.ID).
		Update("current_version_id", v.ID).Error; err != nil {
		tb.Fatalf("seed entry pointer: %v", err)
	}
	e.CurrentVersionID = &v.ID
	return e
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
