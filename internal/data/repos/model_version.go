package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/datakit-backend/internal/domain"
	"github.com/yungbote/datakit-backend/internal/pkg/dbctx"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
)

type ModelVersionRepo interface {
	Create(dbc dbctx.Context, versions []*types.ModelVersion) ([]*types.ModelVersion, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ModelVersion, error)
	ListByModelIDs(dbc dbctx.Context, modelIDs []uuid.UUID, includeDeleted bool) ([]*types.ModelVersion, error)
	ListAllDocuments(dbc dbctx.Context) ([]datatypes.JSON, error)
	SoftDeleteByModelIDs(dbc dbctx.Context, modelIDs []uuid.UUID, deleterID *uuid.UUID) error
	RestoreByModelIDs(dbc dbctx.Context, modelIDs []uuid.UUID) error
	HardDeleteByModelIDs(dbc dbctx.Context, modelIDs []uuid.UUID) error
}

type modelVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModelVersionRepo(db *gorm.DB, baseLog *logger.Logger) ModelVersionRepo {
	return &modelVersionRepo{
		db:  db,
		log: baseLog.With("repo", "ModelVersionRepo"),
	}
}

func (r *modelVersionRepo) Create(dbc dbctx.Context, versions []*types.ModelVersion) ([]*types.ModelVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(versions) == 0 {
		return []*types.ModelVersion{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

// GetByIDs reads version rows regardless of deletion state. Historical and
// cascade-deleted snapshots stay readable by id; that is what makes the
// version history append-only in practice.
func (r *modelVersionRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ModelVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ModelVersion
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *modelVersionRepo) ListByModelIDs(dbc dbctx.Context, modelIDs []uuid.UUID, includeDeleted bool) ([]*types.ModelVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ModelVersion
	if len(modelIDs) == 0 {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx)
	if includeDeleted {
		q = q.Unscoped()
	}
	if err := q.
		Where("model_id IN ?", modelIDs).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListAllDocuments returns every model version document, soft-deleted rows
// included. This is the read shape orphan detection depends on: a field kept
// alive only by a soft-deleted version still owns its generated column.
func (r *modelVersionRepo) ListAllDocuments(dbc dbctx.Context) ([]datatypes.JSON, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []datatypes.JSON
	if err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Model(&types.ModelVersion{}).
		Pluck("document", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *modelVersionRepo) SoftDeleteByModelIDs(dbc dbctx.Context, modelIDs []uuid.UUID, deleterID *uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(modelIDs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.ModelVersion{}).
		Where("model_id IN ?", modelIDs).
		Updates(map[string]interface{}{
			"deleted_at": time.Now(),
			"deleter_id": deleterID,
		}).Error
}

func (r *modelVersionRepo) RestoreByModelIDs(dbc dbctx.Context, modelIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(modelIDs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Model(&types.ModelVersion{}).
		Where("model_id IN ?", modelIDs).
		Where("deleted_at IS NOT NULL").
		Updates(map[string]interface{}{
			"deleted_at": nil,
			"deleter_id": nil,
		}).Error
}

func (r *modelVersionRepo) HardDeleteByModelIDs(dbc dbctx.Context, modelIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(modelIDs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("model_id IN ?", modelIDs).
		Delete(&types.ModelVersion{}).Error
}
