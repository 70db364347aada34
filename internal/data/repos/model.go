package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/datakit-backend/internal/domain"
	"github.com/yungbote/datakit-backend/internal/pkg/dbctx"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
)

type ModelRepo interface {
	Create(dbc dbctx.Context, models []*types.Model) ([]*types.Model, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Model, error)
	GetDeletedByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Model, error)
	ListActive(dbc dbctx.Context) ([]*types.Model, error)
	SetCurrentVersion(dbc dbctx.Context, id uuid.UUID, versionID uuid.UUID) error
	AdvanceCurrentVersion(dbc dbctx.Context, id uuid.UUID, versionID uuid.UUID, expected uuid.UUID) (bool, error)
	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID, deleterID *uuid.UUID) error
	RestoreByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	ListPurgeable(dbc dbctx.Context, limit int) ([]*types.Model, error)
	CountPurgeable(dbc dbctx.Context) (int64, error)
	HardDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	Paginate(dbc dbctx.Context, criteria ListCriteria, page, pageSize int) ([]*types.Model, int64, error)
}

type modelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModelRepo(db *gorm.DB, baseLog *logger.Logger) ModelRepo {
	return &modelRepo{
		db:  db,
		log: baseLog.With("repo", "ModelRepo"),
	}
}

func (r *modelRepo) Create(dbc dbctx.Context, models []*types.Model) ([]*types.Model, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(models) == 0 {
		return []*types.Model{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&models).Error; err != nil {
		return nil, err
	}
	return models, nil
}

func (r *modelRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Model, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Model
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *modelRepo) GetDeletedByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Model, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Model
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("id IN ?", ids).
		Where("deleted_at IS NOT NULL").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *modelRepo) ListActive(dbc dbctx.Context) ([]*types.Model, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Model
	if err := transaction.WithContext(dbc.Ctx).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *modelRepo) SetCurrentVersion(dbc dbctx.Context, id uuid.UUID, versionID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Model{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_version_id": versionID,
			"updated_at":         time.Now(),
		}).Error
}

// AdvanceCurrentVersion moves the pointer only while it still holds the
// expected version, so a concurrent advance surfaces as zero rows affected
// instead of a silent overwrite.
func (r *modelRepo) AdvanceCurrentVersion(dbc dbctx.Context, id uuid.UUID, versionID uuid.UUID, expected uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	result := transaction.WithContext(dbc.Ctx).
		Model(&types.Model{}).
		Where("id = ? AND current_version_id = ?", id, expected).
		Updates(map[string]interface{}{
			"current_version_id": versionID,
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *modelRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID, deleterID *uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Model{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"deleted_at": now,
			"deleter_id": deleterID,
			"updated_at": now,
		}).Error
}

func (r *modelRepo) RestoreByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Model(&types.Model{}).
		Where("id IN ?", ids).
		Where("deleted_at IS NOT NULL").
		Updates(map[string]interface{}{
			"deleted_at": nil,
			"deleter_id": nil,
			"updated_at": time.Now(),
		}).Error
}

// ListPurgeable returns soft-deleted models with no referencing entries in any
// deletion state, oldest deletions first. A model with even one soft-deleted
// entry is blocked, never purgeable.
func (r *modelRepo) ListPurgeable(dbc dbctx.Context, limit int) ([]*types.Model, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Model
	q := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("deleted_at IS NOT NULL").
		Where("NOT EXISTS (SELECT 1 FROM entry WHERE entry.model_id = model.id)").
		Order("deleted_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *modelRepo) CountPurgeable(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Model(&types.Model{}).
		Where("deleted_at IS NOT NULL").
		Where("NOT EXISTS (SELECT 1 FROM entry WHERE entry.model_id = model.id)").
		Count(&count).Error
	return count, err
}

func (r *modelRepo) HardDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("id IN ?", ids).
		Delete(&types.Model{}).Error
}

func (r *modelRepo) Paginate(dbc dbctx.Context, criteria ListCriteria, page, pageSize int) ([]*types.Model, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.Model{})
	if criteria.IncludeDeleted {
		q = q.Unscoped()
	}
	q = q.Joins("LEFT JOIN model_version cv ON cv.id = model.current_version_id")
	q, err := applyCriteria(q, criteria, "model", "cv")
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Model
	if err := q.Order("model.created_at ASC").
		Offset(pageOffset(page, pageSize)).
		Limit(pageSize).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
