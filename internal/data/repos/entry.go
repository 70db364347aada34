package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/datakit-backend/internal/domain"
	"github.com/yungbote/datakit-backend/internal/pkg/dbctx"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
)

type EntryRepo interface {
	Create(dbc dbctx.Context, entries []*types.Entry) ([]*types.Entry, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Entry, error)
	GetDeletedByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Entry, error)
	ListIDsByModelIDs(dbc dbctx.Context, modelIDs []uuid.UUID) ([]uuid.UUID, error)
	ListDeletedIDsByModelIDs(dbc dbctx.Context, modelIDs []uuid.UUID) ([]uuid.UUID, error)
	SetCurrentVersion(dbc dbctx.Context, id uuid.UUID, versionID uuid.UUID) error
	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID, deleterID *uuid.UUID) error
	RestoreByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	ListSoftDeleted(dbc dbctx.Context, limit int) ([]*types.Entry, error)
	CountSoftDeleted(dbc dbctx.Context) (int64, error)
	HardDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	Paginate(dbc dbctx.Context, modelID *uuid.UUID, criteria ListCriteria, page, pageSize int) ([]*types.Entry, int64, error)
}

type entryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEntryRepo(db *gorm.DB, baseLog *logger.Logger) EntryRepo {
	return &entryRepo{
		db:  db,
		log: baseLog.With("repo", "EntryRepo"),
	}
}

func (r *entryRepo) Create(dbc dbctx.Context, entries []*types.Entry) ([]*types.Entry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entries) == 0 {
		return []*types.Entry{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *entryRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Entry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Entry
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

func (r *entryRepo) GetDeletedByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Entry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Entry
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

func (r *entryRepo) ListIDsByModelIDs(dbc dbctx.Context, modelIDs []uuid.UUID) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []uuid.UUID
	if len(modelIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Entry{}).
		Where("model_id IN ?", modelIDs).
		Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entryRepo) ListDeletedIDsByModelIDs(dbc dbctx.Context, modelIDs []uuid.UUID) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []uuid.UUID
	if len(modelIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Model(&types.Entry{}).
		Where("model_id IN ?", modelIDs).
		Where("deleted_at IS NOT NULL").
		Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entryRepo) SetCurrentVersion(dbc dbctx.Context, id uuid.UUID, versionID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Entry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_version_id": versionID,
			"updated_at":         time.Now(),
		}).Error
}

func (r *entryRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID, deleterID *uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Entry{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"deleted_at": now,
			"deleter_id": deleterID,
			"updated_at": now,
		}).Error
}

func (r *entryRepo) RestoreByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Model(&types.Entry{}).
		Where("id IN ?", ids).
		Where("deleted_at IS NOT NULL").
		Updates(map[string]interface{}{
			"deleted_at": nil,
			"deleter_id": nil,
			"updated_at": time.Now(),
		}).Error
}

func (r *entryRepo) ListSoftDeleted(dbc dbctx.Context, limit int) ([]*types.Entry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Entry
	q := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("deleted_at IS NOT NULL").
		Order("deleted_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entryRepo) CountSoftDeleted(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Model(&types.Entry{}).
		Where("deleted_at IS NOT NULL").
		Count(&count).Error
	return count, err
}

func (r *entryRepo) HardDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
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
		Delete(&types.Entry{}).Error
}

func (r *entryRepo) Paginate(dbc dbctx.Context, modelID *uuid.UUID, criteria ListCriteria, page, pageSize int) ([]*types.Entry, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.Entry{})
	if criteria.IncludeDeleted {
		q = q.Unscoped()
	}
	q = q.Joins("LEFT JOIN entry_version cv ON cv.id = entry.current_version_id")
	if modelID != nil {
		q = q.Where("entry.model_id = ?", *modelID)
	}
	q, err := applyCriteria(q, criteria, "entry", "cv")
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Entry
	if err := q.Order("entry.created_at ASC").
		Offset(pageOffset(page, pageSize)).
		Limit(pageSize).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
