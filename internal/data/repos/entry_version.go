package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/datakit-backend/internal/domain"
	"github.com/yungbote/datakit-backend/internal/pkg/dbctx"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
)

type EntryVersionRepo interface {
	Create(dbc dbctx.Context, versions []*types.EntryVersion) ([]*types.EntryVersion, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.EntryVersion, error)
	ListByEntryIDs(dbc dbctx.Context, entryIDs []uuid.UUID, includeDeleted bool) ([]*types.EntryVersion, error)
	SoftDeleteByEntryIDs(dbc dbctx.Context, entryIDs []uuid.UUID, deleterID *uuid.UUID) error
	RestoreByEntryIDs(dbc dbctx.Context, entryIDs []uuid.UUID) error
	HardDeleteByEntryIDs(dbc dbctx.Context, entryIDs []uuid.UUID) error
}

type entryVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEntryVersionRepo(db *gorm.DB, baseLog *logger.Logger) EntryVersionRepo {
	return &entryVersionRepo{
		db:  db,
		log: baseLog.With("repo", "EntryVersionRepo"),
	}
}

func (r *entryVersionRepo) Create(dbc dbctx.Context, versions []*types.EntryVersion) ([]*types.EntryVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(versions) == 0 {
		return []*types.EntryVersion{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *entryVersionRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.EntryVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.EntryVersion
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

func (r *entryVersionRepo) ListByEntryIDs(dbc dbctx.Context, entryIDs []uuid.UUID, includeDeleted bool) ([]*types.EntryVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.EntryVersion
	if len(entryIDs) == 0 {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx)
	if includeDeleted {
		q = q.Unscoped()
	}
	if err := q.
		Where("entry_id IN ?", entryIDs).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entryVersionRepo) SoftDeleteByEntryIDs(dbc dbctx.Context, entryIDs []uuid.UUID, deleterID *uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entryIDs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.EntryVersion{}).
		Where("entry_id IN ?", entryIDs).
		Updates(map[string]interface{}{
			"deleted_at": time.Now(),
			"deleter_id": deleterID,
		}).Error
}

func (r *entryVersionRepo) RestoreByEntryIDs(dbc dbctx.Context, entryIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entryIDs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Model(&types.EntryVersion{}).
		Where("entry_id IN ?", entryIDs).
		Where("deleted_at IS NOT NULL").
		Updates(map[string]interface{}{
			"deleted_at": nil,
			"deleter_id": nil,
		}).Error
}

func (r *entryVersionRepo) HardDeleteByEntryIDs(dbc dbctx.Context, entryIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entryIDs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("entry_id IN ?", entryIDs).
		Delete(&types.EntryVersion{}).Error
}
