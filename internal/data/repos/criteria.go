package repos

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/datakit-backend/internal/domain"
	"github.com/yungbote/datakit-backend/internal/pkg/apperr"
)

// ListCriteria is the shared filter shape for paginated entity reads.
// ColumnFilters are keyed by fully-qualified generated-column names
// (v_<field>_<suffix>); short-name resolution happens above the repo layer.
type ListCriteria struct {
	Search         string
	IDs            []uuid.UUID
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	UpdatedFrom    *time.Time
	UpdatedTo      *time.Time
	IncludeDeleted bool
	ColumnFilters  map[string]any
}

// applyCriteria narrows q by every populated criterion. Column filter names
// are pattern-checked before they are interpolated; a name that fails the
// check never reaches the database.
func applyCriteria(q *gorm.DB, criteria ListCriteria, entityTable, versionAlias string) (*gorm.DB, error) {
	if len(criteria.IDs) > 0 {
		q = q.Where(entityTable+".id IN ?", criteria.IDs)
	}
	if criteria.CreatedFrom != nil {
		q = q.Where(entityTable+".created_at >= ?", *criteria.CreatedFrom)
	}
	if criteria.CreatedTo != nil {
		q = q.Where(entityTable+".created_at <= ?", *criteria.CreatedTo)
	}
	if criteria.UpdatedFrom != nil {
		q = q.Where(entityTable+".updated_at >= ?", *criteria.UpdatedFrom)
	}
	if criteria.UpdatedTo != nil {
		q = q.Where(entityTable+".updated_at <= ?", *criteria.UpdatedTo)
	}
	if criteria.Search != "" {
		q = q.Where(versionAlias+".document::text ILIKE ?", "%"+criteria.Search+"%")
	}
	for name, value := range criteria.ColumnFilters {
		if !types.ValidGeneratedColumnName(name) {
			return nil, fmt.Errorf("filter %q: %w", name, apperr.ErrInvalidColumnName)
		}
		q = q.Where(fmt.Sprintf("%s.%s = ?", versionAlias, name), value)
	}
	return q, nil
}

func pageOffset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
