package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/datakit-backend/internal/data/repos"
	types "github.com/yungbote/datakit-backend/internal/domain"
	"github.com/yungbote/datakit-backend/internal/pkg/apperr"
)

// Criteria is the caller-facing paginate filter. Filters may be keyed by a
// fully-qualified generated-column name (v_price_num) or the bare field id
// (price); bare ids are resolved against the physical column set.
type Criteria struct {
	Search         string         `json:"search,omitempty"`
	IDs            []uuid.UUID    `json:"ids,omitempty"`
	CreatedFrom    *time.Time     `json:"created_from,omitempty"`
	CreatedTo      *time.Time     `json:"created_to,omitempty"`
	UpdatedFrom    *time.Time     `json:"updated_from,omitempty"`
	UpdatedTo      *time.Time     `json:"updated_to,omitempty"`
	IncludeDeleted bool           `json:"include_deleted,omitempty"`
	Filters        map[string]any `json:"filters,omitempty"`
}

// resolveCriteria lowers a Criteria into the repo shape, resolving short
// filter names against the available generated columns. An unresolvable or
// ambiguous name is an error, never silently ignored.
func resolveCriteria(criteria Criteria, availableColumns []string) (repos.ListCriteria, error) {
	out := repos.ListCriteria{
		Search:         criteria.Search,
		IDs:            criteria.IDs,
		CreatedFrom:    criteria.CreatedFrom,
		CreatedTo:      criteria.CreatedTo,
		UpdatedFrom:    criteria.UpdatedFrom,
		UpdatedTo:      criteria.UpdatedTo,
		IncludeDeleted: criteria.IncludeDeleted,
	}
	if len(criteria.Filters) == 0 {
		return out, nil
	}
	out.ColumnFilters = make(map[string]any, len(criteria.Filters))
	for name, value := range criteria.Filters {
		if types.ValidGeneratedColumnName(name) {
			out.ColumnFilters[name] = value
			continue
		}
		resolved, err := resolveShortName(name, availableColumns)
		if err != nil {
			return repos.ListCriteria{}, err
		}
		out.ColumnFilters[resolved] = value
	}
	return out, nil
}

func resolveShortName(name string, availableColumns []string) (string, error) {
	if !types.ValidFieldID(name) {
		return "", fmt.Errorf("filter %q: %w", name, apperr.ErrUnknownFilter)
	}
	// A bare id may only resolve to v_<id>_<suffix> for one of the known
	// suffixes. A plain prefix match would also catch longer field ids
	// sharing the prefix (price vs price_band), so candidates are built
	// exactly.
	candidates := map[string]bool{
		"v_" + name + "_" + types.SuffixNumeric:  true,
		"v_" + name + "_" + types.SuffixString:   true,
		"v_" + name + "_" + types.SuffixDatetime: true,
	}
	var match string
	for _, col := range availableColumns {
		if !candidates[col] {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("filter %q matches both %s and %s: %w", name, match, col, apperr.ErrUnknownFilter)
		}
		match = col
	}
	if match == "" {
		return "", fmt.Errorf("filter %q: %w", name, apperr.ErrUnknownFilter)
	}
	return match, nil
}
