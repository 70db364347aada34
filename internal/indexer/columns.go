package indexer

import (
	"fmt"

	types "github.com/yungbote/datakit-backend/internal/domain"
)

// generatedTable is the table carrying the generated v_* columns. Entry
// documents live in entry_version.document, so the mirrored scalars live
// there too.
const generatedTable = "entry_version"

// columnClause renders one ADD COLUMN clause for a field. The column is a
// stored generated expression over the document jsonb: numerics get a fixed
// precision cast, temporals a timestamp cast tolerating empty string as null,
// everything else a bounded string. The field id is pattern-validated before
// this function may be called; nothing unvalidated is interpolated.
func columnClause(f types.FieldDefinition) string {
	column := f.ColumnName()
	switch f.ColumnSuffix() {
	case types.SuffixNumeric:
		return fmt.Sprintf(
			"ADD COLUMN IF NOT EXISTS %s numeric(24,6) GENERATED ALWAYS AS ((nullif(document->>'%s',''))::numeric(24,6)) STORED",
			column, f.ID,
		)
	case types.SuffixDatetime:
		return fmt.Sprintf(
			"ADD COLUMN IF NOT EXISTS %s timestamp GENERATED ALWAYS AS ((nullif(document->>'%s',''))::timestamp) STORED",
			column, f.ID,
		)
	default:
		return fmt.Sprintf(
			"ADD COLUMN IF NOT EXISTS %s varchar(255) GENERATED ALWAYS AS (left(document->>'%s', 255)) STORED",
			column, f.ID,
		)
	}
}

func indexName(column string) string {
	return "idx_" + generatedTable + "_" + column
}

// missingColumns filters a field list down to the fields whose generated
// column does not yet exist: restricted types are skipped, duplicates are
// collapsed, and anything present in the existing set is dropped.
func missingColumns(fields []types.FieldDefinition, existing map[string]bool) []types.FieldDefinition {
	seen := map[string]bool{}
	var out []types.FieldDefinition
	for _, f := range fields {
		if !f.Indexable() {
			continue
		}
		if !types.ValidFieldID(f.ID) {
			continue
		}
		column := f.ColumnName()
		if seen[column] || existing[column] {
			continue
		}
		seen[column] = true
		out = append(out, f)
	}
	return out
}

// expectedColumns computes the full column set implied by a field list.
func expectedColumns(fields []types.FieldDefinition) map[string]bool {
	out := map[string]bool{}
	for _, f := range fields {
		if !f.Indexable() || !types.ValidFieldID(f.ID) {
			continue
		}
		out[f.ColumnName()] = true
	}
	return out
}

// diffOrphans returns the physical columns not present in the expected set,
// preserving physical order.
func diffOrphans(physical []string, expected map[string]bool) []string {
	var out []string
	for _, name := range physical {
		if !expected[name] {
			out = append(out, name)
		}
	}
	return out
}
