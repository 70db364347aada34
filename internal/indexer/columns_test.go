package indexer

import (
	"strings"
	"testing"

	types "github.com/yungbote/datakit-backend/internal/domain"
)

func TestColumnClauseNumeric(t *testing.T) {
	clause := columnClause(types.FieldDefinition{ID: "price", Type: types.FieldDecimal})
	if !strings.Contains(clause, "ADD COLUMN IF NOT EXISTS v_price_num numeric(24,6)") {
		t.Fatalf("unexpected clause: %s", clause)
	}
	if !strings.Contains(clause, "GENERATED ALWAYS AS ((nullif(document->>'price',''))::numeric(24,6)) STORED") {
		t.Fatalf("expression missing: %s", clause)
	}
}

func TestColumnClauseDatetime(t *testing.T) {
	clause := columnClause(types.FieldDefinition{ID: "published_at", Type: types.FieldDatetime})
	if !strings.Contains(clause, "v_published_at_dt timestamp") {
		t.Fatalf("unexpected clause: %s", clause)
	}
	if !strings.Contains(clause, "nullif(document->>'published_at','')") {
		t.Fatalf("null guard missing: %s", clause)
	}
}

func TestColumnClauseString(t *testing.T) {
	clause := columnClause(types.FieldDefinition{ID: "title", Type: types.FieldString})
	if !strings.Contains(clause, "v_title_str varchar(255)") {
		t.Fatalf("unexpected clause: %s", clause)
	}
	if !strings.Contains(clause, "left(document->>'title', 255)") {
		t.Fatalf("truncation missing: %s", clause)
	}
}

func TestIndexName(t *testing.T) {
	if got := indexName("v_price_num"); got != "idx_entry_version_v_price_num" {
		t.Fatalf("got %q", got)
	}
}

func TestMissingColumns(t *testing.T) {
	fields := []types.FieldDefinition{
		{ID: "title", Type: types.FieldString},
		{ID: "title", Type: types.FieldString}, // duplicate collapses
		{ID: "price", Type: types.FieldDecimal},
		{ID: "secret", Type: types.FieldPassword},  // restricted
		{ID: "body", Type: types.FieldText},        // restricted
		{ID: "Bad-ID", Type: types.FieldString},    // invalid slug
		{ID: "existing", Type: types.FieldInteger}, // already present
	}
	existing := map[string]bool{"v_existing_num": true}

	out := missingColumns(fields, existing)
	if len(out) != 2 {
		t.Fatalf("got %d fields, want 2: %+v", len(out), out)
	}
	if out[0].ID != "title" || out[1].ID != "price" {
		t.Fatalf("unexpected order: %+v", out)
	}
}

func TestExpectedColumnsAndDiffOrphans(t *testing.T) {
	expected := expectedColumns([]types.FieldDefinition{
		{ID: "title", Type: types.FieldString},
		{ID: "price", Type: types.FieldDecimal},
		{ID: "secret", Type: types.FieldPassword},
	})
	if len(expected) != 2 || !expected["v_title_str"] || !expected["v_price_num"] {
		t.Fatalf("unexpected expected set: %+v", expected)
	}

	physical := []string{"v_title_str", "v_old_num", "v_price_num", "v_gone_dt"}
	orphans := diffOrphans(physical, expected)
	if len(orphans) != 2 || orphans[0] != "v_old_num" || orphans[1] != "v_gone_dt" {
		t.Fatalf("unexpected orphans: %+v", orphans)
	}
}
