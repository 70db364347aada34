package services

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/datakit-backend/internal/pkg/apperr"
)

func TestResolveCriteriaFullNames(t *testing.T) {
	resolved, err := resolveCriteria(Criteria{
		Filters: map[string]any{"v_price_num": 10},
	}, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ColumnFilters["v_price_num"] != 10 {
		t.Fatalf("full name should pass through: %v", resolved.ColumnFilters)
	}
}

func TestResolveCriteriaShortName(t *testing.T) {
	available := []string{"v_price_num", "v_title_str"}
	resolved, err := resolveCriteria(Criteria{
		Filters: map[string]any{"price": 10, "title": "x"},
	}, available)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ColumnFilters["v_price_num"] != 10 {
		t.Fatalf("price not resolved: %v", resolved.ColumnFilters)
	}
	if resolved.ColumnFilters["v_title_str"] != "x" {
		t.Fatalf("title not resolved: %v", resolved.ColumnFilters)
	}
}

func TestCriteriaDateRangeBinding(t *testing.T) {
	raw := `{"created_from":"2020-01-01T00:00:00Z","created_to":"2020-02-01T00:00:00Z",` +
		`"updated_from":"2021-01-01T00:00:00Z","updated_to":"2021-02-01T00:00:00Z"}`
	var c Criteria
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := func(name string, got *time.Time, year int, month time.Month) {
		if got == nil || got.Year() != year || got.Month() != month {
			t.Fatalf("%s = %v, want %d-%02d", name, got, year, month)
		}
	}
	want("created_from", c.CreatedFrom, 2020, time.January)
	want("created_to", c.CreatedTo, 2020, time.February)
	want("updated_from", c.UpdatedFrom, 2021, time.January)
	want("updated_to", c.UpdatedTo, 2021, time.February)
}

func TestResolveCriteriaUnknownShortName(t *testing.T) {
	_, err := resolveCriteria(Criteria{
		Filters: map[string]any{"missing": 1},
	}, []string{"v_price_num"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, apperr.ErrUnknownFilter) {
		t.Fatalf("error %v should unwrap to ErrUnknownFilter", err)
	}
}

func TestResolveCriteriaAmbiguousShortName(t *testing.T) {
	// A field whose type changed leaves two columns with the same prefix; a
	// bare name cannot pick between them.
	_, err := resolveCriteria(Criteria{
		Filters: map[string]any{"price": 1},
	}, []string{"v_price_num", "v_price_str"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, apperr.ErrUnknownFilter) {
		t.Fatalf("error %v should unwrap to ErrUnknownFilter", err)
	}
}

func TestResolveCriteriaShortNameIgnoresLongerFieldIDs(t *testing.T) {
	// price must not resolve to a different field that merely shares the
	// prefix, and such a neighbor must not make the real column ambiguous.
	_, err := resolveCriteria(Criteria{
		Filters: map[string]any{"price": 10},
	}, []string{"v_price_band_str"})
	if !errors.Is(err, apperr.ErrUnknownFilter) {
		t.Fatalf("want ErrUnknownFilter for prefix-only neighbor, got %v", err)
	}

	resolved, err := resolveCriteria(Criteria{
		Filters: map[string]any{"price": 10},
	}, []string{"v_price_band_str", "v_price_num"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ColumnFilters["v_price_num"] != 10 {
		t.Fatalf("price should resolve to v_price_num: %v", resolved.ColumnFilters)
	}
}

func TestResolveCriteriaRejectsUnsafeName(t *testing.T) {
	_, err := resolveCriteria(Criteria{
		Filters: map[string]any{`price"; drop table entry; --`: 1},
	}, []string{"v_price_num"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, apperr.ErrUnknownFilter) {
		t.Fatalf("error %v should unwrap to ErrUnknownFilter", err)
	}
}
