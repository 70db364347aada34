package services

import (
	"testing"

	"gorm.io/datatypes"
)

func TestMergeDocumentsOverlay(t *testing.T) {
	base := map[string]any{"a": 1.0, "b": "keep", "c": "old"}
	partial := map[string]any{"c": "new", "d": true, "b": nil}

	merged := MergeDocuments(base, partial)

	if merged["a"] != 1.0 {
		t.Fatalf("untouched key lost: %v", merged["a"])
	}
	if merged["c"] != "new" {
		t.Fatalf("partial should win: %v", merged["c"])
	}
	if merged["d"] != true {
		t.Fatalf("new key missing")
	}
	if v, ok := merged["b"]; !ok || v != nil {
		t.Fatalf("explicit null should be kept: %v, %v", v, ok)
	}
}

func TestMergeDocumentsDoesNotMutateInputs(t *testing.T) {
	base := map[string]any{"a": 1.0}
	partial := map[string]any{"b": 2.0}

	_ = MergeDocuments(base, partial)

	if len(base) != 1 || len(partial) != 1 {
		t.Fatalf("inputs mutated: base=%v partial=%v", base, partial)
	}
}

func TestDecodeDocumentEmpty(t *testing.T) {
	doc, err := DecodeDocument(nil)
	if err != nil {
		t.Fatalf("decode nil: %v", err)
	}
	if doc == nil || len(doc) != 0 {
		t.Fatalf("want empty map, got %v", doc)
	}

	doc, err = DecodeDocument(datatypes.JSON([]byte("null")))
	if err != nil {
		t.Fatalf("decode null: %v", err)
	}
	if doc == nil {
		t.Fatalf("json null should decode to empty map")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	raw, err := EncodeDocument(map[string]any{"title": "x", "n": 3.5})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	doc, err := DecodeDocument(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc["title"] != "x" || doc["n"] != 3.5 {
		t.Fatalf("round trip mismatch: %v", doc)
	}
}
