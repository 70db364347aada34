package services

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// DecodeDocument parses a stored version document into a map. An empty
// document decodes to an empty map, never nil.
func DecodeDocument(raw datatypes.JSON) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func EncodeDocument(doc map[string]any) (datatypes.JSON, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// MergeDocuments lays partial over base at the top-level key granularity.
// Keys absent from partial keep their base value; keys present in partial
// win, including explicit nulls. Neither input is mutated.
func MergeDocuments(base, partial map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(partial))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range partial {
		out[k] = v
	}
	return out
}
