package market

import "encoding/json"

// ExtractTokenID finds the first CLOB token id in a catalog response.
//
// The response may be a list of markets or a single object. For each item the id list is read
// from clobTokenIds, falling back to clob_token_ids; the list may be literal or JSON-encoded in a
// string. Items without a usable list are searched through their nested markets. Any decode
// failure counts as absence.
func ExtractTokenID(raw []byte) (string, bool) {
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", false
	}

	items, ok := body.([]any)
	if !ok {
		items = []any{body}
	}

	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := firstTokenID(obj); ok {
			return id, true
		}
		nested, _ := obj["markets"].([]any)
		for _, m := range nested {
			mobj, ok := m.(map[string]any)
			if !ok {
				continue
			}
			if id, ok := firstTokenID(mobj); ok {
				return id, true
			}
		}
	}
	return "", false
}

func firstTokenID(obj map[string]any) (string, bool) {
	v, ok := obj["clobTokenIds"]
	if !ok || v == nil {
		v = obj["clob_token_ids"]
	}
	ids := list(v)
	if len(ids) == 0 {
		return "", false
	}
	id, ok := ids[0].(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
