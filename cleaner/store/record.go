package store

import (
	"encoding/json"
	"strings"
)

// StorageKey is the fixed key under which the whole record is stored. The
// record maps page keys to ordered selector lists.
const StorageKey = "__purgedom_removed_selectors__"

// decodeRecord parses a stored record. Anything that is not a JSON object
// reads as an empty record.
func decodeRecord(raw []byte) map[string]json.RawMessage {
	rec := make(map[string]json.RawMessage)
	if len(raw) == 0 {
		return rec
	}
	if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
		return make(map[string]json.RawMessage)
	}
	return rec
}

// decodeSelectors parses one page entry, keeping only non-empty unique
// strings in their original order.
func decodeSelectors(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return normalize(items)
}

func normalize(items []any) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// applyPut returns raw with page's entry replaced by selectors, or removed
// when selectors is empty. Other pages' entries are preserved verbatim.
func applyPut(raw []byte, page string, selectors []string) ([]byte, error) {
	rec := decodeRecord(raw)
	if len(selectors) == 0 {
		delete(rec, page)
	} else {
		entry, err := json.Marshal(selectors)
		if err != nil {
			return nil, err
		}
		rec[page] = entry
	}
	return json.Marshal(rec)
}
