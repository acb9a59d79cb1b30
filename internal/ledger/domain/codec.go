package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// The store key is authoritative for a record's id.

func DecodeTransactions(snapshot map[string]json.RawMessage) ([]Transaction, error) {
	return decodeAll(snapshot, func(t Transaction, id string) Transaction { t.ID = id; return t })
}

func DecodeInventory(snapshot map[string]json.RawMessage) ([]InventoryItem, error) {
	return decodeAll(snapshot, func(i InventoryItem, id string) InventoryItem { i.ID = id; return i })
}

func DecodePayroll(snapshot map[string]json.RawMessage) ([]PayrollEntry, error) {
	return decodeAll(snapshot, func(p PayrollEntry, id string) PayrollEntry { p.ID = id; return p })
}

func DecodeMenuItems(snapshot map[string]json.RawMessage) ([]MenuItem, error) {
	return decodeAll(snapshot, func(m MenuItem, id string) MenuItem { m.ID = id; return m })
}

func DecodeCustomizations(snapshot map[string]json.RawMessage) ([]Customization, error) {
	return decodeAll(snapshot, func(c Customization, id string) Customization { c.ID = id; return c })
}

// DecodeRecord decodes one stored record into out.
func DecodeRecord(raw json.RawMessage, id string, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode record %s: %w", id, err)
	}
	return nil
}

func decodeAll[T any](snapshot map[string]json.RawMessage, withID func(T, string) T) ([]T, error) {
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		var record T
		if err := DecodeRecord(snapshot[id], id, &record); err != nil {
			return nil, err
		}
		out = append(out, withID(record, id))
	}
	return out, nil
}
