package book

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SlotEntry is one grid cell on a page: empty, a legacy reference to a
// card by id, or a full card value. The persisted JSON shape is null, a
// bare string, or a card object respectively. New writes always produce
// full card values; references survive only from historical state.
type SlotEntry struct {
	ref  string
	card *Card
}

// EmptySlot returns the empty cell.
func EmptySlot() SlotEntry {
	return SlotEntry{}
}

// RefSlot returns a legacy reference entry pointing at a card by id.
func RefSlot(cardID string) SlotEntry {
	return SlotEntry{ref: cardID}
}

// CardSlot returns an entry holding the full card value.
func CardSlot(c Card) SlotEntry {
	return SlotEntry{card: &c}
}

// IsEmpty reports whether the cell holds nothing.
func (e SlotEntry) IsEmpty() bool {
	return e.ref == "" && e.card == nil
}

// Ref returns the referenced card id for legacy string entries.
func (e SlotEntry) Ref() (string, bool) {
	return e.ref, e.ref != ""
}

// Card returns the full card value for object entries.
func (e SlotEntry) Card() (Card, bool) {
	if e.card == nil {
		return Card{}, false
	}
	return *e.card, true
}

// CardID returns the card id regardless of entry form.
func (e SlotEntry) CardID() (string, bool) {
	if e.card != nil {
		return e.card.ID, true
	}
	if e.ref != "" {
		return e.ref, true
	}
	return "", false
}

func (e SlotEntry) MarshalJSON() ([]byte, error) {
	if e.card != nil {
		return json.Marshal(*e.card)
	}
	if e.ref != "" {
		return json.Marshal(e.ref)
	}
	return []byte("null"), nil
}

func (e *SlotEntry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*e = SlotEntry{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return fmt.Errorf("decode slot reference: %w", err)
		}
		*e = SlotEntry{ref: id}
		return nil
	case '{':
		var c Card
		if err := json.Unmarshal(trimmed, &c); err != nil {
			return fmt.Errorf("decode slot card: %w", err)
		}
		*e = SlotEntry{card: &c}
		return nil
	default:
		return fmt.Errorf("decode slot entry: unexpected token %q", trimmed[0])
	}
}

// Clone returns a copy with any card payload detached from the original.
func (e SlotEntry) Clone() SlotEntry {
	if e.card == nil {
		return e
	}
	return CardSlot(e.card.Clone())
}

// SlotAssignments maps page ids to their ordered slot sequences.
type SlotAssignments map[string][]SlotEntry

// Clone returns a deep copy: fresh page map, fresh sequences, detached
// card payloads.
func (a SlotAssignments) Clone() SlotAssignments {
	out := make(SlotAssignments, len(a))
	for pageID, entries := range a {
		copied := make([]SlotEntry, len(entries))
		for i, e := range entries {
			copied[i] = e.Clone()
		}
		out[pageID] = copied
	}
	return out
}

// normalizeSlots pads entries with empty cells and truncates so the
// sequence is exactly slotCount long. Always returns a fresh slice.
func normalizeSlots(entries []SlotEntry, slotCount int) []SlotEntry {
	out := make([]SlotEntry, slotCount)
	copy(out, entries)
	return out
}
