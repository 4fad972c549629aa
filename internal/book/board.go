package book

import "cardbook/api/internal/util"

// Board is the mutable placement view for one book: the inventory of
// unassigned cards, the per-page slot sequences, and the ephemeral
// display-side map. Every card id appears in exactly one place, either
// in the inventory or in one slot. All mutations report whether they
// changed anything so callers know when to persist; moves that
// reference missing cards or slots are silent no-ops.
//
// Board is not safe for concurrent use; the owning service serializes
// access per book.
type Board struct {
	bookID    string
	slotCount int

	inventory []Card
	slots     SlotAssignments

	// displaySide is view state only, never persisted.
	displaySide map[string]Side

	settings *SettingsSession
}

// NewBoard builds a board over freshly loaded state. Inventory cards are
// expected to be migrated already (the cache layer does that on load).
func NewBoard(bookID string, slotCount int, inventory []Card, slots SlotAssignments) *Board {
	if slotCount < 1 {
		slotCount = 1
	}
	if slots == nil {
		slots = SlotAssignments{}
	}
	return &Board{
		bookID:      bookID,
		slotCount:   slotCount,
		inventory:   inventory,
		slots:       slots,
		displaySide: map[string]Side{},
	}
}

func (b *Board) BookID() string { return b.bookID }

func (b *Board) SlotCount() int { return b.slotCount }

// Inventory returns the current inventory sequence.
func (b *Board) Inventory() []Card {
	return b.inventory
}

// Slots returns the current slot assignments.
func (b *Board) Slots() SlotAssignments {
	return b.slots
}

// DisplaySide returns the side currently shown for a card (front by default).
func (b *Board) DisplaySide(cardID string) Side {
	if s, ok := b.displaySide[cardID]; ok {
		return s
	}
	return SideFront
}

// ToggleDisplaySide flips the shown side for a card and returns the new side.
func (b *Board) ToggleDisplaySide(cardID string) Side {
	next := SideBack
	if b.DisplaySide(cardID) == SideBack {
		next = SideFront
	}
	b.displaySide[cardID] = next
	return next
}

// findInventory returns the index of a card in the inventory, or -1.
func (b *Board) findInventory(cardID string) int {
	for i, c := range b.inventory {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// pageSlots returns the page's sequence normalized to slotCount.
func (b *Board) pageSlots(pageID string) []SlotEntry {
	return normalizeSlots(b.slots[pageID], b.slotCount)
}

// ResolveSlot returns the card at a slot, resolving legacy reference
// entries against the inventory.
func (b *Board) ResolveSlot(pageID string, slotIndex int) (Card, bool) {
	entries := b.slots[pageID]
	if slotIndex < 0 || slotIndex >= len(entries) {
		return Card{}, false
	}
	entry := entries[slotIndex]
	if c, ok := entry.Card(); ok {
		return c, true
	}
	if id, ok := entry.Ref(); ok {
		if i := b.findInventory(id); i >= 0 {
			return b.inventory[i], true
		}
	}
	return Card{}, false
}

// PlaceFromInventory moves a card from the inventory into a page slot.
// An occupied target slot is silently overwritten; that matches the drop
// behavior this engine preserves, and this method is the single place a
// swap or reject policy would be substituted.
func (b *Board) PlaceFromInventory(cardID, pageID string, slotIndex int) bool {
	if slotIndex < 0 || slotIndex >= b.slotCount {
		return false
	}
	i := b.findInventory(cardID)
	if i < 0 {
		return false
	}
	card := b.inventory[i]
	b.inventory = append(b.inventory[:i], b.inventory[i+1:]...)

	entries := b.pageSlots(pageID)
	entries[slotIndex] = CardSlot(card)
	b.slots[pageID] = entries
	return true
}

// MoveSlotToSlot moves the card at the source slot to the target slot,
// possibly across pages. Only object-valued entries move; a legacy
// reference entry cannot be the source. Source and target are updated
// together so no intermediate state is observable.
func (b *Board) MoveSlotToSlot(fromPageID string, fromSlot int, toPageID string, toSlot int) bool {
	if fromPageID == toPageID && fromSlot == toSlot {
		return false
	}
	if toSlot < 0 || toSlot >= b.slotCount {
		return false
	}
	src := b.slots[fromPageID]
	if fromSlot < 0 || fromSlot >= len(src) {
		return false
	}
	card, ok := src[fromSlot].Card()
	if !ok {
		return false
	}

	srcCopy := make([]SlotEntry, len(src))
	copy(srcCopy, src)
	srcCopy[fromSlot] = EmptySlot()
	b.slots[fromPageID] = srcCopy

	entries := b.pageSlots(toPageID)
	entries[toSlot] = CardSlot(card)
	b.slots[toPageID] = entries
	return true
}

// ReturnToInventory moves the card at a slot back to the front of the
// inventory and clears the slot.
func (b *Board) ReturnToInventory(pageID string, slotIndex int) bool {
	entries := b.slots[pageID]
	if slotIndex < 0 || slotIndex >= len(entries) {
		return false
	}
	card, ok := entries[slotIndex].Card()
	if !ok {
		return false
	}
	copied := make([]SlotEntry, len(entries))
	copy(copied, entries)
	copied[slotIndex] = EmptySlot()
	b.slots[pageID] = copied
	b.inventory = append([]Card{card}, b.inventory...)
	return true
}

// CreateCard prepends a fresh card with the given default type on both
// sides and returns it.
func (b *Board) CreateCard(defaultCardTypeID string) Card {
	card := Card{
		ID:                util.NewID(""),
		FrontCardTypeID:   defaultCardTypeID,
		BackCardTypeID:    defaultCardTypeID,
		FrontCardTypeData: TypeData{},
		BackCardTypeData:  TypeData{},
	}
	b.inventory = append([]Card{card}, b.inventory...)
	return card
}

// DeleteCard removes a card wherever it lives: from the inventory if
// present, otherwise any slot holding it (by value or reference) is
// cleared. Returns whether anything was removed plus the card's image
// URLs so the caller can request remote deletion best-effort.
func (b *Board) DeleteCard(cardID string) (bool, []string) {
	removed := false
	var urls []string

	if i := b.findInventory(cardID); i >= 0 {
		urls = b.inventory[i].ImageURLs()
		b.inventory = append(b.inventory[:i], b.inventory[i+1:]...)
		removed = true
	} else {
		for pageID, entries := range b.slots {
			changed := false
			copied := make([]SlotEntry, len(entries))
			copy(copied, entries)
			for idx, entry := range copied {
				id, ok := entry.CardID()
				if !ok || id != cardID {
					continue
				}
				if c, ok := entry.Card(); ok {
					urls = append(urls, c.ImageURLs()...)
				}
				copied[idx] = EmptySlot()
				changed = true
			}
			if changed {
				b.slots[pageID] = copied
				removed = true
			}
		}
	}

	if removed {
		delete(b.displaySide, cardID)
		if b.settings != nil && b.settings.CardID == cardID {
			b.settings = nil
		}
	}
	return removed, urls
}

// ReleasePage removes a page's slot sequence, returning its
// object-valued cards to the front of the inventory. Reference entries
// already resolve through the inventory and are simply dropped.
// Returns the number of cards returned.
func (b *Board) ReleasePage(pageID string) int {
	entries, ok := b.slots[pageID]
	if !ok {
		return 0
	}
	released := 0
	for _, entry := range entries {
		if card, ok := entry.Card(); ok {
			b.inventory = append([]Card{card}, b.inventory...)
			released++
		}
	}
	delete(b.slots, pageID)
	return released
}

// FindCard locates a live card by id in the inventory or any slot.
func (b *Board) FindCard(cardID string) (Card, bool) {
	return b.findCard(cardID)
}

func (b *Board) findCard(cardID string) (Card, bool) {
	if i := b.findInventory(cardID); i >= 0 {
		return b.inventory[i], true
	}
	for _, entries := range b.slots {
		for _, entry := range entries {
			if c, ok := entry.Card(); ok && c.ID == cardID {
				return c, true
			}
		}
	}
	return Card{}, false
}

// UpdateCard replaces the stored card matching updated.ID wherever it
// lives. Returns false when the id no longer exists anywhere.
func (b *Board) UpdateCard(updated Card) bool {
	found := false
	if i := b.findInventory(updated.ID); i >= 0 {
		b.inventory[i] = updated
		found = true
	}
	for pageID, entries := range b.slots {
		changed := false
		copied := make([]SlotEntry, len(entries))
		copy(copied, entries)
		for idx, entry := range copied {
			if c, ok := entry.Card(); ok && c.ID == updated.ID {
				copied[idx] = CardSlot(updated)
				changed = true
			}
		}
		if changed {
			b.slots[pageID] = copied
			found = true
		}
	}
	return found
}

// CheckSingleLocation reports card ids that appear both in the inventory
// and as object-valued slot entries. Used by tests; a healthy board
// always returns an empty slice.
func (b *Board) CheckSingleLocation() []string {
	inInventory := make(map[string]bool, len(b.inventory))
	for _, c := range b.inventory {
		inInventory[c.ID] = true
	}
	var dupes []string
	for _, entries := range b.slots {
		for _, entry := range entries {
			if c, ok := entry.Card(); ok && inInventory[c.ID] {
				dupes = append(dupes, c.ID)
			}
		}
	}
	return dupes
}
