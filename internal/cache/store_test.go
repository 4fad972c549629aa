package cache

import (
	"context"
	"testing"

	"cardbook/api/internal/book"

	"github.com/alicebob/miniredis/v2"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create cache store: %v", err)
	}
	return store, s
}

func strp(s string) *string { return &s }

func TestLoadInventoryMissingIsEmpty(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	cards, err := store.LoadInventory(context.Background(), "book-1")
	if err != nil {
		t.Fatalf("LoadInventory failed: %v", err)
	}
	if len(cards) != 0 {
		t.Errorf("expected empty inventory, got %d cards", len(cards))
	}
}

func TestLoadInventoryCorruptIsEmpty(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	s.Set("inventory:book-1", "{not json")

	cards, err := store.LoadInventory(context.Background(), "book-1")
	if err != nil {
		t.Fatalf("corrupt snapshot must not error: %v", err)
	}
	if len(cards) != 0 {
		t.Errorf("corrupt snapshot should yield empty inventory")
	}
}

func TestLoadInventoryMigratesLegacyCards(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	s.Set("inventory:book-1", `[{"id":"c1","frontCardTypeId":"cardtype003","backCardTypeId":"cardtype001","frontCaption":"hi","frontTags":"#a"}]`)

	cards, err := store.LoadInventory(context.Background(), "book-1")
	if err != nil {
		t.Fatalf("LoadInventory failed: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	if got := book.Caption(cards[0].FrontCardTypeData); got != "hi" {
		t.Errorf("legacy caption should migrate into type data, got %q", got)
	}
	if got := book.Tags(cards[0].FrontCardTypeData); got != "#a" {
		t.Errorf("legacy tags should migrate into type data, got %q", got)
	}
}

func TestSkipFirstSaveAfterLoad(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	s.Set("inventory:book-1", `[{"id":"c1","frontCardTypeId":"cardtype001","backCardTypeId":"cardtype001"}]`)

	if _, err := store.LoadInventory(ctx, "book-1"); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// First save after the load is dropped.
	if err := store.SaveInventory(ctx, "book-1", []book.Card{}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	raw, err := s.Get("inventory:book-1")
	if err != nil || raw == "[]" {
		t.Errorf("first save after load should be dropped, key now %q", raw)
	}

	// Second save is persisted.
	if err := store.SaveInventory(ctx, "book-1", []book.Card{}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	raw, _ = s.Get("inventory:book-1")
	if raw != "[]" {
		t.Errorf("second save should persist, key now %q", raw)
	}
}

func TestSkipGuardIsPerBookAndPerKind(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if _, err := store.LoadInventory(ctx, "book-1"); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// A different book saves straight through.
	if err := store.SaveInventory(ctx, "book-2", []book.Card{{ID: "c2"}}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !s.Exists("inventory:book-2") {
		t.Errorf("unloaded book should save immediately")
	}

	// The slots snapshot of the loaded book also saves straight through.
	if err := store.SaveSlots(ctx, "book-1", book.SlotAssignments{}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !s.Exists("slots:book-1") {
		t.Errorf("slots guard is independent of the inventory guard")
	}
}

func TestSlotsRoundTrip(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	img := strp("http://objects.local/cards/b/1-a.png")
	slots := book.SlotAssignments{
		"P1": {
			book.CardSlot(book.Card{ID: "c1", FrontCardTypeID: "cardtype001", BackCardTypeID: "cardtype001", FrontImage: img}),
			book.EmptySlot(),
			book.RefSlot("c2"),
		},
	}

	if err := store.SaveSlots(ctx, "book-1", slots); err != nil {
		t.Fatalf("SaveSlots failed: %v", err)
	}

	loaded, err := store.LoadSlots(ctx, "book-1")
	if err != nil {
		t.Fatalf("LoadSlots failed: %v", err)
	}
	entries := loaded["P1"]
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if c, ok := entries[0].Card(); !ok || c.ID != "c1" || c.FrontImage == nil {
		t.Errorf("object entry did not round trip: %+v", entries[0])
	}
	if !entries[1].IsEmpty() {
		t.Errorf("empty entry did not round trip")
	}
	if id, ok := entries[2].Ref(); !ok || id != "c2" {
		t.Errorf("reference entry did not round trip, got %q", id)
	}
}

func TestLoadSlotsCorruptIsEmpty(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	s.Set("slots:book-1", "][")

	slots, err := store.LoadSlots(context.Background(), "book-1")
	if err != nil {
		t.Fatalf("corrupt snapshot must not error: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("corrupt snapshot should yield empty assignments")
	}
}

func TestDeleteBook(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.SaveInventory(ctx, "book-1", []book.Card{{ID: "c1"}}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.SaveSlots(ctx, "book-1", book.SlotAssignments{"P": {book.RefSlot("c1")}}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := store.DeleteBook(ctx, "book-1"); err != nil {
		t.Fatalf("DeleteBook failed: %v", err)
	}
	if s.Exists("inventory:book-1") || s.Exists("slots:book-1") {
		t.Errorf("both snapshots should be removed")
	}
}
