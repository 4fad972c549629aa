package registry

import "testing"

func TestFindCardType(t *testing.T) {
	ct, ok := FindCardType(CardTypeInstagram)
	if !ok {
		t.Fatalf("expected to find %s", CardTypeInstagram)
	}
	if !ct.SupportsTypeData {
		t.Errorf("instagram card type should support type data")
	}

	if _, ok := FindCardType("cardtype999"); ok {
		t.Errorf("expected unknown card type to not be found")
	}
}

func TestCardTypesForBookType(t *testing.T) {
	types := CardTypesForBookType(BookTypeBasic)
	if len(types) != 3 {
		t.Fatalf("expected 3 card types for basic book, got %d", len(types))
	}

	// Unknown book types fall back to the basic selection
	fallback := CardTypesForBookType("booktype999")
	if len(fallback) != len(types) {
		t.Errorf("expected fallback selection to match basic book, got %d", len(fallback))
	}
}

func TestDefaultCardTypeID(t *testing.T) {
	if got := DefaultCardTypeID(BookTypeBasic); got != CardTypeBasic {
		t.Errorf("expected %s, got %s", CardTypeBasic, got)
	}
	if got := DefaultCardTypeID(BookTypePolaroid); got != CardTypeFullImage {
		t.Errorf("expected %s, got %s", CardTypeFullImage, got)
	}
}

func TestGridFor(t *testing.T) {
	rows, cols := GridFor(BookTypeBasic, nil, nil)
	if rows != 3 || cols != 4 {
		t.Errorf("expected 3x4 default grid, got %dx%d", rows, cols)
	}

	two := 2
	rows, cols = GridFor(BookTypeBasic, &two, &two)
	if rows != 2 || cols != 2 {
		t.Errorf("expected 2x2 override, got %dx%d", rows, cols)
	}

	rows, cols = GridFor("booktype999", nil, nil)
	if rows != 2 || cols != 2 {
		t.Errorf("expected 2x2 fallback for unknown book type, got %dx%d", rows, cols)
	}

	zero := 0
	rows, cols = GridFor(BookTypeSticker, &zero, nil)
	if rows != 4 || cols != 3 {
		t.Errorf("zero override should be ignored, got %dx%d", rows, cols)
	}
}
