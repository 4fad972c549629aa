package book

import "testing"

func strp(s string) *string { return &s }

func TestCaptionAndTags(t *testing.T) {
	data := TypeData{"caption": "hello", "tags": "#a #b"}
	if got := Caption(data); got != "hello" {
		t.Errorf("Caption = %q, want hello", got)
	}
	if got := Tags(data); got != "#a #b" {
		t.Errorf("Tags = %q, want #a #b", got)
	}

	if got := Caption(nil); got != "" {
		t.Errorf("Caption(nil) = %q, want empty", got)
	}
	if got := Caption(TypeData{"caption": 42}); got != "" {
		t.Errorf("non-string caption should read as empty, got %q", got)
	}
}

func TestWithCaptionPreservesOtherFields(t *testing.T) {
	data := TypeData{"caption": "old", "tags": "#x", "extra": true}
	next := WithCaption(data, "new")

	if got := Caption(next); got != "new" {
		t.Errorf("Caption = %q, want new", got)
	}
	if got := Tags(next); got != "#x" {
		t.Errorf("tags lost on caption write: %q", got)
	}
	if next["extra"] != true {
		t.Errorf("unknown fields must be preserved")
	}
	if got := Caption(data); got != "old" {
		t.Errorf("original mutated: %q", got)
	}
}

func TestCaptionFromCardLegacyFallback(t *testing.T) {
	card := Card{
		ID:           "c1",
		FrontCaption: strp("legacy caption"),
		FrontTags:    strp("#legacy"),
	}
	if got := CaptionFromCard(card, SideFront); got != "legacy caption" {
		t.Errorf("expected legacy fallback, got %q", got)
	}
	if got := TagsFromCard(card, SideFront); got != "#legacy" {
		t.Errorf("expected legacy tags fallback, got %q", got)
	}

	// Type data wins over the legacy field once present.
	card.FrontCardTypeData = TypeData{"caption": "typed"}
	if got := CaptionFromCard(card, SideFront); got != "typed" {
		t.Errorf("type data should win, got %q", got)
	}

	// Back side is independent of front.
	if got := CaptionFromCard(card, SideBack); got != "" {
		t.Errorf("back caption should be empty, got %q", got)
	}
}

func TestMigrateCardFromLegacyFlatFields(t *testing.T) {
	legacy := Card{
		ID:           "c1",
		FrontCaption: strp("hi"),
		FrontTags:    strp("#a"),
	}
	migrated := MigrateCard(legacy)

	if got := Caption(migrated.FrontCardTypeData); got != "hi" {
		t.Errorf("migrated caption = %q, want hi", got)
	}
	if got := Tags(migrated.FrontCardTypeData); got != "#a" {
		t.Errorf("migrated tags = %q, want #a", got)
	}
	if migrated.BackCardTypeData == nil || len(migrated.BackCardTypeData) != 0 {
		t.Errorf("back side without legacy fields should get an empty map")
	}
}

func TestMigrateCardKeepsExistingTypeData(t *testing.T) {
	card := Card{
		ID:                "c1",
		FrontCardTypeData: TypeData{"caption": "kept", "custom": "x"},
		FrontCaption:      strp("ignored"),
	}
	migrated := MigrateCard(card)
	if got := Caption(migrated.FrontCardTypeData); got != "kept" {
		t.Errorf("existing type data must be copied as-is, got %q", got)
	}
	if migrated.FrontCardTypeData["custom"] != "x" {
		t.Errorf("extra fields must survive migration")
	}

	// Returned map is detached from the input.
	migrated.FrontCardTypeData["caption"] = "changed"
	if got := Caption(card.FrontCardTypeData); got != "kept" {
		t.Errorf("migration must not alias the source map")
	}
}

func TestMigrateCardDefaultsToEmptyMaps(t *testing.T) {
	migrated := MigrateCard(Card{ID: "c1"})
	if migrated.FrontCardTypeData == nil || migrated.BackCardTypeData == nil {
		t.Fatalf("both sides should get empty maps, got %v / %v",
			migrated.FrontCardTypeData, migrated.BackCardTypeData)
	}
}
