// Package registry holds the static card-type and book-type catalogs.
// Everything here is lookup-only; nothing mutates at runtime.
package registry

// Card faces are sized in 54x86 units (the physical photo-card ratio).
const (
	CardUnitW = 54
	CardUnitH = 86
)

// DefaultBookPages is how many pages a new book is seeded with.
const DefaultBookPages = 10

// Layout describes the front/back geometry of a card type, in 54x86 multiples.
type Layout struct {
	FrontW int `json:"frontW"`
	FrontH int `json:"frontH"`
	BackW  int `json:"backW"`
	BackH  int `json:"backH"`
}

type CardType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Layout      Layout `json:"layout"`
	// SupportsTypeData marks card types that carry caption/tags payloads.
	SupportsTypeData bool `json:"supportsTypeData"`
}

type BookType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Rows and Cols define the default slot grid per page side.
	Rows       int  `json:"rows"`
	Cols       int  `json:"cols"`
	ShowSpread bool `json:"showSpread"`
	// CardTypeIDs lists the card types selectable for books of this type.
	CardTypeIDs []string `json:"cardTypeIds"`
}

const (
	CardTypeBasic     = "cardtype001"
	CardTypeFullImage = "cardtype002"
	CardTypeInstagram = "cardtype003"

	BookTypeBasic    = "booktype001"
	BookTypePolaroid = "booktype002"
	BookTypeSticker  = "booktype003"
)

var cardTypes = []CardType{
	{
		ID:          CardTypeBasic,
		Name:        "Basic photo card",
		Description: "Plain front/back card",
		Layout:      Layout{FrontW: 1, FrontH: 1, BackW: 1, BackH: 1},
	},
	{
		ID:          CardTypeFullImage,
		Name:        "Full image",
		Description: "One side fully covered by an image",
		Layout:      Layout{FrontW: 1, FrontH: 1, BackW: 1, BackH: 1},
	},
	{
		ID:               CardTypeInstagram,
		Name:             "Instagram style",
		Description:      "Post-style card with a 1:1 image, caption and tags",
		Layout:           Layout{FrontW: 1, FrontH: 1, BackW: 1, BackH: 1},
		SupportsTypeData: true,
	},
}

var bookTypes = []BookType{
	{
		ID:          BookTypeBasic,
		Name:        "Basic photo-card book",
		Description: "Cover plus standard spread pages",
		Rows:        3,
		Cols:        4,
		ShowSpread:  true,
		CardTypeIDs: []string{CardTypeBasic, CardTypeFullImage, CardTypeInstagram},
	},
	{
		ID:          BookTypePolaroid,
		Name:        "Polaroid book",
		Description: "Polaroid-style photo cards",
		Rows:        2,
		Cols:        2,
		ShowSpread:  true,
		CardTypeIDs: []string{CardTypeFullImage, CardTypeBasic},
	},
	{
		ID:          BookTypeSticker,
		Name:        "Sticker-seal book",
		Description: "Peel-off sticker style cards",
		Rows:        4,
		Cols:        3,
		ShowSpread:  true,
		CardTypeIDs: []string{CardTypeBasic, CardTypeFullImage},
	},
}

// CardTypes returns the full card-type catalog.
func CardTypes() []CardType {
	return cardTypes
}

// BookTypes returns the full book-type catalog.
func BookTypes() []BookType {
	return bookTypes
}

// FindCardType looks up a card type by id; ok is false for unknown ids.
func FindCardType(id string) (CardType, bool) {
	for _, ct := range cardTypes {
		if ct.ID == id {
			return ct, true
		}
	}
	return CardType{}, false
}

// FindBookType looks up a book type by id; ok is false for unknown ids.
func FindBookType(id string) (BookType, bool) {
	for _, bt := range bookTypes {
		if bt.ID == id {
			return bt, true
		}
	}
	return BookType{}, false
}

// CardTypesForBookType returns the card types selectable for a book type.
// Unknown book types fall back to the basic book's selection so the UI
// always has something to offer.
func CardTypesForBookType(bookTypeID string) []CardType {
	bt, ok := FindBookType(bookTypeID)
	if !ok {
		bt = bookTypes[0]
	}
	result := make([]CardType, 0, len(bt.CardTypeIDs))
	for _, id := range bt.CardTypeIDs {
		if ct, ok := FindCardType(id); ok {
			result = append(result, ct)
		}
	}
	return result
}

// DefaultCardTypeID returns the first card type allowed for the book type.
func DefaultCardTypeID(bookTypeID string) string {
	types := CardTypesForBookType(bookTypeID)
	if len(types) == 0 {
		return CardTypeBasic
	}
	return types[0].ID
}

// GridFor resolves the slot grid for a book: per-book overrides win,
// otherwise the book type's default geometry applies.
func GridFor(bookTypeID string, overrideRows, overrideCols *int) (rows, cols int) {
	bt, ok := FindBookType(bookTypeID)
	if !ok {
		rows, cols = 2, 2
	} else {
		rows, cols = bt.Rows, bt.Cols
	}
	if overrideRows != nil && *overrideRows > 0 {
		rows = *overrideRows
	}
	if overrideCols != nil && *overrideCols > 0 {
		cols = *overrideCols
	}
	return rows, cols
}
