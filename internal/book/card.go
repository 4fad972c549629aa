// Package book implements the card/slot placement model: the inventory
// of unassigned cards, the page slot grids, and the rules for moving
// cards between them while keeping every card in exactly one place.
package book

// Side selects the front or back face of a card.
type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

// Valid reports whether s is one of the two card faces.
func (s Side) Valid() bool {
	return s == SideFront || s == SideBack
}

// Defaults applied when the optional per-side fields are absent.
const (
	DefaultFilterColor   = "#000000"
	DefaultFilterOpacity = 50
)

// TypeData is the free-form per-card-type payload (caption, tags, ...).
type TypeData map[string]any

// Card is one double-sided photo card. Pointer fields keep the persisted
// JSON shape intact: an absent flag means its default (image shown,
// filter disabled, black at 50%).
type Card struct {
	ID              string  `json:"id"`
	FrontCardTypeID string  `json:"frontCardTypeId"`
	BackCardTypeID  string  `json:"backCardTypeId"`
	FrontImage      *string `json:"frontImage,omitempty"`
	BackImage       *string `json:"backImage,omitempty"`

	FrontShowImage *bool `json:"frontShowImage,omitempty"`
	BackShowImage  *bool `json:"backShowImage,omitempty"`

	FrontFilterColorEnabled *bool   `json:"frontFilterColorEnabled,omitempty"`
	FrontFilterColor        *string `json:"frontFilterColor,omitempty"`
	FrontFilterOpacity      *int    `json:"frontFilterOpacity,omitempty"`
	BackFilterColorEnabled  *bool   `json:"backFilterColorEnabled,omitempty"`
	BackFilterColor         *string `json:"backFilterColor,omitempty"`
	BackFilterOpacity       *int    `json:"backFilterOpacity,omitempty"`

	FrontCardTypeData TypeData `json:"frontCardTypeData,omitempty"`
	BackCardTypeData  TypeData `json:"backCardTypeData,omitempty"`

	// Legacy flat fields from the old persisted shape. Read during
	// migration only; new writes always go through the type-data maps.
	FrontCaption *string `json:"frontCaption,omitempty"`
	FrontTags    *string `json:"frontTags,omitempty"`
	BackCaption  *string `json:"backCaption,omitempty"`
	BackTags     *string `json:"backTags,omitempty"`
}

// CardTypeID returns the card type for the given side.
func (c Card) CardTypeID(side Side) string {
	if side == SideBack {
		return c.BackCardTypeID
	}
	return c.FrontCardTypeID
}

// Image returns the image URL for the given side, or "" when unset.
func (c Card) Image(side Side) string {
	p := c.FrontImage
	if side == SideBack {
		p = c.BackImage
	}
	if p == nil {
		return ""
	}
	return *p
}

// ShowImage reports whether the side's image should render. Absent means true.
func (c Card) ShowImage(side Side) bool {
	p := c.FrontShowImage
	if side == SideBack {
		p = c.BackShowImage
	}
	return p == nil || *p
}

// FilterEnabled reports whether the side's color filter is on. Absent means false.
func (c Card) FilterEnabled(side Side) bool {
	p := c.FrontFilterColorEnabled
	if side == SideBack {
		p = c.BackFilterColorEnabled
	}
	return p != nil && *p
}

// FilterColor returns the side's filter color, defaulting to black.
func (c Card) FilterColor(side Side) string {
	p := c.FrontFilterColor
	if side == SideBack {
		p = c.BackFilterColor
	}
	if p == nil {
		return DefaultFilterColor
	}
	return *p
}

// FilterOpacity returns the side's filter opacity in 0..100, defaulting to 50.
func (c Card) FilterOpacity(side Side) int {
	p := c.FrontFilterOpacity
	if side == SideBack {
		p = c.BackFilterOpacity
	}
	if p == nil {
		return DefaultFilterOpacity
	}
	return *p
}

// Data returns the side's type-data map; may be nil for unmigrated cards.
func (c Card) Data(side Side) TypeData {
	if side == SideBack {
		return c.BackCardTypeData
	}
	return c.FrontCardTypeData
}

// ImageURLs returns the non-empty image URLs of both sides.
func (c Card) ImageURLs() []string {
	var urls []string
	if u := c.Image(SideFront); u != "" {
		urls = append(urls, u)
	}
	if u := c.Image(SideBack); u != "" {
		urls = append(urls, u)
	}
	return urls
}

// Clone returns a deep copy, detaching maps and pointer fields so edits
// to the copy never leak into the original.
func (c Card) Clone() Card {
	out := c
	out.FrontImage = cloneStr(c.FrontImage)
	out.BackImage = cloneStr(c.BackImage)
	out.FrontShowImage = cloneBool(c.FrontShowImage)
	out.BackShowImage = cloneBool(c.BackShowImage)
	out.FrontFilterColorEnabled = cloneBool(c.FrontFilterColorEnabled)
	out.FrontFilterColor = cloneStr(c.FrontFilterColor)
	out.FrontFilterOpacity = cloneInt(c.FrontFilterOpacity)
	out.BackFilterColorEnabled = cloneBool(c.BackFilterColorEnabled)
	out.BackFilterColor = cloneStr(c.BackFilterColor)
	out.BackFilterOpacity = cloneInt(c.BackFilterOpacity)
	out.FrontCardTypeData = cloneData(c.FrontCardTypeData)
	out.BackCardTypeData = cloneData(c.BackCardTypeData)
	out.FrontCaption = cloneStr(c.FrontCaption)
	out.FrontTags = cloneStr(c.FrontTags)
	out.BackCaption = cloneStr(c.BackCaption)
	out.BackTags = cloneStr(c.BackTags)
	return out
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneData(d TypeData) TypeData {
	if d == nil {
		return nil
	}
	out := make(TypeData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
