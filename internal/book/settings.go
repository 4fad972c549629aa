package book

import "errors"

// ErrUploadInFlight is returned when a second upload is started for a
// side that already has one pending.
var ErrUploadInFlight = errors.New("upload already in flight for this side")

// SettingsDraft is a detached copy of one card's editable fields.
// Optional defaults are resolved to concrete values on open so the edit
// surface never has to reason about absent fields.
type SettingsDraft struct {
	FrontCardTypeID string  `json:"frontCardTypeId"`
	BackCardTypeID  string  `json:"backCardTypeId"`
	FrontImage      *string `json:"frontImage"`
	BackImage       *string `json:"backImage"`

	FrontFilterColorEnabled bool   `json:"frontFilterColorEnabled"`
	FrontFilterColor        string `json:"frontFilterColor"`
	FrontFilterOpacity      int    `json:"frontFilterOpacity"`
	BackFilterColorEnabled  bool   `json:"backFilterColorEnabled"`
	BackFilterColor         string `json:"backFilterColor"`
	BackFilterOpacity       int    `json:"backFilterOpacity"`

	FrontCardTypeData TypeData `json:"frontCardTypeData"`
	BackCardTypeData  TypeData `json:"backCardTypeData"`
}

// SettingsSession is the edit-draft state machine for one card: opened
// from a live card, edited in isolation, then applied or discarded. At
// most one session exists per board.
type SettingsSession struct {
	CardID string
	Draft  SettingsDraft

	uploading map[Side]bool
}

func newSettingsSession(c Card) *SettingsSession {
	return &SettingsSession{
		CardID: c.ID,
		Draft: SettingsDraft{
			FrontCardTypeID:         c.FrontCardTypeID,
			BackCardTypeID:          c.BackCardTypeID,
			FrontImage:              cloneStr(c.FrontImage),
			BackImage:               cloneStr(c.BackImage),
			FrontFilterColorEnabled: c.FilterEnabled(SideFront),
			FrontFilterColor:        c.FilterColor(SideFront),
			FrontFilterOpacity:      c.FilterOpacity(SideFront),
			BackFilterColorEnabled:  c.FilterEnabled(SideBack),
			BackFilterColor:         c.FilterColor(SideBack),
			BackFilterOpacity:       c.FilterOpacity(SideBack),
			FrontCardTypeData:       cloneData(c.FrontCardTypeData),
			BackCardTypeData:        cloneData(c.BackCardTypeData),
		},
		uploading: map[Side]bool{},
	}
}

// OpenSettings opens an edit session for a live card, replacing any
// session already open. Returns nil when the card id is not on the board.
func (b *Board) OpenSettings(cardID string) *SettingsSession {
	card, ok := b.findCard(cardID)
	if !ok {
		return nil
	}
	b.settings = newSettingsSession(card)
	return b.settings
}

// Settings returns the open session, or nil.
func (b *Board) Settings() *SettingsSession {
	return b.settings
}

// CloseSettings discards the open session, if any.
func (b *Board) CloseSettings() {
	b.settings = nil
}

// ApplySettings merges the open draft into the live card, wherever it
// now lives (it may have moved since the session opened), and closes the
// session. Returns false when the card was deleted in the meantime; no
// new entity is created in that case.
func (b *Board) ApplySettings() bool {
	s := b.settings
	if s == nil {
		return false
	}
	b.settings = nil

	card, ok := b.findCard(s.CardID)
	if !ok {
		return false
	}

	updated := card.Clone()
	updated.FrontCardTypeID = s.Draft.FrontCardTypeID
	updated.BackCardTypeID = s.Draft.BackCardTypeID
	updated.FrontImage = cloneStr(s.Draft.FrontImage)
	updated.BackImage = cloneStr(s.Draft.BackImage)
	updated.FrontFilterColorEnabled = boolPtr(s.Draft.FrontFilterColorEnabled)
	updated.FrontFilterColor = strPtr(s.Draft.FrontFilterColor)
	updated.FrontFilterOpacity = intPtr(clampOpacity(s.Draft.FrontFilterOpacity))
	updated.BackFilterColorEnabled = boolPtr(s.Draft.BackFilterColorEnabled)
	updated.BackFilterColor = strPtr(s.Draft.BackFilterColor)
	updated.BackFilterOpacity = intPtr(clampOpacity(s.Draft.BackFilterOpacity))
	updated.FrontCardTypeData = cloneData(s.Draft.FrontCardTypeData)
	updated.BackCardTypeData = cloneData(s.Draft.BackCardTypeData)

	return b.UpdateCard(updated)
}

// SetCardType changes the draft's card type for one side.
func (s *SettingsSession) SetCardType(side Side, cardTypeID string) {
	if side == SideBack {
		s.Draft.BackCardTypeID = cardTypeID
	} else {
		s.Draft.FrontCardTypeID = cardTypeID
	}
}

// SetImage changes the draft's image URL for one side; nil clears it.
func (s *SettingsSession) SetImage(side Side, url *string) {
	if side == SideBack {
		s.Draft.BackImage = cloneStr(url)
	} else {
		s.Draft.FrontImage = cloneStr(url)
	}
}

// SetFilter changes the draft's color filter for one side.
func (s *SettingsSession) SetFilter(side Side, enabled bool, color string, opacity int) {
	opacity = clampOpacity(opacity)
	if color == "" {
		color = DefaultFilterColor
	}
	if side == SideBack {
		s.Draft.BackFilterColorEnabled = enabled
		s.Draft.BackFilterColor = color
		s.Draft.BackFilterOpacity = opacity
	} else {
		s.Draft.FrontFilterColorEnabled = enabled
		s.Draft.FrontFilterColor = color
		s.Draft.FrontFilterOpacity = opacity
	}
}

// SetCaption rewrites the draft's caption for one side via the type-data map.
func (s *SettingsSession) SetCaption(side Side, value string) {
	if side == SideBack {
		s.Draft.BackCardTypeData = WithCaption(s.Draft.BackCardTypeData, value)
	} else {
		s.Draft.FrontCardTypeData = WithCaption(s.Draft.FrontCardTypeData, value)
	}
}

// SetTags rewrites the draft's tags for one side via the type-data map.
func (s *SettingsSession) SetTags(side Side, value string) {
	if side == SideBack {
		s.Draft.BackCardTypeData = WithTags(s.Draft.BackCardTypeData, value)
	} else {
		s.Draft.FrontCardTypeData = WithTags(s.Draft.FrontCardTypeData, value)
	}
}

// BeginUpload marks a side as uploading. A side with an upload already
// pending rejects the second attempt; the other side is unaffected.
func (s *SettingsSession) BeginUpload(side Side) error {
	if s.uploading[side] {
		return ErrUploadInFlight
	}
	s.uploading[side] = true
	return nil
}

// FinishUpload clears the side's uploading flag; on success the returned
// URL lands in the draft's image field, on failure the draft is untouched.
func (s *SettingsSession) FinishUpload(side Side, url string, ok bool) {
	delete(s.uploading, side)
	if ok && url != "" {
		s.SetImage(side, &url)
	}
}

// Uploading reports whether the side has an upload in flight.
func (s *SettingsSession) Uploading(side Side) bool {
	return s.uploading[side]
}

func clampOpacity(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func boolPtr(v bool) *bool { return &v }

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }
