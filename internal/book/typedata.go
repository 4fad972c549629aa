package book

// Accessors for the caption/tags payload carried by type-data maps.
// Used by the instagram-style card type; tolerant of missing or
// malformed data in every direction.

// Caption returns the caption field if present and string-typed, else "".
func Caption(data TypeData) string {
	return stringField(data, "caption")
}

// Tags returns the tags field if present and string-typed, else "".
func Tags(data TypeData) string {
	return stringField(data, "tags")
}

func stringField(data TypeData, key string) string {
	if data == nil {
		return ""
	}
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

// WithCaption returns a copy of data with the caption overwritten.
func WithCaption(data TypeData, value string) TypeData {
	return withField(data, "caption", value)
}

// WithTags returns a copy of data with the tags overwritten.
func WithTags(data TypeData, value string) TypeData {
	return withField(data, "tags", value)
}

func withField(data TypeData, key, value string) TypeData {
	out := make(TypeData, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out[key] = value
	return out
}

// CaptionFromCard prefers the side's type-data caption and falls back to
// the legacy flat field of the same side.
func CaptionFromCard(c Card, side Side) string {
	if v := Caption(c.Data(side)); v != "" {
		return v
	}
	legacy := c.FrontCaption
	if side == SideBack {
		legacy = c.BackCaption
	}
	if legacy != nil {
		return *legacy
	}
	return ""
}

// TagsFromCard prefers the side's type-data tags and falls back to the
// legacy flat field of the same side.
func TagsFromCard(c Card, side Side) string {
	if v := Tags(c.Data(side)); v != "" {
		return v
	}
	legacy := c.FrontTags
	if side == SideBack {
		legacy = c.BackTags
	}
	if legacy != nil {
		return *legacy
	}
	return ""
}

// MigrateCard normalizes a persisted card to the current shape: type-data
// maps that already exist are copied as-is, legacy flat caption/tag fields
// are lifted into a synthesized map, and everything else gets an empty
// map. Runs once at inventory load; the cache is never rewritten in place.
func MigrateCard(c Card) Card {
	out := c.Clone()
	out.FrontCardTypeData = migrateSide(c.FrontCardTypeData, c.FrontCaption, c.FrontTags)
	out.BackCardTypeData = migrateSide(c.BackCardTypeData, c.BackCaption, c.BackTags)
	return out
}

func migrateSide(data TypeData, caption, tags *string) TypeData {
	if data != nil {
		return cloneData(data)
	}
	if caption != nil || tags != nil {
		return TypeData{
			"caption": strOrEmpty(caption),
			"tags":    strOrEmpty(tags),
		}
	}
	return TypeData{}
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
