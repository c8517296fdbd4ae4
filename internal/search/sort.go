package search

import "strings"

// SortKey is a "{field}_{asc|desc}" token.
type SortKey string

const DefaultSort SortKey = "createdAt_desc"

// sortFields maps the public sort field names to stored document fields.
var sortFields = map[string]string{
	"createdAt":     "createdAt",
	"price":         "price",
	"area":          "area",
	"rooms":         "rooms",
	"pricePerMeter": "pricePerMeter",
}

// ParseSortKey returns the token if it is recognised, DefaultSort otherwise.
func ParseSortKey(raw string) SortKey {
	k := SortKey(strings.TrimSpace(raw))
	if !k.Valid() {
		return DefaultSort
	}
	return k
}

// Valid reports whether k names a known field and direction.
func (k SortKey) Valid() bool {
	_, _, ok := k.split()
	return ok
}

// Field returns the stored document field and the direction (1 or -1).
// Unrecognised keys resolve to DefaultSort.
func (k SortKey) Field() (string, int) {
	field, desc, ok := k.split()
	if !ok {
		field, desc, _ = DefaultSort.split()
	}
	if desc {
		return field, -1
	}
	return field, 1
}

func (k SortKey) split() (field string, desc bool, ok bool) {
	name, dir, found := strings.Cut(string(k), "_")
	if !found {
		return "", false, false
	}
	field, ok = sortFields[name]
	if !ok {
		return "", false, false
	}
	switch dir {
	case "asc":
		return field, false, true
	case "desc":
		return field, true, true
	}
	return "", false, false
}

// SortKeys lists every accepted token, in display order.
func SortKeys() []SortKey {
	return []SortKey{
		"createdAt_desc", "createdAt_asc",
		"price_asc", "price_desc",
		"area_asc", "area_desc",
		"rooms_asc", "rooms_desc",
		"pricePerMeter_asc", "pricePerMeter_desc",
	}
}
