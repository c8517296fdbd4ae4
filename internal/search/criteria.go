package search

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"realty/catalog/internal/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
	// MaxLimit bounds the page size a caller may request.
	MaxLimit = 100
	// MaxPage caps the page number so the skip offset stays well inside int64.
	MaxPage = 1_000_000
)

// RoomsFilter is either an exact room count or "N or more" (the "5+" sentinel).
type RoomsFilter struct {
	Count   int
	AtLeast bool
}

func (r RoomsFilter) String() string {
	if r.AtLeast {
		return strconv.Itoa(r.Count) + "+"
	}
	return strconv.Itoa(r.Count)
}

// RoomsOrMore is the room count from which the UI offers the "N+" option.
const RoomsOrMore = 5

// Criteria is the full set of user-settable search constraints.
// A nil pointer, empty string, empty slice or false flag means "no restriction".
type Criteria struct {
	DealType models.DealType
	Category models.Category

	MinPrice *float64
	MaxPrice *float64
	MinArea  *float64
	MaxArea  *float64

	Rooms *RoomsFilter

	City     string
	District string
	Metro    string

	Features []string

	MinFloor      *int
	MaxFloor      *int
	NotFirstFloor bool
	NotLastFloor  bool

	YearFrom *int
	YearTo   *int

	Search string

	Page  int
	Limit int
	Sort  SortKey
}

// DefaultCriteria returns criteria with only the pagination and sort defaults set.
func DefaultCriteria() Criteria {
	return Criteria{Page: DefaultPage, Limit: DefaultLimit, Sort: DefaultSort}
}

func invalid(field, format string, args ...interface{}) *models.ValidationError {
	return &models.ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ParseCriteria builds Criteria from query-string values. Unrecognised keys are ignored.
func ParseCriteria(v url.Values) (Criteria, error) {
	c := DefaultCriteria()

	dealType := first(v, "dealType", "type")
	if dealType != "" {
		c.DealType = models.DealType(strings.ToLower(dealType))
		if !c.DealType.Valid() {
			return Criteria{}, invalid("dealType", "must be one of sale, rent")
		}
	}

	category := first(v, "category", "propertyType")
	if category != "" {
		c.Category = models.Category(strings.ToLower(category))
		if !c.Category.Valid() {
			return Criteria{}, invalid("category", "must be one of apartment, house, commercial, land")
		}
	}

	var err error
	if c.MinPrice, err = parseAmount(v, "minPrice"); err != nil {
		return Criteria{}, err
	}
	if c.MaxPrice, err = parseAmount(v, "maxPrice"); err != nil {
		return Criteria{}, err
	}
	if err = checkRange("price", c.MinPrice, c.MaxPrice); err != nil {
		return Criteria{}, err
	}
	if c.MinArea, err = parseAmount(v, "minArea"); err != nil {
		return Criteria{}, err
	}
	if c.MaxArea, err = parseAmount(v, "maxArea"); err != nil {
		return Criteria{}, err
	}
	if err = checkRange("area", c.MinArea, c.MaxArea); err != nil {
		return Criteria{}, err
	}

	if raw := strings.TrimSpace(v.Get("rooms")); raw != "" {
		rooms, err := parseRooms(raw)
		if err != nil {
			return Criteria{}, err
		}
		c.Rooms = rooms
	}

	c.City = strings.TrimSpace(v.Get("city"))
	c.District = strings.TrimSpace(v.Get("district"))
	c.Metro = strings.TrimSpace(v.Get("metro"))
	c.Search = strings.TrimSpace(first(v, "search", "q"))
	c.Features = parseFeatures(v["features"])

	if c.MinFloor, err = parseCount(v, "minFloor"); err != nil {
		return Criteria{}, err
	}
	if c.MaxFloor, err = parseCount(v, "maxFloor"); err != nil {
		return Criteria{}, err
	}
	if c.MinFloor != nil && c.MaxFloor != nil && *c.MinFloor > *c.MaxFloor {
		return Criteria{}, invalid("floor", "minFloor must not exceed maxFloor")
	}
	if c.NotFirstFloor, err = parseFlag(v, "notFirstFloor"); err != nil {
		return Criteria{}, err
	}
	if c.NotLastFloor, err = parseFlag(v, "notLastFloor"); err != nil {
		return Criteria{}, err
	}

	if c.YearFrom, err = parseCount(v, "yearFrom"); err != nil {
		return Criteria{}, err
	}
	if c.YearTo, err = parseCount(v, "yearTo"); err != nil {
		return Criteria{}, err
	}
	if c.YearFrom != nil && c.YearTo != nil && *c.YearFrom > *c.YearTo {
		return Criteria{}, invalid("year", "yearFrom must not exceed yearTo")
	}

	if raw := strings.TrimSpace(v.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if errors.Is(err, strconv.ErrRange) {
			// Atoi saturates at the int bounds on overflow.
			err = nil
		}
		if err != nil {
			return Criteria{}, invalid("page", "must be an integer")
		}
		c.Page = min(max(page, 1), MaxPage)
	}
	if raw := strings.TrimSpace(v.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return Criteria{}, invalid("limit", "must be an integer")
		}
		if limit > MaxLimit {
			return Criteria{}, invalid("limit", "must not exceed %d", MaxLimit)
		}
		c.Limit = max(limit, 1)
	}

	// Unknown sort tokens fall back to the no-sort baseline.
	c.Sort = ParseSortKey(v.Get("sort"))

	return c, nil
}

// Values encodes c as query-string values. Defaults are omitted so that
// DefaultCriteria encodes to an empty query.
func (c Criteria) Values() url.Values {
	v := url.Values{}
	if c.DealType != "" {
		v.Set("dealType", string(c.DealType))
	}
	if c.Category != "" {
		v.Set("category", string(c.Category))
	}
	setAmount(v, "minPrice", c.MinPrice)
	setAmount(v, "maxPrice", c.MaxPrice)
	setAmount(v, "minArea", c.MinArea)
	setAmount(v, "maxArea", c.MaxArea)
	if c.Rooms != nil {
		v.Set("rooms", c.Rooms.String())
	}
	setText(v, "city", c.City)
	setText(v, "district", c.District)
	setText(v, "metro", c.Metro)
	if len(c.Features) > 0 {
		v.Set("features", strings.Join(c.Features, ","))
	}
	setCount(v, "minFloor", c.MinFloor)
	setCount(v, "maxFloor", c.MaxFloor)
	if c.NotFirstFloor {
		v.Set("notFirstFloor", "true")
	}
	if c.NotLastFloor {
		v.Set("notLastFloor", "true")
	}
	setCount(v, "yearFrom", c.YearFrom)
	setCount(v, "yearTo", c.YearTo)
	setText(v, "search", c.Search)
	if c.Page > DefaultPage {
		v.Set("page", strconv.Itoa(c.Page))
	}
	if c.Limit > 0 && c.Limit != DefaultLimit {
		v.Set("limit", strconv.Itoa(c.Limit))
	}
	if c.Sort != "" && c.Sort != DefaultSort {
		v.Set("sort", string(c.Sort))
	}
	return v
}

// Encode returns the query-string form of c (sorted by key).
func (c Criteria) Encode() string {
	return c.Values().Encode()
}

// Equal reports whether c and other describe the same search.
func (c Criteria) Equal(other Criteria) bool {
	return c.Normalized().Encode() == other.Normalized().Encode()
}

// WithoutPage returns c moved back to the first page.
func (c Criteria) WithoutPage() Criteria {
	c.Page = DefaultPage
	return c
}

// Normalized fills zero pagination and sort fields with their defaults and
// caps page and limit at MaxPage and MaxLimit.
func (c Criteria) Normalized() Criteria {
	if c.Page < 1 {
		c.Page = DefaultPage
	}
	c.Page = min(c.Page, MaxPage)
	if c.Limit < 1 {
		c.Limit = DefaultLimit
	}
	c.Limit = min(c.Limit, MaxLimit)
	if !c.Sort.Valid() {
		c.Sort = DefaultSort
	}
	return c
}

// Clone returns a deep copy of c.
func (c Criteria) Clone() Criteria {
	out := c
	out.MinPrice = clonePtr(c.MinPrice)
	out.MaxPrice = clonePtr(c.MaxPrice)
	out.MinArea = clonePtr(c.MinArea)
	out.MaxArea = clonePtr(c.MaxArea)
	out.Rooms = clonePtr(c.Rooms)
	out.MinFloor = clonePtr(c.MinFloor)
	out.MaxFloor = clonePtr(c.MaxFloor)
	out.YearFrom = clonePtr(c.YearFrom)
	out.YearTo = clonePtr(c.YearTo)
	out.Features = slices.Clone(c.Features)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func first(v url.Values, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(v.Get(k)); s != "" {
			return s
		}
	}
	return ""
}

func parseAmount(v url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, invalid(key, "must be a number")
	}
	if f < 0 {
		return nil, invalid(key, "must not be negative")
	}
	return &f, nil
}

func parseCount(v url.Values, key string) (*int, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, invalid(key, "must be an integer")
	}
	if n < 0 {
		return nil, invalid(key, "must not be negative")
	}
	return &n, nil
}

func parseFlag(v url.Values, key string) (bool, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, invalid(key, "must be true or false")
	}
	return b, nil
}

func parseRooms(raw string) (*RoomsFilter, error) {
	if raw == strconv.Itoa(RoomsOrMore)+"+" {
		return &RoomsFilter{Count: RoomsOrMore, AtLeast: true}, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, invalid("rooms", "must be a non-negative integer or %d+", RoomsOrMore)
	}
	return &RoomsFilter{Count: n}, nil
}

// parseFeatures accepts both repeated keys and comma-separated values.
// The result is de-duplicated and sorted so equal sets encode identically.
func parseFeatures(raw []string) []string {
	var out []string
	for _, item := range raw {
		for _, f := range strings.Split(item, ",") {
			if f = strings.TrimSpace(f); f != "" && !slices.Contains(out, f) {
				out = append(out, f)
			}
		}
	}
	slices.Sort(out)
	return out
}

func checkRange(field string, lo, hi *float64) error {
	if lo != nil && hi != nil && *lo > *hi {
		return invalid(field, "minimum must not exceed maximum")
	}
	return nil
}

func setAmount(v url.Values, key string, f *float64) {
	if f != nil {
		v.Set(key, strconv.FormatFloat(*f, 'f', -1, 64))
	}
}

func setCount(v url.Values, key string, n *int) {
	if n != nil {
		v.Set(key, strconv.Itoa(*n))
	}
}

func setText(v url.Values, key, s string) {
	if s != "" {
		v.Set(key, s)
	}
}
