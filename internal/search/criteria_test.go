package search

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realty/catalog/internal/models"
)

func TestParseCriteria_Defaults(t *testing.T) {
	c, err := ParseCriteria(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, DefaultCriteria(), c)
	assert.Equal(t, "", c.Encode())
}

func TestParseCriteria_AllKeys(t *testing.T) {
	v, _ := url.ParseQuery("dealType=rent&category=apartment&minPrice=30000&maxPrice=80000" +
		"&minArea=30&maxArea=90.5&rooms=5%2B&city=Москва&district=Арбат&metro=Смоленская" +
		"&features=balcony,parking&features=lift&minFloor=2&maxFloor=10&notFirstFloor=true&notLastFloor=1" +
		"&yearFrom=1990&yearTo=2020&search=вид&page=3&limit=24&sort=price_asc&unknown=zzz")

	c, err := ParseCriteria(v)
	require.NoError(t, err)

	assert.Equal(t, models.DealRent, c.DealType)
	assert.Equal(t, models.CategoryApartment, c.Category)
	assert.Equal(t, 30000.0, *c.MinPrice)
	assert.Equal(t, 80000.0, *c.MaxPrice)
	assert.Equal(t, 30.0, *c.MinArea)
	assert.Equal(t, 90.5, *c.MaxArea)
	assert.Equal(t, &RoomsFilter{Count: 5, AtLeast: true}, c.Rooms)
	assert.Equal(t, "Москва", c.City)
	assert.Equal(t, "Арбат", c.District)
	assert.Equal(t, "Смоленская", c.Metro)
	assert.Equal(t, []string{"balcony", "lift", "parking"}, c.Features)
	assert.Equal(t, 2, *c.MinFloor)
	assert.Equal(t, 10, *c.MaxFloor)
	assert.True(t, c.NotFirstFloor)
	assert.True(t, c.NotLastFloor)
	assert.Equal(t, 1990, *c.YearFrom)
	assert.Equal(t, 2020, *c.YearTo)
	assert.Equal(t, "вид", c.Search)
	assert.Equal(t, 3, c.Page)
	assert.Equal(t, 24, c.Limit)
	assert.Equal(t, SortKey("price_asc"), c.Sort)
}

func TestParseCriteria_LegacyAliases(t *testing.T) {
	c, err := ParseCriteria(url.Values{"type": {"sale"}, "propertyType": {"house"}})
	require.NoError(t, err)
	assert.Equal(t, models.DealSale, c.DealType)
	assert.Equal(t, models.CategoryHouse, c.Category)
}

func TestParseCriteria_ValidationErrors(t *testing.T) {
	cases := map[string]struct {
		query string
		field string
	}{
		"bad deal type":      {"dealType=swap", "dealType"},
		"bad category":       {"category=castle", "category"},
		"non numeric price":  {"minPrice=cheap", "minPrice"},
		"negative area":      {"maxArea=-5", "maxArea"},
		"inverted price":     {"minPrice=10&maxPrice=5", "price"},
		"rooms garbage":      {"rooms=many", "rooms"},
		"rooms other plus":   {"rooms=3%2B", "rooms"},
		"inverted floors":    {"minFloor=9&maxFloor=3", "floor"},
		"bad flag":           {"notFirstFloor=maybe", "notFirstFloor"},
		"inverted years":     {"yearFrom=2020&yearTo=1990", "year"},
		"non integer page":   {"page=two", "page"},
		"limit above bound":  {"limit=101", "limit"},
		"non integer limit":  {"limit=1.5", "limit"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			v, _ := url.ParseQuery(tc.query)
			_, err := ParseCriteria(v)
			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestParseCriteria_ClampsPagination(t *testing.T) {
	c, err := ParseCriteria(url.Values{"page": {"0"}, "limit": {"-4"}})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Page)
	assert.Equal(t, 1, c.Limit)
}

func TestParseCriteria_CapsHugePage(t *testing.T) {
	for _, raw := range []string{"100000000000000000", "99999999999999999999999"} {
		c, err := ParseCriteria(url.Values{"page": {raw}, "limit": {"100"}})
		require.NoError(t, err, raw)
		assert.Equal(t, MaxPage, c.Page, raw)
	}

	_, err := ParseCriteria(url.Values{"page": {"-99999999999999999999999"}})
	require.NoError(t, err)
}

func TestParseCriteria_UnknownSortFallsBack(t *testing.T) {
	c, err := ParseCriteria(url.Values{"sort": {"rating_desc"}})
	require.NoError(t, err)
	assert.Equal(t, DefaultSort, c.Sort)

	c, err = ParseCriteria(url.Values{"sort": {"price_sideways"}})
	require.NoError(t, err)
	assert.Equal(t, DefaultSort, c.Sort)
}

func TestCriteria_EncodeRoundTrip(t *testing.T) {
	minPrice := 1000000.0
	floor := 2
	in := DefaultCriteria()
	in.DealType = models.DealSale
	in.MinPrice = &minPrice
	in.Rooms = &RoomsFilter{Count: 2}
	in.City = "Санкт-Петербург"
	in.Features = []string{"lift", "parking"}
	in.MinFloor = &floor
	in.NotLastFloor = true
	in.Page = 2
	in.Sort = "area_desc"

	out, err := ParseCriteria(in.Values())
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
	assert.Equal(t, in.Encode(), out.Encode())
}

func TestCriteria_CloneIsDeep(t *testing.T) {
	price := 10.0
	c := DefaultCriteria()
	c.MaxPrice = &price
	c.Features = []string{"lift"}

	cp := c.Clone()
	*cp.MaxPrice = 20
	cp.Features[0] = "pool"

	assert.Equal(t, 10.0, *c.MaxPrice)
	assert.Equal(t, "lift", c.Features[0])
}

func TestSortKey_Field(t *testing.T) {
	field, dir := SortKey("pricePerMeter_asc").Field()
	assert.Equal(t, "pricePerMeter", field)
	assert.Equal(t, 1, dir)

	field, dir = SortKey("nonsense").Field()
	assert.Equal(t, "createdAt", field)
	assert.Equal(t, -1, dir)

	for _, k := range SortKeys() {
		assert.True(t, k.Valid(), k)
	}
}

func TestCriteria_WithoutPage(t *testing.T) {
	a := DefaultCriteria()
	a.City = "Москва"
	a.Page = 4
	b := a.WithoutPage()

	assert.Equal(t, DefaultPage, b.Page)
	assert.Equal(t, 4, a.Page)
	assert.False(t, a.Equal(b))
	assert.True(t, a.WithoutPage().Equal(b))
}
