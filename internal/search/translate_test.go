package search

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func mustParse(t *testing.T, query string) Criteria {
	t.Helper()
	v, err := url.ParseQuery(query)
	require.NoError(t, err)
	c, err := ParseCriteria(v)
	require.NoError(t, err)
	return c
}

func TestTranslate_DefaultIsActiveNewestFirst(t *testing.T) {
	q := Translate(DefaultCriteria())

	assert.Equal(t, bson.D{{Key: "status", Value: "active"}}, q.Filter)
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}, q.Sort)
	assert.Equal(t, int64(0), q.Skip)
	assert.Equal(t, int64(12), q.Limit)
}

func TestTranslate_ZeroCriteriaUsesDefaults(t *testing.T) {
	assert.Equal(t, Translate(DefaultCriteria()), Translate(Criteria{}))
}

func TestTranslate_StatusIsAlwaysLast(t *testing.T) {
	q := Translate(mustParse(t, "dealType=sale&city=Казань&search=дом"))
	last := q.Filter[len(q.Filter)-1]
	assert.Equal(t, bson.E{Key: "status", Value: "active"}, last)
}

func TestTranslate_Deterministic(t *testing.T) {
	query := "dealType=rent&category=apartment&minPrice=1&maxPrice=2&features=b,a&minFloor=1&notLastFloor=true&search=x&page=4&sort=rooms_asc"
	a := Translate(mustParse(t, query))
	b := Translate(mustParse(t, query))
	assert.Equal(t, a, b)

	rawA, err := bson.Marshal(a.Filter)
	require.NoError(t, err)
	rawB, err := bson.Marshal(b.Filter)
	require.NoError(t, err)
	assert.Equal(t, rawA, rawB)
}

func TestTranslate_RangesOnlyEmitSuppliedBounds(t *testing.T) {
	q := Translate(mustParse(t, "minPrice=1000000&maxArea=80"))
	assert.Equal(t, bson.D{
		{Key: "price", Value: bson.D{{Key: "$gte", Value: 1000000.0}}},
		{Key: "area", Value: bson.D{{Key: "$lte", Value: 80.0}}},
		{Key: "status", Value: "active"},
	}, q.Filter)

	q = Translate(mustParse(t, "minPrice=1000000&maxPrice=2000000"))
	assert.Equal(t, bson.E{Key: "price", Value: bson.D{
		{Key: "$gte", Value: 1000000.0},
		{Key: "$lte", Value: 2000000.0},
	}}, q.Filter[0])
}

func TestTranslate_Rooms(t *testing.T) {
	q := Translate(mustParse(t, "rooms=2"))
	assert.Equal(t, bson.E{Key: "rooms", Value: 2}, q.Filter[0])

	q = Translate(mustParse(t, "rooms=5%2B"))
	assert.Equal(t, bson.E{Key: "rooms", Value: bson.D{{Key: "$gte", Value: 5}}}, q.Filter[0])
}

func TestTranslate_TextIsEscapedCaseInsensitive(t *testing.T) {
	q := Translate(mustParse(t, "city=St.+Pete(rsburg)"))
	assert.Equal(t, bson.E{
		Key:   "address.city",
		Value: primitive.Regex{Pattern: `St\. Pete\(rsburg\)`, Options: "i"},
	}, q.Filter[0])
}

func TestTranslate_FeaturesRequireAll(t *testing.T) {
	q := Translate(mustParse(t, "features=parking,balcony"))
	assert.Equal(t, bson.E{Key: "features", Value: bson.D{{Key: "$all", Value: []string{"balcony", "parking"}}}}, q.Filter[0])
}

func TestTranslate_FloorClauses(t *testing.T) {
	q := Translate(mustParse(t, "minFloor=3&notFirstFloor=true&notLastFloor=true"))
	assert.Equal(t, bson.D{
		{Key: "floor", Value: bson.D{
			{Key: "$type", Value: "number"},
			{Key: "$gte", Value: 3},
			{Key: "$gt", Value: 1},
		}},
		{Key: "totalFloors", Value: bson.D{{Key: "$type", Value: "number"}}},
		{Key: "$expr", Value: bson.D{{Key: "$lt", Value: bson.A{"$floor", "$totalFloors"}}}},
		{Key: "status", Value: "active"},
	}, q.Filter)
}

func TestTranslate_YearBuilt(t *testing.T) {
	q := Translate(mustParse(t, "yearFrom=2000"))
	assert.Equal(t, bson.E{Key: "yearBuilt", Value: bson.D{{Key: "$gte", Value: 2000}}}, q.Filter[0])
}

func TestTranslate_SearchSpansTextFields(t *testing.T) {
	q := Translate(mustParse(t, "search=парк"))
	require.Len(t, q.Filter, 2)
	assert.Equal(t, "$or", q.Filter[0].Key)
	assert.Len(t, q.Filter[0].Value, 6)
}

func TestTranslate_Pagination(t *testing.T) {
	q := Translate(mustParse(t, "page=3&limit=20&sort=price_desc"))
	assert.Equal(t, int64(40), q.Skip)
	assert.Equal(t, int64(20), q.Limit)
	assert.Equal(t, bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: -1}}, q.Sort)
}

func TestTranslate_HugePageKeepsSkipPositive(t *testing.T) {
	q := Translate(Criteria{Page: math.MaxInt, Limit: math.MaxInt})
	assert.Equal(t, int64(MaxLimit), q.Limit)
	assert.Equal(t, int64(MaxPage-1)*int64(MaxLimit), q.Skip)

	q = Translate(mustParse(t, "page=100000000000000000&limit=100"))
	assert.Positive(t, q.Skip)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 3, TotalPages(25, 12))
	assert.Equal(t, 2, TotalPages(24, 12))
	assert.Equal(t, 1, TotalPages(1, 12))
	assert.Equal(t, 0, TotalPages(0, 12))
	for items := int64(0); items < 50; items++ {
		for limit := 1; limit < 15; limit++ {
			pages := TotalPages(items, limit)
			assert.GreaterOrEqual(t, int64(pages*limit), items)
			if items > 0 {
				assert.Less(t, int64((pages-1)*limit), items)
			}
		}
	}
}
