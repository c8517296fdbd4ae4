package search

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"realty/catalog/internal/models"
)

// Query is a storage-level rendition of Criteria.
type Query struct {
	Filter bson.D
	Sort   bson.D
	Skip   int64
	Limit  int64
}

// Translate converts criteria into a filter, sort and pagination window.
// It is pure: equal criteria always produce equal queries.
func Translate(c Criteria) Query {
	c = c.Normalized()

	filter := bson.D{}
	if c.DealType != "" {
		filter = append(filter, bson.E{Key: "dealType", Value: string(c.DealType)})
	}
	if c.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: string(c.Category)})
	}
	if r := amountRange(c.MinPrice, c.MaxPrice); r != nil {
		filter = append(filter, bson.E{Key: "price", Value: r})
	}
	if r := amountRange(c.MinArea, c.MaxArea); r != nil {
		filter = append(filter, bson.E{Key: "area", Value: r})
	}
	if c.Rooms != nil {
		if c.Rooms.AtLeast {
			filter = append(filter, bson.E{Key: "rooms", Value: bson.D{{Key: "$gte", Value: c.Rooms.Count}}})
		} else {
			filter = append(filter, bson.E{Key: "rooms", Value: c.Rooms.Count})
		}
	}
	if c.City != "" {
		filter = append(filter, bson.E{Key: "address.city", Value: contains(c.City)})
	}
	if c.District != "" {
		filter = append(filter, bson.E{Key: "address.district", Value: contains(c.District)})
	}
	if c.Metro != "" {
		filter = append(filter, bson.E{Key: "address.metro", Value: contains(c.Metro)})
	}
	if len(c.Features) > 0 {
		filter = append(filter, bson.E{Key: "features", Value: bson.D{{Key: "$all", Value: c.Features}}})
	}
	filter = append(filter, floorClauses(c)...)
	if r := countRange(c.YearFrom, c.YearTo); r != nil {
		filter = append(filter, bson.E{Key: "yearBuilt", Value: r})
	}
	if c.Search != "" {
		re := contains(c.Search)
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: re}},
			bson.D{{Key: "description", Value: re}},
			bson.D{{Key: "address.street", Value: re}},
			bson.D{{Key: "address.city", Value: re}},
			bson.D{{Key: "address.district", Value: re}},
			bson.D{{Key: "address.metro", Value: re}},
		}})
	}
	filter = ActiveOnly(filter)

	field, dir := c.Sort.Field()
	return Query{
		Filter: filter,
		Sort:   bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}},
		Skip:   int64(c.Page-1) * int64(c.Limit),
		Limit:  int64(c.Limit),
	}
}

// ActiveOnly appends the mandatory status clause to filter.
func ActiveOnly(filter bson.D) bson.D {
	return append(filter, bson.E{Key: "status", Value: string(models.StatusActive)})
}

// TotalPages is ceil(totalItems / limit); zero items means zero pages.
func TotalPages(totalItems int64, limit int) int {
	if totalItems <= 0 || limit <= 0 {
		return 0
	}
	return int((totalItems + int64(limit) - 1) / int64(limit))
}

// floorClauses only match listings that carry floor data.
func floorClauses(c Criteria) bson.D {
	if c.MinFloor == nil && c.MaxFloor == nil && !c.NotFirstFloor && !c.NotLastFloor {
		return nil
	}
	floor := bson.D{{Key: "$type", Value: "number"}}
	if c.MinFloor != nil {
		floor = append(floor, bson.E{Key: "$gte", Value: *c.MinFloor})
	}
	if c.MaxFloor != nil {
		floor = append(floor, bson.E{Key: "$lte", Value: *c.MaxFloor})
	}
	if c.NotFirstFloor {
		floor = append(floor, bson.E{Key: "$gt", Value: 1})
	}
	out := bson.D{{Key: "floor", Value: floor}}
	if c.NotLastFloor {
		out = append(out, bson.E{Key: "totalFloors", Value: bson.D{{Key: "$type", Value: "number"}}})
		out = append(out, bson.E{Key: "$expr", Value: bson.D{{Key: "$lt", Value: bson.A{"$floor", "$totalFloors"}}}})
	}
	return out
}

func amountRange(lo, hi *float64) bson.D {
	if lo == nil && hi == nil {
		return nil
	}
	r := bson.D{}
	if lo != nil {
		r = append(r, bson.E{Key: "$gte", Value: *lo})
	}
	if hi != nil {
		r = append(r, bson.E{Key: "$lte", Value: *hi})
	}
	return r
}

func countRange(lo, hi *int) bson.D {
	if lo == nil && hi == nil {
		return nil
	}
	r := bson.D{}
	if lo != nil {
		r = append(r, bson.E{Key: "$gte", Value: *lo})
	}
	if hi != nil {
		r = append(r, bson.E{Key: "$lte", Value: *hi})
	}
	return r
}

// contains matches s anywhere in the field, ignoring case. s is matched literally.
func contains(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}
