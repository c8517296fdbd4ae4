package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DealType is the kind of transaction a listing is offered for.
type DealType string

const (
	DealSale DealType = "sale"
	DealRent DealType = "rent"
)

// Valid reports whether t is a recognised deal type.
func (t DealType) Valid() bool {
	return t == DealSale || t == DealRent
}

// Category is the property type of a listing.
type Category string

const (
	CategoryApartment  Category = "apartment"
	CategoryHouse      Category = "house"
	CategoryCommercial Category = "commercial"
	CategoryLand       Category = "land"
)

// Valid reports whether c is a recognised category.
func (c Category) Valid() bool {
	switch c {
	case CategoryApartment, CategoryHouse, CategoryCommercial, CategoryLand:
		return true
	}
	return false
}

// Status is the publication state of a listing. Transitions are unconstrained.
type Status string

const (
	StatusActive   Status = "active"
	StatusSold     Status = "sold"
	StatusRented   Status = "rented"
	StatusInactive Status = "inactive"
)

// Address is free text; every part is optional.
type Address struct {
	Street   string `bson:"street,omitempty" json:"street,omitempty"`
	City     string `bson:"city,omitempty" json:"city,omitempty"`
	District string `bson:"district,omitempty" json:"district,omitempty"`
	Metro    string `bson:"metro,omitempty" json:"metro,omitempty"`
}

type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

type Contact struct {
	Name  string `bson:"name" json:"name"`
	Phone string `bson:"phone" json:"phone"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
}

// Listing is a property offered for sale or rent.
type Listing struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Price       float64            `bson:"price" json:"price"`
	DealType    DealType           `bson:"dealType" json:"dealType"`
	Category    Category           `bson:"category" json:"category"`
	Area        float64            `bson:"area" json:"area"` // square meters
	Rooms       int                `bson:"rooms" json:"rooms"`
	Floor       *int               `bson:"floor,omitempty" json:"floor,omitempty"`
	TotalFloors *int               `bson:"totalFloors,omitempty" json:"totalFloors,omitempty"`
	YearBuilt   *int               `bson:"yearBuilt,omitempty" json:"yearBuilt,omitempty"`
	Address     Address            `bson:"address" json:"address"`
	Coordinates *Coordinates       `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	Features    []string           `bson:"features" json:"features"`
	Images      []string           `bson:"images" json:"images"` // storage-relative keys
	Contact     Contact            `bson:"contact" json:"contact"`
	Status      Status             `bson:"status" json:"status"`
	// Derived from Price and Area on every write; backs the pricePerMeter sort.
	PricePerMeter float64   `bson:"pricePerMeter" json:"pricePerMeter"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
}

// ListingPage is one page of search results.
type ListingPage struct {
	Items      []Listing  `json:"items"`
	Pagination Pagination `json:"pagination"`
}
