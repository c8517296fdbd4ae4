package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ListingInput is the client-writable part of a Listing.
type ListingInput struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Price       float64      `json:"price"`
	DealType    DealType     `json:"dealType"`
	Category    Category     `json:"category"`
	Area        float64      `json:"area"`
	Rooms       int          `json:"rooms"`
	Floor       *int         `json:"floor,omitempty"`
	TotalFloors *int         `json:"totalFloors,omitempty"`
	YearBuilt   *int         `json:"yearBuilt,omitempty"`
	Address     Address      `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Features    []string     `json:"features"`
	Images      []string     `json:"images"`
	Contact     Contact      `json:"contact"`
	Status      Status       `json:"status,omitempty"`
}

// InputFromListing extracts the writable fields of l.
func InputFromListing(l *Listing) ListingInput {
	return ListingInput{
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		DealType:    l.DealType,
		Category:    l.Category,
		Area:        l.Area,
		Rooms:       l.Rooms,
		Floor:       l.Floor,
		TotalFloors: l.TotalFloors,
		YearBuilt:   l.YearBuilt,
		Address:     l.Address,
		Coordinates: l.Coordinates,
		Features:    l.Features,
		Images:      l.Images,
		Contact:     l.Contact,
		Status:      l.Status,
	}
}

// ApplyTo copies the input onto l and refreshes derived fields.
// Identity and timestamps are left to the caller.
func (in ListingInput) ApplyTo(l *Listing) {
	l.Title = strings.TrimSpace(in.Title)
	l.Description = in.Description
	l.Price = in.Price
	l.DealType = in.DealType
	l.Category = in.Category
	l.Area = in.Area
	l.Rooms = in.Rooms
	l.Floor = in.Floor
	l.TotalFloors = in.TotalFloors
	l.YearBuilt = in.YearBuilt
	l.Address = in.Address
	l.Coordinates = in.Coordinates
	l.Features = normalizeTags(in.Features)
	l.Images = in.Images
	if l.Images == nil {
		l.Images = []string{}
	}
	l.Contact = in.Contact
	l.Status = in.Status
	if l.Status == "" {
		l.Status = StatusActive
	}
	l.PricePerMeter = 0
	if l.Area > 0 {
		l.PricePerMeter = l.Price / l.Area
	}
}

// Validate checks the invariants the schema cannot express.
func (in ListingInput) Validate() error {
	if in.Floor != nil && in.TotalFloors != nil && *in.Floor > *in.TotalFloors {
		return &ValidationError{Field: "floor", Message: "must not exceed totalFloors"}
	}
	return nil
}

// ParseListingInput validates a complete payload (create or full replace).
func ParseListingInput(raw []byte) (ListingInput, error) {
	var in ListingInput
	if err := validateRaw(fullSchema, raw); err != nil {
		return in, err
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, &ValidationError{Message: err.Error()}
	}
	return in, in.Validate()
}

// PatchListingInput overlays a partial payload onto base. Only keys present
// in raw change; a JSON null clears an optional field.
func PatchListingInput(base ListingInput, raw []byte) (ListingInput, error) {
	if err := validateRaw(patchSchema, raw); err != nil {
		return base, err
	}
	// json.Unmarshal writes through non-nil pointers and reuses slice
	// backing arrays, so detach them from base.
	patched := base
	patched.Features = slices.Clone(base.Features)
	patched.Images = slices.Clone(base.Images)
	patched.Floor = cloneInt(base.Floor)
	patched.TotalFloors = cloneInt(base.TotalFloors)
	patched.YearBuilt = cloneInt(base.YearBuilt)
	if base.Coordinates != nil {
		c := *base.Coordinates
		patched.Coordinates = &c
	}
	if err := json.Unmarshal(raw, &patched); err != nil {
		return base, &ValidationError{Message: err.Error()}
	}
	if err := validateStruct(patched); err != nil {
		return base, err
	}
	return patched, patched.Validate()
}

// validateStruct re-checks a merged input against the full schema.
func validateStruct(in ListingInput) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal listing input: %w", err)
	}
	return validateRaw(fullSchema, raw)
}

func validateRaw(schema *jsonschema.Schema, raw []byte) error {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return &ValidationError{Message: "malformed JSON"}
	}
	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return fromSchemaError(verr)
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// fromSchemaError reports the first leaf failure, which names the field.
func fromSchemaError(verr *jsonschema.ValidationError) *ValidationError {
	leaf := verr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	field := strings.TrimPrefix(leaf.InstanceLocation, "/")
	field = strings.ReplaceAll(field, "/", ".")
	return &ValidationError{Field: field, Message: leaf.Message}
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
