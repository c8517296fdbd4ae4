package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPayload = `{
  "title": "2-комнатная квартира у парка",
  "description": "Светлая квартира с ремонтом",
  "price": 55000,
  "dealType": "rent",
  "category": "apartment",
  "area": 54.5,
  "rooms": 2,
  "floor": 4,
  "totalFloors": 9,
  "address": {"city": "Москва", "district": "Хамовники", "metro": "Спортивная"},
  "features": ["parking", "balcony", "parking", " "],
  "contact": {"name": "Ирина", "phone": "+7 900 000-00-00", "email": "irina@example.com"}
}`

func TestParseListingInput_Valid(t *testing.T) {
	in, err := ParseListingInput([]byte(validPayload))
	require.NoError(t, err)
	assert.Equal(t, DealRent, in.DealType)
	assert.Equal(t, 4, *in.Floor)

	var l Listing
	in.ApplyTo(&l)
	assert.Equal(t, StatusActive, l.Status)
	assert.Equal(t, []string{"balcony", "parking"}, l.Features)
	assert.Equal(t, []string{}, l.Images)
	assert.InDelta(t, 55000/54.5, l.PricePerMeter, 1e-9)
}

func TestParseListingInput_Rejects(t *testing.T) {
	cases := map[string]struct {
		payload string
		field   string
	}{
		"missing title":   {`{"description":"d","price":1,"dealType":"sale","category":"land","area":1,"rooms":0,"contact":{"name":"a","phone":"1"}}`, ""},
		"zero price":      {`{"title":"t","description":"d","price":0,"dealType":"sale","category":"land","area":1,"rooms":0,"contact":{"name":"a","phone":"1"}}`, "price"},
		"bad deal type":   {`{"title":"t","description":"d","price":1,"dealType":"swap","category":"land","area":1,"rooms":0,"contact":{"name":"a","phone":"1"}}`, "dealType"},
		"fractional room": {`{"title":"t","description":"d","price":1,"dealType":"sale","category":"land","area":1,"rooms":1.5,"contact":{"name":"a","phone":"1"}}`, "rooms"},
		"unknown key":     {`{"title":"t","description":"d","price":1,"dealType":"sale","category":"land","area":1,"rooms":0,"contact":{"name":"a","phone":"1"},"owner":"x"}`, ""},
		"bad email":       {`{"title":"t","description":"d","price":1,"dealType":"sale","category":"land","area":1,"rooms":0,"contact":{"name":"a","phone":"1","email":"nope"}}`, "contact.email"},
		"floor too high":  {`{"title":"t","description":"d","price":1,"dealType":"sale","category":"apartment","area":1,"rooms":0,"floor":10,"totalFloors":5,"contact":{"name":"a","phone":"1"}}`, "floor"},
		"not json":        {`{"title":`, ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseListingInput([]byte(tc.payload))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestPatchListingInput_OverlaysPresentKeys(t *testing.T) {
	base, err := ParseListingInput([]byte(validPayload))
	require.NoError(t, err)

	patched, err := PatchListingInput(base, []byte(`{"price": 60000, "address": {"metro": "Фрунзенская"}, "floor": null, "status": "rented"}`))
	require.NoError(t, err)

	assert.Equal(t, 60000.0, patched.Price)
	assert.Equal(t, "Фрунзенская", patched.Address.Metro)
	assert.Equal(t, "Москва", patched.Address.City)
	assert.Nil(t, patched.Floor)
	assert.Equal(t, StatusRented, patched.Status)
	assert.Equal(t, base.Title, patched.Title)
}

func TestPatchListingInput_ChecksMergedInvariants(t *testing.T) {
	base, err := ParseListingInput([]byte(validPayload))
	require.NoError(t, err)

	_, err = PatchListingInput(base, []byte(`{"floor": 12}`))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "floor", verr.Field)
	assert.Equal(t, 4, *base.Floor)

	_, err = PatchListingInput(base, []byte(`{"title": ""}`))
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "title", verr.Field)
}

func TestParseListingInput_DecodesDocumentForSchema(t *testing.T) {
	payload := strings.Replace(validPayload, `"price": 55000`, `"price": 125000000`, 1)
	in, err := ParseListingInput([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 125000000.0, in.Price)
	assert.Equal(t, 2, in.Rooms)

	_, err = ParseListingInput([]byte(`[1, 2`))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "malformed JSON", verr.Message)
}

func TestPatchListingInput_LeavesBaseSlicesAlone(t *testing.T) {
	base, err := ParseListingInput([]byte(validPayload))
	require.NoError(t, err)
	base.Images = []string{"listings/a/1.jpg", "listings/a/2.jpg"}
	features := append([]string(nil), base.Features...)
	images := append([]string(nil), base.Images...)

	patched, err := PatchListingInput(base, []byte(`{"features": ["lift"], "images": ["listings/b/9.jpg"]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"lift"}, patched.Features)
	assert.Equal(t, []string{"listings/b/9.jpg"}, patched.Images)
	assert.Equal(t, features, base.Features)
	assert.Equal(t, images, base.Images)
}
