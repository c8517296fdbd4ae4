package models

import (
	"log"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Compiled once at startup; a broken schema is a programming error.
var (
	fullSchema  = mustCompile("listing.json", listingSchema(true))
	patchSchema = mustCompile("listing-patch.json", listingSchema(false))
)

func mustCompile(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		log.Fatalf("failed to add schema resource %s: %v", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		log.Fatalf("failed to compile schema %s: %v", name, err)
	}
	return schema
}

func listingSchema(full bool) string {
	required := `[]`
	if full {
		required = `["title", "description", "price", "dealType", "category", "area", "rooms", "contact"]`
	}
	return `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "required": ` + required + `,
  "properties": {
    "title":       {"type": "string", "minLength": 1, "pattern": "\\S"},
    "description": {"type": "string", "minLength": 1},
    "price":       {"type": "number", "exclusiveMinimum": 0},
    "dealType":    {"enum": ["sale", "rent"]},
    "category":    {"enum": ["apartment", "house", "commercial", "land"]},
    "area":        {"type": "number", "exclusiveMinimum": 0},
    "rooms":       {"type": "integer", "minimum": 0},
    "floor":       {"type": ["integer", "null"], "minimum": 0},
    "totalFloors": {"type": ["integer", "null"], "minimum": 0},
    "yearBuilt":   {"type": ["integer", "null"], "minimum": 1000, "maximum": 3000},
    "address": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "street":   {"type": "string"},
        "city":     {"type": "string"},
        "district": {"type": "string"},
        "metro":    {"type": "string"}
      }
    },
    "coordinates": {
      "type": ["object", "null"],
      "required": ["lat", "lng"],
      "properties": {
        "lat": {"type": "number", "minimum": -90, "maximum": 90},
        "lng": {"type": "number", "minimum": -180, "maximum": 180}
      }
    },
    "features": {"type": ["array", "null"], "items": {"type": "string"}},
    "images":   {"type": ["array", "null"], "items": {"type": "string"}},
    "contact": {
      "type": "object",
      "required": ["name", "phone"],
      "properties": {
        "name":  {"type": "string", "minLength": 1},
        "phone": {"type": "string", "minLength": 1},
        "email": {"type": "string", "format": "email"}
      }
    },
    "status": {"enum": ["active", "sold", "rented", "inactive", ""]}
  }
}`
}
