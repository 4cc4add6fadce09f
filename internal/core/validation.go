package core

// validation.go checks parsed tables against per-slot schemas.
//
// Only header presence is validated: every required column name must appear
// in the table's headers (case-sensitive, exact match). All missing names are
// reported together so the caller can render one complete message.

import "fmt"

// Schema is the set of required header names for one slot.
type Schema struct {
	Required []string
}

// SchemaSet holds the schema for each slot.
type SchemaSet struct {
	Operational Schema
	Base        Schema
}

// For returns the schema for slot.
func (s SchemaSet) For(slot Slot) Schema {
	if slot == SlotBase {
		return s.Base
	}
	return s.Operational
}

// MissingColumns returns the required names absent from headers, in schema order.
func (s Schema) MissingColumns(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	var missing []string
	seen := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		if present[name] || seen[name] {
			continue
		}
		seen[name] = true
		missing = append(missing, name)
	}
	return missing
}

// ValidateHeaders returns a KindMissingColumns error listing every missing
// required column for slot, or nil.
func ValidateHeaders(slot Slot, headers []string, schema Schema) error {
	missing := schema.MissingColumns(headers)
	if len(missing) == 0 {
		return nil
	}
	return &IngestionError{Kind: KindMissingColumns, Slot: slot, Missing: missing}
}

// Validate checks that no slot has an empty required column name.
func (s SchemaSet) Validate() error {
	for _, slot := range Slots {
		for i, name := range s.For(slot).Required {
			if name == "" {
				return fmt.Errorf("%s schema: required column %d is empty", slot, i)
			}
		}
	}
	return nil
}
