package core

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSchema_MissingColumns(t *testing.T) {
	schema := Schema{Required: []string{"route_id", "stop_id", "arrival_time"}}

	tests := []struct {
		name    string
		headers []string
		want    []string
	}{
		{name: "all present", headers: []string{"route_id", "stop_id", "arrival_time"}, want: nil},
		{name: "extra columns allowed", headers: []string{"x", "arrival_time", "stop_id", "route_id"}, want: nil},
		{name: "one missing", headers: []string{"route_id", "arrival_time"}, want: []string{"stop_id"}},
		{name: "all missing in schema order", headers: nil, want: []string{"route_id", "stop_id", "arrival_time"}},
		{name: "case sensitive", headers: []string{"Route_ID", "stop_id", "arrival_time"}, want: []string{"route_id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := schema.MissingColumns(tt.headers)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("MissingColumns() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSchema_DuplicateRequiredReportedOnce(t *testing.T) {
	schema := Schema{Required: []string{"a", "a", "b"}}

	got := schema.MissingColumns([]string{"b"})

	if diff := cmp.Diff([]string{"a"}, got); diff != "" {
		t.Errorf("MissingColumns() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateHeaders(t *testing.T) {
	err := ValidateHeaders(SlotBase, []string{"depot_id"}, Schema{Required: []string{"depot_id", "vehicle_id"}})

	var ie *IngestionError
	if !errors.As(err, &ie) {
		t.Fatalf("error = %v, want *IngestionError", err)
	}
	if ie.Slot != SlotBase || ie.Kind != KindMissingColumns {
		t.Errorf("got slot %q kind %v", ie.Slot, ie.Kind)
	}

	if err := ValidateHeaders(SlotBase, []string{"depot_id"}, Schema{}); err != nil {
		t.Errorf("empty schema: error = %v, want nil", err)
	}
}

func TestSchemaSet(t *testing.T) {
	set := SchemaSet{
		Operational: Schema{Required: []string{"route_id"}},
		Base:        Schema{Required: []string{"depot_id"}},
	}

	if got := set.For(SlotBase).Required[0]; got != "depot_id" {
		t.Errorf("For(base) = %q, want depot_id", got)
	}
	if got := set.For(SlotOperational).Required[0]; got != "route_id" {
		t.Errorf("For(operational) = %q, want route_id", got)
	}
	if err := set.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	set.Base.Required = append(set.Base.Required, "")
	if err := set.Validate(); err == nil {
		t.Error("Validate() accepted an empty column name")
	}
}

func TestParseSlot(t *testing.T) {
	tests := []struct {
		in      string
		want    Slot
		wantErr bool
	}{
		{in: "operational", want: SlotOperational},
		{in: " Base ", want: SlotBase},
		{in: "depot", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSlot(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSlot(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSlot(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if err != nil && !errors.Is(err, ErrUnknownSlot) {
			t.Errorf("ParseSlot(%q) error = %v, want ErrUnknownSlot", tt.in, err)
		}
	}
}
