package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestServiceTypeJSON(t *testing.T) {
	b, err := json.Marshal(RoofingWork)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"RoofingWork"` {
		t.Fatalf("unexpected json %s", b)
	}

	cases := map[string]ServiceType{
		`"roofingwork"`:     RoofingWork,
		`"ElectricalWiring"`: ElectricalWiring,
		`3`:                  ElectricalWiring,
		`"0"`:                ExcavationWork,
	}
	for in, want := range cases {
		var got ServiceType
		if err := json.Unmarshal([]byte(in), &got); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if got != want {
			t.Fatalf("unmarshal %s: expected %v, got %v", in, want, got)
		}
	}
}

func TestEnumUnknownValues(t *testing.T) {
	var s ServiceType
	if err := json.Unmarshal([]byte(`"Gardening"`), &s); err == nil {
		t.Fatal("expected error for unknown name")
	}
	if err := json.Unmarshal([]byte(`42`), &s); err != nil {
		t.Fatalf("unknown number should decode: %v", err)
	}
	if s.IsValid() {
		t.Fatal("42 must not be a defined service type")
	}

	var m MaterialType
	if err := json.Unmarshal([]byte(`"steel"`), &m); err != nil || m != Steel {
		t.Fatalf("expected Steel, got %v (%v)", m, err)
	}
	b, _ := json.Marshal(MaterialType(-1))
	if string(b) != "-1" {
		t.Fatalf("undefined value should marshal as number, got %s", b)
	}
}

func TestTrackedStamps(t *testing.T) {
	var tr Tracked
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tr.SetCreationData("alice", now)
	if tr.CreatedBy != "alice" || tr.UpdatedBy != "alice" || !tr.UpdatedOn.Equal(now) {
		t.Fatalf("creation must stamp both pairs: %+v", tr)
	}
	later := now.Add(time.Hour)
	tr.SetUpdateData("bob", later)
	if tr.CreatedBy != "alice" || tr.UpdatedBy != "bob" || !tr.UpdatedOn.Equal(later) {
		t.Fatalf("update must only touch the update pair: %+v", tr)
	}
}

func TestCanonicalRole(t *testing.T) {
	if r, ok := CanonicalRole("technician"); !ok || r != RoleTechnician {
		t.Fatalf("expected Technician, got %q %v", r, ok)
	}
	if _, ok := CanonicalRole("Owner"); ok {
		t.Fatal("Owner is not a role")
	}
}
