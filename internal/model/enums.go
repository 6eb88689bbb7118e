package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ServiceType enumerates the kinds of job an intervention covers.
type ServiceType int

const (
	ExcavationWork ServiceType = iota
	ConcretePouring
	FramingInstallation
	ElectricalWiring
	PlumbingInstallation
	RoofingWork
	InteriorFinishing
)

var serviceTypeNames = []string{
	"ExcavationWork",
	"ConcretePouring",
	"FramingInstallation",
	"ElectricalWiring",
	"PlumbingInstallation",
	"RoofingWork",
	"InteriorFinishing",
}

func (s ServiceType) IsValid() bool { return s >= 0 && int(s) < len(serviceTypeNames) }

func (s ServiceType) String() string {
	if !s.IsValid() {
		return strconv.Itoa(int(s))
	}
	return serviceTypeNames[s]
}

func (s ServiceType) MarshalJSON() ([]byte, error) {
	return marshalEnum(int(s), serviceTypeNames)
}

func (s *ServiceType) UnmarshalJSON(b []byte) error {
	v, err := unmarshalEnum(b, serviceTypeNames, "serviceType")
	if err != nil {
		return err
	}
	*s = ServiceType(v)
	return nil
}

// MaterialType enumerates the main material used by an intervention.
type MaterialType int

const (
	Concrete MaterialType = iota
	Steel
	Wood
	Brick
	Glass
	Plastic
	Copper
)

var materialTypeNames = []string{
	"Concrete",
	"Steel",
	"Wood",
	"Brick",
	"Glass",
	"Plastic",
	"Copper",
}

func (m MaterialType) IsValid() bool { return m >= 0 && int(m) < len(materialTypeNames) }

func (m MaterialType) String() string {
	if !m.IsValid() {
		return strconv.Itoa(int(m))
	}
	return materialTypeNames[m]
}

func (m MaterialType) MarshalJSON() ([]byte, error) {
	return marshalEnum(int(m), materialTypeNames)
}

func (m *MaterialType) UnmarshalJSON(b []byte) error {
	v, err := unmarshalEnum(b, materialTypeNames, "materialType")
	if err != nil {
		return err
	}
	*m = MaterialType(v)
	return nil
}

// Defined values are written by name, anything else as its number so that
// the value is still visible in error payloads.
func marshalEnum(v int, names []string) ([]byte, error) {
	if v >= 0 && v < len(names) {
		return json.Marshal(names[v])
	}
	return json.Marshal(v)
}

// unmarshalEnum accepts a name (case-insensitive) or a number.  Unknown
// numbers are kept so that validation can report them; unknown names are a
// decoding error.
func unmarshalEnum(b []byte, names []string, field string) (int, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, err
		}
		for i, n := range names {
			if strings.EqualFold(n, s) {
				return i, nil
			}
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
		return 0, fmt.Errorf("%s: unknown value %q", field, s)
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return n, nil
}
