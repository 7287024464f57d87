package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// SpecValue is one specification field. The backend is loose about types
// ("cores": 8 next to "ram": "16GB"), so numbers and booleans are kept as
// their JSON text and null reads as absent.
type SpecValue string

func (v *SpecValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*v = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = SpecValue(s)
	case data[0] == '{', data[0] == '[':
		// nested values have no single-line rendering
		*v = ""
	default:
		*v = SpecValue(data)
	}
	return nil
}

func (v SpecValue) String() string { return string(v) }

type Product struct {
	ID          string              `json:"_id"`
	Name        string              `json:"name"`
	Price       decimal.NullDecimal `json:"price"`
	Images      []string            `json:"images"`
	Description string              `json:"description,omitempty"`

	Screen           SpecValue `json:"screen,omitempty"`
	ScreenResolution SpecValue `json:"screen_resolution,omitempty"`
	ColorCoverage    SpecValue `json:"color_coverage,omitempty"`
	CPU              SpecValue `json:"cpu,omitempty"`
	CPUSpeed         SpecValue `json:"cpu_speed,omitempty"`
	MaxSpeed         SpecValue `json:"max_speed,omitempty"`
	Cores            SpecValue `json:"cores,omitempty"`
	Threads          SpecValue `json:"threads,omitempty"`
	GPU              SpecValue `json:"gpu,omitempty"`
	RAM              SpecValue `json:"ram,omitempty"`
	RAMType          SpecValue `json:"ram_type,omitempty"`
	BusRAM           SpecValue `json:"bus_ram,omitempty"`
	RAMMax           SpecValue `json:"ram_max,omitempty"`
	Storage          SpecValue `json:"storage,omitempty"`
	Camera           SpecValue `json:"camera,omitempty"`
	Battery          SpecValue `json:"pin,omitempty"`
	MaxCharging      SpecValue `json:"max_charging,omitempty"`
	OperatingSystem  SpecValue `json:"operating_system,omitempty"`
}

type SpecRow struct {
	Label string
	Value string
}

// SpecRows lists the populated specification fields in display order.
// Laptops and phones fill different subsets, so absent fields are skipped.
func (p Product) SpecRows() []SpecRow {
	all := []SpecRow{
		{"Screen", string(p.Screen)},
		{"Resolution", string(p.ScreenResolution)},
		{"Color coverage", string(p.ColorCoverage)},
		{"CPU", string(p.CPU)},
		{"CPU speed", string(p.CPUSpeed)},
		{"Max CPU speed", string(p.MaxSpeed)},
		{"Cores", string(p.Cores)},
		{"Threads", string(p.Threads)},
		{"GPU", string(p.GPU)},
		{"RAM", string(p.RAM)},
		{"RAM type", string(p.RAMType)},
		{"RAM bus", string(p.BusRAM)},
		{"Max RAM", string(p.RAMMax)},
		{"Storage", string(p.Storage)},
		{"Camera", string(p.Camera)},
		{"Battery", string(p.Battery)},
		{"Charging", string(p.MaxCharging)},
		{"Operating system", string(p.OperatingSystem)},
	}
	rows := make([]SpecRow, 0, len(all))
	for _, r := range all {
		if strings.TrimSpace(r.Value) != "" {
			rows = append(rows, r)
		}
	}
	return rows
}

// HasKeySpecs reports whether any headline spec is present.
func (p Product) HasKeySpecs() bool {
	for _, v := range []SpecValue{p.Screen, p.CPU, p.RAM, p.Storage, p.Camera, p.Battery, p.OperatingSystem} {
		if strings.TrimSpace(string(v)) != "" {
			return true
		}
	}
	return false
}

// Thumbnail is the first image, or "" when the product has none.
func (p Product) Thumbnail() string {
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return ""
}
