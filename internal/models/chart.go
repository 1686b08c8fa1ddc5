package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ChartKind is the visual type of a chart widget.
type ChartKind string

const (
	ChartBar     ChartKind = "bar"
	ChartLine    ChartKind = "line"
	ChartPie     ChartKind = "pie"
	ChartScatter ChartKind = "scatter"
	ChartArea    ChartKind = "area"
	ChartHeatmap ChartKind = "heatmap"
	ChartTable   ChartKind = "table"
)

// ChartKinds lists every chart kind in display order.
var ChartKinds = []ChartKind{ChartBar, ChartLine, ChartPie, ChartScatter, ChartArea, ChartHeatmap, ChartTable}

// Valid reports whether k is a known chart kind.
func (k ChartKind) Valid() bool {
	for _, known := range ChartKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Label returns the capitalised kind, e.g. "Bar".
func (k ChartKind) Label() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Position is a chart's placement on the dashboard grid, in grid cells.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// DefaultPosition is where new charts are placed.
var DefaultPosition = Position{X: 0, Y: 0, W: 6, H: 4}

// Validate validates the position.
func (p Position) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.X, validation.Min(0)),
		validation.Field(&p.Y, validation.Min(0)),
		validation.Field(&p.W, validation.Min(0)),
		validation.Field(&p.H, validation.Min(0)),
	)
}

// YAxis is the optional y-axis binding: no columns, one column, or an
// ordered list. One column encodes as a JSON string, several as an array.
type YAxis []string

// First returns the first bound column, or "".
func (y YAxis) First() string {
	if len(y) == 0 {
		return ""
	}
	return y[0]
}

func (y YAxis) MarshalJSON() ([]byte, error) {
	switch len(y) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(y[0])
	default:
		return json.Marshal([]string(y))
	}
}

func (y *YAxis) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*y = nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		if s == "" {
			*y = nil
		} else {
			*y = YAxis{s}
		}
	default:
		var cols []string
		if err := json.Unmarshal(trimmed, &cols); err != nil {
			return fmt.Errorf("yAxis: want string or array of strings: %w", err)
		}
		*y = YAxis(cols)
	}
	return nil
}

// ChartConfig is a single chart widget on a dashboard. DataSourceID is a
// weak reference: the source may have been removed since.
type ChartConfig struct {
	ID           string         `json:"id"`
	Kind         ChartKind      `json:"type"`
	Title        string         `json:"title"`
	DataSourceID string         `json:"dataSourceId"`
	XAxis        string         `json:"xAxis,omitempty"`
	YAxis        YAxis          `json:"yAxis,omitempty"`
	Color        string         `json:"color,omitempty"`
	Position     Position       `json:"position"`
	Options      map[string]any `json:"options"`
}

// Validate validates the chart configuration.
func (c *ChartConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.Kind, validation.Required, validation.By(func(any) error {
			if !c.Kind.Valid() {
				return fmt.Errorf("unknown chart type %q", c.Kind)
			}
			return nil
		})),
		validation.Field(&c.Position),
	)
}

// Clone returns a copy of c that shares nothing mutable with it.
func (c ChartConfig) Clone() ChartConfig {
	if c.YAxis != nil {
		c.YAxis = append(YAxis(nil), c.YAxis...)
	}
	if c.Options != nil {
		opts := make(map[string]any, len(c.Options))
		for k, v := range c.Options {
			opts[k] = v
		}
		c.Options = opts
	}
	return c
}

// ChartPatch is a partial chart update; nil fields are left unchanged.
type ChartPatch struct {
	Kind         *ChartKind     `json:"type,omitempty"`
	Title        *string        `json:"title,omitempty"`
	DataSourceID *string        `json:"dataSourceId,omitempty"`
	XAxis        *string        `json:"xAxis,omitempty"`
	YAxis        *YAxis         `json:"yAxis,omitempty"`
	Color        *string        `json:"color,omitempty"`
	Position     *Position      `json:"position,omitempty"`
	Options      map[string]any `json:"options,omitempty"`
}

// Validate validates the patch fields that are set.
func (p *ChartPatch) Validate() error {
	if p.Kind != nil && !p.Kind.Valid() {
		return fmt.Errorf("type: unknown chart type %q", *p.Kind)
	}
	if p.Position != nil {
		if err := p.Position.Validate(); err != nil {
			return fmt.Errorf("position: %w", err)
		}
	}
	return nil
}

// Apply returns a copy of c with the patch applied.
func (c ChartConfig) Apply(p ChartPatch) ChartConfig {
	c = c.Clone()
	if p.Kind != nil {
		c.Kind = *p.Kind
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.DataSourceID != nil {
		c.DataSourceID = *p.DataSourceID
	}
	if p.XAxis != nil {
		c.XAxis = *p.XAxis
	}
	if p.YAxis != nil {
		c.YAxis = append(YAxis(nil), (*p.YAxis)...)
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Position != nil {
		c.Position = *p.Position
	}
	if p.Options != nil {
		opts := make(map[string]any, len(p.Options))
		for k, v := range p.Options {
			opts[k] = v
		}
		c.Options = opts
	}
	return c
}
