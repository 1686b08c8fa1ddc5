// Package export encodes dashboards as portable JSON documents.
package export

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/tidwall/gjson"

	"github.com/starford/dataforge/internal/apperr"
	"github.com/starford/dataforge/internal/models"
)

// Document is the export artifact.
type Document struct {
	Dashboard  models.Dashboard `json:"dashboard"`
	ExportedAt time.Time        `json:"exportedAt"`
}

// Encode returns d wrapped in a Document as indented JSON.
func Encode(d models.Dashboard, now time.Time) ([]byte, error) {
	if d.Charts == nil {
		d.Charts = []models.ChartConfig{}
	}
	data, err := json.MarshalIndent(Document{Dashboard: d, ExportedAt: now}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode dashboard %s: %w", d.ID, err)
	}
	return data, nil
}

// Decode reads a Document and returns its dashboard.
func Decode(data []byte) (models.Dashboard, error) {
	if !gjson.ValidBytes(data) {
		return models.Dashboard{}, fmt.Errorf("%w: malformed JSON", apperr.ErrParseFailure)
	}
	if !gjson.GetBytes(data, "dashboard").IsObject() {
		return models.Dashboard{}, fmt.Errorf("%w: missing dashboard object", apperr.ErrInvalidStructure)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.Dashboard{}, fmt.Errorf("%w: %v", apperr.ErrParseFailure, err)
	}
	d := doc.Dashboard
	if d.ID == "" {
		return models.Dashboard{}, fmt.Errorf("%w: dashboard has no id", apperr.ErrInvalidStructure)
	}
	if d.Charts == nil {
		d.Charts = []models.ChartConfig{}
	}
	for i := range d.Charts {
		if err := d.Charts[i].Validate(); err != nil {
			return models.Dashboard{}, fmt.Errorf("%w: chart %d: %v", apperr.ErrInvalidStructure, i, err)
		}
	}
	return d, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Filename is the download name for a dashboard export.
func Filename(name string) string {
	return whitespaceRun.ReplaceAllString(name, "_") + ".json"
}
