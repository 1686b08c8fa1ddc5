package projection

import "github.com/starford/dataforge/internal/models"

const (
	borderColor = "#000"
	fontFamily  = "Space Grotesk"
)

func titleOption(text string) map[string]any {
	return map[string]any{
		"text":      text,
		"textStyle": map[string]any{"fontFamily": fontFamily, "fontSize": 18, "fontWeight": "bold"},
	}
}

func valueAxis() map[string]any {
	return map[string]any{
		"type":      "value",
		"axisLine":  map[string]any{"lineStyle": map[string]any{"width": 3, "color": borderColor}},
		"splitLine": map[string]any{"lineStyle": map[string]any{"width": 2, "color": borderColor, "type": "dashed"}},
	}
}

func categoryAxis(data []models.Value) map[string]any {
	return map[string]any{
		"type":     "category",
		"data":     data,
		"axisLine": map[string]any{"lineStyle": map[string]any{"width": 3, "color": borderColor}},
	}
}

func itemStyle(color string, border int) map[string]any {
	style := map[string]any{"borderColor": borderColor, "borderWidth": border}
	if color != "" {
		style["color"] = color
	}
	return style
}

// Option renders bar, line and area charts.
func (c *Cartesian) Option() map[string]any {
	series := make([]map[string]any, 0, len(c.Series))
	for _, s := range c.Series {
		entry := map[string]any{
			"name":      s.Name,
			"data":      s.Data,
			"itemStyle": itemStyle(c.Color, 3),
		}
		switch c.ChartKind {
		case models.ChartBar:
			entry["type"] = "bar"
		case models.ChartLine:
			entry["type"] = "line"
			entry["smooth"] = true
			entry["lineStyle"] = map[string]any{"width": 4, "color": c.Color}
		case models.ChartArea:
			entry["type"] = "line"
			entry["smooth"] = true
			entry["areaStyle"] = map[string]any{"color": c.Color, "opacity": 0.7}
			entry["lineStyle"] = map[string]any{"width": 4, "color": borderColor}
		}
		series = append(series, entry)
	}
	return map[string]any{
		"title":   titleOption(c.Title),
		"tooltip": map[string]any{"trigger": "axis"},
		"xAxis":   categoryAxis(c.Categories),
		"yAxis":   valueAxis(),
		"series":  series,
	}
}

func (s *Scatter) Option() map[string]any {
	series := make([]map[string]any, 0, len(s.Series))
	for _, ss := range s.Series {
		series = append(series, map[string]any{
			"type":       "scatter",
			"name":       ss.Name,
			"data":       ss.Points,
			"symbolSize": 12,
			"itemStyle":  itemStyle(s.Color, 2),
		})
	}
	return map[string]any{
		"title":   titleOption(s.Title),
		"tooltip": map[string]any{"trigger": "item"},
		"xAxis":   valueAxis(),
		"yAxis":   valueAxis(),
		"series":  series,
	}
}

func (p *Pie) Option() map[string]any {
	return map[string]any{
		"title":   titleOption(p.Title),
		"tooltip": map[string]any{"trigger": "item"},
		"series": []map[string]any{{
			"type":      "pie",
			"radius":    "70%",
			"data":      p.Slices,
			"itemStyle": itemStyle("", 3),
			"label":     map[string]any{"fontFamily": fontFamily, "fontWeight": "bold"},
		}},
	}
}

func (h *Heatmap) Option() map[string]any {
	data := make([][3]float64, len(h.Cells))
	for i, c := range h.Cells {
		data[i] = [3]float64{float64(c.X), float64(c.Y), c.Value}
	}
	return map[string]any{
		"title":   titleOption(h.Title),
		"tooltip": map[string]any{"position": "top"},
		"xAxis":   categoryAxis(h.XCategories),
		"yAxis":   categoryAxis(h.YCategories),
		"visualMap": map[string]any{
			"min":     0,
			"max":     h.Max,
			"inRange": map[string]any{"color": []string{"#FFFFFF", h.Color}},
		},
		"series": []map[string]any{{
			"type":      "heatmap",
			"data":      data,
			"itemStyle": itemStyle("", 2),
		}},
	}
}
