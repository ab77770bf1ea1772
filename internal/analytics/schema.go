// internal/analytics/schema.go
package analytics

import (
	"strconv"
	"strings"

	"github.com/xkilldash9x/wanderer/api/schemas"
	"github.com/xkilldash9x/wanderer/internal/config"
)

// Schema names the event properties that describe a recorded interaction.
// When ReproductiveKey names a nested object in the properties, dimension,
// scroll and mouse values are read from that object instead; time, page and
// query always come from the top level.
type Schema struct {
	ReproductiveKey  string
	DimensionKey     string
	ScrollTopKey     string
	MousePositionKey string
	TimeKey          string
	PageKey          string
	QueryKey         string
}

func SchemaFromConfig(c config.SchemaConfig) Schema {
	return Schema(c)
}

func (s Schema) Validate() error {
	if s == (Schema{}) {
		return &ValidationError{Field: "schema", Reason: "at least one key must be set"}
	}
	return nil
}

// Project reduces events to replay steps, one per event, in order.
func (s Schema) Project(events *Events) []schemas.ReplayStep {
	steps := make([]schemas.ReplayStep, 0, events.Len())
	for ev := range events.All() {
		steps = append(steps, s.step(ev))
	}
	return steps
}

func (s Schema) step(ev Event) schemas.ReplayStep {
	props := ev.Properties
	source := props
	if s.ReproductiveKey != "" {
		if nested, ok := props[s.ReproductiveKey].(map[string]any); ok {
			source = nested
		}
	}

	step := schemas.ReplayStep{Name: ev.Name, Time: ev.Time}
	if s.TimeKey != "" {
		if t := timestampValue(props[s.TimeKey]); !t.IsZero() {
			step.Time = t
		}
	}
	if s.PageKey != "" {
		step.Page, _ = props[s.PageKey].(string)
	}
	if s.QueryKey != "" && step.Page != "" {
		if q, ok := props[s.QueryKey].(string); ok {
			step.Page = appendQuery(step.Page, q)
		}
	}
	if s.DimensionKey != "" {
		if w, h, ok := pairValue(source[s.DimensionKey], "width", "height"); ok && w > 0 && h > 0 {
			step.Dimension = &schemas.Viewport{Width: int64(w), Height: int64(h)}
		}
	}
	if s.ScrollTopKey != "" {
		if y, ok := numberValue(source[s.ScrollTopKey]); ok {
			step.ScrollTop = &y
		}
	}
	if s.MousePositionKey != "" {
		if x, y, ok := pairValue(source[s.MousePositionKey], "x", "y"); ok {
			step.MousePosition = &schemas.Point{X: x, Y: y}
		}
	}
	return step
}

// appendQuery joins a recorded query string onto a page URL. Queries recorded
// without a leading "?" get one, or "&" when the page already has a query.
func appendQuery(page, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return page
	}
	if strings.HasPrefix(query, "?") || strings.HasPrefix(query, "#") || strings.HasPrefix(query, "&") {
		return page + query
	}
	if strings.Contains(page, "?") {
		return page + "&" + query
	}
	return page + "?" + query
}

// pairValue reads [a, b] or {ka: a, kb: b}.
func pairValue(v any, ka, kb string) (float64, float64, bool) {
	switch t := v.(type) {
	case []any:
		if len(t) < 2 {
			return 0, 0, false
		}
		a, okA := numberValue(t[0])
		b, okB := numberValue(t[1])
		return a, b, okA && okB
	case map[string]any:
		a, okA := numberValue(t[ka])
		b, okB := numberValue(t[kb])
		return a, b, okA && okB
	}
	return 0, 0, false
}

func numberValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
