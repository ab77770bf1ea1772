// internal/analytics/types.go
package analytics

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"
)

// Event is one decoded export record.
type Event struct {
	Name string
	// Time comes from properties.time; zero when absent.
	Time time.Time
	// InsertID is properties.$insert_id, kept as delivered.
	InsertID   string
	Properties map[string]any
}

// ExportRecord is the wire shape of an event in the export format.
type ExportRecord struct {
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties"`
}

// Record returns the event in export format, so that it decodes back to an
// equal Event.
func (e Event) Record() ExportRecord {
	props := e.Properties
	if props == nil {
		props = map[string]any{}
	}
	return ExportRecord{Event: e.Name, Properties: props}
}

// Events is a finite, restartable sequence of decoded events.
type Events struct {
	events  []Event
	skipped int
}

// NewEvents wraps already decoded events.
func NewEvents(events []Event, skipped int) *Events {
	return &Events{events: events, skipped: skipped}
}

// All iterates the events in delivery order. It can be ranged over any number
// of times.
func (e *Events) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		if e == nil {
			return
		}
		for _, ev := range e.events {
			if !yield(ev) {
				return
			}
		}
	}
}

func (e *Events) Len() int {
	if e == nil {
		return 0
	}
	return len(e.events)
}

// Slice returns a copy of the events.
func (e *Events) Slice() []Event {
	if e == nil {
		return nil
	}
	return slices.Clone(e.events)
}

// Skipped is the number of records dropped because they were not valid events.
func (e *Events) Skipped() int {
	if e == nil {
		return 0
	}
	return e.skipped
}

// CountByName tallies events per event name.
func (e *Events) CountByName() map[string]int {
	counts := make(map[string]int)
	for ev := range e.All() {
		counts[ev.Name]++
	}
	return counts
}

const dateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ParseDateRange parses two YYYY-MM-DD dates.
func ParseDateRange(from, to string) (DateRange, error) {
	f, err := parseDate("from", from)
	if err != nil {
		return DateRange{}, err
	}
	t, err := parseDate("to", to)
	if err != nil {
		return DateRange{}, err
	}
	r := DateRange{From: f, To: t}
	return r, r.Validate()
}

func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &ValidationError{Field: field, Reason: "date is required"}
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", s)}
	}
	return d, nil
}

func (r DateRange) Validate() error {
	if r.From.IsZero() {
		return &ValidationError{Field: "from", Reason: "date is required"}
	}
	if r.To.IsZero() {
		return &ValidationError{Field: "to", Reason: "date is required"}
	}
	if r.From.After(r.To) {
		return &ValidationError{Field: "from", Reason: fmt.Sprintf("%s is after %s", r.FromString(), r.ToString())}
	}
	return nil
}

func (r DateRange) FromString() string { return r.From.Format(dateLayout) }
func (r DateRange) ToString() string   { return r.To.Format(dateLayout) }

func (r DateRange) String() string {
	return r.FromString() + ".." + r.ToString()
}

// ExportParams selects what the export endpoint returns.
type ExportParams struct {
	Range DateRange
	// Limit caps the number of returned events; zero means no limit.
	Limit int
	// Events restricts the export to these event names.
	Events []string
	// Where is a segmentation expression.
	Where string
}

func (p ExportParams) Validate() error {
	if err := p.Range.Validate(); err != nil {
		return err
	}
	if p.Limit < 0 {
		return &ValidationError{Field: "limit", Reason: "must be positive"}
	}
	for _, name := range p.Events {
		if strings.TrimSpace(name) == "" {
			return &ValidationError{Field: "event", Reason: "event names must not be empty"}
		}
	}
	return nil
}

// Credentials authenticate a service account against the export API.
type Credentials struct {
	Username  string
	Secret    string
	ProjectID string
}

func (c Credentials) Validate() error {
	switch {
	case strings.TrimSpace(c.Username) == "":
		return &ValidationError{Field: "username", Reason: "service account username is required"}
	case c.Secret == "":
		return &ValidationError{Field: "secret", Reason: "service account secret is required"}
	case strings.TrimSpace(c.ProjectID) == "":
		return &ValidationError{Field: "project_id", Reason: "project id is required"}
	}
	return nil
}

// String never includes the secret.
func (c Credentials) String() string {
	return fmt.Sprintf("%s@project:%s", c.Username, c.ProjectID)
}

// overlay copies the non-empty fields of o onto c.
func (c *Credentials) overlay(o Credentials) {
	if o.Username != "" {
		c.Username = o.Username
	}
	if o.Secret != "" {
		c.Secret = o.Secret
	}
	if o.ProjectID != "" {
		c.ProjectID = o.ProjectID
	}
}
