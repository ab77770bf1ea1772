// internal/analytics/decode.go
package analytics

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Decode reads an export body: either a JSON array of records or one record
// per line. Records that are not events are skipped and counted.
func Decode(r io.Reader) (*Events, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read export data: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes is Decode over an in-memory body.
func DecodeBytes(data []byte) (*Events, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &Events{}, nil
	}
	if trimmed[0] == '[' {
		return decodeArray(trimmed)
	}
	return decodeLines(trimmed)
}

type recordStatus int

const (
	recordValid recordStatus = iota
	// recordInvalid is a JSON object that is not an event.
	recordInvalid
	// recordMalformed is anything other than a JSON object, including
	// scalars, arrays and null.
	recordMalformed
)

func decodeArray(data []byte) (*Events, error) {
	var raws []jsoniter.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, &ParseError{Err: err}
	}

	out := &Events{events: make([]Event, 0, len(raws))}
	objects := 0
	for _, raw := range raws {
		ev, status := parseRecord(raw)
		if status != recordMalformed {
			objects++
		}
		if status != recordValid {
			out.skipped++
			continue
		}
		out.events = append(out.events, ev)
	}
	if len(raws) > 0 && objects == 0 {
		return nil, &ParseError{Err: errors.New("array holds no JSON objects")}
	}
	return out, nil
}

func decodeLines(data []byte) (*Events, error) {
	out := &Events{}
	var (
		lineNo    int
		objects   int
		firstErr  error
		firstLine int
	)
	for rest := data; len(rest) > 0; {
		var line []byte
		line, rest, _ = bytes.Cut(rest, []byte{'\n'})
		lineNo++

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		ev, status := parseRecord(line)
		switch status {
		case recordValid:
			objects++
			out.events = append(out.events, ev)
		case recordInvalid:
			objects++
			out.skipped++
		case recordMalformed:
			out.skipped++
			if firstErr == nil {
				firstErr = errors.New("line is not a JSON object")
				firstLine = lineNo
			}
		}
	}
	if objects == 0 && firstErr != nil {
		return nil, &ParseError{Line: firstLine, Err: firstErr}
	}
	return out, nil
}

// parseRecord accepts a JSON object with a non-empty string "event" and an
// object "properties".
func parseRecord(raw []byte) (Event, recordStatus) {
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
		return Event{}, recordMalformed
	}

	name, ok := rec["event"].(string)
	if !ok || name == "" {
		return Event{}, recordInvalid
	}
	props, ok := rec["properties"].(map[string]any)
	if !ok {
		return Event{}, recordInvalid
	}

	ev := Event{
		Name:       name,
		Time:       timestampValue(props["time"]),
		Properties: props,
	}
	if id, ok := props["$insert_id"].(string); ok {
		ev.InsertID = id
	}
	return ev, recordValid
}

// millisecondThreshold separates epoch seconds from epoch milliseconds.
const millisecondThreshold = 1e12

// timestampValue converts an epoch number (seconds, or milliseconds above
// 1e12) or an RFC 3339 string. Anything else yields the zero time.
func timestampValue(v any) time.Time {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int64:
		f = float64(t)
	case int:
		f = float64(t)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			f = parsed
			break
		}
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UTC()
		}
		return time.Time{}
	default:
		return time.Time{}
	}
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}
	}
	if f > millisecondThreshold {
		return time.UnixMilli(int64(f)).UTC()
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}
