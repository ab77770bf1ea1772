// internal/analytics/decode_test.go
package analytics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBytes_ArraySkipsInvalidRecords(t *testing.T) {
	events, err := DecodeBytes([]byte(`[{"event":"signup","properties":{}},{"bad":1}]`))
	require.NoError(t, err)

	require.Equal(t, 1, events.Len())
	assert.Equal(t, 1, events.Skipped())
	ev := events.Slice()[0]
	assert.Equal(t, "signup", ev.Name)
	assert.True(t, ev.Time.IsZero())
	assert.Empty(t, ev.Properties)
}

func TestDecodeBytes_NDJSON(t *testing.T) {
	body := strings.Join([]string{
		`{"event":"Page viewed","properties":{"time":1695427200,"$insert_id":"a1","location":"https://example.com/"}}`,
		``,
		`{"event":"Button clicked","properties":{"time":1695427205123,"nested":{"x":[1,2]},"flag":true,"none":null}}`,
		`not json at all`,
		`{"event":"","properties":{}}`,
		`{"event":"no props"}`,
		`{"event":"string props","properties":"x"}`,
		`[1,2,3]`,
	}, "\n")

	events, err := DecodeBytes([]byte(body))
	require.NoError(t, err)
	require.Equal(t, 2, events.Len())
	assert.Equal(t, 5, events.Skipped())

	got := events.Slice()
	want := []Event{
		{
			Name:     "Page viewed",
			Time:     time.Unix(1695427200, 0).UTC(),
			InsertID: "a1",
			Properties: map[string]any{
				"time":       float64(1695427200),
				"$insert_id": "a1",
				"location":   "https://example.com/",
			},
		},
		{
			Name: "Button clicked",
			Time: time.UnixMilli(1695427205123).UTC(),
			Properties: map[string]any{
				"time":   float64(1695427205123),
				"nested": map[string]any{"x": []any{float64(1), float64(2)}},
				"flag":   true,
				"none":   nil,
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded events mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeBytes_Empty(t *testing.T) {
	for _, body := range []string{"", "   \n\t", "[]"} {
		events, err := DecodeBytes([]byte(body))
		require.NoError(t, err, "body %q", body)
		assert.Zero(t, events.Len())
		assert.Zero(t, events.Skipped())
	}
}

func TestDecodeBytes_MalformedTopLevel(t *testing.T) {
	t.Run("BrokenArray", func(t *testing.T) {
		_, err := DecodeBytes([]byte(`[{"event":"signup","properties":{}}`))
		var perr *ParseError
		require.True(t, errors.As(err, &perr))
		assert.Zero(t, perr.Line)
	})

	t.Run("NoLineIsJSON", func(t *testing.T) {
		_, err := DecodeBytes([]byte("<html>\nerror page\n</html>"))
		var perr *ParseError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, 1, perr.Line)
	})

	t.Run("ScalarBodies", func(t *testing.T) {
		for _, body := range []string{`"Internal Server Error"`, `42`, `null`, "true\nfalse"} {
			events, err := DecodeBytes([]byte(body))
			assert.Nil(t, events, "body %q", body)
			var perr *ParseError
			require.True(t, errors.As(err, &perr), "body %q: %v", body, err)
			assert.Equal(t, 1, perr.Line, "body %q", body)
		}
	})

	t.Run("ArrayWithoutObjects", func(t *testing.T) {
		for _, body := range []string{`[1,2]`, `[null]`, `["a",["b"]]`} {
			_, err := DecodeBytes([]byte(body))
			var perr *ParseError
			require.True(t, errors.As(err, &perr), "body %q: %v", body, err)
			assert.Zero(t, perr.Line)
		}
	})

	t.Run("ScalarLinesBesideEventsAreSkipped", func(t *testing.T) {
		events, err := DecodeBytes([]byte("null\n{\"event\":\"a\",\"properties\":{}}\n7"))
		require.NoError(t, err)
		assert.Equal(t, 1, events.Len())
		assert.Equal(t, 2, events.Skipped())
	})

	t.Run("ValidJSONButNoEventsIsNotAnError", func(t *testing.T) {
		events, err := DecodeBytes([]byte(`{"error":"x"}`))
		require.NoError(t, err)
		assert.Zero(t, events.Len())
		assert.Equal(t, 1, events.Skipped())
	})
}

func TestDecode_Reader(t *testing.T) {
	events, err := Decode(strings.NewReader(`{"event":"a","properties":{}}` + "\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, events.Len())
}

func TestTimestampValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want time.Time
	}{
		{"Seconds", float64(1700000000), time.Unix(1700000000, 0).UTC()},
		{"FractionalSeconds", 1700000000.5, time.Unix(1700000000, 500000000).UTC()},
		{"Milliseconds", float64(1700000000123), time.UnixMilli(1700000000123).UTC()},
		{"NumericString", "1700000000", time.Unix(1700000000, 0).UTC()},
		{"RFC3339", "2023-11-14T22:13:20Z", time.Unix(1700000000, 0).UTC()},
		{"Absent", nil, time.Time{}},
		{"Garbage", "yesterday", time.Time{}},
		{"Bool", true, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(timestampValue(tt.in)), "got %v", timestampValue(tt.in))
		})
	}
}

func TestEvents_Sequence(t *testing.T) {
	events := NewEvents([]Event{{Name: "a"}, {Name: "b"}, {Name: "a"}}, 2)

	var first, second []string
	for ev := range events.All() {
		first = append(first, ev.Name)
	}
	for ev := range events.All() {
		second = append(second, ev.Name)
	}
	assert.Equal(t, []string{"a", "b", "a"}, first)
	assert.Equal(t, first, second, "the sequence is restartable")

	for ev := range events.All() {
		assert.Equal(t, "a", ev.Name)
		break
	}

	assert.Equal(t, map[string]int{"a": 2, "b": 1}, events.CountByName())
	assert.Equal(t, 2, events.Skipped())

	s := events.Slice()
	s[0].Name = "changed"
	assert.Equal(t, "a", events.Slice()[0].Name, "Slice returns a copy")

	var nilEvents *Events
	assert.Zero(t, nilEvents.Len())
	assert.Empty(t, nilEvents.CountByName())
}

func TestEvent_RecordRoundTrip(t *testing.T) {
	ev := Event{Name: "x", Properties: map[string]any{"time": float64(1700000000), "k": "v"}}
	b, err := json.Marshal([]ExportRecord{ev.Record()})
	require.NoError(t, err)

	events, err := DecodeBytes(b)
	require.NoError(t, err)
	require.Equal(t, 1, events.Len())
	got := events.Slice()[0]
	assert.Equal(t, ev.Properties, got.Properties)
	assert.True(t, got.Time.Equal(time.Unix(1700000000, 0)))

	empty := Event{Name: "y"}.Record()
	assert.NotNil(t, empty.Properties)
}
