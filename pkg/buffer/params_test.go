package buffer

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeParamsNil(t *testing.T) {
	vals, err := encodeParams(nil)
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestEncodeParamsClonesURLValues(t *testing.T) {
	in := url.Values{"text": {"hello"}}
	vals, err := encodeParams(in)
	require.NoError(t, err)

	vals.Set("text", "changed")
	assert.Equal(t, "hello", in.Get("text"))
}

func TestEncodeParamsMap(t *testing.T) {
	vals, err := encodeParams(Params{
		"text":        "hi there",
		"profile_ids": []string{"a", "b"},
		"media":       map[string]any{"link": "http://example.com", "title": "Example"},
		"now":         true,
		"shorten":     false,
		"count":       3,
		"offset":      uint8(2),
		"ratio":       1.5,
		"skip":        nil,
	})
	require.NoError(t, err)

	want := url.Values{
		"text":          {"hi there"},
		"profile_ids[]": {"a", "b"},
		"media[link]":   {"http://example.com"},
		"media[title]":  {"Example"},
		"now":           {"true"},
		"shorten":       {"false"},
		"count":         {"3"},
		"offset":        {"2"},
		"ratio":         {"1.5"},
	}
	assert.Equal(t, want, vals)
}

func TestEncodeParamsFloatPrecision(t *testing.T) {
	vals, err := encodeParams(Params{"lat": float32(0.1), "lng": 0.1, "zoom": []float32{2.5, 0.3}})
	require.NoError(t, err)

	assert.Equal(t, "0.1", vals.Get("lat"))
	assert.Equal(t, "0.1", vals.Get("lng"))
	assert.Equal(t, []string{"2.5", "0.3"}, vals["zoom[]"])
}

func TestEncodeParamsNestedLists(t *testing.T) {
	vals, err := encodeParams(map[string]any{
		"schedules": []any{
			map[string]any{"days": []string{"mon", "tue"}, "times": []string{"12:00"}},
			map[string]any{"days": []string{"sat"}, "times": []string{"09:30", "18:00"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"mon", "tue"}, vals["schedules[0][days][]"])
	assert.Equal(t, []string{"12:00"}, vals["schedules[0][times][]"])
	assert.Equal(t, []string{"sat"}, vals["schedules[1][days][]"])
	assert.Equal(t, []string{"09:30", "18:00"}, vals["schedules[1][times][]"])
}

func TestEncodeParamsStringMap(t *testing.T) {
	vals, err := encodeParams(map[string]string{"url": "http://bufferapp.com"})
	require.NoError(t, err)
	assert.Equal(t, "http://bufferapp.com", vals.Get("url"))
}

func TestEncodeParamsStruct(t *testing.T) {
	shorten := false
	vals, err := encodeParams(CreateUpdateParams{
		ProfileIDs: []string{"p1", "p2"},
		Text:       "Hello",
		Shorten:    &shorten,
		Now:        true,
		Media:      &Media{Link: "http://example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2"}, vals["profile_ids[]"])
	assert.Equal(t, "Hello", vals.Get("text"))
	assert.Equal(t, "false", vals.Get("shorten"))
	assert.Equal(t, "true", vals.Get("now"))
	assert.Equal(t, "http://example.com", vals.Get("media[link]"))
	assert.NotContains(t, vals, "top")
	assert.NotContains(t, vals, "scheduled_at")
}

func TestEncodeParamsNilStructPointer(t *testing.T) {
	var q *UpdatesQuery
	vals, err := encodeParams(q)
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestEncodeParamsUnsupported(t *testing.T) {
	for name, data := range map[string]any{
		"scalar":      42,
		"int map key": Params{"m": map[int]string{1: "a"}},
		"channel":     Params{"c": make(chan int)},
	} {
		_, err := encodeParams(data)
		assert.ErrorIs(t, err, ErrUnsupportedParams, name)
	}
}
