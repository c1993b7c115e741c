package wire

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"gobrick/domain/brick"
	"gobrick/domain/core"
	"gobrick/internal/testkit"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBrick(t *testing.T) *brick.Brick {
	t.Helper()
	config := testkit.DefaultBrickConfig()
	config.Dims = brick.Dims{5, 4, 3}
	b, err := testkit.NewBrickGenerator(config).Generate()
	require.NoError(t, err)

	b.T00.Data[7] = float32(math.NaN())
	b.Sx.Data[3] = float32(math.Inf(-1))
	b.Provenance = brick.Provenance{
		Source:          "pipeline",
		Proxy:           true,
		Congruence:      "geometry-derived",
		MetricT00Ref:    "warp.metric.T00.natario",
		MetricT00Source: "metric",
	}
	gap := 96.0
	b.Stats.Mapping = &brick.MappingStats{GapNm: &gap, Source: brick.MappingOverride, Overrides: []string{"gap_nm"}}
	return b
}

func assertSameChannels(t *testing.T, want, got *brick.Brick) {
	t.Helper()
	require.Equal(t, want.Dims, got.Dims)
	for _, name := range brick.ChannelOrder {
		w, _ := want.Channel(name)
		g, _ := got.Channel(name)
		require.Len(t, g.Data, len(w.Data), name)
		for i := range w.Data {
			assert.Equal(t, math.Float32bits(w.Data[i]), math.Float32bits(g.Data[i]), "%s[%d]", name, i)
		}
	}
}

func TestBinary_RoundTripIsBitExact(t *testing.T) {
	b := sampleBrick(t)

	payload, err := EncodeBinary(b)
	require.NoError(t, err)

	got, err := DecodeBinary(payload)
	require.NoError(t, err)

	assertSameChannels(t, b, got)
	assert.Equal(t, b.Provenance, got.Provenance)
	assert.Equal(t, 4, got.VoxelBytes)
	require.NotNil(t, got.Stats.Mapping)
	assert.Equal(t, 96.0, *got.Stats.Mapping.GapNm)
	assert.Equal(t, b.Stats.AvgT00, got.Stats.AvgT00)

	lo, hi := brick.ChannelRange(b.T00.Data)
	assert.Equal(t, lo, got.T00.Min)
	assert.Equal(t, hi, got.T00.Max)
}

func TestJSON_RoundTripIsBitExact(t *testing.T) {
	b := sampleBrick(t)

	payload, err := EncodeJSON(b)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, Sniff(payload))

	got, err := Decode(payload, FormatJSON)
	require.NoError(t, err)
	assertSameChannels(t, b, got)
	assert.Equal(t, b.Provenance, got.Provenance)
}

func TestBinary_HeaderIsPaddedToFourBytes(t *testing.T) {
	b := testkit.FromSamples(testkit.Sample{Rho: 1})
	payload, err := EncodeBinary(b)
	require.NoError(t, err)

	n := int(binary.LittleEndian.Uint32(payload))
	start := align4(4 + n)
	assert.Equal(t, start+5*4, len(payload))
	for _, pad := range payload[4+n : start] {
		assert.Zero(t, pad)
	}
	assert.Equal(t, FormatBinary, Sniff(payload))
}

// frame assembles a binary payload around an arbitrary header
func frame(t *testing.T, hdr map[string]any, body []byte) []byte {
	t.Helper()
	raw, err := json.Marshal(hdr)
	require.NoError(t, err)
	out := make([]byte, 4, 4+len(raw)+3+len(body))
	binary.LittleEndian.PutUint32(out, uint32(len(raw)))
	out = append(out, raw...)
	out = append(out, make([]byte, align4(len(out))-len(out))...)
	return append(out, body...)
}

func channelsOf(bytes int, skip string) map[string]any {
	out := map[string]any{}
	for _, name := range brick.ChannelOrder {
		if name == skip {
			continue
		}
		out[name] = map[string]any{"bytes": bytes, "min": 0, "max": 0}
	}
	return out
}

func validHeader() map[string]any {
	return map[string]any{
		"kind":     brick.Kind,
		"dims":     []int{2, 1, 1},
		"channels": channelsOf(8, ""),
	}
}

func TestDecodeBinary_Failures(t *testing.T) {
	body := make([]byte, 5*8)

	with := func(key string, value any) map[string]any {
		h := validHeader()
		h[key] = value
		return h
	}

	valid := frame(t, validHeader(), body)
	_, err := DecodeBinary(valid)
	require.NoError(t, err)

	notJSON := append([]byte{5, 0, 0, 0}, []byte("{oops000")...)

	tests := []struct {
		name    string
		payload []byte
		want    error
	}{
		{"empty", nil, core.ErrHeaderLength},
		{"short prefix", []byte{1, 0}, core.ErrHeaderLength},
		{"zero header length", append([]byte{0, 0, 0, 0}, body...), core.ErrHeaderLength},
		{"header past end", []byte{0xff, 0, 0, 0, '{', '}'}, core.ErrHeaderLength},
		{"header not json", notJSON, core.ErrHeaderMalformed},
		{"wrong kind", frame(t, with("kind", "scalar-brick"), body), core.ErrUnsupportedKind},
		{"two dims", frame(t, with("dims", []int{2, 1}), body), core.ErrInvalidDims},
		{"zero dim", frame(t, with("dims", []int{2, 0, 1}), body), core.ErrInvalidDims},
		{"fractional dim", frame(t, with("dims", []float64{2, 1.5, 1}), body), core.ErrInvalidDims},
		{"missing channel", frame(t, with("channels", channelsOf(8, brick.ChannelSz)), body), core.ErrChannelMissing},
		{"misaligned channel", frame(t, with("channels", channelsOf(6, "")), body), core.ErrChannelAlignment},
		{"truncated", valid[:len(valid)-4], core.ErrChannelTruncated},
		{"length mismatch", frame(t, with("channels", channelsOf(4, "")), body), core.ErrChannelLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := DecodeBinary(tt.payload)
			assert.Nil(t, b)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, core.ErrDecode)
		})
	}
}

func TestDecodeJSON_Failures(t *testing.T) {
	good, err := EncodeJSON(testkit.FromSamples(testkit.Sample{Rho: 1}, testkit.Sample{Rho: 2}))
	require.NoError(t, err)

	mutate := func(fn func(doc map[string]any)) []byte {
		var doc map[string]any
		require.NoError(t, json.Unmarshal(good, &doc))
		fn(doc)
		out, err := json.Marshal(doc)
		require.NoError(t, err)
		return out
	}
	channel := func(doc map[string]any, name string) map[string]any {
		return doc["channels"].(map[string]any)[name].(map[string]any)
	}

	tests := []struct {
		name    string
		payload []byte
		want    error
	}{
		{"dims as string", mutate(func(d map[string]any) { d["dims"] = "2x1x1" }), core.ErrInvalidDims},
		{"dims too long", mutate(func(d map[string]any) { d["dims"] = []int{2, 1, 1, 1} }), core.ErrInvalidDims},
		{"bad base64", mutate(func(d map[string]any) { channel(d, "Sx")["data"] = "***" }), core.ErrChannelUndecodable},
		{"missing data", mutate(func(d map[string]any) { delete(channel(d, "divS"), "data") }), core.ErrChannelMissing},
		{"short payload", mutate(func(d map[string]any) { channel(d, "t00")["data"] = "AACAPw==" }), core.ErrChannelLength},
		{"odd payload", mutate(func(d map[string]any) { channel(d, "t00")["data"] = "AAA=" }), core.ErrChannelAlignment},
		{"not json", []byte(strings.Repeat("x", 16)), core.ErrHeaderMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := DecodeJSON(tt.payload)
			assert.Nil(t, b)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"raw":                             FormatBinary,
		"Binary":                          FormatBinary,
		"application/octet-stream":        FormatBinary,
		"json":                            FormatJSON,
		"application/json; charset=utf-8": FormatJSON,
	}
	for in, want := range cases {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("msgpack")
	assert.ErrorIs(t, err, core.ErrUnknownFormat)

	_, err = Decode([]byte{}, Format("xml"))
	assert.ErrorIs(t, err, core.ErrUnknownFormat)
}
