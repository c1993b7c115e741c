package wire

import (
	"fmt"
	"math"

	"gobrick/domain/brick"
	"gobrick/domain/core"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// maxVoxels bounds nx*ny*nz so channel byte lengths fit comfortably in an int
const maxVoxels = 1 << 30

// header is the JSON document framed in the binary form. The JSON form uses
// the same document with each channel's samples inlined as base64 data.
type header struct {
	Kind       string                   `json:"kind"`
	Dims       json.RawMessage          `json:"dims"`
	VoxelBytes int                      `json:"voxelBytes,omitempty"`
	Channels   map[string]channelHeader `json:"channels"`
	Stats      brick.Stats              `json:"stats"`
	brick.Provenance
}

type channelHeader struct {
	Bytes int     `json:"bytes"`
	Min   float32 `json:"min"`
	Max   float32 `json:"max"`
	Data  string  `json:"data,omitempty"`
}

// parseHeader validates kind and dims before decoding the full document
func parseHeader(raw []byte) (*header, brick.Dims, error) {
	if !gjson.ValidBytes(raw) {
		return nil, brick.Dims{}, fmt.Errorf("%w: header is not valid JSON", core.ErrHeaderMalformed)
	}
	if kind := gjson.GetBytes(raw, "kind"); kind.String() != brick.Kind {
		return nil, brick.Dims{}, fmt.Errorf("%w: %q", core.ErrUnsupportedKind, kind.String())
	}
	dims, err := parseDims(gjson.GetBytes(raw, "dims"))
	if err != nil {
		return nil, brick.Dims{}, err
	}

	var h header
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, brick.Dims{}, fmt.Errorf("%w: %v", core.ErrHeaderMalformed, err)
	}
	return &h, dims, nil
}

func parseDims(r gjson.Result) (brick.Dims, error) {
	var dims brick.Dims
	if !r.IsArray() {
		return dims, fmt.Errorf("%w: dims must be an array", core.ErrInvalidDims)
	}
	elems := r.Array()
	if len(elems) != 3 {
		return dims, fmt.Errorf("%w: dims has %d elements, expected 3", core.ErrInvalidDims, len(elems))
	}
	total := 1.0
	for i, e := range elems {
		f := e.Float()
		if e.Type != gjson.Number || f < 1 || f != math.Trunc(f) {
			return dims, fmt.Errorf("%w: dims[%d] = %s", core.ErrInvalidDims, i, e.Raw)
		}
		total *= f
		if total > maxVoxels {
			return dims, fmt.Errorf("%w: %s exceeds %d voxels", core.ErrInvalidDims, r.Raw, maxVoxels)
		}
		dims[i] = int(f)
	}
	return dims, nil
}

// newHeader describes b with freshly computed channel ranges
func newHeader(b *brick.Brick) (*header, error) {
	dims, err := json.Marshal(b.Dims)
	if err != nil {
		return nil, err
	}
	h := &header{
		Kind:       brick.Kind,
		Dims:       dims,
		VoxelBytes: 4,
		Channels:   make(map[string]channelHeader, len(brick.ChannelOrder)),
		Stats:      b.Stats,
		Provenance: b.Provenance,
	}
	for _, name := range brick.ChannelOrder {
		ch, _ := b.Channel(name)
		lo, hi := brick.ChannelRange(ch.Data)
		h.Channels[name] = channelHeader{Bytes: 4 * len(ch.Data), Min: lo, Max: hi}
	}
	return h, nil
}

// assemble builds the brick once every channel has been decoded
func assemble(h *header, dims brick.Dims, data map[string][]float32) *brick.Brick {
	b := &brick.Brick{
		Dims:       dims,
		Stats:      h.Stats,
		Provenance: h.Provenance,
		VoxelBytes: h.VoxelBytes,
	}
	if b.VoxelBytes <= 0 {
		b.VoxelBytes = 4
	}
	for _, name := range brick.ChannelOrder {
		ch, _ := b.Channel(name)
		meta := h.Channels[name]
		*ch = brick.Channel{Data: data[name], Min: meta.Min, Max: meta.Max}
	}
	return b
}

func checkCount(name string, got int, dims brick.Dims) error {
	if got != dims.Voxels() {
		return fmt.Errorf("%w: %s has %d samples, dims %s need %d",
			core.ErrChannelLength, name, got, dims, dims.Voxels())
	}
	return nil
}
