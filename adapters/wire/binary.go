package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"gobrick/domain/brick"
	"gobrick/domain/core"

	"github.com/goccy/go-json"
)

const prefixLen = 4

// DecodeBinary parses the framed form:
// [u32 LE header length N][N bytes JSON header][zero pad to 4][t00][Sx][Sy][Sz][divS]
func DecodeBinary(payload []byte) (*brick.Brick, error) {
	if len(payload) < prefixLen {
		return nil, fmt.Errorf("%w: %d byte payload has no length prefix", core.ErrHeaderLength, len(payload))
	}
	n := uint64(binary.LittleEndian.Uint32(payload))
	if n == 0 || n > uint64(len(payload)-prefixLen) {
		return nil, fmt.Errorf("%w: header length %d, payload %d bytes", core.ErrHeaderLength, n, len(payload))
	}
	raw := payload[prefixLen : prefixLen+int(n)]

	h, dims, err := parseHeader(raw)
	if err != nil {
		return nil, err
	}

	offset := align4(prefixLen + int(n))
	data := make(map[string][]float32, len(brick.ChannelOrder))
	for _, name := range brick.ChannelOrder {
		meta, ok := h.Channels[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", core.ErrChannelMissing, name)
		}
		if meta.Bytes < 0 || meta.Bytes%4 != 0 {
			return nil, fmt.Errorf("%w: %s declares %d bytes", core.ErrChannelAlignment, name, meta.Bytes)
		}
		if offset > len(payload) || meta.Bytes > len(payload)-offset {
			return nil, fmt.Errorf("%w: %s needs %d bytes at offset %d, payload %d bytes",
				core.ErrChannelTruncated, name, meta.Bytes, offset, len(payload))
		}
		if err := checkCount(name, meta.Bytes/4, dims); err != nil {
			return nil, err
		}
		data[name] = readFloats(payload[offset : offset+meta.Bytes])
		offset += meta.Bytes
	}
	return assemble(h, dims, data), nil
}

// EncodeBinary writes b in the framed form with recomputed channel ranges
func EncodeBinary(b *brick.Brick) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("encode brick: %w", err)
	}
	h, err := newHeader(b)
	if err != nil {
		return nil, fmt.Errorf("encode brick header: %w", err)
	}
	raw, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encode brick header: %w", err)
	}

	start := align4(prefixLen + len(raw))
	var buf bytes.Buffer
	buf.Grow(start + 4*len(brick.ChannelOrder)*b.Voxels())

	var prefix [prefixLen]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(raw)))
	buf.Write(prefix[:])
	buf.Write(raw)
	buf.Write(make([]byte, start-prefixLen-len(raw)))

	for _, name := range brick.ChannelOrder {
		ch, _ := b.Channel(name)
		buf.Write(writeFloats(ch.Data))
	}
	return buf.Bytes(), nil
}

func align4(n int) int {
	return (n + 3) &^ 3
}

func readFloats(p []byte) []float32 {
	out := make([]float32, len(p)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[4*i:]))
	}
	return out
}

func writeFloats(data []float32) []byte {
	out := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}
