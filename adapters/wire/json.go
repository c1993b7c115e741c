package wire

import (
	"fmt"

	"gobrick/domain/brick"
	"gobrick/domain/core"

	"github.com/cloudwego/base64x"
	"github.com/goccy/go-json"
)

// DecodeJSON parses the JSON form, where channels.<name>.data holds base64
// little-endian float32 samples.
func DecodeJSON(payload []byte) (*brick.Brick, error) {
	h, dims, err := parseHeader(payload)
	if err != nil {
		return nil, err
	}

	data := make(map[string][]float32, len(brick.ChannelOrder))
	for _, name := range brick.ChannelOrder {
		meta, ok := h.Channels[name]
		if !ok || meta.Data == "" {
			return nil, fmt.Errorf("%w: %s", core.ErrChannelMissing, name)
		}
		raw, err := base64x.StdEncoding.DecodeString(meta.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", core.ErrChannelUndecodable, name, err)
		}
		if len(raw)%4 != 0 {
			return nil, fmt.Errorf("%w: %s decodes to %d bytes", core.ErrChannelAlignment, name, len(raw))
		}
		if err := checkCount(name, len(raw)/4, dims); err != nil {
			return nil, err
		}
		data[name] = readFloats(raw)
	}
	return assemble(h, dims, data), nil
}

// EncodeJSON writes b in the JSON form
func EncodeJSON(b *brick.Brick) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("encode brick: %w", err)
	}
	h, err := newHeader(b)
	if err != nil {
		return nil, fmt.Errorf("encode brick header: %w", err)
	}
	for _, name := range brick.ChannelOrder {
		ch, _ := b.Channel(name)
		meta := h.Channels[name]
		meta.Data = base64x.StdEncoding.EncodeToString(writeFloats(ch.Data))
		h.Channels[name] = meta
	}
	out, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encode brick: %w", err)
	}
	return out, nil
}
