package wire

import (
	"bytes"
	"fmt"
	"strings"

	"gobrick/domain/brick"
	"gobrick/domain/core"

	"github.com/tidwall/gjson"
)

// Format selects the on-the-wire brick encoding
type Format string

const (
	FormatBinary Format = "binary"
	FormatJSON   Format = "json"
)

// ParseFormat maps a format query value or content type onto a Format
func ParseFormat(s string) (Format, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	switch v {
	case "raw", "binary", "bin", "application/octet-stream":
		return FormatBinary, nil
	case "json", "application/json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownFormat, s)
}

// Sniff guesses the format of payload. A binary frame is never valid JSON
// as a whole, so a well-formed JSON document is taken as the JSON form.
func Sniff(payload []byte) Format {
	trimmed := bytes.TrimLeft(payload, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' && gjson.ValidBytes(trimmed) {
		return FormatJSON
	}
	return FormatBinary
}

// Decode dispatches on format. On error no brick is returned.
func Decode(payload []byte, format Format) (*brick.Brick, error) {
	switch format {
	case FormatBinary:
		return DecodeBinary(payload)
	case FormatJSON:
		return DecodeJSON(payload)
	}
	return nil, fmt.Errorf("%w: %q", core.ErrUnknownFormat, format)
}

// Encode is the inverse of Decode
func Encode(b *brick.Brick, format Format) ([]byte, error) {
	switch format {
	case FormatBinary:
		return EncodeBinary(b)
	case FormatJSON:
		return EncodeJSON(b)
	}
	return nil, fmt.Errorf("%w: %q", core.ErrUnknownFormat, format)
}

// ContentType returns the HTTP content type for format
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "application/octet-stream"
}
