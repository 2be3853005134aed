package comparison

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Format is an encoding for exported comparisons.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat maps a format name to a Format. Empty selects JSON.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatMsgpack, "msgp":
		return FormatMsgpack, nil
	}
	return "", fmt.Errorf("unsupported export format %q", name)
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatMsgpack {
		return "application/msgpack"
	}
	return "application/json"
}

// Encode writes c to w. MessagePack output uses the same field names as JSON.
func Encode(w io.Writer, c *Comparison, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("failed to encode comparison as json: %w", err)
		}
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("failed to encode comparison as msgpack: %w", err)
		}
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
	return nil
}

// Decode reads a comparison written by Encode.
func Decode(r io.Reader, format Format) (*Comparison, error) {
	var c Comparison
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to decode json comparison: %w", err)
		}
	case FormatMsgpack:
		dec := msgpack.NewDecoder(r)
		dec.SetCustomStructTag("json")
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to decode msgpack comparison: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	return &c, nil
}
