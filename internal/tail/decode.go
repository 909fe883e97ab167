package tail

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// Decoding selects how malformed UTF-8 in the tailed file is handled.
// Neither policy ever reports an error.
type Decoding int

const (
	// DecodeIgnore drops malformed byte sequences.
	DecodeIgnore Decoding = iota

	// DecodeReplace substitutes U+FFFD for malformed byte sequences.
	DecodeReplace
)

func ParseDecoding(s string) (Decoding, error) {
	switch s {
	case "", "ignore":
		return DecodeIgnore, nil
	case "replace":
		return DecodeReplace, nil
	default:
		return 0, fmt.Errorf("unknown decode error policy %q", s)
	}
}

func (d Decoding) String() string {
	switch d {
	case DecodeReplace:
		return "replace"
	default:
		return "ignore"
	}
}

func (d Decoding) decode(raw []byte) string {
	if d == DecodeReplace {
		if s, err := unicode.UTF8.NewDecoder().Bytes(raw); err == nil {
			return string(s)
		}
	}

	return strings.ToValidUTF8(string(raw), "")
}
