package config

import "unicode/utf8"

// DecodeLine decodes one raw line with the network's primary encoding,
// falling back to the single-byte fallback encoding before any data is
// dropped. The raw bytes are returned as-is as a last resort.
func (n *NetworkConfig) DecodeLine(raw []byte) string {
	if n.Encoding == nil {
		if utf8.Valid(raw) {
			return string(raw)
		}
	} else if out, err := n.Encoding.NewDecoder().Bytes(raw); err == nil {
		return string(out)
	}

	if n.FallbackEncoding != nil {
		if out, err := n.FallbackEncoding.NewDecoder().Bytes(raw); err == nil {
			return string(out)
		}
	}
	return string(raw)
}

// EncodeLine encodes one outgoing line with the primary encoding. For
// plain UTF-8 the string bytes pass through untouched.
func (n *NetworkConfig) EncodeLine(line string) []byte {
	if n.Encoding == nil {
		return []byte(line)
	}
	out, err := n.Encoding.NewEncoder().Bytes([]byte(line))
	if err != nil {
		return []byte(line)
	}
	return out
}
