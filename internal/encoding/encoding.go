// Package encoding implements the standard Base64 encoding (RFC 4648 §4,
// with padding) used by the sidecar and the encode service.
//
// The alphabet is A-Z, a-z, 0-9, '+' and '/'; output is right-padded with
// '=' to a multiple of four characters.
package encoding

import (
	"encoding/base64"
)

// Encode returns the padded standard Base64 encoding of data.
//
// Encoding cannot fail; an empty input yields an empty string.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// EncodeString encodes the raw bytes of s.
func EncodeString(s string) string {
	return Encode([]byte(s))
}

// EncodedLen returns the length of the encoding of n input bytes,
// which is 4*ceil(n/3).
func EncodedLen(n int) int {
	return (n + 2) / 3 * 4
}
