// Package sessionid generates sortable session identifiers: a UUIDv7
// rendered as a 26-character lowercase base32 string, so IDs order by
// creation time in logs and listings.
package sessionid

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Crockford's base32 alphabet, lowercased.
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// New returns a fresh session ID.
func New() string {
	var uuid [16]byte

	now := time.Now().UnixMilli()
	uuid[0] = byte(now >> 40)
	uuid[1] = byte(now >> 32)
	uuid[2] = byte(now >> 24)
	uuid[3] = byte(now >> 16)
	uuid[4] = byte(now >> 8)
	uuid[5] = byte(now)

	if _, err := rand.Read(uuid[6:]); err != nil {
		panic("sessionid: random source unavailable: " + err.Error())
	}

	// Version 7, variant 10.
	uuid[6] = (uuid[6] & 0x0f) | 0x70
	uuid[8] = (uuid[8] & 0x3f) | 0x80

	return encode(uuid)
}

// encode packs 128 bits into 26 base32 characters, 5 bits at a time.
func encode(data [16]byte) string {
	out := make([]byte, 26)
	for i := range out {
		bitOffset := i * 5
		byteIndex := bitOffset / 8
		bitIndex := bitOffset % 8

		var v uint8
		if byteIndex < len(data) {
			if bitIndex <= 3 {
				v = (data[byteIndex] >> (3 - bitIndex)) & 0x1f
			} else {
				v = (data[byteIndex] << (bitIndex - 3)) & 0x1f
				if byteIndex+1 < len(data) {
					v |= data[byteIndex+1] >> (11 - bitIndex)
				}
			}
		}
		out[i] = alphabet[v]
	}
	return string(out)
}

// Validate checks length and alphabet membership.
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("session ID must be 26 characters, got %d", len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("session ID first character must be 0-7, got %c", id[0])
	}
	for i := 0; i < len(id); i++ {
		if !validChar(id[i]) {
			return fmt.Errorf("invalid character %c at position %d", id[i], i)
		}
	}
	return nil
}

func validChar(c byte) bool {
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] == c {
			return true
		}
	}
	return false
}
