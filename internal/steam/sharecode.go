// Package steam decodes CS2 match share codes and locates the matching
// demo files on Valve's replay servers.
package steam

import (
	"fmt"
	"strings"
)

// shareCodeAlphabet is the base-57 dictionary used by CS2 share codes.
// It omits visually ambiguous characters: 0, 1, I, O, g, l.
const shareCodeAlphabet = "ABCDEFGHJKLMNOPQRSTUVWXYZabcdefhijkmnopqrstuvwxyz23456789"

// ShareCode holds the three values encoded inside a CS2 match share code.
type ShareCode struct {
	MatchID       uint64
	ReservationID uint64
	TVPort        uint16
}

// Decode decodes a CS2 match share code (e.g. "CSGO-XXXXX-XXXXX-XXXXX-XXXXX")
// into its constituent match identifiers.
//
// The 25 characters after stripping are a base-57 number, read right to
// left, packing 18 little-endian bytes: matchID (8), reservationID (8)
// and the TV port (2).
func Decode(code string) (ShareCode, error) {
	code = strings.TrimPrefix(code, "CSGO-")
	code = strings.ReplaceAll(code, "-", "")
	if len(code) != 25 {
		return ShareCode{}, fmt.Errorf("share code: expected 25 characters after stripping, got %d", len(code))
	}

	// Accumulate the base-57 value directly into an 18-byte little-endian
	// buffer: for each digit, buf = buf*57 + digit.
	var buf [18]byte
	for i := len(code) - 1; i >= 0; i-- {
		digit := strings.IndexByte(shareCodeAlphabet, code[i])
		if digit < 0 {
			return ShareCode{}, fmt.Errorf("share code: invalid character %q", code[i])
		}
		carry := uint16(digit)
		for j := range buf {
			v := uint16(buf[j])*57 + carry
			buf[j] = byte(v)
			carry = v >> 8
		}
	}

	return ShareCode{
		MatchID:       leUint64(buf[0:8]),
		ReservationID: leUint64(buf[8:16]),
		TVPort:        uint16(buf[16]) | uint16(buf[17])<<8,
	}, nil
}

func leUint64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}
