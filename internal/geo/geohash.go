// Package geo implements the standard interleaved-bit geohash encoding.
// The alphabet differs from RFC 4648 base32: it excludes a, i, l and o.
package geo

import (
	"fmt"
	"strings"
)

const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

var bitMasks = [5]int{16, 8, 4, 2, 1}

// Encode returns the geohash of a coordinate at the requested character
// precision. Bits alternate longitude first, then latitude; each step bisects
// the active interval, emitting 1 and keeping the upper half when the value
// exceeds the midpoint.
func Encode(lat, lon float64, precision int) string {
	latLo, latHi := -90.0, 90.0
	lonLo, lonHi := -180.0, 180.0

	var out strings.Builder
	bit := 0
	ch := 0
	even := true

	for out.Len() < precision {
		if even {
			mid := (lonLo + lonHi) / 2
			if lon > mid {
				ch |= bitMasks[bit]
				lonLo = mid
			} else {
				lonHi = mid
			}
		} else {
			mid := (latLo + latHi) / 2
			if lat > mid {
				ch |= bitMasks[bit]
				latLo = mid
			} else {
				latHi = mid
			}
		}
		even = !even
		if bit < 4 {
			bit++
		} else {
			out.WriteByte(base32[ch])
			bit = 0
			ch = 0
		}
	}
	return out.String()
}

// DecodeExactly returns the center point of a geohash cell together with the
// plus/minus error margins of latitude and longitude.
func DecodeExactly(hash string) (lat, lon, latErr, lonErr float64, err error) {
	latLo, latHi := -90.0, 90.0
	lonLo, lonHi := -180.0, 180.0
	latErr, lonErr = 90.0, 180.0
	even := true

	for _, c := range hash {
		cd := strings.IndexRune(base32, c)
		if cd < 0 {
			return 0, 0, 0, 0, fmt.Errorf("invalid geohash character %q", c)
		}
		for _, mask := range bitMasks {
			if even {
				lonErr /= 2
				if cd&mask != 0 {
					lonLo = (lonLo + lonHi) / 2
				} else {
					lonHi = (lonLo + lonHi) / 2
				}
			} else {
				latErr /= 2
				if cd&mask != 0 {
					latLo = (latLo + latHi) / 2
				} else {
					latHi = (latLo + latHi) / 2
				}
			}
			even = !even
		}
	}
	return (latLo + latHi) / 2, (lonLo + lonHi) / 2, latErr, lonErr, nil
}
