package codec

import (
	"fmt"
	"strings"
)

// GeoHashPrecision is the number of characters used for TelemetryRecord.Location.
const GeoHashPrecision = 12

const base32Alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// EncodeGeoHash returns the geohash of (lat, lon) with precision characters.
// Bits alternate longitude first; every 5 bits emit one base-32 character.
// A precision <= 0 yields "".
func EncodeGeoHash(lat, lon float64, precision int) string {
	if precision <= 0 {
		return ""
	}
	minLat, maxLat := -90.0, 90.0
	minLon, maxLon := -180.0, 180.0

	var sb strings.Builder
	sb.Grow(precision)

	even := true
	bits, idx := 0, 0
	for sb.Len() < precision {
		if even {
			mid := (minLon + maxLon) / 2
			if lon >= mid {
				idx = idx<<1 | 1
				minLon = mid
			} else {
				idx <<= 1
				maxLon = mid
			}
		} else {
			mid := (minLat + maxLat) / 2
			if lat >= mid {
				idx = idx<<1 | 1
				minLat = mid
			} else {
				idx <<= 1
				maxLat = mid
			}
		}
		even = !even
		bits++
		if bits == 5 {
			sb.WriteByte(base32Alphabet[idx])
			bits, idx = 0, 0
		}
	}
	return sb.String()
}

// DecodeGeoHash returns the centre of the cell described by hash.
func DecodeGeoHash(hash string) (lat, lon float64, err error) {
	if hash == "" {
		return 0, 0, fmt.Errorf("%w: empty geohash", ErrMalformedHex)
	}
	minLat, maxLat := -90.0, 90.0
	minLon, maxLon := -180.0, 180.0

	even := true
	for i := 0; i < len(hash); i++ {
		idx := strings.IndexByte(base32Alphabet, hash[i])
		if idx < 0 {
			return 0, 0, fmt.Errorf("%w: invalid geohash character %q at %d", ErrMalformedHex, hash[i], i)
		}
		for bit := 4; bit >= 0; bit-- {
			set := idx>>bit&1 == 1
			if even {
				mid := (minLon + maxLon) / 2
				if set {
					minLon = mid
				} else {
					maxLon = mid
				}
			} else {
				mid := (minLat + maxLat) / 2
				if set {
					minLat = mid
				} else {
					maxLat = mid
				}
			}
			even = !even
		}
	}
	return (minLat + maxLat) / 2, (minLon + maxLon) / 2, nil
}
