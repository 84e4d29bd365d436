// Package polyline implements the encoded-polyline format used by the
// provider for activity routes: signed coordinate deltas scaled by 1e5,
// zigzag-encoded in 5-bit chunks offset by 63.
package polyline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPolyline indicates an invalid encoding: a chunk truncated at
// end of input, a byte outside the encoding alphabet, or a coordinate
// outside the valid latitude/longitude range.
var ErrMalformedPolyline = errors.New("malformed polyline encoding")

const precision = 1e5

// LatLng is one decoded coordinate pair in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Decode converts an encoded polyline into its coordinate sequence.
func Decode(encoded string) ([]LatLng, error) {
	var points []LatLng
	var lat, lng int64

	pos := 0
	for pos < len(encoded) {
		dlat, next, err := decodeValue(encoded, pos)
		if err != nil {
			return nil, err
		}
		dlng, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		pos = next

		lat += dlat
		lng += dlng
		if lat < -90*precision || lat > 90*precision || lng < -180*precision || lng > 180*precision {
			return nil, fmt.Errorf("%w: coordinate out of range", ErrMalformedPolyline)
		}
		points = append(points, LatLng{
			Lat: float64(lat) / precision,
			Lng: float64(lng) / precision,
		})
	}

	return points, nil
}

// Encode converts a coordinate sequence into an encoded polyline.
func Encode(points []LatLng) string {
	var sb strings.Builder
	var prevLat, prevLng int64

	for _, p := range points {
		lat := int64(round(p.Lat * precision))
		lng := int64(round(p.Lng * precision))
		encodeValue(&sb, lat-prevLat)
		encodeValue(&sb, lng-prevLng)
		prevLat, prevLng = lat, lng
	}

	return sb.String()
}

func decodeValue(encoded string, pos int) (int64, int, error) {
	var result int64
	var shift uint

	for {
		if pos >= len(encoded) {
			return 0, 0, fmt.Errorf("%w: truncated chunk", ErrMalformedPolyline)
		}
		c := int64(encoded[pos]) - 63
		if c < 0 || c > 63 {
			return 0, 0, fmt.Errorf("%w: byte outside encoding alphabet", ErrMalformedPolyline)
		}
		pos++

		result |= (c & 0x1f) << shift
		shift += 5
		if c < 0x20 {
			break
		}
		if shift > 30 {
			return 0, 0, fmt.Errorf("%w: delta out of range", ErrMalformedPolyline)
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), pos, nil
	}
	return result >> 1, pos, nil
}

func encodeValue(sb *strings.Builder, value int64) {
	v := value << 1
	if value < 0 {
		v = ^v
	}
	for v >= 0x20 {
		sb.WriteByte(byte((0x20 | (v & 0x1f)) + 63))
		v >>= 5
	}
	sb.WriteByte(byte(v + 63))
}

func round(f float64) float64 {
	if f < 0 {
		return float64(int64(f - 0.5))
	}
	return float64(int64(f + 0.5))
}
