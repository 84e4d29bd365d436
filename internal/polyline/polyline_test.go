package polyline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKnownPolyline(t *testing.T) {
	// Reference example from the encoded-polyline format documentation.
	points, err := Decode("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)

	want := []LatLng{
		{Lat: 38.5, Lng: -120.2},
		{Lat: 40.7, Lng: -120.95},
		{Lat: 43.252, Lng: -126.453},
	}
	if diff := cmp.Diff(want, points, cmpopts.EquateApprox(0, 1e-5)); diff != "" {
		t.Errorf("decoded points mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeEmpty(t *testing.T) {
	points, err := Decode("")
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		points []LatLng
	}{
		{
			"single point",
			[]LatLng{{Lat: -25.4284, Lng: -49.2733}},
		},
		{
			"short route",
			[]LatLng{
				{Lat: -25.4284, Lng: -49.2733},
				{Lat: -25.43, Lng: -49.2741},
				{Lat: -25.43891, Lng: -49.26801},
			},
		},
		{
			"crosses the equator and prime meridian",
			[]LatLng{
				{Lat: 0.00001, Lng: -0.00001},
				{Lat: -0.00002, Lng: 0.00003},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := Decode(Encode(tt.points))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.points, decoded, cmpopts.EquateApprox(0, 1e-5)); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"truncated continuation chunk", "_p~iF~ps|U_"},
		{"odd value sequence", "_p~iF"},
		{"byte below alphabet", "_p~iF~ps|U\x1f"},
		{"chunk exceeding the delta range", "________"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.encoded)
			assert.ErrorIs(t, err, ErrMalformedPolyline)
		})
	}
}

func TestDecodeOutOfRangeCoordinate(t *testing.T) {
	// A single pair whose latitude delta lands beyond 90 degrees.
	encoded := Encode([]LatLng{{Lat: 89.0, Lng: 0}})
	encoded += Encode([]LatLng{{Lat: 5.0, Lng: 0}})

	_, err := Decode(encoded)
	assert.ErrorIs(t, err, ErrMalformedPolyline)
}
