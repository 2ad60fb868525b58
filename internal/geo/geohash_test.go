package geo

import (
	"math"
	"strings"
	"testing"
)

func TestEncodeMatchesReferenceValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		lat, lon  float64
		precision int
		want      string
	}{
		{37.8, -122.4, 5, "9q8zn"},
		{37.8, -122.4, 12, "9q8zn9r0cq8z"},
		{39.1911, -120.2356, 5, "9qfqz"},
		{39.1911, -120.2356, 12, "9qfqzyx0eqw9"},
		{0, 0, 5, "7zzzz"},
		{90, 180, 3, "zzz"},
		{-90, -180, 3, "000"},
	}
	for _, tc := range cases {
		if got := Encode(tc.lat, tc.lon, tc.precision); got != tc.want {
			t.Errorf("Encode(%v, %v, %d) = %q, want %q", tc.lat, tc.lon, tc.precision, got, tc.want)
		}
	}
}

func TestCoarseHashIsPrefixOfFineHash(t *testing.T) {
	t.Parallel()

	coords := [][2]float64{
		{37.8, -122.4},
		{39.1911, -120.2356},
		{-33.8688, 151.2093},
		{64.1466, -21.9426},
	}
	for _, c := range coords {
		h12 := Encode(c[0], c[1], 12)
		h5 := Encode(c[0], c[1], 5)
		if !strings.HasPrefix(h12, h5) {
			t.Errorf("precision-5 hash %q is not a prefix of %q", h5, h12)
		}
	}
}

func TestDecodeRoundTripWithinErrorBounds(t *testing.T) {
	t.Parallel()

	lat, lon := 39.1911, -120.2356
	hash := Encode(lat, lon, 12)

	gotLat, gotLon, latErr, lonErr, err := DecodeExactly(hash)
	if err != nil {
		t.Fatalf("DecodeExactly: %v", err)
	}
	// A 12-character cell is roughly 3.7cm; the center must sit within the
	// reported margins of the input point.
	if math.Abs(gotLat-lat) > latErr {
		t.Errorf("lat %v outside ±%v of %v", gotLat, latErr, lat)
	}
	if math.Abs(gotLon-lon) > lonErr {
		t.Errorf("lon %v outside ±%v of %v", gotLon, lonErr, lon)
	}
	if latErr > 1e-6 || lonErr > 1e-6 {
		t.Errorf("error margins too wide for 12 chars: %v, %v", latErr, lonErr)
	}
}

func TestDecodeRejectsInvalidAlphabet(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"9q8za", "9q8zi", "9q8zl", "9q8zo"} {
		if _, _, _, _, err := DecodeExactly(bad); err == nil {
			t.Errorf("DecodeExactly(%q) accepted an excluded character", bad)
		}
	}
}
