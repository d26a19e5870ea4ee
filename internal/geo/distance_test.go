package geo

import (
	"math"
	"testing"
)

func TestHaversineKm_ZeroDistance(t *testing.T) {
	d := HaversineKm(10, 20, 10, 20)
	if d < 0 || d > 1e-9 {
		t.Fatalf("zero distance expected ~0, got %v", d)
	}
}

func TestHaversineKm_OneDegreeOfLatitude(t *testing.T) {
	// One degree along a meridian is 2*pi*R/360, about 111.19 km.
	want := 2 * math.Pi * EarthRadiusKm / 360
	if got := HaversineKm(0, 0, 1, 0); math.Abs(got-want) > 1e-6 {
		t.Fatalf("HaversineKm = %v, want %v", got, want)
	}
}

func TestValidCoordinates(t *testing.T) {
	if !ValidCoordinates(51.5, -0.12) || ValidCoordinates(91, 0) || ValidCoordinates(0, -181) {
		t.Fatalf("coordinate range check failed")
	}
}
