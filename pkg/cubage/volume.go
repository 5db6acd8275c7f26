// Package cubage implements the volume and statistics engine for log
// measurements. Everything here is pure: no I/O, no state, and the same
// inputs always produce the same 3-decimal rounded outputs, so results are
// identical whether computed server-side or rebuilt from the local cache.
package cubage

import (
	"errors"
	"fmt"
	"math"
)

// Volume thresholds in m³ separating the three billing bands.
const (
	ThresholdV1 = 0.250
	ThresholdV2 = 0.500
)

// ErrValidation marks malformed numeric input. It is returned (wrapped)
// before anything reaches the store or the gateway.
var ErrValidation = errors.New("invalid measurement input")

// Round3 rounds to 3 decimal places, half away from zero. All volumes are
// rounded this way exactly once, just before storage.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// ValidateDimensions rejects non-positive or non-finite length/diameter
// input. Callers run it before anything touches the store or the gateway.
func ValidateDimensions(lengthM, diameterCm float64) error {
	if math.IsNaN(lengthM) || math.IsInf(lengthM, 0) ||
		math.IsNaN(diameterCm) || math.IsInf(diameterCm, 0) {
		return fmt.Errorf("%w: non-finite length or diameter", ErrValidation)
	}
	if lengthM <= 0 {
		return fmt.Errorf("%w: length must be > 0, got %v", ErrValidation, lengthM)
	}
	if diameterCm <= 0 {
		return fmt.Errorf("%w: diameter must be > 0, got %v", ErrValidation, diameterCm)
	}
	return nil
}

// NetVolume computes the net volume in m³ of a log from its length in
// meters, diameter in centimeters and bark percentage:
//
//	π · (d/200)² · L · (1 - bark/100)
//
// The result is rounded to 3 decimals.
func NetVolume(lengthM, diameterCm, barkPercent float64) (float64, error) {
	if err := ValidateDimensions(lengthM, diameterCm); err != nil {
		return 0, err
	}
	if math.IsNaN(barkPercent) || math.IsInf(barkPercent, 0) || barkPercent < 0 || barkPercent > 100 {
		return 0, fmt.Errorf("%w: bark percent must be in [0,100], got %v", ErrValidation, barkPercent)
	}
	r := diameterCm / 200 // radius in meters
	v := math.Pi * r * r * lengthM * (1 - barkPercent/100)
	return Round3(v), nil
}

// netVolumeRaw is NetVolume without the final rounding. Bucket selection
// compares against this value; only the stored value is rounded.
func netVolumeRaw(lengthM, diameterCm, barkPercent float64) float64 {
	r := diameterCm / 200
	return math.Pi * r * r * lengthM * (1 - barkPercent/100)
}

// RawVolume computes the gross volume in m³ for the four measurement modes.
// dCm is a diameter by default, or a circumference when circumferenceMode is
// set. quarterGirthMode applies the quarter-girth ("quart sans déduction")
// convention. Rounded to 3 decimals.
func RawVolume(lengthM, dCm float64, circumferenceMode, quarterGirthMode bool) (float64, error) {
	if err := ValidateDimensions(lengthM, dCm); err != nil {
		return 0, err
	}
	d2l := dCm * dCm * lengthM
	var v float64
	switch {
	case !circumferenceMode && !quarterGirthMode:
		v = math.Pi * d2l / 40000
	case !circumferenceMode && quarterGirthMode:
		v = math.Pi * math.Pi * d2l / 160000
	case circumferenceMode && !quarterGirthMode:
		v = d2l / (math.Pi * 40000)
	default:
		v = d2l / 160000
	}
	return Round3(v), nil
}

// Buckets holds a volume split across the three threshold bands. Exactly one
// field is nonzero for a single log.
type Buckets struct {
	Below   float64 // volume < V1
	Between float64 // V1 <= volume < V2
	Above   float64 // volume >= V2
}

// Bucket places a net volume into its band. The comparison uses the value as
// given (callers pass the unrounded volume); the stored field is rounded.
func Bucket(volumeNet float64) Buckets {
	rounded := Round3(volumeNet)
	switch {
	case volumeNet < ThresholdV1:
		return Buckets{Below: rounded}
	case volumeNet < ThresholdV2:
		return Buckets{Between: rounded}
	default:
		return Buckets{Above: rounded}
	}
}

// Measure computes the net volume and its bucket split in one step, keeping
// the unrounded value for threshold comparison.
func Measure(lengthM, diameterCm, barkPercent float64) (float64, Buckets, error) {
	v, err := NetVolume(lengthM, diameterCm, barkPercent)
	if err != nil {
		return 0, Buckets{}, err
	}
	return v, Bucket(netVolumeRaw(lengthM, diameterCm, barkPercent)), nil
}
