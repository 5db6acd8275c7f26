package cubage

import (
	"errors"
	"math"
	"testing"
)

func TestNetVolume_ExampleScenario(t *testing.T) {
	// 7.5m x 22cm at 12% bark: raw ≈ 0.2851, net ≈ 0.2508 → 0.251 stored.
	v, err := NetVolume(7.5, 22, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0.251 {
		t.Fatalf("net volume = %v, want 0.251", v)
	}

	b := Bucket(netVolumeRaw(7.5, 22, 12))
	if b.Between != 0.251 || b.Below != 0 || b.Above != 0 {
		t.Fatalf("bucket = %+v, want between=0.251 only", b)
	}
}

func TestNetVolume_LargeLog(t *testing.T) {
	// 4m x 50cm, no bark: ≈ 0.785 → ge bucket.
	v, err := NetVolume(4, 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0.785 {
		t.Fatalf("net volume = %v, want 0.785", v)
	}
	b := Bucket(v)
	if b.Above != 0.785 || b.Below != 0 || b.Between != 0 {
		t.Fatalf("bucket = %+v, want above only", b)
	}
}

func TestNetVolume_Deterministic(t *testing.T) {
	first, err := NetVolume(3.17, 28.4, 9.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := NetVolume(3.17, 28.4, 9.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("same input produced %v then %v", first, second)
	}
}

func TestNetVolume_Validation(t *testing.T) {
	cases := []struct {
		name               string
		length, diam, bark float64
	}{
		{"zero length", 0, 20, 10},
		{"negative length", -1, 20, 10},
		{"zero diameter", 4, 0, 10},
		{"negative diameter", 4, -5, 10},
		{"bark below range", 4, 20, -1},
		{"bark above range", 4, 20, 101},
		{"nan length", math.NaN(), 20, 10},
		{"inf diameter", 4, math.Inf(1), 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NetVolume(tc.length, tc.diam, tc.bark)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRawVolume_Modes(t *testing.T) {
	const l, d = 5.0, 40.0
	cases := []struct {
		name          string
		circ, quarter bool
		want          float64
	}{
		{"diameter", false, false, Round3(math.Pi * d * d * l / 40000)},
		{"diameter quarter", false, true, Round3(math.Pi * math.Pi * d * d * l / 160000)},
		{"circumference", true, false, Round3(d * d * l / (math.Pi * 40000))},
		{"circumference quarter", true, true, Round3(d * d * l / 160000)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RawVolume(l, d, tc.circ, tc.quarter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("volume = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBucket_Exclusivity(t *testing.T) {
	for _, v := range []float64{0.001, 0.1, 0.2499, 0.25, 0.3, 0.4999, 0.5, 0.9, 2.4} {
		b := Bucket(v)
		nonzero := 0
		var stored float64
		for _, field := range []float64{b.Below, b.Between, b.Above} {
			if field != 0 {
				nonzero++
				stored = field
			}
		}
		if nonzero != 1 {
			t.Fatalf("volume %v: %d nonzero bucket fields, want exactly 1", v, nonzero)
		}
		if stored != Round3(v) {
			t.Fatalf("volume %v: stored %v, want %v", v, stored, Round3(v))
		}
	}
}

func TestBucket_ThresholdsUseUnroundedValue(t *testing.T) {
	// 0.2504 rounds to 0.250 but the unrounded value sits above V1, so the
	// row belongs to the middle band.
	b := Bucket(0.2504)
	if b.Between != 0.250 {
		t.Fatalf("bucket = %+v, want between=0.250", b)
	}

	// Just under V1 stays in the low band even though it rounds to 0.250.
	b = Bucket(0.2499)
	if b.Below != 0.250 {
		t.Fatalf("bucket = %+v, want below=0.250", b)
	}
}

func TestMeasure_BucketMatchesVolume(t *testing.T) {
	v, b, err := Measure(7.5, 22, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum := b.Below + b.Between + b.Above; sum != v {
		t.Fatalf("bucket sum %v != net volume %v", sum, v)
	}
}
