package cubage

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 0.001
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil)
	if s.Total.Sum != 0 || s.Total.Count != 0 || s.Total.Avg != 0 {
		t.Fatalf("empty aggregate = %+v, want all zero", s.Total)
	}
}

func TestAggregate_ColumnsSumToTotal(t *testing.T) {
	rows := []Buckets{
		Bucket(0.120),
		Bucket(0.251),
		Bucket(0.310),
		Bucket(0.785),
		Bucket(0.100),
		Bucket(1.420),
	}
	s := Aggregate(rows)

	if !almostEqual(s.BelowV1.Sum+s.BetweenV.Sum+s.AboveV2.Sum, s.Total.Sum) {
		t.Fatalf("column sums %v+%v+%v do not match total %v",
			s.BelowV1.Sum, s.BetweenV.Sum, s.AboveV2.Sum, s.Total.Sum)
	}
	if s.BelowV1.Count+s.BetweenV.Count+s.AboveV2.Count != s.Total.Count {
		t.Fatalf("column counts do not match total count %d", s.Total.Count)
	}
	if s.Total.Count != len(rows) {
		t.Fatalf("total count = %d, want %d", s.Total.Count, len(rows))
	}
}

func TestAggregate_AvgSemantics(t *testing.T) {
	rows := []Buckets{Bucket(0.1), Bucket(0.2)}
	s := Aggregate(rows)

	if want := Round3(s.BelowV1.Sum / 2); s.BelowV1.Avg != want {
		t.Fatalf("below avg = %v, want %v", s.BelowV1.Avg, want)
	}
	if s.BetweenV.Avg != 0 || s.AboveV2.Avg != 0 {
		t.Fatalf("empty bands must average 0, got %+v", s)
	}
}

func TestProportionalRedistribution(t *testing.T) {
	rows := []Buckets{
		Bucket(0.100), // below
		Bucket(0.300), // between
		Bucket(0.600), // above
	}
	base := Aggregate(rows)
	redistributed := ProportionalRedistribution{}.Apply(base)

	if redistributed.BelowV1.Sum != 0 || redistributed.BelowV1.Count != 0 {
		t.Fatalf("below band should be emptied, got %+v", redistributed.BelowV1)
	}
	if !almostEqual(redistributed.Total.Sum, base.Total.Sum) {
		t.Fatalf("total %v changed from %v", redistributed.Total.Sum, base.Total.Sum)
	}
	// 0.1 spread over 0.3:0.6 adds 0.033 and 0.067.
	if !almostEqual(redistributed.BetweenV.Sum, 0.333) {
		t.Fatalf("between sum = %v, want ≈0.333", redistributed.BetweenV.Sum)
	}
	if !almostEqual(redistributed.AboveV2.Sum, 0.667) {
		t.Fatalf("above sum = %v, want ≈0.667", redistributed.AboveV2.Sum)
	}
}

func TestProportionalRedistribution_NothingToMove(t *testing.T) {
	base := Aggregate([]Buckets{Bucket(0.300), Bucket(0.700)})
	if got := (ProportionalRedistribution{}).Apply(base); got != base {
		t.Fatalf("redistribution with empty below band changed stats: %+v", got)
	}
}

func TestPolicyFor(t *testing.T) {
	if PolicyFor("Moulin") == nil {
		t.Fatal("expected a policy for Moulin")
	}
	if PolicyFor(" moulin ") == nil {
		t.Fatal("expected name match to ignore case and spacing")
	}
	if PolicyFor("autre scierie") != nil {
		t.Fatal("expected no policy for an unknown scierie")
	}
}
