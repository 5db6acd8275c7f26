package cubage

import "strings"

// RedistributionPolicy adjusts aggregated stats for sawyer-specific billing
// conventions. Implementations are selected by name so call sites never
// branch on a scierie string themselves.
type RedistributionPolicy interface {
	Name() string
	Apply(s Stats) Stats
}

// ProportionalRedistribution moves the below-V1 band's volume into the two
// upper bands, proportionally to their sums. The combined total is preserved.
// Used for sawyers that do not bill the small band separately.
type ProportionalRedistribution struct{}

func (ProportionalRedistribution) Name() string { return "moulin" }

func (ProportionalRedistribution) Apply(s Stats) Stats {
	moved := s.BelowV1.Sum
	upper := s.BetweenV.Sum + s.AboveV2.Sum
	if moved == 0 || upper == 0 {
		return s
	}
	out := s
	out.BelowV1 = ColumnStats{}
	out.BetweenV.Sum = Round3(s.BetweenV.Sum + moved*(s.BetweenV.Sum/upper))
	out.AboveV2.Sum = Round3(s.AboveV2.Sum + moved*(s.AboveV2.Sum/upper))
	finishColumn(&out.BetweenV)
	finishColumn(&out.AboveV2)
	out.Total.Sum = Round3(out.BetweenV.Sum + out.AboveV2.Sum)
	out.Total.Count = out.BetweenV.Count + out.AboveV2.Count
	if out.Total.Count > 0 {
		out.Total.Avg = Round3(out.Total.Sum / float64(out.Total.Count))
	} else {
		out.Total.Avg = 0
	}
	return out
}

// PolicyFor returns the redistribution policy for a scierie name, or nil
// when the standard three-band stats apply.
func PolicyFor(scierie string) RedistributionPolicy {
	if strings.EqualFold(strings.TrimSpace(scierie), "moulin") {
		return ProportionalRedistribution{}
	}
	return nil
}
