package domain

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// UnionGroup computes the deduplicated covered area of one (plot, day)
// group. All member disks are merged in a single clipping pass, so the
// result does not depend on member order. An empty member list yields a
// zero-area record, which is still a record: downstream consumers must be
// able to tell "observed, zero credit" from "no observation".
func UnionGroup(key GroupKey, members []BufferedObservation, plot Plot, params Params) (DailyUnion, error) {
	du := DailyUnion{
		PlotID:       key.PlotID,
		Day:          key.Day,
		Covered:      orb.MultiPolygon{},
		Observations: len(members),
	}
	if len(members) == 0 {
		return du, nil
	}

	disks := make([]orb.MultiPolygon, 0, len(members))
	for _, m := range members {
		disks = append(disks, m.Disk)
	}

	merged, err := unionGeoms(disks)
	if err != nil {
		return DailyUnion{}, &GroupError{Key: key, Err: err}
	}

	area := planar.Area(merged)
	// Members are clipped to the plot before they get here, so any excess
	// over the plot area is floating-point noise from the merge.
	if area > plot.Area {
		area = plot.Area
	}
	if area < params.NegligibleArea {
		area = 0
	}

	du.Covered = merged
	du.Area = area
	return du, nil
}

// Aggregate runs UnionGroup over every group sequentially and collects
// per-group failures without aborting siblings. The pipeline fans the same
// per-group call out across workers; this form serves tools and tests.
func Aggregate(groups map[GroupKey][]BufferedObservation, plots map[string]Plot, params Params) (map[GroupKey]DailyUnion, []GroupError) {
	unions := make(map[GroupKey]DailyUnion, len(groups))
	var failures []GroupError

	for key, members := range groups {
		plot, ok := plots[key.PlotID]
		if !ok {
			failures = append(failures, GroupError{Key: key, Err: &GeometryError{FeatureID: key.PlotID, Reason: "unknown plot"}})
			continue
		}
		du, err := UnionGroup(key, members, plot, params)
		if err != nil {
			var ge *GroupError
			if errors.As(err, &ge) {
				failures = append(failures, *ge)
			} else {
				failures = append(failures, GroupError{Key: key, Err: err})
			}
			continue
		}
		unions[key] = du
	}
	return unions, failures
}
