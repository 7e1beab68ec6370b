package domain

import "fmt"

// GeometryError marks a shape that is invalid and could not be repaired.
type GeometryError struct {
	FeatureID string
	Reason    string
	Err       error
}

func (e *GeometryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geometry %s: %s: %v", e.FeatureID, e.Reason, e.Err)
	}
	return fmt.Sprintf("geometry %s: %s", e.FeatureID, e.Reason)
}

func (e *GeometryError) Unwrap() error { return e.Err }

// InvalidAccuracyError marks an observation whose positional-accuracy radius
// cannot produce a buffer (non-positive or non-finite).
type InvalidAccuracyError struct {
	ObservationID string
	Radius        float64
}

func (e *InvalidAccuracyError) Error() string {
	return fmt.Sprintf("observation %s: invalid accuracy radius %g", e.ObservationID, e.Radius)
}

// UnmatchedObservationError records an observation that matched no plot.
// Informational: the observation is excluded from scoring but reported.
type UnmatchedObservationError struct {
	ObservationID string
	Day           Date
}

func (e *UnmatchedObservationError) Error() string {
	return fmt.Sprintf("observation %s (%s): no plot contains it", e.ObservationID, e.Day)
}

// ReferenceMismatchError marks an input shape whose coordinate reference is
// missing or not one the normalizer can resolve.
type ReferenceMismatchError struct {
	FeatureID string
	SourceRef string
}

func (e *ReferenceMismatchError) Error() string {
	if e.SourceRef == "" {
		return fmt.Sprintf("feature %s: no coordinate reference", e.FeatureID)
	}
	return fmt.Sprintf("feature %s: unresolvable coordinate reference %q", e.FeatureID, e.SourceRef)
}

// GroupError pairs a failed (plot, day) group with its cause. Sibling groups
// are unaffected by the failure.
type GroupError struct {
	Key GroupKey
	Err error
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("group %s: %v", e.Key, e.Err)
}

func (e *GroupError) Unwrap() error { return e.Err }

// ScoreError marks a plot whose score accumulation failed (e.g. a non-finite
// weight). Fatal for that plot's score only.
type ScoreError struct {
	PlotID string
	Err    error
}

func (e *ScoreError) Error() string {
	return fmt.Sprintf("score %s: %v", e.PlotID, e.Err)
}

func (e *ScoreError) Unwrap() error { return e.Err }
