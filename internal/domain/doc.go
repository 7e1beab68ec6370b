// Package domain implements the biocredit scoring engine: turning dated,
// geolocated biodiversity observations into per-plot credited areas and
// cumulative credit scores.
//
// # Scoring model
//
// Each observation carries a positional-accuracy radius. The engine expands
// the observation point into a disk of that radius, clips the disk to the
// boundary of the land plot the observation belongs to, and merges all disks
// of one plot on one calendar day into a single covering shape. The area of
// that shape is the day's credited area: two sightings of the same organism
// sixty meters apart credit the overlap once, never twice. Credited areas
// accumulate per plot across the observation window into the biocredit
// score, optionally weighted per certifier.
//
// # Working reference
//
// All area and distance arithmetic happens in a planar working reference: a
// spherical Lambert azimuthal equal-area projection centered on a configured
// origin (see [Projection]). Adapters deliver shapes in WGS-84 lon/lat
// ("EPSG:4326") or pre-projected ("local"); [Normalizer] rejects anything
// else with a ReferenceMismatchError.
//
// # Determinism
//
// Every stage is a pure function over immutable inputs. Unions are computed
// in a single multi-polygon clipping pass, so group results do not depend on
// member order; accumulation walks keys in sorted order, so recomputing a
// run over the same inputs reproduces the same scores. Partitioned
// recomputation (score two date ranges separately, then [MergeScores]) lands
// within floating-point tolerance of the unpartitioned result.
//
// # Failure containment
//
// Bad inputs never abort a run. An invalid boundary, a non-positive accuracy
// radius, or an unmatched observation is collected and reported while every
// unrelated plot and day completes normally. A group that cannot be unioned
// fails alone ([GroupError]); a non-finite weight fails one plot's score
// ([ScoreError]).
package domain
