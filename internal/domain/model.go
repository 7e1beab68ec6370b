package domain

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// Date is a UTC calendar day. Observations are credited per plot per day,
// so the day is the aggregation key, not the full timestamp.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates a timestamp to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return Date{Year: u.Year(), Month: u.Month(), Day: u.Day()}
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is an earlier day than other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

func (d Date) String() string {
	return d.Time().Format("2006-01-02")
}

// RawPlot is a land plot as delivered by a land source, prior to
// normalization into the working reference.
type RawPlot struct {
	ID            string
	Boundary      orb.Geometry
	SourceRef     string // coordinate reference of Boundary, e.g. "EPSG:4326"
	POD           string
	ProjectID     string
	CertifierID   string
	CertifiedArea float64 // certifier-declared area in hectares
}

// Plot is a normalized land plot. The boundary lives in the working planar
// reference with coordinates in meters; Area is in square meters.
type Plot struct {
	ID            string
	Boundary      orb.MultiPolygon
	Area          float64
	POD           string
	ProjectID     string
	CertifierID   string
	CertifiedArea float64
}

// RawObservation is a sighting record as delivered by an observation source.
type RawObservation struct {
	ID          string
	Point       orb.Point // lon/lat (or working-reference x/y, per SourceRef)
	SourceRef   string
	Date        time.Time
	Radius      float64 // positional-accuracy radius in meters
	Score       float64 // certifier confidence, 0..1
	CommonName  string
	LatinName   string
	CertifierID string
	ExternalRef string // e.g. iNaturalist record id
}

// Observation is a normalized, optionally matched sighting. Point is in the
// working reference; PlotID is empty until matching assigns one.
type Observation struct {
	ID          string
	Point       orb.Point
	Day         Date
	Radius      float64
	Score       float64
	PlotID      string
	CertifierID string
	CommonName  string
	LatinName   string
	ExternalRef string
}

// BufferedObservation is an observation expanded into its positional
// uncertainty disk, already clipped to the matched plot boundary.
type BufferedObservation struct {
	Observation
	Disk orb.MultiPolygon
	Area float64 // m², after clipping
}

// GroupKey identifies one (plot, day) aggregation group.
type GroupKey struct {
	PlotID string
	Day    Date
}

func (k GroupKey) String() string {
	return fmt.Sprintf("%s/%s", k.PlotID, k.Day)
}

// DailyUnion is the deduplicated covered area of one plot on one day.
// A zero-observation group still produces a record with Area 0 so consumers
// can tell "observed with zero credit" apart from "not observed".
type DailyUnion struct {
	PlotID       string
	Day          Date
	Covered      orb.MultiPolygon
	Area         float64 // m²
	Observations int
}

// CreditScore is the accumulated, optionally weighted, credited area for a
// plot across the observation window.
type CreditScore struct {
	PlotID         string
	ProjectID      string
	CertifierID    string
	CreditedArea   float64 // m², unweighted sum of daily union areas
	WeightedCredit float64 // Σ area × weight(plot, day)
	Days           int
	From           Date
	To             Date
	RunID          string
	ComputedAt     time.Time
}

// Weighting maps a (plot, day) pair to a credit multiplier.
type Weighting func(plotID string, day Date) float64

// UnitWeight is the default weighting: every credited square meter counts once.
func UnitWeight(string, Date) float64 { return 1.0 }

// Params holds the numeric knobs of the scoring engine. Zero values are not
// meaningful; start from DefaultParams.
type Params struct {
	// CircleSegments is the number of segments used to approximate a full
	// buffer circle. Values below 8 are raised to 8.
	CircleSegments int

	// MatchTolerance is the maximum distance in meters at which an
	// observation outside every plot still matches the nearest plot.
	// Zero disables tolerance matching.
	MatchTolerance float64

	// NegligibleArea is the clipped-buffer area in m² below which an
	// observation contributes no geometry (its group record is still kept).
	NegligibleArea float64

	// Epsilon is the relative floating-point tolerance for area invariants.
	Epsilon float64

	// UseConfidenceFactor scales the buffer radius by the observation's
	// certifier score when set.
	UseConfidenceFactor bool
}

// DefaultParams returns the engine defaults.
func DefaultParams() Params {
	return Params{
		CircleSegments: 32,
		MatchTolerance: 0,
		NegligibleArea: 1e-6,
		Epsilon:        1e-9,
	}
}
