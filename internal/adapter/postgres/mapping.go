package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/Angellovem/biocredits-calc/internal/domain"
)

func toRawPlot(rec plotRecord) (domain.RawPlot, error) {
	raw := domain.RawPlot{
		ID:            rec.PlotID,
		SourceRef:     rec.CRS,
		POD:           rec.POD,
		ProjectID:     rec.ProjectID,
		CertifierID:   rec.CertifierID,
		CertifiedArea: rec.CertifiedAreaHa,
	}
	if raw.SourceRef == "" {
		raw.SourceRef = domain.RefWGS84
	}
	if len(rec.Boundary) == 0 {
		return raw, fmt.Errorf("plot %s has no boundary", rec.PlotID)
	}

	geom, err := geojson.UnmarshalGeometry(rec.Boundary)
	if err != nil {
		return raw, fmt.Errorf("plot %s boundary: %w", rec.PlotID, err)
	}
	raw.Boundary = geom.Geometry()
	return raw, nil
}

func toRawObservation(rec observationRecord) domain.RawObservation {
	return domain.RawObservation{
		ID:          rec.EcoID,
		Point:       orb.Point{rec.Long, rec.Lat},
		SourceRef:   domain.RefWGS84,
		Date:        rec.EcoDate,
		Radius:      rec.Radius,
		Score:       rec.Score,
		CommonName:  rec.NameCommon,
		LatinName:   rec.NameLatin,
		CertifierID: rec.CertifierID,
		ExternalRef: rec.INaturalist,
	}
}

func fromDailyUnion(du domain.DailyUnion) (dailyUnionRecord, error) {
	covered, err := json.Marshal(geojson.NewGeometry(du.Covered))
	if err != nil {
		return dailyUnionRecord{}, fmt.Errorf("union %s/%s geometry: %w", du.PlotID, du.Day, err)
	}
	return dailyUnionRecord{
		PlotID:       du.PlotID,
		Day:          du.Day.Time(),
		AreaM2:       du.Area,
		Observations: du.Observations,
		Covered:      covered,
	}, nil
}

func fromCreditScore(s domain.CreditScore) creditScoreRecord {
	return creditScoreRecord{
		PlotID:         s.PlotID,
		ProjectID:      s.ProjectID,
		CertifierID:    s.CertifierID,
		CreditedAreaM2: s.CreditedArea,
		WeightedCredit: s.WeightedCredit,
		Days:           s.Days,
		FromDay:        s.From.Time(),
		ToDay:          s.To.Time(),
		RunID:          s.RunID,
		ComputedAt:     s.ComputedAt,
	}
}
