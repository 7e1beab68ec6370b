package postgres

import (
	"time"
)

// plotRecord mirrors the registry's land_plots table.
type plotRecord struct {
	PlotID          string  `gorm:"column:plot_id;primaryKey"`
	Boundary        []byte  `gorm:"column:boundary;type:jsonb"`
	CRS             string  `gorm:"column:crs"`
	POD             string  `gorm:"column:pod"`
	ProjectID       string  `gorm:"column:project_id"`
	CertifierID     string  `gorm:"column:certifier_id"`
	CertifiedAreaHa float64 `gorm:"column:certified_area_ha"`
}

func (plotRecord) TableName() string { return "land_plots" }

// observationRecord mirrors the registry's eco_observations table.
type observationRecord struct {
	EcoID       string    `gorm:"column:eco_id;primaryKey"`
	Lat         float64   `gorm:"column:lat"`
	Long        float64   `gorm:"column:long"`
	EcoDate     time.Time `gorm:"column:eco_date"`
	Radius      float64   `gorm:"column:radius"`
	Score       float64   `gorm:"column:score"`
	NameCommon  string    `gorm:"column:name_common"`
	NameLatin   string    `gorm:"column:name_latin"`
	CertifierID string    `gorm:"column:certifier_id"`
	INaturalist string    `gorm:"column:inaturalist"`
}

func (observationRecord) TableName() string { return "eco_observations" }

// dailyUnionRecord is one (plot, day) coverage result.
type dailyUnionRecord struct {
	PlotID       string    `gorm:"column:plot_id;primaryKey"`
	Day          time.Time `gorm:"column:day;primaryKey"`
	AreaM2       float64   `gorm:"column:area_m2"`
	Observations int       `gorm:"column:observations"`
	Covered      []byte    `gorm:"column:covered;type:jsonb"`
}

func (dailyUnionRecord) TableName() string { return "daily_unions" }

// creditScoreRecord is the accumulated score for one plot.
type creditScoreRecord struct {
	PlotID         string    `gorm:"column:plot_id;primaryKey"`
	ProjectID      string    `gorm:"column:project_id"`
	CertifierID    string    `gorm:"column:certifier_id"`
	CreditedAreaM2 float64   `gorm:"column:credited_area_m2"`
	WeightedCredit float64   `gorm:"column:weighted_credit"`
	Days           int       `gorm:"column:days"`
	FromDay        time.Time `gorm:"column:from_day"`
	ToDay          time.Time `gorm:"column:to_day"`
	RunID          string    `gorm:"column:run_id"`
	ComputedAt     time.Time `gorm:"column:computed_at"`
}

func (creditScoreRecord) TableName() string { return "credit_scores" }

// logRecord is one audit log line for a scoring run.
type logRecord struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Event     string    `gorm:"column:event"`
	Info      string    `gorm:"column:info"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (logRecord) TableName() string { return "calculation_logs" }
