package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/Angellovem/biocredits-calc/internal/domain"
)

// Store serves land plots and observations from the registry database and
// persists run results back into it.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to the registry database and migrates the result tables.
// The input tables are owned by the registry and never migrated here.
func Open(dsn string, log *slog.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.AutoMigrate(&dailyUnionRecord{}, &creditScoreRecord{}, &logRecord{}); err != nil {
		return nil, fmt.Errorf("migrate result tables: %w", err)
	}

	return &Store{db: db, logger: log}, nil
}

// FetchPlots loads every land plot. Rows with an unreadable boundary are
// passed through with a nil geometry so normalization reports them instead
// of the whole fetch failing.
func (s *Store) FetchPlots(ctx context.Context) ([]domain.RawPlot, error) {
	var records []plotRecord
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("select land plots: %w", err)
	}

	raws := make([]domain.RawPlot, 0, len(records))
	for _, rec := range records {
		raw, err := toRawPlot(rec)
		if err != nil {
			s.logger.Warn("unreadable plot boundary", "plot_id", rec.PlotID, "error", err)
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

// FetchObservations loads scored observations with a positive accuracy
// radius recorded since the given time.
func (s *Store) FetchObservations(ctx context.Context, since time.Time) ([]domain.RawObservation, error) {
	var records []observationRecord
	err := s.db.WithContext(ctx).
		Where("radius > 0 AND score > 0 AND eco_date >= ?", since).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("select observations: %w", err)
	}

	raws := make([]domain.RawObservation, 0, len(records))
	for _, rec := range records {
		raws = append(raws, toRawObservation(rec))
	}
	return raws, nil
}

// StoreDailyUnions upserts coverage records keyed by (plot, day).
func (s *Store) StoreDailyUnions(ctx context.Context, unions []domain.DailyUnion) error {
	if len(unions) == 0 {
		return nil
	}

	records := make([]dailyUnionRecord, 0, len(unions))
	for _, du := range unions {
		rec, err := fromDailyUnion(du)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plot_id"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{"area_m2", "observations", "covered"}),
	}).CreateInBatches(records, 200).Error
}

// StoreScores upserts one credit score per plot.
func (s *Store) StoreScores(ctx context.Context, scores []domain.CreditScore) error {
	if len(scores) == 0 {
		return nil
	}

	records := make([]creditScoreRecord, 0, len(scores))
	for _, score := range scores {
		records = append(records, fromCreditScore(score))
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "plot_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"project_id", "certifier_id", "credited_area_m2", "weighted_credit",
			"days", "from_day", "to_day", "run_id", "computed_at",
		}),
	}).CreateInBatches(records, 200).Error
}

// ClearResults empties both result tables.
func (s *Store) ClearResults(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Exec("DELETE FROM daily_unions").Error; err != nil {
		return fmt.Errorf("clear daily unions: %w", err)
	}
	if err := s.db.WithContext(ctx).Exec("DELETE FROM credit_scores").Error; err != nil {
		return fmt.Errorf("clear credit scores: %w", err)
	}
	return nil
}

// LogEntry appends one audit log row.
func (s *Store) LogEntry(ctx context.Context, event, info string) error {
	rec := logRecord{Event: event, Info: info, CreatedAt: domain.Now()}
	return s.db.WithContext(ctx).Create(&rec).Error
}
