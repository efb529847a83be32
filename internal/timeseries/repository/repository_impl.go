package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/nordvolt/voltra/internal/timeseries/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.TimeSeries, error) {
	var series domain.TimeSeries
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM time_series WHERE id = ? LIMIT 1`, id).
		Scan(&series).Error
	if err != nil {
		return nil, err
	}
	if series.ID == 0 {
		return nil, nil
	}
	return &series, nil
}

func (r *repo) FindLatest(ctx context.Context, db *gorm.DB, meteringPointID int64, periodStart time.Time) (*domain.TimeSeries, error) {
	var series domain.TimeSeries
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM time_series
		     WHERE metering_point_id = ? AND period_start = ? AND is_latest
		     LIMIT 1`,
			meteringPointID, periodStart).
		Scan(&series).Error
	if err != nil {
		return nil, err
	}
	if series.ID == 0 {
		return nil, nil
	}
	return &series, nil
}

func (r *repo) MaxVersion(ctx context.Context, db *gorm.DB, meteringPointID int64, periodStart time.Time) (int, error) {
	var version sql.NullInt64
	err := db.WithContext(ctx).
		Raw(`SELECT MAX(version) FROM time_series WHERE metering_point_id = ? AND period_start = ?`,
			meteringPointID, periodStart).
		Scan(&version).Error
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

func (r *repo) ClearLatest(ctx context.Context, db *gorm.DB, meteringPointID int64, periodStart time.Time) error {
	return db.WithContext(ctx).
		Exec(`UPDATE time_series SET is_latest = ? WHERE metering_point_id = ? AND period_start = ? AND is_latest`,
			false, meteringPointID, periodStart).Error
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, series *domain.TimeSeries) error {
	return db.WithContext(ctx).Create(series).Error
}

func (r *repo) InsertObservations(ctx context.Context, db *gorm.DB, observations []domain.Observation) error {
	if len(observations) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(observations, 500).Error
}

func (r *repo) ListObservations(ctx context.Context, db *gorm.DB, timeSeriesID int64) ([]domain.Observation, error) {
	var observations []domain.Observation
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM observations WHERE time_series_id = ? ORDER BY timestamp ASC`,
			timeSeriesID).
		Scan(&observations).Error
	if err != nil {
		return nil, err
	}
	return observations, nil
}

func (r *repo) ListVersions(ctx context.Context, db *gorm.DB, meteringPointID int64, periodStart time.Time) ([]domain.TimeSeries, error) {
	var versions []domain.TimeSeries
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM time_series
		     WHERE metering_point_id = ? AND period_start = ?
		     ORDER BY version ASC`,
			meteringPointID, periodStart).
		Scan(&versions).Error
	if err != nil {
		return nil, err
	}
	return versions, nil
}
