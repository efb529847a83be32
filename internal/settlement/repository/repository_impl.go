package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nordvolt/voltra/internal/settlement/domain"
	tsdomain "github.com/nordvolt/voltra/internal/timeseries/domain"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) Create(ctx context.Context, db *gorm.DB, settlement *domain.Settlement) error {
	return db.WithContext(ctx).Create(settlement).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, settlement *domain.Settlement) error {
	settlement.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(settlement).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Settlement, error) {
	var settlement domain.Settlement
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM settlements WHERE id = ? LIMIT 1`, id).
		Scan(&settlement).Error
	if err != nil {
		return nil, err
	}
	if settlement.ID == 0 {
		return nil, nil
	}
	return &settlement, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Settlement, error) {
	q := db.WithContext(ctx).Model(&domain.Settlement{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.MeteringPointID != 0 {
		q = q.Where("metering_point_id = ?", filter.MeteringPointID)
	}
	if filter.IsCorrection != nil {
		q = q.Where("is_correction = ?", *filter.IsCorrection)
	}
	if !filter.PeriodFrom.IsZero() {
		q = q.Where("period_start >= ?", filter.PeriodFrom)
	}
	if !filter.PeriodTo.IsZero() {
		q = q.Where("period_start < ?", filter.PeriodTo)
	}
	if filter.CursorID != 0 {
		if filter.OldestFirst {
			q = q.Where("id > ?", filter.CursorID)
		} else {
			q = q.Where("id < ?", filter.CursorID)
		}
	}
	if filter.OldestFirst {
		q = q.Order("id ASC")
	} else {
		q = q.Order("id DESC")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var settlements []domain.Settlement
	return settlements, q.Find(&settlements).Error
}

func (r *repo) InsertLines(ctx context.Context, db *gorm.DB, lines []domain.SettlementLine) error {
	if len(lines) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(lines, 500).Error
}

func (r *repo) ListLines(ctx context.Context, db *gorm.DB, settlementID int64) ([]domain.SettlementLine, error) {
	var lines []domain.SettlementLine
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM settlement_lines WHERE settlement_id = ? ORDER BY position ASC`,
			settlementID).
		Scan(&lines).Error
	return lines, err
}

func (r *repo) FindForPeriod(ctx context.Context, db *gorm.DB, meteringPointID int64, periodStart time.Time) ([]domain.Settlement, error) {
	var settlements []domain.Settlement
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM settlements
		     WHERE metering_point_id = ? AND period_start = ?
		     ORDER BY id ASC`,
			meteringPointID, periodStart).
		Scan(&settlements).Error
	return settlements, err
}

const candidateFilter = `
	ts.is_latest = true
	AND NOT EXISTS (
		SELECT 1 FROM settlements st
		WHERE st.time_series_id = ts.id AND st.time_series_version = ts.version
	)
	AND NOT EXISTS (
		SELECT 1 FROM settlements st
		WHERE st.metering_point_id = ts.metering_point_id
		  AND st.period_start = ts.period_start
		  AND st.status = ?
	)`

func (r *repo) FindCandidates(ctx context.Context, db *gorm.DB, limit int) ([]tsdomain.TimeSeries, error) {
	var series []tsdomain.TimeSeries
	err := db.WithContext(ctx).
		Raw(`SELECT ts.* FROM time_series ts WHERE `+candidateFilter+`
		     ORDER BY ts.received_at ASC, ts.id ASC
		     LIMIT ?`,
			domain.StatusCalculated, limit).
		Scan(&series).Error
	return series, err
}

func (r *repo) CountCandidates(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM time_series ts WHERE `+candidateFilter,
			domain.StatusCalculated).
		Scan(&count).Error
	return count, err
}

// NextDocumentNumber advances the yearly sequence inside the caller's
// transaction. The update locks the row, so two settlements persisted
// concurrently cannot draw the same number.
func (r *repo) NextDocumentNumber(ctx context.Context, db *gorm.DB, year int) (int64, error) {
	err := db.WithContext(ctx).
		Exec(`INSERT INTO document_sequences (year, last_value) VALUES (?, 0)
		      ON CONFLICT (year) DO NOTHING`, year).Error
	if err != nil {
		return 0, err
	}
	err = db.WithContext(ctx).
		Exec(`UPDATE document_sequences SET last_value = last_value + 1 WHERE year = ?`, year).Error
	if err != nil {
		return 0, err
	}
	var value int64
	err = db.WithContext(ctx).
		Raw(`SELECT last_value FROM document_sequences WHERE year = ?`, year).
		Scan(&value).Error
	return value, err
}

func (r *repo) FindIssueByID(ctx context.Context, db *gorm.DB, id int64) (*domain.SettlementIssue, error) {
	var issue domain.SettlementIssue
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM settlement_issues WHERE id = ? LIMIT 1`, id).
		Scan(&issue).Error
	if err != nil {
		return nil, err
	}
	if issue.ID == 0 {
		return nil, nil
	}
	return &issue, nil
}

func (r *repo) FindOpenIssue(ctx context.Context, db *gorm.DB, meteringPointID, timeSeriesID int64, version int) (*domain.SettlementIssue, error) {
	var issue domain.SettlementIssue
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM settlement_issues
		     WHERE metering_point_id = ? AND time_series_id = ? AND time_series_version = ? AND status = ?
		     LIMIT 1`,
			meteringPointID, timeSeriesID, version, domain.IssueStatusOpen).
		Scan(&issue).Error
	if err != nil {
		return nil, err
	}
	if issue.ID == 0 {
		return nil, nil
	}
	return &issue, nil
}

func (r *repo) CreateIssue(ctx context.Context, db *gorm.DB, issue *domain.SettlementIssue) error {
	return db.WithContext(ctx).Create(issue).Error
}

func (r *repo) UpdateIssue(ctx context.Context, db *gorm.DB, issue *domain.SettlementIssue) error {
	issue.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(issue).Error
}

func (r *repo) ResolveOpenIssues(ctx context.Context, db *gorm.DB, meteringPointID int64, periodStart time.Time, at time.Time) error {
	return db.WithContext(ctx).
		Exec(`UPDATE settlement_issues
		      SET status = ?, resolved_at = ?, updated_at = ?
		      WHERE metering_point_id = ? AND period_start = ? AND status = ?`,
			domain.IssueStatusResolved, at, at, meteringPointID, periodStart, domain.IssueStatusOpen).Error
}

func (r *repo) ListIssues(ctx context.Context, db *gorm.DB, filter domain.IssueFilter) ([]domain.SettlementIssue, error) {
	q := db.WithContext(ctx).Model(&domain.SettlementIssue{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.MeteringPointID != 0 {
		q = q.Where("metering_point_id = ?", filter.MeteringPointID)
	}
	q = q.Order("id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var issues []domain.SettlementIssue
	return issues, q.Find(&issues).Error
}
