package repository

import (
	"context"
	"time"

	"github.com/nordvolt/voltra/internal/price/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) FindByCharge(ctx context.Context, db *gorm.DB, chargeID, ownerGLN string) (*domain.Price, error) {
	var price domain.Price
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM prices WHERE charge_id = ? AND owner_gln = ? LIMIT 1`,
			chargeID, ownerGLN).
		Scan(&price).Error
	if err != nil {
		return nil, err
	}
	if price.ID == 0 {
		return nil, nil
	}
	return &price, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Price, error) {
	var price domain.Price
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM prices WHERE id = ? LIMIT 1`, id).
		Scan(&price).Error
	if err != nil {
		return nil, err
	}
	if price.ID == 0 {
		return nil, nil
	}
	return &price, nil
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, price *domain.Price) error {
	return db.WithContext(ctx).Create(price).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, price *domain.Price) error {
	price.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(price).Error
}

func (r *repo) DeletePointsInRange(ctx context.Context, db *gorm.DB, priceID int64, start, end time.Time) error {
	return db.WithContext(ctx).
		Exec(`DELETE FROM price_points WHERE price_id = ? AND timestamp >= ? AND timestamp < ?`,
			priceID, start, end).Error
}

func (r *repo) DeleteAllPoints(ctx context.Context, db *gorm.DB, priceID int64) error {
	return db.WithContext(ctx).
		Exec(`DELETE FROM price_points WHERE price_id = ?`, priceID).Error
}

func (r *repo) InsertPoints(ctx context.Context, db *gorm.DB, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(points, 500).Error
}

func (r *repo) FindPointAtOrBefore(ctx context.Context, db *gorm.DB, priceID int64, at time.Time) (*domain.PricePoint, error) {
	var point domain.PricePoint
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM price_points
		     WHERE price_id = ? AND timestamp <= ?
		     ORDER BY timestamp DESC LIMIT 1`,
			priceID, at).
		Scan(&point).Error
	if err != nil {
		return nil, err
	}
	if point.ID == 0 {
		return nil, nil
	}
	return &point, nil
}

func (r *repo) ListPointsInRange(ctx context.Context, db *gorm.DB, priceID int64, start, end time.Time) ([]domain.PricePoint, error) {
	var points []domain.PricePoint
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM price_points
		     WHERE price_id = ? AND timestamp > ? AND timestamp < ?
		     ORDER BY timestamp ASC`,
			priceID, start, end).
		Scan(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}

func (r *repo) FindLink(ctx context.Context, db *gorm.DB, priceID, meteringPointID int64, startAt time.Time) (*domain.PriceLink, error) {
	var link domain.PriceLink
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM price_links
		     WHERE price_id = ? AND metering_point_id = ? AND start_at = ? LIMIT 1`,
			priceID, meteringPointID, startAt).
		Scan(&link).Error
	if err != nil {
		return nil, err
	}
	if link.ID == 0 {
		return nil, nil
	}
	return &link, nil
}

func (r *repo) CreateLink(ctx context.Context, db *gorm.DB, link *domain.PriceLink) error {
	return db.WithContext(ctx).Create(link).Error
}

func (r *repo) UpdateLink(ctx context.Context, db *gorm.DB, link *domain.PriceLink) error {
	link.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(link).Error
}

func (r *repo) ListLinkedPrices(ctx context.Context, db *gorm.DB, meteringPointID int64, start, end time.Time) ([]domain.Price, error) {
	var prices []domain.Price
	err := db.WithContext(ctx).
		Raw(`SELECT p.* FROM prices p
		     JOIN price_links l ON l.price_id = p.id
		     WHERE l.metering_point_id = ?
		       AND l.start_at < ?
		       AND (l.end_at IS NULL OR l.end_at > ?)
		       AND p.valid_from < ?
		       AND (p.valid_to IS NULL OR p.valid_to > ?)
		     ORDER BY p.category ASC, p.charge_id ASC`,
			meteringPointID, end, start, end, start).
		Scan(&prices).Error
	if err != nil {
		return nil, err
	}
	return prices, nil
}
