package domain

import (
	"time"
)

// MeteringPoint is the master data record for one GSRN. It is referenced by
// supplies, time series and settlements but owns none of them.
type MeteringPoint struct {
	ID                 int64      `json:"id" gorm:"primaryKey"`
	GSRN               string     `json:"gsrn" gorm:"type:varchar(18);not null;uniqueIndex:ux_metering_points_gsrn"`
	Type               string     `json:"type" gorm:"type:text;not null"`
	Category           string     `json:"category" gorm:"type:text"`
	SettlementMethod   string     `json:"settlement_method" gorm:"type:text"`
	Resolution         string     `json:"resolution" gorm:"type:text"`
	ConnectionState    string     `json:"connection_state" gorm:"type:text"`
	GridAreaCode       string     `json:"grid_area_code" gorm:"type:varchar(3);not null;index:ix_metering_points_grid_area"`
	GridCompanyGLN     string     `json:"grid_company_gln" gorm:"type:varchar(13)"`
	ReadingPeriodicity string     `json:"reading_periodicity" gorm:"type:text"`
	Street             *string    `json:"street,omitempty" gorm:"type:text"`
	BuildingNumber     *string    `json:"building_number,omitempty" gorm:"type:text"`
	PostalCode         *string    `json:"postal_code,omitempty" gorm:"type:text"`
	City               *string    `json:"city,omitempty" gorm:"type:text"`
	HasActiveSupply    bool       `json:"has_active_supply" gorm:"not null;default:false"`
	EffectiveAt        *time.Time `json:"effective_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (MeteringPoint) TableName() string { return "metering_points" }
