package domain

import (
	"time"
)

// CREATE TABLE public.products (
//     id                  TEXT PRIMARY KEY,
//     name                TEXT,
//     description         TEXT,
//     category            TEXT,
//     cluster_id          TEXT,
//     price               NUMERIC,
//     rating              NUMERIC,
//     review_count        INTEGER,
//     in_stock            BOOLEAN DEFAULT TRUE,
//     financing_available BOOLEAN DEFAULT FALSE,
//     financing_months    INTEGER,
//     financing_apr       NUMERIC,
//     created_at          TIMESTAMPTZ DEFAULT NOW()
// );

type Product struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	Name               string    `gorm:"column:name;type:text"`
	Description        string    `gorm:"column:description;type:text"`
	Category           string    `gorm:"column:category;type:text;index"`
	ClusterID          string    `gorm:"column:cluster_id;type:text;index"`
	Price              float64   `gorm:"column:price;type:numeric"`
	Rating             float64   `gorm:"column:rating;type:numeric"`
	ReviewCount        int       `gorm:"column:review_count"`
	InStock            bool      `gorm:"column:in_stock;default:true"`
	FinancingAvailable bool      `gorm:"column:financing_available;default:false"`
	FinancingMonths    int       `gorm:"column:financing_months"`
	FinancingAPR       float64   `gorm:"column:financing_apr;type:numeric"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Product) TableName() string {
	return "products"
}

// Candidate converts a catalog row into the shape the ranking pipeline uses.
func (p Product) Candidate() CandidateItem {
	return CandidateItem{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		Category:           p.Category,
		ClusterID:          p.ClusterID,
		Price:              p.Price,
		Rating:             p.Rating,
		ReviewCount:        p.ReviewCount,
		InStock:            p.InStock,
		FinancingAvailable: p.FinancingAvailable,
		FinancingMonths:    p.FinancingMonths,
		FinancingAPR:       p.FinancingAPR,
	}
}
