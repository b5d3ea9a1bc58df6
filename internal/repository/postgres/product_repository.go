package postgres

import (
	"context"
	"errors"
	"fmt"

	"priceSense/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository reads the product catalog the search index is built from.
type CatalogRepository struct {
	DB *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{
		DB: db,
	}
}

func (r *CatalogRepository) FindAll(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var products []domain.Product
	err := r.DB.WithContext(ctx).Order("id").Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}

	return products, nil
}

func (r *CatalogRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("context error: %w", err)
	}

	var product domain.Product
	err := r.DB.WithContext(ctx).First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, errors.New("product not found")
		}
		return domain.Product{}, fmt.Errorf("failed to find product: %w", err)
	}

	return product, nil
}

// FindInCluster returns up to limit in-stock items sharing clusterID, other
// than excludeID.
func (r *CatalogRepository) FindInCluster(ctx context.Context, clusterID, excludeID string, limit int) ([]domain.CandidateItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var products []domain.Product
	err := r.DB.WithContext(ctx).
		Where("cluster_id = ? AND id <> ? AND in_stock = ?", clusterID, excludeID, true).
		Order("rating DESC").
		Order("id").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find cluster members: %w", err)
	}

	out := make([]domain.CandidateItem, len(products))
	for i, p := range products {
		out[i] = p.Candidate()
	}
	return out, nil
}

// FindCheaperInCluster returns in-stock items of the same cluster priced
// below maxPrice, best rated first.
func (r *CatalogRepository) FindCheaperInCluster(ctx context.Context, clusterID string, maxPrice float64, excludeID string, limit int) ([]domain.CandidateItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var products []domain.Product
	err := r.DB.WithContext(ctx).
		Where("cluster_id = ? AND price < ? AND id <> ? AND in_stock = ?", clusterID, maxPrice, excludeID, true).
		Order("rating DESC").
		Order("price ASC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find cluster alternatives: %w", err)
	}

	out := make([]domain.CandidateItem, len(products))
	for i, p := range products {
		out[i] = p.Candidate()
	}
	return out, nil
}

// Upsert inserts the products, replacing rows that share an id.
func (r *CatalogRepository) Upsert(ctx context.Context, products []domain.Product) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if len(products) == 0 {
		return nil
	}

	if err := r.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		},
	).Create(&products).Error; err != nil {
		return fmt.Errorf("failed to upsert products: %w", err)
	}

	return nil
}
