package service

import (
	"context"
	"time"

	"github.com/sergio-scardigno/ventas-productos/internal/models"
	"github.com/sergio-scardigno/ventas-productos/internal/repository"
	"github.com/sergio-scardigno/ventas-productos/pkg/cache"
	"github.com/sergio-scardigno/ventas-productos/pkg/logger"
)

const (
	productCacheKey = "catalog:products"
	productCacheTTL = 5 * time.Minute
)

// ProductService serves the storefront catalog, caching the spreadsheet read
// for a few minutes so browsing does not hammer the Sheets API.
type ProductService struct {
	repo  repository.ProductRepository
	cache *cache.Cache
}

func NewProductService(repo repository.ProductRepository, c *cache.Cache) *ProductService {
	return &ProductService{repo: repo, cache: c}
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	if s.cache.Enabled() {
		var cached []models.Product
		if err := s.cache.Get(productCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(productCacheKey, products, productCacheTTL); err != nil {
			logger.Warn("Failed to cache product catalog", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return products, nil
}
