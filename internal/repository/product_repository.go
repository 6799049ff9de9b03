package repository

import (
	"context"
	"strconv"

	"github.com/sergio-scardigno/ventas-productos/internal/models"
)

// ProductRepository exposes the read-only product catalog.
type ProductRepository interface {
	List(ctx context.Context) ([]models.Product, error)
}

type sheetProductRepository struct {
	client     ValuesClient
	sheetRange string
}

// NewProductRepository reads the catalog from a spreadsheet range. The range
// starts below the header row, so every returned row is data.
func NewProductRepository(client ValuesClient, sheetRange string) ProductRepository {
	return &sheetProductRepository{client: client, sheetRange: sheetRange}
}

func (r *sheetProductRepository) List(ctx context.Context) ([]models.Product, error) {
	rows, err := r.client.Get(ctx, r.sheetRange)
	if err != nil {
		return nil, err
	}

	products := make([]models.Product, 0, len(rows))
	for i, row := range rows {
		product := models.Product{
			ID:          cell(row, 0),
			Name:        cell(row, 1),
			Image:       cell(row, 3),
			Description: cell(row, 4),
		}
		if product.ID == "" {
			product.ID = "product-" + strconv.Itoa(i)
		}
		if price, err := strconv.ParseInt(cell(row, 2), 10, 64); err == nil {
			product.PriceCents = price
		}
		if stock, err := strconv.Atoi(cell(row, 5)); err == nil {
			product.Stock = stock
		}

		// Rows without a name or a positive price are placeholders.
		if product.Name == "" || product.PriceCents <= 0 {
			continue
		}
		products = append(products, product)
	}
	return products, nil
}

type staticProductRepository struct {
	products []models.Product
}

// NewStaticProductRepository serves a fixed demo catalog. It backs the
// storefront in development when no spreadsheet is configured.
func NewStaticProductRepository() ProductRepository {
	return &staticProductRepository{products: []models.Product{
		{
			ID:          "1",
			Name:        "Laptop Gaming",
			PriceCents:  150000,
			Image:       "https://images.unsplash.com/photo-1603302576837-37561b2e2302?w=400&h=300&fit=crop",
			Description: "Laptop gaming de alto rendimiento con gráficos dedicados",
			Stock:       10,
		},
		{
			ID:          "2",
			Name:        "Smartphone Pro",
			PriceCents:  80000,
			Image:       "https://images.unsplash.com/photo-1511707171634-5f897ff02aa9?w=400&h=300&fit=crop",
			Description: "Smartphone de última generación con cámara profesional",
			Stock:       15,
		},
		{
			ID:          "3",
			Name:        "Auriculares Wireless",
			PriceCents:  25000,
			Image:       "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=400&h=300&fit=crop",
			Description: "Auriculares bluetooth con cancelación de ruido",
			Stock:       20,
		},
		{
			ID:          "4",
			Name:        "Smartwatch",
			PriceCents:  35000,
			Image:       "https://images.unsplash.com/photo-1523275335684-37898b6baf30?w=400&h=300&fit=crop",
			Description: "Reloj inteligente con monitoreo de salud",
			Stock:       12,
		},
	}}
}

func (r *staticProductRepository) List(_ context.Context) ([]models.Product, error) {
	out := make([]models.Product, len(r.products))
	copy(out, r.products)
	return out, nil
}
