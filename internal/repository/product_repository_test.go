package repository

import (
	"context"
	"testing"
)

func TestProductList_MapsRows(t *testing.T) {
	client := &fakeValuesClient{rows: [][]string{
		{"1", "Laptop Gaming", "150000", "https://img.example.com/laptop.jpg", "Laptop de alto rendimiento", "10"},
		{"", "Smartphone Pro", "80000"},
	}}
	repo := NewProductRepository(client, "Productos!A2:F")

	products, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}

	first := products[0]
	if first.ID != "1" || first.Name != "Laptop Gaming" || first.PriceCents != 150000 || first.Stock != 10 {
		t.Fatalf("unexpected product: %+v", first)
	}

	// A missing id gets a positional fallback.
	if products[1].ID != "product-1" {
		t.Fatalf("expected generated id, got %q", products[1].ID)
	}
}

func TestProductList_FiltersPlaceholderRows(t *testing.T) {
	client := &fakeValuesClient{rows: [][]string{
		{"1", "", "150000"},
		{"2", "Free item", "0"},
		{"3", "Real item", "100"},
	}}
	repo := NewProductRepository(client, "Productos!A2:F")

	products, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Real item" {
		t.Fatalf("unexpected products: %+v", products)
	}
}

func TestStaticProductRepository_ReturnsCopy(t *testing.T) {
	repo := NewStaticProductRepository()

	first, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(first) == 0 {
		t.Fatalf("expected demo products")
	}

	first[0].Name = "mutated"

	second, _ := repo.List(context.Background())
	if second[0].Name == "mutated" {
		t.Fatalf("List must not expose internal state")
	}
}
