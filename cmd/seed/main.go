package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/engine"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/config"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/models"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/logger"
)

type seedProduct struct {
	name, sku, category string
	price, gst          string
	stock, reorder      int
}

var catalog = []seedProduct{
	{name: "Corrugated Box (Large)", sku: "PKG-BOX-L", category: "Packaging", price: "45.00", gst: "12", stock: 400, reorder: 50},
	{name: "Stretch Film Roll", sku: "PKG-FILM-500", category: "Packaging", price: "320.00", gst: "18", stock: 60, reorder: 15},
	{name: "Pallet Jack", sku: "EQP-PJ-2T", category: "Equipment", price: "18500.00", gst: "18", stock: 4, reorder: 2},
	{name: "Barcode Scanner", sku: "EQP-SCN-01", category: "Equipment", price: "2499.00", gst: "18", stock: 25, reorder: 5},
	{name: "Safety Gloves (Pair)", sku: "SFT-GLV-M", category: "Safety", price: "89.50", gst: "5", stock: 8, reorder: 20},
}

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	threshold := flag.Int("low-stock", -1, "also store this LOW_STOCK_THRESHOLD")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	eng, err := engine.New(ctx, cfg, logg)
	requireResource(ctx, logg, "engine", err)
	defer eng.Close()

	inserted := 0
	for _, item := range catalog {
		category := item.category
		product := &models.Product{
			Name:          item.name,
			SKU:           item.sku,
			Category:      &category,
			StockQuantity: item.stock,
			ReorderLevel:  item.reorder,
			SellingPrice:  decimal.NewNullDecimal(decimal.RequireFromString(item.price)),
			GSTRate:       decimal.NewNullDecimal(decimal.RequireFromString(item.gst)),
		}
		created, err := eng.UpsertProduct(ctx, product)
		if err != nil {
			logg.Error(logg.WithField(ctx, "sku", item.sku), "seed product", err)
			os.Exit(1)
		}
		if created {
			inserted++
		}
	}

	if *threshold >= 0 {
		if err := eng.SetLowStockThreshold(ctx, *threshold); err != nil {
			logg.Error(ctx, "seed low stock threshold", err)
			os.Exit(1)
		}
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"inserted": inserted, "total": len(catalog)}), "catalog seeded")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
