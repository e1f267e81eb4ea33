package catalog

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/model"
)

// DemoProducts is the first-run catalog.
func DemoProducts() []model.ProductDraft {
	return []model.ProductDraft{
		{Name: "Wireless Mouse", Description: "Ergonomic Bluetooth mouse", Price: decimal.NewFromInt(850), Stock: 24},
		{Name: "USB-C Hub (7-in-1)", Description: "4K HDMI, USB 3.0, PD 100W", Price: decimal.NewFromInt(1450), Stock: 12},
		{Name: "Mechanical Keyboard", Description: "TKL, Brown switches, RGB", Price: decimal.NewFromInt(3200), Stock: 8},
		{Name: `27" Monitor (FHD)`, Description: "IPS panel, 75Hz, 5ms", Price: decimal.NewFromInt(18500), Stock: 4},
		{Name: "Laptop Stand", Description: "Adjustable aluminium stand", Price: decimal.NewFromInt(650), Stock: 30},
		{Name: "Webcam 1080p", Description: "Autofocus, built-in mic", Price: decimal.NewFromInt(2200), Stock: 15},
		{Name: "Desk Lamp (LED)", Description: "Touch dimmer, 3 color temps", Price: decimal.NewFromInt(780), Stock: 20},
		{Name: "Cable Management Kit", Description: "Velcro + clips bundle", Price: decimal.NewFromInt(320), Stock: 50},
	}
}

// SeedDemo imports DemoProducts when the catalog is empty.
// Returns the number of products added (0 when already populated).
func (c *Catalog) SeedDemo(ctx context.Context) (int, error) {
	if err := c.Load(ctx); err != nil {
		return 0, err
	}
	if c.Len() > 0 {
		c.log.Debug("catalog not empty, skipping demo seed", zap.Int("products", c.Len()))
		return 0, nil
	}
	added, err := c.Import(ctx, DemoProducts())
	return len(added), err
}
