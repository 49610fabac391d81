package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go-pen-inventory/internal/config"
	"go-pen-inventory/internal/model"
	"go-pen-inventory/internal/repository"
	"go-pen-inventory/pkg/database"
	"go-pen-inventory/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type sampleVariant struct {
	attrs  model.Attributes
	price  string
	qty    int
	target int
}

type sampleItem struct {
	name     string
	brand    string
	category string
	variants []sampleVariant
}

var sampleBrands = []model.Brand{
	{Name: "Pilot", Description: "Japanese maker of fountain, gel and ballpoint pens."},
	{Name: "Uni-ball", Description: "Mitsubishi Pencil's rollerball and gel line."},
	{Name: "Zebra", Description: "Everyday ballpoint and gel pens."},
	{Name: "Lamy", Description: "German design pens and refills."},
}

var sampleItems = []sampleItem{
	{
		name: "G2 Gel Pen", brand: "Pilot", category: "Pen",
		variants: []sampleVariant{
			{model.Attributes{"color": "Black", "tip_size": "0.5"}, "2.50", 120, 50},
			{model.Attributes{"color": "Blue", "tip_size": "0.7"}, "2.50", 80, 50},
			{model.Attributes{"color": "Red", "tip_size": "0.7"}, "2.50", 10, 30},
		},
	},
	{
		name: "Jetstream SXN-150", brand: "Uni-ball", category: "Pen",
		variants: []sampleVariant{
			{model.Attributes{"color": "Black", "tip_size": "0.5"}, "3.20", 60, 40},
			{model.Attributes{"color": "Blue", "tip_size": "1.0"}, "3.20", 0, 20},
		},
	},
	{
		name: "Sarasa Clip", brand: "Zebra", category: "Pen",
		variants: []sampleVariant{
			{model.Attributes{"color": "Black", "tip_size": "0.4"}, "1.80", 200, 100},
		},
	},
	{
		name: "G2 Refill", brand: "Pilot", category: "Pen Refill",
		variants: []sampleVariant{
			{model.Attributes{"color": "Black", "tip_size": "0.5"}, "1.10", 300, 100},
			{model.Attributes{"color": "Blue", "tip_size": "0.5"}, "1.10", 150, 100},
		},
	},
	{
		name: "M63 Rollerball Refill", brand: "Lamy", category: "Pen Refill",
		variants: []sampleVariant{
			{model.Attributes{"color": "Black", "tip_size": "M"}, "4.75", 25, 10},
		},
	},
}

// Seeds a demo catalog. Running it twice leaves the database unchanged.
func main() {
	withSamples := flag.Bool("samples", true, "create sample brands, items and variants")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	db, err := database.ConnectDB(database.Options{
		DSN:             cfg.Database.DSN(),
		MaxIdleConns:    1,
		MaxOpenConns:    2,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}

	ctx := context.Background()
	if err := repository.NewCategoryRepo(db).SeedDefaults(ctx); err != nil {
		log.WithError(err).Fatal("Failed to seed categories")
	}
	if !*withSamples {
		log.Info("Default categories ensured")
		return
	}
	created, err := seedSamples(ctx, db, log)
	if err != nil {
		log.WithError(err).Fatal("Seeding failed")
	}
	log.WithField("variants_created", created).Info("Seed complete")
}

func seedSamples(ctx context.Context, db *gorm.DB, log *logrus.Logger) (int, error) {
	brandRepo := repository.NewBrandRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	variantRepo := repository.NewVariantRepo(db)

	brands := make(map[string]*model.Brand, len(sampleBrands))
	for i := range sampleBrands {
		b := sampleBrands[i]
		b.CreatedBy, b.UpdatedBy = "seed", "seed"
		if err := brandRepo.EnsureByName(ctx, &b); err != nil {
			return 0, fmt.Errorf("brand %s: %w", b.Name, err)
		}
		brands[b.Name] = &b
	}

	created := 0
	for _, sample := range sampleItems {
		category, err := categoryRepo.FindByName(ctx, sample.category)
		if err != nil {
			return created, fmt.Errorf("category %s: %w", sample.category, err)
		}
		brand := brands[sample.brand]

		item := model.Item{
			Name:       sample.name,
			BrandID:    &brand.ID,
			CategoryID: &category.ID,
		}
		item.CreatedBy, item.UpdatedBy = "seed", "seed"
		err = db.WithContext(ctx).
			Omit("Brand", "Category", "Variants").
			Where("name = ? AND brand_id = ?", item.Name, brand.ID).
			FirstOrCreate(&item).Error
		if err != nil {
			return created, fmt.Errorf("item %s: %w", sample.name, err)
		}

		for _, sv := range sample.variants {
			v := model.ItemVariant{
				ItemID:         item.ID,
				Attributes:     sv.attrs,
				Price:          decimal.RequireFromString(sv.price),
				Quantity:       sv.qty,
				TargetQuantity: sv.target,
			}
			if err := model.ValidateAttributes(category.RequiredKeys(), v.Attributes); err != nil {
				return created, fmt.Errorf("variant of %s: %w", sample.name, err)
			}
			v.RefreshSKU()

			_, err := variantRepo.FindBySKU(ctx, v.SKU)
			if err == nil {
				continue
			}
			if !errors.Is(err, model.ErrNotFound) {
				return created, err
			}
			v.CreatedBy, v.UpdatedBy = "seed", "seed"
			if err := variantRepo.Create(ctx, &v); err != nil {
				return created, fmt.Errorf("variant %s: %w", v.SKU, err)
			}
			created++
			log.WithFields(logrus.Fields{"item": sample.name, "sku": v.SKU}).Debug("Variant created")
		}
	}
	return created, nil
}
