package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	product "github.com/backstagehn/storefront-backend/internal/products"
	"github.com/backstagehn/storefront-backend/pkg/config"
	"github.com/backstagehn/storefront-backend/pkg/db"
	"github.com/backstagehn/storefront-backend/pkg/db/models"
	"github.com/backstagehn/storefront-backend/pkg/enums"
	"github.com/backstagehn/storefront-backend/pkg/logger"
	"github.com/backstagehn/storefront-backend/pkg/security"
)

type seedProduct struct {
	name        string
	brand       string
	category    string
	price       string
	stock       int
	description string
	imageURL    string
}

var catalog = []seedProduct{
	{"Guitarra Fender Stratocaster", "Fender", "Guitarras", "650.00", 15, "Clásica guitarra eléctrica de color rojo.", "/products/fender.jpg"},
	{"Batería Yamaha Stage Custom", "Yamaha", "Percusión", "1200.00", 5, "Set completo de batería de abedul.", "/products/yamaha.jpg"},
	{"Teclado Roland FP-30X", "Roland", "Teclados", "750.00", 8, "Piano digital con sonido premium.", "/products/roland.jpg"},
	{"Bajo Ibanez SR300E", "Ibanez", "Bajos", "350.00", 4, "Bajo activo de 4 cuerdas versátil y ergonómico.", "/products/bajo-ibanez.jpg"},
	{"Saxofón Alto Yamaha YAS-280", "Yamaha", "Vientos", "1100.00", 2, "Saxofón ideal para estudiantes con afinación excelente.", "/products/saxo-yamaha.jpg"},
	{"Ukelele Tenor Kala KA-15T", "Kala", "Cuerdas", "120.00", 10, "Ukelele de caoba con tono cálido y brillante.", "/products/ukelele-kala.jpg"},
	{"Violín Stentor Student II", "Stentor", "Cuerdas", "250.00", 3, "Violín de madera sólida con acabado artesanal.", "/products/violin-stentor.jpg"},
	{"Amplificador Boss Katana-50 MkII", "Boss", "Amplificadores", "280.00", 6, "Amplificador de guitarra con efectos integrados.", "/products/amplificador-boss.jpg"},
}

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	conn := dbClient.DB()

	created := 0
	for _, item := range catalog {
		row := &models.Product{
			Name:        item.name,
			Brand:       item.brand,
			Category:    item.category,
			Price:       decimal.RequireFromString(item.price),
			Stock:       item.stock,
			Description: item.description,
			ImageURL:    item.imageURL,
			SearchName:  product.NormalizeName(item.name),
		}

		var existing models.Product
		err := conn.WithContext(ctx).Where("name = ?", item.name).First(&existing).Error
		switch {
		case err == nil:
			continue
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := conn.WithContext(ctx).Create(row).Error; err != nil {
				logg.Error(ctx, fmt.Sprintf("failed to seed product %s", item.name), err)
				os.Exit(1)
			}
			created++
		default:
			logg.Error(ctx, "failed to query products", err)
			os.Exit(1)
		}
	}

	if err := seedAdmin(ctx, conn, cfg, logg); err != nil {
		logg.Error(ctx, "failed to seed admin user", err)
		os.Exit(1)
	}

	logg.Info(logg.WithField(ctx, "created", created), "catalog seeded")
}

// seedAdmin bootstraps a dashboard account when the seed credentials are set.
func seedAdmin(ctx context.Context, conn *gorm.DB, cfg *config.Config, logg *logger.Logger) error {
	email := strings.ToLower(strings.TrimSpace(os.Getenv("BACKSTAGE_SEED_ADMIN_EMAIL")))
	password := os.Getenv("BACKSTAGE_SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	var existing models.User
	err := conn.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := security.HashPassword(password, cfg.Password)
	if err != nil {
		return err
	}

	admin := &models.User{
		Name:         "Administrador",
		Email:        email,
		PasswordHash: hash,
		Role:         enums.UserRoleAdmin,
	}
	if err := conn.WithContext(ctx).Create(admin).Error; err != nil {
		return err
	}

	logg.Info(logg.WithField(ctx, "email", email), "admin user seeded")
	return nil
}
