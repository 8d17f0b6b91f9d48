// Command seed-db applies migrations and loads demo data: a catalog, a
// superuser, coupons and an API key.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/account"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/repository"
)

type categoryJSON struct {
	Name     string        `json:"name"`
	Slug     string        `json:"slug"`
	Products []productJSON `json:"products"`
}

type productJSON struct {
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	Status           string `json:"status"`
	IsFeatured       bool   `json:"is_featured"`
	Images           []struct {
		Path    string `json:"path"`
		AltText string `json:"alt_text"`
	} `json:"images"`
	Variants []struct {
		SKU            string             `json:"sku"`
		Price          decimal.Decimal    `json:"price"`
		CompareAtPrice *decimal.Decimal   `json:"compare_at_price"`
		StockQty       int                `json:"stock_qty"`
		Attributes     catalog.Attributes `json:"attributes"`
	} `json:"variants"`
}

type options struct {
	databaseURL   string
	catalogFile   string
	adminEmail    string
	adminPassword string
	apiKey        string
	apiKeyPepper  string
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&opts.adminEmail, "admin-email", "admin@example.com", "superuser email")
	flag.StringVar(&opts.adminPassword, "admin-password", "", "superuser password (or STORE_SEED_ADMIN_PASSWORD env)")
	flag.StringVar(&opts.apiKey, "api-key", "", "API key to seed (or STORE_SEED_API_KEY env)")
	flag.StringVar(&opts.apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_API_KEY_PEPPER env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	envDefault(&opts.databaseURL, "DATABASE_URL")
	envDefault(&opts.adminPassword, "STORE_SEED_ADMIN_PASSWORD")
	envDefault(&opts.apiKey, "STORE_SEED_API_KEY")
	envDefault(&opts.apiKeyPepper, "STORE_API_KEY_PEPPER")

	switch {
	case opts.databaseURL == "":
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	case opts.apiKey == "":
		lg.Fatal("API key is required: set --api-key or STORE_SEED_API_KEY")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Error("Seed failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}
	lg.Info("Seed completed successfully")
}

func envDefault(v *string, key string) {
	if *v == "" {
		*v = os.Getenv(key)
	}
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	lg.Info("Connecting to database")
	pool, err := repository.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, lg, catalog.NewService(repository.NewCatalogRepository(pool)), opts.catalogFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedSuperuser(ctx, lg, pool, opts.adminEmail, opts.adminPassword); err != nil {
		return errors.Wrap(err, "seed superuser")
	}
	if err := seedCoupons(ctx, lg, repository.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedAPIKey(ctx, lg, repository.NewAPIKeyRepository(pool), opts.apiKey, opts.apiKeyPepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

// seedCatalog creates the categories and products of the catalog file.
// Products whose slug already exists are left untouched.
func seedCatalog(ctx context.Context, lg *zap.Logger, svc *catalog.Service, path string) error {
	lg.Info("Reading catalog file", zap.String("path", path))
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}
	var categories []categoryJSON
	if err := json.Unmarshal(data, &categories); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	for _, c := range categories {
		var categoryID *string
		created, err := svc.CreateCategory(ctx, catalog.Category{Name: c.Name, Slug: c.Slug, IsActive: true})
		switch {
		case err == nil:
			categoryID = &created.ID
		case errors.Is(err, catalog.ErrNameTaken), errors.Is(err, catalog.ErrSlugTaken):
			lg.Info("Category exists", zap.String("slug", c.Slug))
		default:
			return errors.Wrapf(err, "category %s", c.Slug)
		}

		for _, p := range c.Products {
			if err := seedProduct(ctx, lg, svc, categoryID, p); err != nil {
				return errors.Wrapf(err, "product %s", p.Slug)
			}
		}
	}
	return nil
}

func seedProduct(ctx context.Context, lg *zap.Logger, svc *catalog.Service, categoryID *string, p productJSON) error {
	if _, err := svc.GetProduct(ctx, p.Slug); err == nil {
		lg.Info("Product exists", zap.String("slug", p.Slug))
		return nil
	} else if !errors.Is(err, catalog.ErrNotFound) {
		return err
	}

	product, err := svc.CreateProduct(ctx, catalog.Product{
		Name:             p.Name,
		Slug:             p.Slug,
		ShortDescription: p.ShortDescription,
		Description:      p.Description,
		CategoryID:       categoryID,
		Status:           catalog.Status(p.Status),
		IsFeatured:       p.IsFeatured,
	})
	if err != nil {
		return err
	}
	for i, img := range p.Images {
		if _, err := svc.AddImage(ctx, catalog.Image{
			ProductID: product.ID,
			Path:      img.Path,
			AltText:   img.AltText,
			SortOrder: i,
		}); err != nil {
			return err
		}
	}
	for _, v := range p.Variants {
		if _, err := svc.CreateVariant(ctx, catalog.Variant{
			ProductID:      product.ID,
			SKU:            v.SKU,
			Attributes:     v.Attributes,
			Price:          v.Price,
			CompareAtPrice: v.CompareAtPrice,
			StockQty:       v.StockQty,
			IsActive:       true,
		}); err != nil {
			return errors.Wrapf(err, "variant %s", v.SKU)
		}
	}
	lg.Info("Created product",
		zap.String("slug", product.Slug),
		zap.Int("variants", len(p.Variants)),
	)
	return nil
}

func seedSuperuser(ctx context.Context, lg *zap.Logger, pool *pgxpool.Pool, email, password string) error {
	if password == "" {
		lg.Info("No superuser password given, skipping superuser")
		return nil
	}
	svc := account.NewService(repository.NewAccountRepository(pool))
	u, err := svc.CreateSuperuser(ctx, email, password, account.UserOptions{FirstName: "Admin"})
	switch {
	case errors.Is(err, account.ErrEmailTaken):
		lg.Info("Superuser exists", zap.String("email", email))
		return nil
	case err != nil:
		return err
	}
	lg.Info("Created superuser", zap.String("id", u.ID), zap.String("email", u.Email))
	return nil
}

func seedCoupons(ctx context.Context, lg *zap.Logger, coupons *repository.CouponRepository) error {
	rules := []coupon.Rule{
		{
			Code:         "WELCOME10",
			DiscountType: coupon.DiscountPercentage,
			Value:        decimal.NewFromInt(10),
			Description:  "Welcome: 10% off entire order",
		},
		{
			Code:         "FIVEOFF",
			DiscountType: coupon.DiscountFixed,
			Value:        decimal.NewFromInt(5),
			Description:  "5 off your order",
			MaxUses:      1000,
		},
		{
			Code:         "BUYGETONE",
			DiscountType: coupon.DiscountFreeLowest,
			Value:        decimal.Zero,
			MinItems:     2,
			Description:  "Buy one get one: lowest priced item free",
		},
	}
	for i := range rules {
		if err := coupons.Upsert(ctx, &rules[i]); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", rules[i].Code)
		}
		lg.Info("Upserted coupon", zap.String("code", rules[i].Code))
	}
	return nil
}

func seedAPIKey(ctx context.Context, lg *zap.Logger, keys *repository.APIKeyRepository, raw, pepper string) error {
	key := &auth.APIKey{
		ID:      "default",
		KeyHash: auth.HashKey([]byte(pepper), raw),
		Name:    "Default key",
		Scopes:  []string{auth.ScopeCatalogWrite, auth.ScopeSalesWrite, auth.ScopeAccountsWrite},
	}
	if err := keys.Upsert(ctx, key); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}
	lg.Info("Upserted API key", zap.String("id", key.ID), zap.Strings("scopes", key.Scopes))
	return nil
}
