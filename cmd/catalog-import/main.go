// Command catalog-import loads gzip CSV variant feeds into the catalog.
//
//	catalog-import -database-url postgres://... feed1.csv.gz feed2.csv.gz
//
// When a SKU appears in several feeds, the feed listed last wins.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/catalogimport"
	"github.com/xenking/storefront/internal/repository"
)

func main() {
	var (
		databaseURL string
		capacity    uint
		fpr         float64
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&capacity, "expected-rows", 1_000_000, "expected rows per feed, used to size bloom filters")
	flag.Float64Var(&fpr, "fpr", 0.001, "bloom filter false positive rate")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, flag.Args(), catalogimport.WithEstimates(capacity, fpr)); err != nil {
		lg.Error("Catalog import failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, files []string, opts ...catalogimport.Option) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	importer := catalogimport.New(repository.NewCatalogRepository(pool), lg, opts...)
	if _, err := importer.Run(ctx, files); err != nil {
		return err
	}
	return nil
}
