// Package catalogimport loads variant feeds into the catalog.
//
// A feed is a gzip-compressed CSV file with the columns
//
//	product_slug,product_name,sku,price,stock_qty,attributes
//
// where attributes is a list of key=value pairs separated by ";". The same
// SKU may appear in several feeds; the feed listed last wins. Duplicates are
// found without holding every SKU in memory: pass 1 builds a bloom filter per
// feed, pass 2 keeps only the SKUs that another feed's filter reports, and
// pass 3 writes the rows.
package catalogimport

import (
	"context"
	"encoding/csv"
	"io"
	"math/bits"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/catalog"
)

const (
	defaultCapacity = 1_000_000
	defaultFPR      = 0.001
	progressEvery   = 100_000
	maxFeeds        = bits.UintSize
)

var header = []string{"product_slug", "product_name", "sku", "price", "stock_qty", "attributes"}

// Store persists imported products and variants.
type Store interface {
	// EnsureProduct returns the ID of the product with slug, creating it
	// with id and name when missing.
	EnsureProduct(ctx context.Context, id, slug, name string) (string, error)
	// UpsertVariant inserts the variant or updates the one with the same SKU.
	UpsertVariant(ctx context.Context, v *catalog.Variant) error
}

// Row is one parsed feed line.
type Row struct {
	ProductSlug string
	ProductName string
	SKU         string
	Price       decimal.Decimal
	StockQty    int
	Attributes  catalog.Attributes
}

// Result summarizes an import.
type Result struct {
	Rows       int
	Written    int
	Overridden int
	Products   int
}

// Option configures an Importer.
type Option func(*Importer)

// WithEstimates sizes the per-feed bloom filters.
func WithEstimates(capacity uint, falsePositiveRate float64) Option {
	return func(im *Importer) {
		im.capacity = capacity
		im.fpr = falsePositiveRate
	}
}

// Importer runs feed imports against a Store.
type Importer struct {
	store    Store
	lg       *zap.Logger
	capacity uint
	fpr      float64
	now      func() time.Time
}

// New creates an Importer.
func New(store Store, lg *zap.Logger, opts ...Option) *Importer {
	im := &Importer{
		store:    store,
		lg:       lg,
		capacity: defaultCapacity,
		fpr:      defaultFPR,
		now:      time.Now,
	}
	for _, o := range opts {
		o(im)
	}
	return im
}

// Run imports files in order. Every file is validated during pass 1, so a
// malformed row aborts the import before anything is written.
func (im *Importer) Run(ctx context.Context, files []string) (Result, error) {
	if len(files) == 0 {
		return Result{}, errors.New("no feed files")
	}
	if len(files) > maxFeeds {
		return Result{}, errors.Errorf("at most %d feed files are supported, got %d", maxFeeds, len(files))
	}

	im.lg.Info("Pass 1: building bloom filters", zap.Int("files", len(files)))
	filters, err := im.buildFilters(ctx, files)
	if err != nil {
		return Result{}, errors.Wrap(err, "build bloom filters")
	}

	im.lg.Info("Pass 2: finding SKUs present in several feeds")
	owners, err := im.findDuplicates(ctx, files, filters)
	if err != nil {
		return Result{}, errors.Wrap(err, "find duplicates")
	}
	im.lg.Info("Duplicate SKUs found", zap.Int("count", len(owners)))

	im.lg.Info("Pass 3: writing variants")
	res, err := im.write(ctx, files, owners)
	if err != nil {
		return res, errors.Wrap(err, "write variants")
	}
	im.lg.Info("Import complete",
		zap.Int("rows", res.Rows),
		zap.Int("written", res.Written),
		zap.Int("overridden", res.Overridden),
		zap.Int("products", res.Products),
	)
	return res, nil
}

func (im *Importer) buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(im.capacity, im.fpr)
			count := 0
			if err := streamFeed(ctx, path, func(_ int, row Row) error {
				filter.AddString(row.SKU)
				count++
				if count%progressEvery == 0 {
					im.lg.Info("Pass 1 progress", zap.String("file", path), zap.Int("rows", count))
				}
				return nil
			}); err != nil {
				return err
			}
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findDuplicates returns, for every SKU present in more than one feed, the
// index of the last feed containing it.
func (im *Importer) findDuplicates(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]int, error) {
	candidates := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			found := make(map[string]uint)
			fileBit := uint(1) << uint(i)
			if err := streamFeed(ctx, path, func(_ int, row Row) error {
				for j, f := range filters {
					if j != i && f.TestString(row.SKU) {
						found[row.SKU] |= fileBit
						break
					}
				}
				return nil
			}); err != nil {
				return err
			}
			candidates[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, found := range candidates {
		for sku, mask := range found {
			merged[sku] |= mask
		}
	}

	// A bloom false positive sets only the bit of the file that holds the SKU.
	owners := make(map[string]int)
	for sku, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			owners[sku] = bits.Len(mask) - 1
		}
	}
	return owners, nil
}

func (im *Importer) write(ctx context.Context, files []string, owners map[string]int) (Result, error) {
	var res Result
	products := make(map[string]string)

	for i, path := range files {
		err := streamFeed(ctx, path, func(line int, row Row) error {
			res.Rows++
			if owner, ok := owners[row.SKU]; ok && owner != i {
				res.Overridden++
				return nil
			}

			productID, ok := products[row.ProductSlug]
			if !ok {
				var err error
				productID, err = im.store.EnsureProduct(ctx, uuid.NewString(), row.ProductSlug, row.ProductName)
				if err != nil {
					return errors.Wrapf(err, "line %d", line)
				}
				products[row.ProductSlug] = productID
			}

			now := im.now()
			v := &catalog.Variant{
				ID:         uuid.NewString(),
				ProductID:  productID,
				SKU:        row.SKU,
				Attributes: row.Attributes,
				Price:      row.Price,
				StockQty:   row.StockQty,
				IsActive:   true,
			}
			v.Touch(now)
			if err := im.store.UpsertVariant(ctx, v); err != nil {
				return errors.Wrapf(err, "line %d: sku %s", line, row.SKU)
			}
			res.Written++
			if res.Written%progressEvery == 0 {
				im.lg.Info("Write progress", zap.Int("written", res.Written))
			}
			return nil
		})
		if err != nil {
			return res, err
		}
	}
	res.Products = len(products)
	return res, nil
}

// streamFeed decodes the gzip CSV feed at path and calls fn for every row.
// An optional header line is skipped.
func streamFeed(ctx context.Context, path string, fn func(line int, row Row) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = len(header)
	r.ReuseRecord = true

	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		if line == 1 && record[0] == header[0] {
			continue
		}
		row, err := ParseRow(record)
		if err != nil {
			return errors.Wrapf(err, "%s:%d", path, line)
		}
		if err := fn(line, row); err != nil {
			return err
		}
	}
}

// ParseRow converts a CSV record into a Row.
func ParseRow(record []string) (Row, error) {
	if len(record) != len(header) {
		return Row{}, errors.Errorf("expected %d columns, got %d", len(header), len(record))
	}
	row := Row{
		ProductSlug: strings.TrimSpace(record[0]),
		ProductName: strings.TrimSpace(record[1]),
		SKU:         strings.TrimSpace(record[2]),
	}
	switch {
	case row.ProductSlug == "":
		return Row{}, errors.New("empty product_slug")
	case row.SKU == "":
		return Row{}, errors.New("empty sku")
	}
	if row.ProductName == "" {
		row.ProductName = row.ProductSlug
	}

	price, err := decimal.NewFromString(strings.TrimSpace(record[3]))
	if err != nil {
		return Row{}, errors.Wrap(err, "price")
	}
	if price.IsNegative() {
		return Row{}, errors.Errorf("negative price %s", price)
	}
	row.Price = price

	qty, err := strconv.Atoi(strings.TrimSpace(record[4]))
	if err != nil {
		return Row{}, errors.Wrap(err, "stock_qty")
	}
	if qty < 0 {
		return Row{}, errors.Errorf("negative stock_qty %d", qty)
	}
	row.StockQty = qty

	row.Attributes, err = parseAttributes(record[5])
	if err != nil {
		return Row{}, err
	}
	return row, nil
}

func parseAttributes(s string) (catalog.Attributes, error) {
	attrs := catalog.Attributes{}
	for pair := range strings.SplitSeq(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.Errorf("attribute %q: expected key=value", pair)
		}
		attrs[k] = strings.TrimSpace(v)
	}
	return attrs, nil
}
