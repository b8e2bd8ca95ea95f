// Command promo-ingest builds a promo table file from gzip campaign dumps.
// A code becomes redeemable when it appears in at least two dumps.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/orderly-bite/internal/domain/promo"
)

func main() {
	var (
		opts     options
		discount string
		minOrder string
	)
	flag.StringVar(&opts.dataDir, "data-dir", "data", "directory containing *.gz campaign code dumps")
	flag.StringVar(&opts.out, "out", "promos.json", "promo table file to write")
	flag.StringVar(&discount, "discount", "10", "flat discount for ingested codes")
	flag.StringVar(&minOrder, "min-order", "50", "minimum order for ingested codes")
	flag.BoolVar(&opts.keepDefaults, "keep-defaults", true, "include the built-in promo codes")
	flag.UintVar(&opts.capacity, "capacity", 10_000_000, "expected codes per dump, sizes the bloom filters")
	flag.Parse()

	var err error
	if opts.discount, err = decimal.NewFromString(discount); err != nil {
		slog.Error("invalid discount", slog.String("value", discount))
		os.Exit(2)
	}
	if opts.minOrder, err = decimal.NewFromString(minOrder); err != nil {
		slog.Error("invalid minimum order", slog.String("value", minOrder))
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("promo ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("promo ingest completed successfully", slog.String("out", opts.out))
}

type options struct {
	dataDir      string
	out          string
	discount     decimal.Decimal
	minOrder     decimal.Decimal
	keepDefaults bool
	capacity     uint
}

func run(ctx context.Context, opts options) error {
	files, err := filepath.Glob(filepath.Join(opts.dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list dumps")
	}
	slices.Sort(files)

	codes, err := ingest(ctx, files, opts.capacity)
	if err != nil {
		return err
	}
	slog.Info("valid codes found", slog.Int("count", len(codes)))

	table, err := buildTable(codes, opts)
	if err != nil {
		return errors.Wrap(err, "build promo table")
	}

	var e jx.Encoder
	promo.EncodeTable(&e, table)
	if err := os.WriteFile(opts.out, e.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "write promo table")
	}
	slog.Info("promo table written", slog.Int("codes", table.Len()))
	return nil
}

// buildTable turns ingested codes into promo entries. Built-in codes keep
// their own terms when both are present.
func buildTable(codes []string, opts options) (*promo.Table, error) {
	entries := make([]promo.Code, 0, len(codes)+3)
	for _, c := range codes {
		entries = append(entries, promo.Code{
			Code:        c,
			Discount:    opts.discount,
			MinOrder:    opts.minOrder,
			Description: "Campaign code: ₹" + opts.discount.String() + " off orders of ₹" + opts.minOrder.String() + "+",
		})
	}
	if opts.keepDefaults {
		entries = append(entries, promo.Defaults().Codes()...)
	}
	return promo.NewTable(entries...)
}
