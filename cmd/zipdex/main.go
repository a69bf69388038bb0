// Command zipdex builds the postal-code artifact pairs served by the lookup
// engine.
//
// Each positional argument names a country and its GeoNames postal dump
// (plain or gzip-compressed):
//
//	zipdex -out ./artifacts US=US.txt CA=CA.txt.gz
//
// Country builds are independent and run concurrently. A failed build
// removes its partial output so a later engine cannot open it.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/zipdex/zipdex"
	"github.com/zipdex/zipdex/codec"
	"github.com/zipdex/zipdex/postal"
	"github.com/zipdex/zipdex/preprocess"
)

func main() {
	var (
		outDir    = flag.String("out", ".", "output directory for artifact pairs")
		codecName = flag.String("codec", codec.Default.Name(), "record codec (binary, json)")
		verbose   = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: zipdex [-out dir] [-codec name] COUNTRY=SOURCE ...")
		os.Exit(2)
	}

	c, ok := codec.ByName(*codecName)
	if !ok {
		logger.Error("unknown codec", "codec", *codecName)
		os.Exit(2)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		logger.Error("creating output directory", "dir", *outDir, "error", err)
		os.Exit(1)
	}

	g, ctx := errgroup.WithContext(context.Background())
	for _, arg := range flag.Args() {
		countryToken, srcPath, ok := strings.Cut(arg, "=")
		if !ok {
			logger.Error("malformed argument, want COUNTRY=SOURCE", "arg", arg)
			os.Exit(2)
		}
		country, ok := postal.ParseCountry(countryToken)
		if !ok {
			logger.Error("unsupported country", "country", countryToken)
			os.Exit(2)
		}

		g.Go(func() error {
			return buildCountry(ctx, logger, c, *outDir, country, srcPath)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("build failed", "error", err)
		os.Exit(1)
	}
}

// buildCountry builds one country's artifact pair. Any failure removes the
// partial outputs.
func buildCountry(ctx context.Context, logger *slog.Logger, c codec.Codec, outDir string, country postal.Country, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening source for %s: %w", country, err)
	}
	defer src.Close()

	indexPath := filepath.Join(outDir, zipdex.IndexBlobName(country))
	dataPath := filepath.Join(outDir, zipdex.DataBlobName(country))

	indexFile, err := os.Create(indexPath)
	if err != nil {
		return fmt.Errorf("creating index for %s: %w", country, err)
	}
	dataFile, err := os.Create(dataPath)
	if err != nil {
		indexFile.Close()
		os.Remove(indexPath)
		return fmt.Errorf("creating data blob for %s: %w", country, err)
	}

	success := false
	defer func() {
		if !success {
			indexFile.Close()
			dataFile.Close()
			os.Remove(indexPath)
			os.Remove(dataPath)
		}
	}()

	indexW := bufio.NewWriter(indexFile)
	dataW := bufio.NewWriter(dataFile)

	builder := preprocess.NewBuilder(
		preprocess.WithCodec(c),
		preprocess.WithLogger(logger),
	)
	stats, err := builder.Build(ctx, src, country, indexW, dataW)
	if err != nil {
		return err
	}

	for _, flush := range []func() error{indexW.Flush, dataW.Flush, indexFile.Close, dataFile.Close} {
		if err := flush(); err != nil {
			return fmt.Errorf("finalizing artifacts for %s: %w", country, err)
		}
	}
	success = true

	logger.Info("artifacts written",
		"country", string(country),
		"index", indexPath,
		"data", dataPath,
		"records", stats.Records,
		"dropped", stats.Dropped,
	)
	return nil
}
