package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/bulkorders"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/engine"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/config"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/logger"
)

func main() {
	ctx := context.Background()
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "importer"})

	_ = godotenv.Load()

	file := flag.String("file", "", "order import CSV")
	reportOut := flag.String("report", "", "write the error report CSV here when rows fail")
	exportOut := flag.String("export", "", "write every order as an import-compatible CSV here")
	template := flag.Bool("template", false, "print the import header row and exit")
	flag.Parse()

	if *template {
		if err := bulkorders.WriteTemplate(os.Stdout); err != nil {
			logg.Error(ctx, "write template", err)
			os.Exit(1)
		}
		return
	}
	if *file == "" && *exportOut == "" {
		fmt.Fprintln(os.Stderr, "missing -file or -export")
		os.Exit(1)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "importer",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "file": *file})

	eng, err := engine.New(ctx, cfg, logg)
	requireResource(ctx, logg, "engine", err)
	defer func() {
		if err := eng.Close(); err != nil {
			logg.Error(ctx, "engine shutdown", err)
		}
	}()

	if *exportOut != "" {
		out, err := os.Create(*exportOut)
		requireResource(ctx, logg, "export file", err)
		defer out.Close()
		if err := eng.ExportOrdersCSV(ctx, out); err != nil {
			logg.Error(ctx, "order export failed", err)
			os.Exit(1)
		}
		if *file == "" {
			return
		}
	}

	in, err := os.Open(*file)
	requireResource(ctx, logg, "import file", err)
	defer in.Close()

	result, err := eng.ImportCSV(ctx, in)
	if err != nil {
		logg.Error(ctx, "order import rejected", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logg.Error(ctx, "encode result", err)
		os.Exit(1)
	}

	if *reportOut != "" && result.ReportID != "" {
		out, err := os.Create(*reportOut)
		requireResource(ctx, logg, "report file", err)
		defer out.Close()
		if err := eng.WriteImportReport(ctx, result.ReportID, out); err != nil {
			logg.Error(ctx, "write error report", err)
			os.Exit(1)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
