// seed_catalog importa el maestro de ítems desde un CSV (name,sku,category,unit,min_level)
// usando el mismo registro de ítems que la API.
//
// Uso: go run ./cmd/seed_catalog [-latin1] [-delim ';'] catalogo.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/medstock/internal/application/catalog"
	"github.com/jhoicas/medstock/internal/application/ledger"
	"github.com/jhoicas/medstock/internal/infrastructure/postgres"
	"github.com/jhoicas/medstock/pkg/config"
	"github.com/jhoicas/medstock/pkg/logger"
)

func main() {
	latin1 := flag.Bool("latin1", false, "el archivo está en ISO-8859-1")
	delim := flag.String("delim", ",", "separador de columnas")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "uso: seed_catalog [-latin1] [-delim ';'] catalogo.csv")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("abrir CSV")
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	uc := ledger.NewLedgerUseCase(postgres.NewTxRunner(pool), log)
	opts := catalog.Options{Latin1: *latin1}
	if r := []rune(*delim); len(r) == 1 {
		opts.Delimiter = r[0]
	}

	res, err := catalog.ImportCSV(ctx, f, uc, opts)
	if res != nil {
		for _, w := range res.Warnings {
			log.Warn().Msg(w)
		}
		log.Info().Int("rows", res.Rows).Int("imported", res.Imported).Int("skipped", len(res.Warnings)).Msg("import de catálogo")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("import abortado")
	}
}
