package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"rfm-segments/pkg/calculator"
	"rfm-segments/pkg/config"
	"rfm-segments/pkg/database"
	"rfm-segments/pkg/models"
	"rfm-segments/pkg/tabular"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	configPath := flag.String("config", "", "Fichier YAML de configuration (défaut: $RFM_CONFIG ou rfm.yaml)")
	dsn := flag.String("dsn", "", "DSN source (mysql://, mariadb://, postgres://, sqlite://)")
	table := flag.String("table", "", "Table des transactions (avec --dsn)")
	input := flag.String("input", "", "Fichier source .csv, .xlsx ou .parquet")
	sheet := flag.String("sheet", "", "Feuille XLSX (défaut: la première)")
	output := flag.String("output", "", "Fichier résultat .csv, .xlsx, .json ou .parquet")
	treemap := flag.String("treemap", "", "Fichier JSON du résumé par segment (treemap)")
	refDate := flag.String("reference_date", "", "Date de référence YYYY-MM-DD (défaut: dernière transaction)")
	since := flag.String("since", "", "Premier mois inclus (MMYYYY)")
	until := flag.String("until", "", "Dernier mois inclus (MMYYYY)")
	bins := flag.Int("bins", 0, "Nombre de classes par métrique (défaut 5)")
	strict := flag.Bool("strict_bins", false, "Erreur si une métrique n'a pas assez de valeurs distinctes")
	segmentation := flag.String("segmentation", "", "rules ou statistical")
	verbose := flag.Bool("v", false, "Mode verbeux")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Les flags passent devant le fichier et l'environnement
	override(&cfg.DSN, *dsn)
	override(&cfg.Table, *table)
	override(&cfg.Input, *input)
	override(&cfg.Sheet, *sheet)
	override(&cfg.Output, *output)
	override(&cfg.Treemap, *treemap)
	override(&cfg.ReferenceDate, *refDate)
	override(&cfg.Since, *since)
	override(&cfg.Until, *until)
	override(&cfg.Segmentation, *segmentation)
	if *bins != 0 {
		cfg.Bins = *bins
	}
	cfg.StrictBins = cfg.StrictBins || *strict
	cfg.Verbose = cfg.Verbose || *verbose

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Usage: rfm-segments --input orders.csv [--output rfm.xlsx] | --dsn ... --table orders")
		log.Fatalf("config: %v", err)
	}

	start := time.Now()
	ctx := context.Background()

	txs, err := load(ctx, cfg)
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	log.Printf("[INFO] %d transactions loaded", len(txs))

	rep, err := calculator.Run(ctx, txs, cfg.Calculator())
	if err != nil {
		log.Fatalf("compute: %v", err)
	}

	if err := tabular.WriteOutputs(cfg.Output, cfg.Treemap, rep); err != nil {
		log.Fatalf("output: %v", err)
	}
	log.Printf("[INFO] wrote %d customers to %s", len(rep.Customers), cfg.Output)
	if cfg.Treemap != "" {
		log.Printf("[INFO] wrote treemap summary to %s", cfg.Treemap)
	}

	// Sortie : segment ; clients ; monetary ; part
	for _, s := range rep.Segments {
		fmt.Printf("%s ; clients=%d ; monetary=%.2f ; share=%.1f%%\n",
			s.Segment, s.Customers, s.Monetary, s.Share*100)
	}
	log.Printf("[INFO] run %s done in %v", rep.RunID, time.Since(start))
}

func load(ctx context.Context, cfg config.Config) ([]models.Transaction, error) {
	if cfg.Input != "" {
		return tabular.ReadFile(cfg.Input, tabular.ReadOptions{
			Columns: cfg.Columns,
			Sheet:   cfg.Sheet,
			Layouts: cfg.DateLayouts,
		})
	}

	src, dsnUsed, err := database.Open(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer src.Close()
	if cfg.Verbose {
		log.Printf("[INFO] connected driver=%s dsn=%s", src.Driver, dsnUsed)
	}
	return database.LoadTransactions(ctx, src, cfg.Table, cfg.Columns, cfg.DateLayouts)
}

func override(field *string, val string) {
	if val != "" {
		*field = val
	}
}
