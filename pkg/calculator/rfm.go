package calculator

import (
	"context"
	"fmt"
	"log"

	"rfm-segments/pkg/models"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
)

const defaultBins = 5

// Run enchaîne fenêtre → agrégation → scores → segments → résumé treemap.
// Aucune sortie partielle : toute erreur abandonne le run.
func Run(ctx context.Context, txs []models.Transaction, cfg models.Config) (models.Report, error) {
	bins := cfg.Bins
	if bins == 0 {
		bins = defaultBins
	}
	if bins < 1 || bins > 9 {
		return models.Report{}, fmt.Errorf("bins must be between 1 and 9, got %d", bins)
	}

	txs, err := FilterWindow(txs, cfg.Since, cfg.Until)
	if err != nil {
		return models.Report{}, fmt.Errorf("window: %w", err)
	}
	if cfg.Since != "" || cfg.Until != "" {
		log.Printf("[INFO] window %s -> %s : %d transactions", describeMonth(cfg.Since), describeMonth(cfg.Until), len(txs))
	}

	ref := cfg.Reference
	if ref.IsZero() {
		ref = ReferenceDate(txs)
	}
	customers, err := Aggregate(txs, ref)
	if err != nil {
		return models.Report{}, fmt.Errorf("aggregate: %w", err)
	}
	log.Printf("[INFO] aggregated %d transactions into %d customers (reference=%s)",
		len(txs), len(customers), ref.Format("2006-01-02"))

	if err := ctx.Err(); err != nil {
		return models.Report{}, err
	}

	scores, counts, err := scoreAll(customers, bins, cfg.StrictBins)
	if err != nil {
		return models.Report{}, fmt.Errorf("score: %w", err)
	}
	if counts.Recency < bins || counts.Frequency < bins || counts.Monetary < bins {
		log.Printf("[WARN] bins reduced for low variance: recency=%d frequency=%d monetary=%d (asked %d)",
			counts.Recency, counts.Frequency, counts.Monetary, bins)
	}

	if err := ctx.Err(); err != nil {
		return models.Report{}, err
	}

	rules, err := ruleTable(cfg, scores)
	if err != nil {
		return models.Report{}, fmt.Errorf("segments: %w", err)
	}

	var bar *progressbar.ProgressBar
	if cfg.Verbose {
		bar = progressbar.Default(int64(len(scores)), "segmenting")
	} else {
		bar = progressbar.DefaultSilent(int64(len(scores)))
	}
	for i := range scores {
		r, err := rules.Assign(scores[i])
		if err != nil {
			return models.Report{}, err
		}
		scores[i].Segment = r.Label
		scores[i].Description = r.Description
		_ = bar.Add(1)
		if cfg.Verbose {
			log.Printf("[DEBUG] %s -> %s (R=%d F=%d M=%d)", scores[i].CustomerID, r.Label,
				scores[i].RecencyScore, scores[i].FrequencyScore, scores[i].MonetaryScore)
		}
	}

	summary := Summarize(scores, rules.Labels())
	for _, s := range summary {
		log.Printf("[INFO] %s : clients=%d monetary=%.2f share=%.3f", s.Segment, s.Customers, s.Monetary, s.Share)
	}

	return models.Report{
		RunID:     uuid.New().String(),
		Reference: ref,
		Bins:      counts,
		Customers: scores,
		Segments:  summary,
	}, nil
}

func scoreAll(customers []models.CustomerRFM, bins int, strict bool) ([]models.CustomerScore, models.BinCounts, error) {
	n := len(customers)
	ids := make([]string, n)
	rec := make([]float64, n)
	freq := make([]float64, n)
	mon := make([]float64, n)
	for i, c := range customers {
		ids[i] = c.CustomerID
		rec[i] = float64(c.Recency)
		freq[i] = float64(c.Frequency)
		mon[i] = c.Monetary
	}

	var counts models.BinCounts
	r, k, err := Score("recency", ids, rec, bins, true, strict)
	if err != nil {
		return nil, counts, err
	}
	counts.Recency = k
	f, k, err := Score("frequency", ids, freq, bins, false, strict)
	if err != nil {
		return nil, counts, err
	}
	counts.Frequency = k
	m, k, err := Score("monetary", ids, mon, bins, false, strict)
	if err != nil {
		return nil, counts, err
	}
	counts.Monetary = k

	out := make([]models.CustomerScore, n)
	for i, c := range customers {
		out[i] = models.CustomerScore{
			CustomerRFM:    c,
			RecencyScore:   r[i],
			FrequencyScore: f[i],
			MonetaryScore:  m[i],
			Composite:      fmt.Sprintf("%d%d%d", r[i], f[i], m[i]),
			Total:          r[i] + f[i] + m[i],
		}
	}
	return out, counts, nil
}

func ruleTable(cfg models.Config, scores []models.CustomerScore) (RuleTable, error) {
	switch cfg.Segmentation {
	case "", models.SegmentationRules:
		if len(cfg.Segments) == 0 {
			return DefaultRules(), nil
		}
		return RulesFromSpecs(cfg.Segments)
	case models.SegmentationStatistical:
		if len(cfg.Segments) > 0 {
			return nil, fmt.Errorf("segments cannot be combined with segmentation %q", cfg.Segmentation)
		}
		return StatisticalRules(scores), nil
	}
	return nil, fmt.Errorf("unknown segmentation %q", cfg.Segmentation)
}

func describeMonth(mmyyyy string) string {
	if mmyyyy == "" {
		return "*"
	}
	m, err := parseMonth(mmyyyy)
	if err != nil {
		return mmyyyy
	}
	return formatMonth(m)
}
