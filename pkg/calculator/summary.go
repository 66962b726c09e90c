package calculator

import (
	"sort"

	"rfm-segments/pkg/models"
)

// Summarize agrège les clients par segment pour le treemap. order fixe l'ordre
// des segments connus; les autres suivent par ordre alphabétique. Les segments
// vides sont omis.
func Summarize(scores []models.CustomerScore, order []string) []models.SegmentSummary {
	bySeg := map[string]*models.SegmentSummary{}
	for _, s := range scores {
		sum, ok := bySeg[s.Segment]
		if !ok {
			sum = &models.SegmentSummary{Segment: s.Segment}
			bySeg[s.Segment] = sum
		}
		sum.Customers++
		sum.Monetary += s.Monetary
	}

	out := make([]models.SegmentSummary, 0, len(bySeg))
	for _, label := range order {
		if sum, ok := bySeg[label]; ok {
			out = append(out, *sum)
			delete(bySeg, label)
		}
	}
	rest := make([]string, 0, len(bySeg))
	for label := range bySeg {
		rest = append(rest, label)
	}
	sort.Strings(rest)
	for _, label := range rest {
		out = append(out, *bySeg[label])
	}

	if total := len(scores); total > 0 {
		for i := range out {
			out[i].Share = float64(out[i].Customers) / float64(total)
		}
	}
	return out
}
