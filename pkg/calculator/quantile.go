package calculator

import (
	"sort"

	"rfm-segments/pkg/models"
)

// Score répartit les clients en classes d'effectif égal (à un près) selon leur
// rang sur values, et renvoie le score 1..k de chaque client dans l'ordre
// d'entrée, ainsi que k, le nombre de classes réellement utilisées.
//
// Les ex-aequo sont départagés par identifiant client croissant : à valeur égale
// l'identifiant le plus petit reçoit le score le plus bas. Avec invert (recency),
// la plus petite valeur reçoit le score le plus haut.
//
// k = min(bins, valeurs distinctes). En mode strict, k < bins renvoie une
// *models.InsufficientVarianceError.
func Score(metric string, ids []string, values []float64, bins int, invert, strict bool) ([]int, int, error) {
	n := len(values)
	if n == 0 {
		return nil, 0, nil
	}

	distinct := countDistinct(values)
	k := min(bins, distinct)
	if strict && k < bins {
		return nil, 0, &models.InsufficientVarianceError{Metric: metric, Distinct: distinct, Bins: bins}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := values[order[a]], values[order[b]]
		if va != vb {
			if invert {
				return va > vb
			}
			return va < vb
		}
		return ids[order[a]] < ids[order[b]]
	})

	scores := make([]int, n)
	for pos, idx := range order {
		scores[idx] = pos*k/n + 1
	}
	return scores, k, nil
}

func countDistinct(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}
