package calculator

import (
	"fmt"
	"math"

	"rfm-segments/pkg/models"
)

// Rule associe un prédicat sur les scores à un libellé de segment.
type Rule struct {
	Label       string
	Description string
	Match       func(models.CustomerScore) bool
}

// RuleTable est évaluée dans l'ordre; la première règle qui correspond gagne.
type RuleTable []Rule

// Assign renvoie la première règle qui correspond à s.
func (t RuleTable) Assign(s models.CustomerScore) (Rule, error) {
	for _, r := range t {
		if r.Match(s) {
			return r, nil
		}
	}
	return Rule{}, &models.UnscoredCustomerError{CustomerID: s.CustomerID, Composite: s.Composite}
}

// Labels renvoie les libellés dans l'ordre de priorité, sans doublon.
func (t RuleTable) Labels() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range t {
		if !seen[r.Label] {
			seen[r.Label] = true
			out = append(out, r.Label)
		}
	}
	return out
}

// MinScores: vrai si chacun des trois scores atteint son seuil.
func MinScores(r, f, m int) func(models.CustomerScore) bool {
	return func(s models.CustomerScore) bool {
		return s.RecencyScore >= r && s.FrequencyScore >= f && s.MonetaryScore >= m
	}
}

// Always sert de clause "else".
func Always(models.CustomerScore) bool { return true }

const (
	descPlatinum = "High-value customer: frequency and monetary value well above average."
	descGold     = "Mid-value customer: frequency and monetary value above average."
	descSilver   = "Lower-mid value customer: below average, but not the lowest."
	descBronze   = "Low-value customer: frequency and monetary value well below average."
)

// DefaultRules est la table Platinum/Gold/Silver/Bronze par seuils de score.
func DefaultRules() RuleTable {
	return RuleTable{
		{Label: "Platinum", Description: descPlatinum, Match: MinScores(4, 4, 4)},
		{Label: "Gold", Description: descGold, Match: MinScores(3, 3, 3)},
		{Label: "Silver", Description: descSilver, Match: MinScores(2, 2, 2)},
		{Label: "Bronze", Description: descBronze, Match: Always},
	}
}

// RulesFromSpecs construit une table à partir de la configuration. Toutes les
// conditions renseignées d'une entrée doivent être vraies; une entrée sans
// condition correspond toujours.
func RulesFromSpecs(specs []models.SegmentSpec) (RuleTable, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("empty segment table")
	}
	table := make(RuleTable, 0, len(specs))
	for i, sp := range specs {
		sp := sp
		if sp.Label == "" {
			return nil, fmt.Errorf("segment %d: missing label", i+1)
		}
		composites := map[string]bool{}
		for _, c := range sp.Composites {
			if !validComposite(c) {
				return nil, fmt.Errorf("segment %s: composite %q must be 3 digits between 1 and 9", sp.Label, c)
			}
			composites[c] = true
		}
		table = append(table, Rule{
			Label:       sp.Label,
			Description: sp.Description,
			Match: func(s models.CustomerScore) bool {
				if len(composites) > 0 && !composites[s.Composite] {
					return false
				}
				if sp.MinTotal > 0 && s.Total < sp.MinTotal {
					return false
				}
				return MinScores(sp.MinRecency, sp.MinFrequency, sp.MinMonetary)(s)
			},
		})
	}
	return table, nil
}

// StatisticalRules segmente sur le score total R+F+M par rapport à la moyenne
// et à l'écart-type (échantillon) de la population.
func StatisticalRules(scores []models.CustomerScore) RuleTable {
	mean, std := meanStd(scores)
	return RuleTable{
		{Label: "Platinum", Description: descPlatinum, Match: func(s models.CustomerScore) bool {
			return float64(s.Total) >= mean+std
		}},
		{Label: "Gold", Description: descGold, Match: func(s models.CustomerScore) bool {
			return float64(s.Total) >= mean
		}},
		{Label: "Silver", Description: descSilver, Match: func(s models.CustomerScore) bool {
			return float64(s.Total) >= mean-std
		}},
		{Label: "Bronze", Description: descBronze, Match: Always},
	}
}

// écart-type à n-1; 0 pour moins de deux clients.
func meanStd(scores []models.CustomerScore) (float64, float64) {
	n := float64(len(scores))
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, s := range scores {
		sum += float64(s.Total)
	}
	mean := sum / n
	if n < 2 {
		return mean, 0
	}
	var sq float64
	for _, s := range scores {
		d := float64(s.Total) - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / (n - 1))
}

func validComposite(c string) bool {
	if len(c) != 3 {
		return false
	}
	for i := 0; i < len(c); i++ {
		if c[i] < '1' || c[i] > '9' {
			return false
		}
	}
	return true
}
