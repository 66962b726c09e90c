package calculator

import (
	"errors"
	"testing"

	"rfm-segments/pkg/models"
)

func scored(r, f, m int) models.CustomerScore {
	return models.CustomerScore{
		CustomerRFM:    models.CustomerRFM{CustomerID: "x"},
		RecencyScore:   r,
		FrequencyScore: f,
		MonetaryScore:  m,
		Composite:      string(rune('0'+r)) + string(rune('0'+f)) + string(rune('0'+m)),
		Total:          r + f + m,
	}
}

func TestDefaultRules_AllFivesArePlatinum(t *testing.T) {
	r, err := DefaultRules().Assign(scored(5, 5, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Label != "Platinum" {
		t.Fatalf("got %q, want Platinum", r.Label)
	}
}

func TestDefaultRules_EachTier(t *testing.T) {
	cases := []struct {
		s    models.CustomerScore
		want string
	}{
		{scored(4, 4, 4), "Platinum"},
		{scored(5, 3, 5), "Gold"},
		{scored(3, 3, 3), "Gold"},
		{scored(2, 5, 5), "Silver"},
		{scored(2, 2, 2), "Silver"},
		{scored(1, 5, 5), "Bronze"},
		{scored(5, 5, 1), "Bronze"},
	}
	for _, c := range cases {
		r, err := DefaultRules().Assign(c.s)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.s.Composite, err)
		}
		if r.Label != c.want {
			t.Fatalf("%s: got %q, want %q", c.s.Composite, r.Label, c.want)
		}
	}
}

func TestDefaultRules_Descriptions(t *testing.T) {
	for _, r := range DefaultRules() {
		if r.Description == "" {
			t.Fatalf("rule %s has no description", r.Label)
		}
	}
}

func TestRuleTable_FirstMatchWins(t *testing.T) {
	table := RuleTable{
		{Label: "first", Match: Always},
		{Label: "second", Match: Always},
	}
	r, err := table.Assign(scored(1, 1, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Label != "first" {
		t.Fatalf("got %q, want first", r.Label)
	}
}

func TestRuleTable_Unscored(t *testing.T) {
	table := RuleTable{{Label: "VIP", Match: MinScores(5, 5, 5)}}
	_, err := table.Assign(scored(1, 2, 3))
	var ue *models.UnscoredCustomerError
	if !errors.As(err, &ue) {
		t.Fatalf("got %v, want *UnscoredCustomerError", err)
	}
	if ue.Composite != "123" {
		t.Fatalf("got composite %q, want 123", ue.Composite)
	}
}

func TestRulesFromSpecs(t *testing.T) {
	table, err := RulesFromSpecs([]models.SegmentSpec{
		{Label: "Champions", Composites: []string{"555", "554"}},
		{Label: "Loyal", MinFrequency: 4},
		{Label: "HighTotal", MinTotal: 10},
		{Label: "Other"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cases := map[string]models.CustomerScore{
		"Champions": scored(5, 5, 4),
		"Loyal":     scored(1, 4, 1),
		"HighTotal": scored(5, 3, 3),
		"Other":     scored(3, 3, 3),
	}
	for want, s := range cases {
		r, err := table.Assign(s)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", s.Composite, err)
		}
		if r.Label != want {
			t.Fatalf("%s: got %q, want %q", s.Composite, r.Label, want)
		}
	}
	if got := table.Labels(); len(got) != 4 || got[0] != "Champions" {
		t.Fatalf("unexpected labels %v", got)
	}
}

func TestRulesFromSpecs_Invalid(t *testing.T) {
	if _, err := RulesFromSpecs(nil); err == nil {
		t.Fatal("expected error for empty table")
	}
	if _, err := RulesFromSpecs([]models.SegmentSpec{{Description: "no label"}}); err == nil {
		t.Fatal("expected error for missing label")
	}
	if _, err := RulesFromSpecs([]models.SegmentSpec{{Label: "X", Composites: []string{"55"}}}); err == nil {
		t.Fatal("expected error for short composite")
	}
	for _, c := range []string{"abc", "505", "5a5"} {
		if _, err := RulesFromSpecs([]models.SegmentSpec{{Label: "X", Composites: []string{c}}}); err == nil {
			t.Fatalf("%s: expected error for composite outside 1..9", c)
		}
	}
}

func TestStatisticalRules(t *testing.T) {
	// totaux 3, 6, 9, 12 : moyenne 7.5, écart-type ~3.873
	pop := []models.CustomerScore{scored(1, 1, 1), scored(2, 2, 2), scored(3, 3, 3), scored(4, 4, 4)}
	table := StatisticalRules(pop)
	want := []string{"Bronze", "Silver", "Gold", "Platinum"}
	for i, s := range pop {
		r, err := table.Assign(s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Label != want[i] {
			t.Fatalf("total %d: got %q, want %q", s.Total, r.Label, want[i])
		}
	}
}

func TestStatisticalRules_SingleCustomer(t *testing.T) {
	pop := []models.CustomerScore{scored(1, 1, 1)}
	r, err := StatisticalRules(pop).Assign(pop[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Label != "Platinum" {
		t.Fatalf("got %q, want Platinum (std=0)", r.Label)
	}
}
