package calculator

import (
	"errors"
	"reflect"
	"testing"

	"rfm-segments/pkg/models"
)

func TestScore_EqualPopulations(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	values := []float64{10, 90, 30, 70, 50, 20, 100, 40, 80, 60}
	got, k, err := Score("monetary", ids, values, 5, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k != 5 {
		t.Fatalf("got k=%d, want 5", k)
	}
	want := []int{1, 5, 2, 4, 3, 1, 5, 2, 4, 3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestScore_InvertedForRecency(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	values := []float64{0, 40, 10, 30, 20} // jours
	got, _, err := Score("recency", ids, values, 5, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{5, 1, 4, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestScore_TieBreakByCustomerID(t *testing.T) {
	// 4 clients à 5.0 autour de la coupure entre classes 1 et 2
	ids := []string{"d", "b", "a", "c"}
	values := []float64{5, 5, 1, 5}
	got, k, err := Score("monetary", ids, values, 2, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k != 2 {
		t.Fatalf("got k=%d, want 2", k)
	}
	// ordre: a(1) b(5) c(5) d(5) -> 1 1 2 2
	want := []int{2, 1, 1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	again, _, _ := Score("monetary", ids, values, 2, false, false)
	if !reflect.DeepEqual(got, again) {
		t.Fatalf("non-deterministic scores: %v vs %v", got, again)
	}
}

func TestScore_Monotonic(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f", "g"}
	values := []float64{3, 3, -2, 8, 8, 8, 0}
	got, _, err := Score("monetary", ids, values, 5, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range values {
		for j := range values {
			if values[i] > values[j] && got[i] < got[j] {
				t.Fatalf("value %v scored %d below value %v scored %d", values[i], got[i], values[j], got[j])
			}
		}
	}
}

func TestScore_ReducesBinsOnLowVariance(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f"}
	values := []float64{1, 1, 1, 1, 2, 2}
	got, k, err := Score("frequency", ids, values, 5, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k != 2 {
		t.Fatalf("got k=%d, want 2", k)
	}
	for i, s := range got {
		if s < 1 || s > 2 {
			t.Fatalf("score %d for %s out of range 1..2", s, ids[i])
		}
	}
}

func TestScore_SingleCustomerNonStrict(t *testing.T) {
	got, k, err := Score("monetary", []string{"only"}, []float64{42}, 5, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k != 1 || len(got) != 1 || got[0] != 1 {
		t.Fatalf("got scores %v k=%d, want [1] k=1", got, k)
	}
}

func TestScore_StrictInsufficientVariance(t *testing.T) {
	_, _, err := Score("frequency", []string{"only"}, []float64{1}, 5, false, true)
	var ive *models.InsufficientVarianceError
	if !errors.As(err, &ive) {
		t.Fatalf("got %v, want *InsufficientVarianceError", err)
	}
	if ive.Metric != "frequency" || ive.Distinct != 1 || ive.Bins != 5 {
		t.Fatalf("unexpected error fields: %+v", ive)
	}
}

func TestScore_ZeroAmountGetsBottomBin(t *testing.T) {
	ids := []string{"zero", "b", "c", "d", "e", "f"}
	values := []float64{0, 15, 120, 40, 75, 300}
	got, _, err := Score("monetary", ids, values, 5, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != 1 {
		t.Fatalf("got score %d for zero amount, want 1", got[0])
	}
}

func TestScore_Empty(t *testing.T) {
	got, k, err := Score("monetary", nil, nil, 5, false, true)
	if err != nil || got != nil || k != 0 {
		t.Fatalf("got %v k=%d err=%v, want nil 0 nil", got, k, err)
	}
}
