package calculator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"rfm-segments/pkg/models"
)

// dix clients : le client i achète i fois, pour i*10 à chaque fois, le dernier achat au jour i.
func population() []models.Transaction {
	var txs []models.Transaction
	for i := 1; i <= 10; i++ {
		for j := 0; j < i; j++ {
			txs = append(txs, models.Transaction{
				CustomerID: fmt.Sprintf("C%02d", i),
				Date:       dayN(i - j),
				Amount:     float64(i * 10),
			})
		}
	}
	return txs
}

func TestRun_OneRowPerCustomer(t *testing.T) {
	txs := population()
	rep, err := Run(context.Background(), txs, models.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rep.Customers) != 10 {
		t.Fatalf("got %d customers, want 10", len(rep.Customers))
	}
	counts := map[string]int{}
	sums := map[string]float64{}
	for _, tx := range txs {
		counts[tx.CustomerID]++
		sums[tx.CustomerID] += tx.Amount
	}
	for _, c := range rep.Customers {
		if c.Frequency != counts[c.CustomerID] {
			t.Fatalf("%s: got frequency %d, want %d", c.CustomerID, c.Frequency, counts[c.CustomerID])
		}
		if c.Monetary != sums[c.CustomerID] {
			t.Fatalf("%s: got monetary %v, want %v", c.CustomerID, c.Monetary, sums[c.CustomerID])
		}
		if c.Recency < 0 {
			t.Fatalf("%s: negative recency %d", c.CustomerID, c.Recency)
		}
		if c.Segment == "" {
			t.Fatalf("%s: no segment", c.CustomerID)
		}
	}
	if rep.RunID == "" {
		t.Fatal("expected a run id")
	}
	if !rep.Reference.Equal(dayN(10)) {
		t.Fatalf("got reference %v, want %v", rep.Reference, dayN(10))
	}
}

func TestRun_BestCustomerIsPlatinum(t *testing.T) {
	rep, err := Run(context.Background(), population(), models.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	best := rep.Customers[len(rep.Customers)-1] // C10
	if best.CustomerID != "C10" {
		t.Fatalf("got %s, want C10 last", best.CustomerID)
	}
	if best.Composite != "555" || best.Total != 15 {
		t.Fatalf("got composite %s total %d, want 555/15", best.Composite, best.Total)
	}
	if best.Segment != "Platinum" {
		t.Fatalf("got %q, want Platinum", best.Segment)
	}
	worst := rep.Customers[0] // C01
	if worst.Composite != "111" || worst.Segment != "Bronze" {
		t.Fatalf("got %s/%s, want 111/Bronze", worst.Composite, worst.Segment)
	}
}

func TestRun_Deterministic(t *testing.T) {
	a, err := Run(context.Background(), population(), models.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Run(context.Background(), population(), models.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a.Customers, b.Customers) {
		t.Fatal("two runs over the same input disagree")
	}
}

func TestRun_SingleCustomerNonStrict(t *testing.T) {
	txs := []models.Transaction{{CustomerID: "solo", Date: dayN(3), Amount: 10}}
	rep, err := Run(context.Background(), txs, models.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := rep.Customers[0]
	if c.Composite != "111" || c.Segment != "Bronze" {
		t.Fatalf("got %s/%s, want 111/Bronze", c.Composite, c.Segment)
	}
	if rep.Bins != (models.BinCounts{Recency: 1, Frequency: 1, Monetary: 1}) {
		t.Fatalf("got bins %+v, want all 1", rep.Bins)
	}
}

func TestRun_SingleCustomerStrict(t *testing.T) {
	txs := []models.Transaction{{CustomerID: "solo", Date: dayN(3), Amount: 10}}
	_, err := Run(context.Background(), txs, models.Config{StrictBins: true})
	var ive *models.InsufficientVarianceError
	if !errors.As(err, &ive) {
		t.Fatalf("got %v, want *InsufficientVarianceError", err)
	}
}

func TestRun_UnscoredCustomer(t *testing.T) {
	cfg := models.Config{Segments: []models.SegmentSpec{{Label: "Top", Composites: []string{"555"}}}}
	_, err := Run(context.Background(), population(), cfg)
	var ue *models.UnscoredCustomerError
	if !errors.As(err, &ue) {
		t.Fatalf("got %v, want *UnscoredCustomerError", err)
	}
}

func TestRun_Statistical(t *testing.T) {
	rep, err := Run(context.Background(), population(), models.Config{Segmentation: models.SegmentationStatistical})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Customers[9].Segment != "Platinum" || rep.Customers[0].Segment != "Bronze" {
		t.Fatalf("got %s / %s, want Platinum / Bronze", rep.Customers[9].Segment, rep.Customers[0].Segment)
	}
}

func TestRun_FutureTransactionIsDataError(t *testing.T) {
	cfg := models.Config{Reference: dayN(5)}
	_, err := Run(context.Background(), population(), cfg)
	var de *models.DataError
	if !errors.As(err, &de) {
		t.Fatalf("got %v, want *DataError", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	if _, err := Run(context.Background(), population(), models.Config{Bins: 12}); err == nil {
		t.Fatal("expected error for bins=12")
	}
	if _, err := Run(context.Background(), population(), models.Config{Segmentation: "magic"}); err == nil {
		t.Fatal("expected error for unknown segmentation")
	}
	cfg := models.Config{
		Segmentation: models.SegmentationStatistical,
		Segments:     []models.SegmentSpec{{Label: "VIP"}},
	}
	if _, err := Run(context.Background(), population(), cfg); err == nil {
		t.Fatal("expected error for segments with statistical segmentation")
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, population(), models.Config{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestSummarize(t *testing.T) {
	scores := []models.CustomerScore{
		{CustomerRFM: models.CustomerRFM{Monetary: 100}, Segment: "Gold"},
		{CustomerRFM: models.CustomerRFM{Monetary: 50}, Segment: "Bronze"},
		{CustomerRFM: models.CustomerRFM{Monetary: 25}, Segment: "Gold"},
		{CustomerRFM: models.CustomerRFM{Monetary: 5}, Segment: "Custom"},
	}
	got := Summarize(scores, []string{"Platinum", "Gold", "Silver", "Bronze"})
	want := []models.SegmentSummary{
		{Segment: "Gold", Customers: 2, Monetary: 125, Share: 0.5},
		{Segment: "Bronze", Customers: 1, Monetary: 50, Share: 0.25},
		{Segment: "Custom", Customers: 1, Monetary: 5, Share: 0.25},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
