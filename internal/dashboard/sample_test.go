package dashboard

import (
	"testing"
)

func TestSeriesDeterministic(t *testing.T) {
	a := Series(30)
	b := Series(30)

	if len(a) != 30 || len(b) != 30 {
		t.Fatalf("expected 30 points, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("series differ at index %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestSeriesFullYear(t *testing.T) {
	full := Series(0)
	if len(full) != 366 {
		t.Fatalf("expected 366 points for 2024, got %d", len(full))
	}
	if full[0].Date != "2024-01-01" {
		t.Errorf("expected first date 2024-01-01, got %s", full[0].Date)
	}
	if full[len(full)-1].Date != "2024-12-31" {
		t.Errorf("expected last date 2024-12-31, got %s", full[len(full)-1].Date)
	}

	// Day index 0 values follow directly from the formulas.
	first := full[0]
	if first.Production != 100 || first.QualityScore != 95 || first.Defects != 5 || first.Efficiency != 85 {
		t.Errorf("unexpected first point: %+v", first)
	}
}

func TestSeriesTail(t *testing.T) {
	tail := Series(7)
	if len(tail) != 7 {
		t.Fatalf("expected 7 points, got %d", len(tail))
	}
	if tail[6].Date != "2024-12-31" {
		t.Errorf("tail should end at the series end, got %s", tail[6].Date)
	}
}

func TestSummaryMetrics(t *testing.T) {
	cards := SummaryMetrics()
	if len(cards) != 4 {
		t.Fatalf("expected 4 metric cards, got %d", len(cards))
	}
	for _, c := range cards {
		if c.Label == "" || c.Value == "" || c.Direction == "" {
			t.Errorf("incomplete card: %+v", c)
		}
	}
}

func TestBestPractices(t *testing.T) {
	sections := BestPractices()
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	for _, s := range sections {
		if len(s.Tips) == 0 {
			t.Errorf("section %q has no tips", s.Category)
		}
	}
}
