package repository

import "testing"

func TestNormalizeInterval(t *testing.T) {
	cases := map[string]Interval{
		"":    Interval1d,
		"1h":  Interval1h,
		"1wk": Interval1wk,
		"2d":  Interval1d,
	}
	for in, want := range cases {
		if got := NormalizeInterval(in); got != want {
			t.Fatalf("NormalizeInterval(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIntervalBarsPerYear(t *testing.T) {
	if got := Interval1d.BarsPerYear(); got != 252 {
		t.Fatalf("daily bars per year = %v", got)
	}
	if got := Interval1h.BarsPerYear(); got != 252*6.5 {
		t.Fatalf("hourly bars per year = %v", got)
	}
	if !Interval5m.IsIntraday() || Interval1d.IsIntraday() {
		t.Fatalf("unexpected intraday classification")
	}
}
