package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"StockResearch/internal/domain/models"
	"StockResearch/internal/domain/repository"
)

type fakePurger struct {
	n   int
	err error
}

func (f fakePurger) PurgeExpired(context.Context) (int, error) { return f.n, f.err }

type fakeRunner struct {
	got []models.StockRequest
}

func (f *fakeRunner) BatchAnalyze(_ context.Context, reqs []models.StockRequest) []models.BatchResult {
	f.got = reqs
	out := make([]models.BatchResult, len(reqs))
	for i, r := range reqs {
		out[i] = models.BatchResult{Market: r.Market, Symbol: r.Symbol, Interval: r.Interval}
		if r.Symbol == "BAD" {
			out[i].Error = "boom"
			continue
		}
		out[i].Result = &models.AggregateResult{Market: r.Market, Symbol: r.Symbol, Interval: r.Interval}
	}
	return out
}

type fakeStore struct{}

func (fakeStore) GetLatestNCandles(_ context.Context, _, symbol string, _ repository.Interval, n int) ([]models.Candle, error) {
	if symbol == "GONE" {
		return nil, errors.New("no such table")
	}
	return make([]models.Candle, n), nil
}

type fakePublisher struct {
	batches [][]*models.AggregateResult
}

func (f *fakePublisher) Publish(context.Context, *models.AggregateResult) error { return nil }
func (f *fakePublisher) PublishBatch(_ context.Context, rs []*models.AggregateResult) error {
	f.batches = append(f.batches, rs)
	return nil
}
func (f *fakePublisher) Close() error { return nil }

func TestRunRefreshNow(t *testing.T) {
	runner := &fakeRunner{}
	pub := &fakePublisher{}
	s := NewScheduler(context.Background(), fakePurger{}, runner,
		WithRefresh(fakeStore{}, pub, []WatchItem{
			{Market: "us", Symbol: "AAPL", Interval: "1d"},
			{Market: "us", Symbol: "GONE"},
			{Market: "us", Symbol: "BAD", Interval: "1h"},
		}, 30))

	rep := s.RunRefreshNow(context.Background())
	want := RefreshReport{Requested: 3, Loaded: 2, Analyzed: 1, Failed: 2, Published: 1}
	if diff := cmp.Diff(want, rep); diff != "" {
		t.Errorf("report (-want +got):\n%s", diff)
	}
	if len(runner.got) != 2 || runner.got[1].Interval != "1h" || len(runner.got[0].Candles) != 30 {
		t.Errorf("batch requests = %+v", runner.got)
	}
	if len(pub.batches) != 1 || pub.batches[0][0].Symbol != "AAPL" {
		t.Errorf("published = %+v", pub.batches)
	}
}

func TestRunPurgeNow(t *testing.T) {
	s := NewScheduler(context.Background(), fakePurger{n: 4}, &fakeRunner{})
	n, err := s.RunPurgeNow(context.Background())
	if err != nil || n != 4 {
		t.Fatalf("purge = %d, %v", n, err)
	}

	s = NewScheduler(context.Background(), fakePurger{err: errors.New("disk")}, &fakeRunner{})
	if _, err := s.RunPurgeNow(context.Background()); err == nil {
		t.Fatal("expected purge error")
	}
}

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(context.Background(), fakePurger{}, &fakeRunner{},
		WithRefresh(fakeStore{}, nil, []WatchItem{{Market: "us", Symbol: "AAPL"}}, 0))
	if err := s.RegisterAll("0 0 * * * *", "0 */15 * * * *", ""); err != nil {
		t.Fatal(err)
	}
	if got := len(s.Cron.Entries()); got != 2 {
		t.Errorf("entries = %d, want 2", got)
	}
	if err := s.RegisterAll("not a spec", "", ""); err == nil {
		t.Error("expected invalid spec error")
	}
}

func TestRefreshSkippedWithoutStore(t *testing.T) {
	s := NewScheduler(context.Background(), fakePurger{}, &fakeRunner{})
	if err := s.RegisterAll("", "0 * * * * *", ""); err != nil {
		t.Fatal(err)
	}
	if got := len(s.Cron.Entries()); got != 0 {
		t.Errorf("entries = %d, want 0", got)
	}
}
