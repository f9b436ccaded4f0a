package server

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type recCloser struct {
	name  string
	order *[]string
	err   error
}

func (r recCloser) Close() error {
	*r.order = append(*r.order, r.name)
	return r.err
}

func TestRunContextClosesInReverseOrder(t *testing.T) {
	var order []string
	a := New(nil, nil,
		WithCloser("cache", recCloser{name: "cache", order: &order}),
		WithCloser("producer", recCloser{name: "producer", order: &order}),
		WithCloser("clickhouse", recCloser{name: "clickhouse", order: &order}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.RunContext(ctx); err != nil {
		t.Fatalf("RunContext: %v", err)
	}
	if diff := cmp.Diff([]string{"clickhouse", "producer", "cache"}, order); diff != "" {
		t.Errorf("close order (-want +got):\n%s", diff)
	}
}

func TestShutdownJoinsCloseErrors(t *testing.T) {
	var order []string
	boom := errors.New("boom")
	a := New(nil, nil,
		WithCloser("ok", recCloser{name: "ok", order: &order}),
		WithCloser("bad", recCloser{name: "bad", order: &order, err: boom}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := a.RunContext(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if len(order) != 2 {
		t.Errorf("every closer must run, got %v", order)
	}
}
