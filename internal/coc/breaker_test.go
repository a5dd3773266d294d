package coc

import (
	"context"
	"errors"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
)

type flakyFetcher struct {
	Fetcher
	err   error
	calls int
}

func (f *flakyFetcher) ClanWar(context.Context, string) (*WarSnapshot, error) {
	f.calls++
	return nil, f.err
}

func TestBreaker_NoWarDoesNotTrip(t *testing.T) {
	f := &flakyFetcher{err: ErrNoWar}
	b := NewBreakerFetcher(f, BreakerSettings{ConsecutiveFailures: 2})
	for i := 0; i < 5; i++ {
		if _, err := b.ClanWar(context.Background(), ourTag); !errors.Is(err, ErrNoWar) {
			t.Fatalf("expect ErrNoWar, got %v", err)
		}
	}
	if b.State() != gobreaker.StateClosed || f.calls != 5 {
		t.Fatalf("state=%v calls=%d", b.State(), f.calls)
	}
}

func TestBreaker_OpensOnFailures(t *testing.T) {
	f := &flakyFetcher{err: errors.New("boom")}
	b := NewBreakerFetcher(f, BreakerSettings{ConsecutiveFailures: 2})
	for i := 0; i < 2; i++ {
		_, _ = b.ClanWar(context.Background(), ourTag)
	}
	_, err := b.ClanWar(context.Background(), ourTag)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expect open state, got %v", err)
	}
	if f.calls != 2 {
		t.Fatalf("calls=%d want 2", f.calls)
	}
}
