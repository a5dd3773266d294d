package coc

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"go-clan-tracker/internal/logx"
	"go-clan-tracker/internal/metrics"
)

// BreakerFetcher 为任意 Fetcher 增加熔断保护。
// ErrNotFound/ErrNoWar 属于预期结果，不计入失败。
type BreakerFetcher struct {
	next Fetcher
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// BreakerSettings 为熔断参数；零值使用默认值。
type BreakerSettings struct {
	// ConsecutiveFailures 连续失败多少次后打开
	ConsecutiveFailures uint32
	// OpenTimeout 打开状态持续多久后进入半开
	OpenTimeout time.Duration
}

func NewBreakerFetcher(next Fetcher, s BreakerSettings) *BreakerFetcher {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout == 0 {
		s.OpenTimeout = 2 * time.Minute
	}
	name := "coc-api"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoWar)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logx.Warnf("接口熔断状态变化：%s %s -> %s", name, from, to)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return &BreakerFetcher{next: next, cb: cb, name: name}
}

// State 返回当前熔断状态。
func (b *BreakerFetcher) State() gobreaker.State { return b.cb.State() }

func call[T any](b *BreakerFetcher, endpoint string, fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (any, error) { return fn() })
	var zero T
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.APIRequests.WithLabelValues(endpoint, "rejected").Inc()
		return zero, err
	case errors.Is(err, ErrNotFound):
		metrics.APIRequests.WithLabelValues(endpoint, "not_found").Inc()
		return zero, err
	case errors.Is(err, ErrNoWar):
		metrics.APIRequests.WithLabelValues(endpoint, "no_war").Inc()
		return zero, err
	case err != nil:
		metrics.APIRequests.WithLabelValues(endpoint, "failure").Inc()
		return zero, err
	}
	metrics.APIRequests.WithLabelValues(endpoint, "success").Inc()
	out, _ := res.(T)
	return out, nil
}

func (b *BreakerFetcher) GetClan(ctx context.Context, tag string) (*ClanSnapshot, error) {
	return call(b, "clan", func() (*ClanSnapshot, error) { return b.next.GetClan(ctx, tag) })
}

func (b *BreakerFetcher) GetMembers(ctx context.Context, tag string) ([]RosterEntry, error) {
	return call(b, "members", func() ([]RosterEntry, error) { return b.next.GetMembers(ctx, tag) })
}

func (b *BreakerFetcher) GetPlayer(ctx context.Context, tag string) (*PlayerSnapshot, error) {
	return call(b, "player", func() (*PlayerSnapshot, error) { return b.next.GetPlayer(ctx, tag) })
}

func (b *BreakerFetcher) CurrentWar(ctx context.Context, tag string) (*WarSnapshot, error) {
	return call(b, "current_war", func() (*WarSnapshot, error) { return b.next.CurrentWar(ctx, tag) })
}

func (b *BreakerFetcher) ClanWar(ctx context.Context, tag string) (*WarSnapshot, error) {
	return call(b, "clan_war", func() (*WarSnapshot, error) { return b.next.ClanWar(ctx, tag) })
}

func (b *BreakerFetcher) LeagueWar(ctx context.Context, tag string) (*WarSnapshot, error) {
	return call(b, "league_war", func() (*WarSnapshot, error) { return b.next.LeagueWar(ctx, tag) })
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}
