package ranking

import (
	"context"
	"fmt"
	"time"

	"go-clan-tracker/internal/metrics"
	"go-clan-tracker/internal/model"
)

// Store 为评分所需的只读查询。
type Store interface {
	ListCurrentMembers(ctx context.Context) ([]model.Member, error)
	AttackTotals(ctx context.Context) (map[int64]model.AttackTotal, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(s Store) *Service { return &Service{store: s, now: time.Now} }

// Top 读取在籍成员并评分，返回前 size 名。
func (s *Service) Top(ctx context.Context, size int, spec string) ([]Score, error) {
	scores, err := s.top(ctx, size, spec)
	switch {
	case IsInvalidRequest(err):
		metrics.RankRequests.WithLabelValues("rejected").Inc()
		return nil, err
	case err != nil:
		metrics.RankRequests.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.RankRequests.WithLabelValues("success").Inc()
	return scores, nil
}

func (s *Service) top(ctx context.Context, size int, spec string) ([]Score, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	criteria, err := ParseCriteria(spec)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListCurrentMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	totals, err := s.store.AttackTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load attack totals: %w", err)
	}
	cands := make([]Candidate, 0, len(members))
	for _, m := range members {
		cands = append(cands, Candidate{Member: m, Attacks: totals[m.ID]})
	}
	scores, err := Rank(cands, criteria, s.now())
	if err != nil {
		return nil, err
	}
	if len(scores) > size {
		scores = scores[:size]
	}
	return scores, nil
}
