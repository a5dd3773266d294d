// 包 ranking 实现部落战推荐名单的加权名次和评分。
package ranking

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrUnknownMetric     = errors.New("unknown metric")
	ErrInvalidWeight     = errors.New("invalid weight")
	ErrInvalidSize       = errors.New("result size must be at least 1")
	ErrDivisionUndefined = errors.New("activity ratio undefined: no activity samples")
)

type Metric string

const (
	WarStars      Metric = "war_stars"
	WarAttacks    Metric = "war_attacks"
	AttackWins    Metric = "attack_wins"
	ActivityRatio Metric = "activity_ratio"
	LastActive    Metric = "last_active"
	Donations     Metric = "donations"
	Trophies      Metric = "trophies"
)

// AllMetrics 为默认评分维度，顺序即计算顺序。
var AllMetrics = []Metric{WarStars, WarAttacks, AttackWins, ActivityRatio, LastActive, Donations, Trophies}

type Criterion struct {
	Metric Metric
	Weight float64
}

func known(m Metric) bool {
	for _, k := range AllMetrics {
		if k == m {
			return true
		}
	}
	return false
}

// ParseCriteria 解析形如 "war_stars:2,donations" 的评分条件。
// 空串或 "all" 表示全部维度、权重 1；权重缺省为 1；同一维度重复出现时以第一次为准。
func ParseCriteria(spec string) ([]Criterion, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "all") {
		out := make([]Criterion, 0, len(AllMetrics))
		for _, m := range AllMetrics {
			out = append(out, Criterion{Metric: m, Weight: 1})
		}
		return out, nil
	}
	var out []Criterion
	seen := map[Metric]bool{}
	for _, part := range strings.Split(spec, ",") {
		name, weightStr, hasWeight := strings.Cut(part, ":")
		m := Metric(strings.ToLower(strings.TrimSpace(name)))
		if !known(m) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, strings.TrimSpace(name))
		}
		w := 1.0
		if hasWeight {
			v, err := strconv.ParseFloat(strings.TrimSpace(weightStr), 64)
			if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: %q for %s", ErrInvalidWeight, strings.TrimSpace(weightStr), m)
			}
			w = v
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, Criterion{Metric: m, Weight: w})
	}
	return out, nil
}

// IsInvalidRequest 判断错误是否源于请求参数或数据不足，而非存储故障。
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrUnknownMetric) || errors.Is(err, ErrInvalidWeight) ||
		errors.Is(err, ErrInvalidSize) || errors.Is(err, ErrDivisionUndefined)
}
