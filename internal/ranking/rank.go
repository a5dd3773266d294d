package ranking

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go-clan-tracker/internal/model"
)

// Candidate 为参与评分的成员及其历史进攻汇总。
type Candidate struct {
	model.Member
	Attacks model.AttackTotal
}

type Score struct {
	Tag   string  `json:"tag"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// value 返回成员在某维度上的原始值，以及该维度是否越小越好。
func value(c Candidate, m Metric, now time.Time) (float64, bool, error) {
	switch m {
	case WarStars:
		return float64(c.Attacks.Stars), false, nil
	case WarAttacks:
		return float64(c.Attacks.Attacks), false, nil
	case AttackWins:
		return float64(c.AttackWins), false, nil
	case ActivityRatio:
		n := c.ActivityHits + c.ActivityMisses
		if n == 0 {
			return 0, false, fmt.Errorf("%w: %s", ErrDivisionUndefined, c.Tag)
		}
		return float64(c.ActivityHits) / float64(n), false, nil
	case LastActive:
		if c.LastActive == nil {
			return math.Inf(1), true, nil
		}
		return now.Sub(*c.LastActive).Hours(), true, nil
	case Donations:
		return float64(c.Donations - c.DonationsReceived), false, nil
	case Trophies:
		return float64(c.Trophies), false, nil
	}
	return 0, false, fmt.Errorf("%w: %q", ErrUnknownMetric, m)
}

// Rank 对每个维度单独排序，名次 0 为最优，成员总分为各维度名次乘以权重之和。
// 结果按总分升序（越小越好），同分按 tag 排序；任一维度出错则整体失败。
func Rank(members []Candidate, criteria []Criterion, now time.Time) ([]Score, error) {
	totals := make(map[string]float64, len(members))
	for _, c := range members {
		totals[c.Tag] = 0
	}
	type entry struct {
		tag string
		v   float64
	}
	for _, cr := range criteria {
		entries := make([]entry, 0, len(members))
		lowerBetter := false
		for _, c := range members {
			v, lb, err := value(c, cr.Metric, now)
			if err != nil {
				return nil, err
			}
			lowerBetter = lb
			entries = append(entries, entry{c.Tag, v})
		}
		sort.Slice(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if a.v != b.v {
				if lowerBetter {
					return a.v < b.v
				}
				return a.v > b.v
			}
			return a.tag < b.tag
		})
		for pos, e := range entries {
			totals[e.tag] += float64(pos) * cr.Weight
		}
	}

	out := make([]Score, 0, len(members))
	for _, c := range members {
		out = append(out, Score{Tag: c.Tag, Name: c.Name, Score: totals[c.Tag]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Tag < out[j].Tag
	})
	return out, nil
}

// FormatListing 输出 "名次. 名字 - 分数" 的文本列表；名字为空时使用 tag。
func FormatListing(scores []Score) string {
	var b strings.Builder
	for i, s := range scores {
		name := s.Name
		if name == "" {
			name = s.Tag
		}
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, name, strconv.FormatFloat(s.Score, 'f', -1, 64))
	}
	return b.String()
}
