// 包 coc 提供部落数据快照的抓取：部落信息、成员名单、玩家统计与当前部落战。
// 快照是映射与写库之前的原始读数；枚举字段保持上游字符串，交由 mapper 转换。
package coc

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound 表示部落或玩家不存在（404）。
	ErrNotFound = errors.New("not found")
	// ErrNoWar 表示当前不在该类部落战中，属于预期结果。
	ErrNoWar = errors.New("not in war")
)

// Fetcher 为对账引擎所依赖的上游接口。
type Fetcher interface {
	GetClan(ctx context.Context, tag string) (*ClanSnapshot, error)
	GetMembers(ctx context.Context, tag string) ([]RosterEntry, error)
	GetPlayer(ctx context.Context, tag string) (*PlayerSnapshot, error)
	// CurrentWar 先查普通部落战，不在战中时回退到联赛当前轮次。
	CurrentWar(ctx context.Context, tag string) (*WarSnapshot, error)
	ClanWar(ctx context.Context, tag string) (*WarSnapshot, error)
	LeagueWar(ctx context.Context, tag string) (*WarSnapshot, error)
}

type ClanSnapshot struct {
	Tag                   string `json:"tag"`
	Name                  string `json:"name"`
	Type                  string `json:"type"`
	Description           string `json:"description"`
	ClanLevel             int    `json:"clanLevel"`
	ClanPoints            int    `json:"clanPoints"`
	ClanCapitalPoints     int    `json:"clanCapitalPoints"`
	RequiredTrophies      int    `json:"requiredTrophies"`
	RequiredTownhallLevel int    `json:"requiredTownhallLevel"`
	WarFrequency          string `json:"warFrequency"`
	WarWinStreak          int    `json:"warWinStreak"`
	WarWins               int    `json:"warWins"`
	WarTies               int    `json:"warTies"`
	WarLosses             int    `json:"warLosses"`
	Members               int    `json:"members"`
}

// RosterEntry 为成员列表中的轻量条目。
type RosterEntry struct {
	Tag              string `json:"tag"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	ClanRank         int    `json:"clanRank"`
	PreviousClanRank int    `json:"previousClanRank"`
	Trophies         int    `json:"trophies"`
}

type PlayerSnapshot struct {
	Tag                      string `json:"tag"`
	Name                     string `json:"name"`
	Role                     string `json:"role"`
	Trophies                 int    `json:"trophies"`
	Donations                int    `json:"donations"`
	DonationsReceived        int    `json:"donationsReceived"`
	VersusTrophies           int    `json:"versusTrophies"`
	BuilderBaseTrophies      int    `json:"builderBaseTrophies"`
	AttackWins               int    `json:"attackWins"`
	ClanCapitalContributions int    `json:"clanCapitalContributions"`
	WarStars                 int    `json:"warStars"`
}

// Versus 返回夜世界奖杯；新版接口改名为 builderBaseTrophies。
func (p *PlayerSnapshot) Versus() int {
	if p.VersusTrophies != 0 {
		return p.VersusTrophies
	}
	return p.BuilderBaseTrophies
}

// WarSnapshot 已归一化：ClanTag 总是被追踪的部落一方。
type WarSnapshot struct {
	State                string
	Status               string // won|lost|tied|winning|losing
	Type                 string // random|friendly|cwl，无法判定时为空
	WarTag               string
	TeamSize             int
	AttacksPerMember     int
	PreparationStartTime *time.Time
	StartTime            *time.Time
	EndTime              *time.Time
	ClanTag              string
	OpponentTag          string
	Members              []WarMember
	// Attacks 包含双方的全部进攻
	Attacks []WarAttack
}

type WarMember struct {
	Tag         string
	Name        string
	MapPosition int
}

type WarAttack struct {
	AttackerTag string
	DefenderTag string
	Stars       int
	Destruction float64
	Order       int
	Duration    int
}

// HasMember 判断 tag 是否出现在己方参战名单中。
func (w *WarSnapshot) HasMember(tag string) bool {
	for _, m := range w.Members {
		if m.Tag == tag {
			return true
		}
	}
	return false
}
