package coc

import (
	"time"
)

// 上游时间格式，例如 20230815T101500.000Z
const apiTimeLayout = "20060102T150405.000Z"

// parseAPITime 空串返回 nil，不做兜底解析。
func parseAPITime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(apiTimeLayout, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

type rawWar struct {
	State                string     `json:"state"`
	TeamSize             int        `json:"teamSize"`
	AttacksPerMember     int        `json:"attacksPerMember"`
	PreparationStartTime string     `json:"preparationStartTime"`
	StartTime            string     `json:"startTime"`
	EndTime              string     `json:"endTime"`
	WarTag               string     `json:"tag"`
	Clan                 rawWarClan `json:"clan"`
	Opponent             rawWarClan `json:"opponent"`
}

type rawWarClan struct {
	Tag                   string         `json:"tag"`
	Name                  string         `json:"name"`
	Stars                 int            `json:"stars"`
	DestructionPercentage float64        `json:"destructionPercentage"`
	Members               []rawWarMember `json:"members"`
}

type rawWarMember struct {
	Tag         string         `json:"tag"`
	Name        string         `json:"name"`
	MapPosition int            `json:"mapPosition"`
	Attacks     []rawWarAttack `json:"attacks"`
}

type rawWarAttack struct {
	AttackerTag           string  `json:"attackerTag"`
	DefenderTag           string  `json:"defenderTag"`
	Stars                 int     `json:"stars"`
	DestructionPercentage float64 `json:"destructionPercentage"`
	Order                 int     `json:"order"`
	Duration              int     `json:"duration"`
}

// 友谊战可选的准备时长；24 小时（及其他）视为随机匹配。
var friendlyPrep = map[time.Duration]bool{
	5 * time.Minute:  true,
	15 * time.Minute: true,
	30 * time.Minute: true,
	1 * time.Hour:    true,
	2 * time.Hour:    true,
	4 * time.Hour:    true,
	6 * time.Hour:    true,
	8 * time.Hour:    true,
	12 * time.Hour:   true,
	16 * time.Hour:   true,
	20 * time.Hour:   true,
}

// toSnapshot 以 clanTag 为己方进行归一化；league 表示来自联赛接口。
func (r *rawWar) toSnapshot(clanTag string, league bool) (*WarSnapshot, error) {
	us, them := r.Clan, r.Opponent
	if us.Tag != clanTag && them.Tag == clanTag {
		us, them = them, us
	}
	prep, err := parseAPITime(r.PreparationStartTime)
	if err != nil {
		return nil, err
	}
	start, err := parseAPITime(r.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := parseAPITime(r.EndTime)
	if err != nil {
		return nil, err
	}
	w := &WarSnapshot{
		State:                r.State,
		Status:               warStatus(r.State, us, them),
		WarTag:               r.WarTag,
		TeamSize:             r.TeamSize,
		AttacksPerMember:     r.AttacksPerMember,
		PreparationStartTime: prep,
		StartTime:            start,
		EndTime:              end,
		ClanTag:              us.Tag,
		OpponentTag:          them.Tag,
	}
	switch {
	case league:
		w.Type = "cwl"
		if w.AttacksPerMember == 0 {
			w.AttacksPerMember = 1
		}
	case prep != nil && start != nil:
		if friendlyPrep[start.Sub(*prep)] {
			w.Type = "friendly"
		} else {
			w.Type = "random"
		}
	}
	if w.AttacksPerMember == 0 {
		w.AttacksPerMember = 2
	}
	for _, m := range us.Members {
		w.Members = append(w.Members, WarMember{Tag: m.Tag, Name: m.Name, MapPosition: m.MapPosition})
	}
	for _, side := range []rawWarClan{us, them} {
		for _, m := range side.Members {
			for _, a := range m.Attacks {
				w.Attacks = append(w.Attacks, WarAttack{
					AttackerTag: a.AttackerTag,
					DefenderTag: a.DefenderTag,
					Stars:       a.Stars,
					Destruction: a.DestructionPercentage,
					Order:       a.Order,
					Duration:    a.Duration,
				})
			}
		}
	}
	return w, nil
}

// warStatus 先比星数再比摧毁率；结束后给出 won/lost/tied，进行中给出 winning/losing/tied。
func warStatus(state string, us, them rawWarClan) string {
	cmp := 0
	switch {
	case us.Stars > them.Stars:
		cmp = 1
	case us.Stars < them.Stars:
		cmp = -1
	case us.DestructionPercentage > them.DestructionPercentage:
		cmp = 1
	case us.DestructionPercentage < them.DestructionPercentage:
		cmp = -1
	}
	ended := state == "warEnded"
	switch {
	case cmp > 0 && ended:
		return "won"
	case cmp < 0 && ended:
		return "lost"
	case cmp > 0:
		return "winning"
	case cmp < 0:
		return "losing"
	}
	return "tied"
}
