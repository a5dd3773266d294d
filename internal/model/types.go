// 包 model 定义持久化的领域模型（部落/成员/部落战/进攻）及其规范枚举。
package model

import "time"

// Role 为成员在部落中的规范角色。
type Role string

const (
	RoleMember   Role = "MEMBER"
	RoleElder    Role = "ELDER"
	RoleCoLeader Role = "CO_LEADER"
	RoleLeader   Role = "LEADER"
)

type ClanType string

const (
	ClanTypeInviteOnly ClanType = "INVITE_ONLY"
	ClanTypeClosed     ClanType = "CLOSED"
	ClanTypeOpen       ClanType = "OPEN"
)

type WarFrequency string

const (
	WarFrequencyAlways              WarFrequency = "ALWAYS"
	WarFrequencyMoreThanOncePerWeek WarFrequency = "MORE_THAN_ONCE_PER_WEEK"
	WarFrequencyOncePerWeek         WarFrequency = "ONCE_PER_WEEK"
	WarFrequencyLessThanOncePerWeek WarFrequency = "LESS_THAN_ONCE_PER_WEEK"
	WarFrequencyNever               WarFrequency = "NEVER"
)

type WarType string

const (
	WarTypeRandom   WarType = "RANDOM"
	WarTypeFriendly WarType = "FRIENDLY"
	WarTypeLeague   WarType = "LEAGUE"
)

type WarResult string

const (
	WarResultWin        WarResult = "WIN"
	WarResultLoss       WarResult = "LOSS"
	WarResultTie        WarResult = "TIE"
	WarResultInProgress WarResult = "IN_PROGRESS"
)

// Clan 表示被追踪的部落，按 tag 唯一。
type Clan struct {
	ID               int64        `json:"id"`
	Tag              string       `json:"tag"`
	Name             string       `json:"name"`
	Level            int          `json:"level"`
	Type             ClanType     `json:"type"`
	Description      string       `json:"description"`
	Points           int          `json:"points"`
	CapitalPoints    int          `json:"capital_points"`
	RequiredTrophies int          `json:"required_trophies"`
	RequiredTownhall int          `json:"required_townhall"`
	WarFrequency     WarFrequency `json:"war_frequency"`
	WarWinStreak     int          `json:"war_win_streak"`
	WarWins          int          `json:"war_wins"`
	WarTies          int          `json:"war_ties"`
	WarLosses        int          `json:"war_losses"`
	MemberCount      int          `json:"member_count"`
}

// MemberStats 是活跃度判定所比较的统计字段。
type MemberStats struct {
	Donations            int `json:"donations"`
	DonationsReceived    int `json:"donations_received"`
	AttackWins           int `json:"attack_wins"`
	CapitalContributions int `json:"capital_contributions"`
	VersusTrophies       int `json:"versus_trophies"`
	WarStars             int `json:"war_stars"`
}

// Member 为部落成员；离开部落后保留记录，仅将 CurrentMember 置为 false。
type Member struct {
	ID               int64  `json:"id"`
	ClanID           int64  `json:"clan_id"`
	Tag              string `json:"tag"`
	Name             string `json:"name"`
	Role             Role   `json:"role"`
	Trophies         int    `json:"trophies"`
	ClanRank         int    `json:"clan_rank"`
	PreviousClanRank int    `json:"previous_clan_rank"`
	MemberStats
	CurrentMember  bool       `json:"current_member"`
	LastActive     *time.Time `json:"last_active,omitempty"`
	ActivityHits   int        `json:"activity_hits"`
	ActivityMisses int        `json:"activity_misses"`
}

// War 以 (ClanID, PreparationStartTime) 为自然键。
type War struct {
	ID                   int64      `json:"id"`
	ClanID               int64      `json:"clan_id"`
	OpponentTag          string     `json:"opponent_tag"`
	PreparationStartTime time.Time  `json:"preparation_start_time"`
	WarStartTime         *time.Time `json:"war_start_time,omitempty"`
	WarEndTime           *time.Time `json:"war_end_time,omitempty"`
	TeamSize             int        `json:"team_size"`
	AttacksPerMember     int        `json:"attacks_per_member"`
	Result               WarResult  `json:"result"`
	Type                 WarType    `json:"type"`
}

// WarAttack 只追加，不更新；在同一场战中按 (AttackerTag, DefenderTag) 唯一。
type WarAttack struct {
	ID                    int64   `json:"id"`
	WarID                 int64   `json:"war_id"`
	AttackerID            int64   `json:"attacker_id"`
	AttackerTag           string  `json:"attacker_tag"`
	DefenderTag           string  `json:"defender_tag"`
	Stars                 int     `json:"stars"`
	DestructionPercentage float64 `json:"destruction_percentage"`
	Duration              int     `json:"duration"`
	Order                 int     `json:"order"`
}

// Stats 为导出时附带的汇总信息。
type Stats struct {
	MembersTotal   int       `json:"members_total"`
	MembersCurrent int       `json:"members_current"`
	WarsTotal      int       `json:"wars_total"`
	AttacksTotal   int       `json:"attacks_total"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Export 为 -export 输出的顶层结构。
type Export struct {
	Stats   Stats    `json:"stats"`
	Clan    *Clan    `json:"clan,omitempty"`
	Members []Member `json:"members"`
	Wars    []War    `json:"wars"`
}

// AttackTotal 为某成员历史进攻的汇总（排名用）。
type AttackTotal struct {
	Stars   int `json:"stars"`
	Attacks int `json:"attacks"`
}
