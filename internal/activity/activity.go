// 包 activity 根据成员前后两次快照判定本轮是否活跃。
package activity

import "go-clan-tracker/internal/model"

// IsActive 比较写库前的旧记录与本轮新抓取的统计：
// - prev 为 nil（首次见到）视为活跃
// - 捐兵、收兵、进攻胜场、都城贡献、部落战星数任一增加视为活跃
// - 夜世界奖杯只要变化（增减皆可）即视为活跃
func IsActive(prev *model.MemberStats, cur model.MemberStats) bool {
	if prev == nil {
		return true
	}
	switch {
	case cur.Donations > prev.Donations,
		cur.DonationsReceived > prev.DonationsReceived,
		cur.AttackWins > prev.AttackWins,
		cur.CapitalContributions > prev.CapitalContributions,
		cur.VersusTrophies != prev.VersusTrophies,
		cur.WarStars > prev.WarStars:
		return true
	}
	return false
}
