// 包 reconcile 负责单轮对账的编排：
// - 抓取部落与成员名单并写库
// - 逐个成员比对统计判定活跃度
// - 推导在籍标记
// - 发现当前部落战并追加新的进攻记录
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"go-clan-tracker/internal/activity"
	"go-clan-tracker/internal/coc"
	"go-clan-tracker/internal/logx"
	"go-clan-tracker/internal/mapper"
	"go-clan-tracker/internal/metrics"
	"go-clan-tracker/internal/model"
)

// Store 为对账引擎所需的持久化操作，*store.SQLite 即实现。
type Store interface {
	UpsertClan(ctx context.Context, c model.Clan) (model.Clan, error)
	FindMemberByTag(ctx context.Context, tag string) (*model.Member, error)
	UpsertMember(ctx context.Context, m model.Member) (model.Member, error)
	RecordActivity(ctx context.Context, memberID int64, active bool, at time.Time) error
	ListClanMembers(ctx context.Context, clanID int64) ([]model.Member, error)
	SetCurrentMember(ctx context.Context, memberID int64, current bool) error
	UpsertWar(ctx context.Context, w model.War) (model.War, bool, error)
	AddWarParticipants(ctx context.Context, warID int64, memberIDs []int64) error
	ListWarAttacks(ctx context.Context, warID int64) ([]model.WarAttack, error)
	CreateWarAttack(ctx context.Context, a model.WarAttack) (bool, error)
}

// Report 汇总一轮对账的结果。
type Report struct {
	CycleID        string
	ClanTag        string
	MembersSeen    int
	MembersActive  int
	MembersIdle    int
	MembersSkipped int
	Joined         int
	Left           int
	// WarStrategy 为找到部落战的查询方式，未找到时为空
	WarStrategy    string
	WarCreated     bool
	AttacksCreated int
	Duration       time.Duration
}

// Engine 对账引擎，持有上游抓取器、存储与被追踪的部落 tag。
type Engine struct {
	fetch   coc.Fetcher
	store   Store
	clanTag string
	now     func() time.Time
}

type Option func(*Engine)

// WithClock 替换时间来源（测试用）。
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(f coc.Fetcher, s Store, clanTag string, opts ...Option) *Engine {
	e := &Engine{fetch: f, store: s, clanTag: clanTag, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// RunCycle 执行一轮对账：部落→成员→在籍标记→部落战。
// 部落/名单抓取失败与存储错误会中止本轮；单个成员的抓取或映射失败只跳过该成员。
func (e *Engine) RunCycle(ctx context.Context) (Report, error) {
	start := e.now()
	rep := Report{CycleID: uuid.NewString(), ClanTag: e.clanTag}
	err := e.run(ctx, &rep)
	rep.Duration = time.Since(start)
	metrics.CycleDuration.Observe(rep.Duration.Seconds())
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("failure").Inc()
		return rep, err
	}
	metrics.CyclesTotal.WithLabelValues("success").Inc()
	metrics.LastCycleTimestamp.SetToCurrentTime()
	return rep, nil
}

func (e *Engine) run(ctx context.Context, rep *Report) error {
	clan, err := e.syncClan(ctx)
	if err != nil {
		return err
	}
	roster, err := e.fetch.GetMembers(ctx, e.clanTag)
	if err != nil {
		return fmt.Errorf("fetch roster %s: %w", e.clanTag, err)
	}
	logx.Infof("[%s] 部落=%s 名单成员=%d 轮次=%s", e.clanTag, clan.Name, len(roster), rep.CycleID)

	seen := newRosterSet(roster)
	for _, entry := range roster {
		if err := e.syncMember(ctx, clan.ID, entry, seen, rep); err != nil {
			return err
		}
	}
	rep.MembersSeen = len(roster)

	if err := e.syncMembership(ctx, clan.ID, seen, rep); err != nil {
		return err
	}

	war, strategy := e.findWar(ctx)
	if war == nil {
		logx.Infof("[%s] 当前没有部落战", e.clanTag)
		return nil
	}
	rep.WarStrategy = strategy
	return e.syncWar(ctx, clan.ID, war, seen, rep)
}

func (e *Engine) syncClan(ctx context.Context) (model.Clan, error) {
	snap, err := e.fetch.GetClan(ctx, e.clanTag)
	if err != nil {
		return model.Clan{}, fmt.Errorf("fetch clan %s: %w", e.clanTag, err)
	}
	typ, err := mapper.ClanType(snap.Type)
	if err != nil {
		return model.Clan{}, fmt.Errorf("map clan %s: %w", e.clanTag, err)
	}
	freq, err := mapper.WarFrequency(snap.WarFrequency)
	if err != nil {
		return model.Clan{}, fmt.Errorf("map clan %s: %w", e.clanTag, err)
	}
	tag := snap.Tag
	if tag == "" {
		tag = e.clanTag
	}
	c, err := e.store.UpsertClan(ctx, model.Clan{
		Tag:              tag,
		Name:             snap.Name,
		Level:            snap.ClanLevel,
		Type:             typ,
		Description:      snap.Description,
		Points:           snap.ClanPoints,
		CapitalPoints:    snap.ClanCapitalPoints,
		RequiredTrophies: snap.RequiredTrophies,
		RequiredTownhall: snap.RequiredTownhallLevel,
		WarFrequency:     freq,
		WarWinStreak:     snap.WarWinStreak,
		WarWins:          snap.WarWins,
		WarTies:          snap.WarTies,
		WarLosses:        snap.WarLosses,
		MemberCount:      snap.Members,
	})
	if err != nil {
		return model.Clan{}, fmt.Errorf("store clan: %w", err)
	}
	return c, nil
}

// syncMember 处理单个名单条目：抓取玩家→映射角色→比对旧记录→写库→记录活跃度。
// 返回的错误只来自存储层。
func (e *Engine) syncMember(ctx context.Context, clanID int64, entry coc.RosterEntry, seen *rosterSet, rep *Report) error {
	player, err := e.fetch.GetPlayer(ctx, entry.Tag)
	if err != nil {
		e.skip(rep, entry, "抓取玩家失败", err)
		return nil
	}
	role, err := mapper.Role(entry.Role)
	if err != nil {
		e.skip(rep, entry, "角色映射失败", err)
		return nil
	}

	prior, err := e.store.FindMemberByTag(ctx, entry.Tag)
	if err != nil {
		return fmt.Errorf("load member %s: %w", entry.Tag, err)
	}
	cur := model.MemberStats{
		Donations:            player.Donations,
		DonationsReceived:    player.DonationsReceived,
		AttackWins:           player.AttackWins,
		CapitalContributions: player.ClanCapitalContributions,
		VersusTrophies:       player.Versus(),
		WarStars:             player.WarStars,
	}
	var prev *model.MemberStats
	if prior != nil {
		prev = &prior.MemberStats
	}
	active := activity.IsActive(prev, cur)

	name := player.Name
	if name == "" {
		name = entry.Name
	}
	m, err := e.store.UpsertMember(ctx, model.Member{
		ClanID:           clanID,
		Tag:              entry.Tag,
		Name:             name,
		Role:             role,
		Trophies:         entry.Trophies,
		ClanRank:         entry.ClanRank,
		PreviousClanRank: entry.PreviousClanRank,
		MemberStats:      cur,
	})
	if err != nil {
		return fmt.Errorf("store member %s: %w", entry.Tag, err)
	}
	if err := e.store.RecordActivity(ctx, m.ID, active, e.now()); err != nil {
		return fmt.Errorf("record activity %s: %w", entry.Tag, err)
	}
	seen.persist(entry.Tag, m.ID)
	if active {
		rep.MembersActive++
		metrics.MemberActivity.WithLabelValues("hit").Inc()
	} else {
		rep.MembersIdle++
		metrics.MemberActivity.WithLabelValues("miss").Inc()
	}
	logx.Debugf("[%s|%s] 活跃=%v", entry.Tag, name, active)
	return nil
}

func (e *Engine) skip(rep *Report, entry coc.RosterEntry, what string, err error) {
	rep.MembersSkipped++
	metrics.MembersSkipped.Inc()
	logx.Warnf("[%s|%s] %s，跳过：%v", entry.Tag, entry.Name, what, err)
}

// syncMembership 依据本轮名单推导 current_member，仅在取值变化时写库。
func (e *Engine) syncMembership(ctx context.Context, clanID int64, seen *rosterSet, rep *Report) error {
	members, err := e.store.ListClanMembers(ctx, clanID)
	if err != nil {
		return fmt.Errorf("list clan members: %w", err)
	}
	for _, m := range members {
		want := seen.has(m.Tag)
		if m.CurrentMember == want {
			continue
		}
		if err := e.store.SetCurrentMember(ctx, m.ID, want); err != nil {
			return fmt.Errorf("update membership %s: %w", m.Tag, err)
		}
		if want {
			rep.Joined++
			metrics.MembershipChanges.WithLabelValues("current").Inc()
			logx.Infof("[%s|%s] 重新加入部落", m.Tag, m.Name)
		} else {
			rep.Left++
			metrics.MembershipChanges.WithLabelValues("former").Inc()
			logx.Infof("[%s|%s] 已离开部落", m.Tag, m.Name)
		}
	}
	return nil
}

type warStrategy struct {
	name string
	fn   func(ctx context.Context, tag string) (*coc.WarSnapshot, error)
}

// findWar 依次尝试各查询方式，返回第一个找到的部落战。
// ErrNoWar 是预期结果；其他错误记录告警后继续尝试下一种方式。
func (e *Engine) findWar(ctx context.Context) (*coc.WarSnapshot, string) {
	strategies := []warStrategy{
		{"current", e.fetch.CurrentWar},
		{"clan", e.fetch.ClanWar},
		{"league", e.fetch.LeagueWar},
	}
	for _, s := range strategies {
		war, err := s.fn(ctx, e.clanTag)
		switch {
		case err == nil && war != nil:
			metrics.WarLookups.WithLabelValues(s.name, "found").Inc()
			return war, s.name
		case err == nil || errors.Is(err, coc.ErrNoWar):
			metrics.WarLookups.WithLabelValues(s.name, "no_war").Inc()
			logx.Debugf("[%s] 部落战查询 %s：不在战中", e.clanTag, s.name)
		default:
			metrics.WarLookups.WithLabelValues(s.name, "error").Inc()
			logx.Warnf("[%s] 部落战查询 %s 失败：%v", e.clanTag, s.name, err)
		}
	}
	return nil, ""
}

// syncWar 写入部落战；新建时登记参战成员，随后追加快照中尚未记录的进攻。
func (e *Engine) syncWar(ctx context.Context, clanID int64, snap *coc.WarSnapshot, seen *rosterSet, rep *Report) error {
	result, err := mapper.WarResult(snap.Status)
	if err != nil {
		logx.Warnf("[%s] 部落战结果映射失败，跳过部落战：%v", e.clanTag, err)
		return nil
	}
	typ, err := mapper.WarType(snap.Type)
	if err != nil {
		logx.Warnf("[%s] 部落战类型映射失败，跳过部落战：%v", e.clanTag, err)
		return nil
	}
	prep := e.now()
	if snap.PreparationStartTime != nil {
		prep = *snap.PreparationStartTime
	}
	war, created, err := e.store.UpsertWar(ctx, model.War{
		ClanID:               clanID,
		OpponentTag:          snap.OpponentTag,
		PreparationStartTime: prep,
		WarStartTime:         snap.StartTime,
		WarEndTime:           snap.EndTime,
		TeamSize:             snap.TeamSize,
		AttacksPerMember:     snap.AttacksPerMember,
		Result:               result,
		Type:                 typ,
	})
	if err != nil {
		return fmt.Errorf("store war: %w", err)
	}
	rep.WarCreated = created

	if created {
		var ids []int64
		for _, wm := range snap.Members {
			if id, ok := seen.id(wm.Tag); ok {
				ids = append(ids, id)
			}
		}
		if err := e.store.AddWarParticipants(ctx, war.ID, ids); err != nil {
			return fmt.Errorf("store war participants: %w", err)
		}
		logx.Infof("[%s] 新部落战 对手=%s 类型=%s 参战=%d", e.clanTag, snap.OpponentTag, typ, len(ids))
	}

	existing, err := e.store.ListWarAttacks(ctx, war.ID)
	if err != nil {
		return fmt.Errorf("list war attacks: %w", err)
	}
	for _, a := range newAttacks(snap.Attacks, existing) {
		attackerID, ok := seen.id(a.AttackerTag)
		if !ok {
			logx.Debugf("[%s] 进攻者不是本轮已写入的成员，忽略 %s->%s", e.clanTag, a.AttackerTag, a.DefenderTag)
			continue
		}
		added, err := e.store.CreateWarAttack(ctx, model.WarAttack{
			WarID:                 war.ID,
			AttackerID:            attackerID,
			AttackerTag:           a.AttackerTag,
			DefenderTag:           a.DefenderTag,
			Stars:                 a.Stars,
			DestructionPercentage: a.Destruction,
			Duration:              a.Duration,
			Order:                 a.Order,
		})
		if err != nil {
			return fmt.Errorf("store war attack: %w", err)
		}
		if added {
			rep.AttacksCreated++
			metrics.WarAttacksRecorded.Inc()
		}
	}
	if rep.AttacksCreated > 0 {
		logx.Infof("[%s] 新增进攻记录 %d 条", e.clanTag, rep.AttacksCreated)
	}
	return nil
}

type attackKey struct{ attacker, defender string }

// newAttacks 以 (进攻者, 防守者) 做差集，返回快照中尚未入库的进攻，保持快照顺序。
func newAttacks(snap []coc.WarAttack, stored []model.WarAttack) []coc.WarAttack {
	known := make(map[attackKey]struct{}, len(stored))
	for _, a := range stored {
		known[attackKey{a.AttackerTag, a.DefenderTag}] = struct{}{}
	}
	var out []coc.WarAttack
	for _, a := range snap {
		k := attackKey{a.AttackerTag, a.DefenderTag}
		if _, ok := known[k]; ok {
			continue
		}
		known[k] = struct{}{}
		out = append(out, a)
	}
	return out
}
