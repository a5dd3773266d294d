package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go-clan-tracker/internal/model"
)

const memberColumns = `id, clan_id, tag, name, role, trophies, clan_rank, previous_clan_rank, donations,
    donations_received, versus_trophies, attack_wins, capital_contributions, war_stars, current_member,
    last_active, activity_hits, activity_misses`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(r rowScanner) (model.Member, error) {
	var m model.Member
	var role string
	var lastActive sql.NullTime
	err := r.Scan(&m.ID, &m.ClanID, &m.Tag, &m.Name, &role, &m.Trophies, &m.ClanRank, &m.PreviousClanRank,
		&m.Donations, &m.DonationsReceived, &m.VersusTrophies, &m.AttackWins, &m.CapitalContributions,
		&m.WarStars, &m.CurrentMember, &lastActive, &m.ActivityHits, &m.ActivityMisses)
	if err != nil {
		return m, err
	}
	m.Role = model.Role(role)
	m.LastActive = timePtr(lastActive)
	return m, nil
}

// FindMemberByTag 未找到时返回 (nil, nil)。
func (s *SQLite) FindMemberByTag(ctx context.Context, tag string) (*model.Member, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE tag = ?`, tag))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find member %s: %w", tag, err)
	}
	return &m, nil
}

// UpsertMember 首次见到时以完整统计创建；已存在则覆盖名称、角色与统计字段。
// 成员资格与活跃计数不在此处修改。
func (s *SQLite) UpsertMember(ctx context.Context, m model.Member) (model.Member, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `INSERT INTO members(clan_id, tag, name, role, trophies, clan_rank, previous_clan_rank,
            donations, donations_received, versus_trophies, attack_wins, capital_contributions, war_stars, current_member)
        VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,1)
        ON CONFLICT(tag) DO UPDATE SET name=excluded.name, role=excluded.role, trophies=excluded.trophies,
            clan_rank=excluded.clan_rank, previous_clan_rank=excluded.previous_clan_rank,
            donations=excluded.donations, donations_received=excluded.donations_received,
            versus_trophies=excluded.versus_trophies, attack_wins=excluded.attack_wins,
            capital_contributions=excluded.capital_contributions, war_stars=excluded.war_stars
        RETURNING id`,
		m.ClanID, m.Tag, m.Name, string(m.Role), m.Trophies, m.ClanRank, m.PreviousClanRank,
		m.Donations, m.DonationsReceived, m.VersusTrophies, m.AttackWins, m.CapitalContributions, m.WarStars).Scan(&id)
	if err != nil {
		return m, fmt.Errorf("upsert member %s: %w", m.Tag, err)
	}
	out, err := scanMember(s.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id))
	if err != nil {
		return m, fmt.Errorf("reload member %s: %w", m.Tag, err)
	}
	return out, nil
}

// RecordActivity 活跃时 activity_hits+1 并刷新 last_active，否则 activity_misses+1。
func (s *SQLite) RecordActivity(ctx context.Context, memberID int64, active bool, at time.Time) error {
	var err error
	if active {
		_, err = s.db.ExecContext(ctx, `UPDATE members SET activity_hits = activity_hits + 1, last_active = ? WHERE id = ?`,
			at.UTC(), memberID)
	} else {
		_, err = s.db.ExecContext(ctx, `UPDATE members SET activity_misses = activity_misses + 1 WHERE id = ?`, memberID)
	}
	if err != nil {
		return fmt.Errorf("record activity member %d: %w", memberID, err)
	}
	return nil
}

// ListClanMembers 返回部落的全部成员（含已离开者），按 tag 排序。
func (s *SQLite) ListClanMembers(ctx context.Context, clanID int64) ([]model.Member, error) {
	return s.listMembers(ctx, `SELECT `+memberColumns+` FROM members WHERE clan_id = ? ORDER BY tag`, clanID)
}

// ListCurrentMembers 返回仍在部落中的成员。
func (s *SQLite) ListCurrentMembers(ctx context.Context) ([]model.Member, error) {
	return s.listMembers(ctx, `SELECT `+memberColumns+` FROM members WHERE current_member = 1 ORDER BY tag`)
}

func (s *SQLite) listMembers(ctx context.Context, q string, args ...any) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()
	var out []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan members: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return out, nil
}

func (s *SQLite) SetCurrentMember(ctx context.Context, memberID int64, current bool) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE members SET current_member = ? WHERE id = ?`, current, memberID); err != nil {
		return fmt.Errorf("set current_member %d: %w", memberID, err)
	}
	return nil
}
