package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go-clan-tracker/internal/model"
)

// UpsertWar 以 (clan_id, preparation_start_time) 为键：不存在则创建并返回 created=true，
// 否则仅更新可变字段（对手、起止时间、规模、结果、类型）。
func (s *SQLite) UpsertWar(ctx context.Context, w model.War) (model.War, bool, error) {
	prep := w.PreparationStartTime.UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return w, false, fmt.Errorf("begin upsert war: %w", err)
	}
	defer tx.Rollback()

	var id int64
	created := false
	err = tx.QueryRowContext(ctx, `SELECT id FROM wars WHERE clan_id = ? AND preparation_start_time = ?`,
		w.ClanID, prep).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = tx.QueryRowContext(ctx, `INSERT INTO wars(clan_id, opponent_tag, preparation_start_time, war_start_time,
                war_end_time, team_size, attacks_per_member, result, type)
            VALUES(?,?,?,?,?,?,?,?,?) RETURNING id`,
			w.ClanID, w.OpponentTag, prep, nullTime(w.WarStartTime), nullTime(w.WarEndTime), w.TeamSize,
			w.AttacksPerMember, string(w.Result), string(w.Type)).Scan(&id)
		if err != nil {
			return w, false, fmt.Errorf("insert war: %w", err)
		}
		created = true
	case err != nil:
		return w, false, fmt.Errorf("find war: %w", err)
	default:
		_, err = tx.ExecContext(ctx, `UPDATE wars SET opponent_tag = ?, war_start_time = ?, war_end_time = ?,
                team_size = ?, attacks_per_member = ?, result = ?, type = ?
            WHERE id = ?`,
			w.OpponentTag, nullTime(w.WarStartTime), nullTime(w.WarEndTime), w.TeamSize, w.AttacksPerMember,
			string(w.Result), string(w.Type), id)
		if err != nil {
			return w, false, fmt.Errorf("update war %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return w, false, fmt.Errorf("commit upsert war: %w", err)
	}
	w.ID = id
	w.PreparationStartTime = prep
	return w, created, nil
}

// ListWars 按准备开始时间倒序。
func (s *SQLite) ListWars(ctx context.Context, clanID int64) ([]model.War, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, clan_id, opponent_tag, preparation_start_time, war_start_time,
            war_end_time, team_size, attacks_per_member, result, type
        FROM wars WHERE clan_id = ? ORDER BY preparation_start_time DESC`, clanID)
	if err != nil {
		return nil, fmt.Errorf("query wars: %w", err)
	}
	defer rows.Close()
	var out []model.War
	for rows.Next() {
		var w model.War
		var start, end sql.NullTime
		var result, typ string
		if err := rows.Scan(&w.ID, &w.ClanID, &w.OpponentTag, &w.PreparationStartTime, &start, &end,
			&w.TeamSize, &w.AttacksPerMember, &result, &typ); err != nil {
			return nil, fmt.Errorf("scan wars: %w", err)
		}
		w.PreparationStartTime = w.PreparationStartTime.UTC()
		w.WarStartTime = timePtr(start)
		w.WarEndTime = timePtr(end)
		w.Result = model.WarResult(result)
		w.Type = model.WarType(typ)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wars: %w", err)
	}
	return out, nil
}

// AddWarParticipants 批量写入参战关系；重复写入被忽略。
func (s *SQLite) AddWarParticipants(ctx context.Context, warID int64, memberIDs []int64) error {
	if len(memberIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin war participants: %w", err)
	}
	defer tx.Rollback()
	for _, id := range memberIDs {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO war_participants(war_id, member_id) VALUES(?, ?)`,
			warID, id); err != nil {
			return fmt.Errorf("insert war participant %d/%d: %w", warID, id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit war participants: %w", err)
	}
	return nil
}

func (s *SQLite) ListWarParticipants(ctx context.Context, warID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT member_id FROM war_participants WHERE war_id = ? ORDER BY member_id`, warID)
	if err != nil {
		return nil, fmt.Errorf("query war participants: %w", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan war participants: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLite) ListWarAttacks(ctx context.Context, warID int64) ([]model.WarAttack, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, war_id, attacker_id, attacker_tag, defender_tag, stars,
            destruction_percentage, duration, "order"
        FROM war_attacks WHERE war_id = ? ORDER BY "order", id`, warID)
	if err != nil {
		return nil, fmt.Errorf("query war attacks: %w", err)
	}
	defer rows.Close()
	var out []model.WarAttack
	for rows.Next() {
		var a model.WarAttack
		if err := rows.Scan(&a.ID, &a.WarID, &a.AttackerID, &a.AttackerTag, &a.DefenderTag, &a.Stars,
			&a.DestructionPercentage, &a.Duration, &a.Order); err != nil {
			return nil, fmt.Errorf("scan war attacks: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate war attacks: %w", err)
	}
	return out, nil
}

// CreateWarAttack 追加一次进攻；(war_id, attacker_tag, defender_tag) 已存在时不写入并返回 false。
func (s *SQLite) CreateWarAttack(ctx context.Context, a model.WarAttack) (bool, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO war_attacks(war_id, attacker_id, attacker_tag, defender_tag, stars,
            destruction_percentage, duration, "order")
        VALUES(?,?,?,?,?,?,?,?)
        ON CONFLICT(war_id, attacker_tag, defender_tag) DO NOTHING`,
		a.WarID, a.AttackerID, a.AttackerTag, a.DefenderTag, a.Stars, a.DestructionPercentage, a.Duration, a.Order)
	if err != nil {
		return false, fmt.Errorf("create war attack %s->%s: %w", a.AttackerTag, a.DefenderTag, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create war attack rows: %w", err)
	}
	return n > 0, nil
}

// AttackTotals 返回每位成员的历史进攻星数与次数，键为成员 ID。
func (s *SQLite) AttackTotals(ctx context.Context) (map[int64]model.AttackTotal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT attacker_id, COALESCE(SUM(stars), 0), COUNT(1) FROM war_attacks GROUP BY attacker_id`)
	if err != nil {
		return nil, fmt.Errorf("query attack totals: %w", err)
	}
	defer rows.Close()
	out := map[int64]model.AttackTotal{}
	for rows.Next() {
		var id int64
		var t model.AttackTotal
		if err := rows.Scan(&id, &t.Stars, &t.Attacks); err != nil {
			return nil, fmt.Errorf("scan attack totals: %w", err)
		}
		out[id] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attack totals: %w", err)
	}
	return out, nil
}

// Stats 统计汇总：成员总数/在籍数、部落战数、进攻数。
func (s *SQLite) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1), COALESCE(SUM(current_member), 0) FROM members`).
		Scan(&st.MembersTotal, &st.MembersCurrent); err != nil {
		return st, fmt.Errorf("count members: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM wars`).Scan(&st.WarsTotal); err != nil {
		return st, fmt.Errorf("count wars: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM war_attacks`).Scan(&st.AttacksTotal); err != nil {
		return st, fmt.Errorf("count war attacks: %w", err)
	}
	st.UpdatedAt = time.Now()
	return st, nil
}
