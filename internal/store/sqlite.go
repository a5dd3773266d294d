// 包 store 提供存储实现（SQLite）：建表迁移、按自然键的 upsert、查询与清理。
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"go-clan-tracker/internal/model"
)

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Ping 用于健康检查。
func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Reset 清空业务数据表（不删除数据库文件），按外键依赖顺序删除。
func (s *SQLite) Reset(ctx context.Context) error {
	for _, table := range []string{"war_attacks", "war_participants", "wars", "members", "clans"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

// migrate 执行建表语句，保持幂等；唯一索引即自然键约束。
func (s *SQLite) migrate() error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS clans (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            tag TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL DEFAULT '',
            level INTEGER NOT NULL DEFAULT 0,
            type TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            points INTEGER NOT NULL DEFAULT 0,
            capital_points INTEGER NOT NULL DEFAULT 0,
            required_trophies INTEGER NOT NULL DEFAULT 0,
            required_townhall INTEGER NOT NULL DEFAULT 0,
            war_frequency TEXT NOT NULL,
            war_win_streak INTEGER NOT NULL DEFAULT 0,
            war_wins INTEGER NOT NULL DEFAULT 0,
            war_ties INTEGER NOT NULL DEFAULT 0,
            war_losses INTEGER NOT NULL DEFAULT 0,
            member_count INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS members (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            clan_id INTEGER NOT NULL REFERENCES clans(id),
            tag TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL,
            trophies INTEGER NOT NULL DEFAULT 0,
            clan_rank INTEGER NOT NULL DEFAULT 0,
            previous_clan_rank INTEGER NOT NULL DEFAULT 0,
            donations INTEGER NOT NULL DEFAULT 0,
            donations_received INTEGER NOT NULL DEFAULT 0,
            versus_trophies INTEGER NOT NULL DEFAULT 0,
            attack_wins INTEGER NOT NULL DEFAULT 0,
            capital_contributions INTEGER NOT NULL DEFAULT 0,
            war_stars INTEGER NOT NULL DEFAULT 0,
            current_member INTEGER NOT NULL DEFAULT 1,
            last_active TIMESTAMP,
            activity_hits INTEGER NOT NULL DEFAULT 0,
            activity_misses INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE INDEX IF NOT EXISTS idx_members_clan ON members(clan_id);`,
		`CREATE TABLE IF NOT EXISTS wars (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            clan_id INTEGER NOT NULL REFERENCES clans(id),
            opponent_tag TEXT NOT NULL DEFAULT '',
            preparation_start_time TIMESTAMP NOT NULL,
            war_start_time TIMESTAMP,
            war_end_time TIMESTAMP,
            team_size INTEGER NOT NULL DEFAULT 0,
            attacks_per_member INTEGER NOT NULL DEFAULT 0,
            result TEXT NOT NULL,
            type TEXT NOT NULL,
            UNIQUE(clan_id, preparation_start_time)
        );`,
		`CREATE TABLE IF NOT EXISTS war_participants (
            war_id INTEGER NOT NULL REFERENCES wars(id),
            member_id INTEGER NOT NULL REFERENCES members(id),
            PRIMARY KEY(war_id, member_id)
        );`,
		`CREATE TABLE IF NOT EXISTS war_attacks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            war_id INTEGER NOT NULL REFERENCES wars(id),
            attacker_id INTEGER NOT NULL REFERENCES members(id),
            attacker_tag TEXT NOT NULL,
            defender_tag TEXT NOT NULL,
            stars INTEGER NOT NULL DEFAULT 0,
            destruction_percentage REAL NOT NULL DEFAULT 0,
            duration INTEGER NOT NULL DEFAULT 0,
            "order" INTEGER NOT NULL DEFAULT 0,
            UNIQUE(war_id, attacker_tag, defender_tag)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_war_attacks_attacker ON war_attacks(attacker_id);`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// UpsertClan 按 tag 插入或覆盖全部可变字段，返回带 ID 的记录。
func (s *SQLite) UpsertClan(ctx context.Context, c model.Clan) (model.Clan, error) {
	err := s.db.QueryRowContext(ctx, `INSERT INTO clans(tag, name, level, type, description, points, capital_points,
            required_trophies, required_townhall, war_frequency, war_win_streak, war_wins, war_ties, war_losses, member_count)
        VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(tag) DO UPDATE SET name=excluded.name, level=excluded.level, type=excluded.type,
            description=excluded.description, points=excluded.points, capital_points=excluded.capital_points,
            required_trophies=excluded.required_trophies, required_townhall=excluded.required_townhall,
            war_frequency=excluded.war_frequency, war_win_streak=excluded.war_win_streak, war_wins=excluded.war_wins,
            war_ties=excluded.war_ties, war_losses=excluded.war_losses, member_count=excluded.member_count
        RETURNING id`,
		c.Tag, c.Name, c.Level, string(c.Type), c.Description, c.Points, c.CapitalPoints,
		c.RequiredTrophies, c.RequiredTownhall, string(c.WarFrequency), c.WarWinStreak, c.WarWins, c.WarTies,
		c.WarLosses, c.MemberCount).Scan(&c.ID)
	if err != nil {
		return c, fmt.Errorf("upsert clan %s: %w", c.Tag, err)
	}
	return c, nil
}

// GetClanByTag 未找到时返回 (nil, nil)。
func (s *SQLite) GetClanByTag(ctx context.Context, tag string) (*model.Clan, error) {
	var c model.Clan
	var typ, freq string
	err := s.db.QueryRowContext(ctx, `SELECT id, tag, name, level, type, description, points, capital_points,
            required_trophies, required_townhall, war_frequency, war_win_streak, war_wins, war_ties, war_losses, member_count
        FROM clans WHERE tag = ?`, tag).Scan(&c.ID, &c.Tag, &c.Name, &c.Level, &typ, &c.Description, &c.Points,
		&c.CapitalPoints, &c.RequiredTrophies, &c.RequiredTownhall, &freq, &c.WarWinStreak, &c.WarWins, &c.WarTies,
		&c.WarLosses, &c.MemberCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clan %s: %w", tag, err)
	}
	c.Type = model.ClanType(typ)
	c.WarFrequency = model.WarFrequency(freq)
	return &c, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
