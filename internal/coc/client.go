package coc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	json "github.com/goccy/go-json"

	"go-clan-tracker/internal/fetch"
)

// Client 通过 HTTP 访问游戏数据接口。
type Client struct {
	http *fetch.Client
	base string
}

func NewClient(cl *fetch.Client, baseURL string) *Client {
	return &Client{http: cl, base: baseURL}
}

func (c *Client) GetClan(ctx context.Context, tag string) (*ClanSnapshot, error) {
	var out ClanSnapshot
	if err := c.get(ctx, "/clans/"+escape(tag), &out); err != nil {
		return nil, fmt.Errorf("get clan %s: %w", tag, err)
	}
	return &out, nil
}

func (c *Client) GetMembers(ctx context.Context, tag string) ([]RosterEntry, error) {
	var out struct {
		Items []RosterEntry `json:"items"`
	}
	if err := c.get(ctx, "/clans/"+escape(tag)+"/members", &out); err != nil {
		return nil, fmt.Errorf("get members %s: %w", tag, err)
	}
	return out.Items, nil
}

func (c *Client) GetPlayer(ctx context.Context, tag string) (*PlayerSnapshot, error) {
	var out PlayerSnapshot
	if err := c.get(ctx, "/players/"+escape(tag), &out); err != nil {
		return nil, fmt.Errorf("get player %s: %w", tag, err)
	}
	return &out, nil
}

func (c *Client) CurrentWar(ctx context.Context, tag string) (*WarSnapshot, error) {
	w, err := c.ClanWar(ctx, tag)
	if errors.Is(err, ErrNoWar) {
		return c.LeagueWar(ctx, tag)
	}
	return w, err
}

// ClanWar 查询普通部落战；notInWar 或 404 视为 ErrNoWar。
func (c *Client) ClanWar(ctx context.Context, tag string) (*WarSnapshot, error) {
	var raw rawWar
	if err := c.get(ctx, "/clans/"+escape(tag)+"/currentwar", &raw); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("clan war %s: %w", tag, ErrNoWar)
		}
		return nil, fmt.Errorf("clan war %s: %w", tag, err)
	}
	if raw.State == "" || raw.State == "notInWar" {
		return nil, fmt.Errorf("clan war %s: %w", tag, ErrNoWar)
	}
	w, err := raw.toSnapshot(tag, false)
	if err != nil {
		return nil, fmt.Errorf("clan war %s: %w", tag, err)
	}
	return w, nil
}

type leagueGroup struct {
	State  string `json:"state"`
	Rounds []struct {
		WarTags []string `json:"warTags"`
	} `json:"rounds"`
}

// LeagueWar 在联赛分组中由近及远查找本部落参与的对战：优先 inWar，其次 preparation。
func (c *Client) LeagueWar(ctx context.Context, tag string) (*WarSnapshot, error) {
	var group leagueGroup
	if err := c.get(ctx, "/clans/"+escape(tag)+"/currentwar/leaguegroup", &group); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("league war %s: %w", tag, ErrNoWar)
		}
		return nil, fmt.Errorf("league group %s: %w", tag, err)
	}
	var prep *rawWar
	for i := len(group.Rounds) - 1; i >= 0; i-- {
		for _, warTag := range group.Rounds[i].WarTags {
			if warTag == "" || warTag == "#0" {
				continue
			}
			var raw rawWar
			if err := c.get(ctx, "/clanwarleagues/wars/"+escape(warTag), &raw); err != nil {
				return nil, fmt.Errorf("league war %s: %w", warTag, err)
			}
			if raw.Clan.Tag != tag && raw.Opponent.Tag != tag {
				continue
			}
			if raw.WarTag == "" {
				raw.WarTag = warTag
			}
			switch raw.State {
			case "inWar":
				return raw.toSnapshot(tag, true)
			case "preparation":
				if prep == nil {
					r := raw
					prep = &r
				}
			}
			// 每轮本部落只有一场，找到后跳到上一轮
			break
		}
	}
	if prep != nil {
		return prep.toSnapshot(tag, true)
	}
	return nil, fmt.Errorf("league war %s: %w", tag, ErrNoWar)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.http.Get(ctx, c.base+path)
	if err != nil {
		var se *fetch.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return ErrNotFound
		}
		return err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func escape(tag string) string { return url.PathEscape(tag) }
