// 包 export 负责导出：将库中部落、成员、部落战与统计写为 JSON 文件。
package export

import (
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"go-clan-tracker/internal/model"
)

// Source 为导出所需的只读查询，*store.SQLite 即实现。
type Source interface {
	GetClanByTag(ctx context.Context, tag string) (*model.Clan, error)
	ListClanMembers(ctx context.Context, clanID int64) ([]model.Member, error)
	ListWars(ctx context.Context, clanID int64) ([]model.War, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// maxExportWars 仅导出最近的部落战，按准备开始时间倒序。
const maxExportWars = 50

// ToJSON 查询统计/部落/成员/部落战并写入 JSON 文件（带缩进格式）。
// 部落尚未同步过时仍会写出统计，成员与部落战为空。
func ToJSON(ctx context.Context, s Source, clanTag, path string) error {
	stats, err := s.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	out := model.Export{Stats: stats, Members: []model.Member{}, Wars: []model.War{}}
	clan, err := s.GetClanByTag(ctx, clanTag)
	if err != nil {
		return fmt.Errorf("get clan: %w", err)
	}
	if clan != nil {
		out.Clan = clan
		members, err := s.ListClanMembers(ctx, clan.ID)
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		wars, err := s.ListWars(ctx, clan.ID)
		if err != nil {
			return fmt.Errorf("list wars: %w", err)
		}
		if len(wars) > maxExportWars {
			wars = wars[:maxExportWars]
		}
		if members != nil {
			out.Members = members
		}
		if wars != nil {
			out.Wars = wars
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json to %s: %w", path, err)
	}
	return nil
}
