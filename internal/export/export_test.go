package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"go-clan-tracker/internal/model"
	"go-clan-tracker/internal/store"
)

func TestToJSON_WithClanAndWarCap(t *testing.T) {
	dir := t.TempDir()
	s, err := store.OpenSQLite(filepath.Join(dir, "t.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	c, err := s.UpsertClan(ctx, model.Clan{Tag: "#CLAN", Name: "Alpha", Type: model.ClanTypeOpen, WarFrequency: model.WarFrequencyNever})
	if err != nil {
		t.Fatalf("clan: %v", err)
	}
	if _, err := s.UpsertMember(ctx, model.Member{ClanID: c.ID, Tag: "#M1", Name: "a", Role: model.RoleLeader}); err != nil {
		t.Fatalf("member: %v", err)
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		w := model.War{ClanID: c.ID, PreparationStartTime: base.Add(time.Duration(i) * 48 * time.Hour),
			Result: model.WarResultWin, Type: model.WarTypeRandom}
		if _, _, err := s.UpsertWar(ctx, w); err != nil {
			t.Fatalf("seed war: %v", err)
		}
	}

	out := filepath.Join(dir, "out.json")
	if err := ToJSON(ctx, s, "#CLAN", out); err != nil {
		t.Fatalf("export: %v", err)
	}
	b, _ := os.ReadFile(out)
	var e model.Export
	if err := json.Unmarshal(b, &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Clan == nil || e.Clan.Name != "Alpha" || len(e.Members) != 1 {
		t.Fatalf("unexpected export: %+v", e)
	}
	if len(e.Wars) != maxExportWars || e.Stats.WarsTotal != 60 {
		t.Fatalf("wars=%d stats=%+v", len(e.Wars), e.Stats)
	}
	if e.Wars[0].PreparationStartTime.Before(e.Wars[len(e.Wars)-1].PreparationStartTime) {
		t.Fatalf("order not desc")
	}
}

func TestToJSON_BeforeFirstSync(t *testing.T) {
	dir := t.TempDir()
	s, err := store.OpenSQLite(filepath.Join(dir, "t.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	out := filepath.Join(dir, "out.json")
	if err := ToJSON(context.Background(), s, "#NONE", out); err != nil {
		t.Fatalf("export: %v", err)
	}
	b, _ := os.ReadFile(out)
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := raw["clan"]; ok {
		t.Fatalf("clan should be omitted: %s", b)
	}
	if m, ok := raw["members"].([]any); !ok || len(m) != 0 {
		t.Fatalf("members should be empty array: %s", b)
	}
}
