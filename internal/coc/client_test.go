package coc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-clan-tracker/internal/fetch"
)

const ourTag = "#2PP"

const classicWarJSON = `{
  "state": "inWar", "teamSize": 2, "attacksPerMember": 2,
  "preparationStartTime": "20240101T100000.000Z",
  "startTime": "20240102T100000.000Z",
  "endTime": "20240103T100000.000Z",
  "clan": {"tag": "#2PP", "stars": 3, "destructionPercentage": 50,
    "members": [
      {"tag": "#A", "name": "a", "mapPosition": 1,
       "attacks": [{"attackerTag": "#A", "defenderTag": "#X", "stars": 3, "destructionPercentage": 100, "order": 1, "duration": 120}]},
      {"tag": "#B", "name": "b", "mapPosition": 2}
    ]},
  "opponent": {"tag": "#OPP", "stars": 1, "destructionPercentage": 40,
    "members": [
      {"tag": "#X", "name": "x", "mapPosition": 1,
       "attacks": [{"attackerTag": "#X", "defenderTag": "#B", "stars": 1, "destructionPercentage": 40, "order": 2, "duration": 90}]}
    ]}
}`

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	cl, err := fetch.New(fetch.Options{Timeout: 2 * time.Second, Token: "t"})
	if err != nil {
		t.Fatalf("fetch client: %v", err)
	}
	return NewClient(cl, srv.URL)
}

func TestGetClanMembersPlayer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/clans/{tag}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("tag") != ourTag {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"tag":"#2PP","name":"Clan","type":"inviteOnly","clanLevel":12,"warFrequency":"always","members":2}`))
	})
	mux.HandleFunc("/clans/{tag}/members", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"tag":"#A","name":"a","role":"leader","clanRank":1,"previousClanRank":2}]}`))
	})
	mux.HandleFunc("/players/{tag}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tag":"#A","donations":10,"donationsReceived":4,"builderBaseTrophies":2100,"warStars":50,"clanCapitalContributions":9}`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	clan, err := c.GetClan(ctx, ourTag)
	if err != nil {
		t.Fatalf("get clan: %v", err)
	}
	if clan.Name != "Clan" || clan.Type != "inviteOnly" || clan.ClanLevel != 12 || clan.Members != 2 {
		t.Fatalf("unexpected clan: %+v", clan)
	}
	if _, err := c.GetClan(ctx, "#NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expect ErrNotFound, got %v", err)
	}
	roster, err := c.GetMembers(ctx, ourTag)
	if err != nil || len(roster) != 1 || roster[0].Role != "leader" || roster[0].PreviousClanRank != 2 {
		t.Fatalf("roster=%+v err=%v", roster, err)
	}
	p, err := c.GetPlayer(ctx, "#A")
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if p.Versus() != 2100 || p.ClanCapitalContributions != 9 || p.DonationsReceived != 4 {
		t.Fatalf("unexpected player: %+v", p)
	}
}

func TestClanWar_NormalisesAndDerives(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/clans/{tag}/currentwar", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(classicWarJSON))
	})
	c := newTestClient(t, mux)
	w, err := c.ClanWar(context.Background(), ourTag)
	if err != nil {
		t.Fatalf("clan war: %v", err)
	}
	if w.ClanTag != ourTag || w.OpponentTag != "#OPP" {
		t.Fatalf("sides: %+v", w)
	}
	if w.Status != "winning" || w.Type != "random" {
		t.Fatalf("status=%q type=%q", w.Status, w.Type)
	}
	if w.PreparationStartTime == nil || !w.PreparationStartTime.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("prep time: %v", w.PreparationStartTime)
	}
	if len(w.Members) != 2 || !w.HasMember("#B") || w.HasMember("#X") {
		t.Fatalf("members: %+v", w.Members)
	}
	if len(w.Attacks) != 2 {
		t.Fatalf("attacks from both sides expected, got %d", len(w.Attacks))
	}
}

func TestClanWar_NotInWar(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/clans/{tag}/currentwar", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state":"notInWar"}`))
	})
	c := newTestClient(t, mux)
	if _, err := c.ClanWar(context.Background(), ourTag); !errors.Is(err, ErrNoWar) {
		t.Fatalf("expect ErrNoWar, got %v", err)
	}
}

func TestLeagueWar_PicksInWarRoundAndSwapsSides(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/clans/{tag}/currentwar/leaguegroup", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state":"inWar","rounds":[{"warTags":["#W1","#W2"]},{"warTags":["#W3","#W4"]},{"warTags":["#0","#0"]}]}`))
	})
	wars := map[string]string{
		"#W1": `{"state":"warEnded","clan":{"tag":"#2PP"},"opponent":{"tag":"#E1"}}`,
		"#W2": `{"state":"warEnded","clan":{"tag":"#O1"},"opponent":{"tag":"#O2"}}`,
		"#W3": `{"state":"preparation","clan":{"tag":"#O3"},"opponent":{"tag":"#O4"}}`,
		"#W4": `{"state":"inWar","teamSize":15,"preparationStartTime":"20240105T100000.000Z","startTime":"20240106T100000.000Z",
		  "clan":{"tag":"#E2","stars":5,"members":[{"tag":"#Z"}]},
		  "opponent":{"tag":"#2PP","stars":5,"destructionPercentage":1,"members":[{"tag":"#A","attacks":[{"attackerTag":"#A","defenderTag":"#Z","stars":2}]}]}}`,
	}
	mux.HandleFunc("/clanwarleagues/wars/{tag}", func(w http.ResponseWriter, r *http.Request) {
		body, ok := wars[r.PathValue("tag")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	})
	c := newTestClient(t, mux)
	w, err := c.LeagueWar(context.Background(), ourTag)
	if err != nil {
		t.Fatalf("league war: %v", err)
	}
	if w.WarTag != "#W4" || w.ClanTag != ourTag || w.OpponentTag != "#E2" {
		t.Fatalf("wrong war selected: %+v", w)
	}
	if w.Type != "cwl" || w.AttacksPerMember != 1 || w.Status != "winning" {
		t.Fatalf("type=%q apm=%d status=%q", w.Type, w.AttacksPerMember, w.Status)
	}
	if !w.HasMember("#A") || w.EndTime != nil {
		t.Fatalf("members=%+v end=%v", w.Members, w.EndTime)
	}
}

func TestCurrentWar_FallsBackToLeague(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/clans/{tag}/currentwar", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state":"notInWar"}`))
	})
	mux.HandleFunc("/clans/{tag}/currentwar/leaguegroup", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	c := newTestClient(t, mux)
	if _, err := c.CurrentWar(context.Background(), ourTag); !errors.Is(err, ErrNoWar) {
		t.Fatalf("expect ErrNoWar, got %v", err)
	}
}

func TestWarStatusAndFriendlyType(t *testing.T) {
	raw := rawWar{
		State:                "warEnded",
		PreparationStartTime: "20240101T100000.000Z",
		StartTime:            "20240101T110000.000Z",
		Clan:                 rawWarClan{Tag: ourTag, Stars: 10, DestructionPercentage: 80},
		Opponent:             rawWarClan{Tag: "#O", Stars: 10, DestructionPercentage: 80},
	}
	w, err := raw.toSnapshot(ourTag, false)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if w.Status != "tied" || w.Type != "friendly" || w.AttacksPerMember != 2 {
		t.Fatalf("status=%q type=%q apm=%d", w.Status, w.Type, w.AttacksPerMember)
	}
	raw.Opponent.DestructionPercentage = 90
	if w, _ = raw.toSnapshot(ourTag, false); w.Status != "lost" {
		t.Fatalf("status=%q want lost", w.Status)
	}
	raw.StartTime = ""
	if w, _ = raw.toSnapshot(ourTag, false); w.Type != "" || w.StartTime != nil {
		t.Fatalf("missing start must leave type empty, got %q", w.Type)
	}
	raw.EndTime = "garbage"
	if _, err := raw.toSnapshot(ourTag, false); err == nil {
		t.Fatalf("expect parse error for malformed time")
	}
}
