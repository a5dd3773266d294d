package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"go-clan-tracker/internal/model"
	"go-clan-tracker/internal/ranking"
)

type fakeRanker struct {
	gotSize int
	gotSpec string
	err     error
}

func (f *fakeRanker) Top(_ context.Context, size int, spec string) ([]ranking.Score, error) {
	f.gotSize, f.gotSpec = size, spec
	if f.err != nil {
		return nil, f.err
	}
	return []ranking.Score{{Tag: "#A", Name: "alice", Score: 0}, {Tag: "#B", Name: "bob", Score: 2.5}}, nil
}

type fakeStore struct {
	pingErr error
	members []model.Member
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) ListCurrentMembers(context.Context) ([]model.Member, error) { return f.members, nil }

func get(t *testing.T, h http.Handler, path string) (*http.Response, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	res := rec.Result()
	b, _ := io.ReadAll(res.Body)
	return res, string(b)
}

func TestWarRank(t *testing.T) {
	fr := &fakeRanker{}
	h := New(fr, &fakeStore{}).Router()

	res, body := get(t, h, "/api/v1/war/rank?size=2&criteria=war_stars:2,donations")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", res.StatusCode, body)
	}
	if body != "1. alice - 0\n2. bob - 2.5\n" {
		t.Fatalf("body=%q", body)
	}
	if fr.gotSize != 2 || fr.gotSpec != "war_stars:2,donations" {
		t.Fatalf("args size=%d spec=%q", fr.gotSize, fr.gotSpec)
	}

	if res, _ := get(t, h, "/api/v1/war/rank?size=abc"); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad size status=%d", res.StatusCode)
	}
	fr.err = ranking.ErrUnknownMetric
	if res, _ := get(t, h, "/api/v1/war/rank?size=3&criteria=elo"); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown metric status=%d", res.StatusCode)
	}
	fr.err = errors.New("db down")
	if res, _ := get(t, h, "/api/v1/war/rank?size=3"); res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("store error status=%d", res.StatusCode)
	}
}

func TestHealthAndMembers(t *testing.T) {
	st := &fakeStore{members: []model.Member{{Tag: "#A", Name: "alice", CurrentMember: true}}}
	h := New(&fakeRanker{}, st).Router()

	if res, body := get(t, h, "/healthz"); res.StatusCode != http.StatusOK || strings.TrimSpace(body) != "ok" {
		t.Fatalf("healthz status=%d body=%q", res.StatusCode, body)
	}
	res, body := get(t, h, "/api/v1/members")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("members status=%d", res.StatusCode)
	}
	var got []model.Member
	if err := json.Unmarshal([]byte(body), &got); err != nil || len(got) != 1 || got[0].Tag != "#A" {
		t.Fatalf("members body=%s err=%v", body, err)
	}

	st.pingErr = errors.New("closed")
	if res, _ := get(t, h, "/healthz"); res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy status=%d", res.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := New(&fakeRanker{}, &fakeStore{}).Router()
	res, body := get(t, h, "/metrics")
	if res.StatusCode != http.StatusOK || !strings.Contains(body, "go_goroutines") {
		t.Fatalf("metrics status=%d", res.StatusCode)
	}
}
