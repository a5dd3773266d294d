// 包 server 提供可选的 HTTP 接口：健康检查、Prometheus 指标、部落战推荐与在籍成员。
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-clan-tracker/internal/logx"
	"go-clan-tracker/internal/model"
	"go-clan-tracker/internal/ranking"
)

type Ranker interface {
	Top(ctx context.Context, size int, spec string) ([]ranking.Score, error)
}

type Store interface {
	Ping(ctx context.Context) error
	ListCurrentMembers(ctx context.Context) ([]model.Member, error)
}

type Server struct {
	ranker Ranker
	store  Store
}

func New(r Ranker, s Store) *Server { return &Server{ranker: r, store: s} }

// Router 组装路由。
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/war/rank", s.warRank)
		r.Get("/members", s.members)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

// warRank 对应 GET /api/v1/war/rank?size=N&criteria=war_stars:2,donations，返回纯文本推荐名单。
func (s *Server) warRank(w http.ResponseWriter, r *http.Request) {
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil {
		http.Error(w, "size must be a positive integer", http.StatusBadRequest)
		return
	}
	scores, err := s.ranker.Top(r.Context(), size, r.URL.Query().Get("criteria"))
	if err != nil {
		if ranking.IsInvalidRequest(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logx.Errorf("war rank 失败：%v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(ranking.FormatListing(scores)))
}

func (s *Server) members(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListCurrentMembers(r.Context())
	if err != nil {
		logx.Errorf("list members 失败：%v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []model.Member{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		logx.Warnf("encode members：%v", err)
	}
}
