// 命令行入口：
// - 解析 flags 与 settings.yaml/.env
// - 初始化日志、接口客户端（限速/重试/熔断）、数据库
// - 支持单轮同步（-once）、推荐名单（-rank）与 JSON 导出（-export）
// - 默认常驻：定时同步 + 可选 HTTP 接口，由 suture 监管
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"go-clan-tracker/internal/coc"
	"go-clan-tracker/internal/config"
	"go-clan-tracker/internal/export"
	"go-clan-tracker/internal/fetch"
	"go-clan-tracker/internal/logx"
	"go-clan-tracker/internal/poller"
	"go-clan-tracker/internal/ranking"
	"go-clan-tracker/internal/reconcile"
	"go-clan-tracker/internal/server"
	"go-clan-tracker/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "settings.yaml", "path to settings.yaml")
		envPath    = flag.String("env", ".env", "path to .env (optional)")
		exportPath = flag.String("export", "", "write a JSON snapshot to this path (after -once, or on shutdown)")
		once       = flag.Bool("once", false, "run a single sync cycle and exit")
		rankSize   = flag.Int("rank", 0, "print the top N war candidates from stored data and exit")
		criteria   = flag.String("criteria", "all", "ranking criteria, e.g. war_stars:2,donations")
	)
	flag.Parse()

	// 1) 加载配置并初始化日志
	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)

	// 2) 数据存储：打开并按需重置
	ctx := context.Background()
	st, err := store.OpenSQLite(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer st.Close()
	if cfg.ResetOnStart {
		if err := st.Reset(ctx); err != nil {
			logx.Warnf("启动清理数据库失败：%v", err)
		} else {
			logx.Infof("已清理数据库表（clans/members/wars/war_attacks）")
		}
	}

	// 3) 推荐名单：只读库，不访问接口
	rank := ranking.NewService(st)
	if *rankSize != 0 {
		scores, err := rank.Top(ctx, *rankSize, *criteria)
		if err != nil {
			logx.Errorf("推荐名单失败：%v", err)
			os.Exit(2)
		}
		fmt.Printf("Top %d players for next war\n%s", *rankSize, ranking.FormatListing(scores))
		return
	}

	// 4) 接口客户端：代理/超时/重试/限速，外加熔断
	cl, err := fetch.New(fetch.Options{
		ProxyHTTP:     cfg.Proxy.HTTP,
		ProxyHTTPS:    cfg.Proxy.HTTPS,
		Timeout:       cfg.Timeout(),
		Retry:         cfg.API.Retry,
		Token:         cfg.API.Token,
		RatePerSecond: cfg.API.RatePerSecond,
		Burst:         cfg.API.Burst,
	})
	if err != nil {
		log.Fatalf("http client: %v", err)
	}
	api := coc.NewBreakerFetcher(coc.NewClient(cl, cfg.API.BaseURL), coc.BreakerSettings{})
	engine := reconcile.New(api, st, cfg.ClanTag)

	if *once {
		rep, err := engine.RunCycle(ctx)
		if err != nil {
			logx.Errorf("同步失败：%v", err)
			os.Exit(1)
		}
		logx.Infof("同步完成：成员=%d 活跃=%d 新进攻=%d", rep.MembersSeen, rep.MembersActive, rep.AttacksCreated)
		writeExport(ctx, st, cfg.ClanTag, *exportPath)
		return
	}

	// 5) 常驻模式：suture 监管定时同步与 HTTP 服务
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hook := &sutureslog.Handler{Logger: logx.Logger()}
	sup := suture.New("clan-tracker", suture.Spec{
		EventHook:        hook.MustHook(),
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})
	ready := make(chan struct{})
	sup.Add(poller.New(engine, cfg.Interval(), poller.WithReady(ready), poller.WithRunOnStart(cfg.Sync.RunOnStart)))
	if cfg.HTTP.Enabled {
		srv := server.New(rank, st)
		sup.Add(server.NewService(cfg.HTTP.Addr, srv.Router(), 10*time.Second))
		logx.Infof("HTTP 接口监听 %s", cfg.HTTP.Addr)
	}

	go func() {
		defer close(ready)
		announce(ctx, api, cfg.ClanTag)
	}()

	if err := sup.Serve(ctx); err != nil && ctx.Err() == nil {
		logx.Errorf("监管树退出：%v", err)
	}
	logx.Infof("正在退出")
	writeExport(context.Background(), st, cfg.ClanTag, *exportPath)
}

// announce 启动时确认部落身份，失败只告警，不阻止定时同步。
func announce(ctx context.Context, api coc.Fetcher, tag string) {
	lookupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	clan, err := api.GetClan(lookupCtx, tag)
	if err != nil {
		logx.Warnf("启动时获取部落信息失败：%s %v", tag, err)
		return
	}
	logx.Infof("已就绪：追踪部落 %s（%s）等级=%d 成员=%d", clan.Name, tag, clan.ClanLevel, clan.Members)
}

func writeExport(ctx context.Context, st *store.SQLite, tag, path string) {
	if path == "" {
		return
	}
	if err := export.ToJSON(ctx, st, tag, path); err != nil {
		logx.Errorf("导出失败：%v", err)
		return
	}
	logx.Infof("已导出 %s", path)
}
