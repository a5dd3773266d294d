// 包 poller 按固定间隔触发对账，作为 suture 服务运行。
package poller

import (
	"context"
	"sync"
	"time"

	"go-clan-tracker/internal/logx"
	"go-clan-tracker/internal/reconcile"
)

// Cycler 为单轮对账，*reconcile.Engine 即实现。
type Cycler interface {
	RunCycle(ctx context.Context) (reconcile.Report, error)
}

// Poller 在就绪信号之后每隔 interval 执行一轮对账，同一时刻最多一轮。
type Poller struct {
	cycler     Cycler
	interval   time.Duration
	runOnStart bool
	ready      <-chan struct{}

	mu sync.Mutex
}

type Option func(*Poller)

// WithReady 设置就绪信号；信号关闭前不会开始任何一轮。
func WithReady(ready <-chan struct{}) Option {
	return func(p *Poller) { p.ready = ready }
}

// WithRunOnStart 就绪后立即执行一轮，而不是等到第一个 tick。
func WithRunOnStart(v bool) Option {
	return func(p *Poller) { p.runOnStart = v }
}

func New(c Cycler, interval time.Duration, opts ...Option) *Poller {
	if interval <= 0 {
		interval = 300 * time.Second
	}
	p := &Poller{cycler: c, interval: interval}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Serve 实现 suture.Service；ctx 取消后返回，已开始的一轮会先跑完。
func (p *Poller) Serve(ctx context.Context) error {
	if p.ready != nil {
		select {
		case <-p.ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	logx.Infof("定时同步已启动，间隔=%s", p.interval)
	if p.runOnStart {
		p.RunOnce(ctx)
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce 串行执行一轮对账并记录结果；错误只记录，由下一轮重试。
func (p *Poller) RunOnce(ctx context.Context) (reconcile.Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rep, err := p.cycler.RunCycle(context.WithoutCancel(ctx))
	if err != nil {
		logx.Errorf("同步失败 轮次=%s 耗时=%s：%v", rep.CycleID, rep.Duration.Round(time.Millisecond), err)
		return rep, err
	}
	logx.Infof("同步完成 轮次=%s 成员=%d 活跃=%d 不活跃=%d 跳过=%d 加入=%d 离开=%d 部落战=%q 新进攻=%d 耗时=%s",
		rep.CycleID, rep.MembersSeen, rep.MembersActive, rep.MembersIdle, rep.MembersSkipped, rep.Joined, rep.Left,
		rep.WarStrategy, rep.AttacksCreated, rep.Duration.Round(time.Millisecond))
	return rep, nil
}

func (p *Poller) String() string { return "clan-poller" }
