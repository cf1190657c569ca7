package upload

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is used when the configured interval is not positive.
const DefaultPollInterval = 5 * time.Second

// Poller polls the status of every outstanding job on a fixed interval.
type Poller struct {
	svc      *Service
	interval time.Duration
	logger   *slog.Logger
}

func NewPoller(svc *Service, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		svc:      svc,
		interval: interval,
		logger:   slog.Default().With("component", "poller"),
	}
}

// Run ticks until ctx is cancelled. Ticks do not wait for earlier ones.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("status poller started", "interval", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("status poller stopped")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick polls every outstanding job concurrently and returns immediately. The
// returned channel closes once all of this tick's requests have resolved.
func (p *Poller) Tick(ctx context.Context) <-chan struct{} {
	tickets := p.svc.tracker.Outstanding()
	done := make(chan struct{})

	var wg sync.WaitGroup
	for _, tk := range tickets {
		wg.Add(1)
		go func(tk Ticket) {
			defer wg.Done()
			p.poll(ctx, tk)
		}(tk)
	}
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func (p *Poller) poll(ctx context.Context, tk Ticket) {
	resp, err := p.svc.client.UploadStatus(ctx, tk.UploadID)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.Warn("status poll failed", "upload_id", tk.UploadID, "error", err)
		return
	}

	change, ok := p.svc.tracker.Apply(tk, resp.Status, resp.Message)
	if !ok {
		p.logger.Debug("discarded stale status", "upload_id", tk.UploadID, "seq", tk.Seq, "status", resp.Status)
		return
	}
	p.svc.record(ctx, change)
}
