package artifact

import (
	"io"
	"log/slog"
	"time"
)

// progress logs how much of an artifact has been received: at every tenth
// of a known length, or at most once per second when the server sent none.
type progress struct {
	w        io.Writer
	logger   *slog.Logger
	path     string
	total    int64
	received int64
	started  time.Time
	lastLog  time.Time
	nextStep int64
}

func newProgress(w io.Writer, logger *slog.Logger, path string, total int64) *progress {
	now := time.Now()
	return &progress{
		w:        w,
		logger:   logger,
		path:     path,
		total:    total,
		started:  now,
		lastLog:  now,
		nextStep: 1,
	}
}

func (p *progress) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.received += int64(n)

	if p.total > 0 {
		if step := p.received * 10 / p.total; step >= p.nextStep {
			p.nextStep = step + 1
			p.report()
		}
		return n, err
	}

	if time.Since(p.lastLog) >= time.Second {
		p.lastLog = time.Now()
		p.report()
	}

	return n, err
}

func (p *progress) report() {
	attrs := []any{
		"path", p.path,
		"received", p.received,
		"elapsed", time.Since(p.started).Round(time.Millisecond),
	}
	if p.total > 0 {
		attrs = append(attrs, "total", p.total, "percent", min(p.received*100/p.total, 100))
	}
	p.logger.Info("artifact progress", attrs...)
}
