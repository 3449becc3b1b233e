// Package pacing provides the jittered waits the keep-alive flow
// spaces itself with: retry backoff, inter-account pauses and the
// short humanized pauses around form interaction.
package pacing

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Config defines the pacing behavior.
type Config struct {
	// BackoffBase and BackoffStep define the retry backoff:
	// base + step*attempt.
	BackoffBase time.Duration `yaml:"backoff_base"`
	BackoffStep time.Duration `yaml:"backoff_step"`
	// AccountPause is the fixed pause between accounts, applied to
	// reduce correlated detection signatures.
	AccountPause time.Duration `yaml:"account_pause"`
	// JitterPercent adds up to this fraction of randomness on top of
	// every wait.
	JitterPercent float64 `yaml:"jitter_percent"`
}

// Pacer issues context-aware jittered sleeps.
type Pacer struct {
	config Config
	logger *logrus.Logger
	rng    *rand.Rand
	mu     sync.Mutex
}

// New creates a Pacer with the given configuration.
func New(config Config, logger *logrus.Logger) *Pacer {
	if config.JitterPercent <= 0 {
		config.JitterPercent = 0.1
	}
	return &Pacer{
		config: config,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Backoff sleeps before retry number attempt (1-based). The wait grows
// linearly with the attempt index.
func (p *Pacer) Backoff(ctx context.Context, attempt int) {
	wait := p.config.BackoffBase + time.Duration(attempt)*p.config.BackoffStep
	p.logger.WithFields(logrus.Fields{
		"attempt": attempt,
		"wait":    wait.String(),
	}).Info("Backing off before retry")
	p.sleep(ctx, wait)
}

// AccountPause sleeps between two accounts.
func (p *Pacer) AccountPause(ctx context.Context) {
	p.sleep(ctx, p.config.AccountPause)
}

// FieldPause sleeps briefly between filling fields and submitting,
// roughly matching human form-interaction cadence.
func (p *Pacer) FieldPause() {
	p.sleep(context.Background(), 800*time.Millisecond)
}

func (p *Pacer) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	d += p.jitter(d)
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

func (p *Pacer) jitter(d time.Duration) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Duration(p.rng.Float64() * p.config.JitterPercent * float64(d))
}
