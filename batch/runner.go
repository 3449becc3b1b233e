// Package batch processes accounts strictly sequentially and collects
// their results for reporting.
package batch

import (
	"context"

	"github.com/sirupsen/logrus"

	"freecloud-keepalive/auth"
	"freecloud-keepalive/pacing"
)

// AccountRunner produces one result per account.
type AccountRunner interface {
	Run(ctx context.Context, cred auth.Credential) auth.SessionResult
}

// Recorder persists results. Recording is best-effort.
type Recorder interface {
	RecordRun(identity, outcome, detail string) error
}

// Summary aggregates one batch run.
type Summary struct {
	Results   []auth.SessionResult
	Succeeded int
	Failed    int
}

// Runner iterates accounts one at a time with a pause between them to
// reduce correlated detection signatures.
type Runner struct {
	runner   AccountRunner
	recorder Recorder
	pacer    *pacing.Pacer
	logger   *logrus.Logger
}

// NewRunner creates a batch runner. recorder may be nil.
func NewRunner(runner AccountRunner, recorder Recorder, pacer *pacing.Pacer, logger *logrus.Logger) *Runner {
	return &Runner{runner: runner, recorder: recorder, pacer: pacer, logger: logger}
}

// Run processes every account and returns the aggregate. One account's
// failure never stops the remaining accounts.
func (r *Runner) Run(ctx context.Context, accounts []auth.Credential) Summary {
	summary := Summary{}

	for i, cred := range accounts {
		result := r.runner.Run(ctx, cred)
		summary.Results = append(summary.Results, result)

		if result.Outcome == auth.ResultSuccess {
			summary.Succeeded++
			r.logger.WithField("account", result.Identity).Info("Account keep-alive succeeded")
		} else {
			summary.Failed++
			r.logger.WithFields(logrus.Fields{
				"account": result.Identity,
				"detail":  result.Detail,
			}).Error("Account keep-alive failed")
		}

		if r.recorder != nil {
			if err := r.recorder.RecordRun(result.Identity, result.Outcome, result.Detail); err != nil {
				r.logger.WithError(err).Warn("Failed to record run history")
			}
		}

		if i < len(accounts)-1 {
			r.pacer.AccountPause(ctx)
		}
	}

	return summary
}
