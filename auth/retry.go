package auth

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"freecloud-keepalive/pacing"
)

// RetryController wraps the orchestrator with a bounded retry loop.
// It yields exactly one SessionResult per account; intermediate
// attempt outcomes never escape it.
type RetryController struct {
	factory      SessionFactory
	orchestrator *AttemptOrchestrator
	pacer        *pacing.Pacer
	logger       *logrus.Logger
	maxAttempts  int
	artifactsDir string
}

// NewRetryController creates a controller running at most maxAttempts
// attempts per account, each with a fresh session from factory.
func NewRetryController(
	factory SessionFactory,
	orchestrator *AttemptOrchestrator,
	pacer *pacing.Pacer,
	maxAttempts int,
	artifactsDir string,
	logger *logrus.Logger,
) *RetryController {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if artifactsDir == "" {
		artifactsDir = "."
	}
	return &RetryController{
		factory:      factory,
		orchestrator: orchestrator,
		pacer:        pacer,
		logger:       logger,
		maxAttempts:  maxAttempts,
		artifactsDir: artifactsDir,
	}
}

// Run performs up to maxAttempts login attempts for the credential and
// returns the account's single result. Failures always come back as a
// value; the batch caller must be able to keep going regardless.
func (rc *RetryController) Run(ctx context.Context, cred Credential) SessionResult {
	lastReason := ""

	for attempt := 1; attempt <= rc.maxAttempts; attempt++ {
		rc.logger.WithFields(logrus.Fields{
			"account": cred.Identity,
			"attempt": fmt.Sprintf("%d/%d", attempt, rc.maxAttempts),
		}).Info("Starting login attempt")

		outcome := rc.runAttempt(cred)

		switch outcome.Kind {
		case OutcomeSuccess:
			detail := "keep-alive successful"
			if outcome.ExpiryHint > 0 {
				detail = fmt.Sprintf("keep-alive successful, suspension in %s", outcome.ExpiryHint)
			}
			return SessionResult{Identity: cred.Identity, Outcome: ResultSuccess, Detail: detail}

		case OutcomeTerminalFailure:
			rc.logger.WithField("account", cred.Identity).Error(outcome.Reason)
			return SessionResult{Identity: cred.Identity, Outcome: ResultFailure, Detail: outcome.Reason}

		case OutcomeRetryableFailure:
			lastReason = outcome.Reason
			rc.logger.WithFields(logrus.Fields{
				"account": cred.Identity,
				"reason":  outcome.Reason,
			}).Warn("Attempt failed")
			if attempt < rc.maxAttempts {
				rc.pacer.Backoff(ctx, attempt)
			}
		}
	}

	return SessionResult{
		Identity: cred.Identity,
		Outcome:  ResultFailure,
		Detail:   fmt.Sprintf("all %d attempts failed, last error: %s", rc.maxAttempts, lastReason),
	}
}

// runAttempt owns one session for one attempt. Release is deferred so
// it runs on every exit path, including panics below; diagnostics are
// captured before release since they need the live page.
func (rc *RetryController) runAttempt(cred Credential) AttemptOutcome {
	sess, err := rc.factory()
	if err != nil {
		return retryableFailure(fmt.Sprintf("session acquisition failed: %v", err))
	}
	defer sess.Release()

	outcome := rc.orchestrator.Run(sess.Page(), cred)

	if outcome.Kind != OutcomeSuccess {
		captureDiagnostics(sess.Page(), rc.artifactsDir, cred.Identity, rc.logger)
	}

	return outcome
}
