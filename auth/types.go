// Package auth drives the keep-alive login flow: per-attempt
// orchestration, challenge interaction, credential submission, outcome
// evaluation and the bounded retry loop around it all.
package auth

import (
	"errors"
	"time"

	"freecloud-keepalive/browser"
)

// Credential is one account's login pair. The secret is never written
// to logs or diagnostic artifacts.
type Credential struct {
	Identity string
	Secret   string
}

// Complete reports whether both halves of the pair were supplied.
// An incomplete pair downgrades the run to a keep-alive-only check.
func (c Credential) Complete() bool {
	return c.Identity != "" && c.Secret != ""
}

// OutcomeKind tags an AttemptOutcome.
type OutcomeKind int

const (
	// OutcomeSuccess means the attempt reached a success condition.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeTerminalFailure means retrying with the same credential
	// cannot plausibly succeed.
	OutcomeTerminalFailure
	// OutcomeRetryableFailure means the failure looks transient and is
	// worth re-attempting with a fresh session.
	OutcomeRetryableFailure
)

// AttemptOutcome is the result of one login attempt. Outcomes are
// consumed by the RetryController and never escape it.
type AttemptOutcome struct {
	Kind   OutcomeKind
	Reason string
	// ExpiryHint is the suspension countdown extracted from the account
	// page, when one was found.
	ExpiryHint time.Duration
}

func successOutcome(hint time.Duration) AttemptOutcome {
	return AttemptOutcome{Kind: OutcomeSuccess, ExpiryHint: hint}
}

func terminalFailure(reason string) AttemptOutcome {
	return AttemptOutcome{Kind: OutcomeTerminalFailure, Reason: reason}
}

func retryableFailure(reason string) AttemptOutcome {
	return AttemptOutcome{Kind: OutcomeRetryableFailure, Reason: reason}
}

// SessionResult outcome values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// SessionResult is the single, immutable per-account result handed to
// the batch layer.
type SessionResult struct {
	Identity string
	Outcome  string
	Detail   string
}

// SubmissionResult reports how far credential submission got.
type SubmissionResult struct {
	Filled    bool
	Submitted bool
}

// Failure conditions of the polling phase.
var (
	// ErrChallengeTimeout: the anti-bot layer was observed but never
	// cleared within the polling window.
	ErrChallengeTimeout = errors.New("cf-timeout")
	// ErrNoLoginSurface: neither a challenge nor the login form was
	// ever detected within the polling window.
	ErrNoLoginSurface = errors.New("no-login-or-cf")
)

// Session is the slice of a browser session an attempt needs. A fresh
// one is acquired per attempt and released before the attempt's
// outcome is acted on.
type Session interface {
	Page() browser.Page
	Release()
}

// SessionFactory produces a fresh Session per attempt. Acquisition
// failures are always treated as retryable.
type SessionFactory func() (Session, error)
