package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freecloud-keepalive/pacing"
)

// sessionTracker hands out fake sessions and counts lifecycle calls.
type sessionTracker struct {
	newPage  func() *fakePage
	acquires int
	sessions []*fakeSession
	err      error
}

func (st *sessionTracker) factory() (Session, error) {
	st.acquires++
	if st.err != nil {
		return nil, st.err
	}
	sess := &fakeSession{page: st.newPage()}
	st.sessions = append(st.sessions, sess)
	return sess, nil
}

func (st *sessionTracker) assertEverySessionReleasedOnce(t *testing.T) {
	t.Helper()
	require.Len(t, st.sessions, st.acquires)
	for i, sess := range st.sessions {
		assert.Equal(t, 1, sess.released, "session %d release count", i)
	}
}

func testController(t *testing.T, tracker *sessionTracker, maxAttempts int) *RetryController {
	t.Helper()
	log := testLogger()
	return NewRetryController(
		tracker.factory,
		testOrchestrator(),
		pacing.New(pacing.Config{}, log),
		maxAttempts,
		t.TempDir(),
		log,
	)
}

func TestRunSuccessFirstAttempt(t *testing.T) {
	tracker := &sessionTracker{newPage: func() *fakePage {
		page := newFakePage()
		page.landingHTML = []string{"<html>enter your email</html>"}
		return page
	}}

	result := testController(t, tracker, 3).Run(context.Background(), Credential{Identity: "a@b.com"})

	assert.Equal(t, ResultSuccess, result.Outcome)
	assert.Equal(t, "a@b.com", result.Identity)
	assert.Equal(t, 1, tracker.acquires)
	tracker.assertEverySessionReleasedOnce(t)
}

func TestRunAlwaysRetryableExhaustsAttempts(t *testing.T) {
	tracker := &sessionTracker{newPage: func() *fakePage {
		page := newFakePage()
		page.landingHTML = []string{"<html>nothing recognizable</html>"}
		return page
	}}

	result := testController(t, tracker, 3).Run(context.Background(), Credential{Identity: "a@b.com"})

	assert.Equal(t, 3, tracker.acquires, "exactly maxAttempts attempts")
	assert.Equal(t, ResultFailure, result.Outcome)
	assert.Contains(t, result.Detail, "all 3 attempts failed")
	assert.Contains(t, result.Detail, ErrNoLoginSurface.Error())
	tracker.assertEverySessionReleasedOnce(t)
}

func TestRunTerminalFailureNeverRetried(t *testing.T) {
	tracker := &sessionTracker{newPage: func() *fakePage {
		page := newFakePage()
		page.landingHTML = []string{"<html>enter your email</html>"}
		page.fillable["#inputEmail"] = true
		page.fillable["#inputPassword"] = true
		page.labelClickOK = true
		page.postHTML = "<html>invalid login</html>"
		return page
	}}

	result := testController(t, tracker, 3).Run(context.Background(), Credential{Identity: "a@b.com", Secret: "wrongpass"})

	assert.Equal(t, 1, tracker.acquires, "deterministic rejection must not be retried")
	assert.Equal(t, ResultFailure, result.Outcome)
	assert.Equal(t, "a@b.com", result.Identity)
	assert.True(t, strings.HasPrefix(result.Detail, "Login failed"), "detail: %s", result.Detail)
	tracker.assertEverySessionReleasedOnce(t)
}

func TestRunAcquisitionFailureIsRetryable(t *testing.T) {
	tracker := &sessionTracker{err: errors.New("chromium failed to launch")}

	result := testController(t, tracker, 2).Run(context.Background(), Credential{Identity: "a@b.com"})

	assert.Equal(t, 2, tracker.acquires)
	assert.Equal(t, ResultFailure, result.Outcome)
	assert.Contains(t, result.Detail, "session acquisition failed")
}

func TestRunReleasesSessionOnInjectedFault(t *testing.T) {
	tracker := &sessionTracker{newPage: func() *fakePage {
		page := newFakePage()
		page.panicOnHTML = true
		return page
	}}

	result := testController(t, tracker, 2).Run(context.Background(), Credential{Identity: "a@b.com"})

	assert.Equal(t, ResultFailure, result.Outcome)
	assert.Contains(t, result.Detail, "attempt panicked")
	tracker.assertEverySessionReleasedOnce(t)
}

func TestRunCapturesDiagnosticsOnFailingAttempts(t *testing.T) {
	tracker := &sessionTracker{newPage: func() *fakePage {
		page := newFakePage()
		page.landingHTML = []string{"<html>nothing recognizable</html>"}
		return page
	}}

	testController(t, tracker, 2).Run(context.Background(), Credential{Identity: "a@b.com"})

	require.Len(t, tracker.sessions, 2)
	for _, sess := range tracker.sessions {
		page := sess.page.(*fakePage)
		assert.Len(t, page.screenshots, 1)
		assert.Len(t, page.htmlDumps, 1)
		// The identity is sanitized into the artifact names.
		assert.Contains(t, page.screenshots[0], "a_b.com")
		assert.Contains(t, page.htmlDumps[0], "a_b.com")
	}
}

func TestRunDiagnosticCapturesAreIndependent(t *testing.T) {
	tracker := &sessionTracker{newPage: func() *fakePage {
		page := newFakePage()
		page.landingHTML = []string{"<html>nothing recognizable</html>"}
		page.screenshotErr = errors.New("render target gone")
		return page
	}}

	testController(t, tracker, 1).Run(context.Background(), Credential{Identity: "a@b.com"})

	require.Len(t, tracker.sessions, 1)
	page := tracker.sessions[0].page.(*fakePage)
	// Screenshot failed; the HTML dump must still have been attempted.
	assert.Len(t, page.screenshots, 1)
	assert.Len(t, page.htmlDumps, 1)
}

func TestRunNoDiagnosticsOnSuccess(t *testing.T) {
	tracker := &sessionTracker{newPage: func() *fakePage {
		page := newFakePage()
		page.landingHTML = []string{"<html>enter your email</html>"}
		return page
	}}

	testController(t, tracker, 1).Run(context.Background(), Credential{Identity: "a@b.com"})

	require.Len(t, tracker.sessions, 1)
	page := tracker.sessions[0].page.(*fakePage)
	assert.Empty(t, page.screenshots)
	assert.Empty(t, page.htmlDumps)
}

func TestRunScenarioInvalidCredential(t *testing.T) {
	tracker := &sessionTracker{newPage: func() *fakePage {
		page := newFakePage()
		page.landingHTML = []string{"<html>enter your email</html>"}
		page.fillable["#inputEmail"] = true
		page.fillable["#inputPassword"] = true
		page.labelClickOK = true
		page.postHTML = "<html>error: invalid login</html>"
		return page
	}}

	result := testController(t, tracker, 3).Run(context.Background(), Credential{Identity: "a@b.com", Secret: "wrongpass"})

	assert.Equal(t, SessionResult{
		Identity: "a@b.com",
		Outcome:  ResultFailure,
		Detail:   "Login failed: credential rejection detected on page",
	}, result)
	assert.Equal(t, 1, tracker.acquires)
}
