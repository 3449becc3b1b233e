package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttemptNoFramePresent(t *testing.T) {
	interactor := NewChallengeInteractor([]string{"iframe[src*='turnstile']"}, testLogger())
	page := newFakePage()

	interactor.Attempt(page)

	assert.Empty(t, page.frameClicks)
	assert.Empty(t, page.forceClicks)
}

func TestAttemptFallsBackToFrameElementClick(t *testing.T) {
	interactor := NewChallengeInteractor([]string{"iframe[src*='turnstile']", "iframe[src*='cloudflare']"}, testLogger())
	page := newFakePage()
	page.has["iframe[src*='turnstile']"] = true

	interactor.Attempt(page)

	// The inner-checkbox click fails on this fake, so the interactor
	// falls back to clicking the frame element itself, once.
	assert.Equal(t, []string{"iframe[src*='turnstile'] input[type='checkbox']"}, page.frameClicks)
	assert.Equal(t, []string{"iframe[src*='turnstile']"}, page.forceClicks)
}

func TestAttemptStopsAfterFirstFrame(t *testing.T) {
	interactor := NewChallengeInteractor([]string{"iframe[src*='turnstile']", "iframe[src*='cloudflare']"}, testLogger())
	page := newFakePage()
	page.has["iframe[src*='turnstile']"] = true
	page.has["iframe[src*='cloudflare']"] = true

	interactor.Attempt(page)

	// One interaction per tick: the second frame selector is not touched.
	assert.Len(t, page.forceClicks, 1)
}

func TestAttemptNeverPanicsOutward(t *testing.T) {
	interactor := NewChallengeInteractor([]string{"iframe[src*='turnstile']"}, testLogger())

	assert.NotPanics(t, func() {
		interactor.Attempt(nil)
	})
}
