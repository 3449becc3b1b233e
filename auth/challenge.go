package auth

import (
	"time"

	"github.com/sirupsen/logrus"

	"freecloud-keepalive/browser"
)

// ChallengeInteractor performs best-effort interaction with an
// anti-bot verification widget. It never fails the surrounding flow:
// the challenge often resolves on its own, and an unsuccessful click
// must not abort the polling loop.
type ChallengeInteractor struct {
	frameSelectors []string
	logger         *logrus.Logger
}

// NewChallengeInteractor creates an interactor looking for frames
// matching the given selectors.
func NewChallengeInteractor(frameSelectors []string, logger *logrus.Logger) *ChallengeInteractor {
	return &ChallengeInteractor{frameSelectors: frameSelectors, logger: logger}
}

const challengeClickTimeout = 2 * time.Second

// Attempt makes at most one interaction with the verification widget.
// Flooding it with synthetic input can itself trip stricter detection,
// so the orchestrator calls this once per poll tick.
func (ci *ChallengeInteractor) Attempt(page browser.Page) {
	defer func() {
		if r := recover(); r != nil {
			ci.logger.Warnf("Challenge interaction panicked: %v", r)
		}
	}()

	for _, frameSel := range ci.frameSelectors {
		if !page.Has(frameSel) {
			continue
		}

		// The widget's control tends to sit behind an obscuring overlay,
		// so clicks are dispatched directly instead of going through
		// visibility hit-testing.
		if err := page.ClickInFrame(frameSel, "input[type='checkbox']", challengeClickTimeout); err == nil {
			ci.logger.WithField("frame", frameSel).Info("Clicked verification checkbox")
			return
		}
		if err := page.ForceClick(frameSel, challengeClickTimeout); err != nil {
			ci.logger.WithField("frame", frameSel).Infof("Challenge widget click failed: %v", err)
			return
		}
		ci.logger.WithField("frame", frameSel).Info("Clicked verification frame")
		return
	}
}
