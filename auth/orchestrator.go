package auth

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"freecloud-keepalive/browser"
	"freecloud-keepalive/classify"
)

// Timeouts bound each phase of one attempt. Only the polling window
// terminates the attempt; the other phases log and move on.
type Timeouts struct {
	Navigation      time.Duration
	Settle          time.Duration
	PollInterval    time.Duration
	PollWindow      time.Duration
	PostSubmit      time.Duration
	PostSubmitDelay time.Duration
}

// OrchestratorConfig configures one attempt's flow.
type OrchestratorConfig struct {
	LoginURL        string
	Timeouts        Timeouts
	ChallengeFrames []string
}

// AttemptOrchestrator drives one login attempt end to end:
// navigate, poll for the login surface (clearing the challenge layer
// if one appears), fill, submit, evaluate.
type AttemptOrchestrator struct {
	config     OrchestratorConfig
	classifier *classify.Classifier
	interactor *ChallengeInteractor
	submitter  *CredentialSubmitter
	evaluator  *OutcomeEvaluator
	logger     *logrus.Logger
}

// NewAttemptOrchestrator wires an orchestrator from its collaborators.
func NewAttemptOrchestrator(
	config OrchestratorConfig,
	classifier *classify.Classifier,
	interactor *ChallengeInteractor,
	submitter *CredentialSubmitter,
	evaluator *OutcomeEvaluator,
	logger *logrus.Logger,
) *AttemptOrchestrator {
	return &AttemptOrchestrator{
		config:     config,
		classifier: classifier,
		interactor: interactor,
		submitter:  submitter,
		evaluator:  evaluator,
		logger:     logger,
	}
}

// Run performs one attempt against the page. Every internal error is
// mapped onto an AttemptOutcome; nothing propagates as a fault.
func (o *AttemptOrchestrator) Run(page browser.Page, cred Credential) (outcome AttemptOutcome) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Errorf("Attempt panicked: %v", r)
			outcome = retryableFailure(fmt.Sprintf("attempt panicked: %v", r))
		}
	}()

	if err := page.Navigate(o.config.LoginURL, o.config.Timeouts.Navigation); err != nil {
		return retryableFailure(fmt.Sprintf("navigation failed: %v", err))
	}

	// The challenge layer may let the page settle on its own; a settle
	// timeout here just means the poll loop takes over.
	page.WaitSettle(o.config.Timeouts.Settle)

	if err := o.pollForLogin(page); err != nil {
		return retryableFailure(err.Error())
	}

	if !cred.Complete() {
		o.logger.WithField("account", cred.Identity).Info("Keep-alive goal met: login surface reached, no credential pair to submit")
		return successOutcome(0)
	}

	sub := o.submitter.Submit(page, cred)
	if !sub.Filled {
		// No automatable field. Reaching the login surface alone still
		// resets the account's inactivity clock, which is the goal.
		o.logger.WithField("account", cred.Identity).Info("Keep-alive goal met: login surface reached, fields not automatable")
		return successOutcome(0)
	}

	page.WaitSettle(o.config.Timeouts.PostSubmit)
	if o.config.Timeouts.PostSubmitDelay > 0 {
		time.Sleep(o.config.Timeouts.PostSubmitDelay)
	}

	return o.evaluator.Evaluate(page)
}

// pollForLogin polls the page at a fixed interval until the login form
// is reached or the window elapses. While the challenge layer is up,
// the interactor gets one best-effort shot per tick.
func (o *AttemptOrchestrator) pollForLogin(page browser.Page) error {
	deadline := time.Now().Add(o.config.Timeouts.PollWindow)
	sawChallenge := false

	for {
		state := o.classifier.ClassifyLanding(o.snapshot(page))
		switch state {
		case classify.StateLoginFormReady:
			if sawChallenge {
				o.logger.Info("Challenge cleared; login page reached")
			} else {
				o.logger.Info("Login page reached directly, no challenge observed")
			}
			return nil
		case classify.StateChallengePending:
			if !sawChallenge {
				sawChallenge = true
				o.logger.Warnf("Verification challenge detected; waiting up to %s for it to clear", o.config.Timeouts.PollWindow)
			}
			o.interactor.Attempt(page)
		default:
			o.logger.Debug("Page state unknown, continuing to poll")
		}

		if !time.Now().Before(deadline) {
			break
		}
		time.Sleep(o.config.Timeouts.PollInterval)
	}

	if sawChallenge {
		return ErrChallengeTimeout
	}
	return ErrNoLoginSurface
}

func (o *AttemptOrchestrator) snapshot(page browser.Page) classify.Snapshot {
	html, err := page.HTML()
	if err != nil {
		html = ""
	}
	frame := false
	for _, sel := range o.config.ChallengeFrames {
		if page.Has(sel) {
			frame = true
			break
		}
	}
	return classify.Snapshot{HTML: html, ChallengeFrame: frame}
}
