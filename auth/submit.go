package auth

import (
	"time"

	"github.com/sirupsen/logrus"

	"freecloud-keepalive/browser"
	"freecloud-keepalive/pacing"
)

// SubmitterConfig holds the ordered selector candidates and labels the
// submitter tries. Order encodes priority: site-specific first,
// generic last.
type SubmitterConfig struct {
	IdentitySelectors []string
	SecretSelectors   []string
	SubmitSelectors   []string
	SubmitLabels      []string
	FieldTimeout      time.Duration
	SubmitTimeout     time.Duration
}

// CredentialSubmitter locates and fills credential fields, then
// submits the form through an ordered fallback chain.
type CredentialSubmitter struct {
	config SubmitterConfig
	pacer  *pacing.Pacer
	logger *logrus.Logger
}

// NewCredentialSubmitter creates a submitter.
func NewCredentialSubmitter(config SubmitterConfig, pacer *pacing.Pacer, logger *logrus.Logger) *CredentialSubmitter {
	return &CredentialSubmitter{config: config, pacer: pacer, logger: logger}
}

// Submit fills both credential fields and, if both filled, runs the
// submission chain. Completion of a strategy does not guarantee the
// server accepted anything; that is the evaluator's job.
func (cs *CredentialSubmitter) Submit(page browser.Page, cred Credential) SubmissionResult {
	var res SubmissionResult

	idSel, idOK := cs.fillFirst(page, cs.config.IdentitySelectors, cred.Identity)
	if idOK {
		cs.logger.WithField("selector", idSel).Info("Filled identity field")
	}

	pwSel, pwOK := cs.fillFirst(page, cs.config.SecretSelectors, cred.Secret)
	if pwOK {
		cs.logger.WithField("selector", pwSel).Info("Filled secret field")
	}

	if !idOK || !pwOK {
		return res
	}
	res.Filled = true

	cs.pacer.FieldPause()
	res.Submitted = cs.submit(page, pwSel)
	return res
}

// fillFirst tries each selector candidate in order and fills the first
// one that resolves to a visible element.
func (cs *CredentialSubmitter) fillFirst(page browser.Page, selectors []string, value string) (string, bool) {
	for _, sel := range selectors {
		if err := page.Fill(sel, value, cs.config.FieldTimeout); err == nil {
			return sel, true
		}
	}
	return "", false
}

// submit works through the fallback chain: labeled button, generic CSS
// submit candidates, then Enter in the secret field.
func (cs *CredentialSubmitter) submit(page browser.Page, secretSel string) bool {
	for _, label := range cs.config.SubmitLabels {
		if err := page.ClickLabel("button", label, cs.config.SubmitTimeout); err == nil {
			cs.logger.WithField("label", label).Info("Clicked labeled submit button")
			return true
		}
	}

	for _, sel := range cs.config.SubmitSelectors {
		if err := page.ClickVisible(sel, cs.config.SubmitTimeout); err == nil {
			cs.logger.WithField("selector", sel).Info("Clicked CSS submit candidate")
			return true
		}
	}

	if err := page.PressEnter(secretSel, cs.config.SubmitTimeout); err == nil {
		cs.logger.Info("Submitted with Enter key")
		return true
	}

	cs.logger.Warn("No submission strategy completed; login may not have been triggered")
	return false
}
