// Package classify decides coarse page intent from rendered content.
// Classification is a pure function over the lowered page text and a
// couple of DOM presence signals, so it is testable without a browser.
package classify

import "strings"

// State is the coarse classification of the current page.
type State int

const (
	// StateUnknown means neither a login surface nor a challenge nor a
	// post-submit signal could be recognized.
	StateUnknown State = iota
	// StateChallengePending means an anti-bot verification layer is
	// currently interposed before the login form.
	StateChallengePending
	// StateLoginFormReady means the login form has been reached.
	StateLoginFormReady
	// StateAuthenticatedSuccess means a post-login surface was reached.
	StateAuthenticatedSuccess
	// StateAuthenticationFailed means an explicit credential rejection
	// was observed.
	StateAuthenticationFailed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateChallengePending:
		return "challenge-pending"
	case StateLoginFormReady:
		return "login-form-ready"
	case StateAuthenticatedSuccess:
		return "authenticated"
	case StateAuthenticationFailed:
		return "authentication-failed"
	default:
		return "unknown"
	}
}

// Snapshot captures the signals one classification reads. HTML is the
// full rendered content; ChallengeFrame reports whether an embedded
// verification frame is present in the DOM.
type Snapshot struct {
	HTML           string
	ChallengeFrame bool
}

// Indicators holds the phrase sets classification matches against.
// All matching is lower-cased substring membership; ordering inside a
// set is immaterial.
type Indicators struct {
	Login       []string
	Challenge   []string
	Success     []string
	SuccessURLs []string
	Failure     []string
}

// Classifier classifies page snapshots against configured indicator
// sets.
type Classifier struct {
	ind Indicators
}

// New creates a Classifier. Indicator phrases are lowered once up
// front.
func New(ind Indicators) *Classifier {
	return &Classifier{ind: Indicators{
		Login:       lowerAll(ind.Login),
		Challenge:   lowerAll(ind.Challenge),
		Success:     lowerAll(ind.Success),
		SuccessURLs: lowerAll(ind.SuccessURLs),
		Failure:     lowerAll(ind.Failure),
	}}
}

// ClassifyLanding classifies the pre-login page. Login indicators win
// over challenge indicators: once the form is visible the challenge is
// behind us regardless of leftover challenge markup.
func (c *Classifier) ClassifyLanding(snap Snapshot) State {
	html := strings.ToLower(snap.HTML)

	if matchAny(html, c.ind.Login) {
		return StateLoginFormReady
	}
	if snap.ChallengeFrame || matchAny(html, c.ind.Challenge) {
		return StateChallengePending
	}
	return StateUnknown
}

// ClassifyOutcome classifies the post-submit page from its content and
// current URL. Success signals take priority over failure signals.
func (c *Classifier) ClassifyOutcome(html, url string) State {
	html = strings.ToLower(html)
	url = strings.ToLower(url)

	if matchAny(html, c.ind.Success) || matchAny(url, c.ind.SuccessURLs) {
		return StateAuthenticatedSuccess
	}
	if matchAny(html, c.ind.Failure) {
		return StateAuthenticationFailed
	}
	return StateUnknown
}

func matchAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
