package auth

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"freecloud-keepalive/browser"
	"freecloud-keepalive/classify"
)

// Suspension countdown as rendered on the account page, e.g. "13d 5h 42m 7s".
var countdownPattern = regexp.MustCompile(`(\d+)d\s+(\d+)h\s+(\d+)m\s+(\d+)s`)

// OutcomeEvaluator classifies the post-submit page as success,
// deterministic failure, or ambiguous.
type OutcomeEvaluator struct {
	classifier *classify.Classifier
	logger     *logrus.Logger
}

// NewOutcomeEvaluator creates an evaluator over the given classifier.
func NewOutcomeEvaluator(classifier *classify.Classifier, logger *logrus.Logger) *OutcomeEvaluator {
	return &OutcomeEvaluator{classifier: classifier, logger: logger}
}

// Evaluate inspects the current page. An explicit rejection message is
// terminal: retrying the same credential cannot change a deterministic
// refusal. Anything without a clear signal either way is retryable.
func (oe *OutcomeEvaluator) Evaluate(page browser.Page) AttemptOutcome {
	html, err := page.HTML()
	if err != nil {
		oe.logger.WithError(err).Warn("Could not read page content for evaluation")
		html = ""
	}
	url := page.URL()

	switch oe.classifier.ClassifyOutcome(html, url) {
	case classify.StateAuthenticatedSuccess:
		hint, found := ExtractCountdown(html)
		if found {
			oe.logger.WithField("expiry", hint.String()).Info("Suspension countdown detected")
		}
		return successOutcome(hint)
	case classify.StateAuthenticationFailed:
		return terminalFailure("Login failed: credential rejection detected on page")
	default:
		return retryableFailure("login-unknown-state")
	}
}

// ExtractCountdown finds a "NNd NNh NNm NNs" countdown in the page
// content and parses it. Extraction is best-effort; absence never
// downgrades a success.
func ExtractCountdown(html string) (time.Duration, bool) {
	m := countdownPattern.FindStringSubmatch(html)
	if m == nil {
		return 0, false
	}
	d, err := parseCountdown(m[1], m[2], m[3], m[4])
	if err != nil {
		return 0, false
	}
	return d, true
}

func parseCountdown(days, hours, mins, secs string) (time.Duration, error) {
	var total time.Duration
	for _, part := range []struct {
		value string
		unit  time.Duration
	}{
		{days, 24 * time.Hour},
		{hours, time.Hour},
		{mins, time.Minute},
		{secs, time.Second},
	} {
		n, err := strconv.Atoi(part.value)
		if err != nil {
			return 0, fmt.Errorf("bad countdown segment %q: %w", part.value, err)
		}
		total += time.Duration(n) * part.unit
	}
	return total, nil
}
