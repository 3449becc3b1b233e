package auth

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"freecloud-keepalive/browser"
)

// DiagnosticArtifact records where a failing attempt's forensics were
// written. Write-only: nothing in the flow reads these back.
type DiagnosticArtifact struct {
	ScreenshotPath string
	HTMLPath       string
	Timestamp      time.Time
}

// captureDiagnostics saves a full-page screenshot and an HTML dump for
// postmortem. Each capture is independently best-effort: failing one
// never prevents the other, and neither failure affects the retry
// decision.
func captureDiagnostics(page browser.Page, dir, identity string, logger *logrus.Logger) DiagnosticArtifact {
	now := time.Now().UTC()
	stamp := now.Format("20060102T150405Z")
	name := sanitizeIdentity(identity)

	artifact := DiagnosticArtifact{Timestamp: now}

	shot := filepath.Join(dir, fmt.Sprintf("screenshot_%s_%s.png", name, stamp))
	if err := page.Screenshot(shot); err != nil {
		logger.WithError(err).Warn("Failed to save screenshot")
	} else {
		artifact.ScreenshotPath = shot
		logger.WithField("path", shot).Info("Saved screenshot")
	}

	dump := filepath.Join(dir, fmt.Sprintf("page_%s_%s.html", name, stamp))
	if err := page.SaveHTML(dump); err != nil {
		logger.WithError(err).Warn("Failed to save page HTML")
	} else {
		artifact.HTMLPath = dump
		logger.WithField("path", dump).Info("Saved page HTML")
	}

	return artifact
}

// sanitizeIdentity makes an account identity safe for file names.
func sanitizeIdentity(identity string) string {
	replacer := strings.NewReplacer("@", "_", "/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(identity)
}
