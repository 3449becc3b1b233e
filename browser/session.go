// Package browser owns browser process acquisition and teardown.
package browser

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// ErrSessionAcquisition marks launch or connect failures. Callers
// treat it as retryable.
var ErrSessionAcquisition = errors.New("browser session acquisition failed")

// Options is the launch option set for one session.
type Options struct {
	Headless bool
	// ForceDirect overrides any ambient system proxy with a direct
	// connection. Ambient proxies (v2rayN and friends) are a primary
	// cause of spurious connection failures against this target.
	ForceDirect    bool
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	SlowMo         time.Duration
}

// Session owns one browser process and one page. It is never shared
// between attempts; every attempt acquires a fresh one.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	logger   *logrus.Logger
	release  sync.Once
}

// Acquire launches a browser and opens one page. On any failure the
// partially-built session is torn down before the error is returned.
func Acquire(opts Options, logger *logrus.Logger) (*Session, error) {
	l := launcher.New().
		Leakless(false).
		Headless(opts.Headless).
		Set("no-first-run", "true").
		Set("no-default-browser-check", "true").
		Set("disable-dev-shm-usage", "true").
		Set("disable-gpu", "true")

	if opts.ForceDirect {
		l = l.Set("no-proxy-server")
	}
	if opts.UserAgent != "" {
		l = l.Set("user-agent", opts.UserAgent)
	}
	if opts.Locale != "" {
		l = l.Set("lang", opts.Locale)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launch: %v", ErrSessionAcquisition, err)
	}

	s := &Session{launcher: l, logger: logger}

	b := rod.New().ControlURL(url)
	if opts.SlowMo > 0 {
		b = b.SlowMotion(opts.SlowMo)
	}
	if err := b.Connect(); err != nil {
		s.Release()
		return nil, fmt.Errorf("%w: connect: %v", ErrSessionAcquisition, err)
	}
	s.browser = b

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("%w: page: %v", ErrSessionAcquisition, err)
	}
	s.page = page

	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.ViewportWidth,
			Height:            opts.ViewportHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			logger.WithError(err).Warn("Failed to set viewport")
		}
	}

	logger.WithFields(logrus.Fields{
		"headless":     opts.Headless,
		"force_direct": opts.ForceDirect,
	}).Debug("Browser session acquired")

	return s, nil
}

// Page returns the session's page.
func (s *Session) Page() Page {
	return &rodPage{page: s.page}
}

// Release closes the page, browser and process. It is idempotent and
// safe on partially-initialized sessions.
func (s *Session) Release() {
	s.release.Do(func() {
		defer func() {
			if r := recover(); r != nil && s.logger != nil {
				s.logger.Warnf("Recovered during browser teardown: %v", r)
			}
		}()

		if s.page != nil {
			if err := s.page.Close(); err != nil && s.logger != nil {
				s.logger.WithError(err).Debug("Page close failed")
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil && s.logger != nil {
				s.logger.WithError(err).Debug("Browser close failed")
			}
		}
		if s.launcher != nil {
			s.launcher.Kill()
		}
	})
}
