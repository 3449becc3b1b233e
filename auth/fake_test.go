package auth

import (
	"errors"
	"time"

	"freecloud-keepalive/browser"
)

// fakePage is a scriptable stand-in for a rendered page. Landing
// content is served per HTML() call until a submission strategy
// completes, after which postHTML is served.
type fakePage struct {
	landingHTML []string
	postHTML    string
	currentURL  string

	has      map[string]bool
	fillable map[string]bool

	labelClickOK bool
	cssClickOK   map[string]bool
	enterOK      bool

	navErr        error
	panicOnHTML   bool
	screenshotErr error
	saveHTMLErr   error

	submitted    bool
	navigations  []string
	fills        map[string]string
	labelClicks  []string
	cssClicks    []string
	forceClicks  []string
	frameClicks  []string
	enterPresses []string
	screenshots  []string
	htmlDumps    []string
}

func newFakePage() *fakePage {
	return &fakePage{
		has:        map[string]bool{},
		fillable:   map[string]bool{},
		cssClickOK: map[string]bool{},
		fills:      map[string]string{},
	}
}

func (p *fakePage) Navigate(url string, _ time.Duration) error {
	p.navigations = append(p.navigations, url)
	return p.navErr
}

func (p *fakePage) WaitSettle(_ time.Duration) {}

func (p *fakePage) HTML() (string, error) {
	if p.panicOnHTML {
		panic("target crashed")
	}
	if p.submitted {
		return p.postHTML, nil
	}
	if len(p.landingHTML) == 0 {
		return "", nil
	}
	html := p.landingHTML[0]
	if len(p.landingHTML) > 1 {
		p.landingHTML = p.landingHTML[1:]
	}
	return html, nil
}

func (p *fakePage) URL() string { return p.currentURL }

func (p *fakePage) Has(selector string) bool { return p.has[selector] }

func (p *fakePage) Fill(selector, value string, _ time.Duration) error {
	if !p.fillable[selector] {
		return errors.New("element not found")
	}
	p.fills[selector] = value
	return nil
}

func (p *fakePage) ClickLabel(selector, label string, _ time.Duration) error {
	p.labelClicks = append(p.labelClicks, label)
	if !p.labelClickOK {
		return errors.New("no button with matching label")
	}
	p.submitted = true
	return nil
}

func (p *fakePage) ClickVisible(selector string, _ time.Duration) error {
	p.cssClicks = append(p.cssClicks, selector)
	if !p.cssClickOK[selector] {
		return errors.New("element not visible")
	}
	p.submitted = true
	return nil
}

func (p *fakePage) ForceClick(selector string, _ time.Duration) error {
	p.forceClicks = append(p.forceClicks, selector)
	return nil
}

func (p *fakePage) ClickInFrame(frameSelector, innerSelector string, _ time.Duration) error {
	p.frameClicks = append(p.frameClicks, frameSelector+" "+innerSelector)
	return errors.New("no checkbox in frame")
}

func (p *fakePage) PressEnter(selector string, _ time.Duration) error {
	p.enterPresses = append(p.enterPresses, selector)
	if !p.enterOK {
		return errors.New("element not found")
	}
	p.submitted = true
	return nil
}

func (p *fakePage) Screenshot(path string) error {
	p.screenshots = append(p.screenshots, path)
	return p.screenshotErr
}

func (p *fakePage) SaveHTML(path string) error {
	p.htmlDumps = append(p.htmlDumps, path)
	return p.saveHTMLErr
}

var _ browser.Page = (*fakePage)(nil)

// fakeSession counts releases so tests can assert the
// acquire-once/release-once invariant.
type fakeSession struct {
	page     browser.Page
	released int
}

func (s *fakeSession) Page() browser.Page { return s.page }
func (s *fakeSession) Release()           { s.released++ }
