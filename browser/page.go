package browser

import (
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// Page is the capability surface the login flow needs from a rendered
// page. Keeping it narrow lets the orchestration layer run against a
// fake page in tests.
type Page interface {
	// Navigate opens the URL, bounded by timeout.
	Navigate(url string, timeout time.Duration) error
	// WaitSettle waits for the page load to settle, tolerating timeout.
	WaitSettle(timeout time.Duration)
	// HTML returns the full rendered content.
	HTML() (string, error)
	// URL returns the current page URL, empty if unavailable.
	URL() string
	// Has reports whether a selector currently resolves, without waiting.
	Has(selector string) bool
	// Fill locates a visible element by selector and types the value.
	Fill(selector, value string, timeout time.Duration) error
	// ClickLabel clicks the first element matching selector whose text
	// matches the label, case-insensitively.
	ClickLabel(selector, label string, timeout time.Duration) error
	// ClickVisible clicks the first visible element for the selector.
	ClickVisible(selector string, timeout time.Duration) error
	// ForceClick dispatches a click directly on the element, bypassing
	// visibility and overlay hit-testing.
	ForceClick(selector string, timeout time.Duration) error
	// ClickInFrame force-clicks an element inside an embedded frame.
	ClickInFrame(frameSelector, innerSelector string, timeout time.Duration) error
	// PressEnter sends the Enter key to the element.
	PressEnter(selector string, timeout time.Duration) error
	// Screenshot writes a full-page screenshot to path.
	Screenshot(path string) error
	// SaveHTML writes the full rendered content to path.
	SaveHTML(path string) error
}

// rodPage adapts a rod page to the Page interface. Rod panics inside
// some query paths when the target disappears mid-call, so every
// method converts panics to errors.
type rodPage struct {
	page *rod.Page
}

func (p *rodPage) Navigate(url string, timeout time.Duration) (err error) {
	defer recoverToError(&err)
	return p.page.Timeout(timeout).Navigate(url)
}

func (p *rodPage) WaitSettle(timeout time.Duration) {
	defer func() { recover() }()
	// Load timeouts are tolerated; the poll loop re-reads content anyway.
	_ = p.page.Timeout(timeout).WaitLoad()
}

func (p *rodPage) HTML() (html string, err error) {
	defer recoverToError(&err)
	return p.page.HTML()
}

func (p *rodPage) URL() (url string) {
	defer func() { recover() }()
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) Has(selector string) (found bool) {
	defer func() { recover() }()
	found, _, err := p.page.Has(selector)
	if err != nil {
		return false
	}
	return found
}

func (p *rodPage) Fill(selector, value string, timeout time.Duration) (err error) {
	defer recoverToError(&err)
	el, err := p.page.Timeout(timeout).Element(selector)
	if err != nil {
		return err
	}
	visible, err := el.Visible()
	if err != nil {
		return err
	}
	if !visible {
		return fmt.Errorf("element %s is not visible", selector)
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}

func (p *rodPage) ClickLabel(selector, label string, timeout time.Duration) (err error) {
	defer recoverToError(&err)
	el, err := p.page.Timeout(timeout).ElementR(selector, "/"+label+"/i")
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) ClickVisible(selector string, timeout time.Duration) (err error) {
	defer recoverToError(&err)
	el, err := p.page.Timeout(timeout).Element(selector)
	if err != nil {
		return err
	}
	visible, err := el.Visible()
	if err != nil {
		return err
	}
	if !visible {
		return fmt.Errorf("element %s is not visible", selector)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) ForceClick(selector string, timeout time.Duration) (err error) {
	defer recoverToError(&err)
	el, err := p.page.Timeout(timeout).Element(selector)
	if err != nil {
		return err
	}
	_, err = el.Eval(`() => this.click()`)
	return err
}

func (p *rodPage) ClickInFrame(frameSelector, innerSelector string, timeout time.Duration) (err error) {
	defer recoverToError(&err)
	frameEl, err := p.page.Timeout(timeout).Element(frameSelector)
	if err != nil {
		return err
	}
	frame, err := frameEl.Frame()
	if err != nil {
		return err
	}
	el, err := frame.Timeout(timeout).Element(innerSelector)
	if err != nil {
		return err
	}
	_, err = el.Eval(`() => this.click()`)
	return err
}

func (p *rodPage) PressEnter(selector string, timeout time.Duration) (err error) {
	defer recoverToError(&err)
	el, err := p.page.Timeout(timeout).Element(selector)
	if err != nil {
		return err
	}
	return el.Type(input.Enter)
}

func (p *rodPage) Screenshot(path string) (err error) {
	defer recoverToError(&err)
	data, err := p.page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (p *rodPage) SaveHTML(path string) (err error) {
	defer recoverToError(&err)
	html, err := p.page.HTML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(html), 0644)
}

func recoverToError(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("browser call panicked: %v", r)
	}
}
