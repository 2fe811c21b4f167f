// Package browser owns the Playwright session a verification run drives:
// one driver process, one browser, one context and one page.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/uiverify/internal/checklist"
	"github.com/kuitang/uiverify/internal/errs"
	"github.com/kuitang/uiverify/internal/logutil"
	"github.com/kuitang/uiverify/internal/obs"
)

// Supported browser engines.
const (
	Chromium = "chromium"
	Firefox  = "firefox"
	WebKit   = "webkit"
)

const consolePreviewChars = 500

// Options controls how the session is launched.
type Options struct {
	Engine         string
	Headless       bool
	Width          int
	Height         int
	SlowMo         time.Duration
	Install        bool
	ForwardConsole bool
}

// DefaultOptions returns a headless Chromium with a 1280x720 viewport.
func DefaultOptions() Options {
	return Options{
		Engine:   Chromium,
		Headless: true,
		Width:    1280,
		Height:   720,
	}
}

// Validate reports unusable options.
func (o Options) Validate() error {
	switch o.Engine {
	case Chromium, Firefox, WebKit:
	default:
		return errs.New(errs.InvalidArgument, fmt.Sprintf("unknown browser engine %q (want chromium, firefox or webkit)", o.Engine))
	}
	if o.Width <= 0 || o.Height <= 0 {
		return errs.New(errs.InvalidArgument, fmt.Sprintf("viewport %dx%d must be positive", o.Width, o.Height))
	}
	if o.SlowMo < 0 {
		return errs.New(errs.InvalidArgument, "slow-mo must not be negative")
	}
	return nil
}

// Session is a launched browser with a single page. Close releases the
// browser and the driver; it is safe to call more than once.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
	log     *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Launch starts Playwright, the browser, one context and one page. Whatever
// was started is torn down again if a later stage fails.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.Canceled, "launch browser", err)
	}
	log := obs.From(ctx).With("pkg", "browser", "engine", opts.Engine)

	if opts.Install {
		log.Info("installing playwright driver and browser")
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{opts.Engine}}); err != nil {
			return nil, errs.Wrap(errs.Launch, "install playwright", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, errs.Wrap(errs.Launch, "start playwright", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.SlowMo > 0 {
		launchOpts.SlowMo = playwright.Float(float64(opts.SlowMo.Milliseconds()))
	}
	browser, err := browserType(pw, opts.Engine).Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, errs.Wrap(errs.Launch, "launch "+opts.Engine, err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: opts.Width, Height: opts.Height},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, errs.Wrap(errs.Launch, "create browser context", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, errs.Wrap(errs.Launch, "create page", err)
	}

	s := &Session{
		pw:      pw,
		browser: browser,
		bctx:    bctx,
		page:    page,
		log:     log,
	}
	if opts.ForwardConsole {
		s.forwardConsole()
	}
	log.Debug("browser session started", "headless", opts.Headless, "viewport", fmt.Sprintf("%dx%d", opts.Width, opts.Height))
	return s, nil
}

func browserType(pw *playwright.Playwright, engine string) playwright.BrowserType {
	switch engine {
	case Firefox:
		return pw.Firefox
	case WebKit:
		return pw.WebKit
	default:
		return pw.Chromium
	}
}

func (s *Session) forwardConsole() {
	s.page.OnConsole(func(msg playwright.ConsoleMessage) {
		s.log.Info("browser console", "type", msg.Type(), "text", logutil.TruncateForLog(msg.Text(), consolePreviewChars))
	})
	s.page.OnPageError(func(err error) {
		s.log.Warn("browser error", "error", logutil.TruncateForLog(err.Error(), consolePreviewChars))
	})
}

// Goto navigates the page and waits for the load event.
func (s *Session) Goto(url string, timeout time.Duration) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   millis(timeout),
	})
	if err != nil {
		return errs.Wrap(errs.Navigation, "navigate to "+url, err)
	}
	return nil
}

// WaitFor blocks until the first element matching q is visible.
func (s *Session) WaitFor(q checklist.Query, timeout time.Duration) error {
	err := s.locate(q).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: millis(timeout),
	})
	return classify(errs.Interaction, "wait for "+q.String(), err)
}

// IsVisible reports whether the first element matching q is visible now.
func (s *Session) IsVisible(q checklist.Query) (bool, error) {
	visible, err := s.locate(q).First().IsVisible()
	if err != nil {
		return false, classify(errs.Interaction, "check visibility of "+q.String(), err)
	}
	return visible, nil
}

// Hover moves the pointer over the element.
func (s *Session) Hover(q checklist.Query, timeout time.Duration) error {
	err := s.locate(q).Hover(playwright.LocatorHoverOptions{Timeout: millis(timeout)})
	return classify(errs.Interaction, "hover "+q.String(), err)
}

// Click clicks the element. Force skips actionability checks, which is
// how hover-revealed controls are reached.
func (s *Session) Click(q checklist.Query, timeout time.Duration, force bool) error {
	err := s.locate(q).Click(playwright.LocatorClickOptions{
		Timeout: millis(timeout),
		Force:   playwright.Bool(force),
	})
	return classify(errs.Interaction, "click "+q.String(), err)
}

// Fill replaces the element's value.
func (s *Session) Fill(q checklist.Query, value string, timeout time.Duration) error {
	err := s.locate(q).Fill(value, playwright.LocatorFillOptions{Timeout: millis(timeout)})
	return classify(errs.Interaction, "fill "+q.String(), err)
}

// Press sends a key press to the element.
func (s *Session) Press(q checklist.Query, key string, timeout time.Duration) error {
	err := s.locate(q).Press(key, playwright.LocatorPressOptions{Timeout: millis(timeout)})
	return classify(errs.Interaction, "press "+key+" on "+q.String(), err)
}

// Screenshot captures the page as PNG.
func (s *Session) Screenshot(fullPage bool) ([]byte, error) {
	data, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, errs.Wrap(errs.Artifact, "take screenshot", err)
	}
	return data, nil
}

// URL returns the page's current URL.
func (s *Session) URL() string {
	return s.page.URL()
}

// Close closes the browser and stops the driver. Later calls return the
// result of the first.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var closeErrs []error
		if err := s.bctx.Close(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
			closeErrs = append(closeErrs, fmt.Errorf("close context: %w", err))
		}
		if err := s.browser.Close(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
			closeErrs = append(closeErrs, fmt.Errorf("close browser: %w", err))
		}
		if err := s.pw.Stop(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("stop playwright: %w", err))
		}
		s.closeErr = errors.Join(closeErrs...)
		s.log.Debug("browser session closed", "error", s.closeErr)
	})
	return s.closeErr
}

// locate resolves q against the page, or against its parent when scoped.
func (s *Session) locate(q checklist.Query) playwright.Locator {
	var loc playwright.Locator
	if q.Within != nil {
		parent := s.locate(*q.Within)
		switch {
		case q.Role != "":
			opts := playwright.LocatorGetByRoleOptions{}
			if q.Name != "" {
				opts.Name = q.Name
			}
			loc = parent.GetByRole(playwright.AriaRole(q.Role), opts)
		case q.Text != "":
			loc = parent.GetByText(q.Text)
		default:
			loc = parent.Locator(q.Selector)
		}
	} else {
		switch {
		case q.Role != "":
			opts := playwright.PageGetByRoleOptions{}
			if q.Name != "" {
				opts.Name = q.Name
			}
			loc = s.page.GetByRole(playwright.AriaRole(q.Role), opts)
		case q.Text != "":
			loc = s.page.GetByText(q.Text)
		default:
			loc = s.page.Locator(q.Selector)
		}
	}
	if q.HasText != "" {
		loc = loc.Filter(playwright.LocatorFilterOptions{HasText: q.HasText})
	}
	if q.First {
		loc = loc.First()
	}
	return loc
}

// classify codes Playwright timeouts as errs.Timeout and everything else
// with the fallback code.
func classify(fallback errs.Code, message string, err error) error {
	if err == nil {
		return nil
	}
	if isTimeout(err) {
		return errs.Wrap(errs.Timeout, message, err)
	}
	return errs.Wrap(fallback, message, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, playwright.ErrTimeout) {
		return true
	}
	// Older drivers only report the TimeoutError name in the message.
	return strings.Contains(err.Error(), "Timeout") && strings.Contains(err.Error(), "exceeded")
}

func millis(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d.Milliseconds()))
}
