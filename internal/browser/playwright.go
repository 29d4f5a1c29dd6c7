package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

// PlaywrightLauncher starts Chromium through playwright-go.
type PlaywrightLauncher struct {
	Headless    bool
	CookiesPath string
	Log         *logrus.Entry
}

func (l *PlaywrightLauncher) Launch(ctx context.Context, id Identity) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("%w: could not start playwright: %v", ErrNoSession, err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.Headless),
		Args:     LaunchArgs,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("%w: could not launch chromium: %v", ErrNoSession, err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(id.UserAgent),
		Viewport: &playwright.Size{
			Width:  id.Viewport.Width,
			Height: id.Viewport.Height,
		},
		Locale: playwright.String("en-US"),
		ExtraHttpHeaders: map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
		},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("%w: could not create context: %v", ErrNoSession, err)
	}

	if err := browserCtx.AddInitScript(playwright.Script{Content: playwright.String(StealthScript)}); err != nil {
		l.log().Warnf("⚠️ Failed to add stealth script: %v", err)
	}

	//cookies are optional
	if l.CookiesPath != "" {
		cookies, err := LoadCookies(l.CookiesPath)
		if err != nil {
			l.log().Warnf("⚠️ Could not load cookies from %s: %v. Continuing.", l.CookiesPath, err)
		} else if err := browserCtx.AddCookies(cookies); err != nil {
			l.log().Warnf("⚠️ Could not add cookies: %v", err)
		} else {
			l.log().Infof("🍪 Loaded %d cookies", len(cookies))
		}
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		_ = browserCtx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("%w: could not open page: %v", ErrNoSession, err)
	}

	return &pwPage{pw: pw, browser: browser, ctx: browserCtx, page: page}, nil
}

func (l *PlaywrightLauncher) log() *logrus.Entry {
	if l.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return l.Log
}

type pwPage struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	ctx     playwright.BrowserContext
	page    playwright.Page
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

func (p *pwPage) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   ms(timeout),
	})
	return classify(err)
}

func (p *pwPage) WaitReady(timeout time.Duration) error {
	_, err := p.page.WaitForFunction(`() => document.readyState === "complete"`, nil, playwright.PageWaitForFunctionOptions{
		Timeout: ms(timeout),
	})
	return classify(err)
}

func (p *pwPage) Content() (string, error) {
	html, err := p.page.Content()
	return html, classify(err)
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) WaitForSelector(selector string, timeout time.Duration) (Element, error) {
	handle, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: ms(timeout),
	})
	if err != nil {
		return nil, classify(err)
	}
	if handle == nil {
		return nil, fmt.Errorf("%w: %s", ErrTimeout, selector)
	}
	return &pwElement{handle: handle}, nil
}

func (p *pwPage) QueryAll(selector string) ([]Element, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, classify(err)
	}
	out := make([]Element, 0, len(handles))
	for _, h := range handles {
		out = append(out, &pwElement{handle: h})
	}
	return out, nil
}

func (p *pwPage) Evaluate(script string) error {
	_, err := p.page.Evaluate(script)
	return classify(err)
}

func (p *pwPage) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return classify(err)
}

// Close tears down page, context, browser and the driver process. Every
// step runs even when an earlier one fails.
func (p *pwPage) Close() error {
	var errs []error
	if err := p.page.Close(); err != nil && !isClosed(err) {
		errs = append(errs, err)
	}
	if err := p.ctx.Close(); err != nil && !isClosed(err) {
		errs = append(errs, err)
	}
	if err := p.browser.Close(); err != nil && !isClosed(err) {
		errs = append(errs, err)
	}
	if err := p.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type pwElement struct {
	handle playwright.ElementHandle
}

func (e *pwElement) Clear() error {
	return classify(e.handle.Fill(""))
}

func (e *pwElement) Fill(value string) error {
	return classify(e.handle.Fill(value))
}

func (e *pwElement) Press(key string) error {
	return classify(e.handle.Press(key))
}

func (e *pwElement) Click(timeout time.Duration) error {
	return classify(e.handle.Click(playwright.ElementHandleClickOptions{
		Timeout: ms(timeout),
	}))
}

func (e *pwElement) ClickJS() error {
	_, err := e.handle.Evaluate("el => el.click()")
	return classify(err)
}

func (e *pwElement) ScrollIntoView() error {
	return classify(e.handle.ScrollIntoViewIfNeeded())
}

func (e *pwElement) Attribute(name string) (string, error) {
	v, err := e.handle.GetAttribute(name)
	return v, classify(err)
}

func (e *pwElement) Visible() (bool, error) {
	v, err := e.handle.IsVisible()
	return v, classify(err)
}

func (e *pwElement) Enabled() (bool, error) {
	v, err := e.handle.IsEnabled()
	return v, classify(err)
}

func (e *pwElement) Attached() (bool, error) {
	res, err := e.handle.Evaluate("el => el.isConnected")
	if err != nil {
		return false, classify(err)
	}
	connected, _ := res.(bool)
	return connected, nil
}

// classify maps playwright failures onto the package sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case isClosed(err):
		return fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case strings.Contains(msg, "not attached to the dom"), strings.Contains(msg, "element is detached"):
		return fmt.Errorf("%w: %v", ErrStale, err)
	}
	return err
}

func isClosed(err error) bool {
	if errors.Is(err, playwright.ErrTargetClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "has been closed") || strings.Contains(msg, "browser closed")
}
