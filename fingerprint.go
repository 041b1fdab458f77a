package main

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// FingerprintToken is the device-token pair the order submission carries.
type FingerprintToken struct {
	DeviceID    string
	Fingerprint string
}

func (t FingerprintToken) Complete() bool {
	return t.DeviceID != "" && t.Fingerprint != ""
}

// FingerprintProvider acquires a token pair within the given budget. The
// boolean reports whether the pair is usable; acquisition failure is not an
// error, the caller falls back to whatever static values it has.
type FingerprintProvider interface {
	Acquire(ctx context.Context, session *Session, budget time.Duration) (FingerprintToken, bool)
}

// StaticFingerprintProvider hands out a fixed pair from config.
type StaticFingerprintProvider struct {
	Token FingerprintToken
}

func (p StaticFingerprintProvider) Acquire(ctx context.Context, session *Session, budget time.Duration) (FingerprintToken, bool) {
	return p.Token, p.Token.Complete()
}

// BrowserFingerprintProvider drives a headless Chrome through the storefront
// item page and reads the device-token pair the page script publishes on the
// window object. Acquisitions are serialized: one browser at a time.
type BrowserFingerprintProvider struct {
	mu sync.Mutex

	logger      Logger
	sku         string
	profilePath string
	headless    bool
}

func NewBrowserFingerprintProvider(logger Logger, sku, profilePath string, headless bool) *BrowserFingerprintProvider {
	return &BrowserFingerprintProvider{
		logger:      logger,
		sku:         sku,
		profilePath: profilePath,
		headless:    headless,
	}
}

func (p *BrowserFingerprintProvider) Acquire(ctx context.Context, session *Session, budget time.Duration) (FingerprintToken, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok, err := p.acquire(ctx, session, budget)
	if err != nil {
		p.logger.Log("browser fingerprint acquisition failed: %v", err)
		return FingerprintToken{}, false
	}
	if !tok.Complete() {
		p.logger.Log("browser fingerprint incomplete within budget")
		return FingerprintToken{}, false
	}
	return tok, true
}

func (p *BrowserFingerprintProvider) acquire(ctx context.Context, session *Session, budget time.Duration) (FingerprintToken, error) {
	// Leakless deadlocks on Windows, see go-rod/rod#853.
	useLeakless := runtime.GOOS != "windows"

	l := launcher.New().
		Leakless(useLeakless).
		Headless(p.headless)
	if p.profilePath != "" {
		l = l.UserDataDir(p.profilePath)
	}
	if chromePath, ok := launcher.LookPath(); ok {
		l = l.Bin(chromePath)
	}
	defer l.Cleanup()

	controlURL, err := l.Launch()
	if err != nil {
		return FingerprintToken{}, err
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return FingerprintToken{}, err
	}
	defer browser.Close()

	page, err := stealth.Page(browser)
	if err != nil {
		return FingerprintToken{}, err
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: session.profile.UserAgent,
	}); err != nil {
		p.logger.Log("fingerprint browser: user agent override failed: %v", err)
	}

	if err := p.installCookies(browser, session); err != nil {
		p.logger.Log("fingerprint browser: cookie install failed: %v", err)
	}

	itemURL := session.endpoints.Item + "/" + p.sku + ".html"
	if err := page.Context(ctx).Navigate(itemURL); err != nil {
		return FingerprintToken{}, err
	}

	return p.pollToken(ctx, page, budget)
}

// installCookies copies the authenticated session cookies into the browser so
// the storefront page sees a logged-in visitor.
func (p *BrowserFingerprintProvider) installCookies(browser *rod.Browser, session *Session) error {
	bundle := session.ExportCredentials()
	params := make([]*proto.NetworkCookieParam, 0, len(bundle.Cookies))
	for _, c := range bundle.Cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:   c.Name,
			Value:  c.Value,
			Domain: ".jd.com",
			Path:   "/",
		})
	}
	if len(params) == 0 {
		return nil
	}
	return browser.SetCookies(params)
}

// pollToken reads window._JdTdudfp once per second until both fields are
// present or the budget runs out.
func (p *BrowserFingerprintProvider) pollToken(ctx context.Context, page *rod.Page, budget time.Duration) (FingerprintToken, error) {
	deadline := time.Now().Add(budget)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return FingerprintToken{}, err
		}

		tok := p.readToken(page)
		if tok.Complete() {
			p.logger.Log("device token acquired: eid=%s", tok.DeviceID)
			return tok, nil
		}

		select {
		case <-ctx.Done():
			return FingerprintToken{}, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return FingerprintToken{}, nil
}

func (p *BrowserFingerprintProvider) readToken(page *rod.Page) FingerprintToken {
	var tok FingerprintToken

	res, err := page.Eval(`() => window._JdTdudfp && window._JdTdudfp.eid || ""`)
	if err != nil {
		return tok
	}
	tok.DeviceID = res.Value.Str()

	res, err = page.Eval(`() => window._JdTdudfp && window._JdTdudfp.fp || ""`)
	if err != nil {
		return tok
	}
	tok.Fingerprint = res.Value.Str()
	return tok
}
