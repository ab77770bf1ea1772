// internal/browser/session/persona.go
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/wanderer/internal/config"
)

// persona is the identity a session presents to pages beyond its viewport.
type persona struct {
	UserAgent string
	Locale    string
	Timezone  string
}

func personaFor(cfg config.BrowserConfig, userAgent string) persona {
	return persona{
		UserAgent: userAgent,
		Locale:    strings.TrimSpace(cfg.Locale),
		Timezone:  strings.TrimSpace(cfg.Timezone),
	}
}

// acceptLanguage builds the header value for a locale such as "en-US":
// "en-US,en;q=0.9".
func acceptLanguage(locale string) string {
	base, _, found := strings.Cut(locale, "-")
	if !found || base == "" {
		return locale
	}
	return fmt.Sprintf("%s,%s;q=0.9", locale, base)
}

// tasks returns the CDP overrides for p. Empty fields leave the browser's
// own value alone.
func (p persona) tasks() chromedp.Tasks {
	tasks := chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			if _, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriverScript).Do(ctx); err != nil {
				return fmt.Errorf("failed to inject webdriver script: %w", err)
			}
			return nil
		}),
	}
	if p.UserAgent != "" {
		ua := emulation.SetUserAgentOverride(p.UserAgent)
		if p.Locale != "" {
			ua = ua.WithAcceptLanguage(acceptLanguage(p.Locale))
		}
		tasks = append(tasks, ua)
	}
	if p.Timezone != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(p.Timezone))
	}
	if p.Locale != "" {
		tasks = append(tasks,
			emulation.SetLocaleOverride().WithLocale(p.Locale),
			network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": acceptLanguage(p.Locale)}),
		)
	}
	return tasks
}
