// internal/browser/session/allocator.go
package session

import (
	"runtime"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/wanderer/api/schemas"
	"github.com/xkilldash9x/wanderer/internal/config"
)

// buildAllocatorOptions assembles the Chrome launch flags for one session.
func buildAllocatorOptions(cfg config.BrowserConfig, userAgent string, viewport schemas.Viewport) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	// A false boolean flag is dropped from the command line, which removes
	// the default enable-automation switch.
	opts = append(opts,
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("ignore-certificate-errors", cfg.IgnoreTLSErrors),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("hide-scrollbars", false),
		chromedp.WindowSize(int(viewport.Width), int(viewport.Height)),
	)

	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.LaunchTimeout > 0 {
		opts = append(opts, chromedp.WSURLReadTimeout(cfg.LaunchTimeout))
	}

	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	// Containers rarely allow the sandbox.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}

// resolveViewport merges a per-session override onto the configured viewport.
func resolveViewport(cfg config.ViewportConfig, override *schemas.Viewport) schemas.Viewport {
	vp := schemas.Viewport{
		Width:      cfg.Width,
		Height:     cfg.Height,
		PixelRatio: cfg.PixelRatio,
		Mobile:     cfg.Mobile,
	}
	if override != nil {
		if override.Width > 0 {
			vp.Width = override.Width
		}
		if override.Height > 0 {
			vp.Height = override.Height
		}
		if override.PixelRatio > 0 {
			vp.PixelRatio = override.PixelRatio
		}
		vp.Mobile = vp.Mobile || override.Mobile
	}
	if vp.Width <= 0 {
		vp.Width = 1366
	}
	if vp.Height <= 0 {
		vp.Height = 768
	}
	if vp.PixelRatio <= 0 {
		vp.PixelRatio = 1
	}
	return vp
}
