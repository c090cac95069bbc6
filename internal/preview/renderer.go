package preview

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

// Renderer produces the HTML a crawler should see for url.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// RodRenderer renders pages in a headless browser driven by rod.
type RodRenderer struct {
	// BinPath is a custom browser binary. Empty uses rod's default launcher,
	// which downloads a browser if none is found.
	BinPath string
	// Timeout bounds one render. Zero means no timeout beyond ctx.
	Timeout time.Duration
	// Settle is the extra wait after the network goes idle for late scripts.
	Settle time.Duration
}

// Render loads url, waits for scripts to settle and returns the full HTML.
func (r *RodRenderer) Render(ctx context.Context, url string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	logger := log.With().Str("url", url).Logger()
	start := time.Now()

	browser := rod.New().Context(ctx)
	if r.BinPath != "" {
		l := launcher.New().Bin(r.BinPath).Context(ctx)
		defer l.Cleanup()

		u, err := l.Launch()
		if err != nil {
			return "", fmt.Errorf("failed to launch browser at %s: %w", r.BinPath, err)
		}
		browser = browser.ControlURL(u)
	}

	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			logger.Debug().Err(err).Msg("closing browser")
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", fmt.Errorf("failed to create page for %s: %w", url, err)
	}

	if err := page.WaitLoad(); err != nil {
		logger.Warn().Err(err).Msg("page load event not seen, proceeding anyway")
	}

	// Network almost idle is a good indicator that SPAs finished fetching.
	page.Timeout(30 * time.Second).WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)()

	if r.Settle > 0 {
		select {
		case <-time.After(r.Settle):
		case <-ctx.Done():
			return "", fmt.Errorf("rendering %s: %w", url, ctx.Err())
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML content for %s: %w", url, err)
	}

	logger.Info().Dur("took", time.Since(start)).Int("html_length", len(html)).Msg("rendered preview")
	return html, nil
}
