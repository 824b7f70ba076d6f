package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Options configures the Playwright driver.
type Options struct {
	// Headless runs the browser without a visible window. Turn it off to
	// watch the bot work while debugging selectors.
	Headless bool
	// NavTimeout bounds every navigation and wait. Zero means 30s.
	NavTimeout time.Duration
}

const defaultNavTimeout = 30 * time.Second

// Launch starts Chromium via Playwright and returns a Driver bound to a
// fresh page.
//
// Browsers must be installed once beforehand:
//
//	go run github.com/playwright-community/playwright-go/cmd/playwright@latest install chromium
func Launch(opts Options) (Driver, error) {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = defaultNavTimeout
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		Viewport: &playwright.Size{
			Width:  1280,
			Height: 720,
		},
	})
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("create page: %w", err)
	}
	ms := float64(opts.NavTimeout.Milliseconds())
	page.SetDefaultTimeout(ms)
	page.SetDefaultNavigationTimeout(ms)

	return &pwDriver{pw: pw, browser: b, ctx: bctx, page: page, navTimeout: opts.NavTimeout}, nil
}

type pwDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	ctx     playwright.BrowserContext
	page    playwright.Page

	navTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// Playwright's Go binding has no context plumbing, so each operation
// checks for cancellation up front; in-flight calls are bounded by the
// page default timeout instead.
func (d *pwDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(d.navTimeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (d *pwDriver) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.page.Locator(selector).First().Click(); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

func (d *pwDriver) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.page.Locator(selector).First().Fill(value); err != nil {
		return fmt.Errorf("fill %q: %w", selector, err)
	}
	return nil
}

func (d *pwDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = d.navTimeout
	}
	err := d.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

func (d *pwDriver) Text(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s, err := d.page.Locator(selector).First().TextContent()
	if err != nil {
		return "", fmt.Errorf("text of %q: %w", selector, err)
	}
	return s, nil
}

func (d *pwDriver) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s, err := d.page.Content()
	if err != nil {
		return "", fmt.Errorf("page content: %w", err)
	}
	return s, nil
}

func (d *pwDriver) URL() string { return d.page.URL() }

func (d *pwDriver) Close() error {
	d.closeOnce.Do(func() {
		if d.page != nil {
			_ = d.page.Close()
		}
		if d.ctx != nil {
			_ = d.ctx.Close()
		}
		if d.browser != nil {
			_ = d.browser.Close()
		}
		if d.pw != nil {
			d.closeErr = d.pw.Stop()
		}
	})
	return d.closeErr
}
