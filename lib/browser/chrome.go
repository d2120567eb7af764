package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
)

type ChromeOptions struct {
	// DownloadDir is created if absent, it is passed to the browser as an
	// absolute path.
	DownloadDir string
	Headless    bool
	UserAgent   string
	// ExecPath overrides the chrome binary, empty uses chromedp's lookup.
	ExecPath string
}

// Chrome is a Session backed by a chromedp controlled Chrome instance.
type Chrome struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

func NewChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	downloadDir, err := filepath.Abs(opts.DownloadDir)
	if err != nil {
		return nil, err
	}
	err = os.MkdirAll(downloadDir, 0777)
	if err != nil {
		return nil, err
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(1366, 900),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(
		allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			slog.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
	)

	c := &Chrome{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}

	// the first Run starts the browser
	err = chromedp.Run(
		tabCtx,
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(downloadDir).
			WithEventsEnabled(true),
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	slog.Info("browser started", "download_dir", downloadDir, "headless", opts.Headless)
	return c, nil
}

// run executes actions on the tab while honoring the deadline and
// cancellation of the caller's ctx.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	if c.ctx.Err() != nil {
		return ErrSessionClosed
	}

	tabCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(tabCtx, actions...)
	if err == nil {
		return nil
	}
	if c.ctx.Err() != nil {
		return errors.Join(ErrSessionClosed, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) HTML(ctx context.Context) (string, error) {
	var out string
	err := c.run(ctx, chromedp.OuterHTML("html", &out, chromedp.ByQuery))
	return out, err
}

func (c *Chrome) Click(ctx context.Context, sel Selector) error {
	opt := chromedp.ByQuery
	if sel.By == ByXPath {
		opt = chromedp.BySearch
	}
	err := c.run(ctx, chromedp.Click(sel.Value, opt))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrNotFound, sel)
	}
	return err
}

func (c *Chrome) Close() error {
	c.cancelTab()
	c.cancelAlloc()
	return nil
}
