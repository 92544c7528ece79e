// internal/driver/cdp/launch.go
package cdp

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesync/internal/config"
	"github.com/xkilldash9x/pagesync/internal/driver"
)

// hides navigator.webdriver, which some sites use to refuse automated sessions.
const automationMask = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

func maskAutomation() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(automationMask).Do(ctx)
		return err
	})
}

// Option customizes a Driver at launch.
type Option func(*Driver)

// WithCommandTimeout bounds every protocol round trip other than navigation.
func WithCommandTimeout(d time.Duration) Option {
	return func(drv *Driver) {
		if d > 0 {
			drv.cmdTimeout = d
		}
	}
}

// Launch starts a browser described by cfg and attaches to its first tab. The
// browser lives until Close; ctx only bounds the startup.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger, opts ...Option) (*Driver, error) {
	allocOpts, err := AllocatorOptions(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("cdp").With(zap.String("browser_id", uuid.New().String()))

	allocCtx, allocCancel := chromedp.NewExecAllocator(Detach(ctx), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Sugar().Debugf),
		chromedp.WithErrorf(log.Sugar().Errorf),
	)

	d := &Driver{
		logger:        log,
		cmdTimeout:    defaultCommandTimeout,
		loadTimeout:   cfg.PageLoadTimeout,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		tabs:          make(map[target.ID]*tab),
	}
	if d.loadTimeout <= 0 {
		d.loadTimeout = defaultCommandTimeout
	}
	for _, opt := range opts {
		opt(d)
	}

	primary := &tab{ctx: browserCtx, cancel: browserCancel, dialogs: newDialogState()}
	d.listen(primary)
	log.Info("Starting browser.", zap.String("name", cfg.Name), zap.Bool("headless", cfg.Headless))
	if err := startOn(ctx, browserCtx, maskAutomation()); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start %s: %w", cfg.Name, err)
	}

	primary.id = chromedp.FromContext(browserCtx).Target.TargetID
	d.tabs[primary.id] = primary
	d.order = []string{string(primary.id)}
	d.cur = primary
	d.primary = primary
	log.Info("Browser started.", zap.String("window", string(primary.id)))
	return d, nil
}

// AllocatorOptions turns the browser config into chromedp exec allocator options on
// top of chromedp's defaults.
func AllocatorOptions(cfg config.BrowserConfig) ([]chromedp.ExecAllocatorOption, error) {
	path, err := execPath(cfg)
	if err != nil {
		return nil, err
	}
	flags := launchFlags(cfg)

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, name := range slices.Sorted(maps.Keys(flags)) {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}
	if path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	return opts, nil
}

// execPath picks the binary for the configured browser. An empty result lets
// chromedp search the usual Chrome locations.
func execPath(cfg config.BrowserConfig) (string, error) {
	if cfg.ExecPath != "" {
		return cfg.ExecPath, nil
	}
	switch strings.ToLower(cfg.Name) {
	case config.BrowserChrome, config.BrowserChromium, "":
		return "", nil
	case config.BrowserEdge:
		return "microsoft-edge", nil
	}
	return "", fmt.Errorf("browser %q: %w", cfg.Name, driver.ErrUnsupported)
}

// launchFlags collects the command line switches. Extra args from the config win
// over the built-in ones.
func launchFlags(cfg config.BrowserConfig) map[string]any {
	flags := map[string]any{
		"headless":                               cfg.Headless,
		"no-sandbox":                             true,
		"disable-dev-shm-usage":                  true,
		"disable-gpu":                            true,
		"disable-blink-features":                 "AutomationControlled",
		"disable-background-timer-throttling":    true,
		"disable-backgrounding-occluded-windows": true,
		"disable-features":                       "CalculateNativeWinOcclusion,TranslateUI",
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		flags["window-size"] = fmt.Sprintf("%d,%d", cfg.Width, cfg.Height)
	}
	for _, arg := range cfg.Args {
		name, value := parseArg(arg)
		if name != "" {
			flags[name] = value
		}
	}
	return flags
}

// parseArg splits "--name=value" or "--name" into a flag name and value.
func parseArg(arg string) (string, any) {
	arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
	name, value, ok := strings.Cut(arg, "=")
	if !ok {
		return name, true
	}
	return name, value
}
