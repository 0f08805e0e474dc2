package browser

import (
	"math/rand"

	"github.com/chromedp/chromedp"
)

var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36 Edg/122.0.0.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

// Options is the launch configuration of one browser process.
type Options struct {
	Headless     bool
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	Proxy        string
	ExecPath     string
}

// Bounds constrain the randomized launch options.
type Bounds struct {
	UserAgents []string
	MinWidth   int
	MaxWidth   int
	MinHeight  int
	MaxHeight  int
}

// RandomOptions draws a user agent and window size from b.
func RandomOptions(rnd *rand.Rand, b Bounds, headless bool) Options {
	agents := b.UserAgents
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}

	return Options{
		Headless:     headless,
		UserAgent:    agents[rnd.Intn(len(agents))],
		WindowWidth:  between(rnd, b.MinWidth, b.MaxWidth),
		WindowHeight: between(rnd, b.MinHeight, b.MaxHeight),
	}
}

func between(rnd *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rnd.Intn(hi-lo+1)
}

// BuildChromeOptions creates Chrome options based on Options
func BuildChromeOptions(opts Options) []chromedp.ExecAllocatorOption {
	chromeOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
		// stealth
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-client-side-phishing-detection", true),
		chromedp.Flag("disable-component-update", true),
		chromedp.Flag("disable-domain-reliability", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("password-store", "basic"),
		chromedp.Flag("use-mock-keychain", true),
		chromedp.Flag("lang", "en-US"),
	)

	if opts.Headless {
		chromeOpts = append(chromeOpts, chromedp.Flag("headless", "new"))
	} else {
		chromeOpts = append(chromeOpts, chromedp.Flag("headless", false))
	}

	if opts.UserAgent != "" {
		chromeOpts = append(chromeOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Proxy != "" {
		chromeOpts = append(chromeOpts, chromedp.ProxyServer(opts.Proxy))
	}
	if opts.ExecPath != "" {
		chromeOpts = append(chromeOpts, chromedp.ExecPath(opts.ExecPath))
	}

	return chromeOpts
}
