package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/net/html/charset"
)

// Session fetches pages. A session is opened for one run and must be
// closed by the caller.
type Session interface {
	Fetch(ctx context.Context, url string) (string, error)
	Close() error
}

// SessionFactory opens a new Session.
type SessionFactory func(ctx context.Context) (Session, error)

// HTTPSessions returns a factory of plain HTTP sessions. Each session owns
// its transport so closing it releases every connection it opened.
func HTTPSessions(userAgent string, timeout time.Duration) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		return &httpSession{
			userAgent: userAgent,
			transport: transport,
			client: &http.Client{
				Timeout:   timeout,
				Transport: transport,
			},
		}, nil
	}
}

type httpSession struct {
	userAgent string
	transport *http.Transport
	client    *http.Client
}

func (s *httpSession) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	// Pages are often served as ISO-8859-1; decode to UTF-8.
	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", url, err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}
	return string(body), nil
}

func (s *httpSession) Close() error {
	s.transport.CloseIdleConnections()
	return nil
}

// BrowserSessions returns a factory of headless Chrome sessions, for pages
// that need JavaScript to render.
func BrowserSessions(userAgent string, timeout time.Duration) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(userAgent),
		)
		allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)

		// Start the browser now so launch failures surface here.
		if err := chromedp.Run(browserCtx); err != nil {
			browserCancel()
			allocCancel()
			return nil, fmt.Errorf("starting browser: %w", err)
		}

		return &browserSession{
			ctx:           browserCtx,
			timeout:       timeout,
			browserCancel: browserCancel,
			allocCancel:   allocCancel,
		}, nil
	}
}

type browserSession struct {
	ctx           context.Context
	timeout       time.Duration
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

func (s *browserSession) Fetch(ctx context.Context, url string) (string, error) {
	tabCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	// Stop the navigation when the caller gives up.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("rendering %s: %w", url, err)
	}
	return html, nil
}

func (s *browserSession) Close() error {
	s.browserCancel()
	s.allocCancel()
	return nil
}
