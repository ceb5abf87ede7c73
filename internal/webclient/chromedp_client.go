package webclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/stayscore/stayscore/internal/logging"
)

// ChromedpClient renders pages in a headless browser before returning their
// HTML, for sites that assemble their booking UI client-side.
type ChromedpClient struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	idleAfter   time.Duration
	logger      logging.Logger
}

// NewChromedpClient builds the chromedp backend with its own browser
// allocator. Close releases the browser.
func NewChromedpClient(cfg Config, logger logging.Logger) (*ChromedpClient, error) {
	idleAfter := cfg.IdleAfter
	if idleAfter <= 0 {
		idleAfter = 2 * time.Second
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromedpClient{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		idleAfter:   idleAfter,
		logger:      logger.With(logging.Field{Key: "component", Value: "webclient/chromedp"}),
	}, nil
}

// waitNetworkIdle closes the returned channel once no network request has
// been outstanding for idleAfter.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) <-chan struct{} {
	idleChan := make(chan struct{})
	var activeReqs int32
	var timerMu sync.Mutex
	var timer *time.Timer
	var once sync.Once

	startTimer := func() {
		timerMu.Lock()
		defer timerMu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&activeReqs) == 0 {
				once.Do(func() { close(idleChan) })
			}
		})
	}
	startTimer()

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt32(&activeReqs, 1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if atomic.AddInt32(&activeReqs, -1) == 0 {
				startTimer()
			}
		}
	})

	return idleChan
}

// Do navigates to the request URL, waits for the network to settle and
// returns the rendered document. Only GET is supported by this backend.
func (cdc *ChromedpClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Method != "" && req.Method != http.MethodGet {
		return nil, fmt.Errorf("chromedp backend supports GET only, got %s", req.Method)
	}

	tabCtx, cancel := chromedp.NewContext(cdc.allocCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var tcancel context.CancelFunc
		tabCtx, tcancel = context.WithDeadline(tabCtx, deadline)
		defer tcancel()
	}

	cdc.logger.Debug("rendering page", logging.Field{Key: "url", Value: req.URL})

	waitIdle := waitNetworkIdle(tabCtx, cdc.idleAfter)

	var statusCode int64
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument {
				atomic.StoreInt64(&statusCode, resp.Response.Status)
			}
		}
	})

	if err := chromedp.Run(tabCtx, chromedp.Navigate(req.URL)); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", req.URL, err)
	}

	select {
	case <-waitIdle:
	case <-tabCtx.Done():
		return nil, tabCtx.Err()
	}

	var html, finalURL string
	if err := chromedp.Run(tabCtx,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html),
	); err != nil {
		return nil, fmt.Errorf("extract html: %w", err)
	}

	status := int(atomic.LoadInt64(&statusCode))
	if status == 0 {
		status = http.StatusOK
	}

	return &Response{
		Request:    req,
		Body:       []byte(html),
		Headers:    http.Header{},
		StatusCode: status,
		FinalURL:   finalURL,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

func (cdc *ChromedpClient) Close() error {
	cdc.allocCancel()
	return nil
}
