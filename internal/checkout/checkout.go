// Package checkout drives the hosted payment flow: it requests a checkout
// session, sends the browser there and captures the success or cancel
// redirect on a loopback listener.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/browser"

	"github.com/pawtrait/pawtrait-client/internal/models"
)

var validTiers = map[string]bool{
	string(models.TierStarter):  true,
	string(models.TierPro):      true,
	string(models.TierUltimate): true,
}

// Outcome is how the hosted flow ended from the client's point of view.
type Outcome struct {
	Completed   bool
	Cancelled   bool
	CheckoutURL string
}

// checkoutAPI is the slice of the API client the flow needs.
type checkoutAPI interface {
	CreateCheckout(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, error)
}

type Flow struct {
	client     checkoutAPI
	listenAddr string
	log        *slog.Logger
	openURL    func(url string) error
}

func NewFlow(client checkoutAPI, listenAddr string, log *slog.Logger) *Flow {
	return &Flow{
		client:     client,
		listenAddr: listenAddr,
		log:        log,
		openURL:    browser.OpenURL,
	}
}

// Start requests a checkout session for the tier and blocks until the hosted
// flow redirects back to the loopback listener or ctx ends. The listener is
// bound first so its origin can serve as the success/cancel return URLs.
func (f *Flow) Start(ctx context.Context, tier string) (Outcome, error) {
	if !validTiers[tier] {
		return Outcome{}, fmt.Errorf("unknown tier %q", tier)
	}

	ln, err := net.Listen("tcp", f.listenAddr)
	if err != nil {
		return Outcome{}, fmt.Errorf("bind callback listener: %w", err)
	}
	origin := "http://" + ln.Addr().String()

	done := make(chan bool, 1)
	srv := &http.Server{
		Handler:      newCallbackRouter(done),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			f.log.Error("callback listener stopped", "err", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			f.log.Error("callback listener shutdown", "err", err)
		}
	}()

	resp, err := f.client.CreateCheckout(ctx, models.CheckoutRequest{
		Tier:       tier,
		SuccessURL: origin + "/checkout/success",
		CancelURL:  origin + "/checkout/cancel",
	})
	if err != nil {
		return Outcome{}, err
	}
	if resp.CheckoutURL == "" {
		return Outcome{}, errors.New("No checkout URL received")
	}

	if err := f.openURL(resp.CheckoutURL); err != nil {
		f.log.Warn("could not open browser, open the checkout URL manually", "url", resp.CheckoutURL, "err", err)
	}
	f.log.Info("waiting for checkout to finish", "tier", tier, "callback", origin)

	select {
	case completed := <-done:
		return Outcome{Completed: completed, Cancelled: !completed, CheckoutURL: resp.CheckoutURL}, nil
	case <-ctx.Done():
		return Outcome{CheckoutURL: resp.CheckoutURL}, ctx.Err()
	}
}

func newCallbackRouter(done chan<- bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/checkout/success", func(w http.ResponseWriter, _ *http.Request) {
		writeCallbackPage(w, "Payment complete", "Your credits are on the way. You can close this tab and return to the terminal.")
		signal(done, true)
	})
	r.Get("/checkout/cancel", func(w http.ResponseWriter, _ *http.Request) {
		writeCallbackPage(w, "Payment cancelled", "No charge was made. You can close this tab and return to the terminal.")
		signal(done, false)
	})
	return r
}

// signal delivers at most one outcome; extra redirects are ignored.
func signal(done chan<- bool, completed bool) {
	select {
	case done <- completed:
	default:
	}
}

func writeCallbackPage(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!doctype html><html><head><title>%s</title></head><body><h1>%s</h1><p>%s</p></body></html>", title, title, body)
}
