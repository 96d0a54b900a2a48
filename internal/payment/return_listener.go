// Package payment captures the provider redirect that completes a hosted
// payment. The backend hands out a payment URL; once the user pays, the
// provider redirects the browser to a local callback carrying the outcome.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/labstack/echo/v5"
)

// ReturnResult is the parsed provider redirect.
type ReturnResult struct {
	Provider string
	OrderID  string
	Success  bool

	// Code is the provider's raw result code, kept for diagnostics.
	Code string
}

// ReturnListener runs a localhost HTTP server on which the payment provider
// lands after the user finishes (or abandons) the hosted payment page. Only
// the first redirect counts; later hits get the same thank-you page but are
// dropped.
type ReturnListener struct {
	ln     net.Listener
	srv    *http.Server
	result chan ReturnResult
}

// NewReturnListener binds the callback port. Port 0 picks a free one.
func NewReturnListener(port int) (*ReturnListener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("payment: net.Listen: %w", err)
	}

	l := &ReturnListener{
		ln:     ln,
		result: make(chan ReturnResult, 1),
	}

	e := echo.New()
	e.GET("/payment/return", l.handleReturn)
	l.srv = &http.Server{Handler: e}

	return l, nil
}

// Start begins serving and returns the return URL to register with the
// payment request.
func (l *ReturnListener) Start() string {
	go func() {
		if err := l.srv.Serve(l.ln); err != nil && err != http.ErrServerClosed {
			slog.Error("payment return listener stopped", "error", err)
		}
	}()
	return fmt.Sprintf("http://%s/payment/return", l.ln.Addr().String())
}

// handleReturn parses both provider redirect shapes. VNPAY sends
// vnp_ResponseCode / vnp_TxnRef; MOMO sends resultCode / orderId.
func (l *ReturnListener) handleReturn(c echo.Context) error {
	var result ReturnResult

	switch {
	case c.QueryParam("vnp_ResponseCode") != "":
		result = ReturnResult{
			Provider: "VNPAY",
			OrderID:  c.QueryParam("vnp_TxnRef"),
			Code:     c.QueryParam("vnp_ResponseCode"),
			Success:  c.QueryParam("vnp_ResponseCode") == "00",
		}
	case c.QueryParam("resultCode") != "":
		result = ReturnResult{
			Provider: "MOMO",
			OrderID:  c.QueryParam("orderId"),
			Code:     c.QueryParam("resultCode"),
			Success:  c.QueryParam("resultCode") == "0",
		}
	default:
		return c.String(http.StatusBadRequest, "unrecognized payment callback")
	}

	select {
	case l.result <- result:
	default:
		// a result already landed, ignore the duplicate
	}

	if result.Success {
		return c.HTML(http.StatusOK, "<h3>Payment complete.</h3><p>You can close this tab and return to the app.</p>")
	}
	return c.HTML(http.StatusOK, "<h3>Payment not completed.</h3><p>You can close this tab and try again from the app.</p>")
}

// Wait blocks until the provider redirects back or ctx expires.
func (l *ReturnListener) Wait(ctx context.Context) (ReturnResult, error) {
	select {
	case result := <-l.result:
		return result, nil
	case <-ctx.Done():
		return ReturnResult{}, ctx.Err()
	}
}

func (l *ReturnListener) Close() error {
	return l.srv.Close()
}
