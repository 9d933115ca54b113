// Copyright (c) 2026 ViewTube. All rights reserved.

package respond

import (
	"fmt"
	"net/http"
	"runtime"

	"log/slog"

	"github.com/BShivaGanesh/viewtube/internal/platform/ctxutil"
)

// HandlerFunc is an http.HandlerFunc variant that reports failures by
// returning an error instead of writing its own error response.
//
// # Contract
//
// A handler either writes a success response and returns nil, or returns a
// non-nil error and writes nothing. Exactly one of the two happens per request.
type HandlerFunc func(writer http.ResponseWriter, request *http.Request) error

// Handle adapts a [HandlerFunc] into a standard [http.HandlerFunc].
//
// It funnels every failure — a returned error or a panic escaping the
// handler — into [Error], so no failure is ever dropped and no handler
// crashes the process. Handle performs no retries; it is a propagation
// adapter, not a recovery strategy.
func Handle(fn HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		var err error

		func() {
			defer func() {
				if rec := recover(); rec != nil {
					stackTrace := make([]byte, 2048)
					length := runtime.Stack(stackTrace, false)

					logger := ctxutil.GetLogger(request.Context())
					logger.ErrorContext(request.Context(), "handler_panic_recovered",
						slog.Any("panic", rec),
						slog.String("stack", string(stackTrace[:length])),
					)

					err = fmt.Errorf("handler panic: %v", rec)
				}
			}()

			err = fn(writer, request)
		}()

		if err != nil {
			Error(writer, request, err)
		}
	}
}
