package rpc

import (
	"errors"
	"io"
	"net/http"

	"github.com/odyssey-erp/odyssey-rpc/internal/platform/httpx"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// HTTPHandler exposes a Dispatcher over HTTP POST.
type HTTPHandler struct {
	dispatcher   *Dispatcher
	public       bool
	maxBodyBytes int64
}

// NewHTTPHandler returns the transport for one endpoint. public marks every
// call arriving through it as unauthenticated-path traffic.
func NewHTTPHandler(d *Dispatcher, public bool, maxBodyBytes int64) *HTTPHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &HTTPHandler{dispatcher: d, public: public, maxBodyBytes: maxBodyBytes}
}

// ServeHTTP implements http.Handler. Single responses carry a status derived
// from their error code; batches always answer 200.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		httpx.JSON(w, http.StatusMethodNotAllowed, failure(nil, NewError(CodeInvalidRequest, "only POST is supported", nil)))
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.JSON(w, http.StatusRequestEntityTooLarge, failure(nil, NewError(CodeInvalidRequest, "request body too large", nil)))
			return
		}
		httpx.JSON(w, http.StatusBadRequest, failure(nil, NewError(CodeParseError, "", nil)))
		return
	}

	result, batch := h.dispatcher.HandleBody(r.Context(), body, Call{Public: h.public, Request: r})
	if batch {
		httpx.JSON(w, http.StatusOK, result)
		return
	}
	resp := result.(Response)
	httpx.JSON(w, HTTPStatus(resp.Code()), resp)
}
