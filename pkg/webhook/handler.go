package webhook

import (
	"context"
	"io"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/zoff-tech/go-crosspost/pkg/platform"
)

// maxBodyBytes caps inbound callback bodies; platform events are small.
const maxBodyBytes = 1 << 20

// Sink receives verified callback bodies.
type Sink interface {
	HandleEvent(ctx context.Context, kind platform.Kind, body []byte) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, kind platform.Kind, body []byte) error

func (f SinkFunc) HandleEvent(ctx context.Context, kind platform.Kind, body []byte) error {
	return f(ctx, kind, body)
}

// Handler is the inbound HTTP boundary for platform callbacks. Requests are
// rate limited per platform and source address, then signature checked before
// the body reaches the sink; nothing is mutated for an unverified request.
type Handler struct {
	verifier *Verifier
	limiter  *RateLimiter
	sink     Sink
}

func NewHandler(verifier *Verifier, limiter *RateLimiter, sink Sink) *Handler {
	return &Handler{verifier: verifier, limiter: limiter, sink: sink}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/webhooks/{platform}", h.receive)
	return r
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	kind, err := platform.ParseKind(chi.URLParam(r, "platform"))
	if err != nil {
		http.Error(w, "unknown platform", http.StatusNotFound)
		return
	}

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(r.Context(), string(kind)+":"+clientAddr(r))
		if err != nil {
			// Redis being down should not drop verified platform traffic.
			log.WithError(err).Warn("Rate limiter unavailable, admitting request")
		} else if !allowed {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get(SignatureHeader(kind))
	if !h.verifier.Verify(kind, body, signature) {
		log.WithFields(log.Fields{
			"platform": kind,
			"remote":   clientAddr(r),
		}).Warn("Rejected callback with a bad signature")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	if err := h.sink.HandleEvent(r.Context(), kind, body); err != nil {
		log.WithError(err).WithField("platform", kind).Error("Callback sink failed")
		http.Error(w, "event processing failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
