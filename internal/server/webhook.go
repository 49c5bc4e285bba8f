package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/prisync/internal/models"
	"github.com/desertthunder/prisync/internal/shared"
)

// Headers used by the task tracker's webhook protocol.
const (
	HeaderHookSecret    = "X-Hook-Secret"
	HeaderHookSignature = "X-Hook-Signature"
)

// DefaultMaxBodyBytes caps webhook request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// WebhookOpts configures a [WebhookHandler].
type WebhookOpts struct {
	Dispatcher   Dispatcher
	Logger       *log.Logger
	Secret       string // verifies X-Hook-Signature when set
	Async        bool   // acknowledge before processing
	MaxBodyBytes int64
}

// WebhookHandler receives task tracker webhook deliveries on /webhook.
//
// A request carrying X-Hook-Secret is a handshake: the header is echoed back and the body ignored.
// Any other request must be a POST with a JSON {"events": [...]} body.
type WebhookHandler struct {
	dispatcher Dispatcher
	logger     *log.Logger
	secret     []byte
	async      bool
	maxBody    int64
	inflight   sync.WaitGroup
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(opts WebhookOpts) *WebhookHandler {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &WebhookHandler{
		dispatcher: opts.Dispatcher,
		logger:     opts.Logger,
		secret:     []byte(opts.Secret),
		async:      opts.Async,
		maxBody:    opts.MaxBodyBytes,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *WebhookHandler) Routes() []string {
	return []string{"/webhook"}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if secret := r.Header.Get(HeaderHookSecret); secret != "" {
		h.logger.Info("answering webhook handshake")
		w.Header().Set(HeaderHookSecret, secret)
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := h.verify(r.Header.Get(HeaderHookSignature), body); err != nil {
		h.logger.Warn("rejecting webhook delivery", "error", err)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	events, err := decodeEvents(body)
	if err != nil {
		h.logger.Warn("rejecting webhook delivery", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.dispatch(r.Context(), events)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Wait blocks until every asynchronously dispatched delivery has been processed.
func (h *WebhookHandler) Wait() {
	h.inflight.Wait()
}

func (h *WebhookHandler) dispatch(ctx context.Context, events []models.WebhookEvent) {
	if !h.async {
		h.dispatcher.HandleEventBatch(ctx, events)
		return
	}

	// The delivery outlives the request; keep its values but drop its cancellation.
	ctx = context.WithoutCancel(ctx)
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		h.dispatcher.HandleEventBatch(ctx, events)
	}()
}

// verify checks the hex HMAC-SHA256 of body against signature. It accepts everything when no secret is configured.
func (h *WebhookHandler) verify(signature string, body []byte) error {
	if len(h.secret) == 0 {
		return nil
	}
	if signature == "" {
		return fmt.Errorf("%w: missing %s", shared.ErrInvalidSignature, HeaderHookSignature)
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: not hex encoded", shared.ErrInvalidSignature)
	}

	if !hmac.Equal(got, Sign(h.secret, body)) {
		return shared.ErrInvalidSignature
	}
	return nil
}

// Sign returns the HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

func decodeEvents(body []byte) ([]models.WebhookEvent, error) {
	var batch models.EventBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedPayload, err)
	}
	return batch.Events, nil
}

var _ Handler = (*WebhookHandler)(nil)
