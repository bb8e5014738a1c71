package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"intakeguard/internal/enforcement"
	"intakeguard/internal/intake"
	"intakeguard/internal/platform/middleware"
	"intakeguard/pkg/platform/sentinel"
	"intakeguard/pkg/requestcontext"
)

// Enforcer runs one enforcement pass.
type Enforcer interface {
	Run(ctx context.Context) (enforcement.Summary, error)
}

// Handler is the thin HTTP layer: it decodes, delegates, and encodes.
// Intake lifecycle writes that belong to external actors (submission,
// attorney confirmation) live here; the enforcement engine owns everything
// else.
type Handler struct {
	logger        *slog.Logger
	intakes       intake.Store
	enforcer      Enforcer
	cronSecret    string
	confirmWindow time.Duration
	clock         enforcement.Clock
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock sets the clock function for testability.
func WithClock(clock enforcement.Clock) Option {
	return func(h *Handler) {
		if clock != nil {
			h.clock = clock
		}
	}
}

func New(intakes intake.Store, enforcer Enforcer, logger *slog.Logger, cronSecret string, confirmWindow time.Duration, opts ...Option) *Handler {
	h := &Handler{
		logger:        logger,
		intakes:       intakes,
		enforcer:      enforcer,
		cronSecret:    cronSecret,
		confirmWindow: confirmWindow,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router wires all routes with the standard middleware chain.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/intakes", h.handleSubmit)
	r.Post("/intakes/{intakeID}/confirm", h.handleConfirm)
	r.Post("/jobs/intake-enforcement", h.handleEnforce)
	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

type submitRequest struct {
	CaseID     uuid.UUID       `json:"case_id"`
	ClientID   uuid.UUID       `json:"client_id"`
	AttorneyID uuid.UUID       `json:"attorney_id"`
	Payload    json.RawMessage `json:"payload"`
}

type submitResponse struct {
	ID                uuid.UUID `json:"id"`
	Status            string    `json:"status"`
	SubmittedAt       time.Time `json:"submitted_at"`
	ConfirmDeadlineAt time.Time `json:"confirm_deadline_at"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CaseID == uuid.Nil || req.ClientID == uuid.Nil || req.AttorneyID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "case_id, client_id and attorney_id are required")
		return
	}
	if len(req.Payload) == 0 || string(req.Payload) == "null" || string(req.Payload) == "{}" {
		writeError(w, http.StatusBadRequest, "payload must not be empty")
		return
	}

	rec := intake.New(req.CaseID, req.ClientID, req.AttorneyID, req.Payload, h.clock().UTC(), h.confirmWindow)
	if err := h.intakes.Create(ctx, rec); err != nil {
		h.logger.ErrorContext(ctx, "failed to create intake",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create intake")
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		ID:                rec.ID,
		Status:            string(rec.Status),
		SubmittedAt:       rec.SubmittedAt,
		ConfirmDeadlineAt: rec.ConfirmDeadlineAt,
	})
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "intakeID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid intake id")
		return
	}

	err = h.intakes.Confirm(ctx, id, h.clock().UTC())
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, sentinel.ErrNotFound):
		writeError(w, http.StatusNotFound, "intake not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		writeError(w, http.StatusConflict, "intake is not pending confirmation")
	default:
		h.logger.ErrorContext(ctx, "failed to confirm intake",
			"request_id", requestcontext.RequestID(ctx), "intake_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to confirm intake")
	}
}

type enforceResponse struct {
	Success bool `json:"success"`
	enforcement.Summary
}

func (h *Handler) handleEnforce(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cronSecret != "" {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "unauthorized"})
			return
		}
	}

	summary, err := h.enforcer.Run(ctx)
	if err != nil {
		if errors.Is(err, enforcement.ErrRunInProgress) {
			writeJSON(w, http.StatusConflict, map[string]any{"success": false, "error": err.Error()})
			return
		}
		h.logger.ErrorContext(ctx, "enforcement run failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, enforceResponse{Success: true, Summary: summary})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
