package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/riskibarqy/livescore/internal/platform/logging"
	"github.com/riskibarqy/livescore/internal/usecase"
)

const (
	defaultStreamWriteTimeout = 10 * time.Second
	defaultStreamPingInterval = 30 * time.Second
	defaultOverListLimit      = 20
)

type StreamConfig struct {
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	AllowedOrigins []string
}

type Handler struct {
	matches   *usecase.MatchService
	registry  *usecase.WatchRegistry
	logger    *logging.Logger
	validator *validator.Validate
	upgrader  websocket.Upgrader
	stream    StreamConfig
}

func NewHandler(
	matches *usecase.MatchService,
	registry *usecase.WatchRegistry,
	stream StreamConfig,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if stream.WriteTimeout <= 0 {
		stream.WriteTimeout = defaultStreamWriteTimeout
	}
	if stream.PingInterval <= 0 {
		stream.PingInterval = defaultStreamPingInterval
	}

	return &Handler{
		matches:   matches,
		registry:  registry,
		logger:    logger,
		validator: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originAllowed(stream.AllowedOrigins),
		},
		stream: stream,
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	activeSessions := 0
	if h.registry != nil {
		activeSessions = h.registry.ActiveSessions()
	}
	writeSuccess(ctx, w, http.StatusOK, healthDTO{
		Status:         "ok",
		ActiveSessions: activeSessions,
	})
}

func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatches")
	defer span.End()

	items, err := h.matches.ListMatches(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list matches failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]summaryDTO, 0, len(items))
	for _, item := range items {
		out = append(out, summaryToDTO(item))
	}
	writeSuccess(ctx, w, http.StatusOK, listDTO[summaryDTO]{Items: out, Total: len(out)})
}

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatch")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	if err := h.validateRequest(ctx, matchRequest{MatchID: matchID}); err != nil {
		writeError(ctx, w, err)
		return
	}

	view, err := h.matches.GetMatch(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "get match failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchToDTO(view.Snapshot, view.Phase, view.Watched))
}

func (h *Handler) ListOvers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListOvers")
	defer span.End()

	req := overListRequest{
		MatchID: strings.TrimSpace(r.PathValue("matchID")),
		Limit:   defaultOverListLimit,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: limit must be an integer", usecase.ErrInvalidInput))
			return
		}
		req.Limit = v
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	view, err := h.matches.GetMatch(ctx, req.MatchID)
	if err != nil {
		h.logger.WarnContext(ctx, "list overs failed", "match_id", req.MatchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	overs := view.Overs
	if len(overs) > req.Limit {
		overs = overs[:req.Limit]
	}
	writeSuccess(ctx, w, http.StatusOK, listDTO[overDTO]{Items: oversToDTO(overs), Total: len(view.Overs)})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

type matchRequest struct {
	MatchID string `validate:"required,max=64"`
}

type overListRequest struct {
	MatchID string `validate:"required,max=64"`
	Limit   int    `validate:"min=1,max=200"`
}
