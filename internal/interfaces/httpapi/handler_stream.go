package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/livescore/internal/platform/logging"
	"github.com/riskibarqy/livescore/internal/usecase"
	"github.com/sourcegraph/conc"
)

const (
	frameSnapshot   = "snapshot"
	frameUpdate     = "update"
	frameError      = "error"
	frameVisibility = "visibility"

	maxStreamCommandBytes = 1024
	streamUpdateBuffer    = 4
	streamReplyBuffer     = 4
)

type streamFrame struct {
	Type    string          `json:"type"`
	Match   *matchDTO       `json:"match,omitempty"`
	Overs   []overDTO       `json:"overs,omitempty"`
	Visible *bool           `json:"visible,omitempty"`
	Error   *streamErrorDTO `json:"error,omitempty"`
	At      string          `json:"at,omitempty"`
}

type streamErrorDTO struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// streamCommand is the only message a client sends on the stream.
type streamCommand struct {
	Type    string `json:"type" validate:"required,oneof=visibility"`
	Visible *bool  `json:"visible" validate:"required"`
}

// StreamMatch upgrades to a websocket and pushes the match state: the
// current state first, then one frame per committed change. The client
// reports its visibility so hidden views stop driving provider polls.
func (h *Handler) StreamMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StreamMatch")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	if err := h.validateRequest(ctx, matchRequest{MatchID: matchID}); err != nil {
		writeError(ctx, w, err)
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		writeError(ctx, w, fmt.Errorf("%w: websocket upgrade required", usecase.ErrInvalidInput))
		return
	}

	visible := true
	if raw := strings.TrimSpace(r.URL.Query().Get("visible")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: visible must be a boolean", usecase.ErrInvalidInput))
			return
		}
		visible = v
	}

	viewer, err := h.registry.Watch(ctx, matchID, visible)
	if err != nil {
		h.logger.WarnContext(ctx, "attach viewer failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}
	defer viewer.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		h.logger.WarnContext(ctx, "websocket upgrade failed", "match_id", matchID, "error", err)
		return
	}

	stream := &matchStream{
		conn:         conn,
		viewer:       viewer,
		validate:     h.validateRequest,
		logger:       h.logger.ForViewer(matchID, viewer.ID()),
		writeTimeout: h.stream.WriteTimeout,
		pingInterval: h.stream.PingInterval,
		updates:      make(chan usecase.Update, streamUpdateBuffer),
		replies:      make(chan streamFrame, streamReplyBuffer),
		closing:      make(chan struct{}),
	}
	stream.run(ctx)
}

type matchStream struct {
	conn         *websocket.Conn
	viewer       *usecase.Viewer
	validate     func(context.Context, any) error
	logger       *logging.Logger
	writeTimeout time.Duration
	pingInterval time.Duration

	updates chan usecase.Update
	replies chan streamFrame
	closing chan struct{}
}

func (s *matchStream) run(ctx context.Context) {
	ctx, span := startSpan(ctx, "httpapi.stream.run")
	defer span.End()

	session := s.viewer.Session()
	unsubscribe := session.Subscribe(s.enqueue)
	defer unsubscribe()

	s.logger.InfoContext(ctx, "stream opened")

	readerDone := make(chan struct{})
	var wg conc.WaitGroup
	wg.Go(func() {
		defer close(readerDone)
		s.readLoop(ctx)
	})

	reason := s.writeLoop(ctx, readerDone, session.Done())

	close(s.closing)
	_ = s.conn.Close()
	wg.Wait()

	s.logger.InfoContext(ctx, "stream closed", "reason", reason)
}

// enqueue never blocks the session. Every committed update carries the full
// state, so when the client falls behind the oldest pending frame is dropped.
func (s *matchStream) enqueue(update usecase.Update) {
	select {
	case s.updates <- update:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- update:
	default:
	}
}

func (s *matchStream) writeLoop(ctx context.Context, readerDone, sessionDone <-chan struct{}) string {
	if frame, ok := s.initialFrame(); ok {
		if err := s.writeFrame(frame); err != nil {
			return "write failed"
		}
	}

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-readerDone:
			return "client gone"
		case <-sessionDone:
			_ = s.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
				time.Now().Add(s.writeTimeout),
			)
			return "session closed"
		case update := <-s.updates:
			if err := s.writeFrame(updateFrame(update)); err != nil {
				s.logger.DebugContext(ctx, "stream write failed", "error", err)
				return "write failed"
			}
		case frame := <-s.replies:
			if err := s.writeFrame(frame); err != nil {
				s.logger.DebugContext(ctx, "stream write failed", "error", err)
				return "write failed"
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout)); err != nil {
				return "ping failed"
			}
		}
	}
}

func (s *matchStream) readLoop(ctx context.Context) {
	pongWait := 2 * s.pingInterval
	s.conn.SetReadLimit(maxStreamCommandBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, reader, err := s.conn.NextReader()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.DebugContext(ctx, "stream read failed", "error", err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var cmd streamCommand
		decoder := jsoniter.NewDecoder(reader)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cmd); err != nil {
			s.reply(errorFrame(fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)))
			continue
		}
		if err := s.validate(ctx, cmd); err != nil {
			s.reply(errorFrame(err))
			continue
		}

		s.viewer.SetVisible(*cmd.Visible)
		s.reply(streamFrame{Type: frameVisibility, Visible: cmd.Visible})
	}
}

func (s *matchStream) reply(frame streamFrame) {
	select {
	case s.replies <- frame:
	case <-s.closing:
	}
}

func (s *matchStream) initialFrame() (streamFrame, bool) {
	session := s.viewer.Session()
	if snapshot, ok := session.CurrentSnapshot(); ok {
		match := matchToDTO(snapshot, session.LifecyclePhase(), true)
		return streamFrame{
			Type:  frameSnapshot,
			Match: &match,
			Overs: oversToDTO(session.OverHistory()),
			At:    formatTime(snapshot.FetchedAt),
		}, true
	}
	if err := session.LoadError(); err != nil {
		return errorFrame(err), true
	}
	return streamFrame{}, false
}

func (s *matchStream) writeFrame(frame streamFrame) error {
	payload, err := sonic.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode stream frame: %w", err)
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func updateFrame(update usecase.Update) streamFrame {
	if update.Kind == usecase.UpdateLoadFailed {
		frame := errorFrame(update.Err)
		frame.At = formatTime(update.At)
		return frame
	}

	match := matchToDTO(update.Snapshot, update.Phase, true)
	return streamFrame{
		Type:  frameUpdate,
		Match: &match,
		Overs: oversToDTO(update.Overs),
		At:    formatTime(update.At),
	}
}

func errorFrame(err error) streamFrame {
	if err == nil {
		err = usecase.ErrDependencyUnavailable
	}
	return streamFrame{
		Type: frameError,
		Error: &streamErrorDTO{
			Reason:  mapError(err).Reason,
			Message: err.Error(),
		},
	}
}
