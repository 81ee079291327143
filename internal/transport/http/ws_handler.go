package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tournament-session-service/internal/app"
	"tournament-session-service/internal/domain"

	"github.com/gorilla/websocket"
)

// WSHandler streams the live session over a websocket: 1 Hz session frames
// with the server-computed countdowns, plus answer grading round-trips.
type WSHandler struct {
	service  *app.TournamentService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.TournamentService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionIndex int    `json:"questionIndex"`
	Answer        string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type joinedPayload struct {
	Tournament  domain.Tournament   `json:"tournament"`
	Participant domain.Participant  `json:"participant"`
	Session     app.SessionSnapshot `json:"session"`
}

// ServeWS upgrades the connection and wires it into the session engine.
// The client passes userId and discipline; the active tournament is
// resolved server-side so a stale client cannot pick an expired window.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	discipline, ok := domain.ParseDiscipline(r.URL.Query().Get("discipline"))
	if userID == "" || !ok {
		http.Error(w, "missing userId or discipline", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	tournament, participant, snapshot, err := h.service.JoinDiscipline(r.Context(), userID, discipline)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorFor(err)})
		return
	}

	frames, cancel, err := h.service.SubscribeSession(tournament.ID, userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorFor(err)})
		return
	}
	defer cancel()
	defer h.service.Leave(tournament.ID, userID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	framesDone := make(chan struct{})

	// Single writer goroutine; gorilla connections do not allow concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(framesDone)
		for {
			select {
			case frame, ok := <-frames:
				if !ok {
					return
				}
				msgType := "session"
				if frame.State == app.StateCompleted {
					// Window closed: informational, not an error.
					msgType = "completed"
				}
				select {
				case send <- outboundMessage[any]{Type: msgType, Payload: frame}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{
		Tournament:  tournament,
		Participant: participant,
		Session:     snapshot,
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "BadRequest", Message: "invalid answer payload"}}
				continue
			}
			result, leaderboard, err := h.service.Submit(r.Context(), tournament.ID, userID, payload.QuestionIndex, payload.Answer)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorFor(err)}
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: result}
			send <- outboundMessage[any]{Type: "leaderboard", Payload: leaderboard}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "BadRequest", Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-framesDone
	close(send)
	<-writerDone
}

// errorFor names errors by the engine taxonomy so clients can branch on a
// stable code instead of parsing messages.
func errorFor(err error) errorPayload {
	code := "Internal"
	switch {
	case errors.Is(err, domain.ErrTournamentUnavailable):
		code = "TournamentUnavailable"
	case errors.Is(err, domain.ErrTournamentClosed):
		code = "TournamentClosed"
	case errors.Is(err, domain.ErrTournamentExpired):
		code = "TournamentExpired"
	case errors.Is(err, domain.ErrTournamentFull):
		code = "TournamentFull"
	case errors.Is(err, domain.ErrQuestionAlreadyAnswered):
		code = "QuestionAlreadyAnswered"
	case errors.Is(err, domain.ErrQuestionExpired):
		code = "QuestionExpired"
	case errors.Is(err, domain.ErrGradingBackendUnavailable):
		code = "GradingBackendUnavailable"
	case errors.Is(err, domain.ErrParticipantNotFound):
		code = "ParticipantNotFound"
	case errors.Is(err, domain.ErrQuestionNotFound):
		code = "QuestionNotFound"
	case errors.Is(err, domain.ErrSessionNotFound):
		code = "SessionNotFound"
	}
	return errorPayload{Code: code, Message: err.Error()}
}
