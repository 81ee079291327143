package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tournament-session-service/internal/app"
	"tournament-session-service/internal/domain"

	"github.com/go-chi/chi/v5"
)

// RestHandler exposes the engine over the platform's REST surface. Route
// and field names follow the upstream API (questoes, usuario, avaliar).
type RestHandler struct {
	service *app.TournamentService
}

func NewRestHandler(service *app.TournamentService) *RestHandler {
	return &RestHandler{service: service}
}

// Routes mounts the REST surface on a chi router.
func (h *RestHandler) Routes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/tournaments", h.listTournaments)
	r.Post("/tournaments/{id}/join", h.join)
	r.Get("/tournaments/{id}/usuario/{userId}", h.participant)
	r.Get("/tournaments/{id}/ranking", h.ranking)
	r.Get("/tournaments/{id}/questoes/{discipline}", h.questions)
	r.Post("/avaliar", h.evaluate)
}

func (h *RestHandler) listTournaments(w http.ResponseWriter, r *http.Request) {
	discipline, ok := domain.ParseDiscipline(r.URL.Query().Get("discipline"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown discipline")
		return
	}
	tournaments, err := h.service.ActiveTournaments(r.Context(), discipline)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tournaments)
}

type joinRequest struct {
	UserID     string `json:"usuario_id"`
	Discipline string `json:"disciplina_competida"`
}

func (h *RestHandler) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "usuario_id and disciplina_competida are required")
		return
	}
	discipline, ok := domain.ParseDiscipline(req.Discipline)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown discipline")
		return
	}
	participant, _, err := h.service.Join(r.Context(), chi.URLParam(r, "id"), req.UserID, discipline)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participant)
}

func (h *RestHandler) participant(w http.ResponseWriter, r *http.Request) {
	participant, err := h.service.Participant(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "userId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participant)
}

func (h *RestHandler) ranking(w http.ResponseWriter, r *http.Request) {
	view := app.RankingTieBroken
	if r.URL.Query().Get("view") == string(app.RankingByScore) {
		view = app.RankingByScore
	}
	leaderboard, err := h.service.Ranking(r.Context(), chi.URLParam(r, "id"), view)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboard)
}

func (h *RestHandler) questions(w http.ResponseWriter, r *http.Request) {
	discipline, ok := domain.ParseDiscipline(chi.URLParam(r, "discipline"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown discipline")
		return
	}
	set, err := h.service.Questions(r.Context(), chi.URLParam(r, "id"), discipline)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

type evaluateRequest struct {
	Discipline string          `json:"disciplina"`
	Question   domain.Question `json:"questao"`
	RawAnswer  string          `json:"resposta_usuario"`
}

type evaluateResponse struct {
	Verdict string `json:"resultado"`
	Points  int    `json:"pontuacao"`
}

func (h *RestHandler) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	discipline, ok := domain.ParseDiscipline(req.Discipline)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown discipline")
		return
	}
	req.Question.Discipline = discipline
	verdict, points, err := h.service.Evaluate(r.Context(), discipline, req.Question, req.RawAnswer)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{Verdict: verdict, Points: points})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTournamentNotFound),
		errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrTournamentUnavailable),
		errors.Is(err, domain.ErrTournamentClosed),
		errors.Is(err, domain.ErrTournamentExpired),
		errors.Is(err, domain.ErrQuestionExpired):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrTournamentFull),
		errors.Is(err, domain.ErrQuestionAlreadyAnswered):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrGradingBackendUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
