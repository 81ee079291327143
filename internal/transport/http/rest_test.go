package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tournament-session-service/internal/domain"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	router := chi.NewRouter()
	NewRestHandler(newTestEngine(t)).Routes(router)
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	return rec, decoded
}

func TestListTournaments(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tournaments?discipline=math", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	var tournaments []domain.Tournament
	if err := json.Unmarshal(rec.Body.Bytes(), &tournaments); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tournaments) != 1 || tournaments[0].ID != "t1" {
		t.Fatalf("unexpected list: %+v", tournaments)
	}
}

func TestListTournamentsRejectsUnknownDiscipline(t *testing.T) {
	router := newTestRouter(t)
	rec, _ := doJSON(t, router, http.MethodGet, "/tournaments?discipline=chemistry", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestJoinAndFetchParticipant(t *testing.T) {
	router := newTestRouter(t)

	rec, joined := doJSON(t, router, http.MethodPost, "/tournaments/t1/join",
		`{"usuario_id":"u1","disciplina_competida":"math"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("join status %d, body %s", rec.Code, rec.Body.String())
	}
	if joined["userId"] != "u1" {
		t.Fatalf("unexpected join reply: %+v", joined)
	}

	rec, fetched := doJSON(t, router, http.MethodGet, "/tournaments/t1/usuario/u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("fetch status %d", rec.Code)
	}
	if fetched["userId"] != "u1" || fetched["score"] != float64(0) {
		t.Fatalf("unexpected participant: %+v", fetched)
	}
}

func TestJoinUnknownTournamentIsGone(t *testing.T) {
	router := newTestRouter(t)
	rec, _ := doJSON(t, router, http.MethodPost, "/tournaments/nope/join",
		`{"usuario_id":"u1","disciplina_competida":"math"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestQuestionsEndpointStripsAnswers(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tournaments/t1/questoes/math", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	var set domain.QuestionSet
	if err := json.Unmarshal(rec.Body.Bytes(), &set); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(set.Questions) != 1 {
		t.Fatalf("unexpected set: %+v", set)
	}
	if set.Questions[0].CorrectOption != 0 || set.Questions[0].TestCases != nil {
		t.Fatalf("answer key leaked: %+v", set.Questions[0])
	}
}

func TestRankingEndpoint(t *testing.T) {
	router := newTestRouter(t)

	if rec, _ := doJSON(t, router, http.MethodPost, "/tournaments/t1/join",
		`{"usuario_id":"u1","disciplina_competida":"math"}`); rec.Code != http.StatusOK {
		t.Fatalf("join failed: %d", rec.Code)
	}

	rec, board := doJSON(t, router, http.MethodGet, "/tournaments/t1/ranking?view=score", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	entries, ok := board["entries"].([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("unexpected board: %+v", board)
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := `{
		"disciplina": "english",
		"questao": {"index": 0, "difficulty": "easy", "prompt": "Describe your weekend."},
		"resposta_usuario": "` + strings.Repeat("word ", 75) + `"
	}`
	rec, reply := doJSON(t, router, http.MethodPost, "/avaliar", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	if reply["resultado"] != "good" || reply["pontuacao"] != float64(7) {
		t.Fatalf("unexpected evaluation: %+v", reply)
	}
}

func TestEvaluateRejectsUnknownDiscipline(t *testing.T) {
	router := newTestRouter(t)
	rec, _ := doJSON(t, router, http.MethodPost, "/avaliar",
		`{"disciplina":"chemistry","questao":{},"resposta_usuario":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}
