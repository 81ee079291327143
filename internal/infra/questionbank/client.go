// Package questionbank fetches discipline-tagged questions from the
// platform's question service. The wire format keeps the upstream
// Portuguese field names; the domain model does not.
package questionbank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tournament-session-service/internal/domain"

	"github.com/cenkalti/backoff/v4"
)

type wireOption struct {
	Indice int    `json:"indice"`
	Texto  string `json:"texto"`
}

type wireTestCase struct {
	Entrada       string `json:"entrada"`
	SaidaEsperada string `json:"saida_esperada"`
}

type wireQuestion struct {
	Indice         int            `json:"indice"`
	Disciplina     string         `json:"disciplina"`
	Dificuldade    string         `json:"dificuldade"`
	Enunciado      string         `json:"enunciado"`
	Alternativas   []wireOption   `json:"alternativas,omitempty"`
	RespostaCerta  int            `json:"resposta_correta,omitempty"`
	CodigoInicial  string         `json:"codigo_inicial,omitempty"`
	CasosDeTeste   []wireTestCase `json:"casos_teste,omitempty"`
}

type wireResponse struct {
	Questoes []wireQuestion `json:"questoes"`
}

// Client is an HTTP gateway to GET /tournaments/{id}/questoes/{discipline}.
// Transient failures are retried with exponential backoff; persistent
// failure degrades to the last successfully fetched set instead of killing
// the session.
type Client struct {
	baseURL string
	client  *http.Client

	mu        sync.RWMutex
	lastKnown map[string]domain.QuestionSet
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
		lastKnown: make(map[string]domain.QuestionSet),
	}
}

// LoadQuestions fetches the issued bank for a tournament and discipline.
func (c *Client) LoadQuestions(ctx context.Context, tournamentID string, discipline domain.Discipline) (domain.QuestionSet, error) {
	var set domain.QuestionSet

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	err := backoff.Retry(func() error {
		fetched, err := c.fetch(ctx, tournamentID, discipline)
		if err != nil {
			return err
		}
		set = fetched
		return nil
	}, policy)
	if err != nil {
		if cached, ok := c.cached(tournamentID, discipline); ok {
			return cached, nil
		}
		return domain.QuestionSet{}, fmt.Errorf("load questions for %s/%s: %w", tournamentID, discipline, err)
	}

	c.remember(tournamentID, discipline, set)
	return set, nil
}

func (c *Client) fetch(ctx context.Context, tournamentID string, discipline domain.Discipline) (domain.QuestionSet, error) {
	url := fmt.Sprintf("%s/tournaments/%s/questoes/%s", c.baseURL, tournamentID, discipline)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.QuestionSet{}, backoff.Permanent(err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.QuestionSet{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.QuestionSet{}, backoff.Permanent(domain.ErrQuestionNotFound)
	case resp.StatusCode != http.StatusOK:
		return domain.QuestionSet{}, fmt.Errorf("question bank returned %d", resp.StatusCode)
	}

	var body wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.QuestionSet{}, err
	}

	questions := make([]domain.Question, 0, len(body.Questoes))
	for _, wq := range body.Questoes {
		q := domain.Question{
			Index:         wq.Indice,
			Discipline:    discipline,
			Difficulty:    domain.Difficulty(wq.Dificuldade),
			Prompt:        wq.Enunciado,
			CorrectOption: wq.RespostaCerta,
			StarterCode:   wq.CodigoInicial,
		}
		for _, opt := range wq.Alternativas {
			q.Options = append(q.Options, domain.Option{Index: opt.Indice, Text: opt.Texto})
		}
		for _, tc := range wq.CasosDeTeste {
			q.TestCases = append(q.TestCases, domain.TestCase{Input: tc.Entrada, ExpectedOutput: tc.SaidaEsperada})
		}
		questions = append(questions, q)
	}
	return domain.QuestionSet{
		TournamentID: tournamentID,
		Discipline:   discipline,
		Questions:    questions,
	}, nil
}

func (c *Client) cached(tournamentID string, discipline domain.Discipline) (domain.QuestionSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set, ok := c.lastKnown[cacheKey(tournamentID, discipline)]
	return set, ok
}

func (c *Client) remember(tournamentID string, discipline domain.Discipline, set domain.QuestionSet) {
	c.mu.Lock()
	c.lastKnown[cacheKey(tournamentID, discipline)] = set
	c.mu.Unlock()
}

func cacheKey(tournamentID string, discipline domain.Discipline) string {
	return tournamentID + ":" + string(discipline)
}
