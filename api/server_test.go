package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agora-dev/agora/internal/sim"
	"github.com/agora-dev/agora/pkg/session"
)

type stubRunner struct {
	err   error
	calls int
}

func (r *stubRunner) RunRound(_ context.Context, state *sim.State) (*sim.RoundResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.calls++
	state.RoundNumber++
	turn := sim.Turn{SpeakerID: "m_chair", Message: "Let us hear concrete proposals."}
	state.PublicHistory = append(state.PublicHistory, turn)
	return &sim.RoundResult{
		RoundNumber: state.RoundNumber,
		SpeakerIDs:  []string{turn.SpeakerID},
		Turns:       []sim.Turn{turn},
	}, nil
}

func newTestServer(t *testing.T, opts Options) (*Server, *stubRunner) {
	t.Helper()
	runner := &stubRunner{}
	opts.Sessions = session.NewManager(nil)
	opts.Runner = runner
	return NewServer(opts), runner
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) *sim.State {
	t.Helper()
	var state sim.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	return &state
}

func TestSetTopic(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	w := doJSON(t, srv, http.MethodPost, "/api/topic", TopicRequest{Topic: "Urban transit funding"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Urban transit funding", decodeState(t, w).Topic)
}

func TestSetTopicValidation(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	w := doJSON(t, srv, http.MethodPost, "/api/topic", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/topic", TopicRequest{Topic: strings.Repeat("x", 241)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func energyOf(v float64) *float64 { return &v }

func TestAddAgents(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	w := doJSON(t, srv, http.MethodPost, "/api/agents", AddAgentsRequest{
		UserAgents: []UserAgentRequest{
			{Name: "Maya", PersonaText: "optimistic planner who pushes for bold pilots"},
			{Name: "Viktor", PersonaText: "skeptical analyst focused on downside risk", Energy: energyOf(0.3)},
			{Name: "Sloth", PersonaText: "slow deliberate thinker who never rushes", Energy: energyOf(0)},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	state := decodeState(t, w)
	require.Len(t, state.Agents, 4) // mediator plus three users
	byName := map[string]*sim.Agent{}
	for _, a := range state.Agents {
		byName[a.Name] = a
	}
	assert.Equal(t, 0.6, byName["Maya"].Energy) // omitted defaults
	assert.Equal(t, 0.3, byName["Viktor"].Energy)
	assert.Equal(t, 0.0, byName["Sloth"].Energy) // explicit zero is kept
}

func TestAddAgentsValidation(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	w := doJSON(t, srv, http.MethodPost, "/api/agents", AddAgentsRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/agents", AddAgentsRequest{
		UserAgents: []UserAgentRequest{{Name: "NoPersona"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddAgentsHonorsCap(t *testing.T) {
	srv, _ := newTestServer(t, Options{MaxUsers: 2})

	agents := AddAgentsRequest{UserAgents: []UserAgentRequest{
		{Name: "A", PersonaText: "first voice in the room"},
		{Name: "B", PersonaText: "second voice in the room"},
		{Name: "C", PersonaText: "third voice in the room"},
	}}
	w := doJSON(t, srv, http.MethodPost, "/api/agents", agents)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "at most 2")
}

func TestRunRounds(t *testing.T) {
	srv, runner := newTestServer(t, Options{})

	w := doJSON(t, srv, http.MethodPost, "/api/run", RunRequest{Rounds: 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, runner.calls)

	var resp struct {
		Results []*sim.RoundResult `json:"results"`
		State   *sim.State         `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 3, resp.State.RoundNumber)
	assert.Len(t, resp.State.PublicHistory, 3)
}

func TestRunDefaultsToOneRound(t *testing.T) {
	srv, runner := newTestServer(t, Options{})

	w := doJSON(t, srv, http.MethodPost, "/api/run", RunRequest{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, runner.calls)
}

func TestRunRoundsRangeCheck(t *testing.T) {
	srv, runner := newTestServer(t, Options{MaxRoundsPerRun: 5})

	w := doJSON(t, srv, http.MethodPost, "/api/run", RunRequest{Rounds: 6})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/run", RunRequest{Rounds: -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, runner.calls)
}

func TestRunRosterErrorIsClientError(t *testing.T) {
	srv, runner := newTestServer(t, Options{})
	runner.err = &sim.RosterError{Condition: "at least 4 user agents required"}

	w := doJSON(t, srv, http.MethodPost, "/api/run", RunRequest{Rounds: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid roster")
}

func TestRunGenericErrorIsServerError(t *testing.T) {
	srv, runner := newTestServer(t, Options{})
	runner.err = errors.New("backend exploded")

	w := doJSON(t, srv, http.MethodPost, "/api/run", RunRequest{Rounds: 1})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestReset(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	doJSON(t, srv, http.MethodPost, "/api/topic", TopicRequest{Topic: "Old topic"})
	doJSON(t, srv, http.MethodPost, "/api/run", RunRequest{Rounds: 2})

	w := doJSON(t, srv, http.MethodPost, "/api/reset", ResetRequest{Topic: "Fresh start"})
	require.Equal(t, http.StatusOK, w.Code)
	state := decodeState(t, w)
	assert.Equal(t, "Fresh start", state.Topic)
	assert.Zero(t, state.RoundNumber)
	assert.Empty(t, state.PublicHistory)
}

func TestResetEmptyBodyUsesDefaultTopic(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/reset", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sim.DefaultTopic, decodeState(t, w).Topic)
}

func TestGetState(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	w := doJSON(t, srv, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	state := decodeState(t, w)
	assert.Equal(t, sim.DefaultTopic, state.Topic)
	require.Len(t, state.Agents, 1)
	assert.Equal(t, sim.RoleMediator, state.Agents[0].Role)
}

func TestSessionQueryParamIsolatesState(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	doJSON(t, srv, http.MethodPost, "/api/topic?session=alpha", TopicRequest{Topic: "Alpha topic"})

	w := doJSON(t, srv, http.MethodGet, "/api/state", nil)
	assert.Equal(t, sim.DefaultTopic, decodeState(t, w).Topic)

	w = doJSON(t, srv, http.MethodGet, "/api/state?session=alpha", nil)
	assert.Equal(t, "Alpha topic", decodeState(t, w).Topic)
}

func TestDemoSeedsRoster(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	w := doJSON(t, srv, http.MethodPost, "/api/demo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	state := decodeState(t, w)
	assert.Len(t, state.Agents, 5) // mediator plus the four demo participants

	names := make([]string, 0, len(state.Agents))
	for _, a := range state.Agents {
		if a.Role == sim.RoleUser {
			names = append(names, a.Name)
		}
	}
	assert.ElementsMatch(t, []string{"Maya", "Viktor", "Amara", "Jun"}, names)
}

func TestInterveneSanitizesMessage(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	w := doJSON(t, srv, http.MethodPost, "/api/intervene", InterveneRequest{
		Message: "Everyone please SHUT UP and listen",
	})
	require.Equal(t, http.StatusOK, w.Code)
	state := decodeState(t, w)
	require.NotEmpty(t, state.PublicHistory)
	last := state.PublicHistory[len(state.PublicHistory)-1]
	assert.Equal(t, state.Agents[0].ID, last.SpeakerID)
	assert.NotContains(t, strings.ToLower(last.Message), "shut up")
}

func TestInterveneValidation(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	w := doJSON(t, srv, http.MethodPost, "/api/intervene", InterveneRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/intervene", InterveneRequest{
		Message: strings.Repeat("x", 501),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func uploadDataset(t *testing.T, srv *Server, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/dataset", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestDatasetUpload(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	csv := "region,sales\nnorth,10\nsouth,30\n"
	w := uploadDataset(t, srv, "sales.csv", csv)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Profile struct {
			Rows int `json:"rows"`
			Cols int `json:"cols"`
		} `json:"profile"`
		Chart *struct {
			VisualType string `json:"visual_type"`
		} `json:"chart"`
		State *sim.State `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Profile.Rows)
	assert.Equal(t, 2, resp.Profile.Cols)
	require.NotNil(t, resp.Chart)
	assert.NotEmpty(t, resp.Chart.VisualType)
	assert.Contains(t, resp.State.DatasetSummary, "DATASET: sales.csv")
}

func TestDatasetUploadRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	w := uploadDataset(t, srv, "report.pdf", "not a csv")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/dataset", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
