package routes

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/survey3/app"
	"github.com/mbolis/survey3/config"
	"github.com/mbolis/survey3/database"
	"github.com/mbolis/survey3/metrics"
	"github.com/mbolis/survey3/model"
	"github.com/mbolis/survey3/service"
	"github.com/mbolis/survey3/testutil"
)

type harness struct {
	handler http.Handler
	store   database.Store
	ipfs    *testutil.MemoryIPFS
}

func newHarness(t *testing.T, env string) *harness {
	t.Helper()
	return newHarnessWith(t, config.Config{
		Env:            env,
		CORSOrigins:    []string{"*"},
		RequestTimeout: 10 * time.Second,
	})
}

func newHarnessWith(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	h := &harness{
		store: testutil.NewStore(t),
		ipfs:  testutil.NewMemoryIPFS(),
	}
	svc := service.New(h.store, h.ipfs, h.ipfs, testutil.Tokens(t), service.WithFanOut(2))
	h.handler = Wire(app.App{
		Service: svc,
		Config:  cfg,
		Metrics: metrics.New(prometheus.NewRegistry()),
	})
	return h
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func (h *harness) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (h *harness) login(t *testing.T) (string, string) {
	t.Helper()
	wallet := testutil.NewWallet(t)
	w, env := h.do(t, http.MethodPost, "/api/auth/login", "", wallet.SignIn(time.Now(), time.Hour))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session struct {
		AccessToken string `json:"accessToken"`
		User        struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.AccessToken)
	return session.AccessToken, session.User.ID
}

func surveyBody() map[string]any {
	return map[string]any{
		"title":       "Coffee Habits Survey",
		"description": "How do you take your coffee?",
		"questions": []map[string]any{
			{"question": "How many cups per day?", "type": "text", "required": true},
			{"question": "Preferred roast level?", "type": "radio", "options": []string{"light", "dark"}},
		},
		"metadata": map[string]string{"category": "food"},
	}
}

func (h *harness) createSurvey(t *testing.T, token string) string {
	t.Helper()
	w, env := h.do(t, http.MethodPost, "/api/survey/create", token, surveyBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created struct {
		Survey struct {
			ID string `json:"id"`
		} `json:"survey"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	return created.Survey.ID
}

func TestHealth(t *testing.T) {
	h := newHarness(t, config.EnvTest)

	for _, path := range []string{"/api/health", "/api/survey/health"} {
		w, env := h.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, env.Error)
		assert.JSONEq(t, `"OK"`, string(mustField(t, env.Data, "status")))
		assert.JSONEq(t, `"OK"`, string(mustField(t, env.Data, "database")))
	}
}

func mustField(t *testing.T, data json.RawMessage, name string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	v, ok := m[name]
	require.True(t, ok, "missing %s in %s", name, data)
	return v
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t, config.EnvTest)

	w, env := h.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(t, config.EnvTest)

	for _, path := range []string{"/api/survey/", "/api/survey/all", "/api/organization/", "/api/response/abc"} {
		w, env := h.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		require.NotNil(t, env.Error, path)
		assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
	}

	w, _ := h.do(t, http.MethodGet, "/api/survey/", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginValidatesBody(t *testing.T) {
	h := newHarness(t, config.EnvTest)

	w, env := h.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"signature": "0x00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Message, "header")
}

func TestLoginRejectsExpiredChallenge(t *testing.T) {
	h := newHarness(t, config.EnvTest)
	wallet := testutil.NewWallet(t)

	w, env := h.do(t, http.MethodPost, "/api/auth/login", "", wallet.SignIn(time.Now().Add(-2*time.Hour), time.Hour))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Signature has expired", env.Message)
	assert.JSONEq(t, "null", string(env.Data))
}

func TestSurveyFlow(t *testing.T) {
	h := newHarness(t, config.EnvTest)
	token, userID := h.login(t)
	id := h.createSurvey(t, token)

	w, env := h.do(t, http.MethodGet, "/api/survey/?metadata=true&questions=true", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var views []struct {
		ID   string `json:"id"`
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Metadata  map[string]any   `json:"metadata"`
		Questions []map[string]any `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, id, views[0].ID)
	assert.Equal(t, userID, views[0].User.ID)
	assert.Equal(t, "food", views[0].Metadata["category"])
	assert.Len(t, views[0].Questions, 2)

	w, _ = h.do(t, http.MethodGet, "/api/survey/"+id+"?responses=true", token, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = h.do(t, http.MethodGet, "/api/survey/all?metadata=yes", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	w, env = h.do(t, http.MethodPost, "/api/survey/update", token, map[string]any{
		"id":       id,
		"metadata": map[string]string{"category": "drinks"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `"drinks"`, string(mustField(t, mustField(t, env.Data, "metadata"), "category")))

	w, _ = h.do(t, http.MethodDelete, "/api/survey/"+id, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, env = h.do(t, http.MethodGet, "/api/survey/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestSurveyOwnerOnly(t *testing.T) {
	h := newHarness(t, config.EnvTest)
	alice, _ := h.login(t)
	bob, _ := h.login(t)
	id := h.createSurvey(t, alice)

	w, env := h.do(t, http.MethodGet, "/api/survey/"+id, bob, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	w, _ = h.do(t, http.MethodDelete, "/api/survey/"+id, bob, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateSurveyUploadFailure(t *testing.T) {
	h := newHarness(t, config.EnvTest)
	token, _ := h.login(t)
	h.ipfs.FailPut = func(string) bool { return true }

	w, env := h.do(t, http.MethodPost, "/api/survey/create", token, surveyBody())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", env.Error.Code)

	surveys, err := h.store.ListSurveys(context.Background(), model.SurveyFilter{})
	require.NoError(t, err)
	assert.Empty(t, surveys)
}

func TestResponses(t *testing.T) {
	h := newHarness(t, config.EnvTest)
	owner, _ := h.login(t)
	respondent, _ := h.login(t)
	id := h.createSurvey(t, owner)

	w, env := h.do(t, http.MethodPost, "/api/response/add", respondent, map[string]any{
		"survey":   id,
		"response": []map[string]string{{"question": "How many cups per day?", "response": "two"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Message, "response[0].response")

	responses, err := h.store.ListResponses(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, responses)

	w, env = h.do(t, http.MethodPost, "/api/response/add", respondent, map[string]any{
		"survey":   id,
		"response": []map[string]string{{"question": "How many cups per day?", "response": "three cups"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var added struct {
		Response struct {
			ID string `json:"id"`
		} `json:"response"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &added))

	w, env = h.do(t, http.MethodGet, "/api/response/"+added.Response.ID+"?content=true", owner, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), "three cups")

	w, env = h.do(t, http.MethodPost, "/api/response/add", respondent, map[string]any{
		"survey":   "missing",
		"response": []map[string]string{{"question": "Q", "response": "three cups"}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestResponseBodyTooLarge(t *testing.T) {
	h := newHarness(t, config.EnvTest)
	owner, _ := h.login(t)
	respondent, _ := h.login(t)
	id := h.createSurvey(t, owner)

	w, env := h.do(t, http.MethodPost, "/api/response/add", respondent, map[string]any{
		"survey":   id,
		"response": []map[string]string{{"question": "Q", "response": strings.Repeat("a", 200_000)}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)

	responses, err := h.store.ListResponses(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, responses)
}

func TestCORSCredentials(t *testing.T) {
	fromOrigin := func(h *harness) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://app.example")
		w := httptest.NewRecorder()
		h.handler.ServeHTTP(w, req)
		return w
	}

	w := fromOrigin(newHarness(t, config.EnvTest))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))

	w = fromOrigin(newHarnessWith(t, config.Config{
		Env:            config.EnvTest,
		CORSOrigins:    []string{"https://app.example"},
		RequestTimeout: 10 * time.Second,
	}))
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestOrganizations(t *testing.T) {
	h := newHarness(t, config.EnvTest)
	token, userID := h.login(t)

	w, env := h.do(t, http.MethodPost, "/api/organization/create", token, map[string]string{"description": "no name"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name is required", env.Message)

	w, env = h.do(t, http.MethodPost, "/api/organization/create", token, map[string]string{"name": "Acme"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var org struct {
		ID    string `json:"id"`
		Owner string `json:"owner"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &org))
	assert.Equal(t, userID, org.Owner)

	w, env = h.do(t, http.MethodGet, "/api/organization/"+org.ID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `"Acme"`, string(mustField(t, env.Data, "name")))

	w, env = h.do(t, http.MethodGet, "/api/organization/", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var orgs []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &orgs))
	assert.Len(t, orgs, 1)
}

func TestCookieAuth(t *testing.T) {
	h := newHarness(t, config.EnvTest)
	token, _ := h.login(t)

	req := httptest.NewRequest(http.MethodGet, "/api/survey/all", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestDummyUserOnlyInDevelopment(t *testing.T) {
	w, _ := newHarness(t, config.EnvProduction).do(t, http.MethodPost, "/api/dev/create-dummy-user", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := newHarness(t, config.EnvDevelopment).do(t, http.MethodPost, "/api/dev/create-dummy-user", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Dummy user created", env.Message)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, config.EnvTest)
	h.do(t, http.MethodGet, "/api/health", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `survey3_http_requests_total{method="GET",route="/api/health",status="200"} 1`)
}
