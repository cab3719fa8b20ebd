package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	cases := []struct {
		kind   Kind
		code   string
		status int
	}{
		{KindBadRequest, "BAD_REQUEST", http.StatusBadRequest},
		{KindNotFound, "NOT_FOUND", http.StatusNotFound},
		{KindUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized},
		{KindValidation, "VALIDATION_ERROR", http.StatusBadRequest},
		{KindInternal, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, c.kind.Code())
		assert.Equal(t, c.status, c.kind.Status())
	}
}

func TestAsError(t *testing.T) {
	assert.Nil(t, AsError(nil))

	plain := errors.New("boom")
	e := AsError(plain)
	assert.Equal(t, KindInternal, e.Kind)
	assert.Equal(t, "boom", e.Message)
	assert.ErrorIs(t, e, plain)

	nf := NotFound("Survey not found")
	wrapped := errors.Join(errors.New("context"), nf)
	assert.Same(t, nf, AsError(wrapped))
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(plain, KindNotFound))
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestFailRendersEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/survey/x", nil)

	Fail(w, r, Unauthorized("You are not the owner of this survey"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, "You are not the owner of this survey", body["message"])
	assert.Nil(t, body["data"])
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "UNAUTHORIZED", errObj["code"])
	assert.EqualValues(t, 401, errObj["status"])
}

func TestFailCoercesPlainErrors(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	Fail(w, r, errors.New("db down"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body["error"].(map[string]any)["code"])
}

func TestOK(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	OK(w, r, http.StatusCreated, "Created", map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, "Created", body["message"])
	assert.Nil(t, body["error"])
	assert.EqualValues(t, 1, body["data"].(map[string]any)["n"])
}

type item struct {
	Text string `json:"text" validate:"min=5,max=10"`
}

type payload struct {
	Name  string   `json:"name" validate:"required"`
	Kind  string   `json:"kind" validate:"required,oneof=a b"`
	When  string   `json:"when" validate:"omitempty,isodate"`
	Items []item   `json:"items" validate:"required,dive"`
	Tags  []string `json:"tags" validate:"omitempty,dive,min=1"`
}

func TestDecode(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(
		`{"name":"n","kind":"a","when":"2024-01-02T03:04:05.000Z","items":[{"text":"hello"}]}`))
	var p payload
	require.NoError(t, Decode(r, &p))
	assert.Equal(t, "hello", p.Items[0].Text)
}

func TestDecodeJoinsFieldErrors(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(
		`{"kind":"c","when":"yesterday","items":[{"text":"hi"}]}`))
	var p payload
	err := Decode(r, &p)
	require.Error(t, err)

	e := AsError(err)
	assert.Equal(t, KindValidation, e.Kind)
	assert.Equal(t,
		"name is required, kind must be one of a, b, when must be an ISO 8601 date, items[0].text must contain at least 5 characters",
		e.Message)
}

func TestDecodeMalformedBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	var p payload
	assert.True(t, IsKind(Decode(r, &p), KindBadRequest))
}

func TestParseFlag(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?metadata=true&questions=false&responses=yes", nil)

	v, err := ParseFlag(r, "metadata")
	require.NoError(t, err)
	assert.True(t, v)

	v, err = ParseFlag(r, "questions")
	require.NoError(t, err)
	assert.False(t, v)

	v, err = ParseFlag(r, "missing")
	require.NoError(t, err)
	assert.False(t, v)

	_, err = ParseFlag(r, "responses")
	assert.True(t, IsKind(err, KindValidation))
}
