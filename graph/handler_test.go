package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	Data   map[string]interface{}   `json:"data"`
	Errors []map[string]interface{} `json:"errors"`
}

func serve(t *testing.T, f *fixture, req *http.Request) (*httptest.ResponseRecorder, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.resolver.Handler().ServeHTTP(rec, req)

	var body response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHandler_Post(t *testing.T) {
	f := newFixture(t)
	postID := f.createPost(t, f.alice, "over http")

	payload := `{"query":"query ($id: ID!) { post(id: $id) { title } }","variables":{"id":"` + postID + `"}}`
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec, body := serve(t, f, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Empty(t, body.Errors)
	assert.Equal(t, map[string]interface{}{"title": "over http"}, body.Data["post"])
}

func TestHandler_Get(t *testing.T) {
	f := newFixture(t)
	f.createPost(t, f.alice, "first")

	q := url.Values{}
	q.Set("query", "{ posts { title } }")
	rec, body := serve(t, f, httptest.NewRequest(http.MethodGet, "/query?"+q.Encode(), nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{map[string]interface{}{"title": "first"}}, body.Data["posts"])
}

func TestHandler_ErrorsCarryCode(t *testing.T) {
	f := newFixture(t)

	payload := `{"query":"mutation { createLike(post: \"000000000000000000000000\") { id } }"}`
	rec, body := serve(t, f, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(payload)))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "createLike requires an authenticated user", body.Errors[0]["message"])
	assert.Equal(t, map[string]interface{}{"code": "AUTH_REQUIRED"}, body.Errors[0]["extensions"])
}

func TestHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
	}{
		{"empty body", httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("")), http.StatusBadRequest},
		{"not json", httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("query { posts { id } }")), http.StatusBadRequest},
		{"no query", httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"variables":{}}`)), http.StatusBadRequest},
		{"bad variables", httptest.NewRequest(http.MethodGet, "/query?query=%7Bposts%7Bid%7D%7D&variables=nope", nil), http.StatusBadRequest},
		{"method", httptest.NewRequest(http.MethodPut, "/query", nil), http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := serve(t, newFixture(t), tt.req)
			assert.Equal(t, tt.wantCode, rec.Code)
			require.Len(t, body.Errors, 1)
			assert.NotEmpty(t, body.Errors[0]["message"])
		})
	}
}

func TestHandler_GetRejectsMutation(t *testing.T) {
	f := newFixture(t)
	postID := f.createPost(t, f.alice, "target")

	queries := map[string]url.Values{
		"anonymous mutation": {
			"query": {`mutation { createLike(post: "` + postID + `") { id } }`},
		},
		"named mutation": {
			"query":         {`query Read { posts { id } } mutation Like { createLike(post: "` + postID + `") { id } }`},
			"operationName": {"Like"},
		},
	}

	for name, q := range queries {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/query?"+q.Encode(), nil)
			rec, body := serve(t, f, req.WithContext(f.as(f.bob)))

			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
			require.Len(t, body.Errors, 1)
		})
	}

	n, err := f.store.Likes().Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Запрос на чтение из того же документа по GET разрешен
	q := url.Values{
		"query":         {`query Read { posts { id } } mutation Like { createLike(post: "` + postID + `") { id } }`},
		"operationName": {"Read"},
	}
	rec, body := serve(t, f, httptest.NewRequest(http.MethodGet, "/query?"+q.Encode(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body.Data["posts"], 1)
}
