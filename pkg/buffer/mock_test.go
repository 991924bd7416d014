package buffer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// capturedRequest is what the mock service saw for one request.
type capturedRequest struct {
	Method      string
	Path        string
	Query       url.Values
	Form        url.Values
	ContentType string
	UserAgent   string
}

type mockReply struct {
	status int
	body   string
}

// mockService stands in for the Buffer API. Replies are keyed by URL path;
// unknown paths answer 200 with "{}".
type mockService struct {
	srv *httptest.Server

	mu      sync.Mutex
	replies map[string]mockReply
	reqs    []capturedRequest
}

func newMockService(t *testing.T) *mockService {
	t.Helper()
	m := &mockService{replies: map[string]mockReply{}}
	m.srv = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.srv.Close)
	return m
}

func (m *mockService) serve(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	m.mu.Lock()
	m.reqs = append(m.reqs, capturedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.Query(),
		Form:        r.PostForm,
		ContentType: r.Header.Get("Content-Type"),
		UserAgent:   r.Header.Get("User-Agent"),
	})
	reply, ok := m.replies[r.URL.Path]
	m.mu.Unlock()

	if !ok {
		reply = mockReply{status: http.StatusOK, body: "{}"}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.status)
	_, _ = w.Write([]byte(reply.body))
}

func (m *mockService) reply(path string, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[path] = mockReply{status: status, body: body}
}

func (m *mockService) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reqs)
}

func (m *mockService) last(t *testing.T) capturedRequest {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.reqs) == 0 {
		t.Fatal("mock service received no request")
	}
	return m.reqs[len(m.reqs)-1]
}

// newTestClient returns a client pointed at m whose session holds token.
func newTestClient(m *mockService, token string, opts ...ClientOption) *Client {
	sess := NewSession(OAuthConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		CallbackURL:  "https://example.com/callback",
	}, NewMemoryStore())
	sess.SetAccessToken(token)
	opts = append([]ClientOption{
		WithBaseURL(m.srv.URL + "/1"),
		WithTokenURL(m.srv.URL + "/1/oauth2/token.json"),
	}, opts...)
	return NewClient(sess, opts...)
}

// failingStore is a TokenStore whose operations always fail.
type failingStore struct{ err error }

func (f failingStore) SaveToken(context.Context, string) error { return f.err }

func (f failingStore) LoadToken(context.Context) (string, bool, error) { return "", false, f.err }
