package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/sprite-ai/prgate/internal/config"
	"github.com/sprite-ai/prgate/internal/engine"
	"github.com/sprite-ai/prgate/internal/model"
)

type fakeCheckClient struct {
	cfg          *config.Config
	diff         string
	changedFiles []string
	reviews      []model.Review
	teams        map[string][]string
}

func (f *fakeCheckClient) PullRequest(ctx context.Context) (engine.PullRequest, string, error) {
	return engine.PullRequest{AuthorLogin: "author", AuthorID: 1}, "abc123", nil
}

func (f *fakeCheckClient) FetchConfig(ctx context.Context) (*config.Config, error) {
	return f.cfg, nil
}

func (f *fakeCheckClient) FetchDiff(ctx context.Context) (string, error) {
	return f.diff, nil
}

func (f *fakeCheckClient) FetchChangedFiles(ctx context.Context) ([]string, error) {
	return f.changedFiles, nil
}

func (f *fakeCheckClient) FetchReviews(ctx context.Context) ([]model.Review, error) {
	return f.reviews, nil
}

func (f *fakeCheckClient) TeamMembers(ctx context.Context, team string) ([]string, error) {
	return f.teams[team], nil
}

func (f *fakeCheckClient) RequestReviewers(ctx context.Context, users, teams []string) error {
	return nil
}

func newTestServer(owner string, client CheckClient) *Server {
	srv := New("127.0.0.1:0", owner, "")
	srv.clients = func(owner, repo string, number int) CheckClient {
		return client
	}
	return srv
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer("", &fakeCheckClient{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %q", resp["status"])
	}
}

func TestCheckReviewsNoPolicy(t *testing.T) {
	srv := newTestServer("", &fakeCheckClient{})
	body, _ := json.Marshal(checkRequest{Owner: "acme", Repo: "app", PRNumber: 7})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/check_reviews", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp checkResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.State != string(model.StateSuccess) {
		t.Errorf("state = %q", resp.State)
	}
	if len(resp.Log) == 0 {
		t.Error("expected the run log in the response")
	}
}

func TestCheckReviewsFailure(t *testing.T) {
	client := &fakeCheckClient{
		cfg: &config.Config{
			LocksReviewTeam:  "locks",
			TeamLeadsTeam:    "leads",
			ActionReviewTeam: "action",
		},
		diff:         "diff --git a/p.go b/p.go\n+🔒 locked line\n",
		changedFiles: []string{"p.go"},
		teams: map[string][]string{
			"locks": {"lock-owner"},
			"leads": {"lead-a"},
		},
	}
	srv := newTestServer("", client)

	body, _ := json.Marshal(checkRequest{Owner: "acme", Repo: "app", PRNumber: 7})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/check_reviews", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp checkResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.State != string(model.StateFailure) {
		t.Errorf("state = %q, want failure", resp.State)
	}
	if resp.MatchedRules != 1 {
		t.Errorf("matched_rules = %d", resp.MatchedRules)
	}
	if len(resp.Problems) == 0 {
		t.Error("expected problems in the response")
	}
}

func TestCheckReviewsValidation(t *testing.T) {
	srv := newTestServer("", &fakeCheckClient{})

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{bad json"},
		{"missing owner", `{"repo":"app","pr_number":1}`},
		{"missing repo", `{"owner":"acme","pr_number":1}`},
		{"missing pr number", `{"owner":"acme","repo":"app"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/check_reviews", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestCheckReviewsOwnerRestriction(t *testing.T) {
	srv := newTestServer("acme", &fakeCheckClient{})
	body, _ := json.Marshal(checkRequest{Owner: "intruder", Repo: "app", PRNumber: 7})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/check_reviews", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestWebSocketCheckStreamsLog(t *testing.T) {
	client := &fakeCheckClient{
		cfg: &config.Config{
			LocksReviewTeam:  "locks",
			TeamLeadsTeam:    "leads",
			ActionReviewTeam: "action",
		},
		diff:         "diff --git a/p.go b/p.go\n+🔒 locked line\n",
		changedFiles: []string{"p.go"},
		teams: map[string][]string{
			"locks": {"lock-owner"},
			"leads": {"lead-a"},
		},
	}
	srv := newTestServer("", client)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	data, _ := json.Marshal(checkRequest{Owner: "acme", Repo: "app", PRNumber: 7})
	if err := conn.WriteJSON(wsMessage{Type: wsMsgCheck, Data: data}); err != nil {
		t.Fatal(err)
	}

	var logLines int
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if msg.Type == wsMsgLog {
			logLines++
			continue
		}
		if msg.Type != wsMsgResult {
			t.Fatalf("unexpected message type %q", msg.Type)
		}
		var resp checkResponse
		if err := json.Unmarshal(msg.Data, &resp); err != nil {
			t.Fatal(err)
		}
		if resp.State != string(model.StateFailure) {
			t.Errorf("state = %q, want failure", resp.State)
		}
		if logLines == 0 {
			t.Error("expected log lines streamed before the result")
		}
		if len(resp.Log) != logLines {
			t.Errorf("result carries %d log lines, %d were streamed", len(resp.Log), logLines)
		}
		break
	}
}

func TestWebSocketUnknownType(t *testing.T) {
	srv := newTestServer("", &fakeCheckClient{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsMessage{Type: "bogus"}); err != nil {
		t.Fatal(err)
	}

	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msg.Type != wsMsgError {
		t.Errorf("message type = %q, want error", msg.Type)
	}
}
