package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kalambet/sage/internal/action"
	"github.com/kalambet/sage/internal/dialogue"
	"github.com/kalambet/sage/internal/storage"
)

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestHealth_NoAuthRequired(t *testing.T) {
	h := NewHandler(newTestEngine(t, storage.NewMemory()), "secret")

	rec := do(t, h, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeBody[struct {
		Status string         `json:"status"`
		Stats  dialogue.Stats `json:"stats"`
	}](t, rec)
	if got.Status != "ok" || got.Stats.Intents != 6 {
		t.Errorf("health = %+v", got)
	}
}

func TestAuth(t *testing.T) {
	h := NewHandler(newTestEngine(t, storage.NewMemory()), "secret")

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"wrong token", "nope", http.StatusUnauthorized},
		{"valid token", "secret", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/understand", tc.token, TextRequest{Text: "hello"})
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestBearerAuth_Header(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := BearerAuth("secret")(ok)

	tests := []struct {
		header string
		want   int
	}{
		{"Bearer secret", http.StatusNoContent},
		{"bearer secret", http.StatusNoContent},
		{"Bearer  secret ", http.StatusNoContent},
		{"Bearer", http.StatusUnauthorized},
		{"Bearer ", http.StatusUnauthorized},
		{"Basic secret", http.StatusUnauthorized},
		{"secret", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tc.header)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate challenge")
			}
		})
	}
}

func TestAuth_DisabledWithoutToken(t *testing.T) {
	h := NewHandler(newTestEngine(t, storage.NewMemory()), "")

	if rec := do(t, h, http.MethodGet, "/history", "", nil); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestUnderstand_Remember(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory())
	h := NewHandler(e, "")

	rec := do(t, h, http.MethodPost, "/understand", "", TextRequest{Text: "what time is it", Remember: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	got := decodeBody[UnderstandResponse](t, rec)

	want := dialogue.Result{CommandType: "time", Response: dialogue.CommandUnderstood}
	if diff := cmp.Diff(want, got.Result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if got.Turn == nil || got.Turn.Understanding != want {
		t.Errorf("turn = %+v", got.Turn)
	}

	rec = do(t, h, http.MethodGet, "/history", "", nil)
	hist := decodeBody[struct {
		Turns []dialogue.Turn `json:"turns"`
	}](t, rec)
	if len(hist.Turns) != 1 || hist.Turns[0].Input != "what time is it" {
		t.Errorf("history = %+v", hist.Turns)
	}
}

func TestUnderstand_BadBody(t *testing.T) {
	h := NewHandler(newTestEngine(t, storage.NewMemory()), "")

	rec := do(t, h, http.MethodPost, "/understand", "", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyze(t *testing.T) {
	h := NewHandler(newTestEngine(t, storage.NewMemory()), "")

	rec := do(t, h, http.MethodPost, "/analyze", "", TextRequest{Text: "play music now"})
	got := decodeBody[struct {
		CommandType string   `json:"command_type"`
		Confidence  int      `json:"confidence"`
		Tokens      []string `json:"tokens"`
	}](t, rec)
	if got.CommandType != "music" || got.Confidence != 83 {
		t.Errorf("analysis = %+v, want music at 83", got)
	}
	if diff := cmp.Diff([]string{"play", "music", "now"}, got.Tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize(t *testing.T) {
	h := NewHandler(newTestEngine(t, storage.NewMemory()), "")

	rec := do(t, h, http.MethodPost, "/normalize", "", TextRequest{Text: "launch the browser"})
	got := decodeBody[map[string]string](t, rec)
	if got["normalized"] != "open" {
		t.Errorf("normalized = %q, want open", got["normalized"])
	}
}

func TestRoute(t *testing.T) {
	h := NewHandler(newTestEngine(t, storage.NewMemory()), "")

	rec := do(t, h, http.MethodPost, "/route", "", TextRequest{Text: "take a screenshot"})
	got := decodeBody[RouteResponse](t, rec)
	if diff := cmp.Diff(action.Action{Kind: action.Screenshot}, got.Action); diff != "" {
		t.Errorf("action mismatch (-want +got):\n%s", diff)
	}
	if got.Normalized != "screenshot" {
		t.Errorf("normalized = %q, want screenshot", got.Normalized)
	}
}

func TestRespond_UnknownTag(t *testing.T) {
	h := NewHandler(newTestEngine(t, storage.NewMemory()), "")

	rec := do(t, h, http.MethodGet, "/respond/unknown", "", nil)
	got := decodeBody[map[string]string](t, rec)
	if got["response"] != dialogue.NoResponse {
		t.Errorf("response = %q", got["response"])
	}
}

func TestAddIntent(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory())
	h := NewHandler(e, "")

	rec := do(t, h, http.MethodPost, "/intents", "", IntentRequest{
		Tag:       "joke",
		Patterns:  []string{"tell me a joke"},
		Responses: []string{"I would tell you a UDP joke, but you might not get it."},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if got := decodeBody[MutationResponse](t, rec); !got.Persisted {
		t.Errorf("mutation = %+v, want persisted", got)
	}
	if got := e.Understand("tell me a joke"); got.Response != "I would tell you a UDP joke, but you might not get it." {
		t.Errorf("Understand = %+v", got)
	}
}

func TestAddIntent_NotPersisted(t *testing.T) {
	mem := storage.NewMemory()
	e := newTestEngine(t, mem)
	h := NewHandler(e, "")
	mem.FailWrites = errors.New("read-only filesystem")

	rec := do(t, h, http.MethodPost, "/intents", "", IntentRequest{
		Tag:       "joke",
		Responses: []string{"Knock knock."},
	})
	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("status = %d, want 207", rec.Code)
	}
	got := decodeBody[MutationResponse](t, rec)
	if got.Status != "applied" || got.Persisted || got.Error == "" {
		t.Errorf("mutation = %+v", got)
	}
	if r := e.Respond("joke"); r != "Knock knock." {
		t.Errorf("Respond = %q, change should be live in memory", r)
	}
}

func TestMutations_Validation(t *testing.T) {
	h := NewHandler(newTestEngine(t, storage.NewMemory()), "")

	tests := []struct {
		name string
		path string
		body any
	}{
		{"intent without tag", "/intents", IntentRequest{Responses: []string{"x"}}},
		{"intent without responses", "/intents", IntentRequest{Tag: "x"}},
		{"intent with blank response", "/intents", IntentRequest{Tag: "x", Responses: []string{""}}},
		{"synonym without variants", "/synonyms", SynonymRequest{Canonical: "open"}},
		{"command pattern without entries", "/command-patterns", CommandPatternRequest{Type: "lights"}},
		{"context pattern without keywords", "/context-patterns", ContextPatternRequest{Type: "room"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tc.path, "", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestAddVocabulary(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory())
	h := NewHandler(e, "")

	if rec := do(t, h, http.MethodPost, "/command-patterns", "", CommandPatternRequest{
		Type:    "lights",
		Phrases: []string{"lights on"},
	}); rec.Code != http.StatusOK {
		t.Fatalf("command pattern status = %d: %s", rec.Code, rec.Body)
	}
	if got := e.Understand("lights on").CommandType; got != "lights" {
		t.Errorf("command type = %q, want lights", got)
	}

	if rec := do(t, h, http.MethodPost, "/synonyms", "", SynonymRequest{
		Canonical: "lights",
		Variants:  []string{"illuminate"},
	}); rec.Code != http.StatusOK {
		t.Fatalf("synonym status = %d: %s", rec.Code, rec.Body)
	}
	if got := e.Normalize("illuminate the hall"); got != "lights" {
		t.Errorf("Normalize = %q, want lights", got)
	}

	if rec := do(t, h, http.MethodPost, "/context-patterns", "", ContextPatternRequest{
		Type:     "room",
		Keywords: []string{"hall"},
	}); rec.Code != http.StatusOK {
		t.Fatalf("context pattern status = %d: %s", rec.Code, rec.Body)
	}
	if got := e.Context("illuminate the hall").Extra["room"]; got != "hall" {
		t.Errorf("room = %q, want hall", got)
	}
}
