package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kalambet/sage/internal/action"
	"github.com/kalambet/sage/internal/corpus"
	"github.com/kalambet/sage/internal/dialogue"
	"github.com/kalambet/sage/internal/nlp"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Engine is the dialogue surface exposed over HTTP and MCP.
// *dialogue.Engine satisfies it.
type Engine interface {
	Understand(text string) dialogue.Result
	RememberWith(input, response string, understanding dialogue.Result) dialogue.Turn
	Respond(tag string) string
	Analyze(text string) nlp.Analysis
	Normalize(text string) string
	History() []dialogue.Turn
	Stats() dialogue.Stats
	SessionID() string

	AddIntent(tag string, patterns, responses []string) error
	AddCommandSynonym(canonical string, variants []string) error
	AddCommandPattern(commandType string, verbs, nouns, phrases []string) error
	AddContextPattern(contextType string, keywords []string) error
}

type TextRequest struct {
	Text     string `json:"text"`
	Remember bool   `json:"remember"`
}

type IntentRequest struct {
	Tag       string   `json:"tag" validate:"required"`
	Patterns  []string `json:"patterns" validate:"dive,required"`
	Responses []string `json:"responses" validate:"min=1,dive,required"`
}

type SynonymRequest struct {
	Canonical string   `json:"canonical" validate:"required"`
	Variants  []string `json:"variants" validate:"min=1,dive,required"`
}

type CommandPatternRequest struct {
	Type    string   `json:"type" validate:"required"`
	Verbs   []string `json:"verbs" validate:"dive,required"`
	Nouns   []string `json:"nouns" validate:"dive,required"`
	Phrases []string `json:"phrases" validate:"dive,required"`
}

type ContextPatternRequest struct {
	Type     string   `json:"type" validate:"required"`
	Keywords []string `json:"keywords" validate:"min=1,dive,required"`
}

// UnderstandResponse carries the decision and, when asked to remember, the
// logged turn.
type UnderstandResponse struct {
	dialogue.Result
	Turn *dialogue.Turn `json:"turn,omitempty"`
}

// RouteResponse pairs the decision with the front-end action it maps to.
type RouteResponse struct {
	Result     dialogue.Result `json:"result"`
	Normalized string          `json:"normalized"`
	Action     action.Action   `json:"action"`
}

// MutationResponse reports whether a vocabulary change reached storage.
type MutationResponse struct {
	Status    string `json:"status"`
	Persisted bool   `json:"persisted"`
	Error     string `json:"error,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewHandler returns the sage REST API. A non-empty token enables bearer
// authentication on every route except /health.
func NewHandler(e Engine, token string) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(e))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(token))

		r.Post("/understand", handleUnderstand(e))
		r.Post("/analyze", handleAnalyze(e))
		r.Post("/normalize", handleNormalize(e))
		r.Post("/route", handleRoute(e))
		r.Get("/respond/{tag}", handleRespond(e))
		r.Get("/history", handleHistory(e))

		r.Post("/intents", handleAddIntent(e))
		r.Post("/synonyms", handleAddSynonym(e))
		r.Post("/command-patterns", handleAddCommandPattern(e))
		r.Post("/context-patterns", handleAddContextPattern(e))
	})

	return r
}

func handleHealth(e Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"session": e.SessionID(),
			"stats":   e.Stats(),
		})
	}
}

func handleUnderstand(e Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TextRequest
		if !decode(w, r, &req) {
			return
		}

		res := UnderstandResponse{Result: e.Understand(req.Text)}
		if req.Remember {
			turn := e.RememberWith(req.Text, res.Response, res.Result)
			res.Turn = &turn
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleAnalyze(e Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TextRequest
		if !decode(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, e.Analyze(req.Text))
	}
}

func handleNormalize(e Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TextRequest
		if !decode(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"normalized": e.Normalize(req.Text)})
	}
}

func handleRoute(e Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TextRequest
		if !decode(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, RouteResponse{
			Result:     e.Understand(req.Text),
			Normalized: e.Normalize(req.Text),
			Action:     action.Classify(req.Text),
		})
	}
}

func handleRespond(e Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tag := chi.URLParam(r, "tag")
		writeJSON(w, http.StatusOK, map[string]string{"tag": tag, "response": e.Respond(tag)})
	}
}

func handleHistory(e Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"turns": e.History()})
	}
}

func handleAddIntent(e Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req IntentRequest
		if !decode(w, r, &req) {
			return
		}
		writeMutation(w, e.AddIntent(req.Tag, req.Patterns, req.Responses))
	}
}

func handleAddSynonym(e Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SynonymRequest
		if !decode(w, r, &req) {
			return
		}
		writeMutation(w, e.AddCommandSynonym(req.Canonical, req.Variants))
	}
}

func handleAddCommandPattern(e Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CommandPatternRequest
		if !decode(w, r, &req) {
			return
		}
		if len(req.Verbs)+len(req.Nouns)+len(req.Phrases) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "at least one of verbs, nouns or phrases is required")
			return
		}
		writeMutation(w, e.AddCommandPattern(req.Type, req.Verbs, req.Nouns, req.Phrases))
	}
}

func handleAddContextPattern(e Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ContextPatternRequest
		if !decode(w, r, &req) {
			return
		}
		writeMutation(w, e.AddContextPattern(req.Type, req.Keywords))
	}
}

// decode reads and validates a JSON body, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	if err := validate.Struct(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return false
	}
	return true
}

// writeMutation reports an applied change. A storage failure still means the
// change is live in memory, so it is answered with 207 and persisted=false.
func writeMutation(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, MutationResponse{Status: "applied", Persisted: true})
	case errors.Is(err, corpus.ErrStorage):
		slog.Warn("vocabulary change not persisted", "error", err)
		writeJSON(w, http.StatusMultiStatus, MutationResponse{Status: "applied", Persisted: false, Error: err.Error()})
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
