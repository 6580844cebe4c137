package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/sage/internal/corpus"
	"github.com/kalambet/sage/internal/dialogue"
	"github.com/kalambet/sage/internal/storage"
	"github.com/kalambet/sage/internal/thesaurus"
)

// --- helpers ---

func newTestEngine(t *testing.T, mem *storage.Memory) *dialogue.Engine {
	t.Helper()
	return dialogue.New(corpus.Open(mem),
		dialogue.WithRand(rand.New(rand.NewPCG(7, 7))),
		dialogue.WithThesaurus(thesaurus.Empty()),
	)
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_Understand_Command(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory())

	result, err := mcpUnderstand(e)(context.Background(), makeCallToolRequest("understand", map[string]interface{}{
		"text": "play music now",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var got UnderstandResponse
	if err := json.Unmarshal([]byte(toolText(t, result)), &got); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if got.CommandType != "music" || got.Response != dialogue.CommandUnderstood {
		t.Errorf("result = %+v, want music command", got.Result)
	}
	if got.Turn != nil {
		t.Error("turn should be omitted when remember is false")
	}
	if n := len(e.History()); n != 0 {
		t.Errorf("history has %d turns, want 0", n)
	}
}

func TestMCPTool_Understand_Remember(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory())

	result, err := mcpUnderstand(e)(context.Background(), makeCallToolRequest("understand", map[string]interface{}{
		"text":     "hello",
		"remember": true,
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var got UnderstandResponse
	if err := json.Unmarshal([]byte(toolText(t, result)), &got); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if got.CommandType != dialogue.ChatType {
		t.Errorf("command type = %q, want chat", got.CommandType)
	}
	if got.Turn == nil || got.Turn.Input != "hello" || got.Turn.Session != e.SessionID() {
		t.Fatalf("turn = %+v, want logged hello in this session", got.Turn)
	}
	if n := len(e.History()); n != 1 {
		t.Errorf("history has %d turns, want 1", n)
	}
}

func TestMCPTool_Understand_MissingText(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory())

	result, err := mcpUnderstand(e)(context.Background(), makeCallToolRequest("understand", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for missing text")
	}
}

func TestMCPTool_Analyze(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory())

	result, err := mcpAnalyze(e)(context.Background(), makeCallToolRequest("analyze", map[string]interface{}{
		"text": "play music now",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var got struct {
		CommandType string `json:"command_type"`
		Confidence  int    `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &got); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if got.CommandType != "music" || got.Confidence <= 60 {
		t.Errorf("analysis = %+v, want music above 60", got)
	}
}

func TestMCPTool_Respond(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory())

	result, err := mcpRespond(e)(context.Background(), makeCallToolRequest("respond", map[string]interface{}{
		"tag": "greeting",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	d := corpus.DefaultIntents()
	responses := d.Intents[d.Find("greeting")].Responses
	if got := toolText(t, result); !slices.Contains(responses, got) {
		t.Errorf("response %q is not a greeting response", got)
	}

	result, _ = mcpRespond(e)(context.Background(), makeCallToolRequest("respond", map[string]interface{}{
		"tag": "no_such_tag",
	}))
	if got := toolText(t, result); got != dialogue.NoResponse {
		t.Errorf("unknown tag response = %q, want %q", got, dialogue.NoResponse)
	}
}

func TestMCPTool_AddIntent(t *testing.T) {
	mem := storage.NewMemory()
	e := newTestEngine(t, mem)

	result, err := mcpAddIntent(e)(context.Background(), makeCallToolRequest("add_intent", map[string]interface{}{
		"tag":       "weather_chat",
		"patterns":  []interface{}{"is it raining outside"},
		"responses": []interface{}{"Take an umbrella just in case!"},
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	if got := e.Respond("weather_chat"); got != "Take an umbrella just in case!" {
		t.Errorf("Respond = %q", got)
	}

	data, err := mem.Read(corpus.IntentsDoc)
	if err != nil {
		t.Fatalf("reading persisted intents: %v", err)
	}
	if !strings.Contains(string(data), "weather_chat") {
		t.Error("new intent was not persisted")
	}
}

func TestMCPTool_AddIntent_NoResponses(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory())

	result, err := mcpAddIntent(e)(context.Background(), makeCallToolRequest("add_intent", map[string]interface{}{
		"tag":      "empty",
		"patterns": []interface{}{"anything"},
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error without responses")
	}
}

func TestMCPTool_AddIntent_NotPersisted(t *testing.T) {
	mem := storage.NewMemory()
	e := newTestEngine(t, mem)
	mem.FailWrites = errors.New("disk full")

	result, err := mcpAddIntent(e)(context.Background(), makeCallToolRequest("add_intent", map[string]interface{}{
		"tag":       "farewell",
		"patterns":  []interface{}{"catch you later"},
		"responses": []interface{}{"Later!"},
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("storage failure should not be a tool error: %s", toolText(t, result))
	}
	if !strings.Contains(toolText(t, result), "not persisted") {
		t.Errorf("text = %q, want a not persisted notice", toolText(t, result))
	}
	if got := e.Respond("farewell"); got != "Later!" {
		t.Errorf("change not applied in memory: Respond = %q", got)
	}
}

func TestMCPTool_AddCommandSynonym(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory())

	result, err := mcpAddCommandSynonym(e)(context.Background(), makeCallToolRequest("add_command_synonym", map[string]interface{}{
		"canonical": "open",
		"variants":  []interface{}{"Fire Up"},
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if got := e.Normalize("fire up the browser"); got != "open" {
		t.Errorf("Normalize = %q, want open", got)
	}
}

func TestMCPTool_AddCommandPattern(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory())

	result, err := mcpAddCommandPattern(e)(context.Background(), makeCallToolRequest("add_command_pattern", map[string]interface{}{
		"type":  "lights",
		"verbs": []interface{}{"dim"},
		"nouns": []interface{}{"lamp"},
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if got := e.Understand("dim lamp").CommandType; got != "lights" {
		t.Errorf("command type = %q, want lights", got)
	}
}

func TestMCPTool_AddCommandPattern_Empty(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory())

	result, err := mcpAddCommandPattern(e)(context.Background(), makeCallToolRequest("add_command_pattern", map[string]interface{}{
		"type": "lights",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error without any verbs, nouns or phrases")
	}
}

func TestMCPTool_AddContextPattern(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory())

	result, err := mcpAddContextPattern(e)(context.Background(), makeCallToolRequest("add_context_pattern", map[string]interface{}{
		"type":     "room",
		"keywords": []interface{}{"kitchen", "hall"},
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if got := e.Context("turn on the hall light").Extra["room"]; got != "hall" {
		t.Errorf("room context = %q, want hall", got)
	}
}

func TestMCPResource_History(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory())
	e.Remember("hi", "Hello!")
	e.Remember("bye", "Goodbye!")

	contents, err := mcpResourceHistory(e)(context.Background(), makeReadResourceRequest("sage://history"))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.URI != "sage://history" || tc.MIMEType != "application/json" {
		t.Errorf("uri/mime = %q/%q", tc.URI, tc.MIMEType)
	}

	var turns []dialogue.Turn
	if err := json.Unmarshal([]byte(tc.Text), &turns); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if len(turns) != 2 || turns[0].Input != "hi" || turns[1].Input != "bye" {
		t.Errorf("turns = %+v", turns)
	}
}

func TestMCPServer_ConcurrentCalls(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory())
	understand := mcpUnderstand(e)
	addSynonym := mcpAddCommandSynonym(e)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			understand(context.Background(), makeCallToolRequest("understand", map[string]interface{}{
				"text":     "what time is it",
				"remember": true,
			}))
		}()
		go func() {
			defer wg.Done()
			addSynonym(context.Background(), makeCallToolRequest("add_command_synonym", map[string]interface{}{
				"canonical": "search",
				"variants":  []interface{}{"hunt for"},
			}))
		}()
	}
	wg.Wait()

	if n := len(e.History()); n != 20 {
		t.Errorf("history has %d turns, want 20", n)
	}
}

func TestNewMCPServer(t *testing.T) {
	if s := NewMCPServer(newTestEngine(t, storage.NewMemory()), "test"); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}
