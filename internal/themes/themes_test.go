package themes

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/mfields/doctheme/internal/llm"
	"github.com/mfields/doctheme/internal/retrieval"
)

func TestParseResponse_CleanJSON(t *testing.T) {
	raw := `{"Theme 1": {"summary": "x", "docs": ["D1"]}}`
	result := ParseResponse(raw)
	if !result.OK() {
		t.Fatalf("expected ok result, got error %q", result.Err)
	}
	want := map[string]Theme{"Theme 1": {Summary: "x", Docs: []string{"D1"}}}
	if !reflect.DeepEqual(result.Themes, want) {
		t.Errorf("expected %v, got %v", want, result.Themes)
	}
}

func TestParseResponse_RecoversFromSurroundingProse(t *testing.T) {
	raw := "Here you go:\n{\"Theme 1\": {\"summary\": \"x\", \"docs\": [\"D1\"]}}\nThanks!"
	result := ParseResponse(raw)
	if !result.OK() {
		t.Fatalf("expected ok result, got error %q", result.Err)
	}
	theme, ok := result.Themes["Theme 1"]
	if !ok {
		t.Fatalf("expected Theme 1 key, got %v", result.Themes)
	}
	if theme.Summary != "x" || !reflect.DeepEqual(theme.Docs, []string{"D1"}) {
		t.Errorf("unexpected theme: %+v", theme)
	}
}

func TestParseResponse_RecoversFromCodeFence(t *testing.T) {
	raw := "```json\n{\"Theme 1\": {\"summary\": \"s\", \"docs\": []}}\n```"
	result := ParseResponse(raw)
	if !result.OK() {
		t.Fatalf("expected ok result, got error %q", result.Err)
	}
}

func TestParseResponse_FailureCarriesRawOutput(t *testing.T) {
	raw := "I could not find any themes, sorry."
	result := ParseResponse(raw)
	if result.OK() {
		t.Fatal("expected error variant")
	}
	if result.Raw != raw {
		t.Errorf("expected raw output preserved, got %q", result.Raw)
	}
}

func TestParseResponse_MalformedBracesFail(t *testing.T) {
	raw := "prefix { not json at all } suffix"
	result := ParseResponse(raw)
	if result.OK() {
		t.Fatal("expected error variant")
	}
	if result.Raw != raw {
		t.Errorf("expected raw output preserved, got %q", result.Raw)
	}
}

func TestResult_MarshalJSON(t *testing.T) {
	ok := Result{Themes: map[string]Theme{"T": {Summary: "s", Docs: []string{"d"}}}}
	data, err := json.Marshal(ok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), `"summary":"s"`) {
		t.Errorf("unexpected marshal: %s", data)
	}

	bad := Result{Err: "failed to parse model output", Raw: "junk"}
	data, err = json.Marshal(bad)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded["error"] == "" || decoded["raw_output"] != "junk" {
		t.Errorf("unexpected error marshal: %v", decoded)
	}
}

func TestBuildPrompt_FramesExcerptsWithDocIDs(t *testing.T) {
	excerpts := []retrieval.Excerpt{
		{Text: "  alpha text  ", DocID: "docA"},
		{Text: "beta text", DocID: "docB"},
	}
	prompt := BuildPrompt(excerpts, "what changed?")

	if !strings.Contains(prompt, "Excerpt 1 (Doc: docA): alpha text") {
		t.Errorf("expected framed first excerpt, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Excerpt 2 (Doc: docB): beta text") {
		t.Errorf("expected framed second excerpt, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "User Query: what changed?") {
		t.Error("expected user query in prompt")
	}
	if !strings.Contains(prompt, `"docs"`) {
		t.Error("expected JSON format instructions")
	}
}

func TestBuildPrompt_CapsExcerpts(t *testing.T) {
	var excerpts []retrieval.Excerpt
	for i := 0; i < 30; i++ {
		excerpts = append(excerpts, retrieval.Excerpt{Text: "t", DocID: "d"})
	}
	prompt := BuildPrompt(excerpts, "")
	if strings.Contains(prompt, "Excerpt 21") {
		t.Error("prompt must stop at the excerpt cap")
	}
	if !strings.Contains(prompt, "Excerpt 20") {
		t.Error("prompt should include the final capped excerpt")
	}
}

type fakeCompleter struct {
	calls    int
	response string
	err      error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	f.calls++
	return f.response, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIdentify_EmptyExcerptsSkipsLLM(t *testing.T) {
	fake := &fakeCompleter{}
	e := NewEngine(nil, nil, fake, 384, testLogger())

	result, err := e.Identify(context.Background(), nil, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK() {
		t.Fatal("expected error variant for empty excerpts")
	}
	if fake.calls != 0 {
		t.Errorf("completion capability must not be called, got %d calls", fake.calls)
	}
}

func TestIdentify_ParsesCompletion(t *testing.T) {
	fake := &fakeCompleter{response: `{"Theme 1": {"summary": "x", "docs": ["D1"]}}`}
	e := NewEngine(nil, nil, fake, 384, testLogger())

	result, err := e.Identify(context.Background(), []retrieval.Excerpt{{Text: "t", DocID: "D1"}}, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK() {
		t.Fatalf("expected ok result, got %q", result.Err)
	}
	if fake.calls != 1 {
		t.Errorf("expected exactly one completion call, got %d", fake.calls)
	}
}

func TestIdentify_MalformedCompletionIsValueNotError(t *testing.T) {
	fake := &fakeCompleter{response: "no json here"}
	e := NewEngine(nil, nil, fake, 384, testLogger())

	result, err := e.Identify(context.Background(), []retrieval.Excerpt{{Text: "t", DocID: "D1"}}, "", "")
	if err != nil {
		t.Fatalf("malformed output must not be a Go error: %v", err)
	}
	if result.OK() {
		t.Fatal("expected error variant")
	}
	if result.Raw != "no json here" {
		t.Errorf("expected raw output preserved, got %q", result.Raw)
	}
}
