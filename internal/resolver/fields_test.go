package resolver

import (
	"context"
	"errors"
	"testing"
)

// fakeProvider replays canned completions.
type fakeProvider struct {
	content  string
	err      error
	requests []CompletionRequest
}

func (p *fakeProvider) Name() string             { return "fake" }
func (p *fakeProvider) SupportsJSONSchema() bool { return true }

func (p *fakeProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return CompletionResponse{}, p.err
	}
	return CompletionResponse{Content: p.content}, nil
}

const loginPageHTML = `<html><body>
	<form id="login">
		<input type="email" name="user_email">
		<input type="password" name="user_password">
		<button type="submit">Ingresar</button>
	</form>
</body></html>`

// --- ResolveFormFields Tests ---

func TestClient_ResolveFormFields(t *testing.T) {
	provider := &fakeProvider{content: `{
		"email": "input[type='email']",
		"password": "input[type='password']",
		"submit": "button[type='submit']"
	}`}
	c := NewClient(provider)

	fields, err := c.ResolveFormFields(context.Background(), loginPageHTML,
		[]string{"email", "password", "submit"})
	if err != nil {
		t.Fatalf("ResolveFormFields() error: %v", err)
	}

	for _, name := range []string{"email", "password", "submit"} {
		f := fields[name]
		if f.Kind != FieldSingle {
			t.Errorf("field %q: expected FieldSingle, got %v", name, f.Kind)
		}
		if f.Count != 1 {
			t.Errorf("field %q: expected count 1, got %d", name, f.Count)
		}
	}

	if len(provider.requests) != 1 {
		t.Fatalf("expected 1 completion request, got %d", len(provider.requests))
	}
	if provider.requests[0].JSONSchema == nil {
		t.Error("field resolution should constrain the response with a schema")
	}
}

func TestClient_ResolveFormFields_UnverifiableSelector(t *testing.T) {
	provider := &fakeProvider{content: `{
		"email": "input#does-not-exist",
		"password": "",
		"submit": "button"
	}`}
	c := NewClient(provider)

	fields, err := c.ResolveFormFields(context.Background(), loginPageHTML,
		[]string{"email", "password", "submit"})
	if err != nil {
		t.Fatalf("ResolveFormFields() error: %v", err)
	}

	if fields["email"].Kind != FieldUnresolved {
		t.Error("a selector matching nothing should come back unresolved")
	}
	if fields["password"].Kind != FieldUnresolved {
		t.Error("an empty selector should come back unresolved")
	}
	if fields["submit"].Kind != FieldSingle {
		t.Errorf("expected submit resolved, got %v", fields["submit"].Kind)
	}
}

func TestClient_ResolveFormFields_CollectionTagged(t *testing.T) {
	provider := &fakeProvider{content: `{"email": "input"}`}
	c := NewClient(provider)

	fields, err := c.ResolveFormFields(context.Background(), loginPageHTML, []string{"email"})
	if err != nil {
		t.Fatalf("ResolveFormFields() error: %v", err)
	}

	f := fields["email"]
	if f.Kind != FieldCollection {
		t.Errorf("a multi-match selector should tag as collection, got %v", f.Kind)
	}
	if f.Count != 2 {
		t.Errorf("expected count 2, got %d", f.Count)
	}
}

func TestClient_ResolveFormFields_FencedJSON(t *testing.T) {
	provider := &fakeProvider{content: "```json\n{\"email\": \"input[type='email']\"}\n```"}
	c := NewClient(provider)

	fields, err := c.ResolveFormFields(context.Background(), loginPageHTML, []string{"email"})
	if err != nil {
		t.Fatalf("ResolveFormFields() should tolerate fenced JSON: %v", err)
	}
	if fields["email"].Kind != FieldSingle {
		t.Errorf("expected FieldSingle, got %v", fields["email"].Kind)
	}
}

func TestClient_ResolveFormFields_ProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("rate limited")}
	c := NewClient(provider)

	if _, err := c.ResolveFormFields(context.Background(), loginPageHTML, []string{"email"}); err == nil {
		t.Fatal("provider failure should propagate")
	}
}

func TestClient_ResolveFormFields_MalformedJSON(t *testing.T) {
	provider := &fakeProvider{content: "not json at all"}
	c := NewClient(provider)

	if _, err := c.ResolveFormFields(context.Background(), loginPageHTML, []string{"email"}); err == nil {
		t.Fatal("malformed provider output should propagate")
	}
}

// --- stripFences Tests ---

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- clipHTML Tests ---

func TestClipHTML(t *testing.T) {
	if got := clipHTML("corto", 100); got != "corto" {
		t.Errorf("short input should pass through, got %q", got)
	}
	if got := clipHTML("abcdef", 3); got != "abc" {
		t.Errorf("long input should clip, got %q", got)
	}
}
