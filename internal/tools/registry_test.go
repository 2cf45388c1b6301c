package tools

import (
	"errors"
	"testing"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if n := len(reg.Listed()); n != 0 {
		t.Errorf("new registry should be empty, got %d tools", n)
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	tool := &Tool{ID: Chat, Name: "AI Chatbot", Category: CategoryAssistant, Available: true}
	if err := reg.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got := reg.Get(Chat)
	if got == nil {
		t.Fatal("Get returned nil for registered tool")
	}
	if got.Name != "AI Chatbot" {
		t.Errorf("got name %q, want %q", got.Name, "AI Chatbot")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	tool := &Tool{ID: Salary, Name: "Salary"}

	if err := reg.Register(tool); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := reg.Register(tool); !errors.Is(err, ErrToolAlreadyRegistered) {
		t.Fatalf("expected ErrToolAlreadyRegistered, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name    string
		tool    *Tool
		wantErr error
	}{
		{name: "unknown id", tool: &Tool{ID: Unknown, Name: "x"}, wantErr: ErrToolIDUnknown},
		{name: "empty name", tool: &Tool{ID: Car}, wantErr: ErrToolNameEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := reg.Register(tt.tool); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()

	listed := reg.Listed()
	want := []ToolID{Chat, Sentiment, Salary, Retail, Weather, Car, Robot, ImageAI, CodeHelper}
	if len(listed) != len(want) {
		t.Fatalf("expected %d listed tools, got %d", len(want), len(listed))
	}
	for i, id := range want {
		if listed[i].ID != id {
			t.Errorf("listed[%d] = %s, want %s", i, listed[i].ID, id)
		}
	}

	if reg.Get(ImageAI).Available || reg.Get(CodeHelper).Available {
		t.Error("Image AI and Code Helper are announced, not available")
	}
	if !reg.Has(Profile) {
		t.Error("profile pseudo-tool must be registered")
	}
}

func TestResolve(t *testing.T) {
	reg := DefaultRegistry()

	got, err := reg.Resolve(Sentiment.String())
	if err != nil {
		t.Fatalf("Resolve(%q): %v", Sentiment.String(), err)
	}
	if got.Name != "Sentiment Analyzer" {
		t.Errorf("got name %q, want %q", got.Name, "Sentiment Analyzer")
	}

	for _, name := range []string{"teleporter", "", "unknown"} {
		if _, err := reg.Resolve(name); !errors.Is(err, ErrToolNotFound) {
			t.Errorf("Resolve(%q) = %v, want ErrToolNotFound", name, err)
		}
	}

	if _, err := NewRegistry().Resolve("chat"); !errors.Is(err, ErrToolNotFound) {
		t.Errorf("empty registry must not resolve chat, got %v", err)
	}
}

func TestLookupFallsBackToPlaceholder(t *testing.T) {
	reg := DefaultRegistry()

	got := reg.Lookup(ToolID(999))
	if got.Available {
		t.Error("placeholder must not be available")
	}
	if got.Description != "Coming soon!" {
		t.Errorf("unexpected placeholder description %q", got.Description)
	}
	if reg.Lookup(Weather).Name != "Weather Predictor" {
		t.Error("registered tools resolve to themselves")
	}
}

func TestParseID(t *testing.T) {
	tests := map[string]ToolID{
		"chat":        Chat,
		" Salary ":    Salary,
		"image-ai":    ImageAI,
		"coming2":     CodeHelper,
		"profile":     Profile,
		"teleporter":  Unknown,
		"":            Unknown,
		"code-helper": CodeHelper,
	}
	for in, want := range tests {
		if got := ParseID(in); got != want {
			t.Errorf("ParseID(%q) = %s, want %s", in, got, want)
		}
	}
	for id := range idNames {
		if ParseID(id.String()) != id {
			t.Errorf("String/ParseID disagree for %s", id)
		}
	}
}
