package assistant

import (
	"context"
	"strings"
	"testing"
)

func TestGenerateWithoutAPIKeyUsesLocalReplies(t *testing.T) {
	svc := NewService(ServiceConfig{})

	res, err := svc.Generate(context.Background(), "how does the exam timer work?")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Source != "local" {
		t.Fatalf("source = %q, want local", res.Source)
	}
	if !strings.Contains(res.Reply, "timer") {
		t.Fatalf("reply should mention the timer: %q", res.Reply)
	}
}

func TestGenerateRejectsEmptyQuery(t *testing.T) {
	svc := NewService(ServiceConfig{})
	if _, err := svc.Generate(context.Background(), "   "); err == nil {
		t.Fatal("empty query should fail")
	}
}

func TestGenerateRejectsOversizedQuery(t *testing.T) {
	svc := NewService(ServiceConfig{})
	if _, err := svc.Generate(context.Background(), strings.Repeat("a", 1300)); err == nil {
		t.Fatal("oversized query should fail")
	}
}
