package gemini

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestResumeParser(t *testing.T) {
	stub := &stubGenerator{text: "```json\n" + `{
		"summary": "  Frontend engineer  ",
		"skills": ["React", " TypeScript ", "react", ""],
		"experience": ["Built scalable React apps in 2023"]
	}` + "\n```"}
	p := NewResumeParser(stub, zap.NewNop())

	got, err := p.ParseResume(context.Background(), "  Jane Doe, frontend engineer  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Summary != "Frontend engineer" {
		t.Fatalf("unexpected summary %q", got.Summary)
	}
	if want := []string{"React", "TypeScript"}; !reflect.DeepEqual(got.Skills, want) {
		t.Fatalf("expected skills %v, got %v", want, got.Skills)
	}
	if want := []string{"Built scalable React apps in 2023"}; !reflect.DeepEqual(got.Experience, want) {
		t.Fatalf("expected experience %v, got %v", want, got.Experience)
	}

	if stub.lastSystem != resumePrompt || !strings.Contains(resumePrompt, `"experience"`) {
		t.Fatalf("expected resume prompt as system instruction")
	}
	if stub.lastMessage != "Resume:\nJane Doe, frontend engineer" {
		t.Fatalf("unexpected message %q", stub.lastMessage)
	}
}

func TestResumeParserMissingListsAreEmpty(t *testing.T) {
	p := NewResumeParser(&stubGenerator{text: `{"summary": "Designer"}`}, nil)

	got, err := p.ParseResume(context.Background(), "resume")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Skills == nil || got.Experience == nil {
		t.Fatalf("expected non-nil lists, got %+v", got)
	}
}

func TestJobParser(t *testing.T) {
	stub := &stubGenerator{text: `{
		"requiredSkills": ["React", "Node.js", "React"],
		"preferredSkills": ["GraphQL"],
		"seniority": " Senior ",
		"keywords": ["fintech", " "]
	}`}
	p := NewJobParser(stub, zap.NewNop())

	got, err := p.ParseJob(context.Background(), "We need a senior React developer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := []string{"React", "Node.js"}; !reflect.DeepEqual(got.RequiredSkills, want) {
		t.Fatalf("expected required %v, got %v", want, got.RequiredSkills)
	}
	if want := []string{"GraphQL"}; !reflect.DeepEqual(got.PreferredSkills, want) {
		t.Fatalf("expected preferred %v, got %v", want, got.PreferredSkills)
	}
	if got.Seniority != "senior" {
		t.Fatalf("unexpected seniority %q", got.Seniority)
	}
	if want := []string{"fintech"}; !reflect.DeepEqual(got.Keywords, want) {
		t.Fatalf("expected keywords %v, got %v", want, got.Keywords)
	}
	if stub.lastSystem != jobPrompt {
		t.Fatalf("expected job prompt as system instruction")
	}
	if !strings.HasPrefix(stub.lastMessage, "Job description:\n") {
		t.Fatalf("unexpected message %q", stub.lastMessage)
	}
}

func TestParserErrors(t *testing.T) {
	t.Run("blank text is not sent", func(t *testing.T) {
		stub := &stubGenerator{text: "{}"}
		_, err := NewJobParser(stub, nil).ParseJob(context.Background(), " \n ")
		if !errors.Is(err, ErrEmptyText) {
			t.Fatalf("expected ErrEmptyText, got %v", err)
		}
		if stub.calls != 0 {
			t.Fatalf("expected no generation, got %d calls", stub.calls)
		}
	})

	t.Run("generator failure", func(t *testing.T) {
		_, err := NewResumeParser(&stubGenerator{err: errors.New("quota")}, nil).ParseResume(context.Background(), "resume")
		if err == nil || !strings.Contains(err.Error(), "quota") {
			t.Fatalf("expected generator error, got %v", err)
		}
	})

	t.Run("not json", func(t *testing.T) {
		_, err := NewJobParser(&stubGenerator{text: "Sorry, I cannot help"}, nil).ParseJob(context.Background(), "job")
		if err == nil || !strings.Contains(err.Error(), "decode model response") {
			t.Fatalf("expected decode error, got %v", err)
		}
	})
}
