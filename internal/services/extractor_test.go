package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

const sampleResume = `Jane Doe
jane.doe@example.com
(555) 123-4567

Professional Experience
Software Engineer at Acme Corp building Go services
Senior Engineer at Globex working on React and Node.js

Education
TU Berlin, BSc Computer Science

Skills: JavaScript, Python, React, Docker, PostgreSQL`

func newExtractorWithProviders(providers ...Provider) ResumeExtractorService {
	chain := NewProviderChain(time.Second, providers...)
	return NewResumeExtractorService(chain)
}

func TestExtractProfileRejectsShortInput(t *testing.T) {
	provider := &fakeProvider{name: "p", response: "should never be reached"}
	extractor := newExtractorWithProviders(provider)

	shortText := strings.Repeat("a", 49)
	_, err := extractor.ExtractProfile(context.Background(), shortText)

	if !errors.Is(err, ErrInsufficientText) {
		t.Fatalf("expected ErrInsufficientText, got %v", err)
	}
	if provider.calls.Load() != 0 {
		t.Errorf("no provider should be called for short input, got %d calls", provider.calls.Load())
	}
}

func TestExtractProfileAcceptsMinimumLength(t *testing.T) {
	provider := &fakeProvider{name: "p", err: errors.New("down")}
	extractor := newExtractorWithProviders(provider)

	okText := strings.Repeat("a", 50)
	profile, err := extractor.ExtractProfile(context.Background(), okText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile == nil {
		t.Fatal("expected a profile from the manual fallback")
	}
	if provider.calls.Load() != 1 {
		t.Errorf("expected exactly 1 provider call, got %d", provider.calls.Load())
	}
}

func TestExtractProfileFromFencedJSON(t *testing.T) {
	response := "```json\n" + `{
		"personalInfo": {"name": "Jane Doe", "email": "jane.doe@example.com", "phone": "555-123-4567", "location": "Berlin"},
		"summary": "Engineer",
		"skills": ["Go", "React"],
		"experience": [{"company": "Acme", "position": "Engineer", "duration": "2020-2024", "description": "Backend", "technologies": ["Go"]}]
	}` + "\n```"

	provider := &fakeProvider{name: "p", response: response}
	extractor := newExtractorWithProviders(provider)

	profile, err := extractor.ExtractProfile(context.Background(), sampleResume)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if profile.PersonalInfo.Name != "Jane Doe" {
		t.Errorf("unexpected name: %q", profile.PersonalInfo.Name)
	}
	if len(profile.Skills) != 2 {
		t.Errorf("unexpected skills: %v", profile.Skills)
	}
	// Missing top-level fields must be backfilled
	if profile.Education == nil || profile.Projects == nil {
		t.Error("missing array fields should be backfilled, not nil")
	}
}

func TestExtractProfileAdvancesOnUnparseableResponse(t *testing.T) {
	garbage := &fakeProvider{name: "garbage", response: "I could not find any structured data, sorry!"}
	good := &fakeProvider{name: "good", response: `{"personalInfo": {"name": "Jane Doe"}, "skills": ["Go"]}`}

	extractor := newExtractorWithProviders(garbage, good)

	profile, err := extractor.ExtractProfile(context.Background(), sampleResume)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.PersonalInfo.Name != "Jane Doe" {
		t.Errorf("expected the second provider's profile, got name %q", profile.PersonalInfo.Name)
	}
}

func TestExtractProfileManualFallbackNeverFails(t *testing.T) {
	down := &fakeProvider{name: "down", err: errors.New("service unavailable")}
	alsoDown := &fakeProvider{name: "also-down", err: errors.New("timeout")}

	extractor := newExtractorWithProviders(down, alsoDown)

	profile, err := extractor.ExtractProfile(context.Background(), sampleResume)
	if err != nil {
		t.Fatalf("expected the manual fallback, got error: %v", err)
	}
	if profile == nil {
		t.Fatal("expected a non-nil profile")
	}

	if profile.Skills == nil || profile.Experience == nil || profile.Education == nil || profile.Projects == nil {
		t.Error("all array fields must be present on the fallback profile")
	}

	if profile.PersonalInfo.Email != "jane.doe@example.com" {
		t.Errorf("expected the email to be found, got %q", profile.PersonalInfo.Email)
	}
	if profile.PersonalInfo.Phone == "" {
		t.Error("expected the phone number to be found")
	}
	if profile.PersonalInfo.Name != "Jane Doe" {
		t.Errorf("expected the name to be found, got %q", profile.PersonalInfo.Name)
	}
	if len(profile.Skills) == 0 {
		t.Error("expected known skills to be detected")
	}
}

func TestExtractProfileManualFallbackOnEmptyChain(t *testing.T) {
	extractor := newExtractorWithProviders()

	profile, err := extractor.ExtractProfile(context.Background(), sampleResume)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile == nil {
		t.Fatal("expected a non-nil profile with no providers configured")
	}
}

func TestManualParseSectionCaps(t *testing.T) {
	var b strings.Builder
	b.WriteString("John Smith\n")
	b.WriteString("Professional Experience\n")
	for i := 0; i < 6; i++ {
		b.WriteString("Worked on distributed systems at a large firm\n")
	}
	b.WriteString("Education\n")
	for i := 0; i < 4; i++ {
		b.WriteString("Studied computer science with honors and distinction\n")
	}

	profile := parseResumeManually(b.String())

	if len(profile.Experience) != 3 {
		t.Errorf("expected experience capped at 3, got %d", len(profile.Experience))
	}
	if len(profile.Education) != 2 {
		t.Errorf("expected education capped at 2, got %d", len(profile.Education))
	}
}

func TestBuildExtractionPromptCutsOnRuneBoundary(t *testing.T) {
	// A two-byte rune straddling the cap must be dropped whole, not split.
	text := strings.Repeat("a", promptTextCap-1) + "éé"

	prompt := buildExtractionPrompt(text)

	if !utf8.ValidString(prompt) {
		t.Error("truncated prompt contains invalid UTF-8")
	}
	if strings.Contains(prompt, "é") {
		t.Error("expected the straddling rune to be dropped")
	}
}
