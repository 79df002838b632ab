package services

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestExtractJSONCodeFence(t *testing.T) {
	input := "```json\n{\"name\": \"Jane\"}\n```"

	got := ExtractJSON(input)
	if got != `{"name": "Jane"}` {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestExtractJSONSurroundingProse(t *testing.T) {
	input := `Sure! Here is the extracted data you asked for:

{"skills": ["Go", "Python"], "summary": "engineer"}

Let me know if you need anything else.`

	got := ExtractJSON(input)

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(got), &parsed); err != nil {
		t.Fatalf("extracted text is not valid JSON: %v\n%s", err, got)
	}
	if parsed["summary"] != "engineer" {
		t.Errorf("unexpected parse result: %v", parsed)
	}
}

func TestExtractJSONArray(t *testing.T) {
	input := `The questions are: ["one?", "two?", "three?"] as requested.`

	got := ExtractJSON(input)

	var questions []string
	if err := json.Unmarshal([]byte(got), &questions); err != nil {
		t.Fatalf("extracted text is not a valid JSON array: %v\n%s", err, got)
	}
	if len(questions) != 3 {
		t.Errorf("expected 3 elements, got %d", len(questions))
	}
}

func TestExtractJSONBracesInsideStrings(t *testing.T) {
	input := `{"feedback": "use {braces} and \"quotes\" carefully", "score": 10} trailing prose`

	got := ExtractJSON(input)

	var parsed struct {
		Feedback string  `json:"feedback"`
		Score    float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(got), &parsed); err != nil {
		t.Fatalf("extracted text is not valid JSON: %v\n%s", err, got)
	}
	if parsed.Score != 10 {
		t.Errorf("unexpected score: %v", parsed.Score)
	}
}

func TestExtractJSONNestedObject(t *testing.T) {
	input := `prefix {"outer": {"inner": [1, 2, {"deep": true}]}} suffix`

	got := ExtractJSON(input)
	if got != `{"outer": {"inner": [1, 2, {"deep": true}]}}` {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestExtractJSONNoJSONReturnsInput(t *testing.T) {
	input := "no structured data here at all"

	got := ExtractJSON(input)
	if got != input {
		t.Errorf("expected input unchanged, got %q", got)
	}
}

func FuzzExtractJSON(f *testing.F) {
	for _, seed := range []string{
		"```json\n{\"name\": \"Jane\"}\n```",
		`prose before {"outer": {"inner": [1, 2]}} prose after`,
		`["one?", "two?"] trailing`,
		`{"feedback": "a } in a \"string\""}`,
		"{unbalanced and never closed",
		"]}{[",
		"no structured data here at all",
		"",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, text string) {
		got := ExtractJSON(text)

		// The result is always the fence-stripped input or a slice of it.
		stripped := strings.ReplaceAll(text, "```json", "")
		stripped = strings.ReplaceAll(stripped, "```", "")
		stripped = strings.TrimSpace(stripped)

		if !strings.Contains(stripped, got) {
			t.Errorf("result %q is not a substring of the stripped input %q", got, stripped)
		}
	})
}
