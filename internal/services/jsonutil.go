package services

import "strings"

// ExtractJSON recovers a JSON object or array from LLM output that may wrap
// it in markdown code fences or surrounding prose. It returns the first
// balanced object/array found, or the input unchanged when none is.
func ExtractJSON(text string) string {
	// Remove markdown code blocks
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	if candidate := extractBalanced(text, '{', '}'); candidate != "" {
		return candidate
	}
	if candidate := extractBalanced(text, '[', ']'); candidate != "" {
		return candidate
	}

	// Last resort: widest object/array span, the way a lenient reader would
	startObj := strings.Index(text, "{")
	endObj := strings.LastIndex(text, "}")
	if startObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	}

	startArr := strings.Index(text, "[")
	endArr := strings.LastIndex(text, "]")
	if startArr != -1 && endArr > startArr {
		return text[startArr : endArr+1]
	}

	return text
}

// extractBalanced scans for the first occurrence of open and returns the
// substring through its matching close, tracking string literals and escapes
// so braces inside values don't break the count.
func extractBalanced(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}

	return ""
}
