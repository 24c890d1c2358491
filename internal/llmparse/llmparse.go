// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

// Package llmparse holds the tolerant-parsing helpers shared by every
// component that extracts structured data from free-form LLM output:
// intent classification, plan construction, SQL generation, and board
// visualization all ask an LLM for JSON or a
// fenced code block and must not crash on a model that almost, but not
// quite, followed instructions.
package llmparse

import (
	"fmt"
	"strings"
)

// ExtractJSONObject strips an optional ``` fence and returns the first
// balanced {...} span in s. LLMs routinely wrap JSON in markdown fences or
// prepend commentary; this mirrors the tolerant extraction every node that
// parses model output performs before unmarshaling.
func ExtractJSONObject(s string) (string, error) {
	s = stripFence(s)

	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("no balanced JSON object found in response")
}

// stripFence removes a leading/trailing ```  or ```json fence, if present.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	// drop the opening fence line (``` or ```json)
	lines = lines[1:]
	// drop a trailing fence line if present
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ExtractFencedBlock returns the contents of the first fenced code block
// (optionally tagged with lang, e.g. "sql"), or the trimmed input
// unchanged if no fence is present. Used for SQL extraction, which may
// come back bare or fenced depending on the model.
func ExtractFencedBlock(s string, lang string) string {
	trimmed := strings.TrimSpace(s)
	open := "```" + lang
	idx := strings.Index(trimmed, open)
	if idx == -1 {
		open = "```"
		idx = strings.Index(trimmed, open)
		if idx == -1 {
			return trimmed
		}
	}
	rest := trimmed[idx+len(open):]
	end := strings.Index(rest, "```")
	if end == -1 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:end])
}

// OneOf returns value if it is present (case-insensitively) in allowed,
// else it returns fallback. This is the "map unknown enum values to a
// safe default rather than failing" rule applied uniformly to every enum
// field parsed out of LLM JSON (intent.type, step.agent, action_type...).
func OneOf(value string, fallback string, allowed ...string) string {
	lower := strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if strings.ToLower(a) == lower {
			return a
		}
	}
	return fallback
}
