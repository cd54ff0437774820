package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

var (
	fencePattern  = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
	blocksPattern = regexp.MustCompile(`(?s)<blocks>\s*(.*?)\s*</blocks>`)
)

// ParseBlocks leniently decodes a model answer into extracted blocks. A
// JSON array yields one block per element, a JSON object yields one block
// unless it only wraps an array of objects, e.g. {"blocks": [...]}.
// Strict JSON is tried first, then a repaired version, then Hjson.
func ParseBlocks(text string) ([]json.RawMessage, error) {
	cleaned := cleanOutput(text)
	if cleaned == "" {
		return nil, fmt.Errorf("empty model output")
	}

	if blocks, err := splitBlocks([]byte(cleaned)); err == nil {
		return blocks, nil
	}

	if repaired, err := jsonrepair.RepairJSON(cleaned); err == nil {
		if blocks, err := splitBlocks([]byte(repaired)); err == nil {
			return blocks, nil
		}
	}

	var value any
	if err := hjson.Unmarshal([]byte(cleaned), &value); err != nil {
		return nil, fmt.Errorf("parsing model output: %w", err)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("re-encoding model output: %w", err)
	}
	return splitBlocks(data)
}

// cleanOutput removes markdown fences and <blocks> wrappers.
func cleanOutput(text string) string {
	text = strings.TrimSpace(text)
	if m := blocksPattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	return strings.TrimSpace(text)
}

// splitBlocks keeps element bytes untouched so object key order survives.
func splitBlocks(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	switch {
	case bytes.HasPrefix(data, []byte("[")):
		var blocks []json.RawMessage
		if err := json.Unmarshal(data, &blocks); err != nil {
			return nil, err
		}
		return blocks, nil
	case bytes.HasPrefix(data, []byte("{")):
		if blocks, ok := unwrapBlocks(data); ok {
			return blocks, nil
		}
		return []json.RawMessage{json.RawMessage(data)}, nil
	}
	return nil, fmt.Errorf("expected a JSON object or array")
}

// unwrapBlocks returns the elements of an object whose only key holds an
// array of objects. JSON response modes force a top-level object, so
// models wrap their list under a key of their choosing.
func unwrapBlocks(data []byte) ([]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || len(fields) != 1 {
		return nil, false
	}
	for _, value := range fields {
		value = bytes.TrimSpace(value)
		if !bytes.HasPrefix(value, []byte("[")) {
			return nil, false
		}
		var elements []json.RawMessage
		if err := json.Unmarshal(value, &elements); err != nil {
			return nil, false
		}
		for i, el := range elements {
			el = bytes.TrimSpace(el)
			if !bytes.HasPrefix(el, []byte("{")) {
				return nil, false
			}
			elements[i] = el
		}
		return elements, true
	}
	return nil, false
}

// errorBlock records a chunk whose output could not be parsed.
func errorBlock(index int, raw string, err error) json.RawMessage {
	b, _ := json.Marshal(map[string]any{
		"index":   index,
		"error":   true,
		"tags":    []string{"error"},
		"content": raw,
		"reason":  err.Error(),
	})
	return b
}
