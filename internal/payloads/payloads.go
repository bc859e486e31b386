// Package payloads reads the loosely shaped JSON bodies returned by the backend.
// Different deployments put the same value under different keys, so every lookup
// is expressed as an ordered list of candidate paths and the first hit wins.
package payloads

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
)

// Path is a list of object keys leading to a value, e.g. {"data", "token"}.
type Path []string

// ParsePaths turns dotted notations like "data.access_token" into paths.
func ParsePaths(dotted ...string) []Path {
	output := make([]Path, 0, len(dotted))
	for _, d := range dotted {
		output = append(output, strings.Split(d, "."))
	}
	return output
}

// FirstString returns the first non-empty string found at one of the paths.
func FirstString(body []byte, paths ...Path) (string, bool) {
	for _, path := range paths {
		value, dataType, _, err := jsonparser.Get(body, path...)
		if err != nil || dataType != jsonparser.String {
			continue
		}
		str, err := jsonparser.ParseString(value)
		if err != nil {
			continue
		}
		if str = strings.TrimSpace(str); str != "" {
			return str, true
		}
	}
	return "", false
}

// FirstValue returns the raw JSON of the first path that exists and is not null.
func FirstValue(body []byte, paths ...Path) ([]byte, jsonparser.ValueType, bool) {
	for _, path := range paths {
		value, dataType, _, err := jsonparser.Get(body, path...)
		if err != nil || dataType == jsonparser.Null || dataType == jsonparser.NotExist {
			continue
		}
		return value, dataType, true
	}
	return nil, jsonparser.NotExist, false
}

const maxRawMessageLength = 200

var messagePaths = ParsePaths("message", "error", "error.message", "detail", "msg")

// ExtractMessage returns the human readable error message of a response body.
// It falls back to the (truncated) raw body when no known field is present.
func ExtractMessage(body []byte) string {
	if message, ok := FirstString(body, messagePaths...); ok {
		return message
	}
	raw := strings.TrimSpace(string(body))
	if len(raw) > maxRawMessageLength {
		raw = raw[:maxRawMessageLength] + "..."
	}
	return raw
}

var ListKeys = []string{"data", "logs", "entries", "result", "weekly", "monthly"}
var RecordKeys = []string{"log", "entry", "data", "result"}

// ExtractArray returns the raw JSON array of a list payload. The body can be the array
// itself or an object wrapping it under one of keys. nil means no array was found.
func ExtractArray(body []byte, keys ...string) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return trimmed
	}
	for _, key := range keys {
		value, dataType, _, err := jsonparser.Get(trimmed, key)
		if err != nil {
			continue
		}
		switch dataType {
		case jsonparser.Array:
			return value
		case jsonparser.Object:
			// the list may be nested one level deeper, e.g. {"data": {"logs": [...]}}
			if nested := ExtractArray(value, keys...); nested != nil {
				return nested
			}
		}
	}
	return nil
}

// ExtractRecord returns the raw JSON object of a single record payload, unwrapping
// it from one of keys when present.
func ExtractRecord(body []byte, keys ...string) []byte {
	trimmed := bytes.TrimSpace(body)
	for _, key := range keys {
		value, dataType, _, err := jsonparser.Get(trimmed, key)
		if err == nil && dataType == jsonparser.Object {
			return value
		}
	}
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return trimmed
	}
	return nil
}

// EachObject calls fn for every object element of a raw JSON array.
func EachObject(array []byte, fn func(record []byte)) error {
	var cbErr error
	_, err := jsonparser.ArrayEach(array, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if err != nil {
			cbErr = err
			return
		}
		if dataType == jsonparser.Object {
			fn(value)
		}
	})
	if err != nil {
		return err
	}
	return cbErr
}

// FirstNumber returns the first numeric value found at one of the paths, numeric strings are accepted.
func FirstNumber(body []byte, paths ...Path) (float64, bool) {
	for _, path := range paths {
		value, dataType, _, err := jsonparser.Get(body, path...)
		if err != nil {
			continue
		}
		switch dataType {
		case jsonparser.Number:
			number, err := jsonparser.ParseFloat(value)
			if err == nil {
				return number, true
			}
		case jsonparser.String:
			number, err := strconv.ParseFloat(strings.TrimSpace(string(value)), 64)
			if err == nil {
				return number, true
			}
		}
	}
	return 0, false
}

// FirstID returns an identifier that may be encoded as a string or a number.
func FirstID(body []byte, paths ...Path) (string, bool) {
	if id, ok := FirstString(body, paths...); ok {
		return id, true
	}
	for _, path := range paths {
		value, dataType, _, err := jsonparser.Get(body, path...)
		if err == nil && dataType == jsonparser.Number {
			return string(value), true
		}
	}
	return "", false
}
