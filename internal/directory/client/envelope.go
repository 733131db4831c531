package client

import (
	"bytes"

	"github.com/buger/jsonparser"
)

const successStatus = "success"

// collectionPaths are tried in order when locating the user list.
var collectionPaths = [][]string{
	{"data", "users"},
	{"users"},
	{"data"},
}

// unwrapEnvelope returns data from a {"status":"success","data":...}
// envelope and the body unchanged otherwise. Every operation decodes its
// payload through it.
func unwrapEnvelope(body []byte) []byte {
	status, err := jsonparser.GetString(body, "status")
	if err != nil || status != successStatus {
		return body
	}
	data, dataType, _, err := jsonparser.Get(body, "data")
	if err != nil {
		return body
	}
	if dataType == jsonparser.String {
		// Get strips the quotes but leaves escapes intact.
		quoted := make([]byte, 0, len(data)+2)
		quoted = append(quoted, '"')
		quoted = append(quoted, data...)
		return append(quoted, '"')
	}
	return data
}

// findCollection returns the first JSON array at data.users, users, data or
// the payload root, or nil when there is none.
func findCollection(payload []byte) []byte {
	for _, path := range collectionPaths {
		value, dataType, _, err := jsonparser.Get(payload, path...)
		if err == nil && dataType == jsonparser.Array {
			return value
		}
	}
	if trimmed := bytes.TrimSpace(payload); len(trimmed) > 0 && trimmed[0] == '[' {
		return trimmed
	}
	return nil
}

// errorMessage extracts a human message from an error body.
func errorMessage(body []byte) string {
	if msg, err := jsonparser.GetString(body, "message"); err == nil && msg != "" {
		return msg
	}
	if msg, err := jsonparser.GetString(body, "error"); err == nil && msg != "" {
		return msg
	}
	if msg, err := jsonparser.GetString(body, "error", "message"); err == nil && msg != "" {
		return msg
	}
	return ""
}

func isNull(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
