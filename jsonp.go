package main

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Several endpoints wrap their JSON envelope in a JSONP callback, e.g.
// jQuery1234567({"code":200,...}). stripCallback peels the wrapper off; a
// body that is already bare JSON passes through untouched.
func stripCallback(body []byte) ([]byte, error) {
	start := bytes.IndexByte(body, '{')
	end := bytes.LastIndexByte(body, '}')
	if start == -1 || end == -1 || end < start {
		return nil, errors.New("no JSON object in body")
	}
	return body[start : end+1], nil
}

// decodeEnvelope parses a JSON or JSONP-wrapped response body into v.
// Malformed bodies come back as a ProtocolError carrying a bounded snippet.
func decodeEnvelope(endpoint string, body []byte, v any) error {
	raw, err := stripCallback(body)
	if err != nil {
		return NewProtocolError(endpoint, body, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return NewProtocolError(endpoint, body, err)
	}
	return nil
}
