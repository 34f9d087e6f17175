// Package http serves the categories page API.
//
// This file implements utilities for parsing request bodies. Handlers accept
// both JSON and form-encoded bodies, the latter being what HTMX sends.
package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"kasa/internal/core"
	"kasa/internal/view"
)

// maxBodyBytes bounds request bodies; every payload is a handful of fields.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles JSON and form-encoded bodies behind one lookup API.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once and keeps it for parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like an object, otherwise as
// form values.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Has reports whether key was sent, even with an empty value.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns the sanitized, trimmed value of key.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Bool parses key as a boolean. Checkbox-style "on" counts as true.
func (p *RequestBodyParser) Bool(key string) (bool, error) {
	v := strings.ToLower(p.Get(key))
	switch v {
	case "on", "yes":
		return true, nil
	case "", "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false", key)
	}
	return b, nil
}

func (p *RequestBodyParser) Int(key string) (int, error) {
	n, err := strconv.Atoi(p.Get(key))
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return n, nil
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseBodyOrFail parses the request body and returns an error response on
// failure. Returns nil on success.
func ParseBodyOrFail(p *RequestBodyParser) *ResponseBuilder {
	if err := p.Parse(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}

// categoryInput reads the editable category fields. Normalization and
// validation happen in the app layer.
func categoryInput(p *RequestBodyParser) core.CategoryInput {
	return core.CategoryInput{
		Name:  p.Get("name"),
		Type:  core.CategoryType(p.Get("type")),
		Color: p.Get("color"),
	}
}

// filterFrom applies the filter fields present in p to current. Absent fields
// keep their value.
func filterFrom(p *RequestBodyParser, current view.Filter) (view.Filter, error) {
	f := current
	if p.Has("type") {
		t, ok := view.ParseTypeFilter(p.Get("type"))
		if !ok {
			return f, fmt.Errorf("unknown type filter %q", p.Get("type"))
		}
		f.Type = t
	}
	if p.Has("usage") {
		u, ok := view.ParseUsageFilter(p.Get("usage"))
		if !ok {
			return f, fmt.Errorf("unknown usage filter %q", p.Get("usage"))
		}
		f.Usage = u
	}
	if p.Has("origin") {
		o, ok := view.ParseOriginFilter(p.Get("origin"))
		if !ok {
			return f, fmt.Errorf("unknown origin filter %q", p.Get("origin"))
		}
		f.Origin = o
	}
	if p.Has("search") {
		f.Search = p.Get("search")
	}
	if p.Has("sort") {
		f.Sort = view.ParseSortOrder(p.Get("sort"))
	}
	return f, nil
}
