// Package http serves the categories page API.
//
// This file implements the Builder Pattern for constructing responses. It
// provides a fluent API for building HX-Trigger headers and JSON bodies so
// every handler reports results and toasts the same way.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"kasa/internal/core"
)

// Client-side events carried in HX-Trigger.
const (
	EventShowNotification     = "show-notification"
	EventCategoriesChanged    = "categories:changed"
	EventNotificationsChanged = "notifications:changed"
	EventViewChanged          = "view:changed"
)

// Toast durations in milliseconds.
const (
	toastShort = 3000
	toastLong  = 5000
)

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       any
	headers    map[string]string
}

// NewResponse creates a response builder with a 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event with optional data to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

func (b *ResponseBuilder) TriggerCategoriesChanged() *ResponseBuilder {
	return b.Trigger(EventCategoriesChanged, struct{}{})
}

func (b *ResponseBuilder) TriggerNotificationsChanged(unread int) *ResponseBuilder {
	return b.Trigger(EventNotificationsChanged, map[string]int{"unread": unread})
}

func (b *ResponseBuilder) TriggerViewChanged(page int) *ResponseBuilder {
	return b.Trigger(EventViewChanged, map[string]int{"page": page})
}

// TriggerNotification adds a show-notification toast.
func (b *ResponseBuilder) TriggerNotification(typ core.NotificationType, message string, durationMs int) *ResponseBuilder {
	return b.Trigger(EventShowNotification, map[string]any{
		"type":     string(typ),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *ResponseBuilder) TriggerSuccessNotification(message string) *ResponseBuilder {
	return b.TriggerNotification(core.NotificationSuccess, message, toastShort)
}

func (b *ResponseBuilder) TriggerErrorNotification(message string) *ResponseBuilder {
	return b.TriggerNotification(core.NotificationError, message, toastLong)
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets v as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates a JSON error response without a toast.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// FailedAction reports a failed user action: the status follows the error
// kind and a toast carries the user-facing message.
func FailedAction(err error) *ResponseBuilder {
	msg, typ := core.Describe(err)
	body := errorBody{Error: msg}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}

	b := NewResponse().
		Status(statusFor(err)).
		JSON(body).
		TriggerNotification(typ, msg, toastLong)
	if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrConflict) {
		b.TriggerCategoriesChanged()
	}
	return b
}

func statusFor(err error) int {
	switch {
	case core.IsValidationError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
