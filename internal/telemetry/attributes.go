// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by arbitration and broadcast spans.
const (
	EventKindKey       = "event.kind"
	EventPriorityKey   = "event.priority"
	EventBallisticKey  = "event.ballistic"
	MessageIDKey       = "message.id"
	MessageSequenceKey = "message.sequence"
	SubscriberKey      = "subscriber.name"
	CycleKey           = "arbitrator.cycle"

	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// EventAttributes describes the event a span handles.
func EventAttributes(kind string, priority int, ballistic bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(EventKindKey, kind),
		attribute.Int(EventPriorityKey, priority),
		attribute.Bool(EventBallisticKey, ballistic),
	}
}

// MessageAttributes identifies a message; zero values are omitted.
func MessageAttributes(id string, sequence uint64) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if id != "" {
		attrs = append(attrs, attribute.String(MessageIDKey, id))
	}
	if sequence != 0 {
		attrs = append(attrs, attribute.Int64(MessageSequenceKey, int64(sequence)))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(err error, errorType string) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	attrs := []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String("error.message", err.Error()),
	}
	if errorType != "" {
		attrs = append(attrs, attribute.String(ErrorTypeKey, errorType))
	}
	return attrs
}

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int(HTTPStatusCodeKey, statusCode))
	}
	return attrs
}
