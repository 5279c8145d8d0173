package api

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/telemetry"
	"github.com/tidwall/gjson"
)

// HandlerFunc handles one inbound event; data is the raw "data" object
type HandlerFunc func(ctx context.Context, c *Client, data []byte) error

type route struct {
	handler  HandlerFunc
	scope    SessionScope
	required []models.Permission
}

// Router dispatches inbound frames to event handlers
type Router struct {
	routes  map[string]route
	guard   *Guard
	metrics *telemetry.GatewayMetrics
}

// NewRouter creates an empty router
func NewRouter(guard *Guard, metrics *telemetry.GatewayMetrics) *Router {
	return &Router{
		routes:  make(map[string]route),
		guard:   guard,
		metrics: metrics,
	}
}

// Handle registers a handler; required lists the permissions of which the
// caller must hold at least one
func (r *Router) Handle(event string, handler HandlerFunc, required ...models.Permission) {
	r.routes[event] = route{handler: handler, scope: ScopeJoined, required: required}
}

// HandleForSession registers a handler that acts on the session named by its
// payload rather than the joined one
func (r *Router) HandleForSession(event string, handler HandlerFunc, required ...models.Permission) {
	r.routes[event] = route{handler: handler, scope: ScopePayload, required: required}
}

// Events returns the number of registered events
func (r *Router) Events() int {
	return len(r.routes)
}

// Dispatch decodes a frame and runs its handler
func (r *Router) Dispatch(c *Client, message []byte) {
	if !gjson.ValidBytes(message) {
		c.Emit(EventError, errorPayload{Message: "Invalid message format"})
		return
	}

	event := gjson.GetBytes(message, "event").String()
	data := []byte("{}")
	if v := gjson.GetBytes(message, "data"); v.Exists() && v.IsObject() {
		data = []byte(v.Raw)
	}

	c.logger.Debug("[wsmsg] Received event=%s size=%d", slogging.SanitizeLogMessage(event), len(message))

	rt, ok := r.routes[event]
	if !ok {
		c.Emit(EventError, errorPayload{Message: fmt.Sprintf("Unsupported event: %s", event)})
		return
	}

	r.run(context.Background(), c, event, rt, data)
}

// run wraps every handler: guard denials, returned errors and panics become a
// self-only error event and the connection stays open
func (r *Router) run(ctx context.Context, c *Client, event string, rt route, data []byte) {
	started := time.Now()
	failed := false

	defer func() {
		if rec := recover(); rec != nil {
			failed = true
			c.logger.Error("PANIC in %s handler: %v, Stack: %s", event, rec, debug.Stack())
			c.Emit(EventError, errorPayload{Message: "Internal server error"})
		}
		if r.metrics != nil {
			r.metrics.EventHandled(event, time.Since(started), failed)
		}
	}()

	if err := r.guard.Check(ctx, c, data, rt.scope, rt.required); err != nil {
		failed = true
		c.logger.Warn("Denied %s: %v", event, err)
		c.Emit(EventError, errorPayload{Message: err.Error()})
		return
	}

	if err := rt.handler(ctx, c, data); err != nil {
		failed = true
		c.logger.Warn("Handler %s failed: %v", event, err)
		c.Emit(EventError, errorPayload{Message: err.Error()})
	}
}

// decode unmarshals an event payload
func decode[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, &ValidationError{Message: "Invalid payload"}
	}
	return v, nil
}
