package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

// Backend hands the dispatcher its collaborators, bootstrapping them on first
// use when necessary.
type Backend interface {
	Registry(ctx context.Context) (Registry, error)
	Permissions(ctx context.Context) (PermissionChecker, error)
}

// Observer receives one observation per dispatched call. code is 0 on success.
type Observer interface {
	ObserveRPC(method string, code int, elapsed time.Duration)
}

// Options configures a Dispatcher.
type Options struct {
	Backend  Backend
	Logger   *slog.Logger
	Security *shared.SecurityLog
	Observer Observer
	// MaxBatch returns the largest accepted batch. Zero or less disables the cap.
	MaxBatch func(ctx context.Context) int
}

// Dispatcher routes JSON-RPC envelopes to registered business objects.
type Dispatcher struct {
	backend   Backend
	logger    *slog.Logger
	security  *shared.SecurityLog
	observer  Observer
	maxBatch  func(ctx context.Context) int
	sanitizer *Sanitizer
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		backend:   opts.Backend,
		logger:    logger,
		security:  opts.Security,
		observer:  opts.Observer,
		maxBatch:  opts.MaxBatch,
		sanitizer: NewSanitizer(),
	}
}

// Call describes the transport context of a dispatch.
type Call struct {
	Public  bool
	Request *http.Request
}

// HandleBody decodes a raw body and dispatches it. The result is either a
// Response or, for batches, a []Response in request order.
func (d *Dispatcher) HandleBody(ctx context.Context, body []byte, call Call) (any, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || !json.Valid(body) {
		return failure(nil, NewError(CodeParseError, "", nil)), false
	}
	if body[0] != '[' {
		return d.dispatchRaw(ctx, body, call), false
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return failure(nil, NewError(CodeParseError, "", nil)), false
	}
	if len(entries) == 0 {
		return failure(nil, NewError(CodeInvalidRequest, "empty batch", nil)), false
	}
	if limit := d.batchLimit(ctx); limit > 0 && len(entries) > limit {
		return failure(nil, NewError(CodeInvalidRequest, fmt.Sprintf("batch exceeds %d calls", limit), nil)), false
	}
	return d.Batch(ctx, entries, call), true
}

// Batch dispatches every entry independently. A failing entry never affects
// its siblings and the result has one response per entry.
func (d *Dispatcher) Batch(ctx context.Context, entries []json.RawMessage, call Call) []Response {
	out := make([]Response, len(entries))
	var g errgroup.Group
	for i, raw := range entries {
		g.Go(func() error {
			out[i] = d.dispatchRaw(ctx, raw, call)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (d *Dispatcher) dispatchRaw(ctx context.Context, raw json.RawMessage, call Call) Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return failure(nil, NewError(CodeInvalidRequest, "", nil))
	}
	return d.Dispatch(ctx, req, call)
}

// Dispatch executes one call and always returns a response envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, call Call) (resp Response) {
	start := time.Now()
	if !validID(req.ID) {
		req.ID = nil
	}
	callID := uuid.NewString()
	if shared.RequestIDFromContext(ctx) == "" {
		ctx = shared.ContextWithRequestID(ctx, callID)
	}
	resp = Response{JSONRPC: Version, ID: req.ID}

	defer func() {
		if p := recover(); p != nil {
			d.logger.ErrorContext(ctx, "rpc handler panic", slog.String("method", req.Method), slog.Any("panic", p))
			resp.Result = nil
			resp.Error = NewError(CodeInternalError, "", map[string]any{"detail": fmt.Sprint(p), "callId": callID})
		}
		d.observe(req.Method, resp.Code(), time.Since(start))
	}()

	result, err := d.execute(ctx, req, call)
	if err != nil {
		rpcErr := normalizeError(err)
		if rpcErr.Code == CodeInternalError {
			d.logger.ErrorContext(ctx, "rpc call failed", slog.String("method", req.Method), slog.String("call_id", callID), slog.Any("error", err))
		}
		resp.Error = rpcErr
		return resp
	}
	resp.Result = result
	return resp
}

func (d *Dispatcher) execute(ctx context.Context, req Request, call Call) (any, error) {
	if err := validate.Struct(req); err != nil {
		return nil, NewError(CodeInvalidRequest, "", map[string]any{"detail": "jsonrpc must be \"2.0\" and method is required"})
	}

	params, err := d.sanitizeParams(req.Params)
	if err != nil {
		return nil, err
	}

	method, err := ParseMethod(req.Method)
	if err != nil {
		return nil, err
	}
	if d.backend == nil {
		return nil, NewError(CodeInternalError, "dispatcher has no backend", nil)
	}
	registry, err := d.backend.Registry(ctx)
	if err != nil {
		return nil, fmt.Errorf("rpc: bootstrap: %w", err)
	}
	model, ok := registry.Model(method.ModelKey())
	if !ok {
		return nil, NewError(CodeMethodNotFound, "", map[string]any{"model": method.ModelKey()})
	}
	handler, ok := model.Methods()[method.Name]
	if !ok || handler == nil {
		return nil, NewError(CodeMethodNotSupported, "", map[string]any{"model": method.ModelKey(), "method": method.Name})
	}

	var rule *PermissionRule
	if ruler, ok := model.(PermissionRuler); ok {
		rule = ruler.PermissionRequiredForMethod(method.Name)
	}
	if err := d.authorize(ctx, method, rule, call); err != nil {
		return nil, err
	}
	return handler(ctx, NewParams(params), call.Request)
}

func (d *Dispatcher) authorize(ctx context.Context, method Method, rule *PermissionRule, call Call) error {
	if rule == nil || !rule.Required {
		return nil
	}
	if call.Public {
		d.refuse(ctx, call, shared.SecurityPublicViolation, method, nil)
		return NewError(CodeAccessDenied, "method requires authentication and cannot be called on a public endpoint", nil)
	}
	userID, ok := CallerID(ctx)
	if !ok {
		d.refuse(ctx, call, shared.SecurityAuthRequired, method, nil)
		return NewError(CodeAuthRequired, "", nil)
	}
	required := normalizeKeys(rule.Permissions)
	if len(required) == 0 {
		d.refuse(ctx, call, shared.SecurityMisconfigured, method, nil)
		return NewError(CodePermissionDenied, "", nil)
	}
	checker, err := d.backend.Permissions(ctx)
	if err != nil {
		return fmt.Errorf("rpc: bootstrap: %w", err)
	}
	granted, err := checker.HasAllPermissions(ctx, userID, required)
	if err != nil {
		return fmt.Errorf("rpc: permission check: %w", err)
	}
	if !granted {
		d.refuse(ctx, call, shared.SecurityPermissionDenied, method, required)
		return NewError(CodePermissionDenied, "", map[string]any{"required": required})
	}
	return nil
}

func (d *Dispatcher) sanitizeParams(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, nullID) {
		return nil, nil
	}
	if raw[0] != '{' && raw[0] != '[' {
		return nil, NewError(CodeInvalidParams, "params must be an object or an array", nil)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, NewError(CodeInvalidParams, "", map[string]any{"detail": err.Error()})
	}
	return d.sanitizer.Value(v), nil
}

func (d *Dispatcher) refuse(ctx context.Context, call Call, kind string, method Method, required []string) {
	ev := shared.SecurityEvent{
		Kind:     kind,
		Identity: shared.IdentityFromContext(ctx),
		Method:   method.String(),
		Required: required,
	}
	if call.Request != nil && call.Request.URL != nil {
		ev.Path = call.Request.URL.Path
	}
	d.security.Record(ctx, ev)
}

func (d *Dispatcher) batchLimit(ctx context.Context) int {
	if d.maxBatch == nil {
		return 0
	}
	return d.maxBatch(ctx)
}

func (d *Dispatcher) observe(method string, code int, elapsed time.Duration) {
	if d.observer == nil {
		return
	}
	if _, err := ParseMethod(method); err != nil {
		method = "invalid"
	}
	d.observer.ObserveRPC(method, code, elapsed)
}

func normalizeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
