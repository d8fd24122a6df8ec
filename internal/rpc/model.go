package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

// Handler executes one business method. req is the originating HTTP request.
type Handler func(ctx context.Context, params Params, req *http.Request) (any, error)

// Model is a business object resolvable through the registry. Methods is its
// fixed dispatch table.
type Model interface {
	Methods() map[string]Handler
}

// PermissionRule is the authorization rule of a single method.
type PermissionRule struct {
	Required    bool     `json:"required"`
	Permissions []string `json:"permissions,omitempty"`
}

// Require is a rule demanding an identity holding every key.
func Require(perms ...string) *PermissionRule {
	return &PermissionRule{Required: true, Permissions: perms}
}

// PermissionRuler is implemented by models that guard their methods. A nil
// rule means the method is open.
type PermissionRuler interface {
	PermissionRequiredForMethod(method string) *PermissionRule
}

// Rules is a static PermissionRuler keyed by method name.
type Rules map[string]*PermissionRule

// PermissionRequiredForMethod implements PermissionRuler.
func (r Rules) PermissionRequiredForMethod(method string) *PermissionRule {
	return r[method]
}

// Registry resolves model keys ("<model-id>.<sub-type>") to business objects.
type Registry interface {
	Model(key string) (Model, bool)
}

// PermissionChecker answers the all-of permission question for a user.
type PermissionChecker interface {
	HasAllPermissions(ctx context.Context, userID int64, keys []string) (bool, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Params carries sanitized call parameters.
type Params struct {
	value any
}

// NewParams wraps an already sanitized value.
func NewParams(v any) Params {
	return Params{value: v}
}

// Raw returns the sanitized value as decoded from JSON.
func (p Params) Raw() any {
	return p.value
}

// Empty reports whether the call carried no parameters.
func (p Params) Empty() bool {
	return p.value == nil
}

// Decode copies the parameters into dst. Shape mismatches yield CodeInvalidParams.
func (p Params) Decode(dst any) error {
	if p.value == nil {
		return nil
	}
	raw, err := json.Marshal(p.value)
	if err != nil {
		return NewError(CodeInvalidParams, "", map[string]any{"detail": err.Error()})
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return NewError(CodeInvalidParams, "", map[string]any{"detail": err.Error()})
	}
	return nil
}

// Bind decodes into dst and validates its struct tags.
func (p Params) Bind(dst any) error {
	if err := p.Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

// CallerID returns the authenticated user id carried by ctx.
func CallerID(ctx context.Context) (int64, bool) {
	return shared.ParseUserID(shared.IdentityFromContext(ctx))
}
