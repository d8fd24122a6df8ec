package runtime

import (
	"sync/atomic"

	"github.com/odyssey-erp/odyssey-rpc/internal/app"
)

// global is the single process-wide slot. Every package that reaches the
// runtime goes through it, so a second construction can never compete.
var global atomic.Pointer[Context]

// Install publishes c as the process-wide Context unless one is already
// installed, and returns whichever instance owns the slot.
func Install(c *Context) *Context {
	if global.CompareAndSwap(nil, c) {
		return c
	}
	return global.Load()
}

// Global returns the installed Context, or nil.
func Global() *Context {
	return global.Load()
}

// Default returns the installed Context, constructing and installing one
// from cfg on first use.
func Default(cfg *app.Config, opts ...Option) *Context {
	if c := global.Load(); c != nil {
		return c
	}
	return Install(New(cfg, opts...))
}
