// Package tools exposes the deterministic coded tools agents invoke with
// JSON-like args plus per-session sly data.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"infra_crew/pkg"

	"github.com/bytedance/sonic"
	pkgerrors "github.com/pkg/errors"
)

// CodedTool is a tool an agent can call
type CodedTool interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, args map[string]any, sly pkg.SlyData) (any, error)
}

// ErrMissingArg is wrapped by every MissingArgError
var ErrMissingArg = errors.New("parameter is required")

// MissingArgError names the absent argument
type MissingArgError struct {
	Arg string
}

func (e *MissingArgError) Error() string {
	return e.Arg + " " + ErrMissingArg.Error()
}

func (e *MissingArgError) Unwrap() error {
	return ErrMissingArg
}

func missing(arg string) error {
	return &MissingArgError{Arg: arg}
}

// ToolError is an operation failure reported back to the agent
type ToolError struct {
	Op  string
	Err error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("Failed to %s - %v", e.Op, pkgerrors.Cause(e.Err))
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

func failure(op string, err error) error {
	var m *MissingArgError
	if errors.As(err, &m) {
		return err
	}
	return &ToolError{Op: op, Err: err}
}

// Render turns a tool outcome into the text handed back to the agent
func Render(result any, err error) string {
	if err != nil {
		return "Error: " + err.Error()
	}
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	data, merr := sonic.ConfigStd.MarshalIndent(result, "", "  ")
	if merr != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(data)
}

// Registry holds tools by name in registration order
type Registry struct {
	mu    sync.RWMutex
	tools map[string]CodedTool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]CodedTool)}
}

// Register adds t. Names must be unique.
func (r *Registry) Register(t CodedTool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tools[t.Name()]; dup {
		return fmt.Errorf("tool %s already registered", t.Name())
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

func (r *Registry) Get(name string) (CodedTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Invoke runs the named tool
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any, sly pkg.SlyData) (any, error) {
	t, ok := r.Get(name)
	if !ok {
		known := r.Names()
		sort.Strings(known)
		return nil, fmt.Errorf("unknown tool %q (available: %s)", name, strings.Join(known, ", "))
	}
	if args == nil {
		args = map[string]any{}
	}
	return t.Invoke(ctx, args, sly)
}

// stringArg returns args[key] as a trimmed string, or def when absent or empty
func stringArg(args map[string]any, key, def string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return def
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		s = strings.Join(parts, ",")
	default:
		s = fmt.Sprint(t)
	}
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

func floatArg(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	}
	return 0
}

func mapArg(args map[string]any, key string) map[string]any {
	if m, ok := args[key].(map[string]any); ok {
		return m
	}
	return nil
}
