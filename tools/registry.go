// Package tools exposes the library operations as named, schema-described
// tools for an external LLM agent runtime.
package tools

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"library-assistant/library"
)

const (
	logMsgToolCalled   = "tool called"
	logMsgToolFinished = "tool finished"
	logAttrCallID      = "call_id"
	logAttrTool        = "tool"
	logAttrStatus      = "status"
	logAttrErrorKind   = "error_kind"
	logAttrDurationMS  = "duration_ms"
)

// strictJSON rejects arguments the tool does not declare.
var strictJSON = jsoniter.Config{
	EscapeHTML:             false,
	DisallowUnknownFields:  true,
	ValidateJsonRawMessage: true,
}.Froze()

// Tool is one callable function offered to the agent runtime.
type Tool struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema

	invoke func(ctx context.Context, raw []byte) library.Result
}

// Declaration is the function-calling description of a tool.
type Declaration struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// Declaration returns the function-calling description of t.
func (t *Tool) Declaration() Declaration {
	return Declaration{Name: t.Name, Description: t.Description, Parameters: t.Schema}
}

// NewTool builds a tool whose arguments decode into Args. The argument
// schema is derived from Args.
func NewTool[Args any](name, description string, run func(ctx context.Context, args Args) library.Result) (*Tool, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("tool name cannot be empty")
	}
	schema, err := jsonschema.For[Args](&jsonschema.ForOptions{})
	if err != nil {
		return nil, fmt.Errorf("schema for tool %s: %w", name, err)
	}
	return &Tool{
		Name:        name,
		Description: description,
		Schema:      schema,
		invoke: func(ctx context.Context, raw []byte) library.Result {
			var args Args
			if len(strings.TrimSpace(string(raw))) == 0 {
				raw = []byte("{}")
			}
			if err := strictJSON.Unmarshal(raw, &args); err != nil {
				return library.Failure(&library.Error{
					Kind:    library.ErrInvalidQuery,
					Message: fmt.Sprintf("Argumentos inválidos para '%s': %v", name, err),
					Cause:   err,
				})
			}
			return run(ctx, args)
		},
	}, nil
}

// MustNewTool is NewTool that panics on error.
func MustNewTool[Args any](name, description string, run func(ctx context.Context, args Args) library.Result) *Tool {
	t, err := NewTool(name, description, run)
	if err != nil {
		panic(err)
	}
	return t
}

// Registry holds the tools by name, in registration order.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	order  []string
	logger library.Logger
}

// NewRegistry creates an empty registry. A nil logger keeps it silent.
func NewRegistry(logger library.Logger) *Registry {
	return &Registry{tools: make(map[string]*Tool), logger: logger}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t *Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[t.Name]; ok {
		return fmt.Errorf("tool %s already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Contains checks whether a tool is registered.
func (r *Registry) Contains(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// List returns the tools in registration order.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Declarations exports every tool in function-calling form.
func (r *Registry) Declarations() []Declaration {
	list := r.List()
	out := make([]Declaration, 0, len(list))
	for _, t := range list {
		out = append(out, t.Declaration())
	}
	return out
}

// Call runs the named tool with raw JSON arguments. It never fails: every
// problem comes back as an error record.
func (r *Registry) Call(ctx context.Context, name string, raw []byte) library.Result {
	callID := uuid.NewString()
	t, ok := r.Get(name)
	if !ok {
		r.debug(logMsgToolFinished, logAttrCallID, callID, logAttrTool, name, logAttrStatus, library.StatusError)
		return library.Failure(&library.Error{
			Kind:    library.ErrInvalidQuery,
			Message: fmt.Sprintf("Ferramenta '%s' desconhecida.", name),
		})
	}

	r.debug(logMsgToolCalled, logAttrCallID, callID, logAttrTool, name)
	start := time.Now()
	res := t.invoke(ctx, raw)
	r.debug(logMsgToolFinished,
		logAttrCallID, callID,
		logAttrTool, name,
		logAttrStatus, res.Status,
		logAttrErrorKind, res.ErrorKind,
		logAttrDurationMS, time.Since(start).Milliseconds())
	return res
}

// CallJSON is Call with the result encoded as JSON.
func (r *Registry) CallJSON(ctx context.Context, name string, raw []byte) ([]byte, error) {
	return EncodeResult(r.Call(ctx, name, raw))
}

// EncodeResult renders a result record as JSON.
func EncodeResult(res library.Result) ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(res)
}

func (r *Registry) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
