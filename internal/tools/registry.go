package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/alucardeht/spreadsheet-agent/internal/logger"
)

var log = logger.ForComponent("tools")

type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, input json.RawMessage) (any, error)
}

type AnnotatedTool interface {
	Tool
	Title() string
	Annotations() map[string]bool
}

type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}

	r.tools[name] = tool
	log.Debug("registered tool", "tool", name)
	return nil
}

func (r *Registry) RegisterAll(tools ...Tool) error {
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Execute runs the named tool. Unknown tools and panics come back as
// *ToolError.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (result any, err error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, NewToolNotFoundError(name)
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("tool panicked", "tool", name, "panic", p, "stack", string(debug.Stack()))
			result = nil
			err = NewToolExecutionError(name, fmt.Errorf("panic: %v", p))
		}
	}()

	start := time.Now()
	result, err = tool.Execute(ctx, input)
	log.Debug("tool executed", "tool", name, "duration_ms", time.Since(start).Milliseconds(), "error", err != nil)
	return result, err
}

// ExecuteWithTimeout bounds Execute by timeout; zero means no bound.
func (r *Registry) ExecuteWithTimeout(ctx context.Context, name string, input json.RawMessage, timeout time.Duration) (any, error) {
	ctx, cancel := WithTimeout(ctx, timeout)
	defer cancel()

	result, err := r.Execute(ctx, name, input)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		return nil, NewToolTimeoutError(name, timeout)
	}
	return result, err
}

// List returns the tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

func (r *Registry) Names() []string {
	list := r.List()
	names := make([]string, len(list))
	for i, tool := range list {
		names[i] = tool.Name()
	}
	return names
}

// Subset returns a registry holding the named tools and the names that
// were not found. Repeated names are registered once.
func (r *Registry) Subset(names []string) (*Registry, []string) {
	sub := NewRegistry()
	var missing []string
	for _, name := range names {
		tool, ok := r.Get(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		if _, dup := sub.Get(name); !dup {
			sub.tools[name] = tool
		}
	}
	return sub, missing
}

func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// DecodeArgs unmarshals tool input into v. Empty input is treated as {}.
func DecodeArgs(input json.RawMessage, v any) error {
	if len(input) == 0 || string(input) == "null" {
		input = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(input, v); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}
