package runtime

import (
	"context"
	"io"
	"strings"
	"sync"
)

// MockRuntime is a mock implementation of Runtime for testing
type MockRuntime struct {
	mu sync.RWMutex

	// Cells tracks the state of mock cells
	Cells map[string]*CellInfo

	// ExecResults maps command substrings to predefined exec results.
	// The first pattern found in the joined command wins.
	ExecResults map[string]*ExecResult

	// ExecQueues maps command substrings to result sequences consumed
	// one per matching call. The final result persists once the queue
	// drains, which lets tests script fail-then-succeed behavior.
	ExecQueues map[string][]*ExecResult

	// ExecErrors maps command substrings to transport-level errors
	ExecErrors map[string]error

	// Errors allows injecting errors for specific operations
	Errors map[string]error

	// CallLog records all method calls for verification
	CallLog []MockCall

	// PulledFiles records PullFile src paths in call order
	PulledFiles []string

	// NamedUser makes the mock report native named-user exec support
	NamedUser bool
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockRuntime creates a new mock runtime
func NewMockRuntime() *MockRuntime {
	return &MockRuntime{
		Cells:       make(map[string]*CellInfo),
		ExecResults: make(map[string]*ExecResult),
		ExecQueues:  make(map[string][]*ExecResult),
		ExecErrors:  make(map[string]error),
		Errors:      make(map[string]error),
		CallLog:     make([]MockCall, 0),
	}
}

func (m *MockRuntime) record(method string, args ...interface{}) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

// SetError sets an error to be returned for a specific operation
func (m *MockRuntime) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[operation] = err
}

// SetExecResult sets the result for exec commands containing pattern
func (m *MockRuntime) SetExecResult(pattern string, result *ExecResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecResults[pattern] = result
}

// SetExecQueue sets a sequence of results consumed one per exec command
// containing pattern. The last result repeats after the queue drains.
func (m *MockRuntime) SetExecQueue(pattern string, results ...*ExecResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecQueues[pattern] = results
}

// SetExecError sets a transport error for exec commands containing pattern
func (m *MockRuntime) SetExecError(pattern string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecErrors[pattern] = err
}

// AddCell adds a cell to the mock
func (m *MockRuntime) AddCell(name string, status CellStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cells[name] = &CellInfo{
		Name:   name,
		Status: status,
	}
}

// GetCalls returns all recorded calls
func (m *MockRuntime) GetCalls() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]MockCall, len(m.CallLog))
	copy(calls, m.CallLog)
	return calls
}

// GetCallsFor returns all calls for a specific method
func (m *MockRuntime) GetCallsFor(method string) []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var calls []MockCall
	for _, call := range m.CallLog {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// ExecCommands returns the joined command line of every Exec call
func (m *MockRuntime) ExecCommands() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var commands []string
	for _, call := range m.CallLog {
		if call.Method != "Exec" {
			continue
		}
		if cmd, ok := call.Args[1].([]string); ok {
			commands = append(commands, strings.Join(cmd, " "))
		}
	}
	return commands
}

// Reset clears all state
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cells = make(map[string]*CellInfo)
	m.ExecResults = make(map[string]*ExecResult)
	m.ExecQueues = make(map[string][]*ExecResult)
	m.ExecErrors = make(map[string]error)
	m.Errors = make(map[string]error)
	m.CallLog = make([]MockCall, 0)
	m.PulledFiles = nil
}

// Name returns the runtime identifier
func (m *MockRuntime) Name() string {
	return "mock"
}

// ExecAsUser reports whether the mock simulates native named-user exec
func (m *MockRuntime) ExecAsUser() bool {
	return m.NamedUser
}

// Create creates a new cell
func (m *MockRuntime) Create(ctx context.Context, image, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Create", image, name)

	if err, ok := m.Errors["Create"]; ok {
		return err
	}

	m.Cells[name] = &CellInfo{
		Name:   name,
		Status: StatusRunning,
		Image:  image,
	}

	return nil
}

// Destroy stops and removes a cell
func (m *MockRuntime) Destroy(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Destroy", name)

	if err, ok := m.Errors["Destroy"]; ok {
		return err
	}

	delete(m.Cells, name)
	return nil
}

// IsRunning checks if a cell is currently running
func (m *MockRuntime) IsRunning(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("IsRunning", name)

	if err, ok := m.Errors["IsRunning"]; ok {
		return false, err
	}

	if cell, ok := m.Cells[name]; ok {
		return cell.Status == StatusRunning, nil
	}

	return false, nil
}

// Exec executes a command inside a cell. Stdin is drained so callers
// streaming archives or patches do not block.
func (m *MockRuntime) Exec(ctx context.Context, name string, command []string, opts ExecOptions) (*ExecResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Exec", name, command, opts)

	if opts.Stdin != nil {
		_, _ = io.Copy(io.Discard, opts.Stdin)
	}

	if err, ok := m.Errors["Exec"]; ok {
		return nil, err
	}

	joined := strings.Join(command, " ")
	for pattern, err := range m.ExecErrors {
		if strings.Contains(joined, pattern) {
			return nil, err
		}
	}
	for pattern, queue := range m.ExecQueues {
		if strings.Contains(joined, pattern) && len(queue) > 0 {
			result := queue[0]
			if len(queue) > 1 {
				m.ExecQueues[pattern] = queue[1:]
			}
			return result, nil
		}
	}
	for pattern, result := range m.ExecResults {
		if strings.Contains(joined, pattern) {
			return result, nil
		}
	}

	return &ExecResult{ExitCode: 0, Stdout: "", Stderr: ""}, nil
}

// PullFile records a file retrieval from a cell
func (m *MockRuntime) PullFile(ctx context.Context, name, srcPath, destPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("PullFile", name, srcPath, destPath)

	if err, ok := m.Errors["PullFile"]; ok {
		return err
	}

	m.PulledFiles = append(m.PulledFiles, srcPath)
	return nil
}

// List returns all cells managed by this runtime
func (m *MockRuntime) List(ctx context.Context) ([]*CellInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("List")

	if err, ok := m.Errors["List"]; ok {
		return nil, err
	}

	var cells []*CellInfo
	for _, cell := range m.Cells {
		cells = append(cells, cell)
	}

	return cells, nil
}

// Ensure MockRuntime implements Runtime and NamedUserExecer
var (
	_ Runtime         = (*MockRuntime)(nil)
	_ NamedUserExecer = (*MockRuntime)(nil)
)
