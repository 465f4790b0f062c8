package runtime

import "sync"

var (
	globalMu sync.Mutex
	global   Runtime
)

// Global returns the process-wide runtime, auto-detecting a backend on
// first use when none has been configured. Returns nil when no backend
// is available.
func Global() Runtime {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global == nil {
		rt, err := New(nil)
		if err != nil {
			return nil
		}
		global = rt
	}
	return global
}

// SetGlobal replaces the process-wide runtime. Tests use this to
// install a mock backend.
func SetGlobal(rt Runtime) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = rt
}

// InitGlobal configures the process-wide runtime from cfg. One
// invocation shares a single backend instance across every operation.
func InitGlobal(cfg *Config) error {
	rt, err := New(cfg)
	if err != nil {
		return err
	}
	SetGlobal(rt)
	return nil
}
