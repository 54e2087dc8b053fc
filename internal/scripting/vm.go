// Package scripting evaluates user-supplied step-length densities written in
// JavaScript. A script defines density(l) and may read the injected globals
// (l0, Df, ...). The runtime is sandboxed: require, eval, Function, fetch and
// XMLHttpRequest are removed.
package scripting

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// LogEntry represents a single log message from the script.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 1 * time.Second
	maxLogs           = 500

	densityFunc = "density"
)

// ErrNoDensity is returned when the script does not define density(l).
var ErrNoDensity = errors.New("density() function is not defined")

// Density wraps a goja runtime holding a user density function. It is safe
// for concurrent use, but calls are serialised; give each run its own
// Density for parallel batches.
type Density struct {
	runtime *goja.Runtime
	fn      goja.Callable
	mu      sync.Mutex

	logs   []LogEntry
	logsMu sync.Mutex

	callTimeout time.Duration
}

// NewDensity runs source in a fresh sandboxed runtime with globals injected
// and resolves its density function.
func NewDensity(source string, globals map[string]any) (*Density, error) {
	d := &Density{
		runtime:     goja.New(),
		callTimeout: scriptCallTimeout,
	}
	d.injectGlobalFunctions()
	for name, v := range globals {
		if err := d.runtime.Set(name, v); err != nil {
			return nil, fmt.Errorf("inject %s: %w", name, err)
		}
	}

	if err := d.execute(source); err != nil {
		return nil, err
	}

	fn := d.runtime.Get(densityFunc)
	if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
		return nil, ErrNoDensity
	}
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, fmt.Errorf("density is not a function")
	}
	d.fn = callable

	return d, nil
}

// injectGlobalFunctions registers log and console.log and blocks dangerous globals.
func (d *Density) injectGlobalFunctions() {
	d.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}

		d.logsMu.Lock()
		if len(d.logs) >= maxLogs {
			d.logs = d.logs[1:]
		}
		d.logs = append(d.logs, LogEntry{Time: time.Now(), Message: strings.Join(parts, " ")})
		d.logsMu.Unlock()

		return goja.Undefined()
	})

	console := d.runtime.NewObject()
	console.Set("log", d.runtime.Get("log"))
	d.runtime.Set("console", console)

	// Math is already available in goja by default.
	d.runtime.Set("require", goja.Undefined())
	d.runtime.Set("fetch", goja.Undefined())
	d.runtime.Set("XMLHttpRequest", goja.Undefined())
	d.runtime.Set("eval", goja.Undefined())
	d.runtime.Set("Function", goja.Undefined())
}

func (d *Density) execute(source string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.withTimeout(scriptInitTimeout, func() error {
		if _, err := d.runtime.RunString(source); err != nil {
			return fmt.Errorf("script execution error: %w", err)
		}
		return nil
	})
}

// At evaluates density(l). Non-numeric results are errors; the sign is left
// for the sampler to check.
func (d *Density) At(l float64) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out float64
	err := d.withTimeout(d.callTimeout, func() error {
		v, err := d.fn(goja.Undefined(), d.runtime.ToValue(l))
		if err != nil {
			return fmt.Errorf("density() error: %w", err)
		}
		exported := v.Export()
		switch n := exported.(type) {
		case int64:
			out = float64(n)
		case float64:
			out = n
		default:
			return fmt.Errorf("density(%v) returned %T, want a number", l, exported)
		}
		return nil
	})
	if err != nil {
		return math.NaN(), err
	}
	return out, nil
}

// withTimeout runs fn on the calling goroutine and interrupts the runtime if
// it takes longer than timeout. Callers hold d.mu.
func (d *Density) withTimeout(timeout time.Duration, fn func() error) error {
	fired := make(chan struct{})
	timer := time.AfterFunc(timeout, func() {
		d.runtime.Interrupt("script execution timeout")
		close(fired)
	})
	err := fn()
	if !timer.Stop() {
		<-fired
		d.runtime.ClearInterrupt()
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return fmt.Errorf("script timed out after %s", timeout)
		}
	}
	return err
}

// GetLogs returns a copy of the current log buffer.
func (d *Density) GetLogs() []LogEntry {
	d.logsMu.Lock()
	defer d.logsMu.Unlock()
	out := make([]LogEntry, len(d.logs))
	copy(out, d.logs)
	return out
}

// ClearLogs clears the log buffer.
func (d *Density) ClearLogs() {
	d.logsMu.Lock()
	defer d.logsMu.Unlock()
	d.logs = d.logs[:0]
}
