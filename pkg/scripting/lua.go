package scripting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/wuzeru/agent-memory/pkg/log"
)

// ErrFunctionNotFound is returned when the named Lua function has not been
// loaded into the engine.
var ErrFunctionNotFound = errors.New("lua function not found")

// LuaEngine implements the Engine interface using gopher-lua. A single Lua
// state backs the engine, serialized by a mutex.
type LuaEngine struct {
	config Config
	state  *lua.LState
	mu     sync.Mutex
}

// NewLuaEngine creates a Lua engine with the given configuration.
func NewLuaEngine(config Config) (*LuaEngine, error) {
	var state *lua.LState
	if config.EnableSandboxing {
		state = lua.NewState(lua.Options{SkipOpenLibs: true})
		setupSandbox(state)
	} else {
		state = lua.NewState()
	}

	registerAPIFunctions(state)

	return &LuaEngine{
		config: config,
		state:  state,
	}, nil
}

// LoadScript implements the Engine interface.
func (e *LuaEngine) LoadScript(name string, content []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.state.DoString(string(content)); err != nil {
		return fmt.Errorf("failed to load script %q: %w", name, err)
	}

	log.Debug("Loaded Lua script", "name", name, "bytes", len(content))
	return nil
}

// LoadScriptFile implements the Engine interface.
func (e *LuaEngine) LoadScriptFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read script file %q: %w", path, err)
	}
	return e.LoadScript(filepath.Base(path), content)
}

// LoadScriptDir implements the Engine interface. Only files with a .lua
// extension are loaded; other files are ignored.
func (e *LuaEngine) LoadScriptDir(dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		return fmt.Errorf("failed to list scripts in %q: %w", dir, err)
	}
	for _, path := range paths {
		if err := e.LoadScriptFile(path); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteFunction implements the Engine interface. The configured script
// timeout bounds execution; the caller's context cancels it early. While the
// function runs, a global `ctx` table exposes the deadline to the script.
func (e *LuaEngine) ExecuteFunction(ctx context.Context, funcName string, args ...interface{}) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.state.GetGlobal(funcName)
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, funcName)
	}

	if e.config.ScriptTimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.config.ScriptTimeoutMs)*time.Millisecond)
		defer cancel()
	}
	e.state.SetContext(ctx)
	defer e.state.RemoveContext()

	ctxTable := e.state.NewTable()
	if deadline, ok := ctx.Deadline(); ok {
		ctxTable.RawSetString("deadline", lua.LNumber(deadline.Unix()))
	}
	e.state.SetGlobal("ctx", ctxTable)
	defer e.state.SetGlobal("ctx", lua.LNil)

	luaArgs := make([]lua.LValue, len(args))
	for i, arg := range args {
		luaArgs[i] = convertGoToLua(e.state, arg)
	}

	err := e.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, luaArgs...)
	if err != nil {
		return nil, fmt.Errorf("error executing lua function %q: %w", funcName, err)
	}

	result := e.state.Get(-1)
	e.state.Pop(1)

	return convertLuaToGo(result), nil
}

// Close implements the Engine interface.
func (e *LuaEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Close()
	return nil
}

// convertLuaToGo converts a Lua value to its Go equivalent. Tables with only
// sequential integer keys become slices; other tables become maps.
func convertLuaToGo(value lua.LValue) interface{} {
	switch v := value.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		maxN := v.MaxN()
		if maxN > 0 && v.Len() == maxN {
			slice := make([]interface{}, 0, maxN)
			for i := 1; i <= maxN; i++ {
				slice = append(slice, convertLuaToGo(v.RawGetInt(i)))
			}
			return slice
		}
		result := make(map[string]interface{})
		v.ForEach(func(key, val lua.LValue) {
			result[key.String()] = convertLuaToGo(val)
		})
		return result
	default:
		return v.String()
	}
}

// convertGoToLua converts a Go value to its Lua equivalent.
func convertGoToLua(L *lua.LState, value interface{}) lua.LValue {
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float32:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case string:
		return lua.LString(v)
	case time.Time:
		return lua.LNumber(v.Unix())
	case []string:
		table := L.NewTable()
		for _, item := range v {
			table.Append(lua.LString(item))
		}
		return table
	case []interface{}:
		table := L.NewTable()
		for _, item := range v {
			table.Append(convertGoToLua(L, item))
		}
		return table
	case map[string]string:
		table := L.NewTable()
		for key, val := range v {
			table.RawSetString(key, lua.LString(val))
		}
		return table
	case map[string]interface{}:
		table := L.NewTable()
		for key, val := range v {
			table.RawSetString(key, convertGoToLua(L, val))
		}
		return table
	default:
		return lua.LString(fmt.Sprintf("%v", v))
	}
}
