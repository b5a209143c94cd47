package ingest

import (
	"context"
	"errors"

	"github.com/wuzeru/agent-memory/pkg/log"
	"github.com/wuzeru/agent-memory/pkg/scripting"
)

const (
	// beforeIngestFuncName is the name of the Lua function to call before ingestion
	beforeIngestFuncName = "before_ingest"

	// afterIngestFuncName is the name of the Lua function to call after ingestion
	afterIngestFuncName = "after_ingest"
)

// callBeforeIngestHook calls the before_ingest Lua hook if available. The
// hook may return a string to replace the text being ingested. Hook failures
// are logged and never fail the operation.
func callBeforeIngestHook(ctx context.Context, engine scripting.Engine, text string) string {
	if engine == nil {
		return text
	}

	result, err := engine.ExecuteFunction(ctx, beforeIngestFuncName, text)
	if err != nil {
		// If the function doesn't exist, that's ok - just continue
		if errors.Is(err, scripting.ErrFunctionNotFound) {
			return text
		}
		log.WarnContext(ctx, "Error calling Lua hook",
			"hook", beforeIngestFuncName,
			"error", err)
		return text
	}

	if replaced, ok := result.(string); ok && replaced != "" {
		return replaced
	}
	return text
}

// callAfterIngestHook calls the after_ingest Lua hook if available, passing
// the ids of the entries that were created.
func callAfterIngestHook(ctx context.Context, engine scripting.Engine, ids []string) {
	if engine == nil {
		return
	}

	_, err := engine.ExecuteFunction(ctx, afterIngestFuncName, ids)
	if err != nil && !errors.Is(err, scripting.ErrFunctionNotFound) {
		log.WarnContext(ctx, "Error calling Lua hook",
			"hook", afterIngestFuncName,
			"error", err)
	}
}
