package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ScriptExecutor manages server-side Lua scripts: registration, preloading
// and EVALSHA execution with a NOSCRIPT reload fallback. Scripts run
// atomically and one at a time on the Redis side, which is the concurrency
// primitive every caller relies on.
type ScriptExecutor struct {
	client  *redis.Client
	scripts sync.Map // name -> *registeredScript
}

type registeredScript struct {
	name string
	text string
	sha  string
}

func NewScriptExecutor(client *redis.Client) *ScriptExecutor {
	return &ScriptExecutor{client: client}
}

// Register computes the script SHA locally and caches it so callers can use
// EVALSHA without a round trip. Safe to call before the connection is up.
func (e *ScriptExecutor) Register(name, text string) {
	sum := sha1.Sum([]byte(text))
	e.scripts.Store(name, &registeredScript{
		name: name,
		text: text,
		sha:  hex.EncodeToString(sum[:]),
	})
}

// PreloadScripts loads every registered script into the Redis script cache.
// Called once at startup so the first real invocation never pays the
// NOSCRIPT round trip.
func (e *ScriptExecutor) PreloadScripts(ctx context.Context) error {
	var loadErr error
	e.scripts.Range(func(_, value interface{}) bool {
		s := value.(*registeredScript)
		sha, err := e.client.ScriptLoad(ctx, s.text).Result()
		if err != nil {
			loadErr = fmt.Errorf("failed to load script %s: %w", s.name, err)
			return false
		}
		if sha != s.sha {
			loadErr = fmt.Errorf("script %s sha mismatch: computed %s, server %s", s.name, s.sha, sha)
			return false
		}
		return true
	})
	return loadErr
}

// Run executes a registered script via EVALSHA. If the server replies
// NOSCRIPT (script cache flushed, failover to a cold replica), the script
// text is re-loaded and the call retried exactly once.
func (e *ScriptExecutor) Run(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	value, ok := e.scripts.Load(name)
	if !ok {
		return nil, fmt.Errorf("script %s is not registered", name)
	}
	s := value.(*registeredScript)

	result, err := e.client.EvalSha(ctx, s.sha, keys, args...).Result()
	if err == nil {
		return result, nil
	}
	if !IsNoScriptError(err) {
		return nil, fmt.Errorf("script %s failed: %w", name, err)
	}

	if _, loadErr := e.client.ScriptLoad(ctx, s.text).Result(); loadErr != nil {
		return nil, fmt.Errorf("failed to reload script %s: %w", name, loadErr)
	}

	result, err = e.client.EvalSha(ctx, s.sha, keys, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("script %s failed after reload: %w", name, err)
	}
	return result, nil
}

// RunString is Run for scripts whose reply is a single string payload.
func (e *ScriptExecutor) RunString(ctx context.Context, name string, keys []string, args ...interface{}) (string, error) {
	result, err := e.Run(ctx, name, keys, args...)
	if err != nil {
		return "", err
	}
	str, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("script %s returned %T, expected string", name, result)
	}
	return str, nil
}

// IsNoScriptError reports whether err is the Redis NOSCRIPT reply.
func IsNoScriptError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "NOSCRIPT")
}
