package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestRegisterComputesSHALocally(t *testing.T) {
	executor := NewScriptExecutor(nil)

	text := "return redis.call('GET', KEYS[1])"
	executor.Register("get-one", text)

	value, ok := executor.scripts.Load("get-one")
	if !ok {
		t.Fatal("expected script to be registered")
	}

	sum := sha1.Sum([]byte(text))
	want := hex.EncodeToString(sum[:])
	if got := value.(*registeredScript).sha; got != want {
		t.Errorf("sha = %s, want %s", got, want)
	}
}

func TestRegisterOverwritesPreviousText(t *testing.T) {
	executor := NewScriptExecutor(nil)

	executor.Register("script", "return 1")
	executor.Register("script", "return 2")

	value, _ := executor.scripts.Load("script")
	sum := sha1.Sum([]byte("return 2"))
	if got := value.(*registeredScript).sha; got != hex.EncodeToString(sum[:]) {
		t.Errorf("expected sha of the second registration, got %s", got)
	}
}

func TestRunUnregisteredScript(t *testing.T) {
	executor := NewScriptExecutor(nil)

	_, err := executor.Run(context.Background(), "missing", nil)
	if err == nil {
		t.Fatal("expected error for unregistered script")
	}
	if !strings.Contains(err.Error(), "not registered") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIsNoScriptError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "noscript reply",
			err:  errors.New("NOSCRIPT No matching script. Please use EVAL."),
			want: true,
		},
		{
			name: "other redis error",
			err:  errors.New("ERR wrong number of arguments"),
			want: false,
		},
		{
			name: "wrapped noscript is not matched",
			err:  errors.New("script failed: NOSCRIPT No matching script"),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNoScriptError(tt.err); got != tt.want {
				t.Errorf("IsNoScriptError() = %v, want %v", got, tt.want)
			}
		})
	}
}
