package plugin

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script plugins need a POSIX shell")
	}
}

func TestExecutor_Execute(t *testing.T) {
	skipOnWindows(t)
	p := writePlugin(t, t.TempDir(), "hello", `#!/bin/sh
cat <<'EOF'
{"success":true,"data":{"message":"hello world"}}
EOF
`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{Action: "greet"})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !resp.Success || resp.Error != "" {
		t.Fatalf("unexpected response %+v", resp)
	}

	var data map[string]string
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal data: %v", err)
	}
	if data["message"] != "hello world" {
		t.Errorf("expected 'hello world', got %q", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	skipOnWindows(t)
	p := writePlugin(t, t.TempDir(), "echo", `#!/bin/sh
INPUT=$(cat)
echo "{\"success\":true,\"data\":$INPUT}"
`)

	var got Request
	err := NewExecutor(5*time.Second).Call(context.Background(), p, "set-level", map[string]float64{"level": -12.5}, &got)
	if err != nil {
		t.Fatalf("Call() failed: %v", err)
	}
	if got.Action != "set-level" {
		t.Errorf("expected action 'set-level', got %q", got.Action)
	}
	if string(got.Params) != `{"level":-12.5}` {
		t.Errorf("unexpected params %s", got.Params)
	}
}

func TestExecutor_Execute_RunsInPluginDir(t *testing.T) {
	skipOnWindows(t)
	p := writePlugin(t, t.TempDir(), "pwd", `#!/bin/sh
cat >/dev/null
echo "{\"success\":true,\"data\":\"$(pwd)\"}"
`)

	var dir string
	if err := NewExecutor(5*time.Second).Call(context.Background(), p, "where", nil, &dir); err != nil {
		t.Fatalf("Call() failed: %v", err)
	}
	if !strings.HasSuffix(dir, "/pwd") {
		t.Errorf("expected to run inside the plugin dir, got %q", dir)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	skipOnWindows(t)
	p := writePlugin(t, t.TempDir(), "slow", `#!/bin/sh
sleep 10
echo '{"success":true}'
`)

	start := time.Now()
	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), p, &Request{Action: "slow"})
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error, got: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("timeout did not stop the plugin")
	}
}

func TestExecutor_Call_ErrorResponse(t *testing.T) {
	skipOnWindows(t)
	p := writePlugin(t, t.TempDir(), "failing", `#!/bin/sh
echo '{"success":false,"error":"no default sink"}'
`)

	err := NewExecutor(5*time.Second).Call(context.Background(), p, "range", nil, nil)
	if !errors.Is(err, ErrPluginFailed) {
		t.Fatalf("expected ErrPluginFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "no default sink") {
		t.Errorf("expected plugin message in error, got %v", err)
	}
}

func TestExecutor_Call_EmptyData(t *testing.T) {
	skipOnWindows(t)
	p := writePlugin(t, t.TempDir(), "quiet", `#!/bin/sh
echo '{"success":true}'
`)

	var out struct{ Min float64 }
	if err := NewExecutor(5*time.Second).Call(context.Background(), p, "range", nil, &out); err == nil {
		t.Fatal("expected an error for missing data")
	}
}

func TestExecutor_Execute_InvalidJSON(t *testing.T) {
	skipOnWindows(t)
	p := writePlugin(t, t.TempDir(), "bad", `#!/bin/sh
echo 'not valid json'
`)

	if _, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{Action: "bad"}); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestExecutor_Execute_NonZeroExit(t *testing.T) {
	skipOnWindows(t)
	p := writePlugin(t, t.TempDir(), "exit", `#!/bin/sh
echo "Error: something failed" >&2
exit 1
`)

	_, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{Action: "exit"})
	if err == nil {
		t.Fatal("expected error for non-zero exit, got nil")
	}
	if !strings.Contains(err.Error(), "something failed") {
		t.Errorf("expected stderr in error, got %v", err)
	}
}

func TestExecutor_Execute_CancelledContext(t *testing.T) {
	skipOnWindows(t)
	p := writePlugin(t, t.TempDir(), "never", `#!/bin/sh
echo '{"success":true}'
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewExecutor(5*time.Second).Execute(ctx, p, &Request{Action: "x"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
