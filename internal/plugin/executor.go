package plugin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrPluginFailed is returned by Call when the plugin answers success=false.
var ErrPluginFailed = errors.New("plugin reported failure")

// Executor runs plugins with a per-call timeout.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor that kills plugins running longer than timeout.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// Execute starts the plugin in its own directory, writes req to its stdin
// and decodes its stdout as a Response.
func (e *Executor) Execute(ctx context.Context, p *Plugin, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.Executable)
	cmd.Dir = p.Path
	cmd.Stdin = bytes.NewReader(body)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("plugin %s timed out after %s", p.Manifest.Name, e.timeout)
	}
	if err != nil {
		if s := stderr.String(); s != "" {
			return nil, fmt.Errorf("run plugin %s: %w, stderr: %s", p.Manifest.Name, err, s)
		}
		return nil, fmt.Errorf("run plugin %s: %w", p.Manifest.Name, err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("parse plugin %s response: %w, stdout: %s", p.Manifest.Name, err, stdout.String())
	}
	return &resp, nil
}

// Call runs action with params and decodes the response data into out (which
// may be nil). A response with success=false becomes ErrPluginFailed.
func (e *Executor) Call(ctx context.Context, p *Plugin, action string, params, out any) error {
	req := &Request{Action: action}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		req.Params = raw
	}

	resp, err := e.Execute(ctx, p, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s %s: %s", ErrPluginFailed, p.Manifest.Name, action, resp.Error)
	}
	if out == nil {
		return nil
	}
	if len(resp.Data) == 0 {
		return fmt.Errorf("plugin %s %s: empty data", p.Manifest.Name, action)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode plugin %s %s data: %w", p.Manifest.Name, action, err)
	}
	return nil
}
