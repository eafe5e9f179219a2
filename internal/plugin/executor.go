package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/logging"
)

// ErrTimeout is returned when a plugin does not answer within the
// executor's timeout.
var ErrTimeout = errors.New("plugin execution timeout")

// ErrActionFailed wraps the error text of an unsuccessful Response.
var ErrActionFailed = errors.New("plugin action failed")

// Executor runs plugins with a per-call timeout.
type Executor struct {
	timeout time.Duration
	log     zerolog.Logger
}

// NewExecutor creates an Executor. Each call is bounded by timeout as well as
// by the caller's context.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{
		timeout: timeout,
		log:     logging.For("plugin"),
	}
}

// Execute sends req to the plugin on stdin and parses its stdout as a
// Response. A Response with Success false is returned without error; use
// Call to turn it into one.
func (e *Executor) Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	cmd := exec.CommandContext(ctx, plugin.Executable)
	cmd.Dir = plugin.Path
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	e.log.Debug().
		Str("plugin", plugin.Manifest.Name).
		Str("action", req.Action).
		Dur("took", time.Since(start)).
		Err(err).
		Msg("plugin call")

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("plugin execution failed: %w, stderr: %s", err, msg)
		}
		return nil, fmt.Errorf("plugin execution failed: %w", err)
	}

	var response Response
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("failed to parse plugin response: %w, stdout: %s", err, stdout.String())
	}

	return &response, nil
}

// Call runs action with params marshaled as the request payload and decodes
// the response data into out when out is non-nil.
func (e *Executor) Call(ctx context.Context, plugin *Plugin, action string, params, out any) error {
	req := &Request{Action: action}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		req.Params = raw
	}

	resp, err := e.Execute(ctx, plugin, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s: %s", ErrActionFailed, action, resp.Error)
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", action, err)
		}
	}
	return nil
}
