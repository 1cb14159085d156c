package ssh

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/shellform/shellform/pkg/transports"
)

// Execute runs cmd in a fresh session on the cached connection. The
// environment is injected through `env`(1) rather than session Setenv,
// which most sshd configurations reject for arbitrary names.
func (c *Client) Execute(ctx context.Context, cmd, dir string, env []transports.EnvVar) (*transports.ExecResult, error) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return nil, &transports.TransportError{Op: "execute", Err: errors.New("not connected")}
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, &transports.TransportError{Op: "execute", Err: err}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(wrapCommand(cmd, dir, env))
	}()

	select {
	case <-ctx.Done():
		// The remote command is not actively cancelled; only its result
		// is abandoned.
		_ = session.Signal(ssh.SIGTERM)
		return nil, &transports.TransportError{Op: "execute", Err: ctx.Err()}
	case err = <-done:
	}

	result := &transports.ExecResult{
		Status: 0,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *ssh.ExitError
		if !errors.As(err, &exitErr) {
			return nil, &transports.TransportError{Op: "execute", Err: err}
		}
		result.Status = exitErr.ExitStatus()
	}
	return result, nil
}

// wrapCommand builds the remote command line: env assignments first (order
// preserved), then an optional cd, then the user command under `sh -c`.
func wrapCommand(cmd, dir string, env []transports.EnvVar) string {
	var b strings.Builder
	b.WriteString("env")
	for _, e := range env {
		b.WriteByte(' ')
		b.WriteString(shellQuote(e.Name + "=" + e.Value))
	}
	b.WriteString(" sh -c ")
	if dir != "" {
		b.WriteString(shellQuote("cd " + shellQuote(dir) + " && " + cmd))
	} else {
		b.WriteString(shellQuote(cmd))
	}
	return b.String()
}

// shellQuote single-quotes s for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
