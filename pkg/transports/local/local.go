// Package local executes resource commands by spawning processes on the
// machine running the engine.
package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"

	"github.com/shellform/shellform/pkg/transports"
)

func init() {
	transports.Register(transports.SchemeLocal, func(_ context.Context, _ transports.Config) (transports.Transport, error) {
		return Transport{}, nil
	})
}

// Transport runs commands through the local shell. It is stateless; the
// zero value is ready to use.
type Transport struct{}

// Scheme implements transports.Transport.
func (Transport) Scheme() string { return transports.SchemeLocal }

// Execute runs cmd via `sh -c` in dir, with env appended to the inherited
// process environment.
func (Transport) Execute(ctx context.Context, cmd, dir string, env []transports.EnvVar) (*transports.ExecResult, error) {
	command := exec.CommandContext(ctx, "/bin/sh", "-c", cmd)
	command.Dir = dir
	command.Env = os.Environ()
	for _, e := range env {
		command.Env = append(command.Env, e.Name+"="+e.Value)
	}

	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, &transports.TransportError{Op: "execute", Err: err}
		}
		return &transports.ExecResult{
			Status: exitErr.ExitCode(),
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}, nil
	}

	return &transports.ExecResult{
		Status: 0,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}, nil
}

// ReadFile implements transports.Transport.
func (Transport) ReadFile(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &transports.TransportError{Op: "read", Err: err}
	}
	return f, nil
}

// WriteFile implements transports.Transport.
func (Transport) WriteFile(_ context.Context, path string, mode fs.FileMode, overwrite bool) (io.WriteCloser, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, mode)
	if err != nil {
		return nil, &transports.TransportError{Op: "write", Err: err}
	}
	return f, nil
}

// DeleteFile implements transports.Transport.
func (Transport) DeleteFile(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		return &transports.TransportError{Op: "delete", Err: err}
	}
	return nil
}
