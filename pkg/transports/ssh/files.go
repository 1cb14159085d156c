package ssh

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/pkg/sftp"

	"github.com/shellform/shellform/pkg/transports"
)

// sftpSession opens an SFTP subsystem on the cached connection. Each file
// operation uses its own subsystem so concurrent transfers do not share
// stream state.
func (c *Client) sftpSession() (*sftp.Client, error) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return nil, errors.New("not connected")
	}
	return sftp.NewClient(client)
}

// ReadFile implements transports.Transport.
func (c *Client) ReadFile(_ context.Context, path string) (io.ReadCloser, error) {
	client, err := c.sftpSession()
	if err != nil {
		return nil, &transports.TransportError{Op: "read", Err: err}
	}
	f, err := client.Open(path)
	if err != nil {
		_ = client.Close()
		return nil, &transports.TransportError{Op: "read", Err: err}
	}
	return &sftpFile{file: f, session: client}, nil
}

// WriteFile implements transports.Transport.
func (c *Client) WriteFile(_ context.Context, path string, mode fs.FileMode, overwrite bool) (io.WriteCloser, error) {
	client, err := c.sftpSession()
	if err != nil {
		return nil, &transports.TransportError{Op: "write", Err: err}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := client.OpenFile(path, flags)
	if err != nil {
		_ = client.Close()
		return nil, &transports.TransportError{Op: "write", Err: err}
	}
	if err := client.Chmod(path, mode); err != nil {
		_ = f.Close()
		_ = client.Close()
		return nil, &transports.TransportError{Op: "write", Err: err}
	}
	return &sftpFile{file: f, session: client}, nil
}

// DeleteFile implements transports.Transport.
func (c *Client) DeleteFile(_ context.Context, path string) error {
	client, err := c.sftpSession()
	if err != nil {
		return &transports.TransportError{Op: "delete", Err: err}
	}
	defer client.Close()

	if err := client.Remove(path); err != nil {
		return &transports.TransportError{Op: "delete", Err: err}
	}
	return nil
}

// sftpFile ties the lifetime of the SFTP subsystem to the open file.
type sftpFile struct {
	file    *sftp.File
	session *sftp.Client
}

func (f *sftpFile) Read(p []byte) (int, error)  { return f.file.Read(p) }
func (f *sftpFile) Write(p []byte) (int, error) { return f.file.Write(p) }

func (f *sftpFile) Close() error {
	err := f.file.Close()
	if cerr := f.session.Close(); err == nil {
		err = cerr
	}
	return err
}
