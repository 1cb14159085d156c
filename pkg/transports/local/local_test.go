package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/shellform/shellform/pkg/transports"
)

func TestExecute(t *testing.T) {
	tr := Transport{}

	res, err := tr.Execute(context.Background(), "echo hello", "", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != 0 || res.Stdout != "hello\n" {
		t.Errorf("result = %+v, want status 0 stdout hello", res)
	}
}

func TestExecuteEnvInjection(t *testing.T) {
	tr := Transport{}

	res, err := tr.Execute(context.Background(), `printf '%s' "$INPUT_path"`, "", []transports.EnvVar{
		{Name: "INPUT_path", Value: "/opt/app"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stdout != "/opt/app" {
		t.Errorf("stdout = %q, want /opt/app", res.Stdout)
	}
}

func TestExecuteNonZeroExit(t *testing.T) {
	tr := Transport{}

	res, err := tr.Execute(context.Background(), "echo oops >&2; exit 3", "", nil)
	if err != nil {
		t.Fatalf("non-zero exit surfaced as transport error: %v", err)
	}
	if res.Status != 3 {
		t.Errorf("status = %d, want 3", res.Status)
	}
	if res.Stderr != "oops\n" {
		t.Errorf("stderr = %q, want oops", res.Stderr)
	}
}

func TestExecuteWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	tr := Transport{}

	res, err := tr.Execute(context.Background(), "pwd", dir, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got, _ := filepath.EvalSymlinks(res.Stdout[:len(res.Stdout)-1])
	want, _ := filepath.EvalSymlinks(dir)
	if got != want {
		t.Errorf("pwd = %q, want %q", got, want)
	}
}

func TestFileOperations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	tr := Transport{}
	ctx := context.Background()

	w, err := tr.WriteFile(ctx, path, 0o600, false)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := w.Write([]byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Exclusive create must refuse an existing file.
	if _, err := tr.WriteFile(ctx, path, 0o600, false); err == nil {
		t.Error("WriteFile overwrote without overwrite flag")
	}
	w2, err := tr.WriteFile(ctx, path, 0o600, true)
	if err != nil {
		t.Fatalf("WriteFile with overwrite: %v", err)
	}
	_ = w2.Close()

	r, err := tr.ReadFile(ctx, path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	data, _ := io.ReadAll(r)
	_ = r.Close()
	if string(data) != "" {
		// The overwrite above truncated the file.
		t.Errorf("content = %q, want empty after truncating overwrite", data)
	}

	if err := tr.DeleteFile(ctx, path); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still exists after DeleteFile")
	}
}

func TestRegisteredScheme(t *testing.T) {
	tr, err := transports.DefaultConnector{}.Connect(context.Background(), transports.Config{})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if tr.Scheme() != transports.SchemeLocal {
		t.Errorf("scheme = %q, want %q", tr.Scheme(), transports.SchemeLocal)
	}
}
