package reader

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"sync"
	"testing"

	"github.com/shellform/shellform/pkg/diag"
	"github.com/shellform/shellform/pkg/resource"
	"github.com/shellform/shellform/pkg/transports"
	"github.com/shellform/shellform/pkg/value"
)

// mockTransport scripts per-command results and tracks the in-flight count.
type mockTransport struct {
	mu          sync.Mutex
	results     map[string]*transports.ExecResult
	errs        map[string]error
	inFlight    int
	maxInFlight int
	executed    []string
}

func (m *mockTransport) Scheme() string { return "mock" }

func (m *mockTransport) Execute(_ context.Context, cmd, _ string, _ []transports.EnvVar) (*transports.ExecResult, error) {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.executed = append(m.executed, cmd)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if err, ok := m.errs[cmd]; ok {
		return nil, err
	}
	if res, ok := m.results[cmd]; ok {
		return res, nil
	}
	return &transports.ExecResult{Status: 0, Stdout: "default"}, nil
}

func (m *mockTransport) ReadFile(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (m *mockTransport) WriteFile(context.Context, string, fs.FileMode, bool) (io.WriteCloser, error) {
	return nil, errors.New("not implemented")
}

func (m *mockTransport) DeleteFile(context.Context, string) error {
	return errors.New("not implemented")
}

func unknownOutputs(keys ...string) value.StringMap {
	m := make(map[string]value.String, len(keys))
	for _, k := range keys {
		m[k] = value.Unknown[string]()
	}
	return value.Known(m)
}

func TestReadAllResolvesEveryOutput(t *testing.T) {
	mock := &mockTransport{
		results: map[string]*transports.ExecResult{
			"r1": {Status: 0, Stdout: "one\n"},
			"r2": {Status: 0, Stdout: "two\n"},
			"r3": {Status: 0, Stdout: "three\n"},
			"r4": {Status: 1, Stderr: "boom"},
		},
		errs: map[string]error{
			"r5": errors.New("connection reset"),
		},
	}
	reads := map[string]resource.ReadSpec{
		"k1": {CommandSpec: resource.CommandSpec{Cmd: "r1"}, StripTrailingNewline: true},
		"k2": {CommandSpec: resource.CommandSpec{Cmd: "r2"}, StripTrailingNewline: true},
		"k3": {CommandSpec: resource.CommandSpec{Cmd: "r3"}, StripTrailingNewline: true},
		"k4": {CommandSpec: resource.CommandSpec{Cmd: "r4"}},
		"k5": {CommandSpec: resource.CommandSpec{Cmd: "r5"}},
	}
	outputs := unknownOutputs("k1", "k2", "k3", "k4", "k5")
	diags := &diag.Diagnostics{}

	stats := ReadAll(context.Background(), mock, reads, outputs, nil, false, 2, diags)
	if stats.Scheduled != 5 || stats.Failed != 2 {
		t.Errorf("stats = %+v, want 5 scheduled, 2 failed", stats)
	}

	inner, _ := outputs.Get()
	known, null := 0, 0
	for k, v := range inner {
		switch {
		case v.IsKnown():
			known++
		case v.IsNull():
			null++
		default:
			t.Errorf("output %q still unknown after ReadAll", k)
		}
	}
	if known != 3 || null != 2 {
		t.Errorf("known/null = %d/%d, want 3/2", known, null)
	}
	if got := inner["k1"].Or(""); got != "one" {
		t.Errorf("k1 = %q, want trailing newline stripped", got)
	}
	if len(diags.Errors()) != 2 {
		t.Errorf("errors = %d, want 2", len(diags.Errors()))
	}
	if mock.maxInFlight > 2 {
		t.Errorf("max in-flight = %d, want <= 2", mock.maxInFlight)
	}
	if len(mock.executed) != 5 {
		t.Errorf("executed %d commands, want 5", len(mock.executed))
	}
}

func TestReadAllFaillibleDowngradesToWarning(t *testing.T) {
	mock := &mockTransport{
		results: map[string]*transports.ExecResult{"r": {Status: 1, Stderr: "nope"}},
	}
	reads := map[string]resource.ReadSpec{
		"k": {CommandSpec: resource.CommandSpec{Cmd: "r"}, Faillible: true},
	}
	outputs := unknownOutputs("k")
	diags := &diag.Diagnostics{}

	ReadAll(context.Background(), mock, reads, outputs, nil, false, 1, diags)
	if diags.HasErrors() {
		t.Errorf("faillible read produced errors: %v", diags.Errors())
	}
	if len(diags.Warnings()) != 1 {
		t.Errorf("warnings = %d, want 1", len(diags.Warnings()))
	}

	inner, _ := outputs.Get()
	if !inner["k"].IsNull() {
		t.Errorf("failed faillible read = %#v, want null", inner["k"])
	}
}

func TestReadAllOverrideDowngradesEverything(t *testing.T) {
	mock := &mockTransport{errs: map[string]error{"r": errors.New("down")}}
	reads := map[string]resource.ReadSpec{"k": {CommandSpec: resource.CommandSpec{Cmd: "r"}}}
	outputs := unknownOutputs("k")
	diags := &diag.Diagnostics{}

	ReadAll(context.Background(), mock, reads, outputs, nil, true, 1, diags)
	if diags.HasErrors() {
		t.Errorf("override did not downgrade: %v", diags.Errors())
	}
}

func TestReadAllSkipsResolvedOutputs(t *testing.T) {
	mock := &mockTransport{}
	reads := map[string]resource.ReadSpec{
		"known": {CommandSpec: resource.CommandSpec{Cmd: "r1"}},
		"null":  {CommandSpec: resource.CommandSpec{Cmd: "r2"}},
	}
	outputs := value.Known(map[string]value.String{
		"known": value.Known("cached"),
		"null":  value.Null[string](),
	})
	diags := &diag.Diagnostics{}

	ReadAll(context.Background(), mock, reads, outputs, nil, false, 4, diags)
	if len(mock.executed) != 0 {
		t.Errorf("executed %v, want nothing", mock.executed)
	}
	inner, _ := outputs.Get()
	if inner["known"].Or("") != "cached" {
		t.Error("resolved output was overwritten")
	}
}

func TestReadAllMissingReadRule(t *testing.T) {
	mock := &mockTransport{}
	outputs := unknownOutputs("orphan")
	diags := &diag.Diagnostics{}

	ReadAll(context.Background(), mock, nil, outputs, nil, false, 1, diags)
	if !diags.HasErrors() {
		t.Fatal("orphan unknown output not reported")
	}
	inner, _ := outputs.Get()
	if !inner["orphan"].IsNull() {
		t.Errorf("orphan = %#v, want null", inner["orphan"])
	}
	wantPath := `state["orphan"]`
	if got := diags.Errors()[0].Path.String(); got != wantPath {
		t.Errorf("path = %q, want %q", got, wantPath)
	}
}

func TestReadAllStderrOnSuccessWarns(t *testing.T) {
	mock := &mockTransport{
		results: map[string]*transports.ExecResult{"r": {Status: 0, Stdout: "v", Stderr: "noise"}},
	}
	reads := map[string]resource.ReadSpec{"k": {CommandSpec: resource.CommandSpec{Cmd: "r"}}}
	outputs := unknownOutputs("k")
	diags := &diag.Diagnostics{}

	ReadAll(context.Background(), mock, reads, outputs, nil, false, 1, diags)
	if diags.HasErrors() {
		t.Errorf("stderr on success treated as error: %v", diags.Errors())
	}
	if len(diags.Warnings()) != 1 {
		t.Errorf("warnings = %d, want 1", len(diags.Warnings()))
	}
	inner, _ := outputs.Get()
	if inner["k"].Or("") != "v" {
		t.Errorf("k = %#v, want known \"v\"", inner["k"])
	}
}

func TestReadAllNoNewlineToStrip(t *testing.T) {
	mock := &mockTransport{
		results: map[string]*transports.ExecResult{"r": {Status: 0, Stdout: "bare"}},
	}
	reads := map[string]resource.ReadSpec{
		"k": {CommandSpec: resource.CommandSpec{Cmd: "r"}, StripTrailingNewline: true},
	}
	outputs := unknownOutputs("k")
	diags := &diag.Diagnostics{}

	ReadAll(context.Background(), mock, reads, outputs, nil, false, 1, diags)
	inner, _ := outputs.Get()
	if got := inner["k"].Or(""); got != "bare" {
		t.Errorf("k = %q, want bare", got)
	}
}
