package transports

import (
	"errors"
	"strings"
	"testing"

	"github.com/shellform/shellform/pkg/diag"
)

func TestCacheKey(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "local zero value",
			cfg:  Config{},
			want: "local://@:22",
		},
		{
			name: "ssh with default port",
			cfg:  Config{Type: "ssh", Host: "web01", User: "deploy"},
			want: "ssh://deploy@web01:22",
		},
		{
			name: "ssh with explicit port",
			cfg:  Config{Type: "ssh", Host: "web01", User: "deploy", Port: 2222},
			want: "ssh://deploy@web01:2222",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.CacheKey(); got != tt.want {
				t.Errorf("CacheKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"local zero value", Config{}, false},
		{"explicit local", Config{Type: "local"}, false},
		{
			"valid ssh with password",
			Config{Type: "ssh", Host: "web01", User: "deploy", Password: "s3cret"},
			false,
		},
		{
			"valid ssh with key",
			Config{Type: "ssh", Host: "web01", User: "deploy", PrivateKeyPath: "/home/deploy/.ssh/id_ed25519"},
			false,
		},
		{"unknown type", Config{Type: "telnet"}, true},
		{"ssh missing host", Config{Type: "ssh", User: "deploy", Password: "x"}, true},
		{"ssh missing user", Config{Type: "ssh", Host: "web01", Password: "x"}, true},
		{"ssh missing auth", Config{Type: "ssh", Host: "web01", User: "deploy"}, true},
		{"port out of range", Config{Port: 70000}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := &diag.Diagnostics{}
			ValidateConfig(tt.cfg, diags, diag.Root("connection"))
			if diags.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v: %v", diags.HasErrors(), tt.wantErr, diags.All())
			}
		})
	}
}

func TestValidateConfigPathsPointAtConnection(t *testing.T) {
	diags := &diag.Diagnostics{}
	ValidateConfig(Config{Type: "ssh"}, diags, diag.Root("connection"))
	if !diags.HasErrors() {
		t.Fatal("invalid config passed validation")
	}
	for _, d := range diags.Errors() {
		if !strings.HasPrefix(d.Path.String(), "connection") {
			t.Errorf("diagnostic path %q not rooted at connection", d.Path)
		}
	}
}

func TestDefaultConnectorUnknownScheme(t *testing.T) {
	_, err := DefaultConnector{}.Connect(t.Context(), Config{Type: "carrier-pigeon"})
	if err == nil {
		t.Fatal("unknown scheme did not fail")
	}
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error type = %T, want *TransportError", err)
	}
	if terr.Op != "connect" {
		t.Errorf("op = %q, want connect", terr.Op)
	}
}
