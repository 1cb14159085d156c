package transports

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shellform/shellform/pkg/diag"
)

// Known transport schemes.
const (
	SchemeLocal = "local"
	SchemeSSH   = "ssh"
)

// Config describes how to reach the system a resource lives on.
// The zero value is a local connection.
type Config struct {
	// Type selects the transport scheme. Empty means local.
	Type string `yaml:"type,omitempty" validate:"omitempty,oneof=local ssh"`

	// Host is the remote hostname or IP address. Required for ssh.
	Host string `yaml:"host,omitempty" validate:"required_if=Type ssh"`

	// Port is the remote port (default 22 for ssh).
	Port int `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`

	// User is the remote username. Required for ssh.
	User string `yaml:"user,omitempty" validate:"required_if=Type ssh"`

	// Password enables password authentication when non-empty.
	Password string `yaml:"password,omitempty"`

	// PrivateKeyPath is the path to a private key file for key auth.
	PrivateKeyPath string `yaml:"private_key_path,omitempty"`

	// PrivateKeyPassphrase decrypts an encrypted private key.
	PrivateKeyPassphrase string `yaml:"private_key_passphrase,omitempty"`

	// KnownHostsPath points at a known_hosts file for host key checks.
	// Empty disables host key verification.
	KnownHostsPath string `yaml:"known_hosts_path,omitempty"`

	// ConnectTimeout bounds connection establishment. Zero means 30s.
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
}

var configValidator = validator.New()

// CacheKey identifies the live connection this configuration resolves to.
// Transports cache connections under this key.
func (c Config) CacheKey() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%s://%s@%s:%d", c.schemeOrLocal(), c.User, c.Host, port)
}

func (c Config) schemeOrLocal() string {
	if c.Type == "" {
		return SchemeLocal
	}
	return c.Type
}

// validate runs struct-level checks and attributes each finding to the
// offending field under attrPath.
func (c Config) validate(diags *diag.Diagnostics, attrPath diag.Path) {
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			diags.Error("Invalid connection configuration", err.Error(), attrPath)
			return
		}
		for _, fe := range verrs {
			diags.Error(
				"Invalid connection configuration",
				fmt.Sprintf("field %q failed rule %q", fieldName(fe), fe.Tag()),
				attrPath.Attr(fieldName(fe)),
			)
		}
		return
	}

	if c.schemeOrLocal() == SchemeSSH && c.Password == "" && c.PrivateKeyPath == "" {
		diags.Error(
			"Invalid connection configuration",
			"ssh connections need either a password or a private key path",
			attrPath,
		)
	}
}

func fieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field())
}
