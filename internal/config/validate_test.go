package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-dev/vigil/internal/errors"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Hosts = []Host{
		{Name: "web-01", Address: "10.0.0.5", User: "deploy"},
		{Name: "db-01", Address: "db.internal", Port: 2222, Auth: AuthAgent},
	}
	return cfg
}

func TestValidateOK(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidateHostErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "missing name",
			mutate:  func(c *Config) { c.Hosts[0].Name = "" },
			wantMsg: "missing its 'name'",
		},
		{
			name:    "name with at sign",
			mutate:  func(c *Config) { c.Hosts[0].Name = "deploy@web" },
			wantMsg: "can't contain",
		},
		{
			name:    "missing address",
			mutate:  func(c *Config) { c.Hosts[0].Address = "" },
			wantMsg: "needs an 'address'",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Hosts[0].Port = 70000 },
			wantMsg: "ports go from",
		},
		{
			name:    "unknown auth",
			mutate:  func(c *Config) { c.Hosts[0].Auth = "kerberos" },
			wantMsg: "use 'password', 'key', or 'agent'",
		},
		{
			name:    "key auth without key file",
			mutate:  func(c *Config) { c.Hosts[0].Auth = AuthKey },
			wantMsg: "no 'key_file'",
		},
		{
			name: "unexpanded variable in key file",
			mutate: func(c *Config) {
				c.Hosts[0].Auth = AuthKey
				c.Hosts[0].KeyFile = "${KEYDIR}/id_rsa"
			},
			wantMsg: "unexpanded variable",
		},
		{
			name:    "unknown transport",
			mutate:  func(c *Config) { c.Hosts[0].Transport = "telnet" },
			wantMsg: "use 'ssh' or 'winrm'",
		},
		{
			name: "duplicate names",
			mutate: func(c *Config) {
				c.Hosts = append(c.Hosts, Host{Name: "web-01", Address: "10.0.0.6"})
			},
			wantMsg: "both named",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Defaults.Interval = -time.Second
	require.Error(t, Validate(cfg))

	cfg = DefaultConfig()
	cfg.Defaults.Transport = "carrier-pigeon"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "use 'ssh' or 'winrm'")
}
