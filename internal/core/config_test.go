package core

import (
	"strings"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"
)

// TestPoolConfigValidate exercises the per-field invariants and the
// multi-error reporting.
func TestPoolConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() PoolConfig {
		return testPoolConfig(okFactory(), clocktesting.NewFakeClock(time.Now()))
	}

	tests := map[string]struct {
		modify       func(c *PoolConfig)
		wantContains []string
	}{
		"valid config": {
			modify: func(_ *PoolConfig) {},
		},
		"zero max connections": {
			modify:       func(c *PoolConfig) { c.MaxConnections = 0 },
			wantContains: []string{"max connections must be greater than 0, got 0"},
		},
		"negative max idle connections": {
			modify:       func(c *PoolConfig) { c.MaxIdleConnections = -1 },
			wantContains: []string{"max idle connections must not be negative, got -1"},
		},
		"zero max idle connections is allowed": {
			modify: func(c *PoolConfig) { c.MaxIdleConnections = 0 },
		},
		"zero connection timeout": {
			modify:       func(c *PoolConfig) { c.ConnectionTimeout = 0 },
			wantContains: []string{"connection timeout must be greater than 0"},
		},
		"negative idle timeout": {
			modify:       func(c *PoolConfig) { c.IdleTimeout = -time.Second },
			wantContains: []string{"idle timeout must be greater than 0"},
		},
		"zero health check interval": {
			modify:       func(c *PoolConfig) { c.HealthCheckInterval = 0 },
			wantContains: []string{"health check interval must be greater than 0"},
		},
		"zero max retries": {
			modify:       func(c *PoolConfig) { c.MaxRetries = 0 },
			wantContains: []string{"max retries must be greater than 0, got 0"},
		},
		"zero retry backoff": {
			modify:       func(c *PoolConfig) { c.RetryBackoff = 0 },
			wantContains: []string{"retry backoff must be greater than 0"},
		},
		"zero probe timeout": {
			modify:       func(c *PoolConfig) { c.ProbeTimeout = 0 },
			wantContains: []string{"probe timeout must be greater than 0"},
		},
		"zero probe concurrency": {
			modify:       func(c *PoolConfig) { c.MaxProbeConcurrency = 0 },
			wantContains: []string{"max probe concurrency must be greater than 0, got 0"},
		},
		"negative consecutive failures": {
			modify:       func(c *PoolConfig) { c.MaxConsecutiveFailures = -1 },
			wantContains: []string{"max consecutive failures must not be negative, got -1"},
		},
		"zero consecutive failures disables forced eviction": {
			modify: func(c *PoolConfig) { c.MaxConsecutiveFailures = 0 },
		},
		"nil factory": {
			modify:       func(c *PoolConfig) { c.Factory = nil },
			wantContains: []string{"client factory must not be nil"},
		},
		"nil clock": {
			modify:       func(c *PoolConfig) { c.Clock = nil },
			wantContains: []string{"clock must not be nil"},
		},
		"multiple violations reported together": {
			modify: func(c *PoolConfig) {
				c.MaxConnections = -1
				c.MaxRetries = 0
				c.Factory = nil
			},
			wantContains: []string{
				"max connections must be greater than 0, got -1",
				"max retries must be greater than 0, got 0",
				"client factory must not be nil",
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tc.modify(&cfg)
			err := cfg.Validate()

			if len(tc.wantContains) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tc.wantContains)
			}
			for _, want := range tc.wantContains {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Validate() = %q, missing %q", err, want)
				}
			}
		})
	}
}
