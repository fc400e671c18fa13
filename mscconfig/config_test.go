package mscconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nomis52/msc/depgraph"
	"github.com/nomis52/msc/mscconfig"
	"github.com/nomis52/msc/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     mscconfig.Config
		wantErr bool
	}{
		{
			name: "valid config with dependency",
			cfg: mscconfig.Config{
				Services: []mscconfig.ServiceSpec{
					{Name: "db", Mode: "active"},
					{Name: "api", Mode: "active", Dependencies: []mscconfig.DependencySpec{
						{Name: "db", Requirement: "required", Demand: "propagate", Linkage: "peer"},
					}},
				},
			},
			wantErr: false,
		},
		{
			name: "duplicate service name",
			cfg: mscconfig.Config{
				Services: []mscconfig.ServiceSpec{
					{Name: "db", Mode: "active"},
					{Name: "db", Mode: "active"},
				},
			},
			wantErr: true,
		},
		{
			name: "unknown mode",
			cfg: mscconfig.Config{
				Services: []mscconfig.ServiceSpec{
					{Name: "db", Mode: "sometimes"},
				},
			},
			wantErr: true,
		},
		{
			name: "dependency on undeclared service",
			cfg: mscconfig.Config{
				Services: []mscconfig.ServiceSpec{
					{Name: "api", Mode: "active", Dependencies: []mscconfig.DependencySpec{
						{Name: "db", Requirement: "required", Demand: "propagate", Linkage: "peer"},
					}},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	cfg := mscconfig.Config{
		Services: []mscconfig.ServiceSpec{{Name: "db"}},
	}
	cfg.SetDefaults()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "msc", cfg.Metrics.Prefix)
	assert.NotEmpty(t, cfg.Cron.RetrySchedule)
	assert.NotEmpty(t, cfg.Cron.AuditSchedule)
	assert.Equal(t, "active", cfg.Services[0].Mode)
}

func TestLoadParsesYAMLAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := `
services:
  - name: db
    mode: active
  - name: api
    mode: on_demand
    dependencies:
      - name: db
        requirement: required
        demand: propagate
        linkage: peer
metrics:
  push_url: http://localhost:8428
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := mscconfig.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Services, 2)
	assert.Equal(t, "db", cfg.Services[0].Name)
	assert.Equal(t, service.ModeOnDemand, cfg.Services[1].ResolveMode())
}

func TestResolveOptionsTranslatesEnums(t *testing.T) {
	d := mscconfig.DependencySpec{Requirement: "unrequired", Demand: "no_demand", Linkage: "parent_child"}
	opts := d.ResolveOptions()
	assert.Equal(t, depgraph.Unrequired, opts.Requirement)
	assert.Equal(t, depgraph.NoDemand, opts.DemandPropagation)
	assert.Equal(t, depgraph.ParentChild, opts.Linkage)
}

func TestRedactedMasksSensitiveFields(t *testing.T) {
	cfg := mscconfig.Config{Metrics: mscconfig.MetricsConfig{PushURL: "http://secret:1234"}}
	redacted := cfg.Redacted()
	assert.Equal(t, "***REDACTED***", redacted.Metrics.PushURL)
	assert.Equal(t, "http://secret:1234", cfg.Metrics.PushURL)
}
