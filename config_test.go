package scanout

import (
	"errors"
	"testing"
	"time"
)

func validTestConfig(t *testing.T) Config {
	t.Helper()
	conn, crtc, plane := testObjects()
	mem, err := NewMemorySwapchain(64, 36, 2)
	if err != nil {
		t.Fatalf("NewMemorySwapchain failed: %v", err)
	}
	t.Cleanup(func() { mem.Close() })
	return Config{
		Display:   newFakeDisplay(),
		Connector: conn,
		CRTC:      crtc,
		Plane:     plane,
		Mode:      testMode(),
		Swapchain: mem,
		GPU:       newFakeGPU(),
		Renderer:  RendererFunc(func(uint64) error { return nil }),
		Fencing:   true,
	}
}

func TestConfigValidate(t *testing.T) {
	if err := validTestConfig(t).Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"nil display", func(c *Config) { c.Display = nil }, "Display"},
		{"nil connector", func(c *Config) { c.Connector = nil }, "Connector"},
		{"nil crtc", func(c *Config) { c.CRTC = nil }, "CRTC"},
		{"nil plane", func(c *Config) { c.Plane = nil }, "Plane"},
		{"zero mode", func(c *Config) { c.Mode = ModeInfo{} }, "Mode"},
		{"nil swapchain", func(c *Config) { c.Swapchain = nil }, "Swapchain"},
		{"nil renderer", func(c *Config) { c.Renderer = nil }, "Renderer"},
		{"fencing without gpu", func(c *Config) { c.GPU = nil }, "GPU"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig(t)
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate should fail")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T: %v", err, err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

// TestConfigGPUOptionalWithoutFencing tests that the GPU collaborator
// is required only for the fenced path.
func TestConfigGPUOptionalWithoutFencing(t *testing.T) {
	cfg := validTestConfig(t)
	cfg.Fencing = false
	cfg.GPU = nil
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate = %v, want nil", err)
	}
}

func TestConfigWaitTimeout(t *testing.T) {
	tests := []struct {
		name string
		set  time.Duration
		want time.Duration
	}{
		{"default", 0, 5 * time.Second},
		{"explicit", 100 * time.Millisecond, 100 * time.Millisecond},
		{"forever", -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{WaitTimeout: tt.set}
			if got := c.waitTimeout(); got != tt.want {
				t.Errorf("waitTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}
