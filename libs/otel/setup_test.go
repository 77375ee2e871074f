package otelx

import "testing"

func TestConfigFromEnvDefaults(t *testing.T) {
	cfg := ConfigFromEnv("agenda-service")
	if !cfg.Enabled {
		t.Fatal("tracing should default to enabled")
	}
	if cfg.OTLPEndpoint != "jaeger:4317" {
		t.Fatalf("endpoint %q", cfg.OTLPEndpoint)
	}
	if cfg.SampleRatio != 1.0 {
		t.Fatalf("sample ratio %v", cfg.SampleRatio)
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")

	cfg := ConfigFromEnv("agenda-service")
	if cfg.Enabled {
		t.Fatal("tracing should be disabled")
	}
	if cfg.OTLPEndpoint != "collector:4317" {
		t.Fatalf("endpoint %q", cfg.OTLPEndpoint)
	}
	if cfg.SampleRatio != 0.25 {
		t.Fatalf("sample ratio %v", cfg.SampleRatio)
	}
}
