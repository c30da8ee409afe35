package otel

import (
	"context"
	"testing"
)

func TestSetupWithoutEndpointIsNoOp(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	shutdown, err := Setup(context.Background(), "earnd", "test")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected a shutdown function")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestTargetFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "authorization=Bearer token, x-team = core,malformed")

	target, enabled := targetFromEnv()
	if !enabled {
		t.Fatal("expected export to be enabled")
	}
	if target.endpoint != "collector:4318" {
		t.Fatalf("unexpected endpoint %q", target.endpoint)
	}
	if target.insecure {
		t.Fatal("expected insecure to be disabled")
	}
	if target.headers["authorization"] != "Bearer token" || target.headers["x-team"] != "core" {
		t.Fatalf("unexpected headers: %v", target.headers)
	}
	if _, ok := target.headers["malformed"]; ok {
		t.Fatal("entries without a key=value shape must be dropped")
	}
}

func TestParseHeadersEmptyInput(t *testing.T) {
	if headers := parseHeaders(""); len(headers) != 0 {
		t.Fatalf("expected no headers, got %v", headers)
	}
}
