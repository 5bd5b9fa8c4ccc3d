package config

import "testing"

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.ConnectionWorkers != 1 || cfg.ComputeWorkers != 1 || cfg.Port != 8080 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestParseFlags(t *testing.T) {
	cfg, err := Parse([]string{"-w", "4", "-t", "2", "--port", "9090", "--split"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.ComputeWorkers != 4 || cfg.ConnectionWorkers != 2 || cfg.Port != 9090 || !cfg.Split {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestParseRejectsZeroWorkers(t *testing.T) {
	if _, err := Parse([]string{"-w", "0"}); err == nil {
		t.Fatal("expected error for zero compute workers")
	}
}

func TestParseRejectsBadPort(t *testing.T) {
	if _, err := Parse([]string{"--port", "70000"}); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}
