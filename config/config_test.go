package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaultsAreSane(t *testing.T) {
	c := Default()
	if c.Agent.Enabled {
		t.Fatal("agent.enabled must default to false")
	}
	if c.Agent.Host != "localhost" || c.Agent.Port != 8126 {
		t.Fatalf("unexpected agent defaults: %+v", c.Agent)
	}
}

func TestApplyEnvOverridesService(t *testing.T) {
	os.Setenv("DD_SERVICE", "checkout")
	defer os.Unsetenv("DD_SERVICE")

	c := Default()
	c.ApplyEnv()
	if c.Service != "checkout" {
		t.Fatalf("Service = %q, want checkout", c.Service)
	}
}

func TestProcessRejectsEnabledAgentWithoutHost(t *testing.T) {
	c := Default()
	c.Agent.Enabled = true
	c.Agent.Host = ""
	if err := c.process(); err == nil {
		t.Fatal("expected an error when agent is enabled with an empty host")
	}
}

func TestBaseURL(t *testing.T) {
	c := Default()
	if got, want := c.BaseURL(), "http://localhost:8126"; got != want {
		t.Fatalf("BaseURL() = %q, want %q", got, want)
	}
}

func TestLoadWithoutFileAppliesDefaultsAndEnv(t *testing.T) {
	os.Setenv("DD_ENV", "staging")
	defer os.Unsetenv("DD_ENV")

	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Env != "staging" {
		t.Fatalf("Env = %q, want staging", c.Env)
	}
}

func TestFlushDurationDefault(t *testing.T) {
	c := Default()
	d, err := c.FlushDuration()
	if err != nil {
		t.Fatal(err)
	}
	if d != 10*time.Second {
		t.Fatalf("FlushDuration() = %v, want 10s", d)
	}
}

func TestFlushDurationParsesRelaxedSyntax(t *testing.T) {
	c := Default()
	c.FlushInterval = "1min"
	d, err := c.FlushDuration()
	if err != nil {
		t.Fatal(err)
	}
	if d != time.Minute {
		t.Fatalf("FlushDuration() = %v, want 1m", d)
	}
}

func TestFlushDurationRejectsGarbage(t *testing.T) {
	c := Default()
	c.FlushInterval = "not-a-duration"
	if _, err := c.FlushDuration(); err == nil {
		t.Fatal("expected an error for an unparsable flush_interval")
	}
}
