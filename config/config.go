//
// Copyright 2015 Gregory Trubetskoy. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the settings that gate and parameterize the
// pathway/aggregator core: service identity, whether the agent
// collaborator is enabled, and where to reach it.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tgres/tgres/misc"
)

// Agent groups the settings that control the transport collaborator.
type Agent struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

// Config is the top-level settings collaborator consumed by the
// pathway/aggregator core. Needs to be exported for TOML to work.
type Config struct {
	Service       string `toml:"service"`
	Env           string `toml:"env"`
	PrimaryTag    string `toml:"primary_tag"`
	TracerVersion string `toml:"tracer_version"`
	Lang          string `toml:"lang"`
	Agent         Agent  `toml:"agent"`

	// FlushInterval overrides the aggregator's flush cadence (default
	// "10s"); the bucket width stays fixed at aggregator.BucketDuration.
	// Accepts the same relaxed duration syntax tgres configs do (e.g.
	// "1min", "2hour").
	FlushInterval string `toml:"flush_interval"`
}

// Default returns the settings the core falls back to when no TOML
// file and no environment overrides are present.
func Default() *Config {
	return &Config{
		Service:       "unnamed-go-service",
		Env:           "",
		PrimaryTag:    "",
		TracerVersion: "",
		Lang:          "Go",
		Agent: Agent{
			Enabled: false,
			Host:    "localhost",
			Port:    8126,
		},
	}
}

// Load reads cfgPath as TOML on top of the defaults, then layers
// DD_*-style environment overrides on top of that. cfgPath may be
// empty, in which case only defaults and environment apply.
func Load(cfgPath string) (*Config, error) {
	c := Default()
	if cfgPath != "" {
		if _, err := toml.DecodeFile(cfgPath, c); err != nil {
			return nil, fmt.Errorf("config: decoding %q: %w", cfgPath, err)
		}
	}
	c.ApplyEnv()
	if err := c.process(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overlays the handful of environment variables the agent
// ecosystem conventionally uses to override static configuration,
// mirroring DD_ENV / DD_SERVICE / DD_AGENT_HOST / DD_TRACE_AGENT_PORT.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DD_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("DD_SERVICE"); v != "" {
		c.Service = v
	}
	if v := os.Getenv("DD_AGENT_HOST"); v != "" {
		c.Agent.Host = v
	}
	if v := os.Getenv("DD_TRACE_AGENT_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			c.Agent.Port = port
		} else {
			log.Printf("config: ignoring invalid DD_TRACE_AGENT_PORT=%q", v)
		}
	}
}

func (c *Config) process() error {
	if err := c.processService(); err != nil {
		return err
	}
	if err := c.processAgent(); err != nil {
		return err
	}
	return nil
}

func (c *Config) processService() error {
	if c.Service == "" {
		c.Service = "unnamed-go-service"
		log.Printf("config: service unspecified, defaulting to %q", c.Service)
	}
	c.Service = misc.SanitizeName(c.Service)
	return nil
}

func (c *Config) processAgent() error {
	if !c.Agent.Enabled {
		log.Printf("config: agent.enabled is false, the aggregator will not be started")
		return nil
	}
	if c.Agent.Host == "" {
		return fmt.Errorf("config: agent.host is empty but agent.enabled is true")
	}
	if c.Agent.Port <= 0 {
		return fmt.Errorf("config: agent.port must be positive, got %d", c.Agent.Port)
	}
	log.Printf("config: agent enabled at %s:%d", c.Agent.Host, c.Agent.Port)
	return nil
}

// BaseURL returns the collector's base URL for the pipeline stats endpoint.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Agent.Host, c.Agent.Port)
}

// FlushDuration parses FlushInterval, defaulting to 10s (the bucket
// width the wire format assumes) when unset.
func (c *Config) FlushDuration() (time.Duration, error) {
	if c.FlushInterval == "" {
		return 10 * time.Second, nil
	}
	d, err := misc.BetterParseDuration(c.FlushInterval)
	if err != nil {
		return 0, fmt.Errorf("config: invalid flush_interval %q: %w", c.FlushInterval, err)
	}
	return d, nil
}
