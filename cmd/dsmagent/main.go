//
// Copyright 2016 Gregory Trubetskoy. All Rights Reserved.
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

// Command dsmagent wires the pathway/aggregator core to a live process:
// it loads configuration, starts the aggregator actor (or leaves it
// disabled), and exposes the pieces an integration needs to checkpoint
// pathways and feed points into the aggregator.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tgres/tgres/aggregator"
	"github.com/tgres/tgres/config"
	"github.com/tgres/tgres/pathway"
	"github.com/tgres/tgres/transport"
)

var (
	buildTime, gitRevision string
)

func parseFlags() (cfgPath string, version bool) {
	flag.StringVar(&cfgPath, "c", "", "path to TOML config file (optional)")
	flag.BoolVar(&version, "version", false, "print version and exit")
	flag.Parse()
	return
}

func printVersion() {
	fmt.Printf("dsmagent build %s (%s)\n", buildTime, gitRevision)
}

func main() {
	cfgPath, version := parseFlags()
	if version {
		printVersion()
		os.Exit(0)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("dsmagent: config: %v", err)
	}

	var tr aggregator.Transport = aggregator.NopTransport{}
	if cfg.Agent.Enabled {
		tr = transport.New(cfg.BaseURL(), 10, cfg.Lang, cfg.TracerVersion)
	}

	agg := aggregator.New(cfg.Service, cfg.Env, cfg.PrimaryTag, cfg.TracerVersion, cfg.Lang, tr, cfg.Agent.Enabled)
	if d, err := cfg.FlushDuration(); err != nil {
		log.Fatalf("dsmagent: config: %v", err)
	} else {
		agg.FlushInterval = d
	}
	agg.Start()

	// Demonstrates the produce/consume wiring: checkpoint from an empty
	// pathway, feed the resulting point into the aggregator, then
	// propagate the pathway onward in an outgoing header map.
	demoCheckpointAndPropagate(agg, cfg)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Printf("dsmagent: shutting down, flushing pending buckets...")
	agg.Stop()
}

// hashCache memoizes the node hash across the process's repeated
// checkpoints of the same (service, env, primaryTag, tag set); a hot
// consumer loop would otherwise re-sort and re-hash the tag set on
// every single message.
var hashCache = pathway.NewHashCache(0)

func demoCheckpointAndPropagate(agg *aggregator.Aggregator, cfg *config.Config) {
	now := pathway.Now()
	next, point := pathway.CheckpointCached(hashCache, pathway.Empty, cfg.Service, cfg.Env, cfg.PrimaryTag, nil, now)

	agg.AddPoint(aggregator.AggregatorPoint{
		EdgeTags:         point.EdgeTags,
		Hash:             point.Hash,
		ParentHash:       point.ParentHash,
		PathwayLatencyNs: point.PathwayLatencyNs,
		EdgeLatencyNs:    point.EdgeLatencyNs,
		TimestampNs:      point.TimestampNs,
	})

	headers := map[string][]byte{}
	pathway.InjectHeaders(headerMapCarrier(headers), next)
}

// headerMapCarrier adapts a plain map[string][]byte to
// pathway.HeaderCarrier for integrations that don't have a richer
// header type of their own (e.g. a raw Kafka record).
type headerMapCarrier map[string][]byte

func (h headerMapCarrier) Get(key string) ([]byte, bool) {
	for k, v := range h {
		if len(k) == len(key) && equalFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func (h headerMapCarrier) Set(key string, value []byte) { h[key] = value }

func (h headerMapCarrier) Del(key string) {
	for k := range h {
		if equalFold(k, key) {
			delete(h, k)
		}
	}
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
