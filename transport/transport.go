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

// Package transport ships encoded aggregator payloads to a Datadog
// agent-compatible collector over HTTP.
package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const pipelineStatsPath = "/v0.1/pipeline_stats"

// HTTPTransport POSTs gzip-compressed MessagePack payloads to a
// Datadog-agent-compatible collector. It implements
// aggregator.Transport by structural typing.
type HTTPTransport struct {
	baseURL       string
	client        *retryablehttp.Client
	limiter       *rate.Limiter
	containerID   string
	lang          string
	tracerVersion string
}

// New builds an HTTPTransport targeting baseURL (e.g.
// "http://localhost:8126"). requestsPerSecond bounds how often
// SendPipelineStats is allowed to actually hit the network; excess
// calls block until a token is available, since flushes already run
// off the aggregator's critical path.
func New(baseURL string, requestsPerSecond float64, lang, tracerVersion string) *HTTPTransport {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = 2
	client.HTTPClient.Timeout = 10 * time.Second

	return &HTTPTransport{
		baseURL:       baseURL,
		client:        client,
		limiter:       rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		containerID:   DiscoverContainerID(),
		lang:          lang,
		tracerVersion: tracerVersion,
	}
}

// SendPipelineStats implements aggregator.Transport.
func (t *HTTPTransport) SendPipelineStats(payload []byte) error {
	if err := t.limiter.Wait(context.Background()); err != nil {
		return fmt.Errorf("transport: rate limiter: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return fmt.Errorf("transport: gzip: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("transport: gzip: %w", err)
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, t.baseURL+pipelineStatsPath, &buf)
	if err != nil {
		return fmt.Errorf("transport: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/msgpack")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Datadog-Meta-Lang", t.lang)
	req.Header.Set("Datadog-Meta-Tracer-Version", t.tracerVersion)
	if t.containerID != "" {
		req.Header.Set("Datadog-Container-ID", t.containerID)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("transport: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return nil
	}
	return fmt.Errorf("transport: collector responded with status %d", resp.StatusCode)
}
