// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package probes issues single bounded-timeout connectivity checks against
// the external services a deployment is configured for. A probe never
// returns an error for an unreachable target; reachability failures are a
// normal outcome reported in the result.
package probes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/queqiao-arr/queqiao/pkg/redact"
)

// DefaultTimeout bounds a probe when the caller does not override it.
const DefaultTimeout = 5 * time.Second

// DefaultProxyProbeURL is the target used by a proxy test when the request
// does not name one.
const DefaultProxyProbeURL = "https://www.gstatic.com/generate_204"

// tmdbBaseURL is fixed; TMDB configs may omit their url entirely.
const tmdbBaseURL = "https://api.themoviedb.org"

// Result is the outcome of one probe. OK false is a finding, not a failure.
type Result struct {
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
	LatencyMS int64  `json:"latency_ms"`
}

// Target identifies what a probe should reach and how to authenticate.
type Target struct {
	ServiceName string
	URL         string
	APIKey      string
	// ProxyURL routes the probe through an outbound proxy when set.
	ProxyURL string
}

type Prober struct {
	timeout time.Duration
}

// New creates a Prober with the given default timeout; zero selects
// DefaultTimeout.
func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{timeout: timeout}
}

func (p *Prober) client(timeout time.Duration, proxyURL string) *resty.Client {
	if timeout <= 0 {
		timeout = p.timeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}

	return client
}

// Check probes the named service. Unknown service names and missing
// required fields are reported in the result like any other failure, so a
// handler can pass user input straight through.
func (p *Prober) Check(ctx context.Context, target Target) Result {
	switch target.ServiceName {
	case "sonarr":
		return p.checkArr(ctx, target, "Sonarr", "/api/v3/system/status")
	case "prowlarr":
		return p.checkArr(ctx, target, "Prowlarr", "/api/v1/system/status")
	case "tmdb":
		return p.checkTMDB(ctx, target)
	case "proxy":
		return p.CheckProxy(ctx, "", target.URL, 0)
	default:
		return Result{OK: false, Message: fmt.Sprintf("unknown service %q", target.ServiceName)}
	}
}

// checkArr hits the status endpoint shared by the *arr family, which
// authenticates via the X-Api-Key header and reports its version.
func (p *Prober) checkArr(ctx context.Context, target Target, label, statusPath string) Result {
	if target.URL == "" {
		return Result{OK: false, Message: fmt.Sprintf("%s url is required", label)}
	}

	start := time.Now()
	resp, err := p.client(0, target.ProxyURL).R().
		SetContext(ctx).
		SetHeader("X-Api-Key", target.APIKey).
		Get(strings.TrimRight(target.URL, "/") + statusPath)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		log.Debug().Err(err).Str("service", target.ServiceName).Msg("probe request failed")
		return Result{OK: false, Message: fmt.Sprintf("%s connection failed: %s", label, redact.URLError(err)), LatencyMS: latency}
	}
	if resp.IsError() {
		return Result{OK: false, Message: fmt.Sprintf("%s connection failed: HTTP %d", label, resp.StatusCode()), LatencyMS: latency}
	}

	message := fmt.Sprintf("%s connection successful", label)
	var status struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(resp.Body(), &status); err == nil && status.Version != "" {
		message = fmt.Sprintf("%s connection successful (version %s)", label, status.Version)
	}

	return Result{OK: true, Message: message, LatencyMS: latency}
}

// checkTMDB validates an API key against the fixed TMDB endpoint. The key
// travels as a query parameter, not a header.
func (p *Prober) checkTMDB(ctx context.Context, target Target) Result {
	if target.APIKey == "" {
		return Result{OK: false, Message: "TMDB api key is required"}
	}

	base := target.URL
	if base == "" {
		base = tmdbBaseURL
	}

	start := time.Now()
	resp, err := p.client(0, target.ProxyURL).R().
		SetContext(ctx).
		SetQueryParam("api_key", target.APIKey).
		Get(strings.TrimRight(base, "/") + "/3/configuration")
	latency := time.Since(start).Milliseconds()

	if err != nil {
		log.Debug().Err(err).Str("service", "tmdb").Msg("probe request failed")
		return Result{OK: false, Message: fmt.Sprintf("TMDB connection failed: %s", redact.URLError(err)), LatencyMS: latency}
	}
	if resp.IsError() {
		return Result{OK: false, Message: fmt.Sprintf("TMDB connection failed: HTTP %d", resp.StatusCode()), LatencyMS: latency}
	}

	return Result{OK: true, Message: "TMDB connection successful", LatencyMS: latency}
}

// CheckProxy fetches targetURL through proxyURL. An empty targetURL falls
// back to DefaultProxyProbeURL; an empty proxyURL tests direct reachability.
func (p *Prober) CheckProxy(ctx context.Context, targetURL, proxyURL string, timeout time.Duration) Result {
	if targetURL == "" {
		targetURL = DefaultProxyProbeURL
	}

	start := time.Now()
	resp, err := p.client(timeout, proxyURL).R().
		SetContext(ctx).
		Get(targetURL)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		log.Debug().Err(err).Str("target", targetURL).Msg("proxy probe failed")
		return Result{OK: false, Message: fmt.Sprintf("proxy test failed: %s", redact.URLError(err)), LatencyMS: latency}
	}
	if resp.IsError() {
		return Result{OK: false, Message: fmt.Sprintf("proxy test failed: HTTP %d", resp.StatusCode()), LatencyMS: latency}
	}

	return Result{OK: true, Message: fmt.Sprintf("reached %s: HTTP %d", targetURL, resp.StatusCode()), LatencyMS: latency}
}
