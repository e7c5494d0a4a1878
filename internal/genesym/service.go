// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package genesym

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout is the time limit for a Service query when no timeout
// is specified.
const DefaultTimeout = 30 * time.Second

// Service is a Resolver backed by an HTTP annotation service.
//
// A query is a POST of
//
//  {"ids": ["ENSG00000000000", ...]}
//
// to URL/symbols, and the service responds with
//
//  {"symbols": {"ENSG00000000000": "SYMBOL", ...}}
//
type Service struct {
	// URL is the base URL of the service.
	URL string

	// Client is used for requests. If nil,
	// http.DefaultClient is used.
	Client *http.Client

	// Timeout limits the duration of a query.
	// If zero, DefaultTimeout is used.
	Timeout time.Duration
}

type symbolsRequest struct {
	IDs []string `json:"ids"`
}

type symbolsResponse struct {
	Symbols map[string]string `json:"symbols"`
}

// Resolve implements the Resolver interface.
func (s *Service) Resolve(ctx context.Context, ids []string) (map[string]string, error) {
	timeout := s.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(symbolsRequest{IDs: ids})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(s.URL, "/")+"/symbols", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	var r symbolsResponse
	err = json.NewDecoder(resp.Body).Decode(&r)
	if err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if r.Symbols == nil {
		return nil, fmt.Errorf("malformed response: missing symbols")
	}
	return r.Symbols, nil
}
