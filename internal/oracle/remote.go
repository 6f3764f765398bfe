// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/pdiddy/support-engine/internal/httputil"
	"github.com/pdiddy/support-engine/internal/support"
	"github.com/pdiddy/support-engine/pkg/types"
)

// RemoteRelatedness queries an external entity relatedness service over
// HTTP and memoizes every answer for the lifetime of the run. Requests for
// a pair already answered (in either order) never leave the process.
type RemoteRelatedness struct {
	client  *http.Client
	baseURL string
	apiKey  string

	mu    sync.Mutex
	pairs map[string]float64
}

// NewRemoteRelatedness creates a client for the relatedness service at
// baseURL. The API key may be empty for unauthenticated deployments; a nil
// http.Client uses the default.
func NewRemoteRelatedness(baseURL, apiKey string, client *http.Client) *RemoteRelatedness {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteRelatedness{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		pairs:   make(map[string]float64),
	}
}

// relatednessResponse is the service's JSON answer for one pair.
type relatednessResponse struct {
	Score float64 `json:"score"`
}

// Relatedness returns the pairwise relatedness of two entities, consulting
// the service at most once per unordered pair. A pair the service cannot
// resolve scores 0.0; transport failures and unexpected statuses are
// returned as errors so the caller skips the unit.
func (r *RemoteRelatedness) Relatedness(ctx context.Context, a, b string) (float64, error) {
	key := pairKey(a, b)

	r.mu.Lock()
	score, ok := r.pairs[key]
	r.mu.Unlock()
	if ok {
		return score, nil
	}

	params := url.Values{
		"a": {types.EntityTitle(a)},
		"b": {types.EntityTitle(b)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("creating relatedness request: %w", err)
	}
	if r.apiKey != "" {
		req.Header.Set("x-api-key", r.apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, r.client, req, 0)
	if err != nil {
		return 0, fmt.Errorf("relatedness service request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// One of the entities is unknown to the service.
		score = 0
		r.remember(key, score)
		return score, nil
	default:
		return 0, fmt.Errorf("relatedness service returned HTTP %d", resp.StatusCode)
	}

	var rr relatednessResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return 0, fmt.Errorf("parsing relatedness response: %w", err)
	}

	r.remember(key, rr.Score)
	return rr.Score, nil
}

func (r *RemoteRelatedness) remember(key string, score float64) {
	r.mu.Lock()
	r.pairs[key] = score
	r.mu.Unlock()
}

// Func adapts the client to the scoring core's relatedness contract.
func (r *RemoteRelatedness) Func() support.RelatednessFunc {
	return r.Relatedness
}
