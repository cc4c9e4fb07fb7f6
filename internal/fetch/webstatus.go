package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// BaselineInfo is a feature's Baseline block in the Web Status API.
type BaselineInfo struct {
	Status   string `json:"status,omitempty"`
	LowDate  string `json:"low_date,omitempty"`
	HighDate string `json:"high_date,omitempty"`
}

type SpecLink struct {
	Link string `json:"link"`
}

type SpecInfo struct {
	Links []SpecLink `json:"links,omitempty"`
}

// WebStatusFeature is one entry of the features endpoint. Fields the gate
// does not use are dropped.
type WebStatusFeature struct {
	FeatureID string        `json:"feature_id"`
	Name      string        `json:"name,omitempty"`
	Baseline  *BaselineInfo `json:"baseline,omitempty"`
	Spec      *SpecInfo     `json:"spec,omitempty"`
}

type featuresPage struct {
	Data     []WebStatusFeature `json:"data"`
	Metadata struct {
		NextPageToken string `json:"next_page_token"`
		Total         *int   `json:"total"`
	} `json:"metadata"`
}

// FeaturesResult is every feature matched by a query.
type FeaturesResult struct {
	Features []WebStatusFeature `json:"features"`
	// Total is the server's count from the last page, when reported.
	Total *int `json:"total,omitempty"`
}

// ErrNoStatuses is returned when neither statuses nor a query are given.
var ErrNoStatuses = errors.New("at least one status must be provided")

// BuildQuery joins "baseline_status:<s>" terms with OR. Duplicates are
// dropped, keeping first-seen order.
func BuildQuery(statuses []string) (string, error) {
	seen := make(map[string]bool, len(statuses))
	var parts []string
	for _, s := range statuses {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		parts = append(parts, "baseline_status:"+s)
	}
	if len(parts) == 0 {
		return "", ErrNoStatuses
	}
	return strings.Join(parts, " OR "), nil
}

// FetchFeatures pages through the features endpoint until the server
// returns no next_page_token. A non-empty query is used as is; otherwise
// one is built from statuses.
func (c *Client) FetchFeatures(ctx context.Context, statuses []string, query string) (*FeaturesResult, error) {
	if query == "" {
		q, err := BuildQuery(statuses)
		if err != nil {
			return nil, err
		}
		query = q
	}

	base, err := url.Parse(c.webStatusURL)
	if err != nil {
		return nil, fmt.Errorf("web status url: %w", err)
	}

	result := &FeaturesResult{}
	seen := make(map[string]bool)
	var token string
	for {
		params := base.Query()
		params.Set("q", query)
		if token != "" {
			params.Set("page_token", token)
		}
		u := *base
		u.RawQuery = params.Encode()

		var page featuresPage
		if err := c.getJSON(ctx, u.String(), &page); err != nil {
			return nil, fmt.Errorf("fetch features: %w", err)
		}
		result.Features = append(result.Features, page.Data...)
		result.Total = page.Metadata.Total

		token = page.Metadata.NextPageToken
		if token == "" {
			break
		}
		if seen[token] {
			return nil, fmt.Errorf("fetch features: page token %q repeated", token)
		}
		seen[token] = true
	}
	return result, nil
}
