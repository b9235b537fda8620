// Package nerclient is a thin HTTP client for the named-entity-recognition
// sidecar that P4's index_text_content activity calls for each chunk of
// page texts. Only the request/response contract is modeled here; the
// sidecar's internals are out of scope.
package nerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// Client talks to POST /extract-entities on the sidecar.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

type extractRequest struct {
	Input             []string `json:"input"`
	IncludeConfidence bool     `json:"include_confidence"`
	EntityTypes       []string `json:"entity_types"`
}

type extractResponseItem struct {
	TextIndex *int   `json:"text_index,omitempty"`
	Label     string `json:"label"`
	Text      string `json:"text"`
}

type extractResponse struct {
	Data []extractResponseItem `json:"data"`
}

// labelToEntityType maps the sidecar's raw labels onto the fixed entity
// taxonomy; GPE folds into LOC, anything else is dropped.
func labelToEntityType(label string) (model.EntityType, bool) {
	switch label {
	case "PER":
		return model.EntityPerson, true
	case "ORG":
		return model.EntityOrg, true
	case "LOC", "GPE":
		return model.EntityLoc, true
	case "MISC":
		return model.EntityMisc, true
	default:
		return "", false
	}
}

// Extract runs NER over texts (one entry per page, same order as the
// input) and returns, per page index, the set of entity values grouped
// by entity type. Pages that produced no entities of a given type are
// simply absent from that page's map.
func (c *Client) Extract(ctx context.Context, texts []string) ([]map[model.EntityType][]string, error) {
	out := make([]map[model.EntityType][]string, len(texts))
	for i := range out {
		out[i] = map[model.EntityType][]string{}
	}
	if len(texts) == 0 {
		return out, nil
	}

	reqBody := extractRequest{Input: texts, IncludeConfidence: false, EntityTypes: nil}
	buf, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("nerclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/extract-entities", bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("nerclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("nerclient: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("nerclient: status %d", resp.StatusCode)
	}

	var parsed extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("nerclient: decode response: %w", err)
	}

	for _, item := range parsed.Data {
		et, ok := labelToEntityType(item.Label)
		if !ok {
			continue
		}
		idx := 0
		if item.TextIndex != nil {
			idx = *item.TextIndex
		}
		if idx < 0 || idx >= len(out) {
			continue
		}
		out[idx][et] = append(out[idx][et], item.Text)
	}
	return out, nil
}
