package booru

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/snowpity/tg/internal/apperr"
)

// apiImage is the subset of the upstream JSON API response this adapter
// needs. The full Philomena/Derpibooru-derived API carries many more fields;
// concrete upstream fidelity is out of scope (spec.md §1), so only what
// feeds Post/BlobRepr is modeled.
type apiImage struct {
	ID             int64    `json:"id"`
	Tags           []string `json:"tags"`
	MimeType       string   `json:"mime_type"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	Size           int64    `json:"size"`
	Uploader       string   `json:"uploader"`
	SourceURL      string   `json:"source_url"`
	Representations struct {
		Full string `json:"full"`
	} `json:"representations"`
}

type apiImageEnvelope struct {
	Image apiImage `json:"image"`
}

func (a *Adapter) fetchImage(ctx context.Context, imageID int64) (apiImage, error) {
	url := fmt.Sprintf("%s/images/%d", a.cfg.APIBase, imageID)
	if a.apiKey != "" {
		url += "?key=" + a.apiKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apiImage{}, &apperr.UpstreamError{Adapter: a.cfg.Name, Err: err}
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return apiImage{}, &apperr.UpstreamError{Adapter: a.cfg.Name, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiImage{}, &apperr.UpstreamError{
			Adapter: a.cfg.Name,
			Err:     fmt.Errorf("GET %s: status %d", url, resp.StatusCode),
		}
	}
	var env apiImageEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return apiImage{}, &apperr.UpstreamError{Adapter: a.cfg.Name, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return env.Image, nil
}
