package arcgis

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

type portalSelfResponse struct {
	HelperServices struct {
		Analysis struct {
			URL string `json:"url"`
		} `json:"analysis"`
	} `json:"helperServices"`
}

// AnalysisURL resolves the spatial-analysis base URL from the portal's
// self-description.
func (c *Client) AnalysisURL(ctx context.Context, token string) (string, error) {
	values := url.Values{}
	values.Set("f", "json")
	values.Set("token", token)

	endpoint := strings.TrimRight(c.portalURL, "/") + "/sharing/rest/portals/self"
	var out portalSelfResponse
	if err := c.getJSON(ctx, endpoint, values, &out); err != nil {
		return "", err
	}
	analysisURL := strings.TrimSpace(out.HelperServices.Analysis.URL)
	if analysisURL == "" {
		return "", errors.New("arcgis: portal self-description had no analysis url")
	}
	return strings.TrimRight(analysisURL, "/") + "/", nil
}
