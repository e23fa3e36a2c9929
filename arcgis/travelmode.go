package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

type travelModesResponse struct {
	Results []struct {
		ParamName string `json:"paramName"`
		Value     struct {
			Features []struct {
				Attributes struct {
					Name       string          `json:"Name"`
					TravelMode json.RawMessage `json:"TravelMode"`
				} `json:"attributes"`
			} `json:"features"`
		} `json:"value"`
	} `json:"results"`
}

// TravelMode resolves a travel mode by its display name and returns the
// service descriptor to submit with routing requests.
func (c *Client) TravelMode(ctx context.Context, name, token string) (string, error) {
	values := url.Values{}
	values.Set("f", "json")
	values.Set("token", token)

	endpoint := strings.TrimRight(c.routeURL, "/") + "/arcgis/rest/services/World/Utilities/GPServer/GetTravelModes/execute"
	var out travelModesResponse
	if err := c.getJSON(ctx, endpoint, values, &out); err != nil {
		return "", err
	}

	for _, result := range out.Results {
		if result.ParamName != "supportedTravelModes" {
			continue
		}
		for _, feature := range result.Value.Features {
			if feature.Attributes.Name != name {
				continue
			}
			descriptor, err := decodeTravelMode(feature.Attributes.TravelMode)
			if err != nil {
				return "", err
			}
			return descriptor, nil
		}
		return "", fmt.Errorf("arcgis: travel mode %q not supported", name)
	}
	return "", fmt.Errorf("arcgis: travel modes response had no supportedTravelModes")
}

// decodeTravelMode accepts the descriptor either as an embedded object or
// as a JSON-encoded string, which is how older portals serve it.
func decodeTravelMode(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("arcgis: travel mode had no descriptor")
	}
	if raw[0] == '"' {
		var descriptor string
		if err := json.Unmarshal(raw, &descriptor); err != nil {
			return "", err
		}
		return descriptor, nil
	}
	return string(raw), nil
}
