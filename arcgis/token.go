package arcgis

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

type tokenResponse struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
}

// GenerateToken exchanges credentials for a short-lived bearer token.
func (c *Client) GenerateToken(ctx context.Context, creds Credentials) (string, error) {
	if strings.TrimSpace(creds.Username) == "" {
		return "", errors.New("arcgis: username is required")
	}

	values := url.Values{}
	values.Set("f", "json")
	values.Set("username", creds.Username)
	values.Set("password", creds.Password)
	values.Set("referer", "https://arcgis.com")
	values.Set("expiration", "120")

	endpoint := strings.TrimRight(c.portalURL, "/") + "/sharing/rest/generateToken"
	var out tokenResponse
	if err := c.postForm(ctx, endpoint, values, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("arcgis: token response had no token")
	}
	return out.Token, nil
}
