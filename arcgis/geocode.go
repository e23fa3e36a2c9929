package arcgis

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
)

const geocodeServerPath = "/arcgis/rest/services/World/GeocodeServer"

// AddressRecord is one address submitted for batch geocoding. ObjectID is
// echoed back as the candidate's ResultID.
type AddressRecord struct {
	ObjectID int
	Address  string
	City     string
	Region   string
	Postal   string
}

type addressRecordPayload struct {
	Attributes addressAttributes `json:"attributes"`
}

type addressAttributes struct {
	ObjectID int    `json:"OBJECTID"`
	Address  string `json:"Address"`
	City     string `json:"City"`
	Region   string `json:"Region"`
	Postal   string `json:"Postal"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GeocodeCandidate is one match returned by the batch geocoder. A Score of
// zero means the service had no confidence in the match.
type GeocodeCandidate struct {
	Address    string  `json:"address"`
	Score      float64 `json:"score"`
	Location   Point   `json:"location"`
	Attributes struct {
		ResultID int `json:"ResultID"`
	} `json:"attributes"`
}

type geocodeResponse struct {
	Locations []GeocodeCandidate `json:"locations"`
}

// GeocodeAddresses submits a batch of address records and returns the
// candidate locations.
func (c *Client) GeocodeAddresses(ctx context.Context, records []AddressRecord, token string) ([]GeocodeCandidate, error) {
	if len(records) == 0 {
		return nil, nil
	}

	payload := struct {
		Records []addressRecordPayload `json:"records"`
	}{Records: make([]addressRecordPayload, 0, len(records))}
	for _, record := range records {
		payload.Records = append(payload.Records, addressRecordPayload{
			Attributes: addressAttributes{
				ObjectID: record.ObjectID,
				Address:  record.Address,
				City:     record.City,
				Region:   record.Region,
				Postal:   record.Postal,
			},
		})
	}
	addresses, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("f", "json")
	values.Set("addresses", string(addresses))
	values.Set("token", token)
	values.Set("category", "Address")
	values.Set("sourceCountry", "USA")

	endpoint := strings.TrimRight(c.geocodeURL, "/") + geocodeServerPath + "/geocodeAddresses"
	var out geocodeResponse
	if err := c.getJSON(ctx, endpoint, values, &out); err != nil {
		return nil, err
	}
	if out.Locations == nil {
		return nil, errors.New("arcgis: geocode response had no locations")
	}
	return out.Locations, nil
}

type batchSizeResponse struct {
	SuggestedBatchSize int `json:"SuggestedBatchSize"`
}

// SuggestedBatchSize asks the geocode server how many records one batch
// request may carry.
func (c *Client) SuggestedBatchSize(ctx context.Context) (int, error) {
	values := url.Values{}
	values.Set("f", "json")

	endpoint := strings.TrimRight(c.geocodeURL, "/") + geocodeServerPath
	var out batchSizeResponse
	if err := c.getJSON(ctx, endpoint, values, &out); err != nil {
		return 0, err
	}
	if out.SuggestedBatchSize <= 0 {
		return 0, errors.New("arcgis: server advertised no batch size")
	}
	return out.SuggestedBatchSize, nil
}
