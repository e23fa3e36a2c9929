package arcgis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const connectOriginsPath = "ConnectOriginsToDestinations"

// Analysis job statuses the service reports. Anything else is treated as
// still in progress.
const (
	JobSubmitted = "esriJobSubmitted"
	JobExecuting = "esriJobExecuting"
	JobSucceeded = "esriJobSucceeded"
	JobFailed    = "esriJobFailed"
)

// RouteIDField names the attribute linking layer features back to roster
// employees on both the origins and destinations layers.
const RouteIDField = "employee_number"

// AddressTypeField carries the WORK/HOME tag through the analysis so the
// route's From_/To_ polarity can be recovered afterwards.
const AddressTypeField = "Employee_Address_Type"

type FeatureCollection struct {
	LayerDefinition LayerDefinition `json:"layerDefinition"`
	FeatureSet      FeatureSet      `json:"featureSet"`
}

type LayerDefinition struct {
	GeometryType string       `json:"geometryType"`
	Fields       []LayerField `json:"fields"`
}

type LayerField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type FeatureSet struct {
	GeometryType     string           `json:"geometryType"`
	SpatialReference SpatialReference `json:"spatialReference"`
	Features         []Feature        `json:"features"`
}

type SpatialReference struct {
	WKID int `json:"wkid"`
}

type Feature struct {
	Geometry   Point                  `json:"geometry"`
	Attributes map[string]interface{} `json:"attributes"`
}

type submitJobResponse struct {
	JobID string `json:"jobId"`
}

// SubmitAnalysisJob starts a ConnectOriginsToDestinations job and returns
// its job identifier. A response without a job identifier is terminal.
func (c *Client) SubmitAnalysisJob(ctx context.Context, analysisURL string, origins, destinations FeatureCollection, travelMode, token string) (string, error) {
	originsLayer, err := json.Marshal(origins)
	if err != nil {
		return "", err
	}
	destinationsLayer, err := json.Marshal(destinations)
	if err != nil {
		return "", err
	}

	values := url.Values{}
	values.Set("originsLayer", string(originsLayer))
	values.Set("destinationsLayer", string(destinationsLayer))
	values.Set("measurementType", travelMode)
	values.Set("originsLayerRouteIDField", RouteIDField)
	values.Set("destinationsLayerRouteIDField", RouteIDField)
	values.Set("f", "json")
	values.Set("token", token)

	endpoint := analysisURL + connectOriginsPath + "/submitJob"
	var out submitJobResponse
	if err := c.postForm(ctx, endpoint, values, &out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", errors.New("arcgis: job submission returned no job id")
	}
	return out.JobID, nil
}

// JobStatus is one poll of an analysis job. Raw holds the full status
// payload for failure diagnostics.
type JobStatus struct {
	JobID   string                  `json:"jobId"`
	Status  string                  `json:"jobStatus"`
	Results map[string]JobResultRef `json:"results"`
	Raw     json.RawMessage         `json:"-"`
}

type JobResultRef struct {
	ParamURL string `json:"paramUrl"`
}

// AnalysisJobStatus queries the current status of a submitted job.
func (c *Client) AnalysisJobStatus(ctx context.Context, analysisURL, jobID, token string) (*JobStatus, error) {
	values := url.Values{}
	values.Set("f", "json")
	values.Set("token", token)

	endpoint := analysisURL + connectOriginsPath + "/jobs/" + jobID
	var raw json.RawMessage
	if err := c.getJSON(ctx, endpoint, values, &raw); err != nil {
		return nil, err
	}
	var status JobStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, err
	}
	if status.Status == "" {
		return nil, fmt.Errorf("arcgis: job status response had no jobStatus: %s", string(raw))
	}
	status.Raw = raw
	return &status, nil
}

// RouteFeature is one solved commute route.
type RouteFeature struct {
	Attributes RouteAttributes `json:"attributes"`
}

type RouteAttributes struct {
	RouteName       StringOrNumber `json:"RouteName"`
	TotalMiles      float64        `json:"Total_Miles"`
	TotalMinutes    float64        `json:"Total_Minutes"`
	FromAddressType string         `json:"From_Employee_Address_Type"`
	FromLat         float64        `json:"From_Lat"`
	FromLon         float64        `json:"From_Lon"`
	ToLat           float64        `json:"To_Lat"`
	ToLon           float64        `json:"To_Lon"`
}

type jobResultResponse struct {
	Value struct {
		FeatureSet struct {
			Features []RouteFeature `json:"features"`
		} `json:"featureSet"`
	} `json:"value"`
}

// AnalysisJobResult fetches a completed job's routes layer via the param
// URL reported in the final status payload.
func (c *Client) AnalysisJobResult(ctx context.Context, analysisURL, jobID, paramURL, token string) ([]RouteFeature, error) {
	values := url.Values{}
	values.Set("f", "json")
	values.Set("token", token)

	endpoint := analysisURL + connectOriginsPath + "/jobs/" + jobID + "/" + strings.TrimLeft(paramURL, "/")
	var out jobResultResponse
	if err := c.getJSON(ctx, endpoint, values, &out); err != nil {
		return nil, err
	}
	return out.Value.FeatureSet.Features, nil
}

// StringOrNumber tolerates attribute values the service serializes either
// way depending on the layer's field type.
type StringOrNumber string

func (s *StringOrNumber) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = StringOrNumber(v)
		return nil
	}
	var v json.Number
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = StringOrNumber(v.String())
	return nil
}
