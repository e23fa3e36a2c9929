// Package analysis drives a ConnectOriginsToDestinations job from
// submission to a terminal status, refreshing the bearer token when the
// service reports it expired mid-poll.
package analysis

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"commuteatlas/arcgis"
)

// JobClient is the slice of the service client the runner needs.
type JobClient interface {
	SubmitAnalysisJob(ctx context.Context, analysisURL string, origins, destinations arcgis.FeatureCollection, travelMode, token string) (string, error)
	AnalysisJobStatus(ctx context.Context, analysisURL, jobID, token string) (*arcgis.JobStatus, error)
	AnalysisJobResult(ctx context.Context, analysisURL, jobID, paramURL, token string) ([]arcgis.RouteFeature, error)
}

// TokenSource re-acquires a token after mid-job expiry.
type TokenSource interface {
	GenerateToken(ctx context.Context, creds arcgis.Credentials) (string, error)
}

type Runner struct {
	client       JobClient
	tokens       TokenSource
	log          *zap.Logger
	pollInterval time.Duration
	maxPolls     int
}

type RunnerOption func(*Runner)

func WithPollInterval(interval time.Duration) RunnerOption {
	return func(r *Runner) {
		if interval > 0 {
			r.pollInterval = interval
		}
	}
}

// WithMaxPolls bounds the polling loop. The limit exists so a remote
// service that never reaches a terminal status cannot hold the run open
// forever; hitting it is reported as a job failure.
func WithMaxPolls(maxPolls int) RunnerOption {
	return func(r *Runner) {
		if maxPolls > 0 {
			r.maxPolls = maxPolls
		}
	}
}

func NewRunner(client JobClient, tokens TokenSource, log *zap.Logger, opts ...RunnerOption) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	runner := &Runner{
		client:       client,
		tokens:       tokens,
		log:          log,
		pollInterval: 3 * time.Second,
		maxPolls:     200,
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Run submits the job and polls it to completion, returning the solved
// route features. Submission failure and an explicit esriJobFailed status
// are terminal; a token-expiry error on a status poll regenerates the
// token from creds and retries the same poll without counting as failure.
func (r *Runner) Run(ctx context.Context, analysisURL string, origins, destinations arcgis.FeatureCollection, travelMode, token string, creds arcgis.Credentials) ([]arcgis.RouteFeature, error) {
	started := time.Now()

	jobID, err := r.client.SubmitAnalysisJob(ctx, analysisURL, origins, destinations, travelMode, token)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: job submission failed")
	}
	log := r.log.With(zap.String("job_id", jobID))
	log.Info("analysis job submitted",
		zap.Int("origins", len(origins.FeatureSet.Features)),
	)

	lastStatus := arcgis.JobSubmitted
	for poll := 0; poll < r.maxPolls; poll++ {
		status, err := r.client.AnalysisJobStatus(ctx, analysisURL, jobID, token)
		if err != nil {
			if !arcgis.IsTokenExpired(err) {
				return nil, eris.Wrap(err, "analysis: status query failed")
			}
			log.Info("token expired mid-job, regenerating")
			token, err = r.tokens.GenerateToken(ctx, creds)
			if err != nil {
				return nil, eris.Wrap(err, "analysis: token refresh failed")
			}
			if err := sleepWithContext(ctx, r.pollInterval); err != nil {
				return nil, err
			}
			continue
		}

		lastStatus = status.Status
		switch status.Status {
		case arcgis.JobSucceeded:
			routes, ok := status.Results["routesLayer"]
			if !ok {
				return nil, eris.Errorf("analysis: job %s succeeded without a routes layer: %s", jobID, string(status.Raw))
			}
			features, err := r.client.AnalysisJobResult(ctx, analysisURL, jobID, routes.ParamURL, token)
			if err != nil {
				return nil, eris.Wrap(err, "analysis: result fetch failed")
			}
			log.Info("analysis job succeeded",
				zap.Int("routes", len(features)),
				zap.Duration("elapsed", time.Since(started)),
			)
			return features, nil
		case arcgis.JobFailed:
			return nil, eris.Errorf("analysis: job %s failed: %s", jobID, string(status.Raw))
		default:
			log.Debug("analysis job in progress", zap.String("status", status.Status))
			if err := sleepWithContext(ctx, r.pollInterval); err != nil {
				return nil, err
			}
		}
	}

	return nil, eris.Errorf("analysis: job %s still %s after %d polls", jobID, lastStatus, r.maxPolls)
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
