package analytics

import (
	"context"
	"fmt"
	"net/http"

	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/option"
)

// ReadonlyScope is the OAuth2 scope needed to run reports.
const ReadonlyScope = analyticsdata.AnalyticsReadonlyScope

// ServiceRunner implements ReportRunner with the Analytics Data API client.
type ServiceRunner struct {
	service *analyticsdata.Service
}

// NewServiceRunner creates a runner that talks to the Analytics Data API through
// the given authorized HTTP client.
func NewServiceRunner(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*ServiceRunner, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)

	srv, err := analyticsdata.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create analytics data service: %w", err)
	}

	return &ServiceRunner{service: srv}, nil
}

// RunReport implements ReportRunner.
func (r *ServiceRunner) RunReport(ctx context.Context, property string, req *analyticsdata.RunReportRequest) (*analyticsdata.RunReportResponse, error) {
	return r.service.Properties.RunReport(property, req).Context(ctx).Do()
}
