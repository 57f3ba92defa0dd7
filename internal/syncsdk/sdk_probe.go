package syncsdk

import (
	"context"
	"fmt"
	"time"

	"github.com/imroc/req/v3"
	"github.com/stlauncher/stsync/internal/utils"
	"github.com/stlauncher/stsync/internal/version"
)

// Prober checks the health endpoint of many servers. It never retries, so an
// unresponsive host costs at most one timeout.
type Prober struct {
	client *req.Client
}

func NewProber(timeout time.Duration) *Prober {
	client := req.C().
		SetTimeout(timeout).
		SetUserAgent(version.UserAgent()).
		SetCommonHeader(HeaderDeviceId, utils.HWID).
		SetCommonErrorResult(&APIError{}).
		SetJsonUnmarshal(jsonUnmarshal)

	return &Prober{client: client}
}

// Health returns the health of the server at baseURL, or an error if it is not a healthy sync server
func (p *Prober) Health(ctx context.Context, baseURL string) (*HealthResponse, error) {
	var health HealthResponse
	res, err := p.client.R().
		SetContext(ctx).
		SetSuccessResult(&health).
		Get(baseURL + pathHealth)

	if err := handleAPIError(res, err, "probe"); err != nil {
		return nil, err
	}

	if !health.Healthy() {
		return nil, fmt.Errorf("%w: status %q", ErrUnhealthy, health.Status)
	}

	return &health, nil
}

func (p *Prober) Close() {
	p.client.GetClient().CloseIdleConnections()
}
