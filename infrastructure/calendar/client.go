// Package calendar implements the pull-side client of the calendar service:
// an HTTP adapter for its upcoming-events endpoint.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "agenda-backend/domain/calendar"
	apperrors "agenda-backend/pkg/errors"
)

// upcomingPath is the calendar service's lookahead endpoint, bounded
// server-side to events starting within the next day.
const upcomingPath = "/api/calendar/upcoming"

// defaultTimeout bounds the pull call; a cycle blocked on a dead calendar
// service must fail fast so the next tick is not starved.
const defaultTimeout = 10 * time.Second

// HTTPClient pulls upcoming events from the calendar service. It implements
// ports.CalendarSource.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient creates a pull client for the calendar service at baseURL.
// A non-positive timeout falls back to the default.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Upcoming fetches the events starting within the lookahead horizon.
func (c *HTTPClient) Upcoming(ctx context.Context) ([]domain.UpcomingEvent, error) {
	url := c.baseURL + upcomingPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Internal("build upcoming-events request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, apperrors.Timeout("upcoming-events pull timed out").WithCause(err)
		}
		return nil, apperrors.External("upcoming-events pull failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.External(fmt.Sprintf("calendar service returned %d", resp.StatusCode))
	}

	var events []domain.UpcomingEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, apperrors.External("decode upcoming-events response").WithCause(err)
	}

	c.logger.Debug("pulled upcoming events",
		zap.String("url", url),
		zap.Int("count", len(events)),
	)
	return events, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
