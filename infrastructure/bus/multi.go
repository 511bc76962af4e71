// Package bus provides event-bus plumbing shared by the concrete
// broker implementations.
package bus

import (
	"context"
	"errors"

	"agenda-backend/application/ports"
)

// MultiPublisher fans a publish out to several underlying publishers.
// Every publisher is attempted even when an earlier one fails.
type MultiPublisher []ports.Publisher

// Publish sends the payload to all publishers and joins their errors.
func (m MultiPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
