// Package delivery defines the contract shared by all serving frontends.
package delivery

import "context"

// Delivery is implemented by every long-running frontend of the application,
// whether it serves HTTP or drains a work queue.
type Delivery interface {
	// Serve runs the frontend until it fails or is shut down.
	Serve(ctx context.Context) error
}
