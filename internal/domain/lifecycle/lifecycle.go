// Package lifecycle holds shared timeouts for component start and stop hooks.
package lifecycle

import "time"

// DefaultTimeout bounds graceful start/stop of a single component.
const DefaultTimeout = 30 * time.Second
