// Package notify delivers image processing updates to subscribed clients.
//
// Updates for one dream travel on the channel named by ChannelName. Two
// implementations are provided: an in-process Hub for tests and single-node
// deployments, and a Redis-backed publisher/subscriber pair for multi-node
// fan-out. Wrap either publisher in NewRetryingPublisher to get the standard
// delivery policy (a few quick retries, then drop).
package notify

import (
	"github.com/google/uuid"
)

// ChannelName returns the notification channel for one dream's image updates.
func ChannelName(dreamID uuid.UUID) string {
	return "dream-images-" + dreamID.String()
}
