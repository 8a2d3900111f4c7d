package driven

import (
	"context"

	"github.com/ericfisherdev/mrreminder/internal/domain/model"
)

// Notifier delivers a rendered reminder message to the chat channel.
type Notifier interface {
	Send(ctx context.Context, msg model.Message) error
}
