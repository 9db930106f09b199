package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/elderly-care-backend/internal/live"
)

// StreamSnapshot is the data of one server-sent event on a live list.
type StreamSnapshot[T any] struct {
	Version uint64 `json:"version"`
	Items   []T    `json:"items"`
}

// streamFeed writes every snapshot from subscribe as an SSE event named
// event until the client goes away or the feed closes.
func streamFeed[T any](c *gin.Context, event string, subscribe func(context.Context) (<-chan live.Snapshot[T], error)) {
	ctx := c.Request.Context()
	ch, err := subscribe(ctx)
	if err != nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeStreamFailed, err.Error())
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	// Streams outlive the server's WriteTimeout.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent(event, StreamSnapshot[T]{Version: snap.Version, Items: snap.Items})
			c.Writer.Flush()
		}
	}
}
