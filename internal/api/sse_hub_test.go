package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gobrick/domain/core"
	"gobrick/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEHub_PublishReachesSubscribers(t *testing.T) {
	hub := NewSSEHub()
	defer hub.Close()

	first, leaveFirst := hub.Subscribe()
	second, leaveSecond := hub.Subscribe()
	defer leaveSecond()
	assert.Equal(t, 2, hub.ClientCount())

	id := core.NewEvaluationID()
	hub.Publish(models.EvaluationEvent{Type: models.EventEvaluationCompleted, EvaluationID: id})

	for _, ch := range []<-chan models.EvaluationEvent{first, second} {
		select {
		case event := <-ch:
			assert.Equal(t, id, event.EvaluationID)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	leaveFirst()
	leaveFirst()
	assert.Equal(t, 1, hub.ClientCount())
}

func TestSSEHub_HandleSSEStreamsEvents(t *testing.T) {
	hub := NewSSEHub()
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		hub.HandleSSE(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	hub.Publish(models.EvaluationEvent{Type: models.EventEvaluationFailed, Error: "boom"})

	// give the stream a moment to write before disconnecting
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(body, "event: evaluation"), body)
	assert.Contains(t, body, `"error":"boom"`)
	assert.Equal(t, 0, hub.ClientCount())
}
