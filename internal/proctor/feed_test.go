package proctor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gokatarajesh/exam-session/internal/session"
)

func TestFeedRoutesBySession(t *testing.T) {
	feed := NewFeed()

	var a, b []session.Signal
	unsubA := feed.For("s-a").Subscribe(func(sig session.Signal) { a = append(a, sig) })
	feed.For("s-b").Subscribe(func(sig session.Signal) { b = append(b, sig) })

	assert.True(t, feed.Publish("s-a", session.Signal{FaceDetected: true}))
	assert.False(t, feed.Publish("s-none", session.Signal{}))

	assert.Len(t, a, 1)
	assert.Empty(t, b)
	assert.Equal(t, 1, feed.Subscribers("s-a"))

	unsubA()
	unsubA()
	assert.Equal(t, 0, feed.Subscribers("s-a"))
	assert.False(t, feed.Publish("s-a", session.Signal{}))
	assert.Len(t, a, 1)
}
