package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishFansOutToAllSubscribers(t *testing.T) {
	b := NewBus(4)
	var mu sync.Mutex
	var got []string

	for i := 0; i < 3; i++ {
		b.Subscribe(TopicAccumulationComplete, func(payload interface{}) {
			p := payload.(AccumulationCompletePayload)
			mu.Lock()
			got = append(got, p.Path)
			mu.Unlock()
		})
	}

	b.Publish(TopicAccumulationComplete, AccumulationCompletePayload{Path: "a.md"})

	assert.Len(t, got, 3)
	for _, p := range got {
		assert.Equal(t, "a.md", p)
	}
}

func TestBus_PublishWithNoSubscribersDoesNotPanic(t *testing.T) {
	b := NewBus(2)
	assert.NotPanics(t, func() {
		b.Publish(TopicReconciliationComplete, nil)
	})
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus(2)
	var count int
	var mu sync.Mutex
	unsub := b.Subscribe(TopicFileChanged, func(payload interface{}) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	b.Publish(TopicFileChanged, FileChangedPayload{Path: "x.md"})
	unsub()
	b.Publish(TopicFileChanged, FileChangedPayload{Path: "y.md"})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}
