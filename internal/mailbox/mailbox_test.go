package mailbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestWins(t *testing.T) {
	mb := New[int]()
	mb.Put(1)
	mb.Put(2)
	mb.Put(3)
	assert.True(t, mb.HasJob())

	j, ok := mb.Take(context.Background())
	require.True(t, ok)
	assert.Equal(t, 3, j)

	assert.False(t, mb.HasJob())
	assert.Nil(t, mb.TryTake())
}

func TestTakeWaitsForPut(t *testing.T) {
	mb := New[string]()
	got := make(chan string, 1)

	go func() {
		j, _ := mb.Take(context.Background())
		got <- j
	}()

	time.Sleep(20 * time.Millisecond)
	mb.Put("run")

	select {
	case j := <-got:
		assert.Equal(t, "run", j)
	case <-time.After(2 * time.Second):
		t.Fatal("Take did not return after Put")
	}
}

func TestTakeHonorsContext(t *testing.T) {
	mb := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := mb.Take(ctx)
	assert.False(t, ok)
}

func TestStaleWakeupDoesNotReturnEmpty(t *testing.T) {
	mb := New[int]()
	mb.Put(1)
	require.NotNil(t, mb.TryTake()) // leaves a token behind

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, ok := mb.Take(ctx)
	assert.False(t, ok)
}
