package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	typeCreated Type = "Created"
	typeDeleted Type = "Deleted"
)

func TestAppend_SequencesFromOne(t *testing.T) {
	l := NewLog()

	first := l.Append(typeCreated, "a")
	second := l.Append(typeDeleted, "b")

	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, 2, l.Len())
}

func TestAll_PreservesOrder(t *testing.T) {
	l := NewLog()
	l.Append(typeCreated, 1)
	l.Append(typeDeleted, 2)
	l.Append(typeCreated, 3)

	recs := l.All()
	require.Len(t, recs, 3)
	assert.Equal(t, []interface{}{1, 2, 3}, []interface{}{recs[0].Payload, recs[1].Payload, recs[2].Payload})
}

func TestByType(t *testing.T) {
	l := NewLog()
	l.Append(typeCreated, "x")
	l.Append(typeDeleted, "y")
	l.Append(typeCreated, "z")

	created := l.ByType(typeCreated)
	require.Len(t, created, 2)
	assert.Equal(t, "x", created[0].Payload)
	assert.Equal(t, "z", created[1].Payload)

	assert.Empty(t, l.ByType(Type("Unknown")))
}

func TestLast(t *testing.T) {
	l := NewLog()

	_, ok := l.Last(typeCreated)
	assert.False(t, ok)

	l.Append(typeCreated, "x")
	l.Append(typeCreated, "y")

	rec, ok := l.Last(typeCreated)
	require.True(t, ok)
	assert.Equal(t, "y", rec.Payload)
}

func TestAppend_Concurrent(t *testing.T) {
	l := NewLog()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Append(typeCreated, j)
			}
		}()
	}
	wg.Wait()

	recs := l.All()
	require.Len(t, recs, 1000)
	for i, rec := range recs {
		assert.Equal(t, uint64(i+1), rec.Seq)
	}
}
