package repository

import (
	"fmt"
	"sync"
	"testing"

	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_HistoryUnknownIsEmpty(t *testing.T) {
	repo := NewSessionRepository()

	history := repo.History("nobody")

	assert.NotNil(t, history)
	assert.Empty(t, history)
	assert.Equal(t, 0, repo.Len("nobody"))
}

func TestSessionRepository_SequentialAppendsKeepOrder(t *testing.T) {
	repo := NewSessionRepository()

	const n = 25
	for i := 0; i < n; i++ {
		repo.Append("s1", domain.NewUserTurn(fmt.Sprintf("turn-%d", i)))
	}

	history := repo.History("s1")
	require.Len(t, history, n)
	for i, turn := range history {
		assert.Equal(t, fmt.Sprintf("turn-%d", i), turn.Text)
		assert.Equal(t, domain.RoleUser, turn.Role)
	}
}

func TestSessionRepository_HistoryIsCopy(t *testing.T) {
	repo := NewSessionRepository()
	repo.Append("s1", domain.NewUserTurn("hello"))

	history := repo.History("s1")
	history[0].Text = "changed"

	assert.Equal(t, "hello", repo.History("s1")[0].Text)
}

func TestSessionRepository_AppendPairIsContiguous(t *testing.T) {
	repo := NewSessionRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := fmt.Sprintf("q%d", i)
			repo.Append("s1", domain.NewUserTurn(q), domain.NewModelTurn("a-"+q))
		}(i)
	}
	wg.Wait()

	history := repo.History("s1")
	require.Len(t, history, 100)
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, domain.RoleUser, history[i].Role)
		assert.Equal(t, domain.RoleModel, history[i+1].Role)
		assert.Equal(t, "a-"+history[i].Text, history[i+1].Text)
	}
}

func TestSessionRepository_ConcurrentAppendsNotLost(t *testing.T) {
	repo := NewSessionRepository()

	const workers, perWorker = 10, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				repo.Append(fmt.Sprintf("s%d", w%3), domain.NewUserTurn("x"))
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for _, id := range repo.Sessions() {
		total += repo.Len(id)
	}
	assert.Equal(t, workers*perWorker, total)
}

func TestSessionRepository_ClearUnknownIsNoop(t *testing.T) {
	repo := NewSessionRepository()
	repo.Append("s1", domain.NewUserTurn("keep"))

	assert.NotPanics(t, func() { repo.Clear("unknown") })
	assert.Equal(t, 1, repo.Len("s1"))
}

func TestSessionRepository_ClearThenAppendStartsFresh(t *testing.T) {
	repo := NewSessionRepository()
	repo.Append("s1", domain.NewUserTurn("one"))

	repo.Clear("s1")
	repo.Clear("s1")
	assert.Empty(t, repo.History("s1"))
	assert.Empty(t, repo.Sessions())

	repo.Append("s1", domain.NewUserTurn("two"))
	history := repo.History("s1")
	require.Len(t, history, 1)
	assert.Equal(t, "two", history[0].Text)
}

func TestSessionRepository_AppendRacingClearIsNotOrphaned(t *testing.T) {
	repo := NewSessionRepository()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			repo.Append("s1", domain.NewUserTurn("x"))
		}()
		go func() {
			defer wg.Done()
			repo.Clear("s1")
		}()
	}
	wg.Wait()

	// Any surviving turns must be visible through the map.
	assert.Equal(t, len(repo.History("s1")), repo.Len("s1"))
	repo.Append("s1", domain.NewUserTurn("last"))
	history := repo.History("s1")
	assert.Equal(t, "last", history[len(history)-1].Text)
}

func TestSessionRepository_SessionsSorted(t *testing.T) {
	repo := NewSessionRepository()
	repo.Append("b", domain.NewUserTurn("x"))
	repo.Append("a", domain.NewUserTurn("x"))

	assert.Equal(t, []string{"a", "b"}, repo.Sessions())
}
