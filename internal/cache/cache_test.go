package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string  `json:"name"`
	Temp float64 `json:"temp"`
}

func TestKey(t *testing.T) {
	require.Equal(t, "weather:tashkent", Key("weather", " Tashkent "))
	require.Equal(t, "forecast-3h:tashkent:41.2995:69.2401", Key("forecast-3h", "Tashkent", 41.2995, 69.2401))
	require.Equal(t, "cities:sam:10", Key("cities", "Sam", 10))
}

func TestFetchCachesWithinWindow(t *testing.T) {
	qc := New(NewMemoryBackend(), nil)
	var calls int
	fn := func(context.Context) (payload, error) {
		calls++
		return payload{Name: "Tashkent", Temp: 21.5}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := Fetch(context.Background(), qc, "weather:tashkent", time.Minute, fn)
		require.NoError(t, err)
		require.Equal(t, "Tashkent", v.Name)
	}
	require.Equal(t, 1, calls)

	hits, misses := qc.Stats()
	require.Equal(t, int64(2), hits)
	require.Equal(t, int64(1), misses)
}

func TestFetchRefreshesAfterExpiry(t *testing.T) {
	backend := NewMemoryBackend()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	backend.now = func() time.Time { return now }
	qc := New(backend, nil)

	var calls int
	fn := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	v, err := Fetch(context.Background(), qc, "k", 5*time.Minute, fn)
	require.NoError(t, err)
	require.Equal(t, 1, v)

	now = now.Add(4 * time.Minute)
	v, _ = Fetch(context.Background(), qc, "k", 5*time.Minute, fn)
	require.Equal(t, 1, v)

	now = now.Add(time.Minute)
	v, _ = Fetch(context.Background(), qc, "k", 5*time.Minute, fn)
	require.Equal(t, 2, v)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	qc := New(NewMemoryBackend(), nil)
	boom := errors.New("boom")
	var calls int

	_, err := Fetch(context.Background(), qc, "k", time.Minute, func(context.Context) (string, error) {
		calls++
		return "", boom
	})
	require.ErrorIs(t, err, boom)

	v, err := Fetch(context.Background(), qc, "k", time.Minute, func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, 2, calls)
}

func TestFetchDeduplicatesConcurrentCalls(t *testing.T) {
	qc := New(NewMemoryBackend(), nil)
	var calls atomic.Int32
	release := make(chan struct{})

	fn := func(context.Context) (payload, error) {
		calls.Add(1)
		<-release
		return payload{Name: "Bukhara"}, nil
	}

	var wg sync.WaitGroup
	results := make([]payload, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Fetch(context.Background(), qc, "weather:bukhara", time.Minute, fn)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		require.Equal(t, "Bukhara", r.Name)
	}
}

func TestFetchSurvivesCancelledLeader(t *testing.T) {
	qc := New(NewMemoryBackend(), nil)
	started := make(chan struct{})
	release := make(chan struct{})
	var fnErr atomic.Value
	fn := func(ctx context.Context) (payload, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			fnErr.Store(err)
			return payload{}, err
		}
		return payload{Name: "Khiva"}, nil
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := Fetch(leaderCtx, qc, "weather:khiva", time.Minute, fn)
		leaderErr <- err
	}()
	<-started

	type result struct {
		v   payload
		err error
	}
	follower := make(chan result, 1)
	go func() {
		v, err := Fetch(context.Background(), qc, "weather:khiva", time.Minute, fn)
		follower <- result{v, err}
	}()

	cancel()
	require.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	r := <-follower
	require.NoError(t, r.err)
	require.Equal(t, "Khiva", r.v.Name)
	require.Nil(t, fnErr.Load())
}

func TestFetchCachesNilPointer(t *testing.T) {
	qc := New(NewMemoryBackend(), nil)
	var calls int
	fn := func(context.Context) (*payload, error) {
		calls++
		return nil, nil
	}

	v, err := Fetch(context.Background(), qc, "geo:atlantis", time.Minute, fn)
	require.NoError(t, err)
	require.Nil(t, v)

	v, err = Fetch(context.Background(), qc, "geo:atlantis", time.Minute, fn)
	require.NoError(t, err)
	require.Nil(t, v)
	require.Equal(t, 1, calls)
}

func TestMemoryBackendPurge(t *testing.T) {
	backend := NewMemoryBackend()
	now := time.Now()
	backend.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, backend.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, backend.Set(ctx, "forever", []byte("2"), 0))

	now = now.Add(2 * time.Second)
	require.Equal(t, 1, backend.Purge())
	require.Equal(t, 1, backend.Len())

	_, ok, err := backend.Get(ctx, "forever")
	require.NoError(t, err)
	require.True(t, ok)
}

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}

func (failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend down")
}

func TestFetchDegradesWhenBackendFails(t *testing.T) {
	qc := New(failingBackend{}, nil)
	v, err := Fetch(context.Background(), qc, "k", time.Minute, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, v)
}
