package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probeBody struct {
	Status string
	Checks map[string]string
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) probeBody {
	t.Helper()
	var b probeBody
	require.NoError(t, jx.DecodeBytes(w.Body.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "status":
			s, err := d.Str()
			b.Status = s
			return err
		case "checks":
			b.Checks = map[string]string{}
			return d.Obj(func(d *jx.Decoder, name string) error {
				s, err := d.Str()
				b.Checks[name] = s
				return err
			})
		default:
			return d.Skip()
		}
	}))
	return b
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func passing() CheckFunc {
	return func(context.Context) error { return nil }
}

func serve(h http.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestLiveEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		runs   int
		expect int
	}{
		{name: "never run", runs: 0, expect: http.StatusOK},
		{name: "below threshold", runs: 2, expect: http.StatusOK},
		{name: "at threshold", runs: 3, expect: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			h.Add(Liveness, "postgres", failing("connection refused"))
			for range tt.runs {
				h.checks[Liveness][0].run(context.Background())
			}

			w := serve(h.LiveEndpoint)
			assert.Equal(t, tt.expect, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			body := decodeBody(t, w)
			if tt.expect == http.StatusOK {
				assert.Equal(t, "ok", body.Status)
			} else {
				assert.Equal(t, "unhealthy", body.Status)
				assert.Equal(t, "connection refused", body.Checks["postgres"])
			}
		})
	}
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.Add(Readiness, "postgres", passing())
	h.Add(Readiness, "redis", failing("redis down"), WithThresholds(1, 1))

	w := serve(h.ReadyEndpoint)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decodeBody(t, w).Checks, "_readiness")

	h.SetReady(true)
	assert.Equal(t, http.StatusOK, serve(h.ReadyEndpoint).Code)
	assert.True(t, h.IsReady())

	h.checks[Readiness][1].run(context.Background())
	w = serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "redis down", body.Checks["redis"])
	assert.NotContains(t, body.Checks, "postgres")
	assert.False(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestCheckRecovers(t *testing.T) {
	down := true
	h := New()
	h.Add(Liveness, "flaky", func(context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	}, WithThresholds(2, 2))
	c := h.checks[Liveness][0]
	ctx := context.Background()

	c.run(ctx)
	c.run(ctx)
	require.False(t, c.healthy.Load())
	assert.EqualError(t, c.err(), "down")

	down = false
	c.run(ctx)
	assert.False(t, c.healthy.Load(), "one pass is below the success threshold")
	c.run(ctx)
	assert.True(t, c.healthy.Load())
}

func TestCheckTimeout(t *testing.T) {
	h := New()
	h.Add(Readiness, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithTimeout(10*time.Millisecond), WithThresholds(1, 1))

	h.checks[Readiness][0].run(context.Background())
	require.ErrorIs(t, h.checks[Readiness][0].err(), context.DeadlineExceeded)
}

func TestStartStopConcurrent(t *testing.T) {
	h := New()
	h.Add(Liveness, "goroutines", GoroutineCountCheck(100000))
	h.Add(Readiness, "failing", failing("err"))
	h.SetReady(true)

	h.Start(context.Background(), 5*time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady()
				serve(h.LiveEndpoint)
				serve(h.ReadyEndpoint)
			}
		}()
	}
	wg.Wait()
	h.Stop()
	h.Stop()
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPingCheck(t *testing.T) {
	assert.NoError(t, PingCheck(pingerFunc(func(context.Context) error { return nil }))(context.Background()))

	err := PingCheck(pingerFunc(func(context.Context) error { return errors.New("refused") }))(context.Background())
	assert.ErrorContains(t, err, "refused")
}

func TestRedisCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	check := RedisCheck(client)
	require.NoError(t, check(context.Background()))

	mr.Close()
	assert.Error(t, check(context.Background()))
}

func TestReadyEndpoint_HealthyDependencies(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := New()
	h.Add(Readiness, "postgres", PingCheck(pingerFunc(func(context.Context) error { return nil })))
	h.Add(Readiness, "redis", RedisCheck(client))
	h.SetReady(true)

	ctx := context.Background()
	for range 5 {
		for _, c := range h.snapshot(Readiness) {
			c.run(ctx)
		}
	}

	w := serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, h.IsReady())
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.ErrorContains(t, GoroutineCountCheck(0)(context.Background()), "exceeds threshold")
}
