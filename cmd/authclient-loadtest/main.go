// Command authclient-loadtest drives one authclient.Client against the
// in-process stub API. Each round expires every access token and then fires
// a burst of concurrent requests, which must all share a single refresh.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	authclient "github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/internal/stubapi"
	promexport "github.com/MrEthical07/authclient/metrics/export/prometheus"
	"github.com/MrEthical07/authclient/session"
)

func main() {
	var (
		rounds       = flag.Int("rounds", 50, "expiry rounds")
		concurrency  = flag.Int("concurrency", 64, "concurrent requests per round")
		mode         = flag.String("mode", "bearer", "session mode: cookie or bearer")
		redisAddr    = flag.String("redis-addr", "", "redis address for the bearer token store; if empty, REDIS_ADDR env or miniredis is used")
		refreshDelay = flag.Duration("refresh-delay", 20*time.Millisecond, "artificial refresh endpoint latency")
		metricsAddr  = flag.String("metrics-addr", "", "serve Prometheus metrics on this address after the run (blocks)")
		logLevel     = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	if *rounds <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "rounds and concurrency must be > 0")
		os.Exit(2)
	}

	logger, err := authclient.NewLogger(authclient.LoggingConfig{Level: *logLevel}, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}

	api, err := stubapi.New(stubapi.Config{Username: "loadtest", Password: "loadtest"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "stub api: %v\n", err)
		os.Exit(1)
	}
	api.SetRefreshDelay(*refreshDelay)
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfg := authclient.DefaultConfig()
	cfg.Transport.BaseURL = srv.URL
	cfg.Session.Mode = authclient.SessionMode(*mode)

	builder := authclient.New().WithConfig(cfg).WithLogger(logger)
	var cleanup func()
	if cfg.Session.Mode == authclient.SessionBearer {
		rdb, done, err := openRedis(*redisAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		cleanup = done
		store, err := session.NewRedisStore(rdb, session.RedisStoreConfig{Prefix: "loadtest", SessionKey: "loadtest"})
		if err != nil {
			fmt.Fprintf(os.Stderr, "store: %v\n", err)
			os.Exit(1)
		}
		builder.WithCredentialStore(store)
	}
	if cleanup != nil {
		defer cleanup()
	}

	client, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx := context.Background()
	if err := login(ctx, client, api); err != nil {
		fmt.Fprintf(os.Stderr, "login: %v\n", err)
		os.Exit(1)
	}

	stats := runRounds(ctx, client, api, *rounds, *concurrency)

	fmt.Println("---- results ----")
	printStats(stats)
	snap := client.MetricsSnapshot()
	fmt.Printf("refresh calls: server=%d client=%d (rounds=%d)\n",
		api.RefreshCalls(), snap.Counters[authclient.MetricRefreshStarted], *rounds)
	fmt.Printf("queued behind refresh: %d, retried: %d\n",
		snap.Counters[authclient.MetricRefreshQueued], snap.Counters[authclient.MetricRequestRetried])

	if *metricsAddr != "" {
		fmt.Printf("serving metrics on %s/metrics\n", *metricsAddr)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promexport.NewPrometheusExporter(client).Handler())
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
			os.Exit(1)
		}
	}
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}
	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func login(ctx context.Context, client *authclient.Client, api *stubapi.Server) error {
	if ts, ok := client.CredentialStore().(session.TokenStore); ok {
		tokens, err := api.Login()
		if err != nil {
			return err
		}
		return ts.Save(ctx, session.Tokens{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken})
	}
	resp, err := client.Post(ctx, "/api/auth/login", map[string]string{"username": "loadtest", "password": "loadtest"})
	if err != nil {
		return err
	}
	return resp.Err()
}

type roundStats struct {
	total     time.Duration
	requests  int
	failures  int64
	latencies []time.Duration
}

func runRounds(ctx context.Context, client *authclient.Client, api *stubapi.Server, rounds, concurrency int) roundStats {
	var (
		failures  int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, rounds*concurrency)
	)

	start := time.Now()
	for r := 0; r < rounds; r++ {
		api.ExpireAccess()

		var wg sync.WaitGroup
		gate := make(chan struct{})
		for w := 0; w < concurrency; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-gate
				t0 := time.Now()
				resp, err := client.Get(ctx, "/api/items")
				d := time.Since(t0)
				if err == nil {
					err = resp.Err()
				}
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}()
		}
		close(gate)
		wg.Wait()
	}

	return roundStats{
		total:     time.Since(start),
		requests:  len(latencies),
		failures:  failures,
		latencies: latencies,
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(s roundStats) {
	sort.Slice(s.latencies, func(i, j int) bool { return s.latencies[i] < s.latencies[j] })
	fmt.Printf("requests=%d failures=%d total=%s req/sec=%.0f p50=%s p95=%s p99=%s\n",
		s.requests,
		s.failures,
		s.total.Round(time.Millisecond),
		float64(s.requests)/s.total.Seconds(),
		percentile(s.latencies, 50).Round(time.Microsecond),
		percentile(s.latencies, 95).Round(time.Microsecond),
		percentile(s.latencies, 99).Round(time.Microsecond),
	)
}
