package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goContacts/internal/rate"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		subjects    = flag.Int("subjects", 1000, "number of distinct rate limit subjects")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "admission checks to run")
		limit       = flag.Int("limit", 50, "requests allowed per subject per window")
		window      = flag.Duration("window", time.Minute, "rate limit window")
		backend     = flag.String("backend", "redis", "store backend: redis or memory")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		route       = flag.String("route", "loadtest", "route id used in keys")
	)
	flag.Parse()

	if *subjects <= 0 || *concurrency <= 0 || *ops <= 0 || *limit <= 0 || *window <= 0 {
		fmt.Fprintln(os.Stderr, "subjects, concurrency, ops, limit and window must be > 0")
		os.Exit(2)
	}

	store, cleanup, err := openStore(*backend, *redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	limiter, err := rate.New(rate.Config{
		Store:   store,
		Default: rate.Policy{Limit: *limit, Window: *window},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "limiter: %v\n", err)
		os.Exit(1)
	}

	s := runAdmitPhase(context.Background(), limiter, *route, *subjects, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("admit", s)
	fmt.Printf("allowed=%d denied=%d errors=%d\n", s.allowed, s.denied, s.failures)

	// Every subject shares one window for the whole run when the run is
	// shorter than the window, so no subject may exceed the limit.
	if s.total < *window {
		for subject, n := range s.perSubject {
			if n > int64(*limit) {
				fmt.Fprintf(os.Stderr, "subject %d admitted %d times, limit %d\n", subject, n, *limit)
				os.Exit(1)
			}
		}
		fmt.Println("ceiling held for every subject")
	}
}

func openStore(backend, addr string) (rate.Store, func(), error) {
	switch backend {
	case "memory":
		fmt.Println("using in-process memory store")
		return rate.NewMemoryStore(nil), func() {}, nil
	case "redis":
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}

	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return rate.NewRedisStore(client), func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	fmt.Printf("using redis at %s\n", addr)
	return rate.NewRedisStore(client), func() { _ = client.Close() }, nil
}

type phaseStats struct {
	total      time.Duration
	ops        int
	allowed    int64
	denied     int64
	failures   int64
	perSubject []int64
	p50        time.Duration
	p95        time.Duration
	p99        time.Duration
	opsPerS    float64
}

func runAdmitPhase(ctx context.Context, limiter *rate.Limiter, route string, subjects, ops, concurrency int) phaseStats {
	var (
		wg         sync.WaitGroup
		cursor     int64
		allowed    int64
		denied     int64
		failures   int64
		perSubject = make([]int64, subjects)
		latencies  = make([]time.Duration, 0, ops)
		mu         sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(subjects)
				t0 := time.Now()
				_, err := limiter.AdmitRoute(ctx, route, "subject-"+strconv.Itoa(idx))
				d := time.Since(t0)
				switch {
				case err == nil:
					atomic.AddInt64(&allowed, 1)
					atomic.AddInt64(&perSubject[idx], 1)
				case errors.Is(err, rate.ErrRateLimited):
					atomic.AddInt64(&denied, 1)
				default:
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	s := computeStats(time.Since(start), latencies, failures)
	s.allowed, s.denied, s.perSubject = allowed, denied, perSubject
	return s
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
