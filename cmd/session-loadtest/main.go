// Command session-loadtest drives a goSession Manager with concurrent
// mint, resolve and persist traffic and prints latency percentiles.
//
// Without -redis-addr (or REDIS_ADDR) it runs against an in-process miniredis.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/netip"
	"os"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/aead"
)

type client struct {
	addr  netip.Addr
	token string
}

func main() {
	var (
		sessions    = flag.Int("sessions", 20000, "number of sessions to mint before the resolve phase")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		cipher      = flag.String("cipher", string(aead.AES256GCM), "aes-256-gcm or xchacha20-poly1305")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var rdb redis.UniversalClient
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer rdb.Close()

	cfg := goSession.DefaultConfig()
	cfg.Cipher.Algorithm = aead.Algorithm(*cipher)
	cfg.Cipher.Key = bytes.Repeat([]byte{0x5a}, aead.KeySize)
	cfg.Session.CachePrefix = "loadtest"

	manager, err := goSession.New().WithConfig(cfg).WithRedis(rdb).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build manager: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	ctx := context.Background()
	clients := make([]client, *sessions)

	mint := runPhase(*sessions, *concurrency, func(i int, _ *rand.Rand) error {
		a := clientAddr(i)
		store, err := manager.GetStore(ctx, a, "")
		if err != nil {
			return err
		}
		store.Set("visits", "0")
		clients[i] = client{addr: a, token: store.SID()}
		return manager.SetStore(ctx, store)
	})

	resolve := runPhase(*ops, *concurrency, func(_ int, r *rand.Rand) error {
		c := clients[r.IntN(len(clients))]
		store, err := manager.GetStore(ctx, c.addr, c.token)
		if err != nil {
			return err
		}
		if store.IsNew() {
			return fmt.Errorf("token for %s was not accepted", c.addr)
		}
		return nil
	})

	persist := runPhase(*ops, *concurrency, func(i int, r *rand.Rand) error {
		c := clients[r.IntN(len(clients))]
		store, err := manager.GetStore(ctx, c.addr, c.token)
		if err != nil {
			return err
		}
		store.Set("visits", strconv.Itoa(i))
		return manager.SetStore(ctx, store)
	})

	fmt.Println("---- results ----")
	printStats("mint", mint)
	printStats("resolve", resolve)
	printStats("persist", persist)

	snap := manager.MetricsSnapshot()
	fmt.Printf("manager: minted=%d resolved=%d cache_miss=%d cache_errors=%d\n",
		snap.Counters[goSession.MetricSessionMinted],
		snap.Counters[goSession.MetricSessionResolved],
		snap.Counters[goSession.MetricSessionCacheMiss],
		snap.Counters[goSession.MetricCacheReadError]+snap.Counters[goSession.MetricCacheWriteError])
	fmt.Printf("get_store latency buckets (<=1ms..+Inf): %v\n", snap.Histograms[goSession.MetricGetStoreLatency])
}

// clientAddr spreads sessions over 10.0.0.0/8 so each one has its own address.
func clientAddr(i int) netip.Addr {
	return netip.AddrFrom4([4]byte{10, byte(i >> 16), byte(i >> 8), byte(i)})
}

func runPhase(ops, concurrency int, op func(i int, r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := range concurrency {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(worker)*7919))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					break
				}
				t0 := time.Now()
				if err := op(i, r); err != nil {
					atomic.AddInt64(&failures, 1)
				}
				local = append(local, time.Since(t0))
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	slices.Sort(samples)
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
	return samples[(len(samples)-1)*p/100]
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
