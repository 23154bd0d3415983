// Package main replays mempool events against a running server. Events
// come from a JSONL capture file, or are synthesized when no file is
// given; the synthetic feed interleaves benign traffic with sandwich
// triples so detection output is easy to eyeball.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solana-sandwich-watch/internal/domain"
)

func main() {
	// Parse flags
	serverURL := flag.String("server", "http://localhost:8080", "Base URL of the sandwich-watch server")
	filePath := flag.String("file", "", "JSONL file with one TransactionEvent per line (synthetic feed when empty)")
	program := flag.String("program", "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8", "Program id stamped on synthetic events")
	count := flag.Int("count", 100, "Number of synthetic events to send")
	interval := flag.Duration("interval", 100*time.Millisecond, "Delay between events")
	sandwichEvery := flag.Int("sandwich-every", 10, "Insert a sandwich triple every N synthetic events (0 disables)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "PRNG seed for the synthetic feed")

	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	client := &http.Client{Timeout: 5 * time.Second}
	endpoint := strings.TrimRight(*serverURL, "/") + "/api/mempool/events"

	var sent, failed int
	var err error
	if *filePath != "" {
		sent, failed, err = replayFile(ctx, client, endpoint, *filePath, *interval, logger)
	} else {
		sent, failed, err = replaySynthetic(ctx, client, endpoint, *program, *count, *interval, *sandwichEvery, *seed, logger)
	}
	if err != nil && ctx.Err() == nil {
		logger.Fatalf("Replay failed: %v", err)
	}

	logger.Printf("Replay finished: %d sent, %d failed", sent, failed)
}

// replayFile streams a JSONL capture to the server, one event per line.
func replayFile(ctx context.Context, client *http.Client, endpoint, path string, interval time.Duration, logger *log.Logger) (sent, failed int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open capture file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		var event domain.TransactionEvent
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			logger.Printf("line %d: skipping malformed event: %v", line, err)
			failed++
			continue
		}

		if err := postEvent(ctx, client, endpoint, &event); err != nil {
			if ctx.Err() != nil {
				return sent, failed, ctx.Err()
			}
			logger.Printf("line %d: %v", line, err)
			failed++
		} else {
			sent++
		}

		if err := sleep(ctx, interval); err != nil {
			return sent, failed, err
		}
	}
	return sent, failed, scanner.Err()
}

// replaySynthetic generates a mixed feed of benign events and sandwich
// triples around the current wall clock.
func replaySynthetic(ctx context.Context, client *http.Client, endpoint, program string, count int, interval time.Duration, sandwichEvery int, seed int64, logger *log.Logger) (sent, failed int, err error) {
	rng := rand.New(rand.NewSource(seed))
	slot := int64(250_000_000)

	post := func(event *domain.TransactionEvent) error {
		if err := postEvent(ctx, client, endpoint, event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Printf("send %s: %v", event.Signature, err)
			failed++
			return nil
		}
		sent++
		return nil
	}

	for i := 0; i < count; i++ {
		slot++
		now := time.Now().UnixMilli()

		if sandwichEvery > 0 && i > 0 && i%sandwichEvery == 0 {
			// Front and back from one sender, victim in between.
			attacker := randomAddress(rng)
			victim := randomAddress(rng)
			triple := []*domain.TransactionEvent{
				syntheticEvent(rng, slot, now-800, attacker, program),
				syntheticEvent(rng, slot, now, victim, program),
				syntheticEvent(rng, slot, now+800, attacker, program),
			}
			for _, event := range triple {
				if err := post(event); err != nil {
					return sent, failed, err
				}
			}
			logger.Printf("sent sandwich triple around victim %s", victim)
		} else {
			if err := post(syntheticEvent(rng, slot, now, randomAddress(rng), program)); err != nil {
				return sent, failed, err
			}
		}

		if err := sleep(ctx, interval); err != nil {
			return sent, failed, err
		}
	}
	return sent, failed, nil
}

func postEvent(ctx context.Context, client *http.Client, endpoint string, event *domain.TransactionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func syntheticEvent(rng *rand.Rand, slot, observedAt int64, sender, program string) *domain.TransactionEvent {
	return &domain.TransactionEvent{
		Signature:  randomSignature(rng),
		Slot:       slot,
		ObservedAt: observedAt,
		Sender:     sender,
		ProgramIDs: []string{program},
	}
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

func randomSignature(rng *rand.Rand) string {
	return randomBase58(rng, 87)
}

func randomAddress(rng *rand.Rand) string {
	return randomBase58(rng, 43)
}

func randomBase58(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base58Alphabet[rng.Intn(len(base58Alphabet))]
	}
	return string(b)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
