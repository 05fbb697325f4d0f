// loadgen drives traffic at a limitd server to exercise the active policy:
// it fires requests at a fixed rate and reports how the limiter responded.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	serverURL = flag.String("server", "http://localhost:8080", "limitd server URL")
	requests  = flag.Int("requests", 50, "Total requests to send")
	rate      = flag.Int("rate", 10, "Requests per second")
	apiKey    = flag.String("api-key", "", "X-API-Key header to send (exercises api-key identity)")
	userID    = flag.String("user-id", "", "X-User-ID header to send (exercises user-id identity)")
	forwarded = flag.String("forwarded-for", "", "X-Forwarded-For header to send (simulates a client IP)")
	timeout   = flag.Duration("timeout", 5*time.Second, "Per-request timeout")
	Version   = "dev"
)

func main() {
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	log.Info().Str("version", Version).Str("server", *serverURL).Msg("loadgen starting")

	client := &http.Client{Timeout: *timeout}

	// Wait for the server before opening fire.
	r := newRetrier(500, 5000, 5)
	err := r.do(func() error {
		resp, err := client.Get(*serverURL + "/v1/health")
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return statusError{status: resp.StatusCode}
		}
		return nil
	}, isRetryable)
	if err != nil {
		log.Fatal().Err(err).Msg("Server not reachable")
	}

	rps := *rate
	if rps < 1 {
		rps = 1
	}
	interval := time.Second / time.Duration(rps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		allowedCount int
		deniedCount  int
		errorCount   int
		retryAfters  []int
	)

	for i := 0; i < *requests; i++ {
		<-ticker.C

		req, err := http.NewRequest(http.MethodPost, *serverURL+"/v1/check", nil)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build request")
		}
		if *apiKey != "" {
			req.Header.Set("X-API-Key", *apiKey)
		}
		if *userID != "" {
			req.Header.Set("X-User-ID", *userID)
		}
		if *forwarded != "" {
			req.Header.Set("X-Forwarded-For", *forwarded)
		}

		resp, err := client.Do(req)
		if err != nil {
			errorCount++
			log.Warn().Err(err).Int("request", i+1).Msg("Request failed")
			continue
		}
		remaining := resp.Header.Get("X-RateLimit-Remaining")
		switch resp.StatusCode {
		case http.StatusOK:
			allowedCount++
			log.Info().Int("request", i+1).Str("remaining", remaining).Msg("Allowed")
		case http.StatusTooManyRequests:
			deniedCount++
			if ra, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				retryAfters = append(retryAfters, ra)
			}
			log.Warn().Int("request", i+1).Str("retry_after", resp.Header.Get("Retry-After")).Msg("Denied")
		default:
			errorCount++
			log.Warn().Int("request", i+1).Int("status", resp.StatusCode).Msg("Unexpected status")
		}
		resp.Body.Close()
	}

	fmt.Printf("\nResults\n=======\n")
	fmt.Printf("Sent:    %d\n", *requests)
	fmt.Printf("Allowed: %d\n", allowedCount)
	fmt.Printf("Denied:  %d\n", deniedCount)
	fmt.Printf("Errors:  %d\n", errorCount)
	if len(retryAfters) > 0 {
		minRA, maxRA := retryAfters[0], retryAfters[0]
		for _, ra := range retryAfters[1:] {
			if ra < minRA {
				minRA = ra
			}
			if ra > maxRA {
				maxRA = ra
			}
		}
		fmt.Printf("Retry-After observed: %d-%ds\n", minRA, maxRA)
	}
}
