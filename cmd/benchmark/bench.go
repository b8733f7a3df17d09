package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const (
	mockPort = 9091
	appPort  = 8081
)

var unaryResp = []byte(`{"id":"bench-123","choices":[{"message":{"role":"assistant","content":"Benchmark response"}}],"usage":{"prompt_tokens":12,"completion_tokens":8,"total_tokens":20}}`)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	users := flag.Int("users", 500, "Distinct user ids to spread load over")
	chaos := flag.Bool("chaos", false, "Simulate random client disconnections")
	flag.Parse()

	// start mock provider
	go startMockProvider()

	// build and start application
	fmt.Println("Building application...")
	buildCmd := exec.Command("go", "build", "-o", "bin/server", "./cmd/server")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	configFile := "bench_config.yaml"
	if err := os.WriteFile(configFile, []byte(benchConfig), 0644); err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}
	defer os.Remove(configFile)

	fmt.Println("Starting application...")
	cmd := exec.Command("./bin/server")
	cmd.Env = append(os.Environ(), fmt.Sprintf("CONFIG_FILE=%s", configFile))
	cmd.Env = append(cmd.Env, "LOG_LEVEL=error")

	logFile, _ := os.Create("bench_server.log")
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}()

	waitForApp(fmt.Sprintf("http://localhost:%d/health", appPort))

	done := make(chan struct{})

	fmt.Printf("Running benchmark: %s duration, %d req/s, %d users\n", *duration, *rate, *users)

	body := []byte(`{"request_class": "quick", "prompt": "Summarize the plot of Hamlet in one sentence."}`)

	// Spread requests over many user ids so the per-user window and daily
	// quota never become the bottleneck being measured.
	targeter := func(t *vegeta.Target) error {
		t.Method = "POST"
		t.URL = fmt.Sprintf("http://localhost:%d/api/v1/optimize", appPort)
		t.Body = body
		t.Header = http.Header{
			"Content-Type":    []string{"application/json"},
			"X-User-ID":       []string{fmt.Sprintf("bench-user-%d", rand.Intn(*users))},
			"Idempotency-Key": []string{uuid.NewString()},
		}
		return nil
	}

	if *chaos {
		fmt.Println("CHAOS MODE ENABLED: Starting Chaos Monkey sidecar...")
		chaosConcurrency := *rate / 10
		if chaosConcurrency < 5 {
			chaosConcurrency = 5
		}
		if chaosConcurrency > 50 {
			chaosConcurrency = 50
		}
		go startChaosMonkey(fmt.Sprintf("http://localhost:%d/api/v1/optimize", appPort), chaosConcurrency, done)
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()

	close(done)

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error Set (first 5 unique):")

		uniqueErrors := make(map[string]bool)
		count := 0
		for _, msg := range metrics.Errors {
			if !uniqueErrors[msg] && count < 5 {
				fmt.Println(msg)

				uniqueErrors[msg] = true
				count++
			}
		}
	}

	os.Remove("bench.db")
}

// startChaosMonkey fires requests that disconnect mid-flight. The server must
// still invoke the provider and commit usage for each of them.
func startChaosMonkey(url string, concurrency int, done chan struct{}) {
	fmt.Printf("Starting Chaos Monkey with %d concurrent disrupters (random disconnects 1-200ms)\n", concurrency)
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go func(id int) {
			defer wg.Done()
			client := &http.Client{
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 100,
					DisableKeepAlives:   false,
				},
			}

			payload := `{"request_class": "quick", "prompt": "Chaos Request"}`

			for {
				select {
				case <-done:
					return
				default:
					timeout := time.Duration(rand.Intn(200)+1) * time.Millisecond

					ctx, cancel := context.WithTimeout(context.Background(), timeout)
					req, _ := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(payload))
					req.Header.Set("Content-Type", "application/json")
					req.Header.Set("X-User-ID", fmt.Sprintf("chaos-user-%d", id))
					req.Header.Set("Idempotency-Key", uuid.NewString())

					resp, err := client.Do(req)
					if err == nil {
						resp.Body.Close()
					}
					cancel()

					time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
				}
			}
		}(i)
	}
}

func startMockProvider() {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.Write(unaryResp)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	_ = http.ListenAndServe(fmt.Sprintf(":%d", mockPort), mux)
}

func waitForApp(url string) {
	for i := 0; i < 20; i++ {
		resp, err := http.Get(url)
		if err == nil && resp.StatusCode == 200 {
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Fatal("App timed out")
}

var benchConfig = fmt.Sprintf(`
server:
  port: "%d"
  env: development
  db_path: "bench.db"
rate_limit:
  per_user_limit: 1000000
  window_seconds: 60
  ip_requests_per_second: 100000
  ip_burst: 100000
quota:
  quick_daily_max: 1000000
  deep_daily_max: 1000000
  token_daily_max: 1000000000
  api_calls_daily_max: 10000000
dispatch:
  invoke_timeout_seconds: 10
  max_attempts: 2
  retry_backoff_ms: 50
  defaults:
    quick:
      provider: bench-openai
      model: gpt-4o-mini
    deep:
      provider: bench-openai
      model: gpt-4o-mini
providers:
  - name: bench-openai
    type: openai
    api_key: "mock-key"
    base_url: "http://localhost:%d/v1"
    enabled: true
    priority: 10
    models: ["gpt-4o-mini"]
`, appPort, mockPort)
