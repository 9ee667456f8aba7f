// Command a010cam runs the A010 depth driver against a real USB-serial
// port (or, with -dev, a recorded fixture file) and exposes a small HTTP
// surface for inspecting its state.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jconnell11/tof-cam/internal/a010"
	"github.com/jconnell11/tof-cam/internal/telemetry"
	"github.com/jconnell11/tof-cam/transport"
)

var (
	devMode    = flag.Bool("dev", false, "replay a recorded fixture instead of opening a real port")
	fixture    = flag.String("fixture", "fixtures/a010.bin", "fixture file to replay in -dev mode")
	devicePath = flag.String("port", "/dev/ttyUSB0", "serial device path")
	configPath = flag.String("config", "", "optional JSON tuning config")
	listen     = flag.String("listen", ":8090", "debug HTTP listen address")
)

func main() {
	flag.Parse()

	cfg := a010.DefaultConfig()
	if *configPath != "" {
		tuning, err := a010.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		cfg = tuning.Resolve()
	}

	var port transport.Port
	if *devMode {
		data, err := os.ReadFile(*fixture)
		if err != nil {
			log.Fatalf("failed to open fixture file: %v", err)
		}
		port = newFixturePort(data)
	} else {
		p, err := transport.OpenSerial(*devicePath, transport.DefaultOptions())
		if err != nil {
			log.Fatalf("failed to open serial port: %v", err)
		}
		port = p
	}

	sessionID := uuid.New().String()
	telemetry.SetSessionID(sessionID)
	telemetry.Logf("a010cam: starting session %s", sessionID)

	driver := a010.New(cfg)
	if err := driver.Start(port); err != nil {
		log.Fatalf("failed to start driver: %v", err)
	}
	defer driver.Done()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runDebugServer(ctx, driver, sessionID)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if frame := driver.Range(true); frame != nil {
				telemetry.Logf("a010: frame ready, unit=%d", driver.Unit())
			}
			if err := driver.Err(); err != nil {
				telemetry.Logf("a010: acquisition stopped: %v", err)
				stop()
				return
			}
		}
	}()

	wg.Wait()
	log.Printf("a010cam shutdown complete")
}

func runDebugServer(ctx context.Context, driver *a010.Driver, sessionID string) {
	mux := http.NewServeMux()

	withSession := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Session-Id", sessionID)
			next(w, r)
		}
	}

	mux.HandleFunc("/unit", withSession(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%d\n", driver.Unit())
	}))

	mux.HandleFunc("/stats", withSession(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			SessionID string `json:"session_id"`
			a010.Stats
		}{SessionID: sessionID, Stats: driver.Stats()})
	}))

	mux.HandleFunc("/night", withSession(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(driver.Night(0))
	}))

	mux.HandleFunc("/median", withSession(func(w http.ResponseWriter, r *http.Request) {
		med := driver.Median()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(med[:])
	}))

	server := &http.Server{Addr: *listen, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("debug HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("debug HTTP server shutdown error: %v", err)
	}
}

// fixturePort replays a recorded byte stream for -dev mode, looping once
// it runs out so long development sessions don't need a giant fixture.
type fixturePort struct {
	mu     sync.Mutex
	data   []byte
	reader *bytes.Reader
}

func newFixturePort(data []byte) *fixturePort {
	return &fixturePort{data: data, reader: bytes.NewReader(data)}
}

func (f *fixturePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, err := f.reader.Read(p)
	if err == io.EOF {
		f.reader = bytes.NewReader(f.data)
		if n == 0 {
			n, err = f.reader.Read(p)
		} else {
			err = nil
		}
	}
	return n, err
}

func (f *fixturePort) Write(p []byte) (int, error) {
	return len(p), nil
}

func (f *fixturePort) Close() error {
	return nil
}
