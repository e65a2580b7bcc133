/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type capture struct {
	mu      sync.Mutex
	events  [][]byte
	crashes [][]byte
	auth    []string
}

func (c *capture) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.events = append(c.events, b)
		c.auth = append(c.auth, r.Header.Get("Authorization"))
		c.mu.Unlock()
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.crashes = append(c.crashes, b)
		c.mu.Unlock()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestClient_EventAndUploadCrash(t *testing.T) {
	cp := &capture{}
	srv := cp.server(t)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Token: "s3cret"})
	defer c.Close()

	c.Event("panelize.succeeded", map[string]any{"sections": 2})
	c.Flush(context.Background())
	if !waitFor(func() bool { cp.mu.Lock(); defer cp.mu.Unlock(); return len(cp.events) > 0 }) {
		t.Fatalf("expected an event to be sent")
	}
	cp.mu.Lock()
	var m map[string]any
	if err := json.Unmarshal(cp.events[0], &m); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	auth := cp.auth[0]
	cp.mu.Unlock()
	if m["name"] != "panelize.succeeded" || m["sections"] != float64(2) {
		t.Fatalf("unexpected payload: %v", m)
	}
	if auth != "Bearer s3cret" {
		t.Fatalf("authorization header = %q", auth)
	}

	c.UploadCrash([]byte("STACKTRACE"))
	if !waitFor(func() bool { cp.mu.Lock(); defer cp.mu.Unlock(); return len(cp.crashes) > 0 }) {
		t.Fatalf("expected crash upload")
	}
}

func TestClient_DisabledAndEmptyEventName(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := New(Config{OptIn: false, EventsURL: srv.URL, CrashURL: srv.URL})
	defer c.Close()
	if c.Enabled() {
		t.Fatalf("expected disabled client")
	}
	c.Event("ignored", nil)
	c.UploadCrash([]byte("ignored"))

	c2 := New(Config{OptIn: true, EventsURL: srv.URL})
	defer c2.Close()
	c2.Event("", nil)
	c2.Flush(nil)
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no requests")
	}
}

func TestClient_SendErrorsAreSwallowed(t *testing.T) {
	c := New(Config{OptIn: true, EventsURL: "http://127.0.0.1:1/events", CrashURL: "http://127.0.0.1:1/crash", Timeout: 50 * time.Millisecond, DebugLogging: true})
	defer c.Close()
	c.Event("err", map[string]any{"a": 1})
	c.Flush(context.Background())
	c.UploadCrash([]byte("oops"))
	time.Sleep(50 * time.Millisecond)
}

func TestFromEnvAndDefault(t *testing.T) {
	t.Setenv("GPZ_TELEMETRY_OPT_IN", "yes")
	t.Setenv("GPZ_TELEMETRY_URL", "http://127.0.0.1:0")
	t.Setenv("GPZ_CRASH_UPLOAD_URL", "")
	t.Setenv("GPZ_TELEMETRY_TIMEOUT_MS", "100")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL == "" || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}
	c := New(cfg)
	SetDefault(c)
	t.Cleanup(func() { SetDefault(nil) })
	if Default() != c || !Default().Enabled() {
		t.Fatalf("default client not installed")
	}
	var _ Sink = c
	var _ Sink = Nop{}
}
