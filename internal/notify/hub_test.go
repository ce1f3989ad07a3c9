// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package notify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/norisrivatsa/VideoProcessingApp/internal/notify"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHubDeliversToOpenConnection(t *testing.T) {
	hub := notify.NewHub()
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, "owner-1")
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.RoomSize("owner-1") == 1 },
		2*time.Second, 10*time.Millisecond)

	event := &notify.Event{Name: notify.EventProcessingCompleted, VideoID: "video-1", OwnerID: "owner-1"}
	require.NoError(t, hub.Emit(context.Background(), "owner-1", event))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(payload), `"event":"processing_completed"`)
	require.Contains(t, string(payload), `"videoId":"video-1"`)
}

func TestHubEmitSurvivesConcurrentDisconnects(t *testing.T) {
	hub := notify.NewHub()
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, "owner-1")
	}))
	defer srv.Close()

	event := &notify.Event{Name: notify.EventProcessingCompleted, VideoID: "video-1", OwnerID: "owner-1"}

	// Hammer the room from several dispatch goroutines while connections
	// come and go underneath them.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_ = hub.Emit(context.Background(), "owner-1", event)
				}
			}
		}()
	}

	for i := 0; i < 25; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
		require.NoError(t, err)
		_ = conn.Close()
	}

	close(stop)
	wg.Wait()

	// Every dropped peer leaves the room once its read pump notices.
	require.Eventually(t, func() bool { return hub.RoomSize("owner-1") == 0 },
		5*time.Second, 25*time.Millisecond)
}
