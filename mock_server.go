// mock_server.go
//
// A standalone mock dispatch backend for exercising ChatWire end to end:
//
//	go run mock_server.go [-addr :8080] [-token secret]
//
// It speaks the websocket JSON protocol: challenges with hello_required when
// a token is configured, acknowledges messages with dispatch_ack, echoes a
// reply for every message, answers pings with pongs, and pushes a proactive
// message every 30 seconds.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var (
	listenAddr    = flag.String("addr", ":8080", "listen address")
	requiredToken = flag.String("token", "", "bearer token to require; empty disables authentication")
	connCounter   atomic.Int64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// mockConn serializes writes; the reply and proactive goroutines share the
// socket with the main loop.
type mockConn struct {
	*websocket.Conn
	writeMu sync.Mutex
}

// clientFrame is the superset of fields the mock cares about on inbound frames
type clientFrame struct {
	Kind           string `json:"kind"`
	Token          string `json:"token"`
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	SenderName     string `json:"senderName"`
	Text           string `json:"text"`
}

func wsHandler(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR: upgrade failed: %v", err)
		return
	}
	defer raw.Close()
	conn := &mockConn{Conn: raw}

	connectionID := fmt.Sprintf("conn-%d", connCounter.Add(1))
	log.Printf("=== CONNECTION %s from %s ===", connectionID, r.RemoteAddr)

	authenticated := *requiredToken == ""
	if authenticated {
		sendJSON(conn, map[string]interface{}{
			"type":          "hello_ack",
			"connectionId":  connectionID,
			"serverTime":    nowMillis(),
			"authenticated": false,
		})
	} else {
		sendJSON(conn, map[string]interface{}{
			"type":         "hello_required",
			"connectionId": connectionID,
		})
	}

	// Proactive pusher for this connection
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				sendJSON(conn, map[string]interface{}{
					"type":  "proactive",
					"title": "Mock Server",
					"text":  fmt.Sprintf("Server time is %s", time.Now().Format(time.RFC1123)),
				})
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("connection %s closed: %v", connectionID, err)
			return
		}
		log.Printf("[%s] received: %s", connectionID, string(data))

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("[%s] ERROR: bad frame: %v", connectionID, err)
			continue
		}

		switch frame.Kind {
		case "hello":
			if !authenticated {
				if frame.Token != *requiredToken {
					log.Printf("[%s] auth rejected", connectionID)
					sendJSON(conn, map[string]interface{}{
						"type":    "error",
						"code":    "auth_failed",
						"message": "invalid token",
					})
					return
				}
				authenticated = true
			}
			sendJSON(conn, map[string]interface{}{
				"type":          "hello_ack",
				"connectionId":  connectionID,
				"serverTime":    nowMillis(),
				"authenticated": *requiredToken != "",
			})

		case "ping":
			sendJSON(conn, map[string]interface{}{
				"type":       "pong",
				"serverTime": nowMillis(),
			})

		case "message":
			sendJSON(conn, map[string]interface{}{
				"type":      "dispatch_ack",
				"messageId": frame.MessageID,
				"status":    "dispatched",
			})

			// Echo a reply after a short think, referencing the original id
			go func(f clientFrame) {
				time.Sleep(500 * time.Millisecond)
				reply := map[string]interface{}{
					"type":           "reply",
					"messageId":      f.MessageID,
					"conversationId": f.ConversationID,
					"title":          "Mock Server",
					"useMarkdown":    true,
					"text":           fmt.Sprintf("You said:\n```text\n%s\n```", f.Text),
				}
				sendJSON(conn, reply)
			}(frame)

		default:
			sendJSON(conn, map[string]interface{}{
				"type":    "error",
				"code":    "bad_request",
				"message": fmt.Sprintf("unknown command kind %q", frame.Kind),
			})
		}
	}
}

func sendJSON(conn *mockConn, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal failed: %v", err)
		return
	}
	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("ERROR: write failed: %v", err)
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func main() {
	flag.Parse()

	http.HandleFunc("/ws", wsHandler)

	log.Printf("Mock dispatch backend listening on %s (auth: %v)", *listenAddr, *requiredToken != "")
	if err := http.ListenAndServe(*listenAddr, nil); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
