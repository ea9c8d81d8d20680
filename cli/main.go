// Package main provides an interactive client for the real-time chat channel.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"github.com/reddishJade/sports-exem/internal/domain"
)

// Client is a connection to one conversation.
type Client struct {
	conn *websocket.Conn
	done chan struct{}
}

// NewClient connects to the conversation as the given user.
func NewClient(addr, conversationID, userID, role string) (*Client, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse addr: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/conversations/" + url.PathEscape(conversationID)

	header := http.Header{}
	header.Set("X-User-ID", userID)
	if role != "" {
		header.Set("X-User-Role", role)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial: %w", err)
	}

	return &Client{
		conn: conn,
		done: make(chan struct{}),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	close(c.done)
	return c.conn.Close()
}

// Send submits one chat turn.
func (c *Client) Send(content, serviceType string) error {
	return c.conn.WriteJSON(domain.TurnRequest{Message: content, ServiceType: serviceType})
}

// ReadEvents prints events from the server until the connection closes.
func (c *Client) ReadEvents() {
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("Read error: %v", err)
				}
				return
			}

			var event domain.RealtimeEvent
			if err := json.Unmarshal(data, &event); err != nil {
				log.Printf("Unmarshal error: %v", err)
				continue
			}
			fmt.Println(format(event))
		}
	}
}

func format(event domain.RealtimeEvent) string {
	switch event.Type {
	case domain.EventTypeMessage:
		if event.ServiceType != "" {
			return fmt.Sprintf("\n[%s via %s] %s", event.Role, event.ServiceType, event.Message)
		}
		return fmt.Sprintf("\n[%s] %s", event.Role, event.Message)
	case domain.EventTypeStatus:
		return fmt.Sprintf("(%s)", event.Status)
	case domain.EventTypeError:
		return fmt.Sprintf("\n[error] %s", event.Message)
	default:
		return fmt.Sprintf("\n[%s] %s", event.Type, event.Message)
	}
}

func main() {
	addr := pflag.String("addr", "ws://localhost:8001", "real-time server address")
	conversationID := pflag.String("conversation", "", "conversation ID to join")
	userID := pflag.String("user", "", "user ID sent as X-User-ID")
	role := pflag.String("role", "student", "user role sent as X-User-Role")
	serviceType := pflag.String("service", "", "backend to request (auto, deepseek, ollama)")
	pflag.Parse()

	log.SetFlags(log.Ltime)

	if *conversationID == "" || *userID == "" {
		log.Fatalf("--conversation and --user are required")
	}

	fmt.Printf("Connecting to %s...\n", *addr)

	client, err := NewClient(*addr, *conversationID, *userID, *role)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	fmt.Println("Type a message and press Enter to send.")
	fmt.Println("Commands: /quit to exit")

	go client.ReadEvents()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		select {
		case <-interrupt:
			fmt.Println("\nInterrupted")
			return
		default:
			if !scanner.Scan() {
				return
			}

			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}

			if input == "/quit" {
				fmt.Println("Bye!")
				return
			}

			if err := client.Send(input, *serviceType); err != nil {
				log.Printf("Send error: %v", err)
			}
		}
	}
}
