package websocket

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// TestNewHub tests hub creation
func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.Register)
	assert.NotNil(t, hub.Unregister)
	assert.NotNil(t, hub.Broadcast)
	assert.NotNil(t, hub.handlers)
}

// TestRegisterClient tests client registration
func TestRegisterClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := createTestWebSocketConn(t)
	client := NewClient("client-123", conn, hub, zap.NewNop())

	hub.Register <- client
	time.Sleep(10 * time.Millisecond)

	// Verify client is registered
	registeredClient, ok := hub.GetClient("client-123")
	assert.True(t, ok)
	assert.Equal(t, client.ID, registeredClient.ID)
	assert.Equal(t, 1, hub.GetClientCount())
}

// TestRegisterDuplicateClient tests replacing existing client
func TestRegisterDuplicateClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Register first client
	conn1 := createTestWebSocketConn(t)
	client1 := NewClient("client-123", conn1, hub, zap.NewNop())

	hub.Register <- client1
	time.Sleep(10 * time.Millisecond)

	// Register second client with same ID
	conn2 := createTestWebSocketConn(t)
	client2 := NewClient("client-123", conn2, hub, zap.NewNop())

	hub.Register <- client2
	time.Sleep(10 * time.Millisecond)

	// Verify only one client exists
	assert.Equal(t, 1, hub.GetClientCount())

	registeredClient, ok := hub.GetClient("client-123")
	assert.True(t, ok)
	assert.Equal(t, client2, registeredClient)
}

// TestUnregisterClient tests client unregistration
func TestUnregisterClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := createTestWebSocketConn(t)
	client := NewClient("client-123", conn, hub, zap.NewNop())

	// Register client
	hub.Register <- client
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 1, hub.GetClientCount())

	// Unregister client
	hub.Unregister <- client
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 0, hub.GetClientCount())

	_, ok := hub.GetClient("client-123")
	assert.False(t, ok)
}

// TestSendToUser tests sending message to specific client
func TestSendToUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := createTestWebSocketConn(t)
	client := NewClient("client-123", conn, hub, zap.NewNop())

	hub.Register <- client
	time.Sleep(10 * time.Millisecond)

	// Send message
	msg := &Message{
		Type: "test",
		Data: map[string]interface{}{
			"message": "Hello",
		},
	}

	hub.SendToUser(client.ID, msg)
	time.Sleep(10 * time.Millisecond)

	// Message should be in client's send channel
	select {
	case receivedMsg := <-client.Send:
		assert.Equal(t, msg.Type, receivedMsg.Type)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Message not received")
	}
}

// TestSendToNonExistentUser tests sending to non-existent client
func TestSendToNonExistentUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Send message to non-existent client
	msg := &Message{
		Type: "test",
		Data: map[string]interface{}{
			"message": "Hello",
		},
	}

	// Should not panic
	hub.SendToUser("non-existent", msg)
	time.Sleep(10 * time.Millisecond)
}

// TestSendToAll tests broadcasting to all clients
func TestSendToAll(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Create three clients
	clients := make([]*Client, 3)
	for i := 0; i < 3; i++ {
		conn := createTestWebSocketConn(t)
		client := NewClient(fmt.Sprintf("client-%d", i), conn, hub, zap.NewNop())
		clients[i] = client
		hub.Register <- client
	}

	time.Sleep(10 * time.Millisecond)

	// Send to all
	msg := &Message{
		Type: "board_snapshot",
		Data: map[string]interface{}{
			"rides": []interface{}{},
		},
	}

	hub.SendToAll(msg)
	time.Sleep(10 * time.Millisecond)

	// All clients should receive
	for i, client := range clients {
		select {
		case <-client.Send:
			// Message received
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Client %d did not receive broadcast", i)
		}
	}
}

// TestCloseAll tests disconnecting every client
func TestCloseAll(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	for i := 0; i < 3; i++ {
		conn := createTestWebSocketConn(t)
		client := NewClient(fmt.Sprintf("client-%d", i), conn, hub, zap.NewNop())
		hub.Register <- client
	}

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 3, hub.GetClientCount())

	hub.CloseAll()

	assert.Equal(t, 0, hub.GetClientCount())
}

// TestRegisterHandler tests handler registration
func TestRegisterHandler(t *testing.T) {
	hub := NewHub()

	handlerCalled := false
	handler := func(client *Client, msg *Message) {
		handlerCalled = true
	}

	hub.RegisterHandler("test_message", handler)

	// Verify handler is registered
	assert.Contains(t, hub.handlers, "test_message")

	// Test handler is called
	conn := createTestWebSocketConn(t)
	client := NewClient("client-123", conn, hub, zap.NewNop())

	msg := &Message{
		Type: "test_message",
		Data: map[string]interface{}{},
	}

	hub.HandleMessage(client, msg)

	assert.True(t, handlerCalled)
}

// TestHandleMessageUnknownType tests handling unknown message type
func TestHandleMessageUnknownType(t *testing.T) {
	hub := NewHub()

	conn := createTestWebSocketConn(t)
	client := NewClient("client-123", conn, hub, zap.NewNop())

	msg := &Message{
		Type: "unknown_type",
		Data: map[string]interface{}{},
	}

	// Should not panic
	hub.HandleMessage(client, msg)
}

// TestConcurrentAccess tests thread-safety under concurrent load
func TestConcurrentAccess(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	var wg sync.WaitGroup
	numClients := 50

	// Register many clients concurrently
	wg.Add(numClients)
	for i := 0; i < numClients; i++ {
		go func(id int) {
			defer wg.Done()

			conn := createTestWebSocketConn(t)
			client := NewClient(fmt.Sprintf("client-%d", id), conn, hub, zap.NewNop())

			hub.Register <- client
			time.Sleep(1 * time.Millisecond)

			// Send some messages
			for j := 0; j < 5; j++ {
				msg := &Message{
					Type: "test",
					Data: map[string]interface{}{
						"count": j,
					},
				}
				hub.SendToUser(client.ID, msg)
			}

			// Unregister
			hub.Unregister <- client
		}(i)
	}

	wg.Wait()
	time.Sleep(100 * time.Millisecond)

	// All clients should be unregistered
	assert.Equal(t, 0, hub.GetClientCount())
}

// TestClientChannelOverflow tests handling of slow/stuck clients
func TestClientChannelOverflow(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := createTestWebSocketConn(t)
	client := NewClient("client-123", conn, hub, zap.NewNop())

	// Use small channel for testing
	client.Send = make(chan *Message, 2)

	hub.Register <- client
	time.Sleep(10 * time.Millisecond)

	// Fill the channel beyond capacity
	for i := 0; i < 5; i++ {
		msg := &Message{
			Type: "test",
			Data: map[string]interface{}{
				"count": i,
			},
		}
		client.SendMessage(msg)
	}

	time.Sleep(10 * time.Millisecond)

	// Overflowing client is disconnected, not blocked on
	assert.Equal(t, 0, hub.GetClientCount())
}

// TestSendToAllSlowConsumers tests that a broadcast drops full clients
// instead of wedging the hub
func TestSendToAllSlowConsumers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Two clients whose send buffers are already full
	for i := 0; i < 2; i++ {
		conn := createTestWebSocketConn(t)
		client := NewClient(fmt.Sprintf("client-%d", i), conn, hub, zap.NewNop())
		client.Send = make(chan *Message, 1)
		client.Send <- &Message{Type: "filler"}
		hub.Register <- client
	}

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 2, hub.GetClientCount())

	done := make(chan struct{})
	go func() {
		hub.SendToAll(&Message{
			Type: "rides",
			Data: map[string]interface{}{
				"rides": []interface{}{},
			},
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SendToAll blocked on slow consumers")
	}

	// Both slow clients were dropped
	assert.Equal(t, 0, hub.GetClientCount())

	// Hub still serves new clients afterwards
	conn := createTestWebSocketConn(t)
	fresh := NewClient("client-fresh", conn, hub, zap.NewNop())
	hub.Register <- fresh
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, hub.GetClientCount())

	hub.SendToAll(&Message{Type: "rides"})
	select {
	case msg := <-fresh.Send:
		assert.Equal(t, "rides", msg.Type)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Fresh client did not receive broadcast")
	}
}
