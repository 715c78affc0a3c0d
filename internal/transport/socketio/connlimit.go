package socketio

import (
	"net"
	"sync"

	"github.com/samber/lo"
)

// ConnectionLimiter caps concurrent remote (non-loopback) web UI clients.
// Loopback clients are never limited. Past the cap the oldest remote client
// is evicted.
type ConnectionLimiter struct {
	mu          sync.Mutex
	maxExternal int
	external    []string          // oldest first
	connections map[string]string // client ID -> remote IP
}

// NewConnectionLimiter creates a limiter for maxExternal remote clients.
func NewConnectionLimiter(maxExternal int) *ConnectionLimiter {
	return &ConnectionLimiter{
		maxExternal: maxExternal,
		connections: make(map[string]string),
	}
}

// TryAdd registers a client and returns the ID of the client it evicts, or
// "" when nobody has to go. Every client is admitted.
func (cl *ConnectionLimiter) TryAdd(clientID, remoteIP string) (allowed bool, evictedID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.connections[clientID]; exists {
		return true, ""
	}
	cl.connections[clientID] = remoteIP
	if isLocalIP(remoteIP) {
		return true, ""
	}

	cl.external = append(cl.external, clientID)
	if len(cl.external) <= cl.maxExternal {
		return true, ""
	}
	evictedID = cl.external[0]
	cl.external = cl.external[1:]
	delete(cl.connections, evictedID)
	return true, evictedID
}

// Remove forgets a client.
func (cl *ConnectionLimiter) Remove(clientID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.connections[clientID]; !exists {
		return
	}
	delete(cl.connections, clientID)
	cl.external = lo.Without(cl.external, clientID)
}

// External returns the number of tracked remote clients.
func (cl *ConnectionLimiter) External() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.external)
}

// isLocalIP reports whether ip is a loopback address.
func isLocalIP(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}
