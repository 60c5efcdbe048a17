package types

import "strings"

// TransportMode is the kind of connection an RPC endpoint uses.
type TransportMode int

const (
	HTTPMode TransportMode = iota
	WebSocketMode
)

// GetTransportMode returns mode based on RPC URL
func GetTransportMode(rpcURL string) TransportMode {
	if strings.HasPrefix(rpcURL, "wss://") || strings.HasPrefix(rpcURL, "ws://") {
		return WebSocketMode
	}
	return HTTPMode
}

func (m TransportMode) String() string {
	switch m {
	case WebSocketMode:
		return "WebSocket"
	case HTTPMode:
		return "HTTP"
	default:
		return "Unknown"
	}
}
