package client

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"unicode/utf8"

	transports "github.com/rzbill/eventual/internal/cmd/client/transports"
	cfgpkg "github.com/rzbill/eventual/internal/config"
	"github.com/rzbill/eventual/internal/eventlog"
)

// AddrFunc provides the server address (e.g., from env or flag).
type AddrFunc func() string

// AddrFromEnv returns the server address from EVENTUAL_ADDR or the default.
func AddrFromEnv() string {
	if addr := os.Getenv(cfgpkg.EnvPrefix + "ADDR"); addr != "" {
		return addr
	}
	return cfgpkg.DefaultAddr
}

func getTransport(addr AddrFunc) transports.StreamsTransport {
	return transports.NewTCPTransport(addr())
}

// decodedEvent returns a map with id and one of payload_json, payload_text, or payload_b64.
func decodedEvent(ev eventlog.Event) map[string]any {
	out := map[string]any{
		"id": ev.ID.String(),
	}
	// Try JSON first if it looks like JSON
	if len(ev.Payload) > 0 && (ev.Payload[0] == '{' || ev.Payload[0] == '[') {
		var v any
		if json.Unmarshal(ev.Payload, &v) == nil {
			out["payload_json"] = v
			return out
		}
	}
	if utf8.Valid(ev.Payload) {
		out["payload_text"] = string(ev.Payload)
		return out
	}
	out["payload_b64"] = base64.StdEncoding.EncodeToString(ev.Payload)
	return out
}
