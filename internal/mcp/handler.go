package mcp

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/jira-mcp/internal/common"
)

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
	authToken  []byte
}

// NewHandler wraps s for streamable HTTP. A non-empty authToken requires
// "Authorization: Bearer <token>" on every request.
func NewHandler(s *mcpserver.MCPServer, authToken string, logger *common.Logger) *Handler {
	return &Handler{
		streamable: mcpserver.NewStreamableHTTPServer(s, mcpserver.WithStateLess(true)),
		logger:     logger,
		authToken:  []byte(authToken),
	}
}

// ServeHTTP checks the bearer token (when configured) and delegates to the
// mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if len(h.authToken) > 0 && !h.authorized(r) {
		h.logger.Warn().Str("remote", r.RemoteAddr).Msg("MCP request rejected: missing or invalid bearer token")
		w.Header().Set("WWW-Authenticate", `Bearer realm="jira-mcp"`)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "unauthorized",
			"error_description": "Authentication required to access MCP endpoint",
		})
		return
	}

	h.streamable.ServeHTTP(w, r)
}

func (h *Handler) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	token := []byte(strings.TrimPrefix(auth, "Bearer "))
	return subtle.ConstantTimeCompare(token, h.authToken) == 1
}
