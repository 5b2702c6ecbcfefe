// Package mcp exposes the conversation engine as Model Context Protocol tools,
// so an assistant can relay a user's emergency to the bot.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/firstaid"
	"github.com/aretw0/firstaid/internal/logging"
	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/input"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ChatResponse is the structured result of the chat tool.
type ChatResponse struct {
	Response string             `json:"response" jsonschema_description:"The bot reply to show the user"`
	Kind     domain.OutcomeKind `json:"kind" jsonschema_description:"What the reply is: welcome, question, step, clarify, help, terminal or error"`
	Status   domain.Status      `json:"status" jsonschema_description:"Session status after the message"`
	Terminal bool               `json:"terminal" jsonschema_description:"True when the flow ended and the user was told to seek help"`
}

// Engine is the part of the conversation engine the MCP server needs.
type Engine interface {
	Handle(ctx context.Context, sessionID, text string) (domain.Reply, error)
	Emergencies(ctx context.Context) []string
}

// Server wraps the Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("firstaid-mcp", strings.TrimSpace(firstaid.Version)),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, mostly for tests.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	// TOOL: chat
	chatTool := mcp.NewTool("chat",
		mcp.WithDescription("Send the user's message to the first-aid guide and get its reply. Reuse the same session_id for the whole conversation."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The user's message, in their own words")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation identifier")),
		mcp.WithOutputSchema[ChatResponse](),
	)
	s.mcpServer.AddTool(chatTool, mcp.NewStructuredToolHandler(s.handleChat))

	// TOOL: list_emergencies
	s.mcpServer.AddTool(mcp.NewTool("list_emergencies",
		mcp.WithDescription("List the emergencies the guide can walk a user through."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.engine.Emergencies(ctx))
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ChatResponse, error) {
	text, _ := args["text"].(string)
	sessionID, _ := args["session_id"].(string)
	if strings.TrimSpace(sessionID) == "" {
		return ChatResponse{}, fmt.Errorf("session_id is required")
	}

	clean, err := input.SanitizeInput(text)
	if err != nil {
		s.logger.Warn("MCP Chat: Input rejected", "err", err, "size", len(text))
		return ChatResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	reply, err := s.engine.Handle(ctx, sessionID, clean)
	if err != nil {
		s.logger.Error("MCP Chat failed", "session_id", sessionID, "err", err)
		return ChatResponse{
			Response: domain.MsgEscalationFallback,
			Kind:     domain.OutcomeError,
			Terminal: true,
		}, nil
	}

	return ChatResponse{
		Response: reply.Text,
		Kind:     reply.Kind,
		Status:   reply.Status,
		Terminal: reply.Terminal,
	}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: firstaid://emergencies
	s.mcpServer.AddResource(mcp.NewResource("firstaid://emergencies", "Supported Emergencies",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, _ := json.Marshal(s.engine.Emergencies(ctx))
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "firstaid://emergencies",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
