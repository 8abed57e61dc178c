package chat

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/craftelle/carechat/internal/platform/websocket"
)

// Gateway is the WebSocket edge of the chat domain. It upgrades connections,
// decodes inbound envelopes, dispatches them to the router, and translates
// router errors into the error events clients expect. One gateway serves all
// sessions; per-session state lives in the registry.
type Gateway struct {
	router     *Router
	logger     zerolog.Logger
	sendBuffer int
}

// NewGateway creates the WebSocket gateway. sendBuffer sizes each session's
// outbound queue.
func NewGateway(router *Router, sendBuffer int, logger zerolog.Logger) *Gateway {
	return &Gateway{
		router:     router,
		logger:     logger,
		sendBuffer: sendBuffer,
	}
}

// RegisterRoutes mounts the WebSocket endpoint.
func (g *Gateway) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", g.Handle)
}

// Handle upgrades the request and runs the session until the connection
// drops. The deferred disconnect runs regardless of how the read loop ends,
// so presence is cleaned up even on abrupt closes.
func (g *Gateway) Handle(c echo.Context) error {
	client, err := websocket.Upgrade(c, g.sendBuffer)
	if err != nil {
		g.logger.Error().Err(err).Msg("websocket upgrade")
		return err
	}

	g.logger.Debug().Str("session_id", client.ID).Msg("websocket connected")

	go client.WritePump()

	defer func() {
		g.router.Disconnect(context.Background(), client.ID)
		client.Close()
		g.logger.Debug().Str("session_id", client.ID).Msg("websocket closed")
	}()

	ctx := c.Request().Context()
	client.ReadPump(func(data []byte) {
		g.dispatch(ctx, client, data)
	})

	return nil
}

func (g *Gateway) dispatch(ctx context.Context, client *websocket.Client, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		g.logger.Debug().Err(err).Str("session_id", client.ID).Msg("drop malformed frame")
		return
	}

	switch env.Event {
	case EventRegister:
		var req RegisterRequest
		if !g.decode(client, env.Data, &req) {
			return
		}
		g.router.Register(ctx, client.ID, client, req)

	case EventStartConversation:
		var req StartConversationRequest
		if !g.decode(client, env.Data, &req) {
			return
		}
		if err := g.router.StartConversation(ctx, client.ID, req); err != nil {
			g.sendError(client, errorMessage(err, "Failed to load message history"))
		}

	case EventSendMessage:
		var req SendMessageRequest
		if !g.decode(client, env.Data, &req) {
			return
		}
		if err := g.router.SendMessage(ctx, client.ID, req); err != nil {
			g.sendError(client, errorMessage(err, "Failed to send message"))
		}

	case EventMarkAsRead:
		var req MarkAsReadRequest
		if !g.decode(client, env.Data, &req) {
			return
		}
		if err := g.router.MarkAsRead(ctx, client.ID, req); err != nil {
			g.sendError(client, errorMessage(err, "Failed to mark messages as read"))
		}

	case EventTyping:
		var req TypingRequest
		if !g.decode(client, env.Data, &req) {
			return
		}
		g.router.Typing(client.ID, req)

	case EventGetOnlineUsers:
		users := g.router.OnlineUsers(ctx)
		if out, err := EncodeEvent(EventOnlineUsers, users); err == nil {
			client.TrySend(out)
		}

	default:
		g.logger.Debug().Str("event", env.Event).Str("session_id", client.ID).Msg("drop unknown event")
	}
}

// errorMessage maps router sentinels to their client-facing strings and
// falls back to the operation's generic failure message.
func errorMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, ErrNotRegistered):
		return "You must register first"
	case errors.Is(err, ErrConversationNotFound):
		return "Conversation not found"
	default:
		return fallback
	}
}

func (g *Gateway) decode(client *websocket.Client, data json.RawMessage, v interface{}) bool {
	if err := json.Unmarshal(data, v); err != nil {
		g.logger.Debug().Err(err).Str("session_id", client.ID).Msg("drop malformed payload")
		return false
	}
	return true
}

func (g *Gateway) sendError(client *websocket.Client, message string) {
	if out, err := EncodeEvent(EventError, ErrorEvent{Message: message}); err == nil {
		client.TrySend(out)
	}
}
