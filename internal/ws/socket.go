package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/junyaoluo/mysteryroom/internal/ai"
	"github.com/junyaoluo/mysteryroom/internal/config"
	"github.com/junyaoluo/mysteryroom/internal/game"
)

type ConnCtx struct {
	ParticipantID string
	Name          string
}

type Server struct {
	Store *game.Store

	registry     *Registry
	mu           sync.Mutex
	conns        map[string]Conn
	provider     ai.Provider
	provByName   map[string]ai.Provider
	systemPrompt string
	config       config.Config
}

func New(cfg config.Config) *Server {
	return &Server{
		registry: NewRegistry(),
		conns:    make(map[string]Conn),
		config:   cfg,
	}
}

func (srv *Server) SetProvider(p ai.Provider)             { srv.provider = p }
func (srv *Server) SetProviders(m map[string]ai.Provider) { srv.provByName = m }
func (srv *Server) SetSystemPrompt(prompt string)         { srv.systemPrompt = prompt }

// Mount attaches the Socket.IO server with all room handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		srv.track(s)
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// connectUser: bind an identity to this connection
	io.OnEvent("/", "connectUser", func(s socketio.Conn, payload struct {
		ParticipantID   string `json:"participantId"`
		ParticipantName string `json:"participantName"`
	}) map[string]any {
		if payload.ParticipantID == "" {
			return srv.err(s, "validation_error", "participantId is required")
		}
		srv.registry.Bind(payload.ParticipantID, s)
		s.SetContext(&ConnCtx{ParticipantID: payload.ParticipantID, Name: payload.ParticipantName})
		log.Info().Str("sid", s.ID()).Str("participantId", payload.ParticipantID).Msg("connectUser")
		return map[string]any{"ok": true}
	})

	// createRoom
	io.OnEvent("/", "createRoom", func(s socketio.Conn, payload struct {
		Name            string          `json:"name"`
		ParticipantID   string          `json:"participantId"`
		ParticipantName string          `json:"participantName"`
		Content         json.RawMessage `json:"content"`
	}) map[string]any {
		if payload.Name == "" || payload.ParticipantID == "" || payload.ParticipantName == "" {
			return srv.err(s, "validation_error", "name, participantId and participantName are required")
		}
		srv.registry.Bind(payload.ParticipantID, s)
		s.SetContext(&ConnCtx{ParticipantID: payload.ParticipantID, Name: payload.ParticipantName})
		room := srv.Store.CreateRoom(payload.Name, payload.ParticipantID, payload.ParticipantName, payload.Content)
		s.Emit("roomCreated", room)
		log.Info().Str("sid", s.ID()).Str("roomId", room.ID).Str("name", room.Name).Msg("createRoom")
		return map[string]any{"roomId": room.ID}
	})

	// joinRoom
	io.OnEvent("/", "joinRoom", func(s socketio.Conn, payload struct {
		RoomID          string `json:"roomId"`
		ParticipantID   string `json:"participantId"`
		ParticipantName string `json:"participantName"`
	}) map[string]any {
		if payload.RoomID == "" || payload.ParticipantID == "" || payload.ParticipantName == "" {
			return srv.err(s, "validation_error", "roomId, participantId and participantName are required")
		}
		// bind before the store broadcasts so the joiner is part of the audience
		srv.registry.Bind(payload.ParticipantID, s)
		s.SetContext(&ConnCtx{ParticipantID: payload.ParticipantID, Name: payload.ParticipantName})
		room, err := srv.Store.Join(payload.RoomID, payload.ParticipantID, payload.ParticipantName)
		if err != nil {
			s.Emit("roomNotFound", map[string]any{"roomId": payload.RoomID})
			return map[string]any{"error": "room not found"}
		}
		s.Emit("roomJoined", room)
		log.Info().Str("sid", s.ID()).Str("roomId", room.ID).Str("participantId", payload.ParticipantID).Msg("joinRoom")
		return map[string]any{"ok": true}
	})

	// leaveRoom
	io.OnEvent("/", "leaveRoom", func(s socketio.Conn, payload struct {
		RoomID        string `json:"roomId"`
		ParticipantID string `json:"participantId"`
	}) map[string]any {
		if payload.RoomID == "" || payload.ParticipantID == "" {
			return srv.err(s, "validation_error", "roomId and participantId are required")
		}
		if err := srv.Store.Leave(payload.RoomID, payload.ParticipantID); err != nil {
			return srv.err(s, errCode(err), err.Error())
		}
		log.Info().Str("roomId", payload.RoomID).Str("participantId", payload.ParticipantID).Msg("leaveRoom")
		return map[string]any{"ok": true}
	})

	// postMessage
	io.OnEvent("/", "postMessage", func(s socketio.Conn, payload struct {
		RoomID   string `json:"roomId"`
		SenderID string `json:"senderId"`
		Body     string `json:"body"`
		Kind     string `json:"kind"`
	}) map[string]any {
		if payload.RoomID == "" || payload.SenderID == "" || payload.Body == "" {
			return srv.err(s, "validation_error", "roomId, senderId and body are required")
		}
		m, err := srv.Store.PostMessage(payload.RoomID, payload.SenderID, payload.Body, game.MessageKind(payload.Kind))
		if err != nil {
			return srv.err(s, errCode(err), err.Error())
		}
		return map[string]any{"messageId": m.ID}
	})

	// startGame
	io.OnEvent("/", "startGame", func(s socketio.Conn, payload struct {
		RoomID string `json:"roomId"`
	}) map[string]any {
		if payload.RoomID == "" {
			return srv.err(s, "validation_error", "roomId is required")
		}
		room, err := srv.Store.StartGame(payload.RoomID)
		if err != nil {
			return srv.err(s, errCode(err), err.Error())
		}
		log.Info().Str("roomId", room.ID).Str("phase", string(room.Phase)).Msg("startGame")
		return map[string]any{"phase": string(room.Phase)}
	})

	// advancePhase
	io.OnEvent("/", "advancePhase", func(s socketio.Conn, payload struct {
		RoomID string `json:"roomId"`
	}) map[string]any {
		if payload.RoomID == "" {
			return srv.err(s, "validation_error", "roomId is required")
		}
		room, err := srv.Store.AdvancePhase(payload.RoomID)
		if err != nil {
			return srv.err(s, errCode(err), err.Error())
		}
		log.Info().Str("roomId", room.ID).Str("phase", string(room.Phase)).Msg("advancePhase")

		// a session entering its final phase gets written out to disk
		if room.Phase == game.PhaseEnding && srv.config.ExportEnabled {
			msgs, _ := srv.Store.Messages(room.ID)
			if exportErr := game.ExportTranscript(room, msgs, srv.config.ExportFile); exportErr != nil {
				log.Error().Err(exportErr).Str("roomId", room.ID).Msg("failed to export transcript")
			} else {
				log.Info().Str("roomId", room.ID).Str("file", srv.config.ExportFile).Msg("exported transcript")
			}
		}
		return map[string]any{"phase": string(room.Phase)}
	})

	// assignRole
	io.OnEvent("/", "assignRole", func(s socketio.Conn, payload struct {
		RoomID        string `json:"roomId"`
		ParticipantID string `json:"participantId"`
		RoleID        string `json:"roleId"`
	}) map[string]any {
		if payload.RoomID == "" || payload.ParticipantID == "" || payload.RoleID == "" {
			return srv.err(s, "validation_error", "roomId, participantId and roleId are required")
		}
		if _, err := srv.Store.AssignRole(payload.RoomID, payload.ParticipantID, payload.RoleID); err != nil {
			return srv.err(s, errCode(err), err.Error())
		}
		log.Info().Str("roomId", payload.RoomID).Str("participantId", payload.ParticipantID).Str("roleId", payload.RoleID).Msg("assignRole")
		return map[string]any{"ok": true}
	})

	// discoverClue
	io.OnEvent("/", "discoverClue", func(s socketio.Conn, payload struct {
		RoomID string `json:"roomId"`
		ClueID string `json:"clueId"`
	}) map[string]any {
		if payload.RoomID == "" || payload.ClueID == "" {
			return srv.err(s, "validation_error", "roomId and clueId are required")
		}
		if _, err := srv.Store.DiscoverClue(payload.RoomID, payload.ClueID); err != nil {
			return srv.err(s, errCode(err), err.Error())
		}
		return map[string]any{"ok": true}
	})

	// castVote
	io.OnEvent("/", "castVote", func(s socketio.Conn, payload struct {
		RoomID        string `json:"roomId"`
		ParticipantID string `json:"participantId"`
		RoleID        string `json:"roleId"`
	}) map[string]any {
		if payload.RoomID == "" || payload.ParticipantID == "" || payload.RoleID == "" {
			return srv.err(s, "validation_error", "roomId, participantId and roleId are required")
		}
		if _, err := srv.Store.CastVote(payload.RoomID, payload.ParticipantID, payload.RoleID); err != nil {
			return srv.err(s, errCode(err), err.Error())
		}
		log.Info().Str("roomId", payload.RoomID).Str("participantId", payload.ParticipantID).Msg("castVote")
		return map[string]any{"ok": true}
	})

	// requestNarration: AI moderator boundary, best-effort
	io.OnEvent("/", "requestNarration", func(s socketio.Conn, payload struct {
		RoomID string `json:"roomId"`
		Prompt string `json:"prompt"`
	}) map[string]any {
		if payload.RoomID == "" || payload.Prompt == "" {
			return srv.err(s, "validation_error", "roomId and prompt are required")
		}
		if _, err := srv.Store.Room(payload.RoomID); err != nil {
			return srv.err(s, errCode(err), err.Error())
		}
		go srv.narrate(payload.RoomID, payload.Prompt)
		return map[string]any{"ok": true}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})

	// A transport disconnect only drops the identity binding. It is not a
	// leave; the participant stays in their rooms and may resume later.
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		srv.untrack(s)
		participantID := srv.registry.Unbind(s)
		name := ""
		if ctx, ok := s.Context().(*ConnCtx); ok {
			name = ctx.Name
		}
		log.Info().Str("sid", s.ID()).Str("participantId", participantID).Str("name", name).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// narrate asks the configured provider for moderator text and feeds the reply
// back through the normal message path, where it is broadcast like any chat.
func (srv *Server) narrate(roomID, prompt string) {
	prov := srv.provider
	if srv.provByName != nil {
		if p := srv.provByName[strings.ToLower(srv.config.DefaultProvider)]; p != nil {
			prov = p
		}
	}
	if prov == nil {
		return
	}
	model := srv.config.DefaultModel
	var text string
	var err error
	if srv.systemPrompt != "" {
		text, err = prov.CompleteWithSystem(context.Background(), model, srv.systemPrompt, prompt)
	} else {
		text, err = prov.Complete(context.Background(), model, prompt)
	}
	if err != nil || text == "" {
		log.Error().Err(err).Str("roomId", roomID).Msg("narration failed")
		return
	}
	if _, err := srv.Store.PostMessage(roomID, "ai", text, game.KindAI); err != nil {
		// room may have emptied while the completion was in flight
		log.Info().Err(err).Str("roomId", roomID).Msg("narration dropped")
	}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}

func errCode(err error) string {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, game.ErrNoContentLoaded):
		return "no_content_loaded"
	case errors.Is(err, game.ErrInvalidPhase):
		return "invalid_phase"
	}
	return "bad_request"
}
