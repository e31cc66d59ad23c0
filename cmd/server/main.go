package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/junyaoluo/mysteryroom/internal/ai"
	"github.com/junyaoluo/mysteryroom/internal/ai/ollama"
	"github.com/junyaoluo/mysteryroom/internal/ai/openai"
	"github.com/junyaoluo/mysteryroom/internal/config"
	"github.com/junyaoluo/mysteryroom/internal/game"
	"github.com/junyaoluo/mysteryroom/internal/ws"
)

var version = "dev" // Set at build time via -ldflags

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`mysteryroom - realtime murder mystery room server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                Port to listen on (default: 8080)
  DEFAULT_PROVIDER    AI provider: "openai" or "ollama" (default: openai)
  DEFAULT_MODEL       AI model to use (default: gpt-3.5-turbo)
  SYSTEM_PROMPT       System prompt for the AI moderator
  OPENAI_API_KEY      OpenAI API key (required for OpenAI provider)
  OPENAI_BASE_URL     Custom OpenAI API base URL (optional)
  OLLAMA_HOST         Ollama host URL (default: http://localhost:11434)
  EXPORT_ENABLED      Export session transcripts to file (default: true)
  EXPORT_FILE         Path to export transcripts (default: ./mysteryroom-transcripts.txt)
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("mysteryroom %s\n", version)
		return
	}

	_ = godotenv.Load()

	// Determine port
	port := *portFlag
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "8080"
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	// Healthcheck
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	// Config
	cfg := config.FromEnv()

	// Socket server + room store
	sock := ws.New(cfg)
	store := game.NewStore(sock)
	sock.Store = store
	// Providers
	oa := openai.New(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	ol := ollama.New(cfg.OllamaHost)
	sock.SetProvider(oa) // default fallback
	sock.SetProviders(map[string]ai.Provider{"openai": oa, "ollama": ol})
	sock.SetSystemPrompt(cfg.SystemPrompt)
	io := sock.Mount(r)
	defer io.Close()

	// Read-side room directory + bootstrap creation over plain HTTP
	r.GET("/api/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, store.Rooms())
	})
	type createReq struct {
		Name            string          `json:"name"`
		ParticipantID   string          `json:"participantId"`
		ParticipantName string          `json:"participantName"`
		Content         json.RawMessage `json:"content"`
	}
	r.POST("/api/rooms", func(c *gin.Context) {
		var req createReq
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
		if req.Name == "" || req.ParticipantID == "" || req.ParticipantName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
			return
		}
		room := store.CreateRoom(req.Name, req.ParticipantID, req.ParticipantName, req.Content)
		c.JSON(http.StatusOK, room)
	})
	r.GET("/api/rooms/:roomId", func(c *gin.Context) {
		room, err := store.Room(c.Param("roomId"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, room)
	})

	log.Printf("listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
