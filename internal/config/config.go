package config

import "os"

type Config struct {
	Port            string
	DefaultProvider string
	DefaultModel    string
	SystemPrompt    string
	OpenAIKey       string
	OpenAIBaseURL   string
	OllamaHost      string
	ExportEnabled   bool
	ExportFile      string
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.DefaultProvider = getenv("DEFAULT_PROVIDER", "openai")
	c.DefaultModel = getenv("DEFAULT_MODEL", "gpt-3.5-turbo")
	c.SystemPrompt = getenv("SYSTEM_PROMPT", "You are the narrator of a murder mystery game. Set the scene vividly but briefly, and never reveal the culprit.")
	c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	c.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	c.OllamaHost = getenv("OLLAMA_HOST", "http://localhost:11434")
	c.ExportEnabled = getenv("EXPORT_ENABLED", "true") == "true"
	c.ExportFile = getenv("EXPORT_FILE", "./mysteryroom-transcripts.txt")
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
