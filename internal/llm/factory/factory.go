// Package factory builds the configured llm.Provider.
package factory

import (
	"fmt"

	"github.com/newthinker/tradermood/internal/config"
	"github.com/newthinker/tradermood/internal/core"
	"github.com/newthinker/tradermood/internal/llm"
	"github.com/newthinker/tradermood/internal/llm/claude"
	"github.com/newthinker/tradermood/internal/llm/ollama"
	"github.com/newthinker/tradermood/internal/llm/openai"
)

// New creates an LLM provider based on configuration.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "claude":
		return claude.New(cfg.Claude)
	case "openai":
		return openai.New(cfg.OpenAI)
	case "ollama":
		return ollama.New(cfg.Ollama)
	case "":
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no LLM provider configured"))
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown LLM provider: %s", cfg.Provider))
	}
}
