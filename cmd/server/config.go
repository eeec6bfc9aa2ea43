package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/MegaGrindStone/faey-assistant/internal/models"
	"github.com/MegaGrindStone/faey-assistant/internal/services"
	"gopkg.in/yaml.v3"
)

// llmConfig is implemented by every provider section that can answer chat and vision requests.
type llmConfig interface {
	assistant(logger *slog.Logger) (services.Assistant, error)
}

// imageGeneratorConfig is implemented by every provider section that can synthesize images.
type imageGeneratorConfig interface {
	imageGenerator(logger *slog.Logger) (services.ImageGenerator, error)
}

// BaseLLMConfig contains the common fields for all provider configurations.
type BaseLLMConfig struct {
	Provider   string                 `yaml:"provider"`
	Model      string                 `yaml:"model"`
	Parameters services.LLMParameters `yaml:"parameters"`
}

type rateLimitConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	Burst             int `yaml:"burst"`
}

type config struct {
	Port           string          `yaml:"port"`
	LogLevel       string          `yaml:"logLevel"`
	SystemPrompt   string          `yaml:"systemPrompt"`
	PersonaRole    string          `yaml:"personaRole"`
	HistoryLimit   int             `yaml:"historyLimit"`
	ImagesDir      string          `yaml:"imagesDir"`
	DataDir        string          `yaml:"dataDir"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      rateLimitConfig `yaml:"rateLimit"`

	LLM            llmConfig            `yaml:"-"`
	ImageGenerator imageGeneratorConfig `yaml:"-"`
}

type openaiConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	BaseURL       string `yaml:"baseURL"`
	VisionModel   string `yaml:"visionModel"`
	ImageModel    string `yaml:"imageModel"`
}

type ollamaConfig struct {
	BaseLLMConfig `yaml:",inline"`
	Host          string `yaml:"host"`
	VisionModel   string `yaml:"visionModel"`
}

type anthropicConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	Endpoint      string `yaml:"endpoint"`
	MaxTokens     int    `yaml:"maxTokens"`
}

const (
	defaultPort              = "8080"
	defaultImagesDir         = "public/generated-images"
	defaultRequestsPerMinute = 30
	defaultBurst             = 10
)

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	type plain config
	var rawConfig struct {
		plain          `yaml:",inline"`
		LLM            yaml.Node `yaml:"llm"`
		ImageGenerator yaml.Node `yaml:"imageGenerator"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	*c = config(rawConfig.plain)

	llm, err := decodeLLM(&rawConfig.LLM)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	c.LLM = llm

	if !rawConfig.ImageGenerator.IsZero() {
		gen, err := decodeImageGenerator(&rawConfig.ImageGenerator)
		if err != nil {
			return fmt.Errorf("imageGenerator: %w", err)
		}
		c.ImageGenerator = gen
	}

	return nil
}

func providerOf(node *yaml.Node) (string, error) {
	if node.IsZero() {
		return "", errors.New("section is required")
	}
	var base BaseLLMConfig
	if err := node.Decode(&base); err != nil {
		return "", err
	}
	if base.Provider == "" {
		return "", errors.New("provider is required")
	}
	return base.Provider, nil
}

func decodeLLM(node *yaml.Node) (llmConfig, error) {
	provider, err := providerOf(node)
	if err != nil {
		return nil, err
	}

	var llm llmConfig
	switch provider {
	case "openai":
		llm = &openaiConfig{}
	case "ollama":
		llm = &ollamaConfig{}
	case "anthropic":
		llm = &anthropicConfig{}
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	if err := node.Decode(llm); err != nil {
		return nil, err
	}
	return llm, nil
}

func decodeImageGenerator(node *yaml.Node) (imageGeneratorConfig, error) {
	provider, err := providerOf(node)
	if err != nil {
		return nil, err
	}

	var gen imageGeneratorConfig
	switch provider {
	case "openai":
		gen = &openaiConfig{}
	default:
		return nil, fmt.Errorf("provider %s cannot generate images", provider)
	}

	if err := node.Decode(gen); err != nil {
		return nil, err
	}
	return gen, nil
}

// applyDefaults fills the fields left empty in the file. dataDir is the fallback location for the
// image index.
func (c *config) applyDefaults(dataDir string) {
	if c.Port == "" {
		c.Port = defaultPort
	}
	if c.ImagesDir == "" {
		c.ImagesDir = defaultImagesDir
	}
	if c.DataDir == "" {
		c.DataDir = dataDir
	}
	if c.RateLimit == (rateLimitConfig{}) {
		c.RateLimit = rateLimitConfig{
			RequestsPerMinute: defaultRequestsPerMinute,
			Burst:             defaultBurst,
		}
	}
}

func (c config) validate() error {
	if c.LLM == nil {
		return errors.New("llm is required")
	}
	if c.PersonaRole != "" && c.personaRole() != models.RoleAssistant && c.personaRole() != models.RoleSystem {
		return fmt.Errorf("personaRole must be %q or %q", models.RoleAssistant, models.RoleSystem)
	}
	if c.HistoryLimit < 0 {
		return errors.New("historyLimit must not be negative")
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rateLimit values must not be negative")
	}
	if _, err := c.logLevel(); err != nil {
		return err
	}
	return nil
}

func (c config) personaRole() models.Role {
	return models.Role(strings.ToLower(c.PersonaRole))
}

func (c config) logLevel() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid logLevel %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// assistant builds the provider described by the llm section, joined with the separate image generator
// when one is configured.
func (c config) assistant(logger *slog.Logger) (services.Assistant, error) {
	llm, err := c.LLM.assistant(logger)
	if err != nil {
		return nil, err
	}
	if c.ImageGenerator == nil {
		return llm, nil
	}

	gen, err := c.ImageGenerator.imageGenerator(logger)
	if err != nil {
		return nil, err
	}
	return services.Composite{
		Chatter:     llm,
		VisionModel: llm,
		Images:      gen,
	}, nil
}

func (o openaiConfig) newOpenAI(logger *slog.Logger) (services.OpenAI, error) {
	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" && o.BaseURL == "" {
		return services.OpenAI{}, errors.New("apiKey is required")
	}

	return services.NewOpenAI(services.OpenAIOptions{
		APIKey:      apiKey,
		BaseURL:     o.BaseURL,
		Model:       o.Model,
		VisionModel: o.VisionModel,
		ImageModel:  o.ImageModel,
		Params:      o.Parameters,
	}, logger), nil
}

func (o openaiConfig) assistant(logger *slog.Logger) (services.Assistant, error) {
	return o.newOpenAI(logger)
}

func (o openaiConfig) imageGenerator(logger *slog.Logger) (services.ImageGenerator, error) {
	return o.newOpenAI(logger)
}

func (o ollamaConfig) assistant(logger *slog.Logger) (services.Assistant, error) {
	if o.Model == "" {
		return nil, errors.New("model is required")
	}

	host := o.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		return nil, errors.New("host is required")
	}
	return services.NewOllama(host, o.Model, o.VisionModel, o.Parameters, logger)
}

func (a anthropicConfig) assistant(logger *slog.Logger) (services.Assistant, error) {
	if a.Model == "" {
		return nil, errors.New("model is required")
	}

	apiKey := a.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("apiKey is required")
	}
	return services.NewAnthropic(apiKey, a.Model, a.Endpoint, a.MaxTokens, a.Parameters, logger), nil
}
