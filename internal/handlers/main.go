package handlers

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	faey "github.com/MegaGrindStone/faey-assistant"
	"github.com/MegaGrindStone/faey-assistant/internal/models"
)

// Assistant represents the hosted AI provider. Each method returns the first usable result of the
// underlying call; an empty result is treated by the handlers as a failure.
type Assistant interface {
	Chat(ctx context.Context, messages []models.ChatMessage) (string, error)
	GenerateImage(ctx context.Context, prompt, size string) (string, error)
	DescribeImage(ctx context.Context, image, question string) (string, error)
}

// ImageWriter persists decoded image bytes and returns the public URL of the written file.
type ImageWriter interface {
	Save(data []byte, now time.Time) (string, error)
}

// ImageIndex keeps a record of every generated image, most recent first.
type ImageIndex interface {
	AddImage(ctx context.Context, image models.GeneratedImage) error
	Images(ctx context.Context, limit int) ([]models.GeneratedImage, error)
}

// Options tunes how chat requests are built.
type Options struct {
	// SystemPrompt is prepended to every conversation. Empty uses DefaultSystemPrompt.
	SystemPrompt string
	// PersonaRole is the role the system prompt is sent with. Empty uses models.RoleAssistant.
	PersonaRole models.Role
	// HistoryLimit is the number of trailing history entries forwarded. Zero uses models.DefaultHistoryLimit.
	HistoryLimit int
}

// Main serves the assistant page and the gateway endpoints that forward requests to the Assistant.
type Main struct {
	templates *template.Template

	assistant Assistant
	images    ImageWriter
	index     ImageIndex

	systemPrompt string
	personaRole  models.Role
	historyLimit int

	logger *slog.Logger
}

// DefaultSystemPrompt is the persona instruction sent ahead of every conversation.
const DefaultSystemPrompt = "You are a helpful and intelligent AI assistant. You can help with coding, writing, " +
	"answering questions, and various tasks. Be thorough, accurate, and provide practical solutions. " +
	"Respond in the same language as the user."

const errLoggerKey = "error"

// NewMain creates a new Main instance. It parses the page templates from the embedded filesystem and fills
// the zero fields of opts with their defaults. index may be nil, in which case generated images are only
// written to disk.
func NewMain(assistant Assistant, images ImageWriter, index ImageIndex, opts Options, logger *slog.Logger) (Main, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.ParseFS(
		faey.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, fmt.Errorf("failed to parse templates: %w", err)
	}

	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.PersonaRole == "" {
		opts.PersonaRole = models.RoleAssistant
	}
	if opts.HistoryLimit == 0 {
		opts.HistoryLimit = models.DefaultHistoryLimit
	}

	return Main{
		templates:    tmpl,
		assistant:    assistant,
		images:       images,
		index:        index,
		systemPrompt: opts.SystemPrompt,
		personaRole:  opts.PersonaRole,
		historyLimit: opts.HistoryLimit,
		logger:       logger.With(slog.String("module", "handlers")),
	}, nil
}
