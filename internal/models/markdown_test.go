package models_test

import (
	"testing"

	"github.com/MegaGrindStone/faey-assistant/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	out, err := models.RenderMarkdown("**bold** and `code`")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<code>code</code>")
}

func TestRenderMarkdownDropsRawHTML(t *testing.T) {
	out, err := models.RenderMarkdown("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}
