package faey

import "embed"

// TemplateFS contains the embedded HTML templates used for rendering the assistant page. Templates are
// split into a layout, the page itself and one partial per tab.
//
//go:embed templates/*
var TemplateFS embed.FS

// StaticFS contains the embedded JavaScript and CSS that drive the three views of the page.
//
//go:embed static/*
var StaticFS embed.FS
