package web

import "embed"

// TemplatesFS embeds the dashboard templates.
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds static assets (css).
//go:embed static/*
var StaticFS embed.FS
