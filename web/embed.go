// Package web holds the dashboard page and the assets it loads.
package web

import "embed"

// TemplatesFS embeds the server-rendered dashboard shell.
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the dashboard script and stylesheet.
//go:embed static/*
var StaticFS embed.FS
