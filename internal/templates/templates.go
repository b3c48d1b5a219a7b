// Package templates renders the blog markup fragments for each post kind.
//
// Values are substituted verbatim: the blog sanitises post content on its
// side, and image URLs must reach it byte for byte.
package templates

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed files/*.tmpl
var files embed.FS

const (
	Photo    = "photo"
	Video    = "video"
	WebPage  = "webpage"
	Gallery  = "gallery"
	Location = "location"
)

type Engine struct {
	tmpl *template.Template
}

func New() (*Engine, error) {
	tmpl, err := template.New("pluspress").Option("missingkey=error").ParseFS(files, "files/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Engine{tmpl: tmpl}, nil
}

// Render executes the named template and returns the trimmed markup.
func (e *Engine) Render(name string, vars any) (string, error) {
	var sb strings.Builder
	if err := e.tmpl.ExecuteTemplate(&sb, name+".tmpl", vars); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

type Image struct {
	Src string
	Alt string
}

type PhotoVars = Image

type VideoVars struct {
	URL string
}

type WebPageVars struct {
	URL         string
	Description string
	HTML        string
	Thumbnail   string
	Images      []Image
}

type GalleryItem struct {
	Href        string
	Thumbnail   string
	Title       string
	Description string
	HTML        string
	Embedded    bool
}

type GalleryVars struct {
	ID    string
	Items []GalleryItem
}

type LocationVars struct {
	Coordinates string
	PlaceName   string
	Address     string
}
