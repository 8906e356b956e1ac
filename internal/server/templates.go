package server

import (
	_ "embed"
	"html/template"
)

//go:embed templates/callback.html
var callbackPageTemplateHTML string

var callbackPageTemplate = template.Must(template.New("callback").Parse(callbackPageTemplateHTML))

// CallbackPageData feeds the bootstrap page that forwards the browser's
// callback URL, fragment included, to the completion endpoint
type CallbackPageData struct {
	CompleteURL string
	CSRFToken   string
	LoginPath   string
}
