package cmd

import (
	"encoding/xml"
	"html"
	"net/url"
	"strings"

	"github.com/ardnew/stmpl/lang"
	"github.com/ardnew/stmpl/log"
	"github.com/ardnew/stmpl/script"
	"github.com/ardnew/stmpl/template"
)

// Language selects the evaluator and escape hook used to compile templates.
type Language struct {
	Lang   string `default:"expr" enum:"expr,starlark"      help:"Fragment language (${enum})"  short:"l"`
	Escape string `default:"none" enum:"none,html,xml,url" help:"Escape interpolated values (${enum})"`
}

// evaluator returns a new evaluator for the selected language.
func (l Language) evaluator() template.Evaluator {
	logger := log.Default()

	if l.Lang == "starlark" {
		return script.New(script.WithLogger(logger))
	}

	return lang.New(lang.WithStatements(true), lang.WithLogger(logger))
}

// escaper returns the escape hook for the selected scheme, or nil for none.
func (l Language) escaper() template.Escaper {
	switch l.Escape {
	case "html":
		return template.EscaperFunc(html.EscapeString)
	case "xml":
		return template.EscaperFunc(escapeXML)
	case "url":
		return template.EscaperFunc(url.QueryEscape)
	default:
		return nil
	}
}

// options returns the compile options for the selected language and escape
// scheme, seeded with ns.
func (l Language) options(ns template.Namespace) []template.Option {
	opts := []template.Option{
		template.WithEvaluator(l.evaluator()),
		template.WithNamespace(ns),
		template.WithLogger(log.Default()),
	}

	if esc := l.escaper(); esc != nil {
		opts = append(opts, template.WithEscape(esc))
	}

	return opts
}

func escapeXML(s string) string {
	var b strings.Builder

	// Writes to a strings.Builder never fail.
	_ = xml.EscapeText(&b, []byte(s))

	return b.String()
}
