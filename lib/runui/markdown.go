// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package runui

import (
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// markdownParserInstance is initialized once and reused. The parser
// configuration never changes and the goldmark Parser is safe to
// share; actual parsing creates per-call state via Parse(reader).
var (
	markdownParserInstance goldmark.Markdown
	markdownParserOnce     sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParserInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return markdownParserInstance
}

// renderTerminalMarkdown parses markdown text and renders it as
// styled terminal output. Soft line breaks within paragraphs become
// spaces so hard-wrapped source reflows at any terminal width; fenced
// code blocks are syntax-highlighted.
func renderTerminalMarkdown(input string, theme Theme, width int) string {
	if input == "" {
		return ""
	}
	if width < 20 {
		width = 20
	}
	source := []byte(input)
	document := getMarkdownParser().Parser().Parse(text.NewReader(source))

	// Force the ANSI256 profile: this output is always for terminal
	// display, and auto-detection would strip color in test
	// environments with no TTY.
	lipRenderer := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))
	lipRenderer.SetColorProfile(termenv.ANSI256)

	renderer := &markdownRenderer{
		source:      source,
		theme:       theme,
		width:       width,
		lipRenderer: lipRenderer,
	}
	ast.Walk(document, renderer.walk)
	return strings.TrimRight(renderer.output.String(), "\n")
}

// markdownRenderer walks a goldmark AST and produces styled terminal
// text. Inline content accumulates in a buffer and is word-wrapped as
// a unit when the containing block closes.
type markdownRenderer struct {
	source []byte
	theme  Theme
	width  int

	output strings.Builder
	inline strings.Builder

	// Inline style counters. Counters rather than booleans so nested
	// emphasis resolves correctly.
	boldCount   int
	italicCount int

	listDepth int

	lipRenderer *lipgloss.Renderer
}

func (r *markdownRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch typed := node.(type) {
	case *ast.Heading:
		if entering {
			r.inline.Reset()
		} else {
			style := r.lipRenderer.NewStyle().
				Foreground(r.theme.HeadingForeground).
				Bold(true)
			prefix := strings.Repeat("#", typed.Level) + " "
			r.writeBlock(style.Render(prefix + r.inline.String()))
		}

	case *ast.Paragraph, *ast.TextBlock:
		if entering {
			r.inline.Reset()
		} else {
			indent := strings.Repeat("  ", r.listDepth)
			bullet := ""
			if _, isItem := node.Parent().(*ast.ListItem); isItem {
				bullet = "• "
			}
			wrapped := ansi.Wordwrap(r.inline.String(), r.width-len(indent)-len(bullet), "")
			lines := strings.Split(wrapped, "\n")
			for i, line := range lines {
				if i == 0 {
					r.output.WriteString(indent + bullet + line + "\n")
				} else {
					r.output.WriteString(indent + strings.Repeat(" ", len(bullet)) + line + "\n")
				}
			}
			if _, isItem := node.Parent().(*ast.ListItem); !isItem {
				r.output.WriteString("\n")
			}
		}

	case *ast.FencedCodeBlock:
		if entering {
			r.writeBlock(r.highlightCode(r.codeLines(typed.Lines()), string(typed.Language(r.source))))
			return ast.WalkSkipChildren, nil
		}

	case *ast.CodeBlock:
		if entering {
			r.writeBlock(r.highlightCode(r.codeLines(typed.Lines()), ""))
			return ast.WalkSkipChildren, nil
		}

	case *ast.List:
		if entering {
			r.listDepth++
		} else {
			r.listDepth--
			if r.listDepth == 0 {
				r.output.WriteString("\n")
			}
		}

	case *ast.ThematicBreak:
		if entering {
			faint := r.lipRenderer.NewStyle().Foreground(r.theme.FaintText)
			r.writeBlock(faint.Render(strings.Repeat("─", r.width)))
		}

	case *ast.Emphasis:
		if typed.Level >= 2 {
			if entering {
				r.boldCount++
			} else {
				r.boldCount--
			}
		} else {
			if entering {
				r.italicCount++
			} else {
				r.italicCount--
			}
		}

	case *ast.CodeSpan:
		if entering {
			code := r.lipRenderer.NewStyle().Foreground(r.theme.CodeForeground)
			r.inline.WriteString(code.Render(string(typed.Text(r.source))))
			return ast.WalkSkipChildren, nil
		}

	case *ast.AutoLink:
		if entering {
			r.inline.WriteString(string(typed.URL(r.source)))
			return ast.WalkSkipChildren, nil
		}

	case *ast.Text:
		if entering {
			r.writeInline(string(typed.Segment.Value(r.source)))
			if typed.SoftLineBreak() {
				r.inline.WriteString(" ")
			} else if typed.HardLineBreak() {
				r.inline.WriteString("\n")
			}
		}
	}
	return ast.WalkContinue, nil
}

// writeInline appends text with the current emphasis styling applied.
func (r *markdownRenderer) writeInline(value string) {
	if r.boldCount == 0 && r.italicCount == 0 {
		r.inline.WriteString(value)
		return
	}
	style := r.lipRenderer.NewStyle()
	if r.boldCount > 0 {
		style = style.Bold(true)
	}
	if r.italicCount > 0 {
		style = style.Italic(true)
	}
	r.inline.WriteString(style.Render(value))
}

// writeBlock appends a finished block followed by a blank line.
func (r *markdownRenderer) writeBlock(block string) {
	r.output.WriteString(block)
	r.output.WriteString("\n\n")
}

// codeLines joins the raw source segments of a code block.
func (r *markdownRenderer) codeLines(lines *text.Segments) string {
	var builder strings.Builder
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		builder.Write(segment.Value(r.source))
	}
	return strings.TrimRight(builder.String(), "\n")
}

// highlightCode renders a code block with chroma. An unknown language
// falls through to chroma's analyzer; highlighting failures degrade
// to plain styled text.
func (r *markdownRenderer) highlightCode(code, language string) string {
	var highlighted strings.Builder
	if err := quick.Highlight(&highlighted, code, language, "terminal256", "monokai"); err != nil {
		plain := r.lipRenderer.NewStyle().Foreground(r.theme.CodeForeground)
		return indentLines(plain.Render(code), "  ")
	}
	return indentLines(strings.TrimRight(highlighted.String(), "\n"), "  ")
}

func indentLines(block, indent string) string {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
