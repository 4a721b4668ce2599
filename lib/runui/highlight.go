// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package runui

import (
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
)

// highlightSource renders file content with syntax highlighting picked
// from the file name. Unrecognized files and highlighting failures
// degrade to plain themed text.
func highlightSource(path, content string, theme Theme) string {
	language := ""
	if lexer := lexers.Match(path); lexer != nil {
		language = lexer.Config().Name
	}
	if language == "" {
		return plainSource(content, theme)
	}

	var highlighted strings.Builder
	if err := quick.Highlight(&highlighted, content, language, "terminal256", "monokai"); err != nil {
		return plainSource(content, theme)
	}
	return strings.TrimRight(highlighted.String(), "\n")
}

func plainSource(content string, theme Theme) string {
	style := lipgloss.NewStyle().Foreground(theme.NormalText)
	return style.Render(strings.TrimRight(content, "\n"))
}
