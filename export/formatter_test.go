package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"keeper_back/assets"
	"keeper_back/licenses"
	"keeper_back/projects"
)

func str(s string) *string { return &s }

func reportProject(t *testing.T, fields ...string) *projects.Project {
	t.Helper()
	project := &projects.Project{
		ID:     1,
		Name:   "GameX",
		Type:   str("Game"),
		Usage:  str("Commercial"),
		Status: str("In development"),
	}
	require.NoError(t, project.SetFieldConfig(fields))
	return project
}

func reportAssets() []assets.Asset {
	return []assets.Asset{
		{
			ID:                 1,
			ProjectID:          1,
			Name:               "hero.png",
			Type:               str("Image"),
			Author:             str("Kenney"),
			SourceURL:          str("https://kenney.nl/assets"),
			DownloadDate:       str("2026-03-14"),
			License:            str("CC-BY"),
			AllowCommercial:    licenses.Yes,
			AllowModification:  licenses.Yes,
			RequireAttribution: licenses.Yes,
			AttributionText:    str("\"hero\" by Kenney, licensed under CC BY"),
			Usage:              str("player sprite"),
			Notes:              str("recolored for night levels"),
			ProofRef:           str("a1b2c3.pdf"),
		},
		{
			ID:        2,
			ProjectID: 1,
			Name:      "theme.ogg",
			Type:      str("Music"),
			License:   str("CC0"),
		},
	}
}

func allFields() []string {
	return []string{
		projects.FieldName, projects.FieldType, projects.FieldAuthor,
		projects.FieldSourceURL, projects.FieldDownloadDate, projects.FieldLicense,
		projects.FieldLegal, projects.FieldUsage, projects.FieldNotes,
		projects.FieldProof,
	}
}

func TestRenderIsByteIdentical(t *testing.T) {
	project := reportProject(t, allFields()...)
	collection := reportAssets()

	first := Render(project, collection, FormatMarkdown)
	second := Render(project, collection, FormatMarkdown)
	assert.Equal(t, first, second)

	third := Render(project, collection, FormatPlaintext)
	fourth := Render(project, collection, FormatPlaintext)
	assert.Equal(t, third, fourth)
}

func TestRenderMarkdownStructure(t *testing.T) {
	project := reportProject(t, allFields()...)
	report := Render(project, reportAssets(), FormatMarkdown)

	assert.True(t, strings.HasPrefix(report, "# Project: GameX\n"))
	assert.Contains(t, report, "- Type: Game")
	assert.Contains(t, report, "- Intended use: Commercial")
	assert.Contains(t, report, "- Status: In development")
	assert.Contains(t, report, "## Assets")
	assert.Contains(t, report, "### 1) hero.png")
	assert.Contains(t, report, "### 2) theme.ogg")
	assert.Contains(t, report, "   Type: Image")
	assert.Contains(t, report, "   Source/Author: Kenney")
	assert.Contains(t, report, "   URL: https://kenney.nl/assets")
	assert.Contains(t, report, "   License: CC-BY")
	assert.Contains(t, report, "   Download date: 2026-03-14")
	assert.Contains(t, report, "   Proof file/folder: a1b2c3.pdf")
	assert.Contains(t, report, "   [Legal details]")
	assert.Contains(t, report, "      Allows commercial use: Yes")
	assert.Contains(t, report, "      Allows modifications: Yes")
	assert.Contains(t, report, "      Requires attribution: Yes")
	assert.Contains(t, report, "      Attribution text:")
	assert.Contains(t, report, "   [Usage in project]")
	assert.Contains(t, report, "      Where used: player sprite")
	assert.Contains(t, report, "   [Notes]")
	assert.Contains(t, report, "      recolored for night levels")
}

func TestRenderPlaintextStructure(t *testing.T) {
	project := reportProject(t, allFields()...)
	report := Render(project, reportAssets(), FormatPlaintext)

	assert.True(t, strings.HasPrefix(report, "Project: GameX\n"))
	assert.Contains(t, report, "Type: Game")
	assert.Contains(t, report, "=== Assets ===")
	assert.Contains(t, report, "\n1) hero.png")
	assert.Contains(t, report, "\n2) theme.ogg")
	assert.NotContains(t, report, "# Project")
	assert.NotContains(t, report, "### ")
}

// Tri-state values always render in the legal block, even when the
// catalog left them unspecified.
func TestRenderUnspecifiedLegalValues(t *testing.T) {
	project := reportProject(t, projects.FieldName, projects.FieldLegal)
	report := Render(project, []assets.Asset{{ID: 1, ProjectID: 1, Name: "mystery.zip"}}, FormatPlaintext)

	assert.Contains(t, report, "      Allows commercial use: Unspecified")
	assert.Contains(t, report, "      Allows modifications: Unspecified")
	assert.Contains(t, report, "      Requires attribution: Unspecified")
}

// Fields the configuration hides are omitted entirely, not blanked.
func TestRenderOmitsHiddenFields(t *testing.T) {
	project := reportProject(t, projects.FieldName, projects.FieldType)
	report := Render(project, reportAssets(), FormatMarkdown)

	assert.Contains(t, report, "### 1) hero.png")
	assert.Contains(t, report, "   Type: Image")
	assert.NotContains(t, report, "Source/Author")
	assert.NotContains(t, report, "License:")
	assert.NotContains(t, report, "[Legal details]")
	assert.NotContains(t, report, "[Usage in project]")
	assert.NotContains(t, report, "[Notes]")
	assert.NotContains(t, report, "Proof file/folder")
}

func TestRenderEmptyProject(t *testing.T) {
	project := reportProject(t, allFields()...)

	markdown := Render(project, nil, FormatMarkdown)
	assert.Contains(t, markdown, "# Project: GameX")
	assert.True(t, strings.HasSuffix(markdown, "## Assets"))

	plain := Render(project, nil, FormatPlaintext)
	assert.True(t, strings.HasSuffix(plain, "=== Assets ==="))
}

func TestRenderMultilineNotesAreIndented(t *testing.T) {
	project := reportProject(t, projects.FieldName, projects.FieldNotes)
	collection := []assets.Asset{{
		ID:        1,
		ProjectID: 1,
		Name:      "pack.zip",
		Notes:     str("line one\nline two"),
	}}

	report := Render(project, collection, FormatPlaintext)
	assert.Contains(t, report, "      line one\n      line two")
}

func TestParseFormat(t *testing.T) {
	for _, raw := range []string{"", "markdown", "md", "Markdown"} {
		format, err := ParseFormat(raw)
		require.NoError(t, err)
		assert.Equal(t, FormatMarkdown, format)
	}
	for _, raw := range []string{"plaintext", "plain", "text", "txt", "TXT"} {
		format, err := ParseFormat(raw)
		require.NoError(t, err)
		assert.Equal(t, FormatPlaintext, format)
	}

	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestFormatMetadata(t *testing.T) {
	assert.Equal(t, "md", FormatMarkdown.Extension())
	assert.Equal(t, "txt", FormatPlaintext.Extension())
	assert.Contains(t, FormatMarkdown.ContentType(), "text/markdown")
	assert.Contains(t, FormatPlaintext.ContentType(), "text/plain")
}
