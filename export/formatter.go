package export

import (
	"fmt"
	"strings"

	"keeper_back/assets"
	"keeper_back/projects"
)

// Format selects the report output flavor.
type Format string

const (
	FormatMarkdown  Format = "markdown"
	FormatPlaintext Format = "plaintext"
)

// ParseFormat maps user input, including common file extensions, to a
// report format.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "plaintext", "plain", "text", "txt":
		return FormatPlaintext, nil
	default:
		return "", fmt.Errorf("export: unsupported format %q", raw)
	}
}

// ContentType returns the HTTP content type for the format.
func (f Format) ContentType() string {
	if f == FormatMarkdown {
		return "text/markdown; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

// Extension returns the conventional file extension for the format.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return "txt"
}

// Render builds the attribution report for a project. The asset sequence
// must already be ordered (normally by the query engine); rendering is a
// pure function of its inputs, so identical input produces byte-identical
// output. Fields the project's configuration hides are omitted entirely.
func Render(project *projects.Project, orderedAssets []assets.Asset, format Format) string {
	active := projects.ActiveFields(project)
	md := format == FormatMarkdown

	var lines []string

	if md {
		lines = append(lines, fmt.Sprintf("# Project: %s", project.Name))
	} else {
		lines = append(lines, fmt.Sprintf("Project: %s", project.Name))
	}
	if value := deref(project.Type); value != "" {
		lines = append(lines, label(md, "Type", value))
	}
	if value := deref(project.Usage); value != "" {
		lines = append(lines, label(md, "Intended use", value))
	}
	if value := deref(project.Status); value != "" {
		lines = append(lines, label(md, "Status", value))
	}
	if value := deref(project.Notes); value != "" {
		lines = append(lines, "")
		if md {
			lines = append(lines, "## Project notes")
		} else {
			lines = append(lines, "Project notes:")
		}
		lines = append(lines, value)
	}

	lines = append(lines, "")
	if md {
		lines = append(lines, "## Assets")
	} else {
		lines = append(lines, "=== Assets ===")
	}

	for idx := range orderedAssets {
		asset := &orderedAssets[idx]

		lines = append(lines, "")
		if md {
			lines = append(lines, fmt.Sprintf("### %d) %s", idx+1, asset.Name))
		} else {
			lines = append(lines, fmt.Sprintf("%d) %s", idx+1, asset.Name))
		}

		if active.Has(projects.FieldType) {
			if value := deref(asset.Type); value != "" {
				lines = append(lines, "   Type: "+value)
			}
		}
		if active.Has(projects.FieldAuthor) {
			if value := deref(asset.Author); value != "" {
				lines = append(lines, "   Source/Author: "+value)
			}
		}
		if active.Has(projects.FieldSourceURL) {
			if value := deref(asset.SourceURL); value != "" {
				lines = append(lines, "   URL: "+value)
			}
		}
		if active.Has(projects.FieldLicense) {
			if value := deref(asset.License); value != "" {
				lines = append(lines, "   License: "+value)
			}
			if value := deref(asset.CustomLicense); value != "" {
				lines = append(lines, "   Custom license: "+value)
			}
		}
		if active.Has(projects.FieldDownloadDate) {
			if value := deref(asset.DownloadDate); value != "" {
				lines = append(lines, "   Download date: "+value)
			}
		}
		if active.Has(projects.FieldProof) {
			if value := deref(asset.ProofRef); value != "" {
				lines = append(lines, "   Proof file/folder: "+value)
			}
		}

		if active.Has(projects.FieldLegal) {
			lines = append(lines, "   [Legal details]")
			lines = append(lines, "      Allows commercial use: "+asset.AllowCommercial.Label())
			lines = append(lines, "      Allows modifications: "+asset.AllowModification.Label())
			lines = append(lines, "      Requires attribution: "+asset.RequireAttribution.Label())
			if value := deref(asset.AttributionText); value != "" {
				lines = append(lines, "      Attribution text:")
				for _, textLine := range strings.Split(value, "\n") {
					lines = append(lines, "         "+textLine)
				}
			}
		}

		if active.Has(projects.FieldUsage) {
			if value := deref(asset.Usage); value != "" {
				lines = append(lines, "   [Usage in project]")
				lines = append(lines, "      Where used: "+value)
			}
		}

		if active.Has(projects.FieldTags) {
			if value := deref(asset.Tags); value != "" {
				lines = append(lines, "   [Tags]")
				lines = append(lines, "      "+value)
			}
		}

		if active.Has(projects.FieldNotes) {
			if value := deref(asset.Notes); value != "" {
				lines = append(lines, "   [Notes]")
				for _, textLine := range strings.Split(value, "\n") {
					lines = append(lines, "      "+textLine)
				}
			}
		}
	}

	return strings.Join(lines, "\n")
}

func label(md bool, name, value string) string {
	if md {
		return fmt.Sprintf("- %s: %s", name, value)
	}
	return fmt.Sprintf("%s: %s", name, value)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
