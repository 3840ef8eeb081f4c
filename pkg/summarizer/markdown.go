package summarizer

import (
	"fmt"
	"strings"
)

// MarkdownFormatter formats a Summary as a Markdown document.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used to translate labels.
func WithTranslator(translate func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = translate
	}
}

// WithVersion sets the version shown in the footer.
func WithVersion(version string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = version
	}
}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{
		translate: func(s string) string { return s },
		version:   "dev",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements the Formatter interface.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("Retrieval Summary"))
	fmt.Fprintf(&b, "%s: %s\n\n", t("Generated"), s.GeneratedAt.Format("2006-01-02 15:04:05"))

	f.section(&b, t("Source"), [][2]string{
		{t("Name"), s.Source.Name},
		{t("Size"), formatBytes(s.Source.Size)},
		{t("Cached Index"), f.yesNo(s.Index.Cached)},
	})

	f.section(&b, t("Track"), [][2]string{
		{t("Samples"), fmt.Sprintf("%d", s.Index.Samples)},
		{t("Keyframes"), fmt.Sprintf("%d", s.Index.Keyframes)},
		{t("Frame Size"), fmt.Sprintf("%dx%d", s.Index.Width, s.Index.Height)},
		{t("Codec"), s.Index.Format},
	})

	f.section(&b, t("Plan"), [][2]string{
		{t("Requested Frames"), fmt.Sprintf("%d", s.Plan.RequestedFrames)},
		{t("Intervals"), fmt.Sprintf("%d", s.Plan.Intervals)},
		{t("Decoded Samples"), fmt.Sprintf("%d", s.Plan.DecodedSamples)},
		{t("Bytes to Read"), formatBytes(int64(s.Plan.PlanBytes))},
		{t("Share of File"), formatShare(s.Plan.PlanBytes, s.Source.Size)},
	})

	if s.Decode.Backend != "" {
		f.section(&b, t("Decoding"), [][2]string{
			{t("Backend"), s.Decode.Backend},
			{t("Workers"), fmt.Sprintf("%d", s.Decode.Workers)},
			{t("Bytes Read"), formatBytes(int64(s.Decode.BytesRead))},
			{t("Image Format"), s.Decode.ImageFormat},
			{t("Output"), s.Decode.OutputDir},
		})
	}

	fmt.Fprintf(&b, "---\n%s framefetch %s\n", t("Generated by"), f.version)
	return b.String()
}

func (f *MarkdownFormatter) section(b *strings.Builder, title string, rows [][2]string) {
	fmt.Fprintf(b, "## %s\n\n", title)
	fmt.Fprintf(b, "| %s | %s |\n", f.translate("Item"), f.translate("Value"))
	b.WriteString("|------|-------|\n")
	for _, row := range rows {
		fmt.Fprintf(b, "| %s | %s |\n", row[0], escapeCell(row[1]))
	}
	b.WriteString("\n")
}

func (f *MarkdownFormatter) yesNo(v bool) string {
	if v {
		return f.translate("Yes")
	}
	return f.translate("No")
}

// escapeCell keeps a value from breaking the table.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// formatBytes formats a byte count with a binary unit.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit && exp < 2; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMG"[exp])
}

// formatShare formats part as a percentage of total.
func formatShare(part uint64, total int64) string {
	if total <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(total))
}
