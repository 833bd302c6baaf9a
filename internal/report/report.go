package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/stellarlinkco/formula-trainer/internal/trainer"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json, yaml (and yml); empty means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text, json or yaml)", s)
	}
}

// Render writes rep to w in the given format.
func Render(w io.Writer, rep trainer.Report, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return enc.Close()
	case FormatText, "":
		return renderText(w, rep)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func renderText(w io.Writer, rep trainer.Report) error {
	var sb strings.Builder
	if rep.Empty {
		sb.WriteString("No statistics yet.\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}

	sb.WriteString("\nStatistics of incorrect answers:\n")
	for _, tp := range rep.Topics {
		fmt.Fprintf(&sb, "\nTopic: %s\n", tp.Topic)
		fmt.Fprintf(&sb, "Total mistakes: %s\n", humanize.Comma(int64(tp.TotalIncorrect)))
		for _, e := range tp.Mistakes {
			fmt.Fprintf(&sb, "- %s: %s %s (success rate: %.1f%%)\n",
				e.Name, humanize.Comma(int64(e.Incorrect)), plural(e.Incorrect, "mistake", "mistakes"), e.SuccessRate)
		}
	}
	fmt.Fprintf(&sb, "\nOverall: %s correct, %s incorrect answers (success rate: %.1f%%)\n",
		humanize.Comma(int64(rep.TotalCorrect)), humanize.Comma(int64(rep.TotalIncorrect)), rep.SuccessRate)

	_, err := io.WriteString(w, sb.String())
	return err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
