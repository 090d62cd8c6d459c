package dom

import (
	"context"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// Markdown renders an HTML fragment as markdown. It is how screens are
// shown to humans: failure snapshots and screen dumps.
func Markdown(fragment string) (string, error) {
	if strings.TrimSpace(fragment) == "" {
		return "", nil
	}
	md, err := mdConverter.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("dom: markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// Snapshot renders the element's current outer HTML as markdown.
func Snapshot(ctx context.Context, e Element) (string, error) {
	frag, err := e.HTML(ctx)
	if err != nil {
		return "", err
	}
	return Markdown(frag)
}
