package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/tutorx/internal/formatter"
	"github.com/desertthunder/tutorx/internal/models"
)

var (
	_ list.Item = tutorialItem{}
)

// tutorialItem wraps [models.Tutorial] to implement [list.Item].
type tutorialItem struct {
	tutorial models.Tutorial
}

func (i tutorialItem) FilterValue() string { return i.tutorial.Title }
func (i tutorialItem) Title() string       { return i.tutorial.Title }
func (i tutorialItem) Description() string {
	desc := i.tutorial.CreatedAt.String()
	if preview := formatter.Preview(i.tutorial.Content, 60); preview != "" {
		desc = fmt.Sprintf("%s • %s", desc, preview)
	}
	return desc
}

func tutorialItems(tutorials []models.Tutorial) []list.Item {
	items := make([]list.Item, len(tutorials))
	for i, t := range tutorials {
		items[i] = tutorialItem{tutorial: t}
	}
	return items
}
