package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/practx/internal/models"
	"github.com/desertthunder/practx/internal/practice"
	"github.com/desertthunder/practx/internal/shared"
)

var (
	_ list.Item = cardItem{}
)

// cardItem wraps a [practice.CardState] to implement [list.Item]. It reads the card on every render, so the
// list shows the engine's latest tick without rebuilding items.
type cardItem struct {
	card     *practice.CardState
	exercise models.Exercise
}

func (i cardItem) FilterValue() string { return i.exercise.Name }

func (i cardItem) Title() string {
	title := i.exercise.Name
	if title == "" {
		title = i.exercise.ID
	}
	if i.card.Timing() {
		title = styles.timing.Render("● " + title)
	}
	return title
}

func (i cardItem) Description() string {
	elapsed := i.card.Elapsed()
	if elapsed == "" {
		elapsed = shared.FormatClock(i.card.TotalSeconds())
	}

	stage := styles.As(models.StageName(i.exercise.Stage), stageColor(i.exercise.Stage))
	desc := fmt.Sprintf("%s • %d reps • %s", elapsed, i.card.TotalReps(), stage)
	if i.exercise.SectionID != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.exercise.SectionID)
	}
	return desc
}
