package components

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Countdown renders the time left before a prompt dismisses itself.
type Countdown struct {
	bar   progress.Model
	total time.Duration
}

// NewCountdown creates a countdown component for the given prompt timeout.
func NewCountdown(total time.Duration) Countdown {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 30
	return Countdown{bar: bar, total: total}
}

// View renders the bar drained in proportion to the elapsed time. A zero
// total renders nothing.
func (c Countdown) View(remaining time.Duration) string {
	if c.total <= 0 {
		return ""
	}
	if remaining < 0 {
		remaining = 0
	}
	ratio := math.Min(1.0, float64(remaining)/float64(c.total))
	label := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%ds left", int(math.Ceil(remaining.Seconds()))))
	return lipgloss.JoinHorizontal(lipgloss.Left, c.bar.ViewAs(ratio), " ", label)
}
