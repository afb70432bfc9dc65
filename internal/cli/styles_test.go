package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/spice-insights/internal/model"
)

func TestFormatPriority(t *testing.T) {
	assert.Contains(t, FormatPriority(model.PriorityHigh), "[HIGH]")
	assert.Contains(t, FormatPriority(model.PriorityMedium), "[MEDIUM]")
	assert.Contains(t, FormatPriority(model.PriorityLow), "[LOW]")
}

func TestFormatNumbers(t *testing.T) {
	assert.Equal(t, "1234.50", FormatAmount(1234.5))
	assert.Equal(t, "85%", FormatPercent(0.849))
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(
		[]string{"Category", "Spent"},
		[][]string{{"groceries", "120.00"}, {"rent", "1500.00"}},
	)

	lines := strings.Split(out, "\n")
	assert.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, out, "groceries")
	assert.Contains(t, out, "1500.00")
}
