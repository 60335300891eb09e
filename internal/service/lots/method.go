package lots

import "fmt"

// SelectionMethod determines which lots are deemed sold when a sale is
// matched against a position's open lots.
type SelectionMethod string

const (
	// FIFO sells the oldest lots first.
	FIFO SelectionMethod = "fifo"
	// LIFO sells the newest lots first.
	LIFO SelectionMethod = "lifo"
	// HIFO sells the highest-cost lots first.
	HIFO SelectionMethod = "hifo"
	// SpecificID sells exactly the lots the caller names.
	SpecificID SelectionMethod = "specific_id"
	// AverageCost draws pro-rata from every open lot at the average cost.
	AverageCost SelectionMethod = "average_cost"
	// MinimizeGain sells the highest-cost lots first (same order as HIFO).
	MinimizeGain SelectionMethod = "minimize_gain"
	// MaximizeGain sells the lowest-cost lots first.
	MaximizeGain SelectionMethod = "maximize_gain"
)

// ParseSelectionMethod parses a string into a SelectionMethod.
func ParseSelectionMethod(s string) (SelectionMethod, error) {
	switch SelectionMethod(s) {
	case FIFO, LIFO, HIFO, SpecificID, AverageCost, MinimizeGain, MaximizeGain:
		return SelectionMethod(s), nil
	default:
		return "", fmt.Errorf("unknown lot selection method: %q", s)
	}
}
