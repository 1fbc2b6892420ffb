package compose

import (
	"context"
	"fmt"
	"log"
	"strings"

	"reportify/internal/blocks"
	"reportify/internal/llmclient"
)

// shrinkFloor is the fraction of the input draft's non-marker length the
// aggregated output must keep. Anything shorter is treated as data loss and
// discarded in favor of the raw merge.
const shrinkFloor = 0.85

const aggregateSystem = `You are unifying a multi-section report drafted by independent writers.
Smooth style differences and resolve cross-section conflicts.
Preserve every existing section heading and every [[TABLE:...]] and [[FIGURE:...]] marker exactly as written.
Do not drop content; the result must not be shorter than the draft.
Output the full document in the same markdown structure, nothing else.`

// Aggregator merges section drafts into one internally consistent document.
// Aggregation is an optimization, never a source of data loss: any error or
// suspicious shrinkage falls back to the raw merge.
type Aggregator struct {
	LLM llmclient.Client
	// Temperature for the unify call; aggregation wants low variance.
	Temperature float64
}

// Aggregate returns the unified document and whether the model's output was
// used (false means the raw merge was kept).
func (a *Aggregator) Aggregate(ctx context.Context, merged string) (string, bool) {
	if a == nil || a.LLM == nil {
		return merged, false
	}
	user := fmt.Sprintf("Unify the following report draft:\n\n%s", merged)
	out, err := a.LLM.Chat(ctx, aggregateSystem, user, llmclient.ChatOptions{Temperature: a.Temperature})
	if err != nil {
		log.Printf("compose: aggregation failed, keeping raw merge: %v", err)
		return merged, false
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return merged, false
	}
	inLen := blocks.NonMarkerLen(merged)
	if float64(blocks.NonMarkerLen(out)) < shrinkFloor*float64(inLen) {
		log.Printf("compose: aggregated output shrank below %.0f%% of input (%d -> %d chars), keeping raw merge",
			shrinkFloor*100, inLen, blocks.NonMarkerLen(out))
		return merged, false
	}
	return out, true
}
