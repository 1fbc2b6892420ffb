package compose

import (
	"context"
	"fmt"
	"strings"

	"reportify/internal/llmclient"
)

const repairSystem = `You are repairing a multi-section report that failed validation.
Fix exactly the listed problems: add missing sections, extend short ones, add missing [[TABLE:...]] or [[FIGURE:...]] markers.
Keep all existing content and headings; never delete or rename sections.
Output the full corrected document in the same markdown structure, nothing else.`

// Repair issues exactly one model call with the validation problem list
// attached. The caller re-validates the result; whatever comes out, pass or
// fail, is final.
func Repair(ctx context.Context, cli llmclient.Client, doc string, problems []string) (string, error) {
	if cli == nil {
		return "", fmt.Errorf("compose: repair client is nil")
	}
	var sb strings.Builder
	sb.WriteString("Validation problems:\n")
	for _, p := range problems {
		sb.WriteString("- ")
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	sb.WriteString("\nDocument:\n\n")
	sb.WriteString(doc)

	out, err := cli.Chat(ctx, repairSystem, sb.String(), llmclient.ChatOptions{Temperature: 0.3})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", llmclient.ErrEmptyResponse
	}
	return out, nil
}
