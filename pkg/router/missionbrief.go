package router

import (
	"fmt"
	"strings"

	"github.com/omnikernel/kernel/pkg/duocore"
	"github.com/omnikernel/kernel/pkg/kernelerr"
)

// forbiddenPathSubstrings are repo-layout leaks a Commander's-Intent brief
// must never contain — it states a goal, not a procedure over specific
// files.
var forbiddenPathSubstrings = []string{"src/", "packages/", "tests/", "pkg/", "internal/", "cmd/"}

// BuildMissionBrief synthesizes a goal-oriented, path-independent
// Commander's-Intent string from the classified intent and the tools the
// fusion pipeline selected. It never describes a step-by-step procedure.
func BuildMissionBrief(weights duocore.FusionWeights, selectedTools []string) string {
	if len(selectedTools) == 0 {
		return "No capability met the confidence bar for this request; escalate to the user for clarification."
	}
	if weights.IntentAction != "" {
		return fmt.Sprintf("Achieve: %s the %s, using whichever of {%s} best serves the outcome.",
			weights.IntentAction, weights.IntentTarget, strings.Join(selectedTools, ", "))
	}
	return fmt.Sprintf("Accomplish the requested outcome using whichever of {%s} best serves it.",
		strings.Join(selectedTools, ", "))
}

// ValidateMissionBrief rejects a brief that leaks repo-layout path
// substrings, per §4.8's brief-quality validator.
func ValidateMissionBrief(brief string) error {
	lower := strings.ToLower(brief)
	for _, substr := range forbiddenPathSubstrings {
		if strings.Contains(lower, substr) {
			return kernelerr.New(kernelerr.KindMissionBriefRejected, "router", "ValidateMissionBrief",
				fmt.Sprintf("brief contains forbidden path substring %q", substr))
		}
	}
	return nil
}
