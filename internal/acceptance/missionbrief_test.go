package acceptance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omnikernel/kernel/pkg/kernelerr"
	"github.com/omnikernel/kernel/pkg/router"
)

// A mission brief that leaks a repo-layout path, however it was produced,
// must be rejected rather than handed to the Agent Loop as a goal
// statement.
func TestMissionBriefRejectsHardcodedPaths(t *testing.T) {
	cases := []string{
		"Edit the file at src/main.go to fix the bug.",
		"Run the suite under tests/unit and report results.",
		"Update pkg/router/router.go with the new threshold.",
	}
	for _, brief := range cases {
		err := router.ValidateMissionBrief(brief)
		assert.Error(t, err, "brief %q should be rejected", brief)
		assert.True(t, kernelerr.Is(err, kernelerr.KindMissionBriefRejected))
	}

	goalOriented := "Achieve: fix the bug the user reported, using whichever of {testing.run_tests} best serves the outcome."
	assert.NoError(t, router.ValidateMissionBrief(goalOriented))
}
