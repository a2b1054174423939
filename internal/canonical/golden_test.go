package canonical

import (
	"testing"

	"ontolock/internal/testutil"
)

func TestGolden_Snapshot(t *testing.T) {
	testutil.ForEachFixture(t, func(t *testing.T, fixture *testutil.FixtureContext) {
		snap := Canonicalize(fixture.Definition(t))
		testutil.CompareGolden(t, fixture, "snapshot", snap)
	})
}
