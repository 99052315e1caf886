package severity_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/capatazlib/go-daemoncheck/internal/severity"
)

func TestExitCodes(t *testing.T) {
	assert.Equal(t, 0, severity.OK.ExitCode())
	assert.Equal(t, 1, severity.Warning.ExitCode())
	assert.Equal(t, 2, severity.Critical.ExitCode())
	assert.Equal(t, 3, severity.Unknown.ExitCode())
}

func TestString(t *testing.T) {
	assert.Equal(t, "OK", severity.OK.String())
	assert.Equal(t, "WARNING", severity.Warning.String())
	assert.Equal(t, "CRITICAL", severity.Critical.String())
	assert.Equal(t, "UNKNOWN", severity.Unknown.String())
	assert.Equal(t, "<Unknown>", severity.Severity(42).String())
}

func TestMax(t *testing.T) {
	all := []severity.Severity{
		severity.Unknown, severity.OK, severity.Warning, severity.Critical,
	}
	// all is sorted from least to most severe
	for i, a := range all {
		for j, b := range all {
			want := a
			if j > i {
				want = b
			}
			assert.Equal(t, want, severity.Max(a, b), "Max(%s, %s)", a, b)
		}
	}
}

func TestFloorNeverDeescalates(t *testing.T) {
	f := severity.NewFloor(severity.Unknown)
	assert.Equal(t, severity.Unknown, f.Get())

	assert.Equal(t, severity.Warning, f.Raise(severity.Warning))
	assert.Equal(t, severity.Warning, f.Raise(severity.OK))
	assert.Equal(t, severity.Warning, f.Raise(severity.Unknown))
	assert.Equal(t, severity.Critical, f.Raise(severity.Critical))
	assert.Equal(t, severity.Critical, f.Raise(severity.Warning))
	assert.Equal(t, severity.Critical, f.Get())
}

func TestFloorIsMaxOfRaises(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	genSeverity := gen.OneConstOf(
		severity.Unknown, severity.OK, severity.Warning, severity.Critical,
	)

	properties.Property("floor equals the max of every raise", prop.ForAll(
		func(raises []severity.Severity) bool {
			f := severity.NewFloor(severity.Unknown)
			want := severity.Unknown
			for _, s := range raises {
				prev := f.Get()
				got := f.Raise(s)
				want = severity.Max(want, s)
				if got != want || severity.Max(prev, got) != got {
					return false
				}
			}
			return f.Get() == want
		},
		gen.SliceOf(genSeverity),
	))

	properties.TestingRun(t)
}
