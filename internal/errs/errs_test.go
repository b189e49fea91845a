package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Severity
	}{
		{"nil", nil, Transient},
		{"unknown dex family", ErrUnknownDexFamily, Permanent},
		{"circuit open", ErrCircuitOpen, Permanent},
		{"wrapped unknown dex family", Wrap("pool", ErrUnknownDexFamily), Permanent},
		{"simulation failed", ErrSimulationFailed, Permanent},
		{"stale price", ErrStalePrice, Transient},
		{"unrecognized", errors.New("boom"), Transient},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Classify(c.err))
		})
	}
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "Transient", Transient.String())
	assert.Equal(t, "Permanent", Permanent.String())
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap("op", nil))

	wrapped := Wrap("sizer", ErrUnprofitable)
	assert.True(t, errors.Is(wrapped, ErrUnprofitable))
	assert.Contains(t, wrapped.Error(), "sizer:")
}
