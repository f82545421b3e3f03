package common

import (
	"testing"

	"github.com/stretchr/testify/require"

	coreerrors "curvefoundry/core/errors"
)

type pauses map[string]bool

func (p pauses) IsPaused(module string) bool { return p[module] }

func TestGuard(t *testing.T) {
	view := pauses{"registry": true}

	err := Guard(view, "registry")
	require.ErrorIs(t, err, ErrModulePaused)
	require.True(t, coreerrors.IsKind(err, coreerrors.KindPhase))

	require.NoError(t, Guard(view, "factory"))
	require.NoError(t, Guard(nil, "registry"))
	require.NoError(t, Guard(view, ""))
}
