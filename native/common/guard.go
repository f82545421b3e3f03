package common

import coreerrors "curvefoundry/core/errors"

var ErrModulePaused = coreerrors.New(coreerrors.KindPhase, "module paused")

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
