package curve

import coreerrors "curvefoundry/core/errors"

var (
	ErrNilState              = coreerrors.New(coreerrors.KindInvariant, "curve engine: state not configured")
	ErrCurveExists           = coreerrors.New(coreerrors.KindInvariant, "curve engine: curve already exists")
	ErrCurveNotFound         = coreerrors.New(coreerrors.KindNotFound, "curve engine: curve not found")
	ErrCorruptState          = coreerrors.New(coreerrors.KindInvariant, "curve engine: phase and finalization flag disagree")
	ErrInvalidSettings       = coreerrors.New(coreerrors.KindValidation, "curve engine: invalid settings")
	ErrInvalidAmount         = coreerrors.New(coreerrors.KindValidation, "curve engine: amount must be positive")
	ErrBelowMinContribution  = coreerrors.New(coreerrors.KindValidation, "curve engine: contribution below minimum")
	ErrTargetExceeded        = coreerrors.New(coreerrors.KindValidation, "curve engine: contribution exceeds pre-bonding target")
	ErrNothingLocked         = coreerrors.New(coreerrors.KindValidation, "curve engine: no locked allocation")
	ErrWrongPhase            = coreerrors.New(coreerrors.KindPhase, "curve engine: operation not allowed in current phase")
	ErrInvalidTransition     = coreerrors.New(coreerrors.KindPhase, "curve engine: invalid phase transition")
	ErrAlreadyFinalized      = coreerrors.New(coreerrors.KindPhase, "curve engine: curve already finalized")
	ErrNotFinalized          = coreerrors.New(coreerrors.KindPhase, "curve engine: curve not finalized")
	ErrTargetNotReached      = coreerrors.New(coreerrors.KindPhase, "curve engine: bonding target not reached")
	ErrNotAdmin              = coreerrors.New(coreerrors.KindAuthorization, "curve engine: caller is not the curve admin")
	ErrSlippage              = coreerrors.New(coreerrors.KindEconomic, "curve engine: output below minimum")
	ErrZeroOutput            = coreerrors.New(coreerrors.KindEconomic, "curve engine: output rounds to zero")
	ErrInsufficientBalance   = coreerrors.New(coreerrors.KindEconomic, "curve engine: insufficient balance")
	ErrInsufficientLiquidity = coreerrors.New(coreerrors.KindEconomic, "curve engine: insufficient base liquidity")
	ErrZeroAddress           = coreerrors.New(coreerrors.KindInvariant, "curve engine: zero address")
	ErrMathOverflow          = coreerrors.New(coreerrors.KindInvariant, "curve engine: arithmetic overflow")
	ErrUnknownPricing        = coreerrors.New(coreerrors.KindInvariant, "curve engine: no pricing for implementation")
	ErrCollaboratorMissing   = coreerrors.New(coreerrors.KindInvariant, "curve engine: collaborator not configured")
)
