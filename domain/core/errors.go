package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound           = errors.New("resource not found")
	ErrEvaluationNotFound = fmt.Errorf("%w: evaluation", ErrNotFound)
	ErrBrickNotCached     = fmt.Errorf("%w: decoded brick", ErrNotFound)

	// Decode errors - any of these means no brick was produced
	ErrDecode             = errors.New("brick decode failed")
	ErrHeaderLength       = fmt.Errorf("%w: header length out of range", ErrDecode)
	ErrHeaderMalformed    = fmt.Errorf("%w: malformed header", ErrDecode)
	ErrUnsupportedKind    = fmt.Errorf("%w: unsupported kind", ErrDecode)
	ErrInvalidDims        = fmt.Errorf("%w: invalid dims", ErrDecode)
	ErrChannelMissing     = fmt.Errorf("%w: channel missing", ErrDecode)
	ErrChannelAlignment   = fmt.Errorf("%w: channel byte length not a multiple of 4", ErrDecode)
	ErrChannelTruncated   = fmt.Errorf("%w: channel reads past end of buffer", ErrDecode)
	ErrChannelLength      = fmt.Errorf("%w: channel length mismatch", ErrDecode)
	ErrChannelUndecodable = fmt.Errorf("%w: channel payload undecodable", ErrDecode)
	ErrUnknownFormat      = fmt.Errorf("%w: unknown wire format", ErrDecode)

	// Evaluation errors
	ErrInvalidParams      = errors.New("invalid observer parameters")
	ErrInconsistentBlock  = errors.New("observerRobust block inconsistent")
	ErrNoObserverBlock    = errors.New("brick carries no observerRobust block")
	ErrEvaluatorSaturated = errors.New("evaluator capacity unavailable")
)
