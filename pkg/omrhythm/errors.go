package omrhythm

import (
	"errors"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm/loader"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/profile"
)

var (
	ErrAnalysisNotFound = errors.New("analysis not found")
	ErrInvalidSystem    = loader.ErrInvalidSystem
	ErrInvalidProfile   = profile.ErrInvalidProfile
	ErrUnknownExport    = errors.New("unknown export kind")
)
