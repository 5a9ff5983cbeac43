package jobs

import "errors"

var (
	ErrEmptyURL            = errors.New("instagram url is required")
	ErrInvalidURL          = errors.New("invalid instagram url: use a post, reel or IGTV link")
	ErrInvalidAnalysisType = errors.New("invalid analysis type")
)

// IsValidation reports whether err was produced by local input validation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyURL) || errors.Is(err, ErrInvalidURL) || errors.Is(err, ErrInvalidAnalysisType)
}
