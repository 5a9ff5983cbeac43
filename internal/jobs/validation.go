package jobs

import (
	"regexp"
	"strings"
)

var instagramURLPattern = regexp.MustCompile(`^https?://(www\.)?(instagram\.com|instagr\.am)/(p|reel|tv)/[A-Za-z0-9_-]+/?`)

// Analysis types accepted by the backend.
const (
	AnalysisComprehensive     = "comprehensive"
	AnalysisSummary           = "summary"
	AnalysisTranscription     = "transcription"
	AnalysisVisualDescription = "visual_description"
)

// DefaultAnalysisType is used when a request leaves the type empty.
const DefaultAnalysisType = AnalysisComprehensive

var analysisTypes = map[string]struct{}{
	AnalysisComprehensive:     {},
	AnalysisSummary:           {},
	AnalysisTranscription:     {},
	AnalysisVisualDescription: {},
}

// ValidateInstagramURL is a fast client-side guard; the backend has the final say.
func ValidateInstagramURL(raw string) error {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ErrEmptyURL
	}
	if !instagramURLPattern.MatchString(u) {
		return ErrInvalidURL
	}
	return nil
}

// NormalizeAnalysisType defaults an empty type and rejects unknown ones.
func NormalizeAnalysisType(raw string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" {
		return DefaultAnalysisType, nil
	}
	if _, ok := analysisTypes[t]; !ok {
		return "", ErrInvalidAnalysisType
	}
	return t, nil
}

// NewSubmitRequest validates user input and builds the backend request.
func NewSubmitRequest(instagramURL, analysisType string) (SubmitRequest, error) {
	if err := ValidateInstagramURL(instagramURL); err != nil {
		return SubmitRequest{}, err
	}
	t, err := NormalizeAnalysisType(analysisType)
	if err != nil {
		return SubmitRequest{}, err
	}
	return SubmitRequest{InstagramURL: strings.TrimSpace(instagramURL), AnalysisType: t}, nil
}
