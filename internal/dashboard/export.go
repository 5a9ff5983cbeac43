package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"video-dashboard/internal/jobs"
	"video-dashboard/internal/shared/util"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatText = "txt"
)

// Export is a downloadable report.
type Export struct {
	FileName    string
	ContentType string
	Body        []byte
}

// Export builds a report for a completed job. The current analysis is used when
// it matches jobID; any other job is fetched from the backend.
func (s *Service) Export(ctx context.Context, jobID, format string) (Export, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatText {
		return Export{}, ErrInvalidExportFormat
	}
	if jobID == "" {
		return Export{}, ErrJobIDRequired
	}

	result, err := s.resultFor(ctx, jobID)
	if err != nil {
		return Export{}, err
	}

	name, err := util.SanitizeFileName(fmt.Sprintf("analysis-%d.%s", s.now().UnixMilli(), format))
	if err != nil {
		return Export{}, err
	}
	if format == FormatText {
		return Export{FileName: name, ContentType: "text/plain; charset=utf-8", Body: []byte(TextReport(result))}, nil
	}
	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return Export{}, fmt.Errorf("encode analysis: %w", err)
	}
	return Export{FileName: name, ContentType: "application/json", Body: body}, nil
}

func (s *Service) resultFor(ctx context.Context, jobID string) (jobs.AnalysisResult, error) {
	st := s.store.Snapshot()
	if st.CurrentJobID == jobID && st.CurrentAnalysis != nil {
		return *st.CurrentAnalysis, nil
	}
	job, err := s.backend.JobStatus(ctx, jobID)
	if err != nil {
		return jobs.AnalysisResult{}, err
	}
	if job.Status != jobs.StatusCompleted || job.AnalysisResult == nil {
		return jobs.AnalysisResult{}, ErrNotCompleted
	}
	return *job.AnalysisResult, nil
}

// TextReport renders the plain-text download.
func TextReport(result jobs.AnalysisResult) string {
	a := result.Analysis
	var b strings.Builder
	b.WriteString("ANÁLISE DE VÍDEO INSTAGRAM\n")
	b.WriteString("==========================\n\n")
	fmt.Fprintf(&b, "Tipo de Análise: %s\n", a.AnalysisType)
	fmt.Fprintf(&b, "Modelo Usado: %s\n", a.ModelUsed)
	fmt.Fprintf(&b, "Tamanho do Arquivo: %.2f MB\n\n", float64(a.FileSize)/1024/1024)
	b.WriteString("ANÁLISE COMPLETA:\n")
	b.WriteString(a.RawResponse)
	return strings.TrimSpace(b.String())
}
