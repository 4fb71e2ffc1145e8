package audit

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/repoaudit/internal/oracle"
)

// ProgressStage identifies a step of an audit run.
type ProgressStage string

// Audit progress stages in the order they occur.
const (
	ProgressStageStarted          ProgressStage = "started"
	ProgressStageFetchingEvidence ProgressStage = "fetching_evidence"
	ProgressStageEvidenceReady    ProgressStage = "evidence_ready"
	ProgressStageRequestingAudit  ProgressStage = "requesting_audit"
	ProgressStageTierFailed       ProgressStage = "tier_failed"
	ProgressStageCompleted        ProgressStage = "completed"
	ProgressStageFailed           ProgressStage = "failed"
)

const (
	progressStartedTemplateConstant          = "Auditing %s"
	progressFetchingEvidenceTemplateConstant = "Fetching repository evidence for %s"
	progressEvidenceReadyTemplateConstant    = "Collected evidence (%d files listed, %d manifests, %d source samples)"
	progressRequestingAuditTemplateConstant  = "Requesting audit from %s"
	progressTierFailedTemplateConstant       = "Model %s failed: %v"
	progressCompletedTemplateConstant        = "Audit complete: %d/100 (%s)"
	progressFailedTemplateConstant           = "Audit failed (%s): %v"
	logFieldAuditIDConstant                  = "audit_id"
	logFieldStageConstant                    = "stage"
	logFieldModelConstant                    = "model"
)

// ProgressEvent is a partial-progress notification for the presentation layer.
type ProgressEvent struct {
	AuditID string
	Stage   ProgressStage
	Message string
	Model   string
}

// ProgressObserver receives progress events during RunAudit.
type ProgressObserver interface {
	OnProgress(event ProgressEvent)
}

type noopProgressObserver struct{}

func (noopProgressObserver) OnProgress(ProgressEvent) {}

// ConsoleProgressLogger renders progress events through zap.
type ConsoleProgressLogger struct {
	logger        *zap.Logger
	humanReadable bool
}

// NewConsoleProgressLogger constructs a ConsoleProgressLogger. When humanReadable
// is set only the message is printed; otherwise the stage and audit id are attached as fields.
func NewConsoleProgressLogger(logger *zap.Logger, humanReadable bool) *ConsoleProgressLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleProgressLogger{logger: logger, humanReadable: humanReadable}
}

// OnProgress logs event at info level, or warn level for failures.
func (progressLogger *ConsoleProgressLogger) OnProgress(event ProgressEvent) {
	fields := []zap.Field{}
	if !progressLogger.humanReadable {
		fields = append(fields, zap.String(logFieldAuditIDConstant, event.AuditID), zap.String(logFieldStageConstant, string(event.Stage)))
		if len(event.Model) > 0 {
			fields = append(fields, zap.String(logFieldModelConstant, event.Model))
		}
	}

	switch event.Stage {
	case ProgressStageTierFailed, ProgressStageFailed:
		progressLogger.logger.Warn(event.Message, fields...)
	default:
		progressLogger.logger.Info(event.Message, fields...)
	}
}

// tierProgressReporter forwards oracle tier attempts as progress events.
type tierProgressReporter struct {
	auditID  string
	observer ProgressObserver
}

func (reporter tierProgressReporter) OnTierAttempt(tier oracle.Tier, _ int) {
	reporter.observer.OnProgress(ProgressEvent{
		AuditID: reporter.auditID,
		Stage:   ProgressStageRequestingAudit,
		Message: fmt.Sprintf(progressRequestingAuditTemplateConstant, tier.Model),
		Model:   tier.Model,
	})
}

func (reporter tierProgressReporter) OnTierFailure(tier oracle.Tier, _ int, failure error) {
	reporter.observer.OnProgress(ProgressEvent{
		AuditID: reporter.auditID,
		Stage:   ProgressStageTierFailed,
		Message: fmt.Sprintf(progressTierFailedTemplateConstant, tier.Model, failure),
		Model:   tier.Model,
	})
}
