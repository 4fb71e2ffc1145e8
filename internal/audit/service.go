package audit

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/repoaudit/internal/evidence"
	"github.com/temirov/repoaudit/internal/locator"
	"github.com/temirov/repoaudit/internal/oracle"
	"github.com/temirov/repoaudit/internal/report"
)

const (
	fetcherMissingMessageConstant    = "evidence fetcher not configured"
	normalizerMissingMessageConstant = "result normalizer not configured"
	logFieldRepositoryURLConstant    = "repository_url"
	logFieldRepositoryConstant       = "repository"
	logFieldErrorKindConstant        = "error_kind"
	logFieldContextLengthConstant    = "context_length"
	logFieldTotalScoreConstant       = "total_score"
	logFieldWarningCountConstant     = "warning_count"
	auditStartedMessageConstant      = "audit started"
	auditFailedMessageConstant       = "audit failed"
	auditCompletedMessageConstant    = "audit completed"
	contextFormattedMessageConstant  = "evidence context formatted"
)

var (
	// ErrFetcherMissing indicates the Service was constructed without an EvidenceFetcher.
	ErrFetcherMissing = errors.New(fetcherMissingMessageConstant)
	// ErrNormalizerMissing indicates the Service was constructed without a ResultNormalizer.
	ErrNormalizerMissing = errors.New(normalizerMissingMessageConstant)
)

// ServiceDependencies lists the collaborators of a Service. Logger, Clock,
// IdentifierGenerator, and ProgressObserver are optional.
type ServiceDependencies struct {
	Logger              *zap.Logger
	Fetcher             EvidenceFetcher
	Oracle              oracle.Oracle
	Tiers               []oracle.Tier
	Normalizer          ResultNormalizer
	Clock               Clock
	IdentifierGenerator IdentifierGenerator
	ProgressObserver    ProgressObserver
}

// Service runs repository audits.
type Service struct {
	logger              *zap.Logger
	fetcher             EvidenceFetcher
	oracle              oracle.Oracle
	tiers               []oracle.Tier
	normalizer          ResultNormalizer
	clock               Clock
	identifierGenerator IdentifierGenerator
	progressObserver    ProgressObserver
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Fetcher == nil {
		return nil, ErrFetcherMissing
	}
	if dependencies.Normalizer == nil {
		return nil, ErrNormalizerMissing
	}

	validationRequestor, requestorError := oracle.NewTieredRequestor(nil, dependencies.Oracle, dependencies.Tiers, nil)
	if requestorError != nil {
		return nil, requestorError
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	identifierGenerator := dependencies.IdentifierGenerator
	if identifierGenerator == nil {
		identifierGenerator = RandomIdentifierGenerator
	}
	var progressObserver ProgressObserver = noopProgressObserver{}
	if dependencies.ProgressObserver != nil {
		progressObserver = dependencies.ProgressObserver
	}

	return &Service{
		logger:              logger,
		fetcher:             dependencies.Fetcher,
		oracle:              dependencies.Oracle,
		tiers:               validationRequestor.Tiers(),
		normalizer:          dependencies.Normalizer,
		clock:               clock,
		identifierGenerator: identifierGenerator,
		progressObserver:    progressObserver,
	}, nil
}

// RunAudit audits the repository at repositoryURL. An empty accessToken means anonymous hosting access.
// Errors are returned unmodified from the failing component; use ClassifyError to name them.
func (service *Service) RunAudit(executionContext context.Context, repositoryURL string, accessToken string) (report.AuditResult, error) {
	auditID := service.identifierGenerator()
	logger := service.logger.With(zap.String(logFieldAuditIDConstant, auditID))
	logger.Debug(auditStartedMessageConstant, zap.String(logFieldRepositoryURLConstant, repositoryURL))

	repository, parseError := locator.ParseRepositoryURL(repositoryURL)
	if parseError != nil {
		return report.AuditResult{}, service.fail(logger, auditID, parseError)
	}
	logger = logger.With(zap.String(logFieldRepositoryConstant, repository.String()))

	service.publish(auditID, ProgressStageStarted, fmt.Sprintf(progressStartedTemplateConstant, repository.String()))
	service.publish(auditID, ProgressStageFetchingEvidence, fmt.Sprintf(progressFetchingEvidenceTemplateConstant, repository.String()))

	bundle, fetchError := service.fetcher.Fetch(executionContext, repository, accessToken)
	if fetchError != nil {
		return report.AuditResult{}, service.fail(logger, auditID, fetchError)
	}
	service.publish(auditID, ProgressStageEvidenceReady, fmt.Sprintf(progressEvidenceReadyTemplateConstant, len(bundle.FileTree.Paths), len(bundle.ManifestFiles), len(bundle.SourceSamples)))

	formattedContext := evidence.FormatContext(bundle)
	logger.Debug(contextFormattedMessageConstant, zap.Int(logFieldContextLengthConstant, len(formattedContext)))
	request := oracle.BuildRequest(repositoryURL, formattedContext, service.clock.Now())

	requestor, requestorError := oracle.NewTieredRequestor(logger, service.oracle, service.tiers, tierProgressReporter{auditID: auditID, observer: service.progressObserver})
	if requestorError != nil {
		return report.AuditResult{}, service.fail(logger, auditID, requestorError)
	}

	var auditResult report.AuditResult
	_, requestError := requestor.Request(executionContext, request, func(response oracle.Response) error {
		normalized, normalizeError := service.normalizer.Normalize(response.Payload, repository.Name, response.Model)
		if normalizeError != nil {
			return normalizeError
		}
		auditResult = normalized
		return nil
	})
	if requestError != nil {
		return report.AuditResult{}, service.fail(logger, auditID, requestError)
	}

	logger.Info(auditCompletedMessageConstant,
		zap.String(logFieldModelConstant, auditResult.ModelUsed),
		zap.Int(logFieldTotalScoreConstant, auditResult.Scores.Total),
		zap.Int(logFieldWarningCountConstant, len(auditResult.Warnings)),
	)
	service.progressObserver.OnProgress(ProgressEvent{
		AuditID: auditID,
		Stage:   ProgressStageCompleted,
		Message: fmt.Sprintf(progressCompletedTemplateConstant, auditResult.Scores.Total, auditResult.ModelUsed),
		Model:   auditResult.ModelUsed,
	})
	return auditResult, nil
}

func (service *Service) publish(auditID string, stage ProgressStage, message string) {
	service.progressObserver.OnProgress(ProgressEvent{AuditID: auditID, Stage: stage, Message: message})
}

func (service *Service) fail(logger *zap.Logger, auditID string, failure error) error {
	errorKind := ClassifyError(failure)
	logger.Debug(auditFailedMessageConstant, zap.String(logFieldErrorKindConstant, string(errorKind)), zap.Error(failure))
	service.publish(auditID, ProgressStageFailed, fmt.Sprintf(progressFailedTemplateConstant, errorKind, failure))
	return failure
}
