package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"codeframe-be/internal/apperr"
	"codeframe-be/internal/config"
	"codeframe-be/internal/dto"
	"codeframe-be/internal/entity"
	"codeframe-be/internal/pkg/logger"
	"codeframe-be/internal/repository/memory"
	"codeframe-be/internal/repository/specification"
	"codeframe-be/internal/repository/unitofwork"
	pktNats "codeframe-be/pkg/nats"
	"codeframe-be/pkg/events"
)

type IGenerationService interface {
	StartGeneration(ctx context.Context, req *dto.StartGenerationRequest) (*dto.StartGenerationResponse, error)
	GetStatus(ctx context.Context, runId uuid.UUID) (*dto.GenerationStatusResponse, error)
	ListRuns(ctx context.Context, categoryId uuid.UUID, req *dto.ListRunsRequest) (*dto.ListRunsResponse, error)
	CancelGeneration(ctx context.Context, runId uuid.UUID) (*dto.CancelGenerationResponse, error)
}

type generationService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	cancelStore      ICancelStore
	registry         *memory.RunRegistry
	eventPublisher   *pktNats.Publisher
	pipelineCfg      config.PipelineConfig
	log              logger.ILogger
}

func NewGenerationService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	cancelStore ICancelStore,
	registry *memory.RunRegistry,
	eventPublisher *pktNats.Publisher,
	pipelineCfg config.PipelineConfig,
	log logger.ILogger,
) IGenerationService {
	return &generationService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		cancelStore:      cancelStore,
		registry:         registry,
		eventPublisher:   eventPublisher,
		pipelineCfg:      pipelineCfg,
		log:              log,
	}
}

// resolveConfig merges the request overrides onto the deployment defaults
// and rejects combinations the clusterer cannot work with.
func (s *generationService) resolveConfig(req *dto.GenerationConfigRequest) (entity.GenerationConfig, error) {
	cfg := entity.GenerationConfig{
		MinClusterSize:      s.pipelineCfg.MinClusterSize,
		MinSamples:          s.pipelineCfg.MinSamples,
		MaxDepth:            s.pipelineCfg.MaxDepth,
		ExemplarsPerCluster: s.pipelineCfg.ExemplarsPerCluster,
		Language:            "en",
	}
	if req != nil {
		if req.MinClusterSize != 0 {
			cfg.MinClusterSize = req.MinClusterSize
		}
		if req.MinSamples != 0 {
			cfg.MinSamples = req.MinSamples
		}
		if req.MaxDepth != 0 {
			cfg.MaxDepth = req.MaxDepth
		}
		if req.ExemplarsPerCluster != 0 {
			cfg.ExemplarsPerCluster = req.ExemplarsPerCluster
		}
		if req.Language != "" {
			cfg.Language = req.Language
		}
	}
	if cfg.MinClusterSize < 2 {
		return cfg, fmt.Errorf("%w: min_cluster_size must be at least 2", apperr.ErrInvalidConfig)
	}
	if cfg.MinSamples < 1 || cfg.MinSamples > cfg.MinClusterSize {
		return cfg, fmt.Errorf("%w: min_samples must be between 1 and min_cluster_size", apperr.ErrInvalidConfig)
	}
	if cfg.MaxDepth < 2 || cfg.MaxDepth > 3 {
		return cfg, fmt.Errorf("%w: max_depth must be 2 or 3", apperr.ErrInvalidConfig)
	}
	if cfg.ExemplarsPerCluster < 1 {
		return cfg, fmt.Errorf("%w: exemplars_per_cluster must be positive", apperr.ErrInvalidConfig)
	}
	return cfg, nil
}

func (s *generationService) StartGeneration(ctx context.Context, req *dto.StartGenerationRequest) (*dto.StartGenerationResponse, error) {
	runCfg, err := s.resolveConfig(req.Config)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	category, err := uow.CategoryRepository().FindOne(ctx, specification.ByID{ID: req.CategoryId})
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, apperr.ErrCategoryNotFound
	}

	answerCount, err := uow.AnswerRepository().Count(ctx, specification.ByCategoryId{CategoryId: req.CategoryId})
	if err != nil {
		return nil, err
	}
	if answerCount == 0 {
		return nil, fmt.Errorf("%w: category has no answers to cluster", apperr.ErrInvalidConfig)
	}

	run := &entity.GenerationRun{
		Id:         uuid.New(),
		CategoryId: req.CategoryId,
		Status:     entity.RunStatusQueued,
		Config:     runCfg,
	}
	if err := uow.GenerationRunRepository().Create(ctx, run); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(dto.PublishGenerateCodeframeMessage{GenerationId: run.Id})
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		// The run would sit queued forever, so surface the failure. Failure
		// is only reachable from running, so step through it nominally.
		run.ErrorDetail = fmt.Sprintf("failed to enqueue generation job: %v", err)
		if uerr := uow.GenerationRunRepository().Update(ctx, run); uerr != nil {
			s.log.Error("generation", "failed to record enqueue error", map[string]interface{}{
				"run_id": run.Id.String(),
				"error":  uerr.Error(),
			})
		}
		if moved, terr := uow.GenerationRunRepository().TransitionStatus(ctx, run.Id, entity.RunStatusQueued, entity.RunStatusRunning); terr != nil || !moved {
			s.log.Error("generation", "failed to mark unpublishable run as failed", map[string]interface{}{
				"run_id": run.Id.String(),
			})
		} else if _, terr := uow.GenerationRunRepository().TransitionStatus(ctx, run.Id, entity.RunStatusRunning, entity.RunStatusFailed); terr != nil {
			s.log.Error("generation", "failed to mark unpublishable run as failed", map[string]interface{}{
				"run_id": run.Id.String(),
				"error":  terr.Error(),
			})
		}
		return nil, err
	}

	s.log.Info("generation", "generation run queued", map[string]interface{}{
		"run_id":      run.Id.String(),
		"category_id": req.CategoryId.String(),
	})

	return &dto.StartGenerationResponse{Id: run.Id, Status: run.Status}, nil
}

func (s *generationService) GetStatus(ctx context.Context, runId uuid.UUID) (*dto.GenerationStatusResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	run, err := uow.GenerationRunRepository().FindOne(ctx, specification.ByID{ID: runId})
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, apperr.ErrRunNotFound
	}
	return toStatusResponse(run), nil
}

// ListRuns returns the category's run history, newest first.
func (s *generationService) ListRuns(ctx context.Context, categoryId uuid.UUID, req *dto.ListRunsRequest) (*dto.ListRunsResponse, error) {
	limit := 20
	offset := 0
	status := ""
	if req != nil {
		if req.Limit > 0 {
			limit = req.Limit
		}
		if req.Offset > 0 {
			offset = req.Offset
		}
		status = req.Status
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	category, err := uow.CategoryRepository().FindOne(ctx, specification.ByID{ID: categoryId})
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, apperr.ErrCategoryNotFound
	}

	specs := []specification.Specification{
		specification.ByCategoryId{CategoryId: categoryId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	}
	if status != "" {
		specs = append(specs, specification.ByStatus{Status: status})
	}

	runs, err := uow.GenerationRunRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	resp := &dto.ListRunsResponse{CategoryId: categoryId, Runs: make([]dto.GenerationStatusResponse, 0, len(runs))}
	for i := range runs {
		resp.Runs = append(resp.Runs, *toStatusResponse(&runs[i]))
	}
	return resp, nil
}

func (s *generationService) CancelGeneration(ctx context.Context, runId uuid.UUID) (*dto.CancelGenerationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	run, err := uow.GenerationRunRepository().FindOne(ctx, specification.ByID{ID: runId})
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, apperr.ErrRunNotFound
	}
	if run.IsTerminal() {
		return nil, fmt.Errorf("%w: status is %s", apperr.ErrRunFinished, run.Status)
	}

	// Flag first so a worker that grabs the run between our read and the
	// CAS below still sees the request.
	if err := s.cancelStore.RequestCancel(ctx, runId); err != nil {
		s.log.Warn("generation", "failed to persist cancel flag", map[string]interface{}{
			"run_id": runId.String(),
			"error":  err.Error(),
		})
	}
	s.registry.Cancel(runId)

	if run.Status == entity.RunStatusQueued {
		moved, err := uow.GenerationRunRepository().TransitionStatus(ctx, runId, entity.RunStatusQueued, entity.RunStatusCancelled)
		if err != nil {
			return nil, err
		}
		if moved {
			if s.eventPublisher != nil {
				if err := s.eventPublisher.Publish(ctx, events.NewRunCancelledEvent(runId, run.CategoryId)); err != nil {
					s.log.Warn("generation", "failed to publish cancellation event", map[string]interface{}{
						"run_id": runId.String(),
						"error":  err.Error(),
					})
				}
			}
			return &dto.CancelGenerationResponse{Id: runId, Status: entity.RunStatusCancelled}, nil
		}
	}

	// A running worker finishes its in-flight cluster call, then observes
	// the flag and records the cancelled status itself.
	current, err := uow.GenerationRunRepository().FindOne(ctx, specification.ByID{ID: runId})
	if err != nil {
		return nil, err
	}
	status := entity.RunStatusRunning
	if current != nil {
		status = current.Status
	}
	return &dto.CancelGenerationResponse{Id: runId, Status: status}, nil
}

func toStatusResponse(run *entity.GenerationRun) *dto.GenerationStatusResponse {
	resp := &dto.GenerationStatusResponse{
		Id:         run.Id,
		CategoryId: run.CategoryId,
		Status:     run.Status,
		Progress: dto.GenerationProgressResponse{
			ClustersTotal:     run.ClustersTotal,
			ClustersCompleted: run.ClustersCompleted,
			ClustersFailed:    run.ClustersFailed,
		},
		TokensUsed:  run.TokensUsed,
		CostUsd:     run.CostUsd,
		MeceScore:   run.MeceScore,
		ErrorDetail: run.ErrorDetail,
		CreatedAt:   run.CreatedAt,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
	}
	for _, w := range run.MeceWarnings {
		resp.MeceWarnings = append(resp.MeceWarnings, dto.MeceWarningResponse{
			Kind:     w.Kind,
			Severity: w.Severity,
			NodeIds:  w.NodeIds,
			Count:    w.Count,
			Detail:   w.Detail,
		})
	}
	return resp
}
