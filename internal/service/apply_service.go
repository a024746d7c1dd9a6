package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"codeframe-be/internal/apperr"
	"codeframe-be/internal/config"
	"codeframe-be/internal/dto"
	"codeframe-be/internal/entity"
	"codeframe-be/internal/pkg/logger"
	"codeframe-be/internal/repository/specification"
	"codeframe-be/internal/repository/unitofwork"
	"codeframe-be/pkg/cluster"
	"codeframe-be/pkg/codeframe"
	"codeframe-be/pkg/events"
	pktNats "codeframe-be/pkg/nats"
)

type IApplyService interface {
	ApplyCodes(ctx context.Context, runId uuid.UUID, req *dto.ApplyCodesRequest) (*dto.ApplyCodesResponse, error)
}

type applyService struct {
	uowFactory     unitofwork.RepositoryFactory
	embedder       Embedder
	eventPublisher *pktNats.Publisher
	pipelineCfg    config.PipelineConfig
	log            logger.ILogger
}

func NewApplyService(
	uowFactory unitofwork.RepositoryFactory,
	embedder Embedder,
	eventPublisher *pktNats.Publisher,
	pipelineCfg config.PipelineConfig,
	log logger.ILogger,
) IApplyService {
	return &applyService{
		uowFactory:     uowFactory,
		embedder:       embedder,
		eventPublisher: eventPublisher,
		pipelineCfg:    pipelineCfg,
		log:            log,
	}
}

func (s *applyService) ApplyCodes(ctx context.Context, runId uuid.UUID, req *dto.ApplyCodesRequest) (*dto.ApplyCodesResponse, error) {
	threshold := s.pipelineCfg.ConfidenceThreshold
	if req != nil && req.ConfidenceThreshold != nil {
		threshold = *req.ConfidenceThreshold
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	run, err := uow.GenerationRunRepository().FindOne(ctx, specification.ByID{ID: runId})
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, apperr.ErrRunNotFound
	}
	if run.Status != entity.RunStatusCompleted {
		return nil, fmt.Errorf("%w: status is %s", apperr.ErrRunNotCompleted, run.Status)
	}

	answers, err := uow.AnswerRepository().FindAll(ctx, specification.ByCategoryId{CategoryId: run.CategoryId})
	if err != nil {
		return nil, err
	}
	clusterResults, err := uow.ClusterResultRepository().FindAll(ctx, specification.ByGenerationId{GenerationId: runId})
	if err != nil {
		return nil, err
	}
	codeNodes, err := uow.HierarchyNodeRepository().FindAll(ctx,
		specification.ByGenerationId{GenerationId: runId},
		specification.ByLevel{Level: entity.NodeLevelCode},
	)
	if err != nil {
		return nil, err
	}

	items, err := s.buildItems(ctx, answers, clusterResults, codeNodes)
	if err != nil {
		return nil, err
	}

	gated := codeframe.GateAssignments(items, threshold)

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	assigned := 0
	review := gated.NeedsReview
	already := gated.AlreadyCoded
	for _, a := range gated.Assignments {
		ok, err := uow.AnswerRepository().AssignCode(ctx, a.AnswerId, a.CodeId, a.CodeName, now)
		if err != nil {
			_ = uow.Rollback()
			return nil, err
		}
		if ok {
			assigned++
		} else {
			// coded concurrently since the read above
			already++
		}
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	remaining, err := uow.AnswerRepository().Count(ctx,
		specification.ByCategoryId{CategoryId: run.CategoryId},
		specification.Uncoded{},
	)
	if err != nil {
		s.log.Warn("apply", "failed to count uncoded answers", map[string]interface{}{
			"run_id": runId.String(),
			"error":  err.Error(),
		})
		remaining = -1
	}

	s.log.Info("apply", "codes applied", map[string]interface{}{
		"run_id":            runId.String(),
		"auto_assigned":     assigned,
		"needs_review":      review,
		"already_coded":     already,
		"threshold":         threshold,
		"uncoded_remaining": remaining,
	})

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, events.NewCodesAppliedEvent(runId, run.CategoryId, assigned, review)); err != nil {
			s.log.Warn("apply", "failed to publish event", map[string]interface{}{
				"run_id": runId.String(),
				"error":  err.Error(),
			})
		}
	}

	return &dto.ApplyCodesResponse{
		AutoAssigned: assigned,
		NeedsReview:  review,
		AlreadyCoded: already,
	}, nil
}

// buildItems pairs each answer with the best code of its cluster. With
// several candidate codes the answer's embedding picks the closest one;
// without usable embeddings the highest-confidence code wins.
func (s *applyService) buildItems(ctx context.Context, answers []entity.Answer, clusterResults []entity.ClusterResult, codeNodes []entity.HierarchyNode) ([]codeframe.ApplyItem, error) {
	type clusterInfo struct {
		outlier bool
		failed  bool
		codes   []*entity.HierarchyNode
	}

	byAnswer := make(map[uuid.UUID]*clusterInfo)
	for i := range clusterResults {
		cr := &clusterResults[i]
		info := &clusterInfo{
			outlier: cr.IsOutlierBucket(),
			failed:  cr.Status == entity.ClusterStatusFailed,
		}
		for j := range codeNodes {
			n := &codeNodes[j]
			if n.ClusterIndex == cr.ClusterIndex {
				info.codes = append(info.codes, n)
			}
		}
		for _, id := range cr.MemberIds {
			byAnswer[id] = info
		}
	}

	items := make([]codeframe.ApplyItem, 0, len(answers))
	for _, a := range answers {
		item := codeframe.ApplyItem{
			AnswerId: a.Id,
			HasCode:  a.IsCoded(),
		}
		info, clustered := byAnswer[a.Id]
		switch {
		case !clustered:
			// answers added after the run look like outliers
			item.InOutlier = true
		case info.outlier:
			item.InOutlier = true
		case info.failed:
			item.ClusterFailed = true
		default:
			code, err := s.pickCode(ctx, a.Text, info.codes)
			if err != nil {
				return nil, err
			}
			if code != nil {
				item.CodeId = code.Id
				item.CodeName = code.Name
				item.Confidence = code.Confidence
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *applyService) pickCode(ctx context.Context, text string, codes []*entity.HierarchyNode) (*entity.HierarchyNode, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	if len(codes) == 1 {
		return codes[0], nil
	}

	withEmbedding := false
	for _, c := range codes {
		if len(c.Embedding) > 0 {
			withEmbedding = true
			break
		}
	}
	if !withEmbedding {
		best := codes[0]
		for _, c := range codes[1:] {
			if c.Confidence > best.Confidence {
				best = c
			}
		}
		return best, nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	var best *entity.HierarchyNode
	bestSim := -2.0
	for _, c := range codes {
		if len(c.Embedding) == 0 {
			continue
		}
		sim := cluster.CosineSimilarity(vec, c.Embedding)
		if sim > bestSim {
			bestSim = sim
			best = c
		}
	}
	return best, nil
}
