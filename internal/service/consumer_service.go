package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"codeframe-be/internal/apperr"
	"codeframe-be/internal/config"
	"codeframe-be/internal/dto"
	"codeframe-be/internal/entity"
	"codeframe-be/internal/pkg/logger"
	"codeframe-be/internal/repository/memory"
	"codeframe-be/internal/repository/specification"
	"codeframe-be/internal/repository/unitofwork"
	"codeframe-be/pkg/cluster"
	"codeframe-be/pkg/codeframe"
	"codeframe-be/pkg/events"
	"codeframe-be/pkg/mece"
	pktNats "codeframe-be/pkg/nats"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// Embedder is the vector source for the pipeline.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ClusterGenerator produces one hierarchy proposal per cluster.
type ClusterGenerator interface {
	Generate(ctx context.Context, in codeframe.PromptInput) (*codeframe.Proposal, codeframe.Usage, error)
}

type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	uowFactory     unitofwork.RepositoryFactory
	embedder       Embedder
	generator      ClusterGenerator
	cancelStore    ICancelStore
	registry       *memory.RunRegistry
	eventPublisher *pktNats.Publisher
	pipelineCfg    config.PipelineConfig
	mecePolicy     mece.Policy
	costPer1K      float64
	log            logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embedder Embedder,
	generator ClusterGenerator,
	cancelStore ICancelStore,
	registry *memory.RunRegistry,
	eventPublisher *pktNats.Publisher,
	pipelineCfg config.PipelineConfig,
	mecePolicy mece.Policy,
	costPer1K float64,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		uowFactory:     uowFactory,
		embedder:       embedder,
		generator:      generator,
		cancelStore:    cancelStore,
		registry:       registry,
		eventPublisher: eventPublisher,
		pipelineCfg:    pipelineCfg,
		mecePolicy:     mecePolicy,
		costPer1K:      costPer1K,
		log:            log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishGenerateCodeframeMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("pipeline", "failed to unmarshal job message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // malformed, retrying cannot help
		return
	}

	// The run outcome lives in the database, not in queue redelivery, so the
	// message is always acked once handled.
	defer msg.Ack()

	cs.ProcessRun(ctx, payload.GenerationId)
}

// ProcessRun executes one queued generation run end to end.
func (cs *consumerService) ProcessRun(ctx context.Context, runId uuid.UUID) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	run, err := uow.GenerationRunRepository().FindOne(ctx, specification.ByID{ID: runId})
	if err != nil {
		cs.log.Error("pipeline", "failed to load run", map[string]interface{}{
			"run_id": runId.String(),
			"error":  err.Error(),
		})
		return
	}
	if run == nil {
		cs.log.Warn("pipeline", "job for unknown run", map[string]interface{}{
			"run_id": runId.String(),
		})
		return
	}

	moved, err := uow.GenerationRunRepository().TransitionStatus(ctx, runId, entity.RunStatusQueued, entity.RunStatusRunning)
	if err != nil {
		cs.log.Error("pipeline", "failed to start run", map[string]interface{}{
			"run_id": runId.String(),
			"error":  err.Error(),
		})
		return
	}
	if !moved {
		// cancelled before pickup, or a duplicate delivery
		return
	}
	run.Status = entity.RunStatusRunning

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	cs.registry.Register(runId, cancel)
	defer cs.registry.Unregister(runId)

	execErr := cs.execute(runCtx, run)
	switch {
	case execErr == nil:
		// finalized inside execute
	case errors.Is(execErr, apperr.ErrRunCancelled), errors.Is(execErr, context.Canceled):
		cs.finalizeCancelled(ctx, run)
	default:
		cs.finalizeFailed(ctx, run, execErr)
	}
}

func (cs *consumerService) cancelRequested(ctx context.Context, runId uuid.UUID) bool {
	if ctx.Err() != nil {
		return true
	}
	flagged, err := cs.cancelStore.IsCancelRequested(ctx, runId)
	if err != nil {
		cs.log.Warn("pipeline", "cancel flag check failed", map[string]interface{}{
			"run_id": runId.String(),
			"error":  err.Error(),
		})
		return false
	}
	return flagged
}

func (cs *consumerService) execute(ctx context.Context, run *entity.GenerationRun) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	answers, err := uow.AnswerRepository().FindAll(ctx, specification.ByCategoryId{CategoryId: run.CategoryId})
	if err != nil {
		return fmt.Errorf("loading answers: %w", err)
	}

	category, err := uow.CategoryRepository().FindOne(ctx, specification.ByID{ID: run.CategoryId})
	if err != nil {
		return fmt.Errorf("loading category: %w", err)
	}
	categoryName := ""
	categoryDesc := ""
	if category != nil {
		categoryName = category.Name
		categoryDesc = category.Description
	}

	if len(answers) == 0 {
		// Start rejects empty categories, so reaching here means the
		// expected inputs vanished between submission and pickup.
		return fmt.Errorf("no answers to cluster for category %s", run.CategoryId)
	}

	texts := make([]string, len(answers))
	for i, a := range answers {
		texts[i] = a.Text
	}

	vectors, err := cs.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding answers: %w", err)
	}

	if cs.cancelRequested(ctx, run.Id) {
		return apperr.ErrRunCancelled
	}

	res := cluster.DBSCAN(vectors, run.Config.MinClusterSize, run.Config.MinSamples, cs.pipelineCfg.Eps)

	clusterResults := cs.buildClusterResults(run, res, answers, vectors)
	if err := uow.ClusterResultRepository().CreateBatch(ctx, clusterResults); err != nil {
		return fmt.Errorf("persisting clusters: %w", err)
	}

	run.ClustersTotal = res.ClusterCount()
	if err := uow.GenerationRunRepository().Update(ctx, run); err != nil {
		return fmt.Errorf("recording cluster count: %w", err)
	}

	cs.log.Info("pipeline", "clustering finished", map[string]interface{}{
		"run_id":   run.Id.String(),
		"clusters": res.ClusterCount(),
		"outliers": len(res.Outliers),
	})

	codeInputs, err := cs.generateHierarchies(ctx, run, clusterResults, answers, categoryName, categoryDesc)
	if err != nil {
		return err
	}

	uncovered := len(res.Outliers)
	for _, cr := range clusterResults {
		if cr.Status == entity.ClusterStatusFailed {
			uncovered += len(cr.MemberIds)
		}
	}
	report := mece.Validate(codeInputs, len(answers), uncovered, cs.mecePolicy)

	detail := ""
	if run.ClustersFailed > 0 {
		detail = fmt.Sprintf("%d of %d clusters failed generation", run.ClustersFailed, run.ClustersTotal)
	}
	if run.ClustersTotal > 0 && run.ClustersFailed == run.ClustersTotal {
		return fmt.Errorf("all %d clusters failed generation", run.ClustersTotal)
	}
	return cs.finalizeCompleted(ctx, run, report, detail)
}

func (cs *consumerService) buildClusterResults(run *entity.GenerationRun, res *cluster.Result, answers []entity.Answer, vectors [][]float32) []*entity.ClusterResult {
	indexes := make([]int, 0, len(res.Clusters))
	for idx := range res.Clusters {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	results := make([]*entity.ClusterResult, 0, len(indexes)+1)
	for _, idx := range indexes {
		members := res.Clusters[idx]
		memberIds := make([]uuid.UUID, 0, len(members))
		for _, m := range members {
			memberIds = append(memberIds, answers[m].Id)
		}
		results = append(results, &entity.ClusterResult{
			Id:           uuid.New(),
			GenerationId: run.Id,
			ClusterIndex: idx,
			MemberIds:    memberIds,
			Centroid:     cluster.Centroid(vectors, members),
			Status:       entity.ClusterStatusPending,
		})
	}

	if len(res.Outliers) > 0 {
		outlierIds := make([]uuid.UUID, 0, len(res.Outliers))
		for _, m := range res.Outliers {
			outlierIds = append(outlierIds, answers[m].Id)
		}
		// the outlier bucket never goes through generation
		results = append(results, &entity.ClusterResult{
			Id:           uuid.New(),
			GenerationId: run.Id,
			ClusterIndex: entity.OutlierClusterIndex,
			MemberIds:    outlierIds,
			Centroid:     cluster.Centroid(vectors, res.Outliers),
			Status:       entity.ClusterStatusDone,
		})
	}

	return results
}

// generateHierarchies runs the per-cluster LLM calls on a bounded worker
// pool. A single cluster failing stays contained; cancellation aborts the
// whole pool.
func (cs *consumerService) generateHierarchies(
	ctx context.Context,
	run *entity.GenerationRun,
	clusterResults []*entity.ClusterResult,
	answers []entity.Answer,
	categoryName, categoryDesc string,
) ([]mece.CodeInput, error) {
	answerText := make(map[uuid.UUID]string, len(answers))
	for _, a := range answers {
		answerText[a.Id] = a.Text
	}

	workers := cs.pipelineCfg.GenerationWorkers
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	var codeInputs []mece.CodeInput

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, cr := range clusterResults {
		if cr.IsOutlierBucket() {
			continue
		}
		cr := cr
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if cs.cancelRequested(gctx, run.Id) {
				return apperr.ErrRunCancelled
			}

			exemplars := make([]string, 0, run.Config.ExemplarsPerCluster)
			for _, id := range cr.MemberIds {
				if len(exemplars) == run.Config.ExemplarsPerCluster {
					break
				}
				if text, ok := answerText[id]; ok {
					exemplars = append(exemplars, text)
				}
			}

			proposal, usage, genErr := cs.generator.Generate(gctx, codeframe.PromptInput{
				CategoryName:        categoryName,
				CategoryDescription: categoryDesc,
				Exemplars:           exemplars,
				MaxDepth:            run.Config.MaxDepth,
				Language:            run.Config.Language,
			})

			mu.Lock()
			defer mu.Unlock()

			uow := cs.uowFactory.NewUnitOfWork(gctx)

			run.TokensUsed += int64(usage.Tokens)
			run.CostUsd += float64(usage.Tokens) / 1000 * cs.costPer1K

			if genErr != nil {
				if errors.Is(genErr, context.Canceled) {
					return genErr
				}
				cs.log.Warn("pipeline", "cluster generation failed", map[string]interface{}{
					"run_id":        run.Id.String(),
					"cluster_index": cr.ClusterIndex,
					"error":         genErr.Error(),
				})
				cr.Status = entity.ClusterStatusFailed
				cr.ErrorDetail = genErr.Error()
				if err := uow.ClusterResultRepository().Update(gctx, cr); err != nil {
					return err
				}
				run.ClustersFailed++
				return uow.GenerationRunRepository().Update(gctx, run)
			}

			nodes, codes := cs.buildNodes(gctx, run, cr, proposal)
			if err := uow.HierarchyNodeRepository().CreateBatch(gctx, nodes); err != nil {
				return err
			}

			cr.Status = entity.ClusterStatusDone
			if err := uow.ClusterResultRepository().Update(gctx, cr); err != nil {
				return err
			}

			run.ClustersCompleted++
			if err := uow.GenerationRunRepository().Update(gctx, run); err != nil {
				return err
			}

			codeInputs = append(codeInputs, codes...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, apperr.ErrRunCancelled) {
			return nil, apperr.ErrRunCancelled
		}
		return nil, err
	}
	return codeInputs, nil
}

// buildNodes turns one cluster's proposal into persistable tree rows. Code
// nodes get an embedding of name and description so the MECE check can
// compare them; an embedding failure here degrades the check instead of
// failing the cluster.
func (cs *consumerService) buildNodes(ctx context.Context, run *entity.GenerationRun, cr *entity.ClusterResult, proposal *codeframe.Proposal) ([]*entity.HierarchyNode, []mece.CodeInput) {
	reps := cr.MemberIds
	if len(reps) > entity.MaxRepresentatives {
		reps = reps[:entity.MaxRepresentatives]
	}

	theme := &entity.HierarchyNode{
		Id:                uuid.New(),
		GenerationId:      run.Id,
		Level:             entity.NodeLevelTheme,
		Name:              proposal.Theme.Name,
		Description:       proposal.Theme.Description,
		Confidence:        proposal.Theme.Confidence,
		RepresentativeIds: reps,
		ClusterIndex:      cr.ClusterIndex,
	}

	nodes := []*entity.HierarchyNode{theme}
	var codes []mece.CodeInput

	seen := map[string]int{}
	for _, code := range proposal.Codes {
		name := dedupeSiblingName(seen, code.Name)
		codeNode := &entity.HierarchyNode{
			Id:                uuid.New(),
			GenerationId:      run.Id,
			ParentId:          &theme.Id,
			Level:             entity.NodeLevelCode,
			Name:              name,
			Description:       code.Description,
			Confidence:        code.Confidence,
			RepresentativeIds: reps,
			ClusterIndex:      cr.ClusterIndex,
		}

		embedText := name
		if code.Description != "" {
			embedText = name + ". " + code.Description
		}
		if vec, err := cs.embedder.Embed(ctx, embedText); err == nil {
			codeNode.Embedding = vec
			codes = append(codes, mece.CodeInput{
				Id:        codeNode.Id.String(),
				Name:      name,
				Embedding: vec,
			})
		} else {
			cs.log.Warn("pipeline", "code embedding failed, node excluded from overlap check", map[string]interface{}{
				"run_id": run.Id.String(),
				"code":   name,
				"error":  err.Error(),
			})
		}
		nodes = append(nodes, codeNode)

		childSeen := map[string]int{}
		for _, sub := range code.SubCodes {
			nodes = append(nodes, &entity.HierarchyNode{
				Id:           uuid.New(),
				GenerationId: run.Id,
				ParentId:     &codeNode.Id,
				Level:        entity.NodeLevelSubCode,
				Name:         dedupeSiblingName(childSeen, sub.Name),
				Description:  sub.Description,
				Confidence:   sub.Confidence,
				ClusterIndex: cr.ClusterIndex,
			})
		}
	}

	return nodes, codes
}

// dedupeSiblingName keeps sibling names unique when the model repeats
// itself, by suffixing a counter.
func dedupeSiblingName(seen map[string]int, name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	seen[key]++
	if seen[key] == 1 {
		return name
	}
	return fmt.Sprintf("%s (%d)", name, seen[key])
}

func (cs *consumerService) finalizeCompleted(ctx context.Context, run *entity.GenerationRun, report *mece.Report, detail string) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	score := report.Score
	run.MeceScore = &score
	run.MeceWarnings = report.Warnings
	run.ErrorDetail = detail
	if err := uow.GenerationRunRepository().Update(ctx, run); err != nil {
		return err
	}
	if _, err := uow.GenerationRunRepository().TransitionStatus(ctx, run.Id, entity.RunStatusRunning, entity.RunStatusCompleted); err != nil {
		return err
	}
	run.Status = entity.RunStatusCompleted

	if err := cs.cancelStore.Clear(ctx, run.Id); err != nil {
		cs.log.Warn("pipeline", "failed to clear cancel flag", map[string]interface{}{
			"run_id": run.Id.String(),
			"error":  err.Error(),
		})
	}

	cs.log.Info("pipeline", "run completed", map[string]interface{}{
		"run_id":     run.Id.String(),
		"mece_score": score,
		"failed":     run.ClustersFailed,
		"tokens":     run.TokensUsed,
	})

	cs.publishEvent(ctx, events.NewRunCompletedEvent(run.Id, run.CategoryId, score))
	return nil
}

func (cs *consumerService) finalizeFailed(ctx context.Context, run *entity.GenerationRun, cause error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	run.ErrorDetail = cause.Error()
	if err := uow.GenerationRunRepository().Update(ctx, run); err != nil {
		cs.log.Error("pipeline", "failed to record run failure detail", map[string]interface{}{
			"run_id": run.Id.String(),
			"error":  err.Error(),
		})
	}
	if _, err := uow.GenerationRunRepository().TransitionStatus(ctx, run.Id, entity.RunStatusRunning, entity.RunStatusFailed); err != nil {
		cs.log.Error("pipeline", "failed to mark run failed", map[string]interface{}{
			"run_id": run.Id.String(),
			"error":  err.Error(),
		})
		return
	}
	run.Status = entity.RunStatusFailed

	cs.log.Error("pipeline", "run failed", map[string]interface{}{
		"run_id": run.Id.String(),
		"error":  cause.Error(),
	})

	cs.publishEvent(ctx, events.NewRunFailedEvent(run.Id, run.CategoryId, cause.Error()))
}

func (cs *consumerService) finalizeCancelled(ctx context.Context, run *entity.GenerationRun) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := uow.GenerationRunRepository().TransitionStatus(ctx, run.Id, entity.RunStatusRunning, entity.RunStatusCancelled); err != nil {
		cs.log.Error("pipeline", "failed to mark run cancelled", map[string]interface{}{
			"run_id": run.Id.String(),
			"error":  err.Error(),
		})
		return
	}
	run.Status = entity.RunStatusCancelled

	if err := cs.cancelStore.Clear(ctx, run.Id); err != nil {
		cs.log.Warn("pipeline", "failed to clear cancel flag", map[string]interface{}{
			"run_id": run.Id.String(),
			"error":  err.Error(),
		})
	}

	cs.log.Info("pipeline", "run cancelled", map[string]interface{}{
		"run_id": run.Id.String(),
	})

	cs.publishEvent(ctx, events.NewRunCancelledEvent(run.Id, run.CategoryId))
}

func (cs *consumerService) publishEvent(ctx context.Context, evt events.Event) {
	if cs.eventPublisher == nil {
		return
	}
	if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
		cs.log.Warn("pipeline", "failed to publish event", map[string]interface{}{
			"event": evt.EventType(),
			"error": err.Error(),
		})
	}
}
