package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"codeframe-be/internal/apperr"
	"codeframe-be/internal/dto"
	"codeframe-be/internal/pkg/logger"
	"codeframe-be/internal/repository/specification"
	"codeframe-be/internal/repository/unitofwork"
)

type IHierarchyService interface {
	GetTree(ctx context.Context, generationId uuid.UUID) (*dto.HierarchyTreeResponse, error)
	RenameNode(ctx context.Context, nodeId uuid.UUID, req *dto.RenameNodeRequest) (*dto.HierarchyNodeResponse, error)
	DeleteNode(ctx context.Context, nodeId uuid.UUID) error
	MergeNodes(ctx context.Context, req *dto.MergeNodesRequest) (*dto.MergeNodesResponse, error)
}

type hierarchyService struct {
	uowFactory unitofwork.RepositoryFactory
	log        logger.ILogger
}

func NewHierarchyService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IHierarchyService {
	return &hierarchyService{
		uowFactory: uowFactory,
		log:        log,
	}
}

func (s *hierarchyService) GetTree(ctx context.Context, generationId uuid.UUID) (*dto.HierarchyTreeResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	run, err := uow.GenerationRunRepository().FindOne(ctx, specification.ByID{ID: generationId})
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, apperr.ErrRunNotFound
	}

	nodes, err := uow.HierarchyNodeRepository().FindAll(ctx, specification.ByGenerationId{GenerationId: generationId})
	if err != nil {
		return nil, err
	}

	return &dto.HierarchyTreeResponse{
		GenerationId: generationId,
		Themes:       buildTreeResponse(nodes),
	}, nil
}

func (s *hierarchyService) RenameNode(ctx context.Context, nodeId uuid.UUID, req *dto.RenameNodeRequest) (*dto.HierarchyNodeResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	node, err := uow.HierarchyNodeRepository().FindOne(ctx, specification.ByID{ID: nodeId})
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, apperr.ErrNodeNotFound
	}

	siblings, err := uow.HierarchyNodeRepository().FindAll(ctx, specification.ByGenerationId{GenerationId: node.GenerationId})
	if err != nil {
		return nil, err
	}
	if siblingNameTaken(siblings, node.ParentId, req.Name, map[uuid.UUID]bool{node.Id: true}) {
		return nil, fmt.Errorf("%w: %q", apperr.ErrDuplicateSiblingName, req.Name)
	}

	node.Name = req.Name
	node.IsEdited = true
	if err := uow.HierarchyNodeRepository().Update(ctx, node); err != nil {
		return nil, err
	}

	s.log.Info("hierarchy", "node renamed", map[string]interface{}{
		"node_id": nodeId.String(),
		"name":    req.Name,
	})

	return &dto.HierarchyNodeResponse{
		Id:                node.Id,
		Level:             node.Level,
		Name:              node.Name,
		Description:       node.Description,
		Confidence:        node.Confidence,
		RepresentativeIds: node.RepresentativeIds,
		ClusterIndex:      node.ClusterIndex,
		IsEdited:          node.IsEdited,
	}, nil
}

func (s *hierarchyService) DeleteNode(ctx context.Context, nodeId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	node, err := uow.HierarchyNodeRepository().FindOne(ctx, specification.ByID{ID: nodeId})
	if err != nil {
		return err
	}
	if node == nil {
		return apperr.ErrNodeNotFound
	}

	nodes, err := uow.HierarchyNodeRepository().FindAll(ctx, specification.ByGenerationId{GenerationId: node.GenerationId})
	if err != nil {
		return err
	}
	subtree := collectSubtreeIds(nodes, nodeId)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	if err := uow.HierarchyNodeRepository().DeleteByIds(ctx, subtree); err != nil {
		_ = uow.Rollback()
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.log.Info("hierarchy", "node deleted with descendants", map[string]interface{}{
		"node_id": nodeId.String(),
		"removed": len(subtree),
	})
	return nil
}

func (s *hierarchyService) MergeNodes(ctx context.Context, req *dto.MergeNodesRequest) (*dto.MergeNodesResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	first, err := uow.HierarchyNodeRepository().FindOne(ctx, specification.ByID{ID: req.NodeIds[0]})
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNodeNotFound, req.NodeIds[0])
	}

	nodes, err := uow.HierarchyNodeRepository().FindAll(ctx, specification.ByGenerationId{GenerationId: first.GenerationId})
	if err != nil {
		return nil, err
	}

	plan, err := planMerge(nodes, req.NodeIds, req.TargetName)
	if err != nil {
		return nil, err
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	target := plan.Target
	if err := uow.HierarchyNodeRepository().Create(ctx, &target); err != nil {
		_ = uow.Rollback()
		return nil, err
	}
	for _, childId := range plan.ReparentedChildIds {
		child := findNode(nodes, childId)
		if child == nil {
			continue
		}
		child.ParentId = &target.Id
		if err := uow.HierarchyNodeRepository().Update(ctx, child); err != nil {
			_ = uow.Rollback()
			return nil, err
		}
	}
	if err := uow.HierarchyNodeRepository().DeleteByIds(ctx, plan.RemovedIds); err != nil {
		_ = uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.log.Info("hierarchy", "nodes merged", map[string]interface{}{
		"target_id": target.Id.String(),
		"merged":    len(plan.RemovedIds),
	})

	return &dto.MergeNodesResponse{Id: target.Id, Name: target.Name}, nil
}
