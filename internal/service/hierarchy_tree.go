package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"codeframe-be/internal/apperr"
	"codeframe-be/internal/dto"
	"codeframe-be/internal/entity"
)

// Pure tree operations over the flat node list of one generation. Keeping
// these free of persistence makes the edit invariants directly testable.

func buildTreeResponse(nodes []entity.HierarchyNode) []dto.HierarchyNodeResponse {
	children := make(map[uuid.UUID][]*entity.HierarchyNode)
	var roots []*entity.HierarchyNode
	for i := range nodes {
		n := &nodes[i]
		if n.ParentId == nil {
			roots = append(roots, n)
		} else {
			children[*n.ParentId] = append(children[*n.ParentId], n)
		}
	}

	sort.Slice(roots, func(i, j int) bool {
		if roots[i].ClusterIndex != roots[j].ClusterIndex {
			return roots[i].ClusterIndex < roots[j].ClusterIndex
		}
		return roots[i].Name < roots[j].Name
	})

	var build func(n *entity.HierarchyNode) dto.HierarchyNodeResponse
	build = func(n *entity.HierarchyNode) dto.HierarchyNodeResponse {
		resp := dto.HierarchyNodeResponse{
			Id:                n.Id,
			Level:             n.Level,
			Name:              n.Name,
			Description:       n.Description,
			Confidence:        n.Confidence,
			RepresentativeIds: n.RepresentativeIds,
			ClusterIndex:      n.ClusterIndex,
			IsEdited:          n.IsEdited,
		}
		kids := children[n.Id]
		sort.Slice(kids, func(i, j int) bool { return kids[i].Name < kids[j].Name })
		for _, kid := range kids {
			resp.Children = append(resp.Children, build(kid))
		}
		return resp
	}

	out := make([]dto.HierarchyNodeResponse, 0, len(roots))
	for _, root := range roots {
		out = append(out, build(root))
	}
	return out
}

func findNode(nodes []entity.HierarchyNode, id uuid.UUID) *entity.HierarchyNode {
	for i := range nodes {
		if nodes[i].Id == id {
			return &nodes[i]
		}
	}
	return nil
}

func sameParent(a, b *entity.HierarchyNode) bool {
	if a.ParentId == nil || b.ParentId == nil {
		return a.ParentId == nil && b.ParentId == nil
	}
	return *a.ParentId == *b.ParentId
}

// siblingNameTaken reports whether name collides case-insensitively with a
// sibling of the given parent, ignoring excluded node ids.
func siblingNameTaken(nodes []entity.HierarchyNode, parentId *uuid.UUID, name string, exclude map[uuid.UUID]bool) bool {
	needle := strings.ToLower(strings.TrimSpace(name))
	for i := range nodes {
		n := &nodes[i]
		if exclude[n.Id] {
			continue
		}
		if parentId == nil {
			if n.ParentId != nil {
				continue
			}
		} else if n.ParentId == nil || *n.ParentId != *parentId {
			continue
		}
		if strings.ToLower(strings.TrimSpace(n.Name)) == needle {
			return true
		}
	}
	return false
}

// collectSubtreeIds returns the node and every descendant.
func collectSubtreeIds(nodes []entity.HierarchyNode, rootId uuid.UUID) []uuid.UUID {
	children := make(map[uuid.UUID][]uuid.UUID)
	for i := range nodes {
		if nodes[i].ParentId != nil {
			children[*nodes[i].ParentId] = append(children[*nodes[i].ParentId], nodes[i].Id)
		}
	}

	var out []uuid.UUID
	queue := []uuid.UUID{rootId}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, id)
		queue = append(queue, children[id]...)
	}
	return out
}

type mergePlan struct {
	// Target is a fresh node replacing every merged original.
	Target entity.HierarchyNode
	// RemovedIds are merged away; their children move under Target.
	RemovedIds         []uuid.UUID
	ReparentedChildIds []uuid.UUID
}

// planMerge validates and computes a merge of sibling nodes into one new
// node. Merged nodes must share parent and level; the replacement takes
// the union of representative ids (capped) and the highest confidence,
// and every original is removed.
func planMerge(nodes []entity.HierarchyNode, nodeIds []uuid.UUID, targetName string) (*mergePlan, error) {
	if len(nodeIds) < 2 {
		return nil, fmt.Errorf("%w: at least two nodes required", apperr.ErrInvalidMerge)
	}

	seen := map[uuid.UUID]bool{}
	merged := make([]*entity.HierarchyNode, 0, len(nodeIds))
	for _, id := range nodeIds {
		if seen[id] {
			return nil, fmt.Errorf("%w: node %s listed twice", apperr.ErrInvalidMerge, id)
		}
		seen[id] = true
		n := findNode(nodes, id)
		if n == nil {
			return nil, fmt.Errorf("%w: %s", apperr.ErrNodeNotFound, id)
		}
		merged = append(merged, n)
	}

	first := merged[0]
	for _, n := range merged[1:] {
		if n.Level != first.Level || !sameParent(n, first) {
			return nil, fmt.Errorf("%w: nodes must share parent and level", apperr.ErrInvalidMerge)
		}
	}

	if siblingNameTaken(nodes, first.ParentId, targetName, seen) {
		return nil, fmt.Errorf("%w: %q", apperr.ErrDuplicateSiblingName, targetName)
	}

	target := entity.HierarchyNode{
		Id:           uuid.New(),
		GenerationId: first.GenerationId,
		ParentId:     first.ParentId,
		Level:        first.Level,
		Name:         targetName,
		Description:  first.Description,
		ClusterIndex: first.ClusterIndex,
		IsEdited:     true,
	}

	repSeen := map[uuid.UUID]bool{}
	var reps []uuid.UUID
	for _, n := range merged {
		if n.Confidence > target.Confidence {
			target.Confidence = n.Confidence
		}
		for _, rep := range n.RepresentativeIds {
			if repSeen[rep] || len(reps) == entity.MaxRepresentatives {
				continue
			}
			repSeen[rep] = true
			reps = append(reps, rep)
		}
	}
	target.RepresentativeIds = reps

	plan := &mergePlan{Target: target}
	for _, n := range merged {
		plan.RemovedIds = append(plan.RemovedIds, n.Id)
	}
	for i := range nodes {
		n := &nodes[i]
		if n.ParentId != nil && seen[*n.ParentId] {
			plan.ReparentedChildIds = append(plan.ReparentedChildIds, n.Id)
		}
	}
	return plan, nil
}
