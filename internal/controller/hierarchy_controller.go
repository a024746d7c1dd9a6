package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"codeframe-be/internal/dto"
	"codeframe-be/internal/pkg/serverutils"
	"codeframe-be/internal/service"
)

type HierarchyController struct {
	hierarchyService service.IHierarchyService
}

func NewHierarchyController(hierarchyService service.IHierarchyService) *HierarchyController {
	return &HierarchyController{
		hierarchyService: hierarchyService,
	}
}

func (c *HierarchyController) RegisterRoutes(router fiber.Router) {
	router.Get("/generations/:id/hierarchy", c.GetTree)

	nodes := router.Group("/nodes")
	nodes.Put("/:id/rename", c.RenameNode)
	nodes.Delete("/:id", c.DeleteNode)
	nodes.Post("/merge", c.MergeNodes)
}

func (c *HierarchyController) GetTree(ctx *fiber.Ctx) error {
	generationId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid generation id")
	}

	res, err := c.hierarchyService.GetTree(ctx.Context(), generationId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("hierarchy tree", res))
}

func (c *HierarchyController) RenameNode(ctx *fiber.Ctx) error {
	nodeId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid node id")
	}

	var req dto.RenameNodeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.hierarchyService.RenameNode(ctx.Context(), nodeId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("node renamed", res))
}

func (c *HierarchyController) DeleteNode(ctx *fiber.Ctx) error {
	nodeId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid node id")
	}

	if err := c.hierarchyService.DeleteNode(ctx.Context(), nodeId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("node deleted", nil))
}

func (c *HierarchyController) MergeNodes(ctx *fiber.Ctx) error {
	var req dto.MergeNodesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.hierarchyService.MergeNodes(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("nodes merged", res))
}
