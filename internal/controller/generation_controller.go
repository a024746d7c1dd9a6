package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"codeframe-be/internal/dto"
	"codeframe-be/internal/pkg/serverutils"
	"codeframe-be/internal/service"
)

type GenerationController struct {
	generationService service.IGenerationService
	applyService      service.IApplyService
}

func NewGenerationController(generationService service.IGenerationService, applyService service.IApplyService) *GenerationController {
	return &GenerationController{
		generationService: generationService,
		applyService:      applyService,
	}
}

func (c *GenerationController) RegisterRoutes(router fiber.Router) {
	generations := router.Group("/generations")
	generations.Post("/", c.StartGeneration)
	generations.Get("/:id", c.GetStatus)
	generations.Post("/:id/cancel", c.CancelGeneration)
	generations.Post("/:id/apply", c.ApplyCodes)

	router.Get("/categories/:id/generations", c.ListRuns)
}

func (c *GenerationController) StartGeneration(ctx *fiber.Ctx) error {
	var req dto.StartGenerationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.generationService.StartGeneration(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("generation queued", res))
}

func (c *GenerationController) GetStatus(ctx *fiber.Ctx) error {
	runId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid generation id")
	}

	res, err := c.generationService.GetStatus(ctx.Context(), runId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("generation status", res))
}

func (c *GenerationController) ListRuns(ctx *fiber.Ctx) error {
	categoryId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid category id")
	}

	var req dto.ListRunsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.generationService.ListRuns(ctx.Context(), categoryId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("generation runs", res))
}

func (c *GenerationController) CancelGeneration(ctx *fiber.Ctx) error {
	runId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid generation id")
	}

	res, err := c.generationService.CancelGeneration(ctx.Context(), runId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("cancellation requested", res))
}

func (c *GenerationController) ApplyCodes(ctx *fiber.Ctx) error {
	runId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid generation id")
	}

	var req dto.ApplyCodesRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := serverutils.ValidateRequest(&req); err != nil {
			return err
		}
	}

	res, err := c.applyService.ApplyCodes(ctx.Context(), runId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("codes applied", res))
}
