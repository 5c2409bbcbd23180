package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"ai-companion-be/internal/pkg/serverutils"
	"ai-companion-be/internal/service"
)

type IConversationController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type conversationController struct {
	chatService service.IChatService
}

func NewConversationController(chatService service.IChatService) IConversationController {
	return &conversationController{
		chatService: chatService,
	}
}

func (c *conversationController) RegisterRoutes(r fiber.Router) {
	r.Get("/conversations", c.List)
	r.Get("/conversations/:id", c.Show)
	r.Delete("/conversations/:id", c.Delete)
}

func (c *conversationController) List(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 20)
	offset := ctx.QueryInt("offset", 0)

	res, err := c.chatService.ListConversations(ctx.Context(), limit, offset)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *conversationController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid conversation id")
	}

	res, err := c.chatService.GetConversation(ctx.Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *conversationController) Delete(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid conversation id")
	}

	if err := c.chatService.DeleteConversation(ctx.Context(), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete conversation", nil))
}
