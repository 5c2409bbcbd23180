package controller

import (
	"bufio"
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"ai-companion-be/internal/dto"
	"ai-companion-be/internal/pkg/serverutils"
	"ai-companion-be/internal/service"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	r.Post("/chat", c.Chat)
}

func (c *chatController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if !req.Stream {
		res, err := c.chatService.Chat(ctx.Context(), &req)
		if err != nil {
			return err
		}
		return ctx.JSON(res)
	}

	// The stream outlives this handler; fasthttp invokes the body writer
	// after it returns, so the exchange runs on a detached context that the
	// writer cancels when the client goes away.
	streamCtx, cancel := context.WithCancel(context.Background())

	handle, err := c.chatService.ChatStream(streamCtx, &req)
	if err != nil {
		cancel()
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set("Connection", "keep-alive")
	ctx.Set("X-Conversation-Id", handle.ConversationId.String())

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		for frag := range handle.Fragments {
			if frag.Err != nil {
				fmt.Fprintf(w, "data: [ERROR] %s\n\n", frag.Err.Error())
				w.Flush()
				return
			}

			fmt.Fprintf(w, "data: %s\n\n", frag.Content)
			if err := w.Flush(); err != nil {
				// Client disconnected; stop the generation and drain so
				// the producer can finalize persistence.
				cancel()
				for range handle.Fragments {
				}
				return
			}
		}

		fmt.Fprint(w, "data: [DONE]\n\n")
		w.Flush()
	})

	return nil
}
