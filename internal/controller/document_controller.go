package controller

import (
	"io"

	"ai-loanengine-be/internal/dto"
	"ai-loanengine-be/internal/pkg/serverutils"
	"ai-loanengine-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Types(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
}

func NewDocumentController(documentService service.IDocumentService) IDocumentController {
	return &documentController{
		documentService: documentService,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/document/v1")
	h.Post("upload", c.Upload)
	h.Get("types", c.Types)
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	req := dto.UploadDocumentRequest{
		SessionId:    ctx.FormValue("session_id"),
		CategoryHint: ctx.FormValue("category_hint"),
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing file part")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unreadable file part")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unreadable file part")
	}

	res, err := c.documentService.Upload(ctx.Context(), &req, fileHeader.Filename, content)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success upload document", res))
}

func (c *documentController) Types(ctx *fiber.Ctx) error {
	res := c.documentService.Types(ctx.Context())
	return ctx.JSON(serverutils.SuccessResponse("Success get document types", res))
}
