package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskhub/internal/domain"
	"taskhub/internal/service"
	"taskhub/internal/transport/http/ez"
	resp "taskhub/internal/transport/http/response"
)

type CategoryHandler struct {
	svc *service.CategoryService
}

func NewCategoryHandler(svc *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

func (h *CategoryHandler) Routes(e ez.EZ) []ez.Route {
	return []ez.Route{
		ez.Make(e, ez.Action[struct{}, []domain.Category]{
			Method:  http.MethodGet,
			Path:    "/categories",
			Binder:  ez.BindNone,
			Auth:    true,
			FailMsg: "Failed to fetch categories",
			Handler: func(c *gin.Context, p *domain.User, _ *struct{}) ([]domain.Category, error) {
				return h.svc.List(c.Request.Context(), p.ID)
			},
		}),
		ez.Make(e, ez.Action[categoryIn, *domain.Category]{
			Method:  http.MethodPost,
			Path:    "/categories",
			Binder:  ez.BindJSON,
			Auth:    true,
			Status:  http.StatusCreated,
			FailMsg: "Failed to create category",
			Handler: func(c *gin.Context, p *domain.User, in *categoryIn) (*domain.Category, error) {
				return h.svc.Create(c.Request.Context(), p.ID, in.Name, in.Color)
			},
		}),
		ez.Make(e, ez.Action[categoryPatchIn, *domain.Category]{
			Method:  http.MethodPatch,
			Path:    "/categories/:id",
			Binder:  ez.BindJSON,
			Auth:    true,
			FailMsg: "Failed to update category",
			Handler: func(c *gin.Context, p *domain.User, in *categoryPatchIn) (*domain.Category, error) {
				id, err := ez.ParamID(c, "id", "Invalid category id")
				if err != nil {
					return nil, err
				}
				return h.svc.Update(c.Request.Context(), p.ID, id, in.patch())
			},
		}),
		ez.Make(e, ez.Action[struct{}, resp.Message]{
			Method:  http.MethodDelete,
			Path:    "/categories/:id",
			Binder:  ez.BindNone,
			Auth:    true,
			FailMsg: "Failed to delete category",
			Handler: func(c *gin.Context, p *domain.User, _ *struct{}) (resp.Message, error) {
				id, err := ez.ParamID(c, "id", "Invalid category id")
				if err != nil {
					return resp.Message{}, err
				}
				if err := h.svc.Delete(c.Request.Context(), p.ID, id); err != nil {
					return resp.Message{}, err
				}
				return resp.OK("Category deleted"), nil
			},
		}),
	}
}
