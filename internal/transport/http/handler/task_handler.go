package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskhub/internal/domain"
	"taskhub/internal/service"
	"taskhub/internal/transport/http/ez"
	resp "taskhub/internal/transport/http/response"
)

type TaskHandler struct {
	svc *service.TaskService
}

func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// Routes 修改/删除与分类接口一样先解析会话，再按归属限定
func (h *TaskHandler) Routes(e ez.EZ) []ez.Route {
	return []ez.Route{
		ez.Make(e, ez.Action[taskQuery, []domain.Task]{
			Method:  http.MethodGet,
			Path:    "/tasks",
			Binder:  ez.BindQuery,
			Auth:    true,
			FailMsg: "Failed to fetch tasks",
			Handler: func(c *gin.Context, p *domain.User, q *taskQuery) ([]domain.Task, error) {
				return h.svc.List(c.Request.Context(), p.ID, q.filter())
			},
		}),
		ez.Make(e, ez.Action[taskIn, *domain.Task]{
			Method:  http.MethodPost,
			Path:    "/tasks",
			Binder:  ez.BindJSON,
			Auth:    true,
			Status:  http.StatusCreated,
			FailMsg: "Failed to create task",
			Handler: func(c *gin.Context, p *domain.User, in *taskIn) (*domain.Task, error) {
				return h.svc.Create(c.Request.Context(), p.ID, service.NewTask{
					Title:       in.Title,
					Description: in.Description,
					CategoryID:  in.CategoryID.ID,
					DueDate:     in.DueDate.Time,
				})
			},
		}),
		ez.Make(e, ez.Action[taskPatchIn, *domain.Task]{
			Method:  http.MethodPatch,
			Path:    "/tasks/:id",
			Binder:  ez.BindJSON,
			Auth:    true,
			FailMsg: "Failed to update task",
			Handler: func(c *gin.Context, p *domain.User, in *taskPatchIn) (*domain.Task, error) {
				id, err := ez.ParamID(c, "id", "Invalid task id")
				if err != nil {
					return nil, err
				}
				return h.svc.Update(c.Request.Context(), p.ID, id, in.patch())
			},
		}),
		ez.Make(e, ez.Action[struct{}, resp.Message]{
			Method:  http.MethodDelete,
			Path:    "/tasks/:id",
			Binder:  ez.BindNone,
			Auth:    true,
			FailMsg: "Failed to delete task",
			Handler: func(c *gin.Context, p *domain.User, _ *struct{}) (resp.Message, error) {
				id, err := ez.ParamID(c, "id", "Invalid task id")
				if err != nil {
					return resp.Message{}, err
				}
				if err := h.svc.Delete(c.Request.Context(), p.ID, id); err != nil {
					return resp.Message{}, err
				}
				return resp.OK("Task deleted"), nil
			},
		}),
	}
}
