package controller

import (
	"errors"

	"kb-engine/internal/service"
	"kb-engine/internal/utils"
	"kb-engine/pkgs/errcode"
	"kb-engine/pkgs/response"

	"github.com/gin-gonic/gin"
)

type TaskController struct {
	taskService *service.TaskService
}

func NewTaskController(taskService *service.TaskService) *TaskController {
	return &TaskController{taskService: taskService}
}

// GetStatus 查询任务状态与进度
func (tc *TaskController) GetStatus(ctx *gin.Context) {
	taskID := ctx.Query("task_id")
	if taskID == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少task_id")
		return
	}

	view, err := tc.taskService.GetStatus(ctx.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			response.NotFoundError(ctx, errcode.TaskNotFound, "任务不存在")
			return
		}
		response.InternalError(ctx, errcode.InternalServerError, "查询任务失败")
		return
	}
	response.Success(ctx, view)
}

// Cancel 取消进行中的任务
func (tc *TaskController) Cancel(ctx *gin.Context) {
	taskID := ctx.Query("task_id")
	if taskID == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少task_id")
		return
	}

	if err := tc.taskService.Cancel(ctx.Request.Context(), taskID); err != nil {
		switch {
		case errors.Is(err, service.ErrTaskNotFound):
			response.NotFoundError(ctx, errcode.TaskNotFound, "任务不存在")
		case errors.Is(err, service.ErrTaskTerminal):
			response.ParamError(ctx, errcode.ParamBindError, "任务已结束，不可取消")
		default:
			response.InternalError(ctx, errcode.InternalServerError, "取消任务失败")
		}
		return
	}
	response.SuccessWithMessage(ctx, "任务已取消", nil)
}

// PageByKB 分页查询知识库下的任务
func (tc *TaskController) PageByKB(ctx *gin.Context) {
	kbID := ctx.Query("kb_id")
	if kbID == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少kb_id")
		return
	}
	page, pageSize, err := utils.ParsePaginationParams(ctx)
	if err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "分页参数错误")
		return
	}

	views, total, err := tc.taskService.ListByKB(ctx.Request.Context(), kbID, page, pageSize)
	if err != nil {
		response.InternalError(ctx, errcode.InternalServerError, "查询任务列表失败")
		return
	}
	response.PageSuccess(ctx, views, total)
}

// ListByDocument 查询文档的任务历史
func (tc *TaskController) ListByDocument(ctx *gin.Context) {
	docID := ctx.Query("doc_id")
	if docID == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少doc_id")
		return
	}

	views, err := tc.taskService.ListByDocument(ctx.Request.Context(), docID)
	if err != nil {
		response.InternalError(ctx, errcode.InternalServerError, "查询任务历史失败")
		return
	}
	response.Success(ctx, views)
}
