package controller

import (
	"errors"

	"kb-engine/internal/model"
	"kb-engine/internal/service"
	"kb-engine/internal/utils"
	"kb-engine/pkgs/errcode"
	"kb-engine/pkgs/response"

	"github.com/gin-gonic/gin"
)

type ModelController struct {
	modelService *service.ModelService
}

func NewModelController(modelService *service.ModelService) *ModelController {
	return &ModelController{modelService: modelService}
}

func (mc *ModelController) Create(ctx *gin.Context) {
	var req model.CreateModelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误")
		return
	}

	m, err := mc.modelService.Create(ctx.Request.Context(), &req)
	if err != nil {
		response.InternalError(ctx, errcode.InternalServerError, err.Error())
		return
	}
	response.SuccessWithMessage(ctx, "创建模型配置成功", m)
}

func (mc *ModelController) Get(ctx *gin.Context) {
	id := ctx.Query("id")
	if id == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少id")
		return
	}
	m, err := mc.modelService.GetByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrModelNotFound) {
			response.NotFoundError(ctx, errcode.NotFoundError, "模型配置不存在")
			return
		}
		response.InternalError(ctx, errcode.InternalServerError, "获取模型配置失败")
		return
	}
	response.Success(ctx, m)
}

func (mc *ModelController) Delete(ctx *gin.Context) {
	id := ctx.Query("id")
	if id == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少id")
		return
	}
	if err := mc.modelService.Delete(ctx.Request.Context(), id); err != nil {
		response.InternalError(ctx, errcode.InternalServerError, "删除模型配置失败")
		return
	}
	response.SuccessWithMessage(ctx, "删除模型配置成功", nil)
}

func (mc *ModelController) Page(ctx *gin.Context) {
	page, pageSize, err := utils.ParsePaginationParams(ctx)
	if err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "分页参数错误")
		return
	}
	modelType := ctx.Query("type")

	models, total, err := mc.modelService.PageList(ctx.Request.Context(), modelType, page, pageSize)
	if err != nil {
		response.InternalError(ctx, errcode.InternalServerError, "获取模型列表失败")
		return
	}
	response.PageSuccess(ctx, models, total)
}
