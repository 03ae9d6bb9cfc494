package controller

import (
	"errors"

	"kb-engine/internal/model"
	"kb-engine/internal/retrieval"
	"kb-engine/internal/service"
	"kb-engine/internal/utils"
	"kb-engine/internal/vector"
	"kb-engine/pkgs/errcode"
	"kb-engine/pkgs/response"

	"github.com/gin-gonic/gin"
)

type KBController struct {
	kbService *service.KBService
	engine    *retrieval.Engine
}

func NewKBController(kbService *service.KBService, engine *retrieval.Engine) *KBController {
	return &KBController{kbService: kbService, engine: engine}
}

func (kc *KBController) Create(ctx *gin.Context) {
	var req model.CreateKBRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误")
		return
	}

	kb, err := kc.kbService.CreateKB(ctx.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrBindingInvalid) {
			response.ParamError(ctx, errcode.KBCreateFailed, err.Error())
			return
		}
		response.InternalError(ctx, errcode.KBCreateFailed, "创建知识库失败")
		return
	}
	response.SuccessWithMessage(ctx, "创建知识库成功", kb)
}

func (kc *KBController) Delete(ctx *gin.Context) {
	kbID := ctx.Query("kb_id")
	if kbID == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少kb_id")
		return
	}
	if err := kc.kbService.DeleteKB(ctx.Request.Context(), kbID); err != nil {
		if errors.Is(err, service.ErrKBNotFound) {
			response.NotFoundError(ctx, errcode.KBNotFound, "知识库不存在")
			return
		}
		response.InternalError(ctx, errcode.InternalServerError, "删除知识库失败")
		return
	}
	response.SuccessWithMessage(ctx, "删除知识库成功", nil)
}

func (kc *KBController) PageList(ctx *gin.Context) {
	page, pageSize, err := utils.ParsePaginationParams(ctx)
	if err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "分页参数错误")
		return
	}

	kbs, total, err := kc.kbService.PageList(ctx.Request.Context(), page, pageSize)
	if err != nil {
		response.InternalError(ctx, errcode.InternalServerError, "获取知识库列表失败")
		return
	}
	response.PageSuccess(ctx, kbs, total)
}

func (kc *KBController) GetKBDetail(ctx *gin.Context) {
	kbID := ctx.Query("kb_id")
	if kbID == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少kb_id")
		return
	}
	kb, err := kc.kbService.GetKBDetail(ctx.Request.Context(), kbID)
	if err != nil {
		if errors.Is(err, service.ErrKBNotFound) {
			response.NotFoundError(ctx, errcode.KBNotFound, "知识库不存在")
			return
		}
		response.InternalError(ctx, errcode.InternalServerError, "获取知识库失败")
		return
	}
	response.Success(ctx, kb)
}

// AddDocument 将已上传的文件加入知识库并触发异步解析
func (kc *KBController) AddDocument(ctx *gin.Context) {
	var req model.AddDocumentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误")
		return
	}

	doc, task, err := kc.kbService.AddDocument(ctx.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrKBNotFound):
			response.NotFoundError(ctx, errcode.KBNotFound, "知识库不存在")
		case errors.Is(err, service.ErrFileNotFound):
			response.NotFoundError(ctx, errcode.NotFoundError, "文件不存在")
		case errors.Is(err, service.ErrDuplicateDocument):
			response.ParamError(ctx, errcode.ParamBindError, "文件已存在于该知识库")
		default:
			response.InternalError(ctx, errcode.TaskEnqueueFailed, "添加文档失败")
		}
		return
	}

	response.SuccessWithMessage(ctx, "文档已提交解析", gin.H{
		"document": doc,
		"task_id":  task.ID,
	})
}

// Reparse 使用新的分块配置重新解析文档
func (kc *KBController) Reparse(ctx *gin.Context) {
	var req model.ReparseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误")
		return
	}

	task, err := kc.kbService.ReparseDocument(ctx.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocNotFound):
			response.NotFoundError(ctx, errcode.NotFoundError, "文档不存在")
		case errors.Is(err, service.ErrDocBusy):
			response.ParamError(ctx, errcode.ParamBindError, "文档正在解析中")
		default:
			response.InternalError(ctx, errcode.TaskEnqueueFailed, "重新解析失败")
		}
		return
	}
	response.SuccessWithMessage(ctx, "文档已提交重新解析", gin.H{"task_id": task.ID})
}

func (kc *KBController) DocPage(ctx *gin.Context) {
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

	docs, total, err := kc.kbService.ListDocs(ctx.Request.Context(), kbID, page, pageSize)
	if err != nil {
		if errors.Is(err, service.ErrKBNotFound) {
			response.NotFoundError(ctx, errcode.KBNotFound, "知识库不存在")
			return
		}
		response.InternalError(ctx, errcode.InternalServerError, "获取文档列表失败")
		return
	}
	response.PageSuccess(ctx, docs, total)
}

func (kc *KBController) DeleteDocs(ctx *gin.Context) {
	var req model.BatchDeleteDocsReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误")
		return
	}
	if err := kc.kbService.DeleteDocs(ctx.Request.Context(), &req); err != nil {
		response.InternalError(ctx, errcode.InternalServerError, "删除文档失败")
		return
	}
	response.SuccessWithMessage(ctx, "删除文档成功", nil)
}

// Retrieve 跨知识库两阶段检索
func (kc *KBController) Retrieve(ctx *gin.Context) {
	var req model.RetrieveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误")
		return
	}

	resp, err := kc.engine.Retrieve(ctx.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, retrieval.ErrInvalidQuery):
			response.ParamError(ctx, errcode.ParamBindError, err.Error())
		case errors.Is(err, service.ErrBindingInvalid), errors.Is(err, vector.ErrDimensionMismatch):
			// 配置错误，重试无意义
			response.InternalError(ctx, errcode.RetrieveConfigError, err.Error())
		default:
			// 瞬时错误，客户端可重试
			response.ServiceUnavailableError(ctx, errcode.RetrieveTransientError, "检索服务暂不可用")
		}
		return
	}
	response.Success(ctx, resp)
}
