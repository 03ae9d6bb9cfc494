package controller

import (
	"errors"
	"fmt"
	"net/http"

	"kb-engine/internal/service"
	"kb-engine/internal/utils"
	"kb-engine/pkgs/errcode"
	"kb-engine/pkgs/response"

	"github.com/gin-gonic/gin"
)

type FileController struct {
	fileService *service.FileService
}

func NewFileController(fileService *service.FileService) *FileController {
	return &FileController{fileService: fileService}
}

func (fc *FileController) Upload(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "上传失败")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ParamError(ctx, errcode.FileParseFailed, "上传失败")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	meta, err := fc.fileService.Upload(ctx.Request.Context(), fileHeader.Filename, fileHeader.Size, contentType, file)
	if err != nil {
		response.InternalError(ctx, errcode.FileUploadFailed, "上传失败")
		return
	}
	response.SuccessWithMessage(ctx, "文件上传成功", meta)
}

func (fc *FileController) PageList(ctx *gin.Context) {
	page, pageSize, err := utils.ParsePaginationParams(ctx)
	if err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "分页参数错误")
		return
	}
	files, total, err := fc.fileService.PageList(ctx.Request.Context(), page, pageSize)
	if err != nil {
		response.InternalError(ctx, errcode.InternalServerError, "获取文件列表失败")
		return
	}
	response.PageSuccess(ctx, files, total)
}

func (fc *FileController) Download(ctx *gin.Context) {
	fileID := ctx.Query("file_id")
	if fileID == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少file_id")
		return
	}

	meta, data, err := fc.fileService.Download(ctx.Request.Context(), fileID)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			response.NotFoundError(ctx, errcode.NotFoundError, "文件不存在")
			return
		}
		response.InternalError(ctx, errcode.FileDownloadFailed, "下载失败")
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, meta.Name))
	ctx.Data(http.StatusOK, meta.MIMEType, data)
}

func (fc *FileController) Delete(ctx *gin.Context) {
	fileID := ctx.Query("file_id")
	if fileID == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少file_id")
		return
	}
	if err := fc.fileService.Delete(ctx.Request.Context(), fileID); err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			response.NotFoundError(ctx, errcode.NotFoundError, "文件不存在")
			return
		}
		response.InternalError(ctx, errcode.InternalServerError, "删除失败")
		return
	}
	response.SuccessWithMessage(ctx, "删除成功", nil)
}
