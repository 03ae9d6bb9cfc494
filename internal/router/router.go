package router

import (
	"kb-engine/internal/controller"

	"github.com/gin-gonic/gin"
)

func SetUpRouters(r *gin.Engine, fc *controller.FileController, kc *controller.KBController, tc *controller.TaskController, mc *controller.ModelController) {
	api := r.Group("/api")
	{
		files := api.Group("/files")
		{
			files.POST("/upload", fc.Upload)
			files.GET("/page", fc.PageList)
			files.GET("/download", fc.Download)
			files.DELETE("/delete", fc.Delete)
		}

		kb := api.Group("/knowledge")
		{
			// KB
			kb.POST("/create", kc.Create)
			kb.DELETE("/delete", kc.Delete)
			kb.GET("/page", kc.PageList)
			kb.GET("/detail", kc.GetKBDetail)
			// Doc
			kb.POST("/add", kc.AddDocument)
			kb.POST("/reparse", kc.Reparse)
			kb.GET("/docPage", kc.DocPage)
			kb.POST("/docDelete", kc.DeleteDocs)
			// RAG
			kb.POST("/retrieve", kc.Retrieve)
		}

		tasks := api.Group("/tasks")
		{
			tasks.GET("/status", tc.GetStatus)
			tasks.POST("/cancel", tc.Cancel)
			tasks.GET("/page", tc.PageByKB)
			tasks.GET("/byDoc", tc.ListByDocument)
		}

		model := api.Group("/model")
		{
			model.POST("/create", mc.Create)
			model.DELETE("/delete", mc.Delete)
			model.GET("/get", mc.Get)
			model.GET("/page", mc.Page)
		}
	}
}
