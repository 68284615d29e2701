package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/quillmind-ai/quillmind/app/logic/v1"
	"github.com/quillmind-ai/quillmind/app/response"
	"github.com/quillmind-ai/quillmind/pkg/utils"
)

type ListKnowledgeRequest struct {
	Category string `json:"category" form:"category"`
	Keywords string `json:"keywords" form:"keywords"`
	Page     uint64 `json:"page" form:"page" binding:"required"`
	PageSize uint64 `json:"pagesize" form:"pagesize" binding:"required,lte=50"`
}

func (s *HttpSrv) ListKnowledge(c *gin.Context) {
	var req ListKnowledgeRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	list, total, err := v1.NewKnowledgeLogic(c, s.Core).ListKnowledges(req.Category, req.Keywords, req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, response.ListResult{
		List:  list,
		Total: total,
	})
}

func (s *HttpSrv) GetKnowledge(c *gin.Context) {
	id, _ := c.Params.Get("id")

	data, err := v1.NewKnowledgeLogic(c, s.Core).GetKnowledge(id)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, data)
}

func (s *HttpSrv) ListKnowledgeCategories(c *gin.Context) {
	categories, err := v1.NewKnowledgeLogic(c, s.Core).ListCategories()
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, categories)
}

type ListKnowledgeFilesRequest struct {
	Status   string `json:"status" form:"status"`
	Keywords string `json:"keywords" form:"keywords"`
	Page     uint64 `json:"page" form:"page" binding:"required"`
	PageSize uint64 `json:"pagesize" form:"pagesize" binding:"required,lte=50"`
}

func (s *HttpSrv) ListKnowledgeFiles(c *gin.Context) {
	var req ListKnowledgeFilesRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	list, total, err := v1.NewKnowledgeLogic(c, s.Core).ListFiles(req.Status, req.Keywords, req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, response.ListResult{
		List:  list,
		Total: uint64(total),
	})
}

func (s *HttpSrv) DeleteKnowledgeFile(c *gin.Context) {
	fileID, _ := c.Params.Get("fileid")

	if err := v1.NewKnowledgeLogic(c, s.Core).DeleteByFileID(fileID); err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nil)
}
