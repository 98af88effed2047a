package handler

import (
	"strconv"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/dto"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/consts"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/response"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/util"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestSvc service.RequestService
}

func NewRequestHandler(requestSvc service.RequestService) *RequestHandler {
	return &RequestHandler{requestSvc: requestSvc}
}

// Create 客户提交服务申请
func (s *RequestHandler) Create(c *gin.Context) {
	var reqDTO dto.CreateRequestDTO
	if err := c.ShouldBind(&reqDTO); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&reqDTO); err != nil {
		response.Error(c, err)
		return
	}
	userID := c.GetUint64("user_id")
	res, err := s.requestSvc.CreateRequest(c.Request.Context(), userID, &reqDTO)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *RequestHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	userID := c.GetUint64("user_id")
	res, err := s.requestSvc.GetRequest(c.Request.Context(), userID, isStaff(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *RequestHandler) ListMine(c *gin.Context) {
	userID := c.GetUint64("user_id")
	res, err := s.requestSvc.ListMyRequests(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// List 后台按状态分页查询
func (s *RequestHandler) List(c *gin.Context) {
	status := c.Query("status")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := s.requestSvc.ListRequests(c.Request.Context(), status, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Search 后台全文检索
func (s *RequestHandler) Search(c *gin.Context) {
	var searchDTO dto.SearchRequestDTO
	if err := c.ShouldBindQuery(&searchDTO); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&searchDTO); err != nil {
		response.Error(c, err)
		return
	}
	res, err := s.requestSvc.SearchRequests(c.Request.Context(), &searchDTO)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// UpdateStatus 后台申请单状态流转
func (s *RequestHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	var statusDTO dto.UpdateRequestStatusDTO
	if err := c.ShouldBind(&statusDTO); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&statusDTO); err != nil {
		response.Error(c, err)
		return
	}
	if err := s.requestSvc.UpdateStatus(c.Request.Context(), id, statusDTO.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func isStaff(c *gin.Context) bool {
	for _, role := range c.GetStringSlice("roles") {
		if role == consts.RoleOperator || role == consts.RoleAdmin {
			return true
		}
	}
	return false
}
