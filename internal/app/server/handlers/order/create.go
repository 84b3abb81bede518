package order

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"redaxion/backend/internal/app/domains/apimodel/request"
	"redaxion/backend/internal/app/domains/apimodel/response"
	"redaxion/backend/internal/app/domains/services/svorder"
	"redaxion/backend/internal/app/pkg/errorx"
	"redaxion/backend/internal/app/pkg/ginx"
)

// Create 提交订单接口
// POST /api/v1/orders (multipart/form-data)
//
// 表单字段见 request.SubmitOrderRequest，源文件在 file 字段。
// 成功返回收银台跳转地址；网关不可用返回 502，订单保持 PENDING。
func (h *OrderHandler) Create(c *gin.Context) {
	var req request.SubmitOrderRequest
	if err := c.ShouldBind(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	file, err := h.readUpload(c)
	if err != nil {
		ginx.BadRequest(c, err.Error())
		return
	}
	if file == nil && req.SourceURL == "" {
		ginx.BadRequest(c, "either file or source_url is required")
		return
	}

	result, err := h.orderService.Submit(c.Request.Context(), req.ToSubmitParams(file))
	if err != nil {
		switch {
		case errors.Is(err, errorx.ErrUnknownGateway), errors.Is(err, errorx.ErrUnknownServiceType):
			ginx.BadRequest(c, err.Error())
		case errors.Is(err, errorx.ErrDiscountNotFound),
			errors.Is(err, errorx.ErrDiscountInactive),
			errors.Is(err, errorx.ErrDiscountExhausted),
			errors.Is(err, errorx.ErrDiscountExpired):
			ginx.BadRequest(c, err.Error())
		case errors.Is(err, errorx.ErrGatewayUnavailable):
			ginx.BadGateway(c, "payment gateway unavailable, please try again")
		default:
			h.logger.Errorf(c.Request.Context(), "submit order failed: %v", err)
			ginx.InternalError(c, "submit order failed")
		}
		return
	}

	ginx.Success(c, response.SubmitOrderResponse{
		OrderID:     result.OrderID,
		CheckoutURL: result.CheckoutURL,
		AmountCLP:   result.AmountCLP,
	})
}

// readUpload 读取 multipart 源文件（可选）
func (h *OrderHandler) readUpload(c *gin.Context) (*svorder.FileUpload, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		// 没有文件不是错误，source_url 是另一条路
		return nil, nil
	}
	if fileHeader.Size > maxUploadBytes {
		return nil, errors.New("uploaded file too large")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &svorder.FileUpload{
		Filename:    fileHeader.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}
