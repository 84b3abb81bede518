package request

import (
	"strings"

	"redaxion/backend/internal/app/domains/entity/etorder"
	"redaxion/backend/internal/app/domains/services/svorder"
)

// SubmitOrderRequest 下单请求（multipart form 字段部分，源文件单独取）
type SubmitOrderRequest struct {
	CustomerName  string `form:"customer_name" binding:"required,max=120"`
	CustomerEmail string `form:"customer_email" binding:"required,email"`
	ServiceType   string `form:"service_type" binding:"required,oneof=transcription exam meeting"`
	Gateway       string `form:"gateway" binding:"required,oneof=flow mercadopago"`
	DiscountCode  string `form:"discount_code"`

	SourceURL string `form:"source_url"` // 已上传文件的 URL（与 file 二选一）

	Color    string `form:"color"`
	Columns  string `form:"columns"`
	TextOnly bool   `form:"text_only"`
	Language string `form:"language"`

	QuestionCount int `form:"question_count" binding:"omitempty,min=1,max=50"`
	Difficulty    int `form:"difficulty" binding:"omitempty,min=1,max=10"`

	Attendees string `form:"attendees"` // 逗号分隔
}

// ToSubmitParams 转换为服务层下单参数（源文件由 handler 填入）
func (r *SubmitOrderRequest) ToSubmitParams(file *svorder.FileUpload) *svorder.SubmitRequest {
	var attendees []string
	for _, a := range strings.Split(r.Attendees, ",") {
		if trimmed := strings.TrimSpace(a); trimmed != "" {
			attendees = append(attendees, trimmed)
		}
	}

	return &svorder.SubmitRequest{
		CustomerName:  strings.TrimSpace(r.CustomerName),
		CustomerEmail: strings.TrimSpace(r.CustomerEmail),
		ServiceType:   etorder.ServiceType(r.ServiceType),
		Gateway:       r.Gateway,
		DiscountCode:  r.DiscountCode,
		File:          file,
		SourceURL:     strings.TrimSpace(r.SourceURL),
		Color:         r.Color,
		Columns:       r.Columns,
		TextOnly:      r.TextOnly,
		Language:      r.Language,
		QuestionCount: r.QuestionCount,
		Difficulty:    r.Difficulty,
		Attendees:     attendees,
	}
}
