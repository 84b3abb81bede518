package request

// ForceStatusRequest 管理员强制改状态请求
type ForceStatusRequest struct {
	Status   string `json:"status" binding:"required,oneof=PENDING PAID PROCESSING COMPLETED ERROR FAILED CANCELLED"`
	Operator string `json:"operator" binding:"required,max=120"`
}

// CreateDiscountRequest 创建折扣码请求
type CreateDiscountRequest struct {
	Code            string `json:"code" binding:"required,max=40"`
	DiscountPercent int    `json:"discount_percent" binding:"required,min=1,max=100"`
	MaxUses         *int   `json:"max_uses" binding:"omitempty,min=1"`
	ExpiresAt       string `json:"expires_at"` // RFC3339，空表示不过期
}
