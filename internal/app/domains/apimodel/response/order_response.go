package response

import (
	"time"

	"redaxion/backend/internal/app/domains/entity/etorder"
)

// OrderResponse 订单响应（对外不暴露内部失败原因与支付凭证）
type OrderResponse struct {
	ID            string             `json:"id"`
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
	ServiceType   string             `json:"service_type"`
	Status        string             `json:"status"`
	Artifacts     []ArtifactResponse `json:"artifacts"`
	Gateway       string             `json:"gateway"`
	AmountCLP     int                `json:"amount_clp"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// ArtifactResponse 产物响应
type ArtifactResponse struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// SubmitOrderResponse 下单响应
type SubmitOrderResponse struct {
	OrderID     string `json:"order_id"`
	CheckoutURL string `json:"checkout_url"`
	AmountCLP   int    `json:"amount_clp"`
}

// FromOrderEntity 领域对象 → 响应模型
func FromOrderEntity(order *etorder.Order) *OrderResponse {
	artifacts := make([]ArtifactResponse, 0, len(order.Artifacts))
	for _, a := range order.Artifacts {
		artifacts = append(artifacts, ArtifactResponse{
			Name:        a.Name,
			URL:         a.URL,
			ContentType: a.ContentType,
			SizeBytes:   a.SizeBytes,
		})
	}

	return &OrderResponse{
		ID:            order.ID,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		ServiceType:   string(order.ServiceType),
		Status:        string(order.Status),
		Artifacts:     artifacts,
		Gateway:       order.Gateway,
		AmountCLP:     order.AmountCLP,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

// FromOrderEntities 批量转换
func FromOrderEntities(orders []*etorder.Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, FromOrderEntity(o))
	}
	return out
}
