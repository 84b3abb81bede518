package errorx

import "errors"

// 定义业务错误
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrDuplicateOrder     = errors.New("duplicate order")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrUnknownGateway     = errors.New("unknown payment gateway")
	ErrUnknownServiceType = errors.New("unknown service type")
	ErrOrderNotRetryable  = errors.New("order is not in a retryable state")
	ErrDiscountNotFound   = errors.New("discount code not found")
	ErrDiscountInactive   = errors.New("discount code is inactive")
	ErrDiscountExhausted  = errors.New("discount code has no uses left")
	ErrDiscountExpired    = errors.New("discount code expired")
	ErrRunnerClosed       = errors.New("task runner is shut down")
)

// BusinessError 业务错误结构
type BusinessError struct {
	Code    int
	Message string
	Details []ErrorDetail
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Path string
	Info string
}

// Error 实现 error 接口
func (e *BusinessError) Error() string {
	return e.Message
}

// NewBusinessError 创建业务错误
func NewBusinessError(code int, message string) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
	}
}
