package pipeline

import (
	"context"

	"redaxion/backend/internal/app/domains/entity/etorder"
)

// Result 流水线执行结果
type Result struct {
	Success   bool
	Artifacts []etorder.Artifact
	Err       string // 失败时的内部描述（不暴露给客户）
}

// Failure 构造失败结果
func Failure(err string) *Result {
	return &Result{Success: false, Artifacts: []etorder.Artifact{}, Err: err}
}

// Pipeline 生成流水线。
// 对 Router 而言是不透明步骤：输入订单，产出 Result，跨边界永不 panic
//（panic 由 Router/TaskRunner 兜底转换为失败 Result）。
// 流水线之间不共享可变状态，多个订单可并发执行。
type Pipeline interface {
	Name() string
	Run(ctx context.Context, order *etorder.Order) *Result
}

// Registry service_type → pipeline 静态映射
type Registry struct {
	pipelines map[etorder.ServiceType]Pipeline
}

// NewRegistry 创建流水线注册表
func NewRegistry(transcription, exam, meeting Pipeline) *Registry {
	return &Registry{
		pipelines: map[etorder.ServiceType]Pipeline{
			etorder.ServiceTranscription: transcription,
			etorder.ServiceExam:          exam,
			etorder.ServiceMeeting:       meeting,
		},
	}
}

// Lookup 按服务类型查找流水线
func (r *Registry) Lookup(serviceType etorder.ServiceType) (Pipeline, bool) {
	p, ok := r.pipelines[serviceType]
	return p, ok
}

// 流水线步骤依赖的窄接口。实现在 pipeline/ 子包与 infra 层，
// 测试中用假实现替换。

// Transcriber 音频转写
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL, language string) (string, error)
}

// TextGenerator AI 文本生成（改写、出题、纪要）
type TextGenerator interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Renderer 文档渲染（HTML → PDF）
type Renderer interface {
	HTMLToPDF(ctx context.Context, html string) ([]byte, error)
}

// FileStore 产物文件存储
type FileStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// DocumentExtractor 从上传的 PDF 讲义提取文本
type DocumentExtractor interface {
	ExtractText(ctx context.Context, documentURL string) (string, error)
}
