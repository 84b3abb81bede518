package pipeline

import (
	"context"
	"fmt"
	"strings"

	"redaxion/backend/internal/app/domains/entity/etorder"
	"redaxion/backend/internal/app/pkg/logger"
)

const examSystemPrompt = "Eres un experto en redacción de exámenes universitarios. " +
	"Generas evaluaciones rigurosas a partir del material entregado."

const examPromptTemplate = `A partir del siguiente material de estudio, genera un examen de %d preguntas
de selección múltiple (5 alternativas A-E, una correcta), dificultad %d de 10.

Responde en dos secciones separadas por la línea "=== PAUTA ===":
primero el examen sin respuestas, luego la pauta con cada respuesta justificada.

Escribe todo en español.

MATERIAL:
%s`

// examSectionSeparator AI 输出中试卷与答案的分隔线
const examSectionSeparator = "=== PAUTA ==="

// maxExamSourceChars 提取文本送入 AI 的长度上限
const maxExamSourceChars = 100000

// ExamPipeline 试卷流水线：
// 提取 PDF 讲义文本 → AI 出题 → 拆分试卷/答案 → 分别渲染上传。
// 产物：试卷 PDF、答案解析 PDF。
type ExamPipeline struct {
	extractor DocumentExtractor
	generator TextGenerator
	renderer  Renderer
	store     FileStore
	logger    logger.Logger
}

// NewExamPipeline 创建试卷流水线
func NewExamPipeline(e DocumentExtractor, g TextGenerator, r Renderer, s FileStore, log logger.Logger) *ExamPipeline {
	return &ExamPipeline{extractor: e, generator: g, renderer: r, store: s, logger: log}
}

// Name 流水线名
func (p *ExamPipeline) Name() string {
	return "exam"
}

// Run 执行流水线
func (p *ExamPipeline) Run(ctx context.Context, order *etorder.Order) *Result {
	input := order.Input.Exam
	if input == nil {
		return Failure("exam input is missing")
	}

	questionCount := input.QuestionCount
	if questionCount <= 0 {
		questionCount = 14
	}
	difficulty := input.Difficulty
	if difficulty <= 0 {
		difficulty = 8
	}

	// 1. 提取讲义文本
	source, err := p.extractor.ExtractText(ctx, input.DocumentURL)
	if err != nil {
		return Failure(fmt.Sprintf("extract document: %v", err))
	}
	if len(source) > maxExamSourceChars {
		source = source[:maxExamSourceChars]
	}
	p.logger.Infof(ctx, "exam source extracted, chars=%d", len(source))

	// 2. AI 出题
	generated, err := p.generator.Complete(ctx, examSystemPrompt,
		fmt.Sprintf(examPromptTemplate, questionCount, difficulty, source))
	if err != nil {
		return Failure(fmt.Sprintf("exam generation: %v", err))
	}

	examText, answerText := splitExamSections(generated)

	// 3. 渲染并上传试卷与答案
	examArtifact, err := p.renderAndUpload(ctx, order.ID,
		fmt.Sprintf("RedaExam - N%s.pdf", order.ID), "RedaExam", examText, input.Color)
	if err != nil {
		return Failure(fmt.Sprintf("exam document: %v", err))
	}

	answerArtifact, err := p.renderAndUpload(ctx, order.ID,
		fmt.Sprintf("RedaExam Pauta - N%s.pdf", order.ID), "RedaExam - Pauta", answerText, input.Color)
	if err != nil {
		return Failure(fmt.Sprintf("answer key document: %v", err))
	}

	return &Result{Success: true, Artifacts: []etorder.Artifact{*examArtifact, *answerArtifact}}
}

// splitExamSections 拆分试卷与答案；AI 未按约定分隔时答案退化为全文
func splitExamSections(generated string) (exam, answers string) {
	parts := strings.SplitN(generated, examSectionSeparator, 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(generated), strings.TrimSpace(generated)
}

// renderAndUpload HTML 排版 → PDF 渲染 → 上传
func (p *ExamPipeline) renderAndUpload(ctx context.Context, orderID, name, title, text, color string) (*etorder.Artifact, error) {
	html, err := BuildDocumentHTML(title, text, color, "una")
	if err != nil {
		return nil, err
	}
	pdf, err := p.renderer.HTMLToPDF(ctx, html)
	if err != nil {
		return nil, err
	}
	url, err := p.store.Upload(ctx, fmt.Sprintf("orders/%s/%s", orderID, name), pdf, "application/pdf")
	if err != nil {
		return nil, err
	}
	return &etorder.Artifact{Name: name, URL: url, ContentType: "application/pdf", SizeBytes: int64(len(pdf))}, nil
}
