package pipeline

import (
	"context"
	"fmt"

	"redaxion/backend/internal/app/domains/entity/etorder"
	"redaxion/backend/internal/app/pkg/logger"
)

const rewriteSystemPrompt = "Eres un editor profesional. Mejoras la redacción de transcripciones " +
	"manteniendo fielmente el contenido, en español."

const rewritePromptTemplate = `Mejora la redacción del siguiente texto transcrito.
Corrige puntuación y estructura en párrafos, sin inventar contenido nuevo.

TEXTO:
%s`

const quizSystemPrompt = "Eres un experto en redacción de exámenes para estudiantes. " +
	"Generas preguntas con base en el contenido dado."

const quizPromptTemplate = `A partir del siguiente texto, genera 14 preguntas de práctica para reforzar el aprendizaje.

REQUISITOS:
- Cada pregunta debe tener 5 alternativas (A-E), con solo una correcta
- Alta complejidad (dificultad 8-9 de 10)
- Incluye al final la sección SOLUCIONARIO con las 14 respuestas justificadas

Escribe todo en español.

TEXTO:
%s`

// TranscriptionPipeline 转写流水线：
// 音频转写 → AI 改写 → 渲染学习文档 → 生成复习 Quiz → 渲染 Quiz → 上传产物。
// 产物：转写原文 txt、学习文档 PDF、Quiz PDF（TextOnly 时省略 Quiz）。
type TranscriptionPipeline struct {
	transcriber Transcriber
	generator   TextGenerator
	renderer    Renderer
	store       FileStore
	logger      logger.Logger
}

// NewTranscriptionPipeline 创建转写流水线
func NewTranscriptionPipeline(t Transcriber, g TextGenerator, r Renderer, s FileStore, log logger.Logger) *TranscriptionPipeline {
	return &TranscriptionPipeline{transcriber: t, generator: g, renderer: r, store: s, logger: log}
}

// Name 流水线名
func (p *TranscriptionPipeline) Name() string {
	return "transcription"
}

// Run 执行流水线
func (p *TranscriptionPipeline) Run(ctx context.Context, order *etorder.Order) *Result {
	input := order.Input.Transcription
	if input == nil {
		return Failure("transcription input is missing")
	}

	// 1. 转写
	transcript, err := p.transcriber.Transcribe(ctx, input.AudioURL, input.Language)
	if err != nil {
		return Failure(fmt.Sprintf("transcribe: %v", err))
	}
	p.logger.Infof(ctx, "transcription completed, chars=%d", len(transcript))

	// 2. AI 改写
	improved, err := p.generator.Complete(ctx, rewriteSystemPrompt, fmt.Sprintf(rewritePromptTemplate, transcript))
	if err != nil {
		return Failure(fmt.Sprintf("rewrite: %v", err))
	}

	artifacts := make([]etorder.Artifact, 0, 3)

	// 3. 上传转写原文
	txtName := fmt.Sprintf("RedaXion - N%s.txt", order.ID)
	txtURL, err := p.store.Upload(ctx, fmt.Sprintf("orders/%s/%s", order.ID, txtName), []byte(transcript), "text/plain; charset=utf-8")
	if err != nil {
		return Failure(fmt.Sprintf("upload transcript: %v", err))
	}
	artifacts = append(artifacts, etorder.Artifact{
		Name: txtName, URL: txtURL, ContentType: "text/plain; charset=utf-8", SizeBytes: int64(len(transcript)),
	})

	// 4. 渲染学习文档
	docName := fmt.Sprintf("RedaXion - N%s.pdf", order.ID)
	docArtifact, err := p.renderAndUpload(ctx, order.ID, docName, "RedaXion", improved, input.Color, input.Columns)
	if err != nil {
		return Failure(fmt.Sprintf("document: %v", err))
	}
	artifacts = append(artifacts, *docArtifact)

	// 5. Quiz（仅文本交付时省略）
	if !input.TextOnly {
		quiz, err := p.generator.Complete(ctx, quizSystemPrompt, fmt.Sprintf(quizPromptTemplate, improved))
		if err != nil {
			return Failure(fmt.Sprintf("quiz generation: %v", err))
		}
		quizName := fmt.Sprintf("RedaQuiz - N%s.pdf", order.ID)
		quizArtifact, err := p.renderAndUpload(ctx, order.ID, quizName, "RedaQuiz", quiz, input.Color, input.Columns)
		if err != nil {
			return Failure(fmt.Sprintf("quiz: %v", err))
		}
		artifacts = append(artifacts, *quizArtifact)
	}

	return &Result{Success: true, Artifacts: artifacts}
}

// renderAndUpload HTML 排版 → PDF 渲染 → 上传
func (p *TranscriptionPipeline) renderAndUpload(ctx context.Context, orderID, name, title, text, color, columns string) (*etorder.Artifact, error) {
	html, err := BuildDocumentHTML(title, text, color, columns)
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
