package pipeline

import (
	"context"
	"fmt"
	"strings"

	"redaxion/backend/internal/app/domains/entity/etorder"
	"redaxion/backend/internal/app/pkg/logger"
)

const minutesSystemPrompt = "Eres un secretario ejecutivo experto en actas de reuniones. " +
	"Redactas minutas claras y accionables en español."

const minutesPromptTemplate = `A partir de la siguiente transcripción de una reunión, redacta la minuta.

ESTRUCTURA:
1. Resumen ejecutivo (máximo 5 líneas)
2. Temas tratados
3. Decisiones tomadas
4. Compromisos y responsables
5. Próximos pasos
%s
TRANSCRIPCIÓN:
%s`

// MeetingPipeline 会议纪要流水线：
// 音频转写 → AI 纪要 → 渲染上传。产物：会议纪要 PDF。
type MeetingPipeline struct {
	transcriber Transcriber
	generator   TextGenerator
	renderer    Renderer
	store       FileStore
	logger      logger.Logger
}

// NewMeetingPipeline 创建会议纪要流水线
func NewMeetingPipeline(t Transcriber, g TextGenerator, r Renderer, s FileStore, log logger.Logger) *MeetingPipeline {
	return &MeetingPipeline{transcriber: t, generator: g, renderer: r, store: s, logger: log}
}

// Name 流水线名
func (p *MeetingPipeline) Name() string {
	return "meeting"
}

// Run 执行流水线
func (p *MeetingPipeline) Run(ctx context.Context, order *etorder.Order) *Result {
	input := order.Input.Meeting
	if input == nil {
		return Failure("meeting input is missing")
	}

	// 1. 转写
	transcript, err := p.transcriber.Transcribe(ctx, input.AudioURL, input.Language)
	if err != nil {
		return Failure(fmt.Sprintf("transcribe: %v", err))
	}

	// 2. AI 纪要
	attendeesLine := ""
	if len(input.Attendees) > 0 {
		attendeesLine = fmt.Sprintf("\nASISTENTES: %s\n", strings.Join(input.Attendees, ", "))
	}
	minutes, err := p.generator.Complete(ctx, minutesSystemPrompt,
		fmt.Sprintf(minutesPromptTemplate, attendeesLine, transcript))
	if err != nil {
		return Failure(fmt.Sprintf("minutes generation: %v", err))
	}

	// 3. 渲染上传
	name := fmt.Sprintf("RedaActa - N%s.pdf", order.ID)
	html, err := BuildDocumentHTML("Acta de Reunión", minutes, "grafito", "una")
	if err != nil {
		return Failure(fmt.Sprintf("minutes document: %v", err))
	}
	pdf, err := p.renderer.HTMLToPDF(ctx, html)
	if err != nil {
		return Failure(fmt.Sprintf("render minutes: %v", err))
	}
	url, err := p.store.Upload(ctx, fmt.Sprintf("orders/%s/%s", order.ID, name), pdf, "application/pdf")
	if err != nil {
		return Failure(fmt.Sprintf("upload minutes: %v", err))
	}

	return &Result{
		Success: true,
		Artifacts: []etorder.Artifact{{
			Name: name, URL: url, ContentType: "application/pdf", SizeBytes: int64(len(pdf)),
		}},
	}
}
