package etorder

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ServiceType 服务类型，决定使用哪条生成流水线
type ServiceType string

const (
	ServiceTranscription ServiceType = "transcription" // 音频转写 + 复习 Quiz
	ServiceExam          ServiceType = "exam"          // 试卷生成 + 答案解析
	ServiceMeeting       ServiceType = "meeting"       // 会议纪要
)

// Valid 是否合法服务类型
func (s ServiceType) Valid() bool {
	switch s {
	case ServiceTranscription, ServiceExam, ServiceMeeting:
		return true
	}
	return false
}

var (
	ErrInputMismatch = errors.New("pipeline input does not match service type")
	ErrInputMissing  = errors.New("pipeline input is missing")
)

// PipelineInput 流水线输入（按 service_type 区分的 tagged union）
// 持久化为 JSON envelope：{"service_type": "...", "input": {...}}
type PipelineInput struct {
	ServiceType   ServiceType         `json:"service_type"`
	Transcription *TranscriptionInput `json:"transcription,omitempty"`
	Exam          *ExamInput          `json:"exam,omitempty"`
	Meeting       *MeetingInput       `json:"meeting,omitempty"`
}

// TranscriptionInput 转写服务参数
type TranscriptionInput struct {
	AudioURL string `json:"audio_url"`
	Color    string `json:"color"`     // 文档配色主题
	Columns  string `json:"columns"`   // 单栏/双栏排版
	TextOnly bool   `json:"text_only"` // 仅文本交付（不生成 Quiz）
	Language string `json:"language"`
}

// ExamInput 试卷生成参数
type ExamInput struct {
	DocumentURL   string `json:"document_url"` // 上传的 PDF 讲义
	QuestionCount int    `json:"question_count"`
	Difficulty    int    `json:"difficulty"` // 1-10
	Color         string `json:"color"`
}

// MeetingInput 会议纪要参数
type MeetingInput struct {
	AudioURL  string   `json:"audio_url"`
	Attendees []string `json:"attendees,omitempty"`
	Language  string   `json:"language"`
}

// Validate 校验 union：service_type 与非空变体必须一一对应
func (p *PipelineInput) Validate() error {
	if p == nil {
		return ErrInputMissing
	}
	switch p.ServiceType {
	case ServiceTranscription:
		if p.Transcription == nil || p.Exam != nil || p.Meeting != nil {
			return ErrInputMismatch
		}
		if p.Transcription.AudioURL == "" {
			return fmt.Errorf("%w: audio_url is required", ErrInputMismatch)
		}
	case ServiceExam:
		if p.Exam == nil || p.Transcription != nil || p.Meeting != nil {
			return ErrInputMismatch
		}
		if p.Exam.DocumentURL == "" {
			return fmt.Errorf("%w: document_url is required", ErrInputMismatch)
		}
	case ServiceMeeting:
		if p.Meeting == nil || p.Transcription != nil || p.Exam != nil {
			return ErrInputMismatch
		}
		if p.Meeting.AudioURL == "" {
			return fmt.Errorf("%w: audio_url is required", ErrInputMismatch)
		}
	default:
		return fmt.Errorf("unknown service type: %q", p.ServiceType)
	}
	return nil
}

// DecodePipelineInput 从持久化 JSON 还原 union 并校验
func DecodePipelineInput(raw []byte) (*PipelineInput, error) {
	var input PipelineInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decode pipeline input failed: %w", err)
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return &input, nil
}
