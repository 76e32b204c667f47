// Package jobform holds the benchmark-job form state: conditional field
// visibility, validation, and defaulting, producing the payload submitted to
// the backend.
package jobform

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ymghtzz/LMeterX-sub000/pkg/models"
)

// ChatCompletionsPath is the default OpenAI-compatible endpoint. Jobs
// targeting a chat-completions path get a builtin field mapping and payload
// template; any other path is a custom endpoint and requires explicit
// mapping.
const ChatCompletionsPath = "/v1/chat/completions"

// chatCompletionsSuffix recognizes the standard endpoint regardless of the
// gateway's version prefix ("/chat/completions", "/v1/chat/completions",
// "/openai/v1/chat/completions").
const chatCompletionsSuffix = "/chat/completions"

// Cert modes for https targets.
const (
	CertModeNone     = ""
	CertModeCombined = "combined" // single PEM with cert and key
	CertModeSeparate = "separate" // distinct cert and key files
)

// dotPathPattern validates field-mapping paths like "choices.0.delta.content".
var dotPathPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)

var errValidation = errors.New("form validation failed")

// Form is the job creation form. Struct tags cover per-field rules;
// Validate adds the cross-field and conditional ones.
type Form struct {
	Name       string `validate:"required,max=120"`
	TargetHost string `validate:"required,url"`
	APIPath    string `validate:"required,startswith=/"`
	Model      string `validate:"required,max=200"`

	StreamMode     bool
	RequestPayload string
	Headers        []models.Header
	FieldMapping   models.FieldMapping

	DurationSeconds int `validate:"required,min=10,max=86400"`
	ConcurrentUsers int `validate:"required,min=1,max=5000"`
	// SpawnRate of zero means "not set"; Normalize syncs it to
	// ConcurrentUsers.
	SpawnRate int `validate:"omitempty,min=1,max=5000"`

	// ChatType 0 uses builtin prompts; 1 uses an uploaded dataset.
	ChatType      int `validate:"oneof=0 1"`
	DatasetSource string

	CertMode string
	CertFile string
	KeyFile  string
}

// Field names used by visibility reporting.
const (
	FieldRequestPayload = "request_payload"
	FieldFieldMapping   = "field_mapping"
	FieldDatasetSource  = "dataset_source"
	FieldCertConfig     = "cert_config"
)

// IsCustomEndpoint reports whether the form targets something other than a
// standard chat-completions path.
func (f *Form) IsCustomEndpoint() bool {
	return f.APIPath != "" && !strings.HasSuffix(f.APIPath, chatCompletionsSuffix)
}

// IsHTTPS reports whether the target host uses TLS.
func (f *Form) IsHTTPS() bool {
	return strings.HasPrefix(strings.ToLower(f.TargetHost), "https://")
}

// VisibleFields returns the conditional fields currently shown, keyed by
// field name. Hidden fields are neither validated nor submitted.
func (f *Form) VisibleFields() map[string]bool {
	return map[string]bool{
		FieldRequestPayload: f.IsCustomEndpoint(),
		FieldFieldMapping:   f.IsCustomEndpoint(),
		FieldDatasetSource:  f.ChatType == 1,
		FieldCertConfig:     f.IsHTTPS(),
	}
}

// Normalize fills derived defaults. Notably the spawn-rate auto-sync: when
// the user leaves it unset, it tracks the concurrency level.
func (f *Form) Normalize() {
	if f.APIPath == "" {
		f.APIPath = ChatCompletionsPath
	}
	if f.SpawnRate == 0 {
		f.SpawnRate = f.ConcurrentUsers
	}
	if !f.IsCustomEndpoint() {
		// Builtin mapping for the OpenAI-compatible response shape.
		f.FieldMapping = models.FieldMapping{
			Content:          "choices.0.delta.content",
			ReasoningContent: "choices.0.delta.reasoning_content",
			StopFlag:         "choices.0.finish_reason",
			StopValue:        "stop",
			StreamPrefix:     "data:",
		}
		if !f.StreamMode {
			f.FieldMapping.Content = "choices.0.message.content"
			f.FieldMapping.ReasoningContent = "choices.0.message.reasoning_content"
		}
	}
	if !f.IsHTTPS() {
		f.CertMode = CertModeNone
		f.CertFile = ""
		f.KeyFile = ""
	}
}

// Validate runs per-field tag validation plus the conditional rules for the
// currently visible fields. Call Normalize first.
func (f *Form) Validate() error {
	if err := validator.New().Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s violates rule %q", errValidation, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", errValidation, err)
	}

	visible := f.VisibleFields()

	if visible[FieldRequestPayload] {
		if strings.TrimSpace(f.RequestPayload) == "" {
			return fmt.Errorf("%w: request payload is required for custom endpoints", errValidation)
		}
	}

	if visible[FieldFieldMapping] {
		if err := f.validateFieldMapping(); err != nil {
			return err
		}
	}

	if visible[FieldDatasetSource] && strings.TrimSpace(f.DatasetSource) == "" {
		return fmt.Errorf("%w: a dataset source is required when chat type is custom", errValidation)
	}

	if visible[FieldCertConfig] {
		if err := f.validateCertConfig(); err != nil {
			return err
		}
	}

	return nil
}

func (f *Form) validateFieldMapping() error {
	required := map[string]string{
		"content":   f.FieldMapping.Content,
		"stop_flag": f.FieldMapping.StopFlag,
	}
	for name, path := range required {
		if path == "" {
			return fmt.Errorf("%w: field mapping %s is required for custom endpoints", errValidation, name)
		}
	}

	optional := map[string]string{
		"content":           f.FieldMapping.Content,
		"stop_flag":         f.FieldMapping.StopFlag,
		"prompt":            f.FieldMapping.Prompt,
		"reasoning_content": f.FieldMapping.ReasoningContent,
	}
	for name, path := range optional {
		if path != "" && !dotPathPattern.MatchString(path) {
			return fmt.Errorf("%w: field mapping %s is not a dot-separated path: %q", errValidation, name, path)
		}
	}
	return nil
}

func (f *Form) validateCertConfig() error {
	switch f.CertMode {
	case CertModeNone:
		return nil
	case CertModeCombined:
		if f.CertFile == "" {
			return fmt.Errorf("%w: combined cert mode requires a cert file", errValidation)
		}
	case CertModeSeparate:
		if f.CertFile == "" || f.KeyFile == "" {
			return fmt.Errorf("%w: separate cert mode requires both cert and key files", errValidation)
		}
	default:
		return fmt.Errorf("%w: unknown cert mode %q", errValidation, f.CertMode)
	}
	return nil
}

// BuildJob normalizes and validates the form, then produces the task
// creation payload.
func (f *Form) BuildJob() (*models.BenchmarkJob, error) {
	f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	job := &models.BenchmarkJob{
		Name:            f.Name,
		TargetHost:      f.TargetHost,
		APIPath:         f.APIPath,
		Model:           f.Model,
		StreamMode:      f.StreamMode,
		Headers:         f.Headers,
		FieldMapping:    f.FieldMapping,
		DurationSeconds: f.DurationSeconds,
		ConcurrentUsers: f.ConcurrentUsers,
		SpawnRate:       f.SpawnRate,
		ChatType:        f.ChatType,
	}

	visible := f.VisibleFields()
	if visible[FieldRequestPayload] {
		job.RequestPayload = f.RequestPayload
	}
	if visible[FieldDatasetSource] {
		job.DatasetSource = f.DatasetSource
	}
	if visible[FieldCertConfig] && f.CertMode != CertModeNone {
		job.CertConfig = models.CertConfig{
			CertType: f.CertMode,
			CertFile: f.CertFile,
			KeyFile:  f.KeyFile,
		}
	}

	return job, nil
}
