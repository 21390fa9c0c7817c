package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"chainreact/internal/llm"
	"chainreact/internal/nodes"
	"chainreact/pkg/errors"
	"chainreact/pkg/logger"
	"chainreact/pkg/metrics"
	"chainreact/pkg/tracing"
)

// Options control a single generation run.
type Options struct {
	// Model overrides the provider default for this run.
	Model string
	// Debug attaches prompts, the raw model response, and repair details
	// to the result without changing pipeline behavior.
	Debug bool
	// Strict rejects the run with a validation error when any repair or
	// unresolved violation remains, instead of returning them alongside
	// the workflow.
	Strict bool
	// ExtraSystemPrefix and ExtraUserSuffix let callers splice tenant
	// instructions around the synthesized prompts.
	ExtraSystemPrefix string
	ExtraUserSuffix   string
}

// DebugInfo carries the intermediate artifacts of one run.
type DebugInfo struct {
	SystemMessage    string            `json:"systemMessage"`
	UserMessage      string            `json:"userMessage"`
	RawResponse      string            `json:"rawResponse"`
	StructuralErrors []ValidationError `json:"structuralErrors,omitempty"`
	RepairErrors     []ValidationError `json:"repairErrors,omitempty"`
}

// Result is the outcome of a generation run. Errors lists everything the
// repair pass had to change destructively plus violations it could not fix;
// an empty list means the workflow satisfied every rule.
type Result struct {
	ID         string             `json:"id"`
	Workflow   *GeneratedWorkflow `json:"workflow"`
	Errors     []ValidationError  `json:"errors,omitempty"`
	Debug      *DebugInfo         `json:"debug,omitempty"`
	Model      string             `json:"model"`
	Mode       string             `json:"mode"`
	Usage      llm.Usage          `json:"usage"`
	DurationMS int64              `json:"durationMs"`
}

// Service runs the prompt-to-workflow pipeline: scenario detection, prompt
// synthesis, the model call, trigger override, repair, policies, and graph
// expansion.
type Service struct {
	registry *nodes.Registry
	client   llm.Client
	logger   logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(registry *nodes.Registry, client llm.Client, log logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		registry: registry,
		client:   client,
		logger:   log,
		metrics:  m,
		now:      time.Now,
	}
}

// WithClock pins the time source used for expansion identifiers. Tests use
// it to make generated node ids deterministic.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Generate turns a natural language prompt into a complete workflow graph.
func (s *Service) Generate(ctx context.Context, prompt string, opts Options) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.NewValidationError("prompt must not be empty")
	}

	generationID := uuid.New().String()
	start := time.Now()
	log := s.logger.With("generation_id", generationID)

	ctx, span := tracing.TraceGeneration(ctx, generationID, opts.Model)
	defer span.End()

	det := Detect(prompt, s.registry)
	vctx := Context{
		ForceWebhook:      det.ForceWebhook,
		RequireCategories: det.FourCategoryMode(),
	}
	if det.ChatTrigger != nil {
		vctx.ChatProvider = det.ChatTrigger.ProviderID
	}
	mode := "standard"
	if vctx.RequireCategories {
		mode = "four_category"
	}
	log.Debug("Prompt analyzed",
		"scenarios", scenarioNames(det.Scenarios),
		"chat_provider", vctx.ChatProvider,
		"force_webhook", det.ForceWebhook,
		"mode", mode,
	)

	validator, err := NewValidator(s.registry, vctx)
	if err != nil {
		return nil, err
	}

	system := NewSynthesizer(s.registry).BuildSystemPrompt()
	if opts.ExtraSystemPrefix != "" {
		system = opts.ExtraSystemPrefix + "\n\n" + system
	}
	user := buildUserMessage(prompt, det, opts)

	raw, resp, err := s.complete(ctx, llm.CompletionRequest{
		System:         system,
		User:           user,
		Model:          opts.Model,
		ResponseSchema: validator.SchemaDocument(),
		ResponseName:   "generated_workflow",
	})
	if err != nil {
		s.recordGeneration(opts.Model, "error", mode, start)
		return nil, err
	}

	structuralErrs := validator.ValidateStructure(raw)
	for _, verr := range structuralErrs {
		log.Warn("Structural validation issue in model output", "rule", verr.Rule, "message", verr.Message)
		if s.metrics != nil {
			s.metrics.RecordValidationFailure(verr.Rule)
		}
	}

	var workflow GeneratedWorkflow
	if err := json.Unmarshal(raw, &workflow); err != nil {
		s.recordGeneration(opts.Model, "error", mode, start)
		return nil, errors.Wrap(err, errors.ErrorTypeExternal, errors.CodeLLMCompletion, "model returned unparseable workflow JSON")
	}

	s.applyTriggerOverride(&workflow, det)

	_, repairSpan := tracing.TraceStage(ctx, "repair")
	repaired, _, repairErrs := NewRepairer(s.registry, log).Repair(&workflow, vctx)
	repairSpan.End()
	for _, rerr := range repairErrs {
		if s.metrics != nil {
			s.metrics.RecordRepairAction(rerr.Rule)
		}
	}

	// Remaining violations are measured before policies run: the update
	// policy may rewrite storage creates into updates, which is a caller
	// request and not a generation defect.
	remaining := validator.ValidateSemantics(repaired)
	for _, verr := range remaining {
		if s.metrics != nil {
			s.metrics.RecordValidationFailure(verr.Rule)
		}
	}

	final := repaired
	applier := NewPolicyApplier(s.registry)
	if NotificationRequested(prompt) {
		log.Debug("Applying notification policy")
		final = applier.ApplyNotification(final)
	}
	if UpdateNotCreateRequested(prompt) {
		log.Debug("Applying update-not-create policy")
		final = applier.ApplyUpdateNotCreate(final)
	}

	_, expandSpan := tracing.TraceStage(ctx, "expand")
	final = NewExpanderWithClock(s.now).Expand(final)
	expandSpan.End()
	if s.metrics != nil {
		for _, node := range final.Nodes {
			s.metrics.RecordNodeExpanded(node.Data.Type)
		}
	}

	resultErrs := make([]ValidationError, 0, len(repairErrs)+len(remaining))
	resultErrs = append(resultErrs, repairErrs...)
	resultErrs = append(resultErrs, remaining...)

	result := &Result{
		ID:         generationID,
		Workflow:   final,
		Errors:     resultErrs,
		Model:      resp.Model,
		Mode:       mode,
		Usage:      resp.Usage,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if opts.Debug {
		result.Debug = &DebugInfo{
			SystemMessage:    system,
			UserMessage:      user,
			RawResponse:      string(raw),
			StructuralErrors: structuralErrs,
			RepairErrors:     repairErrs,
		}
	}

	if opts.Strict && len(resultErrs) > 0 {
		s.recordGeneration(resp.Model, "rejected", mode, start)
		log.Warn("Strict generation rejected", "issues", len(resultErrs))
		return nil, errors.New(errors.ErrorTypeValidation, errors.CodeInvalidWorkflow,
			fmt.Sprintf("workflow failed validation with %d unresolved issues", len(resultErrs))).
			WithContext("generationId", generationID).
			WithContext("validationErrors", resultErrs)
	}

	s.recordGeneration(resp.Model, "success", mode, start)
	tracing.SetSpanAttributes(span,
		attribute.Int("generation.nodes", len(final.Nodes)),
		attribute.Int("generation.errors", len(resultErrs)),
	)
	log.Info("Workflow generated",
		"model", resp.Model,
		"nodes", len(final.Nodes),
		"connections", len(final.Connections),
		"repair_errors", len(repairErrs),
		"unresolved", len(remaining),
		"duration_ms", result.DurationMS,
	)
	return result, nil
}

// complete performs the model call and hands back the trimmed raw document.
func (s *Service) complete(ctx context.Context, req llm.CompletionRequest) ([]byte, *llm.CompletionResponse, error) {
	ctx, span := tracing.TraceLLMRequest(ctx, req.Model)
	defer span.End()

	stageStart := time.Now()
	resp, err := s.client.Complete(ctx, req)
	if s.metrics != nil {
		s.metrics.RecordGenerationStage("llm", time.Since(stageStart))
	}
	if err != nil {
		tracing.AddSpanError(span, err)
		if errors.GetAppError(err) != nil {
			return nil, nil, err
		}
		return nil, nil, errors.Wrap(err, errors.ErrorTypeExternal, errors.CodeLLMCompletion, "chat completion failed")
	}

	content := strings.TrimSpace(resp.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return []byte(strings.TrimSpace(content)), resp, nil
}

// applyTriggerOverride forces the entry point mandated by detection. An
// existing trigger node is rewritten in place so its connections survive;
// a missing one is inserted above the decision node and wired to it.
func (s *Service) applyTriggerOverride(w *GeneratedWorkflow, det Detection) {
	var want nodes.NodeDefinition
	switch {
	case det.ChatTrigger != nil:
		want = *det.ChatTrigger
	case det.ForceWebhook:
		def, err := s.registry.Get(nodes.TypeWebhook)
		if err != nil {
			return
		}
		want = def
	default:
		return
	}

	if trigger := w.FindTrigger(); trigger != nil {
		if trigger.Data.Type != want.Type {
			trigger.Data.Type = want.Type
			trigger.Data.Title = want.Title
			trigger.Data.ProviderID = want.ProviderID
		}
		s.ensureTriggerEdge(w, trigger.ID)
		return
	}

	decision := w.FindDecision()
	pos := Position{X: 400, Y: 100}
	if decision != nil {
		pos = Position{X: decision.Position.X, Y: decision.Position.Y - 160}
	}
	w.Nodes = append([]Node{{
		ID:       TriggerNodeID,
		Position: pos,
		Data: NodeData{
			Type:       want.Type,
			Title:      want.Title,
			IsTrigger:  true,
			ProviderID: want.ProviderID,
			Config:     map[string]interface{}{},
		},
	}}, w.Nodes...)
	s.ensureTriggerEdge(w, TriggerNodeID)
}

func (s *Service) ensureTriggerEdge(w *GeneratedWorkflow, triggerID string) {
	decision := w.FindDecision()
	if decision == nil || w.HasConnection(triggerID, decision.ID) {
		return
	}
	w.Connections = append(w.Connections, Connection{
		ID:     fmt.Sprintf("e-%s-%s", triggerID, decision.ID),
		Source: triggerID,
		Target: decision.ID,
	})
}

func (s *Service) recordGeneration(model, status, mode string, start time.Time) {
	if s.metrics == nil {
		return
	}
	if model == "" {
		model = "default"
	}
	s.metrics.RecordGeneration(model, status, mode, time.Since(start))
}

// buildUserMessage frames the raw prompt with the structural contract the
// pipeline depends on, then appends one requirement line per detected
// scenario.
func buildUserMessage(prompt string, det Detection, opts Options) string {
	var b strings.Builder
	b.WriteString("Build a workflow for this request:\n\n")
	b.WriteString(prompt)
	b.WriteString("\n\nStructural requirements:\n")
	fmt.Fprintf(&b, "- Exactly one trigger node with id %q and one `ai_agent` node with id %q, connected trigger to agent.\n",
		TriggerNodeID, DecisionNodeID)

	switch {
	case det.ChatTrigger != nil:
		fmt.Fprintf(&b, "- The trigger must be `%s` (%s).\n", det.ChatTrigger.Type, det.ChatTrigger.Title)
		b.WriteString("- The ai_agent must declare exactly four chains, one per category: Bug, Support, Urgent, Feature.\n")
	case det.ForceWebhook:
		b.WriteString("- The trigger must be the generic `webhook` node.\n")
	}

	for _, scenario := range det.Scenarios {
		b.WriteString("- ")
		b.WriteString(scenarioRequirement(scenario))
		b.WriteString("\n")
	}

	if opts.ExtraUserSuffix != "" {
		b.WriteString("\n")
		b.WriteString(opts.ExtraUserSuffix)
		b.WriteString("\n")
	}
	return b.String()
}

func scenarioRequirement(scenario Scenario) string {
	switch scenario {
	case ScenarioBug:
		return "Handle bug reports with a chain that files a ticket (trello or github) and alerts the team."
	case ScenarioSupport:
		return "Handle support questions with a chain that searches the knowledge base before anything else."
	case ScenarioUrgent:
		return "Handle urgent issues with a chain that alerts the team immediately and files a ticket."
	case ScenarioFeature:
		return "Handle feature requests with a chain that logs the request to storage (airtable or sheets)."
	case ScenarioFAQ:
		return "Handle recurring questions by searching existing documentation in Notion first."
	default:
		return "Handle the request with a focused chain of catalog actions."
	}
}

func scenarioNames(scenarios []Scenario) []string {
	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = string(s)
	}
	return names
}
