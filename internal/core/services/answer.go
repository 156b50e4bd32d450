package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labsafe/sdsassist/internal/core/domain"
	"github.com/labsafe/sdsassist/internal/core/ports/driven"
	"github.com/labsafe/sdsassist/internal/core/ports/driving"
	"github.com/labsafe/sdsassist/internal/logger"
	"github.com/labsafe/sdsassist/internal/rules"
)

// Ensure AnswerOrchestrator implements the interfaces.
var (
	_ driving.AnswerService = (*AnswerOrchestrator)(nil)
	_ driving.ScreenService = (*AnswerOrchestrator)(nil)
)

// Refusal diagnostics.
const (
	DiagInsufficientContext = "insufficient_context"
	DiagValidationFailed    = "validation_failed"
	DiagUpstream            = "upstream"
	DiagTimeout             = "operation_timeout"
)

// refusalSections are the SDS sections a refusal points the reader at.
var refusalSections = []domain.SectionNumber{2, 4, 5, 6, 7, 8, 10}

// citationToken matches bracketed passage references in generated text.
var citationToken = regexp.MustCompile(`\[(\d+)\]`)

// DefaultAnswerTokens caps the generator completion length.
const DefaultAnswerTokens = 700

// AnswerOrchestrator drives a query through resolution, hazard
// screening, retrieval, generation and validation. Screening always
// runs before any generated text is emitted, and a forbid finding
// suppresses generation entirely.
type AnswerOrchestrator struct {
	aliases   *AliasIndex
	engine    *rules.Engine
	retriever *Retriever
	generator driven.Generator
	prompts   driven.PromptStore

	maxTokens int
	timeout   time.Duration
}

// NewAnswerOrchestrator creates the orchestrator. generator may be nil,
// in which case every non-rules path refuses with an upstream
// diagnostic. timeout bounds one Ask call end to end; 0 means no bound.
func NewAnswerOrchestrator(
	aliases *AliasIndex,
	engine *rules.Engine,
	retriever *Retriever,
	generator driven.Generator,
	prompts driven.PromptStore,
	maxTokens int,
	timeout time.Duration,
) *AnswerOrchestrator {
	if maxTokens <= 0 {
		maxTokens = DefaultAnswerTokens
	}
	return &AnswerOrchestrator{
		aliases:   aliases,
		engine:    engine,
		retriever: retriever,
		generator: generator,
		prompts:   prompts,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

// Ask answers one query. It never returns a partial answer: every exit
// is either a grounded cited answer, a deterministic rules answer, or a
// refusal carrying a diagnostic.
func (o *AnswerOrchestrator) Ask(ctx context.Context, query domain.Query) (domain.Answer, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	logger.Section("Answer")

	question := o.questionText(query)
	if question == "" && len(query.Materials) == 0 {
		return domain.Answer{}, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	// Resolving.
	resolved, unresolved := o.resolveAll(ctx, query.Materials)
	logger.Debug("Resolved %d of %d materials", len(resolved), len(query.Materials))

	sections := query.Scenario.Sections()
	if sections == nil {
		sections = InferSections(question)
	}

	// Screening and retrieval run concurrently; screening also covers
	// unresolved names through ad-hoc classification, so a misspelled or
	// unknown material still trips name-based rules.
	var (
		wg          sync.WaitGroup
		findings    []domain.HazardFinding
		passages    []domain.RankedChunk
		retrieveErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		findings = o.engine.Evaluate(screeningSet(resolved, unresolved))
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ids := materialIDs(resolved)
		passages, retrieveErr = o.retriever.Retrieve(ctx, question, RetrieveOptions{
			MaterialIDs: ids,
			Sections:    sections,
		})
	}()

	wg.Wait()

	// A forbid finding is non-overridable: emit the deterministic answer
	// and never consult the generator.
	if hasForbid(findings) {
		logger.Info("Forbid finding, emitting rules-only answer")
		return domain.Answer{
			Body:     findingsBody(findings),
			Findings: findings,
			Origin:   domain.OriginRulesOnly,
			SeeAlso:  citationsOf(passages),
		}, nil
	}

	if retrieveErr != nil {
		return o.refuseFor(retrieveErr, findings, passages, unresolved), nil
	}

	body, citations, err := o.generate(ctx, question, query, passages)
	if err != nil {
		return o.refuseFor(err, findings, passages, unresolved), nil
	}

	origin := domain.OriginGenerativeOnly
	if len(findings) > 0 {
		origin = domain.OriginRulesPlusGenerative
		body = findingsBody(findings) + "\n\n" + body
	}
	return domain.Answer{
		Body:      body,
		Citations: citations,
		Findings:  findings,
		Origin:    origin,
	}, nil
}

// Screen resolves the given surface names and evaluates the hazard
// rules over them. Names the alias index does not know are classified
// ad hoc by name and reported back as unresolved.
func (o *AnswerOrchestrator) Screen(ctx context.Context, materials []string) ([]domain.HazardFinding, []string, error) {
	if len(materials) == 0 {
		return nil, nil, fmt.Errorf("%w: no materials given", domain.ErrInvalidInput)
	}
	resolved, unresolved := o.resolveAll(ctx, materials)
	findings := o.engine.Evaluate(screeningSet(resolved, unresolved))
	return findings, unresolved, nil
}

// questionText returns the free-form question, or composes one from the
// guided form when the text is empty.
func (o *AnswerOrchestrator) questionText(q domain.Query) string {
	text := strings.TrimSpace(q.Text)
	if text != "" || !q.Scenario.IsValid() {
		return text
	}

	var b strings.Builder
	switch q.Scenario {
	case domain.ScenarioFirstAid:
		b.WriteString("What first aid measures apply")
		if q.ExposureRoute != "" {
			b.WriteString(" after " + q.ExposureRoute + " exposure")
		}
	case domain.ScenarioFireResponse:
		b.WriteString("How should a fire involving this material be fought, and with which extinguishing media")
	case domain.ScenarioSpillCleanup:
		b.WriteString("How should a spill of this material be contained and cleaned up")
		if q.Amount == domain.AmountLarge {
			b.WriteString(", for a large release")
		} else if q.Amount == domain.AmountSmall {
			b.WriteString(", for a small release")
		}
	}
	if len(q.Materials) > 0 {
		b.WriteString(" for " + strings.Join(q.Materials, " and "))
	}
	b.WriteString("?")
	return b.String()
}

func (o *AnswerOrchestrator) resolveAll(ctx context.Context, names []string) ([]domain.Material, []string) {
	var resolved []domain.Material
	var unresolved []string
	for _, name := range names {
		m, err := o.aliases.Resolve(ctx, name)
		if err != nil || m == nil {
			unresolved = append(unresolved, name)
			continue
		}
		resolved = append(resolved, *m)
	}
	return resolved, unresolved
}

// generate runs the grounded generation and validation states.
func (o *AnswerOrchestrator) generate(
	ctx context.Context, question string, query domain.Query, passages []domain.RankedChunk,
) (string, []domain.Citation, error) {
	if o.generator == nil {
		return "", nil, fmt.Errorf("no generator configured: %w", domain.ErrGeneratorUnavailable)
	}

	system, err := o.prompts.Load(driven.PromptGroundedSystem)
	if err != nil {
		return "", nil, fmt.Errorf("load system prompt: %w", err)
	}
	tpl, err := o.prompts.Load(driven.PromptGroundedAnswer)
	if err != nil {
		return "", nil, fmt.Errorf("load answer prompt: %w", err)
	}

	user := strings.NewReplacer(
		"{question}", question,
		"{scenario}", scenarioLine(query),
		"{passages}", renderPassages(passages),
	).Replace(tpl)

	logger.Debug("Generating with %s, %d passages", o.generator.ModelName(), len(passages))
	raw, err := o.generator.Complete(ctx, system, user, o.maxTokens)
	if err != nil {
		return "", nil, fmt.Errorf("generate: %w", err)
	}

	body, citations := o.validate(raw, passages)
	if body == "" {
		logger.Warn("Generated text had no verifiable citations, refusing")
		return "", nil, fmt.Errorf("no cited sentences survived validation: %w", domain.ErrValidationFailed)
	}
	return body, citations, nil
}

// validate keeps only sentences whose citation tokens all reference a
// supplied passage, and maps the surviving tokens to citations in order
// of first use.
func (o *AnswerOrchestrator) validate(raw string, passages []domain.RankedChunk) (string, []domain.Citation) {
	var kept []string
	used := make([]bool, len(passages))
	var order []int

	for _, sentence := range splitAnswerSentences(raw) {
		tokens := citationToken.FindAllStringSubmatch(sentence, -1)
		if len(tokens) == 0 {
			continue
		}
		valid := true
		var refs []int
		for _, t := range tokens {
			n, err := strconv.Atoi(t[1])
			if err != nil || n < 1 || n > len(passages) {
				valid = false
				break
			}
			refs = append(refs, n-1)
		}
		if !valid {
			continue
		}
		kept = append(kept, strings.TrimSpace(sentence))
		for _, i := range refs {
			if !used[i] {
				used[i] = true
				order = append(order, i)
			}
		}
	}

	citations := make([]domain.Citation, 0, len(order))
	for _, i := range order {
		citations = append(citations, passages[i].Citation())
	}
	return strings.Join(kept, " "), citations
}

// refuseFor maps a pipeline error to a refusal answer with the right
// diagnostic. Retrieved-but-unused passages surface as pointers.
func (o *AnswerOrchestrator) refuseFor(
	err error, findings []domain.HazardFinding, passages []domain.RankedChunk, unresolved []string,
) domain.Answer {
	diag := DiagUpstream
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		diag = DiagTimeout
	case errors.Is(err, domain.ErrInsufficientContext):
		diag = DiagInsufficientContext
	case errors.Is(err, domain.ErrValidationFailed):
		diag = DiagValidationFailed
	}
	logger.Info("Refusing: %s (%v)", diag, err)

	var b strings.Builder
	if len(findings) > 0 {
		b.WriteString(findingsBody(findings))
		b.WriteString("\n\n")
	}
	preamble, perr := o.prompts.Load(driven.PromptRefusal)
	if perr != nil {
		preamble = "I can't give a reliable answer to that from the documents on hand."
	}
	b.WriteString(strings.TrimSpace(preamble))
	if len(unresolved) > 0 {
		b.WriteString("\n\nI don't have a safety data sheet for: " + strings.Join(unresolved, ", ") + ".")
	}
	b.WriteString("\n\nThe relevant SDS sections to consult directly:\n")
	for _, s := range refusalSections {
		b.WriteString(fmt.Sprintf("  - Section %d: %s\n", int(s), s.Title()))
	}

	return domain.Answer{
		Refusal:    true,
		Body:       b.String(),
		Findings:   findings,
		Origin:     domain.OriginRefusal,
		Diagnostic: diag,
		SeeAlso:    citationsOf(passages),
	}
}

func scenarioLine(q domain.Query) string {
	if !q.Scenario.IsValid() {
		return "none"
	}
	parts := []string{string(q.Scenario)}
	if q.ExposureRoute != "" {
		parts = append(parts, "route="+q.ExposureRoute)
	}
	if q.Amount != "" && q.Amount != domain.AmountUnknown {
		parts = append(parts, "amount="+string(q.Amount))
	}
	return strings.Join(parts, ", ")
}

// renderPassages numbers the retrieved passages for the prompt; the
// numbers are the citation vocabulary the generator must use.
func renderPassages(passages []domain.RankedChunk) string {
	var b strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s, Section %d (%s), page %d:\n%s\n\n",
			i+1, p.MaterialName, int(p.Chunk.Section), p.Chunk.SectionTitle, p.Chunk.PageMin, p.Chunk.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func findingsBody(findings []domain.HazardFinding) string {
	var b strings.Builder
	for i, f := range findings {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(string(f.Severity)), f.Message)
		if len(f.References) > 0 {
			refs := make([]string, len(f.References))
			for j, r := range f.References {
				refs[j] = strconv.Itoa(int(r))
			}
			fmt.Fprintf(&b, " (see SDS sections %s)", strings.Join(refs, ", "))
		}
	}
	return b.String()
}

// screeningSet builds the engine input: resolved materials plus ad-hoc
// stand-ins for unresolved names, so name-based classes still apply.
func screeningSet(resolved []domain.Material, unresolved []string) []domain.Material {
	out := make([]domain.Material, 0, len(resolved)+len(unresolved))
	out = append(out, resolved...)
	for _, name := range unresolved {
		out = append(out, domain.Material{
			ID:          "adhoc:" + domain.NormalizeAlias(name),
			DisplayName: name,
		})
	}
	return out
}

func materialIDs(materials []domain.Material) []string {
	ids := make([]string, len(materials))
	for i, m := range materials {
		ids[i] = m.ID
	}
	return ids
}

func hasForbid(findings []domain.HazardFinding) bool {
	for _, f := range findings {
		if f.Severity == domain.SeverityForbid {
			return true
		}
	}
	return false
}

func citationsOf(passages []domain.RankedChunk) []domain.Citation {
	if len(passages) == 0 {
		return nil
	}
	out := make([]domain.Citation, len(passages))
	for i, p := range passages {
		out[i] = p.Citation()
	}
	return out
}

// trailingCitation matches citation tokens that directly follow a
// sentence terminator ("... blah. [2]"), so they stay with the sentence
// they back.
var trailingCitation = regexp.MustCompile(`^(\s*\[\d+\])+`)

// splitAnswerSentences splits generated text into sentences, keeping
// terminators and any citation tokens that trail them.
func splitAnswerSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' && r != '\n' {
			continue
		}
		if m := trailingCitation.FindString(string(runes[i+1:])); m != "" {
			current.WriteString(m)
			i += len([]rune(m))
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
