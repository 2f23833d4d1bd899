// internal/generation/orchestrator.go
package generation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pixcode/internal/commits"
	"pixcode/internal/console"
	"pixcode/internal/conversation"
	"pixcode/internal/extraction"
	"pixcode/internal/extraction/session"
	"pixcode/internal/protocol"
	"pixcode/internal/status"
)

// AppState is the top-level application phase
type AppState string

const (
	StateInitial   AppState = "INITIAL"
	StateCoding    AppState = "CODING"
	StateCodeReady AppState = "CODE_READY"
)

// DefaultVariantCount is the placeholder slot count a commit starts with.
// The backend right-sizes it via a variant-count event.
const DefaultVariantCount = 4

// Orchestrator errors surfaced synchronously to the caller
var (
	ErrEmptyInstruction  = errors.New("update instruction is empty")
	ErrNoHead            = errors.New("no current version set")
	ErrNotRegenerable    = errors.New("only the first version can be regenerated")
	ErrParentNotFound    = errors.New("parent commit not found")
	ErrNoReferenceImages = errors.New("no reference images provided")
)

// Notifier receives orchestration milestones for broadcast to connected UIs.
// All methods must be non-blocking.
type Notifier interface {
	StatusUpdated(update status.Update, current bool)
	AppStateChanged(state string)
	CodeChunk(commitHash string, variantIndex int, token string)
	VariantStatusChanged(commitHash string, variantIndex int, variantStatus, errorMessage string)
	ThinkingStepAdded(step status.ThinkingStep)
	ExtractionStreamed(partialJSON string)
}

// Orchestrator is the core control logic: it receives user intents, creates
// commits, opens the extraction and code-generation streams, interprets every
// inbound protocol event, and fans updates out to the stores. It is the only
// writer that spans stores.
type Orchestrator struct {
	commits      *commits.Store
	status       *status.Store
	conversation *conversation.Log
	console      *console.Sink
	opener       protocol.Opener
	settings     func() map[string]interface{}
	notifier     Notifier

	mu              sync.Mutex
	state           AppState
	inputMode       protocol.InputMode
	referenceImages []string
	initialPrompt   string
	additionalFiles []commits.SerializedFile
	updateImages    []string
	activeStream    protocol.Stream
}

// Options carries the optional collaborators
type Options struct {
	// Settings returns a snapshot of the persisted settings to merge into
	// outbound payloads. Nil means no settings.
	Settings func() map[string]interface{}
	// Notifier broadcasts milestones; nil disables broadcasting.
	Notifier Notifier
}

// New wires an orchestrator to its stores and the backend opener
func New(commitStore *commits.Store, statusStore *status.Store, conversationLog *conversation.Log, consoleSink *console.Sink, opener protocol.Opener, opts Options) *Orchestrator {
	settings := opts.Settings
	if settings == nil {
		settings = func() map[string]interface{} { return nil }
	}

	return &Orchestrator{
		commits:      commitStore,
		status:       statusStore,
		conversation: conversationLog,
		console:      consoleSink,
		opener:       opener,
		settings:     settings,
		notifier:     opts.Notifier,
		state:        StateInitial,
		inputMode:    protocol.InputImage,
	}
}

// State returns the current application phase
func (o *Orchestrator) State() AppState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(state AppState) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()

	if o.notifier != nil {
		o.notifier.AppStateChanged(string(state))
	}
}

// AdoptHead aligns the application phase with externally restored project
// state, e.g. after loading a snapshot.
func (o *Orchestrator) AdoptHead(head string) {
	if head == "" {
		o.setState(StateInitial)
		return
	}
	o.setState(StateCodeReady)
}

// SetUpdateImages attaches images to the next follow-up instruction
func (o *Orchestrator) SetUpdateImages(images []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updateImages = images
}

// Reset clears all project state back to initial. This is the single reset
// entry point used by Create and by first-generation rollback.
func (o *Orchestrator) Reset() {
	o.setState(StateInitial)
	o.console.Reset()
	o.status.ClearStatusHistory()
	o.commits.ResetCommits()
	o.commits.ResetHead()
	o.conversation.Clear()

	o.mu.Lock()
	o.inputMode = protocol.InputImage
	o.referenceImages = nil
	o.initialPrompt = ""
	o.additionalFiles = nil
	o.updateImages = nil
	o.mu.Unlock()
}

// Create starts the first generation from one or more reference images
func (o *Orchestrator) Create(ctx context.Context, referenceImages []string, inputMode protocol.InputMode, additionalFiles []commits.SerializedFile) error {
	if len(referenceImages) == 0 {
		return ErrNoReferenceImages
	}

	o.Reset()

	allFiles := append([]string(nil), referenceImages...)
	for _, file := range additionalFiles {
		if file.DataURL != "" {
			allFiles = append(allFiles, file.DataURL)
		}
	}
	o.conversation.AddUserMessage("Create this UI from the provided image", allFiles)

	o.mu.Lock()
	o.referenceImages = referenceImages
	o.inputMode = inputMode
	o.additionalFiles = additionalFiles
	o.mu.Unlock()

	return o.generate(ctx, protocol.GenerationParams{
		GenerationType:  protocol.GenerationCreate,
		InputMode:       inputMode,
		Prompt:          commits.PromptContent{Text: "", Images: referenceImages[:1]},
		AdditionalFiles: additionalFiles,
	})
}

// Update runs a follow-up edit against the current head. The optional
// selectedElement is appended verbatim to the instruction so the backend can
// scope the change.
func (o *Orchestrator) Update(ctx context.Context, instruction, selectedElement string) error {
	if strings.TrimSpace(instruction) == "" {
		return ErrEmptyInstruction
	}

	head := o.commits.Head()
	if head == "" {
		return ErrNoHead
	}

	historyTree, err := o.commits.ExtractHistory(head)
	if err != nil {
		return fmt.Errorf("extract history: %w", err)
	}

	modifiedInstruction := instruction
	if selectedElement != "" {
		modifiedInstruction = instruction + " referring to this element specifically: " + selectedElement
	}

	o.mu.Lock()
	updateImages := o.updateImages
	inputMode := o.inputMode
	referenceImages := o.referenceImages
	initialPrompt := o.initialPrompt
	o.mu.Unlock()

	o.conversation.AddUserMessage(instruction, updateImages)

	history := append(historyTree, commits.PromptContent{Text: modifiedInstruction, Images: updateImages})

	prompt := commits.PromptContent{Text: "", Images: nil}
	if inputMode == protocol.InputText {
		prompt = commits.PromptContent{Text: initialPrompt}
	} else if len(referenceImages) > 0 {
		prompt = commits.PromptContent{Images: referenceImages[:1]}
	}

	err = o.generate(ctx, protocol.GenerationParams{
		GenerationType:     protocol.GenerationUpdate,
		InputMode:          inputMode,
		Prompt:             prompt,
		History:            history,
		IsImportedFromCode: o.importedFromCode(head),
	})

	o.mu.Lock()
	o.updateImages = nil
	o.mu.Unlock()
	return err
}

// Regenerate re-issues the original create inputs unchanged. Only legal when
// the head commit is the first version.
func (o *Orchestrator) Regenerate(ctx context.Context) error {
	head, ok := o.commits.HeadCommit()
	if !ok {
		return ErrNoHead
	}
	if head.Type != commits.CommitTypeAICreate {
		return ErrNotRegenerable
	}

	o.mu.Lock()
	referenceImages := o.referenceImages
	inputMode := o.inputMode
	additionalFiles := o.additionalFiles
	o.mu.Unlock()

	if inputMode != protocol.InputImage && inputMode != protocol.InputVideo {
		log.Printf("[Generation] Regenerate not supported for input mode %s", inputMode)
		return ErrNotRegenerable
	}

	return o.Create(ctx, referenceImages, inputMode, additionalFiles)
}

// Cancel closes the active transport with the distinguished user-cancel
// close code. The dispatch loop observes the cancellation and performs the
// rollback. A cancel with nothing in flight is a no-op.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	stream := o.activeStream
	o.mu.Unlock()

	if stream == nil {
		return
	}
	if err := stream.Close(protocol.CloseCodeUserCancel); err != nil {
		log.Printf("[Generation] Cancel close error: %v", err)
	}
}

// updateStatus creates a status update, persists it through the filtering
// history, mirrors it into the conversation, and publishes or clears the
// current status.
func (o *Orchestrator) updateStatus(message string, updateType status.UpdateType, isComplete bool, commitID string) {
	update := status.Update{
		ID:         uuid.New().String(),
		Message:    message,
		Timestamp:  time.Now(),
		IsComplete: isComplete,
		Type:       updateType,
		CommitID:   commitID,
	}

	o.status.AddToStatusHistory(update)
	o.conversation.AddStatusMessage(message, string(updateType))

	if !isComplete {
		o.status.SetCurrentStatus(&update)
	} else {
		o.status.SetCurrentStatus(nil)
	}

	if o.notifier != nil {
		o.notifier.StatusUpdated(update, !isComplete)
	}
}

// generate is the generation pipeline shared by Create, Update and
// Regenerate. It blocks until the stream reaches a terminal event.
func (o *Orchestrator) generate(ctx context.Context, params protocol.GenerationParams) error {
	o.console.Reset()
	o.setState(StateCoding)

	// Starting a generation invalidates any stale extraction buffer from a
	// prior, unrelated commit.
	o.status.ClearStreamingExtraction()

	commit := o.buildCommit(params)
	if err := o.commits.AddCommit(commit); err != nil {
		return fmt.Errorf("add commit: %w", err)
	}
	// Head moves immediately so partial progress is visible before the
	// first byte streams back.
	if err := o.commits.SetHead(commit.Hash); err != nil {
		return fmt.Errorf("set head: %w", err)
	}

	params.ExtractionResult = o.resolveExtraction(ctx, params, commit)
	params.Settings = o.settings()

	stream, err := o.opener.Open(ctx, params)
	if err != nil {
		o.updateStatus(fmt.Sprintf("Generation failed: %v", err), status.TypeError, true, commit.Hash)
		o.rollback(commit)
		return fmt.Errorf("open generation stream: %w", err)
	}

	o.mu.Lock()
	o.activeStream = stream
	o.mu.Unlock()

	err = o.dispatch(stream, params, commit)

	o.mu.Lock()
	o.activeStream = nil
	o.mu.Unlock()
	return err
}

// buildCommit synthesizes the commit for one generation attempt with the
// placeholder variant array.
func (o *Orchestrator) buildCommit(params protocol.GenerationParams) *commits.Commit {
	if params.GenerationType == protocol.GenerationCreate {
		inputs := params.Prompt
		inputs.AdditionalFiles = params.AdditionalFiles
		return commits.NewCommit(commits.CommitTypeAICreate, "", inputs, DefaultVariantCount)
	}

	inputs := commits.PromptContent{AdditionalFiles: params.AdditionalFiles}
	if n := len(params.History); n > 0 {
		inputs = params.History[n-1]
		inputs.AdditionalFiles = params.AdditionalFiles
	}
	return commits.NewCommit(commits.CommitTypeAIEdit, o.commits.Head(), inputs, DefaultVariantCount)
}

// resolveExtraction runs UI-structure extraction for creates with an image,
// or reuses the ancestor create's result for updates. Extraction failure is
// non-fatal: generation proceeds without structured context.
// importedFromCode reports whether the lineage rooted under hash began as a
// manual code import rather than an AI creation.
func (o *Orchestrator) importedFromCode(hash string) bool {
	for hash != "" {
		commit, ok := o.commits.Get(hash)
		if !ok {
			return false
		}
		if commit.ParentHash == "" {
			return commit.Type == commits.CommitTypeCodeCreate
		}
		hash = commit.ParentHash
	}
	return false
}

func (o *Orchestrator) resolveExtraction(ctx context.Context, params protocol.GenerationParams, commit *commits.Commit) *extraction.Result {
	if params.GenerationType == protocol.GenerationCreate && len(params.Prompt.Images) > 0 {
		result, err := o.runExtraction(ctx, params.Prompt.Images[0], params.AdditionalFiles, commit.Hash)
		if err != nil {
			log.Printf("[Generation] UI extraction failed, continuing without structured data: %v", err)
			o.updateStatus("Extraction failed - continuing with image analysis", status.TypeAnalyzing, false, commit.Hash)
			return nil
		}
		return result
	}

	if params.GenerationType == protocol.GenerationUpdate {
		// Walk the parent chain to the nearest create and reuse whatever
		// extraction result is stored against it. No re-extraction on edits.
		hash := commit.ParentHash
		for hash != "" {
			ancestor, ok := o.commits.Get(hash)
			if !ok {
				return nil
			}
			if ancestor.Type == commits.CommitTypeAICreate {
				return o.status.ExtractionResult(hash)
			}
			if ancestor.Type != commits.CommitTypeAIEdit {
				return nil
			}
			hash = ancestor.ParentHash
		}
	}
	return nil
}

// runExtraction drives one extraction stream for a commit, storing the
// placeholder immediately, streaming partial JSON for display, and replacing
// the placeholder with the final result.
func (o *Orchestrator) runExtraction(ctx context.Context, imageData string, additionalFiles []commits.SerializedFile, commitHash string) (*extraction.Result, error) {
	o.updateStatus("Starting UI analysis...", status.TypeExtracting, false, commitHash)

	// The placeholder makes the commit's JSON artifact visible right away,
	// before any bytes have streamed back.
	o.status.SetExtractionResult(commitHash, extraction.Placeholder())

	result, err := session.Run(ctx, o.opener, imageData, additionalFiles, o.settings(), session.Callbacks{
		OnProgress: func(message string) {
			o.updateStatus(message, status.TypeExtracting, false, commitHash)
		},
		OnJSONStream: func(partialJSON string) {
			o.status.SetStreamingExtraction(partialJSON)
			if o.notifier != nil {
				o.notifier.ExtractionStreamed(partialJSON)
			}
		},
	})
	if err != nil {
		o.updateStatus(fmt.Sprintf("UI extraction failed: %v", err), status.TypeError, true, commitHash)
		o.status.ClearStreamingExtraction()
		// Keep an empty result in place of the placeholder so the commit's
		// JSON artifact reflects the failed attempt.
		o.status.SetExtractionResult(commitHash, extraction.Placeholder())
		return nil, err
	}

	o.status.SetExtractionResult(commitHash, result)
	o.updateStatus("UI structure extracted successfully", status.TypeExtracting, true, commitHash)
	o.conversation.AddArtifactMessage("JSON Structure", conversation.ArtifactJSON, result, false)
	return result, nil
}

// dispatch consumes the stream until a terminal event, fanning every inbound
// protocol event out to the stores. The multi-store effects of one event are
// applied before the next Recv, so no handler observes a half-applied
// compound update.
func (o *Orchestrator) dispatch(stream protocol.Stream, params protocol.GenerationParams, commit *commits.Commit) error {
	// The backend's explicit phase stream always wins over the client's
	// token-triggered heuristic; once a phase event arrives the heuristic is
	// suppressed for the rest of this generation.
	hasStartedGenerating := false
	backendOwnsPhase := false
	variantStarted := make(map[int]bool)

	for {
		event, err := stream.Recv()
		if err != nil {
			if errors.Is(err, protocol.ErrUserCancelled) {
				o.rollback(commit)
				o.updateStatus("Generation cancelled", status.TypeError, true, commit.Hash)
				return nil
			}
			o.updateStatus(fmt.Sprintf("Generation failed: %v", err), status.TypeError, true, commit.Hash)
			o.rollback(commit)
			return fmt.Errorf("generation stream: %w", err)
		}

		switch ev := event.(type) {
		case protocol.ChunkEvent:
			if err := o.commits.AppendCommitCode(commit.Hash, ev.VariantIndex, ev.Value); err != nil {
				log.Printf("[Generation] Dropping chunk: %v", err)
				continue
			}
			if !variantStarted[ev.VariantIndex] {
				variantStarted[ev.VariantIndex] = true
				o.commits.UpdateVariantStatus(commit.Hash, ev.VariantIndex, commits.VariantGenerating, "")
				if o.notifier != nil {
					o.notifier.VariantStatusChanged(commit.Hash, ev.VariantIndex, string(commits.VariantGenerating), "")
				}
			}
			if o.notifier != nil {
				o.notifier.CodeChunk(commit.Hash, ev.VariantIndex, ev.Value)
			}
			if strings.TrimSpace(ev.Value) != "" && !hasStartedGenerating && !backendOwnsPhase {
				hasStartedGenerating = true
				message := "Generating your code..."
				if params.GenerationType == protocol.GenerationUpdate {
					message = "Modifying code generation..."
				}
				o.updateStatus(message, status.TypeGenerating, false, commit.Hash)
			}

		case protocol.SetCodeEvent:
			if err := o.commits.SetCommitCode(commit.Hash, ev.VariantIndex, ev.Value); err != nil {
				log.Printf("[Generation] Dropping snapshot: %v", err)
			}

		case protocol.ConsoleEvent:
			o.console.Append(ev.VariantIndex, ev.Value)

		case protocol.VariantCompleteEvent:
			o.commits.UpdateVariantStatus(commit.Hash, ev.VariantIndex, commits.VariantComplete, "")
			if o.notifier != nil {
				o.notifier.VariantStatusChanged(commit.Hash, ev.VariantIndex, string(commits.VariantComplete), "")
			}

		case protocol.VariantErrorEvent:
			// A failed candidate does not abort its siblings
			o.commits.UpdateVariantStatus(commit.Hash, ev.VariantIndex, commits.VariantError, ev.Message)
			o.updateStatus(fmt.Sprintf("Generation failed: %s", ev.Message), status.TypeError, true, commit.Hash)
			if o.notifier != nil {
				o.notifier.VariantStatusChanged(commit.Hash, ev.VariantIndex, string(commits.VariantError), ev.Message)
			}

		case protocol.VariantCountEvent:
			if err := o.commits.ResizeVariants(commit.Hash, ev.Count); err != nil {
				log.Printf("[Generation] Resize to %d failed: %v", ev.Count, err)
			}

		case protocol.ThinkingEvent:
			o.addThinkingStep(commit.Hash, ev.Content, status.TypeThinking)

		case protocol.ReasoningEvent:
			o.addThinkingStep(commit.Hash, ev.Content, status.TypeReasoning)

		case protocol.PhaseEvent:
			backendOwnsPhase = true
			hasStartedGenerating = true
			statusType := status.UpdateType(protocol.StatusTypeForPhase(ev.Phase))
			o.updateStatus(ev.Status, statusType, false, commit.Hash)

		case protocol.CancelEvent:
			o.rollback(commit)
			o.updateStatus("Generation cancelled", status.TypeError, true, commit.Hash)
			return nil

		case protocol.ErrorEvent:
			o.updateStatus(fmt.Sprintf("Generation failed: %s", ev.Message), status.TypeError, true, commit.Hash)
			o.rollback(commit)
			return fmt.Errorf("generation failed: %s", ev.Message)

		case protocol.CompleteEvent:
			o.complete(params, commit)
			return nil
		}
	}
}

func (o *Orchestrator) addThinkingStep(commitHash, content string, stepType status.UpdateType) {
	step := status.ThinkingStep{
		ID:        uuid.New().String(),
		Content:   content,
		Timestamp: time.Now(),
		CommitID:  commitHash,
		Type:      stepType,
	}
	o.status.AddThinkingStep(step)
	if o.notifier != nil {
		o.notifier.ThinkingStepAdded(step)
	}
}

// complete finishes a successful generation: phase, completion status, and
// the auto-numbered active code artifact.
func (o *Orchestrator) complete(params protocol.GenerationParams, commit *commits.Commit) {
	o.setState(StateCodeReady)

	message := "Code generation complete!"
	if params.GenerationType == protocol.GenerationUpdate {
		message = "Code modification complete!"
	}
	o.updateStatus(message, status.TypeComplete, true, commit.Hash)

	code := ""
	if current, ok := o.commits.HeadCommit(); ok {
		if variant := current.SelectedVariant(); variant != nil {
			code = variant.Code
		}
	}

	versionNumber := o.conversation.CodeArtifactCount() + 1
	artifactID := o.conversation.AddArtifactMessage(
		fmt.Sprintf("Version %d", versionNumber),
		conversation.ArtifactCode,
		map[string]interface{}{"code": code, "commitHash": commit.Hash},
		true,
	)
	if artifactID != "" {
		o.conversation.SetActiveCodeArtifact(artifactID)
	}

	o.status.SetCurrentStatus(nil)
}

// rollback undoes a failed or cancelled generation. A first-version failure
// resets the whole project: there is nothing worth keeping. An edit failure
// removes only the failing commit and reverts head to its parent, so prior
// working versions survive.
func (o *Orchestrator) rollback(commit *commits.Commit) {
	if commit.Type == commits.CommitTypeAICreate {
		o.Reset()
		return
	}

	if err := o.commits.RemoveCommit(commit.Hash); err != nil {
		log.Printf("[Generation] Rollback remove failed: %v", err)
	}

	if commit.ParentHash == "" {
		// An edit without a parent means the graph was already corrupt
		log.Printf("[Generation] %v for commit %s", ErrParentNotFound, commit.Hash)
		o.Reset()
		return
	}

	if err := o.commits.SetHead(commit.ParentHash); err != nil {
		log.Printf("[Generation] Rollback head revert failed: %v", err)
	}
	o.setState(StateCodeReady)
}
