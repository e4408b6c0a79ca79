package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"

	"github.com/sahyadri-labs/krishirakshak/domain"
	"github.com/sahyadri-labs/krishirakshak/store"
	"github.com/sahyadri-labs/krishirakshak/vision"
)

// DefaultMaxBatchImages caps the number of images processed per
// submission. Excess files are silently truncated, not queued.
const DefaultMaxBatchImages = 4

// State is the orchestrator's current position in the processing flow.
type State string

const (
	StateIdle                State = "idle"
	StateDecodingImages      State = "decoding_images"
	StateClassifying         State = "classifying"
	StateAwaitingExplanation State = "awaiting_explanation"
)

// Notifier surfaces transient user-facing notices (the toast surface in
// the original UI).
type Notifier interface {
	Notify(text string)
}

// LogNotifier writes notices to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(text string) {
	n.Logger.Info().Str("notice", text).Msg("user notice")
}

// ImageInput is one user-selected file in a submission batch.
type ImageInput struct {
	Filename string
	Data     []byte
}

// Orchestrator owns the end-to-end analysis pipeline. It processes at
// most one batch at a time and is the exclusive caller of the classifier.
type Orchestrator struct {
	store      *store.ConversationStore
	decoder    *vision.Decoder
	classifier *vision.Classifier
	explain    *ExplanationClient
	notifier   Notifier
	threshold  float64
	maxImages  int
	logger     zerolog.Logger

	mu       sync.Mutex
	state    State
	previews map[string]*vision.Preview
}

// Options tunes orchestrator behavior. Zero values select the defaults.
type Options struct {
	ConfidenceThreshold float64
	MaxBatchImages      int
}

// New creates an Orchestrator around its collaborators.
func New(convo *store.ConversationStore, decoder *vision.Decoder, classifier *vision.Classifier,
	explain *ExplanationClient, notifier Notifier, logger zerolog.Logger, opts Options) *Orchestrator {
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = vision.DefaultConfidenceThreshold
	}
	if opts.MaxBatchImages <= 0 {
		opts.MaxBatchImages = DefaultMaxBatchImages
	}
	return &Orchestrator{
		store:      convo,
		decoder:    decoder,
		classifier: classifier,
		explain:    explain,
		notifier:   notifier,
		threshold:  opts.ConfidenceThreshold,
		maxImages:  opts.MaxBatchImages,
		logger:     logger,
		state:      StateIdle,
		previews:   make(map[string]*vision.Preview),
	}
}

// State reports the current pipeline state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateIdle && o.explain != nil && o.explain.InFlight() {
		return StateAwaitingExplanation
	}
	return o.state
}

// Preview returns the display-preview handle for an image reference.
func (o *Orchestrator) Preview(refID string) (*vision.Preview, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.previews[refID]
	return p, ok
}

type decodeOutcome struct {
	ref     domain.ImageRef
	decoded *vision.DecodedImage
	err     error
}

// Submit runs one batch through the pipeline: decode each file, classify,
// apply confidence gating, and append one result card per image in
// submission order. A submission with no files and no text is rejected
// without mutating state; a second submission while a batch is running is
// rejected. Decode or prediction failure for one image aborts that image
// and drops the rest of the batch.
func (o *Orchestrator) Submit(ctx context.Context, text string, images []ImageInput) error {
	if text == "" && len(images) == 0 {
		return domain.ErrEmptyInput
	}

	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return domain.ErrBatchInProgress
	}
	o.state = StateDecodingImages
	o.mu.Unlock()

	defer o.setState(StateIdle)

	if len(images) > o.maxImages {
		o.logger.Warn().Int("submitted", len(images)).Int("max", o.maxImages).
			Msg("truncating submission batch")
		images = images[:o.maxImages]
	}

	refs := make([]domain.ImageRef, len(images))
	for i, img := range images {
		refs[i] = domain.ImageRef{
			RefID:    "img_" + uuid.New().String()[:8],
			Filename: img.Filename,
		}
	}

	o.store.Append(domain.Entry{
		Kind:   domain.EntryKindUserTurn,
		Text:   userTurnText(text, len(images)),
		Images: refs,
	})
	o.store.Append(domain.Entry{Kind: domain.EntryKindBotTyping})

	// Decode in parallel; results come back in submission order.
	outcomes := iter.Map(images, func(in *ImageInput) decodeOutcome {
		decoded, err := o.decoder.Decode(in.Data)
		return decodeOutcome{decoded: decoded, err: err}
	})
	for i := range outcomes {
		outcomes[i].ref = refs[i]
	}

	o.setState(StateClassifying)

	for i, outcome := range outcomes {
		if outcome.err != nil {
			o.logger.Error().Err(outcome.err).Str("filename", refs[i].Filename).
				Msg("image decode failed")
			o.failBatch("Failed to load one image.", outcomes[i+1:])
			return nil
		}

		scores, err := o.classifier.Predict(ctx, outcome.decoded.Pixels)
		if err != nil {
			o.logger.Error().Err(err).Str("filename", refs[i].Filename).
				Msg("prediction failed")
			outcome.decoded.Preview.Release()
			o.failBatch("Prediction error. Please try another photo.", outcomes[i+1:])
			return nil
		}

		prediction := vision.Classify(scores, o.threshold)
		advice := domain.AdviceFor(prediction.Label)

		o.mu.Lock()
		o.previews[outcome.ref.RefID] = outcome.decoded.Preview
		o.mu.Unlock()

		o.store.RemoveTyping()
		o.store.Append(domain.Entry{
			Kind: domain.EntryKindResultCard,
			Card: &domain.ResultCard{
				SourceImage:      outcome.ref,
				Prediction:       prediction,
				Advice:           advice,
				ExplanationState: domain.ExplanationNone,
			},
		})
	}

	o.store.RemoveTyping()
	return nil
}

// Elaborate requests a generated explanation for one result card. The
// card is marked pending, the relay is called with the card's context and
// the full conversation history, and the card is patched with the outcome.
// A superseded request leaves the card to its successor.
func (o *Orchestrator) Elaborate(ctx context.Context, cardID string) error {
	entry, err := o.store.Get(cardID)
	if err != nil {
		return err
	}
	if entry.Card == nil {
		return fmt.Errorf("elaborate %s: entry is not a result card", cardID)
	}

	pending := domain.ExplanationPending
	if err := o.store.Update(cardID, store.CardPatch{ExplanationState: &pending}); err != nil {
		return err
	}
	o.notifier.Notify("Request sent")

	ectx := domain.ExplanationContext{
		Label:      entry.Card.Prediction.Label,
		Advice:     entry.Card.Advice,
		Confidence: fmt.Sprintf("%.1f%%", entry.Card.Prediction.Confidence*100),
		Messages:   o.store.History(),
	}

	text, err := o.explain.RequestExplanation(ctx, ectx)
	switch {
	case err == nil:
		ready := domain.ExplanationReady
		return o.store.Update(cardID, store.CardPatch{
			ExplanationState: &ready,
			Explanation:      &text,
		})
	case isCancelled(err):
		// Superseded: the newer request owns the card state now.
		o.notifier.Notify("Request canceled")
		return domain.ErrCancelled
	default:
		o.logger.Error().Err(err).Str("card", cardID).Msg("explanation request failed")
		absent := domain.ExplanationAbsent
		if updateErr := o.store.Update(cardID, store.CardPatch{ExplanationState: &absent}); updateErr != nil {
			return updateErr
		}
		o.notifier.Notify("Failed to fetch explanation. Try again.")
		return err
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// failBatch aborts the current batch: the typing indicator is removed, a
// user-visible error entry is appended, and previews of the dropped
// remainder are released.
func (o *Orchestrator) failBatch(message string, dropped []decodeOutcome) {
	o.store.RemoveTyping()
	o.store.Append(domain.Entry{
		Kind: domain.EntryKindBotText,
		Text: message,
	})
	for _, d := range dropped {
		if d.decoded != nil {
			d.decoded.Preview.Release()
		}
	}
}

func userTurnText(text string, imageCount int) string {
	if text != "" {
		if imageCount > 0 {
			return fmt.Sprintf("%s (%d image(s))", text, imageCount)
		}
		return text
	}
	return fmt.Sprintf("Sent %d image(s) for analysis.", imageCount)
}

func isCancelled(err error) bool {
	return errors.Is(err, domain.ErrCancelled)
}
