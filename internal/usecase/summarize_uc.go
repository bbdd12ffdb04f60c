package usecase

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"transcript-digest/internal/config"
	"transcript-digest/internal/domain"
	"transcript-digest/internal/domain/model"
	"transcript-digest/internal/domain/ports/adapter"
	"transcript-digest/internal/domain/ports/repository"
	"transcript-digest/internal/infra/logging"
	"transcript-digest/internal/infra/metrics"
	"transcript-digest/internal/segment"
)

// ProgressFunc receives progress updates: a fraction in [0,1] and a
// human-readable message. Retry notices from the generation client arrive here
// too, carrying the most recent fraction.
type ProgressFunc func(fraction float64, message string)

// Compile-time check
var _ SummarizeUseCase = (*summarizeUC)(nil)

// SummarizeUseCase drives the summarization pipeline: segment, summarize each
// segment, synthesize the overall summary, extract topics, finalize. Every
// phase is idempotent and re-entrant; the task snapshot is persisted after
// every mutation, so an interrupted run resumes without redoing finished work
// or re-issuing completed generation calls.
type SummarizeUseCase interface {
	Summarize(ctx context.Context, text, modelKey string, progress ProgressFunc, task *model.TaskState) (*model.SummaryResult, error)
	DeepAnalysis(ctx context.Context, text, modelKey string) (string, error)
}

type summarizeUC struct {
	cfg       *config.Config
	tasks     repository.TaskRepository
	segmenter *segment.Segmenter
	gens      adapter.GeneratorFactory
	log       *zerolog.Logger
}

func NewSummarizeUseCase(cfg *config.Config, tasks repository.TaskRepository, gens adapter.GeneratorFactory, log *zerolog.Logger) *summarizeUC {
	seg := cfg.Summarization.Segmentation
	return &summarizeUC{
		cfg:       cfg,
		tasks:     tasks,
		segmenter: segment.New(seg.MinSegmentLength, seg.MaxSegmentLength, seg.OverlapRatio),
		gens:      gens,
		log:       log,
	}
}

// Summarize runs the pipeline for one transcript. Passing a previously stored
// task resumes it; passing nil creates a fresh one. The caller must not drive
// the same task id concurrently.
func (u *summarizeUC) Summarize(ctx context.Context, text, modelKey string, progress ProgressFunc, task *model.TaskState) (*model.SummaryResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty transcript", domain.ErrInvalidArgument)
	}

	var lastFraction float64
	report := func(f float64, msg string) {
		lastFraction = f
		if progress != nil {
			progress(f, msg)
		}
	}
	notify := func(msg string) {
		if progress != nil {
			progress(lastFraction, msg)
		}
	}

	// Configuration problems surface before any task state is touched.
	gen, err := u.gens.ForModel(modelKey, notify)
	if err != nil {
		return nil, err
	}

	if task == nil {
		task = model.NewTaskState(GenerateTaskID(deriveTitle(text)), deriveTitle(text), modelKey)
		if err := u.tasks.Save(ctx, task); err != nil {
			return nil, err
		}
		metrics.IncTaskCreated()
	}

	ctx = logging.WithTaskID(ctx, task.TaskID)
	ctx = logging.WithModelKey(ctx, modelKey)
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "summarizeUC.Summarize")()

	result, err := u.run(ctx, log, gen, text, task, report)
	if err != nil {
		// Checkpointed progress survives; the task re-enters the next
		// incomplete phase on resumption.
		task.ErrorInfo = err.Error()
		task.Status = model.TaskStatusFailed
		task.Touch()
		if serr := u.tasks.Save(ctx, task); serr != nil {
			log.Error().Err(serr).Msg("failed to persist failed task state")
		}
		metrics.IncTaskFinished(string(model.TaskStatusFailed))
		return nil, err
	}
	return result, nil
}

func (u *summarizeUC) run(ctx context.Context, log *zerolog.Logger, gen adapter.TextGenerator, text string, task *model.TaskState, report ProgressFunc) (*model.SummaryResult, error) {
	// Phase 1: segmentation. Always recomputed, never restored; the segmenter
	// is deterministic so a resumed task sees the same boundaries.
	report(0.05, "segmenting transcript...")
	segments := u.segmenter.Segment(text)

	if task.TotalSegments == 0 {
		if len(segments) == 0 {
			return nil, fmt.Errorf("%w: transcript produced no segments", domain.ErrInvalidArgument)
		}
		task.TotalSegments = len(segments)
		task.Status = model.TaskStatusSegmentsInProgress
		task.Touch()
		if err := u.tasks.Save(ctx, task); err != nil {
			return nil, err
		}
	} else if len(segments) != task.TotalSegments {
		return nil, fmt.Errorf("%w: recorded %d, recomputed %d (segmentation settings changed?)",
			domain.ErrSegmentCountMismatch, task.TotalSegments, len(segments))
	}

	// Phase 2: per-segment summaries. Previously failed indices fall back into
	// the remaining set automatically, which is what retries them on resume.
	remaining := remainingSegments(task, segments)
	total := task.TotalSegments
	alreadyDone := len(task.CompletedSegments)
	report(0.1, fmt.Sprintf("%d of %d segments remaining", len(remaining), total))

	for i, seg := range remaining {
		fraction := 0.1 + float64(alreadyDone+i)/float64(total)*0.7
		report(fraction, fmt.Sprintf("summarizing segment %d/%d...", seg.Index, total))

		summary, err := u.summarizeSegment(ctx, gen, seg)
		if err != nil {
			log.Error().Err(err).Int("segment", seg.Index).Msg("segment summarization failed")
			task.AddFailedSegment(seg.Index, err.Error())
			if serr := u.tasks.Save(ctx, task); serr != nil {
				return nil, serr
			}
			metrics.IncSegmentFailed()
			continue
		}

		var keywords []string
		if u.cfg.Summarization.Summary.IncludeKeywords {
			keywords, err = u.extractKeywords(ctx, gen, seg.Content)
			if err != nil {
				// Keywords degrade to empty; they never fail the segment.
				log.Warn().Err(err).Int("segment", seg.Index).Msg("keyword extraction failed")
				keywords = nil
			}
		}

		task.AddCompletedSegment(model.SegmentSummary{
			Index:          seg.Index,
			StartTime:      seg.StartTime,
			OriginalLength: seg.Length,
			Summary:        summary,
			Keywords:       keywords,
		})
		if err := u.tasks.Save(ctx, task); err != nil {
			return nil, err
		}
		metrics.IncSegmentCompleted()
		report(fraction, fmt.Sprintf("segment %d done (%.1f%%)", seg.Index, task.ProgressPercentage()))
	}

	// Phase 3: completion gate. With failures outstanding the task stays
	// resumable and the caller gets a partial result.
	if len(task.CompletedSegments) < total {
		if len(task.FailedSegments) > 0 {
			task.Status = model.TaskStatusSegmentsInProgress
			report(0.8, fmt.Sprintf("segments partially done: %d/%d completed, %d failed",
				len(task.CompletedSegments), total, len(task.FailedSegments)))
		} else {
			task.Status = model.TaskStatusSegmentsCompleted
			report(0.8, fmt.Sprintf("segments done: %d/%d", len(task.CompletedSegments), total))
		}
		task.Touch()
		if err := u.tasks.Save(ctx, task); err != nil {
			return nil, err
		}
		metrics.IncTaskFinished(string(task.Status))
		return u.buildResult(task, text, true), nil
	}

	// Phase 4: overall synthesis, at most once per task.
	if task.OverallSummary == "" {
		report(0.85, "synthesizing overall summary...")
		overall, err := u.generateOverallSummary(ctx, gen, task.CompletedSegments)
		if err != nil {
			log.Error().Err(err).Msg("overall synthesis failed")
			task.Status = model.TaskStatusSegmentsCompleted
			task.Touch()
			if serr := u.tasks.Save(ctx, task); serr != nil {
				return nil, serr
			}
			metrics.IncTaskFinished(string(task.Status))
			return u.buildResult(task, text, true), nil
		}
		task.OverallSummary = overall
		task.Touch()
		if err := u.tasks.Save(ctx, task); err != nil {
			return nil, err
		}
	}

	// Phase 5: topic analysis, config-gated. A failure records an empty
	// attempt so the phase is never retried forever.
	if u.cfg.Summarization.Summary.IncludeTopics && task.Topics == nil {
		report(0.95, "analyzing topics...")
		topics, err := u.analyzeTopics(ctx, gen, text)
		if err != nil {
			log.Warn().Err(err).Msg("topic analysis failed")
			topics = []string{}
		}
		task.Topics = topics
		task.Touch()
		if err := u.tasks.Save(ctx, task); err != nil {
			return nil, err
		}
	}

	// Phase 6: finalize.
	task.Status = model.TaskStatusOverallCompleted
	task.Touch()
	if err := u.tasks.Save(ctx, task); err != nil {
		return nil, err
	}
	metrics.IncTaskFinished(string(task.Status))
	report(1.0, "summary complete")
	return u.buildResult(task, text, false), nil
}

// DeepAnalysis applies the configured instruction template to the full
// transcript in a single stateless call: no segmentation, no checkpointing.
func (u *summarizeUC) DeepAnalysis(ctx context.Context, text, modelKey string) (string, error) {
	if !u.cfg.DeepAnalysis.Enabled {
		return "", domain.ErrDeepAnalysisDisabled
	}
	promptBytes, err := os.ReadFile(u.cfg.DeepAnalysis.PromptFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", u.cfg.DeepAnalysis.PromptFile, domain.ErrPromptFileMissing)
		}
		return "", fmt.Errorf("read prompt file: %w", err)
	}

	gen, err := u.gens.ForModel(modelKey, nil)
	if err != nil {
		return "", err
	}

	content := fmt.Sprintf("Analyze the following transcript according to these guidelines:\n\n[Guidelines]\n%s\n\n[Transcript]\n%s",
		strings.TrimSpace(string(promptBytes)), text)
	return gen.Complete(ctx, []adapter.Message{{Role: "user", Content: content}}, deepAnalysisSystem)
}

// ---- generation call helpers ----

func (u *summarizeUC) summarizeSegment(ctx context.Context, gen adapter.TextGenerator, seg model.Segment) (string, error) {
	msg := fmt.Sprintf("Summarize this transcript excerpt (segment %d):\n\n%s", seg.Index, seg.Content)
	return gen.Complete(ctx, []adapter.Message{{Role: "user", Content: msg}}, segmentSummarySystem)
}

func (u *summarizeUC) extractKeywords(ctx context.Context, gen adapter.TextGenerator, content string) ([]string, error) {
	msg := fmt.Sprintf("Extract keywords from the following text:\n\n%s", content)
	reply, err := gen.Complete(ctx, []adapter.Message{{Role: "user", Content: msg}}, keywordsSystem)
	if err != nil {
		return nil, err
	}
	var keywords []string
	for _, kw := range strings.Split(reply, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords, nil
}

func (u *summarizeUC) generateOverallSummary(ctx context.Context, gen adapter.TextGenerator, completed []model.SegmentSummary) (string, error) {
	ordered := make([]model.SegmentSummary, len(completed))
	copy(ordered, completed)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	var b strings.Builder
	for i, s := range ordered {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s.Summary)
	}
	msg := fmt.Sprintf("Based on the following per-segment summaries, produce one overall summary:\n\n%s", b.String())
	return gen.Complete(ctx, []adapter.Message{{Role: "user", Content: msg}}, overallSummarySystem)
}

func (u *summarizeUC) analyzeTopics(ctx context.Context, gen adapter.TextGenerator, text string) ([]string, error) {
	sample := prefixRunes(text, u.cfg.Summarization.Summary.TopicSampleChars)
	msg := fmt.Sprintf("Identify the main topics of the following text:\n\n%s", sample)
	reply, err := gen.Complete(ctx, []adapter.Message{{Role: "user", Content: msg}}, topicsSystem)
	if err != nil {
		return nil, err
	}
	topics := []string{}
	for _, line := range strings.Split(reply, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			topics = append(topics, line)
		}
	}
	return topics, nil
}

// ---- result assembly ----

func (u *summarizeUC) buildResult(task *model.TaskState, originalText string, partial bool) *model.SummaryResult {
	overall := task.OverallSummary
	if overall == "" {
		overall = overallPendingPlaceholder
	}
	topics := task.Topics
	if topics == nil {
		topics = []string{}
	}
	progressPct := task.ProgressPercentage()
	if !partial {
		progressPct = 100
	}

	segments := make([]model.SegmentSummary, len(task.CompletedSegments))
	copy(segments, task.CompletedSegments)

	return &model.SummaryResult{
		Segments:       segments,
		OverallSummary: overall,
		Topics:         topics,
		Metadata: model.ResultMetadata{
			TotalSegments:          task.TotalSegments,
			CompletedSegmentsCount: len(task.CompletedSegments),
			FailedSegmentsCount:    len(task.FailedSegments),
			OriginalLength:         len(originalText),
			ModelUsed:              u.modelName(task.ModelKey),
			GeneratedAt:            task.UpdatedAt,
			TaskID:                 task.TaskID,
			ProgressPercentage:     progressPct,
			Status:                 task.Status,
			IsPartial:              partial,
		},
	}
}

func (u *summarizeUC) modelName(modelKey string) string {
	if m, ok := u.cfg.Models[modelKey]; ok && m.Name != "" {
		return m.Name
	}
	return modelKey
}

// ---- small helpers ----

func remainingSegments(task *model.TaskState, segments []model.Segment) []model.Segment {
	out := make([]model.Segment, 0, len(segments))
	for _, seg := range segments {
		if !task.IsSegmentCompleted(seg.Index) {
			out = append(out, seg)
		}
	}
	return out
}

func deriveTitle(text string) string {
	title := strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(prefixRunes(title, 50))
}

func prefixRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
