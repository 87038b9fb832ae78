// Package pipeline drives one episode through the generation state machine:
// queued → rewriting_queries → retrieving_content → generating_script →
// generating_audio → ready, with failed terminal from any non-terminal
// state. The pipeline is stateless across invocations; it re-reads the
// episode row and re-derives everything else.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"briefcast/internal/cover"
	"briefcast/internal/llm"
	"briefcast/internal/models"
	"briefcast/internal/research"
	"briefcast/internal/store"
	"briefcast/internal/tts"
)

const maxQueriesPerTopic = 5

// Researcher executes one search query.
type Researcher interface {
	Search(ctx context.Context, query string) (research.Answer, error)
}

// ScriptGenerator plans queries and writes segment scripts and episode
// metadata.
type ScriptGenerator interface {
	PlanQueries(ctx context.Context, topic string, history []string) ([]string, error)
	WriteSegment(ctx context.Context, topic, findings string, sources []string, targetMinutes int) (llm.SegmentScript, error)
	WriteEpisodeMetadata(ctx context.Context, transcript string, segments []llm.SegmentSummary) (llm.EpisodeMetadata, error)
}

// CoverArtist generates cover art. Its failures never fail an episode.
type CoverArtist interface {
	Generate(ctx context.Context, userID int64, episodeID int, prompt string) (cover.Image, error)
}

// Pipeline orchestrates episode generation.
type Pipeline struct {
	store    store.Store
	research Researcher
	scripts  ScriptGenerator
	tts      tts.Synthesizer
	cover    CoverArtist

	// voices are cycled across narration turns for dialogue synthesis;
	// the first doubles as the single-voice fallback.
	voices []string
}

// New wires a pipeline. voices must not be empty.
func New(st store.Store, r Researcher, s ScriptGenerator, synth tts.Synthesizer, c CoverArtist, voices []string) *Pipeline {
	return &Pipeline{
		store:    st,
		research: r,
		scripts:  s,
		tts:      synth,
		cover:    c,
		voices:   voices,
	}
}

// Process generates the episode. On any error the episode is marked failed
// with the error message and the error is returned so the job queue's retry
// policy can decide what to do with the job.
func (p *Pipeline) Process(ctx context.Context, userID int64, episodeID int) error {
	log.Printf("Processing episode %d for user %d", episodeID, userID)

	if err := p.run(ctx, userID, episodeID); err != nil {
		msg := err.Error()
		failed := models.StatusFailed
		if uerr := p.store.UpdateEpisode(ctx, userID, episodeID, store.EpisodeUpdate{Status: &failed, ErrorMessage: &msg}); uerr != nil {
			log.Printf("failed to mark episode %d failed: %v", episodeID, uerr)
		}
		return err
	}

	log.Printf("Episode %d is ready", episodeID)
	return nil
}

func (p *Pipeline) run(ctx context.Context, userID int64, episodeID int) error {
	episode, err := p.store.GetEpisode(ctx, userID, episodeID)
	if err != nil {
		return fmt.Errorf("failed to load episode: %w", err)
	}

	if err := p.setStatus(ctx, userID, episodeID, models.StatusRewritingQueries); err != nil {
		return err
	}

	topics, err := p.store.ListActiveTopics(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load topics: %w", err)
	}
	if len(topics) == 0 {
		return fmt.Errorf("no active topics")
	}

	perSegmentMinutes := int(math.Round(float64(episode.TargetDurationMinutes) / float64(len(topics))))
	if perSegmentMinutes < 1 {
		perSegmentMinutes = 1
	}

	if err := p.setStatus(ctx, userID, episodeID, models.StatusRetrievingContent); err != nil {
		return err
	}

	var segments []models.EpisodeSegment
	var episodeSourceURLs []string
	cumulativeSeconds := 0

	// Topics and their queries run strictly sequentially: citation order
	// stays deterministic and the research API's rate limits are
	// respected.
	for idx, topic := range topics {
		segment, err := p.buildSegment(ctx, userID, episodeID, topic, idx, perSegmentMinutes, cumulativeSeconds)
		if err != nil {
			return fmt.Errorf("topic %q: %w", topic.Text, err)
		}
		cumulativeSeconds += segment.DurationSeconds
		episodeSourceURLs = append(episodeSourceURLs, segment.Sources...)
		segments = append(segments, segment)
	}

	if err := p.store.ReplaceSegments(ctx, episodeID, segments); err != nil {
		return fmt.Errorf("failed to persist segments: %w", err)
	}
	var sourceRows []models.EpisodeSource
	for _, u := range DedupSourceURLs(episodeSourceURLs) {
		sourceRows = append(sourceRows, models.EpisodeSource{EpisodeID: episodeID, URL: u})
	}
	if err := p.store.ReplaceSources(ctx, episodeID, sourceRows); err != nil {
		return fmt.Errorf("failed to persist sources: %w", err)
	}

	if err := p.setStatus(ctx, userID, episodeID, models.StatusGeneratingScript); err != nil {
		return err
	}

	var scriptParts []string
	for _, s := range segments {
		if strings.TrimSpace(s.Script) != "" {
			scriptParts = append(scriptParts, s.Script)
		}
	}
	transcript := strings.Join(scriptParts, "\n\n")

	if err := p.setStatus(ctx, userID, episodeID, models.StatusGeneratingAudio); err != nil {
		return err
	}

	// Metadata+cover and full-episode audio run concurrently. A cover
	// failure is logged and swallowed; everything else propagates.
	var (
		meta        llm.EpisodeMetadata
		coverPrompt string
		coverImage  *cover.Image
		audioResult tts.Result
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summaries := make([]llm.SegmentSummary, 0, len(segments))
		titles := make([]string, 0, len(segments))
		for _, s := range segments {
			summaries = append(summaries, llm.SegmentSummary{Title: s.Title, DurationSeconds: s.DurationSeconds})
			titles = append(titles, s.Title)
		}

		m, err := p.scripts.WriteEpisodeMetadata(gctx, transcript, summaries)
		if err != nil {
			return fmt.Errorf("failed to generate episode metadata: %w", err)
		}
		meta = m

		coverPrompt = cover.BuildPrompt(meta.Title, titles)
		img, err := p.cover.Generate(gctx, userID, episodeID, coverPrompt)
		if err != nil {
			log.Printf("cover generation failed for episode %d: %v", episodeID, err)
			return nil
		}
		coverImage = &img
		return nil
	})

	g.Go(func() error {
		result, err := p.tts.Synthesize(gctx, tts.Request{
			Turns:         p.turnsFor(transcript),
			FallbackVoice: p.voices[0],
			StorageKey:    fmt.Sprintf("%d/%d.mp3", userID, episodeID),
		})
		if err != nil {
			return fmt.Errorf("failed to synthesize episode audio: %w", err)
		}
		audioResult = result
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	durationSeconds := cumulativeSeconds
	if audioResult.Measured {
		durationSeconds = audioResult.DurationSeconds
	}

	ready := models.StatusReady
	upd := store.EpisodeUpdate{
		Status:          &ready,
		Title:           &meta.Title,
		Transcript:      &transcript,
		Description:     &meta.Description,
		ShowNotes:       &meta.ShowNotes,
		AudioPath:       &audioResult.AudioPath,
		DurationSeconds: &durationSeconds,
		CoverPrompt:     &coverPrompt,
	}
	if coverImage != nil {
		upd.CoverImagePath = &coverImage.Path
	}
	if err := p.store.UpdateEpisode(ctx, userID, episodeID, upd); err != nil {
		return fmt.Errorf("failed to finalize episode: %w", err)
	}
	return nil
}

// buildSegment researches one topic and produces its scripted, narrated
// segment starting at startSeconds.
func (p *Pipeline) buildSegment(ctx context.Context, userID int64, episodeID int, topic models.Topic, orderIndex, targetMinutes, startSeconds int) (models.EpisodeSegment, error) {
	prior, err := p.store.ListPriorQueries(ctx, userID, topic.ID)
	if err != nil {
		return models.EpisodeSegment{}, fmt.Errorf("failed to load prior queries: %w", err)
	}
	history := make([]string, 0, len(prior))
	for _, q := range prior {
		history = append(history, q.Query)
	}

	candidates, err := p.scripts.PlanQueries(ctx, topic.Text, history)
	if err != nil {
		return models.EpisodeSegment{}, fmt.Errorf("failed to plan queries: %w", err)
	}

	selected := SelectFresh(candidates, history)
	if len(selected) == 0 {
		selected = SelectFresh([]string{topic.Text}, history)
	}
	if len(selected) > maxQueriesPerTopic {
		selected = selected[:maxQueriesPerTopic]
	}
	// At least one query always runs, even if the topic text itself was
	// used before.
	if len(selected) == 0 {
		selected = []string{topic.Text}
	}

	var executed []ExecutedQuery
	var citations []string
	rows := make([]models.TopicQuery, 0, len(selected))
	for i, query := range selected {
		answer, err := p.research.Search(ctx, query)
		if err != nil {
			return models.EpisodeSegment{}, fmt.Errorf("search %q failed: %w", query, err)
		}
		executed = append(executed, ExecutedQuery{Query: query, Answer: answer.Answer})
		citations = append(citations, answer.Citations...)
		rows = append(rows, models.TopicQuery{
			TopicID:   topic.ID,
			EpisodeID: episodeID,
			Query:     query,
			Answer:    answer.Answer,
			Citations: answer.Citations,
			Position:  i,
		})
	}
	if err := p.store.InsertTopicQueries(ctx, rows); err != nil {
		return models.EpisodeSegment{}, fmt.Errorf("failed to persist queries: %w", err)
	}

	findings := BuildFindings(topic.Text, executed)
	sources := DedupSourceURLs(citations)

	script, err := p.scripts.WriteSegment(ctx, topic.Text, findings, sources, targetMinutes)
	if err != nil {
		return models.EpisodeSegment{}, fmt.Errorf("failed to write segment script: %w", err)
	}
	title := script.Title
	if strings.TrimSpace(title) == "" {
		title = topic.Text
	}

	result, err := p.tts.Synthesize(ctx, tts.Request{
		Turns:         p.turnsFor(script.Script),
		FallbackVoice: p.voices[0],
	})
	if err != nil {
		return models.EpisodeSegment{}, fmt.Errorf("failed to synthesize segment audio: %w", err)
	}
	duration := result.DurationSeconds
	if !result.Measured {
		duration = tts.EstimateSeconds(script.Script)
	}

	return models.EpisodeSegment{
		EpisodeID:        episodeID,
		OrderIndex:       orderIndex,
		Title:            title,
		Findings:         findings,
		Sources:          sources,
		Script:           script.Script,
		AudioPath:        &result.AudioPath,
		StartTimeSeconds: startSeconds,
		DurationSeconds:  duration,
	}, nil
}

// turnsFor splits a script into paragraph turns, cycling through the
// configured voices.
func (p *Pipeline) turnsFor(script string) []tts.Turn {
	var turns []tts.Turn
	for _, para := range strings.Split(script, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		turns = append(turns, tts.Turn{
			Voice: p.voices[len(turns)%len(p.voices)],
			Text:  para,
		})
	}
	if len(turns) == 0 {
		turns = append(turns, tts.Turn{Voice: p.voices[0], Text: script})
	}
	return turns
}

func (p *Pipeline) setStatus(ctx context.Context, userID int64, episodeID int, status string) error {
	if err := p.store.UpdateEpisode(ctx, userID, episodeID, store.EpisodeUpdate{Status: &status}); err != nil {
		return fmt.Errorf("failed to set status %s: %w", status, err)
	}
	return nil
}
