package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/echolabs/twinsight-backend/internal/clients/redis"
	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/repos"
	"github.com/echolabs/twinsight-backend/internal/types"
)

const (
	// DefaultTrackerInterval is how often the background loop runs a batch.
	DefaultTrackerInterval = 15 * time.Minute
	// DefaultTrackerBatchLimit bounds concurrent per-user cycles.
	DefaultTrackerBatchLimit = 5
	// trackerMarkerTTL caps how long a crashed cycle can block a user.
	trackerMarkerTTL = 10 * time.Minute
	// suggestionDedupTTL keeps one suggestion per (pattern, trigger) within a day.
	suggestionDedupTTL = 24 * time.Hour

	// Matching tolerances for one tracking cycle.
	upcomingTriggerHorizon  = 24 * time.Hour
	recentActivityWindow    = 60 * time.Minute
	offsetToleranceMinutes  = 10
	minTrackableConfidence  = 50.0
	minSuggestionConfidence = 70.0
)

// TrackerBatchResult reports one batch run. A single user's failure never
// fails the batch.
type TrackerBatchResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// UserCycleResult summarizes one user's tracking cycle.
type UserCycleResult struct {
	Triggers     int `json:"triggers"`
	Patterns     int `json:"patterns"`
	Observations int `json:"observations"`
	Suggestions  int `json:"suggestions"`
}

type PatternTrackerService interface {
	RunCycleForUser(ctx context.Context, userID uuid.UUID) (*UserCycleResult, error)
	RunBatch(ctx context.Context) (*TrackerBatchResult, error)
	Start(ctx context.Context)
}

type patternTrackerService struct {
	db           *gorm.DB
	log          *logger.Logger
	detection    PatternDetectionService
	connRepo     repos.PlatformConnectionRepo
	triggerRepo  repos.TriggerEventRepo
	activityRepo repos.ActivityEventRepo
	patternRepo  repos.BehavioralPatternRepo
	obsRepo      repos.PatternObservationRepo
	notifier     NotifierService
	narrative    NarrativeService
	markers      redis.MarkerStore
	interval     time.Duration
	batchLimit   int
}

func NewPatternTrackerService(
	db *gorm.DB,
	log *logger.Logger,
	detection PatternDetectionService,
	connRepo repos.PlatformConnectionRepo,
	triggerRepo repos.TriggerEventRepo,
	activityRepo repos.ActivityEventRepo,
	patternRepo repos.BehavioralPatternRepo,
	obsRepo repos.PatternObservationRepo,
	notifier NotifierService,
	narrative NarrativeService,
	markers redis.MarkerStore,
	interval time.Duration,
	batchLimit int,
) PatternTrackerService {
	if interval <= 0 {
		interval = DefaultTrackerInterval
	}
	if batchLimit <= 0 {
		batchLimit = DefaultTrackerBatchLimit
	}
	return &patternTrackerService{
		db:           db,
		log:          log.With("service", "PatternTrackerService"),
		detection:    detection,
		connRepo:     connRepo,
		triggerRepo:  triggerRepo,
		activityRepo: activityRepo,
		patternRepo:  patternRepo,
		obsRepo:      obsRepo,
		notifier:     notifier,
		narrative:    narrative,
		markers:      markers,
		interval:     interval,
		batchLimit:   batchLimit,
	}
}

// RunCycleForUser executes one tracking cycle: refresh detected patterns,
// then match upcoming triggers against active patterns and recent activity.
// A matched expected response becomes an observation; an unmatched one with
// high enough confidence becomes a suggestion. The Redis marker keeps
// overlapping cycles for the same user from running concurrently.
func (s *patternTrackerService) RunCycleForUser(ctx context.Context, userID uuid.UUID) (*UserCycleResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}

	if s.markers != nil {
		key := "tracker:inflight:" + userID.String()
		ok, err := s.markers.Acquire(ctx, key, trackerMarkerTTL)
		if err != nil {
			s.log.Warn("Marker acquire failed; continuing without it", "userID", userID, "error", err)
		} else if !ok {
			s.log.Debug("Tracking cycle already in flight", "userID", userID)
			return &UserCycleResult{}, nil
		} else {
			defer func() {
				if err := s.markers.Release(context.WithoutCancel(ctx), key); err != nil {
					s.log.Warn("Marker release failed", "userID", userID, "error", err)
				}
			}()
		}
	}

	// Detection must finish before matching so this cycle sees fresh
	// confidence scores.
	if s.detection != nil {
		if _, err := s.detection.DetectForUser(ctx, userID); err != nil {
			return nil, fmt.Errorf("detection: %w", err)
		}
	}

	now := time.Now().UTC()
	result := &UserCycleResult{}

	triggers, err := s.triggerRepo.GetUpcoming(ctx, nil, userID, upcomingTriggerHorizon)
	if err != nil {
		return nil, fmt.Errorf("load upcoming triggers: %w", err)
	}
	result.Triggers = len(triggers)
	if len(triggers) == 0 {
		return result, nil
	}

	patterns, err := s.patternRepo.GetActiveByUserID(ctx, nil, userID, minTrackableConfidence)
	if err != nil {
		return nil, fmt.Errorf("load active patterns: %w", err)
	}
	result.Patterns = len(patterns)
	if len(patterns) == 0 {
		return result, nil
	}

	activities, err := s.activityRepo.GetByUserSince(ctx, nil, userID, now.Add(-recentActivityWindow))
	if err != nil {
		return nil, fmt.Errorf("load recent activity: %w", err)
	}

	for _, trig := range triggers {
		for _, pat := range patterns {
			if !keywordsMatch(pat, trig) {
				continue
			}
			// The pair is actionable only while now sits inside the
			// response window: tolerance ahead of the expected time
			// through the pattern's window after it. Without the lower
			// bound a far-off trigger would burn its suggestion (and its
			// de-dup key) many hours early.
			expectedAt := trig.StartTime.Add(time.Duration(pat.TimeOffsetMinutes) * time.Minute)
			if now.Before(expectedAt.Add(-offsetToleranceMinutes*time.Minute)) ||
				now.After(expectedAt.Add(time.Duration(pat.TimeWindowMinutes)*time.Minute)) {
				continue
			}
			if matched, at, offset := findResponse(activities, pat, trig); matched {
				obs := &types.PatternObservation{
					PatternID:        pat.ID,
					TriggerEventID:   trig.ID,
					ResponseObserved: true,
					ResponseAt:       &at,
					OffsetMinutes:    &offset,
					ObservedAt:       now,
				}
				if err := s.obsRepo.Append(ctx, nil, obs); err != nil {
					return result, fmt.Errorf("append observation: %w", err)
				}
				result.Observations++
				continue
			}

			if pat.ConfidenceScore < minSuggestionConfidence {
				continue
			}
			s.emitSuggestion(ctx, userID, pat, trig, now)
			result.Suggestions++
		}
	}

	return result, nil
}

func (s *patternTrackerService) emitSuggestion(ctx context.Context, userID uuid.UUID, pat *types.BehavioralPattern, trig *types.TriggerEvent, now time.Time) {
	if s.markers != nil {
		key := fmt.Sprintf("tracker:suggested:%s:%s", pat.ID, trig.ID)
		ok, err := s.markers.Acquire(ctx, key, suggestionDedupTTL)
		if err != nil {
			s.log.Warn("Suggestion de-dup failed; suppressing", "patternID", pat.ID, "error", err)
			return
		}
		if !ok {
			return
		}
	}
	suggestion := Suggestion{
		PatternID:      pat.ID,
		TriggerID:      trig.ID,
		PatternType:    pat.PatternType,
		Platform:       pat.ResponsePlatform,
		ResponseType:   pat.ResponseType,
		Confidence:     pat.ConfidenceScore,
		TriggerSummary: trig.Summary,
		TriggerStart:   trig.StartTime.Format(time.RFC3339),
		MinutesUntil:   int(trig.StartTime.Sub(now).Minutes()),
		OffsetMinutes:  pat.TimeOffsetMinutes,
	}
	if s.narrative != nil {
		suggestion.Text = s.narrative.SuggestionText(pat, trig)
	}
	if s.notifier != nil {
		s.notifier.NotifySuggestion(ctx, userID, suggestion)
	}
}

// keywordsMatch applies the overlap rule: a keywordless pattern matches any
// trigger of its kind; otherwise at least one pattern keyword must appear in
// the trigger's extracted keywords.
func keywordsMatch(pat *types.BehavioralPattern, trig *types.TriggerEvent) bool {
	patKeywords := pat.KeywordList()
	if len(patKeywords) == 0 {
		return true
	}
	text := trig.Summary + " " + trig.Description
	for _, kw := range patKeywords {
		if kw == "" {
			continue
		}
		if containsFold(text, kw) {
			return true
		}
	}
	return false
}

func containsFold(text, term string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(term))
}

// findResponse looks for a recent activity on the pattern's platform and data
// type within ±tolerance of the expected offset from the trigger start.
func findResponse(activities []*types.ActivityEvent, pat *types.BehavioralPattern, trig *types.TriggerEvent) (bool, time.Time, int) {
	for _, act := range activities {
		if act.Platform != pat.ResponsePlatform || act.DataType != pat.ResponseType {
			continue
		}
		offset := int(act.OccurredAt.Sub(trig.StartTime).Minutes())
		diff := offset - pat.TimeOffsetMinutes
		if diff < 0 {
			diff = -diff
		}
		if diff <= offsetToleranceMinutes {
			return true, act.OccurredAt, offset
		}
	}
	return false, time.Time{}, 0
}

// RunBatch runs one cycle for every user holding an active platform
// connection, with bounded parallelism.
func (s *patternTrackerService) RunBatch(ctx context.Context) (*TrackerBatchResult, error) {
	userIDs, err := s.connRepo.GetUserIDsWithActiveConnections(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := &TrackerBatchResult{Errors: map[string]string{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)
	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			_, err := s.RunCycleForUser(gctx, userID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Warn("Tracking cycle failed", "userID", userID, "error", err)
				out.Failed++
				out.Errors[userID.String()] = err.Error()
				return nil
			}
			out.Succeeded++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

// Start launches the background loop. It stops when ctx is cancelled; a
// panicking batch is logged and the loop keeps going.
func (s *patternTrackerService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.log.Info("Pattern tracker started", "interval", s.interval.String())
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Pattern tracker stopped")
				return
			case <-ticker.C:
				func() {
					defer func() {
						if r := recover(); r != nil {
							s.log.Error("Tracker batch panic", "panic", r)
						}
					}()
					res, err := s.RunBatch(ctx)
					if err != nil {
						s.log.Warn("Tracker batch error", "error", err)
						return
					}
					s.log.Info("Tracker batch complete", "succeeded", res.Succeeded, "failed", res.Failed)
				}()
			}
		}
	}()
}
