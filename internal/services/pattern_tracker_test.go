package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

type fakeDetection struct {
	calls int
}

func (f *fakeDetection) DetectForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	f.calls++
	return 0, nil
}

type fakeConnRepo struct {
	activeUserIDs []uuid.UUID
}

func (f *fakeConnRepo) Upsert(ctx context.Context, tx *gorm.DB, conn *types.PlatformConnection) error {
	return nil
}
func (f *fakeConnRepo) GetByUserAndPlatform(ctx context.Context, tx *gorm.DB, userID uuid.UUID, platform string) (*types.PlatformConnection, error) {
	return nil, nil
}
func (f *fakeConnRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PlatformConnection, error) {
	return nil, nil
}
func (f *fakeConnRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.ConnectionStatus) error {
	return nil
}
func (f *fakeConnRepo) GetUserIDsWithActiveConnections(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error) {
	return f.activeUserIDs, nil
}

type fakeTriggerRepo struct {
	upcoming []*types.TriggerEvent
}

func (f *fakeTriggerRepo) UpsertMany(ctx context.Context, tx *gorm.DB, events []*types.TriggerEvent) error {
	return nil
}
func (f *fakeTriggerRepo) GetByUserAndRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.TriggerEvent, error) {
	return nil, nil
}
func (f *fakeTriggerRepo) GetUpcoming(ctx context.Context, tx *gorm.DB, userID uuid.UUID, within time.Duration) ([]*types.TriggerEvent, error) {
	return f.upcoming, nil
}

type fakeActivityRepo struct {
	recent []*types.ActivityEvent
}

func (f *fakeActivityRepo) CreateMany(ctx context.Context, tx *gorm.DB, events []*types.ActivityEvent) error {
	return nil
}
func (f *fakeActivityRepo) GetByUserAndRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.ActivityEvent, error) {
	return nil, nil
}
func (f *fakeActivityRepo) GetByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.ActivityEvent, error) {
	return f.recent, nil
}

type fakePatternRepo struct {
	active []*types.BehavioralPattern
}

func (f *fakePatternRepo) Upsert(ctx context.Context, tx *gorm.DB, pattern *types.BehavioralPattern) error {
	return nil
}
func (f *fakePatternRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.BehavioralPattern, error) {
	return nil, nil
}
func (f *fakePatternRepo) GetByNaturalKey(ctx context.Context, tx *gorm.DB, pattern *types.BehavioralPattern) (*types.BehavioralPattern, error) {
	return nil, nil
}
func (f *fakePatternRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.BehavioralPattern, error) {
	return f.active, nil
}
func (f *fakePatternRepo) GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, minConfidence float64) ([]*types.BehavioralPattern, error) {
	out := make([]*types.BehavioralPattern, 0, len(f.active))
	for _, p := range f.active {
		if p.ConfidenceScore >= minConfidence {
			out = append(out, p)
		}
	}
	return out, nil
}
func (f *fakePatternRepo) Deactivate(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}
func (f *fakePatternRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}

type fakeObsRepo struct {
	appended []*types.PatternObservation
}

func (f *fakeObsRepo) Append(ctx context.Context, tx *gorm.DB, obs *types.PatternObservation) error {
	f.appended = append(f.appended, obs)
	return nil
}
func (f *fakeObsRepo) GetByPatternID(ctx context.Context, tx *gorm.DB, patternID uuid.UUID) ([]*types.PatternObservation, error) {
	return f.appended, nil
}
func (f *fakeObsRepo) CountByPatternID(ctx context.Context, tx *gorm.DB, patternID uuid.UUID) (int64, error) {
	return int64(len(f.appended)), nil
}

type fakeNotifier struct {
	traits      int
	patterns    int
	suggestions []Suggestion
}

func (f *fakeNotifier) NotifyTraitsUpdated(ctx context.Context, userID uuid.UUID, platform string) {
	f.traits++
}
func (f *fakeNotifier) NotifyPatternDetected(ctx context.Context, userID uuid.UUID, patternID uuid.UUID, patternType string) {
	f.patterns++
}
func (f *fakeNotifier) NotifySuggestion(ctx context.Context, userID uuid.UUID, suggestion Suggestion) {
	f.suggestions = append(f.suggestions, suggestion)
}

func (f *fakeNotifier) NotifyExtractionCompleted(ctx context.Context, userID uuid.UUID, jobID uuid.UUID, platform string, itemsExtracted int) {
}

type fakeMarkers struct {
	held     map[string]bool
	acquired []string
	released []string
}

func (f *fakeMarkers) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if f.held[key] {
		return false, nil
	}
	if f.held == nil {
		f.held = map[string]bool{}
	}
	f.held[key] = true
	f.acquired = append(f.acquired, key)
	return true, nil
}
func (f *fakeMarkers) Release(ctx context.Context, key string) error {
	delete(f.held, key)
	f.released = append(f.released, key)
	return nil
}
func (f *fakeMarkers) Close() error { return nil }

func TestRunCycleForUserObservationAndSuggestion(t *testing.T) {
	userID := uuid.New()
	now := time.Now().UTC()

	trigger := &types.TriggerEvent{
		ID:         uuid.New(),
		UserID:     userID,
		ExternalID: "evt-1",
		Summary:    "Final interview",
		StartTime:  now.Add(20 * time.Minute),
	}

	// A response already happened for this one: expected 30 minutes before
	// the trigger, and a matching listening session occurred 10 minutes ago.
	observed := &types.BehavioralPattern{
		ID:                uuid.New(),
		UserID:            userID,
		PatternType:       types.PatternPreEventRitual,
		TriggerKeywords:   "interview",
		ResponsePlatform:  "spotify",
		ResponseType:      "listening_session",
		TimeOffsetMinutes: -30,
		TimeWindowMinutes: 15,
		ConfidenceScore:   80,
		IsActive:          true,
	}
	// Same trigger, no matching activity, confident enough to suggest.
	unmet := &types.BehavioralPattern{
		ID:                uuid.New(),
		UserID:            userID,
		PatternType:       types.PatternPreEventRitual,
		TriggerKeywords:   "interview",
		ResponsePlatform:  "youtube",
		ResponseType:      "viewing_session",
		TimeOffsetMinutes: -30,
		TimeWindowMinutes: 15,
		ConfidenceScore:   75,
		IsActive:          true,
	}
	// Below the suggestion threshold: tracked but never suggested.
	quiet := &types.BehavioralPattern{
		ID:                uuid.New(),
		UserID:            userID,
		PatternType:       types.PatternPreEventRitual,
		TriggerKeywords:   "interview",
		ResponsePlatform:  "github",
		ResponseType:      "commit_burst",
		TimeOffsetMinutes: -30,
		TimeWindowMinutes: 15,
		ConfidenceScore:   55,
		IsActive:          true,
	}

	activity := &types.ActivityEvent{
		ID:         uuid.New(),
		UserID:     userID,
		Platform:   "spotify",
		DataType:   "listening_session",
		OccurredAt: now.Add(-10 * time.Minute),
	}

	detection := &fakeDetection{}
	obsRepo := &fakeObsRepo{}
	notifier := &fakeNotifier{}
	markers := &fakeMarkers{}

	svc := NewPatternTrackerService(
		nil,
		testLogger(t),
		detection,
		&fakeConnRepo{},
		&fakeTriggerRepo{upcoming: []*types.TriggerEvent{trigger}},
		&fakeActivityRepo{recent: []*types.ActivityEvent{activity}},
		&fakePatternRepo{active: []*types.BehavioralPattern{observed, unmet, quiet}},
		obsRepo,
		notifier,
		NewTemplateNarrative(),
		markers,
		0,
		0,
	)

	result, err := svc.RunCycleForUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("RunCycleForUser: %v", err)
	}
	if detection.calls != 1 {
		t.Fatalf("expected 1 detection run, got %d", detection.calls)
	}
	if result.Triggers != 1 || result.Patterns != 3 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.Observations != 1 {
		t.Fatalf("expected 1 observation, got %d", result.Observations)
	}
	if result.Suggestions != 1 {
		t.Fatalf("expected 1 suggestion, got %d", result.Suggestions)
	}

	if len(obsRepo.appended) != 1 {
		t.Fatalf("expected 1 appended observation, got %d", len(obsRepo.appended))
	}
	obs := obsRepo.appended[0]
	if obs.PatternID != observed.ID || obs.TriggerEventID != trigger.ID {
		t.Fatalf("observation bound to wrong pattern/trigger: %+v", obs)
	}
	if !obs.ResponseObserved || obs.OffsetMinutes == nil || *obs.OffsetMinutes != -30 {
		t.Fatalf("unexpected observation payload: %+v", obs)
	}

	if len(notifier.suggestions) != 1 {
		t.Fatalf("expected 1 suggestion notification, got %d", len(notifier.suggestions))
	}
	sug := notifier.suggestions[0]
	if sug.PatternID != unmet.ID || sug.Platform != "youtube" {
		t.Fatalf("suggestion from wrong pattern: %+v", sug)
	}
	if sug.Text == "" {
		t.Fatal("suggestion text missing")
	}
	if sug.TriggerSummary != "Final interview" {
		t.Fatalf("suggestion missing trigger summary: %+v", sug)
	}
	if sug.MinutesUntil < 19 || sug.MinutesUntil > 20 {
		t.Fatalf("unexpected minutes until trigger: %d", sug.MinutesUntil)
	}

	// The in-flight marker must be released so the next cycle can run.
	if len(markers.released) == 0 {
		t.Fatal("in-flight marker never released")
	}
}

func TestRunCycleForUserSkipsWhenMarkerHeld(t *testing.T) {
	userID := uuid.New()
	detection := &fakeDetection{}
	markers := &fakeMarkers{held: map[string]bool{"tracker:inflight:" + userID.String(): true}}

	svc := NewPatternTrackerService(
		nil,
		testLogger(t),
		detection,
		&fakeConnRepo{},
		&fakeTriggerRepo{},
		&fakeActivityRepo{},
		&fakePatternRepo{},
		&fakeObsRepo{},
		&fakeNotifier{},
		NewTemplateNarrative(),
		markers,
		0,
		0,
	)

	result, err := svc.RunCycleForUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("RunCycleForUser: %v", err)
	}
	if detection.calls != 0 {
		t.Fatal("detection ran despite held marker")
	}
	if result.Triggers != 0 || result.Observations != 0 || result.Suggestions != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestRunCycleForUserHoldsSuggestionUntilWindow(t *testing.T) {
	userID := uuid.New()
	now := time.Now().UTC()

	// Trigger is within the 24h horizon but far outside the pattern's
	// response window. Suggesting now would also burn the de-dup key,
	// silencing the correctly timed suggestion later.
	trigger := &types.TriggerEvent{
		ID:         uuid.New(),
		UserID:     userID,
		ExternalID: "evt-3",
		Summary:    "Final interview",
		StartTime:  now.Add(20 * time.Hour),
	}
	pat := &types.BehavioralPattern{
		ID:                uuid.New(),
		UserID:            userID,
		PatternType:       types.PatternPreEventRitual,
		TriggerKeywords:   "interview",
		ResponsePlatform:  "spotify",
		ResponseType:      "listening_session",
		TimeOffsetMinutes: -20,
		TimeWindowMinutes: 30,
		ConfidenceScore:   90,
		IsActive:          true,
	}

	notifier := &fakeNotifier{}
	markers := &fakeMarkers{}

	svc := NewPatternTrackerService(
		nil,
		testLogger(t),
		&fakeDetection{},
		&fakeConnRepo{},
		&fakeTriggerRepo{upcoming: []*types.TriggerEvent{trigger}},
		&fakeActivityRepo{},
		&fakePatternRepo{active: []*types.BehavioralPattern{pat}},
		&fakeObsRepo{},
		notifier,
		NewTemplateNarrative(),
		markers,
		0,
		0,
	)

	ctx := context.Background()
	result, err := svc.RunCycleForUser(ctx, userID)
	if err != nil {
		t.Fatalf("RunCycleForUser: %v", err)
	}
	if result.Suggestions != 0 || len(notifier.suggestions) != 0 {
		t.Fatalf("suggested %d time(s) with the trigger still 20h away", len(notifier.suggestions))
	}
	if len(markers.acquired) != 1 {
		t.Fatalf("expected only the in-flight marker, got %v", markers.acquired)
	}

	// Once the window opens the same pair must still be able to suggest.
	trigger.StartTime = now.Add(15 * time.Minute)
	result, err = svc.RunCycleForUser(ctx, userID)
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if result.Suggestions != 1 || len(notifier.suggestions) != 1 {
		t.Fatalf("expected 1 suggestion once in window, got %d", len(notifier.suggestions))
	}
}

func TestRunCycleForUserSuggestionDedup(t *testing.T) {
	userID := uuid.New()
	now := time.Now().UTC()

	trigger := &types.TriggerEvent{
		ID:         uuid.New(),
		UserID:     userID,
		ExternalID: "evt-2",
		Summary:    "Board presentation",
		StartTime:  now.Add(15 * time.Minute),
	}
	pat := &types.BehavioralPattern{
		ID:                uuid.New(),
		UserID:            userID,
		PatternType:       types.PatternPreEventRitual,
		TriggerKeywords:   "presentation",
		ResponsePlatform:  "spotify",
		ResponseType:      "listening_session",
		TimeOffsetMinutes: -20,
		TimeWindowMinutes: 30,
		ConfidenceScore:   90,
		IsActive:          true,
	}

	notifier := &fakeNotifier{}
	markers := &fakeMarkers{}

	svc := NewPatternTrackerService(
		nil,
		testLogger(t),
		&fakeDetection{},
		&fakeConnRepo{},
		&fakeTriggerRepo{upcoming: []*types.TriggerEvent{trigger}},
		&fakeActivityRepo{},
		&fakePatternRepo{active: []*types.BehavioralPattern{pat}},
		&fakeObsRepo{},
		notifier,
		NewTemplateNarrative(),
		markers,
		0,
		0,
	)

	ctx := context.Background()
	if _, err := svc.RunCycleForUser(ctx, userID); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if _, err := svc.RunCycleForUser(ctx, userID); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if len(notifier.suggestions) != 1 {
		t.Fatalf("expected 1 suggestion across cycles, got %d", len(notifier.suggestions))
	}
}

func TestRunBatchContainsPerUserFailures(t *testing.T) {
	okUser := uuid.New()
	badUser := uuid.Nil // forced failure inside RunCycleForUser

	svc := NewPatternTrackerService(
		nil,
		testLogger(t),
		&fakeDetection{},
		&fakeConnRepo{activeUserIDs: []uuid.UUID{okUser, badUser}},
		&fakeTriggerRepo{},
		&fakeActivityRepo{},
		&fakePatternRepo{},
		&fakeObsRepo{},
		&fakeNotifier{},
		NewTemplateNarrative(),
		nil,
		0,
		0,
	)

	result, err := svc.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("unexpected batch result: %+v", result)
	}
	if _, ok := result.Errors[badUser.String()]; !ok {
		t.Fatalf("missing error entry for failed user: %+v", result.Errors)
	}
}

func TestKeywordsMatch(t *testing.T) {
	trig := &types.TriggerEvent{Summary: "Quarterly review with leadership", Description: "prep deck"}

	keywordless := &types.BehavioralPattern{}
	if !keywordsMatch(keywordless, trig) {
		t.Fatal("keywordless pattern should match any trigger")
	}

	matching := &types.BehavioralPattern{TriggerKeywords: "review,exam"}
	if !keywordsMatch(matching, trig) {
		t.Fatal("expected keyword overlap on summary")
	}

	miss := &types.BehavioralPattern{TriggerKeywords: "interview,launch"}
	if keywordsMatch(miss, trig) {
		t.Fatal("expected no keyword overlap")
	}
}
