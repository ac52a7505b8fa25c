package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/slideforge/slideforge/internal/log"
	"github.com/slideforge/slideforge/internal/quality"
	"github.com/slideforge/slideforge/internal/record"
	"github.com/slideforge/slideforge/internal/slide"
)

// fakeClock returns increasing times one second apart.
func fakeClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(filepath.Join(t.TempDir(), "output"))
	m.now = fakeClock(time.Date(2026, 4, 2, 9, 30, 0, 0, time.Local))
	return m
}

func fieldsOf(t *testing.T, s string) record.Map {
	t.Helper()
	var m record.Map
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("decoding %s: %v", s, err)
	}
	return m
}

func newSetupSession(t *testing.T, m *Manager) *Session {
	t.Helper()
	s, err := m.Create("Q3 Review")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.CompleteSetup(fieldsOf(t, `{"theme":{"primary":"#112233"},"audience":"board"}`)); err != nil {
		t.Fatalf("CompleteSetup: %v", err)
	}
	return s
}

func TestCreate_LayoutAndID(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Create("Q3 Review: Élan & Growth!")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if want := "2026-04-02_093001_q3-review-elan-growth"; s.ID() != want {
		t.Errorf("ID = %q, want %q", s.ID(), want)
	}
	for _, sub := range []string{SlidesDir, IconsDir, ImagesDir, ThumbnailsDir, slide.StageSetup.FileName()} {
		if _, err := os.Stat(filepath.Join(s.Dir(), sub)); err != nil {
			t.Errorf("missing %s: %v", sub, err)
		}
	}
	if got := s.Summary().Status; got != StatusInProgress {
		t.Errorf("Status = %q, want in_progress", got)
	}
}

func TestCreate_SameSecondSameTitle(t *testing.T) {
	m := newTestManager(t)
	fixed := time.Date(2026, 4, 2, 9, 30, 0, 0, time.Local)
	m.now = func() time.Time { return fixed }

	a, err := m.Create("Deck")
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Create("Deck")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID() == b.ID() {
		t.Fatalf("duplicate id %q", a.ID())
	}
	if b.ID() != a.ID()+"-2" {
		t.Errorf("second id = %q, want %q", b.ID(), a.ID()+"-2")
	}
}

func TestCreate_UntitledGetsRandomSuffix(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Create("  ")
	if err != nil {
		t.Fatal(err)
	}
	suffix := s.ID()[len("2026-04-02_093001_"):]
	if len(suffix) != 8 {
		t.Errorf("suffix %q, want 8 hex characters", suffix)
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Hello World":                           "hello-world",
		"--Already--dashed--":                   "already-dashed",
		"Café résumé":                           "cafe-resume",
		"!!!":                                   "untitled",
		"a very long title that keeps going on": "a-very-long-title-that-keeps-g",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUpdateSlide_MergesAndAdvancesStage(t *testing.T) {
	m := newTestManager(t)
	s := newSetupSession(t, m)

	if _, err := s.UpdateSlide(2, fieldsOf(t, `{"title":"Roadmap","purpose":"timeline"}`)); err != nil {
		t.Fatalf("UpdateSlide: %v", err)
	}
	if _, err := s.UpdateSlide(1, fieldsOf(t, `{"title":"Intro"}`)); err != nil {
		t.Fatalf("UpdateSlide: %v", err)
	}
	got, err := s.UpdateSlide(2, fieldsOf(t, `{"template_id":"steps-5","content_bindings":{"items":[1,2,3,4,5]}}`))
	if err != nil {
		t.Fatalf("UpdateSlide: %v", err)
	}

	if got.Title() != "Roadmap" || got.TemplateID() != "steps-5" {
		t.Errorf("merged slide = %+v", got.Fields)
	}
	st := s.State()
	if st.CurrentStage != slide.StageContent {
		t.Errorf("CurrentStage = %v, want content", st.CurrentStage)
	}
	if len(st.Slides) != 2 || st.Slides[0].Index != 1 || st.Slides[1].Index != 2 {
		t.Errorf("slides not sorted by index: %+v", st.Slides)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), slide.StageContent.FileName())); err != nil {
		t.Errorf("stage 4 snapshot missing: %v", err)
	}

	// An outline-level update to another slide never lowers the session stage.
	if _, err := s.UpdateSlide(3, fieldsOf(t, `{"title":"Close"}`)); err != nil {
		t.Fatal(err)
	}
	if got := s.State().CurrentStage; got != slide.StageContent {
		t.Errorf("CurrentStage regressed to %v", got)
	}
}

func TestUpdateSlide_SeesExternalWrites(t *testing.T) {
	m := newTestManager(t)
	s := newSetupSession(t, m)
	if _, err := s.UpdateSlide(1, fieldsOf(t, `{"title":"Intro"}`)); err != nil {
		t.Fatal(err)
	}

	other, err := m.Resume(s.ID())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if _, err := other.UpdateSlide(2, fieldsOf(t, `{"title":"Written elsewhere"}`)); err != nil {
		t.Fatal(err)
	}

	if _, err := s.UpdateSlide(1, fieldsOf(t, `{"purpose":"hook"}`)); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Slide(2); !ok {
		t.Error("update clobbered a slide written through another handle")
	}
}

func TestResume_PicksMostRecentlyWrittenSnapshot(t *testing.T) {
	m := newTestManager(t)
	s := newSetupSession(t, m)
	if _, err := s.UpdateSlide(1, fieldsOf(t, `{"title":"Intro","template_id":"t","html_file":"slides/slide-1.html","generated":true}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RerunSlide(1, slide.StageMatching); err != nil {
		t.Fatal(err)
	}

	resumed, err := m.Resume(s.ID())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	sl, _ := resumed.Slide(1)
	if sl.TemplateID() != "" {
		t.Errorf("resume read a stale snapshot: template_id = %q", sl.TemplateID())
	}
}

func TestResume_NotFound(t *testing.T) {
	m := newTestManager(t)
	for _, id := range []string{"missing", "../escape", ""} {
		if _, err := m.Resume(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Resume(%q) error = %v, want ErrNotFound", id, err)
		}
	}
}

func TestResume_CorruptSnapshotSurfaces(t *testing.T) {
	m := newTestManager(t)
	s := newSetupSession(t, m)
	if err := os.WriteFile(filepath.Join(s.Dir(), slide.StageOutline.FileName()), []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := m.Resume(s.ID())
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Resume error = %v, want a persistence error", err)
	}
}

func TestCompleteSetup_OnlyOnce(t *testing.T) {
	m := newTestManager(t)
	s := newSetupSession(t, m)
	if _, err := s.CompleteSetup(record.Map{}); !errors.Is(err, ErrSetupCompleted) {
		t.Errorf("second CompleteSetup error = %v, want ErrSetupCompleted", err)
	}
	if got := s.Theme().String("primary"); got != "#112233" {
		t.Errorf("Theme().primary = %q", got)
	}
}

func TestRerunSlide(t *testing.T) {
	m := newTestManager(t)
	s := newSetupSession(t, m)
	if _, err := s.UpdateSlide(1, fieldsOf(t, `{"title":"Intro"}`)); err != nil {
		t.Fatal(err)
	}
	full := `{"title":"Roadmap","source_content":"Q1..Q4","template_id":"steps-5","match_score":0.8,
		"content_bindings":{"items":[1,2]},"html_file":"slides/slide-2.html","generated":true,
		"evaluation":{"current_score":64},"attempt_history":[{"attempt":1,"score":64}]}`
	if _, err := s.UpdateSlide(2, fieldsOf(t, full)); err != nil {
		t.Fatal(err)
	}

	ctx, err := s.RerunSlide(2, slide.StageMatching)
	if err != nil {
		t.Fatalf("RerunSlide: %v", err)
	}
	if ctx.Slide.TemplateID() != "steps-5" {
		t.Error("context should hold the slide as it was before the rewind")
	}
	if len(ctx.PreviousSlides) != 1 || ctx.PreviousSlides[0].Index != 1 {
		t.Errorf("PreviousSlides = %+v", ctx.PreviousSlides)
	}
	if ctx.Preserved.String(slide.FieldSourceContent) != "Q1..Q4" {
		t.Errorf("Preserved = %v", ctx.Preserved)
	}
	if ctx.Theme.String("primary") != "#112233" {
		t.Errorf("Theme = %v", ctx.Theme)
	}

	sl, _ := s.Slide(2)
	for _, gone := range []string{"template_id", "match_score", "content_bindings", "html_file", "generated", "evaluation"} {
		if _, ok := sl.Fields[gone]; ok {
			t.Errorf("%s survived the rewind", gone)
		}
	}
	if !sl.Fields.Present(slide.FieldAttemptHistory) {
		t.Error("attempt history was dropped")
	}
	if sl.Stage() != slide.StageOutline {
		t.Errorf("slide stage = %v, want outline", sl.Stage())
	}
}

func TestRerunSlide_Errors(t *testing.T) {
	m := newTestManager(t)
	s := newSetupSession(t, m)
	if _, err := s.RerunSlide(9, slide.StageMatching); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing slide error = %v", err)
	}
	for _, stage := range []slide.Stage{slide.StageSetup, 6} {
		if _, err := s.RerunSlide(1, stage); !errors.Is(err, ErrInvalidStage) {
			t.Errorf("RerunSlide(%v) error = %v, want ErrInvalidStage", stage, err)
		}
	}
}

func TestSaveEvaluation_AppendsHistory(t *testing.T) {
	m := newTestManager(t)
	s := newSetupSession(t, m)
	if _, err := s.UpdateSlide(1, fieldsOf(t, `{"title":"Intro","template_id":"grid-3","html_file":"slides/a.html"}`)); err != nil {
		t.Fatal(err)
	}

	first := quality.Combine(quality.DegradedResult())
	rec1, err := s.SaveEvaluation(1, first, WithDigest("d1"))
	if err != nil {
		t.Fatalf("SaveEvaluation: %v", err)
	}
	rec2, err := s.SaveEvaluation(1, quality.Combine(quality.DefaultResult()))
	if err != nil {
		t.Fatalf("SaveEvaluation: %v", err)
	}

	if rec1.Attempt != 1 || rec2.Attempt != 2 {
		t.Errorf("ordinals = %d, %d; want 1, 2", rec1.Attempt, rec2.Attempt)
	}
	if rec1.TemplateID != "grid-3" || rec1.HTMLFile != "slides/a.html" || rec1.Digest != "d1" {
		t.Errorf("record = %+v", rec1)
	}

	status, ok := s.EvaluationStatus(1)
	if !ok {
		t.Fatal("EvaluationStatus: slide missing")
	}
	want := EvaluationStatus{
		Index:          1,
		Evaluated:      true,
		Attempts:       2,
		CurrentScore:   75,
		BestScore:      75,
		Passed:         true,
		SelectedReason: quality.ReasonPassed,
		TemplateID:     "grid-3",
	}
	status.History = nil
	if diff := cmp.Diff(want, status); diff != "" {
		t.Errorf("EvaluationStatus mismatch (-want +got):\n%s", diff)
	}

	v, ok := CurrentVerdict(mustSlide(t, s, 1))
	if !ok || v.AttemptNumber != 2 {
		t.Errorf("current verdict = %+v, %v", v, ok)
	}

	if _, err := s.SaveEvaluation(7, first); !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveEvaluation on missing slide error = %v", err)
	}
}

func mustSlide(t *testing.T, s *Session, index int) slide.Slide {
	t.Helper()
	sl, ok := s.Slide(index)
	if !ok {
		t.Fatalf("slide %d missing", index)
	}
	return sl
}

func TestResetForRematching_KeepsEvaluation(t *testing.T) {
	m := newTestManager(t)
	s := newSetupSession(t, m)
	if _, err := s.UpdateSlide(1, fieldsOf(t, `{"title":"Intro","template_id":"grid-3","html_file":"a.html","content_bindings":{"items":[1]},"layout":"x"}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveEvaluation(1, quality.Combine(quality.DegradedResult())); err != nil {
		t.Fatal(err)
	}

	reset, err := s.ResetForRematching(1)
	if err != nil {
		t.Fatalf("ResetForRematching: %v", err)
	}
	for _, gone := range slide.RematchFields {
		if _, ok := reset.Fields[gone]; ok {
			t.Errorf("%s survived reset", gone)
		}
	}
	if !reset.Fields.Present(slide.FieldEvaluation) || !reset.Fields.Present(slide.FieldAttemptHistory) {
		t.Error("reset dropped the evaluation or history")
	}
	if reset.Title() != "Intro" {
		t.Error("reset dropped the title")
	}

	events, err := s.Events().ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	last := events[len(events)-1]
	if last.Event != log.EventSlideReset || last.Slide == nil || *last.Slide != 1 || last.Stage != int(slide.StageMatching) {
		t.Errorf("last journal event = %+v, want slide_reset for slide 1 at stage 3", last)
	}
}

func TestSaveEvaluation_RejectsMalformedHistory(t *testing.T) {
	m := newTestManager(t)
	s := newSetupSession(t, m)
	if _, err := s.UpdateSlide(1, fieldsOf(t, `{"title":"Intro","attempt_history":{"attempt":1}}`)); err != nil {
		t.Fatal(err)
	}

	if _, err := s.SaveEvaluation(1, quality.Combine(quality.DefaultResult())); err == nil {
		t.Fatal("SaveEvaluation accepted a non-list attempt history")
	}
	sl, _ := s.Slide(1)
	if sl.Fields.Present(slide.FieldEvaluation) {
		t.Error("evaluation stored despite the rejected history")
	}
	if _, err := AttemptHistory(sl); err == nil {
		t.Error("AttemptHistory decoded a non-list history")
	}
}

func TestSaveEvaluation_NullHistoryStartsAtOne(t *testing.T) {
	m := newTestManager(t)
	s := newSetupSession(t, m)
	if _, err := s.UpdateSlide(1, fieldsOf(t, `{"title":"Intro","attempt_history":null}`)); err != nil {
		t.Fatal(err)
	}

	rec, err := s.SaveEvaluation(1, quality.Combine(quality.DefaultResult()))
	if err != nil {
		t.Fatalf("SaveEvaluation: %v", err)
	}
	if rec.Attempt != 1 {
		t.Errorf("Attempt = %d, want 1", rec.Attempt)
	}
}

func TestFinalizeBestOf3(t *testing.T) {
	m := newTestManager(t)
	s := newSetupSession(t, m)
	if _, err := s.UpdateSlide(1, fieldsOf(t, `{"title":"Intro","template_id":"c","html_file":"c.html"}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveEvaluation(1, quality.Combine(quality.DegradedResult())); err != nil {
		t.Fatal(err)
	}

	best := quality.AttemptRecord{Attempt: 1, TemplateID: "a", HTMLFile: "a.html", Score: 66}
	final, err := s.FinalizeBestOf3(1, best)
	if err != nil {
		t.Fatalf("FinalizeBestOf3: %v", err)
	}
	if final.TemplateID() != "a" || final.HTMLFile() != "a.html" {
		t.Errorf("final slide = %+v", final.Fields)
	}
	v, ok := CurrentVerdict(final)
	if !ok {
		t.Fatal("no verdict")
	}
	if v.SelectedReason != quality.ReasonBestOf3 || v.Passed || v.Score != 66 || v.AttemptNumber != 1 {
		t.Errorf("verdict = %+v", v)
	}
	if v.Details == nil {
		t.Error("finalizing dropped the stored details")
	}
}

func TestStatusTransitions(t *testing.T) {
	m := newTestManager(t)
	s := newSetupSession(t, m)

	if err := s.SetStatus(StatusPaused); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := s.SetStatus(StatusPaused); err != nil {
		t.Errorf("pausing again: %v", err)
	}
	if err := s.SetStatus(StatusInProgress); !errors.Is(err, ErrStatusRegression) {
		t.Errorf("paused -> in_progress error = %v, want ErrStatusRegression", err)
	}
	if got := s.Summary().Status; got != StatusPaused {
		t.Errorf("status after rejected transition = %s, want paused", got)
	}
	if _, err := s.UpdateSlide(1, fieldsOf(t, `{"title":"Still editable"}`)); err != nil {
		t.Errorf("UpdateSlide on a paused session: %v", err)
	}
	if _, err := s.CompleteGeneration(record.Map{"slides": record.Int(3)}); err != nil {
		t.Fatalf("CompleteGeneration: %v", err)
	}
	if err := s.SetStatus(StatusInProgress); !errors.Is(err, ErrStatusRegression) {
		t.Errorf("reopening a completed session error = %v, want ErrStatusRegression", err)
	}
	if err := s.SetStatus(StatusFailed); !errors.Is(err, ErrStatusRegression) {
		t.Errorf("failing a completed session error = %v, want ErrStatusRegression", err)
	}

	st := s.State()
	if st.CurrentStage != slide.StageGeneration || st.Output.String("path") != OutputFile {
		t.Errorf("state after generation = stage %v, output %v", st.CurrentStage, st.Output)
	}
}

func TestListAndInProgress(t *testing.T) {
	m := newTestManager(t)
	first, err := m.Create("First")
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Create("Second")
	if err != nil {
		t.Fatal(err)
	}
	if err := first.SetStatus(StatusFailed); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(m.Root(), "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	all, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID() {
		t.Errorf("List = %+v, want newest first", all)
	}

	active, err := m.InProgress()
	if err != nil {
		t.Fatalf("InProgress: %v", err)
	}
	if len(active) != 1 || active[0].ID != second.ID() {
		t.Errorf("InProgress = %+v", active)
	}
}

func TestListMissingRoot(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nothing-here"))
	all, err := m.List()
	if err != nil || len(all) != 0 {
		t.Errorf("List = %v, %v; want empty", all, err)
	}
}

func TestDelete(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Create("Doomed")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Delete(s.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(s.Dir()); !os.IsNotExist(err) {
		t.Errorf("session directory still exists: %v", err)
	}
	if err := m.Delete(s.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestConcurrentUpdatesDoNotLoseSlides(t *testing.T) {
	m := newTestManager(t)
	s := newSetupSession(t, m)

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			if _, err := s.UpdateSlide(index, record.Map{"title": record.String("slide")}); err != nil {
				t.Errorf("UpdateSlide(%d): %v", index, err)
			}
		}(i)
	}
	wg.Wait()

	if got := len(s.Slides()); got != 8 {
		t.Errorf("got %d slides, want 8", got)
	}
}

func TestDesignSummaries(t *testing.T) {
	m := newTestManager(t)
	s := newSetupSession(t, m)
	if _, err := s.UpdateSlide(1, fieldsOf(t, `{"title":"Intro","purpose":"hook","content_template":{"id":"hero"},"icon_decision":{"icon":"rocket"}}`)); err != nil {
		t.Fatal(err)
	}

	got := s.DesignSummaries()
	if len(got) != 1 {
		t.Fatalf("got %d summaries", len(got))
	}
	d := got[0]
	if d.TemplateID != "hero" || d.Stage != slide.StageMatching || d.IconDecision.String("icon") != "rocket" {
		t.Errorf("summary = %+v", d)
	}
	if _, ok := s.DesignSummary(5); ok {
		t.Error("DesignSummary(5) reported a missing slide")
	}
}
