package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/idis/internal/domain"
)

type memLedger struct {
	rows map[string]domain.RunStep
}

func newMemLedger() *memLedger { return &memLedger{rows: map[string]domain.RunStep{}} }

func (m *memLedger) key(runID, step string) string { return runID + "/" + step }

func (m *memLedger) Get(_ context.Context, runID, stepName string) (*domain.RunStep, error) {
	row, ok := m.rows[m.key(runID, stepName)]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *memLedger) Upsert(_ context.Context, step domain.RunStep) error {
	m.rows[m.key(step.RunID, step.StepName)] = step
	return nil
}

type fakeSink struct {
	events []domain.AuditEvent
	fail   bool
}

func (f *fakeSink) Emit(_ context.Context, event domain.AuditEvent) error {
	if f.fail {
		return errors.New("sink down")
	}
	f.events = append(f.events, event)
	return nil
}

func TestExecute_SnapshotSequence_AllStepsCompleted(t *testing.T) {
	ledger := newMemLedger()
	sink := &fakeSink{}
	var executedOrder []string

	handlers := map[string]StepHandler{}
	for _, step := range domain.SnapshotSequence {
		step := step
		handlers[step] = func(_ context.Context, _ domain.Run, _ map[string]any) (map[string]any, error) {
			executedOrder = append(executedOrder, step)
			return map[string]any{step + "_done": true}, nil
		}
	}

	o := New(ledger, sink, handlers, nil)
	status, err := o.Execute(context.Background(), domain.Run{RunID: "r1", TenantID: "t1", Mode: domain.ModeSnapshot})

	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, status)
	assert.Equal(t, domain.SnapshotSequence, executedOrder)
	assert.Len(t, sink.events, len(domain.SnapshotSequence)*2) // started + completed per step
}

func TestExecute_ResumesFromLedger_SkipsCompletedSteps(t *testing.T) {
	ledger := newMemLedger()
	sink := &fakeSink{}
	require.NoError(t, ledger.Upsert(context.Background(), domain.RunStep{
		RunID: "r1", StepName: "INGEST_CHECK", Status: domain.StepCompleted,
		ResultSummary: map[string]any{"ingest_ok": true},
	}))

	var ran []string
	handlers := map[string]StepHandler{}
	for _, step := range domain.SnapshotSequence {
		step := step
		handlers[step] = func(_ context.Context, _ domain.Run, state map[string]any) (map[string]any, error) {
			ran = append(ran, step)
			if step != "INGEST_CHECK" {
				assert.Equal(t, true, state["ingest_ok"])
			}
			return nil, nil
		}
	}

	o := New(ledger, sink, handlers, nil)
	status, err := o.Execute(context.Background(), domain.Run{RunID: "r1", TenantID: "t1", Mode: domain.ModeSnapshot})

	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, status)
	assert.NotContains(t, ran, "INGEST_CHECK")
}

func TestExecute_HandlerFails_MarksFailedAndStopsRun(t *testing.T) {
	ledger := newMemLedger()
	sink := &fakeSink{}

	handlers := map[string]StepHandler{
		"INGEST_CHECK": func(_ context.Context, _ domain.Run, _ map[string]any) (map[string]any, error) {
			return map[string]any{}, nil
		},
		"EXTRACT": func(_ context.Context, _ domain.Run, _ map[string]any) (map[string]any, error) {
			return nil, errors.New("extractor unreachable")
		},
	}

	o := New(ledger, sink, handlers, nil)
	status, err := o.Execute(context.Background(), domain.Run{RunID: "r1", TenantID: "t1", Mode: domain.ModeSnapshot})

	require.NoError(t, err)
	assert.Equal(t, domain.RunPartial, status)

	row, _ := ledger.Get(context.Background(), "r1", "EXTRACT")
	require.NotNil(t, row)
	assert.Equal(t, domain.StepFailed, row.Status)
	assert.NotEmpty(t, row.ErrorMessage)
}

func TestExecute_MissingHandler_FailsClosed(t *testing.T) {
	ledger := newMemLedger()
	sink := &fakeSink{}

	o := New(ledger, sink, map[string]StepHandler{}, nil)
	_, err := o.Execute(context.Background(), domain.Run{RunID: "r1", TenantID: "t1", Mode: domain.ModeSnapshot})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "INGEST_CHECK_fn not provided")
}

func TestExecute_BlockedStep_StopsRunWithoutAudit(t *testing.T) {
	ledger := newMemLedger()
	sink := &fakeSink{}

	handlers := map[string]StepHandler{
		"INGEST_CHECK": func(_ context.Context, _ domain.Run, _ map[string]any) (map[string]any, error) { return nil, nil },
		"EXTRACT":      func(_ context.Context, _ domain.Run, _ map[string]any) (map[string]any, error) { return nil, nil },
	}
	blocked := map[string]string{"GRADE": "grading pipeline not yet deployed"}

	o := New(ledger, sink, handlers, blocked)
	status, err := o.Execute(context.Background(), domain.Run{RunID: "r1", TenantID: "t1", Mode: domain.ModeSnapshot})

	require.NoError(t, err)
	assert.Equal(t, domain.RunBlocked, status)

	row, _ := ledger.Get(context.Background(), "r1", "GRADE")
	require.NotNil(t, row)
	assert.Equal(t, domain.StepBlocked, row.Status)
	assert.Equal(t, "grading pipeline not yet deployed", row.ErrorMessage)
	assert.Len(t, sink.events, 4) // started + completed for INGEST_CHECK and EXTRACT; none for the blocked GRADE
}

func TestExecute_AuditEmitFails_AbortsStepTransition(t *testing.T) {
	ledger := newMemLedger()
	sink := &fakeSink{fail: true}

	handlers := map[string]StepHandler{
		"INGEST_CHECK": func(_ context.Context, _ domain.Run, _ map[string]any) (map[string]any, error) { return nil, nil },
	}

	o := New(ledger, sink, handlers, nil)
	_, err := o.Execute(context.Background(), domain.Run{RunID: "r1", TenantID: "t1", Mode: domain.ModeSnapshot})

	require.Error(t, err)
}
