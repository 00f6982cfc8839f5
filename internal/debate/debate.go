// Package debate coordinates the five debate roles through a fixed node
// sequence, round by round, evaluating stop conditions in strict priority
// order (spec §4.9). Role logic (the actual LLM calls) is injected by the
// caller; the orchestrator owns only sequencing, the Muhasabah gate, and
// stop-condition evaluation — the same caller-supplies-the-logic split the
// run orchestrator and saga executor use.
package debate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/smilemakc/idis/internal/domain"
	"github.com/smilemakc/idis/internal/validate"
)

// MaxRounds is the hard cap on debate rounds (spec §4.9: "MAX_ROUNDS —
// round_number >= max_rounds (hard cap 5)").
const MaxRounds = 5

// DefaultConsensusSpread is the default confidence spread, on the 0..1
// confidence scale (0.10 is ten percentage points), under which
// current-round agent confidences are consensual.
const DefaultConsensusSpread = 0.10

// DefaultStableDissentRounds is the default number of trailing rounds a
// position hash must be unchanged across to trigger STABLE_DISSENT.
const DefaultStableDissentRounds = 2

// Observers run in this fixed sub-order; "parallel" means logically
// concurrent but deterministically ordered for replay (spec §4.9).
var observerOrder = []domain.AgentRole{domain.RoleContradictionFinder, domain.RoleRiskOfficer}

// StopReason is the sealed stop-condition enum (spec §4.9).
type StopReason string

const (
	StopNone              StopReason = ""
	StopCriticalDefect    StopReason = "CRITICAL_DEFECT"
	StopMaxRounds         StopReason = "MAX_ROUNDS"
	StopConsensus         StopReason = "CONSENSUS"
	StopStableDissent     StopReason = "STABLE_DISSENT"
	StopEvidenceExhausted StopReason = "EVIDENCE_EXHAUSTED"
)

// RoleInput is what a role handler receives for one node dispatch.
type RoleInput struct {
	TenantID   string
	DealID     string
	Role       domain.AgentRole
	Round      int
	StepIndex  int
	State      map[string]any
}

// RoleHandler produces one agent output for a single node dispatch.
// Determinism (spec §4.9) is the handler's responsibility: given identical
// (tenant_id, deal_id, role, round_number, step_index) it must produce a
// byte-identical output.
type RoleHandler func(ctx context.Context, in RoleInput) (domain.AgentOutput, error)

// EvidenceRetrievalFunc runs the optional evidence_call_retrieval node. It
// reports whether new evidence was found and whether open questions
// remain, for the EVIDENCE_EXHAUSTED stop condition.
type EvidenceRetrievalFunc func(ctx context.Context, in RoleInput) (foundNew bool, openQuestionsRemain bool, err error)

// CriticalDefectFunc flags an output as carrying a grade-D material claim
// or a critical defect (spec §4.9 stop condition 1).
type CriticalDefectFunc func(out domain.AgentOutput) bool

// Config tunes the stop conditions; zero-value Config uses the spec
// defaults.
type Config struct {
	MaxRounds           int
	ConsensusSpread     float64
	StableDissentRounds int
	RunEvidenceRetrieval bool
}

func (c Config) withDefaults() Config {
	if c.MaxRounds <= 0 || c.MaxRounds > MaxRounds {
		c.MaxRounds = MaxRounds
	}
	if c.ConsensusSpread <= 0 {
		c.ConsensusSpread = DefaultConsensusSpread
	}
	if c.StableDissentRounds <= 0 {
		c.StableDissentRounds = DefaultStableDissentRounds
	}
	return c
}

// Debate is one debate run's configuration and injected role logic.
type Debate struct {
	TenantID          string
	DealID            string
	Handlers          map[domain.AgentRole]RoleHandler
	EvidenceRetrieval EvidenceRetrievalFunc
	CriticalDefect    CriticalDefectFunc
	Config            Config
}

// RoundResult is one round's accepted outputs and derived position hashes.
type RoundResult struct {
	RoundNumber    int
	Outputs        []domain.AgentOutput
	PositionHashes map[domain.AgentRole]string
}

// Result is a completed (or halted) debate's full trajectory.
type Result struct {
	StopReason   StopReason
	Rounds       []RoundResult
	FinalOutputs []domain.AgentOutput
	FailedOutput *domain.AgentOutput // set only when StopReason == CRITICAL_DEFECT from a gate rejection
	FailureNote  string
}

// Run executes the debate's fixed node sequence round by round until a
// stop condition fires, evaluated in strict priority order (spec §4.9).
func (d *Debate) Run(ctx context.Context) (Result, error) {
	cfg := d.Config.withDefaults()
	stepIndex := 0
	var rounds []RoundResult
	var history []map[domain.AgentRole]string
	requestedEvidence := false
	evidenceExhausted := false

	for round := 1; round <= cfg.MaxRounds; round++ {
		log.Debug().Str("deal_id", d.DealID).Int("round", round).Msg("starting debate round")

		var roundOutputs []domain.AgentOutput
		state := map[string]any{}

		dispatch := func(role domain.AgentRole) (domain.AgentOutput, bool, error) {
			stepIndex++
			log.Debug().Str("deal_id", d.DealID).Int("round", round).Str("role", string(role)).Int("step_index", stepIndex).Msg("dispatching debate role")
			handler, ok := d.Handlers[role]
			if !ok {
				return domain.AgentOutput{}, false, fmt.Errorf("debate: no handler registered for role %s", role)
			}
			out, err := handler(ctx, RoleInput{
				TenantID: d.TenantID, DealID: d.DealID, Role: role,
				Round: round, StepIndex: stepIndex, State: state,
			})
			if err != nil {
				log.Warn().Str("deal_id", d.DealID).Str("role", string(role)).Err(err).Msg("debate role handler failed")
				return domain.AgentOutput{}, false, err
			}
			decision := validate.MuhasabahGate(out)
			if !decision.Allowed {
				log.Warn().Str("deal_id", d.DealID).Str("role", string(role)).Msg("muhasabah gate rejected output")
				return out, false, nil
			}
			return out, true, nil
		}

		nodes := []domain.AgentRole{domain.RoleAdvocate, domain.RoleSanadBreaker}
		nodes = append(nodes, observerOrder...)
		nodes = append(nodes, domain.RoleAdvocate) // advocate_rebuttal

		for _, role := range nodes {
			out, allowed, err := dispatch(role)
			if err != nil {
				return Result{}, err
			}
			if !allowed {
				rejected := out
				return Result{
					StopReason:   StopCriticalDefect,
					Rounds:       rounds,
					FinalOutputs: flatten(rounds),
					FailedOutput: &rejected,
					FailureNote:  "muhasabah gate rejected output",
				}, nil
			}
			roundOutputs = append(roundOutputs, out)
			if d.CriticalDefect != nil && d.CriticalDefect(out) {
				rounds = append(rounds, RoundResult{RoundNumber: round, Outputs: roundOutputs})
				return Result{
					StopReason:   StopCriticalDefect,
					Rounds:       rounds,
					FinalOutputs: flatten(rounds),
					FailureNote:  "output flagged a grade-D material claim or critical defect",
				}, nil
			}
		}

		if cfg.RunEvidenceRetrieval && d.EvidenceRetrieval != nil {
			stepIndex++
			requestedEvidence = true
			foundNew, openQuestions, err := d.EvidenceRetrieval(ctx, RoleInput{
				TenantID: d.TenantID, DealID: d.DealID, Role: domain.RoleArbiter,
				Round: round, StepIndex: stepIndex, State: state,
			})
			if err != nil {
				return Result{}, err
			}
			evidenceExhausted = requestedEvidence && !foundNew && openQuestions
		}

		arbiterOut, allowed, err := dispatch(domain.RoleArbiter)
		if err != nil {
			return Result{}, err
		}
		if !allowed {
			rejected := arbiterOut
			rounds = append(rounds, RoundResult{RoundNumber: round, Outputs: roundOutputs})
			return Result{
				StopReason:   StopCriticalDefect,
				Rounds:       rounds,
				FinalOutputs: flatten(rounds),
				FailedOutput: &rejected,
				FailureNote:  "muhasabah gate rejected arbiter_close output",
			}, nil
		}
		roundOutputs = append(roundOutputs, arbiterOut)

		positions := positionHashes(d.TenantID, d.DealID, round, roundOutputs)
		rounds = append(rounds, RoundResult{RoundNumber: round, Outputs: roundOutputs, PositionHashes: positions})
		history = append(history, positions)

		reason := evaluateStopCondition(stopContext{
			round:               round,
			maxRounds:           cfg.MaxRounds,
			outputs:             roundOutputs,
			consensusSpread:     cfg.ConsensusSpread,
			history:             history,
			stableDissentRounds: cfg.StableDissentRounds,
			evidenceExhausted:   evidenceExhausted,
		})
		if reason != StopNone {
			log.Debug().Str("deal_id", d.DealID).Int("round", round).Str("stop_reason", string(reason)).Msg("debate stopped")
			return Result{StopReason: reason, Rounds: rounds, FinalOutputs: flatten(rounds)}, nil
		}
	}

	log.Debug().Str("deal_id", d.DealID).Str("stop_reason", string(StopMaxRounds)).Msg("debate stopped")
	return Result{StopReason: StopMaxRounds, Rounds: rounds, FinalOutputs: flatten(rounds)}, nil
}

type stopContext struct {
	round               int
	maxRounds           int
	outputs             []domain.AgentOutput
	consensusSpread     float64
	history             []map[domain.AgentRole]string
	stableDissentRounds int
	evidenceExhausted   bool
}

// evaluateStopCondition checks conditions 2-5 in strict priority order.
// Condition 1 (CRITICAL_DEFECT) is checked inline during dispatch, since it
// must halt the round immediately rather than wait for its end.
func evaluateStopCondition(c stopContext) StopReason {
	if c.round >= c.maxRounds {
		return StopMaxRounds
	}
	if consensusReached(c.outputs, c.consensusSpread) {
		return StopConsensus
	}
	if stableDissent(c.history, c.stableDissentRounds) {
		return StopStableDissent
	}
	if c.evidenceExhausted {
		return StopEvidenceExhausted
	}
	return StopNone
}

func consensusReached(outputs []domain.AgentOutput, spread float64) bool {
	if len(outputs) == 0 {
		return false
	}
	min, max := outputs[0].Muhasabah.Confidence, outputs[0].Muhasabah.Confidence
	for _, out := range outputs[1:] {
		c := out.Muhasabah.Confidence
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	return max-min <= spread
}

func stableDissent(history []map[domain.AgentRole]string, window int) bool {
	if len(history) < window {
		return false
	}
	recent := history[len(history)-window:]
	for role, hash := range recent[0] {
		stable := true
		for _, snapshot := range recent[1:] {
			if snapshot[role] != hash {
				stable = false
				break
			}
		}
		if stable {
			return true
		}
	}
	return false
}

func positionHashes(tenantID, dealID string, round int, outputs []domain.AgentOutput) map[domain.AgentRole]string {
	out := make(map[domain.AgentRole]string, len(outputs))
	for _, o := range outputs {
		out[o.Role] = positionHash(tenantID, dealID, round, o)
	}
	return out
}

// positionHash derives a deterministic per-agent position hash from
// (tenant_id, deal_id, role, round_number) plus the output's content;
// step_index is not part of the hash. Identical inputs reproduce
// byte-identical state (spec
// §4.9's determinism requirement).
func positionHash(tenantID, dealID string, round int, out domain.AgentOutput) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%s\x00%d\x00%v", tenantID, dealID, out.Role, round, out.Content)))
	return hex.EncodeToString(sum[:])
}

func flatten(rounds []RoundResult) []domain.AgentOutput {
	var out []domain.AgentOutput
	for _, r := range rounds {
		out = append(out, r.Outputs...)
	}
	return out
}
