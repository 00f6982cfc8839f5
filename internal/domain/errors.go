package domain

import "errors"

var (
	errClaimICBoundMissingEvidence = errors.New("domain: ic_bound claim requires sanad_id or primary_span_id")
	errSanadEmptyChain             = errors.New("domain: transmission chain must be non-empty")
	errChainChronology             = errors.New("domain: child timestamp precedes parent timestamp")
	errDefectTerminalState         = errors.New("domain: defect is in a terminal state")
	errSanadFatalNotD              = errors.New("domain: a fatal defect requires sanad grade D")
	errDefectEmptyActor            = errors.New("domain: waive/cure requires a non-empty actor")
	errDefectEmptyReason           = errors.New("domain: waive/cure requires a non-empty reason")
	errMuhasabahNoFreeFacts        = errors.New("domain: non-subjective muhasabah record requires supported_claim_ids")
	errMuhasabahOverconfident      = errors.New("domain: confidence > 0.80 requires non-empty uncertainties")
)
