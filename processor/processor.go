// Package processor turns a transaction envelope, its result and its meta into
// a report of per-operation effects.
package processor

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/stellar/go/network"
	"github.com/stellar/go/xdr"

	"github.com/withObsrvr/ttp-processor-demo/effects-processor/cache"
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/config"
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/effects"
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/logging"
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/metrics"
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/parser"
)

// ErrMalformedInput is returned when a supplied envelope, result or meta
// cannot be decoded.
var ErrMalformedInput = errors.New("malformed input")

// Request is one transaction to analyze. Network overrides the processor's
// default passphrase when set.
type Request struct {
	Network  string
	Envelope Input[xdr.TransactionEnvelope]
	Result   Input[xdr.TransactionResult]
	Meta     Input[xdr.TransactionMeta]
}

// OperationReport is one operation with the effects it caused.
type OperationReport struct {
	Index   int               `json:"index"`
	Type    string            `json:"type"`
	Source  string            `json:"source"`
	Effects []*effects.Effect `json:"effects,omitempty"`
}

// Report is the analysis of one transaction.
type Report struct {
	Hash    string `json:"hash"`
	Network string `json:"network"`
	Source  string `json:"source"`
	FeeBump bool   `json:"feeBump,omitempty"`
	// Ephemeral is set when no meta was supplied, i.e. for transactions that
	// have not been applied. No operation effects are computed.
	Ephemeral  bool              `json:"ephemeral"`
	Failed     bool              `json:"failed"`
	Fee        *effects.Effect   `json:"fee"`
	Operations []OperationReport `json:"operations"`
	// TxEffects are signer changes applied at transaction level, such as
	// consumed pre-authorized transaction signers.
	TxEffects []*effects.Effect `json:"txEffects,omitempty"`

	Tx xdr.TransactionEnvelope `json:"-"`
}

// Processor analyzes transactions. It is safe for concurrent use.
type Processor struct {
	network             string
	processSystemEvents bool
	sacCache            *cache.Cache[string, string]
	logger              *logging.ComponentLogger
}

// New creates a processor from configuration.
func New(cfg *config.Config, logger *logging.ComponentLogger) *Processor {
	if logger == nil {
		logger = logging.Nop()
	}
	p := &Processor{
		network:             cfg.NetworkPassphrase,
		processSystemEvents: cfg.ProcessSystemEvents,
		sacCache:            cache.New[string, string](cfg.CacheTTL),
		logger:              logger,
	}
	logger.Info().
		Str("network", cfg.NetworkPassphrase).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("Created effects processor")
	return p
}

// Close stops the SAC cache sweeper.
func (p *Processor) Close() {
	p.sacCache.Dispose()
}

// Process analyzes one transaction.
func (p *Processor) Process(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	report, err := p.process(ctx, req)
	metrics.ObserveAnalysisDuration(time.Since(start).Seconds())
	metrics.SetSACCacheEntries(p.sacCache.Len())
	if err != nil {
		metrics.IncrementTransactionsAnalyzed("error")
		metrics.IncrementAnalysisErrors(ErrorKind(err))
		p.logger.Error().Err(err).Str("kind", ErrorKind(err)).Msg("Failed to analyze transaction")
		return nil, err
	}

	outcome := "success"
	switch {
	case report.Failed:
		outcome = "failed"
	case report.Ephemeral:
		outcome = "ephemeral"
	}
	metrics.IncrementTransactionsAnalyzed(outcome)
	metrics.AddOperationsAnalyzed(len(report.Operations))
	count := 0
	for _, op := range report.Operations {
		for _, e := range op.Effects {
			metrics.IncrementEffectsEmitted(string(e.Type))
			count++
		}
	}
	p.logger.LogAnalysis(logging.AnalysisMetrics{
		TxHash:     report.Hash,
		Operations: len(report.Operations),
		Effects:    count,
		Failed:     report.Failed,
		Ephemeral:  report.Ephemeral,
		Duration:   time.Since(start),
	})
	return report, nil
}

func (p *Processor) process(ctx context.Context, req Request) (*Report, error) {
	passphrase := p.network
	if req.Network != "" {
		passphrase = config.ResolveNetwork(req.Network)
	}
	if !req.Envelope.Present() {
		return nil, fmt.Errorf("%w: transaction envelope is required", ErrMalformedInput)
	}
	env, err := req.Envelope.decode()
	if err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", ErrMalformedInput, err)
	}

	var result *parser.TxResult
	if req.Result.Present() {
		raw, err := req.Result.decode()
		if err != nil {
			return nil, fmt.Errorf("%w: result: %v", ErrMalformedInput, err)
		}
		if result, err = parser.ParseTxResult(raw); err != nil {
			return nil, fmt.Errorf("%w: result: %v", ErrMalformedInput, err)
		}
	}
	var meta *parser.TxMeta
	if req.Meta.Present() {
		raw, err := req.Meta.decode()
		if err != nil {
			return nil, fmt.Errorf("%w: meta: %v", ErrMalformedInput, err)
		}
		if meta, err = parser.ParseTxMeta(raw); err != nil {
			return nil, fmt.Errorf("%w: meta: %v", ErrMalformedInput, err)
		}
	}

	hash, err := network.HashTransactionInEnvelope(env, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: hash transaction: %v", ErrMalformedInput, err)
	}

	source := parser.MuxedAccountAddress(env.SourceAccount())
	report := &Report{
		Hash:      hex.EncodeToString(hash[:]),
		Network:   passphrase,
		Source:    source,
		FeeBump:   env.IsFeeBump(),
		Ephemeral: meta == nil,
		Failed:    result != nil && !result.Successful,
		Fee:       feeEffect(env, result),
		Tx:        env,
	}

	ops := env.Operations()
	report.Operations = make([]OperationReport, len(ops))
	for i, op := range ops {
		opSource := source
		if op.SourceAccount != nil {
			opSource = parser.MuxedAccountAddress(*op.SourceAccount)
		}
		report.Operations[i] = OperationReport{Index: i, Type: OperationTypeName(op.Body.Type), Source: opSource}
	}

	if meta != nil {
		txEffects, err := txLevelEffects(meta)
		if err != nil {
			return nil, err
		}
		report.TxEffects = txEffects
	}
	if report.Ephemeral || report.Failed {
		return report, nil
	}

	sac := effects.NewSACMapper(passphrase, p.sacCache)
	log := p.logger.With().Str("tx", report.Hash).Logger()
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		opMeta := meta.Operation(i)
		if opMeta == nil {
			return nil, fmt.Errorf("%w: meta has no entry for operation %d", ErrMalformedInput, i)
		}
		changes, err := parser.ParseLedgerEntryChanges(opMeta.Changes)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		in := effects.Input{
			Operation: effects.Operation{Index: i, Source: report.Operations[i].Source, Body: op},
			Changes:   changes,
			Result:    result.Operation(i),
		}
		if op.Body.Type == xdr.OperationTypeInvokeHostFunction {
			in.Events = opMeta.Events
			in.DiagnosticEvents = meta.DiagnosticEvents
			in.ReturnValue = meta.ReturnValue
			in.SorobanFees = meta.SorobanFees
		}
		list, err := effects.Analyze(in, effects.Options{
			Network:             passphrase,
			SAC:                 sac,
			ProcessSystemEvents: p.processSystemEvents,
			Logger:              &log,
		})
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		report.Operations[i].Effects = list
	}
	return report, nil
}

// feeEffect reports the fee bid and, when the result is known, the fee
// charged to the fee source. Fee bumps also carry the inner transaction's
// charge.
func feeEffect(env xdr.TransactionEnvelope, result *parser.TxResult) *effects.Effect {
	source := env.SourceAccount()
	bid := int64(env.Fee())
	if env.IsFeeBump() {
		source = env.FeeBumpAccount()
		bid = env.FeeBumpFee()
	}
	charged := bid
	e := &effects.Effect{
		Type:   effects.FeeCharged,
		Source: parser.MuxedAccountAddress(source),
		Asset:  parser.NativeAsset,
		Bid:    fmt.Sprint(bid),
	}
	if result != nil {
		charged = result.FeeCharged
		if result.FeeBump {
			// some historical fee bump results report a negative outer charge
			if charged < 0 {
				charged = 0
			}
			e.InnerCharged = fmt.Sprint(max(result.InnerFeeCharged, 0))
		}
	}
	e.Charged = fmt.Sprint(charged)
	return e
}

// txLevelEffects diffs signers of accounts touched outside any operation.
func txLevelEffects(meta *parser.TxMeta) ([]*effects.Effect, error) {
	changes, err := parser.ParseLedgerEntryChanges(meta.TxLevelChanges(), parser.EntryAccount)
	if err != nil {
		return nil, fmt.Errorf("transaction level changes: %w", err)
	}
	var res []*effects.Effect
	for _, change := range changes {
		if change.Action != parser.ActionUpdated {
			continue
		}
		res = append(res, effects.DiffSigners(
			change.Before.(*parser.AccountState),
			change.After.(*parser.AccountState),
		)...)
	}
	return res, nil
}

// OperationTypeName renders an operation type the way effects name it,
// e.g. "invokeHostFunction".
func OperationTypeName(t xdr.OperationType) string {
	name := strings.TrimPrefix(t.String(), "OperationType")
	if name == "" {
		return ""
	}
	r := []rune(name)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// ErrorKind classifies an analysis error for metrics and HTTP responses.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedInput), errors.Is(err, parser.ErrUnknownMeta):
		return "malformed_input"
	case errors.Is(err, effects.ErrUnexpectedLedgerState),
		errors.Is(err, parser.ErrMissingState),
		errors.Is(err, parser.ErrUnsupportedEntry):
		return "unexpected_ledger_state"
	case errors.Is(err, effects.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, effects.ErrMissingSource):
		return "missing_source"
	case errors.Is(err, effects.ErrEmptyCallStack):
		return "empty_call_stack"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
