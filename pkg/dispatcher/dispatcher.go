// Copyright 2025 Certen Protocol
//
// Dispatcher (L4)
// Method registry + the verify/dedupe/lookup/execute pipeline of spec
// §4.4. Grounded on the teacher's abci_validator.go transaction-type
// switch, generalized from "switch on tx.Type" to a method-name-keyed
// registry (the explicit builder dispatch table spec §9 calls for, no
// reflection). Metrics via github.com/prometheus/client_golang, a direct
// teacher dependency whose MetricsAddr config field was never wired to an
// actual collector there; logging via github.com/rs/zerolog, matching the
// teacher's structured-logging style.

package dispatcher

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/envelope"
	"github.com/manifest-network/manifest-core/pkg/migration"
	"github.com/manifest-network/manifest-core/pkg/store"
	"github.com/manifest-network/manifest-core/pkg/verifier"
)

// HandlerFunc implements one dispatcher method. It returns the CBOR-encoded
// result bytes placed into the response envelope's Data field.
type HandlerFunc func(ctx *Context) ([]byte, error)

type methodEntry struct {
	fn             HandlerFunc
	allowAnonymous bool
}

// BeginBlockFunc is a module-contributed begin-block hook, run once per
// block before any transaction in it is dispatched (e.g. the multisig
// expiration sweep, spec §4.9).
type BeginBlockFunc func(batch *store.Batch, ctx BlockContext) error

// Registry is the method name -> handler table plus its supporting
// collaborators (verifier set, migration registry, duplicate-envelope
// TTL).
type Registry struct {
	methods     map[string]methodEntry
	verifiers   *verifier.Set
	migrations  *migration.Registry
	dupTTL      uint64
	beginBlocks []BeginBlockFunc

	requestsTotal *prometheus.CounterVec
	log           zerolog.Logger
}

// Option configures a Registry at construction.
type Option func(*Registry)

// WithDuplicateTTL sets how many blocks a duplicate-envelope cache entry
// survives after being recorded (spec §4.4's "retention TTL").
func WithDuplicateTTL(blocks uint64) Option {
	return func(r *Registry) { r.dupTTL = blocks }
}

// WithLogger overrides the default discard logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// NewRegistry constructs an empty Registry. The duplicate-envelope cache
// defaults to a 2000-block retention window (spec §9); override with
// WithDuplicateTTL.
func NewRegistry(verifiers *verifier.Set, migrations *migration.Registry, opts ...Option) *Registry {
	r := &Registry{
		methods:    make(map[string]methodEntry),
		verifiers:  verifiers,
		migrations: migrations,
		dupTTL:     2000,
		log:        zerolog.Nop(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_requests_total",
			Help: "Total dispatcher requests by method and response code.",
		}, []string{"method", "code"}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Collectors exposes the registry's prometheus collectors for registration
// with a metrics registry.
func (r *Registry) Collectors() []prometheus.Collector {
	return []prometheus.Collector{r.requestsTotal}
}

// Registered reports whether method is present in the dispatch table,
// used by pkg/introspection's data.info attribute-negotiation response to
// advertise which optional method groups this build compiled in.
func (r *Registry) Registered(method string) bool {
	_, ok := r.methods[method]
	return ok
}

// Register adds method to the dispatch table. allowAnonymous mirrors the
// registry entry's allow_anonymous flag (spec §4.4).
func (r *Registry) Register(method string, allowAnonymous bool, fn HandlerFunc) {
	r.methods[method] = methodEntry{fn: fn, allowAnonymous: allowAnonymous}
}

// Methods lists every registered method name, unordered. Used by the
// status/endpoints method quartet (spec §6.2) to advertise the compiled-in
// method surface.
func (r *Registry) Methods() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	return names
}

// RegisterBeginBlock adds a module begin-block hook, run in registration
// order by RunBeginBlock.
func (r *Registry) RegisterBeginBlock(fn BeginBlockFunc) {
	r.beginBlocks = append(r.beginBlocks, fn)
}

// RunBeginBlock runs every registered begin-block hook in order, ahead of
// the migration registry's own begin-block pass and transaction delivery.
func (r *Registry) RunBeginBlock(batch *store.Batch, ctx BlockContext) error {
	for _, fn := range r.beginBlocks {
		if err := fn(batch, ctx); err != nil {
			return err
		}
	}
	return nil
}

// BlockContext is the minimal consensus-bridge context a dispatch call
// needs.
type BlockContext struct {
	Height  uint64
	Time    time.Time
	CheckTx bool
}

// Context is passed to every HandlerFunc.
type Context struct {
	Store   store.Reader // *store.Store (check-tx) or *store.Batch (deliver-tx)
	Batch   *store.Batch // nil on check-tx
	Sender  address.Address
	Request *envelope.Request
	Height  uint64
	Time    time.Time
	CheckTx bool
}

// Dispatch implements spec §4.4's dispatch(envelope, block_ctx, store)
// pipeline: verify, timestamp check, lookup (including migration gating),
// anonymity gate, duplicate check, execute, record, respond.
func (r *Registry) Dispatch(raw []byte, blockCtx BlockContext, reader store.Reader, batch *store.Batch, signer verifier.Signer, timestampWindow time.Duration) ([]byte, error) {
	msg, err := envelope.ParseSigned(raw)
	if err != nil {
		return nil, r.errorResponse("", apperr.ErrInvalidFrom, signer)
	}

	req, err := envelope.DecodeRequest(msg.Payload)
	if err != nil {
		return nil, r.errorResponse("", apperr.ErrMalformedArgument.WithField("name", "payload"), signer)
	}

	sender, verifyErr := r.verifiers.Verify(msg, req.From)
	if verifyErr != nil {
		sender = address.Anonymous()
		if !req.From.IsAnonymous() {
			return nil, r.errorResponse(req.Method, apperr.ErrUnauthenticated, signer)
		}
	}

	if delta := blockCtx.Time.Sub(req.Time()); delta > timestampWindow || delta < -timestampWindow {
		return nil, r.errorResponse(req.Method, apperr.ErrTimestampOutOfWindow, signer)
	}

	entry, ok := r.methods[req.Method]
	if !ok || r.migrations.MethodGatedByInactiveMigration(req.Method, blockCtx.Height) {
		return nil, r.errorResponse(req.Method, apperr.ErrMethodNotFound.WithField("method", req.Method), signer)
	}
	if sender.IsAnonymous() && !entry.allowAnonymous {
		return nil, r.errorResponse(req.Method, apperr.ErrAnonymousNotAllowed.WithField("method", req.Method), signer)
	}

	envelopeHash := sha256.Sum256(raw)
	dup, err := reader.Get(store.DupKey(envelopeHash[:]))
	if err != nil {
		return nil, fmt.Errorf("dispatcher: dup cache read: %w", err)
	}
	if dup != nil {
		return nil, r.errorResponse(req.Method, apperr.ErrDuplicateEnvelope, signer)
	}

	ctx := &Context{
		Store:   reader,
		Batch:   batch,
		Sender:  sender,
		Request: req,
		Height:  blockCtx.Height,
		Time:    blockCtx.Time,
		CheckTx: blockCtx.CheckTx,
	}
	result, handlerErr := entry.fn(ctx)
	if handlerErr != nil {
		appErr := asAppError(handlerErr, r.migrations, blockCtx.Height)
		return nil, r.errorResponse(req.Method, appErr, signer)
	}

	if batch != nil {
		batch.Put(store.DupKey(envelopeHash[:]), store.EncodeUint64(blockCtx.Height+r.dupTTL))
	}

	r.count(req.Method, 0)
	resp := &envelope.Response{From: req.To, To: sender, Data: result, Timestamp: blockCtx.Time.Unix()}
	respBytes, err := envelope.EncodeResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: encode response: %w", err)
	}
	signedResp, err := envelope.Sign(signer.COSESigner(), int64(signer.Kind()), respBytes, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: sign response: %w", err)
	}

	if batch != nil {
		batch.Put(store.TxRequestKey(envelopeHash[:]), raw)
		batch.Put(store.TxResponseKey(envelopeHash[:]), signedResp)
	}
	return signedResp, nil
}

// DispatchAsAccount runs method as if it originated from account, bypassing
// envelope verification and the duplicate cache. It implements
// pkg/account.InnerDispatcher for multisig execution. height/t are the
// enclosing block's, carried over from the multisig op that triggered this
// inner dispatch, so handlers see the real block context instead of a
// wall-clock read or a zero value (spec §4.5: no wall-clock reads inside
// handlers).
func (r *Registry) DispatchAsAccount(batch *store.Batch, account address.Address, method string, payload []byte, height uint64, t time.Time) (int32, []byte, error) {
	entry, ok := r.methods[method]
	if !ok {
		return apperr.ErrMethodNotFound.Code, nil, apperr.ErrMethodNotFound.WithField("method", method)
	}

	req := &envelope.Request{From: account, Method: method, Arguments: payload, Timestamp: t.Unix()}
	ctx := &Context{Store: batch, Batch: batch, Sender: account, Request: req, Height: height, Time: t}
	result, err := entry.fn(ctx)
	if err != nil {
		appErr := asAppError(err, r.migrations, height)
		return appErr.Code, nil, appErr
	}
	return 0, result, nil
}

func asAppError(err error, migrations *migration.Registry, height uint64) *apperr.Error {
	appErr, ok := err.(*apperr.Error)
	if !ok {
		return apperr.New(apperr.ErrGeneric.Code, "%v", err)
	}
	// Legacy-error-code migration (spec §4.12): handlers always produce the
	// new insufficient-funds code internally; downgrade to the old generic
	// code when the migration hasn't activated yet.
	if appErr.Code == apperr.ErrInsufficientFunds.Code && !migrations.IsActive("legacy-insufficient-funds-code", height) {
		return &apperr.Error{Code: apperr.ErrGeneric.Code, Message: appErr.Message, Fields: appErr.Fields}
	}
	return appErr
}

func (r *Registry) errorResponse(method string, appErr *apperr.Error, signer verifier.Signer) error {
	r.count(method, appErr.Code)
	r.log.Debug().Str("method", method).Int32("code", appErr.Code).Msg("dispatch rejected")
	return appErr
}

func (r *Registry) count(method string, code int32) {
	r.requestsTotal.WithLabelValues(method, fmt.Sprintf("%d", code)).Inc()
}
