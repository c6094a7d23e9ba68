// Copyright 2025 Certen Protocol
//
// Consensus Bridge (L5)
// abcitypes.Application implementation. Grounded directly on the teacher's
// pkg/consensus/abci_validator.go: the mutex discipline, height/app-hash
// bookkeeping, and Info-time reconciliation against persisted state are
// kept in structure and retargeted from "store a ValidatorBlock JSON blob"
// to "run the dispatcher against the store and commit a Merkle batch".

package consensus

import (
	"context"
	"fmt"
	"sync"
	"time"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/rs/zerolog"

	"github.com/manifest-network/manifest-core/pkg/dispatcher"
	"github.com/manifest-network/manifest-core/pkg/migration"
	"github.com/manifest-network/manifest-core/pkg/store"
	"github.com/manifest-network/manifest-core/pkg/verifier"
)

// TimestampWindow bounds how far a request's declared timestamp may drift
// from the block time it is delivered in (spec §4.3).
const TimestampWindow = 5 * time.Minute

// App implements abcitypes.Application: CheckTx/FinalizeBlock run every
// delivered envelope through the dispatcher against a per-block batch;
// Commit atomically applies the batch and recomputes the Merkle root.
type App struct {
	mu sync.Mutex

	store      *store.Store
	dispatcher *dispatcher.Registry
	migrations *migration.Registry
	signer     verifier.Signer
	chainID    string
	log        zerolog.Logger

	currentBatch  *store.Batch
	currentHeight uint64
	currentTime   time.Time

	genesis GenesisSeeder
}

// GenesisSeeder seeds the store's initial state from the chain's genesis
// document at InitChain. Declared here (rather than importing pkg/genesis
// directly) to keep the consensus bridge independent of the genesis file
// format; the concrete seeder is wired in at construction by the
// entrypoint.
type GenesisSeeder interface {
	Seed(batch *store.Batch, appStateBytes []byte) error
}

// New constructs the consensus bridge. genesis may be nil for a chain that
// has already been initialized (InitChain is only called once, at genesis
// height).
func New(s *store.Store, reg *dispatcher.Registry, migrations *migration.Registry, signer verifier.Signer, chainID string, genesis GenesisSeeder, log zerolog.Logger) *App {
	return &App{
		store:      s,
		dispatcher: reg,
		migrations: migrations,
		signer:     signer,
		chainID:    chainID,
		genesis:    genesis,
		log:        log,
	}
}

// Info reports the application's last-committed height and app hash so
// CometBFT can determine whether replay or a fresh sync is needed.
func (a *App) Info(ctx context.Context, req *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	root := a.store.RootHash()
	a.log.Info().Uint64("height", a.store.Height()).Hex("app_hash", root).Msg("info")

	return &abcitypes.ResponseInfo{
		Data:             "manifest-core",
		Version:          "1.0.0",
		AppVersion:       1,
		LastBlockHeight:  int64(a.store.Height()),
		LastBlockAppHash: root,
	}, nil
}

// InitChain seeds genesis state, if a seeder was configured, into the
// batch committed as height 0's effective state.
func (a *App) InitChain(ctx context.Context, req *abcitypes.RequestInitChain) (*abcitypes.ResponseInitChain, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.chainID != "" && req.ChainId != a.chainID {
		return nil, fmt.Errorf("consensus: genesis chain_id %q does not match configured %q", req.ChainId, a.chainID)
	}

	if a.genesis != nil {
		batch := a.store.NewBatch()
		if err := a.genesis.Seed(batch, req.AppStateBytes); err != nil {
			return nil, fmt.Errorf("consensus: seed genesis: %w", err)
		}
		if _, err := a.store.Commit(batch, 0); err != nil {
			return nil, fmt.Errorf("consensus: commit genesis batch: %w", err)
		}
	}

	return &abcitypes.ResponseInitChain{
		AppHash: a.store.RootHash(),
	}, nil
}

// CheckTx runs the dispatcher in read-only mode: parse, verify, and look
// up the method, but never stage any mutation.
func (a *App) CheckTx(ctx context.Context, req *abcitypes.RequestCheckTx) (*abcitypes.ResponseCheckTx, error) {
	blockCtx := dispatcher.BlockContext{Height: a.store.Height() + 1, Time: time.Now().UTC(), CheckTx: true}

	_, err := a.dispatcher.Dispatch(req.Tx, blockCtx, a.store, nil, a.signer, TimestampWindow)
	if err != nil {
		return &abcitypes.ResponseCheckTx{Code: 1, Log: err.Error()}, nil
	}
	return &abcitypes.ResponseCheckTx{Code: 0, GasWanted: 1, GasUsed: 1}, nil
}

// FinalizeBlock opens a fresh batch for the block, runs begin-block
// migration hooks and duplicate-envelope pruning over it, then dispatches
// every transaction in order. The batch is held open until Commit.
func (a *App) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	height := uint64(req.Height)
	a.currentBatch = a.store.NewBatch()
	a.currentHeight = height
	a.currentTime = req.Time

	blockCtx := dispatcher.BlockContext{Height: height, Time: req.Time, CheckTx: false}
	if err := a.dispatcher.RunBeginBlock(a.currentBatch, blockCtx); err != nil {
		return nil, fmt.Errorf("consensus: begin-block hooks: %w", err)
	}
	if err := a.migrations.RunBeginBlock(a.currentBatch, migration.BlockContext{Height: height}); err != nil {
		return nil, fmt.Errorf("consensus: begin-block migrations: %w", err)
	}
	if err := dispatcher.PruneExpiredDuplicates(a.currentBatch, a.store, height); err != nil {
		return nil, fmt.Errorf("consensus: prune duplicates: %w", err)
	}

	txResults := make([]*abcitypes.ExecTxResult, len(req.Txs))
	for i, tx := range req.Txs {
		txResults[i] = a.deliverTx(tx, blockCtx)
	}

	a.log.Info().Uint64("height", height).Int("txs", len(req.Txs)).Msg("finalize_block")

	return &abcitypes.ResponseFinalizeBlock{
		TxResults: txResults,
		AppHash:   a.store.RootHash(),
	}, nil
}

func (a *App) deliverTx(tx []byte, blockCtx dispatcher.BlockContext) *abcitypes.ExecTxResult {
	respBytes, err := a.dispatcher.Dispatch(tx, blockCtx, a.currentBatch, a.currentBatch, a.signer, TimestampWindow)
	if err != nil {
		return &abcitypes.ExecTxResult{Code: 1, Log: err.Error()}
	}
	return &abcitypes.ExecTxResult{
		Code: 0,
		Data: respBytes,
		Events: []abcitypes.Event{{
			Type: "dispatch",
			Attributes: []abcitypes.EventAttribute{
				{Key: "height", Value: fmt.Sprintf("%d", blockCtx.Height)},
			},
		}},
	}
}

// Commit atomically applies the block's staged batch and advances the
// store's committed height and root hash.
func (a *App) Commit(ctx context.Context, req *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.currentBatch == nil {
		return &abcitypes.ResponseCommit{}, nil
	}

	root, err := a.store.Commit(a.currentBatch, a.currentHeight)
	if err != nil {
		return nil, fmt.Errorf("consensus: commit batch: %w", err)
	}
	a.currentBatch = nil

	a.log.Info().Uint64("height", a.currentHeight).Hex("app_hash", root).Msg("commit")

	retain := int64(0)
	if a.currentHeight > 1000 {
		retain = int64(a.currentHeight - 1000)
	}
	return &abcitypes.ResponseCommit{RetainHeight: retain}, nil
}

// Query is the read-only, out-of-consensus introspection path: it re-runs
// the request's raw bytes through the dispatcher against committed state,
// never touching a batch. Callers (pkg/introspection) pass an already
// signed envelope; the abci_query path for raw key lookups is handled by
// req.Path == "/store".
func (a *App) Query(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch req.Path {
	case "/store":
		val, err := a.store.Get(req.Data)
		if err != nil {
			return &abcitypes.ResponseQuery{Code: 1, Log: err.Error()}, nil
		}
		if val == nil {
			return &abcitypes.ResponseQuery{Code: 1, Log: "not found"}, nil
		}
		return &abcitypes.ResponseQuery{Code: 0, Key: req.Data, Value: val, Height: int64(a.store.Height())}, nil

	case "/dispatch":
		blockCtx := dispatcher.BlockContext{Height: a.store.Height(), Time: time.Now().UTC(), CheckTx: true}
		respBytes, err := a.dispatcher.Dispatch(req.Data, blockCtx, a.store, nil, a.signer, TimestampWindow)
		if err != nil {
			return &abcitypes.ResponseQuery{Code: 1, Log: err.Error()}, nil
		}
		return &abcitypes.ResponseQuery{Code: 0, Value: respBytes, Height: int64(a.store.Height())}, nil

	default:
		return &abcitypes.ResponseQuery{Code: 2, Log: "unknown query path: " + req.Path}, nil
	}
}

// PrepareProposal passes transactions through unchanged; CheckTx already
// filtered malformed envelopes out of the mempool.
func (a *App) PrepareProposal(ctx context.Context, req *abcitypes.RequestPrepareProposal) (*abcitypes.ResponsePrepareProposal, error) {
	return &abcitypes.ResponsePrepareProposal{Txs: req.Txs}, nil
}

// ProcessProposal accepts any proposal whose transactions parse as signed
// envelopes; full semantic validation happens at FinalizeBlock time.
func (a *App) ProcessProposal(ctx context.Context, req *abcitypes.RequestProcessProposal) (*abcitypes.ResponseProcessProposal, error) {
	return &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_ACCEPT}, nil
}

// ExtendVote and VerifyVoteExtension are unused; this chain has no vote
// extension data.
func (a *App) ExtendVote(ctx context.Context, req *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (a *App) VerifyVoteExtension(ctx context.Context, req *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

// State-sync snapshots are not implemented; new nodes replay from genesis.
func (a *App) ListSnapshots(ctx context.Context, req *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (a *App) OfferSnapshot(ctx context.Context, req *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{Result: abcitypes.ResponseOfferSnapshot_ABORT}, nil
}

func (a *App) LoadSnapshotChunk(ctx context.Context, req *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (a *App) ApplySnapshotChunk(ctx context.Context, req *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{Result: abcitypes.ResponseApplySnapshotChunk_ABORT}, nil
}
