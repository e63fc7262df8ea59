package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"custodychain/config"
	"custodychain/core/genesis"
	"custodychain/core/types"
	"custodychain/native/custody"
	"custodychain/observability/metrics"
	"custodychain/storage"
	"custodychain/storage/eventlog"
	"custodychain/storage/trie"
)

var headKey = []byte("chain/head")

type chainHead struct {
	Height uint64
	Root   common.Hash
}

// TxResult reports the outcome of one transaction in a block.
type TxResult struct {
	Hash []byte
	Err  error
}

// BlockResult summarises a committed block.
type BlockResult struct {
	Height  uint64
	Root    common.Hash
	Txs     []TxResult
	Events  []types.Event
	Applied int
}

// Node is the central controller, wiring all components together.
type Node struct {
	db      storage.Database
	state   *StateProcessor
	journal *eventlog.Journal
	logger  *slog.Logger
	tracer  trace.Tracer
	stateMu sync.Mutex
	height  uint64
}

// Open loads (or initialises) the chain state under cfg.DataDir.
func Open(cfg *config.Config, logger *slog.Logger) (*Node, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return nil, err
	}
	journal, err := eventlog.Open(filepath.Join(cfg.DataDir, "events.db"), nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	n, err := newNode(cfg, db, journal, logger)
	if err != nil {
		_ = journal.Close()
		db.Close()
		return nil, err
	}
	return n, nil
}

func newNode(cfg *config.Config, db storage.Database, journal *eventlog.Journal, logger *slog.Logger) (*Node, error) {
	head, found, err := loadHead(db)
	if err != nil {
		return nil, err
	}
	var root []byte
	if found {
		root = head.Root.Bytes()
	}
	stateTrie, err := trie.NewTrie(db, root)
	if err != nil {
		return nil, err
	}
	sp, err := NewStateProcessor(
		stateTrie,
		SignatureAuthenticator{ChainID: cfg.ChainID},
		custody.Params{MinBlockDelay: cfg.Custody.MinBlockDelay},
		cfg.Pauses,
	)
	if err != nil {
		return nil, err
	}
	sp.SetLogger(logger)
	recorder := metrics.Custody()
	sp.SetRecorder(recorder)
	sp.Custody.SetRecorder(recorder)

	n := &Node{
		db:      db,
		state:   sp,
		journal: journal,
		logger:  logger,
		tracer:  otel.Tracer("custodychain/core"),
		height:  head.Height,
	}
	if !found {
		if err := n.initGenesis(cfg); err != nil {
			return nil, err
		}
	}
	logger.Info("chain state loaded",
		"network", cfg.NetworkName,
		"minBlockDelay", sp.Custody.Params().MinBlockDelay,
		"height", n.height,
		"root", sp.CurrentRoot().Hex(),
	)
	return n, nil
}

func (n *Node) initGenesis(cfg *config.Config) error {
	allocs, err := cfg.GenesisAllocs()
	if err != nil {
		return err
	}
	n.state.BeginBlock(0)
	if err := genesis.Apply(n.state.State(), allocs); err != nil {
		return err
	}
	root, err := n.state.Commit(0)
	if err != nil {
		return err
	}
	n.height = 0
	return storeHead(n.db, chainHead{Height: 0, Root: root})
}

func loadHead(db storage.Database) (chainHead, bool, error) {
	raw, err := db.Get(headKey)
	if errors.Is(err, storage.ErrNotFound) {
		return chainHead{}, false, nil
	}
	if err != nil {
		return chainHead{}, false, err
	}
	var head chainHead
	if err := rlp.DecodeBytes(raw, &head); err != nil {
		return chainHead{}, false, fmt.Errorf("decode chain head: %w", err)
	}
	return head, true, nil
}

func storeHead(db storage.Database, head chainHead) error {
	raw, err := rlp.EncodeToBytes(&head)
	if err != nil {
		return err
	}
	return db.Put(headKey, raw)
}

// Height returns the last committed block height.
func (n *Node) Height() uint64 {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.height
}

// StateRoot returns the last committed state root.
func (n *Node) StateRoot() common.Hash {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.state.CurrentRoot()
}

// ProduceBlock executes txs at the next height and commits the result. Failed
// transactions are reported and skipped; they do not abort the block.
func (n *Node) ProduceBlock(txs []*types.Transaction) (*BlockResult, error) {
	return n.ProduceBlockContext(context.Background(), txs)
}

// ProduceBlockContext is ProduceBlock with a parent context for tracing.
func (n *Node) ProduceBlockContext(ctx context.Context, txs []*types.Transaction) (*BlockResult, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	height := n.height + 1
	ctx, span := n.tracer.Start(ctx, "custody.produce_block",
		trace.WithAttributes(
			attribute.Int64("height", int64(height)),
			attribute.Int("txs", len(txs)),
		))
	defer span.End()

	n.state.BeginBlock(height)
	result := &BlockResult{Height: height, Txs: make([]TxResult, 0, len(txs))}
	for _, tx := range txs {
		var hash []byte
		if tx != nil {
			hash, _ = tx.Hash()
		}
		err := n.applyTraced(ctx, tx)
		if err == nil {
			result.Applied++
		}
		result.Txs = append(result.Txs, TxResult{Hash: hash, Err: err})
	}
	if err := n.commitBlock(result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	span.SetAttributes(attribute.Int("applied", result.Applied))
	span.SetStatus(codes.Ok, "block committed")
	return result, nil
}

func (n *Node) applyTraced(ctx context.Context, tx *types.Transaction) error {
	_, span := n.tracer.Start(ctx, "custody.apply_tx")
	defer span.End()
	if tx != nil {
		span.SetAttributes(attribute.String("txtype", tx.Type.String()))
	}
	if err := n.state.ApplyTransaction(tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// commitBlock journals the block events, then persists the pending state and
// the head. On any failure the pending state is reset to the previous root and
// the height's journal entries are dropped, so the block leaves no trace.
func (n *Node) commitBlock(result *BlockResult) (err error) {
	previous := n.state.CurrentRoot()
	evts := n.state.Events()
	journaled := false
	defer func() {
		if err == nil {
			return
		}
		if resetErr := n.state.ResetToRoot(previous); resetErr != nil {
			err = errors.Join(err, resetErr)
		}
		if journaled {
			if dropErr := n.journal.DropHeight(result.Height); dropErr != nil {
				err = errors.Join(err, dropErr)
			}
		}
		n.logger.Error("block discarded", "height", result.Height, "error", err)
	}()

	if _, err := n.journal.Append(result.Height, evts); err != nil {
		return fmt.Errorf("journal block %d: %w", result.Height, err)
	}
	journaled = true
	root, err := n.state.Commit(result.Height)
	if err != nil {
		return fmt.Errorf("commit block %d: %w", result.Height, err)
	}
	if err := storeHead(n.db, chainHead{Height: result.Height, Root: root}); err != nil {
		return fmt.Errorf("store head %d: %w", result.Height, err)
	}
	result.Root = root
	result.Events = evts
	n.height = result.Height
	n.logger.Info("block committed",
		"height", result.Height,
		"root", root.Hex(),
		"txs", len(result.Txs),
		"applied", result.Applied,
		"events", len(result.Events),
	)
	return nil
}

// Account returns the nonce and balance of addr.
func (n *Node) Account(addr [20]byte) (*types.Account, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.state.State().Account(addr)
}

// Balance returns the balance of addr.
func (n *Node) Balance(addr [20]byte) (*big.Int, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.state.Bank.Balance(addr)
}

// CustodyContract returns the contract registered by trustor.
func (n *Node) CustodyContract(trustor [20]byte) (*custody.Contract, bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.state.Custody.Contract(trustor)
}

// CustodyStatus classifies trustor at the last committed height.
func (n *Node) CustodyStatus(trustor [20]byte) (custody.Status, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.state.BeginBlock(n.height)
	return n.state.Custody.Status(trustor)
}

// CustodyTrustors lists the trustors naming beneficiary.
func (n *Node) CustodyTrustors(beneficiary [20]byte) ([][20]byte, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.state.Custody.Trustors(beneficiary)
}

// EventsAt replays the journaled events of height.
func (n *Node) EventsAt(height uint64) ([]eventlog.Record, error) {
	return n.journal.ByHeight(height)
}

// Close releases the journal and the database.
func (n *Node) Close() error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	err := n.journal.Close()
	n.db.Close()
	return err
}
