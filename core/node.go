package core

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	coreerrors "curvefoundry/core/errors"
	"curvefoundry/core/events"
	"curvefoundry/core/genesis"
	corestate "curvefoundry/core/state"
	"curvefoundry/core/types"
	"curvefoundry/native/curve"
	"curvefoundry/native/factory"
	"curvefoundry/native/pool"
	"curvefoundry/native/registry"
	"curvefoundry/native/token"
	"curvefoundry/native/vault"
	"curvefoundry/observability/metrics"
	"curvefoundry/storage"
	"curvefoundry/storage/trie"
)

var (
	ErrInvalidSignature = coreerrors.New(coreerrors.KindAuthorization, "node: invalid transaction signature")
	ErrNonceMismatch    = coreerrors.New(coreerrors.KindValidation, "node: nonce mismatch")
	ErrUnknownTxType    = coreerrors.New(coreerrors.KindValidation, "node: unknown transaction type")
	ErrInvalidPayload   = coreerrors.New(coreerrors.KindValidation, "node: invalid transaction payload")
	ErrValueNotAccepted = coreerrors.New(coreerrors.KindValidation, "node: operation does not accept attached value")
	ErrUnknownTarget    = coreerrors.New(coreerrors.KindNotFound, "node: transaction target is not a known instance")
	ErrMissingGenesis   = coreerrors.New(coreerrors.KindInvariant, "node: database has no genesis and no genesis spec was supplied")
)

var nodeMetaKey = []byte("node/meta")

// nodeMeta pins the addresses fixed at genesis so a restarted node can wire
// its engines without the genesis document. CurveImplementations lists every
// curve template the registry has named; curves of any other template have no
// pricing.
type nodeMeta struct {
	BaseAsset            common.Address
	Registry             common.Address
	VenueFactory         common.Address
	VenueManager         common.Address
	CurveImplementations []common.Address
}

// Node is the central controller, wiring all components together. Every
// mutating call is serialised by mu and runs all-or-nothing against the state
// trie.
type Node struct {
	mu sync.Mutex

	db       storage.Database
	chain    *Blockchain
	trie     *trie.Trie
	state    *corestate.Manager
	recorder *events.Recorder

	tokens    *token.Engine
	curves    *curve.Engine
	venue     *pool.Venue
	vaults    *vault.Engine
	factories *factory.Engine
	registry  *registry.Engine

	meta     nodeMeta
	pending  []*types.Transaction
	receipts []*types.Receipt

	logger  *slog.Logger
	metrics *metrics.FoundryMetrics
	nowFn   func() int64
}

// Option customises a Node at construction.
type Option func(*Node)

// WithLogger routes node logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithMetrics records node activity in m.
func WithMetrics(m *metrics.FoundryMetrics) Option {
	return func(n *Node) { n.metrics = m }
}

// WithClock overrides the unix-seconds clock shared by every engine.
func WithClock(now func() int64) Option {
	return func(n *Node) {
		if now != nil {
			n.nowFn = now
		}
	}
}

// NewNode opens the chain stored in db. When db is empty the genesis spec is
// applied and sealed as block zero; otherwise spec is ignored.
func NewNode(db storage.Database, spec *genesis.GenesisSpec, opts ...Option) (*Node, error) {
	n := &Node{
		db:       db,
		recorder: &events.Recorder{},
		logger:   slog.Default(),
		nowFn:    func() int64 { return time.Now().Unix() },
	}
	for _, opt := range opts {
		opt(n)
	}

	chain, err := OpenBlockchain(db)
	if err != nil {
		return nil, err
	}
	n.chain = chain

	head := chain.Head()
	var root []byte
	if head != nil {
		root = head.StateRoot.Bytes()
	} else if spec == nil {
		return nil, ErrMissingGenesis
	}
	stateTrie, err := trie.NewTrie(db, root)
	if err != nil {
		return nil, err
	}
	n.trie = stateTrie
	n.state = corestate.NewManager(stateTrie)

	if head == nil {
		n.meta = nodeMeta{
			BaseAsset: spec.BaseAssetAddress(),
			Registry:  spec.RegistryParams().Address,
		}
		n.meta.VenueFactory, n.meta.VenueManager = spec.VenueAddresses()
	} else {
		ok, err := n.state.KVGet(nodeMetaKey, &n.meta)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("node: state at %s has no node metadata", head.StateRoot.Hex())
		}
	}
	n.wireEngines()

	if head == nil {
		if err := n.applyGenesis(spec); err != nil {
			return nil, fmt.Errorf("apply genesis: %w", err)
		}
	}
	n.metrics.SetHeight(n.Height())
	return n, nil
}

func (n *Node) wireEngines() {
	n.tokens = token.NewEngine()
	n.tokens.SetState(n.state)
	n.tokens.SetEmitter(n.recorder)
	n.tokens.SetNowFunc(n.nowFn)

	n.venue = pool.NewVenue(n.meta.VenueFactory, n.meta.VenueManager)
	n.venue.SetState(n.state)
	n.venue.SetLedger(n.tokens)
	n.venue.SetEmitter(n.recorder)
	n.venue.SetNowFunc(n.nowFn)

	n.vaults = vault.NewEngine()
	n.vaults.SetState(n.state)
	n.vaults.SetPositionManager(n.venue)
	n.vaults.SetEmitter(n.recorder)
	n.vaults.SetNowFunc(n.nowFn)

	n.curves = curve.NewEngine()
	n.curves.SetState(n.state)
	n.curves.SetLedger(n.tokens)
	n.curves.SetVenue(n.venue)
	n.curves.SetLocker(n.vaults)
	n.curves.SetEmitter(n.recorder)
	n.curves.SetNowFunc(n.nowFn)
	n.curves.SetDefaultPricing(nil)
	for _, impl := range n.meta.CurveImplementations {
		n.curves.RegisterPricing(impl, curve.ConstantProduct{})
	}

	n.factories = factory.NewEngine()
	n.factories.SetState(n.state)
	n.factories.SetTokens(n.tokens)
	n.factories.SetCurves(n.curves)
	n.factories.SetEmitter(n.recorder)
	n.factories.SetNowFunc(n.nowFn)

	n.registry = registry.NewEngine()
	n.registry.SetState(n.state)
	n.registry.SetLedger(n.tokens)
	n.registry.SetFactories(n.factories)
	n.registry.SetVaults(n.vaults)
	n.registry.SetEmitter(n.recorder)
	n.registry.SetNowFunc(n.nowFn)
}

// bindCurvePricing prices curves of implementation along the constant product
// and records the binding in the node metadata.
func (n *Node) bindCurvePricing(implementation common.Address) error {
	for _, known := range n.meta.CurveImplementations {
		if known == implementation {
			return nil
		}
	}
	meta := n.meta
	meta.CurveImplementations = append(append([]common.Address(nil), n.meta.CurveImplementations...), implementation)
	if err := n.state.KVPut(nodeMetaKey, &meta); err != nil {
		return err
	}
	n.meta = meta
	n.curves.RegisterPricing(implementation, curve.ConstantProduct{})
	return nil
}

// BaseAsset is the ledger address of the asset used for attached value.
func (n *Node) BaseAsset() common.Address { return n.meta.BaseAsset }

// RegistryAddress is the address of the deployment registry.
func (n *Node) RegistryAddress() common.Address { return n.meta.Registry }

// VenueFactory is the pool factory address of the in-process venue.
func (n *Node) VenueFactory() common.Address { return n.meta.VenueFactory }

// VenueManager is the position manager address of the in-process venue.
func (n *Node) VenueManager() common.Address { return n.meta.VenueManager }

// Height returns the height of the last sealed block.
func (n *Node) Height() uint64 {
	if head := n.chain.Head(); head != nil {
		return head.Height
	}
	return 0
}

// StateRoot returns the root of the state including unsealed transactions.
func (n *Node) StateRoot() common.Hash {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.trie.Hash()
}

// Pending returns the number of applied transactions awaiting a seal.
func (n *Node) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

// SealBlock commits every applied transaction into a new block.
func (n *Node) SealBlock() (*types.Block, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sealLocked()
}

func (n *Node) sealLocked() (*types.Block, error) {
	head := n.chain.Head()
	height := uint64(0)
	prev := common.Hash{}
	if head != nil {
		height = head.Height + 1
		prev = n.chain.Tip()
	}
	txRoot, err := ComputeTxRoot(n.pending)
	if err != nil {
		return nil, err
	}
	root, err := n.trie.Commit(height)
	if err != nil {
		return nil, fmt.Errorf("commit state: %w", err)
	}
	header := &types.BlockHeader{
		Height:    height,
		Timestamp: uint64(n.nowFn()),
		PrevHash:  prev,
		StateRoot: root,
		TxRoot:    txRoot,
		TxCount:   uint64(len(n.pending)),
	}
	for _, receipt := range n.receipts {
		receipt.Height = height
	}
	block := types.NewBlock(header, n.pending)
	if err := n.chain.AddBlock(block, n.receipts); err != nil {
		return nil, err
	}
	n.pending = nil
	n.receipts = nil
	n.recorder.Reset()
	n.metrics.SetHeight(height)
	n.logger.Info("block sealed",
		slog.Uint64("height", height),
		slog.Uint64("txs", header.TxCount),
		slog.String("stateRoot", root.Hex()))
	return block, nil
}
