package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// MemoryStore is an in-memory Store. It assigns monotonic sequence numbers on
// Append the same way the SQLite store does.
type MemoryStore struct {
	mu         sync.RWMutex
	portfolios map[string]model.Portfolio
	assets     map[string]model.Asset
	txs        map[string][]model.Transaction
	nextSeq    int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		portfolios: make(map[string]model.Portfolio),
		assets:     make(map[string]model.Asset),
		txs:        make(map[string][]model.Transaction),
	}
}

// AddPortfolio registers a portfolio.
func (m *MemoryStore) AddPortfolio(p model.Portfolio) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portfolios[p.ID] = p
}

// AddAsset registers an asset.
func (m *MemoryStore) AddAsset(a model.Asset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[a.ID] = a
}

// Append stores tx with the next sequence number and returns the stored copy.
func (m *MemoryStore) Append(tx model.Transaction) (model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.portfolios[tx.PortfolioID]; !ok {
		return model.Transaction{}, fmt.Errorf("%w: %s", apperrors.ErrPortfolioNotFound, tx.PortfolioID)
	}
	m.nextSeq++
	tx.Sequence = m.nextSeq
	m.txs[tx.PortfolioID] = append(m.txs[tx.PortfolioID], tx)
	return tx, nil
}

func (m *MemoryStore) GetPortfolioOnID(_ context.Context, portfolioID string) (model.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.portfolios[portfolioID]
	if !ok {
		return model.Portfolio{}, fmt.Errorf("%w: %s", apperrors.ErrPortfolioNotFound, portfolioID)
	}
	return p, nil
}

func (m *MemoryStore) AssetExists(_ context.Context, assetID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.assets[assetID]
	return ok, nil
}

// GetAssets returns the registered assets keyed by ID.
func (m *MemoryStore) GetAssets(_ context.Context) (map[string]model.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]model.Asset, len(m.assets))
	for id, a := range m.assets {
		out[id] = a
	}
	return out, nil
}

func (m *MemoryStore) LoadTransactions(_ context.Context, portfolioID string, asOf time.Time) ([]model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Transaction, 0, len(m.txs[portfolioID]))
	for _, tx := range m.txs[portfolioID] {
		if !tx.TradeTime.After(asOf) {
			out = append(out, tx)
		}
	}
	return out, nil
}
