package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pybill/pbdash/internal/query"
)

// Columns is the most recent column query result.
type Columns struct {
	Code    string
	Days    int
	Data    query.QueryData
	Fetched time.Time
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Stocks              []query.StockItem
	Quotes              map[string]query.RecentSecurity
	Columns             Columns
	HasColumns          bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Quote returns the cached quote for code.
func (s Snapshot) Quote(code string) (query.RecentSecurity, bool) {
	q, ok := s.Quotes[code]
	return q, ok
}

// Store coordinates updates from the poller and dispatcher continuations with
// reads from the UI.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// UpdateStocks replaces the stock list. When err is non-nil the previous list
// is kept and the failure is counted.
func (s *Store) UpdateStocks(items []query.StockItem, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Stocks = cloneStocks(items)
	sort.SliceStable(s.snapshot.Stocks, func(i, j int) bool {
		return s.snapshot.Stocks[i].Code < s.snapshot.Stocks[j].Code
	})
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// RemoveStock drops code from the list and forgets its quote.
func (s *Store) RemoveStock(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.snapshot.Stocks[:0]
	for _, item := range s.snapshot.Stocks {
		if item.Code != code {
			kept = append(kept, item)
		}
	}
	s.snapshot.Stocks = kept
	delete(s.snapshot.Quotes, code)
	if s.snapshot.HasColumns && s.snapshot.Columns.Code == code {
		s.snapshot.Columns = Columns{}
		s.snapshot.HasColumns = false
	}
}

// SetQuote caches the latest quote for code.
func (s *Store) SetQuote(code string, q query.RecentSecurity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot.Quotes == nil {
		s.snapshot.Quotes = make(map[string]query.RecentSecurity)
	}
	s.snapshot.Quotes[code] = q
}

// SetColumns records a column query result.
func (s *Store) SetColumns(code string, days int, data query.QueryData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Columns = Columns{Code: code, Days: days, Data: data, Fetched: time.Now()}
	s.snapshot.HasColumns = true
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Stocks = cloneStocks(s.snapshot.Stocks)
	if len(s.snapshot.Quotes) > 0 {
		snap.Quotes = make(map[string]query.RecentSecurity, len(s.snapshot.Quotes))
		for k, v := range s.snapshot.Quotes {
			snap.Quotes[k] = v
		}
	}
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneStocks(items []query.StockItem) []query.StockItem {
	if len(items) == 0 {
		return nil
	}
	dup := make([]query.StockItem, len(items))
	copy(dup, items)
	return dup
}
