package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProxyRequest is forwarded to /ajax/proxy. The server performs the outbound
// call and caches the result for Duration seconds; the client never reads it.
type ProxyRequest struct {
	Method   string         `json:"method"`
	URL      string         `json:"url"`
	DataType string         `json:"datatype"`
	Params   map[string]any `json:"params,omitempty"`
	Duration int            `json:"duration"`
}

// RecentSecurity is the quote summary returned by the market data host.
type RecentSecurity struct {
	Code             string      `json:"code"`
	Name             string      `json:"name"`
	TradePrice       json.Number `json:"tradePrice"`
	PrevClosingPrice json.Number `json:"prevClosingPrice"`
	ChangePrice      json.Number `json:"changePrice"`
	ChangePriceRate  json.Number `json:"changePriceRate"`
	AccTradeVolume   json.Number `json:"accTradeVolume"`
	TradeTime        string      `json:"tradeTime"`
}

type securityBrief struct {
	RecentSecurity RecentSecurity `json:"recentSecurity"`
}

// StockItem is an entry of the saved stock list.
type StockItem struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Market    string `json:"market"`
	AlgoIndex string `json:"algo_index,omitempty"`
}

// ColumnQuery selects columns of a stock's daily history.
type ColumnQuery struct {
	ColNames   []string `json:"colnames"`
	Accumulate bool     `json:"accumulate,omitempty"`
}

// QueryData is the tabular result shape shared by column queries and CSV export.
type QueryData struct {
	ColNames []string `json:"colnames"`
	Fields   [][]any  `json:"fields"`
}

// Column returns the index of name, or -1.
func (q QueryData) Column(name string) int {
	for i, c := range q.ColNames {
		if c == name {
			return i
		}
	}
	return -1
}

// Validate checks every record has one value per column.
func (q QueryData) Validate() error {
	for i, row := range q.Fields {
		if len(row) != len(q.ColNames) {
			return fmt.Errorf("record %d has %d values, want %d", i, len(row), len(q.ColNames))
		}
	}
	return nil
}

// InvestorTrend is the per-investor trading breakdown keyed by series name.
type InvestorTrend map[string]json.RawMessage

// User mirrors the account payloads.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	Notify   int    `json:"notify,omitempty"`
}

// NotifySetting is returned after toggling an e-mail notification.
type NotifySetting struct {
	Value int      `json:"value"`
	Names []string `json:"names"`
}

// NotifyOp is the operation applied to a notification name.
type NotifyOp string

const (
	NotifySelect   NotifyOp = "select"
	NotifyDeselect NotifyOp = "deselect"
)

func normalizeCode(code string) string {
	return strings.TrimSpace(code)
}
