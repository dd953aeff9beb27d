package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/pybill/pbdash/internal/query"
)

func TestStore_UpdateAndSnapshotClone(t *testing.T) {
	var s Store

	before := time.Now()
	s.UpdateStocks([]query.StockItem{{Code: "000660"}, {Code: "005930"}}, nil)

	snap := s.Snapshot()
	if len(snap.Stocks) != 2 || snap.Stocks[0].Code != "000660" {
		t.Fatalf("snapshot stocks = %#v, want 2 sorted items", snap.Stocks)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	snap.Stocks[0].Code = "999999"
	if s.Snapshot().Stocks[0].Code != "000660" {
		t.Fatalf("Snapshot should clone stocks")
	}
}

func TestStore_UpdateErrorKeepsPreviousData(t *testing.T) {
	var s Store

	s.UpdateStocks([]query.StockItem{{Code: "005930"}}, nil)
	origErr := errors.New("boom")
	s.UpdateStocks(nil, origErr)

	snap := s.Snapshot()
	if len(snap.Stocks) != 1 || snap.Stocks[0].Code != "005930" {
		t.Fatalf("stocks changed on error: got %#v", snap.Stocks)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if !errors.Is(snap.LastError, origErr) {
		t.Fatalf("LastError should wrap the original error")
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	if s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = true, want false with 0 failures")
	}
	s.UpdateStocks(nil, errors.New("fail 1"))
	if s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = true, want false with 1 failure")
	}
	s.UpdateStocks(nil, errors.New("fail 2"))
	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("ConsecutiveFailures = %d, want 2 and offline", snap.ConsecutiveFailures)
	}
	s.UpdateStocks(nil, nil)
	if got := s.Snapshot().ConsecutiveFailures; got != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0 after success", got)
	}
}

func TestStore_QuotesAndColumns(t *testing.T) {
	var s Store
	s.UpdateStocks([]query.StockItem{{Code: "005930"}, {Code: "000660"}}, nil)
	s.SetQuote("005930", query.RecentSecurity{Name: "Samsung"})
	s.SetColumns("005930", 72, query.QueryData{ColNames: []string{"stamp"}})

	snap := s.Snapshot()
	if q, ok := snap.Quote("005930"); !ok || q.Name != "Samsung" {
		t.Fatalf("Quote = %#v, %v", q, ok)
	}
	if !snap.HasColumns || snap.Columns.Days != 72 {
		t.Fatalf("Columns = %#v, want 72 days", snap.Columns)
	}

	snap.Quotes["005930"] = query.RecentSecurity{Name: "mutated"}
	if q, _ := s.Snapshot().Quote("005930"); q.Name != "Samsung" {
		t.Fatalf("Snapshot should clone quotes")
	}

	s.RemoveStock("005930")
	snap = s.Snapshot()
	if len(snap.Stocks) != 1 || snap.Stocks[0].Code != "000660" {
		t.Fatalf("stocks after remove = %#v", snap.Stocks)
	}
	if _, ok := snap.Quote("005930"); ok {
		t.Fatalf("quote kept after remove")
	}
	if snap.HasColumns {
		t.Fatalf("columns kept after remove")
	}
}
