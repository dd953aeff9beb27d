package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/pybill/pbdash/internal/dispatch"
)

// Dispatcher is implemented by *dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) *dispatch.Pending
}

var _ Dispatcher = (*dispatch.Dispatcher)(nil)

const (
	pathProxy         = "/ajax/proxy"
	pathStockList     = "/ajax/stock/list"
	pathStockItem     = "/ajax/stock/item/"
	pathBookmark      = "/ajax/bookmark"
	pathWhoAmI        = "/ajax/account/whoami"
	pathAccountUser   = "/ajax/account/user"
	pathAccountNotify = "/ajax/account/user/notify"

	kakaoSecurityURL = "https://stock.kakao.com/api/securities/KOREA-A%s.json"
	// QuoteCacheSeconds is the proxy cache lifetime requested for quote lookups.
	QuoteCacheSeconds = 90
)

// Facade builds request descriptors for the pybill API.
type Facade struct {
	d      Dispatcher
	logger *zap.Logger
}

// New returns a Facade dispatching through d.
func New(d Dispatcher, logger *zap.Logger) *Facade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Facade{d: d, logger: logger}
}

// RecentQuote fetches the latest quote for a stock code through the proxy.
func (f *Facade) RecentQuote(ctx context.Context, code string, cb func(RecentSecurity)) *dispatch.Pending {
	req := ProxyRequest{
		Method:   http.MethodGet,
		URL:      fmt.Sprintf(kakaoSecurityURL, normalizeCode(code)),
		DataType: "json",
		Duration: QuoteCacheSeconds,
	}
	return Proxy(ctx, f, req, func(b securityBrief) {
		if cb != nil {
			cb(b.RecentSecurity)
		}
	})
}

// Proxy asks the server to perform req on the client's behalf and decodes the
// forwarded payload into T.
func Proxy[T any](ctx context.Context, f *Facade, req ProxyRequest, cb func(T)) *dispatch.Pending {
	if req.DataType == "" {
		req.DataType = "json"
	}
	return f.send(ctx, http.MethodPost, pathProxy, req, continuation(f, pathProxy, cb))
}

// ListStocks fetches the saved stock list.
func (f *Facade) ListStocks(ctx context.Context, cb func([]StockItem)) *dispatch.Pending {
	return f.send(ctx, http.MethodGet, pathStockList, struct{}{}, continuation(f, pathStockList, cb))
}

// DeleteStock removes a saved stock.
func (f *Facade) DeleteStock(ctx context.Context, code string, cb func()) *dispatch.Pending {
	path := stockItemPath(code)
	return f.send(ctx, http.MethodDelete, path, struct{}{}, func(json.RawMessage) error {
		if cb != nil {
			cb()
		}
		return nil
	})
}

// StockColumns fetches the selected columns of the last days of history.
func (f *Facade) StockColumns(ctx context.Context, code string, days int, q ColumnQuery, cb func(QueryData)) *dispatch.Pending {
	path := stockItemPath(code, "columns", strconv.Itoa(days))
	return f.send(ctx, http.MethodPost, path, q, continuation(f, path, cb))
}

// InvestorTrend fetches investor trading trends for the last months.
func (f *Facade) InvestorTrend(ctx context.Context, code string, months int, cb func(InvestorTrend)) *dispatch.Pending {
	path := stockItemPath(code, "investor", strconv.Itoa(months))
	return f.send(ctx, http.MethodGet, path, struct{}{}, continuation(f, path, cb))
}

// Bookmark loads the user's bookmark document.
func (f *Facade) Bookmark(ctx context.Context, cb func(map[string]any)) *dispatch.Pending {
	return f.send(ctx, http.MethodGet, pathBookmark, struct{}{}, continuation(f, pathBookmark, cb))
}

// SaveBookmark stores the raw bookmark document. The server replies with a
// message that surfaces as a success notification.
func (f *Facade) SaveBookmark(ctx context.Context, data string, cb func()) *dispatch.Pending {
	body := map[string]string{"data": data}
	return f.send(ctx, http.MethodPost, pathBookmark, body, func(json.RawMessage) error {
		if cb != nil {
			cb()
		}
		return nil
	})
}

// WhoAmI returns the logged in user.
func (f *Facade) WhoAmI(ctx context.Context, cb func(User)) *dispatch.Pending {
	return f.send(ctx, http.MethodGet, pathWhoAmI, struct{}{}, continuation(f, pathWhoAmI, cb))
}

// UserInfo fetches a user (administrators only).
func (f *Facade) UserInfo(ctx context.Context, id int64, cb func(User)) *dispatch.Pending {
	body := map[string]any{"id": id}
	return f.send(ctx, http.MethodGet, pathAccountUser, body, continuation(f, pathAccountUser, cb))
}

// UpdateUser patches user properties (administrators only).
func (f *Facade) UpdateUser(ctx context.Context, id int64, fields map[string]any, cb func(User)) *dispatch.Pending {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["id"] = id
	return f.send(ctx, http.MethodPatch, pathAccountUser, body, continuation(f, pathAccountUser, cb))
}

// DeleteUser removes a user (administrators only).
func (f *Facade) DeleteUser(ctx context.Context, id int64, cb func()) *dispatch.Pending {
	body := map[string]any{"id": id}
	return f.send(ctx, http.MethodDelete, pathAccountUser, body, func(json.RawMessage) error {
		if cb != nil {
			cb()
		}
		return nil
	})
}

// UpdateNotify selects or deselects an e-mail notification for the current user.
func (f *Facade) UpdateNotify(ctx context.Context, name string, op NotifyOp, cb func(NotifySetting)) *dispatch.Pending {
	body := map[string]string{"notify": name, "operate": string(op)}
	return f.send(ctx, http.MethodPatch, pathAccountNotify, body, continuation(f, pathAccountNotify, cb))
}

func (f *Facade) send(ctx context.Context, verb, path string, body any, onValue func(json.RawMessage) error) *dispatch.Pending {
	return f.d.Dispatch(ctx, dispatch.Request{
		Verb:    verb,
		URL:     path,
		Body:    body,
		OnValue: onValue,
	})
}

// continuation decodes the envelope value into T before calling cb. Numbers
// stay json.Number so exported values keep their textual form. A value of the
// wrong shape skips cb and is reported back to the dispatcher.
func continuation[T any](f *Facade, path string, cb func(T)) func(json.RawMessage) error {
	return func(raw json.RawMessage) error {
		var v T
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
			dec := json.NewDecoder(bytes.NewReader(trimmed))
			dec.UseNumber()
			if err := dec.Decode(&v); err != nil {
				f.logger.Debug("unexpected value shape", zap.String("path", path), zap.Error(err))
				return fmt.Errorf("decode %T: %w", v, err)
			}
		}
		if cb != nil {
			cb(v)
		}
		return nil
	}
}

func stockItemPath(code string, parts ...string) string {
	path := pathStockItem + url.PathEscape(normalizeCode(code))
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}
