package restsync_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gridstorm/internal/action"
	"github.com/dshills/gridstorm/internal/command"
	"github.com/dshills/gridstorm/internal/plugin"
	"github.com/dshills/gridstorm/internal/plugins/restsync"
	"github.com/dshills/gridstorm/internal/table"
	"github.com/dshills/gridstorm/internal/widget"
)

type request struct {
	Method string
	Path   string
	Body   string
}

// store is a fake remote collection.
type store struct {
	mu       sync.Mutex
	requests []request
	list     string
	status   int
}

func (s *store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, request{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	status, list := s.status, s.list
	s.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	switch r.Method {
	case http.MethodGet:
		_, _ = io.WriteString(w, list)
	case http.MethodPost:
		_, _ = io.WriteString(w, strings.Replace(string(body), "{", `{"id":"srv-1",`, 1))
	}
}

func (s *store) set(status int, list string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status, s.list = status, list
}

func (s *store) seen() []request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]request(nil), s.requests...)
}

func newStore(t *testing.T) (*store, *restsync.HTTPTransport) {
	t.Helper()
	s := &store{list: "[]"}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	cfg := restsync.DefaultHTTPConfig(srv.URL + "/rows")
	cfg.MaxFailures = 2
	cfg.OpenTimeout = time.Minute
	return s, restsync.NewHTTPTransport(cfg)
}

// vetoSaves vetoes every save on the cells it lists.
type vetoSaves struct {
	plugin.Base
	cells map[string]bool
}

func (v *vetoSaves) OnBeforeAction(cellID, _ string, obs action.Observer) bool {
	if v.cells[cellID] {
		obs.On(action.MethodSave, func(action.Call) bool { return false })
	}
	return true
}

// blockSaves drops save commands, after the action chain has let them through.
type blockSaves struct {
	plugin.Base
}

func (blockSaves) OnBeforeCellCommand(cmd command.CellCommand) bool {
	return cmd.Name != command.CellSave
}

type fixture struct {
	tbl   *table.Table
	sync  *restsync.Plugin
	store *store
}

func newFixture(t *testing.T, extra ...plugin.Plugin) fixture {
	t.Helper()
	s, tr := newStore(t)
	p := restsync.New(restsync.Config{Transport: tr, Timeout: time.Second, Button: true})

	tbl, err := table.New(table.DefaultConfig(), append(extra, p)...)
	require.NoError(t, err)
	require.NoError(t, tbl.Ready(context.Background()))
	return fixture{tbl: tbl, sync: p, store: s}
}

func (f fixture) mount(t *testing.T, data string) (string, []*widget.Text) {
	t.Helper()
	rowID, err := f.tbl.AddRow(f.tbl.TableSpace(), action.Bottom, json.RawMessage(data))
	require.NoError(t, err)
	ids, err := f.tbl.RowAPI(rowID).AddCells("name", "qty")
	require.NoError(t, err)
	var texts []*widget.Text
	for _, id := range ids {
		w, err := widget.NewText(f.tbl.CellAPI(id))
		require.NoError(t, err)
		texts = append(texts, w)
	}
	return rowID, texts
}

func TestSaveIsPatchedAndPushed(t *testing.T) {
	f := newFixture(t)
	rowID, texts := f.mount(t, `{"id":"r1","name":"old","qty":2}`)

	report := f.tbl.CellAPI(texts[0].ID()).RunAction(widget.ActionSave, "new")
	require.Len(t, report.Executed, 2)

	reqs := f.store.seen()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, "/rows/r1", reqs[0].Path)
	assert.JSONEq(t, `{"id":"r1","name":"new","qty":2}`, reqs[0].Body)

	row, _ := f.tbl.Row(rowID)
	assert.JSONEq(t, `{"id":"r1","name":"new","qty":2}`, string(row.Data))
	assert.Equal(t, "new", texts[0].Value())
}

func TestSaveWithoutRemoteIDCreates(t *testing.T) {
	f := newFixture(t)
	rowID, texts := f.mount(t, "")

	f.tbl.CellAPI(texts[1].ID()).RunAction(widget.ActionSave, "5")

	reqs := f.store.seen()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/rows", reqs[0].Path)

	row, _ := f.tbl.Row(rowID)
	assert.JSONEq(t, `{"id":"srv-1","qty":"5"}`, string(row.Data))
}

func TestVetoedSaveIsNotPushed(t *testing.T) {
	veto := &vetoSaves{Base: plugin.Base{PluginName: "locks", PluginVersion: "1.0.0"}}
	f := newFixture(t, veto)
	rowID, texts := f.mount(t, `{"id":"r1","name":"keep"}`)
	veto.cells = map[string]bool{texts[0].ID(): true}

	report := f.tbl.CellAPI(texts[0].ID()).RunAction(widget.ActionSave, "changed")
	assert.Len(t, report.Vetoed, 1)
	assert.Empty(t, f.store.seen())

	row, _ := f.tbl.Row(rowID)
	assert.JSONEq(t, `{"id":"r1","name":"keep"}`, string(row.Data))
}

func TestBlockedSaveIsNotPushed(t *testing.T) {
	f := newFixture(t, blockSaves{Base: plugin.Base{PluginName: "frozen", PluginVersion: "1.0.0", Last: true}})
	rowID, texts := f.mount(t, `{"id":"r1","name":"keep"}`)

	report := f.tbl.CellAPI(texts[0].ID()).RunAction(widget.ActionSave, "changed")
	assert.Empty(t, report.Vetoed)
	assert.Empty(t, f.store.seen())
	assert.Equal(t, restsync.Stats{}, f.sync.Stats())

	row, _ := f.tbl.Row(rowID)
	assert.JSONEq(t, `{"id":"r1","name":"keep"}`, string(row.Data))
}

func TestPushFailureKeepsLocalEdit(t *testing.T) {
	f := newFixture(t)
	f.store.set(http.StatusInternalServerError, "[]")
	rowID, texts := f.mount(t, `{"id":"r1"}`)

	f.tbl.CellAPI(texts[0].ID()).RunAction(widget.ActionSave, "local")

	row, _ := f.tbl.Row(rowID)
	assert.JSONEq(t, `{"id":"r1","name":"local"}`, string(row.Data))
	assert.Equal(t, restsync.Stats{Requests: 1, Failures: 1}, f.sync.Stats())
}

func TestLoadAndReload(t *testing.T) {
	f := newFixture(t)
	f.store.set(0, `[{"id":"a","name":"one"},{"id":"b","name":"two"},"skipped"]`)

	ids, err := f.sync.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, ids, f.tbl.Rows(f.tbl.TableSpace()))
	row, _ := f.tbl.Row(ids[1])
	assert.JSONEq(t, `{"id":"b","name":"two"}`, string(row.Data))

	f.store.set(0, `{"rows":[{"id":"c"}]}`)
	require.NoError(t, f.tbl.Click(restsync.ButtonReload))
	rows := f.tbl.Rows(f.tbl.TableSpace())
	require.Len(t, rows, 1)
	row, _ = f.tbl.Row(rows[0])
	assert.JSONEq(t, `{"id":"c"}`, string(row.Data))
}

func TestNotInitialized(t *testing.T) {
	_, tr := newStore(t)
	p := restsync.New(restsync.Config{Transport: tr})
	_, err := p.Load(context.Background())
	assert.ErrorIs(t, err, restsync.ErrNotInitialized)
	assert.True(t, p.ProcessLast())
}

func TestPatch(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		column string
		value  any
		want   string
	}{
		{"string", `{"a":1}`, "b", "x", `{"a":1,"b":"x"}`},
		{"number", `{}`, "n", 2.5, `{"n":2.5}`},
		{"raw", `{}`, "o", json.RawMessage(`{"k":[1]}`), `{"o":{"k":[1]}}`},
		{"dotted column", `{}`, "a.b", "v", `{"a.b":"v"}`},
		{"invalid payload", `nope`, "a", true, `{"a":true}`},
		{"stringer", `{}`, "d", action.Down, `{"d":"down"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := restsync.Patch([]byte(tt.data), tt.column, tt.value)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestHTTPTransportCircuit(t *testing.T) {
	s, tr := newStore(t)
	s.set(http.StatusBadGateway, "[]")

	_, err := tr.Pull(context.Background())
	assert.ErrorIs(t, err, restsync.ErrStatus)
	_, err = tr.Push(context.Background(), "x", []byte(`{}`))
	assert.ErrorIs(t, err, restsync.ErrStatus)

	_, err = tr.Pull(context.Background())
	assert.ErrorIs(t, err, restsync.ErrCircuitOpen)
	assert.Len(t, s.seen(), 2, "an open circuit sends nothing")
	assert.Equal(t, "open", tr.State())
}

func TestHTTPTransportRejectsBadLists(t *testing.T) {
	s, tr := newStore(t)
	s.set(0, `{"count":3}`)
	_, err := tr.Pull(context.Background())
	assert.ErrorIs(t, err, restsync.ErrPayload)
}
