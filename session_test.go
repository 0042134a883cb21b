package pgwire

import (
	"bytes"
	"context"
	"testing"

	"github.com/lib/pq/oid"
	"github.com/pgwire-go/pgwire/internal/mock"
	"github.com/pgwire-go/pgwire/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubHandler is a minimal Handler used across session tests. Each field is
// an optional override; a nil field falls back to a no-op default.
type stubHandler struct {
	prepare          func(ctx context.Context, name, sql string, paramTypes []oid.Oid) error
	bind             func(ctx context.Context, stmtName string, values []ParameterValue) (any, error)
	describe         func(ctx context.Context, portalData any) (Columns, error)
	describeStmt     func(ctx context.Context, name string) ([]oid.Oid, Columns, error)
	execute          func(ctx context.Context, portalData any, maxRows int32, columns Columns, writer *ResultWriter) error
	defaultParameters Parameters
}

func (h *stubHandler) Prepare(ctx context.Context, name, sql string, paramTypes []oid.Oid) error {
	if h.prepare != nil {
		return h.prepare(ctx, name, sql, paramTypes)
	}
	return nil
}

func (h *stubHandler) Bind(ctx context.Context, stmtName string, values []ParameterValue) (any, error) {
	if h.bind != nil {
		return h.bind(ctx, stmtName, values)
	}
	return nil, nil
}

func (h *stubHandler) Describe(ctx context.Context, portalData any) (Columns, error) {
	if h.describe != nil {
		return h.describe(ctx, portalData)
	}
	return nil, nil
}

func (h *stubHandler) DescribeStatement(ctx context.Context, name string) ([]oid.Oid, Columns, error) {
	if h.describeStmt != nil {
		return h.describeStmt(ctx, name)
	}
	return nil, nil, nil
}

func (h *stubHandler) Execute(ctx context.Context, portalData any, maxRows int32, columns Columns, writer *ResultWriter) error {
	if h.execute != nil {
		return h.execute(ctx, portalData, maxRows, columns, writer)
	}
	return writer.Empty()
}

func (h *stubHandler) DefaultParameters(ctx context.Context) Parameters {
	return h.defaultParameters
}

func newTestSession(t *testing.T, handler Handler) (*session, *bytes.Buffer) {
	t.Helper()

	buf := &bytes.Buffer{}
	srv := &Server{handler: handler}
	sess := &session{
		server:  srv,
		writer:  mock.NewWriter(t, buf),
		portals: make(map[string]*portal),
	}

	return sess, buf
}

func TestHandleParseEmitsParseComplete(t *testing.T) {
	sess, buf := newTestSession(t, &stubHandler{})
	sess.reader = mock.ParseMessage(t, "", "SELECT 1", nil)

	require.NoError(t, sess.handleParse(context.Background()))

	r := mock.NewReader(t, bytes.NewReader(buf.Bytes()))
	tag, length, err := r.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, protocol.ClientMessage(protocol.ServerParseComplete), tag)
	assert.Equal(t, 4, length)
}

func TestHandleBindEmitsBindComplete(t *testing.T) {
	var gotName string
	handler := &stubHandler{
		bind: func(ctx context.Context, stmtName string, values []ParameterValue) (any, error) {
			gotName = stmtName
			return "portal-state", nil
		},
	}

	sess, buf := newTestSession(t, handler)
	sess.reader = mock.BindMessage(t, "p1", "s1", nil, nil, nil)

	require.NoError(t, sess.handleBind(context.Background()))
	assert.Equal(t, "s1", gotName)

	p, ok := sess.portals["p1"]
	require.True(t, ok)
	assert.Equal(t, "portal-state", p.handlerData)

	r := mock.NewReader(t, bytes.NewReader(buf.Bytes()))
	tag, _, err := r.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, protocol.ClientMessage(protocol.ServerBindComplete), tag)
}

func TestHandleBindNullParameter(t *testing.T) {
	var got ParameterValue
	handler := &stubHandler{
		bind: func(ctx context.Context, stmtName string, values []ParameterValue) (any, error) {
			got = values[0]
			return nil, nil
		},
	}

	sess, _ := newTestSession(t, handler)
	sess.reader = mock.BindMessage(t, "", "", nil, [][]byte{nil}, nil)

	require.NoError(t, sess.handleBind(context.Background()))
	assert.True(t, got.IsNull())
}

func TestHandleBindBinaryParameter(t *testing.T) {
	var got ParameterValue
	handler := &stubHandler{
		bind: func(ctx context.Context, stmtName string, values []ParameterValue) (any, error) {
			got = values[0]
			return nil, nil
		},
	}

	raw := []byte{0x00, 0x00, 0x00, 0x2a}
	sess, _ := newTestSession(t, handler)
	sess.reader = mock.BindMessage(t, "", "", []int16{1}, [][]byte{raw}, nil)

	require.NoError(t, sess.handleBind(context.Background()))
	bin, ok := got.Binary()
	require.True(t, ok)
	assert.Equal(t, raw, bin)
}

func TestDescribePortalUnknownProducesErrorResponseNotPanic(t *testing.T) {
	sess, buf := newTestSession(t, &stubHandler{})
	sess.reader = mock.DescribeMessage(t, protocol.DescribePortal, "missing")

	require.NoError(t, sess.handleDescribe(context.Background()))

	r := mock.NewReader(t, bytes.NewReader(buf.Bytes()))
	tag, _, err := r.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, protocol.ClientMessage(protocol.ServerErrorResponse), tag)
}

func TestExecuteRemovesPortalAndSecondExecuteErrors(t *testing.T) {
	handler := &stubHandler{
		execute: func(ctx context.Context, portalData any, maxRows int32, columns Columns, writer *ResultWriter) error {
			return writer.Empty()
		},
	}

	sess, _ := newTestSession(t, handler)
	sess.portals["p1"] = &portal{handlerData: "state"}

	sess.reader = mock.ExecuteMessage(t, "p1", 0)
	require.NoError(t, sess.handleExecute(context.Background()))

	_, ok := sess.portals["p1"]
	assert.False(t, ok)

	buf := &bytes.Buffer{}
	sess.writer = mock.NewWriter(t, buf)
	sess.reader = mock.ExecuteMessage(t, "p1", 0)
	require.NoError(t, sess.handleExecute(context.Background()))

	r := mock.NewReader(t, bytes.NewReader(buf.Bytes()))
	tag, _, err := r.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, protocol.ClientMessage(protocol.ServerErrorResponse), tag)
}

func TestExecuteProducesDescribedRows(t *testing.T) {
	columns := Columns{{Name: "?column?", Type: oid.T_int4}}
	handler := &stubHandler{
		execute: func(ctx context.Context, portalData any, maxRows int32, columns Columns, writer *ResultWriter) error {
			rw, err := writer.StartWriting(columns)
			if err != nil {
				return err
			}
			if err := rw.WriteRow([]any{int32(1)}); err != nil {
				return err
			}
			return rw.Finish()
		},
	}

	sess, buf := newTestSession(t, handler)
	sess.portals["p1"] = &portal{handlerData: "state", columns: columns}

	sess.reader = mock.ExecuteMessage(t, "p1", 0)
	require.NoError(t, sess.handleExecute(context.Background()))

	r := mock.NewReader(t, bytes.NewReader(buf.Bytes()))
	tag, _, err := r.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, protocol.ClientMessage(protocol.ServerDataRow), tag)

	tag, _, err = r.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, protocol.ClientMessage(protocol.ServerCommandComplete), tag)
}
