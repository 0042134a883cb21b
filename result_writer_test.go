package pgwire

import (
	"bytes"
	"testing"

	"github.com/lib/pq/oid"
	"github.com/pgwire-go/pgwire/internal/mock"
	"github.com/pgwire-go/pgwire/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultWriterEmptyEmitsEmptyQueryResponse(t *testing.T) {
	buf := &bytes.Buffer{}
	w := mock.NewWriter(t, buf)
	rw := newResultWriter(w, nil)

	require.NoError(t, rw.Empty())

	r := mock.NewReader(t, bytes.NewReader(buf.Bytes()))
	tag, length, err := r.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, protocol.ClientMessage(protocol.ServerEmptyQuery), tag)
	assert.Equal(t, 4, length)

	assert.ErrorIs(t, rw.Empty(), ErrResultWriterClosed)
}

func TestResultWriterRowRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	w := mock.NewWriter(t, buf)
	rw := newResultWriter(w, nil)

	columns := Columns{{Name: "col1", Type: oid.T_int4}}
	rowWriter, err := rw.StartWriting(columns)
	require.NoError(t, err)

	require.NoError(t, rowWriter.WriteRow([]any{int32(42)}))
	require.NoError(t, rowWriter.WriteRow([]any{nil}))
	require.NoError(t, rowWriter.Finish())

	r := mock.NewReader(t, bytes.NewReader(buf.Bytes()))

	tag, _, err := r.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, protocol.ClientMessage(protocol.ServerDataRow), tag)
	n, err := r.GetUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(1), n)
	length, err := r.GetInt32()
	require.NoError(t, err)
	value, err := r.GetBytes(int(length))
	require.NoError(t, err)
	assert.Equal(t, "42", string(value))

	tag, _, err = r.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, protocol.ClientMessage(protocol.ServerDataRow), tag)
	_, err = r.GetUint16()
	require.NoError(t, err)
	length, err = r.GetInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), length)

	tag, _, err = r.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, protocol.ClientMessage(protocol.ServerCommandComplete), tag)
	tagText, err := r.GetString()
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", tagText)
}

func TestResultWriterClosedAfterStartWriting(t *testing.T) {
	buf := &bytes.Buffer{}
	w := mock.NewWriter(t, buf)
	rw := newResultWriter(w, nil)

	_, err := rw.StartWriting(Columns{{Name: "c", Type: oid.T_int4}})
	require.NoError(t, err)

	_, err = rw.StartWriting(Columns{{Name: "c", Type: oid.T_int4}})
	assert.ErrorIs(t, err, ErrResultWriterClosed)

	err = rw.Empty()
	assert.ErrorIs(t, err, ErrResultWriterClosed)
}
