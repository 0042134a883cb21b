package pgwire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/pgwire-go/pgwire/codes"
	pgerror "github.com/pgwire-go/pgwire/errors"
	"github.com/pgwire-go/pgwire/internal/mock"
	"github.com/pgwire-go/pgwire/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorResponseIncludesSeverityCodeAndMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	w := mock.NewWriter(t, buf)

	err := pgerror.WithCode(errors.New("boom"), codes.Syntax)
	require.NoError(t, writeErrorResponse(w, err))

	r := mock.NewReader(t, bytes.NewReader(buf.Bytes()))
	tag, _, readErr := r.ReadTypedMsg()
	require.NoError(t, readErr)
	assert.Equal(t, protocol.ClientMessage(protocol.ServerErrorResponse), tag)

	fields := map[byte]string{}
	for {
		b, err := r.GetByte()
		require.NoError(t, err)
		if b == 0 {
			break
		}
		s, err := r.GetString()
		require.NoError(t, err)
		fields[b] = s
	}

	assert.Equal(t, string(codes.Syntax), fields[byte(errFieldSQLState)])
	assert.Equal(t, "boom", fields[byte(errFieldMsgPrimary)])
	assert.NotEmpty(t, fields[byte(errFieldSeverity)])
}

func TestWriteErrorResponseNeverEmitsReadyForQuery(t *testing.T) {
	buf := &bytes.Buffer{}
	w := mock.NewWriter(t, buf)

	err := pgerror.WithCode(errors.New("bad credentials"), codes.InvalidPassword)
	require.NoError(t, writeErrorResponse(w, err))

	r := mock.NewReader(t, bytes.NewReader(buf.Bytes()))
	tag, _, readErr := r.ReadTypedMsg()
	require.NoError(t, readErr)
	assert.Equal(t, protocol.ClientMessage(protocol.ServerErrorResponse), tag)

	_, _, readErr = r.ReadTypedMsg()
	assert.Error(t, readErr)
}

func TestFlattenNilErrorFallsBackToInternal(t *testing.T) {
	desc := pgerror.Flatten(nil)
	assert.Equal(t, codes.Internal, desc.Code)
	assert.Equal(t, pgerror.LevelFatal, desc.Severity)
}
