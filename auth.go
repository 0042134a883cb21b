package pgwire

import (
	"context"
	"errors"

	"github.com/pgwire-go/pgwire/codes"
	pgerror "github.com/pgwire-go/pgwire/errors"
	"github.com/pgwire-go/pgwire/internal/buffer"
	"github.com/pgwire-go/pgwire/internal/protocol"
)

// authType identifies the authentication method announced in an
// AuthenticationRequest message.
type authType int32

const (
	authOK                authType = 0
	authClearTextPassword authType = 3
)

// PasswordValidator validates a cleartext password received during startup.
// A false return (with a nil error) rejects the connection with an
// invalid_password error; a non-nil error aborts the connection outright.
type PasswordValidator func(ctx context.Context, username, password string) (bool, error)

// authenticate always runs the cleartext-password handshake: it announces
// AuthenticationCleartextPassword and reads the client's PasswordMessage
// unconditionally. Only the validation of that password is gated on whether
// a PasswordValidator is configured; with none configured, the password is
// read and discarded and the connection is accepted unconditionally, per the
// stubbed-authentication behavior documented for this implementation.
func (s *session) authenticate(ctx context.Context, username string) error {
	if err := writeAuthType(s.writer, authClearTextPassword); err != nil {
		return err
	}

	tag, _, err := s.reader.ReadTypedMsg()
	if err != nil {
		return err
	}

	if tag != protocol.ClientPassword {
		return errors.New("expected a password message")
	}

	password, err := s.reader.GetString()
	if err != nil {
		return err
	}

	if s.server.passwordValidator != nil {
		valid, err := s.server.passwordValidator(ctx, username, password)
		if err != nil {
			return err
		}

		if !valid {
			return pgerror.WithCode(errors.New("invalid username or password"), codes.InvalidPassword)
		}
	}

	return writeAuthType(s.writer, authOK)
}

// writeAuthType emits an AuthenticationRequest message announcing status.
func writeAuthType(w *buffer.Writer, status authType) error {
	w.Start(protocol.ServerAuth)
	w.AddInt32(int32(status))
	return w.End()
}
