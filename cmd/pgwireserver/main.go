// Command pgwireserver runs a minimal PostgreSQL wire-protocol server backed
// by a fixed, in-memory table, useful for exercising the protocol by hand
// with psql or any other PostgreSQL client.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/lib/pq/oid"
	"github.com/pgwire-go/pgwire"
)

func main() {
	address := "127.0.0.1:5432"
	if len(os.Args) > 1 {
		address = os.Args[1]
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log.Printf("PostgreSQL server is up and running at [%s]", address)
	err := pgwire.ListenAndServe(address, &memberHandler{}, pgwire.Logger(logger), pgwire.Version("15.1"))
	if err != nil {
		log.Fatal(err)
	}
}

var memberColumns = pgwire.Columns{
	{Name: "name", Type: oid.T_text},
	{Name: "member", Type: oid.T_bool},
	{Name: "age", Type: oid.T_int4},
}

var memberRows = [][]any{
	{"John", true, int32(29)},
	{"Marry", false, int32(21)},
}

// memberHandler answers every prepared statement with the same fixed table,
// regardless of the SQL text it was given; it exists to demonstrate the
// wire protocol end to end, not to parse or execute SQL.
type memberHandler struct{}

func (h *memberHandler) Prepare(ctx context.Context, name, sql string, paramTypes []oid.Oid) error {
	return nil
}

func (h *memberHandler) Bind(ctx context.Context, stmtName string, parameterValues []pgwire.ParameterValue) (any, error) {
	return nil, nil
}

func (h *memberHandler) Describe(ctx context.Context, portalData any) (pgwire.Columns, error) {
	return memberColumns, nil
}

func (h *memberHandler) DescribeStatement(ctx context.Context, name string) ([]oid.Oid, pgwire.Columns, error) {
	return nil, memberColumns, nil
}

func (h *memberHandler) Execute(ctx context.Context, portalData any, maxRows int32, columns pgwire.Columns, writer *pgwire.ResultWriter) error {
	if columns == nil {
		columns = memberColumns
		if err := writer.WriteRowDescription(columns); err != nil {
			return err
		}
	}

	rows, err := writer.StartWriting(columns)
	if err != nil {
		return err
	}

	for _, row := range memberRows {
		if err := rows.WriteRow(row); err != nil {
			return err
		}
	}

	return rows.Finish()
}

func (h *memberHandler) DefaultParameters(ctx context.Context) pgwire.Parameters {
	return pgwire.Parameters{
		"server_version":    "15.1",
		"server_encoding":   "UTF8",
		"client_encoding":   "UTF8",
		"DateStyle":         "ISO, MDY",
		"integer_datetimes": "on",
		"is_superuser":      "off",
	}
}
