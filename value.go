package pgwire

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// typeMap is shared across connections; pgtype.Map's encode/decode plans are
// immutable lookups keyed by OID and are safe for concurrent use once built.
var typeMap = pgtype.NewMap()

// encodeValue renders value as wire bytes for the given column OID and
// format code. A nil return with a nil error means SQL NULL. decimal.Decimal
// values are special-cased since pgx/v5's pgtype does not register a NUMERIC
// codec for shopspring/decimal out of the box.
func encodeValue(columnType uint32, format FormatCode, value any) ([]byte, error) {
	if value == nil {
		return nil, nil
	}

	if d, ok := value.(decimal.Decimal); ok {
		return encodeDecimal(d, format)
	}

	buf, err := typeMap.Encode(columnType, int16(format), value, nil)
	if err != nil {
		return nil, fmt.Errorf("encode column type %d: %w", columnType, err)
	}

	return buf, nil
}

// encodeDecimal renders a decimal.Decimal as NUMERIC text. PostgreSQL's
// binary NUMERIC format is a packed base-10000 representation; since no
// binary codec is wired for decimal.Decimal, a binary-format request falls
// back to the same text rendering, which is interoperable but not wire-exact
// for the binary NUMERIC format.
func encodeDecimal(d decimal.Decimal, _ FormatCode) ([]byte, error) {
	return []byte(d.String()), nil
}
