package pgwire

import "fmt"

// negotiateFormats expands a client-supplied format-code list to exactly n
// entries, applying the rule shared by parameter-format negotiation (Bind)
// and result-format negotiation (Describe/Execute): zero codes means every
// entry is TextFormat, one code means every entry shares it, n codes pair
// positionally, and any other count is a protocol error.
func negotiateFormats(n int, codes []FormatCode) ([]FormatCode, error) {
	switch len(codes) {
	case 0:
		out := make([]FormatCode, n)
		for i := range out {
			out[i] = TextFormat
		}
		return out, nil
	case 1:
		out := make([]FormatCode, n)
		for i := range out {
			out[i] = codes[0]
		}
		return out, nil
	case n:
		return codes, nil
	default:
		return nil, fmt.Errorf("%w: expected 0, 1 or %d format codes, got %d", ErrProtocolViolation, n, len(codes))
	}
}
