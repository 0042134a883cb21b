package pgwire

// FormatCode selects the wire encoding of a parameter or result column
// value: text or binary.
type FormatCode int16

const (
	// TextFormat is PostgreSQL's default, human-readable encoding.
	TextFormat FormatCode = 0
	// BinaryFormat is the compact, type-specific binary encoding.
	BinaryFormat FormatCode = 1
)

func (f FormatCode) String() string {
	if f == BinaryFormat {
		return "binary"
	}
	return "text"
}
