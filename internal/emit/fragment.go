package emit

// StreamFormat describes the byte stream between two pipeline stages.
type StreamFormat string

const (
	// StreamRaw is unparsed lines.
	StreamRaw StreamFormat = "raw"

	// StreamCSV is delimiter-separated records whose first line may be a
	// header.
	StreamCSV StreamFormat = "csv"

	// StreamTSV is tab-separated records with a known positional layout.
	StreamTSV StreamFormat = "tsv"

	// StreamNDJSON is one compact json object per line.
	StreamNDJSON StreamFormat = "ndjson"
)

// Fragment is a partial shell command produced by one emitter. The
// assembler composes fragments only when the output format of one matches
// the input format of the next, inserting a conversion fragment otherwise.
type Fragment struct {
	Cmd string
	In  StreamFormat
	Out StreamFormat
}
