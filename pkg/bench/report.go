package bench

import (
	"github.com/fxamacker/cbor/v2"
)

// reportEntry is the CBOR-serializable shape of one ModeResult, used for
// the machine-readable benchmark artifact a production-floor harness can
// archive or pipe to another process.
type reportEntry struct {
	Mode        string `cbor:"mode"`
	BytesRead   int    `cbor:"bytes_read"`
	ElapsedMs   int64  `cbor:"elapsed_ms"`
	Verified    bool   `cbor:"verified"`
	Error       string `cbor:"error,omitempty"`
}

// EncodeReport renders benchmark results as CBOR, following the
// teacher's use of github.com/fxamacker/cbor/v2 for compact wire
// encoding of structured messages.
func EncodeReport(results []ModeResult) ([]byte, error) {
	entries := make([]reportEntry, len(results))
	for i, r := range results {
		entry := reportEntry{
			Mode:      r.Spec.Name,
			BytesRead: r.BytesRead,
			ElapsedMs: r.Elapsed.Milliseconds(),
			Verified:  r.Verified,
		}
		if r.Err != nil {
			entry.Error = r.Err.Error()
		}
		entries[i] = entry
	}
	return cbor.Marshal(entries)
}
