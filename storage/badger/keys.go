package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/linkrank/core"
)

// Key prefixes for different data types
const (
	turnPrefix      = "trn"
	turnDatePrefix  = "trnd"
	turnIDSeq       = "trnseq"
	embeddingPrefix = "emb"
)

// makeTurnKey generates a key for a turn by ID.
func makeTurnKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", turnPrefix, id))
}

// makeTurnDateKey generates a composite key for the date index.
// Format: prefix:timestamp:id
func makeTurnDateKey(timestamp time.Time, id core.ID) []byte {
	prefixBytes := []byte(turnDatePrefix + ":")
	buf := make([]byte, len(prefixBytes)+16) // 8 bytes for timestamp + 8 bytes for ID
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialTurnDateKey generates a partial key for date range queries.
// Format: prefix:timestamp
func makePartialTurnDateKey(timestamp time.Time) []byte {
	prefixBytes := []byte(turnDatePrefix + ":")
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeEmbeddingKey generates a key for a cached embedding by content ID.
func makeEmbeddingKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", embeddingPrefix, id))
}
