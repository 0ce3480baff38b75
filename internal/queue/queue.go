// Package queue holds pure helpers for preparing outbound batches: chunking
// recipient metadata to the provider's batch limit and de-duplicating
// queued recipients against already-sent addresses.
package queue

import (
	"fmt"
	"sort"

	"github.com/mhenke/mailjet-bridge/internal/mailjet"
)

// ChunkRecipients splits a recipient metadata map into batches of at most
// limit entries, in address order. The provider caps message entries per
// batch call, so callers chunk before building payloads.
func ChunkRecipients(metadata map[string]mailjet.Recipient, limit int) []map[string]mailjet.Recipient {
	if len(metadata) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 1
	}

	addresses := make([]string, 0, len(metadata))
	for addr := range metadata {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	var chunks []map[string]mailjet.Recipient
	for start := 0; start < len(addresses); start += limit {
		end := start + limit
		if end > len(addresses) {
			end = len(addresses)
		}
		chunk := make(map[string]mailjet.Recipient, end-start)
		for _, addr := range addresses[start:end] {
			chunk[addr] = metadata[addr]
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// DedupeQueued returns a copy of queued (address → display name) where every
// address already present in sent is re-queued under the first free
// "address+N" alias, so a flush never submits the same address twice.
func DedupeQueued(queued map[string]string, sent map[string]struct{}) map[string]string {
	out := make(map[string]string, len(queued))
	for addr, name := range queued {
		if _, dup := sent[addr]; !dup {
			out[addr] = name
			continue
		}
		for i := 1; ; i++ {
			alias := fmt.Sprintf("%s+%d", addr, i)
			if _, taken := sent[alias]; !taken {
				out[alias] = name
				break
			}
		}
	}
	return out
}
