// SPDX-License-Identifier: AGPL-3.0-only
package worker

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fluffyriot/rtsync/internal/logging"
)

const (
	pendingFile   = "pending_posts.txt"
	processedFile = "processed_posts.txt"
	failedFile    = "failed_posts.txt"
	eventsLogFile = "events.log"
)

// queueState holds the three disjoint identifier lists. Pending is kept
// sorted descending and consumed from the tail, so the lowest-sorted entry
// pops first. Every mutation rewrites the whole backing file.
type queueState struct {
	dir       string
	pending   []string
	processed []string
	failed    []string
	log       zerolog.Logger
}

func newQueueState(dir string) *queueState {
	return &queueState{
		dir: dir,
		log: logging.Component("worker"),
	}
}

func (st *queueState) path(name string) string {
	return filepath.Join(st.dir, name)
}

func (st *queueState) load() error {
	var err error
	if st.pending, err = readList(st.path(pendingFile)); err != nil {
		return err
	}
	if st.processed, err = readList(st.path(processedFile)); err != nil {
		return err
	}
	if st.failed, err = readList(st.path(failedFile)); err != nil {
		return err
	}
	return nil
}

// knownIDs is the union of all three lists, the exclusion set for the
// saved-posts refresh.
func (st *queueState) knownIDs() map[string]struct{} {
	known := make(map[string]struct{}, len(st.pending)+len(st.processed)+len(st.failed))
	for _, id := range st.pending {
		known[id] = struct{}{}
	}
	for _, id := range st.processed {
		known[id] = struct{}{}
	}
	for _, id := range st.failed {
		known[id] = struct{}{}
	}
	return known
}

// writeList rewrites one list file in full. A write failure is logged and
// reported but never halts the worker; the in-memory list stays
// authoritative until the next successful rewrite.
func (st *queueState) writeList(name string, list []string) bool {
	if err := os.WriteFile(st.path(name), []byte(strings.Join(list, "\n")), 0o644); err != nil {
		st.log.Error().Err(err).Str("file", name).Msg("Failed to persist list")
		return false
	}
	return true
}

func readList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var list []string
	for _, line := range strings.Split(string(data), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list, nil
}
