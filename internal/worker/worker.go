// SPDX-License-Identifier: AGPL-3.0-only
package worker

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fluffyriot/rtsync/internal/config"
	"github.com/fluffyriot/rtsync/internal/logging"
	"github.com/fluffyriot/rtsync/internal/reddit"
)

// postResolver resolves post identifiers against the origin platform.
type postResolver interface {
	Resolve(postID string) (*reddit.PostDetails, bool)
	SavedPostIDs(known map[string]struct{}) ([]string, bool)
}

// postSolver runs one post through extraction and delivery.
type postSolver interface {
	SolvePost(details *reddit.PostDetails) (bool, string)
}

// notifier mirrors outcome messages to the side channel.
type notifier interface {
	Send(webhookURL, message string)
}

// blobStore is the optional cross-restart mirror for state files.
type blobStore interface {
	Upload(ctx context.Context, localPath string) bool
	Download(ctx context.Context, remoteName, localPath string) bool
}

// Worker owns the pending/processed/failed partition and drives posts
// through resolution and delivery one at a time.
type Worker struct {
	cfg    *config.AppConfig
	reddit postResolver
	solver postSolver
	notify notifier
	store  blobStore

	state       *queueState
	runID       uuid.UUID
	lastRefresh time.Time
	log         zerolog.Logger
}

func New(cfg *config.AppConfig, r postResolver, s postSolver, n notifier, store blobStore) (*Worker, error) {
	w := &Worker{
		cfg:    cfg,
		reddit: r,
		solver: s,
		notify: n,
		store:  store,
		state:  newQueueState(cfg.StateDir),
		runID:  uuid.New(),
		log:    logging.Component("worker"),
	}

	if err := w.initStateFiles(); err != nil {
		return nil, err
	}
	if err := w.state.load(); err != nil {
		return nil, err
	}

	w.log.Info().Str("runID", w.runID.String()).
		Int("pending", len(w.state.pending)).
		Int("processed", len(w.state.processed)).
		Int("failed", len(w.state.failed)).
		Msg("State loaded")

	w.refreshPending()
	w.requeueFailed()

	return w, nil
}

// initStateFiles makes sure each list file exists locally, restoring from the
// bucket when a local copy is missing.
func (w *Worker) initStateFiles() error {
	for _, name := range []string{pendingFile, processedFile, failedFile} {
		path := w.state.path(name)
		if _, err := os.Stat(path); err == nil {
			w.log.Info().Str("file", name).Msg("File already exists locally, using local copy")
			continue
		}

		if w.store != nil && w.store.Download(context.Background(), name, path) {
			continue
		}

		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return err
		}
		w.log.Info().Str("file", name).Msg("Created new file successfully")
	}
	return nil
}

// persist rewrites one list file and mirrors it to the bucket.
func (w *Worker) persist(name string, list []string) {
	if !w.state.writeList(name, list) {
		return
	}
	if w.store != nil {
		w.store.Upload(context.Background(), w.state.path(name))
	}
}

// refreshPending enumerates newly saved posts, excluding every identifier the
// worker has ever seen, and prepends them to pending. Pending stays sorted
// descending so the most recent identifiers pop last-in-first-out from the
// tail's perspective of the sort order.
func (w *Worker) refreshPending() {
	w.lastRefresh = time.Now()

	newPosts, ok := w.reddit.SavedPostIDs(w.state.knownIDs())
	if !ok {
		return
	}

	if len(newPosts) > 0 {
		w.state.pending = append(newPosts, w.state.pending...)
		sort.Sort(sort.Reverse(sort.StringSlice(w.state.pending)))
		w.persist(pendingFile, w.state.pending)
		w.log.Info().Int("new", len(newPosts)).Msg("Pending posts updated")
	}
}

// requeueFailed folds the failed list back into pending for another attempt
// and clears it. Runs once at startup.
func (w *Worker) requeueFailed() {
	if len(w.state.failed) == 0 {
		return
	}

	seen := make(map[string]struct{}, len(w.state.pending))
	for _, id := range w.state.pending {
		seen[id] = struct{}{}
	}
	for _, id := range w.state.failed {
		if _, dup := seen[id]; !dup {
			w.state.pending = append(w.state.pending, id)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(w.state.pending)))

	w.log.Info().Int("requeued", len(w.state.failed)).Msg("Failed posts folded back into pending")
	w.state.failed = nil
	w.persist(pendingFile, w.state.pending)
	w.persist(failedFile, w.state.failed)
}

// Next pops the next identifier off the pending tail, persisting the shrunk
// list before handing it out so a crash mid-processing cannot replay the
// post. Returns false when there is nothing to do; the caller decides how
// long to idle.
func (w *Worker) Next() (string, bool) {
	if len(w.state.pending) == 0 {
		w.refreshPending()
	}
	if len(w.state.pending) == 0 {
		return "", false
	}

	last := len(w.state.pending) - 1
	id := w.state.pending[last]
	w.state.pending = w.state.pending[:last]
	w.persist(pendingFile, w.state.pending)
	w.log.Info().Str("postID", id).Msg("Popped post from pending")
	return id, true
}

// Process resolves and delivers one post, records the outcome and notifies
// the matching side channel.
func (w *Worker) Process(id string) {
	w.log.Info().Str("postID", id).Msg("Started solving post")

	solved := false
	kind := "failed"
	if details, ok := w.reddit.Resolve(id); ok {
		solved, kind = w.solver.SolvePost(details)
	}

	if solved {
		w.log.Info().Str("postID", id).Str("kind", kind).Msg("Success solving post")
		w.state.processed = append(w.state.processed, id)
		w.persist(processedFile, w.state.processed)
		w.notify.Send(w.webhookForKind(kind), id)
	} else {
		w.log.Info().Str("postID", id).Msg("Failure solving post")
		w.state.failed = append(w.state.failed, id)
		w.persist(failedFile, w.state.failed)
		w.notify.Send(w.cfg.FailedWebhook, id)
	}

	w.log.Info().Str("postID", id).Msg("Finished solving post")
	if w.store != nil {
		w.store.Upload(context.Background(), w.state.path(eventsLogFile))
	}
}

func (w *Worker) webhookForKind(kind string) string {
	switch kind {
	case "photo":
		return w.cfg.PhotosWebhook
	case "animation":
		return w.cfg.AnimationsWebhook
	case "video":
		return w.cfg.VideosWebhook
	case "audio":
		return w.cfg.AudioWebhook
	case "document":
		return w.cfg.DocumentsWebhook
	case "message":
		return w.cfg.MessagesWebhook
	case "group":
		return w.cfg.GroupWebhook
	default:
		return w.cfg.FailedWebhook
	}
}

// Run drives the loop until the stop channel closes: periodic refresh, pop,
// process, pace. An empty queue sleeps for the idle interval instead of
// spinning against the listing endpoint.
func (w *Worker) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		if time.Since(w.lastRefresh) >= w.cfg.RefreshInterval {
			w.refreshPending()
		}

		id, ok := w.Next()
		if !ok {
			w.log.Info().Dur("sleep", w.cfg.IdleSleep).Msg("No posts to solve, sleeping")
			if !sleepOrStop(stop, w.cfg.IdleSleep) {
				return
			}
			continue
		}

		w.Process(id)
		if !sleepOrStop(stop, w.cfg.SleepBetweenPosts) {
			return
		}
	}
}

func sleepOrStop(stop <-chan struct{}, d time.Duration) bool {
	select {
	case <-stop:
		return false
	case <-time.After(d):
		return true
	}
}
