package mailbox

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// maxWatchErrors is the number of consecutive receive errors before the
// watcher logs at error level. Individual failures are expected (a busy
// database); sustained failures indicate a real problem.
const maxWatchErrors = 5

// Watch delivers messages for memberID to handler as they arrive, until ctx
// is done. Messages are delivered in creation order unless opts sorts them.
//
// Without opts.Peek every unread message is delivered once, including the
// backlog present when Watch starts, and consumed. With opts.Peek only
// messages stored after Watch starts are delivered and nothing is consumed.
//
// Watch wakes on file changes in the bus's watch directory and falls back to
// polling every poll interval, so writers in other processes are noticed
// either way. It returns nil when ctx is canceled.
func (b *Bus) Watch(ctx context.Context, memberID string, opts ListenOptions, handler func(Message)) error {
	if err := ValidateMemberID(memberID); err != nil {
		return err
	}

	var cursor int64
	if opts.Peek {
		seq, err := b.repo.LastSeq(ctx)
		if err != nil {
			return err
		}
		cursor = seq
	}

	wake, stop := b.wakeups()
	defer stop()

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	log := b.logger.WithMember(memberID)
	consecutiveErrors := 0
	for {
		msgs, err := b.receive(ctx, memberID, opts, cursor)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			consecutiveErrors++
			if consecutiveErrors >= maxWatchErrors {
				log.Error("watch receive failing", "error", err.Error(), "attempts", consecutiveErrors)
				consecutiveErrors = 0
			} else {
				log.Debug("watch receive failed", "error", err.Error())
			}
		default:
			consecutiveErrors = 0
			for _, msg := range msgs {
				handler(msg)
				if msg.Seq > cursor {
					cursor = msg.Seq
				}
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-wake:
		}
	}
}

// wakeups returns a channel signaled when files in the watch directory are
// written. The channel is nil, and never fires, when no directory is set or
// the watcher cannot be created.
func (b *Bus) wakeups() (<-chan struct{}, func()) {
	if b.watchDir == "" {
		return nil, func() {}
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		b.logger.Warn("file watcher unavailable, polling only", "error", err.Error())
		return nil, func() {}
	}
	if err := watcher.Add(b.watchDir); err != nil {
		_ = watcher.Close()
		b.logger.Warn("cannot watch store directory, polling only", "dir", b.watchDir, "error", err.Error())
		return nil, func() {}
	}

	wake := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				b.logger.Debug("file watcher error", "error", err.Error())
			}
		}
	}()

	return wake, func() {
		_ = watcher.Close()
		<-done
	}
}
