// Package janitor models best-effort cleanup (old media pairs, cascaded
// post deletion, follow-edge pruning) as explicit task submissions on a
// queue. A failed cleanup is logged and dropped; it never propagates to
// the request that scheduled it.
package janitor

import (
	"context"
	"encoding/json"
	"log"

	"github.com/mural-social/apiserver/internal/mq"
)

// TaskChannel is the queue channel cleanup tasks travel on.
const TaskChannel = "cleanup"

// Task kinds.
const (
	KindDeleteBlobs    = "delete_blobs"
	KindDeletePosts    = "delete_posts"
	KindPruneFollowers = "prune_followers"
)

// Task is one unit of cleanup work.
type Task struct {
	Kind     string   `json:"kind"`
	Keys     []string `json:"keys,omitempty"`
	PostIDs  []int64  `json:"post_ids,omitempty"`
	TargetID int      `json:"target_id,omitempty"`
}

// Publisher submits cleanup tasks. Submission failures are logged, never
// returned: the caller's request must not depend on cleanup.
type Publisher struct {
	queue *mq.MQ
}

func NewPublisher(queue *mq.MQ) *Publisher {
	return &Publisher{queue: queue}
}

// DeleteBlobs schedules deletion of the given object keys.
func (p *Publisher) DeleteBlobs(ctx context.Context, keys ...string) {
	p.submit(ctx, Task{Kind: KindDeleteBlobs, Keys: keys})
}

// DeletePosts schedules deletion of the given posts.
func (p *Publisher) DeletePosts(ctx context.Context, ids ...int64) {
	p.submit(ctx, Task{Kind: KindDeletePosts, PostIDs: ids})
}

// PruneFollowers schedules removal of follow edges pointing at a removed
// account.
func (p *Publisher) PruneFollowers(ctx context.Context, targetID int) {
	p.submit(ctx, Task{Kind: KindPruneFollowers, TargetID: targetID})
}

func (p *Publisher) submit(ctx context.Context, task Task) {
	data, err := json.Marshal(task)
	if err != nil {
		log.Printf("janitor: encode %s task: %v", task.Kind, err)
		return
	}
	if _, err := p.queue.Publish(ctx, TaskChannel, data, nil); err != nil {
		log.Printf("janitor: submit %s task: %v", task.Kind, err)
	}
}

// PostDeleter deletes a single post.
type PostDeleter interface {
	Delete(ctx context.Context, id int64) error
}

// FollowPruner removes every follow edge pointing at a target account.
type FollowPruner interface {
	RemoveTarget(ctx context.Context, targetID int) error
}

// BlobDeleter removes a stored object, tolerating absence.
type BlobDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Worker consumes cleanup tasks. Every task is acked regardless of
// outcome: cleanup failures are observed in the log, not retried into
// user-visible errors.
type Worker struct {
	queue   *mq.MQ
	blobs   BlobDeleter
	posts   PostDeleter
	follows FollowPruner
}

func NewWorker(queue *mq.MQ, blobs BlobDeleter, posts PostDeleter, follows FollowPruner) *Worker {
	return &Worker{
		queue:   queue,
		blobs:   blobs,
		posts:   posts,
		follows: follows,
	}
}

// Run subscribes to the task channel and blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	return w.queue.Subscribe(ctx, TaskChannel, w.handle)
}

func (w *Worker) handle(ctx context.Context, msg mq.Message) error {
	var task Task
	if err := json.Unmarshal(msg.Data, &task); err != nil {
		log.Printf("janitor: decode task %s: %v", msg.ID, err)
		return nil
	}

	switch task.Kind {
	case KindDeleteBlobs:
		for _, key := range task.Keys {
			if err := w.blobs.Delete(ctx, key); err != nil {
				log.Printf("janitor: delete blob %s: %v", key, err)
			}
		}
	case KindDeletePosts:
		for _, id := range task.PostIDs {
			if err := w.posts.Delete(ctx, id); err != nil {
				log.Printf("janitor: delete post %d: %v", id, err)
			}
		}
	case KindPruneFollowers:
		if err := w.follows.RemoveTarget(ctx, task.TargetID); err != nil {
			log.Printf("janitor: prune followers of %d: %v", task.TargetID, err)
		}
	default:
		log.Printf("janitor: unknown task kind %q", task.Kind)
	}
	return nil
}
