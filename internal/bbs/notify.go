package bbs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"meshbbs/internal/db"
)

// Sender delivers an out-of-band notification to a user's configured
// notification address. Delivery is store-and-forward on the mesh side;
// the BBS only hands messages off.
type Sender interface {
	SendNotification(ctx context.Context, recipient, title, body string) error
}

// Dispatcher fans post and reply notifications out to watchers without
// blocking the command dispatch loop. A failed delivery gets one retry.
type Dispatcher struct {
	store      *db.Store
	sender     Sender
	retryDelay time.Duration
	wg         sync.WaitGroup
}

func NewDispatcher(store *db.Store, sender Sender) *Dispatcher {
	return &Dispatcher{store: store, sender: sender, retryDelay: 5 * time.Second}
}

// Wait blocks until all in-flight notification deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// PostCreated notifies every watcher of the board that has a
// notification address set. Watchers without one are skipped.
func (d *Dispatcher) PostCreated(ctx context.Context, board, topic, content, author string) {
	if d.sender == nil {
		return
	}
	watchers, err := d.store.ListWatchers(ctx, board)
	if err != nil {
		log.Printf("[notify] error listing watchers of board %q: %v", board, err)
		return
	}
	title := fmt.Sprintf("New post in %s", board)
	body := fmt.Sprintf("Author: %s\nTopic: %s\n\n%s", author, topic, content)
	for _, hash := range watchers {
		u, err := d.store.GetUser(ctx, hash)
		if err != nil {
			log.Printf("[notify] error loading watcher %s: %v", hash, err)
			continue
		}
		if u.NotifyAddr == "" {
			log.Printf("[notify] watcher %s has no notification address, skipped", hash)
			continue
		}
		d.deliver(u.NotifyAddr, title, body)
	}
}

// ReplyCreated notifies the author of the parent message. The author is
// resolved by identity hash; messages that predate the hash column fall
// back to a display-name lookup.
func (d *Dispatcher) ReplyCreated(ctx context.Context, parent *db.Message, topic, content, replier string) {
	if d.sender == nil {
		return
	}
	u, err := d.resolveAuthor(ctx, parent)
	if err != nil {
		log.Printf("[notify] no user found for author of message %d, notification skipped", parent.ID)
		return
	}
	if u.NotifyAddr == "" {
		log.Printf("[notify] author of message %d has no notification address, skipped", parent.ID)
		return
	}
	title := fmt.Sprintf("Reply to your post: %s", parent.Topic)
	body := fmt.Sprintf("Replier: %s\nTopic: %s\n\n%s", replier, topic, content)
	d.deliver(u.NotifyAddr, title, body)
}

func (d *Dispatcher) resolveAuthor(ctx context.Context, parent *db.Message) (*db.User, error) {
	if parent.AuthorHash != "" {
		if u, err := d.store.GetUser(ctx, parent.AuthorHash); err == nil {
			return u, nil
		}
	}
	if u, err := d.store.GetUserByName(ctx, parent.Author); err == nil {
		return u, nil
	}
	return nil, errors.New("author not resolvable")
}

func (d *Dispatcher) deliver(recipient, title, body string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx := context.Background()
		err := d.sender.SendNotification(ctx, recipient, title, body)
		if err == nil {
			return
		}
		log.Printf("[notify] delivery to %s failed: %v, retrying once", recipient, err)
		time.Sleep(d.retryDelay)
		if err := d.sender.SendNotification(ctx, recipient, title, body); err != nil {
			log.Printf("[notify] delivery to %s failed again: %v, giving up", recipient, err)
		}
	}()
}
