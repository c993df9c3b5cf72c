package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
	"github.com/ZhanWeiKai/eatwhat/internal/core/services"
)

type fakeUserRepo struct {
	users map[string]*domain.User
}

func (r *fakeUserRepo) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, u *domain.User) error {
	r.users[u.UserID] = u
	return nil
}

func (r *fakeUserRepo) SetOnlineStatus(ctx context.Context, userID string, online bool) error {
	return nil
}

type fakeFriendRepo struct {
	followed  map[string][]string
	followers map[string][]string
}

func (r *fakeFriendRepo) CreateFriendship(ctx context.Context, f *domain.Friendship) error {
	r.followed[f.UserID] = append(r.followed[f.UserID], f.FriendID)
	r.followers[f.FriendID] = append(r.followers[f.FriendID], f.UserID)
	return nil
}

func (r *fakeFriendRepo) DeleteFriendship(ctx context.Context, userID, friendID string) error {
	return nil
}

func (r *fakeFriendRepo) FollowedBy(ctx context.Context, userID string) ([]string, error) {
	return r.followed[userID], nil
}

func (r *fakeFriendRepo) Followers(ctx context.Context, userID string) ([]string, error) {
	return r.followers[userID], nil
}

type fakePushRepo struct {
	saved []*domain.Push
}

func (r *fakePushRepo) SavePush(ctx context.Context, p *domain.Push) error {
	r.saved = append(r.saved, p)
	return nil
}

func (r *fakePushRepo) GetPushByID(ctx context.Context, pushID string) (*domain.Push, error) {
	for _, p := range r.saved {
		if p.PushID == pushID {
			return p, nil
		}
	}
	return nil, domain.ErrPushNotFound
}

func (r *fakePushRepo) ListPushesByPushers(ctx context.Context, pusherIDs []string) ([]domain.Push, error) {
	var out []domain.Push
	for _, p := range r.saved {
		for _, id := range pusherIDs {
			if p.PusherID == id {
				out = append(out, *p)
				break
			}
		}
	}
	return out, nil
}

func (r *fakePushRepo) DeletePush(ctx context.Context, pushID string) error {
	for i, p := range r.saved {
		if p.PushID == pushID {
			r.saved = append(r.saved[:i], r.saved[i+1:]...)
			return nil
		}
	}
	return domain.ErrPushNotFound
}

type fakeBroker struct {
	published map[string][][]byte
	failFor   map[string]bool
}

func (b *fakeBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	if b.failFor[topic] {
		return errors.New("connection gone")
	}
	if b.published == nil {
		b.published = make(map[string][][]byte)
	}
	b.published[topic] = append(b.published[topic], payload)
	return nil
}

func (b *fakeBroker) Size() int { return 0 }

type fakeQueue struct {
	jobs    [][]byte
	failing bool
}

func (q *fakeQueue) PublishJob(ctx context.Context, payload []byte) error {
	if q.failing {
		return errors.New("stream unavailable")
	}
	q.jobs = append(q.jobs, payload)
	return nil
}

func (q *fakeQueue) SubscribeJobs(ctx context.Context, group string, handler func(ctx context.Context, jobID string, raw []byte) error) error {
	return nil
}

func (q *fakeQueue) AcknowledgeJob(ctx context.Context, group, jobID string) error { return nil }
func (q *fakeQueue) DeleteJob(ctx context.Context, jobID string) error             { return nil }

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakePresence struct{ online map[string]bool }

func (p *fakePresence) SetOnline(ctx context.Context, userID string, ttl time.Duration) error {
	return nil
}
func (p *fakePresence) SetOffline(ctx context.Context, userID string) error { return nil }
func (p *fakePresence) IsOnline(ctx context.Context, userID string) (bool, error) {
	return p.online[userID], nil
}
func (p *fakePresence) OnlineOf(ctx context.Context, userIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		out[id] = p.online[id]
	}
	return out, nil
}

type pushFixture struct {
	svc     *services.PushService
	friends *services.FriendService
	users   *fakeUserRepo
	repo    *fakePushRepo
	broker  *fakeBroker
	queue   *fakeQueue
}

func newPushFixture() *pushFixture {
	log := slog.Default()
	users := &fakeUserRepo{users: map[string]*domain.User{
		"p": {UserID: "p", Nickname: "Pusher", Avatar: "p.png"},
		"a": {UserID: "a", Nickname: "Alice"},
		"b": {UserID: "b", Nickname: "Bob"},
		"c": {UserID: "c", Nickname: "Carol"},
	}}
	// p follows a and b; c follows p. All three are p's friends.
	friendRepo := &fakeFriendRepo{
		followed:  map[string][]string{"p": {"a", "b"}},
		followers: map[string][]string{"p": {"c"}, "a": {"p"}, "b": {"p"}},
	}
	broker := &fakeBroker{}
	queue := &fakeQueue{}
	repo := &fakePushRepo{}
	friends := services.NewFriendService(log, friendRepo, users, &fakePresence{online: map[string]bool{}})
	svc := services.NewPushService(log, repo, users, friends, queue, broker, passthroughTx{})
	return &pushFixture{svc: svc, friends: friends, users: users, repo: repo, broker: broker, queue: queue}
}

func TestCreatePush(t *testing.T) {
	t.Run("computes the total server-side and enqueues delivery", func(t *testing.T) {
		fx := newPushFixture()
		dishes := []domain.DishItem{
			{DishID: "d1", Name: "面", Price: 12.5, Quantity: 2},
			{DishID: "d2", Name: "饭", Price: 8, Quantity: 1},
		}

		push, err := fx.svc.CreatePush(context.Background(), "p", dishes)
		require.NoError(t, err)
		assert.NotEmpty(t, push.PushID)
		assert.Equal(t, "Pusher", push.PusherName)
		assert.InDelta(t, 33.0, push.TotalAmount, 1e-9)
		require.Len(t, fx.repo.saved, 1)

		require.Len(t, fx.queue.jobs, 1)
		var job domain.FanoutJob
		require.NoError(t, json.Unmarshal(fx.queue.jobs[0], &job))
		assert.Equal(t, push.PushID, job.Push.PushID)
		assert.ElementsMatch(t, []string{"a", "b", "c"}, job.Recipients)
	})

	t.Run("rejects an empty dish list", func(t *testing.T) {
		fx := newPushFixture()
		_, err := fx.svc.CreatePush(context.Background(), "p", nil)
		assert.ErrorIs(t, err, domain.ErrEmptyPush)
		assert.Empty(t, fx.repo.saved)
	})

	t.Run("falls back to inline fan-out when the queue is down", func(t *testing.T) {
		fx := newPushFixture()
		fx.queue.failing = true

		push, err := fx.svc.CreatePush(context.Background(), "p", []domain.DishItem{{DishID: "d1", Price: 10, Quantity: 1}})
		require.NoError(t, err)

		// Delivered directly instead of via the queue.
		for _, friend := range []string{"a", "b", "c"} {
			require.Len(t, fx.broker.published[domain.UserTopic(friend)], 1, "friend %s", friend)
		}
		assert.Empty(t, fx.broker.published[domain.UserTopic("p")])
		_ = push
	})
}

func TestFanout(t *testing.T) {
	t.Run("publishes to every recipient except the pusher", func(t *testing.T) {
		fx := newPushFixture()
		job := domain.FanoutJob{
			Push:       domain.Push{PushID: "p1", PusherID: "p"},
			Recipients: []string{"a", "b", "c", "p"},
		}

		succeeded := fx.svc.Fanout(context.Background(), job)
		assert.Equal(t, 3, succeeded)
		assert.Empty(t, fx.broker.published[domain.UserTopic("p")])

		var relayed domain.Push
		require.NoError(t, json.Unmarshal(fx.broker.published[domain.UserTopic("a")][0], &relayed))
		assert.Equal(t, "p1", relayed.PushID)
	})

	t.Run("one failed recipient never aborts the batch", func(t *testing.T) {
		fx := newPushFixture()
		fx.broker.failFor = map[string]bool{domain.UserTopic("b"): true}
		job := domain.FanoutJob{
			Push:       domain.Push{PushID: "p1", PusherID: "p"},
			Recipients: []string{"a", "b", "c"},
		}

		succeeded := fx.svc.Fanout(context.Background(), job)
		assert.Equal(t, 2, succeeded)
		require.Len(t, fx.broker.published[domain.UserTopic("a")], 1)
		require.Len(t, fx.broker.published[domain.UserTopic("c")], 1)
	})
}

func TestDeletePush(t *testing.T) {
	t.Run("only the pusher may delete", func(t *testing.T) {
		fx := newPushFixture()
		push, err := fx.svc.CreatePush(context.Background(), "p", []domain.DishItem{{DishID: "d1", Price: 10, Quantity: 1}})
		require.NoError(t, err)

		assert.ErrorIs(t, fx.svc.DeletePush(context.Background(), push.PushID, "a"), domain.ErrNotPushOwner)
		assert.NoError(t, fx.svc.DeletePush(context.Background(), push.PushID, "p"))
		assert.ErrorIs(t, fx.svc.DeletePush(context.Background(), push.PushID, "p"), domain.ErrPushNotFound)
	})
}
