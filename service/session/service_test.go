package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/jobgate/runtime/job"
)

type fakeControl struct {
	mux     sync.Mutex
	jobs    map[string][]string
	stopped []string
	failOn  string
}

func (f *fakeControl) SessionJobs(_ context.Context, sessionID string) ([]*job.Detail, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	var ret []*job.Detail
	for _, id := range f.jobs[sessionID] {
		ret = append(ret, &job.Detail{ID: id, SessionID: sessionID})
	}
	return ret, nil
}

func (f *fakeControl) Stop(_ context.Context, id string) error {
	f.mux.Lock()
	defer f.mux.Unlock()
	if id == f.failOn {
		return errors.New("stop failed")
	}
	f.stopped = append(f.stopped, id)
	return nil
}

func sequentialIDs() func() string {
	i := 0
	return func() string {
		i++
		return fmt.Sprintf("s%d", i)
	}
}

func TestService_Destroy(t *testing.T) {
	ctx := context.Background()
	control := &fakeControl{jobs: map[string][]string{"s1": {"job1", "job3"}, "s2": {"job2"}}}
	srv := New(control, WithIDGenerator(sequentialIDs()))

	first, err := srv.Create(ctx, "admin")
	require.NoError(t, err)
	second, err := srv.Create(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "s1", first.ID)
	assert.Equal(t, 2, srv.Len())

	got, ok := srv.Get("s1")
	assert.True(t, ok)
	assert.Equal(t, "admin", got.Name)

	require.NoError(t, srv.Destroy(ctx, first.ID))
	assert.Equal(t, []string{"job1", "job3"}, control.stopped)
	_, ok = srv.Get("s1")
	assert.False(t, ok)
	assert.ErrorIs(t, srv.Destroy(ctx, first.ID), ErrNotFound)

	assert.Equal(t, []*Session{second}, srv.List())
}

func TestService_Close(t *testing.T) {
	ctx := context.Background()
	control := &fakeControl{jobs: map[string][]string{"s1": {"job1"}, "s2": {"job2"}}, failOn: "job2"}
	srv := New(control, WithIDGenerator(sequentialIDs()))
	_, _ = srv.Create(ctx, "")
	_, _ = srv.Create(ctx, "")

	err := srv.Close(ctx)
	assert.ErrorContains(t, err, "stop failed")
	assert.Equal(t, []string{"job1"}, control.stopped)
	assert.Equal(t, 0, srv.Len())
	assert.NoError(t, srv.Close(ctx))

	_, err = srv.Create(ctx, "")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestService_DefaultIDs(t *testing.T) {
	srv := New(nil)
	session, err := srv.Create(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, session.ID, 36)
	assert.NoError(t, srv.Destroy(context.Background(), session.ID))
}

func TestService_Within(t *testing.T) {
	ctx := context.Background()
	control := &fakeControl{jobs: map[string][]string{}}
	srv := New(control, WithIDGenerator(sequentialIDs()))
	opened, err := srv.Create(ctx, "")
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = srv.Within(ctx, opened.ID, func() error {
			close(entered)
			<-release
			control.mux.Lock()
			control.jobs[opened.ID] = []string{"job1"}
			control.mux.Unlock()
			return nil
		})
	}()
	<-entered
	destroyed := make(chan error, 1)
	go func() {
		destroyed <- srv.Destroy(ctx, opened.ID)
	}()
	close(release)
	require.NoError(t, <-destroyed)
	assert.Equal(t, []string{"job1"}, control.stopped)

	called := false
	err = srv.Within(ctx, opened.ID, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called)

	require.NoError(t, srv.Close(ctx))
	assert.ErrorIs(t, srv.Within(ctx, opened.ID, func() error { return nil }), ErrClosed)
}
