package jobgate_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/jobgate"
	"github.com/viant/jobgate/model/plan"
	"github.com/viant/jobgate/runtime/job"
	"github.com/viant/jobgate/service/event"
	"github.com/viant/jobgate/service/session"
)

func newRuntime(t *testing.T, options ...jobgate.Option) *jobgate.Runtime {
	t.Helper()
	srv, err := jobgate.New(options...)
	require.NoError(t, err)
	rt := srv.Runtime()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rt.Shutdown(ctx)
	})
	return rt
}

func sleeper(database string) *plan.Plan {
	return plan.New(job.KindQuery, plan.Write(plan.Literal(database)), plan.Sleep(time.Hour))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := jobgate.New(jobgate.WithParallel(0))
	assert.Error(t, err)
	srv, err := jobgate.New(jobgate.WithConfig(nil))
	require.NoError(t, err)
	assert.Equal(t, 8, srv.Config().Parallel)
}

func TestRuntime_Execute(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, jobgate.WithParallel(2))

	value, err := rt.Execute(ctx, "", plan.New(job.KindQuery, plan.Read(plan.Literal("a")), plan.Compute("ok")))
	require.NoError(t, err)
	assert.Equal(t, &plan.Result{Operations: []string{"read:a"}, Value: "ok"}, value)

	_, err = rt.Execute(ctx, "", plan.New(job.KindCommand, plan.Drop(plan.Literal("a")), plan.Fail("no such database")))
	var evalErr *job.EvaluationError
	require.True(t, errors.As(err, &evalErr))
	assert.EqualError(t, evalErr.Cause, "no such database")

	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = rt.Execute(timeoutCtx, "", sleeper("a"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Eventually(t, func() bool {
		return rt.Stats().Stopped == 1
	}, time.Second, 5*time.Millisecond)

	ids, err := rt.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
	stats := rt.Stats()
	assert.Equal(t, 3, stats.Submitted)
	assert.Equal(t, 1, stats.Finished)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 3, stats.Terminated())
}

func TestRuntime_Sessions(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, jobgate.WithParallel(1))

	admin, err := rt.OpenSession(ctx, "admin")
	require.NoError(t, err)
	other, err := rt.OpenSession(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, rt.Sessions(), 2)

	running, err := rt.Submit(ctx, admin.ID, sleeper("x"))
	require.NoError(t, err)
	queued, err := rt.Submit(ctx, admin.ID, sleeper("x"))
	require.NoError(t, err)
	survivor, err := rt.Submit(ctx, other.ID, plan.New(job.KindQuery, plan.Sleep(time.Hour)))
	require.NoError(t, err)

	_, err = rt.Submit(ctx, "unknown", sleeper("y"))
	assert.ErrorIs(t, err, session.ErrNotFound)

	details, err := rt.ListDetails(ctx)
	require.NoError(t, err)
	require.Len(t, details, 3)
	assert.Equal(t, job.StateQueued, details[1].State)

	require.NoError(t, rt.CloseSession(ctx, admin.ID))
	for _, id := range []string{running, queued} {
		_, err = rt.Wait(ctx, id)
		assert.ErrorIs(t, err, job.ErrStopped, id)
	}
	ids, err := rt.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{survivor}, ids)

	require.NoError(t, rt.Shutdown(ctx))
	_, err = rt.Wait(ctx, survivor)
	assert.ErrorIs(t, err, job.ErrStopped)
	_, err = rt.Submit(ctx, "", sleeper("x"))
	assert.Error(t, err)
}

func TestRuntime_Workload(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, jobgate.WithParallel(4))
	URL, err := filepath.Abs("testdata/workload.yaml")
	require.NoError(t, err)
	workload, err := rt.LoadWorkload(ctx, URL)
	require.NoError(t, err)
	require.Len(t, workload.Plans, 3)

	ids := map[string]string{}
	for _, p := range workload.Plans {
		id, err := rt.Submit(ctx, "", p)
		require.NoError(t, err)
		ids[p.Name] = id
	}
	time.Sleep(workload.StopAfter)
	for _, name := range workload.Stop {
		require.NoError(t, rt.Stop(ctx, ids[name]))
	}

	_, err = rt.Wait(ctx, ids["load"])
	require.NoError(t, err)
	value, err := rt.Wait(ctx, ids["report"])
	require.NoError(t, err)
	assert.Equal(t, 42, value.(*plan.Result).Value)
	_, err = rt.Wait(ctx, ids["scan"])
	assert.ErrorIs(t, err, job.ErrStopped)

	decoded, err := rt.DecodeWorkload([]byte("- steps: [{kind: compute, value: 1}]\n"))
	require.NoError(t, err)
	assert.Len(t, decoded.Plans, 1)
}

func TestRuntime_EventsAndMetrics(t *testing.T) {
	ctx := context.Background()
	var mux sync.Mutex
	var types []event.Type
	registry := prometheus.NewRegistry()
	rt := newRuntime(t,
		jobgate.WithParallel(1),
		jobgate.WithMetricsRegisterer(registry),
		jobgate.WithEventListener(func(_ context.Context, e *event.Event[*job.Detail]) error {
			mux.Lock()
			defer mux.Unlock()
			types = append(types, e.Context.EventType)
			return nil
		}))

	_, err := rt.Execute(ctx, "", plan.New(job.KindQuery, plan.Write(plan.Literal("x"))))
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		mux.Lock()
		defer mux.Unlock()
		return len(types) == 3
	}, time.Second, 5*time.Millisecond)
	mux.Lock()
	assert.Equal(t, []event.Type{event.TypeQueued, event.TypeStarted, event.TypeFinished}, types)
	mux.Unlock()

	count, err := testutil.GatherAndCount(registry, "jobgate_jobs_finished_total", "jobgate_admission_wait_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRuntime_Current(t *testing.T) {
	rt := newRuntime(t)
	assert.Equal(t, "", rt.Current(context.Background()))
	assert.ErrorIs(t, rt.Stop(context.Background(), "job100"), job.ErrNotFound)
	_, err := rt.Wait(context.Background(), "job100")
	assert.ErrorIs(t, err, job.ErrNotFound)
}

func TestNew_Tracing(t *testing.T) {
	output := filepath.Join(t.TempDir(), "spans.txt")
	rt := newRuntime(t, jobgate.WithTracing("jobgate-test", "0.0.1", output))
	_, err := rt.Execute(context.Background(), "", plan.New(job.KindQuery, plan.Compute(1)))
	require.NoError(t, err)
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "job.run")
}

func TestRuntime_SubmitRacingCloseSession(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, jobgate.WithParallel(2))
	for i := 0; i < 200; i++ {
		s, err := rt.OpenSession(ctx, "")
		require.NoError(t, err)
		submitted := make(chan string, 1)
		go func() {
			id, err := rt.Submit(ctx, s.ID, plan.New(job.KindQuery, plan.Sleep(time.Hour)))
			if err != nil {
				assert.ErrorIs(t, err, session.ErrNotFound)
			}
			submitted <- id
		}()
		require.NoError(t, rt.CloseSession(ctx, s.ID))
		id := <-submitted
		if id == "" {
			continue
		}
		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err = rt.Wait(waitCtx, id)
		cancel()
		assert.ErrorIs(t, err, job.ErrStopped, id)
	}
	ids, err := rt.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRuntime_SubmitKeepsPlan(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)
	shared := plan.New(job.KindQuery, plan.Read(plan.Literal("a")), plan.Sleep(time.Millisecond), plan.Compute(1))
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := rt.Execute(ctx, "", shared)
			assert.NoError(t, err)
			assert.Equal(t, 1, value.(*plan.Result).Value)
		}()
	}
	wg.Wait()
	assert.Zero(t, shared.Safepoint)
}
