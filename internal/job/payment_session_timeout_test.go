package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubExpirer struct {
	n     int
	err   error
	calls int
	limit int
}

func (s *stubExpirer) ExpireSessions(ctx context.Context, limit int) (int, error) {
	s.calls++
	s.limit = limit
	return s.n, s.err
}

func TestPaymentSessionTimeoutJob_ExpireSessions(t *testing.T) {
	expirer := &stubExpirer{n: 2}
	job := NewPaymentSessionTimeoutJob(expirer, time.Second)

	assert.Equal(t, 2, job.expireSessions(context.Background()))
	assert.Equal(t, 100, expirer.limit)

	expirer.err = errors.New("db down")
	assert.Equal(t, 0, job.expireSessions(context.Background()))
	assert.Equal(t, 2, expirer.calls)
}

func TestPaymentSessionTimeoutJob_StartStop(t *testing.T) {
	expirer := &stubExpirer{}
	job := NewPaymentSessionTimeoutJob(expirer, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		job.Start(context.Background())
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	job.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop")
	}
}
