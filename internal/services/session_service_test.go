package services

import (
	"context"
	"testing"
	"time"

	"github.com/sentinela-app/sentinela/internal/models"
	"github.com/sentinela-app/sentinela/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionSvc(env *testEnv) SessionService {
	return NewSessionService(env.sessions, env.device, env.audit)
}

func TestStartWithDuration(t *testing.T) {
	env := newTestEnv()
	svc := newSessionSvc(env)

	sess, err := svc.Start(context.Background(), "u1", "dev-1", "panic_button", 30)
	require.NoError(t, err)

	assert.Equal(t, models.SessionStatusActive, sess.Status)
	assert.Equal(t, "panic_button", sess.Origin)
	require.NotNil(t, sess.WindowEndAt)
	assert.WithinDuration(t, sess.WindowStartAt.Add(30*time.Minute), *sess.WindowEndAt, time.Second)

	assert.Equal(t, []string{"u1"}, env.device.marked)
	_, ok := env.audit.find(models.AuditSessionStarted)
	assert.True(t, ok)
}

func TestStartOpenEnded(t *testing.T) {
	env := newTestEnv()
	svc := newSessionSvc(env)

	sess, err := svc.Start(context.Background(), "u1", "dev-1", "", 0)
	require.NoError(t, err)
	assert.Nil(t, sess.WindowEndAt)
	assert.Equal(t, "app", sess.Origin)
}

func TestStartValidation(t *testing.T) {
	env := newTestEnv()
	svc := newSessionSvc(env)

	_, err := svc.Start(context.Background(), "", "dev-1", "", 0)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = svc.Start(context.Background(), "u1", "", "", 0)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestRequestStopSealsActiveSession(t *testing.T) {
	env := newTestEnv()
	svc := newSessionSvc(env)

	started, err := svc.Start(context.Background(), "u1", "dev-1", "", 0)
	require.NoError(t, err)

	stopped, err := svc.RequestStop(context.Background(), started.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusAwaiting, stopped.Status)
	assert.Equal(t, models.SealReasonUserStop, stopped.SealedReason)
	require.NotNil(t, stopped.ClosedAt)

	assert.Contains(t, env.device.resets, "u1")
	_, ok := env.audit.find(models.AuditSessionStopRequested)
	assert.True(t, ok)
}

func TestRequestStopConflictsWhenNotActive(t *testing.T) {
	env := newTestEnv()
	svc := newSessionSvc(env)

	sess := env.awaitingSession("s1", "u1")

	_, err := svc.RequestStop(context.Background(), sess.ID)
	assert.True(t, utils.IsCode(err, utils.CodeConflict))

	_, err = svc.RequestStop(context.Background(), "missing")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}
