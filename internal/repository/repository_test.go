package repository_test

import (
	"context"
	"testing"
	"time"

	"tasks-api/internal/models"
	"tasks-api/internal/repository"
	"tasks-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	store *repository.Store
	ctx   context.Context

	// newStore returns an empty store; nil means in-memory sqlite.
	newStore func(t *testing.T) *repository.Store
}

func (s *StoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	if s.newStore != nil {
		s.store = s.newStore(s.T())
		return
	}
	_, s.store = testutil.NewSQLiteStore(s.T())
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) TestInsertAndGetUser() {
	u := &models.User{Fullname: "Alice A", Username: "alice", PasswordHash: "hash", Active: true}
	require.NoError(s.T(), s.store.InsertUser(s.ctx, u))
	assert.Positive(s.T(), u.ID)

	got, err := s.store.GetUserByUsername(s.ctx, "alice")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), u.ID, got.ID)
	assert.Equal(s.T(), "Alice A", got.Fullname)
	assert.True(s.T(), got.Active)
	assert.Zero(s.T(), got.LoginAttempts)

	_, err = s.store.GetUserByUsername(s.ctx, "bob")
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
}

func (s *StoreTestSuite) TestInsertUserDuplicate() {
	require.NoError(s.T(), s.store.InsertUser(s.ctx, &models.User{Fullname: "A", Username: "dup", PasswordHash: "h", Active: true}))
	err := s.store.InsertUser(s.ctx, &models.User{Fullname: "B", Username: "dup", PasswordHash: "h", Active: true})
	assert.ErrorIs(s.T(), err, repository.ErrDuplicate)
}

func (s *StoreTestSuite) TestLoginAttemptCounter() {
	u := testutil.CreateUser(s.T(), s.store, "carol", "pw")
	require.NoError(s.T(), s.store.IncrementLoginAttempts(s.ctx, u.ID))
	require.NoError(s.T(), s.store.IncrementLoginAttempts(s.ctx, u.ID))

	got, err := s.store.GetUserByUsername(s.ctx, "carol")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, got.LoginAttempts)

	require.NoError(s.T(), s.store.UnlockUser(s.ctx, "carol"))
	got, err = s.store.GetUserByUsername(s.ctx, "carol")
	require.NoError(s.T(), err)
	assert.Zero(s.T(), got.LoginAttempts)

	assert.ErrorIs(s.T(), s.store.UnlockUser(s.ctx, "nobody"), repository.ErrNotFound)
}

func (s *StoreTestSuite) TestSetUserActive() {
	testutil.CreateUser(s.T(), s.store, "dave", "pw")
	require.NoError(s.T(), s.store.SetUserActive(s.ctx, "dave", false))

	got, err := s.store.GetUserByUsername(s.ctx, "dave")
	require.NoError(s.T(), err)
	assert.False(s.T(), got.Active)
}

func (s *StoreTestSuite) TestSessionLifecycle() {
	u := testutil.CreateUser(s.T(), s.store, "erin", "pw")
	now := time.Now().UTC().Truncate(time.Second)

	sess := &models.Session{
		UserID:             u.ID,
		AccessToken:        "access-digest",
		AccessTokenExpiry:  now.Add(20 * time.Minute),
		RefreshToken:       "refresh-digest",
		RefreshTokenExpiry: now.Add(14 * 24 * time.Hour),
	}
	require.NoError(s.T(), s.store.InsertSession(s.ctx, sess))
	assert.Positive(s.T(), sess.ID)

	got, err := s.store.GetSessionByAccessToken(s.ctx, "access-digest")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), sess.ID, got.Session.ID)
	assert.Equal(s.T(), "erin", got.User.Username)
	assert.True(s.T(), got.Session.AccessTokenExpiry.Equal(sess.AccessTokenExpiry))

	removed, err := s.store.DeleteSession(s.ctx, sess.ID, "wrong")
	require.NoError(s.T(), err)
	assert.False(s.T(), removed)

	removed, err = s.store.DeleteSession(s.ctx, sess.ID, "access-digest")
	require.NoError(s.T(), err)
	assert.True(s.T(), removed)

	removed, err = s.store.DeleteSession(s.ctx, sess.ID, "access-digest")
	require.NoError(s.T(), err)
	assert.False(s.T(), removed)
}

func (s *StoreTestSuite) TestRotateSessionCompareAndSwap() {
	u := testutil.CreateUser(s.T(), s.store, "frank", "pw")
	now := time.Now().UTC()
	old := models.Session{UserID: u.ID, AccessToken: "a1", AccessTokenExpiry: now, RefreshToken: "r1", RefreshTokenExpiry: now.Add(time.Hour)}
	require.NoError(s.T(), s.store.InsertSession(s.ctx, &old))

	next := models.Session{AccessToken: "a2", AccessTokenExpiry: now.Add(time.Hour), RefreshToken: "r2", RefreshTokenExpiry: now.Add(2 * time.Hour)}
	ok, err := s.store.RotateSession(s.ctx, old, next)
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)

	ok, err = s.store.RotateSession(s.ctx, old, next)
	require.NoError(s.T(), err)
	assert.False(s.T(), ok, "stale tokens must not rotate twice")

	got, err := s.store.GetSessionForRefresh(s.ctx, old.ID, "a2", "r2")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), u.ID, got.User.ID)
}

func (s *StoreTestSuite) TestDeleteExpiredSessions() {
	u := testutil.CreateUser(s.T(), s.store, "gina", "pw")
	now := time.Now().UTC()
	expired := models.Session{UserID: u.ID, AccessToken: "a1", AccessTokenExpiry: now.Add(-2 * time.Hour), RefreshToken: "r1", RefreshTokenExpiry: now.Add(-time.Hour)}
	live := models.Session{UserID: u.ID, AccessToken: "a2", AccessTokenExpiry: now, RefreshToken: "r2", RefreshTokenExpiry: now.Add(time.Hour)}
	require.NoError(s.T(), s.store.InsertSession(s.ctx, &expired))
	require.NoError(s.T(), s.store.InsertSession(s.ctx, &live))

	n, err := s.store.DeleteExpiredSessions(s.ctx, now)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 1, n)

	count, err := s.store.CountSessions(s.ctx, u.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, count)
}

func (s *StoreTestSuite) TestExecTxRollsBack() {
	u := testutil.CreateUser(s.T(), s.store, "hank", "pw")
	require.NoError(s.T(), s.store.IncrementLoginAttempts(s.ctx, u.ID))

	err := s.store.ExecTx(s.ctx, func(q *repository.Queries) error {
		if err := q.ResetLoginAttempts(s.ctx, u.ID); err != nil {
			return err
		}
		// user 0 does not exist, so the foreign key rejects the insert
		return q.InsertSession(s.ctx, &models.Session{UserID: 0, AccessToken: "x", RefreshToken: "y"})
	})
	require.Error(s.T(), err)

	got, err := s.store.GetUserByUsername(s.ctx, "hank")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, got.LoginAttempts, "reset must roll back with the failed insert")
}

func (s *StoreTestSuite) TestTaskCRUD() {
	d, err := models.ParseDeadline("2025-01-01 09:00")
	require.NoError(s.T(), err)
	task := &models.Task{Title: "Buy milk", Deadline: &d}
	require.NoError(s.T(), s.store.InsertTask(s.ctx, task))

	got, err := s.store.GetTask(s.ctx, task.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Buy milk", got.Title)
	assert.Nil(s.T(), got.Description)
	require.NotNil(s.T(), got.Deadline)
	assert.Equal(s.T(), "2025-01-01 09:00", got.Deadline.String())
	assert.Equal(s.T(), 0, got.Completed)
	assert.Equal(s.T(), 1, got.Version)

	ok, err := s.store.DeleteTask(s.ctx, task.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)

	_, err = s.store.GetTask(s.ctx, task.ID)
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)

	ok, err = s.store.DeleteTask(s.ctx, task.ID)
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

func (s *StoreTestSuite) TestUpdateTaskFieldsOnlyTouchesGivenColumns() {
	desc := "two litres"
	task := &models.Task{Title: "Buy milk", Description: &desc}
	require.NoError(s.T(), s.store.InsertTask(s.ctx, task))

	ok, err := s.store.UpdateTaskFields(s.ctx, task.ID, task.Version, []repository.FieldChange{
		{Field: repository.FieldCompleted, Value: 1},
	})
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)

	got, err := s.store.GetTask(s.ctx, task.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, got.Completed)
	assert.Equal(s.T(), "Buy milk", got.Title)
	require.NotNil(s.T(), got.Description)
	assert.Equal(s.T(), "two litres", *got.Description)
	assert.Equal(s.T(), 2, got.Version)

	// stale version
	ok, err = s.store.UpdateTaskFields(s.ctx, task.ID, task.Version, []repository.FieldChange{
		{Field: repository.FieldTitle, Value: "Buy oat milk"},
	})
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)

	_, err = s.store.UpdateTaskFields(s.ctx, task.ID, 2, []repository.FieldChange{
		{Field: repository.TaskField("id"), Value: 99},
	})
	assert.Error(s.T(), err)

	_, err = s.store.UpdateTaskFields(s.ctx, task.ID, 2, nil)
	assert.Error(s.T(), err)
}

func (s *StoreTestSuite) TestListTasksFilterAndPage() {
	for i := 0; i < 25; i++ {
		task := &models.Task{Title: "task", Completed: i % 2}
		require.NoError(s.T(), s.store.InsertTask(s.ctx, task))
	}

	all, err := s.store.ListTasks(s.ctx, repository.TaskFilter{})
	require.NoError(s.T(), err)
	assert.Len(s.T(), all, 25)
	assert.Less(s.T(), all[0].ID, all[24].ID)

	done := 1
	completed, err := s.store.ListTasks(s.ctx, repository.TaskFilter{Completed: &done})
	require.NoError(s.T(), err)
	assert.Len(s.T(), completed, 12)

	page3, err := s.store.ListTasks(s.ctx, repository.TaskFilter{Limit: 10, Offset: 20})
	require.NoError(s.T(), err)
	assert.Len(s.T(), page3, 5)

	n, err := s.store.CountTasks(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 25, n)
}
