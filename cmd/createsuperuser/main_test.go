package main

import (
	"context"
	"io"
	"testing"

	"github.com/amaravindhan/backend-pet/internal/entity"
	"github.com/amaravindhan/backend-pet/internal/repository"
	"github.com/amaravindhan/backend-pet/internal/service"
	"github.com/amaravindhan/backend-pet/internal/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type savedUsers struct {
	repository.UserRepository
	rows []entity.User
}

func (r *savedUsers) Create(_ context.Context, user *entity.User) error {
	for _, row := range r.rows {
		if row.PhoneNumber == user.PhoneNumber {
			return repository.ErrDuplicate
		}
	}
	user.ID = uuid.New()
	r.rows = append(r.rows, *user)
	return nil
}

func (r *savedUsers) Save(_ context.Context, user *entity.User) error {
	for i := range r.rows {
		if r.rows[i].ID == user.ID {
			r.rows[i] = *user
		}
	}
	return nil
}

type singleAlias struct {
	alias string
	repo  *savedUsers
}

func (s singleAlias) Users(alias string) (repository.UserRepository, error) {
	if alias != s.alias {
		return nil, repository.ErrUnknownDatabase
	}
	return s.repo, nil
}

func TestParseOptions(t *testing.T) {
	t.Setenv("ACCOUNTS_SUPERUSER_PHONE", "+15550001111")
	t.Setenv("ACCOUNTS_SUPERUSER_FULL_NAME", "Env Admin")
	t.Setenv("ACCOUNTS_SUPERUSER_PASSWORD", "from-env")

	opts, err := parseOptions([]string{"-email", "root@petcare.io", "-database", "replica"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "+15550001111", opts.Phone)
	assert.Equal(t, "Env Admin", opts.FullName)
	assert.Equal(t, "from-env", opts.Password)
	assert.Equal(t, "root@petcare.io", opts.Email)
	assert.Equal(t, "replica", opts.Database)

	opts, err = parseOptions([]string{"-phone", "+15559998888"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "+15559998888", opts.Phone)
	assert.Equal(t, "default", opts.Database)

	_, err = parseOptions([]string{"-phone", "12345"}, io.Discard)
	assert.ErrorIs(t, err, validation.ErrInvalid)
}

func TestCreateSuperuser(t *testing.T) {
	logger, _ := test.NewNullLogger()
	repo := &savedUsers{}
	manager := service.NewUserManager(
		singleAlias{alias: "replica", repo: repo},
		service.BcryptPasswordHasher{Cost: bcrypt.MinCost},
		nil,
		service.RealClock{},
		logger,
	)
	opts := options{
		Phone:    "+15550001111",
		Email:    "root@PetCare.io",
		FullName: "Site Admin",
		Username: "root",
		Password: "s3cret",
		Database: "replica",
	}

	user, err := createSuperuser(context.Background(), manager, opts)
	require.NoError(t, err)
	assert.True(t, user.IsStaff)
	assert.True(t, user.IsSuperuser)
	assert.Equal(t, "root@petcare.io", user.EmailAddress())
	require.Len(t, repo.rows, 1)
	assert.True(t, repo.rows[0].IsSuperuser)

	_, err = createSuperuser(context.Background(), manager, opts)
	assert.ErrorIs(t, err, service.ErrUserAlreadyExists)

	opts.Database = "default"
	_, err = createSuperuser(context.Background(), manager, opts)
	assert.ErrorIs(t, err, repository.ErrUnknownDatabase)

	opts.Database = "replica"
	opts.Email = " "
	_, err = createSuperuser(context.Background(), manager, opts)
	assert.ErrorIs(t, err, service.ErrEmailRequired)
}

func TestRunRejectsBadArguments(t *testing.T) {
	t.Setenv("ACCOUNTS_SUPERUSER_PHONE", "")
	t.Setenv("ACCOUNTS_SUPERUSER_FULL_NAME", "")

	for _, args := range [][]string{
		{"-phone", "12345", "-name", "Site Admin"},
		{"-name", "Site Admin"},
		{"-bogus"},
	} {
		logger, hook := test.NewNullLogger()
		code := run(context.Background(), args, io.Discard, logger)
		assert.Equal(t, exitUsage, code, "args %v", args)
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, "invalid arguments", hook.LastEntry().Message)
	}
}
