package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubhub/internal/model"
	"clubhub/internal/store"
	"clubhub/internal/users"
)

func setup(t *testing.T) (*commandLine, *store.Memory, *[]string) {
	t.Helper()
	st := store.NewMemory()
	ran := &[]string{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &commandLine{
		migrate: func(command string) error {
			*ran = append(*ran, command)
			return nil
		},
		admins: users.NewService(st, func() time.Time { return now }),
		out:    &bytes.Buffer{},
	}, st, ran
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func runCases(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			readPasswordFunc = func(int) ([]byte, error) { return []byte(tt.pwd), nil }
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, ran := setup(t)
	runCases(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: `"lol": no such command`},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
	})
	assert.Equal(t, []string{"up", "down", "status"}, *ran)
}

func Test_commandLine_migrateError(t *testing.T) {
	cli, _, _ := setup(t)
	cli.migrate = func(string) error { return errors.New("db down") }
	assert.EqualError(t, cli.run([]string{"admin", "migrate", "up"}), "db down")
}

func Test_commandLine_createadmin(t *testing.T) {
	cli, st, _ := setup(t)
	ctx := context.Background()

	member := model.User{Username: "alice", Email: "alice@club.test", IsMember: true, IsActive: true}
	require.NoError(t, member.SetPassword("old-password"))
	require.NoError(t, st.CreateUser(ctx, &member))

	runCases(t, cli, []cliTest{
		{name: "no username", args: []string{"createadmin"}, wantErr: errHelp},
		{name: "empty password", args: []string{"createadmin", "-username", "root"}, wantErr: errHelp},
		{name: "weak password", args: []string{"createadmin", "-username", "root"}, pwd: "12345678", wantErrStr: "password must not be entirely numeric"},
		{name: "bad email", args: []string{"createadmin", "-username", "root", "-email", "nope"}, pwd: "good-password", wantErrStr: `"nope" is not a valid email`},
		{name: "create", args: []string{"createadmin", "-username", "root", "-email", "Root@Club.test"}, pwd: "good-password"},
		{name: "promote", args: []string{"createadmin", "-username", "alice"}, pwd: "new-password"},
	})

	root, err := st.GetUserByLogin(ctx, "root")
	require.NoError(t, err)
	assert.True(t, root.IsStaff)
	assert.True(t, root.IsClubAdmin)
	assert.Equal(t, "root@club.test", root.Email)
	assert.NoError(t, root.CheckPassword("good-password"))

	alice, err := st.GetUser(ctx, member.ID)
	require.NoError(t, err)
	assert.True(t, alice.IsAdmin())
	assert.NoError(t, alice.CheckPassword("new-password"))
	assert.Contains(t, cli.out.(*bytes.Buffer).String(), "promoted alice")
}
