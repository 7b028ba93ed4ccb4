package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/maxpert/saslmechs/auth"
	"github.com/maxpert/saslmechs/config"
	"github.com/maxpert/saslmechs/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSetup(t *testing.T) (*config.Config, *server.SASLMechanismAdvertiser) {
	t.Helper()

	cfg, err := config.NewConfigBuilder().
		WithUserFile(filepath.Join(t.TempDir(), "users.yaml")).
		WithMechanisms(auth.MechanismSCRAMSHA256, auth.MechanismGSSAPI).
		Build()
	require.NoError(t, err)

	require.NoError(t, runAddUser(cfg, "admin.alice", "secret"))
	require.NoError(t, runAddUser(cfg, "$external.bob", ""))

	advertiser, err := server.NewAdvertiserBuilder().
		WithConfig(cfg).
		WithLogger(zap.NewNop()).
		Build()
	require.NoError(t, err)

	return cfg, advertiser
}

func TestRunAddUser(t *testing.T) {
	cfg, _ := newTestSetup(t)

	directory, err := auth.NewFileUserDirectory(cfg.Auth.UserFile)
	require.NoError(t, err)

	alice, ok := directory.Get(auth.UserName{User: "alice", DB: "admin"})
	require.True(t, ok)
	assert.Contains(t, alice.Credentials, auth.MechanismSCRAMSHA256)
	assert.NotContains(t, alice.Credentials, auth.MechanismSCRAMSHA1)

	bob, ok := directory.Get(auth.UserName{User: "bob", DB: auth.ExternalDatabase})
	require.True(t, ok)
	assert.True(t, bob.External)

	assert.Error(t, runAddUser(cfg, "admin.carol", ""))
	assert.Error(t, runAddUser(cfg, ".carol", "pw"))
}

func TestRunQuery(t *testing.T) {
	_, advertiser := newTestSetup(t)

	var out bytes.Buffer
	require.NoError(t, runQuery(context.Background(), advertiser, "admin.alice", &out))
	assert.JSONEq(t, `["SCRAM-SHA-256"]`, out.String())

	out.Reset()
	assert.Error(t, runQuery(context.Background(), advertiser, "admin.nobody", &out))
}

func TestRunStream(t *testing.T) {
	_, advertiser := newTestSetup(t)

	input := strings.Join([]string{
		`{"hello": 1, "saslSupportedMechs": "admin.alice"}`,
		`{"hello": 1, "saslSupportedMechs": "$external.bob"}`,
		``,
		`{"hello": 1}`,
		`{"hello": 1, "saslSupportedMechs": 7}`,
		`{"hello": 1, "saslSupportedMechs": "admin.nobody"}`,
		`not json`,
	}, "\n")

	var out bytes.Buffer
	require.NoError(t, runStream(context.Background(), advertiser, strings.NewReader(input), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)

	replies := make([]map[string]interface{}, len(lines))
	for i, line := range lines {
		require.NoError(t, json.Unmarshal([]byte(line), &replies[i]))
	}

	assert.Equal(t, []interface{}{"SCRAM-SHA-256"}, replies[0]["saslSupportedMechs"])
	assert.Equal(t, []interface{}{"GSSAPI"}, replies[1]["saslSupportedMechs"])
	assert.NotContains(t, replies[2], "saslSupportedMechs")
	assert.Equal(t, 1.0, replies[2]["ok"])
	assert.Equal(t, "TypeMismatch", replies[3]["codeName"])
	assert.Equal(t, "UserNotFound", replies[4]["codeName"])
	assert.Equal(t, "FailedToParse", replies[5]["codeName"])
}

// lockedBuffer is a bytes.Buffer safe to read while runStream writes to it
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunStreamStopsOnCancelWhileBlocked(t *testing.T) {
	_, advertiser := newTestSetup(t)

	in, feed := io.Pipe()
	defer feed.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out lockedBuffer
	done := make(chan error, 1)
	go func() {
		done <- runStream(ctx, advertiser, in, &out)
	}()

	_, err := io.WriteString(feed, `{"hello": 1, "saslSupportedMechs": "admin.alice"}`+"\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "SCRAM-SHA-256")
	}, time.Second, 10*time.Millisecond)

	// The scanner is now blocked waiting for the next line
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runStream did not return after cancellation")
	}

	_, err = io.WriteString(feed, "{}\n")
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestRunStreamCancelledBeforeInput(t *testing.T) {
	_, advertiser := newTestSetup(t)

	in, feed := io.Pipe()
	defer feed.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	require.NoError(t, runStream(ctx, advertiser, in, &out))
	assert.Empty(t, out.String())
}

func TestRunCommandEmptyListIsPresent(t *testing.T) {
	cfg, _ := newTestSetup(t)
	cfg.Auth.Mechanisms = []string{auth.MechanismPlain}

	advertiser, err := server.NewAdvertiserBuilder().
		WithConfig(cfg).
		WithLogger(zap.NewNop()).
		Build()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runCommand(context.Background(), advertiser, []byte(`{"saslSupportedMechs": "admin.alice"}`), &out))
	assert.JSONEq(t, `{"ok": 1, "saslSupportedMechs": []}`, out.String())
}
