package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/KilimcininKorOglu/mvccview/internal/config"
	"github.com/KilimcininKorOglu/mvccview/internal/engine/enginetest"
	"github.com/KilimcininKorOglu/mvccview/internal/logging"
	"github.com/KilimcininKorOglu/mvccview/internal/model"
)

// capture redirects the CLI's streams for the duration of the test.
func capture(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr, prevIn := stdout, stderr, stdin
	stdout, stderr = out, errOut
	t.Cleanup(func() {
		stdout, stderr, stdin = prevOut, prevErr, prevIn
	})
	return out, errOut
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRun_NoArgs(t *testing.T) {
	out, _ := capture(t)
	assert.Equal(t, 1, run([]string{"mvccview"}))
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_Help(t *testing.T) {
	for _, arg := range []string{"help", "-h", "--help"} {
		t.Run(arg, func(t *testing.T) {
			out, _ := capture(t)
			assert.Equal(t, 0, run([]string{"mvccview", arg}))
			assert.Contains(t, out.String(), "hash-password")
		})
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	_, errOut := capture(t)
	assert.Equal(t, 1, run([]string{"mvccview", "frobnicate"}))
	assert.Contains(t, errOut.String(), "Unknown command: frobnicate")
}

func TestRun_CommandHelp(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"watch", "-h"}, "-no-api"},
		{[]string{"serve", "-help"}, "SIGHUP"},
		{[]string{"snapshot", "-h"}, "-json"},
		{[]string{"chain", "-h"}, "-row"},
		{[]string{"compare", "-h"}, "-width"},
		{[]string{"trx"}, "begin"},
		{[]string{"row", "help"}, "insert"},
		{[]string{"row", "help"}, "read"},
		{[]string{"reset", "-h"}, "-engine"},
		{[]string{"hash-password", "-h"}, "-cost"},
		{[]string{"version", "-h"}, "-short"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, _ := capture(t)
			assert.Equal(t, 0, run(append([]string{"mvccview"}, tt.args...)))
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestVersion(t *testing.T) {
	out, _ := capture(t)
	assert.Equal(t, 0, run([]string{"mvccview", "version"}))
	assert.Contains(t, out.String(), "mvccview version "+version)

	out.Reset()
	assert.Equal(t, 0, run([]string{"mvccview", "version", "-short"}))
	assert.Equal(t, version+"\n", out.String())
}

func TestConfigInit(t *testing.T) {
	out, _ := capture(t)
	assert.Equal(t, 0, run([]string{"mvccview", "config", "init"}))
	assert.Contains(t, out.String(), "engine:")
	assert.Contains(t, out.String(), "interval: 3s")
}

func TestConfigValidate(t *testing.T) {
	t.Run("requires config", func(t *testing.T) {
		_, errOut := capture(t)
		assert.Equal(t, 1, run([]string{"mvccview", "config", "validate"}))
		assert.Contains(t, errOut.String(), "-config is required")
	})

	t.Run("valid", func(t *testing.T) {
		out, _ := capture(t)
		path := writeConfig(t, "sync:\n  interval: 2s\n")
		assert.Equal(t, 0, run([]string{"mvccview", "config", "validate", "-config", path}))
		assert.Contains(t, out.String(), "Configuration is valid")
	})

	t.Run("invalid", func(t *testing.T) {
		_, errOut := capture(t)
		path := writeConfig(t, "compare:\n  maxConcurrency: 0\n")
		assert.Equal(t, 1, run([]string{"mvccview", "config", "validate", "-config", path}))
		assert.Contains(t, errOut.String(), "compare.maxConcurrency")
	})

	t.Run("missing file", func(t *testing.T) {
		_, errOut := capture(t)
		path := filepath.Join(t.TempDir(), "absent.yaml")
		assert.Equal(t, 1, run([]string{"mvccview", "config", "validate", "-config", path}))
		assert.Contains(t, errOut.String(), "Invalid configuration")
	})
}

func TestConfigShowAppliesEnvironment(t *testing.T) {
	t.Setenv("MVCCVIEW_SYNC_INTERVAL", "7s")
	t.Setenv("MVCCVIEW_ENGINE_URL", "http://db.example:5001/api")

	out, _ := capture(t)
	assert.Equal(t, 0, run([]string{"mvccview", "config", "show"}))
	assert.Contains(t, out.String(), "interval: 7s")
	assert.Contains(t, out.String(), "http://db.example:5001/api")

	out.Reset()
	assert.Equal(t, 0, run([]string{"mvccview", "config", "show", "-format", "json"}))
	assert.Contains(t, out.String(), "http://db.example:5001/api")
}

func TestConfigShowRejectsBadEnvironment(t *testing.T) {
	t.Setenv("MVCCVIEW_SYNC_HISTORY_LIMIT", "lots")

	_, errOut := capture(t)
	assert.Equal(t, 1, run([]string{"mvccview", "config", "show"}))
	assert.Contains(t, errOut.String(), "MVCCVIEW_SYNC_HISTORY_LIMIT")
}

func TestSnapshotCmd(t *testing.T) {
	fake := enginetest.New(t)
	fake.SetSnapshot(model.Snapshot{
		Transactions: model.Transactions{
			Active:    []model.Transaction{enginetest.ActiveTrx(2, model.RepeatableRead, 1)},
			Committed: []model.Transaction{enginetest.CommittedTrx(1)},
		},
		Rows: []model.Row{enginetest.Row(1, 2, model.Data{"name": "alice"})},
	})

	out, _ := capture(t)
	assert.Equal(t, 0, run([]string{"mvccview", "snapshot", "-engine", fake.URL()}))
	assert.Contains(t, out.String(), "Active transactions (1)")
	assert.Contains(t, out.String(), "Rows (1)")
	assert.Contains(t, out.String(), "alice")

	out.Reset()
	assert.Equal(t, 0, run([]string{"mvccview", "snapshot", "-engine", fake.URL(), "-json"}))
	assert.Contains(t, out.String(), `"alice"`)
}

func TestSnapshotCmdEngineDown(t *testing.T) {
	fake := enginetest.New(t)
	fake.FailNext("/system/state", 1)

	_, errOut := capture(t)
	assert.Equal(t, 1, run([]string{"mvccview", "snapshot", "-engine", fake.URL()}))
	assert.Contains(t, errOut.String(), "Failed to fetch snapshot")
}

func TestChainCmd(t *testing.T) {
	fake := enginetest.New(t)
	fake.SetSnapshot(model.Snapshot{
		Rows: []model.Row{
			enginetest.Row(5, 1, model.Data{"v": 1}),
			enginetest.Row(7, 2, model.Data{"v": 2}),
		},
	})
	fake.SetRowDetail(7, model.RowDetail{
		VersionChain: &model.VersionChain{Versions: []model.Version{
			{TrxID: 1, Data: model.Data{"v": 1}},
			{TrxID: 2, Data: model.Data{"v": 2}},
		}},
	})

	t.Run("renders", func(t *testing.T) {
		out, _ := capture(t)
		assert.Equal(t, 0, run([]string{"mvccview", "chain", "-engine", fake.URL(), "-row", "7"}))
		assert.Contains(t, out.String(), "Version chain of row 7")
		assert.Contains(t, out.String(), "2 versions")
	})

	t.Run("no history", func(t *testing.T) {
		_, errOut := capture(t)
		assert.Equal(t, 1, run([]string{"mvccview", "chain", "-engine", fake.URL(), "-row", "5"}))
		assert.Contains(t, errOut.String(), "Row 5 has no version history")
	})

	t.Run("not found", func(t *testing.T) {
		_, errOut := capture(t)
		assert.Equal(t, 1, run([]string{"mvccview", "chain", "-engine", fake.URL(), "-row", "9"}))
		assert.Contains(t, errOut.String(), "Row 9 not found")
	})

	t.Run("row required", func(t *testing.T) {
		_, errOut := capture(t)
		assert.Equal(t, 1, run([]string{"mvccview", "chain", "-engine", fake.URL()}))
		assert.Contains(t, errOut.String(), "-row is required")
	})
}

func TestCompareCmd(t *testing.T) {
	fake := enginetest.New(t)
	fake.SetSnapshot(model.Snapshot{
		Transactions: model.Transactions{Active: []model.Transaction{
			enginetest.ActiveTrx(1, model.RepeatableRead),
			enginetest.ActiveTrx(2, model.ReadCommitted, 7),
		}},
		Rows: []model.Row{enginetest.Row(7, 2, model.Data{"v": 2})},
	})
	fake.SetVisibility(1, 7, enginetest.Answer{Visible: false})
	fake.SetVisibility(2, 7, enginetest.Answer{Visible: true, Data: model.Data{"v": 2}})

	t.Run("default pair", func(t *testing.T) {
		out, _ := capture(t)
		assert.Equal(t, 0, run([]string{"mvccview", "compare", "-engine", fake.URL()}))
		assert.Contains(t, out.String(), "T1 vs T2")
	})

	t.Run("explicit pair", func(t *testing.T) {
		out, _ := capture(t)
		assert.Equal(t, 0, run([]string{"mvccview", "compare", "-engine", fake.URL(), "-a", "2", "-b", "1"}))
		assert.Contains(t, out.String(), "T2 vs T1")
	})

	t.Run("half a pair", func(t *testing.T) {
		_, errOut := capture(t)
		assert.Equal(t, 1, run([]string{"mvccview", "compare", "-engine", fake.URL(), "-a", "1"}))
		assert.Contains(t, errOut.String(), "-a and -b must be given together")
	})
}

func TestCompareCmdNoTransactions(t *testing.T) {
	fake := enginetest.New(t)

	_, errOut := capture(t)
	assert.Equal(t, 1, run([]string{"mvccview", "compare", "-engine", fake.URL()}))
	assert.Contains(t, errOut.String(), "Compare failed")
}

func TestTrxAndRowCmds(t *testing.T) {
	fake := enginetest.New(t)
	url := fake.URL()

	out, errOut := capture(t)
	require.Equal(t, 0, run([]string{"mvccview", "trx", "begin", "-engine", url, "-isolation", model.RepeatableRead}))
	assert.Equal(t, "Transaction 1 started (REPEATABLE_READ)\n", out.String())

	out.Reset()
	require.Equal(t, 0, run([]string{"mvccview", "row", "insert", "-engine", url, "-trx", "1", "-data", `{"name":"bob"}`}))
	assert.Equal(t, "Row 1 inserted by transaction 1\n", out.String())

	out.Reset()
	require.Equal(t, 0, run([]string{"mvccview", "row", "update", "-engine", url, "-trx", "1", "-row", "1", "-data", `{"name":"carol"}`}))
	assert.Equal(t, "Row 1 updated by transaction 1\n", out.String())

	snap := fake.Snapshot()
	row, ok := snap.Row(1)
	require.True(t, ok)
	assert.Equal(t, "carol", row.Data["name"])

	out.Reset()
	require.Equal(t, 0, run([]string{"mvccview", "row", "read", "-engine", url, "-trx", "1", "-row", "1"}))
	assert.Equal(t, "Row 1 read by transaction 1: {\"name\":\"carol\"}\n", out.String())

	out.Reset()
	require.Equal(t, 0, run([]string{"mvccview", "row", "delete", "-engine", url, "-trx", "1", "-row", "1"}))
	assert.Equal(t, "Row 1 deleted by transaction 1\n", out.String())

	out.Reset()
	require.Equal(t, 0, run([]string{"mvccview", "row", "read", "-engine", url, "-trx", "1", "-row", "1"}))
	assert.Equal(t, "Row 1 is not visible to transaction 1\n", out.String())

	out.Reset()
	require.Equal(t, 0, run([]string{"mvccview", "trx", "commit", "-engine", url, "-trx", "1"}))
	assert.Equal(t, "Transaction 1 committed\n", out.String())

	assert.Equal(t, 1, run([]string{"mvccview", "trx", "rollback", "-engine", url, "-trx", "1"}))
	assert.Contains(t, errOut.String(), "Rollback failed: Transaction not active")
}

func TestTrxCmdValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad isolation", []string{"trx", "begin", "-isolation", "SERIALIZABLE"}, "unknown isolation level"},
		{"commit without trx", []string{"trx", "commit"}, "-trx is required"},
		{"unknown subcommand", []string{"trx", "pause"}, "Unknown trx subcommand"},
		{"insert without data", []string{"row", "insert", "-trx", "1"}, "-data is required"},
		{"insert with bad data", []string{"row", "insert", "-trx", "1", "-data", "[1,2]"}, "-data must be a JSON object"},
		{"update without row", []string{"row", "update", "-trx", "1", "-data", "{}"}, "-row is required"},
		{"delete without trx", []string{"row", "delete", "-row", "1"}, "-trx is required"},
		{"read without row", []string{"row", "read", "-trx", "1"}, "-row is required"},
		{"unknown row subcommand", []string{"row", "upsert"}, "Unknown row subcommand"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut := capture(t)
			assert.Equal(t, 1, run(append([]string{"mvccview"}, tt.args...)))
			assert.Contains(t, errOut.String(), tt.want)
		})
	}
}

func TestResetCmd(t *testing.T) {
	fake := enginetest.New(t)
	fake.SetSnapshot(model.Snapshot{
		Rows: []model.Row{enginetest.Row(1, 1, model.Data{"v": 1})},
	})

	out, _ := capture(t)
	assert.Equal(t, 0, run([]string{"mvccview", "reset", "-engine", fake.URL()}))
	assert.Equal(t, "System reset\n", out.String())
	assert.Empty(t, fake.Snapshot().Rows)
}

func TestHashPasswordCmd(t *testing.T) {
	t.Run("flag", func(t *testing.T) {
		out, _ := capture(t)
		assert.Equal(t, 0, run([]string{"mvccview", "hash-password", "-password", "s3cret", "-cost", "4"}))
		hash := strings.TrimSpace(out.String())
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
	})

	t.Run("stdin", func(t *testing.T) {
		out, _ := capture(t)
		stdin = strings.NewReader("from-stdin\n")
		assert.Equal(t, 0, run([]string{"mvccview", "hash-password", "-cost", "4"}))
		hash := strings.TrimSpace(out.String())
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("from-stdin")))
	})

	t.Run("empty", func(t *testing.T) {
		_, errOut := capture(t)
		stdin = strings.NewReader("")
		assert.Equal(t, 1, run([]string{"mvccview", "hash-password"}))
		assert.Contains(t, errOut.String(), "no password given")
	})
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	_, errOut := capture(t)
	assert.Equal(t, 1, run([]string{"mvccview", "serve", "-engine", "ftp://nowhere"}))
	assert.Contains(t, errOut.String(), "engine.url")
}

func TestNewDashboardNormalizesEngineURL(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Engine.URL = "http://127.0.0.1:5001/api/"

	d, err := newDashboard(cfg, logging.NewNop(), false)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:5001/api", d.client.BaseURL())
	assert.Nil(t, d.restServer)
}
