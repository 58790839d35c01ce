package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendArgs(key, amount string, extra ...string) []string {
	args := []string{
		"send",
		"--key", key,
		"--wallet", "0xabc",
		"--to", "0xdef",
		"--asset", "USDC",
		"--amount", amount,
	}
	return append(args, extra...)
}

func TestSendCommand_SucceedsAndReplays(t *testing.T) {
	db := testDB(t)

	out, err := runCLI(t, db, sendArgs("inv-1", "25")...)
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "Ref: local-")

	// Same key again: served from the ledger, not re-submitted.
	out, err = runCLI(t, db, sendArgs("inv-1", "25")...)
	require.NoError(t, err)
	assert.Contains(t, out, "replayed from ledger")
}

func TestSendCommand_JSONOutput(t *testing.T) {
	db := testDB(t)

	out, err := runCLI(t, db, append(sendArgs("inv-1", "25"), "--format", "json")...)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "inv-1", data["key"])
	assert.Equal(t, "succeeded", data["status"])
}

func TestSendCommand_KeyReuseConflict(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, db, sendArgs("inv-1", "25")...)
	require.NoError(t, err)

	out, err := runCLI(t, db, sendArgs("inv-1", "26")...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "duplicate_request")
}

func TestSendCommand_PolicyViolation(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, db, "policy", "set", "0xabc", "--max-per-tx", "10")
	require.NoError(t, err)

	out, err := runCLI(t, db, sendArgs("inv-1", "20")...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "policy_violation")

	// The rejection left no ledger row.
	_, err = runCLI(t, db, "exec", "show", "inv-1")
	require.Error(t, err)
}

func TestSendCommand_InsufficientBalance(t *testing.T) {
	db := testDB(t)

	out, err := runCLI(t, db, sendArgs("inv-1", "20", "--balance", "5")...)
	require.Error(t, err)
	assert.Contains(t, out, "invalid_request")

	out, err = runCLI(t, db, "exec", "show", "inv-1")
	require.NoError(t, err)
	assert.Contains(t, out, "aborted")
}

func TestSendCommand_FailedSubmitIsDurable(t *testing.T) {
	db := testDB(t)

	out, err := runCLI(t, db, sendArgs("inv-1", "20", "--fail-submit")...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "external_submit_error")

	out, err = runCLI(t, db, "exec", "show", "inv-1")
	require.NoError(t, err)
	assert.Contains(t, out, "failed")

	out, err = runCLI(t, db, "deadletters")
	require.NoError(t, err)
	assert.Contains(t, out, "1 dead letter(s)")
	assert.Contains(t, out, "key=inv-1")
}

func TestSwapCommand(t *testing.T) {
	db := testDB(t)

	out, err := runCLI(t, db,
		"swap",
		"--key", "inv-2",
		"--wallet", "0xabc",
		"--sell", "ETH",
		"--buy", "USDC",
		"--amount", "0.5",
		"--min-receive", "900",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")
}

func TestPauseBlocksNewWorkOnly(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, db, sendArgs("inv-1", "25")...)
	require.NoError(t, err)

	_, err = runCLI(t, db, "pause", "all")
	require.NoError(t, err)

	out, err := runCLI(t, db, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "all   paused since")

	// New work is rejected.
	out, err = runCLI(t, db, sendArgs("inv-2", "25")...)
	require.Error(t, err)
	assert.Contains(t, out, "service_paused")

	// Recorded outcomes still replay.
	out, err = runCLI(t, db, sendArgs("inv-1", "25")...)
	require.NoError(t, err)
	assert.Contains(t, out, "replayed from ledger")

	_, err = runCLI(t, db, "resume", "all")
	require.NoError(t, err)
	_, err = runCLI(t, db, sendArgs("inv-2", "25")...)
	require.NoError(t, err)
}

func TestPauseCommand_UnknownScope(t *testing.T) {
	_, err := runCLI(t, testDB(t), "pause", "withdrawals")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPolicySetAndGet(t *testing.T) {
	db := testDB(t)

	out, err := runCLI(t, db, "policy", "set", "0xabc",
		"--max-per-tx", "50",
		"--max-per-day", "200",
		"--allow", "0xdef",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Max per tx:   50.00")

	out, err = runCLI(t, db, "policy", "get", "0xabc")
	require.NoError(t, err)
	assert.Contains(t, out, "Max per day:  200.00")
	assert.Contains(t, out, "0xdef")
	assert.Contains(t, out, "Daily spent:  0.00")
}

func TestPolicyApply(t *testing.T) {
	db := testDB(t)
	path := writePolicyFile(t, `
policies:
  - wallet: "0xabc"
    max_per_tx: "10"
`)

	out, err := runCLI(t, db, "policy", "apply", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Applied 1 wallet policies")

	_, err = runCLI(t, db, sendArgs("inv-1", "20")...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPolicyApply_RejectsBadDocument(t *testing.T) {
	path := writePolicyFile(t, `
policies:
  - wallet: "0xabc"
    max_per_tx: "not a number"
`)

	_, err := runCLI(t, testDB(t), "policy", "apply", "-f", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPolicyPauseAndResumeWallet(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, db, "policy", "pause", "0xabc")
	require.NoError(t, err)

	out, err := runCLI(t, db, sendArgs("inv-1", "25")...)
	require.Error(t, err)
	assert.Contains(t, out, "service_paused")

	// Other wallets are unaffected.
	otherArgs := sendArgs("inv-2", "25")
	for i, a := range otherArgs {
		if a == "0xabc" {
			otherArgs[i] = "0xother"
		}
	}
	_, err = runCLI(t, db, otherArgs...)
	require.NoError(t, err)

	_, err = runCLI(t, db, "policy", "resume", "0xabc")
	require.NoError(t, err)
	_, err = runCLI(t, db, sendArgs("inv-3", "25")...)
	require.NoError(t, err)
}

func TestExecTrace(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, db, sendArgs("inv-1", "25")...)
	require.NoError(t, err)

	out, err := runCLI(t, db, "exec", "trace", "inv-1")
	require.NoError(t, err)
	assert.Contains(t, out, "validated")
	assert.Contains(t, out, "balance_checked")
	assert.Contains(t, out, "tx_sent")
	assert.Contains(t, out, "tx_confirmed")
}

func TestExecList(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, db, sendArgs("inv-1", "25")...)
	require.NoError(t, err)

	out, err := runCLI(t, db, "exec", "list", "--status", "succeeded")
	require.NoError(t, err)
	assert.Contains(t, out, "1 execution(s) in status succeeded")
	assert.Contains(t, out, "inv-1")

	out, err = runCLI(t, db, "exec", "list", "--status", "running")
	require.NoError(t, err)
	assert.Contains(t, out, "0 execution(s)")

	_, err = runCLI(t, db, "exec", "list", "--status", "bogus")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
