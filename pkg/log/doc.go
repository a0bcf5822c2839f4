/*
Package log provides structured logging for corral using zerolog.

Every status line a deployment prints goes through a zerolog.Logger. The CLI
builds one from the --log-level and --log-json flags and hands it to the
deployer, which decorates it with run, stack and service fields as it goes.

# Output

Console output (default) is meant for CI job logs:

	2026-10-15T10:30:00Z INF waiting for service state run_id=5f1c… service_id=1s42 target=upgraded timeout=50s

JSON output (--log-json) emits one object per line for log shippers:

	{"level":"info","run_id":"5f1c…","service_id":"1s42","target":"upgraded","time":"…","message":"waiting for service state"}

# Usage

	log.Init(log.Config{Level: log.InfoLevel, Output: os.Stderr})
	logger := log.WithRunID(log.WithComponent("deploy"), runID)

New returns a configured logger without replacing the global one, which is
what tests use to capture output into a buffer.
*/
package log
