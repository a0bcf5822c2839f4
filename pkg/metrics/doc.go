/*
Package metrics provides Prometheus instrumentation for corral.

corral is a short-lived CLI, so nothing scrapes it. Metrics are collected in a
private registry during a run and, when --metrics-file is given, written once
at exit in the Prometheus text format for node_exporter's textfile collector:

	corral deploy --metrics-file /var/lib/node_exporter/textfile/corral.prom ...

# Metrics

Remote API:
  - corral_remote_requests_total{operation,status}
  - corral_remote_request_duration_seconds{operation}

Workflows:
  - corral_deployments_total{workflow,path,result}
  - corral_state_polls_total{target}
  - corral_state_wait_duration_seconds{target,result}

workflow is "deploy" or "finish"; path is "create", "upgrade", "confirm" or
"rollback"; result is "success" or "failure".

# Timing

	timer := metrics.NewTimer()
	resp, err := doRequest()
	timer.ObserveDurationVec(metrics.RemoteRequestDuration, "stacks")
*/
package metrics
