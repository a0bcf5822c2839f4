/*
Package config loads and validates the settings for corral commands.

Values are layered, lowest precedence first:

 1. defaults (timeout 50s, poll interval 2s, 10 requests/s)
 2. environment variables: RANCHER_URL, RANCHER_ENVIRONMENT,
    RANCHER_ACCESS_KEY, RANCHER_SECRET_KEY, RANCHER_CREDENTIAL_ID,
    CORRAL_TIMEOUT, CORRAL_POLL_INTERVAL, CORRAL_RATE_LIMIT
 3. a YAML file passed with -f
 4. command line flags, applied by cmd/corral

Before validation, string fields are interpolated against a snapshot of the
build environment ($NAME and ${NAME}). Environment overrides may be a YAML
mapping or KEY=VALUE entries.

Example file:

	endpoint: http://rancher:8080/v2-beta
	environmentId: 1a7
	credentialId: ci
	service: web/nginx
	image: registry.local/nginx:${BUILD_NUMBER}
	ports: "8080:80"
	confirm: true
	env:
	  VERSION: ${BUILD_NUMBER}
*/
package config
