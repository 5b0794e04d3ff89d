package install

import "errors"

var (
	// ErrMissingFile means the archive carried none of the expected
	// manifest/plugins layout.
	ErrMissingFile = errors.New("INS_MISSING_FILE: package archive has no content")

	// ErrPluginsDisabled is returned before the consent gate when a
	// package carries plugins but the capability flag is off, so
	// users do not end up with a mod missing its plugin half.
	ErrPluginsDisabled = errors.New("INS_PLUGINS_DISABLED: this package contains a plugin and plugin installing is disabled")

	// ErrUserDenied is the explicit refusal from the consent gate.
	ErrUserDenied = errors.New("INS_USER_DENIED: user denied plugin installing")
)
