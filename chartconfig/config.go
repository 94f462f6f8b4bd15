// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartconfig

type Config interface {
	GetAppName() string
	// Lock returns a modifiable copy of the configuration.
	// Unlock needs to be called afterwards, if no error was returned.
	Lock() (*AppConfig, error)
	Unlock(c *AppConfig) error
	Copy() (AppConfig, error)
}
