// Package secrets stores the API token in the operating system keychain
// (Keychain on macOS, Credential Manager on Windows, Secret Service on
// Linux). Tokens never touch the state file or the logs.
package secrets

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const service = "sacvpn"

// ErrNotFound is returned when no token is stored for the account.
var ErrNotFound = errors.New("no stored token")

// SaveToken stores the API token for the given account.
func SaveToken(account, token string) error {
	if err := keyring.Set(service, account, token); err != nil {
		return fmt.Errorf("store token in keychain: %w", err)
	}
	return nil
}

// Token retrieves the stored API token for the given account.
func Token(account string) (string, error) {
	token, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read token from keychain: %w", err)
	}
	return token, nil
}

// DeleteToken removes the stored token. Missing entries are not an error.
func DeleteToken(account string) error {
	err := keyring.Delete(service, account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete token from keychain: %w", err)
	}
	return nil
}
