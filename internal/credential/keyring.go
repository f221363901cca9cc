// Package credential stores and retrieves the secrets Local_Jira needs
// to talk to the remote tenant (api_token, session_cookie) in the
// platform keyring rather than in plain config.
package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "local-jira"

// Key identifies one of the two secrets this system keeps in the
// platform keyring. Unlike a generic string-keyed credential store,
// Get/Set/Delete only ever see one of the two constants below.
type Key string

const (
	KeyAPIToken      Key = "api_token"
	KeySessionCookie Key = "session_cookie"
)

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/local-jira/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("local-jira-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key Key) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(string(key))
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key Key, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  string(key),
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key Key) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(string(key))
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
