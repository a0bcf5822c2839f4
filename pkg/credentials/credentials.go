package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService is the keyring service name entries are stored under
const KeyringService = "corral"

// ErrNotFound is returned when no credential exists for an id
var ErrNotFound = errors.New("credential not found")

// Credential is a Rancher API key pair
type Credential struct {
	AccessKey string
	SecretKey string
}

// Store resolves credential ids to API key pairs
type Store interface {
	Get(id string) (Credential, error)
}

// KeyringStore keeps credentials in the OS keyring as "access:secret"
type KeyringStore struct {
	service string
}

// Ensure KeyringStore implements Store.
var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a store using the default service name
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: KeyringService}
}

// Get looks up id in the keyring
func (s *KeyringStore) Get(id string) (Credential, error) {
	secret, err := keyring.Get(s.service, id)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Credential{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Credential{}, fmt.Errorf("failed to read keyring entry %s: %w", id, err)
	}

	access, secretKey, found := strings.Cut(secret, ":")
	if !found {
		return Credential{}, fmt.Errorf("keyring entry %s is not in access:secret form", id)
	}
	return Credential{AccessKey: access, SecretKey: secretKey}, nil
}

// Set stores a credential under id
func (s *KeyringStore) Set(id string, cred Credential) error {
	if strings.Contains(cred.AccessKey, ":") {
		return fmt.Errorf("access key must not contain ':'")
	}
	if err := keyring.Set(s.service, id, cred.AccessKey+":"+cred.SecretKey); err != nil {
		return fmt.Errorf("failed to write keyring entry %s: %w", id, err)
	}
	return nil
}

// Delete removes the credential stored under id
func (s *KeyringStore) Delete(id string) error {
	if err := keyring.Delete(s.service, id); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete keyring entry %s: %w", id, err)
	}
	return nil
}
