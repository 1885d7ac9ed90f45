package config

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// ErrCredentials is wrapped by every credential loading failure. Callers
// treat it as fatal before any pipeline runs.
var ErrCredentials = errors.New("credentials")

// Credentials are the storage access keys read from the credential file.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

const (
	credentialSection = "AWS"
	keyAccessKeyID    = "AWS_ACCESS_KEY_ID"
	keySecretKey      = "AWS_SECRET_ACCESS_KEY"
)

// LoadCredentials reads an INI file of the form
//
//	[AWS]
//	AWS_ACCESS_KEY_ID=...
//	AWS_SECRET_ACCESS_KEY=...
//
// The file, the section and both keys are required. Values are returned to
// the caller; the process environment is left untouched.
func LoadCredentials(path string) (Credentials, error) {
	if strings.TrimSpace(path) == "" {
		return Credentials{}, fmt.Errorf("config: %w: path must not be empty", ErrCredentials)
	}
	f, err := ini.Load(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("config: %w: load %s: %v", ErrCredentials, path, err)
	}
	sec, err := f.GetSection(credentialSection)
	if err != nil {
		return Credentials{}, fmt.Errorf("config: %w: %s: missing [%s] section", ErrCredentials, path, credentialSection)
	}

	var c Credentials
	for key, dst := range map[string]*string{
		keyAccessKeyID: &c.AccessKeyID,
		keySecretKey:   &c.SecretAccessKey,
	} {
		if !sec.HasKey(key) {
			return Credentials{}, fmt.Errorf("config: %w: %s: missing %s", ErrCredentials, path, key)
		}
		*dst = strings.TrimSpace(sec.Key(key).String())
		if *dst == "" {
			return Credentials{}, fmt.Errorf("config: %w: %s: empty %s", ErrCredentials, path, key)
		}
	}
	return c, nil
}

// String masks the secret so credentials can be logged safely.
func (c Credentials) String() string {
	id := c.AccessKeyID
	if len(id) > 4 {
		id = id[:4] + "****"
	}
	return fmt.Sprintf("Credentials{AccessKeyID:%s SecretAccessKey:****}", id)
}
