// Package decrypt handles decryption of fetched content. Only age v1
// (x25519 recipients) is supported; the method set is closed and
// selected per file declaration.
package decrypt

import (
	"bytes"
	"io"
	"os"

	"filippo.io/age"

	"github.com/arthur-debert/refold/pkg/errors"
)

// Method selects how fetched bytes are decrypted before use.
type Method string

const (
	// None leaves fetched bytes untouched.
	None Method = ""
	// AgeV1 decrypts with age x25519 identities.
	AgeV1 Method = "agev1"
)

// ParseMethod validates a decryption method string from a manifest.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case None, AgeV1:
		return Method(s), nil
	default:
		return None, errors.Newf(errors.ErrManifestParse,
			"unknown decryption method %q", s)
	}
}

// LoadIdentities reads age identity files (as written by age-keygen).
func LoadIdentities(paths []string) ([]age.Identity, error) {
	var ids []age.Identity
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFileAccess,
				"could not open identity file %s", path)
		}
		parsed, parseErr := age.ParseIdentities(f)
		f.Close()
		if parseErr != nil {
			return nil, errors.Wrapf(parseErr, errors.ErrDecrypt,
				"could not parse identity file %s", path)
		}
		ids = append(ids, parsed...)
	}
	return ids, nil
}

// Age decrypts an age-encrypted payload, trying every identity.
func Age(encrypted []byte, ids []age.Identity) ([]byte, error) {
	if len(ids) == 0 {
		return nil, errors.New(errors.ErrDecrypt,
			"content is encrypted but no identity files were provided")
	}
	r, err := age.Decrypt(bytes.NewReader(encrypted), ids...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDecrypt, "no matching age identity")
	}
	decrypted, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDecrypt, "could not read decrypted content")
	}
	return decrypted, nil
}

// Transform returns the decryption step for a method, or nil for None.
// The step runs on fetched bytes before hash verification.
func Transform(method Method, ids []age.Identity) func([]byte) ([]byte, error) {
	if method == None {
		return nil
	}
	return func(data []byte) ([]byte, error) {
		return Age(data, ids)
	}
}
