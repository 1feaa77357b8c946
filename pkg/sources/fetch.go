package sources

import (
	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/hashing"
	"github.com/arthur-debert/refold/pkg/logging"
)

// Transform is an optional post-fetch step (decryption) applied to the
// raw bytes of each candidate source before hash verification.
type Transform func([]byte) ([]byte, error)

// FetchFirstValid tries sources in declared order and returns the first
// fetch that succeeds and, when expectedHash is set, matches the pin.
// A failing or mismatching source is warned about and skipped; only
// exhausting the whole chain is an error.
func FetchFirstValid(list []Source, expectedHash string, transform Transform) ([]byte, error) {
	logger := logging.GetLogger("sources")
	for _, s := range list {
		data, err := s.Fetch()
		if err != nil {
			logger.Warn().Str("source", s.String()).Err(err).Msg("Invalid source")
			continue
		}
		if transform != nil {
			data, err = transform(data)
			if err != nil {
				logger.Warn().Str("source", s.String()).Err(err).Msg("Could not decrypt source")
				continue
			}
		}
		if expectedHash != "" && !hashing.Matches(data, expectedHash) {
			logger.Warn().
				Str("source", s.String()).
				Str("expected", expectedHash).
				Str("actual", hashing.Compute(data)).
				Msg("Hash mismatch")
			continue
		}
		return data, nil
	}
	return nil, errors.New(errors.ErrSourceExhausted, "no valid source in list")
}
