package stay

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/nerrad567/stayflow-core/internal/lodging"
	"github.com/nerrad567/stayflow-core/internal/store"
)

// Access codes avoid characters that read alike (0/O, 1/I/L).
const (
	accessCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	accessCodeLength   = 5
)

// GenerateAccessCode draws a random code from the unambiguous alphabet.
func GenerateAccessCode() (string, error) {
	max := big.NewInt(int64(len(accessCodeAlphabet)))
	code := make([]byte, accessCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generating access code: %w", err)
		}
		code[i] = accessCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// uniqueAccessCode draws codes until one is not held by any stay of the
// property, up to the configured number of attempts. Cancelled and archived
// stays keep their code, so it is never issued twice.
func (m *Manager) uniqueAccessCode(ctx context.Context, tx store.Tx) (string, error) {
	for attempt := 1; attempt <= m.codeTries; attempt++ {
		code, err := m.newCode()
		if err != nil {
			return "", err
		}
		holders, err := tx.Query(ctx, lodging.CollectionStays, store.Eq("accessCode", code))
		if err != nil {
			return "", fmt.Errorf("checking access code: %w", err)
		}
		if len(holders) == 0 {
			return code, nil
		}
		m.logger.Debug("access code collision", "property_id", tx.PropertyID(), "attempt", attempt)
	}
	return "", fmt.Errorf("%w: %d attempts", lodging.ErrCodeSpaceExhausted, m.codeTries)
}
