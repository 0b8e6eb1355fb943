package metrics

import (
	"time"

	"github.com/medicore/clinic-api/internal/core/ports"
)

type timedHasher struct {
	ports.PasswordHasher
}

// InstrumentHasher records PasswordHashDuration for every Hash call of h.
func InstrumentHasher(h ports.PasswordHasher) ports.PasswordHasher {
	return timedHasher{PasswordHasher: h}
}

func (t timedHasher) Hash(plaintext string) (string, error) {
	start := time.Now()
	defer func() { PasswordHashDuration.Observe(time.Since(start).Seconds()) }()
	return t.PasswordHasher.Hash(plaintext)
}
