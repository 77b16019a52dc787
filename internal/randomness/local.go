package randomness

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LocalSource derives random values in-process for development deployments
// without an external randomness service. The value is the first eight bytes
// of keccak256(seed || requestId || nonce), delivered asynchronously after a
// short delay so consumers exercise the same suspension point as in
// production.
type LocalSource struct {
	seed  []byte
	delay time.Duration
	log   *logrus.Logger
}

// NewLocalSource creates a source with a fresh random seed.
func NewLocalSource(delay time.Duration, log *logrus.Logger) *LocalSource {
	if log == nil {
		log = logrus.StandardLogger()
	}
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		log.WithError(err).Fatal("Failed to seed local randomness source")
	}
	return &LocalSource{seed: seed, delay: delay, log: log}
}

// Deliver implements Source.
func (s *LocalSource) Deliver(requestID uuid.UUID, fulfill func(requestID uuid.UUID, value uint64) error) {
	go func() {
		if s.delay > 0 {
			time.Sleep(s.delay)
		}
		var nonce [8]byte
		binary.BigEndian.PutUint64(nonce[:], uint64(time.Now().UnixNano()))
		hash := crypto.Keccak256(s.seed, requestID[:], nonce[:])
		value := binary.BigEndian.Uint64(hash[:8])

		if err := fulfill(requestID, value); err != nil {
			s.log.WithError(err).WithField("request_id", requestID.String()).
				Warn("Local randomness fulfillment rejected")
		}
	}()
}
