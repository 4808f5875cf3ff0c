package intake

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	patientNumberPrefix       = "PN"
	patientNumberSuffixLength = 8
)

type NumberGenerator interface {
	Generate() string
}

func NewNumberGenerator() (NumberGenerator, error) {
	return &numberGenerator{
		prefix: patientNumberPrefix,
		now:    time.Now,
	}, nil
}

type numberGenerator struct {
	prefix string
	now    func() time.Time
}

// Generate returns a patient number in the format PN-<unix millis>-<random>
func (n *numberGenerator) Generate() string {
	return fmt.Sprintf("%s-%d-%s", n.prefix, n.now().UnixMilli(), uuid.NewString()[:patientNumberSuffixLength])
}
