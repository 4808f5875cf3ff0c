package test

import (
	"encoding/base64"
	"math/rand"
	"time"

	"github.com/jaswdr/faker"
	"github.com/onsi/ginkgo/v2"
)

var (
	Source = rand.NewSource(ginkgo.GinkgoRandomSeed())
	Faker  = faker.NewWithSeed(Source)
	Rand   = rand.New(Source)
)

// RandomPayload returns an intake form payload with every non-attachment field set
func RandomPayload() map[string]interface{} {
	return map[string]interface{}{
		"currentDate":  time.Now().Format(time.DateOnly),
		"location":     Faker.Address().City(),
		"name":         Faker.Person().Name(),
		"id":           Faker.UUID().V4(),
		"DOB":          Faker.Time().ISO8601(time.Now())[:10],
		"gender":       Faker.RandomStringElement([]string{"female", "male", "other"}),
		"tobaccoUsage": Faker.RandomStringElement([]string{"yes", "no"}),
		"tobaccoDetails": map[string]interface{}{
			"type":      Faker.RandomStringElement([]string{"cigarette", "cigar", "pipe", "chewing"}),
			"frequency": Faker.RandomStringElement([]string{"daily", "weekly", "occasionally"}),
			"years":     Faker.IntBetween(1, 40),
		},
		"oralFindings":        Faker.Lorem().Sentence(6),
		"dxBluResult":         Faker.RandomStringElement([]string{"positive", "negative"}),
		"dxBluInterpretation": Faker.Lorem().Sentence(4),
		"recommendation":      Faker.Lorem().Sentence(5),
		"biopsyStatus":        Faker.RandomStringElement([]string{"pending", "complete", "not required"}),
		"biopsyResult":        Faker.Lorem().Word(),
	}
}

// RandomBytes returns n pseudo random bytes
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	Rand.Read(b)
	return b
}

// DataURI encodes data as a base64 data uri of the given mime type
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
