package intake_test

import (
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	errs "github.com/tidepool-org/intake/errors"
	"github.com/tidepool-org/intake/intake"
)

var _ = Describe("Payload", func() {
	Describe("Lookup", func() {
		var payload intake.Payload

		BeforeEach(func() {
			payload = intake.Payload{
				"name": "Jane",
				"tobaccoDetails": map[string]interface{}{
					"type":  "cigarette",
					"years": json.Number("5"),
				},
				"gender": nil,
				"nested": map[string]interface{}{
					"deeper": map[string]interface{}{
						"value": true,
					},
				},
			}
		})

		It("returns top level values", func() {
			Expect(intake.Lookup(payload, "name")).To(Equal("Jane"))
		})

		It("returns nested values", func() {
			Expect(intake.Lookup(payload, "tobaccoDetails.type")).To(Equal("cigarette"))
			Expect(intake.Lookup(payload, "tobaccoDetails.years")).To(Equal(json.Number("5")))
			Expect(intake.Lookup(payload, "nested.deeper.value")).To(Equal(true))
		})

		DescribeTable("returns an empty string",
			func(key string) {
				Expect(intake.Lookup(payload, key)).To(Equal(""))
			},
			Entry("for a missing key", "location"),
			Entry("for a null value", "gender"),
			Entry("for a missing intermediate segment", "smoking.type"),
			Entry("for an intermediate segment which is not a mapping", "name.first"),
			Entry("for a missing leaf", "tobaccoDetails.frequency"),
			Entry("for a null intermediate segment", "gender.value"),
			Entry("for an empty key", ""),
			Entry("for a path descending through a scalar", "tobaccoDetails.years.value"),
		)

		It("returns an empty string for a nil payload", func() {
			Expect(intake.Lookup(nil, "tobaccoDetails.type")).To(Equal(""))
		})
	})

	Describe("DecodePayload", func() {
		It("keeps numbers as json numbers", func() {
			payload, err := intake.DecodePayload(strings.NewReader(`{"tobaccoDetails": {"years": 5}}`))
			Expect(err).ToNot(HaveOccurred())
			Expect(intake.Lookup(payload, "tobaccoDetails.years")).To(Equal(json.Number("5")))
		})

		It("returns a format error for invalid json", func() {
			_, err := intake.DecodePayload(strings.NewReader(`{"name": `))
			Expect(err).To(MatchError(errs.Format))
		})

		It("returns a format error for a json array", func() {
			_, err := intake.DecodePayload(strings.NewReader(`[1, 2]`))
			Expect(err).To(MatchError(errs.Format))
		})
	})

	Describe("Normalize", func() {
		It("trims string values without modifying the input", func() {
			payload := intake.Payload{
				"name": "  Jane ",
				"tobaccoDetails": map[string]interface{}{
					"type": "\tcigarette\n",
				},
				"tags": []interface{}{" a ", "b"},
			}

			normalized := intake.Normalize(payload)
			Expect(normalized["name"]).To(Equal("Jane"))
			Expect(intake.Lookup(normalized, "tobaccoDetails.type")).To(Equal("cigarette"))
			Expect(normalized["tags"]).To(Equal([]interface{}{"a", "b"}))

			Expect(payload["name"]).To(Equal("  Jane "))
			Expect(intake.Lookup(payload, "tobaccoDetails.type")).To(Equal("\tcigarette\n"))
		})

		It("returns an empty payload for nil", func() {
			Expect(intake.Normalize(nil)).To(BeEmpty())
		})
	})

	Describe("ExpandForm", func() {
		It("nests dot separated keys", func() {
			payload, err := intake.ExpandForm(map[string][]string{
				"name":                     {"Jane"},
				"tobaccoDetails.type":      {"cigarette", "ignored"},
				"tobaccoDetails.frequency": {"daily"},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(payload).To(Equal(intake.Payload{
				"name": "Jane",
				"tobaccoDetails": map[string]interface{}{
					"type":      "cigarette",
					"frequency": "daily",
				},
			}))
		})

		It("returns a format error when a field conflicts with a nested field", func() {
			_, err := intake.ExpandForm(map[string][]string{
				"tobaccoDetails":      {"none"},
				"tobaccoDetails.type": {"cigarette"},
			})
			Expect(err).To(MatchError(errs.Format))
		})
	})

	Describe("MergePayloads", func() {
		It("merges nested values and prefers the source values", func() {
			dst := intake.Payload{
				"name": "Jane",
				"tobaccoDetails": map[string]interface{}{
					"type":  "cigar",
					"years": json.Number("5"),
				},
			}
			src := intake.Payload{
				"tobaccoDetails": map[string]interface{}{
					"type": "cigarette",
				},
				"location": "Boston",
			}

			merged, err := intake.MergePayloads(dst, src)
			Expect(err).ToNot(HaveOccurred())
			Expect(merged["name"]).To(Equal("Jane"))
			Expect(merged["location"]).To(Equal("Boston"))
			Expect(intake.Lookup(merged, "tobaccoDetails.type")).To(Equal("cigarette"))
			Expect(intake.Lookup(merged, "tobaccoDetails.years")).To(Equal(json.Number("5")))
		})
	})
})

var _ = Describe("MergePayloads conflicts", func() {
	It("returns a format error when a value is replaced by a nested object", func() {
		_, err := intake.MergePayloads(
			intake.Payload{"tobaccoDetails": "none"},
			intake.Payload{"tobaccoDetails": map[string]interface{}{"type": "cigarette"}},
		)
		Expect(err).To(MatchError(errs.Format))
	})
})
