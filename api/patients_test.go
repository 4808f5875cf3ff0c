package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tidepool-org/intake/api"
	"github.com/tidepool-org/intake/attachments"
	"github.com/tidepool-org/intake/config"
	errs "github.com/tidepool-org/intake/errors"
	"github.com/tidepool-org/intake/intake"
	sheetsTest "github.com/tidepool-org/intake/sheets/test"
	"github.com/tidepool-org/intake/test"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("Add Patient", func() {
	var cfg *config.Config
	var attachmentsConfig *attachments.Config
	var gateway *sheetsTest.MemoryGateway
	var healthCheck *api.HealthCheck
	var server *echo.Echo
	var logs *observer.ObservedLogs

	BeforeEach(func() {
		cfg = &config.Config{
			HttpPort:           7000,
			CorsAllowedOrigins: []string{"*"},
			JsonBodyLimit:      "1M",
			UploadLimitBytes:   1024,
		}
		attachmentsConfig = &attachments.Config{
			PublicDir:     GinkgoT().TempDir(),
			UploadsSubdir: "uploads",
			PublicBaseUrl: "http://localhost:7000/public",
		}
		gateway = sheetsTest.NewMemoryGateway()

		var core zapcore.Core
		core, logs = observer.New(zapcore.InfoLevel)
		logger := zap.New(core)
		lifecycle := fxtest.NewLifecycle(GinkgoT())
		materializer, err := attachments.NewMaterializer(attachmentsConfig, logger.Sugar(), lifecycle)
		Expect(err).ToNot(HaveOccurred())
		numbers, err := intake.NewNumberGenerator()
		Expect(err).ToNot(HaveOccurred())
		service, err := intake.NewService(&intake.Config{HeaderMode: intake.HeaderModeKeys}, intake.DefaultSchema(), gateway, materializer, numbers, logger.Sugar())
		Expect(err).ToNot(HaveOccurred())

		healthCheck = api.NewHealthCheck()
		handler := api.NewHandler(api.Params{Config: cfg, Intake: service, Logger: logger.Sugar()})
		server, err = api.NewServer(handler, healthCheck, cfg, attachmentsConfig, logger)
		Expect(err).ToNot(HaveOccurred())

		lifecycle.RequireStart()
		DeferCleanup(lifecycle.RequireStop)
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		return rec
	}

	postJson := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/add-patient", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return serve(req)
	}

	decodeSuccess := func(rec *httptest.ResponseRecorder) api.AddPatientResponse {
		Expect(rec.Code).To(Equal(http.StatusOK))
		response := api.AddPatientResponse{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &response)).To(Succeed())
		return response
	}

	decodeError := func(rec *httptest.ResponseRecorder) errs.Response {
		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		response := errs.Response{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &response)).To(Succeed())
		return response
	}

	Describe("JSON requests", func() {
		It("appends the patient and returns the spreadsheet update", func() {
			rec := postJson(`{"name":"Jane","DOB":"1990-01-01","tobaccoDetails":{"type":"cigarette","frequency":"daily","years":5}}`)
			response := decodeSuccess(rec)

			Expect(response.Message).To(Equal("Row added successfully"))
			Expect(response.PatientNumber).To(MatchRegexp(`^PN-\d+-[0-9a-f]{8}$`))
			Expect(response.SpreadsheetUpdate).ToNot(BeNil())
			Expect(response.SpreadsheetUpdate.UpdatedRows).To(Equal(int64(1)))

			Expect(gateway.Header).To(Equal(intake.DefaultSchema().Keys()))
			Expect(gateway.Cell("name")).To(Equal("Jane"))
			Expect(gateway.Cell("tobaccoDetails.years")).To(Equal(json.Number("5")))
			Expect(gateway.Cell(intake.PatientNumberKey)).To(Equal(response.PatientNumber))
		})

		It("stores data uri attachments", func() {
			body, err := json.Marshal(map[string]interface{}{
				"name":                 "Jane",
				"biopsyStatusDocument": test.DataURI("application/pdf", []byte("%PDF-1.4")),
			})
			Expect(err).ToNot(HaveOccurred())
			response := decodeSuccess(postJson(string(body)))

			fileName := response.PatientNumber + "-biopsyStatusDocument.pdf"
			Expect(gateway.Cell("biopsyStatusDocument")).To(Equal("http://localhost:7000/public/uploads/" + fileName))

			rec := serve(httptest.NewRequest(http.MethodGet, "/public/uploads/"+fileName, nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(Equal("%PDF-1.4"))
		})

		It("returns an error for an invalid body", func() {
			response := decodeError(postJson(`{"name":`))
			Expect(response.Message).To(Equal("Error adding row"))
			Expect(response.Error).ToNot(BeEmpty())
			Expect(gateway.Rows).To(BeEmpty())
		})

		It("returns an error for an unsupported attachment", func() {
			body, _ := json.Marshal(map[string]interface{}{
				"oralFindingsDocument": test.DataURI("application/zip", []byte("zip")),
			})
			response := decodeError(postJson(string(body)))
			Expect(response.Message).To(Equal("Error adding row"))
			Expect(response.Error).To(ContainSubstring("unsupported type"))
			Expect(gateway.Rows).To(BeEmpty())
		})

		It("returns an error when the spreadsheet is unavailable", func() {
			gateway.ReadErr = errors.New("quota exceeded")
			response := decodeError(postJson(`{"name":"Jane"}`))
			Expect(response.Message).To(Equal("Error adding row"))
			Expect(response.Error).To(ContainSubstring("quota exceeded"))
			Expect(gateway.Rows).To(BeEmpty())
		})
	})

	Describe("Multipart requests", func() {
		type part struct {
			name        string
			fileName    string
			contentType string
			data        []byte
		}

		postMultipart := func(parts ...part) *httptest.ResponseRecorder {
			body := &bytes.Buffer{}
			writer := multipart.NewWriter(body)
			for _, p := range parts {
				if p.fileName == "" {
					Expect(writer.WriteField(p.name, string(p.data))).To(Succeed())
					continue
				}
				header := textproto.MIMEHeader{}
				header.Set("Content-Disposition", `form-data; name="`+p.name+`"; filename="`+p.fileName+`"`)
				header.Set("Content-Type", p.contentType)
				w, err := writer.CreatePart(header)
				Expect(err).ToNot(HaveOccurred())
				_, err = w.Write(p.data)
				Expect(err).ToNot(HaveOccurred())
			}
			Expect(writer.Close()).To(Succeed())

			req := httptest.NewRequest(http.MethodPost, "/api/add-patient", body)
			req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
			return serve(req)
		}

		It("maps form fields with dotted names to nested values", func() {
			response := decodeSuccess(postMultipart(
				part{name: "name", data: []byte("Jane")},
				part{name: "tobaccoDetails.type", data: []byte("pipe")},
			))
			Expect(response.PatientNumber).ToNot(BeEmpty())
			Expect(gateway.Cell("name")).To(Equal("Jane"))
			Expect(gateway.Cell("tobaccoDetails.type")).To(Equal("pipe"))
		})

		It("merges the json data field with the form fields", func() {
			decodeSuccess(postMultipart(
				part{name: "data", data: []byte(`{"name":"John","location":"Nairobi","tobaccoDetails":{"years":3}}`)},
				part{name: "name", data: []byte("Jane")},
			))
			Expect(gateway.Cell("name")).To(Equal("Jane"))
			Expect(gateway.Cell("location")).To(Equal("Nairobi"))
			Expect(gateway.Cell("tobaccoDetails.years")).To(Equal(json.Number("3")))
		})

		It("stores the uploaded image", func() {
			data := test.RandomBytes(512)
			response := decodeSuccess(postMultipart(
				part{name: "name", data: []byte("Jane")},
				part{name: "image", fileName: "mouth.jpg", contentType: "image/jpeg", data: data},
			))

			fileName := response.PatientNumber + "-imageUrl.jpg"
			Expect(gateway.Cell("imageUrl")).To(Equal("http://localhost:7000/public/uploads/" + fileName))
			stored, err := os.ReadFile(filepath.Join(attachmentsConfig.PublicDir, "uploads", fileName))
			Expect(err).ToNot(HaveOccurred())
			Expect(stored).To(Equal(data))
		})

		It("ignores and logs unexpected file fields", func() {
			decodeSuccess(postMultipart(
				part{name: "name", data: []byte("Jane")},
				part{name: "xray", fileName: "xray.png", contentType: "image/png", data: test.RandomBytes(16)},
			))
			Expect(gateway.Cell("name")).To(Equal("Jane"))

			entries := logs.FilterMessage("ignoring unexpected file field").All()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].ContextMap()).To(HaveKeyWithValue("field", "xray"))

			uploaded, err := os.ReadDir(filepath.Join(attachmentsConfig.PublicDir, "uploads"))
			Expect(err).ToNot(HaveOccurred())
			Expect(uploaded).To(BeEmpty())
		})

		It("rejects images larger than the upload limit", func() {
			response := decodeError(postMultipart(
				part{name: "image", fileName: "mouth.png", contentType: "image/png", data: test.RandomBytes(2048)},
			))
			Expect(response.Error).To(ContainSubstring("upload limit"))
			Expect(gateway.Rows).To(BeEmpty())
		})

		It("rejects images of unsupported types", func() {
			decodeError(postMultipart(
				part{name: "image", fileName: "mouth.bmp", contentType: "image/bmp", data: test.RandomBytes(16)},
			))
			Expect(gateway.Rows).To(BeEmpty())
		})
	})

	Describe("Readiness", func() {
		It("is not ready until the service has started", func() {
			rec := serve(httptest.NewRequest(http.MethodGet, "/ready", nil))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("is ready after the service has started", func() {
			healthCheck.SetReady(true)
			rec := serve(httptest.NewRequest(http.MethodGet, "/ready", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})

	It("allows cross origin requests", func() {
		req := httptest.NewRequest(http.MethodOptions, "/api/add-patient", nil)
		req.Header.Set(echo.HeaderOrigin, "https://forms.example.com")
		req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
		rec := serve(req)
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Header().Get(echo.HeaderAccessControlAllowOrigin)).To(Equal("*"))
	})
})
