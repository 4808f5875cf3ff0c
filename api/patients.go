package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	errs "github.com/tidepool-org/intake/errors"
	"github.com/tidepool-org/intake/intake"
	"github.com/tidepool-org/intake/sheets"
	"go.uber.org/zap"
)

const (
	// imageFormField is the multipart field of the uploaded image
	imageFormField = "image"
	// imageFieldKey is the schema field which references the uploaded image
	imageFieldKey = "imageUrl"
	// dataFormField is an optional multipart field with a json encoded payload
	dataFormField = "data"

	messageRowAdded    = "Row added successfully"
	messageAddRowError = "Error adding row"
)

type AddPatientResponse struct {
	Message           string         `json:"message"`
	PatientNumber     string         `json:"patientNumber,omitempty"`
	SpreadsheetUpdate *sheets.Update `json:"spreadsheetUpdate"`
}

// AddPatient appends the submitted intake form to the spreadsheet
// (POST /api/add-patient)
func (h *Handler) AddPatient(ec echo.Context) error {
	submission, err := h.parseSubmission(ec)
	if err != nil {
		return h.addPatientError(err)
	}

	result, err := h.intake.AddPatient(ec.Request().Context(), submission)
	if err != nil {
		return h.addPatientError(err)
	}

	return ec.JSON(http.StatusOK, AddPatientResponse{
		Message:           messageRowAdded,
		PatientNumber:     result.PatientNumber,
		SpreadsheetUpdate: result.Update,
	})
}

func (h *Handler) addPatientError(err error) error {
	h.logger.Errorw("unable to add patient", zap.Error(err))
	return errs.WithMessage(http.StatusInternalServerError, messageAddRowError, err)
}

func (h *Handler) parseSubmission(ec echo.Context) (intake.Submission, error) {
	contentType := ec.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		return h.parseMultipartSubmission(ec)
	}

	payload, err := intake.DecodePayload(ec.Request().Body)
	if err != nil {
		return intake.Submission{}, err
	}
	return intake.Submission{Payload: payload}, nil
}

func (h *Handler) parseMultipartSubmission(ec echo.Context) (intake.Submission, error) {
	submission := intake.Submission{}
	form, err := ec.MultipartForm()
	if err != nil {
		return submission, fmt.Errorf("%w: unable to parse multipart form: %w", errs.Format, err)
	}
	for field, files := range form.File {
		if field != imageFormField {
			h.logger.Warnw("ignoring unexpected file field", "field", field, "files", len(files))
		}
	}

	fields := make(map[string][]string, len(form.Value))
	for key, values := range form.Value {
		if key != dataFormField {
			fields[key] = values
		}
	}
	payload, err := intake.ExpandForm(fields)
	if err != nil {
		return submission, err
	}

	if data := form.Value[dataFormField]; len(data) > 0 && strings.TrimSpace(data[0]) != "" {
		base, err := intake.DecodePayload(bytes.NewBufferString(data[0]))
		if err != nil {
			return submission, err
		}
		if payload, err = intake.MergePayloads(base, payload); err != nil {
			return submission, err
		}
	}
	submission.Payload = payload

	if files := form.File[imageFormField]; len(files) > 0 {
		upload, err := h.readUpload(files[0].Filename, files[0].Header.Get(echo.HeaderContentType), files[0].Size, func() (io.ReadCloser, error) {
			return files[0].Open()
		})
		if err != nil {
			return submission, err
		}
		submission.Files = map[string]intake.Upload{imageFieldKey: upload}
	}

	return submission, nil
}

func (h *Handler) readUpload(fileName string, contentType string, size int64, open func() (io.ReadCloser, error)) (intake.Upload, error) {
	limit := h.config.UploadLimitBytes
	if size > limit {
		return intake.Upload{}, fmt.Errorf("%w: %s exceeds the upload limit of %d bytes", errs.Format, imageFormField, limit)
	}

	f, err := open()
	if err != nil {
		return intake.Upload{}, fmt.Errorf("unable to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return intake.Upload{}, fmt.Errorf("unable to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return intake.Upload{}, fmt.Errorf("%w: %s exceeds the upload limit of %d bytes", errs.Format, imageFormField, limit)
	}

	return intake.Upload{
		FileName:    fileName,
		ContentType: contentType,
		Data:        data,
	}, nil
}
