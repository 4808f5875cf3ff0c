package intake

import (
	"context"
	"fmt"
	"mime"

	"github.com/kelseyhightower/envconfig"
	"github.com/tidepool-org/intake/attachments"
	errs "github.com/tidepool-org/intake/errors"
	"github.com/tidepool-org/intake/sheets"
	"go.uber.org/zap"
)

const (
	// HeaderModeKeys provisions every missing field key at the end of the header row
	HeaderModeKeys = "keys"
	// HeaderModeLabels writes the schema labels once when the sheet has no header row
	HeaderModeLabels = "labels"
)

type Config struct {
	HeaderMode string `envconfig:"TIDEPOOL_INTAKE_HEADER_MODE" default:"keys"`
	SchemaFile string `envconfig:"TIDEPOOL_INTAKE_SCHEMA_FILE"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	if cfg.HeaderMode != HeaderModeKeys && cfg.HeaderMode != HeaderModeLabels {
		return nil, fmt.Errorf("unsupported header mode %q", cfg.HeaderMode)
	}
	return cfg, nil
}

func NewSchema(config *Config) (Schema, error) {
	if config.SchemaFile == "" {
		return DefaultSchema(), nil
	}
	return LoadSchemaFile(config.SchemaFile)
}

type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

type Submission struct {
	Payload Payload
	// Files maps field keys to uploaded files
	Files map[string]Upload
}

type Result struct {
	PatientNumber string         `json:"patientNumber"`
	Headers       []string       `json:"headers"`
	HeaderUpdated bool           `json:"headerUpdated"`
	Row           []interface{}  `json:"row"`
	Update        *sheets.Update `json:"spreadsheetUpdate"`
}

type Service interface {
	AddPatient(ctx context.Context, submission Submission) (*Result, error)
	// SyncHeaders provisions the header row without appending a row
	SyncHeaders(ctx context.Context) ([]string, bool, error)
}

type service struct {
	config       *Config
	schema       Schema
	gateway      sheets.Gateway
	materializer attachments.Materializer
	numbers      NumberGenerator
	logger       *zap.SugaredLogger
}

var _ Service = &service{}

func NewService(config *Config, schema Schema, gateway sheets.Gateway, materializer attachments.Materializer, numbers NumberGenerator, logger *zap.SugaredLogger) (Service, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return &service{
		config:       config,
		schema:       schema,
		gateway:      gateway,
		materializer: materializer,
		numbers:      numbers,
		logger:       logger,
	}, nil
}

func (s *service) AddPatient(ctx context.Context, submission Submission) (*Result, error) {
	payload := Normalize(submission.Payload)
	patientNumber := s.numbers.Generate()
	logger := s.logger.With("patientNumber", patientNumber)

	refs, err := s.materializeAttachments(payload, submission.Files, patientNumber)
	if err != nil {
		return nil, err
	}

	headers, updated, err := s.SyncHeaders(ctx)
	if err != nil {
		return nil, err
	}

	input := RowInput{
		Payload:       payload,
		PatientNumber: patientNumber,
		Attachments:   refs,
	}
	var row []interface{}
	if s.config.HeaderMode == HeaderModeLabels {
		row = MapLabelledRow(s.schema, input)
	} else {
		row = MapRow(headers, input)
	}

	update, err := s.gateway.AppendRow(ctx, row)
	if err != nil {
		if updated {
			logger.Warnw("the header row was updated but the row could not be appended", zap.Error(err))
		}
		return nil, err
	}

	logger.Infow("appended intake row", "updatedRange", update.UpdatedRange, "attachments", len(refs))

	return &Result{
		PatientNumber: patientNumber,
		Headers:       headers,
		HeaderUpdated: updated,
		Row:           row,
		Update:        update,
	}, nil
}

func (s *service) SyncHeaders(ctx context.Context) ([]string, bool, error) {
	existing, err := s.gateway.ReadHeader(ctx)
	if err != nil {
		return nil, false, err
	}
	existing = TrimHeaders(existing)

	var headers []string
	var updated bool
	if s.config.HeaderMode == HeaderModeLabels {
		headers, updated = existing, NeedsLabelRow(existing)
		if updated {
			headers = s.schema.Labels()
		}
	} else {
		headers, updated = ReconcileHeaders(s.schema.Keys(), existing)
	}

	if updated {
		s.logger.Infow("updating header row", "existing", len(existing), "columns", len(headers), "mode", s.config.HeaderMode)
		if err := s.gateway.WriteHeader(ctx, headers); err != nil {
			return nil, false, err
		}
	}

	return headers, updated, nil
}

func (s *service) materializeAttachments(payload Payload, files map[string]Upload, patientNumber string) (map[string]string, error) {
	refs := map[string]string{}
	for _, field := range s.schema.AttachmentFields() {
		key := field.Key
		baseName := fmt.Sprintf("%s-%s", patientNumber, key)

		var ref string
		var err error
		if upload, ok := files[key]; ok {
			ref, err = s.materializer.Store(mediaType(upload.ContentType), upload.Data, baseName)
		} else if field.Upload {
			continue
		} else {
			switch value := Lookup(payload, key).(type) {
			case string:
				if value == "" {
					continue
				}
				ref, err = s.materializer.Materialize(value, baseName)
			default:
				err = fmt.Errorf("%w: attachment %q is not a data uri", errs.Format, key)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("unable to store attachment %q: %w", key, err)
		}

		refs[key] = s.materializer.URL(ref)
	}
	return refs, nil
}

func mediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	return mediaType
}
