package attachments

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	errs "github.com/tidepool-org/intake/errors"
	"github.com/vincent-petithory/dataurl"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	dataUriScheme = "data:"

	directoryPermissions = 0o755
	filePermissions      = 0o644
)

type Config struct {
	PublicDir     string `envconfig:"TIDEPOOL_INTAKE_PUBLIC_DIR" default:"public"`
	UploadsSubdir string `envconfig:"TIDEPOOL_INTAKE_UPLOADS_SUBDIR" default:"uploads"`
	PublicBaseUrl string `envconfig:"TIDEPOOL_INTAKE_PUBLIC_BASE_URL" default:"http://localhost:7000/public"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var extensions = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/gif":       ".gif",
	"text/plain":      ".txt",
}

// ParseDataURI returns the mime type (without parameters) and the decoded
// payload of a data uri
func ParseDataURI(dataUri string) (mimeType string, data []byte, err error) {
	if !strings.HasPrefix(dataUri, dataUriScheme) {
		return "", nil, fmt.Errorf("%w: invalid data uri", errs.Format)
	}
	du, err := dataurl.DecodeString(dataUri)
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid data uri: %w", errs.Format, err)
	}
	return strings.ToLower(du.MediaType.ContentType()), du.Data, nil
}

// ExtensionForMimeType returns the file extension (including the dot) for a supported mime type
func ExtensionForMimeType(mimeType string) (string, error) {
	ext, ok := extensions[strings.ToLower(strings.TrimSpace(mimeType))]
	if !ok {
		return "", fmt.Errorf("%w: %q", errs.UnsupportedType, mimeType)
	}
	return ext, nil
}

type Materializer interface {
	// Materialize decodes a data uri and stores it as <baseName><ext>.
	// The returned reference is relative to the public base url.
	Materialize(dataUri string, baseName string) (string, error)
	// Store writes already decoded data of the given mime type as <baseName><ext>
	Store(mimeType string, data []byte, baseName string) (string, error)
	// URL composes the public url of a reference
	URL(ref string) string
}

type materializer struct {
	config *Config
	logger *zap.SugaredLogger
}

func NewMaterializer(config *Config, logger *zap.SugaredLogger, lifecycle fx.Lifecycle) (Materializer, error) {
	m := &materializer{
		config: config,
		logger: logger,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return m.Initialize(ctx)
		},
	})

	return m, nil
}

func (m *materializer) Initialize(ctx context.Context) error {
	return os.MkdirAll(m.outputDir(), directoryPermissions)
}

func (m *materializer) Materialize(dataUri string, baseName string) (string, error) {
	mimeType, data, err := ParseDataURI(dataUri)
	if err != nil {
		return "", err
	}
	return m.Store(mimeType, data, baseName)
}

func (m *materializer) Store(mimeType string, data []byte, baseName string) (string, error) {
	ext, err := ExtensionForMimeType(mimeType)
	if err != nil {
		return "", err
	}
	if baseName == "" || strings.ContainsAny(baseName, `/\`) || baseName == "." || baseName == ".." {
		return "", fmt.Errorf("%w: invalid file name %q", errs.Format, baseName)
	}

	if err := os.MkdirAll(m.outputDir(), directoryPermissions); err != nil {
		return "", fmt.Errorf("unable to create upload directory: %w", err)
	}

	fileName := baseName + ext
	if err := os.WriteFile(filepath.Join(m.outputDir(), fileName), data, filePermissions); err != nil {
		return "", fmt.Errorf("unable to write attachment: %w", err)
	}

	m.logger.Debugw("stored attachment", "file", fileName, "mimeType", mimeType, "size", len(data))

	return path.Join(m.config.UploadsSubdir, fileName), nil
}

func (m *materializer) URL(ref string) string {
	base := strings.TrimSuffix(m.config.PublicBaseUrl, "/")
	segments := strings.Split(ref, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return base + "/" + strings.Join(segments, "/")
}

func (m *materializer) outputDir() string {
	return filepath.Join(m.config.PublicDir, m.config.UploadsSubdir)
}
