package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/TFMV/topicweb/models"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrFetch is returned when the dataset could not be retrieved
	ErrFetch = errors.New("dataset fetch failed")

	// ErrMalformed is returned when the dataset is not valid JSON
	ErrMalformed = errors.New("dataset is malformed")

	// ErrInvalid is returned when the dataset parses but breaks a constraint
	ErrInvalid = errors.New("dataset is invalid")
)

// validate is a singleton validator instance
var validate = validator.New()

// DataProcessor defines the interface that all data processors must implement
type DataProcessor interface {
	// ProcessData takes raw data bytes and returns a dataset
	ProcessData(data []byte) (*models.Dataset, error)

	// GetName returns the name of the processor
	GetName() string
}

// JSONProcessor decodes keyword network documents
type JSONProcessor struct {
	strict bool
}

// NewJSONProcessor creates a new JSON processor. A strict processor rejects
// unknown top-level fields.
func NewJSONProcessor(strict bool) *JSONProcessor {
	return &JSONProcessor{strict: strict}
}

// GetName returns the name of the processor
func (p *JSONProcessor) GetName() string {
	return "JSON Processor"
}

// ProcessData parses and validates a keyword network document
func (p *JSONProcessor) ProcessData(data []byte) (*models.Dataset, error) {
	var doc struct {
		Nodes []models.Node `json:"nodes"`
		Edges []models.Edge `json:"edges"`
		Stats models.Stats  `json:"stats"`
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if p.strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Nodes == nil {
		return nil, fmt.Errorf("%w: missing nodes array", ErrMalformed)
	}

	ds := models.NewDataset(doc.Nodes, doc.Edges, doc.Stats)
	if err := Validate(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// Validate checks field constraints and node ID uniqueness
func Validate(ds *models.Dataset) error {
	if err := validate.Struct(ds); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, formatValidationError(err))
	}
	if dups := ds.DuplicateIDs(); len(dups) > 0 {
		return fmt.Errorf("%w: duplicate node ids: %s", ErrInvalid, strings.Join(dups, ", "))
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, e.Param())
		case "gte":
			return fmt.Errorf("%s: must be at least %s", field, e.Param())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}
	return err
}
