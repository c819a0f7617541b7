// Package catalog maps logical dataset names to feature-service endpoints and
// the fields each lookup returns.
package catalog

import (
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/feature-query/pkg/featureservice"
)

// DefaultObjectIDField is the object id column assumed for related datasets.
const DefaultObjectIDField = "OBJECTID"

// DefaultHUCLevel is the code length assumed for a dataset's HUC field.
const DefaultHUCLevel = 12

// Dataset describes one queryable feature-service layer.
type Dataset struct {
	Name        string
	Description string
	ServiceURL  string
	OutFields   []string
	// FIPSField is the column matched by FIPS lookups. Empty means the
	// dataset only supports point lookups.
	FIPSField string
	QuoteFIPS bool
	// HUCField is the column matched by hydrologic unit code lookups and
	// HUCLevel the number of digits it holds.
	HUCField string
	HUCLevel int
	Shape    featureservice.ResultShape

	// RelationshipID and ObjectIDField are set for Related datasets. Matches
	// are resolved to object ids first, then traversed with queryRelatedRecords.
	RelationshipID *int
	ObjectIDField  string
}

// SupportsFIPS reports whether the dataset can be queried by FIPS code.
func (d Dataset) SupportsFIPS() bool { return d.FIPSField != "" }

// SupportsHUC reports whether the dataset can be queried by hydrologic unit code.
func (d Dataset) SupportsHUC() bool { return d.HUCField != "" }

// IsRelated reports whether lookups traverse a relationship.
func (d Dataset) IsRelated() bool { return d.Shape == featureservice.Related }

// Validate checks that the dataset is usable.
func (d Dataset) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return eris.New("catalog: dataset name is required")
	}
	u, err := url.Parse(d.ServiceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return eris.Errorf("catalog: dataset %q has invalid service_url %q", d.Name, d.ServiceURL)
	}
	if d.SupportsHUC() && (d.HUCLevel < 2 || d.HUCLevel > 12 || d.HUCLevel%2 != 0) {
		return eris.Errorf("catalog: dataset %q has invalid huc_level %d", d.Name, d.HUCLevel)
	}
	switch d.Shape {
	case featureservice.AttributesOnly, featureservice.Full:
	case featureservice.Related:
		if d.RelationshipID == nil {
			return eris.Errorf("catalog: related dataset %q requires relationship_id", d.Name)
		}
		if d.ObjectIDField == "" {
			return eris.Errorf("catalog: related dataset %q requires object_id_field", d.Name)
		}
	default:
		return eris.Errorf("catalog: dataset %q has unsupported shape %s", d.Name, d.Shape)
	}
	return nil
}

type fileConfig struct {
	Datasets []datasetYAML `yaml:"datasets"`
}

type datasetYAML struct {
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	ServiceURL     string   `yaml:"service_url"`
	OutFields      []string `yaml:"out_fields"`
	FIPSField      string   `yaml:"fips_field"`
	QuoteFIPS      bool     `yaml:"quote_fips"`
	HUCField       string   `yaml:"huc_field"`
	HUCLevel       int      `yaml:"huc_level"`
	Shape          string   `yaml:"shape"`
	RelationshipID *int     `yaml:"relationship_id,omitempty"`
	ObjectIDField  string   `yaml:"object_id_field"`
}

func (y datasetYAML) toDataset() (Dataset, error) {
	shapeName := y.Shape
	if shapeName == "" {
		shapeName = featureservice.AttributesOnly.String()
	}
	shape, err := featureservice.ParseResultShape(shapeName)
	if err != nil {
		return Dataset{}, eris.Wrapf(err, "catalog: dataset %q", y.Name)
	}
	d := Dataset{
		Name:           y.Name,
		Description:    y.Description,
		ServiceURL:     strings.TrimRight(y.ServiceURL, "/"),
		OutFields:      y.OutFields,
		FIPSField:      y.FIPSField,
		QuoteFIPS:      y.QuoteFIPS,
		HUCField:       y.HUCField,
		HUCLevel:       y.HUCLevel,
		Shape:          shape,
		RelationshipID: y.RelationshipID,
		ObjectIDField:  y.ObjectIDField,
	}
	if d.HUCField != "" && d.HUCLevel == 0 {
		d.HUCLevel = DefaultHUCLevel
	}
	if d.Shape == featureservice.Related && d.ObjectIDField == "" {
		d.ObjectIDField = DefaultObjectIDField
	}
	return d, nil
}

// Load reads dataset definitions from a YAML file with a top-level
// "datasets" list.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML dataset definitions.
func Parse(data []byte) (*Registry, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, eris.Wrap(err, "catalog: parse")
	}
	if len(cfg.Datasets) == 0 {
		return nil, eris.New("catalog: no datasets defined")
	}

	r := NewRegistry()
	for _, y := range cfg.Datasets {
		d, err := y.toDataset()
		if err != nil {
			return nil, err
		}
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}
