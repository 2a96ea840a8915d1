package reconcile

import (
	"fmt"
	"strings"
	"time"
)

// Platform identifies a sequencing platform. The value is the wire name used
// by the target store.
type Platform string

const (
	// PlatformShortRead is the short-read (Illumina) platform.
	PlatformShortRead Platform = "Illumina"
	// PlatformLongReadContinuous is the long-read continuous (PacBio) platform.
	PlatformLongReadContinuous Platform = "PacBio"
	// PlatformLongReadNanopore is the long-read nanopore (ONT) platform.
	PlatformLongReadNanopore Platform = "ONT"
)

// Platforms lists every supported platform in a stable order.
func Platforms() []Platform {
	return []Platform{PlatformShortRead, PlatformLongReadContinuous, PlatformLongReadNanopore}
}

// ParsePlatform resolves a platform from its wire name or a common alias.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "illumina", "shortread", "short-read":
		return PlatformShortRead, nil
	case "pacbio", "longreadcontinuous", "long-read-continuous":
		return PlatformLongReadContinuous, nil
	case "ont", "nanopore", "longreadnanopore", "long-read-nanopore":
		return PlatformLongReadNanopore, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownPlatform, s)
	}
}

// QC is the LIMS quality-control verdict for a data product.
type QC string

const (
	QCPass    QC = "pass"
	QCFail    QC = "fail"
	QCUnknown QC = "unknown"
)

// Key is the identity of a sequencing data product: (platform_type, name_root).
type Key struct {
	Platform Platform `json:"platform_type" yaml:"platform_type"`
	NameRoot string   `json:"name_root" yaml:"name_root"`
}

// String renders the key as "Platform:name_root".
func (k Key) String() string {
	return string(k.Platform) + ":" + k.NameRoot
}

// Less orders keys by platform then name root.
func (k Key) Less(o Key) bool {
	if k.Platform != o.Platform {
		return k.Platform < o.Platform
	}
	return k.NameRoot < o.NameRoot
}

// Location points at archived data: a root collection plus a relative path.
type Location struct {
	Root string `json:"root" yaml:"root"`
	Path string `json:"path" yaml:"path"`
}

// String joins root and path with a single separator.
func (l Location) String() string {
	if l.Path == "" {
		return l.Root
	}
	return strings.TrimRight(l.Root, "/") + "/" + l.Path
}

// Record is the canonical, platform-agnostic representation of one
// sequencing data product.
type Record struct {
	Platform             Platform   `json:"platform_type" yaml:"platform_type"`
	StudyID              string     `json:"study_id" yaml:"study_id"`
	SampleName           string     `json:"sample_name" yaml:"sample_name"`
	SpecimenID           *string    `json:"specimen_id" yaml:"specimen_id"`
	TaxonID              int64      `json:"taxon_id" yaml:"taxon_id"`
	BiosampleAccession   *string    `json:"biosample_accession" yaml:"biosample_accession"`
	BiospecimenAccession *string    `json:"biospecimen_accession" yaml:"biospecimen_accession"`
	InstrumentModel      *string    `json:"instrument_model" yaml:"instrument_model"`
	PipelineID           *string    `json:"pipeline_id" yaml:"pipeline_id"`
	RunID                string     `json:"run_id" yaml:"run_id"`
	NameRoot             string     `json:"name_root" yaml:"name_root"`
	LimsQC               QC         `json:"lims_qc" yaml:"lims_qc"`
	QCDate               *time.Time `json:"qc_date" yaml:"qc_date"`
	Tag1ID               *string    `json:"tag1_id" yaml:"tag1_id"`
	Tag2ID               *string    `json:"tag2_id" yaml:"tag2_id"`
	LibraryID            *string    `json:"library_id" yaml:"library_id"`
	RunComplete          time.Time  `json:"run_complete" yaml:"run_complete"`
	DataLocation         *Location  `json:"data_location" yaml:"data_location"`

	// Seq is the extraction order of the raw row this record came from.
	// It only breaks identity ties and is never persisted.
	Seq int `json:"-" yaml:"-"`
}

// Key returns the record's identity key.
func (r Record) Key() Key {
	return Key{Platform: r.Platform, NameRoot: r.NameRoot}
}

// Field names a canonical record field. The value doubles as the target
// store attribute name.
type Field string

const (
	FieldStudyID              Field = "study_id"
	FieldSampleName           Field = "sample_name"
	FieldSpecimenID           Field = "specimen_id"
	FieldTaxonID              Field = "taxon_id"
	FieldBiosampleAccession   Field = "biosample_accession"
	FieldBiospecimenAccession Field = "biospecimen_accession"
	FieldInstrumentModel      Field = "instrument_model"
	FieldPipelineID           Field = "pipeline_id"
	FieldRunID                Field = "run_id"
	FieldLimsQC               Field = "lims_qc"
	FieldQCDate               Field = "qc_date"
	FieldTag1ID               Field = "tag1_id"
	FieldTag2ID               Field = "tag2_id"
	FieldLibraryID            Field = "library_id"
	FieldRunComplete          Field = "run_complete"
	FieldDataRoot             Field = "data_root"
	FieldDataPath             Field = "data_path"

	// FieldDataLocation is the composite of FieldDataRoot and FieldDataPath
	// used when diffing.
	FieldDataLocation Field = "data_location"
)

// TrackedFields are the fields compared against the target store, in the
// order changes are reported.
var TrackedFields = []Field{
	FieldStudyID,
	FieldSampleName,
	FieldSpecimenID,
	FieldTaxonID,
	FieldBiosampleAccession,
	FieldBiospecimenAccession,
	FieldInstrumentModel,
	FieldPipelineID,
	FieldRunID,
	FieldLimsQC,
	FieldQCDate,
	FieldTag1ID,
	FieldTag2ID,
	FieldLibraryID,
	FieldRunComplete,
	FieldDataLocation,
}

// optionalFields are counted when breaking identity ties.
var optionalFields = []Field{
	FieldSpecimenID,
	FieldBiosampleAccession,
	FieldBiospecimenAccession,
	FieldInstrumentModel,
	FieldPipelineID,
	FieldQCDate,
	FieldTag1ID,
	FieldTag2ID,
	FieldLibraryID,
	FieldDataLocation,
}

// QCDependent reports whether a field's value is governed by the QC
// timestamp and so subject to the monotonicity rule.
func QCDependent(f Field) bool {
	return f == FieldLimsQC || f == FieldQCDate
}

// Get returns the value of a field, or nil when the field is null.
// Non-null values are string, int64, QC, time.Time or Location.
func (r Record) Get(f Field) any {
	switch f {
	case FieldStudyID:
		return r.StudyID
	case FieldSampleName:
		return r.SampleName
	case FieldSpecimenID:
		return deref(r.SpecimenID)
	case FieldTaxonID:
		return r.TaxonID
	case FieldBiosampleAccession:
		return deref(r.BiosampleAccession)
	case FieldBiospecimenAccession:
		return deref(r.BiospecimenAccession)
	case FieldInstrumentModel:
		return deref(r.InstrumentModel)
	case FieldPipelineID:
		return deref(r.PipelineID)
	case FieldRunID:
		return r.RunID
	case FieldLimsQC:
		return r.LimsQC
	case FieldQCDate:
		if r.QCDate == nil {
			return nil
		}
		return *r.QCDate
	case FieldTag1ID:
		return deref(r.Tag1ID)
	case FieldTag2ID:
		return deref(r.Tag2ID)
	case FieldLibraryID:
		return deref(r.LibraryID)
	case FieldRunComplete:
		return r.RunComplete
	case FieldDataLocation:
		if r.DataLocation == nil {
			return nil
		}
		return *r.DataLocation
	case FieldDataRoot:
		if r.DataLocation == nil {
			return nil
		}
		return r.DataLocation.Root
	case FieldDataPath:
		if r.DataLocation == nil {
			return nil
		}
		return r.DataLocation.Path
	}
	return nil
}

// Set assigns a transformed value to a field. nil clears nullable fields.
func (r *Record) Set(f Field, v any) error {
	switch f {
	case FieldStudyID:
		return setString(&r.StudyID, v, f)
	case FieldSampleName:
		return setString(&r.SampleName, v, f)
	case FieldSpecimenID:
		return setOptString(&r.SpecimenID, v, f)
	case FieldTaxonID:
		switch n := v.(type) {
		case nil:
			r.TaxonID = 0
		case int64:
			r.TaxonID = n
		default:
			return typeError(f, v)
		}
	case FieldBiosampleAccession:
		return setOptString(&r.BiosampleAccession, v, f)
	case FieldBiospecimenAccession:
		return setOptString(&r.BiospecimenAccession, v, f)
	case FieldInstrumentModel:
		return setOptString(&r.InstrumentModel, v, f)
	case FieldPipelineID:
		return setOptString(&r.PipelineID, v, f)
	case FieldRunID:
		return setString(&r.RunID, v, f)
	case FieldLimsQC:
		switch q := v.(type) {
		case nil:
			r.LimsQC = QCUnknown
		case QC:
			r.LimsQC = q
		default:
			return typeError(f, v)
		}
	case FieldQCDate:
		switch t := v.(type) {
		case nil:
			r.QCDate = nil
		case time.Time:
			r.QCDate = &t
		default:
			return typeError(f, v)
		}
	case FieldTag1ID:
		return setOptString(&r.Tag1ID, v, f)
	case FieldTag2ID:
		return setOptString(&r.Tag2ID, v, f)
	case FieldLibraryID:
		return setOptString(&r.LibraryID, v, f)
	case FieldRunComplete:
		switch t := v.(type) {
		case nil:
			r.RunComplete = time.Time{}
		case time.Time:
			r.RunComplete = t
		default:
			return typeError(f, v)
		}
	case FieldDataRoot, FieldDataPath:
		s, ok := v.(string)
		if v != nil && !ok {
			return typeError(f, v)
		}
		if r.DataLocation == nil {
			if v == nil {
				return nil
			}
			r.DataLocation = &Location{}
		}
		if f == FieldDataRoot {
			r.DataLocation.Root = s
		} else {
			r.DataLocation.Path = s
		}
	case FieldDataLocation:
		switch l := v.(type) {
		case nil:
			r.DataLocation = nil
		case Location:
			r.DataLocation = &l
		default:
			return typeError(f, v)
		}
	default:
		return fmt.Errorf("unknown field %q", f)
	}
	return nil
}

// populated counts the non-null optional fields.
func (r Record) populated() int {
	n := 0
	for _, f := range optionalFields {
		if r.Get(f) != nil {
			n++
		}
	}
	return n
}

// RawRow is one warehouse row exactly as scanned, keyed by column alias.
type RawRow map[string]any

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func setString(dst *string, v any, f Field) error {
	switch s := v.(type) {
	case nil:
		*dst = ""
	case string:
		*dst = s
	default:
		return typeError(f, v)
	}
	return nil
}

func setOptString(dst **string, v any, f Field) error {
	switch s := v.(type) {
	case nil:
		*dst = nil
	case string:
		*dst = &s
	default:
		return typeError(f, v)
	}
	return nil
}

func typeError(f Field, v any) error {
	return fmt.Errorf("field %s: unexpected value type %T", f, v)
}
