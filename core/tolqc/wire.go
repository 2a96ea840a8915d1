package tolqc

import (
	"time"

	"mlwh-sync/core/reconcile"
)

// seqData is the API's flat record shape. The data location travels as the
// data_root and data_path attributes, as in patches.
type seqData struct {
	Platform             reconcile.Platform `json:"platform_type"`
	NameRoot             string             `json:"name_root"`
	StudyID              string             `json:"study_id"`
	SampleName           string             `json:"sample_name"`
	SpecimenID           *string            `json:"specimen_id"`
	TaxonID              int64              `json:"taxon_id"`
	BiosampleAccession   *string            `json:"biosample_accession"`
	BiospecimenAccession *string            `json:"biospecimen_accession"`
	InstrumentModel      *string            `json:"instrument_model"`
	PipelineID           *string            `json:"pipeline_id"`
	RunID                string             `json:"run_id"`
	LimsQC               reconcile.QC       `json:"lims_qc"`
	QCDate               *time.Time         `json:"qc_date"`
	Tag1ID               *string            `json:"tag1_id"`
	Tag2ID               *string            `json:"tag2_id"`
	LibraryID            *string            `json:"library_id"`
	RunComplete          time.Time          `json:"run_complete"`
	DataRoot             *string            `json:"data_root"`
	DataPath             *string            `json:"data_path"`
}

type recordsBody struct {
	Data []seqData `json:"data"`
}

func toWire(r reconcile.Record) seqData {
	d := seqData{
		Platform:             r.Platform,
		NameRoot:             r.NameRoot,
		StudyID:              r.StudyID,
		SampleName:           r.SampleName,
		SpecimenID:           r.SpecimenID,
		TaxonID:              r.TaxonID,
		BiosampleAccession:   r.BiosampleAccession,
		BiospecimenAccession: r.BiospecimenAccession,
		InstrumentModel:      r.InstrumentModel,
		PipelineID:           r.PipelineID,
		RunID:                r.RunID,
		LimsQC:               r.LimsQC,
		QCDate:               r.QCDate,
		Tag1ID:               r.Tag1ID,
		Tag2ID:               r.Tag2ID,
		LibraryID:            r.LibraryID,
		RunComplete:          r.RunComplete,
	}
	if r.DataLocation != nil {
		root, path := r.DataLocation.Root, r.DataLocation.Path
		d.DataRoot, d.DataPath = &root, &path
	}
	return d
}

func (d seqData) record() reconcile.Record {
	r := reconcile.Record{
		Platform:             d.Platform,
		NameRoot:             d.NameRoot,
		StudyID:              d.StudyID,
		SampleName:           d.SampleName,
		SpecimenID:           d.SpecimenID,
		TaxonID:              d.TaxonID,
		BiosampleAccession:   d.BiosampleAccession,
		BiospecimenAccession: d.BiospecimenAccession,
		InstrumentModel:      d.InstrumentModel,
		PipelineID:           d.PipelineID,
		RunID:                d.RunID,
		LimsQC:               d.LimsQC,
		QCDate:               d.QCDate,
		Tag1ID:               d.Tag1ID,
		Tag2ID:               d.Tag2ID,
		LibraryID:            d.LibraryID,
		RunComplete:          d.RunComplete,
	}
	if r.LimsQC == "" {
		r.LimsQC = reconcile.QCUnknown
	}
	if d.DataRoot != nil || d.DataPath != nil {
		var loc reconcile.Location
		if d.DataRoot != nil {
			loc.Root = *d.DataRoot
		}
		if d.DataPath != nil {
			loc.Path = *d.DataPath
		}
		r.DataLocation = &loc
	}
	return r
}
