package qcstore

import (
	"time"

	"mlwh-sync/core/reconcile"
)

// SeqData is one sequencing data product as persisted by the SQL store.
type SeqData struct {
	ID                   uint       `gorm:"primaryKey"`
	PlatformType         string     `gorm:"column:platform_type;size:16;not null;uniqueIndex:idx_seq_data_key,priority:1"`
	NameRoot             string     `gorm:"column:name_root;size:255;not null;uniqueIndex:idx_seq_data_key,priority:2"`
	StudyID              string     `gorm:"column:study_id;size:32;not null"`
	SampleName           string     `gorm:"column:sample_name;size:64;not null"`
	SpecimenID           *string    `gorm:"column:specimen_id;size:64"`
	TaxonID              int64      `gorm:"column:taxon_id;not null"`
	BiosampleAccession   *string    `gorm:"column:biosample_accession;size:32"`
	BiospecimenAccession *string    `gorm:"column:biospecimen_accession;size:32"`
	InstrumentModel      *string    `gorm:"column:instrument_model;size:64"`
	PipelineID           *string    `gorm:"column:pipeline_id;size:64"`
	RunID                string     `gorm:"column:run_id;size:64;not null;index"`
	LimsQC               string     `gorm:"column:lims_qc;size:8;not null"`
	QCDate               *time.Time `gorm:"column:qc_date"`
	Tag1ID               *string    `gorm:"column:tag1_id;size:64"`
	Tag2ID               *string    `gorm:"column:tag2_id;size:64"`
	LibraryID            *string    `gorm:"column:library_id;size:64"`
	RunComplete          time.Time  `gorm:"column:run_complete;not null"`
	DataRoot             *string    `gorm:"column:data_root;size:512"`
	DataPath             *string    `gorm:"column:data_path;size:512"`
	CreatedAt            time.Time  `gorm:"column:created_at"`
	UpdatedAt            time.Time  `gorm:"column:updated_at"`
}

// TableName returns the table name for GORM.
func (SeqData) TableName() string {
	return "seq_data"
}

// fromRecord converts a canonical record into its row form.
func fromRecord(r reconcile.Record) SeqData {
	row := SeqData{
		PlatformType:         string(r.Platform),
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
		LimsQC:               string(r.LimsQC),
		QCDate:               r.QCDate,
		Tag1ID:               r.Tag1ID,
		Tag2ID:               r.Tag2ID,
		LibraryID:            r.LibraryID,
		RunComplete:          r.RunComplete,
	}
	if r.DataLocation != nil {
		root, path := r.DataLocation.Root, r.DataLocation.Path
		row.DataRoot = &root
		row.DataPath = &path
	}
	return row
}

// Record converts the row back into a canonical record.
func (s SeqData) Record() reconcile.Record {
	r := reconcile.Record{
		Platform:             reconcile.Platform(s.PlatformType),
		NameRoot:             s.NameRoot,
		StudyID:              s.StudyID,
		SampleName:           s.SampleName,
		SpecimenID:           s.SpecimenID,
		TaxonID:              s.TaxonID,
		BiosampleAccession:   s.BiosampleAccession,
		BiospecimenAccession: s.BiospecimenAccession,
		InstrumentModel:      s.InstrumentModel,
		PipelineID:           s.PipelineID,
		RunID:                s.RunID,
		LimsQC:               reconcile.QC(s.LimsQC),
		Tag1ID:               s.Tag1ID,
		Tag2ID:               s.Tag2ID,
		LibraryID:            s.LibraryID,
		RunComplete:          s.RunComplete.UTC(),
	}
	if s.QCDate != nil {
		t := s.QCDate.UTC()
		r.QCDate = &t
	}
	if s.DataRoot != nil || s.DataPath != nil {
		loc := reconcile.Location{}
		if s.DataRoot != nil {
			loc.Root = *s.DataRoot
		}
		if s.DataPath != nil {
			loc.Path = *s.DataPath
		}
		r.DataLocation = &loc
	}
	return r
}
