package pacbio

import (
	"context"
	"iter"
	"strings"

	"mlwh-sync/core/database"
	"mlwh-sync/core/reconcile"

	"gorm.io/gorm"
)

const (
	colStudyID              = "study_id"
	colSampleName           = "sample_name"
	colSpecimenID           = "specimen_id"
	colBiosampleAccession   = "biosample_accession"
	colBiospecimenAccession = "biospecimen_accession"
	colTaxonID              = "taxon_id"
	colInstrumentModel      = "instrument_model"
	colPipelineID           = "pipeline_id"
	colMovieName            = "movie_name"
	colRunComplete          = "run_complete"
	colQC                   = "lims_qc"
	colQCDate               = "qc_date"
	colTag1                 = "tag1_id"
	colTag2                 = "tag2_id"
	colLibraryID            = "library_id"
	colIrodsRoot            = "irods_root"
	colIrodsPath            = "irods_path"
)

// Adapter extracts PacBio long-read products from the warehouse.
type Adapter struct {
	mapping *reconcile.Mapping
}

// NewAdapter creates a new PacBio adapter.
func NewAdapter() *Adapter {
	return &Adapter{mapping: newMapping()}
}

// Platform returns the long-read continuous platform.
func (a *Adapter) Platform() reconcile.Platform {
	return reconcile.PlatformLongReadContinuous
}

// Extract runs the well metrics query, ordered by movie and tags.
func (a *Adapter) Extract(ctx context.Context, db *gorm.DB, studies []string) iter.Seq2[reconcile.RawRow, error] {
	query, args := buildQuery(studies)
	return reconcile.ScanRows(ctx, db, a.Platform(), query, args...)
}

// Mapping returns the PacBio column mapping.
func (a *Adapter) Mapping() *reconcile.Mapping {
	return a.mapping
}

// Complete requires a finished run and a movie name.
func (a *Adapter) Complete(row reconcile.RawRow) (string, bool) {
	if row[colRunComplete] == nil {
		return "run not complete", false
	}
	if _, ok := reconcile.RawString(row, colMovieName); !ok {
		return "no movie name", false
	}
	return "", true
}

// Tables lists the warehouse tables and columns the query reads.
func (a *Adapter) Tables() []database.TableSpec {
	return []database.TableSpec{
		{Name: "study", Columns: []string{"id_study_tmp", "id_study_lims", "id_lims"}},
		{Name: "sample", Columns: []string{"id_sample_tmp", "name", "public_name", "accession_number", "donor_id", "taxon_id"}},
		{Name: "pac_bio_run", Columns: []string{"id_pac_bio_tmp", "id_study_tmp", "id_sample_tmp", "pipeline_id_lims", "tag_identifier", "tag2_identifier", "pac_bio_library_tube_name"}},
		{Name: "pac_bio_product_metrics", Columns: []string{"id_pac_bio_tmp", "id_pac_bio_rw_metrics_tmp", "id_pac_bio_product"}},
		{Name: "pac_bio_run_well_metrics", Columns: []string{"id_pac_bio_rw_metrics_tmp", "movie_name", "instrument_type", "run_complete", "qc_seq", "qc_seq_date"}},
		{Name: "seq_product_irods_locations", Columns: []string{"id_product", "irods_root_collection", "irods_data_relative_path"}},
	}
}

const baseQuery = `SELECT study.id_study_lims AS study_id
  , sample.name AS sample_name
  , sample.public_name AS specimen_id
  , sample.accession_number AS biosample_accession
  , sample.donor_id AS biospecimen_accession
  , sample.taxon_id AS taxon_id
  , well_metrics.instrument_type AS instrument_model
  , run.pipeline_id_lims AS pipeline_id
  , well_metrics.movie_name AS movie_name
  , well_metrics.run_complete AS run_complete
  , well_metrics.qc_seq AS lims_qc
  , well_metrics.qc_seq_date AS qc_date
  , run.tag_identifier AS tag1_id
  , run.tag2_identifier AS tag2_id
  , run.pac_bio_library_tube_name AS library_id
  , irods.irods_root_collection AS irods_root
  , irods.irods_data_relative_path AS irods_path
FROM study
JOIN pac_bio_run AS run
  ON study.id_study_tmp = run.id_study_tmp
JOIN sample
  ON run.id_sample_tmp = sample.id_sample_tmp
JOIN pac_bio_product_metrics AS product_metrics
  ON run.id_pac_bio_tmp = product_metrics.id_pac_bio_tmp
JOIN pac_bio_run_well_metrics AS well_metrics
  ON product_metrics.id_pac_bio_rw_metrics_tmp = well_metrics.id_pac_bio_rw_metrics_tmp
LEFT JOIN seq_product_irods_locations AS irods
  ON product_metrics.id_pac_bio_product = irods.id_product
WHERE study.id_lims = 'SQSCP'`

const orderBy = `
ORDER BY well_metrics.movie_name, run.tag_identifier, run.tag2_identifier`

func buildQuery(studies []string) (string, []any) {
	var b strings.Builder
	b.WriteString(baseQuery)
	var args []any
	if len(studies) > 0 {
		b.WriteString("\n  AND study.id_study_lims IN ?")
		args = append(args, studies)
	}
	b.WriteString(orderBy)
	return b.String(), args
}
